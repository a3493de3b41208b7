package history

import (
	"context"
	"time"

	"github.com/dwarvesf/escrow-history/internal/escrow"
	"github.com/dwarvesf/escrow-history/internal/model"
	"github.com/dwarvesf/escrow-history/internal/types/chains"
)

type IHistory interface {
	Scan(ctx context.Context, req Request) (*History, error)
	Snapshots(chain string) ([]History, error)
}

type ISessionManager interface {
	Create(ctx context.Context, chain chains.ID, address string) (*SessionView, error)
	Get(id string) (*SessionView, error)
	Select(ctx context.Context, id string, chain chains.ID, address string) (*SessionView, error)
	LoadMore(ctx context.Context, id string) (*SessionView, error)
	Refresh(ctx context.Context, id string) (*SessionView, error)
}

// MetricsRecorder is implemented by *monitoring.BusinessMetricsRecorder.
type MetricsRecorder interface {
	RecordHistoryScan(chain, status string, duration float64)
	RecordSessionOperation(operation, status string, duration float64)
	RecordDatabaseOperation(operationType, status string, duration float64)
}

type Request struct {
	Chain         string
	EscrowAddress string
	// Days of history to rebuild. Zero means the default window.
	Days int
}

// History is a rebuilt transfer history. Stale is set when Events come from
// the last stored snapshot because the fresh scan failed.
type History struct {
	Chain         chains.ID             `json:"chain"`
	EscrowAddress string                `json:"escrow_address"`
	Days          int                   `json:"days"`
	Events        []model.TransferEvent `json:"events"`
	Summary       model.TransferSummary `json:"summary"`
	ScannedAt     time.Time             `json:"scanned_at"`
	Stale         bool                  `json:"stale"`
}

type SessionView struct {
	ID string `json:"id"`
	escrow.SessionState
	Summary model.TransferSummary `json:"summary"`
}
