package escrow

import (
	"time"

	"github.com/dwarvesf/escrow-history/internal/history"
	"github.com/dwarvesf/escrow-history/internal/model"
	"github.com/dwarvesf/escrow-history/internal/types/chains"
)

type TransfersQuery struct {
	Days int `form:"days" validate:"gte=0,lte=365"`
}

type SessionRequest struct {
	Chain         string `json:"chain" binding:"required" validate:"required"`
	EscrowAddress string `json:"escrow_address" binding:"required" validate:"required,eth_addr"`
}

// TransferView is a TransferEvent with its explorer link.
type TransferView struct {
	model.TransferEvent
	ExplorerURL string `json:"explorer_url"`
}

type HistoryResponse struct {
	Chain         chains.ID             `json:"chain"`
	EscrowAddress string                `json:"escrow_address"`
	Days          int                   `json:"days"`
	Transfers     []TransferView        `json:"transfers"`
	Summary       model.TransferSummary `json:"summary"`
	ScannedAt     time.Time             `json:"scanned_at"`
	Stale         bool                  `json:"stale"`
}

type SessionResponse struct {
	ID            string                `json:"id"`
	Chain         chains.ID             `json:"chain"`
	EscrowAddress string                `json:"escrow_address"`
	Days          int                   `json:"days"`
	CanLoadMore   bool                  `json:"can_load_more"`
	Transfers     []TransferView        `json:"transfers"`
	Summary       model.TransferSummary `json:"summary"`
	LastError     string                `json:"last_error,omitempty"`
}

type ChainResponse struct {
	chains.Info
	Enabled bool `json:"enabled"`
}

func toTransferViews(id chains.ID, events []model.TransferEvent) []TransferView {
	info, err := chains.Lookup(id)
	out := make([]TransferView, 0, len(events))
	for _, ev := range events {
		v := TransferView{TransferEvent: ev}
		if err == nil {
			v.ExplorerURL = info.TxURL(ev.TxHash)
		}
		out = append(out, v)
	}
	return out
}

func toHistoryResponse(h *history.History) *HistoryResponse {
	if h == nil {
		return nil
	}
	return &HistoryResponse{
		Chain:         h.Chain,
		EscrowAddress: h.EscrowAddress,
		Days:          h.Days,
		Transfers:     toTransferViews(h.Chain, h.Events),
		Summary:       h.Summary,
		ScannedAt:     h.ScannedAt,
		Stale:         h.Stale,
	}
}

func toSessionResponse(v *history.SessionView) *SessionResponse {
	if v == nil {
		return nil
	}
	return &SessionResponse{
		ID:            v.ID,
		Chain:         v.Chain,
		EscrowAddress: v.EscrowAddress,
		Days:          v.Days,
		CanLoadMore:   v.CanLoadMore,
		Transfers:     toTransferViews(v.Chain, v.Events),
		Summary:       v.Summary,
		LastError:     v.LastError,
	}
}
