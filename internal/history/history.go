package history

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dwarvesf/escrow-history/internal/escrow"
	"github.com/dwarvesf/escrow-history/internal/model"
	"github.com/dwarvesf/escrow-history/internal/store"
	"github.com/dwarvesf/escrow-history/internal/types/chains"
	"github.com/dwarvesf/escrow-history/internal/utils/logger"
)

type Options struct {
	DefaultDays int
	MaxDays     int
}

// Service rebuilds escrow histories on demand and keeps the last good one
// per escrow as a snapshot.
type Service struct {
	db      *gorm.DB
	store   *store.Store
	scanner escrow.HistoryScanner
	opts    Options
	logger  *logger.Logger
	metrics MetricsRecorder
}

// New builds the history service. A nil store disables snapshots.
func New(db *gorm.DB, store *store.Store, scanner escrow.HistoryScanner, opts Options, logger *logger.Logger, metrics MetricsRecorder) *Service {
	if opts.DefaultDays <= 0 {
		opts.DefaultDays = escrow.DefaultWindowPolicy.StepDays
	}
	if opts.MaxDays < opts.DefaultDays {
		opts.MaxDays = escrow.DefaultWindowPolicy.MaxDays
	}
	return &Service{
		db:      db,
		store:   store,
		scanner: scanner,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

// Scan rebuilds the history described by req. When the ledger fails and a
// snapshot exists, the snapshot is returned together with the error.
func (s *Service) Scan(ctx context.Context, req Request) (*History, error) {
	chainID, err := chains.Parse(req.Chain)
	if err != nil {
		return nil, err
	}
	info, err := chains.Lookup(chainID)
	if err != nil {
		return nil, err
	}

	days := req.Days
	if days == 0 {
		days = s.opts.DefaultDays
	}
	if days < 0 || days > s.opts.MaxDays {
		return nil, errors.Wrapf(ErrDaysOutOfRange, "days must be between 1 and %d, got %d", s.opts.MaxDays, days)
	}

	address := strings.TrimSpace(req.EscrowAddress)
	if address != "" && common.IsHexAddress(address) {
		address = common.HexToAddress(address).Hex()
	}

	start := time.Now()
	events, err := s.scanner.Scan(ctx, escrow.ScanRequest{
		EscrowAddress: address,
		Chain:         chainID,
		HistoryDays:   days,
	})
	duration := time.Since(start).Seconds()

	if err != nil {
		if !errors.Is(err, escrow.ErrLedgerQueryFailure) {
			return nil, err
		}
		s.logger.Error("[history.Scan][Scan]", map[string]string{
			"chain":   chainID.String(),
			"address": address,
			"error":   err.Error(),
		})

		stale := s.loadSnapshot(chainID, address)
		if stale != nil {
			s.recordScan(chainID, "stale", duration)
		} else {
			s.recordScan(chainID, "error", duration)
		}
		return stale, err
	}
	s.recordScan(chainID, "fresh", duration)

	h := &History{
		Chain:         chainID,
		EscrowAddress: address,
		Days:          days,
		Events:        events,
		Summary:       model.Summarize(events, int(info.TokenDecimals)),
		ScannedAt:     time.Now().UTC(),
	}
	if address != "" {
		s.saveSnapshot(h)
	}
	return h, nil
}

// Snapshots lists stored histories, newest first. chain may be empty.
func (s *Service) Snapshots(chain string) ([]History, error) {
	if s.store == nil {
		return []History{}, nil
	}
	if chain != "" {
		chainID, err := chains.Parse(chain)
		if err != nil {
			return nil, err
		}
		chain = chainID.String()
	}

	snapshots, err := s.store.EscrowSnapshot.List(s.db, chain)
	if err != nil {
		s.logger.Error("[history.Snapshots][List]", map[string]string{
			"error": err.Error(),
		})
		return nil, err
	}

	out := make([]History, 0, len(snapshots))
	for i := range snapshots {
		h, err := historyFromSnapshot(&snapshots[i])
		if err != nil {
			continue
		}
		out = append(out, *h)
	}
	return out, nil
}

func (s *Service) saveSnapshot(h *History) {
	if s.store == nil {
		return
	}

	start := time.Now()
	err := s.store.EscrowSnapshot.Upsert(s.db, &model.EscrowSnapshot{
		Chain:         h.Chain.String(),
		EscrowAddress: h.EscrowAddress,
		HistoryDays:   h.Days,
		Events:        datatypes.NewJSONType(h.Events),
		ScannedAt:     h.ScannedAt,
	})
	if err != nil {
		s.recordDatabase("snapshot_upsert", "error", start)
		// a missing snapshot only costs the stale fallback
		s.logger.Warn("[history.saveSnapshot][Upsert]", map[string]string{
			"chain":   h.Chain.String(),
			"address": h.EscrowAddress,
			"error":   err.Error(),
		})
		return
	}
	s.recordDatabase("snapshot_upsert", "success", start)
}

func (s *Service) loadSnapshot(chainID chains.ID, address string) *History {
	if s.store == nil || address == "" {
		return nil
	}

	start := time.Now()
	snapshot, err := s.store.EscrowSnapshot.GetByEscrow(s.db, chainID.String(), address)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.recordDatabase("snapshot_get", "error", start)
			s.logger.Warn("[history.loadSnapshot][GetByEscrow]", map[string]string{
				"chain":   chainID.String(),
				"address": address,
				"error":   err.Error(),
			})
		}
		return nil
	}
	s.recordDatabase("snapshot_get", "success", start)

	h, err := historyFromSnapshot(snapshot)
	if err != nil {
		return nil
	}
	h.EscrowAddress = address
	h.Stale = true
	return h
}

func historyFromSnapshot(snapshot *model.EscrowSnapshot) (*History, error) {
	chainID, err := chains.Parse(snapshot.Chain)
	if err != nil {
		return nil, err
	}
	info, err := chains.Lookup(chainID)
	if err != nil {
		return nil, err
	}

	events := snapshot.Events.Data()
	if events == nil {
		events = []model.TransferEvent{}
	}
	return &History{
		Chain:         chainID,
		EscrowAddress: snapshot.EscrowAddress,
		Days:          snapshot.HistoryDays,
		Events:        events,
		Summary:       model.Summarize(events, int(info.TokenDecimals)),
		ScannedAt:     snapshot.ScannedAt,
	}, nil
}

func (s *Service) recordScan(chainID chains.ID, status string, duration float64) {
	if s.metrics != nil {
		s.metrics.RecordHistoryScan(chainID.String(), status, duration)
	}
}

func (s *Service) recordDatabase(op, status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordDatabaseOperation(op, status, time.Since(start).Seconds())
	}
}
