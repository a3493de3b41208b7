package telemetry

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/dwarvesf/escrow-history/internal/history"
	"github.com/dwarvesf/escrow-history/internal/store"
	"github.com/dwarvesf/escrow-history/internal/utils/config"
	"github.com/dwarvesf/escrow-history/internal/utils/logger"
)

// maxConcurrentIndexing bounds how many escrows are rescanned at once. Each
// scan already runs two ledger queries per chunk.
const maxConcurrentIndexing = 4

var ErrIndexingInProgress = errors.New("escrow indexing already in progress")

type Telemetry struct {
	db        *gorm.DB
	store     *store.Store
	appConfig *config.AppConfig
	logger    *logger.Logger
	history   history.IHistory

	indexMutex sync.Mutex
	now        func() time.Time
}

func New(db *gorm.DB, store *store.Store, appConfig *config.AppConfig, logger *logger.Logger, history history.IHistory) *Telemetry {
	return &Telemetry{
		db:        db,
		store:     store,
		appConfig: appConfig,
		logger:    logger,
		history:   history,
		now:       time.Now,
	}
}

func (t *Telemetry) IndexWatchedEscrows(ctx context.Context) error {
	if !t.indexMutex.TryLock() {
		t.logger.Warn("[IndexWatchedEscrows] previous run still in progress, skipping")
		return ErrIndexingInProgress
	}
	defer t.indexMutex.Unlock()

	watchlist := t.appConfig.Watchlist
	if len(watchlist) == 0 {
		t.logger.Debug("[IndexWatchedEscrows] watchlist is empty")
		return nil
	}

	t.logger.Info("[IndexWatchedEscrows] Start indexing watched escrows...", map[string]string{
		"escrows": strconv.Itoa(len(watchlist)),
	})

	var (
		failed   atomic.Int32
		firstErr error
		errOnce  sync.Once
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentIndexing)
	for _, watched := range watchlist {
		g.Go(func() error {
			h, err := t.history.Scan(gctx, history.Request{
				Chain:         watched.Chain.String(),
				EscrowAddress: watched.Address,
				Days:          t.appConfig.Scanner.DefaultDays,
			})
			if err != nil {
				// one failing escrow must not stop the others
				failed.Add(1)
				errOnce.Do(func() { firstErr = err })
				t.logger.Error("[IndexWatchedEscrows][Scan]", map[string]string{
					"chain":   watched.Chain.String(),
					"address": watched.Address,
					"error":   err.Error(),
				})
				return nil
			}
			t.logger.Info("[IndexWatchedEscrows] indexed escrow", map[string]string{
				"chain":   watched.Chain.String(),
				"address": watched.Address,
				"events":  strconv.Itoa(len(h.Events)),
				"net":     h.Summary.Net.ToDecimal().String(),
			})
			return nil
		})
	}
	_ = g.Wait()

	if n := failed.Load(); n > 0 {
		return errors.Wrapf(firstErr, "%d of %d escrows failed", n, len(watchlist))
	}
	return nil
}

// PruneSnapshots drops snapshots that were not refreshed within the
// retention period, e.g. escrows removed from the watchlist.
func (t *Telemetry) PruneSnapshots(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	retention := t.appConfig.Scanner.SnapshotRetention
	if retention <= 0 {
		return nil
	}

	db := t.db
	if db != nil {
		db = db.WithContext(ctx)
	}
	cutoff := t.now().Add(-retention)
	deleted, err := t.store.EscrowSnapshot.DeleteScannedBefore(db, cutoff)
	if err != nil {
		t.logger.Error("[PruneSnapshots][DeleteScannedBefore]", map[string]string{
			"error": err.Error(),
		})
		return err
	}
	if deleted > 0 {
		t.logger.Info("[PruneSnapshots] pruned snapshots", map[string]string{
			"deleted": strconv.FormatInt(deleted, 10),
			"cutoff":  cutoff.Format(time.RFC3339),
		})
	}
	return nil
}
