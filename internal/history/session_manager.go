package history

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/dwarvesf/escrow-history/internal/escrow"
	"github.com/dwarvesf/escrow-history/internal/model"
	"github.com/dwarvesf/escrow-history/internal/types/chains"
	"github.com/dwarvesf/escrow-history/internal/utils/logger"
)

// SessionManager keeps browsing sessions in memory. A session expires after
// ttl without being touched.
type SessionManager struct {
	scanner escrow.HistoryScanner
	policy  escrow.WindowPolicy
	ttl     time.Duration
	cache   *cache.Cache
	logger  *logger.Logger
	metrics MetricsRecorder
}

func NewSessionManager(scanner escrow.HistoryScanner, policy escrow.WindowPolicy, ttl time.Duration, logger *logger.Logger, metrics MetricsRecorder) *SessionManager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SessionManager{
		scanner: scanner,
		policy:  policy,
		ttl:     ttl,
		cache:   cache.New(ttl, 2*ttl),
		logger:  logger,
		metrics: metrics,
	}
}

// Create opens a session and scans its first window. The session is kept
// even when that scan fails so the caller can refresh it.
func (m *SessionManager) Create(ctx context.Context, chain chains.ID, address string) (*SessionView, error) {
	id := uuid.NewString()
	session := escrow.NewSession(m.scanner, m.policy)
	m.cache.Set(id, session, m.ttl)

	start := time.Now()
	_, err := session.Select(ctx, chain, address)
	m.record("create", start, err)
	if err != nil {
		m.logger.Error("[history.Create][Select]", map[string]string{
			"session": id,
			"chain":   chain.String(),
			"error":   err.Error(),
		})
	}
	return m.view(id, session), err
}

func (m *SessionManager) Get(id string) (*SessionView, error) {
	session, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return m.view(id, session), nil
}

func (m *SessionManager) Select(ctx context.Context, id string, chain chains.ID, address string) (*SessionView, error) {
	session, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	_, err = session.Select(ctx, chain, address)
	m.record("select", start, err)
	return m.result(id, session, err)
}

func (m *SessionManager) LoadMore(ctx context.Context, id string) (*SessionView, error) {
	session, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	_, err = session.LoadMore(ctx)
	m.record("load_more", start, err)
	return m.result(id, session, err)
}

func (m *SessionManager) Refresh(ctx context.Context, id string) (*SessionView, error) {
	session, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	_, err = session.Refresh(ctx)
	m.record("refresh", start, err)
	return m.result(id, session, err)
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	return m.cache.ItemCount()
}

func (m *SessionManager) lookup(id string) (*escrow.Session, error) {
	item, ok := m.cache.Get(id)
	if !ok {
		return nil, errors.Wrapf(ErrSessionNotFound, "session %s", id)
	}
	session := item.(*escrow.Session)
	// touching a session keeps it alive
	m.cache.Set(id, session, m.ttl)
	return session, nil
}

func (m *SessionManager) result(id string, session *escrow.Session, err error) (*SessionView, error) {
	if errors.Is(err, escrow.ErrStaleScan) {
		// a newer scan owns the session state
		return m.view(id, session), err
	}
	if err != nil {
		m.logger.Error("[history.SessionManager][Scan]", map[string]string{
			"session": id,
			"error":   err.Error(),
		})
	}
	return m.view(id, session), err
}

func (m *SessionManager) view(id string, session *escrow.Session) *SessionView {
	state := session.State()
	decimals := 0
	if info, err := chains.Lookup(state.Chain); err == nil {
		decimals = int(info.TokenDecimals)
	}
	if state.Events == nil {
		state.Events = []model.TransferEvent{}
	}
	return &SessionView{
		ID:           id,
		SessionState: state,
		Summary:      model.Summarize(state.Events, decimals),
	}
}

func (m *SessionManager) record(op string, start time.Time, err error) {
	if m.metrics == nil {
		return
	}
	status := "success"
	switch {
	case errors.Is(err, escrow.ErrStaleScan):
		status = "stale"
	case err != nil:
		status = "error"
	}
	m.metrics.RecordSessionOperation(op, status, time.Since(start).Seconds())
}
