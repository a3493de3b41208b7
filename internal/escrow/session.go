package escrow

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/dwarvesf/escrow-history/internal/model"
	"github.com/dwarvesf/escrow-history/internal/types/chains"
)

// HistoryScanner is the part of *Scanner a Session drives.
type HistoryScanner interface {
	Scan(ctx context.Context, req ScanRequest) ([]model.TransferEvent, error)
}

// SessionState is a point in time copy of a Session.
type SessionState struct {
	Chain         chains.ID             `json:"chain"`
	EscrowAddress string                `json:"escrow_address"`
	Days          int                   `json:"days"`
	CanLoadMore   bool                  `json:"can_load_more"`
	Events        []model.TransferEvent `json:"events"`
	LastError     string                `json:"last_error,omitempty"`
}

// Session tracks the history a caller is looking at for one escrow account.
// Selecting another account invalidates scans still in flight for the
// previous one; their results are dropped with ErrStaleScan.
type Session struct {
	scanner     HistoryScanner
	generations GenerationTracker

	mu      sync.Mutex
	chain   chains.ID
	address string
	window  *ScanWindow
	events  []model.TransferEvent
	lastErr error
}

func NewSession(scanner HistoryScanner, policy WindowPolicy) *Session {
	return &Session{
		scanner: scanner,
		window:  NewScanWindow(policy),
		events:  []model.TransferEvent{},
	}
}

// Select switches the session to another account, resets the window to one
// step and scans it.
func (s *Session) Select(ctx context.Context, chain chains.ID, address string) ([]model.TransferEvent, error) {
	s.mu.Lock()
	s.chain = chain
	s.address = address
	s.window.Reset()
	s.events = []model.TransferEvent{}
	s.lastErr = nil
	s.mu.Unlock()

	return s.run(ctx, nil)
}

// LoadMore extends the window by one step and rescans. When the window is
// already at its maximum the current events are returned unchanged. A failed
// scan shrinks the window back so Days always matches the loaded events.
func (s *Session) LoadMore(ctx context.Context) ([]model.TransferEvent, error) {
	s.mu.Lock()
	loaded := s.window.Days()
	extended := s.window.Extend()
	events := s.events
	s.mu.Unlock()

	if !extended {
		return events, nil
	}
	return s.run(ctx, func() { s.window.shrinkTo(loaded) })
}

// Refresh rescans the current window.
func (s *Session) Refresh(ctx context.Context) ([]model.TransferEvent, error) {
	return s.run(ctx, nil)
}

// run scans the current window. onFailure runs under the lock when the scan
// fails and its generation is still current.
func (s *Session) run(ctx context.Context, onFailure func()) ([]model.TransferEvent, error) {
	gen := s.generations.Next()

	s.mu.Lock()
	req := ScanRequest{
		EscrowAddress: s.address,
		Chain:         s.chain,
		HistoryDays:   s.window.Days(),
	}
	s.mu.Unlock()

	events, err := s.scanner.Scan(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.generations.IsCurrent(gen) {
		return nil, errors.Wrapf(ErrStaleScan, "generation %d", gen)
	}
	if err != nil {
		// the previous history stays visible
		s.lastErr = err
		if onFailure != nil {
			onFailure()
		}
		return s.events, err
	}
	s.events = events
	s.lastErr = nil
	return events, nil
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := SessionState{
		Chain:         s.chain,
		EscrowAddress: s.address,
		Days:          s.window.Days(),
		CanLoadMore:   s.window.CanExtend(),
		Events:        s.events,
	}
	if s.lastErr != nil {
		state.LastError = s.lastErr.Error()
	}
	return state
}
