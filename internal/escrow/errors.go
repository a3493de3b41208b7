package escrow

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/dwarvesf/escrow-history/internal/types/chains"
)

var (
	// ErrLedgerQueryFailure matches every *LedgerQueryError via errors.Is.
	ErrLedgerQueryFailure = errors.New("ledger query failure")
	ErrInvalidAddress     = errors.New("invalid escrow address")
	ErrInvalidHistoryDays = errors.New("invalid history days")
	// ErrStaleScan is returned when a newer scan superseded the one that
	// produced the result.
	ErrStaleScan = errors.New("scan superseded by a newer request")
)

// LedgerQueryError aborts a scan. It never carries partial results.
type LedgerQueryError struct {
	Chain     chains.ID
	FromBlock uint64
	ToBlock   uint64
	Err       error
}

func (e *LedgerQueryError) Error() string {
	if e.ToBlock == 0 && e.FromBlock == 0 {
		return fmt.Sprintf("%s: %s: %v", ErrLedgerQueryFailure, e.Chain, e.Err)
	}
	return fmt.Sprintf("%s: %s blocks %d-%d: %v", ErrLedgerQueryFailure, e.Chain, e.FromBlock, e.ToBlock, e.Err)
}

func (e *LedgerQueryError) Unwrap() error {
	return e.Err
}

func (e *LedgerQueryError) Is(target error) bool {
	return target == ErrLedgerQueryFailure
}

// Retryable reports whether the chunk hit its own deadline, as opposed to the
// caller giving up.
func (e *LedgerQueryError) Retryable() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}
