package escrow

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dwarvesf/escrow-history/internal/evmrpc"
	"github.com/dwarvesf/escrow-history/internal/types/chains"
	"github.com/dwarvesf/escrow-history/internal/types/environments"
	"github.com/dwarvesf/escrow-history/internal/utils/logger"
)

var (
	escrowAddr   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	counterparty = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

// fakeLedger serves a fixed set of transfers and records every query.
type fakeLedger struct {
	mu        sync.Mutex
	head      uint64
	transfers []evmrpc.RawTransfer
	headErr   error
	failOn    func(q evmrpc.TransferQuery) error
	block     bool

	queries     []evmrpc.TransferQuery
	latestCalls int
}

func (f *fakeLedger) LatestBlock(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latestCalls++
	return f.head, f.headErr
}

func (f *fakeLedger) FilterTransfers(ctx context.Context, q evmrpc.TransferQuery) ([]evmrpc.RawTransfer, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	failOn := f.failOn
	block := f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if failOn != nil {
		if err := failOn(q); err != nil {
			return nil, err
		}
	}

	var out []evmrpc.RawTransfer
	for _, t := range f.transfers {
		if t.BlockNumber < q.FromBlock || t.BlockNumber > q.ToBlock {
			continue
		}
		if q.Sender != nil && t.From != *q.Sender {
			continue
		}
		if q.Recipient != nil && t.To != *q.Recipient {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeLedger) recorded() []evmrpc.TransferQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]evmrpc.TransferQuery(nil), f.queries...)
}

func rawTransfer(from, to common.Address, value int64, block uint64, index uint, hash string) evmrpc.RawTransfer {
	return evmrpc.RawTransfer{
		From:        from,
		To:          to,
		Value:       big.NewInt(value),
		TxHash:      common.HexToHash(hash),
		BlockNumber: block,
		LogIndex:    index,
	}
}

func newTestScanner(ledger evmrpc.ILedger, chain chains.ID, opts Options, observer Observer) *Scanner {
	registry := evmrpc.NewRegistry()
	if err := registry.Register(chain, ledger, ""); err != nil {
		panic(err)
	}
	return NewScanner(registry, opts, logger.New(environments.Test), observer)
}
