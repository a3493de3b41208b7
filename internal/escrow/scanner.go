package escrow

import (
	"context"
	"math/bits"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/dwarvesf/escrow-history/internal/evmrpc"
	"github.com/dwarvesf/escrow-history/internal/model"
	"github.com/dwarvesf/escrow-history/internal/types/chains"
	"github.com/dwarvesf/escrow-history/internal/utils/logger"
)

const (
	// ProviderBlockRangeLimit is the widest eth_getLogs range RPC providers
	// accept. It is enforced server side.
	ProviderBlockRangeLimit uint64 = 1000
	// DefaultMaxBlockRange is the widest range a single sub-query may span.
	// It must stay below ProviderBlockRangeLimit.
	DefaultMaxBlockRange uint64 = 900
	DefaultChunkTimeout         = 20 * time.Second
)

// EmptyChunkPolicy decides what a chunk without any transfer means.
type EmptyChunkPolicy int

const (
	// StopOnEmptyChunk treats an empty chunk as the start of the account's
	// history and ends the scan.
	StopOnEmptyChunk EmptyChunkPolicy = iota
	// WalkFullWindow steps past empty chunks and only stops at genesis or
	// when the requested window is exhausted.
	WalkFullWindow
)

type StopReason string

const (
	StopWindowExhausted StopReason = "window_exhausted"
	StopEmptyChunk      StopReason = "empty_chunk"
	StopGenesis         StopReason = "genesis"
	StopEmptyRequest    StopReason = "empty_request"
)

type ScanRequest struct {
	EscrowAddress string
	Chain         chains.ID
	HistoryDays   int
}

type ScanStats struct {
	Head        uint64        `json:"head"`
	LowestBlock uint64        `json:"lowest_block"`
	Chunks      int           `json:"chunks"`
	StopReason  StopReason    `json:"stop_reason"`
	Duration    time.Duration `json:"duration"`
}

type ScanResult struct {
	Events []model.TransferEvent `json:"events"`
	Stats  ScanStats             `json:"stats"`
}

type Options struct {
	MaxBlockRange    uint64
	ChunkTimeout     time.Duration
	EmptyChunkPolicy EmptyChunkPolicy
	// SkipIndexer is passed on every sub-query. Leave it on unless stale
	// ranges are acceptable.
	SkipIndexer bool
}

var DefaultOptions = Options{
	MaxBlockRange:    DefaultMaxBlockRange,
	ChunkTimeout:     DefaultChunkTimeout,
	EmptyChunkPolicy: StopOnEmptyChunk,
	SkipIndexer:      true,
}

// Resolver returns the ledger and token contract of a chain.
type Resolver interface {
	Resolve(id chains.ID) (evmrpc.Binding, error)
}

// Observer receives one call per finished scan.
type Observer interface {
	ObserveScan(chain chains.ID, err error, stats ScanStats)
}

type Scanner struct {
	resolver Resolver
	opts     Options
	logger   *logger.Logger
	observer Observer
}

func NewScanner(resolver Resolver, opts Options, logger *logger.Logger, observer Observer) *Scanner {
	if opts.MaxBlockRange == 0 || opts.MaxBlockRange >= ProviderBlockRangeLimit {
		opts.MaxBlockRange = DefaultMaxBlockRange
	}
	return &Scanner{
		resolver: resolver,
		opts:     opts,
		logger:   logger,
		observer: observer,
	}
}

func (s *Scanner) MaxBlockRange() uint64 {
	return s.opts.MaxBlockRange
}

// Scan reconstructs the transfers touching an escrow account over the last
// HistoryDays, newest first. Callers are expected to bound HistoryDays (see
// ScanWindow); the scanner itself accepts any depth.
func (s *Scanner) Scan(ctx context.Context, req ScanRequest) ([]model.TransferEvent, error) {
	result, err := s.ScanWithStats(ctx, req)
	if err != nil {
		return nil, err
	}
	return result.Events, nil
}

func (s *Scanner) ScanWithStats(ctx context.Context, req ScanRequest) (ScanResult, error) {
	start := time.Now()
	result, err := s.scan(ctx, req)
	result.Stats.Duration = time.Since(start)

	if s.observer != nil && result.Stats.StopReason != StopEmptyRequest {
		s.observer.ObserveScan(req.Chain, err, result.Stats)
	}
	if err != nil {
		return ScanResult{}, err
	}
	return result, nil
}

func (s *Scanner) scan(ctx context.Context, req ScanRequest) (ScanResult, error) {
	empty := ScanResult{
		Events: []model.TransferEvent{},
		Stats:  ScanStats{StopReason: StopEmptyRequest},
	}

	address := strings.TrimSpace(req.EscrowAddress)
	if address == "" {
		return empty, nil
	}
	if !common.IsHexAddress(address) {
		return ScanResult{}, errors.Wrapf(ErrInvalidAddress, "%q", address)
	}
	if req.HistoryDays < 0 {
		return ScanResult{}, errors.Wrapf(ErrInvalidHistoryDays, "%d is negative", req.HistoryDays)
	}

	binding, err := s.resolver.Resolve(req.Chain)
	if err != nil {
		return ScanResult{}, err
	}

	hi, totalBlockRange := bits.Mul64(binding.Chain.BlocksPerDay, uint64(req.HistoryDays))
	if hi != 0 {
		return ScanResult{}, errors.Wrapf(ErrInvalidHistoryDays, "%d days overflow the block range on %s", req.HistoryDays, req.Chain)
	}
	if totalBlockRange == 0 {
		return empty, nil
	}

	escrowAddr := common.HexToAddress(address)
	log := s.logger.With(map[string]string{
		"chain":  req.Chain.String(),
		"escrow": escrowAddr.Hex(),
	})

	head, err := s.latestBlock(ctx, binding)
	if err != nil {
		log.Error("[Scan][LatestBlock]", map[string]string{"error": err.Error()})
		return ScanResult{}, err
	}

	var (
		stats     = ScanStats{Head: head, LowestBlock: head, StopReason: StopWindowExhausted}
		collected []model.TransferEvent
		upper     = head
		remaining = totalBlockRange
	)

	for remaining > 0 {
		chunk := min(remaining, s.opts.MaxBlockRange)
		from := uint64(0)
		if upper+1 > chunk {
			from = upper + 1 - chunk
		}

		in, out, err := s.fetchChunk(ctx, binding, escrowAddr, from, upper)
		if err != nil {
			log.Error("[Scan][fetchChunk]", map[string]string{
				"fromBlock": formatUint(from),
				"toBlock":   formatUint(upper),
				"error":     err.Error(),
			})
			return ScanResult{}, err
		}
		stats.Chunks++
		stats.LowestBlock = from

		collected = append(collected, labelTransfers(in, model.In, escrowAddr, binding.Chain)...)
		collected = append(collected, labelTransfers(out, model.Out, escrowAddr, binding.Chain)...)

		lowest, found := minObservedBlock(in, out)
		if !found {
			if s.opts.EmptyChunkPolicy == StopOnEmptyChunk {
				stats.StopReason = StopEmptyChunk
				break
			}
			if from == 0 {
				stats.StopReason = StopGenesis
				break
			}
			upper = from - 1
			remaining -= chunk
			if upper == 0 {
				stats.StopReason = StopGenesis
				break
			}
			continue
		}

		if lowest == 0 {
			stats.StopReason = StopGenesis
			break
		}
		upper = lowest - 1
		remaining -= chunk
		if upper == 0 {
			stats.StopReason = StopGenesis
			break
		}
	}

	events := mergeEvents(collected)
	log.Debug("[Scan] done", map[string]string{
		"days":   formatUint(uint64(req.HistoryDays)),
		"chunks": formatUint(uint64(stats.Chunks)),
		"events": formatUint(uint64(len(events))),
		"stop":   string(stats.StopReason),
	})

	return ScanResult{Events: events, Stats: stats}, nil
}

func (s *Scanner) latestBlock(ctx context.Context, binding evmrpc.Binding) (uint64, error) {
	ctx, cancel := s.chunkContext(ctx)
	defer cancel()

	head, err := binding.Ledger.LatestBlock(ctx)
	if err != nil {
		return 0, &LedgerQueryError{Chain: binding.Chain.ID, Err: errors.Wrap(err, "latest block")}
	}
	return head, nil
}

// fetchChunk issues the recipient and sender filtered queries for one range
// concurrently. Either failing fails the whole chunk.
func (s *Scanner) fetchChunk(ctx context.Context, binding evmrpc.Binding, escrowAddr common.Address, from, to uint64) (in, out []evmrpc.RawTransfer, err error) {
	ctx, cancel := s.chunkContext(ctx)
	defer cancel()

	base := evmrpc.TransferQuery{
		Token:       binding.Token,
		FromBlock:   from,
		ToBlock:     to,
		SkipIndexer: s.opts.SkipIndexer,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q := base
		q.Recipient = &escrowAddr
		res, err := binding.Ledger.FilterTransfers(gctx, q)
		if err != nil {
			return errors.Wrap(err, "recipient filtered query")
		}
		in = res
		return nil
	})
	g.Go(func() error {
		q := base
		q.Sender = &escrowAddr
		res, err := binding.Ledger.FilterTransfers(gctx, q)
		if err != nil {
			return errors.Wrap(err, "sender filtered query")
		}
		out = res
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, &LedgerQueryError{
			Chain:     binding.Chain.ID,
			FromBlock: from,
			ToBlock:   to,
			Err:       err,
		}
	}
	return in, out, nil
}

func (s *Scanner) chunkContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.ChunkTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.ChunkTimeout)
}
