package evmrpc

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"

	"github.com/dwarvesf/escrow-history/internal/types/chains"
	"github.com/dwarvesf/escrow-history/internal/utils/config"
	"github.com/dwarvesf/escrow-history/internal/utils/logger"
)

// logClient is the subset of ethclient.Client used by the ledger.
type logClient interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

type EvmRPC struct {
	chain   chains.ID
	client  logClient
	limiter *rate.Limiter
	logger  *logger.Logger
}

func New(chain chains.ID, chainConfig config.ChainConfig, logger *logger.Logger) (*EvmRPC, error) {
	client, err := ethclient.Dial(chainConfig.RPCEndpoint)
	if err != nil {
		return nil, err
	}

	return NewWithClient(chain, client, newLimiter(chainConfig), logger), nil
}

func NewWithClient(chain chains.ID, client logClient, limiter *rate.Limiter, logger *logger.Logger) *EvmRPC {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &EvmRPC{
		chain:   chain,
		client:  client,
		limiter: limiter,
		logger:  logger,
	}
}

func newLimiter(chainConfig config.ChainConfig) *rate.Limiter {
	if chainConfig.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	burst := chainConfig.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(chainConfig.RequestsPerSecond), burst)
}

func (e *EvmRPC) LatestBlock(ctx context.Context) (uint64, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	head, err := e.client.BlockNumber(ctx)
	if err != nil {
		e.logger.Error("[LatestBlock][BlockNumber]", map[string]string{
			"chain": e.chain.String(),
			"error": err.Error(),
		})
		return 0, err
	}
	return head, nil
}

// FilterTransfers always issues eth_getLogs against the node, so SkipIndexer
// is satisfied by construction.
func (e *EvmRPC) FilterTransfers(ctx context.Context, q TransferQuery) ([]RawTransfer, error) {
	if q.ToBlock < q.FromBlock {
		return nil, fmt.Errorf("invalid block range %d-%d", q.FromBlock, q.ToBlock)
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	filter := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(q.FromBlock),
		ToBlock:   new(big.Int).SetUint64(q.ToBlock),
		Addresses: []common.Address{q.Token},
		Topics:    transferTopics(q.Sender, q.Recipient),
	}

	logs, err := e.client.FilterLogs(ctx, filter)
	if err != nil {
		e.logger.Error("[FilterTransfers][FilterLogs]", map[string]string{
			"chain":     e.chain.String(),
			"fromBlock": fmt.Sprintf("%d", q.FromBlock),
			"toBlock":   fmt.Sprintf("%d", q.ToBlock),
			"error":     err.Error(),
		})
		return nil, err
	}

	transfers := make([]RawTransfer, 0, len(logs))
	for _, l := range logs {
		transfer, err := decodeTransfer(l)
		if err != nil {
			e.logger.Warn("[FilterTransfers] skipping log", map[string]string{
				"chain":    e.chain.String(),
				"txHash":   l.TxHash.Hex(),
				"logIndex": fmt.Sprintf("%d", l.Index),
				"error":    err.Error(),
			})
			continue
		}
		transfers = append(transfers, transfer)
	}

	return transfers, nil
}
