package evmrpc

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// RawTransfer is an ERC-20 Transfer log with its value still unscaled.
type RawTransfer struct {
	From        common.Address
	To          common.Address
	Value       *big.Int
	TxHash      common.Hash
	BlockNumber uint64
	LogIndex    uint
}

// TransferQuery selects Transfer logs of one token contract in the inclusive
// block range [FromBlock, ToBlock]. Sender and Recipient are optional topic
// filters.
type TransferQuery struct {
	Token     common.Address
	FromBlock uint64
	ToBlock   uint64
	Sender    *common.Address
	Recipient *common.Address
	// SkipIndexer forces the logs to come straight from the node, bypassing
	// any cached or indexed copy.
	SkipIndexer bool
}

func (q TransferQuery) Span() uint64 {
	if q.ToBlock < q.FromBlock {
		return 0
	}
	return q.ToBlock - q.FromBlock + 1
}

type ILedger interface {
	LatestBlock(ctx context.Context) (uint64, error)
	FilterTransfers(ctx context.Context, q TransferQuery) ([]RawTransfer, error)
}
