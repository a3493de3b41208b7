package evmrpc

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
)

// reorgSafetyDepth keeps ranges this close to the head out of the cache.
const reorgSafetyDepth = 64

// CachedLedger memoizes closed, reorg-safe block ranges. Queries with
// SkipIndexer set always go to the wrapped ledger.
type CachedLedger struct {
	wrapped ILedger
	cache   *cache.Cache
	head    atomic.Uint64
	// onLookup is told about every cache lookup. Optional.
	onLookup func(hit bool)
}

func NewCachedLedger(wrapped ILedger, ttl time.Duration) *CachedLedger {
	return &CachedLedger{
		wrapped: wrapped,
		cache:   cache.New(ttl, 2*ttl),
	}
}

// OnLookup registers fn to be called with the outcome of each cache lookup.
// It must be set before the ledger is shared.
func (c *CachedLedger) OnLookup(fn func(hit bool)) *CachedLedger {
	c.onLookup = fn
	return c
}

func (c *CachedLedger) LatestBlock(ctx context.Context) (uint64, error) {
	head, err := c.wrapped.LatestBlock(ctx)
	if err != nil {
		return 0, err
	}
	if head > c.head.Load() {
		c.head.Store(head)
	}
	return head, nil
}

func (c *CachedLedger) FilterTransfers(ctx context.Context, q TransferQuery) ([]RawTransfer, error) {
	if q.SkipIndexer {
		return c.wrapped.FilterTransfers(ctx, q)
	}

	key := cacheKey(q)
	cached, ok := c.cache.Get(key)
	if c.onLookup != nil {
		c.onLookup(ok)
	}
	if ok {
		return cached.([]RawTransfer), nil
	}

	transfers, err := c.wrapped.FilterTransfers(ctx, q)
	if err != nil {
		return nil, err
	}

	if head := c.head.Load(); head >= reorgSafetyDepth && q.ToBlock <= head-reorgSafetyDepth {
		c.cache.SetDefault(key, transfers)
	}
	return transfers, nil
}

func (c *CachedLedger) ItemCount() int {
	return c.cache.ItemCount()
}

func cacheKey(q TransferQuery) string {
	sender, recipient := "*", "*"
	if q.Sender != nil {
		sender = q.Sender.Hex()
	}
	if q.Recipient != nil {
		recipient = q.Recipient.Hex()
	}
	return fmt.Sprintf("%s:%d-%d:%s:%s", q.Token.Hex(), q.FromBlock, q.ToBlock, sender, recipient)
}
