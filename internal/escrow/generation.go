package escrow

import "sync/atomic"

// GenerationTracker hands out increasing request ids. Only the most recent id
// is current; results tagged with an older id must be dropped.
type GenerationTracker struct {
	current atomic.Uint64
}

func (g *GenerationTracker) Next() uint64 {
	return g.current.Add(1)
}

func (g *GenerationTracker) IsCurrent(gen uint64) bool {
	return g.current.Load() == gen
}
