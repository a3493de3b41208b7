package escrow

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dwarvesf/escrow-history/internal/evmrpc"
	"github.com/dwarvesf/escrow-history/internal/model"
	"github.com/dwarvesf/escrow-history/internal/types/chains"
)

func labelTransfers(raw []evmrpc.RawTransfer, direction model.Direction, escrow common.Address, info chains.Info) []model.TransferEvent {
	events := make([]model.TransferEvent, 0, len(raw))
	for _, r := range raw {
		value := model.NewWeb3BigInt(r.Value, int(info.TokenDecimals))
		events = append(events, model.TransferEvent{
			Chain:        info.ID,
			Direction:    direction,
			Amount:       value.ToDecimal(),
			RawValue:     value,
			From:         r.From.Hex(),
			To:           r.To.Hex(),
			TxHash:       r.TxHash.Hex(),
			BlockNumber:  r.BlockNumber,
			LogIndex:     r.LogIndex,
			SelfTransfer: r.From == escrow && r.To == escrow,
		})
	}
	return events
}

// minObservedBlock returns the lowest block across both result sets.
func minObservedBlock(sets ...[]evmrpc.RawTransfer) (uint64, bool) {
	var (
		lowest uint64
		found  bool
	)
	for _, set := range sets {
		for _, r := range set {
			if !found || r.BlockNumber < lowest {
				lowest = r.BlockNumber
				found = true
			}
		}
	}
	return lowest, found
}

// mergeEvents drops repeated (block, log index, tx hash) entries, keeping the
// first occurrence, and orders the rest newest first.
func mergeEvents(events []model.TransferEvent) []model.TransferEvent {
	seen := make(map[model.EventKey]struct{}, len(events))
	merged := make([]model.TransferEvent, 0, len(events))
	for _, ev := range events {
		key := ev.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, ev)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].BlockNumber != merged[j].BlockNumber {
			return merged[i].BlockNumber > merged[j].BlockNumber
		}
		return merged[i].LogIndex > merged[j].LogIndex
	})
	return merged
}
