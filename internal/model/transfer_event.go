package model

import (
	"github.com/shopspring/decimal"

	"github.com/dwarvesf/escrow-history/internal/types/chains"
)

type Direction string

const (
	In  Direction = "in"
	Out Direction = "out"
)

// TransferEvent is a token transfer touching an escrow account, labelled
// relative to that account.
type TransferEvent struct {
	Chain        chains.ID       `json:"chain"`
	Direction    Direction       `json:"direction"`
	Amount       decimal.Decimal `json:"amount"`
	RawValue     Web3BigInt      `json:"raw_value"`
	From         string          `json:"from"`
	To           string          `json:"to"`
	TxHash       string          `json:"tx_hash"`
	BlockNumber  uint64          `json:"block_number"`
	LogIndex     uint            `json:"log_index"`
	SelfTransfer bool            `json:"self_transfer,omitempty"`
}

// EventKey identifies a single log entry on a chain.
type EventKey struct {
	BlockNumber uint64
	LogIndex    uint
	TxHash      string
}

func (e TransferEvent) Key() EventKey {
	return EventKey{
		BlockNumber: e.BlockNumber,
		LogIndex:    e.LogIndex,
		TxHash:      e.TxHash,
	}
}

// TransferSummary totals a history in raw token units.
type TransferSummary struct {
	TotalIn  Web3BigInt `json:"total_in"`
	TotalOut Web3BigInt `json:"total_out"`
	Net      Web3BigInt `json:"net"`
	Count    int        `json:"count"`
}

func Summarize(events []TransferEvent, decimals int) TransferSummary {
	totalIn := &Web3BigInt{Value: "0", Decimal: decimals}
	totalOut := &Web3BigInt{Value: "0", Decimal: decimals}

	for i := range events {
		ev := events[i]
		// a self transfer leaves the balance unchanged
		if ev.SelfTransfer {
			continue
		}
		switch ev.Direction {
		case In:
			if sum := totalIn.Add(&ev.RawValue); sum != nil {
				totalIn = sum
			}
		case Out:
			if sum := totalOut.Add(&ev.RawValue); sum != nil {
				totalOut = sum
			}
		}
	}

	return TransferSummary{
		TotalIn:  *totalIn,
		TotalOut: *totalOut,
		Net:      *totalIn.Sub(totalOut),
		Count:    len(events),
	}
}
