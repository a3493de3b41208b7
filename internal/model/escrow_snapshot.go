package model

import (
	"time"

	"gorm.io/datatypes"
)

// EscrowSnapshot is the last successfully scanned history of one escrow.
type EscrowSnapshot struct {
	ID            int                                 `gorm:"primaryKey" json:"id"`
	Chain         string                              `gorm:"column:chain;type:varchar(32);not null;uniqueIndex:idx_escrow_snapshot_chain_address" json:"chain"`
	EscrowAddress string                              `gorm:"column:escrow_address;type:varchar(64);not null;uniqueIndex:idx_escrow_snapshot_chain_address" json:"escrow_address"`
	HistoryDays   int                                 `gorm:"column:history_days;not null" json:"history_days"`
	Events        datatypes.JSONType[[]TransferEvent] `gorm:"column:events;type:jsonb;not null" json:"events"`
	ScannedAt     time.Time                           `gorm:"column:scanned_at;not null" json:"scanned_at"`
	CreatedAt     time.Time                           `json:"created_at"`
	UpdatedAt     time.Time                           `json:"updated_at"`
}

func (EscrowSnapshot) TableName() string {
	return "escrow_snapshots"
}
