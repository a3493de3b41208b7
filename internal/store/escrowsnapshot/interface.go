package escrowsnapshot

import (
	"time"

	"gorm.io/gorm"

	"github.com/dwarvesf/escrow-history/internal/model"
)

type IStore interface {
	// Upsert inserts the snapshot or replaces the one stored for the same
	// chain and escrow address.
	Upsert(db *gorm.DB, snapshot *model.EscrowSnapshot) error
	GetByEscrow(db *gorm.DB, chain, escrowAddress string) (*model.EscrowSnapshot, error)
	List(db *gorm.DB, chain string) ([]model.EscrowSnapshot, error)
	DeleteScannedBefore(db *gorm.DB, cutoff time.Time) (int64, error)
}
