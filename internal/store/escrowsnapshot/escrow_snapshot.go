package escrowsnapshot

import (
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dwarvesf/escrow-history/internal/model"
)

type store struct{}

func New() IStore {
	return &store{}
}

// Addresses are stored lower-cased so checksummed and plain hex inputs share
// one row.
func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func (s *store) Upsert(db *gorm.DB, snapshot *model.EscrowSnapshot) error {
	snapshot.EscrowAddress = normalizeAddress(snapshot.EscrowAddress)
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chain"}, {Name: "escrow_address"}},
		DoUpdates: clause.AssignmentColumns([]string{"history_days", "events", "scanned_at", "updated_at"}),
	}).Create(snapshot).Error
}

func (s *store) GetByEscrow(db *gorm.DB, chain, escrowAddress string) (*model.EscrowSnapshot, error) {
	var snapshot model.EscrowSnapshot
	err := db.Where("chain = ? AND escrow_address = ?", chain, normalizeAddress(escrowAddress)).
		First(&snapshot).Error
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *store) List(db *gorm.DB, chain string) ([]model.EscrowSnapshot, error) {
	var snapshots []model.EscrowSnapshot
	query := db.Order("scanned_at DESC")
	if chain != "" {
		query = query.Where("chain = ?", chain)
	}
	return snapshots, query.Find(&snapshots).Error
}

func (s *store) DeleteScannedBefore(db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.Where("scanned_at < ?", cutoff).Delete(&model.EscrowSnapshot{})
	return result.RowsAffected, result.Error
}
