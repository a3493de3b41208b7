package store

import (
	"github.com/dwarvesf/escrow-history/internal/store/escrowsnapshot"
)

type Store struct {
	EscrowSnapshot escrowsnapshot.IStore
}

func New() *Store {
	return &Store{
		EscrowSnapshot: escrowsnapshot.New(),
	}
}
