package storage

import (
	"errors"

	"github.com/oviya-labs/tablequeue-backend/internal/models"
)

var storeInstance Store

// SetStore sets the global store instance (call from main.go)
func SetStore(s Store) {
	storeInstance = s
}

// GetStore returns the global store instance
func GetStore() Store {
	return storeInstance
}

// ErrSeatConflict is returned by SeatParty when the table is no longer free
// or the waitlist entry has already been seated or removed.
var ErrSeatConflict = errors.New("table or entry no longer available")

// Store defines the interface for storage operations.
// Implementations serialize all mutating operations behind a single lock:
// the allocation engine relies on ListWaiting/ListFreeTables snapshots being
// consistent and on SeatParty committing atomically.
type Store interface {
	// Waitlist operations
	EnqueueParty(phone, name string, partySize int) (*models.WaitlistEntry, error)
	GetWaitlistEntryByPhone(phone string) (*models.WaitlistEntry, error)
	ListWaiting() ([]*models.WaitlistEntry, error)

	// Table operations
	SeedTables(seeds []models.TableSeed) error
	ReleaseTable(number string) (bool, error)
	TableExists(number string) (bool, error)
	ListFreeTables() ([]*models.DiningTable, error)
	ListTables() ([]*models.DiningTable, error)
	MaxTableCapacity() (int, error)

	// Seating
	SeatParty(entryID, tableID uint) (*models.Seating, error)
}
