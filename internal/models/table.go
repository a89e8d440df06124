package models

import "time"

// DiningTable represents a physical table in the restaurant.
// The table set is seeded once at startup and never changes at runtime;
// only Status, OccupantEntryID and StatusChangedAt are mutated.
type DiningTable struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Number   string `json:"number" gorm:"uniqueIndex;not null"` // e.g., "T4"
	Capacity int    `json:"capacity" gorm:"not null"`

	// Status is TableStatusFree or TableStatusOccupied.
	// OccupantEntryID is set if and only if the table is occupied.
	Status          string     `json:"status"`
	OccupantEntryID *uint      `json:"occupant_entry_id,omitempty"`
	StatusChangedAt *time.Time `json:"status_changed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableStatus constants
const (
	TableStatusFree     = "free"
	TableStatusOccupied = "occupied"
)

// TableSeed is one (number, capacity) pair used to bootstrap the table set.
type TableSeed struct {
	Number   string `json:"number"`
	Capacity int    `json:"capacity"`
}

// Seating is the payload produced when a waiting party is assigned a table,
// used to notify the party that their table is ready.
type Seating struct {
	EntryID     uint   `json:"entry_id"`
	PhoneNumber string `json:"phone_number"`
	Name        string `json:"name"`
	TableNumber string `json:"table_number"`
	WastedSeats int    `json:"wasted_seats"`
}
