package models

import "time"

// WaitlistEntry represents a party waiting for a table.
// A phone number has at most one live entry: joining again updates the
// existing entry instead of adding a second one.
type WaitlistEntry struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	PhoneNumber string    `json:"phone_number" gorm:"uniqueIndex;not null"`
	Name        string    `json:"name"`
	PartySize   int       `json:"party_size"`
	EnqueuedAt  time.Time `json:"enqueued_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
