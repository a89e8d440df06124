package services

import (
	"errors"
	"log"
	"sort"
	"sync"

	"github.com/oviya-labs/tablequeue-backend/internal/models"
	"github.com/oviya-labs/tablequeue-backend/internal/storage"
)

// Messenger sends an outbound message to a phone number. Delivery is
// fire-and-forget: a send failure is logged and never rolls back the state
// change that triggered it.
type Messenger interface {
	SendWhatsAppMessage(to, message string) error
}

// AllocationEngine matches waiting parties to free tables. Each pass picks
// the single globally best assignment (fewest wasted seats, earliest arrival
// on ties), commits it, and re-runs against the fresh state until no
// assignment is possible. Committing one match per pass keeps every decision
// based on the current waitlist instead of a stale snapshot.
type AllocationEngine struct {
	store     storage.Store
	messenger Messenger
	mu        sync.Mutex
}

// NewAllocationEngine creates a new allocation engine
func NewAllocationEngine(store storage.Store, messenger Messenger) *AllocationEngine {
	return &AllocationEngine{
		store:     store,
		messenger: messenger,
	}
}

// candidate is the best table for one waiting party within a single pass.
type candidate struct {
	entry       *models.WaitlistEntry
	table       *models.DiningTable
	wastedSeats int
}

// Run repeatedly commits the best available assignment until a full pass
// seats nobody. Returns how many parties were seated. Arrival and release
// handlers can both trigger a run; the mutex keeps passes from interleaving.
func (a *AllocationEngine) Run() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	seated := 0
	for {
		seating, err := a.commitOne()
		if err != nil {
			log.Printf("❌ Allocation pass failed: %v", err)
			break
		}
		if seating == nil {
			break
		}

		seated++
		log.Printf("🪑 Seated %s (party at %s) at table %s, %d seats to spare",
			seating.Name, seating.PhoneNumber, seating.TableNumber, seating.WastedSeats)

		// Notification happens after the commit and outside any store
		// operation; a failed send does not undo the seating.
		if a.messenger != nil {
			msg := MsgTableReady(seating.Name, seating.TableNumber)
			if err := a.messenger.SendWhatsAppMessage(seating.PhoneNumber, msg); err != nil {
				log.Printf("❌ Failed to notify %s about table %s: %v",
					seating.PhoneNumber, seating.TableNumber, err)
			}
		}
	}
	return seated
}

// commitOne executes a single allocation pass: compute every party's best
// table, rank the candidates globally, and seat the first one that still
// holds. Returns nil when no assignment is possible.
func (a *AllocationEngine) commitOne() (*models.Seating, error) {
	waiting, err := a.store.ListWaiting()
	if err != nil {
		return nil, err
	}
	free, err := a.store.ListFreeTables()
	if err != nil {
		return nil, err
	}
	if len(waiting) == 0 || len(free) == 0 {
		return nil, nil
	}

	// free is capacity-ascending, so the first table that fits a party is
	// its minimum-waste table.
	var candidates []candidate
	for _, entry := range waiting {
		for _, table := range free {
			if table.Capacity >= entry.PartySize {
				candidates = append(candidates, candidate{
					entry:       entry,
					table:       table,
					wastedSeats: table.Capacity - entry.PartySize,
				})
				break
			}
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// Least waste wins; earliest arrival breaks ties.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].wastedSeats != candidates[j].wastedSeats {
			return candidates[i].wastedSeats < candidates[j].wastedSeats
		}
		if !candidates[i].entry.EnqueuedAt.Equal(candidates[j].entry.EnqueuedAt) {
			return candidates[i].entry.EnqueuedAt.Before(candidates[j].entry.EnqueuedAt)
		}
		return candidates[i].entry.ID < candidates[j].entry.ID
	})

	for _, c := range candidates {
		seating, err := a.store.SeatParty(c.entry.ID, c.table.ID)
		if err != nil {
			if errors.Is(err, storage.ErrSeatConflict) {
				// Someone grabbed this table or the entry was refreshed
				// between the snapshot and the commit; try the next ranked
				// candidate.
				continue
			}
			return nil, err
		}
		return seating, nil
	}
	return nil, nil
}
