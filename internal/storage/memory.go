package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oviya-labs/tablequeue-backend/internal/models"
)

// MemoryStore holds all data in memory for local development and tests.
// A single mutex guards both collections so enqueue, release and seat never
// interleave (the allocator depends on that).
type MemoryStore struct {
	mu      sync.Mutex
	entries map[uint]*models.WaitlistEntry
	tables  map[uint]*models.DiningTable

	entryCounter uint
	tableCounter uint
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[uint]*models.WaitlistEntry),
		tables:  make(map[uint]*models.DiningTable),
	}
}

// EnqueueParty adds a party to the waitlist, or refreshes the existing entry
// if this phone number is already waiting.
func (m *MemoryStore) EnqueueParty(phone, name string, partySize int) (*models.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for _, entry := range m.entries {
		if entry.PhoneNumber == phone {
			entry.Name = name
			entry.PartySize = partySize
			entry.EnqueuedAt = now
			entry.UpdatedAt = now
			return entry, nil
		}
	}

	m.entryCounter++
	entry := &models.WaitlistEntry{
		ID:          m.entryCounter,
		PhoneNumber: phone,
		Name:        name,
		PartySize:   partySize,
		EnqueuedAt:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.entries[entry.ID] = entry
	return entry, nil
}

func (m *MemoryStore) GetWaitlistEntryByPhone(phone string) (*models.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, entry := range m.entries {
		if entry.PhoneNumber == phone {
			return entry, nil
		}
	}
	return nil, fmt.Errorf("no waitlist entry for %s", phone)
}

// ListWaiting returns waiting parties oldest-first (FCFS order).
func (m *MemoryStore) ListWaiting() ([]*models.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	waiting := make([]*models.WaitlistEntry, 0, len(m.entries))
	for _, entry := range m.entries {
		waiting = append(waiting, entry)
	}
	sort.Slice(waiting, func(i, j int) bool {
		if waiting[i].EnqueuedAt.Equal(waiting[j].EnqueuedAt) {
			return waiting[i].ID < waiting[j].ID
		}
		return waiting[i].EnqueuedAt.Before(waiting[j].EnqueuedAt)
	})
	return waiting, nil
}

// SeedTables creates any tables that don't exist yet. Seeding is idempotent:
// re-running with the same config never duplicates a table.
func (m *MemoryStore) SeedTables(seeds []models.TableSeed) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := make(map[string]bool, len(m.tables))
	for _, table := range m.tables {
		existing[table.Number] = true
	}

	now := time.Now()
	for _, seed := range seeds {
		if existing[seed.Number] {
			continue
		}
		m.tableCounter++
		m.tables[m.tableCounter] = &models.DiningTable{
			ID:        m.tableCounter,
			Number:    seed.Number,
			Capacity:  seed.Capacity,
			Status:    models.TableStatusFree,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return nil
}

// ReleaseTable marks a table free and clears its occupant. Returns false if
// no table with that number exists. Freeing an already-free table is a no-op.
func (m *MemoryStore) ReleaseTable(number string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, table := range m.tables {
		if table.Number == number {
			now := time.Now()
			table.Status = models.TableStatusFree
			table.OccupantEntryID = nil
			table.StatusChangedAt = &now
			table.UpdatedAt = now
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) TableExists(number string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, table := range m.tables {
		if table.Number == number {
			return true, nil
		}
	}
	return false, nil
}

// ListFreeTables returns free tables smallest capacity first.
func (m *MemoryStore) ListFreeTables() ([]*models.DiningTable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var free []*models.DiningTable
	for _, table := range m.tables {
		if table.Status == models.TableStatusFree {
			free = append(free, table)
		}
	}
	sort.Slice(free, func(i, j int) bool {
		if free[i].Capacity == free[j].Capacity {
			return free[i].ID < free[j].ID
		}
		return free[i].Capacity < free[j].Capacity
	})
	return free, nil
}

func (m *MemoryStore) ListTables() ([]*models.DiningTable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tables := make([]*models.DiningTable, 0, len(m.tables))
	for _, table := range m.tables {
		tables = append(tables, table)
	}
	sort.Slice(tables, func(i, j int) bool {
		return tables[i].ID < tables[j].ID
	})
	return tables, nil
}

func (m *MemoryStore) MaxTableCapacity() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	max := 0
	for _, table := range m.tables {
		if table.Capacity > max {
			max = table.Capacity
		}
	}
	return max, nil
}

// SeatParty atomically marks the table occupied and removes the waitlist
// entry. Fails with ErrSeatConflict if the table is no longer free or the
// entry is gone, so a party or table can never be seated twice.
func (m *MemoryStore) SeatParty(entryID, tableID uint) (*models.Seating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[entryID]
	if !ok {
		return nil, ErrSeatConflict
	}
	table, ok := m.tables[tableID]
	if !ok || table.Status != models.TableStatusFree {
		return nil, ErrSeatConflict
	}

	now := time.Now()
	occupant := entryID
	table.Status = models.TableStatusOccupied
	table.OccupantEntryID = &occupant
	table.StatusChangedAt = &now
	table.UpdatedAt = now
	delete(m.entries, entryID)

	return &models.Seating{
		EntryID:     entry.ID,
		PhoneNumber: entry.PhoneNumber,
		Name:        entry.Name,
		TableNumber: table.Number,
		WastedSeats: table.Capacity - entry.PartySize,
	}, nil
}
