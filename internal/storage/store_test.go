package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oviya-labs/tablequeue-backend/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.WaitlistEntry{}, &models.DiningTable{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

var testSeeds = []models.TableSeed{
	{Number: "T1", Capacity: 2},
	{Number: "T2", Capacity: 4},
	{Number: "T3", Capacity: 6},
}

// runStoreTests exercises the Store contract against an implementation.
func runStoreTests(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("SeedTablesIsIdempotent", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.SeedTables(testSeeds))
		require.NoError(t, store.SeedTables(testSeeds))

		tables, err := store.ListTables()
		require.NoError(t, err)
		assert.Len(t, tables, 3)
	})

	t.Run("EnqueueUpsertsByPhone", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.SeedTables(testSeeds))

		first, err := store.EnqueueParty("+100", "Alice", 2)
		require.NoError(t, err)

		second, err := store.EnqueueParty("+100", "Alicia", 4)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID, "same party keeps one entry")

		waiting, err := store.ListWaiting()
		require.NoError(t, err)
		require.Len(t, waiting, 1)
		assert.Equal(t, "Alicia", waiting[0].Name)
		assert.Equal(t, 4, waiting[0].PartySize)
		assert.False(t, second.EnqueuedAt.Before(first.EnqueuedAt))
	})

	t.Run("ListWaitingIsFCFSOrdered", func(t *testing.T) {
		store := newStore(t)
		for i, phone := range []string{"+1", "+2", "+3"} {
			_, err := store.EnqueueParty(phone, phone, i+1)
			require.NoError(t, err)
			time.Sleep(2 * time.Millisecond)
		}

		waiting, err := store.ListWaiting()
		require.NoError(t, err)
		require.Len(t, waiting, 3)
		for i := 1; i < len(waiting); i++ {
			assert.False(t, waiting[i].EnqueuedAt.Before(waiting[i-1].EnqueuedAt))
		}
		assert.Equal(t, "+1", waiting[0].PhoneNumber)
	})

	t.Run("ListFreeTablesIsCapacityOrdered", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.SeedTables([]models.TableSeed{
			{Number: "T1", Capacity: 6},
			{Number: "T2", Capacity: 2},
			{Number: "T3", Capacity: 4},
		}))

		free, err := store.ListFreeTables()
		require.NoError(t, err)
		require.Len(t, free, 3)
		assert.Equal(t, []int{2, 4, 6}, []int{free[0].Capacity, free[1].Capacity, free[2].Capacity})
	})

	t.Run("ReleaseTableIsIdempotent", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.SeedTables(testSeeds))

		for i := 0; i < 2; i++ {
			found, err := store.ReleaseTable("T1")
			require.NoError(t, err)
			assert.True(t, found)
		}

		found, err := store.ReleaseTable("T99")
		require.NoError(t, err)
		assert.False(t, found)

		tables, err := store.ListTables()
		require.NoError(t, err)
		assert.Len(t, tables, 3, "releasing never creates tables")
	})

	t.Run("SeatPartyMovesEntryOntoTable", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.SeedTables(testSeeds))

		entry, err := store.EnqueueParty("+100", "Alice", 3)
		require.NoError(t, err)
		free, err := store.ListFreeTables()
		require.NoError(t, err)
		var fourTop *models.DiningTable
		for _, table := range free {
			if table.Number == "T2" {
				fourTop = table
			}
		}
		require.NotNil(t, fourTop)

		seating, err := store.SeatParty(entry.ID, fourTop.ID)
		require.NoError(t, err)
		assert.Equal(t, "Alice", seating.Name)
		assert.Equal(t, "T2", seating.TableNumber)
		assert.Equal(t, 1, seating.WastedSeats)
		assert.Equal(t, "+100", seating.PhoneNumber)

		waiting, err := store.ListWaiting()
		require.NoError(t, err)
		assert.Empty(t, waiting)

		tables, err := store.ListTables()
		require.NoError(t, err)
		for _, table := range tables {
			if table.Number == "T2" {
				assert.Equal(t, models.TableStatusOccupied, table.Status)
				require.NotNil(t, table.OccupantEntryID)
				assert.Equal(t, entry.ID, *table.OccupantEntryID)
				assert.NotNil(t, table.StatusChangedAt)
			}
		}
	})

	t.Run("SeatPartyConflicts", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.SeedTables(testSeeds))

		entry, err := store.EnqueueParty("+100", "Alice", 2)
		require.NoError(t, err)
		other, err := store.EnqueueParty("+200", "Bob", 2)
		require.NoError(t, err)

		free, err := store.ListFreeTables()
		require.NoError(t, err)
		table := free[0]

		_, err = store.SeatParty(entry.ID, table.ID)
		require.NoError(t, err)

		// Table already occupied.
		_, err = store.SeatParty(other.ID, table.ID)
		assert.ErrorIs(t, err, ErrSeatConflict)

		// Entry already seated.
		_, err = store.SeatParty(entry.ID, free[1].ID)
		assert.ErrorIs(t, err, ErrSeatConflict)
	})

	t.Run("ReleaseClearsOccupant", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.SeedTables(testSeeds))

		entry, err := store.EnqueueParty("+100", "Alice", 2)
		require.NoError(t, err)
		free, err := store.ListFreeTables()
		require.NoError(t, err)
		_, err = store.SeatParty(entry.ID, free[0].ID)
		require.NoError(t, err)

		found, err := store.ReleaseTable(free[0].Number)
		require.NoError(t, err)
		assert.True(t, found)

		tables, err := store.ListTables()
		require.NoError(t, err)
		for _, table := range tables {
			assert.Equal(t, models.TableStatusFree, table.Status)
			assert.Nil(t, table.OccupantEntryID)
		}
	})

	t.Run("MaxTableCapacity", func(t *testing.T) {
		store := newStore(t)

		max, err := store.MaxTableCapacity()
		require.NoError(t, err)
		assert.Equal(t, 0, max, "no tables seeded yet")

		require.NoError(t, store.SeedTables(testSeeds))
		max, err = store.MaxTableCapacity()
		require.NoError(t, err)
		assert.Equal(t, 6, max)
	})

	t.Run("TableExists", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.SeedTables(testSeeds))

		exists, err := store.TableExists("T2")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = store.TableExists("T42")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("GetWaitlistEntryByPhone", func(t *testing.T) {
		store := newStore(t)
		_, err := store.EnqueueParty("+100", "Alice", 2)
		require.NoError(t, err)

		entry, err := store.GetWaitlistEntryByPhone("+100")
		require.NoError(t, err)
		assert.Equal(t, "Alice", entry.Name)

		_, err = store.GetWaitlistEntryByPhone("+404")
		assert.Error(t, err)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestDatabaseStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		return NewDatabaseStore(openTestDB(t))
	})
}
