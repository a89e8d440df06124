package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/oviya-labs/tablequeue-backend/internal/models"
)

// DatabaseStore persists the waitlist and table set with GORM.
// The mutex serializes mutating operations so an allocation pass never
// observes a half-applied seat or release from a concurrent handler.
type DatabaseStore struct {
	db *gorm.DB
	mu sync.Mutex
}

// NewDatabaseStore creates a store backed by the given GORM connection
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (s *DatabaseStore) EnqueueParty(phone, name string, partySize int) (*models.WaitlistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var entry models.WaitlistEntry
	err := s.db.Where("phone_number = ?", phone).First(&entry).Error
	switch {
	case err == nil:
		entry.Name = name
		entry.PartySize = partySize
		entry.EnqueuedAt = now
		if err := s.db.Save(&entry).Error; err != nil {
			return nil, fmt.Errorf("update waitlist entry: %w", err)
		}
		return &entry, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		entry = models.WaitlistEntry{
			PhoneNumber: phone,
			Name:        name,
			PartySize:   partySize,
			EnqueuedAt:  now,
		}
		if err := s.db.Create(&entry).Error; err != nil {
			return nil, fmt.Errorf("create waitlist entry: %w", err)
		}
		return &entry, nil
	default:
		return nil, fmt.Errorf("lookup waitlist entry: %w", err)
	}
}

func (s *DatabaseStore) GetWaitlistEntryByPhone(phone string) (*models.WaitlistEntry, error) {
	var entry models.WaitlistEntry
	if err := s.db.Where("phone_number = ?", phone).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *DatabaseStore) ListWaiting() ([]*models.WaitlistEntry, error) {
	var waiting []*models.WaitlistEntry
	if err := s.db.Order("enqueued_at ASC, id ASC").Find(&waiting).Error; err != nil {
		return nil, fmt.Errorf("list waiting parties: %w", err)
	}
	return waiting, nil
}

func (s *DatabaseStore) SeedTables(seeds []models.TableSeed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, seed := range seeds {
		table := models.DiningTable{
			Number:   seed.Number,
			Capacity: seed.Capacity,
			Status:   models.TableStatusFree,
		}
		err := s.db.Where("number = ?", seed.Number).
			FirstOrCreate(&table).Error
		if err != nil {
			return fmt.Errorf("seed table %s: %w", seed.Number, err)
		}
	}
	return nil
}

func (s *DatabaseStore) ReleaseTable(number string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	result := s.db.Model(&models.DiningTable{}).
		Where("number = ?", number).
		Updates(map[string]interface{}{
			"status":            models.TableStatusFree,
			"occupant_entry_id": nil,
			"status_changed_at": now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("release table %s: %w", number, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *DatabaseStore) TableExists(number string) (bool, error) {
	var count int64
	err := s.db.Model(&models.DiningTable{}).
		Where("number = ?", number).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("lookup table %s: %w", number, err)
	}
	return count > 0, nil
}

func (s *DatabaseStore) ListFreeTables() ([]*models.DiningTable, error) {
	var free []*models.DiningTable
	err := s.db.Where("status = ?", models.TableStatusFree).
		Order("capacity ASC, id ASC").
		Find(&free).Error
	if err != nil {
		return nil, fmt.Errorf("list free tables: %w", err)
	}
	return free, nil
}

func (s *DatabaseStore) ListTables() ([]*models.DiningTable, error) {
	var tables []*models.DiningTable
	if err := s.db.Order("id ASC").Find(&tables).Error; err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return tables, nil
}

func (s *DatabaseStore) MaxTableCapacity() (int, error) {
	row := s.db.Model(&models.DiningTable{}).
		Select("COALESCE(MAX(capacity), 0)").
		Row()
	var max int
	if err := row.Scan(&max); err != nil {
		return 0, fmt.Errorf("max table capacity: %w", err)
	}
	return max, nil
}

// SeatParty marks the table occupied and removes the waitlist entry in one
// transaction. Returns ErrSeatConflict if the table was taken or the entry
// was already seated in the meantime.
func (s *DatabaseStore) SeatParty(entryID, tableID uint) (*models.Seating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var seating *models.Seating
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var entry models.WaitlistEntry
		if err := tx.First(&entry, entryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSeatConflict
			}
			return err
		}

		var table models.DiningTable
		if err := tx.First(&table, tableID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSeatConflict
			}
			return err
		}
		if table.Status != models.TableStatusFree {
			return ErrSeatConflict
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":            models.TableStatusOccupied,
			"occupant_entry_id": entry.ID,
			"status_changed_at": now,
		}
		if err := tx.Model(&table).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Delete(&entry).Error; err != nil {
			return err
		}

		seating = &models.Seating{
			EntryID:     entry.ID,
			PhoneNumber: entry.PhoneNumber,
			Name:        entry.Name,
			TableNumber: table.Number,
			WastedSeats: table.Capacity - entry.PartySize,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSeatConflict) {
			return nil, ErrSeatConflict
		}
		return nil, fmt.Errorf("seat party %d at table %d: %w", entryID, tableID, err)
	}
	return seating, nil
}
