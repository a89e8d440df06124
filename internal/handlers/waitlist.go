package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/oviya-labs/tablequeue-backend/internal/models"
	"github.com/oviya-labs/tablequeue-backend/internal/storage"
)

// WaitlistHandler exposes read-only views of the waitlist and table set for
// front-of-house monitoring.
type WaitlistHandler struct {
	store storage.Store
}

// NewWaitlistHandler creates a new waitlist handler
func NewWaitlistHandler(store storage.Store) *WaitlistHandler {
	return &WaitlistHandler{store: store}
}

// GetWaitlist returns all waiting parties in FCFS order
func (h *WaitlistHandler) GetWaitlist(c *fiber.Ctx) error {
	waiting, err := h.store.ListWaiting()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch waitlist",
		})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"waitlist": waiting,
		"count":    len(waiting),
	})
}

// GetTables returns every table with its current status
func (h *WaitlistHandler) GetTables(c *fiber.Ctx) error {
	tables, err := h.store.ListTables()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch tables",
		})
	}

	free := 0
	for _, table := range tables {
		if table.Status == models.TableStatusFree {
			free++
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"tables":  tables,
		"free":    free,
		"total":   len(tables),
	})
}
