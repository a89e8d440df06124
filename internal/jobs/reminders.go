package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/oviya-labs/tablequeue-backend/internal/services"
	"github.com/oviya-labs/tablequeue-backend/internal/storage"
)

// WaitReminderJob periodically messages parties that have been waiting a
// while with their queue position, and re-runs the allocation engine as a
// safety net in case a trigger was missed.
type WaitReminderJob struct {
	store     storage.Store
	messenger services.Messenger
	allocator *services.AllocationEngine

	interval  time.Duration
	isRunning bool
	stopCh    chan struct{}
}

// NewWaitReminderJob creates a new wait reminder job
func NewWaitReminderJob(store storage.Store, messenger services.Messenger, allocator *services.AllocationEngine, interval time.Duration) *WaitReminderJob {
	return &WaitReminderJob{
		store:     store,
		messenger: messenger,
		allocator: allocator,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the reminder loop
func (j *WaitReminderJob) Start() {
	if j.isRunning {
		log.Println("Wait reminder job already running")
		return
	}

	j.isRunning = true
	log.Printf("Starting wait reminder job (every %v)...", j.interval)

	go j.run()
}

// Stop halts the reminder loop
func (j *WaitReminderJob) Stop() {
	if !j.isRunning {
		return
	}
	j.isRunning = false
	close(j.stopCh)
	log.Println("Stopping wait reminder job...")
}

func (j *WaitReminderJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopCh:
			return
		case <-ticker.C:
			j.remindWaitingParties()
			j.allocator.Run()
		}
	}
}

// remindWaitingParties sends a queue-position update to every party that has
// been waiting longer than one reminder interval.
func (j *WaitReminderJob) remindWaitingParties() {
	waiting, err := j.store.ListWaiting()
	if err != nil {
		log.Printf("Error fetching waitlist for reminders: %v", err)
		return
	}

	cutoff := time.Now().Add(-j.interval)
	for position, entry := range waiting {
		if entry.EnqueuedAt.After(cutoff) {
			continue
		}

		msg := fmt.Sprintf("Hi %s, you are number %d in the queue. We will message you as soon as a table is ready.",
			entry.Name, position+1)
		if j.messenger == nil {
			log.Printf("📤 Reminder (not sent - Twilio not configured): %s", msg)
			continue
		}
		if err := j.messenger.SendWhatsAppMessage(entry.PhoneNumber, msg); err != nil {
			log.Printf("Failed to send wait reminder to %s: %v", entry.PhoneNumber, err)
		}
	}
}
