package services

import (
	"fmt"
	"log"
	"strings"

	"github.com/oviya-labs/tablequeue-backend/internal/storage"
)

// MessageTypeText is the only inbound message type the engine acts on.
const MessageTypeText = "text"

// WhatsAppService ties the conversation engine, the session store, the
// waitlist/table store and the allocation engine together: one inbound
// message in, ordered replies out, with any resulting enqueue or release
// applied and an allocation run triggered before returning.
type WhatsAppService struct {
	sessions  *SessionStore
	store     storage.Store
	engine    *ConversationEngine
	allocator *AllocationEngine
}

// NewWhatsAppService creates a new WhatsApp service
func NewWhatsAppService(sessions *SessionStore, store storage.Store, engine *ConversationEngine, allocator *AllocationEngine) *WhatsAppService {
	return &WhatsAppService{
		sessions:  sessions,
		store:     store,
		engine:    engine,
		allocator: allocator,
	}
}

// ProcessMessage handles one inbound message and returns the replies for the
// sender, in order. The stored session only advances when every command the
// transition produced has been applied; on a store failure the session stays
// where it was so the user can retry the same step.
func (w *WhatsAppService) ProcessMessage(from, messageType, body string) ([]string, error) {
	phone := strings.TrimPrefix(from, "whatsapp:")

	if messageType != MessageTypeText {
		log.Printf("📎 Non-text message (%s) from %s", messageType, phone)
		return []string{MsgTextOnly}, nil
	}

	log.Printf("📱 Processing message from %s: %s", phone, body)

	session := w.sessions.Get(phone)
	transition, err := w.engine.Evaluate(session, body)
	if err != nil {
		log.Printf("❌ Conversation step failed for %s: %v", phone, err)
		return []string{MsgGenericFailure}, nil
	}

	applied := 0
	for _, command := range transition.Commands {
		if err := w.applyCommand(phone, command); err != nil {
			log.Printf("❌ Failed to apply %T for %s: %v", command, phone, err)
			return []string{MsgGenericFailure}, nil
		}
		applied++
	}

	w.sessions.Put(phone, transition.Session)

	// Enqueues and releases both change what the allocator can do; run it to
	// completion before acknowledging the webhook.
	if applied > 0 {
		w.allocator.Run()
	}

	return transition.Replies, nil
}

func (w *WhatsAppService) applyCommand(phone string, command Command) error {
	switch c := command.(type) {
	case EnqueueParty:
		entry, err := w.store.EnqueueParty(phone, c.Name, c.PartySize)
		if err != nil {
			return err
		}
		log.Printf("📋 %s joined the waitlist as entry %d (party of %d)",
			c.Name, entry.ID, c.PartySize)
		return nil
	case FreeTable:
		found, err := w.store.ReleaseTable(c.Number)
		if err != nil {
			return err
		}
		if !found {
			// The engine verified the table before emitting the command and
			// the table set is static, so this only fires if the two stores
			// disagree.
			return fmt.Errorf("table %s disappeared between lookup and release", c.Number)
		}
		log.Printf("🟢 Table %s released", c.Number)
		return nil
	default:
		return fmt.Errorf("unknown command %T", command)
	}
}
