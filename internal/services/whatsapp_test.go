package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oviya-labs/tablequeue-backend/internal/models"
	"github.com/oviya-labs/tablequeue-backend/internal/storage"
)

func newTestService(t *testing.T, store storage.Store) (*WhatsAppService, *SessionStore, *recordingMessenger) {
	t.Helper()
	sessions := NewSessionStore(30 * time.Minute)
	messenger := newRecordingMessenger()
	engine := NewConversationEngine(store, "waiter123")
	allocator := NewAllocationEngine(store, messenger)
	return NewWhatsAppService(sessions, store, engine, allocator), sessions, messenger
}

func TestProcessMessage_NonTextGetsNotice(t *testing.T) {
	store := seedStore(t, 2)
	service, sessions, _ := newTestService(t, store)

	replies, err := service.ProcessMessage("+100", "media", "")
	require.NoError(t, err)
	assert.Equal(t, []string{MsgTextOnly}, replies)

	// Session untouched by non-text messages.
	assert.Equal(t, StateInitial, sessions.Get("+100").State)
}

func TestProcessMessage_StripsWhatsAppPrefix(t *testing.T) {
	store := seedStore(t, 2)
	service, sessions, _ := newTestService(t, store)

	_, err := service.ProcessMessage("whatsapp:+100", "text", "hi")
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingNamePeople, sessions.Get("+100").State)
}

func TestProcessMessage_RepeatJoinUpdatesEntry(t *testing.T) {
	store := seedStore(t, 6)
	service, _, _ := newTestService(t, store)

	// Occupy the only table so joins stay on the waitlist.
	_, err := store.EnqueueParty("+900", "Blocker", 6)
	require.NoError(t, err)
	NewAllocationEngine(store, nil).Run()

	for _, msg := range []string{"hi", "Alice, 3", "hi", "Alicia, 4"} {
		_, err := service.ProcessMessage("+200", "text", msg)
		require.NoError(t, err)
	}

	waiting, err := store.ListWaiting()
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	assert.Equal(t, "Alicia", waiting[0].Name)
	assert.Equal(t, 4, waiting[0].PartySize)
}

// failingStore wraps a Store and fails every enqueue.
type failingStore struct {
	storage.Store
}

var errDown = errors.New("database unavailable")

func (f *failingStore) EnqueueParty(phone, name string, partySize int) (*models.WaitlistEntry, error) {
	return nil, errDown
}

func TestProcessMessage_StoreFailureKeepsSession(t *testing.T) {
	store := &failingStore{Store: seedStore(t, 4)}
	service, sessions, _ := newTestService(t, store)

	_, err := service.ProcessMessage("+300", "text", "hi")
	require.NoError(t, err)

	replies, err := service.ProcessMessage("+300", "text", "Alice, 3")
	require.NoError(t, err)
	assert.Equal(t, []string{MsgGenericFailure}, replies)

	// The session did not advance, so the user can retry the same step.
	assert.Equal(t, StateAwaitingNamePeople, sessions.Get("+300").State)
}

func TestProcessMessage_FullSeatingScenario(t *testing.T) {
	store := seedStore(t, 2, 4) // T1 seats 2, T2 seats 4
	service, sessions, messenger := newTestService(t, store)

	// Fill the 4-seater so Alice has nowhere to go at first.
	_, err := store.EnqueueParty("+setup", "Setup", 4)
	require.NoError(t, err)
	NewAllocationEngine(store, nil).Run()

	// Customer joins the queue.
	replies, err := service.ProcessMessage("+alice", "text", "hi")
	require.NoError(t, err)
	assert.Equal(t, []string{MsgNamePeoplePrompt}, replies)

	replies, err = service.ProcessMessage("+alice", "text", "Alice, 3")
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "You are in the queue")

	// Only the 2-seater is free; Alice keeps waiting.
	waiting, err := store.ListWaiting()
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	assert.Empty(t, messenger.messagesFor("+alice"))

	// Waiter authenticates and frees the 4-seater.
	_, err = service.ProcessMessage("+waiter", "text", "waiter")
	require.NoError(t, err)
	_, err = service.ProcessMessage("+waiter", "text", "waiter123")
	require.NoError(t, err)
	replies, err = service.ProcessMessage("+waiter", "text", "T2")
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "Table T2 marked as free")

	// The release triggered an allocation pass: Alice got the 4-seater.
	msgs := messenger.messagesFor("+alice")
	require.Len(t, msgs, 1)
	assert.Equal(t, MsgTableReady("Alice", "T2"), msgs[0])

	waiting, err = store.ListWaiting()
	require.NoError(t, err)
	assert.Empty(t, waiting)

	// Both sessions are back to the initial customer state.
	for _, phone := range []string{"+alice", "+waiter"} {
		session := sessions.Get(phone)
		assert.Equal(t, RoleCustomer, session.Role, phone)
		assert.Equal(t, StateInitial, session.State, phone)
	}
}
