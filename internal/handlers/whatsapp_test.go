package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oviya-labs/tablequeue-backend/internal/models"
	"github.com/oviya-labs/tablequeue-backend/internal/services"
	"github.com/oviya-labs/tablequeue-backend/internal/storage"
)

type recordingMessenger struct {
	mu   sync.Mutex
	sent map[string][]string
}

func (m *recordingMessenger) SendWhatsAppMessage(to, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sent == nil {
		m.sent = make(map[string][]string)
	}
	m.sent[to] = append(m.sent[to], message)
	return nil
}

func (m *recordingMessenger) messagesFor(phone string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent[phone]...)
}

func setupApp(t *testing.T) (*fiber.App, *recordingMessenger) {
	t.Helper()
	store := storage.NewMemoryStore()
	require.NoError(t, store.SeedTables([]models.TableSeed{
		{Number: "T1", Capacity: 2},
		{Number: "T2", Capacity: 4},
	}))

	messenger := &recordingMessenger{}
	sessions := services.NewSessionStore(30 * time.Minute)
	engine := services.NewConversationEngine(store, "waiter123")
	allocator := services.NewAllocationEngine(store, messenger)
	whatsappService := services.NewWhatsAppService(sessions, store, engine, allocator)

	handler := NewWhatsAppHandler(whatsappService, messenger)

	app := fiber.New()
	app.Post("/webhook/whatsapp", handler.HandleWebhook)
	app.Post("/test/whatsapp", handler.HandleTestWebhook)
	return app, messenger
}

func postForm(t *testing.T, app *fiber.App, path string, form url.Values) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestHandleWebhook_TextMessage(t *testing.T) {
	app, messenger := setupApp(t)

	resp := postForm(t, app, "/webhook/whatsapp", url.Values{
		"MessageSid": {"SM123"},
		"From":       {"whatsapp:+15550001"},
		"Body":       {"hi"},
		"NumMedia":   {"0"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	msgs := messenger.messagesFor("+15550001")
	require.Len(t, msgs, 1)
	assert.Equal(t, services.MsgNamePeoplePrompt, msgs[0])
}

func TestHandleWebhook_MediaMessageGetsNotice(t *testing.T) {
	app, messenger := setupApp(t)

	resp := postForm(t, app, "/webhook/whatsapp", url.Values{
		"From":      {"whatsapp:+15550002"},
		"Body":      {""},
		"NumMedia":  {"1"},
		"MediaUrl0": {"https://example.com/pic.jpg"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	msgs := messenger.messagesFor("+15550002")
	require.Len(t, msgs, 1)
	assert.Equal(t, services.MsgTextOnly, msgs[0])
}

func TestHandleWebhook_StatusCallbackAcknowledged(t *testing.T) {
	app, messenger := setupApp(t)

	resp := postForm(t, app, "/webhook/whatsapp", url.Values{
		"MessageSid":    {"SM456"},
		"MessageStatus": {"delivered"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, messenger.sent)
}

func TestHandleTestWebhook(t *testing.T) {
	app, _ := setupApp(t)

	body, err := json.Marshal(TestWebhookPayload{From: "+15550003", Message: "hi"})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, "/test/whatsapp", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Success    bool     `json:"success"`
		MessageSid string   `json:"message_sid"`
		Responses  []string `json:"responses"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.MessageSid)
	assert.Equal(t, []string{services.MsgNamePeoplePrompt}, result.Responses)
}

func TestHandleTestWebhook_MissingFrom(t *testing.T) {
	app, _ := setupApp(t)

	req, err := http.NewRequest(http.MethodPost, "/test/whatsapp", strings.NewReader(`{"message":"hi"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
