package handlers

import (
	"log"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/oviya-labs/tablequeue-backend/internal/services"
)

// WhatsAppHandler handles WhatsApp webhook requests
type WhatsAppHandler struct {
	whatsappService *services.WhatsAppService
	messenger       services.Messenger
}

// NewWhatsAppHandler creates a new WhatsApp handler. The messenger may be
// nil in development, in which case replies are logged instead of sent.
func NewWhatsAppHandler(whatsappService *services.WhatsAppService, messenger services.Messenger) *WhatsAppHandler {
	return &WhatsAppHandler{
		whatsappService: whatsappService,
		messenger:       messenger,
	}
}

// TwilioWebhookPayload represents an incoming WhatsApp message from Twilio
type TwilioWebhookPayload struct {
	MessageSid          string `form:"MessageSid"`
	AccountSid          string `form:"AccountSid"`
	MessagingServiceSid string `form:"MessagingServiceSid"`
	From                string `form:"From"` // WhatsApp number (whatsapp:+919876543210)
	To                  string `form:"To"`   // Your Twilio number
	Body                string `form:"Body"` // Message text
	NumMedia            string `form:"NumMedia"`
	MediaUrl0           string `form:"MediaUrl0"`
	MediaContentType0   string `form:"MediaContentType0"`
}

// HandleWebhook processes incoming WhatsApp messages
func (h *WhatsAppHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload TwilioWebhookPayload

	if err := c.BodyParser(&payload); err != nil {
		log.Printf("Error parsing webhook: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	// Status callbacks carry no sender; acknowledge and move on.
	if payload.From == "" {
		return c.SendStatus(fiber.StatusOK)
	}

	// Remove the 'whatsapp:' prefix if present
	from := strings.TrimPrefix(payload.From, "whatsapp:")

	messageType := services.MessageTypeText
	if numMedia, err := strconv.Atoi(payload.NumMedia); err == nil && numMedia > 0 {
		messageType = "media"
	}
	if messageType == services.MessageTypeText && payload.Body == "" {
		// Empty text body without media is a delivery receipt.
		return c.SendStatus(fiber.StatusOK)
	}

	replies, err := h.whatsappService.ProcessMessage(from, messageType, payload.Body)
	if err != nil {
		log.Printf("Error processing message: %v", err)
		replies = []string{services.MsgGenericFailure}
	}

	h.sendReplies(from, replies)

	// Acknowledge webhook receipt
	return c.SendStatus(fiber.StatusOK)
}

func (h *WhatsAppHandler) sendReplies(to string, replies []string) {
	for _, reply := range replies {
		if h.messenger == nil {
			log.Printf("📤 Reply (not sent - Twilio not configured): %s", reply)
			continue
		}
		if err := h.messenger.SendWhatsAppMessage(to, reply); err != nil {
			log.Printf("❌ Failed to send WhatsApp reply to %s: %v", to, err)
		}
	}
}

// TestWebhookPayload is the JSON body for the development test endpoint.
type TestWebhookPayload struct {
	From    string `json:"from"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// HandleTestWebhook processes test WhatsApp messages (for development)
func (h *WhatsAppHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload

	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}
	if payload.From == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "from is required",
		})
	}

	messageType := payload.Type
	if messageType == "" {
		messageType = services.MessageTypeText
	}

	sid := uuid.NewString()
	log.Printf("🧪 Test webhook %s from %s: %s", sid, payload.From, payload.Message)

	replies, err := h.whatsappService.ProcessMessage(payload.From, messageType, payload.Message)
	if err != nil {
		log.Printf("Error processing test message: %v", err)
		replies = []string{services.MsgGenericFailure}
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"message_sid": sid,
		"responses":   replies,
	})
}
