package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/oviya-labs/tablequeue-backend/internal/handlers"
	"github.com/oviya-labs/tablequeue-backend/internal/middleware"
	"github.com/oviya-labs/tablequeue-backend/internal/services"
	"github.com/oviya-labs/tablequeue-backend/internal/storage"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, store storage.Store, whatsappService *services.WhatsAppService, messenger services.Messenger) {
	whatsappHandler := handlers.NewWhatsAppHandler(whatsappService, messenger)
	waitlistHandler := handlers.NewWaitlistHandler(store)

	// API routes for front-of-house monitoring
	api := app.Group("/api")
	api.Get("/waitlist", waitlistHandler.GetWaitlist)
	api.Get("/tables", waitlistHandler.GetTables)

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")

	// WhatsApp webhook - signature validation skipped in development
	if os.Getenv("ENVIRONMENT") == "development" || os.Getenv("DISABLE_WEBHOOK_VALIDATION") == "true" {
		webhooks.Post("/whatsapp", whatsappHandler.HandleWebhook)
		if os.Getenv("ENVIRONMENT") == "development" {
			log.Println("⚠️  WhatsApp webhook validation DISABLED for development")
		}
	} else {
		webhooks.Post("/whatsapp", middleware.ValidateTwilioSignature(), whatsappHandler.HandleWebhook)
	}

	// ========== TEST ROUTES (Development Only) ==========
	app.Post("/test/whatsapp", whatsappHandler.HandleTestWebhook)
}
