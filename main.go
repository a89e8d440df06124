package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/oviya-labs/tablequeue-backend/database"
	"github.com/oviya-labs/tablequeue-backend/internal/jobs"
	"github.com/oviya-labs/tablequeue-backend/internal/models"
	"github.com/oviya-labs/tablequeue-backend/internal/routes"
	"github.com/oviya-labs/tablequeue-backend/internal/services"
	"github.com/oviya-labs/tablequeue-backend/internal/storage"
)

// defaultTableSeeds matches the house layout: four 2-seaters, four
// 4-seaters, two 6-seaters. Override with the TABLES env var
// ("T1:2,T5:4,...").
var defaultTableSeeds = []models.TableSeed{
	{Number: "T1", Capacity: 2}, {Number: "T2", Capacity: 2},
	{Number: "T3", Capacity: 2}, {Number: "T4", Capacity: 2},
	{Number: "T5", Capacity: 4}, {Number: "T6", Capacity: 4},
	{Number: "T7", Capacity: 4}, {Number: "T8", Capacity: 4},
	{Number: "T9", Capacity: 6}, {Number: "T10", Capacity: 6},
}

func main() {
	// Load .env file for local development
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found - checking environment variables")
	}

	// Initialize storage
	var store storage.Store

	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		log.Println("📦 Connecting to database...")
		database.Connect()

		log.Println("🔄 Running database migrations...")
		err := database.DB.AutoMigrate(
			&models.WaitlistEntry{},
			&models.DiningTable{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
	}
	storage.SetStore(store)

	// Seed the table set (idempotent: re-running never duplicates a table)
	seeds := tableSeedsFromEnv()
	if err := store.SeedTables(seeds); err != nil {
		log.Fatal("Failed to seed tables:", err)
	}
	log.Printf("🪑 Table set ready (%d tables)", len(seeds))

	// Initialize Twilio service
	var messenger services.Messenger
	twilioService, err := services.NewTwilioService()
	if err != nil {
		log.Printf("⚠️  Twilio not configured - replies will be logged only: %v", err)
	} else {
		messenger = twilioService
		log.Println("✅ Twilio service initialized")
	}

	// Initialize core services
	sessionStore := services.NewSessionStore(envMinutes("SESSION_TTL_MINUTES", 30))
	waiterPassword := os.Getenv("WAITER_PASSWORD")
	if waiterPassword == "" {
		waiterPassword = "waiter123"
		log.Println("⚠️  WAITER_PASSWORD not set - using default")
	}
	engine := services.NewConversationEngine(store, waiterPassword)
	allocator := services.NewAllocationEngine(store, messenger)
	whatsappService := services.NewWhatsAppService(sessionStore, store, engine, allocator)

	// Catch up on any seatings possible from persisted state
	if seated := allocator.Run(); seated > 0 {
		log.Printf("🪑 Seated %d waiting parties on startup", seated)
	}

	// Start the wait reminder job
	reminderJob := jobs.NewWaitReminderJob(store, messenger, allocator, envMinutes("WAIT_REMINDER_MINUTES", 10))
	reminderJob.Start()

	log.Println("✅ All services initialized")

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "TableQueue Backend v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Status endpoint with store and session counts
	app.Get("/", func(c *fiber.Ctx) error {
		response := fiber.Map{
			"service":  "TableQueue Backend API",
			"version":  "1.0.0",
			"status":   "healthy",
			"storage":  getStorageType(),
			"sessions": sessionStore.ActiveCount(),
			"whatsapp": messenger != nil,
		}

		if waiting, err := store.ListWaiting(); err == nil {
			response["waiting_parties"] = len(waiting)
		}
		if tables, err := store.ListTables(); err == nil {
			freeCount := 0
			for _, t := range tables {
				if t.Status == models.TableStatusFree {
					freeCount++
				}
			}
			response["tables"] = fiber.Map{
				"total": len(tables),
				"free":  freeCount,
			}
		}

		return c.JSON(response)
	})

	// Health check endpoint for monitoring
	app.Get("/health", func(c *fiber.Ctx) error {
		status := "healthy"
		statusCode := 200

		if os.Getenv("USE_MEMORY_STORE") != "true" && database.DB != nil {
			sqlDB, err := database.DB.DB()
			if err != nil || sqlDB.Ping() != nil {
				status = "unhealthy"
				statusCode = 503
			}
		}

		return c.Status(statusCode).JSON(fiber.Map{
			"status": status,
			"services": fiber.Map{
				"database": status == "healthy",
				"twilio":   messenger != nil,
			},
		})
	})

	// Setup routes
	routes.SetupRoutes(app, store, whatsappService, messenger)

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		reminderJob.Stop()
		_ = app.Shutdown()
	}()

	log.Println("========================================")
	log.Printf("🚀 TableQueue Backend starting on port %s", port)
	log.Printf("📊 Storage: %s", getStorageType())
	log.Printf("📱 WhatsApp: %s", getWhatsAppStatus(messenger))
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

// tableSeedsFromEnv parses the TABLES env var ("T1:2,T5:4") into seeds,
// falling back to the default layout.
func tableSeedsFromEnv() []models.TableSeed {
	raw := os.Getenv("TABLES")
	if raw == "" {
		return defaultTableSeeds
	}

	var seeds []models.TableSeed
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			log.Fatalf("Invalid TABLES entry %q (want NUMBER:CAPACITY)", pair)
		}
		capacity, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || capacity <= 0 {
			log.Fatalf("Invalid capacity in TABLES entry %q", pair)
		}
		seeds = append(seeds, models.TableSeed{
			Number:   strings.ToUpper(strings.TrimSpace(parts[0])),
			Capacity: capacity,
		})
	}
	return seeds
}

func envMinutes(name string, fallback int) time.Duration {
	if raw := os.Getenv(name); raw != "" {
		if minutes, err := strconv.Atoi(raw); err == nil && minutes > 0 {
			return time.Duration(minutes) * time.Minute
		}
		log.Printf("⚠️  Ignoring invalid %s=%q", name, os.Getenv(name))
	}
	return time.Duration(fallback) * time.Minute
}

func getStorageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	if os.Getenv("DB_DRIVER") == "sqlite" {
		return "SQLite Database"
	}
	return "PostgreSQL Database"
}

func getWhatsAppStatus(messenger services.Messenger) string {
	if messenger == nil {
		return "Not configured"
	}
	return "Configured"
}
