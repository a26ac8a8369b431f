package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/mohnish10-leo/moxievault/internal/config"
	"github.com/mohnish10-leo/moxievault/internal/database"
	"github.com/mohnish10-leo/moxievault/internal/handlers"
	"github.com/mohnish10-leo/moxievault/internal/middleware"
	"github.com/mohnish10-leo/moxievault/internal/models"
	"github.com/mohnish10-leo/moxievault/internal/storage"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to database and redis
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := models.AutoMigrate(database.DB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Persist the JWT secret so sessions survive restarts
	cfg.JWTSecret = database.EnsureJWTSecret(cfg)

	// Connect to object storage
	store, err := storage.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to object storage: %v", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "MoxieVault API v1.0",
		ServerHeader: "MoxieVault",
		BodyLimit:    32 * 1024 * 1024, // uploads are capped by the 30 MiB vault quota
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(compress.New())
	app.Use(middleware.Logger())
	app.Use(middleware.CORS())

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "moxievault-api",
		})
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(cfg)
	twoFAHandler := handlers.NewTwoFAHandler()
	vaultHandler := handlers.NewVaultHandler()
	fileHandler := handlers.NewFileHandler(store)
	shareHandler := handlers.NewShareHandler()

	// API routes
	api := app.Group("/api")

	// Public routes
	api.Post("/auth/register", authHandler.Register)
	api.Post("/auth/login", authHandler.Login)

	// Signed delivery: anonymous callers allowed, budget per operation
	// class (downloads are heavier, so their budget is smaller)
	api.Post("/files/view",
		middleware.RateLimiter("view", middleware.RateLimitViewPerMinute, time.Minute),
		middleware.OptionalAuth(cfg),
		fileHandler.View)
	api.Post("/files/download",
		middleware.RateLimiter("download", middleware.RateLimitDownloadPerMinute, time.Minute),
		middleware.OptionalAuth(cfg),
		fileHandler.Download)

	// Token access and discovery
	api.Post("/access/token",
		middleware.RateLimiter("lookup", middleware.RateLimitLookupPerMinute, time.Minute),
		shareHandler.VaultByToken)
	api.Get("/vaults/search",
		middleware.RateLimiter("lookup", middleware.RateLimitLookupPerMinute, time.Minute),
		vaultHandler.Search)
	api.Get("/public/vaults/:name",
		middleware.RateLimiter("lookup", middleware.RateLimitLookupPerMinute, time.Minute),
		vaultHandler.GetPublicByName)

	// Vault detail is readable anonymously when the vault is public
	api.Get("/vaults/:id", middleware.OptionalAuth(cfg), vaultHandler.Get)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired(cfg))

	// Auth routes
	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/auth/me", authHandler.Me)

	// 2FA routes
	protected.Get("/auth/2fa/status", twoFAHandler.Status)
	protected.Post("/auth/2fa/setup", twoFAHandler.Setup)
	protected.Post("/auth/2fa/verify", twoFAHandler.Verify)
	protected.Post("/auth/2fa/disable", twoFAHandler.Disable)

	// Vault routes
	protected.Get("/vaults", vaultHandler.List)
	protected.Post("/vaults", vaultHandler.Create)
	protected.Put("/vaults/:id/privacy", vaultHandler.UpdatePrivacy)

	// File routes
	protected.Post("/vaults/:id/files", fileHandler.Upload)
	protected.Put("/vaults/:id/files/order", fileHandler.Reorder)
	protected.Delete("/files/:id", fileHandler.Delete)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.APIPort)
		log.Printf("MoxieVault API listening on %s", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
