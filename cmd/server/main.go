package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"duolink_app/internal/handlers"
	authMiddleware "duolink_app/internal/middleware"
	"duolink_app/internal/partner"
	"duolink_app/internal/services"
	"duolink_app/internal/tasks"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	// Initialize Firebase
	credPath := os.Getenv("FIREBASE_CREDENTIALS_PATH")
	if credPath == "" {
		credPath = "./firebase-service-account.json"
	}

	authClient, err := services.InitFirebase(credPath)
	if err != nil {
		log.Printf("Warning: Firebase initialization failed: %v", err)
		log.Println("Auth features will not work until valid credentials are provided")
	}

	// Initialize Database
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	db, err := services.InitDB(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := services.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Initialize Redis (optional, status reads fall back to the database)
	var cache *services.RedisCache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cache, err = services.NewRedisCache(redisURL)
		if err != nil {
			log.Printf("Warning: Redis initialization failed: %v", err)
			cache = nil
		}
	} else {
		log.Println("Warning: REDIS_URL not set, status caching disabled")
	}

	// The partnership engine: email side effects go through the task queue,
	// delivered by cmd/worker after the originating transaction commits.
	engine := partner.NewService(db, cache, tasks.NewQueueNotifier(db))

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = authMiddleware.CustomErrorHandler
	e.Validator = handlers.NewRequestValidator()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authClient)
	partnerHandler := handlers.NewPartnerHandler(db, engine)
	settingsHandler := handlers.NewSettingsHandler(db, engine)

	// Public routes
	e.POST("/auth/login", authHandler.HandleLogin)
	e.POST("/auth/logout", authHandler.HandleLogout)

	// Protected routes
	api := e.Group("/api")
	api.Use(authMiddleware.RequireAuth(authClient))

	api.POST("/partner/persona", partnerHandler.SetPersona)
	api.POST("/partner/invite", partnerHandler.CreateInvite)
	api.POST("/partner/invite/resend", partnerHandler.ResendInvite)
	api.POST("/partner/invite/accept", partnerHandler.AcceptInvite)
	api.POST("/partner/unlink", partnerHandler.Unlink)
	api.GET("/partner/status", partnerHandler.Status)

	api.GET("/settings", settingsHandler.GetSettings)
	api.POST("/settings", settingsHandler.SaveSettings)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	e.Logger.Fatal(e.Start(":" + port))
}
