package main

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/openlobby/lobby-service/config"
	"github.com/openlobby/lobby-service/internal/game"
	"github.com/openlobby/lobby-service/internal/handlers"
	"github.com/openlobby/lobby-service/internal/lobby"
	"github.com/openlobby/lobby-service/internal/middleware"
	"github.com/openlobby/lobby-service/internal/presence"
	"github.com/openlobby/lobby-service/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to MongoDB
	db, err := store.Connect(cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer db.Close()

	if err := db.EnsureIndexes(); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	// Connect to Redis (live presence mirror)
	tracker, err := presence.Connect(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer tracker.Close()

	rooms := store.NewRoomStore(db)
	hub := handlers.NewHub(rooms, tracker)
	games := game.NewClient(cfg.Game.URL, cfg.Game.ServiceID, cfg.Game.Secret, cfg.Game.Timeout)
	service := lobby.NewService(rooms, games, hub)

	verifier := middleware.NewVerifier(cfg.AuthServiceURL)
	roomHandlers := handlers.NewRooms(service)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Global CORS middleware (runs before routing)
	router.Use(handlers.OriginFilter(cfg.AllowedOrigins))
	if cfg.Environment != "production" {
		router.Use(handlers.DebugLogger())
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Room API (authenticated)
	apiGroup := router.Group("/api", verifier.Auth())
	{
		apiGroup.GET("/rooms", roomHandlers.List)
		apiGroup.POST("/rooms", roomHandlers.Create)
		apiGroup.GET("/rooms/search/:codeOrName", roomHandlers.Search)
		apiGroup.GET("/rooms/:id", roomHandlers.Get)
		apiGroup.DELETE("/rooms/:id", roomHandlers.Delete)

		apiGroup.POST("/rooms/:id/players", roomHandlers.Join)
		apiGroup.PUT("/rooms/:id/players", roomHandlers.SetReady)
		apiGroup.DELETE("/rooms/:id/players", roomHandlers.RemovePlayer)
		apiGroup.DELETE("/rooms/:id/players/:userId", roomHandlers.RemovePlayer)

		apiGroup.POST("/rooms/:id/start", roomHandlers.Start)
	}

	// Room channel endpoint; the socket authenticates in its handshake
	wsGroup := router.Group("/ws")
	{
		wsGroup.GET("/lobby", hub.HandleSocket(verifier))
	}

	// Start server
	log.Printf("Starting lobby server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
