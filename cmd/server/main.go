package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/research-collab/backend/api/handlers"
	"github.com/research-collab/backend/internal/auth"
	"github.com/research-collab/backend/internal/chat"
	"github.com/research-collab/backend/internal/db"
	"github.com/research-collab/backend/internal/repository"
	"github.com/research-collab/backend/internal/ws"
)

func main() {
	// Get configuration from environment
	port := getEnv("PORT", "8080")
	dbPath := getEnv("DB_PATH", "data/chat.db")
	tokenSecret := getEnv("TOKEN_SECRET", "dev-secret-change-in-production")
	tokenIssuer := getEnv("TOKEN_ISSUER", "research-collab")

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	// Initialize database
	database, err := db.InitDB(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.CloseDB()

	// Initialize repository and chat service
	messageRepo := repository.NewMessageRepository(database)
	chatService := chat.NewService(messageRepo)

	// Initialize credential resolver
	resolver := auth.NewResolver([]byte(tokenSecret), tokenIssuer)

	// Initialize room service and protocol handler
	wsService := ws.NewService()
	defer wsService.Close()
	wsHandler := ws.NewHandler(wsService, chatService)

	// Initialize handlers
	chatHandler := handlers.NewChatHandler(chatService, wsService, resolver)
	webSocketHandler := handlers.NewWebSocketHandler(wsService, wsHandler, resolver)

	// Initialize Gin router
	r := gin.Default()

	// Enable CORS for development
	r.Use(corsMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		chatHandler.RegisterRoutes(api)
		webSocketHandler.RegisterRoutes(api)
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down server...")
		wsService.Close()
		db.CloseDB()
		os.Exit(0)
	}()

	// Start server
	log.Printf("Starting server on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// corsMiddleware returns a CORS middleware for development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
