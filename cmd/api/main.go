package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"barnaby_go_backend/cmd/api/config"
	"barnaby_go_backend/internal/api"
	"barnaby_go_backend/internal/auth"
	"barnaby_go_backend/internal/database"
	"barnaby_go_backend/internal/notify"
	"barnaby_go_backend/internal/services"
	"barnaby_go_backend/internal/wsocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

func main() {
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	db, err := database.Connect(cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	ctx := context.Background()
	genaiClient, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create GenAI client")
	}
	defer genaiClient.Close()

	// Stores and adapters
	chatStore := services.NewChatStore(db)
	userStore := services.NewUserStore(db)
	extractionService := services.NewDocumentExtractionService()
	cohereService := services.NewCohereService(cfg.CohereAPIKey)
	geminiService := services.NewGeminiService(genaiClient)
	notifier := notify.NewNotifier()

	sessionService := services.NewChatSessionService(
		extractionService,
		cohereService,
		geminiService,
		chatStore,
		notifier,
		cfg.GenerationTimeout,
	)

	authService := auth.NewService(userStore, cfg.JWTSecret, cfg.TokenTTL)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.AllowedOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true // TODO: restrict to AllowedOrigins before production
		},
	}
	wsHandler := wsocket.NewHandler(sessionService, notifier, upgrader)

	auth.SetupRoutes(r, authService)
	api.SetupRoutes(r, sessionService, authService)

	r.GET("/ws", auth.Middleware(authService), func(c *gin.Context) {
		username, ok := auth.Username(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found in context"})
			return
		}
		wsHandler.HandleWebSocket(c.Writer, c.Request, username)
	})

	log.Info().Str("port", cfg.Port).Msg("Server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
