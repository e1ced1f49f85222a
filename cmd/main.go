package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/satriahrh/wicara/adapters"
	"github.com/satriahrh/wicara/adapters/gemini"
	"github.com/satriahrh/wicara/adapters/stt"
	"github.com/satriahrh/wicara/domain/repositories"
	"github.com/satriahrh/wicara/internal/api"
	"github.com/satriahrh/wicara/internal/call"
	"github.com/satriahrh/wicara/internal/websocket"
)

const defaultSystemPrompt = "You are a friendly, patient language tutor on a voice call. " +
	"Keep replies short and conversational, correct mistakes gently, and ask " +
	"follow-up questions to keep the learner talking."

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize adapters
	dialer, err := gemini.NewGeminiLive(logger)
	if err != nil {
		logger.Fatal("Failed to initialize Gemini Live", zap.Error(err))
	}
	subscriptions := adapters.NewMemorySubscriptionStore()

	callConfig := call.Config{
		Live: repositories.LiveConfig{
			Model:               os.Getenv("WICARA_MODEL"),
			Voice:               envOr("WICARA_VOICE", "Puck"),
			SystemPrompt:        envOr("WICARA_SYSTEM_PROMPT", defaultSystemPrompt),
			InputTranscription:  os.Getenv("WICARA_INPUT_TRANSCRIPTION") != "off",
			OutputTranscription: true,
		},
		STTLanguage: envOr("WICARA_STT_LANGUAGE", "en-US"),
	}
	if os.Getenv("WICARA_STT_FALLBACK") == "google" {
		callConfig.STT = &stt.GoogleSpeechToText{}
		callConfig.Live.InputTranscription = false
	}

	// Each connected client gets its own call controller
	hub := websocket.NewHub(func(notifier call.Notifier, mic call.MicOpener) *call.Controller {
		return call.NewController(dialer, mic, notifier, callConfig, logger)
	}, logger)
	go hub.Run()

	// Initialize API routes
	api.InitRoutes(e, hub, subscriptions, logger)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started", zap.String("port", port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
