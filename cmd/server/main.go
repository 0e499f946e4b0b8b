package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clairelabs/claire-server/internal/api"
	"github.com/clairelabs/claire-server/internal/config"
	"github.com/clairelabs/claire-server/internal/core"
	"github.com/clairelabs/claire-server/internal/llm"
	"github.com/clairelabs/claire-server/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	// Provision accounts from deployment secrets before serving traffic.
	if err := core.SeedAccounts(dbStore, config.AppConfig.SeedAccounts); err != nil {
		log.Fatalf("Failed to seed accounts: %v", err)
	}

	// Initialize the completion backend
	completer, cleanup, err := newCompleter()
	if err != nil {
		log.Fatalf("Failed to initialize completion client: %v", err)
	}
	defer cleanup()

	// Initialize Chat service
	chatService := core.NewChatService(dbStore, completer)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(chatService)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // completion calls can take time
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give active connections time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}

// newCompleter builds the configured completion backend. The API key is not
// checked here: a missing key fails on the first completion call and turns
// into a fallback reply rather than a startup failure.
func newCompleter() (llm.Completer, func(), error) {
	cfg := config.AppConfig

	switch cfg.ChatProvider {
	case "gemini":
		client, err := llm.NewGeminiClient(context.Background(), cfg.GeminiAPIKey, cfg.ChatModel)
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	case "openai":
		client := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ChatModel, cfg.LLMTimeout)
		return client, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown CHAT_PROVIDER %q (expected openai or gemini)", cfg.ChatProvider)
	}
}
