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

	"github.com/medassist/orchestrator/internal/adapter/genai"
	"github.com/medassist/orchestrator/internal/adapter/predictor"
	"github.com/medassist/orchestrator/internal/config"
	"github.com/medassist/orchestrator/internal/kb"
	"github.com/medassist/orchestrator/internal/service"
	"github.com/medassist/orchestrator/internal/session"
	"github.com/medassist/orchestrator/internal/store"
	transport "github.com/medassist/orchestrator/internal/transport/http"
	"github.com/medassist/orchestrator/policy"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting orchestrator...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Predictor URL: %s", cfg.PredictorURL)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Seed knowledge base
	if cfg.KBSeedPath != "" {
		seed, err := kb.LoadSeed(cfg.KBSeedPath)
		if err != nil {
			log.Fatalf("Failed to load knowledge base seed: %v", err)
		}
		if err := seed.Apply(context.Background(), db); err != nil {
			log.Fatalf("Failed to seed knowledge base: %v", err)
		}
		log.Printf("Seeded knowledge base: %d symptoms, %d diseases", len(seed.Symptoms), len(seed.Diseases))
	}

	// Initialize collaborator clients
	assistant := genai.NewClient(cfg.GenAIURL, cfg.GenAIAPIKey, cfg.UpstreamTimeout)
	pred := predictor.NewClient(cfg.PredictorURL, cfg.UpstreamTimeout)

	// Initialize triage policy engine
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize service
	sessions := session.NewMemoryStore()
	svc := service.New(db, sessions, assistant, pred, engine, cfg)

	// Create HTTP server
	server := transport.NewServer(svc)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down orchestrator...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Orchestrator stopped")
}
