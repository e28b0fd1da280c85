package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/tkellerman/salesweather/internal/audit"
	"github.com/tkellerman/salesweather/internal/database"
	"github.com/tkellerman/salesweather/internal/derived"
	"github.com/tkellerman/salesweather/internal/masking"
	"github.com/tkellerman/salesweather/internal/report"
	"github.com/tkellerman/salesweather/internal/source"
	"github.com/tkellerman/salesweather/internal/timer"
	"github.com/tkellerman/salesweather/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Report Server...")

	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Connect to Redis for exclusion counters
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	fmt.Println("Connected to Redis")

	recorder := audit.NewRedisRecorder(redisClient)

	// Build the derivation pipeline over the database-backed source store
	adapters := source.NewAdapters(db, recorder)
	pipeline := derived.NewPipeline(adapters, recorder)

	// Persist the dataset definitions so consumers can discover them by name
	registry := derived.NewRegistry(pipeline)
	if err := registry.SaveDefinitions(db); err != nil {
		log.Fatalf("Failed to save dataset definitions: %v", err)
	}
	fmt.Printf("Registered derived datasets: %v\n", registry.Names())

	// Load the masking roles
	masker, err := masking.LoadEngine(cfg.Masking.RolesFile)
	if err != nil {
		log.Fatalf("Failed to load masking roles: %v", err)
	}
	fmt.Printf("Masking roles loaded: %v\n", masker.Roles())

	// Session manager and idle timers
	sessions := report.NewSessionManager(cfg.ReportServer.MaxSessions)
	timerManager := timer.NewTimerManager(4)
	timerManager.Start()
	defer timerManager.Stop()

	server := report.NewServer(&cfg.ReportServer, sessions, timerManager, pipeline, masker)
	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start report server: %v", err)
	}

	fmt.Println("\n✓ Report Server is running")
	fmt.Printf("✓ Listening on port %d\n", cfg.ReportServer.Port)
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	server.Stop()
	fmt.Println("Report Server stopped")
}
