package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tkellerman/salesweather/internal/audit"
	"github.com/tkellerman/salesweather/internal/database"
	"github.com/tkellerman/salesweather/internal/quality"
	"github.com/tkellerman/salesweather/internal/queue"
	"github.com/tkellerman/salesweather/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Quality Monitor Service...")

	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	// Connect to Redis for exclusion counters and alert state
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	fmt.Println("Connected to Redis")

	// Make sure the alerts topic exists
	if err := queue.CreateTopic(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts, 1, 1); err != nil {
		fmt.Printf("Note: failed to create alerts topic (may already exist): %v\n", err)
	}

	alertProducer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts)
	defer alertProducer.Close()

	reader := audit.NewRedisRecorder(redisClient)
	stateManager := quality.NewStateManager(redisClient)
	evaluator := quality.NewEvaluator(db, reader, stateManager, alertProducer)

	// Evaluate the exclusion counters on a fixed interval
	go func() {
		ticker := time.NewTicker(cfg.Quality.CheckInterval)
		defer ticker.Stop()
		for range ticker.C {
			if err := evaluator.Check(ctx); err != nil {
				log.Printf("Quality check failed: %v\n", err)
			}
		}
	}()

	// Print active alert states periodically
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			states, err := stateManager.GetAllStates(ctx)
			if err != nil {
				continue
			}
			fmt.Printf("Active alert states: %d\n", len(states))
		}
	}()

	fmt.Println("\n✓ Quality Monitor Service is running")
	fmt.Printf("✓ Checking exclusion counters every %s\n", cfg.Quality.CheckInterval)
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
}
