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
	"github.com/tkellerman/salesweather/internal/refresh"
	"github.com/tkellerman/salesweather/internal/source"
	"github.com/tkellerman/salesweather/internal/timer"
	"github.com/tkellerman/salesweather/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Refresh Service...")

	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	recorder := audit.NewRedisRecorder(redisClient)

	adapters := source.NewAdapters(db, recorder)
	pipeline := derived.NewPipeline(adapters, recorder)
	refresher := refresh.NewRefresher(pipeline, db)

	// Create timer manager
	timerManager := timer.NewTimerManager(2)
	timerManager.Start()
	defer timerManager.Stop()
	fmt.Println("Timer manager started")

	scheduleDailyRefresh(timerManager, refresher, cfg.Refresh.DailyTime)

	fmt.Println("\n✓ Refresh Service is running")
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
}

func scheduleDailyRefresh(tm *timer.TimerManager, refresher *refresh.Refresher, timeOfDay string) {
	taskID := "daily-refresh"

	var scheduleNext func()
	scheduleNext = func() {
		nextRun, err := refresher.CalculateNextRunTime(timeOfDay)
		if err != nil {
			log.Fatalf("Failed to calculate daily run time: %v", err)
		}
		fmt.Printf("Next daily refresh scheduled for: %s\n", nextRun.Format("2006-01-02 15:04:05"))

		callback := func() {
			fmt.Println("\n--- Running Daily Refresh ---")
			if err := refresher.RefreshSnapshots(context.Background()); err != nil {
				log.Printf("Daily refresh failed: %v\n", err)
			}
			fmt.Println("--- Daily Refresh Complete ---")

			// Schedule next run
			scheduleNext()
		}

		tm.Schedule(taskID, nextRun, callback)
	}

	scheduleNext()
}
