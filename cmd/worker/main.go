package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"canteen/internal/billing"
	"canteen/internal/config"
	"canteen/internal/logger"
	"canteen/internal/metrics"
	"canteen/internal/queue"
	"canteen/internal/scanner"
	"canteen/internal/store"
)

// Worker consumes scan events into daily tallies and sweeps overdue
// subscriptions on a timer.
func main() {
	cfg, err := config.Load(os.Getenv("CANTEEN_CONFIG"))
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPoolSize)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "")
	}

	scanLogs := scanner.NewRepository(db.Client)
	billingRepo := billing.NewRepository(db.Client)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Error("queue consume init failed", "err", err)
		os.Exit(1)
	}

	go sweepSubscriptions(ctx, log, billingRepo, cfg.SweepEvery)

	log.Info("worker started")
	for msg := range messages {
		if msg.Type != queue.TypeScan {
			continue
		}

		id := string(msg.Body)
		scanLog, err := scanLogs.Get(ctx, id)
		if err != nil {
			log.Warn("fetch scan log failed", "id", id, "err", err)
			continue
		}
		if !scanLog.AccessGranted {
			continue
		}
		if err := scanLogs.BumpTally(ctx, scanLog.ScanDate, scanLog.MealType); err != nil {
			log.Warn("tally update failed", "id", id, "err", err)
			continue
		}
		log.Debug("tally updated", "meal", scanLog.MealType, "date", scanLog.ScanDate.Format("2006-01-02"))
	}

	log.Info("worker stopped")
}

// sweepSubscriptions expires ACTIVE subscriptions whose end date passed.
func sweepSubscriptions(ctx context.Context, log *slog.Logger, repo *billing.Repository, every time.Duration) {
	if every <= 0 {
		every = time.Hour
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.ExpireOverdue(ctx, time.Now().UTC())
			if err != nil {
				log.Warn("subscription sweep failed", "err", err)
				continue
			}
			if n > 0 {
				metrics.SubscriptionsExpired.Add(float64(n))
				log.Info("subscriptions expired", "count", n)
			}
		}
	}
}
