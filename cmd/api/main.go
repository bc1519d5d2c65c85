package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"canteen/internal/api"
	"canteen/internal/auth"
	"canteen/internal/billing"
	"canteen/internal/catalog"
	"canteen/internal/config"
	"canteen/internal/logger"
	"canteen/internal/mealplan"
	"canteen/internal/order"
	"canteen/internal/queue"
	"canteen/internal/report"
	"canteen/internal/scanner"
	"canteen/internal/store"
	"canteen/internal/student"
	"canteen/internal/sysconfig"
)

func main() {
	cfg, err := config.Load(os.Getenv("CANTEEN_CONFIG"))
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.Env)

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.App, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPoolSize)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "")
	}

	authRepo := auth.NewRepository(db.Client)
	students := student.NewRepository(db.Client)
	catalogRepo := catalog.NewRepository(db.Client)
	billingRepo := billing.NewRepository(db.Client)
	orders := order.NewRepository(db.Client)
	plans := mealplan.NewRepository(db.Client)
	planner := mealplan.NewService(plans, billingRepo)
	scanLogs := scanner.NewRepository(db.Client)
	approvals := scanner.NewRedisApprovals(redisClient.Client, cfg.ApprovalTTL)
	sysconfigSvc := sysconfig.NewService(sysconfig.NewRepository(db.Client))
	scans := scanner.NewService(students, orders, billingRepo, sysconfigSvc, scanLogs, approvals, billingRepo)
	reports := report.NewService(catalogRepo, billingRepo, scanLogs)

	h := api.New(api.Deps{
		Cfg: cfg, Log: log, DB: db, Redis: redisClient, Queue: q,
		AuthRepo: authRepo, Students: students, Catalog: catalogRepo,
		Billing: billingRepo, Orders: orders, Plans: plans, Planner: planner,
		Scans: scans, SysConfig: sysconfigSvc, Reports: reports,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("forced shutdown", "err", err)
	}
	log.Info("server stopped")
	return nil
}
