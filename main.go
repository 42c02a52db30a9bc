package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"options_venue/api"
	"options_venue/config"
	"options_venue/db"
	"options_venue/engine"
	"options_venue/monitoring"
	"options_venue/store"
	"options_venue/utils"
	"options_venue/ws"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	if err := utils.InitLogger(); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		utils.Logger.Fatalw("Failed to load configuration", "error", err)
	}

	utils.Logger.Infow("Starting venue",
		"environment", cfg.App.Environment,
		"listen_addr", cfg.App.ListenAddr,
	)

	var snapshots store.Store = store.NewMemory()
	if cfg.Redis.Addr != "" {
		redisStore, err := store.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			utils.Logger.Fatalw("Failed to connect to Redis", "error", err)
		}
		defer redisStore.Close()
		snapshots = redisStore
		utils.Logger.Infow("Snapshot persistence enabled", "addr", cfg.Redis.Addr)
	} else {
		utils.Logger.Warn("REDIS_ADDR not set, state will not survive restarts")
	}

	var archiver *db.Archiver
	if cfg.ClickHouse.Host != "" {
		chDB, err := db.NewClickHouseDB(cfg)
		if err != nil {
			utils.Logger.Fatalw("Failed to connect to ClickHouse", "error", err)
		}
		defer chDB.Close()

		archiver = db.NewArchiver(chDB, cfg.ClickHouse.BatchSize, cfg.ClickHouse.FlushInterval, utils.Logger)
		archiver.Start()
		defer archiver.Stop()
		utils.Logger.Infow("Archive sink enabled", "host", cfg.ClickHouse.Host)
	}

	hub := ws.NewHub(utils.Logger)

	eng := engine.New(engine.Params{
		Config:   cfg,
		Store:    snapshots,
		Logger:   utils.Logger,
		Hub:      hub,
		Archiver: archiver,
	})
	eng.Start()
	defer eng.Stop()

	monitoring.RegisterHealthCheck("feed", eng.FeedHealthy)
	monitoring.RegisterHealthCheck("settlement", eng.SettlementHealthy)
	monitoring.StartMetricsCollection(hub.ClientCount)

	server := &http.Server{
		Addr:    cfg.App.ListenAddr,
		Handler: api.NewServer(eng, hub, utils.Logger).Handler(),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			utils.Logger.Fatalw("HTTP server failed", "error", err)
		}
	}()
	utils.Logger.Infow("HTTP server listening", "addr", cfg.App.ListenAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	utils.Logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		utils.Logger.Errorw("HTTP server shutdown failed", "error", err)
	}
}
