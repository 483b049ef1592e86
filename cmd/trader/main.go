// Command trader is the fleet's process entrypoint: load configuration,
// open the store, start every enabled trader, and run until signaled.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"futures-trader-core/internal/config"
	"futures-trader-core/internal/logging"
	"futures-trader-core/internal/signalfeed"
	"futures-trader-core/internal/store"
	"futures-trader-core/internal/supervisor"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logging.Default().Fatal("loading config failed", "error", err)
	}

	logging.SetDefault(logging.New(logging.Config{
		Level:      cfg.Logging.Level,
		Output:     cfg.Logging.Output,
		Component:  "trader",
		JSONFormat: cfg.Logging.JSONFormat,
	}))
	log := logging.Default()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatal("opening store failed", "error", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		log.Fatal("running migrations failed", "error", err)
	}

	repo := store.NewRepository(db)
	cache := store.NewConfigCache(cfg.Redis, repo)
	signals := signalfeed.New(2, 5) // 2 req/s, burst 5, shared across every trader's CoinPool stage

	universe := func(ctx context.Context) []string {
		sys, err := repo.LoadSystemConfig(ctx)
		if err != nil {
			log.Warn("loading system config for universe failed, symbol filter idles this tick", "error", err)
			return nil
		}
		return sys.DefaultCoins
	}

	super := supervisor.New(repo, cache, signals, universe)

	if err := super.LoadAll(ctx); err != nil {
		log.Fatal("loading trader configs failed", "error", err)
	}

	log.Info("starting trader fleet")
	super.StartAll(ctx)

	<-ctx.Done()
	log.Info("shutdown signal received, stopping trader fleet")

	stopped := make(chan struct{})
	go func() {
		super.StopAll()
		close(stopped)
	}()

	select {
	case <-stopped:
		log.Info("trader fleet stopped cleanly")
	case <-time.After(cfg.Process.ShutdownGracePeriod + 30*time.Second):
		log.Warn("trader fleet stop exceeded grace period, exiting anyway")
	}
}
