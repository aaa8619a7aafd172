package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shrimple-guild/leaderboard/internal/adapters/beacon"
	"github.com/shrimple-guild/leaderboard/internal/adapters/http/api"
	"github.com/shrimple-guild/leaderboard/internal/adapters/hypixel"
	"github.com/shrimple-guild/leaderboard/internal/adapters/store"
	app "github.com/shrimple-guild/leaderboard/internal/app"
	"github.com/shrimple-guild/leaderboard/internal/config"
	"github.com/shrimple-guild/leaderboard/internal/domain/bestiary"
	"github.com/shrimple-guild/leaderboard/internal/domain/catalog"
	"github.com/shrimple-guild/leaderboard/internal/domain/compute"
	"github.com/shrimple-guild/leaderboard/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Reference data: metric catalog, bestiary taxonomy, creature index.
	cat, err := catalog.LoadDefault(cfg.CatalogPath)
	if err != nil {
		log.Error(ctx, "failed to load metric catalog", logger.Error(err))
		return
	}
	taxonomy, err := bestiary.LoadDefault(cfg.BestiaryPath)
	if err != nil {
		log.Error(ctx, "failed to load bestiary taxonomy", logger.Error(err))
		return
	}
	creatures, err := compute.LoadCreatures("")
	if err != nil {
		log.Error(ctx, "failed to load creature index", logger.Error(err))
		return
	}
	engine, err := compute.NewEngine(cat, taxonomy, creatures)
	if err != nil {
		log.Error(ctx, "failed to build compute engine", logger.Error(err))
		return
	}

	// Observation store.
	st, err := store.OpenSQLite(ctx, cfg.DBPath)
	if err != nil {
		log.Error(ctx, "failed to open store", logger.Error(err), logger.String("db_path", cfg.DBPath))
		return
	}
	defer st.Close()

	// Outbound adapters.
	fetcher := hypixel.NewClient(cfg.APIBaseURL, cfg.APIKey)
	randomness, err := beacon.NewClient(cfg.BeaconURL, time.Unix(cfg.BeaconGenesis, 0), cfg.BeaconPeriod)
	if err != nil {
		log.Error(ctx, "failed to build beacon client", logger.Error(err))
		return
	}

	// Create and start the service with configuration options
	svc := app.New(
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithStore(st),
		app.WithEngine(engine),
		app.WithFetcher(fetcher),
		app.WithBeacon(randomness),
	)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop(context.Background())

	// Scheduled ingestion cycles, when a roster and cadence are configured.
	if cfg.GuildID != "" && cfg.UpdateInterval > 0 {
		go runUpdateLoop(ctx, svc, cfg.GuildID, cfg.UpdateInterval)
	}

	// HTTP mux and routes.
	mux := http.NewServeMux()
	apiServer := api.NewServer(svc, svc, cfg.MaxLeaderboardLimit)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// runUpdateLoop triggers one ingestion cycle per interval tick. A cycle is
// stamped with the tick time so re-triggered ticks dedupe to the same jobs.
// Display names are re-resolved after each cycle.
func runUpdateLoop(ctx context.Context, svc *app.Service, rosterID string, interval time.Duration) {
	log := logger.Named("update-loop")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case tick := <-ticker.C:
			timestamp := tick.UnixMilli()
			// The first tick of each UTC day opens a window; that cycle
			// archives raw snapshots.
			windowStart := tick.UTC().Sub(tick.UTC().Truncate(24*time.Hour)) < interval
			tally, err := svc.RunCycle(ctx, rosterID, timestamp, windowStart)
			if err != nil {
				log.Warn(ctx, "scheduled cycle failed", logger.Error(err))
				continue
			}
			log.Info(ctx, "scheduled cycle done",
				logger.Int("succeeded", tally.Succeeded),
				logger.Int("total", tally.Total),
			)
			if err := svc.RefreshUsernames(ctx, rosterID); err != nil {
				log.Warn(ctx, "username refresh failed", logger.Error(err))
			}
		}
	}
}
