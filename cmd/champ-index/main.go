package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/champ-index/internal/config"
	"github.com/Sternrassler/champ-index/pkg/cache"
	"github.com/Sternrassler/champ-index/pkg/client"
	"github.com/Sternrassler/champ-index/pkg/ingest"
	"github.com/Sternrassler/champ-index/pkg/logging"
	"github.com/Sternrassler/champ-index/pkg/metrics"
	"github.com/Sternrassler/champ-index/pkg/model"
	"github.com/Sternrassler/champ-index/pkg/pagination"
	"github.com/Sternrassler/champ-index/pkg/store"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := logging.Setup(logging.DefaultConfig())

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, ok := logging.ParseLevel(cfg.LogLevel)
	if !ok {
		logger.Warn().Str("level", cfg.LogLevel).Msg("Unknown log level, using info")
	}
	logger = logging.Setup(logging.Config{Level: level, Pretty: cfg.LogPretty, Output: os.Stderr})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var snapshots *store.Snapshots
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Invalid REDIS_URL")
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		manager := cache.NewManager(redisClient)
		if err := manager.Ping(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
		snapshots = store.New(manager, cfg.SnapshotTTL, logging.NewLogger("snapshots"))
	}

	clientCfg := client.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.APIBaseURL
	clientCfg.RequestsPerSecond = cfg.RequestsPerSecond
	apiClient, err := client.New(clientCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create upstream client")
	}

	idx, err := loadIndex(ctx, cfg, apiClient, snapshots, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build index")
	}
	metrics.ObserveIndex(idx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newServer(idx, cfg.MapPool, cfg.SearchCacheTTL, logging.NewLogger("http")).handler(cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("Starting champ-index server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
		return
	}
	logger.Info().Msg("Server stopped")
}

// loadIndex ingests the configured championships and saves the result as
// a snapshot. Without championships it serves the stored snapshot, fetching
// the per-round statistics again when the snapshot was saved compressed.
func loadIndex(ctx context.Context, cfg *config.Config, source ingest.Source, snapshots *store.Snapshots, logger zerolog.Logger) (*model.Index, error) {
	var ingester *ingest.Ingester
	if source != nil {
		ingestCfg := ingest.DefaultConfig()
		ingestCfg.Pagination = pagination.Config{PageSize: cfg.PageSize, UpperBound: cfg.ProbeUpperBound}
		ingestCfg.Concurrency = cfg.BatchConcurrency
		ingestCfg.FetchStats = cfg.FetchStats
		ingestCfg.OnStatsProgress = func(completed, total int) {
			logger.Debug().Int("completed", completed).Int("total", total).Msg("Match stats progress")
		}
		ingester = ingest.New(source, ingestCfg, logging.NewLogger("ingest"))
	}

	if ingester == nil || len(cfg.ChampionshipIDs) == 0 {
		idx, err := loadSnapshot(ctx, cfg, snapshots)
		if err != nil {
			return nil, err
		}
		if idx.StatsOmitted && ingester != nil && cfg.FetchStats {
			report, err := ingester.RestoreStats(ctx, idx)
			if err != nil {
				return nil, fmt.Errorf("restore match stats: %w", err)
			}
			logger.Info().
				Int("stats_fetched", report.StatsFetched).
				Int("stats_failed", report.StatsFailed).
				Msg("Match stats restored for compressed snapshot")
		}
		return idx, nil
	}

	// Cancellation is returned, never replaced by the stored snapshot.
	idx, report, err := ingester.Run(ctx, cfg.ChampionshipIDs)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	logger.Info().
		Int("matches", idx.Metadata.TotalMatches).
		Int("teams", idx.Metadata.TotalTeams).
		Int("players", idx.Metadata.TotalPlayers).
		Strs("dropped", report.Dropped()).
		Int("stats_failed", report.StatsFailed).
		Dur("duration", report.Duration).
		Msg("Index ready")

	if snapshots != nil {
		if _, err := snapshots.Save(ctx, cfg.SnapshotName, idx, cfg.SnapshotCompressed); err != nil {
			logger.Warn().Err(err).Str("snapshot", cfg.SnapshotName).Msg("Failed to save snapshot")
		}
	}
	return idx, nil
}

func loadSnapshot(ctx context.Context, cfg *config.Config, snapshots *store.Snapshots) (*model.Index, error) {
	if snapshots == nil {
		return nil, errors.New("no championships configured and no snapshot store")
	}
	idx, _, err := snapshots.Load(ctx, cfg.SnapshotName)
	if err != nil {
		return nil, err
	}
	return idx, nil
}
