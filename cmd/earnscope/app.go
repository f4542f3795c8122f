package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/earnscope/earnscope/internal/api"
	"github.com/earnscope/earnscope/internal/application/pipeline"
	"github.com/earnscope/earnscope/internal/config"
	"github.com/earnscope/earnscope/internal/domain/nowcast"
	"github.com/earnscope/earnscope/internal/domain/scoring"
	applog "github.com/earnscope/earnscope/internal/log"
	"github.com/earnscope/earnscope/internal/metrics"
	"github.com/earnscope/earnscope/internal/persistence"
	"github.com/earnscope/earnscope/internal/persistence/postgres"
	"github.com/earnscope/earnscope/internal/provider"
	"github.com/earnscope/earnscope/internal/scheduler"
)

// App wires the full dependency graph for one process.
type App struct {
	Pipeline  *pipeline.Pipeline
	Server    *api.Server
	Scheduler *scheduler.Scheduler

	earnings provider.EarningsProvider
	repo     persistence.EarningsRepo
	db       *sqlx.DB
	redis    *redis.Client
}

// bootstrap loads config and constructs every component.
func bootstrap(cmd *cobra.Command) (*App, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	cfg.Defaults()

	if override, _ := cmd.Flags().GetString("log-level"); override != "" {
		cfg.LogLevel = override
	}
	applog.Setup(cfg.LogLevel)
	logger := applog.Logger()

	db, err := postgres.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	profiles, err := scoring.LoadProfiles(cfg.WeightsFile)
	if err != nil {
		return nil, err
	}
	daily, ok := profiles[scoring.ProfileDaily]
	if !ok {
		daily = scoring.DailyProfile()
	}
	intraday, ok := profiles[scoring.ProfileIntraday]
	if !ok {
		intraday = scoring.IntradayProfile()
	}

	universe, err := config.LoadUniverse(cfg.UniverseFile)
	if err != nil {
		return nil, err
	}
	cfg.Pipeline.Universe = universe

	loc := time.UTC
	if cfg.Providers.Timezone != "" {
		loc, err = time.LoadLocation(cfg.Providers.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid provider timezone: %w", err)
		}
	}

	chains := provider.NewPolygonClient(cfg.Providers.Chain, logger)
	earnings := provider.NewFinnhubClient(cfg.Providers.Earnings, loc, logger)

	earningsRepo := postgres.NewEarningsRepo(db, 0)
	metricsReg := metrics.NewRegistry(nil)
	hub := api.NewHub(logger)

	nowMgr := nowcast.NewManager(
		nowcast.NewRedisStore(rdb),
		cfg.Nowcast.Alpha,
		cfg.Nowcast.Guards,
		intraday.Thresholds,
	)

	dailyRepo := postgres.NewDailyScoresRepo(db, 0)
	intradayRepo := postgres.NewIntradayScoresRepo(db, 0)

	pipe := pipeline.New(cfg.Pipeline, pipeline.Deps{
		Chains:         chains,
		Prices:         chains,
		Earnings:       earnings,
		Contracts:      postgres.NewContractsRepo(db, 0),
		Snapshots:      postgres.NewSnapshotsRepo(db, 0),
		EarningsRepo:   earningsRepo,
		DailyScores:    dailyRepo,
		IntradayScores: intradayRepo,
		OIDeltas:       postgres.NewOIDeltaRepo(db, 0),
		Nowcast:        nowMgr,
		Metrics:        metricsReg,
		Log:            logger,
		Publisher:      hub,
	}, daily, intraday)

	server := api.New(cfg.API.Addr, dailyRepo, intradayRepo, hub, logger)

	schedCfg, err := scheduler.LoadConfig(cfg.SchedulerFile)
	if err != nil {
		return nil, err
	}
	sched, err := scheduler.New(schedCfg, pipe, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		Pipeline:  pipe,
		Server:    server,
		Scheduler: sched,
		earnings:  earnings,
		repo:      earningsRepo,
		db:        db,
		redis:     rdb,
	}, nil
}

// IngestCalendar fetches the next days of earnings events and stores them.
func (a *App) IngestCalendar(ctx context.Context, days int) error {
	if days <= 0 {
		days = 7
	}
	from := time.Now()
	to := from.AddDate(0, 0, days)

	events, err := a.earnings.Calendar(ctx, from, to)
	if err != nil {
		return err
	}
	if err := a.repo.UpsertBatch(ctx, events); err != nil {
		return err
	}
	lg := applog.Logger()
	lg.Info().Int("events", len(events)).Msg("earnings calendar ingested")
	return nil
}

// Close releases shared connections.
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}
