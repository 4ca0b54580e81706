package commands

import (
	"fmt"

	"github.com/rentscope/backend/internal/aggregate"
	"github.com/rentscope/backend/internal/scoreconfig"
	"github.com/rentscope/backend/internal/scoring"
	"github.com/rentscope/backend/internal/sources"
	"github.com/rentscope/backend/pkg/config"
	"github.com/rentscope/backend/pkg/database"
	"github.com/rentscope/backend/pkg/logger"
	"github.com/rentscope/backend/pkg/redis"
)

// app bundles the service graph shared by the CLI commands: config,
// logger, stores and the domain components built on top of them.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *database.DB
	redis   *redis.Client
	cache   *redis.Cache
	scoring *scoreconfig.Config

	geo     *sources.GeoRepository
	yields  *sources.YieldRepository
	scores  *scoring.ScoreRepository
	batches *scoring.BatchRepository

	engine     *scoring.Engine
	aggregates *aggregate.Service
}

// initApp wires the full graph: config, logger, database, redis,
// repositories, engine and aggregate service.
func initApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if scoringConfigFile != "" {
		cfg.Engine.ScoringConfigPath = scoringConfigFile
	}

	log := logger.New(cfg)

	scoringCfg, snapshot, err := loadScoringConfig(cfg, log)
	if err != nil {
		return nil, err
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	cache := redis.NewCache(redisClient, "rentscope")

	geoRepo := sources.NewGeoRepository(db.Pool)
	rentRepo := sources.NewRentRepository(db.Pool)
	valueRepo := sources.NewHomeValueRepository(db.Pool)
	taxRepo := sources.NewTaxRateRepository(db.Pool)
	demandRepo := sources.NewDemandRepository(db.Pool)
	yieldRepo := sources.NewYieldRepository(db.Pool)
	scoreRepo := scoring.NewScoreRepository(db.Pool)
	batchRepo := scoring.NewBatchRepository(db.Pool)

	engine := scoring.NewEngine(scoring.Deps{
		Geo:     geoRepo,
		Rent:    scoring.NewRentResolver(geoRepo, rentRepo, log),
		Values:  valueRepo,
		Taxes:   taxRepo,
		Demand:  scoring.NewDemandResolver(demandRepo, log),
		Scores:  scoreRepo,
		Batches: batchRepo,
	}, scoringCfg, snapshot, cfg.Engine.Workers, log)

	aggregator := aggregate.NewAggregatorWithMinZIPs(scoringCfg.Aggregation.MinZIPCount, log.Zerolog())
	aggregates := aggregate.NewService(geoRepo, scoreRepo, aggregator, cache, cfg.Engine.AggregateCacheTTL, log.Zerolog())

	return &app{
		cfg:        cfg,
		log:        log,
		db:         db,
		redis:      redisClient,
		cache:      cache,
		scoring:    scoringCfg,
		geo:        geoRepo,
		yields:     yieldRepo,
		scores:     scoreRepo,
		batches:    batchRepo,
		engine:     engine,
		aggregates: aggregates,
	}, nil
}

func (a *app) Close() {
	a.db.Close()
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis client")
	}
}

// loadScoringConfig reads the YAML scoring parameters, falling back to
// the built-in defaults when no path is configured. The snapshot pins
// the loaded parameters for batch bookkeeping.
func loadScoringConfig(cfg *config.Config, log *logger.Logger) (*scoreconfig.Config, *scoreconfig.Snapshot, error) {
	path := cfg.Engine.ScoringConfigPath
	if path == "" {
		scoringCfg := scoreconfig.Default()
		snapshot, err := scoreconfig.NewSnapshot(scoringCfg, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("snapshot scoring config: %w", err)
		}
		return scoringCfg, snapshot, nil
	}

	scoringCfg, yamlData, err := scoreconfig.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load scoring config %s: %w", path, err)
	}

	for _, warning := range scoreconfig.Warn(scoringCfg) {
		log.WithField("code", warning.Code).Warn(warning.Message)
	}

	snapshot, err := scoreconfig.NewSnapshot(scoringCfg, yamlData)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot scoring config: %w", err)
	}
	log.WithFields(map[string]interface{}{
		"config_id":   snapshot.ConfigID,
		"config_hash": snapshot.ConfigHash,
	}).Info("Loaded scoring config")
	return scoringCfg, snapshot, nil
}
