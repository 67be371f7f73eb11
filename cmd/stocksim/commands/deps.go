package commands

import (
	"fmt"
	"io"

	"github.com/wonny/stocksim/internal/forecast"
	"github.com/wonny/stocksim/internal/inventory"
	"github.com/wonny/stocksim/pkg/config"
	"github.com/wonny/stocksim/pkg/database"
	"github.com/wonny/stocksim/pkg/logger"
	"github.com/wonny/stocksim/pkg/redis"
)

// cachePrefix namespaces every Redis key of this service
const cachePrefix = "stocksim"

// deps is the wiring shared by commands that talk to the database
type deps struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *database.DB
	redis     *redis.Client
	summaries *forecast.SummaryRepository
	service   *forecast.Service
}

// initDeps loads config, connects PostgreSQL and Redis and builds the forecast
// service. Logs go to logOut so stdout can carry command output.
func initDeps(logOut io.Writer) (*deps, error) {
	cfg, err := loadConfig(false)
	if err != nil {
		return nil, err
	}

	log := logger.NewWithWriter(cfg, logOut)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rc, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	summaries := forecast.NewSummaryRepository(db.Pool)
	service := forecast.NewService(forecast.Dependencies{
		Confs:     inventory.NewGeneralConfRepository(db.Pool),
		Products:  inventory.NewProductPropsRepository(db.Pool),
		Batches:   inventory.NewProductBatchRepository(db.Pool),
		History:   inventory.NewMovementHistoryRepository(db.Pool),
		Summaries: summaries,
		Cache:     redis.NewCache(rc, cachePrefix),
		Defaults:  cfg.Simulation,
	}, log.Zerolog())

	log.WithFields(map[string]interface{}{
		"env":   cfg.Env,
		"redis": rc.Enabled(),
	}).Debug("Dependencies initialized")

	return &deps{
		cfg:       cfg,
		log:       log,
		db:        db,
		redis:     rc,
		summaries: summaries,
		service:   service,
	}, nil
}

// Close releases the connections
func (d *deps) Close() {
	if err := d.redis.Close(); err != nil {
		d.log.WithError(err).Warn("Failed to close redis")
	}
	d.db.Close()
}
