package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/wonny/stocksim/internal/contracts"
	"github.com/wonny/stocksim/internal/simulation"
	"github.com/wonny/stocksim/pkg/config"
	"github.com/wonny/stocksim/pkg/redis"
)

// ErrInactiveProduct is returned when a forecast is requested for a disabled product
var ErrInactiveProduct = errors.New("product is not active")

// Inputs is everything one forecast needs, already resolved from storage or a file
type Inputs struct {
	ProductID         uuid.UUID                   `json:"product_id"`
	Start             time.Time                   `json:"start"`
	End               time.Time                   `json:"end"`
	Capacity          int64                       `json:"capacity"`
	LifetimeDays      int                         `json:"lifetime_days"`
	RandomRangeFactor decimal.Decimal             `json:"random_range_factor"`
	Batches           []simulation.Batch          `json:"batches"`
	History           []simulation.MovementRecord `json:"history"`
}

// Result is the outcome of one forecast
type Result struct {
	Inputs   *Inputs                          `json:"inputs"`
	Runs     int                              `json:"runs"`
	Outcomes []simulation.DailyOutcomeSummary `json:"outcomes"`
	Summary  contracts.SimulationSummary      `json:"summary"`
}

// Dependencies wires the service to its stores. Summaries and Cache are optional.
type Dependencies struct {
	Confs     contracts.GeneralConfRepository
	Products  contracts.ProductPropsRepository
	Batches   contracts.ProductBatchRepository
	History   contracts.MovementHistoryRepository
	Summaries contracts.SummaryRepository
	Cache     *redis.Cache
	Defaults  config.SimulationConfig
}

// Service prepares inputs, runs the engine and stores summaries
type Service struct {
	deps Dependencies
	base zerolog.Logger // handed to engine runners
	log  zerolog.Logger
}

// NewService creates a forecast service
func NewService(deps Dependencies, log zerolog.Logger) *Service {
	return &Service{
		deps: deps,
		base: log,
		log:  log.With().Str("component", "forecast.service").Logger(),
	}
}

// Prepare loads the inputs of a product forecast starting at reference
func (s *Service) Prepare(ctx context.Context, productID uuid.UUID, reference time.Time) (*Inputs, error) {
	conf, err := s.generalConf(ctx)
	if err != nil {
		return nil, err
	}

	props, err := s.deps.Products.FindOne(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}
	if !props.Active {
		return nil, fmt.Errorf("product %s: %w", productID, ErrInactiveProduct)
	}

	start, end, err := ResolveWindow(reference, props.ForecastDays(conf))
	if err != nil {
		return nil, err
	}

	weeks := WeeksForWindow(start, end)
	history, err := s.movementHistory(ctx, productID, weeks)
	if err != nil {
		return nil, err
	}

	stored, err := s.deps.Batches.FindAllByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load batches: %w", err)
	}

	capacity := props.MaximumQuantity
	if capacity <= 0 {
		capacity = s.deps.Defaults.StockLimit
	}

	in := &Inputs{
		ProductID:         productID,
		Start:             start,
		End:               end,
		Capacity:          capacity,
		LifetimeDays:      props.LifetimeDays(s.deps.Defaults.BatchLifetimeDays),
		RandomRangeFactor: props.RandomRangeFactor(conf),
		Batches:           ToSimulationBatches(stored),
		History:           history,
	}

	s.log.Debug().
		Str("product_id", productID.String()).
		Time("start", start).
		Time("end", end).
		Ints("weeks", weeks).
		Int("batches", len(in.Batches)).
		Int("history", len(in.History)).
		Msg("forecast inputs prepared")

	return in, nil
}

// RunFromInputs runs the engine runs times over in without touching storage
func (s *Service) RunFromInputs(ctx context.Context, in *Inputs, runs int) (*Result, error) {
	params, err := simulation.NewParameters(in.Capacity, in.LifetimeDays, simulation.NewHistoricalIndex(in.History))
	if err != nil {
		return nil, err
	}

	runner := simulation.NewRunner(params, s.base)
	outcomes, err := runner.Aggregate(ctx, simulation.NewDay(in.Start, in.Batches), in.End, runs)
	if err != nil {
		return nil, fmt.Errorf("aggregate runs: %w", err)
	}

	return &Result{
		Inputs:   in,
		Runs:     runs,
		Outcomes: outcomes.Sorted(),
		Summary:  BuildSummary(in.ProductID, in.Start, in.End, outcomes),
	}, nil
}

// Run prepares, simulates and stores the forecast of one product
func (s *Service) Run(ctx context.Context, productID uuid.UUID, reference time.Time, runs int) (*Result, error) {
	start := time.Now()

	in, err := s.Prepare(ctx, productID, reference)
	if err != nil {
		return nil, err
	}

	result, err := s.RunFromInputs(ctx, in, runs)
	if err != nil {
		return nil, err
	}

	if s.deps.Summaries != nil {
		if _, err := s.deps.Summaries.Save(ctx, &result.Summary); err != nil {
			return nil, fmt.Errorf("save summary: %w", err)
		}
		s.cacheLatest(ctx, result.Summary)
	}

	s.log.Info().
		Str("product_id", productID.String()).
		Int64("summary_id", result.Summary.ID).
		Int("runs", runs).
		Str("missing", result.Summary.ProbabilityMissing.String()).
		Str("no_space", result.Summary.ProbabilityNoSpace.String()).
		Str("expired", result.Summary.ProbabilityExpired.String()).
		Dur("elapsed", time.Since(start)).
		Msg("forecast completed")

	return result, nil
}

// BatchReport lists what RunActive did per product
type BatchReport struct {
	Succeeded []uuid.UUID
	Failed    map[uuid.UUID]error
}

// RunActive forecasts every active product. One failing product does not
// stop the others; their errors are joined in the returned error.
func (s *Service) RunActive(ctx context.Context, reference time.Time, runs int) (*BatchReport, error) {
	products, err := s.deps.Products.FindAllByStatus(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("load active products: %w", err)
	}

	report := &BatchReport{Failed: make(map[uuid.UUID]error)}
	var errs []error
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if _, err := s.Run(ctx, p.ID, reference, runs); err != nil {
			s.log.Warn().Err(err).Str("product_id", p.ID.String()).Msg("forecast failed")
			report.Failed[p.ID] = err
			errs = append(errs, fmt.Errorf("product %s: %w", p.ID, err))
			continue
		}
		report.Succeeded = append(report.Succeeded, p.ID)
	}

	return report, errors.Join(errs...)
}

// LatestSummary returns the newest stored summary of a product, with its days
func (s *Service) LatestSummary(ctx context.Context, productID uuid.UUID) (*contracts.SimulationSummary, error) {
	key := redis.LatestSummaryKey(productID.String())

	if s.deps.Cache != nil {
		var cached contracts.SimulationSummary
		found, err := s.deps.Cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		if found {
			return &cached, nil
		}
	}

	if s.deps.Summaries == nil {
		return nil, fmt.Errorf("summaries of %s: %w", productID, contracts.ErrNotFound)
	}

	summaries, err := s.deps.Summaries.FindAllByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, fmt.Errorf("summaries of %s: %w", productID, contracts.ErrNotFound)
	}

	latest := summaries[0]
	if latest.Days, err = s.deps.Summaries.FindDays(ctx, latest.ID); err != nil {
		return nil, err
	}

	s.cacheLatest(ctx, latest)
	return &latest, nil
}

func (s *Service) generalConf(ctx context.Context) (contracts.GeneralConf, error) {
	conf, err := s.deps.Confs.FindLast(ctx)
	if err == nil {
		return *conf, nil
	}
	if !errors.Is(err, contracts.ErrNotFound) {
		return contracts.GeneralConf{}, fmt.Errorf("load general conf: %w", err)
	}

	s.log.Warn().Msg("no general conf row, using configured defaults")
	return contracts.GeneralConf{
		DefaultSimulationForecastDays: s.deps.Defaults.ForecastDays,
	}, nil
}

func (s *Service) movementHistory(ctx context.Context, productID uuid.UUID, weeks []int) ([]simulation.MovementRecord, error) {
	key := redis.MovementHistoryKey(productID.String(), weeks)

	if s.deps.Cache != nil {
		var cached []simulation.MovementRecord
		found, err := s.deps.Cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		if found {
			return cached, nil
		}
	}

	records, err := s.deps.History.AggregateByProductAndWeeks(ctx, productID, weeks)
	if err != nil {
		return nil, fmt.Errorf("load movement history: %w", err)
	}

	if s.deps.Cache != nil {
		if err := s.deps.Cache.Set(ctx, key, records, redis.TTLDaily); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}

	return records, nil
}

func (s *Service) cacheLatest(ctx context.Context, summary contracts.SimulationSummary) {
	if s.deps.Cache == nil {
		return
	}
	key := redis.LatestSummaryKey(summary.ProductID.String())
	if err := s.deps.Cache.Set(ctx, key, summary, redis.TTLLong); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// ToSimulationBatches converts stored batches to engine batches, keeping their order
func ToSimulationBatches(stored []contracts.ProductBatch) []simulation.Batch {
	batches := make([]simulation.Batch, 0, len(stored))
	for _, b := range stored {
		batches = append(batches, simulation.Batch{
			Quantity:  decimal.NewFromInt(b.Quantity),
			EntryDate: simulation.DateOf(b.EntryDate),
			Deadline:  simulation.DateOf(b.DeadlineDate),
		})
	}
	return batches
}
