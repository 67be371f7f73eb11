package jobs

import (
	"context"
	"time"

	"github.com/wonny/stocksim/internal/forecast"
	"github.com/wonny/stocksim/pkg/logger"
)

// Forecaster runs the forecast of every active product
type Forecaster interface {
	RunActive(ctx context.Context, reference time.Time, runs int) (*forecast.BatchReport, error)
}

// SimulationJob forecasts every active product once a day
type SimulationJob struct {
	forecaster Forecaster
	schedule   string
	runs       int
	now        func() time.Time
	logger     *logger.Logger
}

// NewSimulationJob creates the daily simulation job
func NewSimulationJob(forecaster Forecaster, schedule string, runs int, log *logger.Logger) *SimulationJob {
	return &SimulationJob{
		forecaster: forecaster,
		schedule:   schedule,
		runs:       runs,
		now:        time.Now,
		logger:     log,
	}
}

// Name returns the job name
func (j *SimulationJob) Name() string {
	return "simulation_daily"
}

// Schedule returns the configured cron schedule (SIM_SCHEDULE)
func (j *SimulationJob) Schedule() string {
	return j.schedule
}

// Run forecasts from today. Partial failures are logged, not retried, so
// products that already succeeded do not get a second summary. The job only
// fails when nothing succeeded.
func (j *SimulationJob) Run(ctx context.Context) error {
	today := j.now()
	j.logger.WithField("date", today.Format(forecast.DateLayout)).Info("Starting scheduled simulation")

	report, err := j.forecaster.RunActive(ctx, today, j.runs)
	if report == nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"succeeded": len(report.Succeeded),
		"failed":    len(report.Failed),
	}).Info("Scheduled simulation finished")

	if err != nil && len(report.Succeeded) > 0 {
		j.logger.WithError(err).Warn("Some products failed")
		return nil
	}
	return err
}
