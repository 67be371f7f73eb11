package simulation

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// StopReason tells why a run ended
type StopReason string

const (
	StopHorizon        StopReason = "horizon"         // settled day reached the horizon
	StopCalendarEnd    StopReason = "calendar_end"    // no next calendar date exists
	StopParameterError StopReason = "parameter_error" // a day failed to settle
	StopCancelled      StopReason = "cancelled"       // context cancelled between days
)

// RunResult is the ordered sequence of settled days of one run.
// A run stopped early still carries every day settled before the stop.
type RunResult struct {
	Days []Day      `json:"days"`
	Stop StopReason `json:"stop"`
	Err  error      `json:"-"`
}

// Last returns the final settled day and false when the run produced none.
func (r RunResult) Last() (Day, bool) {
	if len(r.Days) == 0 {
		return Day{}, false
	}
	return r.Days[len(r.Days)-1], true
}

// Partial reports whether the run ended before reaching its horizon.
func (r RunResult) Partial() bool {
	return r.Stop != StopHorizon
}

// Runner drives runs of the day stepper against fixed parameters
type Runner struct {
	params Parameters
	log    zerolog.Logger
}

// NewRunner creates a runner for params
func NewRunner(params Parameters, log zerolog.Logger) *Runner {
	return &Runner{
		params: params,
		log:    log.With().Str("component", "simulation.runner").Logger(),
	}
}

// Parameters returns the runner's read-only parameters.
func (r *Runner) Parameters() Parameters {
	return r.params
}

// RunOnce unrolls a single run from initial until the horizon date.
// An initial day that is already settled is taken as the first day of the run.
func (r *Runner) RunOnce(ctx context.Context, initial Day, horizon time.Time) RunResult {
	horizon = DateOf(horizon)
	current := initial
	current.Date = DateOf(current.Date)

	var result RunResult
	for {
		if err := ctx.Err(); err != nil {
			result.Stop = StopCancelled
			result.Err = err
			break
		}

		settled := current
		if !current.Settled {
			var err error
			settled, err = Settle(current, r.params)
			if err != nil {
				r.log.Warn().Err(err).Time("date", current.Date).Int("days", len(result.Days)).
					Msg("day settlement failed, stopping run")
				result.Stop = StopParameterError
				result.Err = err
				break
			}
		}
		result.Days = append(result.Days, settled)

		r.log.Debug().
			Time("date", settled.Date).
			Int("batches", len(settled.Batches)).
			Str("stock", settled.Stock().String()).
			Bool("shortage", settled.Shortage.Valid).
			Bool("over_capacity", settled.OverCapacity.Valid).
			Bool("expired", settled.Expired.Valid).
			Msg("day settled")

		if !settled.Date.Before(horizon) {
			result.Stop = StopHorizon
			break
		}

		next, ok := settled.next()
		if !ok {
			result.Stop = StopCalendarEnd
			break
		}
		current = next
	}

	return result
}
