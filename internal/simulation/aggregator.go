package simulation

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// DailyOutcomeSummary holds, for one date, the share of runs that showed each loss mode.
type DailyOutcomeSummary struct {
	Date    time.Time `json:"date"`
	Runs    int       `json:"runs"`     // runs that produced this date
	Missing float64   `json:"missing"`  // stock-out
	NoSpace float64   `json:"no_space"` // over-capacity
	Expired float64   `json:"expired"`  // expiration
}

// HasLoss reports whether any probability is above zero.
func (s DailyOutcomeSummary) HasLoss() bool {
	return s.Missing > 0 || s.NoSpace > 0 || s.Expired > 0
}

// Outcomes maps each simulated date to its summary
type Outcomes map[time.Time]DailyOutcomeSummary

// Dates returns the dates in ascending order.
func (o Outcomes) Dates() []time.Time {
	dates := make([]time.Time, 0, len(o))
	for d := range o {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// Sorted returns the summaries in ascending date order.
func (o Outcomes) Sorted() []DailyOutcomeSummary {
	dates := o.Dates()
	out := make([]DailyOutcomeSummary, 0, len(dates))
	for _, d := range dates {
		out = append(out, o[d])
	}
	return out
}

// PeriodOutcome rolls the daily summaries of a window into one record.
// Each probability is the highest daily probability of that loss mode.
type PeriodOutcome struct {
	Start         time.Time  `json:"start"`
	End           time.Time  `json:"end"`
	Missing       float64    `json:"missing"`
	NoSpace       float64    `json:"no_space"`
	Expired       float64    `json:"expired"`
	FirstLossDate *time.Time `json:"first_loss_date,omitempty"`
}

// Period summarizes the whole window. ok is false for empty outcomes.
func (o Outcomes) Period() (PeriodOutcome, bool) {
	daily := o.Sorted()
	if len(daily) == 0 {
		return PeriodOutcome{}, false
	}

	p := PeriodOutcome{
		Start: daily[0].Date,
		End:   daily[len(daily)-1].Date,
	}
	for _, s := range daily {
		p.Missing = max(p.Missing, s.Missing)
		p.NoSpace = max(p.NoSpace, s.NoSpace)
		p.Expired = max(p.Expired, s.Expired)
		if p.FirstLossDate == nil && s.HasLoss() {
			date := s.Date
			p.FirstLossDate = &date
		}
	}
	return p, true
}

// Aggregate executes RunOnce runs times with the same inputs and reduces every
// date produced by any run to its loss probabilities. Runs stopped early by a
// parameter error or the calendar end still contribute the days they settled;
// a cancelled context fails the whole aggregation. Zero runs yield empty outcomes.
func (r *Runner) Aggregate(ctx context.Context, initial Day, horizon time.Time, runs int) (Outcomes, error) {
	if runs < 0 {
		return nil, fmt.Errorf("%w: runs must not be negative, got %d", ErrParameter, runs)
	}

	counters := make(map[time.Time]*dayCounter)
	partial := 0
	for n := 0; n < runs; n++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("aggregate cancelled after %d runs: %w", n, err)
		}

		result := r.RunOnce(ctx, initial, horizon)
		if result.Stop == StopCancelled {
			return nil, fmt.Errorf("aggregate cancelled during run %d: %w", n+1, result.Err)
		}
		if result.Partial() {
			partial++
		}
		for _, day := range result.Days {
			c, ok := counters[day.Date]
			if !ok {
				c = &dayCounter{date: day.Date}
				counters[day.Date] = c
			}
			c.add(day)
		}
	}

	outcomes := make(Outcomes, len(counters))
	for date, c := range counters {
		s, err := c.summarize()
		if err != nil {
			return nil, err
		}
		outcomes[date] = s
	}

	r.log.Info().
		Int("runs", runs).
		Int("partial_runs", partial).
		Int("dates", len(outcomes)).
		Msg("aggregation completed")

	return outcomes, nil
}

type dayCounter struct {
	date    time.Time
	total   int
	missing int
	noSpace int
	expired int
}

func (c *dayCounter) add(d Day) {
	c.total++
	if d.Shortage.Valid {
		c.missing++
	}
	if d.OverCapacity.Valid {
		c.noSpace++
	}
	if d.Expired.Valid {
		c.expired++
	}
}

func (c *dayCounter) summarize() (DailyOutcomeSummary, error) {
	if c.total == 0 {
		return DailyOutcomeSummary{}, fmt.Errorf("%w: no runs produced %s", ErrEmptyInput, c.date.Format("2006-01-02"))
	}

	total := float64(c.total)
	return DailyOutcomeSummary{
		Date:    c.date,
		Runs:    c.total,
		Missing: float64(c.missing) / total,
		NoSpace: float64(c.noSpace) / total,
		Expired: float64(c.expired) / total,
	}, nil
}
