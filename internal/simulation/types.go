package simulation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MaxDate is the last calendar date the engine can represent.
// Deadlines and next days beyond it are date-arithmetic overflows.
var MaxDate = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

const secondsPerDay = 24 * 60 * 60

// Batch is a quantity of stock with an entry date and an expiration deadline.
// Batches move between days by value.
type Batch struct {
	Quantity  decimal.Decimal `json:"quantity"`
	EntryDate time.Time       `json:"entry_date"`
	Deadline  time.Time       `json:"deadline"`
}

// HistoricalRecord holds the average movement for one calendar slot
type HistoricalRecord struct {
	Entry      decimal.Decimal `json:"entry"`
	Withdrawal decimal.Decimal `json:"withdrawal"`
}

// MovementRecord is a HistoricalRecord together with its calendar key.
// DayOfWeek follows time.Weekday: Sunday = 0 ... Saturday = 6.
type MovementRecord struct {
	WeekOfYear int             `json:"week_of_year"`
	DayOfWeek  int             `json:"day_of_week"`
	Entry      decimal.Decimal `json:"entry"`
	Withdrawal decimal.Decimal `json:"withdrawal"`
}

// Day is the simulated state of one calendar date.
// The loss markers are only valid when the loss mode occurred on that date.
type Day struct {
	Date         time.Time           `json:"date"`
	Batches      []Batch             `json:"batches"`
	Shortage     decimal.NullDecimal `json:"shortage"`
	OverCapacity decimal.NullDecimal `json:"over_capacity"`
	Expired      decimal.NullDecimal `json:"expired"`
	Settled      bool                `json:"settled"`
}

// NewDay creates a pending day holding a copy of batches.
func NewDay(date time.Time, batches []Batch) Day {
	return Day{
		Date:    DateOf(date),
		Batches: cloneBatches(batches),
	}
}

// Stock returns the sum of all batch quantities held by the day.
func (d Day) Stock() decimal.Decimal {
	return sumQuantity(d.Batches)
}

// HasLoss reports whether any loss marker is set.
func (d Day) HasLoss() bool {
	return d.Shortage.Valid || d.OverCapacity.Valid || d.Expired.Valid
}

// next builds the pending candidate for the following calendar date.
// ok is false when the calendar cannot advance.
func (d Day) next() (Day, bool) {
	date, err := addDays(d.Date, 1)
	if err != nil {
		return Day{}, false
	}
	return Day{Date: date, Batches: d.Batches}, true
}

// Parameters are the per-run constants shared read-only by every run.
type Parameters struct {
	Capacity     decimal.Decimal
	LifetimeDays int
	History      *HistoricalIndex
}

// NewParameters validates and builds run parameters
func NewParameters(capacity int64, lifetimeDays int, history *HistoricalIndex) (Parameters, error) {
	if capacity <= 0 {
		return Parameters{}, fmt.Errorf("%w: capacity must be positive, got %d", ErrParameter, capacity)
	}
	if lifetimeDays <= 0 {
		return Parameters{}, fmt.Errorf("%w: batch lifetime must be positive, got %d", ErrParameter, lifetimeDays)
	}
	if history == nil {
		history = NewHistoricalIndex(nil)
	}

	return Parameters{
		Capacity:     decimal.NewFromInt(capacity),
		LifetimeDays: lifetimeDays,
		History:      history,
	}, nil
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// addDays moves date forward by days, failing past MaxDate.
// time.Time.Sub saturates around 292 years, so the check works on unix days.
func addDays(date time.Time, days int) (time.Time, error) {
	if days < 0 {
		return time.Time{}, fmt.Errorf("%w: negative day offset %d", ErrParameter, days)
	}
	remaining := (MaxDate.Unix() - date.Unix()) / secondsPerDay
	if int64(days) > remaining {
		return time.Time{}, fmt.Errorf("%w: %s + %d days overflows the calendar",
			ErrParameter, date.Format("2006-01-02"), days)
	}
	return date.AddDate(0, 0, days), nil
}

func sumQuantity(batches []Batch) decimal.Decimal {
	total := decimal.Zero
	for _, b := range batches {
		total = total.Add(b.Quantity)
	}
	return total
}

func cloneBatches(batches []Batch) []Batch {
	out := make([]Batch, len(batches), len(batches)+1)
	copy(out, batches)
	return out
}

func someDecimal(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}
