package scenario

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/wonny/stocksim/internal/forecast"
	"github.com/wonny/stocksim/internal/simulation"
)

// Load reads and validates a scenario file. The raw bytes are returned for logging.
func Load(path string) (*File, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	f, err := Parse(data)
	if err != nil {
		return nil, data, fmt.Errorf("%s: %w", path, err)
	}
	return f, data, nil
}

// Parse decodes a scenario. Unknown fields are rejected so typos fail loudly.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}

	if err := Validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

// Hash returns the SHA-256 of the scenario's canonical JSON
func Hash(f *File) (string, error) {
	jsonBytes, err := json.Marshal(f)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// ToInputs converts a validated scenario into forecast inputs
func (f *File) ToInputs() (*forecast.Inputs, error) {
	productID := uuid.Nil
	if f.ProductID != "" {
		id, err := uuid.Parse(f.ProductID)
		if err != nil {
			return nil, ValidationError{"product_id", err.Error()}
		}
		productID = id
	}

	start, end, err := f.window()
	if err != nil {
		return nil, err
	}

	factor := decimal.Zero
	if f.RandomRangeFactor != "" {
		if factor, err = decimal.NewFromString(f.RandomRangeFactor); err != nil {
			return nil, ValidationError{"random_range_factor", err.Error()}
		}
	}

	batches := make([]simulation.Batch, 0, len(f.Batches))
	for i, b := range f.Batches {
		batch, err := b.toBatch()
		if err != nil {
			return nil, ValidationError{fmt.Sprintf("batches[%d]", i), err.Error()}
		}
		batches = append(batches, batch)
	}

	history, err := f.records()
	if err != nil {
		return nil, err
	}

	return &forecast.Inputs{
		ProductID:         productID,
		Start:             start,
		End:               end,
		Capacity:          f.Capacity,
		LifetimeDays:      f.LifetimeDays,
		RandomRangeFactor: factor,
		Batches:           batches,
		History:           history,
	}, nil
}

func (f *File) window() (start, end time.Time, err error) {
	start, err = forecast.ParseDate(f.Start)
	if err != nil {
		return start, end, ValidationError{"start", err.Error()}
	}

	days := f.ForecastDays
	if f.End != "" {
		last, err := forecast.ParseDate(f.End)
		if err != nil {
			return start, end, ValidationError{"end", err.Error()}
		}
		if last.Before(start) {
			return start, end, ValidationError{"end", "must not be before start"}
		}
		days = int(last.Sub(start).Hours() / 24)
	}

	start, end, err = forecast.ResolveWindow(start, days)
	if err != nil {
		return start, end, ValidationError{"forecast_days", err.Error()}
	}
	return start, end, nil
}

func (f *File) records() ([]simulation.MovementRecord, error) {
	records := make([]simulation.MovementRecord, 0, len(f.History))
	for i, m := range f.History {
		entry, withdrawal, err := parseMovement(m.Entry, m.Withdrawal)
		if err != nil {
			return nil, ValidationError{fmt.Sprintf("history[%d]", i), err.Error()}
		}
		records = append(records, simulation.MovementRecord{
			WeekOfYear: m.Week,
			DayOfWeek:  m.DayOfWeek,
			Entry:      entry,
			Withdrawal: withdrawal,
		})
	}

	for i, d := range f.Daily {
		field := fmt.Sprintf("daily[%d]", i)
		from, err := forecast.ParseDate(d.From)
		if err != nil {
			return nil, ValidationError{field + ".from", err.Error()}
		}
		to, err := forecast.ParseDate(d.To)
		if err != nil {
			return nil, ValidationError{field + ".to", err.Error()}
		}
		entry, withdrawal, err := parseMovement(d.Entry, d.Withdrawal)
		if err != nil {
			return nil, ValidationError{field, err.Error()}
		}

		for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
			week, dow := simulation.CalendarSlot(date)
			records = append(records, simulation.MovementRecord{
				WeekOfYear: week,
				DayOfWeek:  dow,
				Entry:      entry,
				Withdrawal: withdrawal,
			})
		}
	}

	return records, nil
}

func (b Batch) toBatch() (simulation.Batch, error) {
	quantity, err := parseQuantity(b.Quantity)
	if err != nil {
		return simulation.Batch{}, err
	}
	entry, err := forecast.ParseDate(b.EntryDate)
	if err != nil {
		return simulation.Batch{}, err
	}
	deadline, err := forecast.ParseDate(b.Deadline)
	if err != nil {
		return simulation.Batch{}, err
	}
	return simulation.Batch{Quantity: quantity, EntryDate: entry, Deadline: deadline}, nil
}

func parseMovement(entry, withdrawal string) (decimal.Decimal, decimal.Decimal, error) {
	e, err := parseQuantity(entry)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("entry: %w", err)
	}
	w, err := parseQuantity(withdrawal)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("withdrawal: %w", err)
	}
	return e, w, nil
}

// parseQuantity reads a non-negative quantity. Empty means zero.
func parseQuantity(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid quantity %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("quantity %s must not be negative", s)
	}
	return d, nil
}
