package scenario

import (
	"fmt"
)

// ValidationError names the offending field of a scenario
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a decoded scenario. Every value ToInputs needs must parse.
func Validate(f *File) error {
	if f.Start == "" {
		return ValidationError{"start", "required"}
	}
	if f.End != "" && f.ForecastDays != 0 {
		return ValidationError{"end", "set either end or forecast_days, not both"}
	}
	if f.ForecastDays < 0 {
		return ValidationError{"forecast_days", "must be >= 0"}
	}
	if f.Capacity <= 0 {
		return ValidationError{"capacity", "must be > 0"}
	}
	if f.LifetimeDays <= 0 {
		return ValidationError{"lifetime_days", "must be > 0"}
	}
	if f.Runs <= 0 {
		return ValidationError{"runs", "must be > 0"}
	}

	for i, m := range f.History {
		if m.Week < 1 || m.Week > 53 {
			return ValidationError{fmt.Sprintf("history[%d].week", i), "must be in [1, 53]"}
		}
		if m.DayOfWeek < 0 || m.DayOfWeek > 6 {
			return ValidationError{fmt.Sprintf("history[%d].day_of_week", i), "must be in [0, 6] with Sunday = 0"}
		}
	}

	in, err := f.ToInputs()
	if err != nil {
		return err
	}

	for i, b := range in.Batches {
		if !b.Quantity.IsPositive() {
			return ValidationError{fmt.Sprintf("batches[%d].quantity", i), "must be > 0"}
		}
		if b.Deadline.Before(b.EntryDate) {
			return ValidationError{fmt.Sprintf("batches[%d].deadline", i), "must not be before entry_date"}
		}
	}

	return nil
}
