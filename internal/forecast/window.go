package forecast

import (
	"fmt"
	"time"

	"github.com/wonny/stocksim/internal/simulation"
)

// MaxWeek is the highest ISO week number
const MaxWeek = 53

// ResolveWindow returns the first and last simulated dates for a forecast of
// days days starting at reference.
func ResolveWindow(reference time.Time, days int) (time.Time, time.Time, error) {
	if days < 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: forecast days must not be negative, got %d", simulation.ErrParameter, days)
	}

	start := simulation.DateOf(reference)
	end := start.AddDate(0, 0, days)
	if end.After(simulation.MaxDate) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s + %d days overflows the calendar",
			simulation.ErrParameter, start.Format(DateLayout), days)
	}

	return start, end, nil
}

// WeeksBetween lists ISO weeks from initial to final inclusive, wrapping after week 53.
func WeeksBetween(initial, final int) []int {
	if initial == final {
		return []int{initial}
	}

	end := final
	if final < initial {
		end = final + MaxWeek
	}

	weeks := make([]int, 0, end-initial+1)
	for w := initial; w <= end; w++ {
		if w > MaxWeek {
			weeks = append(weeks, w-MaxWeek)
			continue
		}
		weeks = append(weeks, w)
	}
	return weeks
}

// WeeksForWindow lists the ISO weeks touched by [start, end]. A window of a
// year or more needs every week, and so does one that ends in the week it
// started after wrapping around the year.
func WeeksForWindow(start, end time.Time) []int {
	span := end.Sub(start)
	if span >= 52*oneWeek {
		return WeeksBetween(1, MaxWeek)
	}

	_, initial := start.ISOWeek()
	_, final := end.ISOWeek()
	if initial == final && span >= oneWeek {
		return WeeksBetween(1, MaxWeek)
	}
	return WeeksBetween(initial, final)
}

const oneWeek = 7 * 24 * time.Hour

// DateLayout is the calendar date format used on every input surface
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}
