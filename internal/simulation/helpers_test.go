package simulation

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func qty(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func movement(week, dow int, entry, withdrawal int64) MovementRecord {
	return MovementRecord{
		WeekOfYear: week,
		DayOfWeek:  dow,
		Entry:      qty(entry),
		Withdrawal: qty(withdrawal),
	}
}

// dailyHistory builds one record per date in [from, to] with the same movement.
func dailyHistory(from, to time.Time, entry, withdrawal int64) []MovementRecord {
	var records []MovementRecord
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		week, dow := CalendarSlot(d)
		records = append(records, movement(week, dow, entry, withdrawal))
	}
	return records
}

// firstTenDays2024 is 2024-01-01 (Monday, ISO week 1) through 2024-01-10.
func firstTenDays2024(entry, withdrawal int64) []MovementRecord {
	return []MovementRecord{
		movement(1, 1, entry, withdrawal), // 2024-01-01 mon
		movement(1, 2, entry, withdrawal), // 2024-01-02 tue
		movement(1, 3, entry, withdrawal), // 2024-01-03 wed
		movement(1, 4, entry, withdrawal), // 2024-01-04 thu
		movement(1, 5, entry, withdrawal), // 2024-01-05 fri
		movement(1, 6, entry, withdrawal), // 2024-01-06 sat
		movement(1, 0, entry, withdrawal), // 2024-01-07 sun
		movement(2, 1, entry, withdrawal), // 2024-01-08 mon
		movement(2, 2, entry, withdrawal), // 2024-01-09 tue
		movement(2, 3, entry, withdrawal), // 2024-01-10 wed
	}
}

func initialBatches() []Batch {
	return []Batch{{
		Quantity:  qty(100),
		EntryDate: date(2023, time.December, 31),
		Deadline:  date(2024, time.January, 11),
	}}
}

func newTestRunner(t *testing.T, capacity int64, lifetime int, records []MovementRecord) *Runner {
	t.Helper()
	params, err := NewParameters(capacity, lifetime, NewHistoricalIndex(records))
	require.NoError(t, err)
	return NewRunner(params, zerolog.Nop())
}

func quantities(batches []Batch) []string {
	out := make([]string, len(batches))
	for i, b := range batches {
		out[i] = b.Quantity.String()
	}
	return out
}
