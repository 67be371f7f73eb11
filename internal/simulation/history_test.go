package simulation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewHistoricalIndex_GroupsByWeekAndDay(t *testing.T) {
	records := []MovementRecord{
		{WeekOfYear: 32, DayOfWeek: 0, Entry: decimal.RequireFromString("52.5000"), Withdrawal: decimal.RequireFromString("73.3333")},
		{WeekOfYear: 32, DayOfWeek: 1, Entry: decimal.RequireFromString("58.3333"), Withdrawal: decimal.RequireFromString("82.1666")},
		{WeekOfYear: 32, DayOfWeek: 2, Entry: decimal.RequireFromString("49.8333"), Withdrawal: decimal.RequireFromString("65.5000")},
		{WeekOfYear: 33, DayOfWeek: 3, Entry: decimal.RequireFromString("75.5000"), Withdrawal: decimal.RequireFromString("56.1666")},
	}

	idx := NewHistoricalIndex(records)

	assert.Equal(t, 4, idx.Len())

	// 2023-08-06 is the Sunday of ISO week 31, 2023-08-13 of week 32
	rec := idx.Lookup(date(2023, time.August, 13))
	assert.True(t, rec.Entry.Equal(decimal.RequireFromString("52.5")), "entry = %s", rec.Entry)
	assert.True(t, rec.Withdrawal.Equal(decimal.RequireFromString("73.3333")))

	// 2023-08-16 is the Wednesday of ISO week 33
	rec = idx.Lookup(date(2023, time.August, 16))
	assert.True(t, rec.Withdrawal.Equal(decimal.RequireFromString("56.1666")))
}

func TestHistoricalIndex_FirstDuplicateWins(t *testing.T) {
	idx := NewHistoricalIndex([]MovementRecord{
		movement(1, 1, 10, 20),
		movement(1, 1, 99, 99),
	})

	rec := idx.Lookup(date(2024, time.January, 1))

	assert.Equal(t, 1, idx.Len())
	assert.True(t, rec.Entry.Equal(qty(10)))
	assert.True(t, rec.Withdrawal.Equal(qty(20)))
}

func TestHistoricalIndex_MissFallsBackToZero(t *testing.T) {
	tests := []struct {
		name    string
		records []MovementRecord
		date    time.Time
	}{
		{"empty index", nil, date(2024, time.January, 1)},
		{"unknown week", []MovementRecord{movement(1, 1, 5, 5)}, date(2024, time.March, 4)},
		{"unknown day in known week", []MovementRecord{movement(1, 1, 5, 5)}, date(2024, time.January, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewHistoricalIndex(tt.records).Lookup(tt.date)
			assert.True(t, rec.Entry.IsZero())
			assert.True(t, rec.Withdrawal.IsZero())
		})
	}
}

func TestHistoricalIndex_LookupIsPure(t *testing.T) {
	idx := NewHistoricalIndex(firstTenDays2024(10, 5))
	d := date(2024, time.January, 8)

	first := idx.Lookup(d)
	second := idx.Lookup(d)

	assert.Equal(t, first, second)
}

func TestCalendarSlot(t *testing.T) {
	tests := []struct {
		date     time.Time
		wantWeek int
		wantDow  int
	}{
		{date(2024, time.January, 1), 1, 1},
		{date(2024, time.January, 7), 1, 0},
		{date(2023, time.January, 1), 52, 0}, // belongs to ISO week 52 of 2022
		{date(2020, time.December, 31), 53, 4},
	}

	for _, tt := range tests {
		t.Run(tt.date.Format("2006-01-02"), func(t *testing.T) {
			week, dow := CalendarSlot(tt.date)
			assert.Equal(t, tt.wantWeek, week)
			assert.Equal(t, tt.wantDow, dow)
		})
	}
}
