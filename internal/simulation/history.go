package simulation

import (
	"time"

	"github.com/shopspring/decimal"
)

// HistoricalIndex indexes average movements by ISO week-of-year and day-of-week.
// It is read-only after construction.
type HistoricalIndex struct {
	byWeek   map[int]map[int]HistoricalRecord
	fallback HistoricalRecord
	size     int
}

// NewHistoricalIndex builds the index. When records repeat a (week, day) key
// the first one wins and later duplicates are dropped.
func NewHistoricalIndex(records []MovementRecord) *HistoricalIndex {
	idx := &HistoricalIndex{
		byWeek: make(map[int]map[int]HistoricalRecord),
		fallback: HistoricalRecord{
			Entry:      decimal.Zero,
			Withdrawal: decimal.Zero,
		},
	}

	for _, r := range records {
		week, ok := idx.byWeek[r.WeekOfYear]
		if !ok {
			week = make(map[int]HistoricalRecord)
			idx.byWeek[r.WeekOfYear] = week
		}
		if _, exists := week[r.DayOfWeek]; exists {
			continue
		}
		week[r.DayOfWeek] = HistoricalRecord{Entry: r.Entry, Withdrawal: r.Withdrawal}
		idx.size++
	}

	return idx
}

// Lookup returns the record for date's calendar slot, or a zero movement
// record when the slot has no history.
func (h *HistoricalIndex) Lookup(date time.Time) HistoricalRecord {
	week, dow := CalendarSlot(date)
	if days, ok := h.byWeek[week]; ok {
		if rec, ok := days[dow]; ok {
			return rec
		}
	}
	return h.fallback
}

// Len returns the number of indexed (week, day) slots.
func (h *HistoricalIndex) Len() int {
	return h.size
}

// CalendarSlot returns the ISO week number and the day of week (Sunday = 0) of date.
func CalendarSlot(date time.Time) (week int, dayOfWeek int) {
	_, week = date.ISOWeek()
	return week, int(date.Weekday())
}
