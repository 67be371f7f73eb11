package simulation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Settle runs the three phases of a day in order: withdraw, enter, expire.
// The input day is left untouched; the returned day owns its batches.
func Settle(day Day, params Parameters) (Day, error) {
	if params.History == nil {
		return Day{}, fmt.Errorf("%w: missing historical index", ErrParameter)
	}
	for i, b := range day.Batches {
		if b.Quantity.IsNegative() {
			return Day{}, fmt.Errorf("%w: batch %d has negative quantity %s", ErrParameter, i, b.Quantity)
		}
	}

	rec := params.History.Lookup(day.Date)
	if rec.Entry.IsNegative() || rec.Withdrawal.IsNegative() {
		return Day{}, fmt.Errorf("%w: negative history on %s (entry %s, withdrawal %s)",
			ErrParameter, day.Date.Format("2006-01-02"), rec.Entry, rec.Withdrawal)
	}

	settled := Day{
		Date:    day.Date,
		Batches: cloneBatches(day.Batches),
	}

	settled.withdraw(rec.Withdrawal)
	if err := settled.enter(rec.Entry, params); err != nil {
		return Day{}, err
	}
	settled.expire()
	settled.Settled = true

	return settled, nil
}

// withdraw consumes required from the oldest batches first.
// A batch whose quantity does not exceed what is still required is removed.
func (d *Day) withdraw(required decimal.Decimal) {
	for required.IsPositive() && len(d.Batches) > 0 {
		front := &d.Batches[0]
		if front.Quantity.GreaterThan(required) {
			front.Quantity = front.Quantity.Sub(required)
			required = decimal.Zero
			break
		}
		required = required.Sub(front.Quantity)
		d.Batches = d.Batches[1:]
	}

	if required.IsPositive() {
		d.Shortage = someDecimal(required)
	}
}

// enter admits the desired quantity as a new batch, capped by the free capacity.
func (d *Day) enter(desired decimal.Decimal, params Parameters) error {
	headroom := params.Capacity.Sub(sumQuantity(d.Batches))
	if headroom.IsNegative() {
		headroom = decimal.Zero
	}

	admitted := desired
	if desired.GreaterThan(headroom) {
		admitted = headroom
		d.OverCapacity = someDecimal(desired.Sub(headroom))
	}

	if !admitted.IsPositive() {
		return nil
	}

	deadline, err := addDays(d.Date, params.LifetimeDays)
	if err != nil {
		return fmt.Errorf("new batch deadline: %w", err)
	}
	d.Batches = append(d.Batches, Batch{
		Quantity:  admitted,
		EntryDate: d.Date,
		Deadline:  deadline,
	})
	return nil
}

// expire drops every batch whose deadline is strictly before the day's date.
func (d *Day) expire() {
	removed := decimal.Zero
	kept := d.Batches[:0]
	for _, b := range d.Batches {
		if b.Deadline.Before(d.Date) {
			removed = removed.Add(b.Quantity)
			continue
		}
		kept = append(kept, b)
	}
	d.Batches = kept

	if removed.IsPositive() {
		d.Expired = someDecimal(removed)
	}
}
