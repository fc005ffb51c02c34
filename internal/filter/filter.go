// Package filter selects contribution subsets by closed date and amount
// intervals.
package filter

import "contribs/internal/core"

// Range is a pair of closed intervals: [From, To] on the transfer date and
// [Min, Max] on the amount. A record is kept iff it satisfies both.
type Range struct {
	From core.Date
	To   core.Date
	Min  core.Money
	Max  core.Money
}

// Bounds returns the full observed range of the record set, the default
// interval when the caller specifies none. The zero Range is returned for an
// empty set.
func Bounds(records []core.Contribution) Range {
	if len(records) == 0 {
		return Range{}
	}
	r := Range{
		From: records[0].TransferDate,
		To:   records[0].TransferDate,
		Min:  records[0].Amount,
		Max:  records[0].Amount,
	}
	for _, c := range records[1:] {
		if c.TransferDate.Before(r.From.Time) {
			r.From = c.TransferDate
		}
		if c.TransferDate.After(r.To.Time) {
			r.To = c.TransferDate
		}
		if c.Amount.Cents < r.Min.Cents {
			r.Min = c.Amount
		}
		if c.Amount.Cents > r.Max.Cents {
			r.Max = c.Amount
		}
	}
	return r
}

// Contains reports whether a single record falls inside the range.
func (r Range) Contains(c core.Contribution) bool {
	d := c.TransferDate
	if d.Before(r.From.Time) || d.After(r.To.Time) {
		return false
	}
	return c.Amount.Cents >= r.Min.Cents && c.Amount.Cents <= r.Max.Cents
}

// Apply returns the records inside the range, preserving input order. An
// empty result is valid, not an error.
func Apply(records []core.Contribution, r Range) []core.Contribution {
	out := make([]core.Contribution, 0, len(records))
	for _, c := range records {
		if r.Contains(c) {
			out = append(out, c)
		}
	}
	return out
}
