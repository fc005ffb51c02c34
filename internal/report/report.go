// Package report computes presentation-ready summaries from a filtered
// contribution set: totals, time-bucketed series for charting, and amount
// histograms. The package works on plain records and returns plain data; it
// knows nothing about rendering.
package report

import (
	"errors"
	"time"

	"contribs/internal/core"
)

// Bucket is a calendar-aligned aggregation interval.
type Bucket string

const (
	BucketDay   Bucket = "day"
	BucketWeek  Bucket = "week"
	BucketMonth Bucket = "month"
)

var ErrUnknownBucket = errors.New("unknown bucket")

// ParseBucket validates a bucket name from request input.
func ParseBucket(s string) (Bucket, error) {
	switch Bucket(s) {
	case BucketDay, BucketWeek, BucketMonth:
		return Bucket(s), nil
	}
	return "", ErrUnknownBucket
}

// SeriesPoint is one bucket of the time series: the bucket start date, the
// amount sum, and the record count inside it.
type SeriesPoint struct {
	Start core.Date
	Sum   core.Money
	Count int
}

// Bin is one interval of an amount histogram. Intervals are left-closed; the
// last bin is closed on both ends so the maximum lands inside it.
type Bin struct {
	From  core.Money
	To    core.Money
	Count int
}

// Total sums the amounts of the set. Zero for an empty set.
func Total(set []core.Contribution) core.Money {
	var sum int64
	for _, c := range set {
		sum += c.Amount.Cents
	}
	return core.Money{Cents: sum}
}

// Mean is the arithmetic mean amount, rounded half up to the cent.
// It returns zero Money for an empty set.
func Mean(set []core.Contribution) core.Money {
	if len(set) == 0 {
		return core.Money{}
	}
	n := int64(len(set))
	return core.Money{Cents: (Total(set).Cents + n/2) / n}
}

// Count is the cardinality of the set.
func Count(set []core.Contribution) int {
	return len(set)
}

// Series groups the set by calendar bucket. Buckets with no records are
// emitted with zero sum and count so the series spans the whole observed
// range without gaps. Weeks start on Monday, months on the 1st. The result
// is ordered by bucket start ascending; an empty set yields an empty series.
func Series(set []core.Contribution, b Bucket) []SeriesPoint {
	if len(set) == 0 {
		return nil
	}

	sums := make(map[time.Time]*SeriesPoint)
	first := bucketStart(set[0].TransferDate.Time, b)
	last := first
	for _, c := range set {
		start := bucketStart(c.TransferDate.Time, b)
		if start.Before(first) {
			first = start
		}
		if start.After(last) {
			last = start
		}
		p, ok := sums[start]
		if !ok {
			p = &SeriesPoint{Start: core.Date{Time: start}}
			sums[start] = p
		}
		p.Sum.Cents += c.Amount.Cents
		p.Count++
	}

	var out []SeriesPoint
	for cur := first; !cur.After(last); cur = nextBucket(cur, b) {
		if p, ok := sums[cur]; ok {
			out = append(out, *p)
		} else {
			out = append(out, SeriesPoint{Start: core.Date{Time: cur}})
		}
	}
	return out
}

// Histogram partitions the amount range into bins equal-width intervals and
// counts records per interval. All records fall into a single bin when every
// amount is identical. An empty set or bins < 1 yields nil.
func Histogram(set []core.Contribution, bins int) []Bin {
	if len(set) == 0 || bins < 1 {
		return nil
	}

	min, max := set[0].Amount.Cents, set[0].Amount.Cents
	for _, c := range set[1:] {
		if c.Amount.Cents < min {
			min = c.Amount.Cents
		}
		if c.Amount.Cents > max {
			max = c.Amount.Cents
		}
	}

	if min == max {
		return []Bin{{From: core.Money{Cents: min}, To: core.Money{Cents: max}, Count: len(set)}}
	}

	span := float64(max - min)
	width := span / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].From = core.Money{Cents: min + int64(width*float64(i)+0.5)}
		out[i].To = core.Money{Cents: min + int64(width*float64(i+1)+0.5)}
	}
	out[bins-1].To = core.Money{Cents: max}

	for _, c := range set {
		idx := int(float64(c.Amount.Cents-min) / width)
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	return out
}

// bucketStart truncates a date to the start of its bucket.
func bucketStart(t time.Time, b Bucket) time.Time {
	switch b {
	case BucketWeek:
		// Roll back to Monday.
		offset := (int(t.Weekday()) + 6) % 7
		t = t.AddDate(0, 0, -offset)
	case BucketMonth:
		t = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func nextBucket(t time.Time, b Bucket) time.Time {
	switch b {
	case BucketWeek:
		return t.AddDate(0, 0, 7)
	case BucketMonth:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}
