package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"contribs/internal/core"
	"contribs/internal/report"
	"contribs/internal/services"
)

// ParseQuery extracts the dashboard query from URL parameters. Absent
// parameters stay nil and default to the observed bounds downstream.
// Supported parameters: from, to (dates), min, max (amounts), bucket
// (day|week|month), bins (histogram bin count).
func ParseQuery(query url.Values) (services.Query, error) {
	var q services.Query

	if v := strings.TrimSpace(query.Get("from")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return q, fmt.Errorf("parameter 'from': %w", err)
		}
		q.From = &d
	}
	if v := strings.TrimSpace(query.Get("to")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return q, fmt.Errorf("parameter 'to': %w", err)
		}
		q.To = &d
	}
	if q.From != nil && q.To != nil && q.To.Before(q.From.Time) {
		return q, fmt.Errorf("parameter 'to' precedes 'from'")
	}

	if v := strings.TrimSpace(query.Get("min")); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			return q, fmt.Errorf("parameter 'min': %w", err)
		}
		q.Min = &core.Money{Cents: cents}
	}
	if v := strings.TrimSpace(query.Get("max")); v != "" {
		cents, err := core.ParseDecimalToCents(v)
		if err != nil {
			return q, fmt.Errorf("parameter 'max': %w", err)
		}
		q.Max = &core.Money{Cents: cents}
	}
	if q.Min != nil && q.Max != nil && q.Max.Cents < q.Min.Cents {
		return q, fmt.Errorf("parameter 'max' below 'min'")
	}

	if v := strings.TrimSpace(query.Get("bucket")); v != "" {
		bucket, err := report.ParseBucket(v)
		if err != nil {
			return q, fmt.Errorf("parameter 'bucket': %w", err)
		}
		q.Bucket = bucket
	}

	if v := strings.TrimSpace(query.Get("bins")); v != "" {
		bins, err := strconv.Atoi(v)
		if err != nil || bins < 1 || bins > 200 {
			return q, fmt.Errorf("parameter 'bins': must be an integer between 1 and 200")
		}
		q.Bins = bins
	}

	return q, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}
