// Package services orchestrates the contribution pipeline: ingestion into
// the store, manual entry, and the load-filter-aggregate read path served to
// the presentation layer.
package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"contribs/internal/amqp"
	"contribs/internal/core"
	"contribs/internal/filter"
	"contribs/internal/ingest"
	"contribs/internal/report"

	"github.com/google/uuid"
)

// Store is the record store port used by the service.
type Store interface {
	Append(ctx context.Context, c core.Contribution) (int64, error)
	AppendBatch(ctx context.Context, records []core.Contribution) (int, error)
	LoadAll(ctx context.Context) ([]core.Contribution, error)
}

// CheckpointPublisher requests a remote mirror checkpoint after writes.
type CheckpointPublisher interface {
	PublishCheckpoint(ctx context.Context, msg *amqp.CheckpointMessage) error
}

// ContributionService wires the store and the checkpoint queue together.
// The publisher may be nil when no mirror is configured.
type ContributionService struct {
	store     Store
	publisher CheckpointPublisher
}

func NewContributionService(store Store, publisher CheckpointPublisher) *ContributionService {
	return &ContributionService{store: store, publisher: publisher}
}

// Add persists a single manually entered record and requests a checkpoint.
func (s *ContributionService) Add(ctx context.Context, c core.Contribution) (int64, error) {
	id, err := s.store.Append(ctx, c)
	if err != nil {
		return 0, fmt.Errorf("save contribution: %w", err)
	}

	s.requestCheckpoint(ctx, uuid.NewString(), amqp.ReasonManualEntry, 1)
	return id, nil
}

// IngestResult reports the outcome of a file upload.
type IngestResult struct {
	BatchID  string
	Accepted int
	Dropped  int
	Total    int
}

// Ingest validates an uploaded tabular file (CSV or Excel, chosen by the file
// name extension) and appends the accepted records in one atomic batch. A
// validation or storage failure leaves the store unchanged.
func (s *ContributionService) Ingest(ctx context.Context, filename string, r io.Reader) (IngestResult, error) {
	var (
		res ingest.Result
		err error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		res, err = ingest.ReadXLSX(r)
	default:
		res, err = ingest.ReadCSV(r)
	}
	if err != nil {
		return IngestResult{}, err
	}

	if _, err := s.store.AppendBatch(ctx, res.Records); err != nil {
		return IngestResult{}, fmt.Errorf("persist batch: %w", err)
	}

	batchID := uuid.NewString()
	slog.InfoContext(ctx, "File ingested",
		"batch_id", batchID,
		"file", filename,
		"accepted", res.Accepted,
		"dropped", res.Dropped)

	s.requestCheckpoint(ctx, batchID, amqp.ReasonUpload, res.Accepted)

	return IngestResult{
		BatchID:  batchID,
		Accepted: res.Accepted,
		Dropped:  res.Dropped,
		Total:    res.Total,
	}, nil
}

// requestCheckpoint publishes a mirror checkpoint message. Failures are
// logged, never surfaced: the record is already safe locally.
func (s *ContributionService) requestCheckpoint(ctx context.Context, batchID, reason string, records int) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewCheckpointMessage(batchID, reason, records)
	if err := s.publisher.PublishCheckpoint(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish checkpoint message",
			"batch_id", batchID, "reason", reason, "error", err)
	}
}

// Query narrows the dashboard to closed date and amount intervals. Nil
// fields default to the observed bounds of the record set.
type Query struct {
	From   *core.Date
	To     *core.Date
	Min    *core.Money
	Max    *core.Money
	Bucket report.Bucket
	Bins   int
}

// DashboardData is the plain-data payload handed to the presentation layer.
type DashboardData struct {
	Records   []core.Contribution
	Range     filter.Range
	Total     core.Money
	Mean      core.Money
	Count     int
	Series    []report.SeriesPoint
	Histogram []report.Bin
	NoData    bool
}

// Dashboard loads the full record set, applies the query range, and computes
// the aggregates. A zero-row result sets NoData instead of failing.
func (s *ContributionService) Dashboard(ctx context.Context, q Query) (DashboardData, error) {
	records, err := s.store.LoadAll(ctx)
	if err != nil {
		return DashboardData{}, fmt.Errorf("load contributions: %w", err)
	}
	if len(records) == 0 {
		return DashboardData{NoData: true}, nil
	}

	rng := filter.Bounds(records)
	if q.From != nil {
		rng.From = *q.From
	}
	if q.To != nil {
		rng.To = *q.To
	}
	if q.Min != nil {
		rng.Min = *q.Min
	}
	if q.Max != nil {
		rng.Max = *q.Max
	}

	set := filter.Apply(records, rng)

	bucket := q.Bucket
	if bucket == "" {
		bucket = report.BucketDay
	}
	bins := q.Bins
	if bins <= 0 {
		bins = 20
	}

	return DashboardData{
		Records:   set,
		Range:     rng,
		Total:     report.Total(set),
		Mean:      report.Mean(set),
		Count:     report.Count(set),
		Series:    report.Series(set, bucket),
		Histogram: report.Histogram(set, bins),
		NoData:    len(set) == 0,
	}, nil
}
