package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"contribs/internal/core"
	"contribs/internal/ingest"
	"contribs/internal/report"
	"contribs/internal/services"
	"contribs/internal/storage"
)

// ContributionService is the application port the handlers talk to.
type ContributionService interface {
	Add(ctx context.Context, c core.Contribution) (int64, error)
	Ingest(ctx context.Context, filename string, r io.Reader) (services.IngestResult, error)
	Dashboard(ctx context.Context, q services.Query) (services.DashboardData, error)
}

// maxUploadBytes caps uploaded file size at 16 MiB.
const maxUploadBytes = 16 << 20

type contributionJSON struct {
	ID           int64   `json:"id"`
	Phone        string  `json:"phone"`
	Amount       float64 `json:"amount"`
	TransferDate string  `json:"transfer_date"`
}

type seriesPointJSON struct {
	Start string  `json:"start"`
	Sum   float64 `json:"sum"`
	Count int     `json:"count"`
}

type binJSON struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Count int     `json:"count"`
}

type rangeJSON struct {
	From string  `json:"from"`
	To   string  `json:"to"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

type dashboardJSON struct {
	NoData    bool              `json:"no_data"`
	Range     *rangeJSON        `json:"range,omitempty"`
	Total     float64           `json:"total"`
	Mean      float64           `json:"mean"`
	Count     int               `json:"count"`
	Series    []seriesPointJSON `json:"series"`
	Histogram []binJSON         `json:"histogram"`
}

func toContributionJSON(c core.Contribution) contributionJSON {
	return contributionJSON{
		ID:           c.ID,
		Phone:        c.Phone,
		Amount:       c.Amount.Units(),
		TransferDate: c.TransferDate.String(),
	}
}

// handleHealth performs a basic liveness check.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleReady performs a readiness check against the record store.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if _, err := s.service.Dashboard(ctx, services.Query{}); err != nil {
		checks["store"] = "failed: " + err.Error()
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleContributions dispatches GET (filtered list) and POST (manual entry).
func (s *Server) handleContributions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListContributions(w, r)
	case http.MethodPost:
		s.handleCreateContribution(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	q, err := ParseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := s.service.Dashboard(r.Context(), q)
	if err != nil {
		slog.ErrorContext(r.Context(), "List contributions error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load contributions")
		return
	}

	items := make([]contributionJSON, 0, len(data.Records))
	for _, c := range data.Records {
		items = append(items, toContributionJSON(c))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"contributions": items,
		"count":         len(items),
		"no_data":       data.NoData,
	})
}

func (s *Server) handleCreateContribution(w http.ResponseWriter, r *http.Request) {
	var phone, amountStr, dateStr string

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var body struct {
			Phone        string `json:"phone"`
			Amount       string `json:"amount"`
			TransferDate string `json:"transfer_date"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		phone, amountStr, dateStr = body.Phone, body.Amount, body.TransferDate
	} else {
		if err := r.ParseForm(); err != nil {
			slog.ErrorContext(r.Context(), "Parse form error", "error", err, "method", r.Method, "url", r.URL.Path)
			writeError(w, http.StatusBadRequest, "invalid request format")
			return
		}
		phone = r.Form.Get("phone")
		amountStr = r.Form.Get("amount")
		dateStr = r.Form.Get("transfer_date")
	}

	phone = sanitizeInput(phone)

	cents, err := core.ParseDecimalToCents(amountStr)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}
	date, err := core.ParseDate(dateStr)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid transfer date")
		return
	}

	c := core.Contribution{
		Phone:        phone,
		Amount:       core.Money{Cents: cents},
		TransferDate: date,
	}
	if err := c.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.service.Add(r.Context(), c)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to save contribution",
			"error", err,
			"phone", c.Phone,
			"amount_cents", c.Amount.Cents,
			"transfer_date", c.TransferDate.String())
		writeError(w, http.StatusInternalServerError, "failed to save contribution")
		return
	}

	c.ID = id
	writeJSON(w, http.StatusCreated, toContributionJSON(c))
}

// handleUpload ingests an uploaded CSV or Excel file as one atomic batch.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing 'file' field")
		return
	}
	defer file.Close()

	result, err := s.service.Ingest(r.Context(), header.Filename, file)
	if err != nil {
		var parseErr *ingest.ParseError
		var schemaErr *ingest.SchemaError
		var storageErr *storage.StorageError
		switch {
		case errors.As(err, &schemaErr):
			writeError(w, http.StatusUnprocessableEntity, schemaErr.Error())
		case errors.As(err, &parseErr):
			writeError(w, http.StatusBadRequest, parseErr.Error())
		case errors.As(err, &storageErr):
			slog.ErrorContext(r.Context(), "Upload persistence error", "error", err, "file", header.Filename)
			writeError(w, http.StatusInternalServerError, "failed to persist batch")
		default:
			slog.ErrorContext(r.Context(), "Upload error", "error", err, "file", header.Filename)
			writeError(w, http.StatusInternalServerError, "upload failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"batch_id": result.BatchID,
		"accepted": result.Accepted,
		"dropped":  result.Dropped,
		"total":    result.Total,
	})
}

// handleDashboard returns the filtered aggregates: totals, time series, and
// amount histogram.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	q, err := ParseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := s.service.Dashboard(r.Context(), q)
	if err != nil {
		slog.ErrorContext(r.Context(), "Dashboard error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to compute dashboard")
		return
	}

	writeJSON(w, http.StatusOK, toDashboardJSON(data))
}

func toDashboardJSON(data services.DashboardData) dashboardJSON {
	out := dashboardJSON{
		NoData:    data.NoData,
		Total:     data.Total.Units(),
		Mean:      data.Mean.Units(),
		Count:     data.Count,
		Series:    make([]seriesPointJSON, 0, len(data.Series)),
		Histogram: make([]binJSON, 0, len(data.Histogram)),
	}
	if len(data.Records) > 0 {
		out.Range = &rangeJSON{
			From: data.Range.From.String(),
			To:   data.Range.To.String(),
			Min:  data.Range.Min.Units(),
			Max:  data.Range.Max.Units(),
		}
	}
	for _, p := range data.Series {
		out.Series = append(out.Series, seriesPointJSON{
			Start: p.Start.String(),
			Sum:   p.Sum.Units(),
			Count: p.Count,
		})
	}
	for _, b := range data.Histogram {
		out.Histogram = append(out.Histogram, binJSON{
			From:  b.From.Units(),
			To:    b.To.Units(),
			Count: b.Count,
		})
	}
	return out
}

// handleExport streams the filtered record set as a CSV download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	q, err := ParseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := s.service.Dashboard(r.Context(), q)
	if err != nil {
		slog.ErrorContext(r.Context(), "Export error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export contributions")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="contributions.csv"`)
	if err := report.WriteCSV(w, data.Records); err != nil {
		slog.ErrorContext(r.Context(), "CSV write error", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
