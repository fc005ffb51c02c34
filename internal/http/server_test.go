package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"contribs/internal/core"
	"contribs/internal/services"
)

type fakeStore struct {
	records []core.Contribution
	nextID  int64
}

func (f *fakeStore) Append(ctx context.Context, c core.Contribution) (int64, error) {
	f.nextID++
	c.ID = f.nextID
	f.records = append(f.records, c)
	return c.ID, nil
}

func (f *fakeStore) AppendBatch(ctx context.Context, records []core.Contribution) (int, error) {
	for _, c := range records {
		f.nextID++
		c.ID = f.nextID
		f.records = append(f.records, c)
	}
	return len(records), nil
}

func (f *fakeStore) LoadAll(ctx context.Context) ([]core.Contribution, error) {
	out := make([]core.Contribution, len(f.records))
	copy(out, f.records)
	return out, nil
}

func newTestServer(store *fakeStore) *Server {
	svc := services.NewContributionService(store, nil)
	return NewServer(":0", svc)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(&fakeStore{})
	defer s.Shutdown(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("health body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("health status field = %v", body["status"])
	}
}

func TestReadyEndpoint(t *testing.T) {
	s := newTestServer(&fakeStore{})
	defer s.Shutdown(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ready status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestCreateContributionJSON(t *testing.T) {
	store := &fakeStore{}
	s := newTestServer(store)
	defer s.Shutdown(context.Background())

	body := `{"phone":"0611111111","amount":"100.50","transfer_date":"2024-01-15"}`
	req := httptest.NewRequest(http.MethodPost, "/contributions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var got contributionJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("create body: %v", err)
	}
	if got.ID != 1 || got.Phone != "0611111111" || got.Amount != 100.50 {
		t.Errorf("created contribution = %+v", got)
	}
	if len(store.records) != 1 {
		t.Errorf("store records = %d", len(store.records))
	}
}

func TestCreateContributionForm(t *testing.T) {
	s := newTestServer(&fakeStore{})
	defer s.Shutdown(context.Background())

	form := "phone=0622222222&amount=50%2C25&transfer_date=2024-02-01"
	req := httptest.NewRequest(http.MethodPost, "/contributions", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestCreateContributionRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"negative amount", `{"phone":"0611","amount":"-5","transfer_date":"2024-01-15"}`},
		{"zero amount", `{"phone":"0611","amount":"0","transfer_date":"2024-01-15"}`},
		{"bad date", `{"phone":"0611","amount":"10","transfer_date":"not-a-date"}`},
		{"long phone", `{"phone":"1234567890123456","amount":"10","transfer_date":"2024-01-15"}`},
	}

	s := newTestServer(&fakeStore{})
	defer s.Shutdown(context.Background())

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/contributions", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			s.Handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422", rec.Code)
			}
		})
	}
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadCSV(t *testing.T) {
	store := &fakeStore{}
	s := newTestServer(store)
	defer s.Shutdown(context.Background())

	csvData := "phone,amount,transfer_date\n0611111111,100,2024-01-15\n0622222222,-5,2024-01-16\n0633333333,50,2024-01-17\n"
	body, contentType := multipartUpload(t, "batch.csv", csvData)

	req := httptest.NewRequest(http.MethodPost, "/contributions/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}

	var result struct {
		BatchID  string `json:"batch_id"`
		Accepted int    `json:"accepted"`
		Dropped  int    `json:"dropped"`
		Total    int    `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("upload body: %v", err)
	}
	if result.Accepted != 2 || result.Dropped != 1 || result.Total != 3 {
		t.Errorf("upload result = %+v", result)
	}
	if result.BatchID == "" {
		t.Errorf("missing batch id")
	}
	if len(store.records) != 2 {
		t.Errorf("store records = %d", len(store.records))
	}
}

func TestUploadMissingColumn(t *testing.T) {
	s := newTestServer(&fakeStore{})
	defer s.Shutdown(context.Background())

	body, contentType := multipartUpload(t, "bad.csv", "phone,amount\n0611,100\n")
	req := httptest.NewRequest(http.MethodPost, "/contributions/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("upload status = %d, want 422, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "transfer_date") {
		t.Errorf("error should name the missing column, got %s", rec.Body.String())
	}
}

func TestUploadMissingFileField(t *testing.T) {
	s := newTestServer(&fakeStore{})
	defer s.Shutdown(context.Background())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("other", "x")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/contributions/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("upload status = %d, want 400", rec.Code)
	}
}

func seededStore() *fakeStore {
	return &fakeStore{records: []core.Contribution{
		{ID: 1, Phone: "0611", Amount: core.Money{Cents: 10000}, TransferDate: core.NewDate(2024, 1, 15)},
		{ID: 2, Phone: "0622", Amount: core.Money{Cents: 5000}, TransferDate: core.NewDate(2024, 1, 17)},
	}, nextID: 2}
}

func TestDashboard(t *testing.T) {
	s := newTestServer(seededStore())
	defer s.Shutdown(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", rec.Code)
	}
	var body dashboardJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("dashboard body: %v", err)
	}
	if body.NoData {
		t.Errorf("unexpected no_data")
	}
	if body.Total != 150.0 || body.Count != 2 || body.Mean != 75.0 {
		t.Errorf("dashboard aggregates = total %v count %d mean %v", body.Total, body.Count, body.Mean)
	}
	// Day series spans Jan 15 through Jan 17 with the gap day present
	if len(body.Series) != 3 {
		t.Errorf("series length = %d", len(body.Series))
	}
	if body.Range == nil || body.Range.From != "2024-01-15" || body.Range.To != "2024-01-17" {
		t.Errorf("range = %+v", body.Range)
	}
}

func TestDashboardFilterNoData(t *testing.T) {
	s := newTestServer(seededStore())
	defer s.Shutdown(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/dashboard?min=1000&max=2000", nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", rec.Code)
	}
	var body dashboardJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("dashboard body: %v", err)
	}
	if !body.NoData {
		t.Errorf("expected no_data for out-of-range amount filter")
	}
}

func TestDashboardRejectsBadParams(t *testing.T) {
	s := newTestServer(seededStore())
	defer s.Shutdown(context.Background())

	for _, target := range []string{
		"/dashboard?from=garbage",
		"/dashboard?from=2024-02-01&to=2024-01-01",
		"/dashboard?min=10&max=5",
		"/dashboard?bucket=hour",
		"/dashboard?bins=0",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		s.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(seededStore())
	defer s.Shutdown(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/export", nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("export lines = %d: %q", len(lines), lines)
	}
	if lines[0] != "phone,amount,transfer_date" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "0611,100.00,2024-01-15" {
		t.Errorf("row = %q", lines[1])
	}
}

func TestListContributionsFiltered(t *testing.T) {
	s := newTestServer(seededStore())
	defer s.Shutdown(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/contributions?from=2024-01-17&to=2024-01-17", nil)
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var body struct {
		Contributions []contributionJSON `json:"contributions"`
		Count         int                `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("list body: %v", err)
	}
	if body.Count != 1 || len(body.Contributions) != 1 {
		t.Fatalf("filtered count = %d", body.Count)
	}
	if body.Contributions[0].Phone != "0622" {
		t.Errorf("filtered record = %+v", body.Contributions[0])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(&fakeStore{})
	defer s.Shutdown(context.Background())

	for _, tc := range []struct{ method, target string }{
		{http.MethodDelete, "/contributions"},
		{http.MethodGet, "/contributions/upload"},
		{http.MethodPost, "/dashboard"},
		{http.MethodPost, "/export"},
	} {
		req := httptest.NewRequest(tc.method, tc.target, nil)
		rec := httptest.NewRecorder()
		s.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s: status = %d, want 405", tc.method, tc.target, rec.Code)
		}
	}
}
