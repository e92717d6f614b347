package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/epeers/mfenrich/internal/models"
)

type fakeBatch struct {
	results []*models.EnrichedFund
	report  *models.QualityReport
	delay   time.Duration
	got     []string
}

func (f *fakeBatch) EnrichBatch(ctx context.Context, names []string) ([]*models.EnrichedFund, *models.QualityReport) {
	f.got = names
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
		}
	}
	if f.report == nil {
		f.report = &models.QualityReport{}
	}
	return f.results, f.report
}

func newTestRouter(batch *fakeBatch, overallTimeout time.Duration) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewEnrichHandler(batch, nil, overallTimeout)
	router.POST("/etl/enrich", h.Enrich)
	router.GET("/etl/runs/:upload_id", h.GetRun)
	return router
}

func postEnrich(t *testing.T, router *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/etl/enrich", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestEnrichEndpoint(t *testing.T) {
	nav := 103.68
	batch := &fakeBatch{
		results: []*models.EnrichedFund{
			{FundName: "Parag Parikh Flexi Cap Fund", ISIN: "INF879O01027", CurrentNAV: &nav},
			nil,
		},
		report: &models.QualityReport{SuccessfullyEnriched: 1, FailedToEnrich: 1, Warnings: []string{}},
	}
	router := newTestRouter(batch, time.Minute)

	w := postEnrich(t, router, models.EnrichmentRequest{
		UploadID: "up-123",
		UserID:   "user-1",
		ParsedHoldings: []models.ParsedHolding{
			{FundName: "Parag Parikh Flexi Cap"},
			{FundName: "Unknown Fund"},
		},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp models.EnrichmentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "completed" {
		t.Errorf("status = %q", resp.Status)
	}
	if resp.UploadID != "up-123" {
		t.Errorf("upload_id = %q", resp.UploadID)
	}
	// Failed funds are dropped from the list, not nulled.
	if len(resp.EnrichedFunds) != 1 || resp.EnrichedFunds[0].ISIN != "INF879O01027" {
		t.Errorf("enriched_funds = %v", resp.EnrichedFunds)
	}
	if len(batch.got) != 2 {
		t.Errorf("batch received %v", batch.got)
	}
}

func TestEnrichEndpointValidation(t *testing.T) {
	router := newTestRouter(&fakeBatch{}, time.Minute)

	// Missing required fields.
	w := postEnrich(t, router, map[string]any{"upload_id": "up-1"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestEnrichEndpointFiltersInvalidHoldings(t *testing.T) {
	batch := &fakeBatch{results: []*models.EnrichedFund{{FundName: "Good Fund"}}}
	router := newTestRouter(batch, time.Minute)

	negative := -5.0
	w := postEnrich(t, router, models.EnrichmentRequest{
		UploadID: "up-2",
		UserID:   "user-1",
		ParsedHoldings: []models.ParsedHolding{
			{FundName: "Good Fund"},
			{FundName: "Bad Fund", Units: &negative},
		},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(batch.got) != 1 || batch.got[0] != "Good Fund" {
		t.Errorf("invalid holding reached the batch: %v", batch.got)
	}
	var resp models.EnrichmentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Quality.ValidationFailures != 1 {
		t.Errorf("validation_failures = %d, want 1", resp.Quality.ValidationFailures)
	}
}

func TestEnrichEndpointOverallTimeout(t *testing.T) {
	nav := 1.0
	batch := &fakeBatch{
		results: []*models.EnrichedFund{{FundName: "Slow Fund", CurrentNAV: &nav}},
		delay:   50 * time.Millisecond,
	}
	router := newTestRouter(batch, 10*time.Millisecond)

	w := postEnrich(t, router, models.EnrichmentRequest{
		UploadID:       "up-3",
		UserID:         "user-1",
		ParsedHoldings: []models.ParsedHolding{{FundName: "Slow Fund"}},
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp models.EnrichmentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "failed" {
		t.Errorf("status = %q, want failed", resp.Status)
	}
	// The timeout path discards partial results.
	if len(resp.EnrichedFunds) != 0 {
		t.Errorf("timeout response must carry no partial results, got %v", resp.EnrichedFunds)
	}
	if resp.ErrorMessage == "" {
		t.Error("timeout response must carry an error message")
	}
}

func TestGetRunWithoutDatabase(t *testing.T) {
	router := newTestRouter(&fakeBatch{}, time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/etl/runs/up-123", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 when persistence is disabled", w.Code)
	}
}
