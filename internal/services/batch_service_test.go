package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/epeers/mfenrich/internal/models"
)

// fakeEnricher returns canned results per case-folded name and records calls.
type fakeEnricher struct {
	mu       sync.Mutex
	calls    map[string]int
	results  map[string]*models.EnrichedFund
	errs     map[string]error
	failFor  map[string]int           // fail this many times before succeeding
	delays   map[string]time.Duration // per-name completion delay
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func newFakeEnricher() *fakeEnricher {
	return &fakeEnricher{
		calls:   make(map[string]int),
		results: make(map[string]*models.EnrichedFund),
		errs:    make(map[string]error),
		failFor: make(map[string]int),
		delays:  make(map[string]time.Duration),
	}
}

func (f *fakeEnricher) SweepCache() {}

func (f *fakeEnricher) Enrich(ctx context.Context, name string) (*models.EnrichedFund, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		max := f.maxSeen.Load()
		if cur <= max || f.maxSeen.CompareAndSwap(max, cur) {
			break
		}
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if d := f.delays[key]; d > 0 {
		time.Sleep(d)
	} else if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
	if remaining := f.failFor[key]; remaining > 0 {
		f.failFor[key] = remaining - 1
		return nil, errors.New("connection reset")
	}
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	return f.results[key], nil
}

func fastBatchOptions() BatchOptions {
	return BatchOptions{
		MaxConcurrent: 3,
		ItemTimeout:   time.Second,
		MaxAttempts:   3,
		BackoffBase:   time.Millisecond,
		BackoffMax:    5 * time.Millisecond,
	}
}

func TestEnrichBatchDeduplicatesAndScatters(t *testing.T) {
	enricher := newFakeEnricher()
	enricher.results["a"] = &models.EnrichedFund{FundName: "A", ISIN: "INA"}
	enricher.results["b"] = &models.EnrichedFund{FundName: "B", ISIN: "INB"}
	svc := NewBatchService(enricher, fastBatchOptions())

	results, report := svc.EnrichBatch(context.Background(), []string{"A", "a", "B"})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	// "A" and "a" fold to the same key: one call, identical results.
	if enricher.calls["a"] != 1 {
		t.Errorf("duplicate name enriched %d times, want 1", enricher.calls["a"])
	}
	if results[0] == nil || results[1] == nil || results[0].ISIN != results[1].ISIN {
		t.Errorf("duplicate positions got different results: %v vs %v", results[0], results[1])
	}
	if results[2] == nil || results[2].ISIN != "INB" {
		t.Errorf("results[2] = %v, want fund B", results[2])
	}
	if report.SuccessfullyEnriched != 3 || report.FailedToEnrich != 0 {
		t.Errorf("report counts = %d/%d, want 3/0", report.SuccessfullyEnriched, report.FailedToEnrich)
	}
}

func TestEnrichBatchKeepsPlanVariantsSeparate(t *testing.T) {
	enricher := newFakeEnricher()
	direct := "Axis Bluechip Fund - Direct Plan - Growth"
	regular := "Axis Bluechip Fund - Regular Plan - Growth"
	enricher.results[strings.ToLower(direct)] = &models.EnrichedFund{FundName: direct, ISIN: "INF846K01EW2"}
	enricher.results[strings.ToLower(regular)] = &models.EnrichedFund{FundName: regular, ISIN: "INF846K01131"}
	svc := NewBatchService(enricher, fastBatchOptions())

	results, report := svc.EnrichBatch(context.Background(), []string{direct, regular})

	// The two plans are distinct schemes and must be enriched separately.
	if enricher.calls[strings.ToLower(direct)] != 1 || enricher.calls[strings.ToLower(regular)] != 1 {
		t.Fatalf("expected one call per plan variant, got %v", enricher.calls)
	}
	if results[0] == nil || results[1] == nil {
		t.Fatalf("both variants must produce results: %v", results)
	}
	if results[0].ISIN == results[1].ISIN {
		t.Errorf("plan variants collapsed to one result: %q", results[0].ISIN)
	}
	if report.SuccessfullyEnriched != 2 {
		t.Errorf("SuccessfullyEnriched = %d, want 2", report.SuccessfullyEnriched)
	}
}

func TestEnrichBatchPreservesOrder(t *testing.T) {
	enricher := newFakeEnricher()
	names := []string{"delta", "alpha", "charlie", "bravo", "alpha"}
	// Earlier submissions sleep longer, so completion order is the reverse
	// of submission order.
	for i, n := range []string{"delta", "alpha", "charlie", "bravo"} {
		enricher.results[n] = &models.EnrichedFund{FundName: n}
		enricher.delays[n] = time.Duration(20-5*i) * time.Millisecond
	}
	opts := fastBatchOptions()
	opts.MaxConcurrent = 4
	svc := NewBatchService(enricher, opts)

	results, _ := svc.EnrichBatch(context.Background(), names)

	for i, name := range names {
		if results[i] == nil || results[i].FundName != name {
			t.Errorf("results[%d] = %v, want %q", i, results[i], name)
		}
	}
}

func TestEnrichBatchBoundsConcurrency(t *testing.T) {
	enricher := newFakeEnricher()
	names := make([]string, 12)
	for i := range names {
		names[i] = string(rune('a'+i)) + "-fund"
		enricher.results[names[i]] = &models.EnrichedFund{FundName: names[i]}
	}
	enricher.delay = 5 * time.Millisecond
	opts := fastBatchOptions()
	opts.MaxConcurrent = 3
	svc := NewBatchService(enricher, opts)

	svc.EnrichBatch(context.Background(), names)

	if max := enricher.maxSeen.Load(); max > 3 {
		t.Errorf("observed %d concurrent enrichments, limit is 3", max)
	}
}

func TestEnrichBatchRetriesTransientFailures(t *testing.T) {
	enricher := newFakeEnricher()
	enricher.results["flaky fund"] = &models.EnrichedFund{FundName: "Flaky Fund"}
	enricher.failFor["flaky fund"] = 2 // fail twice, succeed on attempt 3
	svc := NewBatchService(enricher, fastBatchOptions())

	results, report := svc.EnrichBatch(context.Background(), []string{"Flaky Fund"})

	if results[0] == nil {
		t.Fatal("expected success after transient retries")
	}
	if enricher.calls["flaky fund"] != 3 {
		t.Errorf("enricher called %d times, want 3", enricher.calls["flaky fund"])
	}
	retryWarnings := 0
	for _, w := range report.Warnings {
		if strings.HasPrefix(w, string(models.WarnRetriedTransient)) {
			retryWarnings++
		}
	}
	if retryWarnings != 2 {
		t.Errorf("expected 2 retry warnings, got %d in %v", retryWarnings, report.Warnings)
	}
}

func TestEnrichBatchGivesUpAfterMaxAttempts(t *testing.T) {
	enricher := newFakeEnricher()
	enricher.errs["doomed fund"] = errors.New("server error")
	svc := NewBatchService(enricher, fastBatchOptions())

	results, report := svc.EnrichBatch(context.Background(), []string{"Doomed Fund"})

	if results[0] != nil {
		t.Errorf("expected nil after exhausted retries, got %v", results[0])
	}
	if enricher.calls["doomed fund"] != 3 {
		t.Errorf("enricher called %d times, want 3", enricher.calls["doomed fund"])
	}
	if report.FailedToEnrich != 1 {
		t.Errorf("FailedToEnrich = %d, want 1", report.FailedToEnrich)
	}
	if report.ErrorBreakdown[models.ErrorTransient] != 1 {
		t.Errorf("expected transient breakdown entry, got %v", report.ErrorBreakdown)
	}
}

func TestEnrichBatchNonTransientFailsImmediately(t *testing.T) {
	enricher := newFakeEnricher()
	enricher.errs["broken fund"] = errors.New("malformed payload")
	svc := NewBatchService(enricher, fastBatchOptions())

	results, report := svc.EnrichBatch(context.Background(), []string{"Broken Fund"})

	if results[0] != nil {
		t.Errorf("expected nil result, got %v", results[0])
	}
	if enricher.calls["broken fund"] != 1 {
		t.Errorf("non-transient failure retried: %d calls", enricher.calls["broken fund"])
	}
	if report.ErrorBreakdown[models.ErrorFatal] != 1 {
		t.Errorf("expected fatal breakdown entry, got %v", report.ErrorBreakdown)
	}
}

func TestEnrichBatchCountsUnresolvable(t *testing.T) {
	enricher := newFakeEnricher() // no results configured: Enrich returns (nil, nil)
	svc := NewBatchService(enricher, fastBatchOptions())

	results, report := svc.EnrichBatch(context.Background(), []string{"Unknown Fund"})

	if results[0] != nil {
		t.Errorf("expected nil result, got %v", results[0])
	}
	if report.ErrorBreakdown[models.ErrorUnresolvable] != 1 {
		t.Errorf("expected unresolvable breakdown entry, got %v", report.ErrorBreakdown)
	}
}
