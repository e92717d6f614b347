package services

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/epeers/mfenrich/internal/metrics"
	"github.com/epeers/mfenrich/internal/models"
)

// Enricher is the single-fund enrichment dependency of the batch runner.
type Enricher interface {
	Enrich(ctx context.Context, fundName string) (*models.EnrichedFund, error)
	SweepCache()
}

// BatchOptions tunes the batch runner.
type BatchOptions struct {
	MaxConcurrent int
	ItemTimeout   time.Duration
	MaxAttempts   int
	BackoffBase   time.Duration
	BackoffMax    time.Duration
}

// DefaultBatchOptions returns the tuning used in production.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		MaxConcurrent: 5,
		ItemTimeout:   30 * time.Second,
		MaxAttempts:   3,
		BackoffBase:   500 * time.Millisecond,
		BackoffMax:    5 * time.Second,
	}
}

// BatchService fans single-fund enrichments out over a batch of names with
// bounded concurrency, per-item timeouts, and retry on transient failures.
type BatchService struct {
	enricher Enricher
	opts     BatchOptions
}

// NewBatchService creates a batch runner over the given enricher.
func NewBatchService(enricher Enricher, opts BatchOptions) *BatchService {
	if opts.MaxConcurrent < 1 {
		opts.MaxConcurrent = 1
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &BatchService{enricher: enricher, opts: opts}
}

type itemOutcome struct {
	fund     *models.EnrichedFund
	category models.ErrorCategory // set when fund is nil
}

// EnrichBatch enriches every name and returns results in input order, nil
// for funds that could not be enriched, plus a quality report. Duplicate
// names (after case and whitespace folding) are resolved once and their
// result copied to every original position, so at most one in-flight
// resolution exists per unique name and total provider concurrency stays
// bounded.
func (b *BatchService) EnrichBatch(ctx context.Context, fundNames []string) ([]*models.EnrichedFund, *models.QualityReport) {
	defer TrackTime("EnrichBatch", time.Now())
	timer := time.Now()
	defer func() { metrics.BatchDuration.Observe(time.Since(timer).Seconds()) }()

	b.enricher.SweepCache()

	ctx, collector := NewWarningContext(ctx)

	// Deduplicate by case- and whitespace-folded name, remembering which
	// input positions share each unique name. Plan variants ("Direct" vs
	// "Regular") are distinct schemes and must not collapse.
	uniqueNames := make([]string, 0, len(fundNames))
	indicesByKey := make(map[string][]int, len(fundNames))
	for i, name := range fundNames {
		key := cacheKey(name)
		if _, seen := indicesByKey[key]; !seen {
			uniqueNames = append(uniqueNames, name)
		}
		indicesByKey[key] = append(indicesByKey[key], i)
	}
	if len(uniqueNames) < len(fundNames) {
		log.Debugf("batch of %d collapsed to %d unique funds", len(fundNames), len(uniqueNames))
	}

	outcomes := make([]itemOutcome, len(uniqueNames))
	sem := semaphore.NewWeighted(int64(b.opts.MaxConcurrent))
	var wg sync.WaitGroup
	for i, name := range uniqueNames {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				outcomes[i] = itemOutcome{category: models.ErrorFatal}
				return
			}
			defer sem.Release(1)
			outcomes[i] = b.enrichWithRetry(ctx, name)
		}(i, name)
	}
	wg.Wait()

	// Scatter each unique outcome back to every input position that shares
	// its key.
	results := make([]*models.EnrichedFund, len(fundNames))
	report := &models.QualityReport{Warnings: []string{}}
	for i, name := range uniqueNames {
		outcome := outcomes[i]
		for _, idx := range indicesByKey[cacheKey(name)] {
			results[idx] = outcome.fund
			if outcome.fund != nil {
				report.SuccessfullyEnriched++
			} else {
				report.FailedToEnrich++
				report.CountError(outcome.category)
			}
		}
	}
	for _, w := range collector.GetWarnings() {
		report.AddWarning(string(w.Code) + ": " + w.Message)
	}

	return results, report
}

// enrichWithRetry runs one fund through the orchestrator with a per-attempt
// timeout and exponential backoff, retrying transient failures only.
func (b *BatchService) enrichWithRetry(ctx context.Context, name string) itemOutcome {
	delay := b.opts.BackoffBase
	var lastErr error
	for attempt := 1; attempt <= b.opts.MaxAttempts; attempt++ {
		itemCtx, cancel := context.WithTimeout(ctx, b.opts.ItemTimeout)
		fund, err := b.enricher.Enrich(itemCtx, name)
		cancel()

		if err == nil {
			if fund == nil {
				return itemOutcome{category: models.ErrorUnresolvable}
			}
			return itemOutcome{fund: fund}
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if !IsTransient(err) {
			log.Warnf("enrichment of %q failed permanently: %v", name, err)
			AddWarning(ctx, models.WarnEnrichmentFailed, "enrichment of %q failed: %v", name, err)
			return itemOutcome{category: models.ErrorFatal}
		}
		if attempt == b.opts.MaxAttempts {
			break
		}

		log.Debugf("transient failure for %q (attempt %d/%d), retrying in %s: %v",
			name, attempt, b.opts.MaxAttempts, delay, err)
		AddWarning(ctx, models.WarnRetriedTransient, "retrying %q after transient failure: %v", name, err)
		metrics.RetriesTotal.Inc()

		select {
		case <-ctx.Done():
			return itemOutcome{category: models.ErrorTransient}
		case <-time.After(delay):
		}
		delay *= 2
		if delay > b.opts.BackoffMax {
			delay = b.opts.BackoffMax
		}
	}

	log.Warnf("enrichment of %q exhausted %d attempts: %v", name, b.opts.MaxAttempts, lastErr)
	AddWarning(ctx, models.WarnEnrichmentTimedOut, "enrichment of %q gave up after %d attempts: %v", name, b.opts.MaxAttempts, lastErr)
	metrics.EnrichmentsTotal.WithLabelValues("timeout").Inc()
	return itemOutcome{category: models.ErrorTransient}
}
