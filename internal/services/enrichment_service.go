package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/epeers/mfenrich/internal/amfi"
	"github.com/epeers/mfenrich/internal/cache"
	"github.com/epeers/mfenrich/internal/metrics"
	"github.com/epeers/mfenrich/internal/models"
)

// RegistryProvider supplies the scheme-code universe and per-scheme data.
// Implementations may fail per call; the orchestrator degrades fetch failures
// to missing data rather than aborting the enrichment.
type RegistryProvider interface {
	GetAllSchemes(ctx context.Context) ([]amfi.SchemeRecord, error)
	GetSchemeNAV(ctx context.Context, schemeCode string) (*amfi.ParsedNAV, error)
	GetSchemeDetails(ctx context.Context, schemeCode string) (map[string]any, error)
}

// FundSearchProvider is the free-text search side: funds are located by name
// or ISIN and their portfolio data is keyed by the provider's own security id.
type FundSearchProvider interface {
	GetFund(ctx context.Context, term string) (*models.FundRef, error)
	GetFundHoldings(ctx context.Context, secID string, topN int) ([]map[string]any, error)
	GetSectorAllocation(ctx context.Context, secID string) (any, error)
}

// EnrichmentOptions tunes one EnrichmentService instance.
type EnrichmentOptions struct {
	CacheEnabled   bool
	CacheTTL       time.Duration
	FuzzyThreshold float64 // similarity acceptance for the secondary scheme match
	OverlapRatio   float64 // word-overlap threshold for registry resolution
	TopHoldings    int
}

// DefaultEnrichmentOptions returns the tuning used in production.
func DefaultEnrichmentOptions() EnrichmentOptions {
	return EnrichmentOptions{
		CacheEnabled:   true,
		CacheTTL:       time.Hour,
		FuzzyThreshold: 0.35,
		OverlapRatio:   0.7,
		TopHoldings:    10,
	}
}

// EnrichmentService resolves a user-supplied fund name to authoritative
// identifiers and fetches NAV, holdings, and sector data for it. One instance
// owns its cache and lazily-loaded registry; it is safe for concurrent use.
type EnrichmentService struct {
	registryProvider RegistryProvider
	searchProvider   FundSearchProvider
	opts             EnrichmentOptions

	cache *cache.EnrichmentCache

	regMu    sync.Mutex
	registry *Registry

	inflight singleflight.Group
}

// NewEnrichmentService creates an enrichment service.
func NewEnrichmentService(registry RegistryProvider, search FundSearchProvider, opts EnrichmentOptions) *EnrichmentService {
	return &EnrichmentService{
		registryProvider: registry,
		searchProvider:   search,
		opts:             opts,
		cache:            cache.NewEnrichmentCache(opts.CacheTTL),
	}
}

// SweepCache drops expired cache entries.
func (s *EnrichmentService) SweepCache() {
	if !s.opts.CacheEnabled {
		return
	}
	if removed := s.cache.Sweep(); removed > 0 {
		log.Debugf("cache sweep removed %d expired entries", removed)
	}
}

// loadRegistry fetches and indexes the scheme universe on first use. The
// loaded registry is read-only and shared across all subsequent calls; a
// failed load is retried on the next call.
func (s *EnrichmentService) loadRegistry(ctx context.Context) (*Registry, error) {
	s.regMu.Lock()
	defer s.regMu.Unlock()

	if s.registry != nil {
		return s.registry, nil
	}

	defer TrackTime("loadRegistry", time.Now())
	schemes, err := s.registryProvider.GetAllSchemes(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}

	entries := make([]SchemeEntry, 0, len(schemes))
	for _, rec := range schemes {
		entries = append(entries, SchemeEntry{
			Code:            rec.Code,
			Name:            rec.Name,
			ISINGrowth:      rec.ISINGrowth,
			ISINDivReinvest: rec.ISINDivReinvest,
		})
	}
	s.registry = NewRegistry(entries, s.opts.OverlapRatio)
	log.Infof("loaded scheme registry with %d schemes", s.registry.Len())
	return s.registry, nil
}

// Enrich resolves and enriches a single fund name. It returns (nil, nil) for
// a fund that cannot be resolved to any scheme code; that outcome is cached
// so repeated uploads do not re-search. An error is returned only for
// context cancellation and registry load failure, which are worth retrying.
func (s *EnrichmentService) Enrich(ctx context.Context, fundName string) (*models.EnrichedFund, error) {
	key := cacheKey(fundName)
	if key == "" {
		return nil, nil
	}

	if s.opts.CacheEnabled {
		if fund, hit := s.cache.Get(key); hit {
			metrics.CacheHits.Inc()
			return fund, nil
		}
		metrics.CacheMisses.Inc()
	}

	// Collapse concurrent requests for the same name into one provider
	// round-trip. The shared call must not die with the first caller:
	// later joiners would inherit its cancellation. Keep the deadline as
	// an upper bound but detach from the cancel signal.
	result, err, _ := s.inflight.Do(key, func() (any, error) {
		flightCtx := context.WithoutCancel(ctx)
		if deadline, ok := ctx.Deadline(); ok {
			var cancel context.CancelFunc
			flightCtx, cancel = context.WithDeadline(flightCtx, deadline)
			defer cancel()
		}
		return s.enrichUncached(flightCtx, key, fundName)
	})
	if err != nil {
		return nil, err
	}
	fund, _ := result.(*models.EnrichedFund)
	return fund, nil
}

func (s *EnrichmentService) enrichUncached(ctx context.Context, key, fundName string) (*models.EnrichedFund, error) {
	defer TrackTime("enrich "+key, time.Now())

	registry, err := s.loadRegistry(ctx)
	if err != nil {
		return nil, err
	}

	code, resolvedExact := registry.ResolveSchemeCode(fundName)
	if !resolvedExact {
		code = s.fuzzySchemeMatch(ctx, registry, fundName)
	}
	if code == "" {
		log.Warnf("could not resolve fund %q to any scheme", fundName)
		AddWarning(ctx, models.WarnUnresolvedFund, "fund %q could not be resolved to a scheme code", fundName)
		metrics.EnrichmentsTotal.WithLabelValues("unresolved").Inc()
		s.cacheResult(key, nil)
		return nil, nil
	}

	official, _ := registry.Name(code)
	resolved := &models.ResolvedFund{
		Name:         fundName,
		SchemeCode:   code,
		OfficialName: official,
	}
	GenerateSearchTerms(resolved)

	fund := &models.EnrichedFund{FundName: resolved.PrimaryTerm}

	details := s.fetchSchemeDetails(ctx, code)
	if err := s.fetchNAV(ctx, code, fund); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	fillSchemeMeta(fund, details)
	fund.ISIN = s.resolveISIN(ctx, registry, resolved, details)

	if err := s.fetchPortfolio(ctx, resolved, fund); err != nil {
		return nil, err
	}

	if fund.SectorAllocation == nil && fund.TopHoldings == nil && fund.CurrentNAV == nil {
		AddWarning(ctx, models.WarnNoProviderData, "no provider returned data for %q (scheme %s)", fundName, code)
	}

	metrics.EnrichmentsTotal.WithLabelValues("enriched").Inc()
	s.cacheResult(key, fund)
	return fund, nil
}

func (s *EnrichmentService) cacheResult(key string, fund *models.EnrichedFund) {
	if s.opts.CacheEnabled {
		s.cache.Set(key, fund)
	}
}

// fuzzySchemeMatch is the secondary resolution pass: a similarity-ratio scan
// of the whole scheme list, accepted only above the configured threshold.
func (s *EnrichmentService) fuzzySchemeMatch(ctx context.Context, registry *Registry, fundName string) string {
	norm := normalizeFundName(fundName)
	if norm == "" {
		return ""
	}

	bestCode := ""
	bestScore := 0.0
	for _, entry := range registry.Entries() {
		score := similarityRatio(norm, normalizeFundName(entry.Name))
		if score > bestScore {
			bestScore = score
			bestCode = entry.Code
		}
	}
	if bestScore < s.opts.FuzzyThreshold {
		return ""
	}

	log.Debugf("fuzzy-matched %q to scheme %s (score %.2f)", fundName, bestCode, bestScore)
	AddWarning(ctx, models.WarnFuzzySchemeMatch, "fund %q matched scheme %s by similarity %.2f", fundName, bestCode, bestScore)
	return bestCode
}

// similarityRatio maps edit distance onto [0,1], 1 meaning identical.
func similarityRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}

func (s *EnrichmentService) fetchSchemeDetails(ctx context.Context, code string) map[string]any {
	details, err := s.registryProvider.GetSchemeDetails(ctx, code)
	if err != nil {
		log.Warnf("scheme detail fetch failed for %s: %v", code, err)
		return nil
	}
	return details
}

func (s *EnrichmentService) fetchNAV(ctx context.Context, code string, fund *models.EnrichedFund) error {
	nav, err := s.registryProvider.GetSchemeNAV(ctx, code)
	if err != nil {
		log.Warnf("NAV fetch failed for scheme %s: %v", code, err)
		return ctx.Err()
	}
	if nav != nil {
		fund.CurrentNAV = &nav.NAV
		fund.NAVAsOf = nav.Date
	}
	return nil
}

// fillSchemeMeta copies issuer, category, and expense ratio out of the
// scheme detail payload.
func fillSchemeMeta(fund *models.EnrichedFund, details map[string]any) {
	if details == nil {
		return
	}
	fund.ExpenseRatio = FloatPtr(details["expense_ratio"])
	meta, _ := details["meta"].(map[string]any)
	if meta == nil {
		return
	}
	if house, ok := meta["fund_house"].(string); ok {
		fund.AMC = house
	}
	if category, ok := meta["scheme_category"].(string); ok {
		fund.Category = category
	}
	if fund.ExpenseRatio == nil {
		fund.ExpenseRatio = FloatPtr(meta["expense_ratio"])
	}
}

// resolveISIN picks the best available ISIN: scheme-detail fields first, then
// the registry feed's ISIN columns, then a search-provider lookup over the
// generated terms, then the scheme code itself as a last-resort identifier.
func (s *EnrichmentService) resolveISIN(ctx context.Context, registry *Registry, resolved *models.ResolvedFund, details map[string]any) string {
	if isin := isinFromDetails(details); isin != "" {
		return isin
	}
	if isin := registry.ISIN(resolved.SchemeCode); isin != "" {
		return isin
	}

	for _, term := range resolved.SearchTerms() {
		ref, err := s.searchProvider.GetFund(ctx, term)
		if err != nil {
			log.Debugf("ISIN search failed for term %q: %v", term, err)
			continue
		}
		if ref != nil && ref.ISIN != "" {
			return ref.ISIN
		}
	}

	return resolved.SchemeCode
}

// isinFromDetails checks the detail payload's known ISIN locations in
// priority order.
func isinFromDetails(details map[string]any) string {
	if details == nil {
		return ""
	}
	for _, key := range []string{"isin", "fund_isin", "isin_code"} {
		if isin, ok := details[key].(string); ok && isin != "" {
			return isin
		}
	}
	if meta, ok := details["meta"].(map[string]any); ok {
		for _, key := range []string{"isin_growth", "isin_div_reinvestment"} {
			if isin, ok := meta[key].(string); ok && isin != "" {
				return isin
			}
		}
	}
	return ""
}

// fetchPortfolio fills holdings and sector allocation from the search
// provider. The term order is the resolved ISIN, then primary and alternate
// terms, then the fallback-term cascade. Holdings and sectors cascade
// independently: a term that yields holdings does not stop the sector search
// from reaching later terms.
func (s *EnrichmentService) fetchPortfolio(ctx context.Context, resolved *models.ResolvedFund, fund *models.EnrichedFund) error {
	terms := make([]string, 0, 8)
	if fund.ISIN != "" && fund.ISIN != resolved.SchemeCode {
		terms = append(terms, fund.ISIN)
	}
	terms = append(terms, resolved.SearchTerms()...)
	terms = append(terms, GenerateFallbackTerms(resolved.Name, resolved.PrimaryTerm)...)
	terms = dedupeTerms(terms, "")

	// One fund lookup per term, shared by both cascades.
	refs := make(map[string]*models.FundRef, len(terms))

	if err := s.fillHoldings(ctx, terms, refs, fund); err != nil {
		return err
	}
	if err := s.fillSectors(ctx, terms, refs, fund); err != nil {
		return err
	}

	if fund.TopHoldings == nil && fund.SectorAllocation == nil {
		log.Debugf("no portfolio data found for %q after %d terms", resolved.Name, len(terms))
	}
	return nil
}

// lookupFund resolves a search term to a provider fund handle, memoizing
// results (including misses) in refs.
func (s *EnrichmentService) lookupFund(ctx context.Context, term string, refs map[string]*models.FundRef) (*models.FundRef, error) {
	if ref, seen := refs[term]; seen {
		return ref, nil
	}
	ref, err := s.searchProvider.GetFund(ctx, term)
	if err != nil {
		log.Debugf("fund search failed for term %q: %v", term, err)
		ref = nil
	}
	refs[term] = ref
	return ref, ctx.Err()
}

func (s *EnrichmentService) fillHoldings(ctx context.Context, terms []string, refs map[string]*models.FundRef, fund *models.EnrichedFund) error {
	for _, term := range terms {
		ref, err := s.lookupFund(ctx, term, refs)
		if err != nil {
			return err
		}
		if ref == nil {
			continue
		}
		raw, err := s.searchProvider.GetFundHoldings(ctx, ref.SecID, s.opts.TopHoldings)
		if err != nil {
			log.Debugf("holdings fetch failed for %q: %v", term, err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		if holdings := FilterHoldings(raw); holdings != nil {
			fund.TopHoldings = holdings
			if fund.ISIN == "" && ref.ISIN != "" {
				fund.ISIN = ref.ISIN
			}
			return nil
		}
	}
	return nil
}

func (s *EnrichmentService) fillSectors(ctx context.Context, terms []string, refs map[string]*models.FundRef, fund *models.EnrichedFund) error {
	for _, term := range terms {
		ref, err := s.lookupFund(ctx, term, refs)
		if err != nil {
			return err
		}
		if ref == nil {
			continue
		}
		raw, err := s.searchProvider.GetSectorAllocation(ctx, ref.SecID)
		if err != nil {
			log.Debugf("sector fetch failed for %q: %v", term, err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		if sectors := NormalizeSectorResult(raw); sectors != nil {
			fund.SectorAllocation = sectors
			if fund.ISIN == "" && ref.ISIN != "" {
				fund.ISIN = ref.ISIN
			}
			return nil
		}
	}
	return nil
}
