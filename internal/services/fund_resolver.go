package services

import (
	"math"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
)

// structuralTokens is the plan/structure vocabulary stripped during fund-name
// normalization. These tokens describe how a scheme is packaged (plan type,
// payout option) rather than which fund it is, so they carry no signal for
// matching.
var structuralTokens = map[string]bool{
	"fund":         true,
	"direct":       true,
	"regular":      true,
	"growth":       true,
	"dividend":     true,
	"plan":         true,
	"option":       true,
	"monthly":      true,
	"annual":       true,
	"idcw":         true,
	"payout":       true,
	"reinvestment": true,
	"bonus":        true,
	"hedged":       true,
}

// normalizeFundName lowercases a fund name, converts hyphens and parentheses
// to spaces, strips the structural token vocabulary, and collapses whitespace.
// Idempotent: normalizing an already-normalized string returns it unchanged.
//
// Examples:
//
//	"HDFC Mid-Cap Opportunities Fund - Direct Plan - Growth" → "hdfc mid cap opportunities"
//	"Parag Parikh Flexi Cap Fund (Direct Growth)"            → "parag parikh flexi cap"
func normalizeFundName(name string) string {
	lower := strings.ToLower(name)
	lower = strings.NewReplacer("-", " ", "(", " ", ")", " ").Replace(lower)

	var kept []string
	for _, tok := range strings.Fields(lower) {
		if structuralTokens[tok] {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// cacheKey is the identity used for result caching, request collapsing, and
// batch deduplication. Unlike normalizeFundName it keeps plan tokens
// significant: the Direct and Regular variants of one fund are distinct
// schemes with distinct NAVs, so only case and surrounding whitespace fold.
func cacheKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// coreWords returns the normalized tokens of a fund name that are long enough
// to carry meaning (length > 2) and are not structural vocabulary. Used for
// word-overlap fuzzy matching.
func coreWords(name string) []string {
	var words []string
	for _, tok := range strings.Fields(normalizeFundName(name)) {
		if len(tok) > 2 {
			words = append(words, tok)
		}
	}
	return words
}

// SchemeEntry is one registry row: an opaque scheme code, the official
// scheme name, and the per-plan ISINs as published in the registry feed.
type SchemeEntry struct {
	Code            string
	Name            string
	ISINGrowth      string
	ISINDivReinvest string
}

// Registry is the full scheme-code → official-name mapping, loaded once and
// read-only afterwards. Entries are kept in code-sorted order so that every
// strategy in the resolution cascade iterates deterministically; ties in the
// word-overlap strategy go to the first-encountered candidate.
type Registry struct {
	entries []SchemeEntry
	byCode  map[string]SchemeEntry

	// OverlapRatio is the share of the input's core words a candidate must
	// match in the word-overlap strategy. Empirically chosen default of 0.7;
	// overridable through config.
	OverlapRatio float64
}

// NewRegistry builds a Registry from scheme rows. A non-positive overlapRatio
// selects the default of 0.7.
func NewRegistry(schemes []SchemeEntry, overlapRatio float64) *Registry {
	entries := make([]SchemeEntry, len(schemes))
	copy(entries, schemes)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Code < entries[j].Code })
	byCode := make(map[string]SchemeEntry, len(entries))
	for _, e := range entries {
		byCode[e.Code] = e
	}
	if overlapRatio <= 0 {
		overlapRatio = 0.7
	}
	return &Registry{entries: entries, byCode: byCode, OverlapRatio: overlapRatio}
}

// Len returns the number of schemes in the registry.
func (r *Registry) Len() int { return len(r.entries) }

// Entries returns the registry rows in code-sorted order. Callers must not
// mutate the returned slice.
func (r *Registry) Entries() []SchemeEntry { return r.entries }

// Name returns the official name for a scheme code.
func (r *Registry) Name(code string) (string, bool) {
	e, ok := r.byCode[code]
	return e.Name, ok
}

// ISIN returns the feed-published ISIN for a scheme code, preferring the
// growth-plan column over dividend reinvestment. Empty when the feed carried
// neither.
func (r *Registry) ISIN(code string) string {
	e, ok := r.byCode[code]
	if !ok {
		return ""
	}
	if isISINValue(e.ISINGrowth) {
		return e.ISINGrowth
	}
	if isISINValue(e.ISINDivReinvest) {
		return e.ISINDivReinvest
	}
	return ""
}

// The feed's ISIN columns carry "-" or "N.A." for plans without one.
func isISINValue(s string) bool {
	return s != "" && s != "-" && !strings.EqualFold(s, "N.A.")
}

// Search returns every scheme whose official name contains the term
// (case-insensitive), in registry order, capped at maxResults (0 = no cap).
func (r *Registry) Search(term string, maxResults int) []SchemeEntry {
	needle := strings.ToLower(strings.TrimSpace(term))
	if needle == "" {
		return nil
	}
	var matches []SchemeEntry
	for _, e := range r.entries {
		if strings.Contains(strings.ToLower(e.Name), needle) {
			matches = append(matches, e)
			if maxResults > 0 && len(matches) >= maxResults {
				break
			}
		}
	}
	return matches
}

// ResolveSchemeCode maps a loosely-formatted fund name to a registry scheme
// code via an ordered strict-to-lenient strategy cascade, returning on the
// first match. A miss ("", false) is a legitimate outcome, not an error:
// callers fall back to alternate data-source strategies.
//
// Cascade order:
//  1. exact: case-insensitive, whitespace-trimmed equality
//  2. AMC prefix: candidate starts with the issuer token and contains the
//     whole normalized input
//  3. normalized equality (structural tokens stripped on both sides)
//  4. substring: normalized input contained in normalized candidate
//  5. word overlap: best core-word intersection above a minimum threshold
//  6. AMC + first keyword: raw candidate starts with the issuer token and
//     contains the second input token
func (r *Registry) ResolveSchemeCode(fundName string) (string, bool) {
	trimmed := strings.TrimSpace(fundName)
	if trimmed == "" {
		return "", false
	}

	// Strategy 1: exact match.
	for _, e := range r.entries {
		if strings.EqualFold(strings.TrimSpace(e.Name), trimmed) {
			log.Debugf("resolver: exact match %q → %s", fundName, e.Code)
			return e.Code, true
		}
	}

	norm := normalizeFundName(trimmed)
	tokens := strings.Fields(norm)

	// Strategy 2: AMC-prefix match. The first normalized token is the issuer;
	// require the candidate to start with it and to contain the full input.
	if len(tokens) > 0 && norm != "" {
		issuer := tokens[0]
		for _, e := range r.entries {
			candNorm := normalizeFundName(e.Name)
			if strings.HasPrefix(candNorm, issuer) && strings.Contains(candNorm, norm) {
				log.Debugf("resolver: AMC-prefix match %q → %s (%s)", fundName, e.Code, e.Name)
				return e.Code, true
			}
		}
	}

	// Strategy 3: normalized equality.
	if norm != "" {
		for _, e := range r.entries {
			if normalizeFundName(e.Name) == norm {
				log.Debugf("resolver: normalized match %q → %s (%s)", fundName, e.Code, e.Name)
				return e.Code, true
			}
		}
	}

	// Strategy 4: normalized substring.
	if norm != "" {
		for _, e := range r.entries {
			if strings.Contains(normalizeFundName(e.Name), norm) {
				log.Debugf("resolver: substring match %q → %s (%s)", fundName, e.Code, e.Name)
				return e.Code, true
			}
		}
	}

	// Strategy 5: word-overlap fuzzy match. Accept the candidate with the
	// highest core-word intersection, requiring at least
	// max(2, ceil(0.7 * input core words)) shared words. First-encountered
	// candidate wins ties.
	inputWords := coreWords(trimmed)
	if len(inputWords) > 0 {
		minOverlap := int(math.Ceil(r.OverlapRatio * float64(len(inputWords))))
		if minOverlap < 2 {
			minOverlap = 2
		}
		inputSet := make(map[string]bool, len(inputWords))
		for _, w := range inputWords {
			inputSet[w] = true
		}

		bestCode := ""
		bestScore := 0
		for _, e := range r.entries {
			score := 0
			for _, w := range coreWords(e.Name) {
				if inputSet[w] {
					score++
				}
			}
			if score >= minOverlap && score > bestScore {
				bestScore = score
				bestCode = e.Code
			}
		}
		if bestCode != "" {
			log.Debugf("resolver: word-overlap match %q → %s (%d/%d words)", fundName, bestCode, bestScore, len(inputWords))
			return bestCode, true
		}
	}

	// Strategy 6: AMC + first-keyword fallback against the raw (lowercased,
	// unnormalized) candidate name.
	if len(tokens) >= 2 {
		issuer, keyword := tokens[0], tokens[1]
		for _, e := range r.entries {
			rawLower := strings.ToLower(strings.TrimSpace(e.Name))
			if strings.HasPrefix(rawLower, issuer) && strings.Contains(rawLower, keyword) {
				log.Debugf("resolver: AMC+keyword match %q → %s (%s)", fundName, e.Code, e.Name)
				return e.Code, true
			}
		}
	}

	return "", false
}
