package services

import (
	"regexp"
	"strings"

	"github.com/epeers/mfenrich/internal/models"
)

// issuerAbbreviations maps long-form AMC names to the abbreviation the search
// provider indexes them under.
var issuerAbbreviations = map[string]string{
	"Aditya Birla Sun Life": "ABSL",
}

// GenerateSearchTerms fills in the primary and alternate search terms for a
// resolution result. The primary term is the official registry name when
// resolution succeeded, otherwise the raw input; it is never empty. Alternates
// are predicted-likely variants: plan-suffix decorations when the primary term
// lacks them, issuer abbreviation substitutions, and expansion of the bare
// "HDFC" issuer code (which the search provider conflates with HDFC Bank).
// Alternates are deduplicated preserving first occurrence and never include
// the primary term.
func GenerateSearchTerms(resolved *models.ResolvedFund) {
	primary := resolved.OfficialName
	if primary == "" {
		primary = resolved.Name
	}
	resolved.PrimaryTerm = primary

	var alternates []string
	lower := strings.ToLower(primary)

	if !strings.Contains(lower, "direct") {
		alternates = append(alternates, primary+" Direct Growth", primary+"-Direct-Growth")
	}
	if !strings.Contains(lower, "growth") {
		alternates = append(alternates, primary+" Growth")
	}
	for longForm, abbr := range issuerAbbreviations {
		if strings.Contains(primary, longForm) {
			alternates = append(alternates, strings.ReplaceAll(primary, longForm, abbr))
		}
	}
	if strings.Contains(primary, "HDFC") && !strings.Contains(primary, "Bank") {
		alternates = append(alternates, strings.ReplaceAll(primary, "HDFC", "HDFC Mutual Fund"))
	}

	resolved.AlternateTerms = dedupeTerms(alternates, primary)
}

// planSuffixPattern matches a dash-delimited plan/dividend suffix and
// everything after it, e.g. " - Direct Plan - Growth" or "-IDCW Payout".
var planSuffixPattern = regexp.MustCompile(`(?i)\s*-\s*(Direct|Regular|Growth|Dividend|Monthly|Annual|IDCW|Payout|Reinvestment|Bonus|Hedged).*$`)

// parentheticalPattern matches parenthesized segments (NFO notes and the like).
var parentheticalPattern = regexp.MustCompile(`\s*\(.*?\)\s*`)

// GenerateFallbackTerms produces last-resort search terms, tried only after
// the primary term and every alternate failed to return data. Each step is
// appended only when it yields a new non-empty string:
//
//  1. the raw user input (covers user abbreviations)
//  2. the official name with plan-type suffixes stripped
//  3. the official name with parenthetical content removed
//  4. the first three words of step 3 (core fund name)
//  5. the first up-to-three words of the raw official name (AMC + category)
func GenerateFallbackTerms(userInput, officialName string) []string {
	var terms []string

	if userInput != "" && !strings.EqualFold(userInput, officialName) {
		terms = append(terms, userInput)
	}

	stripped := strings.TrimSpace(planSuffixPattern.ReplaceAllString(officialName, ""))
	if stripped != "" {
		terms = append(terms, stripped)
	}

	cleaned := strings.TrimSpace(parentheticalPattern.ReplaceAllString(officialName, " "))
	if cleaned != "" {
		terms = append(terms, cleaned)
	}

	if words := strings.Fields(cleaned); len(words) > 2 {
		terms = append(terms, strings.Join(words[:3], " "))
	}

	if words := strings.Fields(officialName); len(words) >= 2 {
		n := 3
		if len(words) < n {
			n = len(words)
		}
		terms = append(terms, strings.Join(words[:n], " "))
	}

	return dedupeTerms(terms, "")
}

// dedupeTerms removes duplicates and empty strings preserving first-occurrence
// order, and drops the excluded term (the primary, for alternates).
func dedupeTerms(terms []string, exclude string) []string {
	seen := make(map[string]bool, len(terms))
	var out []string
	for _, t := range terms {
		if t == "" || t == exclude || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
