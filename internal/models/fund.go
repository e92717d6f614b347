package models

// ResolvedFund is the outcome of name resolution: the registry identity of a
// user-supplied fund name plus the search terms generated for the fuzzy
// search provider.
type ResolvedFund struct {
	Name         string // raw user input
	SchemeCode   string
	OfficialName string // registry name; empty when resolution was fuzzy-only

	PrimaryTerm    string
	AlternateTerms []string
}

// SearchTerms returns the primary term followed by the alternates.
func (r *ResolvedFund) SearchTerms() []string {
	terms := make([]string, 0, 1+len(r.AlternateTerms))
	if r.PrimaryTerm != "" {
		terms = append(terms, r.PrimaryTerm)
	}
	return append(terms, r.AlternateTerms...)
}

// Holding is one portfolio holding as returned by the data provider, trimmed
// to the allow-listed attribute set. The attribute set varies by fund type,
// hence the open map rather than a struct.
type Holding map[string]any

// EnrichedFund is the assembled enrichment result for one fund. Pointer
// fields distinguish "provider had no value" from a legitimate zero.
type EnrichedFund struct {
	FundName         string             `json:"fund_name"`
	ISIN             string             `json:"isin,omitempty"`
	AMC              string             `json:"amc,omitempty"`
	Category         string             `json:"category,omitempty"`
	ExpenseRatio     *float64           `json:"expense_ratio,omitempty"`
	SectorAllocation map[string]float64 `json:"sector_allocation,omitempty"`
	TopHoldings      []Holding          `json:"top_holdings,omitempty"`
	CurrentNAV       *float64           `json:"current_nav,omitempty"`
	NAVAsOf          string             `json:"nav_as_of,omitempty"`
}

// FundRef is a search-provider fund handle: the provider's security id plus
// the identifying fields the search hit carried.
type FundRef struct {
	SecID string
	Name  string
	ISIN  string
}
