package morningstar

// FundSearchResponse represents the fund search response
type FundSearchResponse struct {
	Results []FundResult `json:"results"`
}

// FundResult is a single search hit
type FundResult struct {
	SecID string `json:"secId"`
	Name  string `json:"name"`
	ISIN  string `json:"isin"`
}

// HoldingsResponse represents the portfolio holdings response
type HoldingsResponse struct {
	EquityHoldings []map[string]any `json:"equityHoldingPage"`
}
