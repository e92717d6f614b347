package models

// ParsedHolding is one row of a user's uploaded holdings statement, already
// parsed upstream. Only FundName is required; the numeric fields are validated
// before enrichment starts.
type ParsedHolding struct {
	FundName     string   `json:"fund_name" binding:"required"`
	Units        *float64 `json:"units,omitempty"`
	NAV          *float64 `json:"nav,omitempty"`
	Value        *float64 `json:"value,omitempty"`
	PurchaseDate string   `json:"purchase_date,omitempty"`
	ISIN         string   `json:"isin,omitempty"`
	AMC          string   `json:"amc,omitempty"`
	Category     string   `json:"category,omitempty"`
	FolioNumber  string   `json:"folio_number,omitempty"`
}

// EnrichmentRequest is the request body for POST /etl/enrich.
type EnrichmentRequest struct {
	UploadID       string          `json:"upload_id" binding:"required"`
	UserID         string          `json:"user_id" binding:"required"`
	FileType       string          `json:"file_type,omitempty"`
	ParsedHoldings []ParsedHolding `json:"parsed_holdings" binding:"required"`
}

// QualityReport summarizes a batch run: raw counts, a flat warning list, and
// a per-category error breakdown. Immutable once returned.
type QualityReport struct {
	SuccessfullyEnriched int                   `json:"successfully_enriched"`
	FailedToEnrich       int                   `json:"failed_to_enrich"`
	ValidationFailures   int                   `json:"validation_failures"`
	Warnings             []string              `json:"warnings"`
	ErrorBreakdown       map[ErrorCategory]int `json:"error_breakdown,omitempty"`
}

// AddWarning appends a warning message to the report.
func (q *QualityReport) AddWarning(msg string) {
	q.Warnings = append(q.Warnings, msg)
}

// CountError increments the breakdown counter for a category.
func (q *QualityReport) CountError(cat ErrorCategory) {
	if q.ErrorBreakdown == nil {
		q.ErrorBreakdown = make(map[ErrorCategory]int)
	}
	q.ErrorBreakdown[cat]++
}

// EnrichmentResponse is the response body for POST /etl/enrich.
// Status is "completed" or "failed"; a failed response carries ErrorMessage
// and no enriched funds.
type EnrichmentResponse struct {
	UploadID        string         `json:"upload_id"`
	Status          string         `json:"status"`
	DurationSeconds *int           `json:"duration_seconds"`
	EnrichedFunds   []EnrichedFund `json:"enriched_funds"`
	Quality         QualityReport  `json:"enrichment_quality"`
	ErrorMessage    string         `json:"error_message,omitempty"`
}

// ErrorResponse is the generic error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
