package models

// WarningCode categorizes warnings by subsystem.
// W1xxx = resolution, W2xxx = external data, W3xxx = input validation, W4xxx = batch.
type WarningCode string

const (
	WarnUnresolvedFund     WarningCode = "W1001" // no scheme code found by any strategy
	WarnFuzzySchemeMatch   WarningCode = "W1002" // scheme accepted via similarity fallback
	WarnNoProviderData     WarningCode = "W2001" // provider returned nothing for every term tried
	WarnProviderDegraded   WarningCode = "W2002" // individual provider call failed, enrichment continued
	WarnInvalidHolding     WarningCode = "W3001" // holding rejected by input validation
	WarnValueDeviation     WarningCode = "W3002" // reported value deviates from units*nav
	WarnRetriedTransient   WarningCode = "W4001" // transient failure retried with backoff
	WarnEnrichmentFailed   WarningCode = "W4002" // fund gave up after all attempts
	WarnEnrichmentTimedOut WarningCode = "W4003" // per-fund timeout exhausted all attempts
)

// ErrorCategory buckets per-fund failures for the quality report breakdown.
type ErrorCategory string

const (
	ErrorUnresolvable    ErrorCategory = "unresolvable"
	ErrorDataUnavailable ErrorCategory = "data_unavailable"
	ErrorTransient       ErrorCategory = "transient"
	ErrorFatal           ErrorCategory = "fatal"
	ErrorValidation      ErrorCategory = "validation"
)

// Warning represents a non-fatal issue encountered during processing.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}
