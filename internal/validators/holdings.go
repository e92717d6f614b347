package validators

import (
	"fmt"
	"math"
	"strings"

	"github.com/epeers/mfenrich/internal/models"
)

// maxValueDeviation is the tolerated relative gap between a holding's
// reported value and units*nav before a consistency warning is raised.
const maxValueDeviation = 0.02

// Result is the outcome of validating one parsed holding.
type Result struct {
	Valid    bool
	Errors   []string
	Warnings []models.Warning
}

// ValidateHolding checks one parsed holding for structural problems. A
// holding with no fund name, or with non-positive units or NAV, is invalid
// and skipped from enrichment. A reported value inconsistent with units*nav
// is only a warning; statement rounding makes small gaps routine.
func ValidateHolding(h *models.ParsedHolding) Result {
	res := Result{Valid: true}

	if strings.TrimSpace(h.FundName) == "" {
		res.Valid = false
		res.Errors = append(res.Errors, "fund_name is required")
	}
	if h.Units != nil && *h.Units <= 0 {
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf("units must be positive, got %g", *h.Units))
	}
	if h.NAV != nil && *h.NAV <= 0 {
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf("nav must be positive, got %g", *h.NAV))
	}
	if !res.Valid {
		return res
	}

	if h.Units != nil && h.NAV != nil && h.Value != nil && *h.Value > 0 {
		expected := *h.Units * *h.NAV
		if expected > 0 {
			deviation := math.Abs(*h.Value-expected) / expected
			if deviation > maxValueDeviation {
				res.Warnings = append(res.Warnings, models.Warning{
					Code: models.WarnValueDeviation,
					Message: fmt.Sprintf("%s: reported value %.2f deviates %.1f%% from units*nav %.2f",
						h.FundName, *h.Value, deviation*100, expected),
				})
			}
		}
	}

	return res
}

// ValidateHoldings validates a whole upload. Returns the holdings that
// passed, the warnings accumulated across all rows, and the count of
// rejected rows.
func ValidateHoldings(holdings []models.ParsedHolding) ([]models.ParsedHolding, []models.Warning, int) {
	valid := make([]models.ParsedHolding, 0, len(holdings))
	var warnings []models.Warning
	rejected := 0

	for i := range holdings {
		res := ValidateHolding(&holdings[i])
		warnings = append(warnings, res.Warnings...)
		if !res.Valid {
			rejected++
			warnings = append(warnings, models.Warning{
				Code:    models.WarnInvalidHolding,
				Message: fmt.Sprintf("holding %d rejected: %s", i, strings.Join(res.Errors, "; ")),
			})
			continue
		}
		valid = append(valid, holdings[i])
	}

	return valid, warnings, rejected
}
