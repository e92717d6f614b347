package services

import (
	"strconv"
	"strings"

	"github.com/epeers/mfenrich/internal/models"
)

// SafeFloat coerces the loosely-typed values the data providers return into a
// float64. Strings may carry thousands separators and padding ("1,234.56 ").
// nil and anything unparseable return def.
func SafeFloat(v any, def float64) float64 {
	switch x := v.(type) {
	case nil:
		return def
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(x, ",", ""))
		if s == "" {
			return def
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return def
		}
		return f
	default:
		return def
	}
}

// FloatPtr returns a pointer to the coerced value, or nil when v is nil or
// unparseable. Used for optional numeric fields where zero is a valid value.
func FloatPtr(v any) *float64 {
	if v == nil {
		return nil
	}
	const sentinel = -1.7e308
	f := SafeFloat(v, sentinel)
	if f == sentinel {
		return nil
	}
	return &f
}

// NormalizeSectorResult flattens the several sector-allocation shapes the
// providers emit into a single sector -> percentage map. Allocations that are
// zero or negative are dropped. Returns nil when nothing usable remains, so
// callers can distinguish "no sector data" from an empty breakdown.
//
// Recognized shapes, tried in order:
//   - nested: {"EQUITY": {"fundPortfolio": {sector: pct, ...}}}
//   - tabular: parallel "sectorName" and "sectorValue" column slices
//   - flat map of sector -> numeric
//   - list of records with a name key and a value key per entry
func NormalizeSectorResult(raw any) map[string]float64 {
	switch data := raw.(type) {
	case map[string]any:
		if equity, ok := data["EQUITY"].(map[string]any); ok {
			if portfolio, ok := equity["fundPortfolio"].(map[string]any); ok {
				return collectSectorMap(portfolio)
			}
		}
		if names, ok := data["sectorName"].([]any); ok {
			if values, ok := data["sectorValue"].([]any); ok {
				return collectSectorColumns(names, values)
			}
		}
		return collectSectorMap(data)
	case []any:
		return collectSectorRecords(data)
	default:
		return nil
	}
}

func collectSectorMap(m map[string]any) map[string]float64 {
	out := make(map[string]float64, len(m))
	for name, v := range m {
		if name == "portfolioDate" || v == nil {
			continue
		}
		switch v.(type) {
		case map[string]any, []any:
			continue
		}
		if pct := SafeFloat(v, 0); pct > 0 {
			out[name] = pct
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func collectSectorColumns(names, values []any) map[string]float64 {
	n := len(names)
	if len(values) < n {
		n = len(values)
	}
	out := make(map[string]float64, n)
	for i := 0; i < n; i++ {
		name, ok := names[i].(string)
		if !ok || name == "" {
			continue
		}
		if pct := SafeFloat(values[i], 0); pct > 0 {
			out[name] = pct
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func collectSectorRecords(records []any) map[string]float64 {
	out := make(map[string]float64, len(records))
	for _, r := range records {
		rec, ok := r.(map[string]any)
		if !ok {
			continue
		}
		name, _ := rec["assetType"].(string)
		if name == "" {
			name, _ = rec["sectorName"].(string)
		}
		if name == "" {
			continue
		}
		var pct float64
		for _, key := range []string{"percentage", "value", "sectorValue"} {
			if v, present := rec[key]; present {
				pct = SafeFloat(v, 0)
				break
			}
		}
		if pct > 0 {
			out[name] = pct
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// holdingFields is the allow-list of provider holding attributes that survive
// normalization. Everything else the provider attaches is dropped.
var holdingFields = map[string]bool{
	"securityName":       true,
	"isin":               true,
	"ticker":             true,
	"secId":              true,
	"country":            true,
	"sector":             true,
	"numberOfShare":      true,
	"marketValue":        true,
	"weighting":          true,
	"shareChange":        true,
	"firstBoughtDate":    true,
	"holdingTrend":       true,
	"totalReturn1Year":   true,
	"assessment":         true,
	"stockRating":        true,
	"quantRating":        true,
	"susEsgRiskScore":    true,
	"susEsgRiskCategory": true,
	"susEsgRiskGlobes":   true,
	"esgAsOfDate":        true,
}

// FilterHoldings keeps only allow-listed fields from each raw holding record.
// Records with no surviving fields are dropped; nil when nothing survives.
func FilterHoldings(raw []map[string]any) []models.Holding {
	var out []models.Holding
	for _, rec := range raw {
		h := make(models.Holding)
		for k, v := range rec {
			if holdingFields[k] {
				h[k] = v
			}
		}
		if len(h) > 0 {
			out = append(out, h)
		}
	}
	return out
}
