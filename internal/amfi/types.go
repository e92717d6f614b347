package amfi

// SchemeRecord is one row of the NAVAll feed.
type SchemeRecord struct {
	Code            string
	ISINGrowth      string
	ISINDivReinvest string
	Name            string
	NAV             string
	Date            string
}

// ParsedNAV is the latest NAV for a scheme, ready for use.
type ParsedNAV struct {
	SchemeCode string
	NAV        float64
	Date       string
}
