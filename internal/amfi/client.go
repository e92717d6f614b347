package amfi

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// AMFI publishes the full Indian mutual fund scheme universe as a
// semicolon-delimited NAV feed, and the MFAPI mirror exposes per-scheme
// detail as JSON. Neither requires an API key.
const (
	defaultNAVAllURL = "https://www.amfiindia.com/spages/NAVAll.txt"
	defaultMFAPIURL  = "https://api.mfapi.in/mf"
)

// Client fetches the scheme registry and per-scheme data.
type Client struct {
	navAllURL  string
	mfapiURL   string
	httpClient *http.Client
}

// NewClient creates a client against the public AMFI and MFAPI endpoints.
func NewClient() *Client {
	return &Client{
		navAllURL: defaultNAVAllURL,
		mfapiURL:  defaultMFAPIURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewClientWithBaseURLs creates a client with custom endpoints (for testing).
func NewClientWithBaseURLs(navAllURL, mfapiURL string) *Client {
	return &Client{
		navAllURL: navAllURL,
		mfapiURL:  mfapiURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetAllSchemes downloads and parses the NAVAll feed into scheme code/name
// pairs. Feed lines look like:
//
//	119551;INF209K01UN8;INF209K01UQ1;Aditya Birla Sun Life Banking...;103.68;29-Aug-2026
//
// Section headers, blank lines, and malformed rows are skipped.
func (c *Client) GetAllSchemes(ctx context.Context) ([]SchemeRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.navAllURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("NAVAll feed returned status %d", resp.StatusCode)
	}

	var schemes []SchemeRecord
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		rec, ok := parseNAVLine(scanner.Text())
		if !ok {
			continue
		}
		schemes = append(schemes, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read NAVAll feed: %w", err)
	}
	if len(schemes) == 0 {
		return nil, fmt.Errorf("NAVAll feed contained no schemes")
	}

	return schemes, nil
}

// parseNAVLine splits one feed line. The first field must be an all-digit
// scheme code; anything else is a header or separator.
func parseNAVLine(line string) (SchemeRecord, bool) {
	fields := strings.Split(line, ";")
	if len(fields) < 5 {
		return SchemeRecord{}, false
	}
	code := strings.TrimSpace(fields[0])
	if code == "" {
		return SchemeRecord{}, false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return SchemeRecord{}, false
		}
	}
	name := strings.TrimSpace(fields[3])
	if name == "" {
		return SchemeRecord{}, false
	}
	rec := SchemeRecord{
		Code:            code,
		ISINGrowth:      strings.TrimSpace(fields[1]),
		ISINDivReinvest: strings.TrimSpace(fields[2]),
		Name:            name,
		NAV:             strings.TrimSpace(fields[4]),
	}
	if len(fields) > 5 {
		rec.Date = strings.TrimSpace(fields[5])
	}
	return rec, true
}

// GetSchemeDetails fetches the MFAPI detail document for a scheme code. The
// payload shape varies across schemes, so it is returned as a raw map for the
// caller to pick fields out of.
func (c *Client) GetSchemeDetails(ctx context.Context, schemeCode string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.mfapiURL+"/"+schemeCode, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("MFAPI returned status %d for scheme %s", resp.StatusCode, schemeCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var details map[string]any
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return details, nil
}

// GetSchemeNAV fetches the latest NAV for a scheme from MFAPI. Returns the
// NAV value and its as-of date string.
func (c *Client) GetSchemeNAV(ctx context.Context, schemeCode string) (*ParsedNAV, error) {
	details, err := c.GetSchemeDetails(ctx, schemeCode)
	if err != nil {
		return nil, err
	}

	history, ok := details["data"].([]any)
	if !ok || len(history) == 0 {
		return nil, fmt.Errorf("no NAV history for scheme %s", schemeCode)
	}
	latest, ok := history[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("malformed NAV entry for scheme %s", schemeCode)
	}

	navStr, _ := latest["nav"].(string)
	var nav float64
	if _, err := fmt.Sscanf(strings.ReplaceAll(navStr, ",", ""), "%f", &nav); err != nil {
		return nil, fmt.Errorf("failed to parse NAV %q for scheme %s", navStr, schemeCode)
	}

	date, _ := latest["date"].(string)
	return &ParsedNAV{
		SchemeCode: schemeCode,
		NAV:        nav,
		Date:       date,
	}, nil
}
