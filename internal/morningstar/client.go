package morningstar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/epeers/mfenrich/internal/models"
)

const defaultBaseURL = "https://www.morningstar.in/api/v2"

// Client is an HTTP client for the Morningstar fund data API. Search is by
// free-text term or ISIN; portfolio endpoints are keyed by security id.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Morningstar client.
func NewClient() *Client {
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewClientWithBaseURL creates a new Morningstar client with a custom base URL (for testing).
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetFund searches for a fund by name or ISIN and returns the best match,
// or nil when nothing matched.
func (c *Client) GetFund(ctx context.Context, term string) (*models.FundRef, error) {
	params := url.Values{}
	params.Set("q", term)
	params.Set("limit", "1")

	body, err := c.doRequest(ctx, "/search/funds", params)
	if err != nil {
		return nil, err
	}

	var searchResp FundSearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(searchResp.Results) == 0 {
		return nil, nil
	}

	best := searchResp.Results[0]
	return &models.FundRef{
		SecID: best.SecID,
		Name:  best.Name,
		ISIN:  best.ISIN,
	}, nil
}

// GetFundHoldings fetches the portfolio holdings for a security id. Holding
// records carry provider-specific attributes whose set varies by fund type,
// so each record is returned as a raw map.
func (c *Client) GetFundHoldings(ctx context.Context, secID string, topN int) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("secId", secID)
	if topN > 0 {
		params.Set("limit", strconv.Itoa(topN))
	}

	body, err := c.doRequest(ctx, "/portfolio/holdings", params)
	if err != nil {
		return nil, err
	}

	var holdingsResp HoldingsResponse
	if err := json.Unmarshal(body, &holdingsResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return holdingsResp.EquityHoldings, nil
}

// GetSectorAllocation fetches the sector breakdown for a security id. The
// response shape differs between equity and hybrid funds, so the payload is
// returned undecoded for normalization downstream.
func (c *Client) GetSectorAllocation(ctx context.Context, secID string) (any, error) {
	params := url.Values{}
	params.Set("secId", secID)

	body, err := c.doRequest(ctx, "/portfolio/sectors", params)
	if err != nil {
		return nil, err
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return payload, nil
}

func (c *Client) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return body, nil
}
