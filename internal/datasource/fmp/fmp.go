// Package fmp fetches analyst estimates and earnings surprises from Financial Modeling Prep.
package fmp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"estimate-revision-model/internal/api"
	"estimate-revision-model/internal/types"
)

// ErrNoData is returned when the provider answers with an empty result set
var ErrNoData = errors.New("no data returned")

// Client implements the estimate and surprise sources on top of the FMP v3 API
type Client struct {
	api    *api.Client
	apiKey string
}

// NewClient creates an FMP client. The api client should carry the base URL.
func NewClient(apiClient *api.Client, apiKey string) *Client {
	return &Client{api: apiClient, apiKey: apiKey}
}

// FetchAnalystEstimates returns consensus EPS estimates for upcoming target periods
func (c *Client) FetchAnalystEstimates(ctx context.Context, symbol string, period types.Period, limit int) ([]types.AnalystEstimate, error) {
	path := "/api/v3/analyst-estimates/" + url.PathEscape(strings.ToUpper(symbol))
	resp, err := c.api.GET(ctx, path, map[string]string{
		"period": string(period),
		"limit":  strconv.Itoa(limit),
		"apikey": c.apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s analyst estimates for %s: %w", period, symbol, err)
	}

	var rows []types.AnalystEstimate
	if err := resp.ParseJSON(&rows); err != nil {
		return nil, fmt.Errorf("analyst estimates for %s: %w", symbol, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("analyst estimates for %s: %w", symbol, ErrNoData)
	}

	for i := range rows {
		if rows[i].Symbol == "" {
			rows[i].Symbol = symbol
		}
	}
	return rows, nil
}

// FetchEarningsSurprises returns the reported-vs-estimated earnings history
func (c *Client) FetchEarningsSurprises(ctx context.Context, symbol string) ([]types.EarningsSurprise, error) {
	path := "/api/v3/earnings-surprises/" + url.PathEscape(strings.ToUpper(symbol))
	resp, err := c.api.GET(ctx, path, map[string]string{"apikey": c.apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch earnings surprises for %s: %w", symbol, err)
	}

	var rows []types.EarningsSurprise
	if err := resp.ParseJSON(&rows); err != nil {
		return nil, fmt.Errorf("earnings surprises for %s: %w", symbol, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("earnings surprises for %s: %w", symbol, ErrNoData)
	}

	for i := range rows {
		if rows[i].Symbol == "" {
			rows[i].Symbol = symbol
		}
	}
	return rows, nil
}
