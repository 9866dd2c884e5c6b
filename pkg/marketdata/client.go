package marketdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/quantfold/equilens-ai-go/internal/config"
)

// Client is the HTTP client for the market-data sidecar.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	timeout    time.Duration
}

// NewClient creates a new sidecar client instance.
func NewClient(cfg *config.DataServiceConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		BaseURL: strings.TrimSuffix(cfg.ServiceURL, "/"),
		timeout: timeout,
	}
}

// HealthCheck checks if the data service is healthy.
func (c *Client) HealthCheck(ctx context.Context) (*HealthResponse, error) {
	var response HealthResponse
	err := c.makeRequest(ctx, "GET", "/health", nil, &response)
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// GetFundamentals retrieves a ticker's fundamental snapshot.
func (c *Client) GetFundamentals(ctx context.Context, ticker string) (*FundamentalsResponse, error) {
	path := fmt.Sprintf("/api/fundamentals/%s", url.PathEscape(ticker))
	var response FundamentalsResponse
	err := c.makeRequest(ctx, "GET", path, nil, &response)
	return &response, err
}

// GetForecast retrieves the trained models' raw outputs for a ticker.
func (c *Client) GetForecast(ctx context.Context, ticker string) (*ForecastResponse, error) {
	path := fmt.Sprintf("/api/forecast/%s", url.PathEscape(ticker))
	var response ForecastResponse
	err := c.makeRequest(ctx, "GET", path, nil, &response)
	return &response, err
}

// GetPeers retrieves headline ratios for a ticker's peer group. An explicit
// peer list narrows the group; empty means the sidecar's default universe.
func (c *Client) GetPeers(ctx context.Context, ticker string, peers []string) (*PeersResponse, error) {
	path := fmt.Sprintf("/api/peers/%s", url.PathEscape(ticker))
	if len(peers) > 0 {
		params := url.Values{}
		params.Set("peers", strings.Join(peers, ","))
		path += "?" + params.Encode()
	}
	var response PeersResponse
	err := c.makeRequest(ctx, "GET", path, nil, &response)
	return &response, err
}

// GetPriceHistory retrieves recent daily OHLCV bars for a ticker.
func (c *Client) GetPriceHistory(ctx context.Context, ticker string, limit int) (*PriceHistoryResponse, error) {
	path := fmt.Sprintf("/api/history/%s", url.PathEscape(ticker))
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var response PriceHistoryResponse
	err := c.makeRequest(ctx, "GET", path, nil, &response)
	return &response, err
}

// makeRequest is a helper method to make HTTP requests to the data service
func (c *Client) makeRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.BaseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "EquiLens-AI-Go/1.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Error closing response body: %v", err)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errorResp ErrorResponse
		if err := json.Unmarshal(respBody, &errorResp); err == nil && errorResp.Error != "" {
			return fmt.Errorf("data service error (%d): %s", resp.StatusCode, errorResp.Error)
		}
		return fmt.Errorf("data service error (%d): %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

// Close closes the HTTP client (if needed for cleanup)
func (c *Client) Close() error {
	// HTTP client doesn't need explicit closing, but this method
	// is provided for interface compatibility
	return nil
}
