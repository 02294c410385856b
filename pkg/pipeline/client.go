// Package pipeline provides clients for the Pipeline API, the upstream
// provider of shipment search, coordinate and document data.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/trackport/tracking-engine/pkg/config"
	"github.com/trackport/tracking-engine/pkg/logging"
	"github.com/trackport/tracking-engine/pkg/retry"
)

// SearchRecord is one shipment hit from the search endpoint. Only the fields
// the aggregator consumes are decoded; the raw payload is passed through.
type SearchRecord struct {
	CompanyID int64  `json:"companyId"`
	BolNum    string `json:"bolNum"`
}

// SearchResult holds the raw search payload alongside the decoded records.
type SearchResult struct {
	Raw     json.RawMessage
	Records []SearchRecord
}

// Document is one shipment document as returned by the documents endpoint.
type Document struct {
	Category string `json:"category"`
	URL      string `json:"url"`
	FileName string `json:"fileName"`
}

// ShipmentSearcher searches shipments by tracking number.
type ShipmentSearcher interface {
	SearchShipment(ctx context.Context, trackingNumber, searchOption string, globalSearch bool) (*SearchResult, error)
}

// CoordinatesFetcher fetches shipment coordinate data.
type CoordinatesFetcher interface {
	GetCoordinates(ctx context.Context, trackingNumber string, pipelineCompanyID int64) (json.RawMessage, error)
}

// DocumentsFetcher fetches shipment documents using a per-company API token.
type DocumentsFetcher interface {
	GetShipmentDocuments(ctx context.Context, bolNum, apiToken string) ([]Document, error)
}

// Client provides access to the Pipeline API.
type Client struct {
	cfg        *config.PipelineConfig
	httpClient *http.Client
	retryCfg   *retry.Config
	logger     *zap.Logger
}

// NewClient creates a new Pipeline API client.
func NewClient(cfg *config.PipelineConfig, logger *zap.Logger) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout(),
		},
		retryCfg: &retry.Config{
			MaxRetries:   2,
			InitialDelay: retry.DefaultConfig().InitialDelay,
			MaxDelay:     retry.DefaultConfig().MaxDelay,
			Multiplier:   retry.DefaultConfig().Multiplier,
			JitterFactor: retry.DefaultConfig().JitterFactor,
		},
		logger: logger.Named("pipeline"),
	}
}

var (
	_ ShipmentSearcher   = (*Client)(nil)
	_ CoordinatesFetcher = (*Client)(nil)
	_ DocumentsFetcher   = (*Client)(nil)
)

// SearchShipment calls the shipment search endpoint. Any transport failure or
// non-2xx response is an error; the caller decides the outcome for an empty
// result set.
func (c *Client) SearchShipment(ctx context.Context, trackingNumber, searchOption string, globalSearch bool) (*SearchResult, error) {
	payload, err := json.Marshal(map[string]any{
		"trackingNumber": trackingNumber,
		"searchOption":   searchOption,
		"globalSearch":   globalSearch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.SearchBaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	c.setPlatformAuth(req)

	c.logger.Debug("Searching shipment",
		zap.String("tracking_number", trackingNumber),
		zap.String("search_option", searchOption))

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Data []SearchRecord `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	return &SearchResult{Raw: body, Records: envelope.Data}, nil
}

// GetCoordinates fetches coordinate data for a shipment. The call is
// idempotent and retried on transient failures.
func (c *Client) GetCoordinates(ctx context.Context, trackingNumber string, pipelineCompanyID int64) (json.RawMessage, error) {
	endpoint, err := url.Parse(c.cfg.CoordinatesBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid coordinates base URL: %w", err)
	}
	q := endpoint.Query()
	q.Set("trackingNumber", trackingNumber)
	q.Set("companyId", strconv.FormatInt(pipelineCompanyID, 10))
	endpoint.RawQuery = q.Encode()

	return retry.DoWithResultIfRetryable(ctx, c.retryCfg, func() (json.RawMessage, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create coordinates request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		c.setPlatformAuth(req)

		body, err := c.do(req)
		if err != nil {
			return nil, err
		}
		return json.RawMessage(body), nil
	})
}

// GetShipmentDocuments fetches documents for a bill of lading, authenticated
// with the company's own API token.
func (c *Client) GetShipmentDocuments(ctx context.Context, bolNum, apiToken string) ([]Document, error) {
	endpoint, err := url.Parse(c.cfg.DocumentsBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid documents base URL: %w", err)
	}
	q := endpoint.Query()
	q.Set("bolNum", bolNum)
	endpoint.RawQuery = q.Encode()

	return retry.DoWithResultIfRetryable(ctx, c.retryCfg, func() ([]Document, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create documents request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Api-Key", apiToken)

		body, err := c.do(req)
		if err != nil {
			return nil, err
		}

		var documents []Document
		if err := json.Unmarshal(body, &documents); err != nil {
			return nil, fmt.Errorf("failed to decode documents response: %w", err)
		}
		return documents, nil
	})
}

// do executes a request and returns the body for 2xx responses.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call pipeline API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Warn("Pipeline API returned error",
			zap.String("url", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", logging.TruncateString(string(body), 512)))
		return nil, fmt.Errorf("pipeline API returned status %d", resp.StatusCode)
	}

	return body, nil
}

func (c *Client) setPlatformAuth(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("X-Api-Key", c.cfg.APIKey)
	}
}
