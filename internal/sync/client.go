package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ferryhq/ferrytask/internal/logger"
	"github.com/ferryhq/ferrytask/internal/model"
)

const (
	// BatchTimeout bounds one batch transmission; a timeout counts as a
	// transport failure of the whole batch.
	BatchTimeout = 30 * time.Second
	// ProbeTimeout bounds the connectivity probe
	ProbeTimeout = 5 * time.Second
)

// Remote transports batches to the sync server. Semantic per-item errors
// travel inside the BatchResponse; an error return means the transport
// or protocol failed for the whole batch.
type Remote interface {
	PostBatch(ctx context.Context, req model.BatchRequest) (*model.BatchResponse, error)
	CheckConnectivity(ctx context.Context) bool
}

// Client is the stateless HTTP transporter for the sync protocol
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: BatchTimeout},
	}
}

// PostBatch sends one batch to POST /sync/batch
func (c *Client) PostBatch(ctx context.Context, batch model.BatchRequest) (*model.BatchResponse, error) {
	body, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("failed to encode batch: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, BatchTimeout)
	defer cancel()

	url := c.baseURL + "/sync/batch"
	logger.Debug("HTTP Request",
		logger.F("method", "POST"),
		logger.F("url", url),
		logger.F("items", len(batch.Items)),
		logger.F("bodySize", len(body)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("HTTP request failed", logger.F("error", err), logger.F("url", url))
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	logger.Debug("HTTP Response",
		logger.F("status", resp.StatusCode),
		logger.F("statusText", resp.Status))

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		logger.Error("Batch rejected",
			logger.F("status", resp.StatusCode),
			logger.F("response", string(respBody)))
		return nil, fmt.Errorf("server error: %s", strings.TrimSpace(string(respBody)))
	}

	var result model.BatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode batch response: %w", err)
	}

	return &result, nil
}

// CheckConnectivity probes GET /sync/health; any 2xx counts as reachable
func (c *Client) CheckConnectivity(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sync/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Debug("Connectivity probe failed", logger.F("error", err))
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
