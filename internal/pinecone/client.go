// Package pinecone is a lightweight client for the Pinecone control and
// data planes. Only the operations this service needs are implemented:
// list/create/describe index, upsert and query.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// ControlPlaneBase is the base URL for index management.
	ControlPlaneBase = "https://api.pinecone.io"
	// APIVersion is the X-Pinecone-API-Version header value.
	APIVersion = "2025-01"
)

// Client is a Pinecone API client. Data-plane requests are addressed to the
// per-index host returned by the control plane.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the control-plane base URL. Tests point this at an
// httptest server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Pinecone client.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("pinecone API key is required")
	}

	c := &Client{
		apiKey:     apiKey,
		baseURL:    ControlPlaneBase,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListIndexes returns all indexes visible to the API key.
func (c *Client) ListIndexes(ctx context.Context) ([]Index, error) {
	var resp listIndexesResponse
	if err := c.makeRequest(ctx, http.MethodGet, c.baseURL+"/indexes", nil, &resp); err != nil {
		return nil, fmt.Errorf("list indexes: %w", err)
	}
	return resp.Indexes, nil
}

// CreateIndex creates a dense serverless index. Index creation is a
// billable remote side effect; callers must check existence first.
func (c *Client) CreateIndex(ctx context.Context, name string, dimension int32, metric, cloud, region string) (*Index, error) {
	req := createIndexRequest{
		Name:      name,
		Dimension: dimension,
		Metric:    metric,
		Spec: IndexSpec{
			Serverless: &ServerlessSpec{Cloud: cloud, Region: region},
		},
		VectorType: "dense",
	}

	var idx Index
	if err := c.makeRequest(ctx, http.MethodPost, c.baseURL+"/indexes", req, &idx); err != nil {
		return nil, fmt.Errorf("create index %q: %w", name, err)
	}
	return &idx, nil
}

// DescribeIndex returns the index model, including its data-plane host.
func (c *Client) DescribeIndex(ctx context.Context, name string) (*Index, error) {
	var idx Index
	if err := c.makeRequest(ctx, http.MethodGet, c.baseURL+"/indexes/"+name, nil, &idx); err != nil {
		return nil, fmt.Errorf("describe index %q: %w", name, err)
	}
	return &idx, nil
}

// Upsert writes vectors to the index behind host. Repeated calls with
// identical content create duplicate records; ids are never reused.
func (c *Client) Upsert(ctx context.Context, host string, vectors []UpsertVector) (int, error) {
	req := upsertRequest{Vectors: vectors}

	var resp upsertResponse
	if err := c.makeRequest(ctx, http.MethodPost, hostURL(host)+"/vectors/upsert", req, &resp); err != nil {
		return 0, fmt.Errorf("upsert: %w", err)
	}
	return resp.UpsertedCount, nil
}

// Query runs an approximate nearest-neighbor search, returning at most topK
// matches in descending score order.
func (c *Client) Query(ctx context.Context, host string, vector []float32, topK int, includeMetadata bool) ([]QueryMatch, error) {
	req := queryRequest{
		Vector:          vector,
		TopK:            topK,
		IncludeMetadata: includeMetadata,
	}

	var resp queryResponse
	if err := c.makeRequest(ctx, http.MethodPost, hostURL(host)+"/query", req, &resp); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return resp.Matches, nil
}

// hostURL normalizes the data-plane host returned by the control plane,
// which comes without a scheme.
func hostURL(host string) string {
	if len(host) >= 8 && (host[:7] == "http://" || host[:8] == "https://") {
		return host
	}
	return "https://" + host
}

// makeRequest performs one HTTP request against the Pinecone API.
func (c *Client) makeRequest(ctx context.Context, method, url string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("X-Pinecone-API-Version", APIVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("pinecone API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshaling response: %w", err)
		}
	}

	return nil
}
