// Package processdb is a client for the live process-database calculation
// service.
package processdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/impact-engine/internal/resilience"
)

const (
	defaultBaseURL = "https://api.processdb.example.com"
	defaultMethod  = "EF 3.1"
)

// Client runs impact calculations against the process database.
type Client interface {
	Calculate(ctx context.Context, req CalculationRequest) (*CalculationResponse, error)
}

// CalculationRequest is the request body for POST /v1/calculations.
type CalculationRequest struct {
	ProcessID string  `json:"process_id"`
	Amount    float64 `json:"amount"`
	Method    string  `json:"impact_method"`
}

// CalculationResponse is the response from POST /v1/calculations.
type CalculationResponse struct {
	ProcessID string         `json:"process_id"`
	Method    string         `json:"impact_method"`
	Impacts   []ImpactAmount `json:"impacts"`
}

// ImpactAmount is one impact category result.
type ImpactAmount struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
}

// StatusError is returned for non-200 responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("processdb: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	return resilience.IsTransientStatus(e.StatusCode)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithMethod overrides the default impact method.
func WithMethod(method string) Option {
	return func(c *httpClient) {
		c.method = method
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	method  string
	http    *http.Client
}

// NewClient creates a process-database client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		method:  defaultMethod,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Calculate(ctx context.Context, req CalculationRequest) (*CalculationResponse, error) {
	if req.ProcessID == "" {
		return nil, eris.New("processdb: process id is required")
	}
	if req.Method == "" {
		req.Method = c.method
	}
	if req.Amount == 0 {
		req.Amount = 1
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "processdb: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/calculations", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "processdb: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "processdb: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "processdb: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result CalculationResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "processdb: unmarshal response")
	}
	if result.ProcessID == "" {
		result.ProcessID = req.ProcessID
	}
	if result.Method == "" {
		result.Method = req.Method
	}
	return &result, nil
}
