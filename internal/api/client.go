// Package api talks to the recommendation engine's HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/verte-zerg/recdash/internal/logging"
	"github.com/verte-zerg/recdash/internal/model"
)

const (
	statsPath     = "/api/v1/stats"
	recommendPath = "/api/v1/recommend/"
	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 8 << 20
)

// TransportError reports a failed call: the request could not be made, the
// server answered with a non-2xx status, or the body could not be read.
type TransportError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Client calls the stats and recommendation endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base url is empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}
	c := &Client{baseURL: baseURL, httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Stats fetches the current statistics snapshot.
func (c *Client) Stats(ctx context.Context) (model.StatsSnapshot, error) {
	body, err := c.get(ctx, statsPath, c.baseURL+statsPath)
	if err != nil {
		return nil, err
	}
	var snapshot model.StatsSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, &TransportError{Endpoint: statsPath, Err: fmt.Errorf("failed to decode stats: %w", err)}
	}
	if snapshot == nil {
		return nil, &TransportError{Endpoint: statsPath, Err: errors.New("stats payload is not an object")}
	}
	return snapshot, nil
}

// Recommend fetches recommendations for userID. n is sent verbatim as the
// "n" query parameter. The body is returned unparsed.
func (c *Client) Recommend(ctx context.Context, userID, n string) (model.RecommendationPayload, error) {
	endpoint := recommendPath + url.PathEscape(userID)
	q := url.Values{}
	q.Set("n", n)
	body, err := c.get(ctx, recommendPath+"{id}", c.baseURL+endpoint+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return model.RecommendationPayload(body), nil
}

func (c *Client) get(ctx context.Context, endpoint, target string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	requestID := uuid.NewString()
	logger := logging.With().Str("request_id", requestID).Str("endpoint", endpoint).Logger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Debug().Err(err).Msg("request failed")
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	logger.Debug().
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("response received")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &TransportError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status: %s", resp.Status),
		}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read body: %w", err)}
	}
	return body, nil
}
