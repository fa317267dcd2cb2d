// Package client provides the upstream championship API client: GET
// requests with a bearer credential, rate-limit pacing, error
// classification and request metrics.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/champ-index/pkg/model"
	"github.com/Sternrassler/champ-index/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for upstream client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "champ_upstream_requests_total",
		Help: "Total upstream requests by route and status",
	}, []string{"route", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "champ_upstream_request_duration_seconds",
		Help:    "Upstream request duration in seconds by route",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"route"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "champ_upstream_errors_total",
		Help: "Total upstream errors by class",
	}, []string{"class"})
)

// Route labels used for metrics and logs.
const (
	RouteCollectionItems = "collection_items"
	RouteMatchStats      = "match_stats"
)

// Config holds the client configuration.
type Config struct {
	// BaseURL of the upstream API, without trailing slash.
	BaseURL string

	// APIKey is sent as "Authorization: Bearer <APIKey>".
	APIKey string

	UserAgent string

	// CollectionPath is a format string taking the collection identifier,
	// e.g. "/championships/%s/matches".
	CollectionPath string

	// CollectionType is sent as the "type" query parameter when set.
	CollectionType string

	// StatsPath is a format string taking the match identifier.
	StatsPath string

	// Timeout per HTTP request.
	Timeout time.Duration

	// Client-side pacing.
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig returns the configuration for the public FACEIT data API.
func DefaultConfig(apiKey string) Config {
	return Config{
		BaseURL:           "https://open.faceit.com/data/v4",
		APIKey:            apiKey,
		UserAgent:         "champ-index/0.1.0",
		CollectionPath:    "/championships/%s/matches",
		CollectionType:    "past",
		StatsPath:         "/matches/%s/stats",
		Timeout:           15 * time.Second,
		RequestsPerSecond: 10,
		Burst:             10,
	}
}

// Client is the upstream API client.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.Tracker
	config      Config
	logger      zerolog.Logger
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	if !strings.Contains(cfg.CollectionPath, "%s") || !strings.Contains(cfg.StatsPath, "%s") {
		return nil, fmt.Errorf("collection and stats paths must contain %%s")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	logger := log.With().Str("component", "upstream-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: ratelimit.NewTracker(ratelimit.Config{
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Burst,
		}, logger),
		config: cfg,
		logger: logger,
	}, nil
}

// FetchItems fetches one page of a collection. It implements
// pagination.PageSource.
func (c *Client) FetchItems(ctx context.Context, collectionID string, offset, limit int) ([]json.RawMessage, error) {
	query := url.Values{}
	query.Set("offset", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))
	if c.config.CollectionType != "" {
		query.Set("type", c.config.CollectionType)
	}

	path := fmt.Sprintf(c.config.CollectionPath, url.PathEscape(collectionID))
	body, err := c.do(ctx, RouteCollectionItems, path, query)
	if err != nil {
		return nil, err
	}

	var page struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return nil, &APIError{StatusCode: http.StatusOK, ErrorClass: ErrorClassDecode, Message: "decode collection page", Err: err}
	}
	return page.Items, nil
}

// FetchMatchStats fetches the detailed statistics of one match.
func (c *Client) FetchMatchStats(ctx context.Context, matchID string) (*model.MatchStatsRecord, error) {
	path := fmt.Sprintf(c.config.StatsPath, url.PathEscape(matchID))
	body, err := c.do(ctx, RouteMatchStats, path, nil)
	if err != nil {
		return nil, err
	}

	var stats model.MatchStatsRecord
	if err := json.Unmarshal(body, &stats); err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return nil, &APIError{StatusCode: http.StatusOK, ErrorClass: ErrorClassDecode, Message: "decode match stats", Err: err}
	}
	if stats.MatchID == "" {
		stats.MatchID = matchID
	}
	return &stats, nil
}

func (c *Client) do(ctx context.Context, route, path string, query url.Values) ([]byte, error) {
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(route).Observe(time.Since(startTime).Seconds())
	}()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	target := c.config.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Debug().
		Str("route", route).
		Str("path", path).
		Str("query", query.Encode()).
		Msg("Executing upstream request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		requestsTotal.WithLabelValues(route, "network_error").Inc()
		return nil, &APIError{ErrorClass: ErrorClassNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	c.rateLimiter.UpdateFromHeaders(resp.Header)
	requestsTotal.WithLabelValues(route, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &APIError{StatusCode: resp.StatusCode, ErrorClass: ErrorClassNetwork, Message: "read body", Err: err}
	}

	if class := ClassifyStatus(resp.StatusCode); class != "" {
		errorsTotal.WithLabelValues(string(class)).Inc()
		c.logger.Debug().
			Str("route", route).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Upstream request error")
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: class,
			Message:    strings.TrimSpace(resp.Status),
		}
	}

	return body, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// RateLimitState returns the last observed upstream rate-limit state.
func (c *Client) RateLimitState() ratelimit.State {
	return c.rateLimiter.State()
}
