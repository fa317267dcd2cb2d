// Package testutil provides testing utilities for the championship index.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// Upstream paths served by the mock, matching client.DefaultConfig.
const (
	CollectionPathFormat = "/championships/%s/matches"
	StatsPathFormat      = "/matches/%s/stats"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock of the upstream collection API.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	LastRequestHeader http.Header
	requestsByPath    map[string]int
}

// NewMockAPI creates a new mock upstream server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers:       make(map[string]func(w http.ResponseWriter, r *http.Request)),
		requestsByPath: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.requestsByPath[r.URL.Path]++
		mock.LastRequestHeader = r.Header.Clone()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errors":[{"message":"not found"}]}`))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastRequestHeader = nil
	m.requestsByPath = make(map[string]int)
}

// SetHandler sets a custom handler for a specific path.
func (m *MockAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetCollection serves items as a paginated collection. Requests with an
// offset at or beyond the end of the collection are answered with 400,
// as the real API does.
func (m *MockAPI) SetCollection(collectionID string, items []json.RawMessage) {
	m.SetHandler(fmt.Sprintf(CollectionPathFormat, collectionID), func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit <= 0 {
			limit = 20
		}

		w.Header().Set("Content-Type", "application/json")
		if offset < 0 || (offset >= len(items) && offset > 0) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"errors":[{"message":"offset out of range"}]}`))
			return
		}

		end := offset + limit
		if end > len(items) {
			end = len(items)
		}
		page := items[offset:end]
		if page == nil {
			page = []json.RawMessage{}
		}

		body, _ := json.Marshal(map[string]any{
			"items": page,
			"start": offset,
			"end":   end,
		})
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	})
}

// SetMatchStats serves body as the statistics of matchID.
func (m *MockAPI) SetMatchStats(matchID string, body string) {
	m.SetResponse(fmt.Sprintf(StatsPathFormat, matchID), NewOKResponse(body))
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPathRequestCount returns the number of requests made to path.
func (m *MockAPI) GetPathRequestCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestsByPath[path]
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockAPI) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader
}

// NewOKResponse creates a standard 200 OK JSON response with quota headers.
func NewOKResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"X-RateLimit-Limit":     "100",
			"X-RateLimit-Remaining": "99",
			"X-RateLimit-Reset":     "60",
			"Content-Type":          "application/json",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"errors":[{"message":"rate limit exceeded"}]}`,
		Headers: map[string]string{
			"X-RateLimit-Limit":     "100",
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     "1",
			"Content-Type":          "application/json",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"errors":[{"message":"internal server error"}]}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}
}

// MatchItem builds a raw collection item for a two-faction match.
func MatchItem(matchID, competitionID string, startedAt int64, team1, team2 string, roster1, roster2 []string, winner string) json.RawMessage {
	roster := func(ids []string) []map[string]string {
		out := make([]map[string]string, 0, len(ids))
		for _, id := range ids {
			out = append(out, map[string]string{"player_id": id, "nickname": "nick-" + id})
		}
		return out
	}

	item := map[string]any{
		"match_id":         matchID,
		"competition_id":   competitionID,
		"competition_name": "Championship " + competitionID,
		"started_at":       startedAt,
		"finished_at":      startedAt + 3600,
		"teams": map[string]any{
			"faction1": map[string]any{"faction_id": team1, "name": "Team " + team1, "roster": roster(roster1)},
			"faction2": map[string]any{"faction_id": team2, "name": "Team " + team2, "roster": roster(roster2)},
		},
	}
	if winner != "" {
		item["results"] = map[string]any{"winner": winner}
	}

	data, _ := json.Marshal(item)
	return data
}
