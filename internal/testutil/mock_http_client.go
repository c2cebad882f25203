package testutil

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/flexprice/staffdesk/internal/httpclient"
)

// MockHTTPClient implements a mock HTTP client for testing
type MockHTTPClient struct {
	mu       sync.Mutex
	routes   map[string][]MockResponse
	requests []*httpclient.Request
}

// MockResponse represents a mock HTTP response
type MockResponse struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
}

// NewMockHTTPClient creates a new mock HTTP client
func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{
		routes: make(map[string][]MockResponse),
	}
}

// RegisterResponse registers a mock response for "METHOD url-suffix".
// Responses registered for the same route are served in order and the last
// one repeats.
func (m *MockHTTPClient) RegisterResponse(method, url string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := routeKey(method, url)
	m.routes[key] = append(m.routes[key], resp)
}

// RegisterJSONResponse is a helper to register a 200 JSON response
func (m *MockHTTPClient) RegisterJSONResponse(method, url, body string) {
	m.RegisterResponse(method, url, MockResponse{
		StatusCode: http.StatusOK,
		Body:       []byte(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	})
}

// Requests returns every request sent so far
func (m *MockHTTPClient) Requests() []*httpclient.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*httpclient.Request(nil), m.requests...)
}

// Send implements the httpclient.Client interface
func (m *MockHTTPClient) Send(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	// Find the matching route, longest suffix wins
	var matched string
	for route := range m.routes {
		method, suffix, _ := strings.Cut(route, " ")
		if method == req.Method && strings.HasSuffix(req.URL, suffix) && len(route) > len(matched) {
			matched = route
		}
	}

	if matched == "" {
		return nil, httpclient.NewError(http.StatusNotFound, []byte("Not Found"))
	}

	queue := m.routes[matched]
	resp := queue[0]
	if len(queue) > 1 {
		m.routes[matched] = queue[1:]
	}

	if resp.StatusCode >= 400 {
		return nil, httpclient.NewError(resp.StatusCode, resp.Body)
	}

	return &httpclient.Response{
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
		Headers:    resp.Headers,
	}, nil
}

func routeKey(method, url string) string {
	return method + " " + url
}
