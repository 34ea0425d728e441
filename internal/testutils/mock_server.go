package testutils

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// TestAppID is the app id the mock upstream accepts
const TestAppID = "test-app-id"

const (
	LatestRatesJSON = `{
		"disclaimer": "Usage subject to terms: https://openexchangerates.org/terms",
		"license": "https://openexchangerates.org/license",
		"timestamp": 1700000000,
		"base": "USD",
		"rates": {"EUR": 0.917431, "GBP": 0.801234, "JPY": 149.8765432109}
	}`

	HistoricalRatesJSON = `{
		"timestamp": 1704153599,
		"base": "USD",
		"rates": {"EUR": 0.905, "GBP": 0.786}
	}`

	CurrenciesJSON = `{"EUR": "Euro", "GBP": "British Pound Sterling", "USD": "United States Dollar"}`

	ConvertJSON = `{
		"disclaimer": "Usage subject to terms",
		"license": "https://openexchangerates.org/license",
		"request": {"query": "/convert/19999.95/GBP/EUR", "amount": 19999.95, "from": "GBP", "to": "EUR"},
		"meta": {"timestamp": 1449885661, "rate": 1.383702},
		"response": 27673.975864
	}`

	UsageJSON = `{
		"status": 200,
		"data": {
			"app_id": "X",
			"status": "active",
			"plan": {
				"name": "Enterprise",
				"quota": "100,000 requests / month",
				"update_frequency": "30-minute",
				"features": {"base": true, "symbols": true, "experimental": true, "time-series": true, "convert": false}
			},
			"usage": {
				"requests": 54524,
				"requests_quota": 100000,
				"requests_remaining": 45476,
				"days_elapsed": 16,
				"days_remaining": 14,
				"daily_average": 2842
			}
		}
	}`

	notFoundJSON = `{"error": true, "status": 404, "message": "not_found", "description": "Requested endpoint does not exist."}`
)

// MockResponse is a canned upstream reply
type MockResponse struct {
	StatusCode int
	Reason     string
	Body       string
	Delay      time.Duration
}

// RecordedRequest captures what the client sent
type RecordedRequest struct {
	Path      string
	RawQuery  string
	UserAgent string
	Method    string
}

// MockUpstream emulates the Open Exchange Rates API under /api/
type MockUpstream struct {
	server *httptest.Server

	mutex     sync.Mutex
	responses map[string]MockResponse
	requests  []RecordedRequest
}

// NewMockUpstream creates a mock upstream serving the default fixtures
func NewMockUpstream() *MockUpstream {
	mock := &MockUpstream{
		responses: map[string]MockResponse{
			"latest.json":     {StatusCode: http.StatusOK, Body: LatestRatesJSON},
			"currencies.json": {StatusCode: http.StatusOK, Body: CurrenciesJSON},
			"usage.json":      {StatusCode: http.StatusOK, Body: UsageJSON},
			"historical/":     {StatusCode: http.StatusOK, Body: HistoricalRatesJSON},
			"convert/":        {StatusCode: http.StatusOK, Body: ConvertJSON},
		},
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handler))
	return mock
}

// URL returns the API root of the mock server
func (m *MockUpstream) URL() string {
	return m.server.URL + "/api/"
}

// Close closes the mock server
func (m *MockUpstream) Close() {
	m.server.Close()
}

// SetResponse overrides the reply for an endpoint path such as "latest.json".
// Paths ending in "/" match by prefix.
func (m *MockUpstream) SetResponse(path string, response MockResponse) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.responses[path] = response
}

// Requests returns the requests received so far
func (m *MockUpstream) Requests() []RecordedRequest {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]RecordedRequest(nil), m.requests...)
}

// RequestCount returns how many requests were received
func (m *MockUpstream) RequestCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.requests)
}

// LastRequest returns the most recent request, or an empty record
func (m *MockUpstream) LastRequest() RecordedRequest {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if len(m.requests) == 0 {
		return RecordedRequest{}
	}
	return m.requests[len(m.requests)-1]
}

func (m *MockUpstream) handler(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/")

	m.mutex.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Path:      path,
		RawQuery:  r.URL.RawQuery,
		UserAgent: r.UserAgent(),
		Method:    r.Method,
	})
	response, found := m.lookup(path)
	m.mutex.Unlock()

	if r.URL.Query().Get("app_id") != TestAppID {
		writeStatus(w, http.StatusUnauthorized, "Unauthorized", `{"error": true, "status": 401, "message": "invalid_app_id"}`)
		return
	}
	if !found {
		writeStatus(w, http.StatusNotFound, "Not Found", notFoundJSON)
		return
	}

	if response.Delay > 0 {
		select {
		case <-time.After(response.Delay):
		case <-r.Context().Done():
			return
		}
	}

	writeStatus(w, response.StatusCode, response.Reason, response.Body)
}

// lookup must be called with the mutex held
func (m *MockUpstream) lookup(path string) (MockResponse, bool) {
	if response, found := m.responses[path]; found {
		return response, true
	}
	for key, response := range m.responses {
		if strings.HasSuffix(key, "/") && strings.HasPrefix(path, key) {
			return response, true
		}
	}
	return MockResponse{}, false
}

// writeStatus writes a raw status line so tests can assert on custom reason phrases
func writeStatus(w http.ResponseWriter, statusCode int, reason, body string) {
	if statusCode == 0 {
		statusCode = http.StatusOK
	}
	if reason != "" {
		if hijacker, ok := w.(http.Hijacker); ok {
			connection, buffer, err := hijacker.Hijack()
			if err == nil {
				defer connection.Close()
				fmt.Fprintf(buffer, "HTTP/1.1 %d %s\r\nContent-Type: application/json\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s",
					statusCode, reason, len(body), body)
				buffer.Flush()
				return
			}
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	fmt.Fprint(w, body)
}
