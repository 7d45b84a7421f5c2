// Package testutil provides testing utilities for the SWAPI gateway.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/swapi-gateway/pkg/swapi"
)

// ListPageSize is the page size of the mock's collection listings,
// matching the real upstream.
const ListPageSize = 10

// MockResponse defines the behavior for a mock upstream response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockSWAPI is a configurable mock of the upstream catalog.
type MockSWAPI struct {
	server *httptest.Server
	mu     sync.RWMutex

	// resources maps collection path ("people") -> id -> JSON body.
	resources map[string]map[int]string

	// scripted responses are consumed in order before falling back to
	// resources; the last one repeats.
	scripted map[string][]MockResponse

	requests map[string]int
	total    int
}

// NewMockSWAPI creates a new mock upstream server.
func NewMockSWAPI() *MockSWAPI {
	mock := &MockSWAPI{
		resources: make(map[string]map[int]string),
		scripted:  make(map[string][]MockResponse),
		requests:  make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := requestKey(r)

		mock.mu.Lock()
		mock.total++
		mock.requests[key]++
		resp, scripted := mock.nextScripted(key)
		mock.mu.Unlock()

		if scripted {
			writeResponse(w, r, resp)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server base URL.
func (m *MockSWAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockSWAPI) Close() {
	m.server.Close()
}

// Reset clears request counters.
func (m *MockSWAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = make(map[string]int)
	m.total = 0
}

// AddResource registers a resource body under its collection path and id.
func (m *MockSWAPI) AddResource(t swapi.EntityType, id int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := t.Path()
	if m.resources[path] == nil {
		m.resources[path] = make(map[int]string)
	}
	m.resources[path][id] = body
}

// LoadCatalog registers every fixture of the catalog.
func (m *MockSWAPI) LoadCatalog(c Catalog) {
	for _, ch := range c.Characters {
		m.AddResource(swapi.EntityCharacter, ch.ID, ch.JSON())
	}
	for _, p := range c.Planets {
		m.AddResource(swapi.EntityPlanet, p.ID, p.JSON())
	}
	for _, s := range c.Starships {
		m.AddResource(swapi.EntityStarship, s.ID, s.JSON())
	}
	for _, f := range c.Films {
		m.AddResource(swapi.EntityFilm, f.ID, f.JSON())
	}
}

// SetResponses scripts the responses for a request key such as
// "/people/1/" or "/people/?page=2". Responses are served in order and the
// last one keeps being served.
func (m *MockSWAPI) SetResponses(key string, resps ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripted[key] = resps
}

// ClearResponses removes scripted responses for a key.
func (m *MockSWAPI) ClearResponses(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.scripted, key)
}

// RequestCount returns the number of requests served for a key.
func (m *MockSWAPI) RequestCount(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requests[key]
}

// TotalRequests returns the number of requests served overall.
func (m *MockSWAPI) TotalRequests() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.total
}

// nextScripted pops the next scripted response. Caller must hold the lock.
func (m *MockSWAPI) nextScripted(key string) (MockResponse, bool) {
	resps := m.scripted[key]
	if len(resps) == 0 {
		return MockResponse{}, false
	}
	resp := resps[0]
	if len(resps) > 1 {
		m.scripted[key] = resps[1:]
	}
	return resp, true
}

// defaultHandler serves registered resources and paginated listings.
func (m *MockSWAPI) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch len(segments) {
	case 1:
		m.serveList(w, r, segments[0])
	case 2:
		id, err := strconv.Atoi(segments[1])
		if err != nil {
			writeNotFound(w)
			return
		}
		m.mu.RLock()
		body, ok := m.resources[segments[0]][id]
		m.mu.RUnlock()
		if !ok {
			writeNotFound(w)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	default:
		writeNotFound(w)
	}
}

func (m *MockSWAPI) serveList(w http.ResponseWriter, r *http.Request, collection string) {
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			writeNotFound(w)
			return
		}
		page = n
	}

	m.mu.RLock()
	items := m.resources[collection]
	ids := make([]int, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	start := (page - 1) * ListPageSize
	if start >= len(ids) && !(page == 1 && len(ids) == 0) {
		m.mu.RUnlock()
		writeNotFound(w)
		return
	}
	end := min(start+ListPageSize, len(ids))
	results := make([]json.RawMessage, 0, end-start)
	for _, id := range ids[start:end] {
		results = append(results, json.RawMessage(items[id]))
	}
	m.mu.RUnlock()

	listing := map[string]any{
		"count":    len(ids),
		"next":     nil,
		"previous": nil,
		"results":  results,
	}
	if end < len(ids) {
		listing["next"] = fmt.Sprintf("%s/%s/?page=%d", m.server.URL, collection, page+1)
	}
	if page > 1 {
		listing["previous"] = fmt.Sprintf("%s/%s/?page=%d", m.server.URL, collection, page-1)
	}

	body, _ := json.Marshal(listing)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func requestKey(r *http.Request) string {
	if r.URL.RawQuery != "" {
		return r.URL.Path + "?" + r.URL.RawQuery
	}
	return r.URL.Path
}

func writeResponse(w http.ResponseWriter, r *http.Request, resp MockResponse) {
	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

func writeNotFound(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"detail": "Not found"}`))
}

// NewNotFoundResponse creates a 404 response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"detail": "Not found"}`,
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse(retryAfter int) MockResponse {
	resp := MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"detail": "Request was throttled."}`,
		Headers:    map[string]string{},
	}
	if retryAfter > 0 {
		resp.Headers["Retry-After"] = strconv.Itoa(retryAfter)
	}
	return resp
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"detail": "Internal server error"}`,
	}
}

// NewSlowResponse creates a 200 response delivered after delay.
func NewSlowResponse(body string, delay time.Duration) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Delay:      delay,
	}
}

// NewOKResponse creates a 200 response with the given body.
func NewOKResponse(body string) MockResponse {
	return MockResponse{StatusCode: http.StatusOK, Body: body}
}
