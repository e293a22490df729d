package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

const sampleData = `{
	"totalPageViews": 1520,
	"totalAnalyses": 980,
	"uniqueSessions": 430,
	"averageCharacterCount": 2450.5,
	"averageDifficultyScore": 3.26,
	"averageReadingTimeSeconds": 125.9,
	"sampleTextUsage": {"short": 12, "medium": 7, "difficult": 3},
	"errorCount": 4,
	"dailyStats": [
		{"date": "2024-05-01", "pageViews": 40, "analyses": 22, "uniqueSessions": 15},
		{"date": "2024-05-02", "pageViews": 55, "analyses": 31, "uniqueSessions": 19},
		{"date": "2024-05-03", "pageViews": 38, "analyses": 20, "uniqueSessions": 12}
	]
}`

var sampleSnapshot = Snapshot{
	TotalPageViews:            1520,
	TotalAnalyses:             980,
	UniqueSessions:            430,
	AverageCharacterCount:     2450.5,
	AverageDifficultyScore:    3.26,
	AverageReadingTimeSeconds: 125.9,
	SampleTextUsage:           SampleTextUsage{Short: 12, Medium: 7, Difficult: 3},
	ErrorCount:                4,
	DailyStats: []DailyStat{
		{Date: "2024-05-01", PageViews: 40, Analyses: 22, UniqueSessions: 15},
		{Date: "2024-05-02", PageViews: 55, Analyses: 31, UniqueSessions: 19},
		{Date: "2024-05-03", PageViews: 38, Analyses: 20, UniqueSessions: 12},
	},
}

func successBody() string {
	return `{"success": true, "data": ` + sampleData + `}`
}

// statsServer serves body with status on /api/stats and counts hits.
func statsServer(t *testing.T, status int, body string) (*httptest.Server, *int) {
	t.Helper()
	var mu sync.Mutex
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != StatsPath {
			http.NotFound(w, r)
			return
		}
		mu.Lock()
		hits++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func statsHandlerServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

// fakeFetcher answers fetches from a per-URL table and can hold a URL until
// released.
type fakeFetcher struct {
	mu      sync.Mutex
	results map[string]fakeResult
	gates   map[string]chan struct{}
	calls   []string
}

type fakeResult struct {
	snap *Snapshot
	err  error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		results: make(map[string]fakeResult),
		gates:   make(map[string]chan struct{}),
	}
}

func (f *fakeFetcher) set(url string, snap *Snapshot, err error) {
	f.mu.Lock()
	f.results[url] = fakeResult{snap: snap, err: err}
	f.mu.Unlock()
}

// hold makes fetches of url block until the returned func is called. The
// hold ignores context cancellation so that stale results really arrive.
func (f *fakeFetcher) hold(url string) func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[url] = ch
	f.mu.Unlock()
	return func() { close(ch) }
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeFetcher) FetchStatistics(_ context.Context, url string) (*Snapshot, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	gate := f.gates[url]
	res, ok := f.results[url]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if !ok {
		return nil, &TransportError{Err: errors.New("no route to " + url)}
	}
	return res.snap, res.err
}

// failingStore fails every call with err.
type failingStore struct {
	err error
}

func (s failingStore) Load(context.Context) (string, bool, error) { return "", false, s.err }
func (s failingStore) Save(context.Context, string) error         { return s.err }

// flakyStore is a MemoryStore whose calls fail while err is set.
type flakyStore struct {
	*MemoryStore
	mu  sync.Mutex
	err error
}

func newFlakyStore(url string) *flakyStore {
	return &flakyStore{MemoryStore: NewMemoryStore(url)}
}

func (s *flakyStore) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *flakyStore) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *flakyStore) Load(ctx context.Context) (string, bool, error) {
	if err := s.failure(); err != nil {
		return "", false, err
	}
	return s.MemoryStore.Load(ctx)
}

func (s *flakyStore) Save(ctx context.Context, url string) error {
	if err := s.failure(); err != nil {
		return err
	}
	return s.MemoryStore.Save(ctx, url)
}
