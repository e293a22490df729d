package dashboard

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"
)

func newTestController(t *testing.T, store ConfigStore, f Fetcher) *Controller {
	t.Helper()
	c := NewController(store, f, WithLogger(zaptest.NewLogger(t)))
	t.Cleanup(c.Close)
	return c
}

func waitFor(t *testing.T, p *Pending) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Wait(ctx); err != nil {
		t.Fatalf("fetch did not finish: %v", err)
	}
}

func TestInitializeWithoutStoredURL(t *testing.T) {
	f := newFakeFetcher()
	c := newTestController(t, NewMemoryStore(""), f)

	p, err := c.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if p != nil {
		t.Fatalf("expected no fetch, got generation %d", p.Generation)
	}
	if got := c.State().Kind; got != KindUnconfigured {
		t.Errorf("state = %s, want unconfigured", got)
	}
	if f.callCount() != 0 {
		t.Errorf("fetcher called %d times, want 0", f.callCount())
	}
}

func TestInitializeTreatsEmptyStoredURLAsUnconfigured(t *testing.T) {
	store := NewMemoryStore("")
	store.Save(context.Background(), "")
	c := newTestController(t, store, newFakeFetcher())

	p, err := c.Initialize(context.Background())
	if err != nil || p != nil {
		t.Fatalf("Initialize = (%v, %v), want (nil, nil)", p, err)
	}
	if got := c.State().Kind; got != KindUnconfigured {
		t.Errorf("state = %s, want unconfigured", got)
	}
}

func TestInitializeEntersLoadingThenReady(t *testing.T) {
	f := newFakeFetcher()
	snap := sampleSnapshot.clone()
	f.set("https://stats.example.com", &snap, nil)
	release := f.hold("https://stats.example.com")
	c := newTestController(t, NewMemoryStore("https://stats.example.com"), f)

	p, err := c.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if got := c.State().Kind; got != KindLoading {
		t.Fatalf("state = %s, want loading while fetch is outstanding", got)
	}

	release()
	waitFor(t, p)

	st := c.State()
	if st.Kind != KindReady {
		t.Fatalf("state = %s, want ready", st)
	}
	got, ok := st.Snapshot()
	if !ok {
		t.Fatal("ready state should carry a snapshot")
	}
	if !reflect.DeepEqual(got, sampleSnapshot) {
		t.Errorf("snapshot = %+v, want %+v", got, sampleSnapshot)
	}
	if c.APIURL() != "https://stats.example.com" {
		t.Errorf("APIURL = %q", c.APIURL())
	}
}

func TestSubmitURLPersistsBeforeFetchResolves(t *testing.T) {
	for _, tt := range []struct {
		name string
		err  error
		want Kind
	}{
		{"fetch succeeds", nil, KindReady},
		{"fetch fails", &TransportError{Err: errors.New("dial tcp: connection refused")}, KindError},
	} {
		t.Run(tt.name, func(t *testing.T) {
			const url = "https://stats.example.com"
			f := newFakeFetcher()
			var snap *Snapshot
			if tt.err == nil {
				s := sampleSnapshot.clone()
				snap = &s
			}
			f.set(url, snap, tt.err)
			release := f.hold(url)
			store := NewMemoryStore("")
			c := newTestController(t, store, f)

			p, err := c.SubmitURL(context.Background(), url)
			if err != nil {
				t.Fatalf("SubmitURL failed: %v", err)
			}
			stored, ok, _ := store.Load(context.Background())
			if !ok || stored != url {
				t.Fatalf("stored = (%q, %v), want (%q, true) before fetch resolves", stored, ok, url)
			}
			if got := c.State().Kind; got != KindLoading {
				t.Fatalf("state = %s, want loading", got)
			}

			release()
			waitFor(t, p)
			if got := c.State().Kind; got != tt.want {
				t.Errorf("state = %s, want %s", got, tt.want)
			}
			stored, _, _ = store.Load(context.Background())
			if stored != url {
				t.Errorf("stored = %q after fetch, want %q", stored, url)
			}
		})
	}
}

func TestSubmitEmptyURLIsPersistedAndFails(t *testing.T) {
	store := NewMemoryStore("https://old.example.com")
	c := newTestController(t, store, NewClient())

	p, err := c.SubmitURL(context.Background(), "")
	if err != nil {
		t.Fatalf("SubmitURL failed: %v", err)
	}
	waitFor(t, p)

	st := c.State()
	if st.Kind != KindError || st.Message == "" {
		t.Errorf("state = %s, want error with a message", st)
	}
	if stored, _, _ := store.Load(context.Background()); stored != "" {
		t.Errorf("stored = %q, want empty string", stored)
	}
}

func TestFetchOutcomes(t *testing.T) {
	snap := sampleSnapshot.clone()
	tests := []struct {
		name    string
		snap    *Snapshot
		err     error
		want    Kind
		wantMsg string
	}{
		{"ready", &snap, nil, KindReady, ""},
		{"empty", nil, ErrNoData, KindEmpty, ""},
		{"service failure", nil, &ServiceError{StatusCode: 200, Message: "quota exceeded"}, KindError, "quota exceeded"},
		{"transport failure", nil, &TransportError{Err: errors.New("i/o timeout")}, KindError, "i/o timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeFetcher()
			f.set("u", tt.snap, tt.err)
			c := newTestController(t, NewMemoryStore(""), f)

			st, err := c.FetchStatistics(context.Background(), "u")
			if err != nil {
				t.Fatalf("FetchStatistics failed: %v", err)
			}
			if st.Kind != tt.want {
				t.Fatalf("state = %s, want %s", st, tt.want)
			}
			if st.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", st.Message, tt.wantMsg)
			}
		})
	}
}

func TestStaleFetchIsDiscarded(t *testing.T) {
	f := newFakeFetcher()
	first := sampleSnapshot.clone()
	second := sampleSnapshot.clone()
	second.TotalPageViews = 9999
	f.set("https://a.example.com", &first, nil)
	f.set("https://b.example.com", &second, nil)
	releaseA := f.hold("https://a.example.com")

	metrics := NewMetrics(prometheus.NewRegistry())
	c := NewController(NewMemoryStore(""), f, WithMetrics(metrics), WithLogger(zaptest.NewLogger(t)))
	t.Cleanup(c.Close)

	pa, err := c.SubmitURL(context.Background(), "https://a.example.com")
	if err != nil {
		t.Fatalf("SubmitURL a failed: %v", err)
	}
	pb, err := c.SubmitURL(context.Background(), "https://b.example.com")
	if err != nil {
		t.Fatalf("SubmitURL b failed: %v", err)
	}
	if pb.Generation <= pa.Generation {
		t.Fatalf("generations not increasing: %d then %d", pa.Generation, pb.Generation)
	}
	waitFor(t, pb)

	releaseA()
	waitFor(t, pa)

	st := c.State()
	got, ok := st.Snapshot()
	if !ok || got.TotalPageViews != 9999 {
		t.Fatalf("state = %s with %d page views, want the second fetch's result", st, got.TotalPageViews)
	}
	if st.Generation != pb.Generation {
		t.Errorf("state generation = %d, want %d", st.Generation, pb.Generation)
	}
	if n := testutil.ToFloat64(metrics.FetchTotal.WithLabelValues(OutcomeStale)); n != 1 {
		t.Errorf("stale fetches = %v, want 1", n)
	}
	if n := testutil.ToFloat64(metrics.FetchTotal.WithLabelValues(OutcomeReady)); n != 1 {
		t.Errorf("ready fetches = %v, want 1", n)
	}
}

func TestRefresh(t *testing.T) {
	f := newFakeFetcher()
	c := newTestController(t, NewMemoryStore(""), f)

	if _, err := c.Refresh(); !errors.Is(err, ErrUnconfigured) {
		t.Fatalf("Refresh err = %v, want ErrUnconfigured", err)
	}

	f.set("u", nil, &ServiceError{Message: "warming up"})
	p, err := c.SubmitURL(context.Background(), "u")
	if err != nil {
		t.Fatalf("SubmitURL failed: %v", err)
	}
	waitFor(t, p)
	if st := c.State(); st.Kind != KindError {
		t.Fatalf("state = %s, want error", st)
	}

	snap := sampleSnapshot.clone()
	f.set("u", &snap, nil)
	p, err = c.Refresh()
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	waitFor(t, p)
	if st := c.State(); st.Kind != KindReady {
		t.Errorf("state = %s, want ready after retry", st)
	}
	if f.callCount() != 2 {
		t.Errorf("fetch calls = %d, want 2", f.callCount())
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	srv, _ := statsServer(t, http.StatusOK, successBody())
	c := newTestController(t, NewMemoryStore(srv.URL), NewClient())

	var states []ViewState
	for i := 0; i < 2; i++ {
		p, err := c.Initialize(context.Background())
		if err != nil {
			t.Fatalf("Initialize #%d failed: %v", i+1, err)
		}
		waitFor(t, p)
		states = append(states, c.State())
	}

	if states[0].Kind != KindReady || states[1].Kind != KindReady {
		t.Fatalf("states = %s, %s, want ready twice", states[0], states[1])
	}
	a, _ := states[0].Snapshot()
	b, _ := states[1].Snapshot()
	if !reflect.DeepEqual(a, b) {
		t.Errorf("snapshots differ between runs: %+v vs %+v", a, b)
	}
}

func TestServerErrorEnvelopeMessageWins(t *testing.T) {
	srv, _ := statsServer(t, http.StatusInternalServerError, `{"success": false, "error": "stats table locked"}`)
	c := newTestController(t, NewMemoryStore(""), NewClient())

	st, err := c.FetchStatistics(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchStatistics failed: %v", err)
	}
	if st.Kind != KindError || st.Message != "stats table locked" {
		t.Errorf("state = %s, want error(stats table locked)", st)
	}
}

func TestStoreFailures(t *testing.T) {
	boom := errors.New("disk full")
	f := newFakeFetcher()
	c := newTestController(t, failingStore{err: boom}, f)

	if _, err := c.Initialize(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Initialize err = %v, want %v", err, boom)
	}
	if st := c.State(); st.Kind != KindError {
		t.Errorf("state = %s, want error", st)
	}

	if _, err := c.SubmitURL(context.Background(), "u"); !errors.Is(err, boom) {
		t.Fatalf("SubmitURL err = %v, want %v", err, boom)
	}
	if f.callCount() != 0 {
		t.Errorf("fetch calls = %d, want 0 when the URL could not be saved", f.callCount())
	}
}

func TestCloseCancelsInflightFetch(t *testing.T) {
	blocked := make(chan struct{})
	srv := statsHandlerServer(t, func(w http.ResponseWriter, r *http.Request) {
		close(blocked)
		<-r.Context().Done()
	})
	c := NewController(NewMemoryStore(""), NewClient(WithTimeout(time.Minute)))

	p, err := c.SubmitURL(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("SubmitURL failed: %v", err)
	}
	<-blocked

	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}
	waitFor(t, p)
	if st := c.State(); st.Kind != KindError {
		t.Errorf("state = %s, want error after cancellation", st)
	}
}

func TestFailedSaveSupersedesInflightFetch(t *testing.T) {
	f := newFakeFetcher()
	snap := sampleSnapshot.clone()
	f.set("https://a.example.com", &snap, nil)
	releaseA := f.hold("https://a.example.com")

	store := newFlakyStore("https://a.example.com")
	c := newTestController(t, store, f)

	pa, err := c.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	boom := errors.New("disk full")
	store.fail(boom)
	if _, err := c.SubmitURL(context.Background(), "https://b.example.com"); !errors.Is(err, boom) {
		t.Fatalf("SubmitURL err = %v, want %v", err, boom)
	}

	releaseA()
	waitFor(t, pa)

	st := c.State()
	if st.Kind != KindError || st.Message != "save api url: disk full" {
		t.Fatalf("state = %s, want error(save api url: disk full)", st)
	}
	if st.Generation <= pa.Generation {
		t.Errorf("state generation = %d, want newer than %d", st.Generation, pa.Generation)
	}
}

func TestFailedLoadSupersedesInflightFetch(t *testing.T) {
	f := newFakeFetcher()
	snap := sampleSnapshot.clone()
	f.set("https://a.example.com", &snap, nil)
	releaseA := f.hold("https://a.example.com")

	store := newFlakyStore("https://a.example.com")
	c := newTestController(t, store, f)

	pa, err := c.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	store.fail(errors.New("disk full"))
	if _, err := c.Initialize(context.Background()); err == nil {
		t.Fatal("expected Initialize to fail")
	}

	releaseA()
	waitFor(t, pa)

	if st := c.State(); st.Kind != KindError {
		t.Fatalf("state = %s, want error", st)
	}
}

func TestReinitializeWithoutURLSupersedesInflightFetch(t *testing.T) {
	f := newFakeFetcher()
	snap := sampleSnapshot.clone()
	f.set("https://a.example.com", &snap, nil)
	releaseA := f.hold("https://a.example.com")

	store := newFlakyStore("https://a.example.com")
	c := newTestController(t, store, f)

	pa, err := c.Initialize(context.Background())
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	store.Save(context.Background(), "")
	if p, err := c.Initialize(context.Background()); err != nil || p != nil {
		t.Fatalf("Initialize = (%v, %v), want (nil, nil)", p, err)
	}

	releaseA()
	waitFor(t, pa)

	if st := c.State(); st.Kind != KindUnconfigured {
		t.Fatalf("state = %s, want unconfigured", st)
	}
	if _, err := c.Refresh(); !errors.Is(err, ErrUnconfigured) {
		t.Errorf("Refresh err = %v, want ErrUnconfigured", err)
	}
}

func TestFetchStatisticsKeepsRefreshTarget(t *testing.T) {
	f := newFakeFetcher()
	snap := sampleSnapshot.clone()
	f.set("https://a.example.com", &snap, nil)
	f.set("https://b.example.com", &snap, nil)
	store := NewMemoryStore("")
	c := newTestController(t, store, f)

	p, err := c.SubmitURL(context.Background(), "https://a.example.com")
	if err != nil {
		t.Fatalf("SubmitURL failed: %v", err)
	}
	waitFor(t, p)

	if _, err := c.FetchStatistics(context.Background(), "https://b.example.com"); err != nil {
		t.Fatalf("FetchStatistics failed: %v", err)
	}
	if got := c.APIURL(); got != "https://a.example.com" {
		t.Errorf("APIURL = %q, want the submitted URL", got)
	}

	p, err = c.Refresh()
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	waitFor(t, p)

	f.mu.Lock()
	last := f.calls[len(f.calls)-1]
	f.mu.Unlock()
	if last != "https://a.example.com" {
		t.Errorf("Refresh fetched %q, want https://a.example.com", last)
	}
	if url, _, _ := store.Load(context.Background()); url != "https://a.example.com" {
		t.Errorf("stored URL = %q, want it untouched by FetchStatistics", url)
	}
}
