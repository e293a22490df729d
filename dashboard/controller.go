package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrUnconfigured is returned by Refresh when no API URL has been set.
var ErrUnconfigured = errors.New("dashboard: api url is not configured")

// ConfigStore persists the API base URL across restarts.
type ConfigStore interface {
	// Load returns the stored URL and whether one was stored.
	Load(ctx context.Context) (string, bool, error)
	// Save overwrites the stored URL. No validation is done.
	Save(ctx context.Context, url string) error
}

// Pending tracks one fetch started by the controller.
type Pending struct {
	Generation uint64
	done       chan struct{}
}

// Done is closed once the fetch has finished and its result has been applied
// or discarded. A nil Pending is always done.
func (p *Pending) Done() <-chan struct{} {
	if p == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return p.done
}

// Wait blocks until the fetch finishes or ctx is done.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Controller owns the dashboard view state. Transitions are serialized under
// its lock; fetches run on their own goroutines and only the newest one may
// change the state.
type Controller struct {
	store   ConfigStore
	fetcher Fetcher
	logger  *zap.Logger
	metrics *Metrics

	root context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu         sync.RWMutex
	state      ViewState
	apiURL     string
	configured bool
	gen        uint64
	inflight   context.CancelFunc
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithMetrics sets the controller metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// NewController creates a controller in the Unconfigured state. Call
// Initialize to load the stored URL.
func NewController(store ConfigStore, fetcher Fetcher, opts ...Option) *Controller {
	root, stop := context.WithCancel(context.Background())
	c := &Controller{
		store:   store,
		fetcher: fetcher,
		logger:  zap.NewNop(),
		root:    root,
		stop:    stop,
		state:   unconfiguredState(0),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}
	return c
}

// State returns the current view state.
func (c *Controller) State() ViewState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// APIURL returns the URL loaded by Initialize or set by SubmitURL, or "".
func (c *Controller) APIURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiURL
}

// Initialize reads the stored URL. Without one the state becomes
// Unconfigured and the returned Pending is nil; otherwise a fetch starts.
// Any fetch still in flight is superseded either way.
func (c *Controller) Initialize(ctx context.Context) (*Pending, error) {
	url, ok, err := c.store.Load(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		gen := c.supersedeLocked()
		c.setLocked(errorState(gen, fmt.Sprintf("load api url: %v", err)))
		return nil, fmt.Errorf("load api url: %w", err)
	}
	if !ok || url == "" {
		gen := c.supersedeLocked()
		c.configured = false
		c.apiURL = ""
		c.setLocked(unconfiguredState(gen))
		return nil, nil
	}
	c.configured = true
	c.apiURL = url
	return c.startLocked(url), nil
}

// SubmitURL persists url before anything else, then fetches from it. The
// URL is stored even if the fetch later fails. A failed save supersedes any
// in-flight fetch and leaves the state in Error.
func (c *Controller) SubmitURL(ctx context.Context, url string) (*Pending, error) {
	if err := c.store.Save(ctx, url); err != nil {
		c.mu.Lock()
		gen := c.supersedeLocked()
		c.setLocked(errorState(gen, fmt.Sprintf("save api url: %v", err)))
		c.mu.Unlock()
		return nil, fmt.Errorf("save api url: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.configured = true
	c.apiURL = url
	return c.startLocked(url), nil
}

// Refresh re-fetches from the current URL.
func (c *Controller) Refresh() (*Pending, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.configured {
		return nil, ErrUnconfigured
	}
	return c.startLocked(c.apiURL), nil
}

// FetchStatistics fetches from url and waits for the resulting state. It
// goes through the same generation bookkeeping as Refresh, so a newer fetch
// still wins. The URL is neither persisted nor remembered: a later Refresh
// still targets the URL from Initialize or SubmitURL.
func (c *Controller) FetchStatistics(ctx context.Context, url string) (ViewState, error) {
	c.mu.Lock()
	p := c.startLocked(url)
	c.mu.Unlock()

	if err := p.Wait(ctx); err != nil {
		return c.State(), err
	}
	return c.State(), nil
}

// Close cancels in-flight fetches and waits for their goroutines.
func (c *Controller) Close() {
	c.stop()
	c.wg.Wait()
}

// supersedeLocked cancels the in-flight fetch, if any, and bumps the
// generation so that its result is discarded. c.mu must be held.
func (c *Controller) supersedeLocked() uint64 {
	if c.inflight != nil {
		c.inflight()
		c.inflight = nil
	}
	c.gen++
	c.metrics.Generation.Set(float64(c.gen))
	return c.gen
}

// startLocked supersedes any in-flight fetch and enters Loading. c.mu must
// be held.
func (c *Controller) startLocked(url string) *Pending {
	gen := c.supersedeLocked()

	ctx, cancel := context.WithCancel(c.root)
	c.inflight = cancel
	c.setLocked(loadingState(gen))

	p := &Pending{Generation: gen, done: make(chan struct{})}
	c.wg.Add(1)
	go c.run(ctx, cancel, url, p)
	return p
}

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, url string, p *Pending) {
	defer c.wg.Done()
	defer close(p.done)
	defer cancel()

	log := c.logger.With(
		zap.Uint64("generation", p.Generation),
		zap.String("url", url),
		zap.String("fetch_id", uuid.NewString()),
	)
	log.Debug("fetching statistics")

	start := time.Now()
	snap, err := c.fetcher.FetchStatistics(ctx, url)
	c.metrics.FetchDuration.Observe(time.Since(start).Seconds())

	next, outcome := resolve(p.Generation, snap, err)

	c.mu.Lock()
	defer c.mu.Unlock()

	if p.Generation != c.gen {
		c.metrics.FetchTotal.WithLabelValues(OutcomeStale).Inc()
		log.Debug("discarding stale fetch result", zap.Uint64("current", c.gen))
		return
	}
	c.inflight = nil
	c.metrics.FetchTotal.WithLabelValues(outcome).Inc()
	if err != nil && !errors.Is(err, ErrNoData) {
		log.Warn("statistics fetch failed", zap.Error(err))
	}
	c.setLocked(next)
}

// resolve maps a fetch result onto the next view state.
func resolve(gen uint64, snap *Snapshot, err error) (ViewState, string) {
	switch {
	case err == nil && snap != nil:
		return readyState(gen, snap), OutcomeReady
	case err == nil, errors.Is(err, ErrNoData):
		return emptyState(gen), OutcomeEmpty
	default:
		return errorState(gen, err.Error()), OutcomeError
	}
}

func (c *Controller) setLocked(s ViewState) {
	prev := c.state
	c.state = s
	c.logger.Info("dashboard state changed",
		zap.Stringer("from", prev.Kind),
		zap.Stringer("to", s.Kind),
		zap.Uint64("generation", s.Generation),
	)
}
