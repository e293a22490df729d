package readdash

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ActionLimiter rate-limits fetch-triggering actions (URL submit, refresh)
// per IP address.
type ActionLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewActionLimiter allows max actions per window for each IP, with bursts of
// up to max. Idle entries are swept after a few windows. A non-positive
// window falls back to one minute.
func NewActionLimiter(max int, window time.Duration) *ActionLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	l := &ActionLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(window / time.Duration(max)),
		burst:    max,
		idle:     3 * window,
		stop:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *ActionLimiter) cleanup() {
	ticker := time.NewTicker(l.idle)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
		}
		cutoff := time.Now().Add(-l.idle)
		l.mu.Lock()
		for ip, v := range l.visitors {
			if v.lastSeen.Before(cutoff) {
				delete(l.visitors, ip)
			}
		}
		l.mu.Unlock()
	}
}

// Allow reports whether ip may perform another action and consumes a token if so.
func (l *ActionLimiter) Allow(ip string) bool {
	l.mu.Lock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	l.mu.Unlock()
	return v.limiter.Allow()
}

// Stop ends the background sweeper.
func (l *ActionLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}
