package auth

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle keeps one token bucket per client key, such as a remote address.
// Buckets idle longer than the eviction window are dropped.
type Throttle struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	idle    time.Duration
	clients map[string]*client
	now     func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewThrottle allows perSecond requests per client with the given burst.
func NewThrottle(perSecond float64, burst int) *Throttle {
	if burst < 1 {
		burst = 1
	}
	return &Throttle{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idle:    10 * time.Minute,
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

// Allow reports whether the client identified by key may proceed now.
func (t *Throttle) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.evict(now)

	c, ok := t.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// evict drops idle clients. The caller holds t.mu.
func (t *Throttle) evict(now time.Time) {
	for key, c := range t.clients {
		if now.Sub(c.lastSeen) > t.idle {
			delete(t.clients, key)
		}
	}
}

// Len returns the number of tracked clients.
func (t *Throttle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.clients)
}
