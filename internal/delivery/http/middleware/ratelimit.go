package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	h "eventmanager/internal/delivery/http/helpers"
	"eventmanager/internal/metrics"
	"eventmanager/internal/validation"
)

const (
	limiterTTL      = 15 * time.Minute
	cleanupInterval = 5 * time.Minute
)

// RateLimitConfig sets the per-client token bucket. A non-positive RPS disables limiting.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// RateLimit returns a middleware that allows each client RPS requests per second with
// bursts of Burst, answering 429 beyond that. Health and metrics probes are exempt.
// The cleanup goroutine stops when ctx is done.
func RateLimit(ctx context.Context, cfg RateLimitConfig, catalog *validation.Catalog) func(http.Handler) http.Handler {
	if cfg.RPS <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	store := newLimiterStore(cfg)
	go store.cleanupLoop(ctx)
	retryAfter := strconv.Itoa(max(1, int(1/cfg.RPS)))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}
			if !store.limiter(clientKey(r)).Allow() {
				metrics.RateLimitedTotal.Inc()
				w.Header().Set("Retry-After", retryAfter)
				h.WriteJSONError(w, http.StatusTooManyRequests, h.ErrCodeTooManyRequests,
					catalog.Message(h.LocaleFromContext(r.Context()), validation.MsgTooManyRequests))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type limiterStore struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	cfg      RateLimitConfig
	now      func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterStore(cfg RateLimitConfig) *limiterStore {
	return &limiterStore{
		limiters: make(map[string]*limiterEntry),
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *limiterStore) limiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.limiters[key]; ok {
		entry.lastSeen = s.now()
		return entry.limiter
	}
	limiter := rate.NewLimiter(rate.Limit(s.cfg.RPS), s.cfg.Burst)
	s.limiters[key] = &limiterEntry{limiter: limiter, lastSeen: s.now()}
	return limiter
}

func (s *limiterStore) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-ctx.Done():
			return
		}
	}
}

// cleanup drops limiters not used within limiterTTL.
func (s *limiterStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, entry := range s.limiters {
		if now.Sub(entry.lastSeen) > limiterTTL {
			delete(s.limiters, key)
		}
	}
}

// clientKey identifies the client by the connection's remote IP. Forwarded headers are
// not trusted.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
