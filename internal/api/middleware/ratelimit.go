package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitMiddleware limits request rates per client IP. Each analysis
// request fans out into multiple model calls, so the HTTP-level limit is
// deliberately conservative.
type RateLimitMiddleware struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[string]*visitor

	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimitMiddleware creates a per-IP rate limiter allowing rpm
// requests per minute with the given burst.
func NewRateLimitMiddleware(rpm, burst int) *RateLimitMiddleware {
	if burst < 1 {
		burst = 1
	}
	m := &RateLimitMiddleware{
		limit:    rate.Limit(float64(rpm) / 60.0),
		burst:    burst,
		visitors: make(map[string]*visitor),
		ticker:   time.NewTicker(time.Minute),
		done:     make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// Stop ends the eviction goroutine and releases its ticker. Safe to call
// more than once; the handler keeps working after Stop.
func (m *RateLimitMiddleware) Stop() {
	m.stopOnce.Do(func() {
		m.ticker.Stop()
		close(m.done)
	})
}

// Handler returns the middleware handler
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Health checks and static pages are never limited.
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" || strings.HasPrefix(r.URL.Path, "/pages") {
			next.ServeHTTP(w, r)
			return
		}

		limiter := m.limiterFor(clientIP(r))

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(int(float64(m.limit)*60)))

		if !limiter.Allow() {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimitMiddleware) limiterFor(ip string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.visitors[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// cleanupLoop evicts limiters for clients not seen recently. It exits
// when Stop is called.
func (m *RateLimitMiddleware) cleanupLoop() {
	for {
		select {
		case <-m.done:
			return
		case <-m.ticker.C:
			m.mu.Lock()
			for ip, v := range m.visitors {
				if time.Since(v.lastSeen) > 3*time.Minute {
					delete(m.visitors, ip)
				}
			}
			m.mu.Unlock()
		}
	}
}

func clientIP(r *http.Request) string {
	// chi's RealIP middleware rewrites RemoteAddr from X-Forwarded-For /
	// X-Real-IP when present.
	ip := r.RemoteAddr
	if i := strings.LastIndex(ip, ":"); i >= 0 {
		ip = ip[:i]
	}
	return ip
}
