package gateway

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// CORS allows the configured origins to call the API from a browser. "*"
// allows any origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader, "Retry-After"},
		MaxAge:         600,
	})
}

const (
	clientIdleTTL   = 5 * time.Minute
	clientSweepSize = 1024
)

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter hands out one token bucket per client address. Buckets idle
// for longer than clientIdleTTL are dropped once the table grows.
type ClientLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	clients map[string]*clientBucket
	now     func() time.Time
}

// NewClientLimiter allows each client limit requests per second with the
// given burst. A non-positive limit disables limiting.
func NewClientLimiter(limit float64, burst int) *ClientLimiter {
	l := &ClientLimiter{
		limit:   rate.Limit(limit),
		burst:   burst,
		clients: make(map[string]*clientBucket),
		now:     time.Now,
	}
	if limit <= 0 {
		l.limit = rate.Inf
	}
	return l
}

func (l *ClientLimiter) Allow(client string) bool {
	if l.limit == rate.Inf {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.clients[client]
	if !ok {
		if len(l.clients) >= clientSweepSize {
			l.sweep(now)
		}
		b = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = b
	}
	b.lastSeen = now

	return b.limiter.AllowN(now, 1)
}

func (l *ClientLimiter) sweep(now time.Time) {
	for client, b := range l.clients {
		if now.Sub(b.lastSeen) > clientIdleTTL {
			delete(l.clients, client)
		}
	}
}

// clientAddr is the caller's IP once middleware.RealIP has rewritten
// RemoteAddr.
func clientAddr(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// RateLimit rejects requests with 429 once the caller's bucket is empty.
func RateLimit(limiter *ClientLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow(clientAddr(r)) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
			return
		}
		next(w, r)
	}
}
