package middlewares

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dropDatabas3/gatekeeper/internal/http/errors"
	"github.com/dropDatabas3/gatekeeper/internal/observability/logger"
	"golang.org/x/time/rate"
)

const (
	bucketIdleTTL  = 10 * time.Minute
	sweepThreshold = 4096
	sweepInterval  = time.Minute
)

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// IPRateLimiter es un token bucket por IP de cliente. Los buckets ociosos se
// barren de forma perezosa cuando el mapa crece, a lo sumo una vez por
// sweepInterval; no hay goroutine de limpieza.
type IPRateLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func NewIPRateLimiter(perSecond float64, burst int) *IPRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &IPRateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow consume un token para ip.
func (l *IPRateLimiter) Allow(ip string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.buckets) >= sweepThreshold && now.Sub(l.lastSweep) >= sweepInterval {
		l.lastSweep = now
		for k, b := range l.buckets {
			if now.Sub(b.seen) > bucketIdleTTL {
				delete(l.buckets, k)
			}
		}
	}
	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1)
}

// Middleware responde 429 con Retry-After cuando la IP agota su bucket.
func (l *IPRateLimiter) Middleware() Middleware {
	retry := "1"
	if l.limit > 0 && l.limit < 1 {
		retry = strconv.Itoa(int(1/float64(l.limit)) + 1)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !l.Allow(ip) {
				logger.From(r.Context()).Warn("login rate limit exceeded", logger.ClientIP(ip))
				w.Header().Set("Retry-After", retry)
				errors.WriteError(w, errors.ErrTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
