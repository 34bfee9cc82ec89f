package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterCleanupInterval is how often idle per-IP limiters are purged.
const limiterCleanupInterval = 5 * time.Minute

// ipLimiter holds a rate limiter and its last access time.
type ipLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// loginLimiter throttles login attempts per client IP. Login is the only
// throttled endpoint: it is the one place an attacker can grind passwords.
type loginLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*ipLimiter

	stopCh chan struct{}
}

// newLoginLimiter creates a limiter allowing perMinute attempts per IP.
// A background goroutine purges idle entries until Stop is called.
func newLoginLimiter(perMinute, burst int) *loginLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = perMinute
	}

	l := &loginLimiter{
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		limiters: make(map[string]*ipLimiter),
		stopCh:   make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Stop halts the background cleanup goroutine.
func (l *loginLimiter) Stop() {
	close(l.stopCh)
}

// Allow reports whether the given client IP may attempt a login now.
func (l *loginLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastAccess = time.Now()

	return entry.limiter.Allow()
}

// middleware rejects over-limit login attempts with 429 and a Retry-After
// hint derived from the refill rate.
func (l *loginLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientIP(r)) {
			retryAfter := int(math.Ceil(1.0 / float64(l.limit)))
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(w, http.StatusTooManyRequests, ErrCodeRateLimited, "too many login attempts, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// count returns the number of tracked IPs, for tests.
func (l *loginLimiter) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// cleanupLoop periodically removes limiters idle for two cleanup intervals.
func (l *loginLimiter) cleanupLoop() {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup(limiterCleanupInterval * 2)
		case <-l.stopCh:
			return
		}
	}
}

func (l *loginLimiter) cleanup(ttl time.Duration) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, entry := range l.limiters {
		if now.Sub(entry.lastAccess) > ttl {
			delete(l.limiters, ip)
		}
	}
}

// clientIP extracts the client address without the port. RemoteAddr is
// trusted as-is; X-Forwarded-For is deliberately ignored because this
// service is expected to sit behind a proxy that rewrites RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
