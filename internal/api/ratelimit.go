package api

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	// IdleTTL drops limiters for clients not seen for this long.
	IdleTTL time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a token bucket per authenticated user, or per remote
// address for anonymous callers. It must run after ClaimsAuth to see the user.
type RateLimiter struct {
	cfg RateLimitConfig
	now func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientLimiter
	lastSweep time.Time
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &RateLimiter{cfg: cfg, now: time.Now, clients: make(map[string]*clientLimiter)}
}

func (l *RateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.cfg.IdleTTL {
		for k, c := range l.clients {
			if now.Sub(c.lastSeen) > l.cfg.IdleTTL {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.clients[key]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)}
		l.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "user:" + PrincipalFromContext(r.Context()).UserID
		if key == "user:" {
			key = "ip:" + clientIP(r)
		}

		res := l.limiter(key).ReserveN(l.now(), 1)
		if !res.OK() {
			WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
			return
		}
		if delay := res.DelayFrom(l.now()); delay > 0 {
			res.CancelAt(l.now())
			w.Header().Set("Retry-After", strconv.Itoa(int(delay.Seconds())+1))
			WriteError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP uses RemoteAddr only; chi's RealIP runs earlier when deployed
// behind a trusted proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
