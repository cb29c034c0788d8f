package httpx

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client. Authenticated requests are
// keyed by user id, the rest by remote IP.
type RateLimiter struct {
	RPS   float64
	Burst int
	Idle  time.Duration

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

type visitor struct {
	limiter *rate.Limiter
	seen    time.Time
}

func (rl *RateLimiter) limiter(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.visitors == nil {
		rl.visitors = make(map[string]*visitor)
	}
	idle := rl.Idle
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	// idle visitors are swept at most once per idle period
	if now.Sub(rl.lastSweep) >= idle {
		for k, v := range rl.visitors {
			if now.Sub(v.seen) > idle {
				delete(rl.visitors, k)
			}
		}
		rl.lastSweep = now
	}
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(rl.RPS), max(rl.Burst, 1))}
		rl.visitors[key] = v
	}
	v.seen = now
	return v.limiter
}

func clientKey(r *http.Request) string {
	if id := identity(r); id.UserID != "" {
		return "user:" + id.UserID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.limiter(clientKey(r), time.Now()).Allow() {
			writeJSON(w, http.StatusTooManyRequests, envelope{Success: false, Code: "rate_limited", Message: "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
