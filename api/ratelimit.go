package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/nexora-w/TrustWork/identity"
)

// limiterIdle is how long an unused per-caller limiter is kept.
const limiterIdle = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// callerLimiter keeps one token bucket per caller, falling back to the
// client IP for anonymous requests.
type callerLimiter struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	entries map[string]*limiterEntry
	now     func() time.Time
}

func newCallerLimiter(rps float64, burst int) *callerLimiter {
	if burst < 1 {
		burst = 1
	}
	return &callerLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		entries: make(map[string]*limiterEntry),
		now:     time.Now,
	}
}

func (l *callerLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now

	for k, other := range l.entries {
		if now.Sub(other.lastSeen) > limiterIdle {
			delete(l.entries, k)
		}
	}
	return e.limiter
}

func (l *callerLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if caller, ok := identity.CallerFrom(c.Request.Context()); ok {
			key = caller.String()
		}
		lim := l.get(key)
		if !lim.Allow() {
			r := lim.Reserve()
			delay := r.Delay()
			r.Cancel()
			c.Header("Retry-After", strconv.Itoa(int(delay/time.Second)+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded", Code: "rate_limited"})
			return
		}
		c.Next()
	}
}
