package ratelimit

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	appErrors "github.com/noah-isme/rchan-moderation-api/pkg/errors"
	"github.com/noah-isme/rchan-moderation-api/pkg/response"
)

const idleTTL = 5 * time.Minute

type visitor struct {
	limiter *rate.Limiter
	expires time.Time
}

// Limiter hands out one token bucket per client IP.
type Limiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time
}

// New builds a limiter allowing perMinute requests per IP with a burst of half that.
func New(perMinute int) *Limiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &Limiter{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    maxInt(perMinute/2, 1),
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

// Allow consumes a token for key.
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

// Middleware rejects requests over the limit with 429 and a Retry-After hint.
func (l *Limiter) Middleware() gin.HandlerFunc {
	retryAfter := strconv.Itoa(maxInt(int(time.Duration(float64(time.Second)/float64(l.limit)).Seconds()), 1))
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.Header("Retry-After", retryAfter)
			response.Error(c, appErrors.Clone(appErrors.ErrTooManyRequests, "too many submissions, slow down"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, v := range l.visitors {
		if now.After(v.expires) {
			delete(l.visitors, k)
		}
	}

	if v, ok := l.visitors[key]; ok {
		v.expires = now.Add(idleTTL)
		return v.limiter
	}
	v := &visitor{limiter: rate.NewLimiter(l.limit, l.burst), expires: now.Add(idleTTL)}
	l.visitors[key] = v
	return v.limiter
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
