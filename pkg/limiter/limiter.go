package limiter

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiter struct {
	sync.RWMutex

	clients map[string]*client
	rps     int
	burst   int
	ttl     time.Duration
}

func newRateLimiter(rps, burst int, ttl time.Duration) *rateLimiter {
	l := &rateLimiter{
		clients: make(map[string]*client),
		rps:     rps,
		burst:   burst,
		ttl:     ttl,
	}

	go l.cleanup()

	return l
}

func (l *rateLimiter) getLimiter(ip string) *rate.Limiter {
	l.Lock()
	defer l.Unlock()

	c, ok := l.clients[ip]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rate.Limit(l.rps), l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = time.Now()

	return c.limiter
}

func (l *rateLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)

		l.Lock()
		for ip, c := range l.clients {
			if time.Since(c.lastSeen) > l.ttl {
				delete(l.clients, ip)
			}
		}
		l.Unlock()
	}
}

// Limit returns a gin middleware enforcing a per-IP token bucket.
func Limit(rps, burst int, ttl time.Duration) gin.HandlerFunc {
	l := newRateLimiter(rps, burst, ttl)

	return func(c *gin.Context) {
		if !l.getLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}

		c.Next()
	}
}
