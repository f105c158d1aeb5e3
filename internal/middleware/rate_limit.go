package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harentsoaR/clinic-reception-api/internal/exceptions"
	"github.com/harentsoaR/clinic-reception-api/internal/utils"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	rateLimiterCapacity = 10000
	rateLimiterIdleTTL  = 15 * time.Minute
)

// RateLimiter keeps one token bucket per client IP. Buckets idle for longer
// than rateLimiterIdleTTL are forgotten.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
	log      *zap.Logger
}

func NewRateLimiter(perSecond float64, burst int, log *zap.Logger) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](rateLimiterCapacity, nil, rateLimiterIdleTTL),
		limit:    rate.Limit(perSecond),
		burst:    burst,
		log:      log,
	}
}

func (r *RateLimiter) limiter(ip string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	limiter, ok := r.limiters.Get(ip)
	if !ok {
		limiter = rate.NewLimiter(r.limit, r.burst)
	}
	// Re-adding refreshes the idle expiry.
	r.limiters.Add(ip, limiter)
	return limiter
}

func (r *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.limiter(c.ClientIP()).Allow() {
			utils.BuildErrorResponse(r.log, c, exceptions.ErrTooManyRequests())
			return
		}
		c.Next()
	}
}
