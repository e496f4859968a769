package api

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/ulule/limiter/v3"
	ginmiddleware "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"golang.org/x/time/rate"
)

const msgTooManyRequests = "Too many requests. Please try again later."

// keyedLimiter hands out one token bucket per key.
type keyedLimiter struct {
	limiters sync.Map
	rps      rate.Limit
	burst    int
}

func newKeyedLimiter(rps float64, burst int) *keyedLimiter {
	if burst <= 0 {
		burst = 5
	}
	return &keyedLimiter{rps: rate.Limit(rps), burst: burst}
}

func (l *keyedLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		if lim, ok := v.(*rate.Limiter); ok {
			return lim
		}
	}

	lim := rate.NewLimiter(l.rps, l.burst)
	actual, loaded := l.limiters.LoadOrStore(key, lim)
	if loaded {
		if actualLim, ok := actual.(*rate.Limiter); ok {
			return actualLim
		}
	}
	return lim
}

func (l *keyedLimiter) Allow(key string) bool {
	if l.rps <= 0 {
		return true
	}
	return l.getLimiter(key).Allow()
}

// newPublicLimiter limits anonymous traffic per client IP. Counters live in
// redis when a client is given so that replicas share them.
func newPublicLimiter(formatted string, client *redis.Client, logger zerolog.Logger) (gin.HandlerFunc, error) {
	r, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q: %w", formatted, err)
	}

	var store limiter.Store
	if client != nil {
		store, err = redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
			Prefix:   "rate_limiter:public",
			MaxRetry: 3,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create redis limiter store: %w", err)
		}
	} else {
		store = memory.NewStore()
	}

	mw := ginmiddleware.NewMiddleware(limiter.New(store, r),
		ginmiddleware.WithLimitReachedHandler(func(c *gin.Context) {
			writeError(c, http.StatusTooManyRequests, msgTooManyRequests)
		}),
		ginmiddleware.WithErrorHandler(func(c *gin.Context, err error) {
			logger.Error().Err(err).Msg("rate limiter store failed")
			writeError(c, http.StatusServiceUnavailable, msgUnavailable)
		}),
	)
	return mw, nil
}
