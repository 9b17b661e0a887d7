package httpmiddleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

// RateLimitConfig configures the fixed window rate limiter.
type RateLimitConfig struct {
	// Max is the maximum number of requests allowed per window.
	Max int
	// Window is the duration of each window.
	Window time.Duration
	// KeyFunc extracts the rate limit key from a request.
	// If nil, the client IP address is used.
	KeyFunc func(*http.Request) string
	// Store holds the counters. If nil, they live in process memory and each
	// replica limits on its own.
	Store limiter.Store
}

const storePrefix = "rewards:ratelimit"

// NewRedisStore keeps counters in Redis so replicas share one budget.
func NewRedisStore(client *redis.Client) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: storePrefix})
}

// RateLimit returns a middleware that enforces a per-key request budget.
// Every response includes X-RateLimit-Limit, X-RateLimit-Remaining and
// X-RateLimit-Reset headers; requests over budget get 429 with a JSON body
// and Retry-After. A failing store answers 500.
func RateLimit(cfg RateLimitConfig) Middleware {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = defaultKeyFunc
	}
	store := cfg.Store
	if store == nil {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          storePrefix,
			CleanUpInterval: 2 * cfg.Window,
		})
	}
	rate := limiter.Rate{Period: cfg.Window, Limit: int64(cfg.Max)}

	mw := stdlib.NewMiddleware(limiter.New(store, rate),
		stdlib.WithKeyGetter(cfg.KeyFunc),
		stdlib.WithLimitReachedHandler(limitReached),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			zctx.From(r.Context()).Error("Rate limiter failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}),
	)
	return mw.Handler
}

func limitReached(w http.ResponseWriter, _ *http.Request) {
	retryAfter := 0
	if reset, err := strconv.ParseInt(w.Header().Get("X-RateLimit-Reset"), 10, 64); err == nil {
		retryAfter = max(0, int(time.Until(time.Unix(reset, 0)).Seconds()+0.999))
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
}

// defaultKeyFunc extracts the client IP from the request, checking
// X-Forwarded-For first, then X-Real-IP, then falling back to RemoteAddr.
func defaultKeyFunc(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For may contain a comma-separated list; use the first.
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
