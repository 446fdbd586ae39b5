package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	apperrors "github.com/echocipher/carrier/internal/errors"
	"github.com/echocipher/carrier/internal/httputil"
)

const (
	limiterSweepInterval = 5 * time.Minute
	limiterIdleTTL       = time.Hour
)

// rateLimiterStore holds one token bucket per caller.
type rateLimiterStore struct {
	limiters sync.Map // map[string]*rateLimiterEntry
	rps      float64
	burst    int

	sweepMu   sync.Mutex
	lastSweep time.Time
	now       func() time.Time
}

type rateLimiterEntry struct {
	limiter    *rate.Limiter
	mu         sync.Mutex
	lastAccess time.Time
}

// RateLimitMiddleware enforces a per-user token bucket. It must run after
// httputil.RequireUserID. Rejected requests get 429 with a Retry-After header.
func RateLimitMiddleware(rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := newRateLimiterStore(rps, burst, time.Now)

	return func(c *gin.Context) {
		userID := httputil.UserID(c)
		if userID == "" {
			logger.Error("rate limit middleware: no caller in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		limiter := store.getLimiter(userID)
		if !limiter.Allow() {
			reservation := limiter.Reserve()
			retryAfter := int(reservation.Delay().Seconds())
			reservation.Cancel()
			if retryAfter < 1 {
				retryAfter = 1
			}

			logger.Debug("rate limit exceeded",
				slog.String("user_id", userID),
				slog.Int("retry_after", retryAfter))

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, httputil.ErrorResponse{
				Error:   "rate_limit_exceeded",
				Message: "Too many requests. Please retry after the specified delay.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func newRateLimiterStore(rps float64, burst int, now func() time.Time) *rateLimiterStore {
	return &rateLimiterStore{
		rps:       rps,
		burst:     burst,
		now:       now,
		lastSweep: now(),
	}
}

// getLimiter returns the caller's limiter, creating it on first use.
func (s *rateLimiterStore) getLimiter(userID string) *rate.Limiter {
	now := s.now()
	s.sweep(now)

	if val, ok := s.limiters.Load(userID); ok {
		entry := val.(*rateLimiterEntry)
		entry.mu.Lock()
		entry.lastAccess = now
		entry.mu.Unlock()
		return entry.limiter
	}

	entry := &rateLimiterEntry{
		limiter:    rate.NewLimiter(rate.Limit(s.rps), s.burst),
		lastAccess: now,
	}
	actual, _ := s.limiters.LoadOrStore(userID, entry)
	return actual.(*rateLimiterEntry).limiter
}

// sweep drops limiters idle for longer than limiterIdleTTL. It runs at most
// once per limiterSweepInterval, piggybacking on request traffic.
func (s *rateLimiterStore) sweep(now time.Time) {
	s.sweepMu.Lock()
	if now.Sub(s.lastSweep) < limiterSweepInterval {
		s.sweepMu.Unlock()
		return
	}
	s.lastSweep = now
	s.sweepMu.Unlock()

	threshold := now.Add(-limiterIdleTTL)
	s.limiters.Range(func(key, value any) bool {
		entry := value.(*rateLimiterEntry)
		entry.mu.Lock()
		stale := entry.lastAccess.Before(threshold)
		entry.mu.Unlock()
		if stale {
			s.limiters.Delete(key)
		}
		return true
	})
}
