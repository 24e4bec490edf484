package ratelimit

import (
	"fmt"
	"time"

	"github.com/causekit/CauseLedger/internal/pkg/cache"
	"github.com/causekit/CauseLedger/internal/pkg/env"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

const (
	// DefaultLimit is the request ceiling per identifier per window.
	DefaultLimit = 100
	// DefaultWindow is the moving window the ceiling applies to.
	DefaultWindow = time.Minute

	keyPrefix = "ratelimit:"
)

// Limiter bounds request volume per client identifier using a sliding
// window over two fixed buckets in Redis. The counters live in Redis, not
// in process memory, so every service replica sees the same counts and the
// limit holds under horizontal scaling. The increment is a
// single atomic INCR; concurrent requests from one identifier can never
// undercount.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewLimiter creates a limiter with the given ceiling and window.
func NewLimiter(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{limit: limit, window: window, now: time.Now}
}

// NewLimiterFromEnv creates a limiter from RATE_LIMIT_CEILING and
// RATE_LIMIT_WINDOW.
func NewLimiterFromEnv() *Limiter {
	return NewLimiter(
		env.GetEnvInt("RATE_LIMIT_CEILING", DefaultLimit),
		env.GetEnvDuration("RATE_LIMIT_WINDOW", DefaultWindow),
	)
}

// Allow decides whether one more request from the identifier fits under the
// ceiling. Redis being unreachable fails open with a warning: dropping
// legitimate provider deliveries is worse than briefly losing throttling,
// and the signature and replay layers still stand.
func (l *Limiter) Allow(identifier string) bool {
	now := l.now()
	bucket := now.UnixNano() / int64(l.window)
	elapsed := float64(now.UnixNano()%int64(l.window)) / float64(l.window)

	current, err := cache.IncrWithExpiry(l.bucketKey(identifier, bucket), 2*l.window)
	if err != nil {
		log.Warnf("[RateLimit] counter unavailable, allowing request: %v", err)
		return true
	}

	previous, err := cache.GetInt(l.bucketKey(identifier, bucket-1))
	if err != nil {
		previous = 0
	}

	return SlidingCount(int64(previous), current, elapsed) <= float64(l.limit)
}

// SlidingCount weights the previous bucket by its remaining overlap with
// the moving window and adds the current bucket. Kept separate so the
// boundary arithmetic is testable without Redis.
func SlidingCount(previous, current int64, elapsedFraction float64) float64 {
	if elapsedFraction < 0 {
		elapsedFraction = 0
	}
	if elapsedFraction > 1 {
		elapsedFraction = 1
	}
	return float64(previous)*(1-elapsedFraction) + float64(current)
}

func (l *Limiter) bucketKey(identifier string, bucket int64) string {
	return fmt.Sprintf("%s%s:%d", keyPrefix, identifier, bucket)
}

// Middleware wraps the limiter as a fiber handler keyed by client IP.
func (l *Limiter) Middleware(keyFn func(c *fiber.Ctx) string) fiber.Handler {
	if keyFn == nil {
		keyFn = func(c *fiber.Ctx) string { return c.IP() }
	}
	return func(c *fiber.Ctx) error {
		if !l.Allow(keyFn(c)) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate_limited"})
		}
		return c.Next()
	}
}
