package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/feral-file/ff-stamp-market/internal/adapter"
	"github.com/feral-file/ff-stamp-market/internal/logger"
)

const (
	defaultKeyPrefix = "ff:market:engagement:"
	// probeInterval is how often an unavailable redis is pinged again
	probeInterval = 10 * time.Second
	// maxLocalKeys bounds the local limiter table; it is reset when full
	maxLocalKeys = 10000
)

// Config holds the engagement throttle configuration
type Config struct {
	// PerMinute is the sustained number of events allowed per key
	PerMinute int
	// Burst is the number of events allowed at once
	Burst     int
	KeyPrefix string
	// EnableLocalFallback allows falling back to in-process limiters while redis is unreachable
	EnableLocalFallback bool
}

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether an engagement event for a key may be recorded
//
//go:generate mockgen -source=limiter.go -destination=../mocks/ratelimit_limiter.go -package=mocks -mock_names=Limiter=MockLimiter
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	Close() error
}

type limiter struct {
	config         Config
	redis          adapter.RedisClient
	distributed    adapter.RedisRateLimiter
	clock          adapter.Clock
	redisAvailable atomic.Bool

	mu        sync.Mutex
	local     map[string]*rate.Limiter
	lastProbe time.Time
}

// NewLimiter creates a throttle. A nil redis client keeps every limiter in process.
func NewLimiter(cfg Config, rc adapter.RedisClient, clock adapter.Clock) (Limiter, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	l := &limiter{
		config: cfg,
		redis:  rc,
		clock:  clock,
		local:  make(map[string]*rate.Limiter),
	}
	if rc == nil {
		return l, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rc.Ping(ctx).Err(); err != nil {
		if !cfg.EnableLocalFallback {
			return nil, fmt.Errorf("redis unavailable and fallback disabled: %w", err)
		}
		logger.Warn("Redis unavailable, using local engagement limiter", zap.Error(err))
	} else {
		l.redisAvailable.Store(true)
	}
	l.distributed = rc.NewRateLimiter()
	l.lastProbe = clock.Now()

	return l, nil
}

// Allow consumes one event for key
func (l *limiter) Allow(ctx context.Context, key string) (Decision, error) {
	if l.distributed != nil {
		if !l.redisAvailable.Load() {
			l.probe(ctx)
		}
		if l.redisAvailable.Load() {
			decision, err := l.allowDistributed(ctx, key)
			if err == nil {
				return decision, nil
			}
			if ctx.Err() != nil {
				return Decision{}, ctx.Err()
			}

			l.redisAvailable.Store(false)
			if !l.config.EnableLocalFallback {
				return Decision{}, fmt.Errorf("redis rate limiter unavailable: %w", err)
			}
			logger.WarnCtx(ctx, "Redis rate limiter error, falling back to local", zap.Error(err))
		} else if !l.config.EnableLocalFallback {
			return Decision{}, fmt.Errorf("redis rate limiter unavailable")
		}
	}

	return l.allowLocal(key), nil
}

func (l *limiter) allowDistributed(ctx context.Context, key string) (Decision, error) {
	limit := redis_rate.Limit{
		Rate:   l.config.PerMinute,
		Burst:  l.config.Burst,
		Period: time.Minute,
	}
	res, err := l.distributed.Allow(ctx, l.config.KeyPrefix+key, limit)
	if err != nil {
		return Decision{}, err
	}
	if res.Allowed == 0 {
		logger.DebugCtx(ctx, "Engagement throttled",
			zap.String("key", key),
			zap.Duration("retry_after", res.RetryAfter),
		)
		return Decision{Allowed: false, RetryAfter: res.RetryAfter}, nil
	}
	return Decision{Allowed: true, Remaining: res.Remaining}, nil
}

func (l *limiter) allowLocal(key string) Decision {
	l.mu.Lock()
	lim, ok := l.local[key]
	if !ok {
		if len(l.local) >= maxLocalKeys {
			l.local = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(rate.Limit(float64(l.config.PerMinute)/60), l.config.Burst)
		l.local[key] = lim
	}
	l.mu.Unlock()

	now := l.clock.Now()
	r := lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{Allowed: false, RetryAfter: delay}
	}
	return Decision{Allowed: true, Remaining: int(lim.TokensAt(now))}
}

// probe pings redis at most once per probeInterval
func (l *limiter) probe(ctx context.Context) {
	l.mu.Lock()
	if l.clock.Since(l.lastProbe) < probeInterval {
		l.mu.Unlock()
		return
	}
	l.lastProbe = l.clock.Now()
	l.mu.Unlock()

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := l.redis.Ping(pingCtx).Err(); err == nil {
		l.redisAvailable.Store(true)
		logger.InfoCtx(ctx, "Redis connection restored")
	}
}

// Close releases the redis connection
func (l *limiter) Close() error {
	if l.redis == nil {
		return nil
	}
	if err := l.redis.Close(); err != nil {
		logger.Warn("Error closing Redis connection", zap.Error(err))
		return err
	}
	return nil
}

// validateConfig validates and sets defaults for the configuration
func validateConfig(cfg *Config) error {
	if cfg.PerMinute <= 0 {
		return fmt.Errorf("per_minute must be positive")
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.PerMinute
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	return nil
}
