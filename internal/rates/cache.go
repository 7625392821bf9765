package rates

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goodnatureofminers/icwallet/internal/clock"
	"go.uber.org/zap"
)

var ErrNoRates = errors.New("exchange rates unavailable")

const (
	DefaultMaxAge   = 60 * time.Second
	DefaultMaxStale = 10 * time.Minute
	defaultAttempts = 3
	retryBackoff    = time.Second
)

type CacheConfig struct {
	// MaxAge is how long a table is served without refetching.
	MaxAge time.Duration
	// MaxStale bounds how old a table may get while refreshes keep failing.
	MaxStale time.Duration
	// Attempts per refresh.
	Attempts int
}

// Cache serves the latest table, refreshing it when older than MaxAge.
type Cache struct {
	source  Source
	cfg     CacheConfig
	metrics Metrics
	logger  *zap.Logger
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error

	mu    sync.Mutex
	table Table
	ok    bool
}

func NewCache(source Source, cfg CacheConfig, metrics Metrics, logger *zap.Logger) *Cache {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.MaxStale < cfg.MaxAge {
		cfg.MaxStale = max(DefaultMaxStale, cfg.MaxAge)
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = defaultAttempts
	}
	return &Cache{
		source:  source,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger.Named("rates"),
		now:     time.Now,
		sleep:   clock.SleepWithContext,
	}
}

// Get returns a table no older than MaxAge, or a stale one within MaxStale when refreshing fails.
func (c *Cache) Get(ctx context.Context) (Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.ok && c.table.Age(now) < c.cfg.MaxAge {
		return c.table, nil
	}

	table, err := c.refreshLocked(ctx)
	if err == nil {
		return table, nil
	}
	if c.ok && c.table.Age(now) < c.cfg.MaxStale {
		c.logger.Warn("serving stale exchange rates", zap.Duration("age", c.table.Age(now)), zap.Error(err))
		return c.table, nil
	}
	return Table{}, fmt.Errorf("%w: %v", ErrNoRates, err)
}

// Refresh fetches a new table regardless of the cached one's age.
func (c *Cache) Refresh(ctx context.Context) (Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.refreshLocked(ctx)
}

// Run refreshes every interval until ctx is done. Failures are logged and retried on the next tick.
func (c *Cache) Run(ctx context.Context, interval time.Duration) error {
	for {
		if _, err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
			c.logger.Warn("exchange rate refresh failed", zap.Error(err))
		}
		if err := c.sleep(ctx, interval); err != nil {
			return nil
		}
	}
}

func (c *Cache) refreshLocked(ctx context.Context) (Table, error) {
	var err error
	for attempt := 1; attempt <= c.cfg.Attempts; attempt++ {
		var table Table
		table, err = c.source.Fetch(ctx)
		c.metrics.ObserveRefresh(err)
		if err == nil {
			c.table, c.ok = table, true
			return table, nil
		}
		if attempt == c.cfg.Attempts {
			break
		}
		if sleepErr := c.sleep(ctx, clock.Backoff(attempt, retryBackoff, 4*retryBackoff)); sleepErr != nil {
			return Table{}, sleepErr
		}
	}
	return Table{}, err
}
