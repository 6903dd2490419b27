package main

import (
	"context"
	"fmt"
	"time"

	"github.com/diagnosis/wandernest/internal/http/middleware"
	"github.com/diagnosis/wandernest/internal/repo/memory"
	"github.com/diagnosis/wandernest/internal/repo/postgres"
	"github.com/diagnosis/wandernest/internal/repo/redisstore"
	"github.com/diagnosis/wandernest/internal/session"
	"github.com/diagnosis/wandernest/pkg/config"
	"github.com/diagnosis/wandernest/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// cleanupFunc removes expired rows or entries and reports how many.
type cleanupFunc func(ctx context.Context) (int64, error)

type backends struct {
	tokens   session.TokenRepo
	limiter  middleware.Limiter
	cleanups map[string]cleanupFunc
}

func buildBackends(cfg *config.Config, pool *pgxpool.Pool, rdb *redis.Client) (*backends, error) {
	b := &backends{cleanups: make(map[string]cleanupFunc)}

	switch cfg.Session.Backend {
	case "memory":
		repo := memory.NewTokenRepo(cfg.Session.TokenTTL)
		b.tokens = repo
		b.cleanups["tokens"] = func(context.Context) (int64, error) {
			return int64(repo.DeleteExpired()), nil
		}
	case "redis":
		b.tokens = redisstore.NewTokenRepo(rdb, cfg.Session.TokenTTL)
	case "postgres":
		repo := postgres.NewTokenRepo(pool, cfg.Session.TokenTTL)
		b.tokens = repo
		b.cleanups["tokens"] = repo.DeleteExpired
	default:
		return nil, fmt.Errorf("unknown SESSION_BACKEND %q", cfg.Session.Backend)
	}

	switch cfg.RateLimit.Backend {
	case "memory":
		limiter := memory.NewRateLimiter()
		b.limiter = limiter
		window := cfg.RateLimit.Window
		b.cleanups["rate_limits"] = func(context.Context) (int64, error) {
			return int64(limiter.CleanupExpired(window)), nil
		}
	case "redis":
		b.limiter = redisstore.NewRateLimiter(rdb)
	case "postgres":
		repo := postgres.NewRateLimitRepo(pool)
		b.limiter = repo
		b.cleanups["rate_limits"] = repo.CleanupExpired
	default:
		return nil, fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", cfg.RateLimit.Backend)
	}

	return b, nil
}

// runCleanups sweeps every backend that does not expire entries on its own.
// Redis keys carry a TTL, so redis backends register nothing here.
func (b *backends) runCleanups(ctx context.Context, interval time.Duration) error {
	if len(b.cleanups) == 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for name, cleanup := range b.cleanups {
				n, err := cleanup(ctx)
				if err != nil {
					logger.Error("Cleanup failed", "target", name, "error", err)
					continue
				}
				if n > 0 {
					logger.Debug("Cleaned up expired entries", "target", name, "count", n)
				}
			}
		}
	}
}
