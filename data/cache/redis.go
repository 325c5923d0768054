package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/arjundixit/portfolio_tracker/config"
	"github.com/arjundixit/portfolio_tracker/internal/model"
	"github.com/arjundixit/portfolio_tracker/utils"
	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func overviewKey(date time.Time) string {
	return fmt.Sprintf("overview:%s", date.Format(time.DateOnly))
}

func (r *RedisCache) SetOverview(ctx context.Context, overview model.PortfolioOverview) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetOverview start", slog.String("rqID", rqID))

	overviewJson, err := json.Marshal(overview)
	if err != nil {
		slog.Error("can't marshal overview in SetOverview", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return errors.New("can't marshal overview")
	}

	key := overviewKey(overview.Snapshot.SnapshotDate)
	_, err = r.redis.Set(ctx, key, overviewJson, r.cfg.Cache.OverviewExpiration).Result()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return err
	}

	slog.Debug("SetOverview completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetOverview(ctx context.Context, date time.Time) (model.PortfolioOverview, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetOverview start", slog.String("rqID", rqID))

	key := overviewKey(date)
	res, err := r.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.PortfolioOverview{}, ErrCacheMiss
		}
		slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return model.PortfolioOverview{}, err
	}

	overview := model.PortfolioOverview{}
	err = json.Unmarshal([]byte(res), &overview)
	if err != nil {
		slog.Error(
			"can't unmarshal overview in GetOverview",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return model.PortfolioOverview{}, errors.New("can't unmarshal overview")
	}

	slog.Debug("GetOverview completed", slog.String("rqID", rqID))

	return overview, nil
}

func (r *RedisCache) FlushOverview(ctx context.Context, date time.Time) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("FlushOverview start", slog.String("rqID", rqID))

	key := overviewKey(date)
	_, err := r.redis.Del(ctx, key).Result()
	if err != nil {
		slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return err
	}

	slog.Debug("FlushOverview completed", slog.String("rqID", rqID))

	return nil
}
