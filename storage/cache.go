package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocrud/engine/logging"
	"github.com/redis/go-redis/v9"
)

// CacheOptions Redis 读穿缓存配置选项
type CacheOptions struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	// TTL 缓存条目有效期，time.ParseDuration 格式，空值取 5m
	TTL string `json:"ttl"`
}

// CachedStore 为内层仓库叠加 Redis 读穿缓存。
// 缓存只是加速层：任何缓存故障都降级为直读内层仓库，绝不让存档失败。
type CachedStore struct {
	inner  Store
	client *redis.Client
	ttl    time.Duration
	logger logging.Logger
}

// NewCachedStore 包装 inner 并连接 opts 指向的 Redis
func NewCachedStore(inner Store, opts CacheOptions, logger logging.Logger) (*CachedStore, error) {
	ttl := 5 * time.Minute
	if opts.TTL != "" {
		parsed, err := time.ParseDuration(opts.TTL)
		if err != nil {
			return nil, fmt.Errorf("storage: invalid cache ttl '%s': %w", opts.TTL, err)
		}
		ttl = parsed
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	return &CachedStore{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger.WithCategory("Storage"),
	}, nil
}

func cacheKey(key string) string {
	return "save:" + key
}

// Startup 启动内层仓库并探测缓存连通性。
// 缓存不可达只降级，不阻止启动。
func (s *CachedStore) Startup() error {
	if lc, ok := s.inner.(interface{ Startup() error }); ok {
		if err := lc.Startup(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.logger.Warn("Redis cache unavailable, reads fall through to the store",
			logging.Field{Key: "error", Value: err.Error()})
	}
	return nil
}

// Shutdown 关闭内层仓库与缓存客户端
func (s *CachedStore) Shutdown() error {
	var errs []error
	if lc, ok := s.inner.(interface{ Shutdown() error }); ok {
		if err := lc.Shutdown(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.client.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close cache client: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("storage: errors closing cached store: %v", errs)
	}
	return nil
}

func (s *CachedStore) Get(ctx context.Context, key string) ([]byte, error) {
	cached, err := s.client.Get(ctx, cacheKey(key)).Bytes()
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, redis.Nil) {
		s.logger.Warn("Cache read failed, falling back to store",
			logging.Field{Key: "key", Value: key},
			logging.Field{Key: "error", Value: err.Error()})
	}

	value, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, cacheKey(key), value, s.ttl).Err(); err != nil {
		s.logger.Warn("Cache fill failed",
			logging.Field{Key: "key", Value: key},
			logging.Field{Key: "error", Value: err.Error()})
	}
	return value, nil
}

func (s *CachedStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.inner.Set(ctx, key, value); err != nil {
		return err
	}
	if err := s.client.Set(ctx, cacheKey(key), value, s.ttl).Err(); err != nil {
		s.logger.Warn("Cache write failed",
			logging.Field{Key: "key", Value: key},
			logging.Field{Key: "error", Value: err.Error()})
	}
	return nil
}

func (s *CachedStore) Delete(ctx context.Context, key string) error {
	if err := s.inner.Delete(ctx, key); err != nil {
		return err
	}
	if err := s.client.Del(ctx, cacheKey(key)).Err(); err != nil {
		s.logger.Warn("Cache invalidation failed",
			logging.Field{Key: "key", Value: key},
			logging.Field{Key: "error", Value: err.Error()})
	}
	return nil
}

// Keys 缓存不追踪键集，直接透传内层仓库
func (s *CachedStore) Keys(ctx context.Context) ([]string, error) {
	return s.inner.Keys(ctx)
}
