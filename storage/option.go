package storage

import (
	"fmt"

	"github.com/gocrud/engine/config"
	"github.com/gocrud/engine/core"
	"github.com/gocrud/engine/di"
	"github.com/gocrud/engine/logging"
)

// Options 存储配置，来自配置节 storage
type Options struct {
	// Driver 后端选择：sqlite 或 mongo
	Driver string `json:"driver"`
	// Path sqlite 数据库文件路径
	Path string `json:"path"`
	// Mongo mongo 后端连接配置
	Mongo MongoOptions `json:"mongo"`
	// Cache 可选的 Redis 读穿缓存，Addr 为空时不启用
	Cache CacheOptions `json:"cache"`
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions() *Options {
	return &Options{
		Driver: "sqlite",
		Path:   "saves.db",
		Mongo: MongoOptions{
			Database:   "engine",
			Collection: "saves",
		},
	}
}

// Validate 验证配置
func (o *Options) Validate() error {
	switch o.Driver {
	case "sqlite":
		if o.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case "mongo":
		if o.Mongo.URI == "" {
			return fmt.Errorf("mongo uri is required")
		}
		if o.Mongo.Database == "" {
			return fmt.Errorf("mongo database is required")
		}
		if o.Mongo.Collection == "" {
			return fmt.Errorf("mongo collection is required")
		}
	default:
		return fmt.Errorf("unknown driver '%s' (expected sqlite or mongo)", o.Driver)
	}
	return nil
}

// BuilderOption 覆盖配置节给出的存储选项
type BuilderOption func(*Options)

// WithSqlite 选择 sqlite 后端并指定数据库文件
func WithSqlite(path string) BuilderOption {
	return func(o *Options) {
		o.Driver = "sqlite"
		o.Path = path
	}
}

// WithMongo 选择 mongo 后端并指定连接串
func WithMongo(uri string, opts ...func(*MongoOptions)) BuilderOption {
	return func(o *Options) {
		o.Driver = "mongo"
		o.Mongo.URI = uri
		for _, opt := range opts {
			opt(&o.Mongo)
		}
	}
}

// WithCache 启用 Redis 读穿缓存
func WithCache(addr string, opts ...func(*CacheOptions)) BuilderOption {
	return func(o *Options) {
		o.Cache.Addr = addr
		for _, opt := range opts {
			opt(&o.Cache)
		}
	}
}

// New 把存档仓库注册为立即构造的单例，绑定到 Store 抽象。
// 配置节 storage 先生效，BuilderOption 在其上覆盖；
// 两者都缺省时落到本地 sqlite 文件。
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		options := NewDefaultOptions()

		if cfg, err := di.Resolve[config.Configuration](rt.Factory); err == nil && cfg.Get("storage") != "" {
			if err := cfg.Bind("storage", options); err != nil {
				return fmt.Errorf("storage: invalid configuration: %w", err)
			}
		}
		for _, opt := range opts {
			opt(options)
		}
		if err := options.Validate(); err != nil {
			return fmt.Errorf("storage: %w", err)
		}

		return rt.Singletons.Register(core.Eager[Store](
			func(logger logging.Logger) (Store, error) {
				return build(options, logger)
			}))
	}
}

func build(options *Options, logger logging.Logger) (Store, error) {
	var store Store
	var err error
	switch options.Driver {
	case "sqlite":
		store, err = NewSqliteStore(options.Path, logger)
	case "mongo":
		store, err = NewMongoStore(options.Mongo, logger)
	}
	if err != nil {
		return nil, err
	}
	if options.Cache.Addr != "" {
		return NewCachedStore(store, options.Cache, logger)
	}
	return store, nil
}
