package config

import (
	"fmt"
	"time"

	"github.com/gocrud/engine/core"
	"github.com/gocrud/engine/di"
	"github.com/gocrud/engine/logging"
)

// LoadOptions 配置装配选项
type LoadOptions struct {
	Watch    bool
	Debounce time.Duration
}

// LoadOption 配置装配选项函数
type LoadOption func(*LoadOptions)

// WithWatch 启用配置文件热重载
func WithWatch() LoadOption {
	return func(o *LoadOptions) {
		o.Watch = true
	}
}

// WithDebounce 设置文件变更的去抖窗口
func WithDebounce(d time.Duration) LoadOption {
	return func(o *LoadOptions) {
		o.Debounce = d
	}
}

// New 构建配置并注册到运行时。configure 回调里向 builder 添加配置源。
// 启用 WithWatch 后，文件源的变更会经主线程派发整体重载；
// 重载失败时保留旧配置并记录错误。
func New(configure func(*ConfigurationBuilder), opts ...LoadOption) core.Option {
	return func(rt *core.Runtime) error {
		options := &LoadOptions{Debounce: time.Second}
		for _, opt := range opts {
			opt(options)
		}

		builder := NewConfigurationBuilder()
		configure(builder)

		cfg, err := builder.BuildReloadable()
		if err != nil {
			return err
		}

		if err := di.Bind[Configuration](rt.Factory, cfg); err != nil {
			return err
		}
		rt.Features.Set(cfg)

		if !options.Watch {
			return nil
		}

		paths := cfg.WatchPaths()
		if len(paths) == 0 {
			return nil
		}

		watcher, err := NewWatcher(paths, options.Debounce, func() {
			rt.Dispatcher.InvokeAsync(func() {
				if err := cfg.Reload(); err != nil {
					rt.Logger.Error("configuration reload failed",
						logging.Field{Key: "error", Value: err.Error()})
					return
				}
				rt.Logger.Info("configuration reloaded",
					logging.Field{Key: "paths", Value: paths})
			})
		})
		if err != nil {
			return err
		}

		watcher.SetErrorHandler(func(err error) {
			rt.Logger.Warn("configuration watch error",
				logging.Field{Key: "error", Value: err.Error()})
		})

		if err := watcher.Start(); err != nil {
			watcher.Close()
			return err
		}

		rt.OnTeardown(func() {
			watcher.Close()
		})

		return nil
	}
}

// Bind 返回把配置节绑定为 *T 单例的运行时选项，
// 构造函数随后可以用 *T 参数直接拿到强类型配置。
// 必须排在 New 之后应用
func Bind[T any](section string) core.Option {
	return func(rt *core.Runtime) error {
		cfg, err := di.Resolve[Configuration](rt.Factory)
		if err != nil {
			return fmt.Errorf("config: Bind requires New to be applied first: %w", err)
		}

		settings := new(T)
		if err := cfg.Bind(section, settings); err != nil {
			return fmt.Errorf("config: failed to bind section '%s': %w", section, err)
		}

		return di.Bind[*T](rt.Factory, settings)
	}
}
