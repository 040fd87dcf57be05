package sysinfo

import (
	"fmt"
	"time"

	"github.com/gocrud/engine/config"
	"github.com/gocrud/engine/core"
	"github.com/gocrud/engine/di"
)

// assembly 收集装配期的监控配置与平台限定
type assembly struct {
	interval  string
	platforms []string
}

// BuilderOption 覆盖配置节给出的监控选项
type BuilderOption func(*assembly)

// WithInterval 设置采样间隔
func WithInterval(d time.Duration) BuilderOption {
	return func(a *assembly) {
		a.interval = d.String()
	}
}

// OnPlatforms 限定监控运行的平台（runtime.GOOS 取值），
// 缺省在所有平台运行
func OnPlatforms(platforms ...string) BuilderOption {
	return func(a *assembly) {
		a.platforms = platforms
	}
}

// New 把内存监控注册为托管单例。
// 采样间隔读配置键 sysinfo:interval（time.ParseDuration 格式，缺省 30s），
// BuilderOption 在其上覆盖；非法间隔在装配阶段报错。
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		a := &assembly{interval: "30s"}

		if cfg, err := di.Resolve[config.Configuration](rt.Factory); err == nil {
			if v := cfg.Get("sysinfo:interval"); v != "" {
				a.interval = v
			}
		}
		for _, opt := range opts {
			opt(a)
		}

		interval, err := time.ParseDuration(a.interval)
		if err != nil {
			return fmt.Errorf("sysinfo: invalid interval '%s': %w", a.interval, err)
		}
		if interval <= 0 {
			return fmt.Errorf("sysinfo: interval must be positive, got %s", interval)
		}

		if err := di.Bind[*MonitorOptions](rt.Factory, &MonitorOptions{Interval: interval}); err != nil {
			return err
		}
		return rt.Singletons.Register(core.Hosted[*Monitor](a.platforms...))
	}
}
