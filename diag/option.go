package diag

import (
	"fmt"

	"github.com/gocrud/engine/config"
	"github.com/gocrud/engine/core"
	"github.com/gocrud/engine/di"
)

// Options 诊断服务器配置，来自配置节 diag
type Options struct {
	// Port 监听端口，0 表示随机端口
	Port int `json:"port"`
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions() *Options {
	return &Options{Port: 6060}
}

// assembly 收集装配期的服务器配置与平台限定
type assembly struct {
	options   *Options
	platforms []string
}

// BuilderOption 覆盖配置节给出的诊断选项
type BuilderOption func(*assembly)

// WithPort 设置监听端口
func WithPort(port int) BuilderOption {
	return func(a *assembly) {
		a.options.Port = port
	}
}

// OnPlatforms 限定服务器运行的平台（runtime.GOOS 取值），
// 缺省在所有平台运行
func OnPlatforms(platforms ...string) BuilderOption {
	return func(a *assembly) {
		a.platforms = platforms
	}
}

// New 把诊断服务器注册为托管单例。
// 配置节 diag 先生效，BuilderOption 在其上覆盖。
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		a := &assembly{options: NewDefaultOptions()}

		if cfg, err := di.Resolve[config.Configuration](rt.Factory); err == nil && cfg.Get("diag") != "" {
			if err := cfg.Bind("diag", a.options); err != nil {
				return fmt.Errorf("diag: invalid configuration: %w", err)
			}
		}
		for _, opt := range opts {
			opt(a)
		}
		if a.options.Port < 0 || a.options.Port > 65535 {
			return fmt.Errorf("diag: invalid port %d", a.options.Port)
		}

		if err := di.Bind[*Options](rt.Factory, a.options); err != nil {
			return err
		}
		return rt.Singletons.Register(core.Hosted[*Server](a.platforms...))
	}
}
