package cron

import (
	"time"

	"github.com/gocrud/engine/core"
	"github.com/gocrud/engine/dispatch"
	"github.com/gocrud/engine/logging"
)

// assembly 收集装配期的调度器配置与任务表
type assembly struct {
	options Options
	jobs    []Job
}

// BuilderOption 调度器装配选项
type BuilderOption func(*assembly)

// WithSeconds 启用秒级表达式
func WithSeconds() BuilderOption {
	return func(a *assembly) {
		a.options.EnableSeconds = true
	}
}

// WithLocation 设置时区
func WithLocation(location string) BuilderOption {
	return func(a *assembly) {
		a.options.Location = location
	}
}

// WithStopTimeout 设置关闭时等待任务收尾的时限
func WithStopTimeout(d time.Duration) BuilderOption {
	return func(a *assembly) {
		a.options.StopTimeout = d
	}
}

// EnableCronLogger 启用 cron 库的内部调度日志
func EnableCronLogger() BuilderOption {
	return func(a *assembly) {
		a.options.EnableCronLogger = true
	}
}

// WithJob 登记一条定时任务。
// handler 可以是 func()，也可以是参数自动从依赖工厂解析的任意函数：
//
//	cron.WithJob("0 */5 * * * *", "sync-data", func(store storage.Store, logger logging.Logger) {
//	    ...
//	})
func WithJob(spec, name string, handler any) BuilderOption {
	return func(a *assembly) {
		a.jobs = append(a.jobs, Job{Spec: spec, Name: name, Handler: handler})
	}
}

// New 把定时任务调度器注册为立即构造的单例。
// 表达式错误在引导阶段暴露并中止启动
func New(opts ...BuilderOption) core.Option {
	return func(rt *core.Runtime) error {
		a := &assembly{}
		for _, opt := range opts {
			opt(a)
		}

		return rt.Singletons.Register(core.Eager[*Scheduler](
			func(logger logging.Logger, dispatcher dispatch.Dispatcher) (*Scheduler, error) {
				return NewScheduler(a.options, a.jobs, logger, dispatcher, rt.Factory)
			}))
	}
}
