package cron

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gocrud/engine/dispatch"
	"github.com/gocrud/engine/logging"
)

// Job 一条定时任务定义。
// Handler 可以是 func()，也可以是参数由依赖工厂解析的任意函数
type Job struct {
	Spec    string
	Name    string
	Handler any
}

// Options 调度器配置
type Options struct {
	// Location 时区名称，默认 UTC
	Location string
	// EnableSeconds 启用秒级表达式（六段 cron 表达式）
	EnableSeconds bool
	// EnableCronLogger 启用 cron 库的内部调度日志
	EnableCronLogger bool
	// StopTimeout 关闭时等待运行中任务收尾的时限，默认 5 秒
	StopTimeout time.Duration
}

// Invoker 函数调用器：解析参数并执行。*di.Factory 满足该接口
type Invoker interface {
	Call(fn any) (any, error)
}

// Scheduler 定时任务调度器。
// 触发发生在 cron 的后台 goroutine，任务体一律经调度器投递回主线程，
// 与帧阶段回调共享同一时序模型
type Scheduler struct {
	cron       *cron.Cron
	logger     logging.Logger
	dispatcher dispatch.Dispatcher
	invoker    Invoker
	timeout    time.Duration

	mu      sync.RWMutex
	entries map[string]cron.EntryID
}

// NewScheduler 创建调度器并登记任务表。
// 表达式非法或任务名重复在这里立即报错，使装配失败而不是静默丢任务
func NewScheduler(options Options, jobs []Job, logger logging.Logger, dispatcher dispatch.Dispatcher, invoker Invoker) (*Scheduler, error) {
	logger = logger.WithCategory("Cron")

	if options.StopTimeout <= 0 {
		options.StopTimeout = 5 * time.Second
	}

	location := time.UTC
	if options.Location != "" {
		loc, err := time.LoadLocation(options.Location)
		if err != nil {
			return nil, fmt.Errorf("cron: unknown location %q: %w", options.Location, err)
		}
		location = loc
	}

	cronOpts := []cron.Option{cron.WithLocation(location)}
	if options.EnableCronLogger {
		cronOpts = append(cronOpts, cron.WithLogger(newCronLogger(logger)))
	}
	cronOpts = append(cronOpts, cron.WithChain(
		cron.Recover(newCronLogger(logger)),
	))
	if options.EnableSeconds {
		cronOpts = append(cronOpts, cron.WithSeconds())
	}

	s := &Scheduler{
		cron:       cron.New(cronOpts...),
		logger:     logger,
		dispatcher: dispatcher,
		invoker:    invoker,
		timeout:    options.StopTimeout,
		entries:    make(map[string]cron.EntryID),
	}

	for _, job := range jobs {
		if err := s.AddJob(job.Spec, job.Name, job.Handler); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// AddJob 登记定时任务。
// spec: cron 表达式，如 "0 */5 * * * *"（每 5 分钟，秒级启用时）；
// 触发时任务体投递到主线程执行
func (s *Scheduler) AddJob(spec, name string, handler any) error {
	run, err := s.wrap(name, handler)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("cron: job '%s' already registered", name)
	}

	entryID, err := s.cron.AddFunc(spec, func() {
		s.dispatcher.InvokeAsync(func() {
			s.logger.Info(fmt.Sprintf("Cron job '%s' started", name))
			defer s.logger.Info(fmt.Sprintf("Cron job '%s' completed", name))
			run()
		})
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job '%s': %w", name, err)
	}

	s.entries[name] = entryID
	s.logger.Info(fmt.Sprintf("Cron job '%s' registered with spec '%s'", name, spec))
	return nil
}

// wrap 把任务处理器统一为 func()。
// 普通 func() 直接使用；其余函数在触发时由调用器解析参数执行
func (s *Scheduler) wrap(name string, handler any) (func(), error) {
	switch h := handler.(type) {
	case nil:
		return nil, fmt.Errorf("cron: job '%s' has no handler", name)
	case func():
		return h, nil
	default:
		t := reflect.TypeOf(handler)
		if t.Kind() != reflect.Func {
			return nil, fmt.Errorf("cron: job '%s' handler must be a function, got %v", name, t.Kind())
		}
		if s.invoker == nil {
			return nil, fmt.Errorf("cron: job '%s' requires dependency resolution but no invoker is available", name)
		}
		return func() {
			if _, err := s.invoker.Call(handler); err != nil {
				s.logger.Error(fmt.Sprintf("Cron job '%s' failed", name),
					logging.Field{Key: "error", Value: err.Error()})
			}
		}, nil
	}
}

// RemoveJob 移除定时任务，不存在时为空操作
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, exists := s.entries[name]; exists {
		s.cron.Remove(entryID)
		delete(s.entries, name)
		s.logger.Info(fmt.Sprintf("Cron job '%s' removed", name))
	}
}

// Jobs 返回已登记的任务名，字典序
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Startup 启动 cron 运行器
func (s *Scheduler) Startup() error {
	s.mu.RLock()
	count := len(s.entries)
	s.mu.RUnlock()

	s.cron.Start()
	s.logger.Info(fmt.Sprintf("Cron scheduler started with %d jobs", count))
	return nil
}

// Shutdown 停止触发并等待运行中的任务收尾
func (s *Scheduler) Shutdown() error {
	stopCtx := s.cron.Stop()

	select {
	case <-stopCtx.Done():
		s.logger.Info("Cron scheduler stopped")
		return nil
	case <-time.After(s.timeout):
		return fmt.Errorf("cron: jobs still running after %s", s.timeout)
	}
}
