package sysinfo

import (
	"context"
	"sync"
	"time"

	"github.com/gocrud/engine/hosting"
	"github.com/gocrud/engine/logging"
)

// MonitorOptions 内存监控配置
type MonitorOptions struct {
	// Interval 采样间隔
	Interval time.Duration
}

// Monitor 周期性采样内存与 goroutine 状态并写日志的托管组件。
// 以零值构造，依赖经字段注入到达。
type Monitor struct {
	Logger  logging.Logger  `di:""`
	Options *MonitorOptions `di:""`

	mu    sync.Mutex
	timed *hosting.TimedService
}

// Start 按间隔采样，直到 context 取消或 Stop 被调用
func (m *Monitor) Start(ctx context.Context) error {
	logger := m.Logger.WithCategory("SysInfo")

	timed := hosting.NewTimedService("memory-monitor", m.Options.Interval,
		func(ctx context.Context) error {
			sample := SampleMemory()
			logger.Debug("Memory sample",
				logging.Field{Key: "alloc", Value: sample.Alloc},
				logging.Field{Key: "sys", Value: sample.Sys},
				logging.Field{Key: "numGc", Value: sample.NumGC},
				logging.Field{Key: "goroutines", Value: sample.Goroutines})
			return nil
		}, logger)

	m.mu.Lock()
	m.timed = timed
	m.mu.Unlock()

	return timed.Start(ctx)
}

// Stop 停止采样并等待收尾
func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	timed := m.timed
	m.mu.Unlock()
	if timed == nil {
		return nil
	}
	return timed.Stop(ctx)
}
