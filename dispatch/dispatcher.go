package dispatch

import (
	"sync"

	"github.com/gocrud/engine/logging"
)

// Dispatcher 跨线程向主线程投递动作的接口。
// 后台线程（文件监听回调、定时任务、网络 IO）通过它把工作汇入主线程。
type Dispatcher interface {
	// InvokeAsync 入队一个动作并立即返回，可从任意 goroutine 调用。
	// 动作一经入队必定会被执行（除非进程先退出），没有取消机制。
	InvokeAsync(fn func())
}

// MainThread 主线程调度器。
// 内部队列是整个引擎唯一的跨线程交接点，由互斥锁保护；
// ExecutePending 只能由主线程在每帧调用。
type MainThread struct {
	mu     sync.Mutex
	queue  []func()
	logger logging.Logger
}

// NewMainThread 创建主线程调度器。
func NewMainThread(logger logging.Logger) *MainThread {
	return &MainThread{logger: logger}
}

// InvokeAsync 在锁内入队并立即返回。
func (d *MainThread) InvokeAsync(fn func()) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	d.queue = append(d.queue, fn)
	d.mu.Unlock()
}

// ExecutePending 按入队顺序执行所有排队动作，直到队列为空。
// 动作内再次 InvokeAsync 的动作会在同一次调用内执行（循环取批次）。
// 动作 panic 被捕获并记录，不会中断本次排空，也不会向帧循环传播。
func (d *MainThread) ExecutePending() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		batch := d.queue
		d.queue = nil
		d.mu.Unlock()

		for _, fn := range batch {
			d.run(fn)
		}
	}
}

func (d *MainThread) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if d.logger != nil {
				d.logger.Error("dispatched action panicked",
					logging.Field{Key: "panic", Value: r})
			}
		}
	}()
	fn()
}

// Pending 返回当前排队的动作数。
func (d *MainThread) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// SetLogger 替换 panic 日志的记录器，只能在主线程调用。
func (d *MainThread) SetLogger(logger logging.Logger) {
	d.logger = logger
}
