package engine

import (
	"fmt"
	"time"

	"github.com/gocrud/engine/core"
)

// Option 配置运行时的函数式选项，与 core.Option 同型
type Option = core.Option

// NewRuntime 创建一个空运行时
// 供外部宿主绕过 Run 自行驱动 Bootstrap/Startup/Tick/Teardown
func NewRuntime() *core.Runtime {
	return core.NewRuntime()
}

// WithFrameRate 设置帧泵的目标帧率
func WithFrameRate(fps int) core.Option {
	return func(rt *core.Runtime) error {
		if fps <= 0 {
			return fmt.Errorf("engine: invalid frame rate %d", fps)
		}
		rt.FrameRate = fps
		return nil
	}
}

// WithShutdownTimeout 设置优雅关闭的时间预算
func WithShutdownTimeout(d time.Duration) core.Option {
	return func(rt *core.Runtime) error {
		if d <= 0 {
			return fmt.Errorf("engine: invalid shutdown timeout %v", d)
		}
		rt.ShutdownTimeout = d
		return nil
	}
}
