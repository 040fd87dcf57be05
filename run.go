package engine

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gocrud/engine/core"
)

// Run 以帧泵模式运行一个运行时
// 这是大多数程序的唯一入口
func Run(opts ...core.Option) error {
	rt := core.NewRuntime()

	// 1. 应用所有选项
	// 这一步会注册单例、挂载托管组件、调整运行时参数等
	if err := rt.Apply(opts...); err != nil {
		return err
	}

	// 2. 封闭注册表并实例化全部单例声明
	if err := rt.Bootstrap(); err != nil {
		return err
	}

	// 3. 启动生命周期
	// 启动失败时已启动的部分需要逆序回收
	if err := rt.Startup(); err != nil {
		rt.Teardown()
		return err
	}

	// 4. 帧循环，同时监听退出请求
	// 支持 OS 信号 (Ctrl+C, kill) 和运行时内部触发的退出 (rt.Shutdown)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	pump(rt, quit)

	// 5. 广播关闭事件，排空主线程队列，逆序清理
	rt.Tasks.NotifyShutdown()
	rt.Dispatcher.ExecutePending()
	rt.Teardown()
	return nil
}

// pump 驱动帧循环直到允许退出。
// 收到退出请求后进入排空阶段：继续泵帧，直到所有关闭投票放行。
// 排空期间再次收到 OS 信号则立即强制退出。
func pump(rt *core.Runtime, quit <-chan os.Signal) {
	ticker := time.NewTicker(time.Second / time.Duration(rt.FrameRate))
	defer ticker.Stop()

	done := rt.Done()
	last := time.Now()
	draining := false

	for {
		select {
		case <-quit:
			if draining {
				rt.Logger.Warn("Second exit signal received, forcing shutdown")
				return
			}
			draining = true
			rt.Shutdown()
			rt.Logger.Info("Exit signal received, draining frame loop")
		case <-done:
			// 关闭的通道会立即再次命中，置 nil 屏蔽后续轮次
			done = nil
			if !draining {
				draining = true
				rt.Logger.Info("Shutdown requested, draining frame loop")
			}
		case now := <-ticker.C:
			rt.Tick(now.Sub(last))
			last = now
			if draining && rt.Tasks.QueryShutdown() {
				return
			}
		}
	}
}
