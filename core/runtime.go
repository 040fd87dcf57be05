package core

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/gocrud/engine/di"
	"github.com/gocrud/engine/dispatch"
	"github.com/gocrud/engine/hosting"
	"github.com/gocrud/engine/logging"
	"github.com/gocrud/engine/tasks"
)

// Runtime 是框架的组合根，作为状态容器。
// 没有全局实例：进程入口构造一次，显式传递给需要它的代码。
type Runtime struct {
	// Features 存放构建时特性（诊断服务器、监听地址等）
	Features FeatureCollection

	// Factory 核心依赖工厂
	Factory *di.Factory

	// Singletons 单例生命周期管理器
	Singletons *SingletonManager

	// Tasks 帧阶段任务管理器
	Tasks *tasks.Manager

	// Dispatcher 主线程调度器
	Dispatcher *dispatch.MainThread

	// Logger 运行时日志记录器
	Logger logging.Logger

	// ErrorHandler 用于记录运行时产生的严重错误
	// 外部可以通过设置此字段来接管错误处理
	ErrorHandler func(err error)

	// FrameRate 帧泵目标帧率
	FrameRate int

	// ShutdownTimeout 优雅关闭的时间预算
	ShutdownTimeout time.Duration

	loggerFactory logging.LoggerFactory
	host          *hosting.Host
	teardownHooks []func()
	shutdownCh    chan struct{}
	bootstrapped  bool
}

// NewRuntime 创建一个新的运行时实例。
// 日志与调度器先于一切注册绑定进工厂，注册失败也有处可记。
func NewRuntime() *Runtime {
	rt := &Runtime{
		Factory:         di.NewFactory(),
		FrameRate:       60,
		ShutdownTimeout: 5 * time.Second,
		shutdownCh:      make(chan struct{}),
	}

	rt.loggerFactory = logging.NewBuilder().AddConsole().Build()
	rt.Logger = rt.loggerFactory.CreateLogger("Engine")
	rt.Dispatcher = dispatch.NewMainThread(rt.Logger)
	rt.Tasks = tasks.NewManager()
	rt.Singletons = NewSingletonManager(rt.Factory, rt.Logger, rt.Host)
	rt.ErrorHandler = func(err error) {
		rt.Logger.Error("runtime error", logging.Field{Key: "error", Value: err.Error()})
	}

	// 绑定为工厂闭包：首次解析发生在实例化阶段，
	// 日志选项因此仍可在解析前替换 Logger
	di.BindFactory[logging.Logger](rt.Factory, func() logging.Logger { return rt.Logger })
	di.BindFactory[logging.LoggerFactory](rt.Factory, func() logging.LoggerFactory { return rt.loggerFactory })
	di.BindFactory[dispatch.Dispatcher](rt.Factory, func() dispatch.Dispatcher { return rt.Dispatcher })
	di.BindFactory[*tasks.Manager](rt.Factory, func() *tasks.Manager { return rt.Tasks })
	di.BindFactory[*Runtime](rt.Factory, func() *Runtime { return rt })

	return rt
}

// Apply 应用多个 Option
func (rt *Runtime) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(rt); err != nil {
			return err
		}
	}
	return nil
}

// Provide 把一个现成实例按其具体类型绑定进工厂。
// 需要按接口绑定时使用 di.Bind[T]
func (rt *Runtime) Provide(instance any) error {
	if instance == nil {
		return fmt.Errorf("core: cannot provide nil instance")
	}
	return rt.Factory.Bind(reflect.TypeOf(instance), instance)
}

// SetLoggerFactory 替换运行时日志工厂并同步内建部件的记录器。
// 必须在 Bootstrap 之前调用。
func (rt *Runtime) SetLoggerFactory(f logging.LoggerFactory) {
	rt.loggerFactory = f
	rt.Logger = f.CreateLogger("Engine")
	rt.Dispatcher.SetLogger(rt.Logger)
	rt.Singletons.SetLogger(rt.Logger)
}

// LoggerFactory 返回当前的日志工厂
func (rt *Runtime) LoggerFactory() logging.LoggerFactory {
	return rt.loggerFactory
}

// Host 返回托管组件的挂载锚点，首次调用时创建。
// 组件异常退出触发 ErrorHandler 并请求进程退出（快速失败）。
func (rt *Runtime) Host() *hosting.Host {
	if rt.host == nil {
		rt.host = hosting.NewHost("engine.host", rt.Factory, rt.Logger)
		rt.host.SetFailureHandler(func(err error) {
			rt.ErrorHandler(err)
			rt.Shutdown()
		})
	}
	return rt.host
}

// Shutdown 请求应用退出
// 调用此方法会触发应用关闭流程
func (rt *Runtime) Shutdown() {
	select {
	case <-rt.shutdownCh:
		// 已经关闭，无需操作
	default:
		close(rt.shutdownCh)
	}
}

// Done 返回一个通道，当应用需要退出时该通道会关闭
func (rt *Runtime) Done() <-chan struct{} {
	return rt.shutdownCh
}

// OnTeardown 注册进程退出时的清理钩子，按注册逆序执行
func (rt *Runtime) OnTeardown(fn func()) {
	rt.teardownHooks = append(rt.teardownHooks, fn)
}

// Bootstrap 封闭注册表并实例化全部单例声明
func (rt *Runtime) Bootstrap() error {
	if rt.bootstrapped {
		return fmt.Errorf("core: runtime already bootstrapped")
	}
	rt.bootstrapped = true
	return rt.Singletons.InstantiateSingletons()
}

// Startup 按实例化顺序启动全部单例
func (rt *Runtime) Startup() error {
	return rt.Singletons.Startup()
}

// Teardown 逆序关闭单例，停掉锚点上的托管组件，
// 执行清理钩子并刷新日志。所有步骤尽力而为。
func (rt *Runtime) Teardown() {
	ctx, cancel := context.WithTimeout(context.Background(), rt.ShutdownTimeout)
	defer cancel()

	rt.Singletons.Shutdown(ctx)

	if rt.host != nil {
		if err := rt.host.Shutdown(ctx); err != nil {
			rt.Logger.Warn("host shutdown timed out",
				logging.Field{Key: "error", Value: err.Error()})
		}
	}

	for i := len(rt.teardownHooks) - 1; i >= 0; i-- {
		rt.teardownHooks[i]()
	}

	if err := rt.loggerFactory.Close(); err != nil {
		fmt.Printf("[Runtime Error] closing logger: %v\n", err)
	}
}

// Tick 驱动一帧：先排空调度队列，再按固定顺序分发四个帧阶段
func (rt *Runtime) Tick(dt time.Duration) {
	rt.Dispatcher.ExecutePending()
	rt.Tasks.Update(dt)
	rt.Tasks.LateUpdate(dt)
	rt.Tasks.Render()
	rt.Tasks.EndOfFrame()
}
