package scenes

import (
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gocrud/engine/dispatch"
	"github.com/gocrud/engine/logging"
	"github.com/gocrud/engine/tasks"
)

// Options 场景装载器配置
type Options struct {
	// Dir 场景清单目录，清单文件名为 <scene>.yaml。默认 "scenes"
	Dir string
	// Timeout 单次操作时限，超时由帧泵置为失败。默认 30 秒
	Timeout time.Duration
}

// Loader 场景装载器。
// Load/Unload 返回异步操作句柄；清单 IO 在工作 goroutine 执行，
// 状态流转与完成回调一律经调度器回到主线程。
// 除构造之外的所有方法都只能在主线程调用
type Loader struct {
	logger     logging.Logger
	dispatcher dispatch.Dispatcher
	manager    *tasks.Manager
	dir        string
	timeout    time.Duration

	scenes   map[string]*Scene
	inflight map[string]*Operation
}

// NewLoader 创建场景装载器
func NewLoader(options Options, logger logging.Logger, dispatcher dispatch.Dispatcher, manager *tasks.Manager) *Loader {
	if options.Dir == "" {
		options.Dir = "scenes"
	}
	if options.Timeout <= 0 {
		options.Timeout = 30 * time.Second
	}

	return &Loader{
		logger:     logger.WithCategory("Scenes"),
		dispatcher: dispatcher,
		manager:    manager,
		dir:        options.Dir,
		timeout:    options.Timeout,
		scenes:     make(map[string]*Scene),
		inflight:   make(map[string]*Operation),
	}
}

// Startup 把装载器挂入帧循环，驱动超时检查
func (l *Loader) Startup() error {
	return l.manager.RegisterUpdatable(l)
}

// Shutdown 摘除帧循环注册并放弃仍在进行的操作。
// 被放弃的操作置为失败但不再触发回调
func (l *Loader) Shutdown() error {
	l.manager.UnregisterUpdatable(l)

	if len(l.inflight) > 0 {
		l.logger.Warn("abandoning in-flight scene operations",
			logging.Field{Key: "count", Value: len(l.inflight)})
	}
	for name, op := range l.inflight {
		delete(l.inflight, name)
		op.State = StateFailed
		op.Err = ErrLoaderClosed
	}

	return nil
}

// Load 异步装载场景。已装载或已有进行中操作时同步报错
func (l *Loader) Load(name string) (*Operation, error) {
	if _, ok := l.scenes[name]; ok {
		return nil, &AlreadyLoadedError{Scene: name}
	}
	if _, ok := l.inflight[name]; ok {
		return nil, &OperationInFlightError{Scene: name}
	}

	op := &Operation{
		ID:       uuid.New(),
		Scene:    name,
		Kind:     KindLoad,
		State:    StateLoading,
		deadline: time.Now().Add(l.timeout),
	}
	l.inflight[name] = op

	l.logger.Debug("scene load started",
		logging.Field{Key: "scene", Value: name},
		logging.Field{Key: "operation", Value: op.ID.String()})

	path := filepath.Join(l.dir, name+".yaml")
	go func() {
		scene, err := ReadManifest(path)
		l.dispatcher.InvokeAsync(func() {
			l.complete(op, scene, err)
		})
	}()

	return op, nil
}

// Unload 异步卸载场景。未装载或已有进行中操作时同步报错
func (l *Loader) Unload(name string) (*Operation, error) {
	if _, ok := l.inflight[name]; ok {
		return nil, &OperationInFlightError{Scene: name}
	}
	if _, ok := l.scenes[name]; !ok {
		return nil, &NotLoadedError{Scene: name}
	}

	op := &Operation{
		ID:       uuid.New(),
		Scene:    name,
		Kind:     KindUnload,
		State:    StateLoading,
		deadline: time.Now().Add(l.timeout),
	}
	l.inflight[name] = op

	l.logger.Debug("scene unload started",
		logging.Field{Key: "scene", Value: name},
		logging.Field{Key: "operation", Value: op.ID.String()})

	// 卸载没有 IO，但仍走统一的异步完成路径
	l.dispatcher.InvokeAsync(func() {
		l.complete(op, nil, nil)
	})

	return op, nil
}

// complete 在主线程应用操作结果。超时抢先到达终态时结果作废
func (l *Loader) complete(op *Operation, scene *Scene, err error) {
	if op.State != StateLoading {
		return
	}
	delete(l.inflight, op.Scene)

	if err != nil {
		op.State = StateFailed
		op.Err = err
		l.logger.Error("scene operation failed",
			logging.Field{Key: "scene", Value: op.Scene},
			logging.Field{Key: "kind", Value: op.Kind.String()},
			logging.Field{Key: "error", Value: err.Error()})
	} else {
		switch op.Kind {
		case KindLoad:
			l.scenes[op.Scene] = scene
		case KindUnload:
			delete(l.scenes, op.Scene)
		}
		op.State = StateDone
		l.logger.Info("scene operation finished",
			logging.Field{Key: "scene", Value: op.Scene},
			logging.Field{Key: "kind", Value: op.Kind.String()})
	}

	if op.OnComplete != nil {
		op.OnComplete(op)
	}
}

// Update 帧泵：把超时的进行中操作置为失败
func (l *Loader) Update(dt time.Duration) {
	if len(l.inflight) == 0 {
		return
	}

	now := time.Now()
	for name, op := range l.inflight {
		if now.Before(op.deadline) {
			continue
		}
		delete(l.inflight, name)
		op.State = StateFailed
		op.Err = &TimeoutError{Scene: name, Kind: op.Kind, Timeout: l.timeout}
		l.logger.Error("scene operation timed out",
			logging.Field{Key: "scene", Value: name},
			logging.Field{Key: "kind", Value: op.Kind.String()})
		if op.OnComplete != nil {
			op.OnComplete(op)
		}
	}
}

// Scene 返回已装载的场景
func (l *Loader) Scene(name string) (*Scene, bool) {
	s, ok := l.scenes[name]
	return s, ok
}

// Loaded 返回已装载的场景名，字典序
func (l *Loader) Loaded() []string {
	names := make([]string, 0, len(l.scenes))
	for name := range l.scenes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Operations 返回进行中操作的快照
func (l *Loader) Operations() []*Operation {
	ops := make([]*Operation, 0, len(l.inflight))
	for _, op := range l.inflight {
		ops = append(ops, op)
	}
	return ops
}
