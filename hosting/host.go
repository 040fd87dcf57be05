package hosting

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/gocrud/engine/logging"
)

// Injector 为挂载的组件填充依赖字段
type Injector interface {
	InjectDependencies(target any) error
}

// Host 托管组件的挂载锚点。
// 组件由 Host 以零值构造并注入依赖，不走构造函数；
// Launch 在独立 goroutine 中运行组件的 Start，出错时快速失败。
type Host struct {
	name      string
	injector  Injector
	logger    logging.Logger
	onFailure func(error)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	byKey map[reflect.Type]*attachment
	order []*attachment
}

// attachment 单个组件的挂载记录
type attachment struct {
	concrete reflect.Type
	svc      Service
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewHost 创建挂载锚点
func NewHost(name string, injector Injector, logger logging.Logger) *Host {
	ctx, cancel := context.WithCancel(context.Background())
	return &Host{
		name:     name,
		injector: injector,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		byKey:    make(map[reflect.Type]*attachment),
	}
}

// Name 返回锚点名称
func (h *Host) Name() string {
	return h.name
}

// SetFailureHandler 设置组件异常退出时的回调
func (h *Host) SetFailureHandler(fn func(error)) {
	h.onFailure = fn
}

// Attach 以零值构造 concrete 指向的结构体，注入依赖并挂载。
// concrete 可以是结构体类型或其指针类型；组件必须实现 Service。
func (h *Host) Attach(concrete reflect.Type) (Service, error) {
	if concrete == nil {
		return nil, &AttachmentError{Anchor: h.name, Reason: "concrete type is nil"}
	}

	structType := concrete
	if structType.Kind() == reflect.Ptr {
		structType = structType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return nil, &AttachmentError{Concrete: concrete, Anchor: h.name, Reason: "concrete type must be a struct"}
	}

	h.mu.Lock()
	if _, exists := h.byKey[structType]; exists {
		h.mu.Unlock()
		return nil, &AttachmentError{Concrete: concrete, Anchor: h.name, Reason: "already attached"}
	}
	h.mu.Unlock()

	instance := reflect.New(structType).Interface()
	svc, ok := instance.(Service)
	if !ok {
		return nil, &AttachmentError{Concrete: concrete, Anchor: h.name, Reason: "does not implement hosting.Service"}
	}

	if h.injector != nil {
		if err := h.injector.InjectDependencies(instance); err != nil {
			return nil, &AttachmentError{Concrete: concrete, Anchor: h.name, Reason: "dependency injection failed", Err: err}
		}
	}

	att := &attachment{concrete: structType, svc: svc}

	h.mu.Lock()
	h.byKey[structType] = att
	h.order = append(h.order, att)
	h.mu.Unlock()

	h.logger.Debug(fmt.Sprintf("component %v attached to %s", structType, h.name))
	return svc, nil
}

// Launch 在独立 goroutine 中运行组件的 Start。
// Start 返回非取消错误时记录日志并触发失败回调。
func (h *Host) Launch(svc Service) {
	att := h.find(svc)
	if att == nil || att.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(h.ctx)
	att.cancel = cancel
	att.done = make(chan struct{})

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer close(att.done)

		if err := svc.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			h.logger.Error(fmt.Sprintf("hosted component %v exited", att.concrete),
				logging.Field{Key: "error", Value: err.Error()})
			if h.onFailure != nil {
				h.onFailure(fmt.Errorf("hosted component %v exited: %w", att.concrete, err))
			}
		}
	}()
}

// Halt 停止单个组件：取消其上下文、调用 Stop 并等待 Start 返回。
// 等待时间受 ctx 约束。
func (h *Host) Halt(ctx context.Context, svc Service) error {
	att := h.find(svc)
	if att == nil {
		return nil
	}

	if att.cancel != nil {
		att.cancel()
	}

	err := svc.Stop(ctx)

	if att.done != nil {
		select {
		case <-att.done:
		case <-ctx.Done():
			if err == nil {
				err = ctx.Err()
			}
		}
	}
	return err
}

// Shutdown 取消所有组件上下文并等待全部 Start 返回，受 ctx 约束
func (h *Host) Shutdown(ctx context.Context) error {
	h.cancel()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Components 返回挂载顺序下的组件类型名
func (h *Host) Components() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	names := make([]string, 0, len(h.order))
	for _, att := range h.order {
		names = append(names, att.concrete.String())
	}
	return names
}

func (h *Host) find(svc Service) *attachment {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, att := range h.order {
		if att.svc == svc {
			return att
		}
	}
	return nil
}
