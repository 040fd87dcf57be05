package core

import (
	"context"
	"fmt"
	"reflect"
	"runtime"

	"github.com/gocrud/engine/di"
	"github.com/gocrud/engine/hosting"
	"github.com/gocrud/engine/logging"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// record 注册表中的一条单例记录
type record struct {
	descriptor *Descriptor
	state      State
	instance   any
	service    hosting.Service
}

// DescriptorStatus 诊断用的只读记录视图
type DescriptorStatus struct {
	Abstract string `json:"abstract"`
	Concrete string `json:"concrete"`
	Strategy string `json:"strategy"`
	State    string `json:"state"`
}

// SingletonManager 单例注册与生命周期管理器。
// 每条记录的状态机：Registered → Skipped | Pending → Instantiated →
// Started → ShutDown。除 Register 外的操作都只在主线程调用。
type SingletonManager struct {
	factory *di.Factory
	logger  logging.Logger
	host    func() *hosting.Host

	records      []*record
	byAbstract   map[reflect.Type]*record
	byConcrete   map[reflect.Type]*record
	order        []*record
	constructing map[reflect.Type]bool
	chain        []reflect.Type
	sealed       bool
	started      bool
}

// NewSingletonManager 创建单例管理器。
// host 延迟求值：锚点只在出现托管声明时才需要存在。
func NewSingletonManager(factory *di.Factory, logger logging.Logger, host func() *hosting.Host) *SingletonManager {
	return &SingletonManager{
		factory:      factory,
		logger:       logger,
		host:         host,
		byAbstract:   make(map[reflect.Type]*record),
		byConcrete:   make(map[reflect.Type]*record),
		constructing: make(map[reflect.Type]bool),
	}
}

// SetLogger 替换管理器的日志记录器
func (m *SingletonManager) SetLogger(logger logging.Logger) {
	m.logger = logger
}

// Register 登记一条单例声明。
// 抽象类型重复注册与具体类型重复声明都是错误；
// 实例化开始后注册表封闭，不再接受新声明。
func (m *SingletonManager) Register(d *Descriptor) error {
	if m.sealed {
		return ErrRegistrySealed
	}
	if d == nil || d.Abstract == nil {
		return fmt.Errorf("core: descriptor must name an abstract type")
	}
	if err := validateDescriptor(d); err != nil {
		return err
	}
	if _, exists := m.byAbstract[d.Abstract]; exists {
		return &DuplicateRegistrationError{Abstract: d.Abstract}
	}
	if _, exists := m.byConcrete[d.Concrete]; exists {
		return &MultipleDeclarationsError{Concrete: d.Concrete}
	}

	rec := &record{descriptor: d, state: StateRegistered}
	m.records = append(m.records, rec)
	m.byAbstract[d.Abstract] = rec
	m.byConcrete[d.Concrete] = rec
	return nil
}

func validateDescriptor(d *Descriptor) error {
	if d.Strategy == StrategyHosted {
		if d.Construct != nil {
			return fmt.Errorf("core: hosted singleton %v cannot declare a constructor", d.Abstract)
		}
		structType := d.Concrete
		if structType.Kind() == reflect.Ptr {
			structType = structType.Elem()
		}
		if structType.Kind() != reflect.Struct {
			return fmt.Errorf("core: hosted singleton %v must be a struct type", d.Abstract)
		}
		return nil
	}

	if d.Construct == nil {
		if d.Abstract.Kind() != reflect.Ptr || d.Abstract.Elem().Kind() != reflect.Struct {
			return fmt.Errorf("core: singleton %v needs a constructor: only pointer-to-struct types can be built from their zero value", d.Abstract)
		}
		return nil
	}

	fn := reflect.TypeOf(d.Construct)
	if fn.Kind() != reflect.Func {
		return fmt.Errorf("core: constructor for %v must be a function, got %v", d.Abstract, fn)
	}
	if fn.NumOut() < 1 || fn.NumOut() > 2 {
		return fmt.Errorf("core: constructor for %v must return the instance and an optional error", d.Abstract)
	}
	if !fn.Out(0).AssignableTo(d.Abstract) {
		return fmt.Errorf("core: constructor return %v is not assignable to %v", fn.Out(0), d.Abstract)
	}
	if fn.NumOut() == 2 && !fn.Out(1).Implements(errType) {
		return fmt.Errorf("core: constructor for %v must return error as its second value", d.Abstract)
	}
	return nil
}

// InstantiateSingletons 封闭注册表并按注册顺序实例化。
// 先对整张声明表做环检测，任何构造开始之前就拒绝环路；
// Eager 立即构造，Lazy 留待首次解析，Hosted 立即挂载到锚点。
// 任何一条失败都使整个调用失败，调用方应视为致命错误。
func (m *SingletonManager) InstantiateSingletons() error {
	m.sealed = true

	descriptors := make([]*Descriptor, 0, len(m.records))
	for _, rec := range m.records {
		descriptors = append(descriptors, rec.descriptor)
	}
	if err := checkCycles(descriptors); err != nil {
		return err
	}

	m.factory.AddDependencyProvider(m)

	// 标记阶段先行：平台不支持的记录落为 Skipped，
	// 惰性记录全部转入 Pending。这样无论注册位置先后，
	// 构造阶段解析到的惰性依赖都可以被强制构造。
	for _, rec := range m.records {
		d := rec.descriptor
		if !d.SupportedOn(runtime.GOOS) {
			rec.state = StateSkipped
			m.logger.Info(fmt.Sprintf("singleton %v skipped on %s", d.Abstract, runtime.GOOS),
				logging.Field{Key: "platforms", Value: d.Platforms})
			continue
		}
		if d.Strategy == StrategyLazy {
			rec.state = StatePending
		}
	}

	for _, rec := range m.records {
		if rec.state == StateSkipped {
			continue
		}
		switch rec.descriptor.Strategy {
		case StrategyEager:
			if err := m.construct(rec); err != nil {
				return err
			}
		case StrategyHosted:
			if err := m.attach(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// TryResolve 实现 di.DependencyProvider，把惰性单例暴露给解析。
// 静态绑定始终优先于本提供者，所以已构造完成的单例通常不会再走到这里。
// Pending 记录的首次解析触发构造（强制构造）；失败记录日志并报告未命中，
// 记录保持 Pending，后续解析可以重试。
func (m *SingletonManager) TryResolve(typ reflect.Type) (any, bool) {
	rec, ok := m.byAbstract[typ]
	if !ok {
		return nil, false
	}

	switch rec.state {
	case StateInstantiated, StateStarted:
		return rec.instance, true
	case StatePending:
		if err := m.construct(rec); err != nil {
			m.logger.Error(fmt.Sprintf("lazy singleton %v construction failed", typ),
				logging.Field{Key: "error", Value: err.Error()})
			return nil, false
		}
		return rec.instance, true
	default:
		return nil, false
	}
}

// construct 构造一条记录：构造函数经工厂调用（构造注入），
// 没有构造函数时取零值；随后补一轮字段注入，绑定进工厂，
// 并在完成时追加到实例化顺序（被强制构造的依赖因此排在依赖方之前）。
func (m *SingletonManager) construct(rec *record) error {
	d := rec.descriptor
	if rec.state == StateInstantiated || rec.state == StateStarted {
		return nil
	}

	// 静态图看不见的环（由提供者或接口构造引入）在这里兜底
	if m.constructing[d.Abstract] {
		cycle := append(append([]reflect.Type{}, m.chain...), d.Abstract)
		return &CircularDependencyError{Cycle: cycle}
	}
	m.constructing[d.Abstract] = true
	m.chain = append(m.chain, d.Abstract)
	defer func() {
		delete(m.constructing, d.Abstract)
		m.chain = m.chain[:len(m.chain)-1]
	}()

	rec.state = StatePending

	instance, err := m.build(d)
	if err != nil {
		return &ConstructionError{Abstract: d.Abstract, Concrete: d.Concrete, Err: err}
	}

	// 启动流程已经跑完时，迟来的惰性单例在可见之前补跑 Startup
	if m.started {
		if lc, ok := instance.(Lifecycle); ok {
			if err := lc.Startup(); err != nil {
				return &ConstructionError{Abstract: d.Abstract, Concrete: d.Concrete,
					Err: fmt.Errorf("startup: %w", err)}
			}
		}
	}

	if err := m.factory.Bind(d.Abstract, instance); err != nil {
		return &ConstructionError{Abstract: d.Abstract, Concrete: d.Concrete, Err: err}
	}

	rec.instance = instance
	rec.state = StateInstantiated
	m.order = append(m.order, rec)
	if m.started {
		rec.state = StateStarted
	}
	m.logger.Debug(fmt.Sprintf("singleton %v instantiated", d.Abstract))
	return nil
}

func (m *SingletonManager) build(d *Descriptor) (any, error) {
	var instance any
	if d.Construct != nil {
		out, err := m.factory.Call(d.Construct)
		if err != nil {
			return nil, err
		}
		instance = out
	} else {
		instance = reflect.New(d.Abstract.Elem()).Interface()
	}

	// 指针结构体再补一轮字段注入，填充属性风格的依赖
	val := reflect.ValueOf(instance)
	if val.Kind() == reflect.Ptr && !val.IsNil() && val.Elem().Kind() == reflect.Struct {
		if err := m.factory.InjectDependencies(instance); err != nil {
			return nil, err
		}
	}
	return instance, nil
}

// attach 把托管声明挂载到锚点：零值构造、字段注入、绑定进工厂
func (m *SingletonManager) attach(rec *record) error {
	d := rec.descriptor
	rec.state = StatePending

	svc, err := m.host().Attach(d.Concrete)
	if err != nil {
		return &ConstructionError{Abstract: d.Abstract, Concrete: d.Concrete, Err: err}
	}
	if err := m.factory.Bind(d.Abstract, svc); err != nil {
		return &ConstructionError{Abstract: d.Abstract, Concrete: d.Concrete, Err: err}
	}

	rec.instance = svc
	rec.service = svc
	rec.state = StateInstantiated
	m.order = append(m.order, rec)
	m.logger.Debug(fmt.Sprintf("singleton %v attached to %s", d.Abstract, m.host().Name()))
	return nil
}

// Startup 按实例化顺序启动。托管组件经锚点进入后台运行；
// 实现 Lifecycle 的普通单例同步调用 Startup。
// 首个错误即中止整个启动，不重试。
func (m *SingletonManager) Startup() error {
	for _, rec := range m.order {
		d := rec.descriptor
		if rec.service != nil {
			m.host().Launch(rec.service)
			rec.state = StateStarted
			continue
		}
		if lc, ok := rec.instance.(Lifecycle); ok {
			if err := lc.Startup(); err != nil {
				return fmt.Errorf("core: startup of %v failed: %w", d.Abstract, err)
			}
		}
		rec.state = StateStarted
	}
	m.started = true
	return nil
}

// Shutdown 按实例化逆序关闭，尽力而为：
// 单条失败只记录日志，不阻断其余记录的关闭；
// 完成后实例从注册表中清除。
func (m *SingletonManager) Shutdown(ctx context.Context) {
	for i := len(m.order) - 1; i >= 0; i-- {
		rec := m.order[i]
		d := rec.descriptor

		if rec.service != nil {
			if err := m.host().Halt(ctx, rec.service); err != nil {
				m.logger.Error(fmt.Sprintf("shutdown of %v failed", d.Abstract),
					logging.Field{Key: "error", Value: err.Error()})
			}
		} else if lc, ok := rec.instance.(Lifecycle); ok {
			if err := lc.Shutdown(); err != nil {
				m.logger.Error(fmt.Sprintf("shutdown of %v failed", d.Abstract),
					logging.Field{Key: "error", Value: err.Error()})
			}
		}

		rec.instance = nil
		rec.service = nil
		rec.state = StateShutDown
	}
	m.started = false
}

// Snapshot 返回注册顺序下所有记录的状态视图
func (m *SingletonManager) Snapshot() []DescriptorStatus {
	out := make([]DescriptorStatus, 0, len(m.records))
	for _, rec := range m.records {
		d := rec.descriptor
		out = append(out, DescriptorStatus{
			Abstract: d.Abstract.String(),
			Concrete: d.Concrete.String(),
			Strategy: d.Strategy.String(),
			State:    rec.state.String(),
		})
	}
	return out
}

// InstantiationOrder 返回已完成构造的抽象类型序列
func (m *SingletonManager) InstantiationOrder() []reflect.Type {
	out := make([]reflect.Type, 0, len(m.order))
	for _, rec := range m.order {
		out = append(out, rec.descriptor.Abstract)
	}
	return out
}

// Instance 返回某个抽象类型当前持有的实例
func (m *SingletonManager) Instance(typ reflect.Type) (any, bool) {
	rec, ok := m.byAbstract[typ]
	if !ok || rec.instance == nil {
		return nil, false
	}
	return rec.instance, true
}
