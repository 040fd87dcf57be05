package di

import (
	"fmt"
	"reflect"
	"sync"
)

// DependencyProvider 是静态绑定表未命中时的后备解析器。
// 注册顺序即查询顺序，仅在静态绑定缺失时被询问。
type DependencyProvider interface {
	// TryResolve 尝试提供类型 typ 的实例。
	// 无法提供时返回 (nil, false)，由下一个提供者继续尝试。
	TryResolve(typ reflect.Type) (any, bool)
}

// binding 一条绑定记录：抽象类型到实例或工厂函数。
type binding struct {
	abstract reflect.Type
	value    any
	factory  any
	once     sync.Once
	instance any
	err      error
}

// Factory 依赖工厂。
// 持有抽象类型到实例（或工厂函数）的绑定表，向任意对象注入依赖，
// 并支持可插拔的依赖提供者链。
//
// 绑定表的读写只发生在主线程（调度模型是单线程协作式的），
// 因此不加锁；工厂函数的记忆化通过 sync.Once 完成。
type Factory struct {
	bindings  map[reflect.Type]*binding
	providers []DependencyProvider
}

// NewFactory 创建一个空的依赖工厂。
func NewFactory() *Factory {
	return &Factory{
		bindings: make(map[reflect.Type]*binding),
	}
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Bind 注册一条绑定。
// target 可以是已就绪的实例，也可以是工厂函数：
// 工厂的第一个返回值必须可赋值给 abstract，最后可以额外返回 error，
// 其余参数在首次解析时通过工厂自身解析。
// 重复绑定同一抽象类型返回 DuplicateBindingError。
func (f *Factory) Bind(abstract reflect.Type, target any) error {
	if abstract == nil {
		return fmt.Errorf("di: 绑定的抽象类型不能为 nil")
	}
	if target == nil {
		return fmt.Errorf("di: 绑定 %v 的目标不能为 nil", abstract)
	}

	if _, exists := f.bindings[abstract]; exists {
		return &DuplicateBindingError{Type: abstract}
	}

	targetType := reflect.TypeOf(target)

	if targetType.Kind() == reflect.Func {
		if err := validateFactoryFunc(abstract, targetType); err != nil {
			return err
		}
		f.bindings[abstract] = &binding{abstract: abstract, factory: target}
		return nil
	}

	if !targetType.AssignableTo(abstract) {
		return fmt.Errorf("di: %v 无法赋值给抽象类型 %v", targetType, abstract)
	}
	f.bindings[abstract] = &binding{abstract: abstract, value: target}
	return nil
}

// validateFactoryFunc 校验工厂函数签名：
// func(deps...) T 或 func(deps...) (T, error)，T 可赋值给 abstract。
func validateFactoryFunc(abstract, fnType reflect.Type) error {
	if fnType.NumOut() == 0 {
		return fmt.Errorf("di: 绑定 %v 的工厂函数必须至少有一个返回值", abstract)
	}
	if fnType.NumOut() > 2 {
		return fmt.Errorf("di: 绑定 %v 的工厂函数最多返回 (实例, error)", abstract)
	}
	if fnType.NumOut() == 2 && !fnType.Out(1).Implements(errorType) {
		return fmt.Errorf("di: 绑定 %v 的工厂函数第二个返回值必须是 error", abstract)
	}
	if !fnType.Out(0).AssignableTo(abstract) {
		return fmt.Errorf("di: 工厂返回值 %v 无法赋值给抽象类型 %v", fnType.Out(0), abstract)
	}
	return nil
}

// Bound 报告抽象类型是否已有静态绑定。
func (f *Factory) Bound(abstract reflect.Type) bool {
	_, ok := f.bindings[abstract]
	return ok
}

// Resolve 解析抽象类型的实例。
// 静态绑定始终优先；工厂绑定在首次解析时执行一次并缓存结果。
// 静态表未命中时按注册顺序询问依赖提供者。
// 都无法满足时返回 UnresolvedDependencyError。
func (f *Factory) Resolve(abstract reflect.Type) (any, error) {
	if b, ok := f.bindings[abstract]; ok {
		if b.factory == nil {
			return b.value, nil
		}
		b.once.Do(func() {
			b.instance, b.err = f.Call(b.factory)
		})
		if b.err != nil {
			return nil, b.err
		}
		return b.instance, nil
	}

	for _, p := range f.providers {
		if v, ok := p.TryResolve(abstract); ok {
			return v, nil
		}
	}

	return nil, &UnresolvedDependencyError{Type: abstract}
}

// InjectDependencies 扫描 target 上带有 `di` 标签的导出字段，
// 逐个解析字段声明的类型并赋值。
// target 必须是指向结构体的非 nil 指针。
// 标签为 `di:"optional"` 的字段解析失败时跳过；
// 其余失败以 InjectionError 报告失败字段与未解析类型。
func (f *Factory) InjectDependencies(target any) error {
	if target == nil {
		return fmt.Errorf("di: 注入目标不能为 nil")
	}

	val := reflect.ValueOf(target)
	if val.Kind() != reflect.Ptr || val.IsNil() || val.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("di: 注入目标必须是结构体指针, 实际为 %T", target)
	}

	structVal := val.Elem()
	structType := structVal.Type()

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		tag, hasTag := field.Tag.Lookup("di")
		if !hasTag {
			continue
		}
		optional := tag == "optional"

		if !structVal.Field(i).CanSet() {
			return &InjectionError{
				Target: structType,
				Field:  field.Name,
				Type:   field.Type,
				Err:    fmt.Errorf("字段未导出，无法设置"),
			}
		}

		dep, err := f.Resolve(field.Type)
		if err != nil {
			if optional {
				continue
			}
			return &InjectionError{
				Target: structType,
				Field:  field.Name,
				Type:   field.Type,
				Err:    err,
			}
		}

		structVal.Field(i).Set(reflect.ValueOf(dep))
	}

	return nil
}

// AddDependencyProvider 注册一个后备依赖提供者。
// 提供者按注册顺序被询问，且仅在静态绑定未命中之后。
func (f *Factory) AddDependencyProvider(p DependencyProvider) {
	f.providers = append(f.providers, p)
}

// Call 调用函数并通过工厂解析其全部参数。
// 这是构造函数注入的底层原语：返回第一个返回值（没有返回值时为 nil），
// 若最后一个返回值是非 nil 的 error 则调用失败。
func (f *Factory) Call(fn any) (any, error) {
	fnVal := reflect.ValueOf(fn)
	if fnVal.Kind() != reflect.Func {
		return nil, fmt.Errorf("di: Call 的目标必须是函数, 实际为 %T", fn)
	}

	fnType := fnVal.Type()
	args := make([]reflect.Value, fnType.NumIn())
	for i := 0; i < fnType.NumIn(); i++ {
		argType := fnType.In(i)
		argVal, err := f.Resolve(argType)
		if err != nil {
			return nil, fmt.Errorf("参数 %d (%v): %w", i, argType, err)
		}
		args[i] = reflect.ValueOf(argVal)
	}

	results := fnVal.Call(args)
	if len(results) == 0 {
		return nil, nil
	}

	last := results[len(results)-1]
	if last.Type().Implements(errorType) {
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
		// 唯一的返回值就是 error 时没有实例可言
		if len(results) == 1 {
			return nil, nil
		}
	}

	first := results[0]
	if first.Kind() == reflect.Ptr || first.Kind() == reflect.Interface {
		if first.IsNil() {
			return nil, fmt.Errorf("di: 函数返回了 nil 实例")
		}
	}
	return first.Interface(), nil
}
