package di

import (
	"fmt"
	"reflect"
)

// TypeOf 获取类型 T 的 reflect.Type（泛型辅助函数）
//
// 示例：
//
//	loggerType := di.TypeOf[logging.Logger]()
//	instance, _ := factory.Resolve(loggerType)
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Bind 将一个已就绪的实例绑定到抽象类型 T。
// T 通常是接口；instance 是它的具体实现。
func Bind[T any](f *Factory, instance T) error {
	return f.Bind(TypeOf[T](), instance)
}

// BindFactory 将一个工厂函数绑定到抽象类型 T。
// 工厂在首次解析时执行一次，结果被缓存（记忆化）。
func BindFactory[T any](f *Factory, fn any) error {
	return f.Bind(TypeOf[T](), fn)
}

// Resolve 从工厂解析类型 T 的实例。
func Resolve[T any](f *Factory) (T, error) {
	var zero T
	typ := TypeOf[T]()

	val, err := f.Resolve(typ)
	if err != nil {
		return zero, err
	}

	v, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("di: resolved value is %T, expected %v", val, typ)
	}
	return v, nil
}
