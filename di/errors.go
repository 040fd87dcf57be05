package di

import (
	"fmt"
	"reflect"
)

// DuplicateBindingError 重复绑定同一抽象类型时返回。
// 绑定一经建立在进程生命周期内不可变，不支持重新绑定。
type DuplicateBindingError struct {
	Type reflect.Type
}

func (e *DuplicateBindingError) Error() string {
	return fmt.Sprintf("di: 类型 %v 已绑定，不允许重复绑定", e.Type)
}

// UnresolvedDependencyError 静态绑定表和所有依赖提供者都无法满足请求时返回。
type UnresolvedDependencyError struct {
	Type reflect.Type
}

func (e *UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("di: 无法解析依赖 %v", e.Type)
}

// InjectionError 字段注入失败时返回。
// 携带注入目标类型、失败的字段名以及该字段声明的依赖类型。
type InjectionError struct {
	Target reflect.Type
	Field  string
	Type   reflect.Type
	Err    error
}

func (e *InjectionError) Error() string {
	return fmt.Sprintf("di: 注入 %v 失败: 字段 %s (%v): %v", e.Target, e.Field, e.Type, e.Err)
}

func (e *InjectionError) Unwrap() error {
	return e.Err
}
