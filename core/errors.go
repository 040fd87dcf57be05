package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrRegistrySealed 实例化开始后注册表不再接受新声明
var ErrRegistrySealed = errors.New("core: singleton registry is sealed after instantiation")

// DuplicateRegistrationError 同一抽象类型被声明了两次
type DuplicateRegistrationError struct {
	Abstract reflect.Type
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("core: singleton %v is already registered", e.Abstract)
}

// MultipleDeclarationsError 同一具体类型出现在多条声明中
type MultipleDeclarationsError struct {
	Concrete reflect.Type
}

func (e *MultipleDeclarationsError) Error() string {
	return fmt.Sprintf("core: concrete type %v is declared by more than one descriptor", e.Concrete)
}

// CircularDependencyError 声明之间的构造依赖成环
type CircularDependencyError struct {
	Cycle []reflect.Type
}

func (e *CircularDependencyError) Error() string {
	names := make([]string, 0, len(e.Cycle))
	for _, t := range e.Cycle {
		names = append(names, t.String())
	}
	return fmt.Sprintf("core: circular dependency: %s", strings.Join(names, " -> "))
}

// ConstructionError 单例构造失败，携带抽象与具体类型
type ConstructionError struct {
	Abstract reflect.Type
	Concrete reflect.Type
	Err      error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("core: failed to construct singleton %v (concrete %v): %v", e.Abstract, e.Concrete, e.Err)
}

func (e *ConstructionError) Unwrap() error {
	return e.Err
}
