package core

import (
	"reflect"
	"sync"
)

// FeatureCollection 类型安全的特性集合，
// 存放构建期产物（诊断服务器句柄、监听地址等）供外部发现
type FeatureCollection struct {
	features sync.Map
}

// Set 注册一个特性
func (fc *FeatureCollection) Set(feature any) {
	typ := reflect.TypeOf(feature)
	fc.features.Store(typ, feature)
}

// Get 获取一个特性
func (fc *FeatureCollection) Get(typ reflect.Type) (any, bool) {
	return fc.features.Load(typ)
}

// GetFeature 泛型辅助函数，从 Runtime 获取特性。
// T 为接口时 reflect.TypeOf 的零值会得到 nil，
// 因此这里用 (*T)(nil) 取目标类型。
func GetFeature[T any](rt *Runtime) T {
	var zero T

	targetType := reflect.TypeOf((*T)(nil)).Elem()

	if val, ok := rt.Features.Get(targetType); ok {
		return val.(T)
	}
	return zero
}
