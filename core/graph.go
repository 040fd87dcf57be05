package core

import (
	"reflect"
)

// checkCycles 对整张声明表做构造期依赖的环检测。
// 只负责检测并命名环路，构造顺序本身仍遵循注册顺序。
// 基于 DFS 与递归栈的拓扑检查。
func checkCycles(descriptors []*Descriptor) error {
	byAbstract := make(map[reflect.Type]*Descriptor, len(descriptors))
	for _, d := range descriptors {
		byAbstract[d.Abstract] = d
	}

	edges := make(map[reflect.Type][]reflect.Type, len(descriptors))
	for _, d := range descriptors {
		edges[d.Abstract] = dependenciesOf(d, byAbstract)
	}

	visited := make(map[reflect.Type]bool)
	inStack := make(map[reflect.Type]bool)
	var path []reflect.Type

	var visit func(u reflect.Type) error
	visit = func(u reflect.Type) error {
		visited[u] = true
		inStack[u] = true
		path = append(path, u)

		for _, v := range edges[u] {
			if !visited[v] {
				if err := visit(v); err != nil {
					return err
				}
			} else if inStack[v] {
				return &CircularDependencyError{Cycle: cycleFrom(path, v)}
			}
		}

		inStack[u] = false
		path = path[:len(path)-1]
		return nil
	}

	for _, d := range descriptors {
		if !visited[d.Abstract] {
			if err := visit(d.Abstract); err != nil {
				return err
			}
		}
	}
	return nil
}

// dependenciesOf 收集一条声明在构造期会解析的已注册抽象类型：
// 构造函数参数，加上具体结构体中要求注入的 di 字段。
// 未注册的类型（工厂静态绑定、运行期缺失）不进图；
// 可选字段不参与环检测。
func dependenciesOf(d *Descriptor, byAbstract map[reflect.Type]*Descriptor) []reflect.Type {
	var deps []reflect.Type
	seen := make(map[reflect.Type]bool)

	add := func(t reflect.Type) {
		if _, registered := byAbstract[t]; registered && !seen[t] {
			seen[t] = true
			deps = append(deps, t)
		}
	}

	if d.Construct != nil {
		if fn := reflect.TypeOf(d.Construct); fn.Kind() == reflect.Func {
			for i := 0; i < fn.NumIn(); i++ {
				add(fn.In(i))
			}
		}
	}

	structType := d.Concrete
	if structType.Kind() == reflect.Ptr {
		structType = structType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return deps
	}
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		tag, hasTag := field.Tag.Lookup("di")
		if !hasTag || tag == "optional" {
			continue
		}
		add(field.Type)
	}
	return deps
}

// cycleFrom 从当前访问路径截取以 v 起始的环，并闭合回 v
func cycleFrom(path []reflect.Type, v reflect.Type) []reflect.Type {
	start := 0
	for i, t := range path {
		if t == v {
			start = i
			break
		}
	}
	cycle := make([]reflect.Type, 0, len(path)-start+1)
	cycle = append(cycle, path[start:]...)
	cycle = append(cycle, v)
	return cycle
}
