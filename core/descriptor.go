package core

import (
	"reflect"
	"strings"
)

// Strategy 单例实例化策略
type Strategy int

const (
	// StrategyEager 引导阶段立即构造
	StrategyEager Strategy = iota
	// StrategyLazy 首次解析时构造
	StrategyLazy
	// StrategyHosted 挂载到宿主锚点，由锚点构造并在后台运行
	StrategyHosted
)

func (s Strategy) String() string {
	switch s {
	case StrategyEager:
		return "Eager"
	case StrategyLazy:
		return "Lazy"
	case StrategyHosted:
		return "Hosted"
	default:
		return "Unknown"
	}
}

// State 单例记录的生命周期状态
type State int

const (
	StateRegistered State = iota
	StateSkipped
	StatePending
	StateInstantiated
	StateStarted
	StateShutDown
)

func (s State) String() string {
	switch s {
	case StateRegistered:
		return "Registered"
	case StateSkipped:
		return "Skipped"
	case StatePending:
		return "Pending"
	case StateInstantiated:
		return "Instantiated"
	case StateStarted:
		return "Started"
	case StateShutDown:
		return "ShutDown"
	default:
		return "Unknown"
	}
}

// Descriptor 单例声明。Register 之后视为不可变。
type Descriptor struct {
	// Abstract 对外暴露的抽象类型（接口或具体类型）
	Abstract reflect.Type
	// Concrete 实际构造的具体类型
	Concrete reflect.Type
	// Strategy 实例化策略
	Strategy Strategy
	// Platforms 平台允许列表（runtime.GOOS 取值），空表示全部平台
	Platforms []string
	// Construct 构造函数；Hosted 声明不携带构造函数
	Construct any
}

// Eager 声明一个在引导阶段立即构造的单例。
// constructor 的第一个返回值决定具体类型，可附带 error 第二返回值；
// 传 nil 时按 T 自身以零值构造并注入字段。
func Eager[T any](constructor any) *Descriptor {
	return describe[T](StrategyEager, constructor)
}

// Lazy 声明一个首次解析时才构造的单例
func Lazy[T any](constructor any) *Descriptor {
	return describe[T](StrategyLazy, constructor)
}

// Hosted 声明一个挂载到宿主锚点的托管单例。
// T 是具体组件类型，必须实现 hosting.Service，由锚点以零值构造；
// 依赖只通过字段注入到达。platforms 为空表示所有平台。
func Hosted[T any](platforms ...string) *Descriptor {
	d := describe[T](StrategyHosted, nil)
	d.Platforms = platforms
	return d
}

// On 限定声明支持的平台，覆盖已有列表
func (d *Descriptor) On(platforms ...string) *Descriptor {
	d.Platforms = platforms
	return d
}

// SupportedOn 报告声明在给定平台上是否受支持
func (d *Descriptor) SupportedOn(os string) bool {
	if len(d.Platforms) == 0 {
		return true
	}
	for _, p := range d.Platforms {
		if strings.EqualFold(p, os) {
			return true
		}
	}
	return false
}

func describe[T any](strategy Strategy, constructor any) *Descriptor {
	d := &Descriptor{
		Abstract:  reflect.TypeOf((*T)(nil)).Elem(),
		Strategy:  strategy,
		Construct: constructor,
	}
	if constructor != nil {
		if t := reflect.TypeOf(constructor); t.Kind() == reflect.Func && t.NumOut() >= 1 {
			d.Concrete = t.Out(0)
		}
	}
	if d.Concrete == nil {
		d.Concrete = d.Abstract
	}
	return d
}
