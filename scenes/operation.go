package scenes

import (
	"time"

	"github.com/google/uuid"
)

// State 操作状态。Idle → Loading → Done|Failed，单向流转
type State int

const (
	StateIdle State = iota
	StateLoading
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLoading:
		return "Loading"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Kind 操作类别
type Kind int

const (
	KindLoad Kind = iota
	KindUnload
)

func (k Kind) String() string {
	switch k {
	case KindLoad:
		return "Load"
	case KindUnload:
		return "Unload"
	default:
		return "Unknown"
	}
}

// Operation 一次异步装载/卸载操作的句柄。
// 状态只在主线程流转：完成结果一律经调度器回到主线程生效。
// OnComplete 需要在操作到达终态之前设置（通常在拿到句柄的同一帧内）
type Operation struct {
	ID         uuid.UUID
	Scene      string
	Kind       Kind
	State      State
	Err        error
	OnComplete func(*Operation)

	deadline time.Time
}

// Finished 报告操作是否已到达终态
func (op *Operation) Finished() bool {
	return op.State == StateDone || op.State == StateFailed
}
