package tasks

import "time"

// Phase 帧阶段。每一帧按固定顺序依次派发：
// Update → LateUpdate → Render → EndOfFrame。
type Phase int

const (
	PhaseUpdate Phase = iota
	PhaseLateUpdate
	PhaseRender
	PhaseEndOfFrame
)

func (p Phase) String() string {
	switch p {
	case PhaseUpdate:
		return "Update"
	case PhaseLateUpdate:
		return "LateUpdate"
	case PhaseRender:
		return "Render"
	case PhaseEndOfFrame:
		return "EndOfFrame"
	default:
		return "Unknown"
	}
}

// Updatable 常规更新阶段的参与者。
type Updatable interface {
	Update(dt time.Duration)
}

// LateUpdatable 延迟更新阶段的参与者，在所有 Update 之后执行。
type LateUpdatable interface {
	LateUpdate(dt time.Duration)
}

// Renderable 渲染阶段的参与者。
type Renderable interface {
	Render()
}

// EndOfFrameUpdatable 帧末阶段的参与者。
type EndOfFrameUpdatable interface {
	EndOfFrame()
}
