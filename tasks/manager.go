package tasks

import "time"

// Manager 帧阶段任务管理器。
// 维护四个互不相交的有序注册表，每帧由宿主泵按固定顺序派发回调。
// 注册表只在主线程读写，不加锁。
type Manager struct {
	updatables           registry[Updatable]
	lateUpdatables       registry[LateUpdatable]
	renderables          registry[Renderable]
	endOfFrameUpdatables registry[EndOfFrameUpdatable]

	shutdownVotes []func() bool
	shutdownHooks []func()
}

// NewManager 创建任务管理器。
func NewManager() *Manager {
	return &Manager{
		updatables:           newRegistry[Updatable](PhaseUpdate),
		lateUpdatables:       newRegistry[LateUpdatable](PhaseLateUpdate),
		renderables:          newRegistry[Renderable](PhaseRender),
		endOfFrameUpdatables: newRegistry[EndOfFrameUpdatable](PhaseEndOfFrame),
	}
}

// RegisterUpdatable 注册常规更新参与者。重复注册返回 DuplicateRegistrationError。
func (m *Manager) RegisterUpdatable(u Updatable) error {
	return m.updatables.add(u)
}

// UnregisterUpdatable 注销参与者；不存在时为空操作。
func (m *Manager) UnregisterUpdatable(u Updatable) {
	m.updatables.remove(u)
}

// RegisterLateUpdatable 注册延迟更新参与者。
func (m *Manager) RegisterLateUpdatable(u LateUpdatable) error {
	return m.lateUpdatables.add(u)
}

// UnregisterLateUpdatable 注销参与者；不存在时为空操作。
func (m *Manager) UnregisterLateUpdatable(u LateUpdatable) {
	m.lateUpdatables.remove(u)
}

// RegisterRenderable 注册渲染参与者。
func (m *Manager) RegisterRenderable(r Renderable) error {
	return m.renderables.add(r)
}

// UnregisterRenderable 注销参与者；不存在时为空操作。
func (m *Manager) UnregisterRenderable(r Renderable) {
	m.renderables.remove(r)
}

// RegisterEndOfFrameUpdatable 注册帧末参与者。
func (m *Manager) RegisterEndOfFrameUpdatable(u EndOfFrameUpdatable) error {
	return m.endOfFrameUpdatables.add(u)
}

// UnregisterEndOfFrameUpdatable 注销参与者；不存在时为空操作。
func (m *Manager) UnregisterEndOfFrameUpdatable(u EndOfFrameUpdatable) {
	m.endOfFrameUpdatables.remove(u)
}

// Update 向所有常规更新参与者派发回调。
// 遍历的是注册表快照：回调中增删参与者不会破坏或影响本轮派发。
func (m *Manager) Update(dt time.Duration) {
	for _, u := range m.updatables.snapshot() {
		u.Update(dt)
	}
}

// LateUpdate 向所有延迟更新参与者派发回调。
func (m *Manager) LateUpdate(dt time.Duration) {
	for _, u := range m.lateUpdatables.snapshot() {
		u.LateUpdate(dt)
	}
}

// Render 向所有渲染参与者派发回调。
func (m *Manager) Render() {
	for _, r := range m.renderables.snapshot() {
		r.Render()
	}
}

// EndOfFrame 向所有帧末参与者派发回调。
func (m *Manager) EndOfFrame() {
	for _, u := range m.endOfFrameUpdatables.snapshot() {
		u.EndOfFrame()
	}
}

// VoteShutdown 注册一张关闭投票。扩展点：协作式关闭。
func (m *Manager) VoteShutdown(fn func() bool) {
	if fn != nil {
		m.shutdownVotes = append(m.shutdownVotes, fn)
	}
}

// QueryShutdown 报告是否可以继续关闭流程。
// 没有投票者时恒为 true；否则所有投票者都同意才放行。
func (m *Manager) QueryShutdown() bool {
	for _, vote := range m.shutdownVotes {
		if !vote() {
			return false
		}
	}
	return true
}

// OnShutdown 注册关闭事件监听。
func (m *Manager) OnShutdown(fn func()) {
	if fn != nil {
		m.shutdownHooks = append(m.shutdownHooks, fn)
	}
}

// NotifyShutdown 向所有监听者广播关闭事件。
func (m *Manager) NotifyShutdown() {
	for _, hook := range m.shutdownHooks {
		hook()
	}
}

// Counts 各阶段当前注册数，供诊断使用。
func (m *Manager) Counts() map[Phase]int {
	return map[Phase]int{
		PhaseUpdate:     m.updatables.size(),
		PhaseLateUpdate: m.lateUpdatables.size(),
		PhaseRender:     m.renderables.size(),
		PhaseEndOfFrame: m.endOfFrameUpdatables.size(),
	}
}
