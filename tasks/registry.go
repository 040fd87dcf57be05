package tasks

import "fmt"

// registry 单个阶段的有序参与者集合。
// 成员按标识判重（同一指针只能出现一次）；插入顺序即阶段内的回调顺序。
type registry[T comparable] struct {
	phase   Phase
	items   []T
	members map[T]struct{}
}

func newRegistry[T comparable](phase Phase) registry[T] {
	return registry[T]{
		phase:   phase,
		members: make(map[T]struct{}),
	}
}

func (r *registry[T]) add(item T) error {
	if _, exists := r.members[item]; exists {
		return &DuplicateRegistrationError{
			Participant: fmt.Sprintf("%T", item),
			Phase:       r.phase,
		}
	}
	r.members[item] = struct{}{}
	r.items = append(r.items, item)
	return nil
}

// remove 幂等：移除不存在的参与者是空操作。
func (r *registry[T]) remove(item T) {
	if _, exists := r.members[item]; !exists {
		return
	}
	delete(r.members, item)
	for i, it := range r.items {
		if it == item {
			r.items = append(r.items[:i], r.items[i+1:]...)
			break
		}
	}
}

// snapshot 返回当前成员的副本。
// 派发总是遍历快照，回调中的注册/注销不影响本轮遍历。
func (r *registry[T]) snapshot() []T {
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

func (r *registry[T]) size() int {
	return len(r.items)
}
