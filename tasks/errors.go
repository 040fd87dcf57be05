package tasks

import "fmt"

// DuplicateRegistrationError 同一参与者按标识在同一阶段重复注册时返回。
// 这是局部错误：只拒绝本次调用，不影响其他参与者。
type DuplicateRegistrationError struct {
	Participant string
	Phase       Phase
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("tasks: %s 已注册到 %s 阶段", e.Participant, e.Phase)
}
