package scenes

import (
	"errors"
	"fmt"
	"time"
)

// ErrLoaderClosed 装载器关闭时仍在进行的操作以此收尾
var ErrLoaderClosed = errors.New("scenes: loader closed")

// AlreadyLoadedError 重复装载已在册的场景
type AlreadyLoadedError struct {
	Scene string
}

func (e *AlreadyLoadedError) Error() string {
	return fmt.Sprintf("scenes: scene %q is already loaded", e.Scene)
}

// NotLoadedError 卸载未装载的场景
type NotLoadedError struct {
	Scene string
}

func (e *NotLoadedError) Error() string {
	return fmt.Sprintf("scenes: scene %q is not loaded", e.Scene)
}

// OperationInFlightError 同一场景已有进行中的操作
type OperationInFlightError struct {
	Scene string
}

func (e *OperationInFlightError) Error() string {
	return fmt.Sprintf("scenes: scene %q already has an operation in flight", e.Scene)
}

// TimeoutError 操作超出时限，由帧泵置为失败
type TimeoutError struct {
	Scene   string
	Kind    Kind
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("scenes: %s of scene %q timed out after %s", e.Kind, e.Scene, e.Timeout)
}
