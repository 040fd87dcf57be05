package hosting

import (
	"fmt"
	"reflect"
)

// AttachmentError 组件挂载失败
type AttachmentError struct {
	Concrete reflect.Type
	Anchor   string
	Reason   string
	Err      error
}

func (e *AttachmentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("hosting: cannot attach %v to %s: %s: %v", e.Concrete, e.Anchor, e.Reason, e.Err)
	}
	return fmt.Sprintf("hosting: cannot attach %v to %s: %s", e.Concrete, e.Anchor, e.Reason)
}

func (e *AttachmentError) Unwrap() error {
	return e.Err
}
