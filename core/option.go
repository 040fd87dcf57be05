package core

import (
	"fmt"

	"github.com/gocrud/engine/logging"
)

// Option 定义了修改 Runtime 状态的函数签名
// 这是框架唯一的扩展点
type Option func(rt *Runtime) error

// WithSingletons 注册一组单例声明。
// 声明分散在各业务包中，由各包导出自己的描述符表，
// 在组合根处统一交给本选项登记。
func WithSingletons(descriptors ...*Descriptor) Option {
	return func(rt *Runtime) error {
		for _, d := range descriptors {
			if err := rt.Singletons.Register(d); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithLogging 配置运行时日志工厂
func WithLogging(configure func(*logging.Builder)) Option {
	return func(rt *Runtime) error {
		builder := logging.NewBuilder()
		if configure != nil {
			configure(builder)
		}
		rt.SetLoggerFactory(builder.Build())
		return nil
	}
}

// WithErrorHandler 替换运行期错误处理函数
func WithErrorHandler(handler func(error)) Option {
	return func(rt *Runtime) error {
		if handler == nil {
			return fmt.Errorf("core: error handler cannot be nil")
		}
		rt.ErrorHandler = handler
		return nil
	}
}
