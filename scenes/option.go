package scenes

import (
	"github.com/gocrud/engine/core"
	"github.com/gocrud/engine/dispatch"
	"github.com/gocrud/engine/logging"
	"github.com/gocrud/engine/tasks"
)

// New 把场景装载器注册为立即构造的单例
func New(options Options) core.Option {
	return func(rt *core.Runtime) error {
		return rt.Singletons.Register(core.Eager[*Loader](
			func(logger logging.Logger, dispatcher dispatch.Dispatcher, manager *tasks.Manager) *Loader {
				return NewLoader(options, logger, dispatcher, manager)
			}))
	}
}
