// ABOUTME: Built-in module types for the router
// ABOUTME: Registers null, virtual, resampling and companion manager modules
package modules

import (
	"log"

	"github.com/Resonate-Protocol/resonate-router/internal/router"
)

// Options are shared by the built-in module types
type Options struct {
	Logger *log.Logger
	Debug  bool
}

// Register makes every built-in module type loadable on core
func Register(core *router.Core, opts Options) {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	core.RegisterModuleType(NullSinkName, NullSink{})
	core.RegisterModuleType(VirtualSinkName, VirtualSink{})
	core.RegisterModuleType(ResampleSinkName, ResampleSink{})
	core.RegisterModuleType(CompanionName, Companion{Logger: opts.Logger, Debug: opts.Debug})
}

// instance is returned by module types that keep no state beyond their sinks
type instance struct{}

func (instance) Done() {}
