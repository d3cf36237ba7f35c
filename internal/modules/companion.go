// ABOUTME: load-module-per-hardware-sink module type
// ABOUTME: Runs a companion manager for the lifetime of the module
package modules

import (
	"log"

	"github.com/Resonate-Protocol/resonate-router/internal/companion"
	"github.com/Resonate-Protocol/resonate-router/internal/router"
)

const CompanionName = "load-module-per-hardware-sink"

// Companion wraps companion.Manager as a loadable module
type Companion struct {
	Logger *log.Logger
	Debug  bool
}

func (Companion) Description() string {
	return "Load a module for every hardware sink"
}

func (Companion) Usage() string { return companion.Usage }

// Init hands the module context to the manager, so its hook slots are
// released with the module even if Done is never reached
func (c Companion) Init(m *router.ModuleContext) (router.ModuleInstance, error) {
	mgr, err := companion.Init(m, m.Argument(), companion.Options{Logger: c.Logger, Debug: c.Debug})
	if err != nil {
		return nil, err
	}
	return mgr, nil
}
