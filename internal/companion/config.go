// ABOUTME: Companion manager configuration parsed from a module argument string
// ABOUTME: Validates required keys and boolean switches
package companion

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/resonate-router/pkg/modargs"
)

// ErrConfig is returned when the manager's arguments are missing or malformed
var ErrConfig = errors.New("companion: invalid configuration")

// ValidArgs lists the argument keys the manager accepts
var ValidArgs = []string{
	"module",
	"module_args",
	"switch_on_connect",
	"steal_default",
}

// Usage documents the accepted arguments
const Usage = `module=<module to load for each hardware sink> ` +
	`module_args=<arguments to pass to the module, %m is replaced by the hardware sink name> ` +
	`switch_on_connect=<bool, make the new module's sink the default when it is created> ` +
	`steal_default=<bool, move the default from a hardware sink to its module's sink>`

// Config is immutable after the manager starts
type Config struct {
	// Module is the module type loaded for each hardware sink
	Module string

	// ModuleArgs is the argument template; every "%m" becomes the sink name
	ModuleArgs string

	// SwitchOnConnect makes the companion's own sink the default on creation
	SwitchOnConnect bool

	// StealDefault redirects the default from a hardware sink to its companion's sink
	StealDefault bool
}

// Validate checks the required fields
func (c Config) Validate() error {
	if c.Module == "" {
		return fmt.Errorf("%w: module is missing or empty", ErrConfig)
	}
	if c.ModuleArgs == "" {
		return fmt.Errorf("%w: module_args is missing or empty", ErrConfig)
	}
	return nil
}

// ParseConfig parses a module argument string such as
//
//	module=virtual-sink module_args="sink_name=%m.echo sink_master=%m" switch_on_connect=yes
func ParseConfig(argument string) (Config, error) {
	args, err := modargs.Parse(argument, ValidArgs)
	if err != nil {
		return Config{}, fmt.Errorf("%w: failed to parse module arguments: %w", ErrConfig, err)
	}

	cfg := Config{
		Module:     args.Get("module", ""),
		ModuleArgs: args.Get("module_args", ""),
	}

	if cfg.SwitchOnConnect, err = args.GetBool("switch_on_connect", false); err != nil {
		return Config{}, fmt.Errorf("%w: failed to get a boolean value for switch_on_connect: %w", ErrConfig, err)
	}
	if cfg.StealDefault, err = args.GetBool("steal_default", false); err != nil {
		return Config{}, fmt.Errorf("%w: failed to get a boolean value for steal_default: %w", ErrConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
