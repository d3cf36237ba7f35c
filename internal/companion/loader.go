// ABOUTME: Companion module loading with sink-name substitution
// ABOUTME: Expands the argument template and asks the router to load the module
package companion

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Resonate-Protocol/resonate-router/pkg/host"
)

// Placeholder is replaced by the hardware sink's name in the argument template
const Placeholder = "%m"

// ErrLoadFailure is returned when the router rejects a companion load
var ErrLoadFailure = errors.New("companion: module load failed")

// ExpandArguments replaces every Placeholder in template with sinkName
func ExpandArguments(template, sinkName string) string {
	return strings.ReplaceAll(template, Placeholder, sinkName)
}

// loadModule loads the configured companion for a hardware sink. No
// association is written here.
func (m *Manager) loadModule(master host.Sink) (host.Module, error) {
	args := ExpandArguments(m.config.ModuleArgs, master.Name)

	mod, err := m.core.LoadModule(m.config.Module, args)
	if err != nil {
		m.logger.Printf("Failed to load module %q (argument: %q): %v", m.config.Module, args, err)
		return host.Module{}, fmt.Errorf("%w: %s for sink %s: %w", ErrLoadFailure, m.config.Module, master.Name, err)
	}

	return mod, nil
}
