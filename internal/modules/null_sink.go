// ABOUTME: null-sink module type
// ABOUTME: Creates a virtual sink that discards audio
package modules

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-router/internal/router"
	"github.com/Resonate-Protocol/resonate-router/pkg/host"
	"github.com/Resonate-Protocol/resonate-router/pkg/modargs"
)

const NullSinkName = "null-sink"

// NullSink creates a sink with no master and no backend
type NullSink struct{}

func (NullSink) Description() string { return "Clocked sink that discards audio" }
func (NullSink) Usage() string       { return "sink_name=<name of sink>" }

func (NullSink) Init(m *router.ModuleContext) (router.ModuleInstance, error) {
	args, err := modargs.Parse(m.Argument(), []string{"sink_name"})
	if err != nil {
		return nil, fmt.Errorf("failed to parse module arguments: %w", err)
	}

	props := host.Proplist{}
	props.Set("device.description", "Null Output")

	if _, err := m.AddSink(router.SinkConfig{
		Name:     args.Get("sink_name", "null"),
		Proplist: props,
	}); err != nil {
		return nil, err
	}
	return instance{}, nil
}
