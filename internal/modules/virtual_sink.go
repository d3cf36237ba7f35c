// ABOUTME: virtual-sink module type
// ABOUTME: Forwards audio to a master sink with optional gain
package modules

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/resonate-router/internal/router"
	"github.com/Resonate-Protocol/resonate-router/pkg/audio"
	"github.com/Resonate-Protocol/resonate-router/pkg/host"
	"github.com/Resonate-Protocol/resonate-router/pkg/modargs"
)

const VirtualSinkName = "virtual-sink"

// ErrMasterRequired is returned when a filter module has no sink_master
var ErrMasterRequired = errors.New("sink_master is required")

// VirtualSink creates a filter sink on top of a master
type VirtualSink struct{}

func (VirtualSink) Description() string { return "Virtual sink forwarding to a master with gain" }
func (VirtualSink) Usage() string {
	return "sink_name=<name of sink> sink_master=<sink to forward to> gain=<gain in dB>"
}

func (VirtualSink) Init(m *router.ModuleContext) (router.ModuleInstance, error) {
	args, err := modargs.Parse(m.Argument(), []string{"sink_name", "sink_master", "gain"})
	if err != nil {
		return nil, fmt.Errorf("failed to parse module arguments: %w", err)
	}

	master := args.Get("sink_master", "")
	if master == "" {
		return nil, ErrMasterRequired
	}

	gain, err := args.GetFloat("gain", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid gain: %w", err)
	}

	props := host.Proplist{}
	props.Setf("device.description", "Virtual sink on %s", master)
	props.Setf("filter.gain_db", "%g", gain)

	if _, err := m.AddSink(router.SinkConfig{
		Name:      args.Get("sink_name", master+".virtual"),
		Master:    master,
		Processor: &gainProcessor{multiplier: audio.DBToLinear(gain)},
		Proplist:  props,
	}); err != nil {
		return nil, err
	}
	return instance{}, nil
}

type gainProcessor struct {
	multiplier float64
}

func (g *gainProcessor) Process(samples []int32) []int32 {
	out := append([]int32(nil), samples...)
	audio.ApplyGain(out, g.multiplier)
	return out
}
