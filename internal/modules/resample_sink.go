// ABOUTME: resample-sink module type
// ABOUTME: Converts audio written at one rate to its master's rate
package modules

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-router/internal/router"
	"github.com/Resonate-Protocol/resonate-router/pkg/audio"
	"github.com/Resonate-Protocol/resonate-router/pkg/audio/resample"
	"github.com/Resonate-Protocol/resonate-router/pkg/host"
	"github.com/Resonate-Protocol/resonate-router/pkg/modargs"
)

const ResampleSinkName = "resample-sink"

// ResampleSink creates a filter sink that resamples to its master's rate
type ResampleSink struct{}

func (ResampleSink) Description() string { return "Virtual sink converting sample rates" }
func (ResampleSink) Usage() string {
	return "sink_name=<name of sink> sink_master=<sink to forward to> " +
		"rate=<input rate> master_rate=<output rate> channels=<channel count>"
}

func (ResampleSink) Init(m *router.ModuleContext) (router.ModuleInstance, error) {
	args, err := modargs.Parse(m.Argument(), []string{"sink_name", "sink_master", "rate", "master_rate", "channels"})
	if err != nil {
		return nil, fmt.Errorf("failed to parse module arguments: %w", err)
	}

	master := args.Get("sink_master", "")
	if master == "" {
		return nil, ErrMasterRequired
	}

	rate, err := args.GetUint32("rate", 44100)
	if err != nil {
		return nil, fmt.Errorf("invalid rate: %w", err)
	}
	masterRate, err := args.GetUint32("master_rate", audio.DefaultSampleRate)
	if err != nil {
		return nil, fmt.Errorf("invalid master_rate: %w", err)
	}
	channels, err := args.GetUint32("channels", audio.DefaultChannels)
	if err != nil {
		return nil, fmt.Errorf("invalid channels: %w", err)
	}
	if rate == 0 || masterRate == 0 || channels == 0 {
		return nil, fmt.Errorf("rate, master_rate and channels must be positive")
	}

	props := host.Proplist{}
	props.Setf("device.description", "Resampler %dHz to %dHz on %s", rate, masterRate, master)
	props.Setf("resample.rate", "%d", rate)
	props.Setf("resample.master_rate", "%d", masterRate)

	if _, err := m.AddSink(router.SinkConfig{
		Name:       args.Get("sink_name", master+".resampled"),
		Master:     master,
		Processor:  resample.New(int(rate), int(masterRate), int(channels)),
		SampleRate: int(rate),
		Channels:   int(channels),
		Proplist:   props,
	}); err != nil {
		return nil, err
	}
	return instance{}, nil
}
