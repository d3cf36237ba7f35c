// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams PCM to the system device with software volume control
package output

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/Resonate-Protocol/resonate-router/pkg/audio"
	"github.com/ebitengine/oto/v3"
)

// oto allows one context per process; every Oto sink shares it and gets
// its own player
var (
	otoMu       sync.Mutex
	otoShared   *oto.Context
	otoRate     int
	otoChannels int
)

func sharedOtoContext(sampleRate, channels int) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoShared != nil {
		if otoRate != sampleRate || otoChannels != channels {
			log.Printf("Warning: audio device already opened at %dHz %dch, ignoring %dHz %dch",
				otoRate, otoChannels, sampleRate, channels)
		}
		return otoShared, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	otoShared = ctx
	otoRate = sampleRate
	otoChannels = channels
	log.Printf("Audio device initialized: %dHz, %d channels", sampleRate, channels)
	return ctx, nil
}

// Oto output implementation using oto library
type Oto struct {
	mu         sync.Mutex
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	volume     int
	muted      bool
	ready      bool
}

// NewOto creates a new Oto output
func NewOto() *Oto {
	return &Oto{volume: 100}
}

// Open starts a player on the shared device context
func (o *Oto) Open(sampleRate, channels int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ready {
		return nil
	}

	ctx, err := sharedOtoContext(sampleRate, channels)
	if err != nil {
		return err
	}

	// The player pulls from the pipe so Write blocks at device pace
	o.pipeReader, o.pipeWriter = io.Pipe()
	o.player = ctx.NewPlayer(o.pipeReader)
	o.player.Play()
	o.ready = true

	return nil
}

// Write outputs audio samples (blocks until written)
func (o *Oto) Write(samples []int32) error {
	o.mu.Lock()
	if !o.ready {
		o.mu.Unlock()
		return ErrNotOpen
	}
	w := o.pipeWriter
	scaled := applyVolume(samples, o.volume, o.muted)
	o.mu.Unlock()

	buf := make([]byte, len(scaled)*2)
	for i, s := range scaled {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(audio.SampleToInt16(s)))
	}

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}
	return nil
}

// Close stops the player. The shared device context stays alive for other sinks.
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pipeWriter != nil {
		o.pipeWriter.Close()
		o.pipeWriter = nil
	}
	if o.player != nil {
		if err := o.player.Close(); err != nil {
			log.Printf("Error closing audio player: %v", err)
		}
		o.player = nil
	}
	if o.pipeReader != nil {
		o.pipeReader.Close()
		o.pipeReader = nil
	}
	o.ready = false
	return nil
}

// SetVolume sets the volume (0-100)
func (o *Oto) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	o.mu.Lock()
	o.volume = volume
	o.mu.Unlock()
}

// SetMuted sets mute state
func (o *Oto) SetMuted(muted bool) {
	o.mu.Lock()
	o.muted = muted
	o.mu.Unlock()
}

// applyVolume applies volume and mute to samples with clipping protection
func applyVolume(samples []int32, volume int, muted bool) []int32 {
	result := append([]int32(nil), samples...)
	if muted {
		for i := range result {
			result[i] = 0
		}
		return result
	}
	audio.ApplyGain(result, float64(volume)/100.0)
	return result
}
