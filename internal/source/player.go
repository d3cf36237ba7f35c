// ABOUTME: Playback engine feeding a source into the router's default sink
// ABOUTME: Pulls fixed-size chunks on a ticker and plays them on the dispatch goroutine
package source

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-router/internal/router"
	"github.com/Resonate-Protocol/resonate-router/pkg/audio"
)

// ChunkDuration is the amount of audio played per tick
const ChunkDuration = 20 * time.Millisecond

// PlayerConfig holds playback engine configuration
type PlayerConfig struct {
	Debug  bool
	Logger *log.Logger
}

// Player streams a Source into the default sink
type Player struct {
	config PlayerConfig
	logger *log.Logger
	server *router.Server
	source Source
	chunk  []int32

	chunks   uint64
	stopChan chan struct{}
	stopOnce sync.Once

	// running and stopped are guarded by mu; done closes when Run returns
	mu      sync.Mutex
	running bool
	stopped bool
	done    chan struct{}
}

// NewPlayer creates a player. The source is resampled to the default rate.
func NewPlayer(server *router.Server, src Source, config PlayerConfig) *Player {
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}

	src = NewResampled(src, audio.DefaultSampleRate)
	format := audio.Format{SampleRate: src.SampleRate(), Channels: src.Channels()}

	return &Player{
		config:   config,
		logger:   logger,
		server:   server,
		source:   src,
		chunk:    make([]int32, format.Samples(ChunkDuration)),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run plays until Stop is called, ctx ends or the source is exhausted
func (p *Player) Run(ctx context.Context) {
	p.mu.Lock()
	if p.stopped || p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()
	defer close(p.done)

	title, artist, _ := p.source.Metadata()
	p.logger.Printf("Playback starting: %s - %s", title, artist)

	ticker := time.NewTicker(ChunkDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := p.playChunk(ctx); err != nil {
				if errors.Is(err, io.EOF) {
					p.logger.Printf("Playback finished")
				} else {
					p.logger.Printf("Playback stopped: %v", err)
				}
				return
			}
		case <-ctx.Done():
			return
		case <-p.stopChan:
			p.logger.Printf("Playback stopping")
			return
		}
	}
}

// Stop ends Run, waits for it to return and closes the source
func (p *Player) Stop() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		running := p.running
		p.mu.Unlock()

		close(p.stopChan)
		if running {
			<-p.done
		}

		if err := p.source.Close(); err != nil {
			p.logger.Printf("Error closing audio source: %v", err)
		}
	})
}

// playChunk reads one chunk and plays it. A missing default sink drops the
// chunk; the source keeps advancing so audio resumes in real time.
func (p *Player) playChunk(ctx context.Context) error {
	n, err := p.source.Read(p.chunk)
	if err != nil && !(errors.Is(err, io.EOF) && n > 0) {
		return err
	}
	if n == 0 {
		return io.EOF
	}

	samples := append([]int32(nil), p.chunk[:n]...)
	err = p.server.Do(ctx, func(c *router.Core) error {
		return c.Play(samples)
	})

	p.chunks++
	switch {
	case errors.Is(err, router.ErrNoDefaultSink):
		if p.config.Debug && p.chunks%50 == 1 {
			p.logger.Printf("[DEBUG] No default sink, dropping audio")
		}
		return nil
	case err != nil:
		return err
	}

	if p.config.Debug && p.chunks%250 == 0 {
		p.logger.Printf("[DEBUG] Played %d chunks", p.chunks)
	}
	return nil
}
