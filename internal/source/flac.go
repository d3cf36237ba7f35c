// ABOUTME: FLAC file source
// ABOUTME: Decodes frames with mewkiz/flac and scales samples to 24-bit
package source

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mewkiz/flac"
)

// FLAC reads from a FLAC file and loops at the end
type FLAC struct {
	file       *os.File
	stream     *flac.Stream
	sampleRate int
	channels   int
	bitDepth   int
	title      string

	// decoded samples not yet returned
	pending []int32
}

// NewFLAC opens a FLAC file
func NewFLAC(path string) (*FLAC, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	s := &FLAC{
		file:       f,
		stream:     stream,
		sampleRate: int(stream.Info.SampleRate),
		channels:   int(stream.Info.NChannels),
		bitDepth:   int(stream.Info.BitsPerSample),
		title:      titleFromPath(path),
	}

	log.Printf("Loaded FLAC: %s (sample rate: %d Hz, channels: %d, bit depth: %d)",
		s.title, s.sampleRate, s.channels, s.bitDepth)
	return s, nil
}

func (s *FLAC) Read(samples []int32) (int, error) {
	n := 0
	for n < len(samples) {
		if len(s.pending) == 0 {
			if err := s.decodeFrame(); err != nil {
				return n, err
			}
			continue
		}
		c := copy(samples[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}
	return n, nil
}

func (s *FLAC) decodeFrame() error {
	frame, err := s.stream.ParseNext()
	if errors.Is(err, io.EOF) {
		if _, err := s.file.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("failed to seek to start: %w", err)
		}
		stream, err := flac.New(s.file)
		if err != nil {
			return fmt.Errorf("failed to create new stream: %w", err)
		}
		s.stream = stream
		return nil
	}
	if err != nil {
		return err
	}

	for i := 0; i < int(frame.BlockSize); i++ {
		for ch := 0; ch < s.channels; ch++ {
			s.pending = append(s.pending, scaleTo24(frame.Subframes[ch].Samples[i], s.bitDepth))
		}
	}
	return nil
}

// scaleTo24 shifts a sample of the given bit depth into the 24-bit range
func scaleTo24(sample int32, bitDepth int) int32 {
	shift := 24 - bitDepth
	if shift >= 0 {
		return sample << shift
	}
	return sample >> -shift
}

func (s *FLAC) SampleRate() int { return s.sampleRate }
func (s *FLAC) Channels() int   { return s.channels }
func (s *FLAC) Metadata() (string, string, string) {
	return s.title, "Unknown Artist", "Unknown Album"
}
func (s *FLAC) Close() error { return s.file.Close() }
