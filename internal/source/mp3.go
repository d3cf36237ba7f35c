// ABOUTME: MP3 sources for local files and HTTP streams
// ABOUTME: Decodes with go-mp3 and widens 16-bit output to 24-bit
package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/Resonate-Protocol/resonate-router/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3 reads from an MP3 file and loops at the end
type MP3 struct {
	file       *os.File
	decoder    *mp3.Decoder
	sampleRate int
	title      string
}

// NewMP3 opens an MP3 file
func NewMP3(path string) (*MP3, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	title := titleFromPath(path)
	log.Printf("Loaded MP3: %s (sample rate: %d Hz)", title, decoder.SampleRate())

	return &MP3{
		file:       f,
		decoder:    decoder,
		sampleRate: decoder.SampleRate(),
		title:      title,
	}, nil
}

func (s *MP3) Read(samples []int32) (int, error) {
	n, err := readInt16LE(s.decoder, samples)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, err
	}

	if errors.Is(err, io.EOF) {
		if _, err := s.file.Seek(0, io.SeekStart); err != nil {
			return n, fmt.Errorf("failed to seek to start: %w", err)
		}
		decoder, err := mp3.NewDecoder(s.file)
		if err != nil {
			return n, fmt.Errorf("failed to create new decoder: %w", err)
		}
		s.decoder = decoder
	}

	return n, nil
}

// go-mp3 always decodes to stereo
func (s *MP3) SampleRate() int { return s.sampleRate }
func (s *MP3) Channels() int   { return 2 }
func (s *MP3) Metadata() (string, string, string) {
	return s.title, "Unknown Artist", "Unknown Album"
}
func (s *MP3) Close() error { return s.file.Close() }

// HTTPMP3 streams MP3 from an HTTP URL. It ends at EOF.
type HTTPMP3 struct {
	url      string
	response *http.Response
	decoder  *mp3.Decoder
}

// NewHTTPMP3 starts streaming url
func NewHTTPMP3(url string) (*HTTPMP3, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch HTTP stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP error: %s", resp.Status)
	}

	decoder, err := mp3.NewDecoder(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("failed to decode MP3 stream: %w", err)
	}

	log.Printf("Streaming MP3 from HTTP: %s (sample rate: %d Hz)", url, decoder.SampleRate())
	return &HTTPMP3{url: url, response: resp, decoder: decoder}, nil
}

func (s *HTTPMP3) Read(samples []int32) (int, error) {
	return readInt16LE(s.decoder, samples)
}

func (s *HTTPMP3) SampleRate() int { return s.decoder.SampleRate() }
func (s *HTTPMP3) Channels() int   { return 2 }
func (s *HTTPMP3) Metadata() (string, string, string) {
	return "HTTP Stream", s.url, ""
}
func (s *HTTPMP3) Close() error { return s.response.Body.Close() }

// readInt16LE reads little-endian 16-bit PCM from r into samples
func readInt16LE(r io.Reader, samples []int32) (int, error) {
	buf := make([]byte, len(samples)*2)
	n, err := io.ReadFull(r, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}

	count := n / 2
	for i := 0; i < count; i++ {
		samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(buf[i*2:])))
	}
	return count, err
}
