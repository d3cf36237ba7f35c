// ABOUTME: Audio source abstraction for playing files or test tones into the router
// ABOUTME: Picks a decoder by URL scheme or file extension
package source

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Source provides PCM audio samples
type Source interface {
	// Read fills samples with interleaved int32 audio in the 24-bit range
	// and returns how many were written
	Read(samples []int32) (int, error)
	SampleRate() int
	Channels() int
	// Metadata returns title, artist, album
	Metadata() (title, artist, album string)
	Close() error
}

// New creates a source from a file path or HTTP URL. An empty path gives a
// test tone. File sources loop at EOF.
func New(pathOrURL string) (Source, error) {
	if pathOrURL == "" {
		return NewTestTone(440), nil
	}

	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		log.Printf("Streaming from HTTP URL: %s", pathOrURL)
		return NewHTTPMP3(pathOrURL)
	}

	if _, err := os.Stat(pathOrURL); err != nil {
		return nil, fmt.Errorf("audio file not found: %s", pathOrURL)
	}

	switch ext := strings.ToLower(filepath.Ext(pathOrURL)); ext {
	case ".mp3":
		return NewMP3(pathOrURL)
	case ".flac":
		return NewFLAC(pathOrURL)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .mp3, .flac)", ext)
	}
}

// titleFromPath uses the file name without extension as a title
func titleFromPath(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
