package capture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/templui/cortex/internal/audio"
)

// PreferredMIMETypes is the negotiation order for recorded blobs.
var PreferredMIMETypes = []string{
	"audio/webm;codecs=opus",
	"audio/webm",
	"audio/mp4",
	"audio/wav",
	"audio/mpeg",
}

const fallbackMIMEType = "audio/webm"

// Device is a platform audio input.
type Device interface {
	Supports(mimeType string) bool
	// DefaultMIMEType is used when no preferred type is supported. May be "".
	DefaultMIMEType() string
	Open(ctx context.Context, mimeType string) (Source, error)
}

// Source is an open capture session on a Device.
type Source interface {
	// Stop ends capture and returns the buffered chunks in order.
	Stop() ([][]byte, error)
	// Close releases the device. It is safe to call after Stop.
	Close() error
}

// NegotiateMIMEType picks the first preferred type the device supports.
func NegotiateMIMEType(d Device) string {
	for _, mimeType := range PreferredMIMETypes {
		if d.Supports(mimeType) {
			return mimeType
		}
	}
	if def := d.DefaultMIMEType(); def != "" {
		return def
	}
	return fallbackMIMEType
}

// FileDevice records raw mono PCM-16 little-endian audio from a path such as
// a FIFO fed by arecord, a character device, or "-" for stdin, and encodes it
// as WAV.
type FileDevice struct {
	Path       string
	SampleRate int
}

func (d *FileDevice) Supports(mimeType string) bool {
	return mimeType == "audio/wav"
}

func (d *FileDevice) DefaultMIMEType() string {
	return "audio/wav"
}

func (d *FileDevice) Open(_ context.Context, mimeType string) (Source, error) {
	if mimeType != "audio/wav" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, mimeType)
	}
	if d.Path == "" {
		return nil, fmt.Errorf("%w: no input configured", ErrDeviceUnavailable)
	}

	var r io.ReadCloser
	if d.Path == "-" {
		r = io.NopCloser(os.Stdin)
	} else {
		f, err := os.Open(d.Path)
		if err != nil {
			return nil, err
		}
		r = f
	}

	src := &fileSource{r: r, sampleRate: d.SampleRate}
	go src.read()
	return src, nil
}

type fileSource struct {
	r          io.ReadCloser
	sampleRate int

	mu      sync.Mutex
	pcm     []byte
	stopped bool
	readErr error
	closed  bool
}

func (s *fileSource) read() {
	buf := make([]byte, 4096)
	for {
		n, err := s.r.Read(buf)
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		s.pcm = append(s.pcm, buf[:n]...)
		if err != nil {
			if err != io.EOF {
				s.readErr = err
			}
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}
}

func (s *fileSource) Stop() ([][]byte, error) {
	s.mu.Lock()
	s.stopped = true
	pcm := s.pcm
	readErr := s.readErr
	s.pcm = nil
	s.mu.Unlock()

	if readErr != nil {
		return nil, readErr
	}

	wav, err := audio.EncodeWAV(pcm, s.sampleRate)
	if err != nil {
		return nil, err
	}
	return [][]byte{wav}, nil
}

func (s *fileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.stopped = true
	err := s.r.Close()
	if err != nil {
		slog.Debug("capture input close failed", "error", err)
	}
	return err
}
