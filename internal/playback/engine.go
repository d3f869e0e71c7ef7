package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/templui/cortex/internal/audio"
)

type EventType int

const (
	EventMetadata EventType = iota
	EventProgress
	EventEnded
	EventError
)

type Event struct {
	Type     EventType
	Duration time.Duration // EventMetadata
	Position time.Duration // EventProgress
	Err      error         // EventError
}

// Engine opens playable media.
type Engine interface {
	// Open starts loading url. durationHint is used when the media does not
	// carry its own duration.
	Open(ctx context.Context, url string, durationHint time.Duration) (Media, error)
}

// Media is one open playback. Events is closed after Close or once the
// media has ended or failed.
type Media interface {
	Events() <-chan Event
	Seek(pos time.Duration) error
	Close() error
}

// StreamEngine downloads audio over HTTP and writes it to Sink paced in real
// time, e.g. stdout piped into a system player.
type StreamEngine struct {
	Client *resty.Client
	Sink   io.Writer
	// Interval is the pacing step. Defaults to 250ms.
	Interval time.Duration
}

func (e *StreamEngine) Open(ctx context.Context, url string, durationHint time.Duration) (Media, error) {
	interval := e.Interval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}

	mctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	resp, err := e.Client.R().
		SetContext(mctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		cancel()
		return nil, err
	}
	body := resp.RawBody()
	if resp.IsError() {
		_ = body.Close()
		cancel()
		return nil, fmt.Errorf("unexpected status %d fetching audio", resp.StatusCode())
	}

	m := &stream{
		body:     body,
		sink:     e.Sink,
		hint:     durationHint,
		interval: interval,
		ctx:      mctx,
		cancel:   cancel,
		events:   make(chan Event, 8),
		done:     make(chan struct{}),
		seek:     make(chan time.Duration, 1),
	}
	go m.run()
	return m, nil
}

type stream struct {
	body     io.ReadCloser
	sink     io.Writer
	hint     time.Duration
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	events chan Event
	done   chan struct{}
	seek   chan time.Duration
	once   sync.Once
}

func (s *stream) Events() <-chan Event {
	return s.events
}

func (s *stream) Seek(pos time.Duration) error {
	select {
	case s.seek <- pos:
		return nil
	case <-s.done:
		return errors.New("media closed")
	default:
		return errors.New("seek already pending")
	}
}

func (s *stream) Close() error {
	s.once.Do(s.cancel)
	<-s.done
	return nil
}

func (s *stream) emit(ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *stream) run() {
	defer close(s.done)
	defer close(s.events)
	defer s.body.Close()

	data, err := io.ReadAll(s.body)
	if err != nil {
		s.emit(Event{Type: EventError, Err: err})
		return
	}

	duration := s.hint
	if header, err := audio.ParseHeader(data); err == nil {
		duration = header.Duration()
	}
	if !s.emit(Event{Type: EventMetadata, Duration: duration}) {
		return
	}

	// Bytes per pacing step; unknown durations stream in one step.
	step := len(data)
	if duration > 0 {
		step = max(1, int(float64(len(data))*s.interval.Seconds()/duration.Seconds()))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	offset := 0
	for offset < len(data) {
		select {
		case <-s.ctx.Done():
			return
		case pos := <-s.seek:
			if duration > 0 {
				offset = seekOffset(len(data), pos, duration)
			}
			continue
		case <-ticker.C:
		}

		end := min(offset+step, len(data))
		if s.sink != nil {
			err := s.write(data[offset:end])
			if errors.Is(err, context.Canceled) {
				return
			}
			if err != nil {
				s.emit(Event{Type: EventError, Err: err})
				return
			}
		}
		offset = end

		position := duration
		if len(data) > 0 {
			position = time.Duration(float64(duration) * float64(offset) / float64(len(data)))
		}
		if !s.emit(Event{Type: EventProgress, Position: position}) {
			return
		}
	}

	s.emit(Event{Type: EventEnded})
}

// write hands chunk to the sink without blocking Close. A sink stalled past
// cancellation keeps its goroutine until the write returns.
func (s *stream) write(chunk []byte) error {
	written := make(chan error, 1)
	go func() {
		_, err := s.sink.Write(chunk)
		written <- err
	}()
	select {
	case err := <-written:
		return err
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// seekOffset maps pos onto a byte offset clamped to [0, size].
func seekOffset(size int, pos, duration time.Duration) int {
	frac := pos.Seconds() / duration.Seconds()
	if math.IsNaN(frac) || frac <= 0 {
		return 0
	}
	if frac >= 1 {
		return size
	}
	return min(size, int(float64(size)*frac))
}
