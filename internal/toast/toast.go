// Package toast turns errors and outcomes into short, dismissible
// notifications.
package toast

import (
	"errors"
	"sync"
	"time"

	"github.com/templui/cortex/internal/capture"
	"github.com/templui/cortex/internal/notestore"
	"github.com/templui/cortex/internal/playback"
)

// DefaultTTL is how long a notification stays active unless dismissed.
const DefaultTTL = 4 * time.Second

type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	}
	return "info"
}

type Toast struct {
	ID      int
	Level   Level
	Message string
	At      time.Time
}

// FromError maps err to a notification. fallback names the failed action
// and is used for generic store failures, e.g. "Failed to save voice note".
func FromError(err error, fallback string) Toast {
	return Toast{Level: LevelError, Message: message(err, fallback)}
}

func message(err error, fallback string) string {
	switch {
	case errors.Is(err, capture.ErrPermissionDenied):
		return "Microphone permission denied. Please allow microphone access and try again."
	case errors.Is(err, capture.ErrDeviceUnavailable):
		return "No microphone found. Please connect a microphone and try again."
	case errors.Is(err, capture.ErrDeviceBusy):
		return "Microphone is already in use by another application. Please close other apps using the microphone and try again."
	case errors.Is(err, capture.ErrUnsupported):
		return "Microphone access is not supported in this context."
	case errors.Is(err, capture.ErrCapture):
		return "Microphone error: " + err.Error()
	case errors.Is(err, capture.ErrBusy):
		return "A recording is already in progress"
	case errors.Is(err, capture.ErrNotRecording):
		return "Not recording"
	case errors.Is(err, playback.ErrLoadTimeout):
		return "Audio took too long to load. Please try again."
	case errors.Is(err, playback.ErrPlayback):
		return "Unable to play audio file"
	case errors.Is(err, notestore.ErrAuth):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, notestore.ErrTranscription):
		var storeErr *notestore.StoreError
		if errors.As(err, &storeErr) && storeErr.Message != "" {
			return "Transcription failed: " + storeErr.Message
		}
		return "Transcription failed"
	}
	if fallback != "" {
		return fallback
	}
	return "Something went wrong. Please try again."
}

type Options struct {
	TTL    time.Duration
	Now    func() time.Time
	OnPush func(Toast)
}

// Queue holds the active notifications, oldest first.
type Queue struct {
	opts Options

	mu    sync.Mutex
	next  int
	items []Toast
}

func NewQueue(opts Options) *Queue {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Queue{opts: opts}
}

// Push adds t and returns its id.
func (q *Queue) Push(t Toast) int {
	q.mu.Lock()
	q.next++
	t.ID = q.next
	t.At = q.opts.Now()
	q.items = append(q.items, t)
	q.mu.Unlock()

	if q.opts.OnPush != nil {
		q.opts.OnPush(t)
	}
	return t.ID
}

func (q *Queue) Success(msg string) int {
	return q.Push(Toast{Level: LevelSuccess, Message: msg})
}

func (q *Queue) Info(msg string) int {
	return q.Push(Toast{Level: LevelInfo, Message: msg})
}

// Error pushes the notification for err. Nil errors are ignored.
func (q *Queue) Error(err error, fallback string) int {
	if err == nil {
		return 0
	}
	return q.Push(FromError(err, fallback))
}

func (q *Queue) Dismiss(id int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, t := range q.items {
		if t.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

// Active returns the notifications that have not expired or been dismissed.
func (q *Queue) Active() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.opts.Now()
	kept := q.items[:0]
	for _, t := range q.items {
		if now.Sub(t.At) < q.opts.TTL {
			kept = append(kept, t)
		}
	}
	q.items = kept

	out := make([]Toast, len(kept))
	copy(out, kept)
	return out
}
