package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/templui/cortex/internal/model"
)

const (
	// SignedURLTTL is the lifetime requested for playback URLs.
	SignedURLTTL = 3600 * time.Second
	// MetadataTimeout bounds the wait for media duration.
	MetadataTimeout = 5 * time.Second
)

var (
	ErrLoadTimeout = errors.New("timed out waiting for audio metadata")
	ErrPlayback    = errors.New("unable to play audio")
)

type State int

const (
	Stopped State = iota
	Loading
	Playing
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// URLSigner exchanges a storage path for a time-limited URL.
type URLSigner interface {
	SignURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// PlayCounter records one successful playback start.
type PlayCounter interface {
	IncrementPlayCount(ctx context.Context, note *model.VoiceNote) error
}

// Status is a snapshot of the controller.
type Status struct {
	State    State
	NoteID   string
	Elapsed  time.Duration
	Duration time.Duration
}

type Options struct {
	MetadataTimeout time.Duration
	OnProgress      func(Status)
	OnError         func(noteID string, err error)
}

// Controller owns the single active media session. Each attach takes a new
// session id; events from older sessions are dropped.
type Controller struct {
	signer  URLSigner
	engine  Engine
	counter PlayCounter
	opts    Options

	mu       sync.Mutex
	state    State
	current  string
	session  uint64
	media    Media
	elapsed  time.Duration
	duration time.Duration
}

func NewController(signer URLSigner, engine Engine, counter PlayCounter, opts Options) *Controller {
	if opts.MetadataTimeout <= 0 {
		opts.MetadataTimeout = MetadataTimeout
	}
	return &Controller{
		signer:  signer,
		engine:  engine,
		counter: counter,
		opts:    opts,
	}
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

func (c *Controller) statusLocked() Status {
	return Status{
		State:    c.state,
		NoteID:   c.current,
		Elapsed:  c.elapsed,
		Duration: c.duration,
	}
}

// Toggle stops note when it is the current note and otherwise replaces the
// current session with a new one for note. It returns once playback has
// started or failed.
func (c *Controller) Toggle(ctx context.Context, note *model.VoiceNote) error {
	c.mu.Lock()
	if c.current == note.ID && c.state != Stopped {
		old := c.detachLocked()
		c.mu.Unlock()
		release(old)
		slog.Debug("playback stopped", "note_id", note.ID)
		return nil
	}
	old := c.detachLocked()
	c.session++
	session := c.session
	c.current = note.ID
	c.state = Loading
	c.mu.Unlock()
	release(old)

	url, err := c.resolve(ctx, note)
	if err != nil {
		return c.fail(session, note.ID, err)
	}

	hint := time.Duration(note.Duration) * time.Second
	media, err := c.engine.Open(ctx, url, hint)
	if err != nil {
		return c.fail(session, note.ID, fmt.Errorf("%w: %w", ErrPlayback, err))
	}

	c.mu.Lock()
	if c.session != session {
		c.mu.Unlock()
		closeMedia(media)
		return nil
	}
	c.media = media
	c.mu.Unlock()

	duration, err := c.awaitMetadata(ctx, media)
	if err != nil {
		return c.fail(session, note.ID, err)
	}

	c.mu.Lock()
	if c.session != session {
		c.mu.Unlock()
		return nil
	}
	c.state = Playing
	c.duration = duration
	c.mu.Unlock()

	slog.Info("playback started", "note_id", note.ID, "duration", duration)
	go c.countPlay(context.WithoutCancel(ctx), note)
	go c.listen(session, note.ID, media)
	return nil
}

func (c *Controller) resolve(ctx context.Context, note *model.VoiceNote) (string, error) {
	if note.HasAbsoluteURL() {
		return note.AudioURL, nil
	}
	return c.signer.SignURL(ctx, note.AudioURL, SignedURLTTL)
}

func (c *Controller) awaitMetadata(ctx context.Context, media Media) (time.Duration, error) {
	timer := time.NewTimer(c.opts.MetadataTimeout)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-media.Events():
			if !ok {
				return 0, ErrPlayback
			}
			switch ev.Type {
			case EventMetadata:
				return ev.Duration, nil
			case EventError:
				return 0, fmt.Errorf("%w: %w", ErrPlayback, ev.Err)
			case EventEnded:
				return 0, ErrPlayback
			}
		case <-timer.C:
			return 0, ErrLoadTimeout
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

func (c *Controller) listen(session uint64, noteID string, media Media) {
	for ev := range media.Events() {
		switch ev.Type {
		case EventProgress:
			c.mu.Lock()
			if c.session != session {
				c.mu.Unlock()
				return
			}
			c.elapsed = ev.Position
			status := c.statusLocked()
			c.mu.Unlock()
			if c.opts.OnProgress != nil {
				c.opts.OnProgress(status)
			}
		case EventEnded:
			c.end(session, noteID, nil)
			return
		case EventError:
			c.end(session, noteID, fmt.Errorf("%w: %w", ErrPlayback, ev.Err))
			return
		}
	}
}

// end returns to Stopped after natural end or a media error.
func (c *Controller) end(session uint64, noteID string, err error) {
	c.mu.Lock()
	if c.session != session {
		c.mu.Unlock()
		return
	}
	old := c.detachLocked()
	status := c.statusLocked()
	c.mu.Unlock()
	release(old)

	if c.opts.OnProgress != nil {
		c.opts.OnProgress(status)
	}
	if err != nil {
		slog.Warn("playback error", "note_id", noteID, "error", err)
		c.report(noteID, err)
	}
}

func (c *Controller) fail(session uint64, noteID string, err error) error {
	c.mu.Lock()
	if c.session != session {
		c.mu.Unlock()
		return nil
	}
	old := c.detachLocked()
	c.mu.Unlock()
	release(old)

	slog.Warn("playback failed", "note_id", noteID, "error", err)
	c.report(noteID, err)
	return err
}

func (c *Controller) report(noteID string, err error) {
	if c.opts.OnError != nil {
		c.opts.OnError(noteID, err)
	}
}

func (c *Controller) countPlay(ctx context.Context, note *model.VoiceNote) {
	if c.counter == nil {
		return
	}
	err := c.counter.IncrementPlayCount(ctx, note)
	if err != nil {
		slog.Warn("failed to increment play count", "note_id", note.ID, "error", err)
	}
}

// Seek moves the current note to pos seconds. Requests for another note or
// with a non-finite or out-of-range position are ignored.
func (c *Controller) Seek(noteID string, pos float64) {
	if math.IsNaN(pos) || math.IsInf(pos, 0) || pos < 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != noteID || c.state != Playing || c.media == nil {
		return
	}
	// Range check before converting; huge values overflow time.Duration.
	if pos > c.duration.Seconds() {
		return
	}
	target := time.Duration(pos * float64(time.Second))

	err := c.media.Seek(target)
	if err != nil {
		slog.Debug("seek failed", "note_id", noteID, "error", err)
		return
	}
	c.elapsed = target
}

// StopNote tears down the session when noteID is the current note.
func (c *Controller) StopNote(noteID string) bool {
	c.mu.Lock()
	if c.current != noteID {
		c.mu.Unlock()
		return false
	}
	old := c.detachLocked()
	c.mu.Unlock()
	release(old)
	return true
}

// Close releases any active media.
func (c *Controller) Close() error {
	c.mu.Lock()
	old := c.detachLocked()
	c.mu.Unlock()
	release(old)
	return nil
}

// detachLocked resets the controller to Stopped and hands back the media,
// which the caller closes after releasing c.mu.
func (c *Controller) detachLocked() Media {
	m := c.media
	c.media = nil
	c.session++
	c.state = Stopped
	c.current = ""
	c.elapsed = 0
	c.duration = 0
	return m
}

func release(m Media) {
	if m != nil {
		closeMedia(m)
	}
}

func closeMedia(m Media) {
	err := m.Close()
	if err != nil {
		slog.Debug("media close failed", "error", err)
	}
}
