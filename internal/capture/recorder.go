package capture

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// MaxDuration is the hard recording ceiling.
const MaxDuration = 300 * time.Second

const (
	startToneHz = 800
	startTone   = 100 * time.Millisecond
	stopToneHz  = 600
	stopTone    = 150 * time.Millisecond
)

type State int

const (
	Idle State = iota
	Recording
	Uploading
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Uploading:
		return "uploading"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Blob is one finished recording.
type Blob struct {
	Data     []byte
	MIMEType string
	Duration int // whole seconds
}

// Uploader persists a finished recording.
type Uploader interface {
	Upload(ctx context.Context, blob Blob) error
}

// ToneFunc plays a short feedback tone.
type ToneFunc func(frequency float64, d time.Duration) error

// StopResult reports how a recording ended.
type StopResult struct {
	Blob Blob
	Auto bool
	Err  error
}

type Options struct {
	Tone  ToneFunc
	Sound bool

	// Ticker returns a channel delivering one value per elapsed second and a
	// stop func. Defaults to time.NewTicker(time.Second).
	Ticker func() (<-chan time.Time, func())

	OnTick func(elapsed int)
	OnStop func(StopResult)
}

// Recorder drives one capture session at a time:
// Idle -> Recording -> Uploading -> Idle.
type Recorder struct {
	device   Device
	uploader Uploader
	opts     Options

	mu       sync.Mutex
	state    State
	elapsed  int
	session  uint64
	source   Source
	mimeType string
	stopTick func()
	sound    bool
	starting bool // device Open in flight, r.mu not held
}

func NewRecorder(device Device, uploader Uploader, opts Options) *Recorder {
	if opts.Ticker == nil {
		opts.Ticker = func() (<-chan time.Time, func()) {
			t := time.NewTicker(time.Second)
			return t.C, t.Stop
		}
	}
	return &Recorder{
		device:   device,
		uploader: uploader,
		opts:     opts,
		sound:    opts.Sound,
	}
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Elapsed returns whole seconds recorded in the current or last session.
func (r *Recorder) Elapsed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.elapsed
}

func (r *Recorder) SetSound(enabled bool) {
	r.mu.Lock()
	r.sound = enabled
	r.mu.Unlock()
}

// Start acquires the device and begins recording. The returned error is
// classified with Classify. The recorder stays Idle while the device is being
// acquired; a second Start in that window gets ErrBusy.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != Idle || r.starting {
		r.mu.Unlock()
		return ErrBusy
	}
	r.starting = true
	pending := r.session
	r.mu.Unlock()

	mimeType := NegotiateMIMEType(r.device)
	source, err := r.device.Open(ctx, mimeType)

	r.mu.Lock()
	r.starting = false
	if err != nil {
		r.mu.Unlock()
		err = Classify(err)
		slog.Warn("capture start failed", "error", err)
		return err
	}
	if r.session != pending {
		// Closed while the device was being acquired.
		r.mu.Unlock()
		if cerr := source.Close(); cerr != nil {
			slog.Warn("failed to release capture device", "error", cerr)
		}
		return fmt.Errorf("%w: recorder closed during start", ErrCapture)
	}

	r.session++
	session := r.session
	ticks, stop := r.opts.Ticker()
	done := make(chan struct{})
	var once sync.Once
	r.stopTick = func() {
		once.Do(func() {
			stop()
			close(done)
		})
	}
	r.state = Recording
	r.elapsed = 0
	r.source = source
	r.mimeType = mimeType
	r.mu.Unlock()

	r.tone(startToneHz, startTone)
	slog.Info("recording started", "mime_type", mimeType)

	go r.tick(ctx, session, ticks, done)
	return nil
}

func (r *Recorder) tick(ctx context.Context, session uint64, ticks <-chan time.Time, done <-chan struct{}) {
	limit := int(MaxDuration / time.Second)
	for {
		select {
		case <-done:
			return
		case <-ticks:
		}

		r.mu.Lock()
		if r.session != session || r.state != Recording {
			r.mu.Unlock()
			return
		}
		r.elapsed++
		elapsed := r.elapsed
		r.mu.Unlock()

		if r.opts.OnTick != nil {
			r.opts.OnTick(elapsed)
		}

		if elapsed >= limit {
			slog.Info("recording reached maximum duration", "seconds", elapsed)
			_ = r.finish(ctx, session, true)
			return
		}
	}
}

// Stop ends the recording, releases the device and uploads the blob. It
// returns the upload error, if any.
func (r *Recorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	session := r.session
	r.mu.Unlock()
	return r.finish(ctx, session, false)
}

// finish is the single stop path shared by manual and automatic stops.
func (r *Recorder) finish(ctx context.Context, session uint64, auto bool) error {
	r.mu.Lock()
	if r.state != Recording || r.session != session {
		r.mu.Unlock()
		return ErrNotRecording
	}
	r.stopTick()
	source := r.source
	r.source = nil
	elapsed := r.elapsed
	mimeType := r.mimeType
	r.state = Uploading
	r.mu.Unlock()

	chunks, stopErr := source.Stop()
	closeErr := source.Close()
	if closeErr != nil {
		slog.Warn("failed to release capture device", "error", closeErr)
	}
	r.tone(stopToneHz, stopTone)

	if stopErr != nil {
		err := Classify(stopErr)
		r.settle(false)
		r.report(StopResult{Auto: auto, Err: err})
		return err
	}

	blob := Blob{
		Data:     bytes.Join(chunks, nil),
		MIMEType: mimeType,
		Duration: elapsed,
	}

	// Uploads are never cancelled once started.
	err := r.uploader.Upload(context.WithoutCancel(ctx), blob)
	if err != nil {
		slog.Error("recording upload failed", "error", err, "duration", elapsed)
	} else {
		slog.Info("recording saved", "duration", elapsed, "size", len(blob.Data))
	}

	r.settle(err == nil)
	r.report(StopResult{Blob: blob, Auto: auto, Err: err})
	return err
}

func (r *Recorder) settle(ok bool) {
	r.mu.Lock()
	r.state = Idle
	if ok {
		r.elapsed = 0
	}
	r.mu.Unlock()
}

func (r *Recorder) report(res StopResult) {
	if r.opts.OnStop != nil {
		r.opts.OnStop(res)
	}
}

// Close stops ticking and releases the device. An upload in flight is left
// to finish.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.starting {
		r.session++
		return nil
	}
	if r.state != Recording {
		return nil
	}
	r.stopTick()
	r.session++
	r.state = Idle
	source := r.source
	r.source = nil
	return source.Close()
}

func (r *Recorder) tone(frequency float64, d time.Duration) {
	r.mu.Lock()
	enabled := r.sound
	r.mu.Unlock()
	if !enabled || r.opts.Tone == nil {
		return
	}
	err := r.opts.Tone(frequency, d)
	if err != nil {
		slog.Debug("tone unavailable", "error", err)
	}
}
