package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/cortex/internal/audio"
)

type fakeDevice struct {
	supported map[string]bool
	def       string
	openErr   error

	mu      sync.Mutex
	opened  []string
	sources []*fakeSource
	chunks  [][]byte
	stopErr error
}

func (d *fakeDevice) Supports(mimeType string) bool { return d.supported[mimeType] }
func (d *fakeDevice) DefaultMIMEType() string       { return d.def }

func (d *fakeDevice) Open(_ context.Context, mimeType string) (Source, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.opened = append(d.opened, mimeType)
	src := &fakeSource{chunks: d.chunks, stopErr: d.stopErr}
	d.sources = append(d.sources, src)
	return src, nil
}

func (d *fakeDevice) last() *fakeSource {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sources[len(d.sources)-1]
}

type fakeSource struct {
	mu      sync.Mutex
	chunks  [][]byte
	stopErr error
	stopped bool
	closed  bool
}

func (s *fakeSource) Stop() ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return s.chunks, s.stopErr
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSource) released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeUploader struct {
	mu    sync.Mutex
	blobs []Blob
	err   error
}

func (u *fakeUploader) Upload(_ context.Context, blob Blob) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.blobs = append(u.blobs, blob)
	return u.err
}

type harness struct {
	rec      *Recorder
	device   *fakeDevice
	uploader *fakeUploader
	ticks    chan time.Time
	stops    chan StopResult
	tones    []float64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		device: &fakeDevice{
			supported: map[string]bool{"audio/webm": true, "audio/wav": true},
			chunks:    [][]byte{[]byte("ab"), []byte("cd")},
		},
		uploader: &fakeUploader{},
		ticks:    make(chan time.Time, 400),
		stops:    make(chan StopResult, 4),
	}
	h.rec = NewRecorder(h.device, h.uploader, Options{
		Sound: true,
		Tone: func(frequency float64, _ time.Duration) error {
			h.tones = append(h.tones, frequency)
			return errors.New("no audio output")
		},
		Ticker: func() (<-chan time.Time, func()) { return h.ticks, func() {} },
		OnStop: func(res StopResult) { h.stops <- res },
	})
	return h
}

func (h *harness) tick(n int) {
	for range n {
		h.ticks <- time.Time{}
	}
}

func (h *harness) waitStop(t *testing.T) StopResult {
	t.Helper()
	select {
	case res := <-h.stops:
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("recording did not stop")
		return StopResult{}
	}
}

func TestNegotiateMIMEType(t *testing.T) {
	d := &fakeDevice{supported: map[string]bool{"audio/mp4": true, "audio/wav": true}}
	assert.Equal(t, "audio/mp4", NegotiateMIMEType(d))

	d = &fakeDevice{supported: map[string]bool{"audio/webm;codecs=opus": true, "audio/webm": true}}
	assert.Equal(t, "audio/webm;codecs=opus", NegotiateMIMEType(d))

	d = &fakeDevice{def: "audio/ogg"}
	assert.Equal(t, "audio/ogg", NegotiateMIMEType(d))

	assert.Equal(t, "audio/webm", NegotiateMIMEType(&fakeDevice{}))
}

func TestManualStopUploadsAndReleases(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.rec.Start(ctx))
	assert.Equal(t, Recording, h.rec.State())
	assert.Equal(t, []string{"audio/webm"}, h.device.opened)
	assert.ErrorIs(t, h.rec.Start(ctx), ErrBusy)

	h.tick(3)
	require.Eventually(t, func() bool { return h.rec.Elapsed() == 3 }, time.Second, time.Millisecond)

	require.NoError(t, h.rec.Stop(ctx))
	res := h.waitStop(t)
	assert.False(t, res.Auto)
	assert.Equal(t, Blob{Data: []byte("abcd"), MIMEType: "audio/webm", Duration: 3}, res.Blob)

	assert.Equal(t, Idle, h.rec.State())
	assert.Equal(t, 0, h.rec.Elapsed())
	assert.True(t, h.device.last().released())
	assert.Equal(t, []float64{startToneHz, stopToneHz}, h.tones, "tone failures are not surfaced")
	assert.ErrorIs(t, h.rec.Stop(ctx), ErrNotRecording)
}

func TestAutoStopMatchesManualStop(t *testing.T) {
	ctx := context.Background()

	auto := newHarness(t)
	require.NoError(t, auto.rec.Start(ctx))
	auto.tick(350)
	autoRes := auto.waitStop(t)

	manual := newHarness(t)
	require.NoError(t, manual.rec.Start(ctx))
	manual.tick(299)
	require.Eventually(t, func() bool { return manual.rec.Elapsed() == 299 }, 2*time.Second, time.Millisecond)
	// The 300th tick fires the ceiling; a user stop at the same instant takes the same path.
	manual.tick(1)
	manualRes := manual.waitStop(t)

	assert.True(t, autoRes.Auto)
	assert.Equal(t, 300, autoRes.Blob.Duration)
	assert.Equal(t, autoRes.Blob, manualRes.Blob)

	for _, h := range []*harness{auto, manual} {
		assert.Equal(t, Idle, h.rec.State())
		assert.Equal(t, 0, h.rec.Elapsed())
		assert.True(t, h.device.last().released())
		assert.Len(t, h.uploader.blobs, 1)
	}
}

func TestManualStopAtCeilingMatchesAutoStop(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.rec.Start(ctx))
	h.tick(299)
	require.Eventually(t, func() bool { return h.rec.Elapsed() == 299 }, 2*time.Second, time.Millisecond)

	// Simulate the 300th second elapsing right before the user stops.
	h.rec.mu.Lock()
	h.rec.elapsed = 300
	h.rec.mu.Unlock()
	require.NoError(t, h.rec.Stop(ctx))
	res := h.waitStop(t)

	assert.False(t, res.Auto)
	assert.Equal(t, 300, res.Blob.Duration)
	assert.Equal(t, Idle, h.rec.State())
	assert.Equal(t, 0, h.rec.Elapsed())
	assert.True(t, h.device.last().released())
}

func TestUploadFailureKeepsElapsed(t *testing.T) {
	h := newHarness(t)
	h.uploader.err = errors.New("store unavailable")
	ctx := context.Background()

	require.NoError(t, h.rec.Start(ctx))
	h.tick(2)
	require.Eventually(t, func() bool { return h.rec.Elapsed() == 2 }, time.Second, time.Millisecond)

	err := h.rec.Stop(ctx)
	assert.EqualError(t, err, "store unavailable")
	assert.Equal(t, Idle, h.rec.State())
	assert.Equal(t, 2, h.rec.Elapsed())
	assert.True(t, h.device.last().released(), "device is released regardless of upload outcome")
}

func TestStartClassifiesDeviceErrors(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{os.ErrPermission, ErrPermissionDenied},
		{&os.PathError{Op: "open", Path: "/dev/dsp", Err: syscall.ENOENT}, ErrDeviceUnavailable},
		{syscall.EBUSY, ErrDeviceBusy},
		{errors.ErrUnsupported, ErrUnsupported},
		{errors.New("weird"), ErrCapture},
		{fmt.Errorf("wrapped: %w", ErrDeviceBusy), ErrDeviceBusy},
	}
	for _, tt := range tests {
		h := newHarness(t)
		h.device.openErr = tt.err
		err := h.rec.Start(context.Background())
		assert.ErrorIs(t, err, tt.want, tt.err.Error())
		assert.Equal(t, Idle, h.rec.State())
	}
}

func TestSoundToggle(t *testing.T) {
	h := newHarness(t)
	h.rec.SetSound(false)
	require.NoError(t, h.rec.Start(context.Background()))
	require.NoError(t, h.rec.Stop(context.Background()))
	assert.Empty(t, h.tones)
}

func TestCloseReleasesDevice(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.rec.Start(context.Background()))
	require.NoError(t, h.rec.Close())

	assert.Equal(t, Idle, h.rec.State())
	assert.True(t, h.device.last().released())
	assert.Empty(t, h.uploader.blobs)
}

func TestFileDeviceEncodesWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.pcm")
	require.NoError(t, os.WriteFile(path, make([]byte, 16000), 0o600))

	d := &FileDevice{Path: path, SampleRate: 8000}
	assert.Equal(t, "audio/wav", NegotiateMIMEType(d))

	src, err := d.Open(context.Background(), "audio/wav")
	require.NoError(t, err)

	fs := src.(*fileSource)
	require.Eventually(t, func() bool {
		fs.mu.Lock()
		defer fs.mu.Unlock()
		return len(fs.pcm) == 16000
	}, time.Second, time.Millisecond)

	chunks, err := src.Stop()
	require.NoError(t, err)
	require.NoError(t, src.Close())
	require.Len(t, chunks, 1)

	header, err := audio.ParseHeader(chunks[0])
	require.NoError(t, err)
	assert.Equal(t, time.Second, header.Duration())
}

func TestFileDeviceMissingInput(t *testing.T) {
	d := &FileDevice{Path: filepath.Join(t.TempDir(), "nope"), SampleRate: 8000}
	_, err := d.Open(context.Background(), "audio/wav")
	assert.ErrorIs(t, Classify(err), ErrDeviceUnavailable)

	_, err = d.Open(context.Background(), "audio/webm")
	assert.ErrorIs(t, err, ErrUnsupported)
}

// gatedDevice blocks in Open until release is closed, like a pending
// permission prompt.
type gatedDevice struct {
	*fakeDevice
	entered chan struct{}
	release chan struct{}
}

func (d *gatedDevice) Open(ctx context.Context, mimeType string) (Source, error) {
	d.entered <- struct{}{}
	<-d.release
	return d.fakeDevice.Open(ctx, mimeType)
}

func within(t *testing.T, d time.Duration, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("%s blocked while the device was being acquired", what)
	}
}

func TestStartDoesNotHoldLockDuringOpen(t *testing.T) {
	h := newHarness(t)
	device := &gatedDevice{fakeDevice: h.device, entered: make(chan struct{}, 1), release: make(chan struct{})}
	h.rec.device = device

	started := make(chan error, 1)
	go func() { started <- h.rec.Start(context.Background()) }()
	<-device.entered

	within(t, 500*time.Millisecond, "State", func() { assert.Equal(t, Idle, h.rec.State()) })
	within(t, 500*time.Millisecond, "Elapsed", func() { h.rec.Elapsed() })
	within(t, 500*time.Millisecond, "SetSound", func() { h.rec.SetSound(false) })
	assert.ErrorIs(t, h.rec.Start(context.Background()), ErrBusy)

	// Closing mid-acquire releases the device once Open returns.
	within(t, 500*time.Millisecond, "Close", func() { assert.NoError(t, h.rec.Close()) })
	close(device.release)

	select {
	case err := <-started:
		assert.ErrorIs(t, err, ErrCapture)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return")
	}
	assert.True(t, h.device.last().released())
	assert.Equal(t, Idle, h.rec.State())

	// A later Start acquires normally.
	go func() { <-device.entered }()
	require.NoError(t, h.rec.Start(context.Background()))
	assert.Equal(t, Recording, h.rec.State())
}
