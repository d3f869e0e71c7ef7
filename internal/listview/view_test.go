package listview

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/cortex/internal/capture"
	"github.com/templui/cortex/internal/model"
	"github.com/templui/cortex/internal/notestore"
)

type fakeStore struct {
	mu        sync.Mutex
	notes     map[string]*model.VoiceNote
	blobs     map[string][]byte
	seq       int
	clock     time.Time
	lists     int
	blobErr   error
	deleteErr error
	calls     []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		notes: map[string]*model.VoiceNote{},
		blobs: map[string][]byte{},
		clock: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func (s *fakeStore) List(context.Context) ([]*model.VoiceNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	out := make([]*model.VoiceNote, 0, len(s.notes))
	for _, n := range s.notes {
		cp := *n
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeStore) Create(_ context.Context, in model.NewVoiceNote) (*model.VoiceNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.clock = s.clock.Add(time.Minute)
	n := &model.VoiceNote{
		ID:        string(rune('a' + s.seq - 1)),
		Title:     in.Title,
		AudioURL:  in.AudioURL,
		Duration:  in.Duration,
		FileSize:  in.FileSize,
		CreatedAt: s.clock,
	}
	s.notes[n.ID] = n
	s.calls = append(s.calls, "create")
	return n, nil
}

func (s *fakeStore) Update(_ context.Context, id string, u model.VoiceNoteUpdate) (*model.VoiceNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok {
		return nil, &notestore.StoreError{Op: "update note", Status: 404, Message: "Voice note not found"}
	}
	u.Apply(n)
	cp := *n
	return &cp, nil
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "delete row")
	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.notes, id)
	return nil
}

func (s *fakeStore) UploadBlob(_ context.Context, path string, data []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[path] = data
	s.calls = append(s.calls, "upload")
	return path, nil
}

func (s *fakeStore) DeleteBlob(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "delete blob")
	if s.blobErr != nil {
		return s.blobErr
	}
	delete(s.blobs, path)
	return nil
}

func (s *fakeStore) SignURL(_ context.Context, path string, _ time.Duration) (string, error) {
	return "https://signed/" + path, nil
}

type fakeTranscriber struct {
	path string
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, path string) (string, error) {
	f.path = path
	return f.text, f.err
}

type fakePlayer struct {
	toggled []string
	stopped []string
}

func (p *fakePlayer) Toggle(_ context.Context, note *model.VoiceNote) error {
	p.toggled = append(p.toggled, note.ID)
	return nil
}

func (p *fakePlayer) StopNote(id string) bool {
	p.stopped = append(p.stopped, id)
	return true
}

func newTestView(t *testing.T) (*View, *fakeStore, *fakeTranscriber) {
	t.Helper()
	store := newFakeStore()
	tr := &fakeTranscriber{text: "buy milk"}
	now := time.Date(2025, 3, 10, 12, 30, 0, 0, time.UTC)
	v := New(store, tr, Options{
		UserID:   "u1",
		Location: time.UTC,
		Now:      func() time.Time { return now },
	})
	return v, store, tr
}

func record(t *testing.T, v *View, mime string) *model.VoiceNote {
	t.Helper()
	require.NoError(t, v.Upload(context.Background(), capture.Blob{Data: []byte("audio"), MIMEType: mime, Duration: 12}))
	return v.All()[0]
}

func TestUploadCreatesScopedNoteAndReloads(t *testing.T) {
	v, store, _ := newTestView(t)

	note := record(t, v, "audio/webm;codecs=opus")
	assert.Equal(t, "u1/1741609800000.webm", note.AudioURL)
	assert.Equal(t, "Voice Note 2025-03-10 12-30-00 #1", note.Title)
	assert.Equal(t, 12, note.Duration)
	assert.Equal(t, int64(5), note.FileSize)
	assert.Equal(t, []string{"upload", "create"}, store.calls)
	assert.Equal(t, 1, store.lists)

	second := record(t, v, "audio/mp4")
	assert.Equal(t, "Voice Note 2025-03-10 12-30-00 #2", second.Title)
	assert.Len(t, v.Notes(), 2)
}

func TestUploadRejectsUnknownType(t *testing.T) {
	v, store, _ := newTestView(t)
	err := v.Upload(context.Background(), capture.Blob{Data: []byte("x"), MIMEType: "video/mp4"})
	assert.Error(t, err)
	assert.Empty(t, store.calls)
}

func TestMutationsReload(t *testing.T) {
	v, store, _ := newTestView(t)
	note := record(t, v, "audio/webm")
	ctx := context.Background()

	require.NoError(t, v.Rename(ctx, note.ID, "Standup"))
	require.NoError(t, v.ToggleComplete(ctx, note.ID))
	require.NoError(t, v.SaveNotes(ctx, note.ID, "follow up"))

	got, err := v.Find(note.ID)
	require.NoError(t, err)
	assert.Equal(t, "Standup", got.Title)
	assert.True(t, got.Completed)
	assert.Equal(t, "follow up", got.NotesText())
	assert.Equal(t, 4, store.lists)

	require.NoError(t, v.ToggleComplete(ctx, note.ID))
	got, _ = v.Find(note.ID)
	assert.False(t, got.Completed)

	assert.Error(t, v.Rename(ctx, note.ID, "   "))
}

func TestIncrementPlayCount(t *testing.T) {
	v, _, _ := newTestView(t)
	note := record(t, v, "audio/webm")

	require.NoError(t, v.IncrementPlayCount(context.Background(), note))
	got, _ := v.Find(note.ID)
	assert.Equal(t, 1, got.PlayCount)

	require.NoError(t, v.IncrementPlayCount(context.Background(), got))
	got, _ = v.Find(note.ID)
	assert.Equal(t, 2, got.PlayCount)
	assert.Equal(t, 2, v.Stats().Plays)
}

func TestDeleteRemovesRowWhenBlobDeleteFails(t *testing.T) {
	v, store, _ := newTestView(t)
	player := &fakePlayer{}
	v.SetPlayer(player)
	note := record(t, v, "audio/webm")
	store.calls = nil
	store.blobErr = errors.New("storage unavailable")

	require.NoError(t, v.Delete(context.Background(), note.ID))

	assert.Equal(t, []string{"delete blob", "delete row"}, store.calls)
	assert.Empty(t, v.All())
	assert.Equal(t, []string{note.ID}, player.stopped)
}

func TestDeleteSkipsBlobForAbsoluteURL(t *testing.T) {
	v, store, _ := newTestView(t)
	store.notes["x"] = &model.VoiceNote{ID: "x", AudioURL: "https://cdn.example.com/x.webm"}
	require.NoError(t, v.Reload(context.Background()))

	require.NoError(t, v.Delete(context.Background(), "x"))
	assert.Equal(t, []string{"delete row"}, store.calls)
}

func TestDeleteRowFailureKeepsNote(t *testing.T) {
	v, store, _ := newTestView(t)
	player := &fakePlayer{}
	v.SetPlayer(player)
	note := record(t, v, "audio/webm")
	store.deleteErr = &notestore.StoreError{Op: "delete note", Status: 500, Message: "boom"}

	err := v.Delete(context.Background(), note.ID)
	assert.ErrorIs(t, err, notestore.ErrStore)
	assert.Len(t, v.All(), 1)
	assert.Empty(t, player.stopped)
}

func TestPlayTogglesLoadedNote(t *testing.T) {
	v, _, _ := newTestView(t)
	note := record(t, v, "audio/webm")

	assert.Error(t, v.Play(context.Background(), note.ID))

	player := &fakePlayer{}
	v.SetPlayer(player)
	require.NoError(t, v.Play(context.Background(), note.ID))
	assert.Equal(t, []string{note.ID}, player.toggled)

	assert.ErrorIs(t, v.Play(context.Background(), "missing"), ErrNoteNotFound)
}

func TestTranscribeSave(t *testing.T) {
	v, _, tr := newTestView(t)
	note := record(t, v, "audio/webm")

	text, err := v.Transcribe(context.Background(), note.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "buy milk", text)
	assert.Equal(t, note.AudioURL, tr.path)
	got, _ := v.Find(note.ID)
	assert.Empty(t, got.NotesText())

	_, err = v.Transcribe(context.Background(), note.ID, true)
	require.NoError(t, err)
	got, _ = v.Find(note.ID)
	assert.Equal(t, "buy milk", got.NotesText())

	tr.err = &notestore.StoreError{Op: "transcribe", Status: 500, Message: "No transcript generated."}
	_, err = v.Transcribe(context.Background(), note.ID, true)
	assert.Error(t, err)
}

func TestQueryAndRows(t *testing.T) {
	v, _, _ := newTestView(t)
	note := record(t, v, "audio/webm")
	require.NoError(t, v.Rename(context.Background(), note.ID, "Dentist"))
	record(t, v, "audio/webm")

	v.SetQuery("dent")
	rows := v.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "Dentist", rows[0].Note.Title)
	assert.Equal(t, "29 minutes ago", rows[0].Created)
	assert.Equal(t, "3/10/2025", rows[0].Date)
	assert.Equal(t, "0m 12s", rows[0].Duration)

	v.SetQuery("")
	assert.Len(t, v.Rows(), 2)
}

func TestRunResamplesClock(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	changes := make(chan struct{}, 4)

	store := newFakeStore()
	store.notes["a"] = &model.VoiceNote{ID: "a", Title: "t", CreatedAt: now}
	v := New(store, &fakeTranscriber{}, Options{
		Location: time.UTC,
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		},
		OnChange: func() { changes <- struct{}{} },
	})
	require.NoError(t, v.Reload(context.Background()))
	<-changes
	assert.Equal(t, "just now", v.Rows()[0].Created)

	ctx, cancel := context.WithCancel(context.Background())
	ticks := make(chan time.Time)
	done := make(chan struct{})
	go func() {
		v.run(ctx, ticks)
		close(done)
	}()

	mu.Lock()
	now = now.Add(30 * time.Second)
	mu.Unlock()
	ticks <- time.Time{}
	<-changes
	assert.Equal(t, "30 seconds ago", v.Rows()[0].Created)

	cancel()
	<-done
}
