package listview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/templui/cortex/internal/capture"
	"github.com/templui/cortex/internal/model"
	"github.com/templui/cortex/internal/notestore"
	"github.com/templui/cortex/internal/validation"
)

// RefreshInterval is how often the clock used for relative times is resampled.
const RefreshInterval = 10 * time.Second

var ErrNoteNotFound = errors.New("voice note not found")

// Player is the part of the playback controller the list drives.
type Player interface {
	Toggle(ctx context.Context, note *model.VoiceNote) error
	StopNote(noteID string) bool
}

type Options struct {
	UserID   string         // owner prefix for uploaded blobs
	Location *time.Location // for the searchable date column, default time.Local
	Now      func() time.Time
	OnChange func() // called after every reload or clock resample
}

// Row is a note prepared for display.
type Row struct {
	Note     *model.VoiceNote
	Created  string // relative
	Date     string
	Duration string
}

// View holds the latest fetched notes and the search query. Every mutation
// is followed by a full reload; local copies are never patched.
type View struct {
	store       notestore.Store
	transcriber notestore.Transcriber
	player      Player
	opts        Options

	mu    sync.Mutex
	notes []*model.VoiceNote
	query string
	now   time.Time
}

func New(store notestore.Store, transcriber notestore.Transcriber, opts Options) *View {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &View{
		store:       store,
		transcriber: transcriber,
		opts:        opts,
		now:         opts.Now(),
	}
}

// SetPlayer attaches the playback controller. It is set after construction
// because the controller counts plays through the view.
func (v *View) SetPlayer(p Player) {
	v.mu.Lock()
	v.player = p
	v.mu.Unlock()
}

func (v *View) Reload(ctx context.Context) error {
	notes, err := v.store.List(ctx)
	if err != nil {
		return fmt.Errorf("load voice notes: %w", err)
	}

	v.mu.Lock()
	v.notes = notes
	v.now = v.opts.Now()
	v.mu.Unlock()

	v.changed()
	return nil
}

func (v *View) SetQuery(query string) {
	v.mu.Lock()
	v.query = query
	v.mu.Unlock()
	v.changed()
}

// All returns every loaded note, newest first.
func (v *View) All() []*model.VoiceNote {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.notes
}

// Notes returns the loaded notes matching the current query.
func (v *View) Notes() []*model.VoiceNote {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Filter(v.notes, v.query, v.opts.Location)
}

func (v *View) Rows() []Row {
	v.mu.Lock()
	now := v.now
	notes := Filter(v.notes, v.query, v.opts.Location)
	v.mu.Unlock()

	rows := make([]Row, len(notes))
	for i, n := range notes {
		rows[i] = Row{
			Note:     n,
			Created:  RelativeTime(now, n.CreatedAt),
			Date:     n.CreatedAt.In(v.opts.Location).Format(DateLayout),
			Duration: FormatDuration(n.Duration),
		}
	}
	return rows
}

func (v *View) Stats() Stats {
	return Summarize(v.All())
}

// Find returns a loaded note by id.
func (v *View) Find(id string) (*model.VoiceNote, error) {
	for _, n := range v.All() {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoteNotFound, id)
}

// Upload stores a finished recording under the owner's prefix and creates its
// row. It satisfies capture.Uploader.
func (v *View) Upload(ctx context.Context, blob capture.Blob) error {
	ext, err := validation.AudioExtension(blob.MIMEType)
	if err != nil {
		return err
	}

	now := v.opts.Now()
	path := fmt.Sprintf("%s/%d.%s", v.opts.UserID, now.UnixMilli(), ext)

	stored, err := v.store.UploadBlob(ctx, path, blob.Data, blob.MIMEType)
	if err != nil {
		return fmt.Errorf("upload audio: %w", err)
	}

	_, err = v.store.Create(ctx, model.NewVoiceNote{
		Title:    DefaultTitle(now.In(v.opts.Location), len(v.All())+1),
		AudioURL: stored,
		Duration: blob.Duration,
		FileSize: int64(len(blob.Data)),
	})
	if err != nil {
		return fmt.Errorf("create voice note: %w", err)
	}

	return v.Reload(ctx)
}

func (v *View) Rename(ctx context.Context, id, title string) error {
	err := validation.ValidateTitle(title)
	if err != nil {
		return err
	}
	return v.update(ctx, id, model.VoiceNoteUpdate{Title: &title})
}

func (v *View) ToggleComplete(ctx context.Context, id string) error {
	note, err := v.Find(id)
	if err != nil {
		return err
	}
	completed := !note.Completed
	return v.update(ctx, id, model.VoiceNoteUpdate{Completed: &completed})
}

func (v *View) SaveNotes(ctx context.Context, id, text string) error {
	return v.update(ctx, id, model.VoiceNoteUpdate{Notes: &text})
}

// IncrementPlayCount bumps the stored count by one. The controller calls it
// once per successful playback start.
func (v *View) IncrementPlayCount(ctx context.Context, note *model.VoiceNote) error {
	count := note.PlayCount + 1
	return v.update(ctx, note.ID, model.VoiceNoteUpdate{PlayCount: &count})
}

func (v *View) update(ctx context.Context, id string, update model.VoiceNoteUpdate) error {
	_, err := v.store.Update(ctx, id, update)
	if err != nil {
		return fmt.Errorf("update voice note: %w", err)
	}
	return v.Reload(ctx)
}

// Delete removes the note's blob and then its row. A failed blob delete is
// logged and does not stop the row delete.
func (v *View) Delete(ctx context.Context, id string) error {
	note, err := v.Find(id)
	if err != nil {
		return err
	}

	if !note.HasAbsoluteURL() {
		err = v.store.DeleteBlob(ctx, note.AudioURL)
		if err != nil {
			slog.Warn("audio delete failed, removing note anyway", "note_id", id, "path", note.AudioURL, "error", err)
		}
	}

	err = v.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete voice note: %w", err)
	}

	v.mu.Lock()
	player := v.player
	v.mu.Unlock()
	if player != nil {
		player.StopNote(id)
	}

	return v.Reload(ctx)
}

// Play toggles playback of a loaded note.
func (v *View) Play(ctx context.Context, id string) error {
	note, err := v.Find(id)
	if err != nil {
		return err
	}

	v.mu.Lock()
	player := v.player
	v.mu.Unlock()
	if player == nil {
		return errors.New("no player attached")
	}
	return player.Toggle(ctx, note)
}

// Transcribe requests a transcript of the note's audio and, when save is
// set, stores it as the note's notes.
func (v *View) Transcribe(ctx context.Context, id string, save bool) (string, error) {
	note, err := v.Find(id)
	if err != nil {
		return "", err
	}

	transcript, err := v.transcriber.Transcribe(ctx, note.AudioURL)
	if err != nil {
		return "", err
	}

	if save {
		err = v.SaveNotes(ctx, id, transcript)
		if err != nil {
			return transcript, err
		}
	}
	return transcript, nil
}

// Run resamples the clock every RefreshInterval until ctx is done.
func (v *View) Run(ctx context.Context) {
	ticker := time.NewTicker(RefreshInterval)
	defer ticker.Stop()
	v.run(ctx, ticker.C)
}

func (v *View) run(ctx context.Context, ticks <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			v.mu.Lock()
			v.now = v.opts.Now()
			v.mu.Unlock()
			v.changed()
		}
	}
}

func (v *View) changed() {
	if v.opts.OnChange != nil {
		v.opts.OnChange()
	}
}
