package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/cortex/internal/storage"
	"google.golang.org/genai"
)

type fakeGenerator struct {
	replies map[string]string
	errs    map[string]error
	calls   []string
	mime    string
}

func (g *fakeGenerator) Generate(_ context.Context, model, prompt string, audio []byte, mimeType string) (string, error) {
	g.calls = append(g.calls, model)
	g.mime = mimeType
	if err, ok := g.errs[model]; ok {
		return "", err
	}
	return g.replies[model], nil
}

type scopedMemory struct {
	*storage.Memory
}

func (s scopedMemory) OpenAudio(ctx context.Context, userID, path string) (io.ReadCloser, error) {
	if !strings.HasPrefix(path, userID+"/") {
		return nil, errors.New("path is outside the caller's scope")
	}
	return s.Open(ctx, path)
}

func newTranscription(t *testing.T, gen Generator) *TranscriptionService {
	t.Helper()
	mem := storage.NewMemory()
	require.NoError(t, mem.Save(context.Background(), "u1/1.wav", strings.NewReader("RIFF"), "audio/wav"))
	return NewTranscriptionService(scopedMemory{mem}, gen, []string{"m1", "m2", "m3"})
}

func TestTranscribeFallsBackAcrossModels(t *testing.T) {
	gen := &fakeGenerator{
		errs:    map[string]error{"m1": errors.New("model not found")},
		replies: map[string]string{"m2": "  hello world \n"},
	}
	svc := newTranscription(t, gen)

	text, err := svc.Transcribe(context.Background(), "u1", "u1/1.wav")
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	assert.Equal(t, []string{"m1", "m2"}, gen.calls)
	assert.Equal(t, "audio/wav", gen.mime)
}

func TestTranscribeAllModelsFail(t *testing.T) {
	gen := &fakeGenerator{errs: map[string]error{
		"m1": errors.New("boom"),
		"m2": errors.New("boom"),
		"m3": genai.APIError{Code: 429, Message: "Resource has been exhausted"},
	}}
	svc := newTranscription(t, gen)

	_, err := svc.Transcribe(context.Background(), "u1", "u1/1.wav")
	var modelErr *ModelError
	require.ErrorAs(t, err, &modelErr)
	assert.Equal(t, "Resource has been exhausted", modelErr.Message)
	assert.Len(t, gen.calls, 3)
}

func TestTranscribeEmptyTranscript(t *testing.T) {
	svc := newTranscription(t, &fakeGenerator{replies: map[string]string{"m1": "   "}})
	_, err := svc.Transcribe(context.Background(), "u1", "u1/1.wav")
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestTranscribeInputErrors(t *testing.T) {
	ctx := context.Background()
	svc := newTranscription(t, &fakeGenerator{})

	_, err := svc.Transcribe(ctx, "u1", "")
	assert.ErrorIs(t, err, ErrPathRequired)

	_, err = svc.Transcribe(ctx, "u1", "u1/missing.wav")
	assert.ErrorIs(t, err, ErrAudioNotFound)

	_, err = svc.Transcribe(ctx, "u2", "u1/1.wav")
	var downloadErr *DownloadError
	assert.ErrorAs(t, err, &downloadErr)

	unconfigured := newTranscription(t, nil)
	_, err = unconfigured.Transcribe(ctx, "u1", "u1/1.wav")
	assert.ErrorIs(t, err, ErrModelNotConfigured)
}
