package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/templui/cortex/internal/storage"
	"github.com/templui/cortex/internal/validation"
	"google.golang.org/genai"
)

const transcriptionPrompt = "Please transcribe this audio file accurately. Return only the transcribed text without any additional commentary."

var (
	ErrPathRequired       = errors.New("file path is required")
	ErrModelNotConfigured = errors.New("transcription model not configured")
	ErrAudioNotFound      = errors.New("audio file not found")
	ErrEmptyTranscript    = errors.New("no transcript generated")
)

// DownloadError reports a failed blob read other than a missing object.
type DownloadError struct {
	Err error
}

func (e *DownloadError) Error() string {
	return "failed to download audio file: " + e.Err.Error()
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// ModelError carries the last upstream message after every model failed.
type ModelError struct {
	Message string
}

func (e *ModelError) Error() string {
	return "transcription failed: " + e.Message
}

// Generator sends audio to a generative model and returns its text reply.
type Generator interface {
	Generate(ctx context.Context, model, prompt string, audio []byte, mimeType string) (string, error)
}

// GeminiGenerator implements Generator with the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
}

func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, model, prompt string, audio []byte, mimeType string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(audio, mimeType),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// AudioOpener reads a blob under a user's scope.
type AudioOpener interface {
	OpenAudio(ctx context.Context, userID, path string) (io.ReadCloser, error)
}

type TranscriptionService struct {
	audio     AudioOpener
	generator Generator
	models    []string
}

// NewTranscriptionService returns a service trying models in order. A nil
// generator means no API key is configured.
func NewTranscriptionService(audio AudioOpener, generator Generator, models []string) *TranscriptionService {
	return &TranscriptionService{
		audio:     audio,
		generator: generator,
		models:    models,
	}
}

// Transcribe downloads the caller's blob and returns the first non-failing
// model's transcript.
func (s *TranscriptionService) Transcribe(ctx context.Context, userID, path string) (string, error) {
	if path == "" {
		return "", ErrPathRequired
	}
	if s.generator == nil {
		return "", ErrModelNotConfigured
	}

	data, err := s.download(ctx, userID, path)
	if err != nil {
		return "", err
	}

	slog.Info("transcribing audio", "path", path, "size", len(data))
	mimeType := validation.AudioContentType(path)

	var lastErr error
	for _, model := range s.models {
		text, err := s.generator.Generate(ctx, model, transcriptionPrompt, data, mimeType)
		if err != nil {
			lastErr = err
			slog.Warn("transcription model failed", "model", model, "error", err)
			continue
		}

		transcript := strings.TrimSpace(text)
		if transcript == "" {
			return "", ErrEmptyTranscript
		}
		return transcript, nil
	}

	if lastErr == nil {
		return "", &ModelError{Message: "no transcription models configured"}
	}
	slog.Error("all transcription models failed", "error", lastErr)
	return "", &ModelError{Message: upstreamMessage(lastErr)}
}

func (s *TranscriptionService) download(ctx context.Context, userID, path string) ([]byte, error) {
	rc, err := s.audio.OpenAudio(ctx, userID, path)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrAudioNotFound
		}
		return nil, &DownloadError{Err: err}
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &DownloadError{Err: err}
	}
	if len(data) == 0 {
		return nil, ErrAudioNotFound
	}
	return data, nil
}

// upstreamMessage extracts the model API's own message when available.
func upstreamMessage(err error) string {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr.Message != "" {
		return apiErrPtr.Message
	}
	return err.Error()
}

// Configured reports whether a model client is available.
func (s *TranscriptionService) Configured() bool {
	return s.generator != nil
}
