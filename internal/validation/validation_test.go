package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("ada@example.com"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail(strings.Repeat("a", 250)+"@example.com"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("correct horse battery"))
	assert.Error(t, ValidatePassword("short"))
	assert.Error(t, ValidatePassword("mypassword123"))
	assert.Error(t, ValidatePassword(strings.Repeat("x", 73)))
}

func TestValidateTitle(t *testing.T) {
	assert.NoError(t, ValidateTitle("Voice Note 2024-03-01 12-00-00 #1"))
	assert.Error(t, ValidateTitle("   "))
	assert.Error(t, ValidateTitle(strings.Repeat("é", 201)))
}

func TestAudioExtension(t *testing.T) {
	tests := map[string]string{
		"audio/webm;codecs=opus": "webm",
		"audio/webm":             "webm",
		"audio/mp4":              "mp4",
		"audio/wav":              "wav",
		"audio/mpeg":             "mp3",
	}
	for contentType, want := range tests {
		got, err := AudioExtension(contentType)
		require.NoError(t, err, contentType)
		assert.Equal(t, want, got)
	}

	_, err := AudioExtension("image/png")
	assert.ErrorIs(t, err, ErrUnsupportedAudio)
	assert.ErrorIs(t, ValidateAudioType(""), ErrUnsupportedAudio)
}

func TestValidateStoragePath(t *testing.T) {
	assert.NoError(t, ValidateStoragePath("u1", "u1/1700000000000.webm"))

	for _, path := range []string{
		"u2/1.webm",
		"u1",
		"u1/",
		"u1/../u2/1.webm",
		"u1//1.webm",
		"u10/1.webm",
		"/u1/1.webm",
	} {
		assert.ErrorIs(t, ValidateStoragePath("u1", path), ErrPathScope, path)
	}
	assert.ErrorIs(t, ValidateStoragePath("", "/1.webm"), ErrPathScope)
}

func TestAudioContentType(t *testing.T) {
	assert.Equal(t, "audio/wav", AudioContentType("u1/1.wav"))
	assert.Equal(t, "audio/mpeg", AudioContentType("u1/1.MP3"))
	assert.Equal(t, "audio/mp4", AudioContentType("u1/1.mp4"))
	assert.Equal(t, "audio/webm", AudioContentType("u1/1.webm"))
	assert.Equal(t, "audio/webm", AudioContentType("u1/noext"))
}
