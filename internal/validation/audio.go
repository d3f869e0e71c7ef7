package validation

import (
	"errors"
	"fmt"
	"mime"
	"strings"
)

var (
	ErrPathScope        = errors.New("path is outside the caller's scope")
	ErrUnsupportedAudio = errors.New("unsupported audio type")
)

// audioExtensions maps accepted base MIME types to their blob file extension.
var audioExtensions = map[string]string{
	"audio/webm":  "webm",
	"audio/mp4":   "mp4",
	"audio/wav":   "wav",
	"audio/x-wav": "wav",
	"audio/mpeg":  "mp3",
	"audio/ogg":   "ogg",
}

// AudioExtension returns the file extension for an audio content type. Codec
// parameters such as "audio/webm;codecs=opus" are ignored.
func AudioExtension(contentType string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAudio, contentType)
	}

	ext, ok := audioExtensions[mediaType]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedAudio, mediaType)
	}

	return ext, nil
}

// ValidateAudioType accepts only the audio MIME types the recorder can produce.
func ValidateAudioType(contentType string) error {
	_, err := AudioExtension(contentType)
	return err
}

// ValidateStoragePath requires path to live under "<userID>/" with no
// traversal or empty segments.
func ValidateStoragePath(userID, path string) error {
	if userID == "" || path == "" {
		return ErrPathScope
	}

	if !strings.HasPrefix(path, userID+"/") {
		return ErrPathScope
	}

	for _, segment := range strings.Split(path, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return ErrPathScope
		}
	}

	return nil
}

// AudioContentType infers the content type from a blob path's extension,
// defaulting to audio/webm.
func AudioContentType(path string) string {
	ext := ""
	if i := strings.LastIndex(path, "."); i >= 0 {
		ext = strings.ToLower(path[i+1:])
	}

	switch ext {
	case "mp4", "m4a":
		return "audio/mp4"
	case "wav":
		return "audio/wav"
	case "mp3":
		return "audio/mpeg"
	case "ogg":
		return "audio/ogg"
	}
	return "audio/webm"
}
