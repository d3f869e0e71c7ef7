package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
)

// ClientConfig configures the cortex CLI.
type ClientConfig struct {
	ServerURL      string
	SessionPath    string
	SoundEnabled   bool
	RequestTimeout time.Duration
	SampleRate     int
	PlayerCommand  string // e.g. "aplay -q"; audio goes to stdout when empty
}

// LoadClient reads client settings. Unlike Load it never exits; callers decide
// what to do with a validation error.
func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	cfg := &ClientConfig{
		ServerURL:      strings.TrimSuffix(envString("CORTEX_URL", "http://localhost:8090"), "/"),
		SessionPath:    envString("CORTEX_SESSION", defaultSessionPath()),
		SoundEnabled:   envBool("CORTEX_SOUND", true),
		RequestTimeout: envDuration("CORTEX_TIMEOUT", 30*time.Second),
		SampleRate:     int(envInt64("CORTEX_SAMPLE_RATE", 16000)),
		PlayerCommand:  envString("CORTEX_PLAYER", ""),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ClientConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ServerURL, validation.Required, is.URL),
		validation.Field(&c.SessionPath, validation.Required),
		validation.Field(&c.RequestTimeout, validation.Required),
		validation.Field(&c.SampleRate, validation.Required, validation.Min(8000), validation.Max(192000)),
	)
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".cortex-session.json"
	}
	return filepath.Join(dir, "cortex", "session.json")
}
