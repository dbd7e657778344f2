package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"taskdeck-cli/internal/model"
	"taskdeck-cli/internal/syncer"
	"taskdeck-cli/internal/taskapi"

	"gopkg.in/gcfg.v1"
)

// Duration is a time.Duration read from INI values like "5s" or "1m30s".
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

type ServerParams struct {
	URL     string   `gcfg:"url"`
	Timeout Duration `gcfg:"timeout"`
}

type SyncParams struct {
	Interval         Duration `gcfg:"interval"`
	FailureThreshold int      `gcfg:"failure-threshold"`
}

type UIParams struct {
	Glyphs   string `gcfg:"glyphs"`
	Language string `gcfg:"language"`
}

type LogParams struct {
	Level string `gcfg:"level"`
	File  string `gcfg:"file"`
}

// Config is the client configuration (config.ini in ConfigDir).
type Config struct {
	Server ServerParams
	Sync   SyncParams
	UI     UIParams
	Log    LogParams
}

const DefaultTimeout = 15 * time.Second

func DefaultConfig() Config {
	return Config{
		Server: ServerParams{
			URL:     taskapi.DefaultBaseURL,
			Timeout: Duration(DefaultTimeout),
		},
		Sync: SyncParams{
			Interval:         Duration(syncer.DefaultInterval),
			FailureThreshold: syncer.DefaultFailureThreshold,
		},
		UI: UIParams{
			Glyphs:   "unicode",
			Language: model.DefaultLanguage,
		},
		Log: LogParams{
			Level: "info",
		},
	}
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.taskdeck).
	if v := strings.TrimSpace(os.Getenv("TASKDECK_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".taskdeck"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.ini"), nil
}

// LoadConfig reads the INI file at p on top of DefaultConfig. A missing file
// is not an error.
func LoadConfig(p string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(p) == "" {
		return cfg, nil
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := gcfg.ReadFileInto(&cfg, p); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %s", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid config file %s: %w", p, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Sync.Interval.Std() <= 0 {
		return errors.New("sync.interval must be positive")
	}
	if c.Sync.FailureThreshold < 1 {
		return errors.New("sync.failure-threshold must be at least 1")
	}
	if c.Server.Timeout.Std() < 0 {
		return errors.New("server.timeout must not be negative")
	}
	switch strings.ToLower(strings.TrimSpace(c.UI.Glyphs)) {
	case "", "unicode", "utf8", "ascii":
	default:
		return fmt.Errorf("ui.glyphs: unknown glyph set %q", c.UI.Glyphs)
	}
	return nil
}

// ASCIIGlyphs reports whether the ASCII glyph set is selected.
func (c Config) ASCIIGlyphs() bool {
	return strings.EqualFold(strings.TrimSpace(c.UI.Glyphs), "ascii")
}
