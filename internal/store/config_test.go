package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"taskdeck-cli/internal/syncer"
	"taskdeck-cli/internal/taskapi"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.ini"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.URL != taskapi.DefaultBaseURL {
		t.Fatalf("expected default url, got %q", cfg.Server.URL)
	}
	if cfg.Sync.Interval.Std() != syncer.DefaultInterval || cfg.Sync.FailureThreshold != syncer.DefaultFailureThreshold {
		t.Fatalf("unexpected sync defaults: %+v", cfg.Sync)
	}
}

func TestLoadConfig_ReadsINI(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.ini")
	ini := `
[server]
url = http://nas.local:5800/api
timeout = 3s

[sync]
interval = 2s
failure-threshold = 5

[ui]
glyphs = ascii
language = en-US

[log]
level = debug
`
	if err := os.WriteFile(p, []byte(ini), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.URL != "http://nas.local:5800/api" || cfg.Server.Timeout.Std() != 3*time.Second {
		t.Fatalf("unexpected server params: %+v", cfg.Server)
	}
	if cfg.Sync.Interval.Std() != 2*time.Second || cfg.Sync.FailureThreshold != 5 {
		t.Fatalf("unexpected sync params: %+v", cfg.Sync)
	}
	if !cfg.ASCIIGlyphs() || cfg.UI.Language != "en-US" {
		t.Fatalf("unexpected ui params: %+v", cfg.UI)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("unexpected log level %q", cfg.Log.Level)
	}
}

func TestLoadConfig_RejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"zero interval":  "[sync]\ninterval = 0s\n",
		"bad duration":   "[sync]\ninterval = soon\n",
		"threshold":      "[sync]\nfailure-threshold = 0\n",
		"glyphs":         "[ui]\nglyphs = emoji\n",
		"unknown option": "[server]\nproxy = x\n",
	}
	for name, body := range cases {
		name, body := name, body
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), "config.ini")
			if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := LoadConfig(p); err == nil {
				t.Fatalf("expected error for %q", body)
			}
		})
	}
}

func TestConfigDir_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TASKDECK_CONFIG_DIR", dir)
	got, err := ConfigDir()
	if err != nil {
		t.Fatalf("config dir: %v", err)
	}
	if got != dir {
		t.Fatalf("expected %q, got %q", dir, got)
	}
}
