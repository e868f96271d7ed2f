package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"slidecast/internal/config"
)

func validConfig(t *testing.T) config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.OutputDir = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	return cfg
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := validConfig(t)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.TTS.Voice == "" {
		t.Fatal("default voice must be set")
	}
	if cfg.Paths.APIBind == "" {
		t.Fatal("default API bind must be set")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{
			name:    "missing staging dir",
			mutate:  func(c *config.Config) { c.Paths.StagingDir = "" },
			wantErr: "staging_dir",
		},
		{
			name:    "rate below minimum",
			mutate:  func(c *config.Config) { c.TTS.RatePercent = config.MinRatePercent - 1 },
			wantErr: "rate_percent",
		},
		{
			name:    "rate above maximum",
			mutate:  func(c *config.Config) { c.TTS.RatePercent = config.MaxRatePercent + 1 },
			wantErr: "rate_percent",
		},
		{
			name:    "dpi too low",
			mutate:  func(c *config.Config) { c.Render.ImageExportDPI = 10 },
			wantErr: "image_export_dpi",
		},
		{
			name:    "odd video width",
			mutate:  func(c *config.Config) { c.Video.TargetWidth = 1281 },
			wantErr: "even",
		},
		{
			name:    "zero fps",
			mutate:  func(c *config.Config) { c.Video.TargetFPS = 0 },
			wantErr: "target_fps",
		},
		{
			name: "heartbeat timeout not above interval",
			mutate: func(c *config.Config) {
				c.Workflow.HeartbeatInterval = 30
				c.Workflow.HeartbeatTimeout = 30
			},
			wantErr: "heartbeat_timeout",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *config.Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig(t)
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q missing %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("missing file should report exists=false")
	}
	if resolved != path {
		t.Fatalf("expected resolved path %q, got %q", path, resolved)
	}
	defaults := config.Default()
	if cfg.TTS.Voice != defaults.TTS.Voice {
		t.Fatalf("expected default voice, got %q", cfg.TTS.Voice)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "config.toml")
	content := `
[paths]
staging_dir = "` + filepath.Join(base, "work") + `"
output_dir = "` + filepath.Join(base, "videos") + `"

[tts]
voice = "en-US-JennyNeural"
rate_percent = 140

[subtitles]
enabled = false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.TTS.Voice != "en-US-JennyNeural" || cfg.TTS.RatePercent != 140 {
		t.Fatalf("overrides not applied: %q %d", cfg.TTS.Voice, cfg.TTS.RatePercent)
	}
	if cfg.Subtitles.Enabled {
		t.Fatal("subtitles override not applied")
	}
	if cfg.Paths.StagingDir != filepath.Join(base, "work") {
		t.Fatalf("staging dir not applied: %q", cfg.Paths.StagingDir)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[tts]
rate_percent = 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected out-of-range rate to fail load")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	expanded, err := config.ExpandPath("~/decks")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if expanded != filepath.Join(home, "decks") {
		t.Fatalf("expected home expansion, got %q", expanded)
	}

	abs, err := config.ExpandPath("relative/dir")
	if err != nil {
		t.Fatalf("ExpandPath relative: %v", err)
	}
	if !filepath.IsAbs(abs) {
		t.Fatalf("expected absolute path, got %q", abs)
	}
}

func TestQueueDatabasePath(t *testing.T) {
	cfg := validConfig(t)
	want := filepath.Join(cfg.Paths.StagingDir, "queue.db")
	if got := cfg.QueueDatabasePath(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[tts]") {
		t.Fatalf("sample missing tts section:\n%s", data)
	}

	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
}
