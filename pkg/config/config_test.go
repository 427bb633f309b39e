package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate, got: %v", err)
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "empty server address",
			mutate: func(c *Config) { c.Server.Address = "" },
		},
		{
			name:   "zero camera width",
			mutate: func(c *Config) { c.Camera.Width = 0 },
		},
		{
			name:   "frame rate above 60",
			mutate: func(c *Config) { c.Camera.FrameRate = 61 },
		},
		{
			name:   "quality out of range",
			mutate: func(c *Config) { c.Camera.Quality = 0 },
		},
		{
			name:   "non-positive capture failure bound",
			mutate: func(c *Config) { c.Stream.MaxCaptureFailures = 0 },
		},
		{
			name:   "zero viewer queue",
			mutate: func(c *Config) { c.Stream.ViewerQueueSize = 0 },
		},
		{
			name: "storage enabled without directory",
			mutate: func(c *Config) {
				c.Storage.Enabled = true
				c.Storage.Directory = ""
			},
		},
		{
			name: "redis enabled without address",
			mutate: func(c *Config) {
				c.Redis.Enabled = true
				c.Redis.Address = ""
			},
		},
		{
			name: "rate limiting enabled with zero rps",
			mutate: func(c *Config) {
				c.RateLimiting.Enabled = true
				c.RateLimiting.HTTP.RequestsPerSecond = 0
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestValidate_RateLimitingDisabled_AllowsZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 0
	cfg.RateLimiting.HTTP.Burst = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to be valid when rate limiting disabled, got error: %v", err)
	}
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("missing config file must not fail: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("expected default address, got %s", cfg.Server.Address)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
camera:
  width: 640
  height: 480
  frame_rate: 10
stream:
  acquire_timeout: 5s
storage:
  enabled: false
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if cfg.Camera.Width != 640 || cfg.Camera.Height != 480 {
		t.Fatalf("camera resolution not applied: %dx%d", cfg.Camera.Width, cfg.Camera.Height)
	}
	if cfg.Camera.FrameRate != 10 {
		t.Fatalf("frame rate not applied: %d", cfg.Camera.FrameRate)
	}
	if cfg.Stream.AcquireTimeout != 5*time.Second {
		t.Fatalf("acquire timeout not applied: %v", cfg.Stream.AcquireTimeout)
	}
	if cfg.Storage.Enabled {
		t.Fatal("storage.enabled=false not applied")
	}
	// Untouched sections keep defaults
	if cfg.Camera.Quality != 85 {
		t.Fatalf("expected default quality, got %d", cfg.Camera.Quality)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PETWATCH_CAMERA_DEVICE", "/dev/video9")
	t.Setenv("PETWATCH_CAMERA_SYNTHETIC", "true")
	t.Setenv("PETWATCH_STORAGE_DIR", "/tmp/petwatch-recordings")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if cfg.Camera.Device != "/dev/video9" {
		t.Fatalf("device override not applied: %s", cfg.Camera.Device)
	}
	if !cfg.Camera.Synthetic {
		t.Fatal("synthetic override not applied")
	}
	if cfg.Storage.Directory != "/tmp/petwatch-recordings" {
		t.Fatalf("storage dir override not applied: %s", cfg.Storage.Directory)
	}
}
