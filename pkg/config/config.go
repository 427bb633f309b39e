package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Camera struct {
		Device    string `yaml:"device"`
		Width     int    `yaml:"width"`
		Height    int    `yaml:"height"`
		FrameRate int    `yaml:"frame_rate"`
		Quality   int    `yaml:"quality"`
		// Force the synthetic source even when hardware is present.
		Synthetic bool `yaml:"synthetic"`
	} `yaml:"camera"`

	Stream struct {
		// Consecutive capture failures tolerated before the session is
		// treated as fatally degraded and stopped.
		MaxCaptureFailures int `yaml:"max_capture_failures"`
		// Per-viewer frame queue depth; the oldest unconsumed frame is
		// dropped when a consumer falls behind.
		ViewerQueueSize int           `yaml:"viewer_queue_size"`
		AcquireTimeout  time.Duration `yaml:"acquire_timeout"`
	} `yaml:"stream"`

	Storage struct {
		Enabled        bool          `yaml:"enabled"`
		Directory      string        `yaml:"directory"`
		RecorderQueue  int           `yaml:"recorder_queue"`
		MaxRecording   time.Duration `yaml:"max_recording"`
	} `yaml:"storage"`

	Monitoring struct {
		PrometheusEnabled bool          `yaml:"prometheus_enabled"`
		MetricsInterval   time.Duration `yaml:"metrics_interval"`
	} `yaml:"monitoring"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
	} `yaml:"redis"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		HTTP struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
			MaxConcurrent     int     `yaml:"max_concurrent"`
		} `yaml:"http"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server.write_timeout must be >= 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	// Camera
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera resolution must be positive, got %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Camera.FrameRate <= 0 || c.Camera.FrameRate > 60 {
		return fmt.Errorf("camera.frame_rate must be in 1..60")
	}
	if c.Camera.Quality < 1 || c.Camera.Quality > 100 {
		return fmt.Errorf("camera.quality must be in 1..100")
	}

	// Stream
	if c.Stream.MaxCaptureFailures <= 0 {
		return fmt.Errorf("stream.max_capture_failures must be > 0")
	}
	if c.Stream.ViewerQueueSize <= 0 {
		return fmt.Errorf("stream.viewer_queue_size must be > 0")
	}
	if c.Stream.AcquireTimeout <= 0 {
		return fmt.Errorf("stream.acquire_timeout must be > 0")
	}

	// Storage
	if c.Storage.Enabled {
		if c.Storage.Directory == "" {
			return fmt.Errorf("storage.directory must not be empty when storage.enabled=true")
		}
		if c.Storage.RecorderQueue <= 0 {
			return fmt.Errorf("storage.recorder_queue must be > 0 when storage.enabled=true")
		}
	}

	// Monitoring
	if c.Monitoring.MetricsInterval <= 0 {
		return fmt.Errorf("monitoring.metrics_interval must be > 0")
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
func Load(configPath string) (*Config, error) {
	// If file does not exist, fall back to defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	// Default values
	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 0 // long-lived multipart responses must not time out
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.Camera.Device = "/dev/video0"
	cfg.Camera.Width = 1280
	cfg.Camera.Height = 720
	cfg.Camera.FrameRate = 15
	cfg.Camera.Quality = 85
	cfg.Camera.Synthetic = false

	cfg.Stream.MaxCaptureFailures = 3
	cfg.Stream.ViewerQueueSize = 8
	cfg.Stream.AcquireTimeout = 2 * time.Second

	cfg.Storage.Enabled = true
	cfg.Storage.Directory = "recordings"
	cfg.Storage.RecorderQueue = 32
	cfg.Storage.MaxRecording = 0 // unbounded unless a duration is requested

	cfg.Monitoring.PrometheusEnabled = true
	cfg.Monitoring.MetricsInterval = 30 * time.Second

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10

	// Rate limiting defaults (disabled by default)
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.RateLimiting.HTTP.Burst = 100

	return cfg
}

func (c *Config) applyEnvOverrides() {
	// Apply environment variable overrides
	if addr := os.Getenv("PETWATCH_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if dev := os.Getenv("PETWATCH_CAMERA_DEVICE"); dev != "" {
		c.Camera.Device = dev
	}
	if v := os.Getenv("PETWATCH_CAMERA_SYNTHETIC"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Camera.Synthetic = b
		}
	}
	if dir := os.Getenv("PETWATCH_STORAGE_DIR"); dir != "" {
		c.Storage.Directory = dir
	}
	if level := os.Getenv("PETWATCH_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}
