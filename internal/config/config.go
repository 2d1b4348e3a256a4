// Package config loads settings for the sentiment binaries from an optional
// JSON file, SENTIMENT_* environment variables and built-in defaults, in
// increasing order of precedence: defaults < file < environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tsawler/sentiment"
)

// Model configures training and the neutral-override threshold.
type Model struct {
	Dir         string  `json:"dir"`
	Language    string  `json:"language"`
	Threshold   float64 `json:"threshold"`
	MaxFeatures int     `json:"max_features"`
	MinTokenLen int     `json:"min_token_len"`
	C           float64 `json:"c"`
	MaxIter     int     `json:"max_iter"`
	Tolerance   float64 `json:"tolerance"`
	KeepBundles int     `json:"keep_bundles"`
}

// Data names the training and validation CSV files.
type Data struct {
	TrainPath      string `json:"train_path"`
	ValidationPath string `json:"validation_path"`
}

// Server configures the HTTP API.
type Server struct {
	Addr            string  `json:"addr"`
	RateLimit       float64 `json:"rate_limit"` // Requests per second; 0 disables limiting.
	RateBurst       int     `json:"rate_burst"`
	MaxBatch        int     `json:"max_batch"`
	ReadTimeout     string  `json:"read_timeout"`
	WriteTimeout    string  `json:"write_timeout"`
	IdleTimeout     string  `json:"idle_timeout"`
	ShutdownTimeout string  `json:"shutdown_timeout"`
}

// Redis configures the classification job queue.
type Redis struct {
	Addr       string `json:"addr"`
	Password   string `json:"password"`
	DB         int    `json:"db"`
	Queue      string `json:"queue"`
	PopTimeout string `json:"pop_timeout"`
}

// Postgres configures the prediction store. An empty DSN disables storage.
type Postgres struct {
	DSN string `json:"dsn"`
}

// Feeds configures the RSS/Atom poller. No URLs disables polling.
type Feeds struct {
	URLs     []string `json:"urls"`
	Interval string   `json:"interval"`
}

// Log configures the slog handler.
type Log struct {
	Level string `json:"level"`
}

// Config is the complete configuration shared by all binaries.
type Config struct {
	Model    Model    `json:"model"`
	Data     Data     `json:"data"`
	Server   Server   `json:"server"`
	Redis    Redis    `json:"redis"`
	Postgres Postgres `json:"postgres"`
	Feeds    Feeds    `json:"feeds"`
	Log      Log      `json:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Model: Model{
			Dir:         "model",
			Language:    string(sentiment.English),
			Threshold:   sentiment.DefaultThreshold,
			MaxFeatures: 5000,
			MinTokenLen: 2,
			C:           1.0,
			MaxIter:     1000,
			Tolerance:   1e-4,
			KeepBundles: sentiment.DefaultKeepBundles,
		},
		Data: Data{
			TrainPath:      "data/twitter_training.csv",
			ValidationPath: "data/twitter_validation.csv",
		},
		Server: Server{
			Addr:            ":8080",
			RateLimit:       100,
			RateBurst:       200,
			MaxBatch:        100,
			ReadTimeout:     "5s",
			WriteTimeout:    "10s",
			IdleTimeout:     "60s",
			ShutdownTimeout: "10s",
		},
		Redis: Redis{
			Addr:       "localhost:6379",
			Queue:      "sentiment:jobs",
			PopTimeout: "5s",
		},
		Feeds: Feeds{
			Interval: "5m",
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load reads configPath if it exists, applies environment overrides and
// validates the result. An empty configPath skips the file.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := applyEnv(cfg, os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
		return nil
	}
	float := func(key string, dst *float64) error {
		if v := getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = f
		}
		return nil
	}

	str("SENTIMENT_MODEL_DIR", &cfg.Model.Dir)
	str("SENTIMENT_LANGUAGE", &cfg.Model.Language)
	str("SENTIMENT_TRAIN_PATH", &cfg.Data.TrainPath)
	str("SENTIMENT_VALIDATION_PATH", &cfg.Data.ValidationPath)
	str("SENTIMENT_HTTP_ADDR", &cfg.Server.Addr)
	str("SENTIMENT_REDIS_ADDR", &cfg.Redis.Addr)
	str("SENTIMENT_REDIS_PASSWORD", &cfg.Redis.Password)
	str("SENTIMENT_REDIS_QUEUE", &cfg.Redis.Queue)
	str("SENTIMENT_POSTGRES_DSN", &cfg.Postgres.DSN)
	str("SENTIMENT_FEED_INTERVAL", &cfg.Feeds.Interval)
	str("SENTIMENT_LOG_LEVEL", &cfg.Log.Level)

	if v := getenv("SENTIMENT_FEEDS"); v != "" {
		var urls []string
		if strings.HasPrefix(strings.TrimSpace(v), "[") {
			if err := json.Unmarshal([]byte(v), &urls); err != nil {
				return fmt.Errorf("SENTIMENT_FEEDS: %w", err)
			}
		} else {
			for _, u := range strings.Split(v, ",") {
				if u = strings.TrimSpace(u); u != "" {
					urls = append(urls, u)
				}
			}
		}
		cfg.Feeds.URLs = urls
	}

	for _, err := range []error{
		float("SENTIMENT_THRESHOLD", &cfg.Model.Threshold),
		num("SENTIMENT_MAX_FEATURES", &cfg.Model.MaxFeatures),
		float("SENTIMENT_C", &cfg.Model.C),
		num("SENTIMENT_MAX_ITER", &cfg.Model.MaxIter),
		num("SENTIMENT_KEEP_BUNDLES", &cfg.Model.KeepBundles),
		float("SENTIMENT_RATE_LIMIT", &cfg.Server.RateLimit),
		num("SENTIMENT_RATE_BURST", &cfg.Server.RateBurst),
		num("SENTIMENT_REDIS_DB", &cfg.Redis.DB),
	} {
		if err != nil {
			return fmt.Errorf("environment override: %w", err)
		}
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Model.Dir == "" {
		return fmt.Errorf("model.dir is required")
	}
	if !sentiment.IsSupported(sentiment.Language(c.Model.Language)) {
		return fmt.Errorf("model.language %q is not supported", c.Model.Language)
	}
	if c.Model.Threshold <= 0 || c.Model.Threshold > 1 {
		return fmt.Errorf("model.threshold %v must be in (0,1]", c.Model.Threshold)
	}
	if c.Model.MaxFeatures < 0 {
		return fmt.Errorf("model.max_features %d must not be negative", c.Model.MaxFeatures)
	}
	if c.Model.MinTokenLen < 1 {
		return fmt.Errorf("model.min_token_len %d must be at least 1", c.Model.MinTokenLen)
	}
	if c.Model.C <= 0 {
		return fmt.Errorf("model.c %v must be positive", c.Model.C)
	}
	if c.Model.MaxIter <= 0 {
		return fmt.Errorf("model.max_iter %d must be positive", c.Model.MaxIter)
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("server rate limit %v/%d must not be negative", c.Server.RateLimit, c.Server.RateBurst)
	}
	if c.Server.MaxBatch <= 0 {
		return fmt.Errorf("server.max_batch %d must be positive", c.Server.MaxBatch)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	for name, d := range map[string]string{
		"server.read_timeout":     c.Server.ReadTimeout,
		"server.write_timeout":    c.Server.WriteTimeout,
		"server.idle_timeout":     c.Server.IdleTimeout,
		"server.shutdown_timeout": c.Server.ShutdownTimeout,
		"redis.pop_timeout":       c.Redis.PopTimeout,
		"feeds.interval":          c.Feeds.Interval,
	} {
		if v, err := time.ParseDuration(d); err != nil || v <= 0 {
			return fmt.Errorf("%s %q is not a positive duration", name, d)
		}
	}
	return nil
}

// TrainingConfig converts the model settings for sentiment.Trainer.
func (c *Config) TrainingConfig() sentiment.TrainingConfig {
	tc := sentiment.DefaultTrainingConfig()
	tc.Language = sentiment.Language(c.Model.Language)
	tc.Vectorizer.MaxFeatures = c.Model.MaxFeatures
	tc.Vectorizer.MinTokenLen = c.Model.MinTokenLen
	tc.Classifier.C = c.Model.C
	tc.Classifier.MaxIter = c.Model.MaxIter
	tc.Classifier.Tolerance = c.Model.Tolerance
	return tc
}

// PipelineConfig returns the training pipeline inputs.
func (c *Config) PipelineConfig(logger *slog.Logger) sentiment.PipelineConfig {
	tc := c.TrainingConfig()
	tc.Logger = logger
	return sentiment.PipelineConfig{
		TrainPath:      c.Data.TrainPath,
		ValidationPath: c.Data.ValidationPath,
		ModelDir:       c.Model.Dir,
		KeepBundles:    c.Model.KeepBundles,
		Training:       tc,
		Logger:         logger,
	}
}

// AnalyzerConfig returns inference settings.
func (c *Config) AnalyzerConfig(logger *slog.Logger) sentiment.AnalyzerConfig {
	return sentiment.AnalyzerConfig{Threshold: c.Model.Threshold, Logger: logger}
}

// Duration parses a validated duration setting.
func Duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// LogLevel returns the configured slog level.
func (c *Config) LogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log.level %q is not one of debug, info, warn, error", s)
}

// NewLogger returns a JSON slog logger writing to stderr at the configured level.
func (c *Config) NewLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: c.LogLevel(),
	}))
}
