// Package config loads glowmap application settings: a TOML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GLOWMAP_"

// Config represents the application configuration.
type Config struct {
	Render RenderConfig `toml:"render"`
	Server ServerConfig `toml:"server"`
	Source SourceConfig `toml:"source"`
	Log    LogConfig    `toml:"log"`
}

// RenderConfig holds surface and engine settings.
type RenderConfig struct {
	Width           int     `toml:"width"`             // Surface width in pixels
	Height          int     `toml:"height"`            // Surface height in pixels
	Padding         float64 `toml:"padding"`           // Gap between cells in pixels
	LabelStride     int     `toml:"label_stride"`      // Label every n-th period
	MaxBufferPixels int     `toml:"max_buffer_pixels"` // Off-screen buffer budget (0 = default)
	TickMillis      int     `toml:"tick_millis"`       // Animation frame interval
}

// DefaultRenderConfig returns the render defaults.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Width:       960,
		Height:      540,
		Padding:     2,
		LabelStride: 5,
		TickMillis:  16,
	}
}

// TickInterval returns the animation frame interval.
func (r RenderConfig) TickInterval() time.Duration {
	return time.Duration(r.TickMillis) * time.Millisecond
}

// ServerConfig holds the web viewer settings.
type ServerConfig struct {
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// DefaultServerConfig returns the server defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:           ":8080",
		AllowedOrigins: []string{"*"},
	}
}

// SourceConfig holds where snapshots come from.
type SourceConfig struct {
	Path           string `toml:"path"`            // Snapshot file (.json, .yaml, .toml)
	Watch          bool   `toml:"watch"`           // Reload the file when it changes
	DebounceMillis int    `toml:"debounce_millis"` // Coalesce bursts of file events
	NATSURL        string `toml:"nats_url"`        // Empty disables the stream
	Subject        string `toml:"subject"`         // Subject prefix for snapshot and touch messages
}

// DefaultSourceConfig returns the source defaults.
func DefaultSourceConfig() SourceConfig {
	return SourceConfig{
		Watch:          true,
		DebounceMillis: 200,
		Subject:        "coverage",
	}
}

// Debounce returns the file event debounce interval.
func (s SourceConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMillis) * time.Millisecond
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"` // debug, info, warn, error
	JSON  bool   `toml:"json"`  // JSON output instead of text
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Render: DefaultRenderConfig(),
		Server: DefaultServerConfig(),
		Source: DefaultSourceConfig(),
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads the TOML file at path over the defaults and applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decoding config %s: %w", path, err)
		}
	}
	ApplyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv loads .env files into the process environment. Missing files
// are ignored; variables already set are not overridden.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg from GLOWMAP_* environment variables.
func ApplyEnv(cfg *Config) {
	cfg.Render.Width = getEnvAsInt("WIDTH", cfg.Render.Width)
	cfg.Render.Height = getEnvAsInt("HEIGHT", cfg.Render.Height)
	cfg.Render.Padding = getEnvAsFloat("PADDING", cfg.Render.Padding)
	cfg.Render.LabelStride = getEnvAsInt("LABEL_STRIDE", cfg.Render.LabelStride)
	cfg.Render.MaxBufferPixels = getEnvAsInt("MAX_BUFFER_PIXELS", cfg.Render.MaxBufferPixels)
	cfg.Render.TickMillis = getEnvAsInt("TICK_MILLIS", cfg.Render.TickMillis)

	cfg.Server.Addr = getEnv("ADDR", cfg.Server.Addr)
	cfg.Server.AllowedOrigins = getEnvAsSlice("ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)

	cfg.Source.Path = getEnv("SOURCE", cfg.Source.Path)
	cfg.Source.Watch = getEnvAsBool("WATCH", cfg.Source.Watch)
	cfg.Source.DebounceMillis = getEnvAsInt("DEBOUNCE_MILLIS", cfg.Source.DebounceMillis)
	cfg.Source.NATSURL = getEnv("NATS_URL", cfg.Source.NATSURL)
	cfg.Source.Subject = getEnv("SUBJECT", cfg.Source.Subject)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.JSON = getEnvAsBool("LOG_JSON", cfg.Log.JSON)
}

// Validate checks if cfg is usable.
func (c *Config) Validate() error {
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("render size must be positive, got %dx%d", c.Render.Width, c.Render.Height)
	}
	if c.Render.TickMillis <= 0 {
		return fmt.Errorf("tick_millis must be positive, got %d", c.Render.TickMillis)
	}
	if c.Render.Padding < 0 {
		return fmt.Errorf("padding must not be negative, got %v", c.Render.Padding)
	}
	if c.Source.DebounceMillis < 0 {
		return fmt.Errorf("debounce_millis must not be negative, got %d", c.Source.DebounceMillis)
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
