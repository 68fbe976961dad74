// Command glowmap renders and serves coverage heatmaps.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/gogpu/glowmap"
	"github.com/gogpu/glowmap/internal/config"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "glowmap",
	Short: "Coverage heatmap renderer",
	Long: `glowmap draws a (period x tier) coverage grid as a field of glowing
blobs, with a ripple around the selected cell and a fading alert color
on cells whose counts just increased.

It can render a snapshot file to PNG or serve an interactive viewer
that follows a snapshot file or a NATS stream.`,
	SilenceUsage: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		return config.LoadEnv()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (TOML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// loadConfig reads the config file and applies the --log-level flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger, err := newLogger(os.Stderr, cfg.Log, isatty.IsTerminal(os.Stderr.Fd()))
	if err != nil {
		return nil, err
	}
	glowmap.SetLogger(logger)
	return cfg, nil
}

// newLogger builds the process logger: text on a terminal, JSON
// otherwise or when forced by the config.
func newLogger(w io.Writer, cfg config.LogConfig, terminal bool) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.JSON || !terminal {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// engineOptions maps render settings to engine options.
func engineOptions(r config.RenderConfig) []glowmap.Option {
	return []glowmap.Option{
		glowmap.WithPadding(r.Padding),
		glowmap.WithLabelStride(r.LabelStride),
		glowmap.WithMaxBufferPixels(r.MaxBufferPixels),
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
