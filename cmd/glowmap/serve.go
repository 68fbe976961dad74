package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gogpu/glowmap"
	"github.com/gogpu/glowmap/internal/config"
	"github.com/gogpu/glowmap/internal/server"
	"github.com/gogpu/glowmap/internal/source"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve [SNAPSHOT]",
	Short: "Serve the interactive viewer",
	Long: `Serve the interactive heatmap viewer over HTTP.

Snapshots come from a file (reloaded when it changes) and, if a NATS
URL is configured, from <subject>.snapshot messages. Messages on
<subject>.touched mark single cells as updated.

Examples:
  glowmap serve coverage.json
  GLOWMAP_NATS_URL=nats://localhost:4222 glowmap serve`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if len(args) > 0 {
			cfg.Source.Path = args[0]
		}
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := glowmap.Logger()
	srv := server.New(server.Config{
		Addr:           cfg.Server.Addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Width:          cfg.Render.Width,
		Height:         cfg.Render.Height,
		TickInterval:   cfg.Render.TickInterval(),
		Options:        engineOptions(cfg.Render),
	})
	hub := srv.Hub()

	if path := cfg.Source.Path; path != "" {
		snap, err := source.Load(path)
		if err != nil {
			return err
		}
		hub.SetSnapshot(snap)
		log.Info("serve: snapshot loaded", "path", path, "cells", len(snap.Cells))

		if cfg.Source.Watch {
			w, err := source.Watch(path, hub.SetSnapshot, source.WithDebounce(cfg.Source.Debounce()))
			if err != nil {
				return err
			}
			defer w.Close()
		}
	}

	if url := cfg.Source.NATSURL; url != "" {
		nc, err := source.Connect(url, "glowmap")
		if err != nil {
			return err
		}
		defer nc.Close()
		stream, err := source.Subscribe(nc, cfg.Source.Subject, source.StreamHandler{
			OnSnapshot: hub.SetSnapshot,
			OnTouch:    hub.Touch,
		})
		if err != nil {
			return err
		}
		defer stream.Close()
	}

	return srv.ListenAndServe(ctx)
}
