package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/glowmap"
	"github.com/gogpu/glowmap/internal/source"
)

var touchCmd = &cobra.Command{
	Use:   "touch PERIOD/TIER...",
	Short: "Publish cell-touched notifications to NATS",
	Long: `Publish <subject>.touched messages so that running viewers flash the
given cells in the alert color.

Example:
  glowmap touch 2024/5 2023/2`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Source.NATSURL == "" {
			return fmt.Errorf("no NATS URL configured (set source.nats_url or GLOWMAP_NATS_URL)")
		}

		keys := make([]glowmap.CellKey, 0, len(args))
		for _, a := range args {
			k, err := glowmap.ParseCellKey(a)
			if err != nil {
				return err
			}
			keys = append(keys, k)
		}

		nc, err := source.Connect(cfg.Source.NATSURL, "glowmap-touch")
		if err != nil {
			return err
		}
		defer nc.Close()
		for _, k := range keys {
			if err := source.PublishTouch(nc, cfg.Source.Subject, k.Period, k.Tier); err != nil {
				return err
			}
		}
		return nc.Flush()
	},
}

func init() {
	rootCmd.AddCommand(touchCmd)
}
