package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/glowmap"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the glowmap version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "glowmap %s\n", glowmap.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
