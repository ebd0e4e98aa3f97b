package main

import (
	"github.com/spf13/cobra"

	"github.com/sigreer/diskmap/internal/metrics"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics <file>",
	Short: "Write the inventory as a Prometheus textfile",
	Long: `Write slot, drive and mapping gauges for the node_exporter textfile
collector. The file is replaced atomically.

Example:
  diskmap metrics /var/lib/node_exporter/textfile/diskmap.prom`,
	Args: cobra.ExactArgs(1),
	Run:  runMetrics,
}

func init() {
	metricsCmd.Flags().Bool("live", false, "Run discovery instead of reading the snapshot")
}

func runMetrics(cmd *cobra.Command, args []string) {
	live, _ := cmd.Flags().GetBool("live")

	cfg := loadConfig()
	logger := newLogger(cfg)

	inv := currentInventory(cfg, logger, live)

	if err := metrics.Export(inv, args[0]); err != nil {
		fatal("%v", err)
	}
	logger.Info("metrics written", "path", args[0], "drives", len(inv.DriveList()))
}
