package main

import (
	"github.com/spf13/cobra"

	"github.com/sigreer/diskmap/internal/shell"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start the interactive shell",
	Long: `Start an interactive session holding one inventory in memory.

Commands: discover, save, load, print [json], identify <query>, help, quit.`,
	Args: cobra.NoArgs,
	Run:  runShell,
}

func runShell(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	logger := newLogger(cfg)
	d := newDiscoverer(cfg, logger)

	store := openStore(cfg)
	defer store.Close()

	if err := shell.Run(d, store, logLevelOf(cfg)); err != nil {
		fatal("%v", err)
	}
}
