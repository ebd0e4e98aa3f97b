package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sigreer/diskmap/internal/config"
	"github.com/sigreer/diskmap/internal/db"
)

var historyCmd = &cobra.Command{
	Use:   "history [serial]",
	Short: "Show drive events recorded by saved discoveries",
	Long: `Show the discovered, moved, mapped and removed events recorded each
time an inventory is saved to the SQLite backend (snapshot.format: sqlite).

Without a serial the most recent events of all drives are shown.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 50, "Maximum number of events to show")
	historyCmd.Flags().Bool("json", false, "Output as JSON")
}

func runHistory(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOut, _ := cmd.Flags().GetBool("json")

	cfg := loadConfig()
	newLogger(cfg)
	if cfg.Snapshot.Format != config.FormatSQLite {
		fatal("history needs the sqlite snapshot backend (snapshot.format is %s)", cfg.Snapshot.Format)
	}

	database, err := db.New(cfg.Snapshot.Path)
	if err != nil {
		fatal("opening database: %v", err)
	}
	defer database.Close()

	var events []*db.DriveEvent
	if len(args) == 1 {
		events, err = database.DriveEvents(args[0], limit)
	} else {
		events, err = database.RecentEvents(limit)
	}
	if err != nil {
		fatal("querying events: %v", err)
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(events); err != nil {
			fatal("encoding output: %v", err)
		}
		return
	}

	if len(events) == 0 {
		fmt.Println("No events recorded")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tSERIAL\tEVENT\tFROM\tTO\tDEVICE")
	for _, ev := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			ev.Timestamp.Local().Format("2006-01-02 15:04:05"),
			ev.Serial, ev.EventType, dash(ev.OldLocation), dash(ev.NewLocation), dash(ev.DevicePath))
	}
	w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
