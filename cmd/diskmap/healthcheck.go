package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigreer/diskmap/internal/health"
	"github.com/sigreer/diskmap/internal/inventory"
	"github.com/sigreer/diskmap/internal/snapshot"
	"github.com/sigreer/diskmap/internal/zfs"
)

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check drive and pool health",
	Long: `Run a discovery and compare it with the saved inventory:
  - Report drives missing from, moved within or new to the enclosures
  - Report drives whose controller state is not Ready/Optimal
  - Report drives without an OS device and prtconf serials without a drive
  - Check ZFS pools and give the slot of every faulted disk
  - Save the new inventory (with --update)`,
	Args: cobra.NoArgs,
	Run:  runHealthcheck,
}

func init() {
	healthcheckCmd.Flags().Bool("json", false, "Output as JSON")
	healthcheckCmd.Flags().Bool("update", false, "Save the discovered inventory after the check")
	healthcheckCmd.Flags().Bool("no-pools", false, "Skip the ZFS pool check")
}

func runHealthcheck(cmd *cobra.Command, args []string) {
	jsonOut, _ := cmd.Flags().GetBool("json")
	update, _ := cmd.Flags().GetBool("update")
	noPools, _ := cmd.Flags().GetBool("no-pools")

	cfg := loadConfig()
	logger := newLogger(cfg)
	d := newDiscoverer(cfg, logger)

	store := openStore(cfg)
	defer store.Close()

	// Saved inventory is optional - without it only the current state is checked
	baseline, err := store.Load()
	if err != nil {
		if !errors.Is(err, snapshot.ErrNoSnapshot) {
			logger.Warn("could not load saved inventory", "error", err)
		}
		baseline = nil
	}

	current, warnings, err := d.Discover()
	if err != nil {
		fatal("%v", err)
	}

	var pools []*zfs.Pool
	if !noPools {
		pools, err = d.Pools()
		if err != nil {
			logger.Warn("skipping pool check", "error", err)
		}
	}

	result := health.Check(health.Input{
		Baseline: baseline,
		Current:  current,
		Warnings: warnings,
		Pools:    pools,
	})

	if update {
		if err := store.Save(current); err != nil {
			fatal("saving snapshot: %v", err)
		}
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(result)
		return
	}

	printHealthcheckText(result, baseline)
}

func printHealthcheckText(result *health.Result, baseline *inventory.Inventory) {
	statusSymbol := "✓"
	if result.Status == health.StatusWarning {
		statusSymbol = "⚠"
	} else if result.Status == health.StatusCritical {
		statusSymbol = "✗"
	}

	fmt.Printf("\n%s Health Check: %s\n", statusSymbol, strings.ToUpper(result.Status))
	fmt.Printf("  Timestamp: %s\n", result.Timestamp.Format("2006-01-02 15:04:05"))
	if baseline == nil {
		fmt.Println("  No saved inventory, missing drives cannot be detected")
	}
	fmt.Println()

	// Drives
	fmt.Println("Drives:")
	fmt.Printf("  Expected: %d | Present: %d | Mapped: %d\n",
		result.Drives.Expected, result.Drives.Present, result.Drives.Mapped)

	for _, a := range result.Alerts {
		if !strings.HasPrefix(a.Category, "drive_") && a.Category != "serial_unmatched" {
			continue
		}
		symbol := "+"
		switch a.Severity {
		case health.SeverityCritical:
			symbol = "✗"
		case health.SeverityWarning:
			symbol = "⚠"
		}
		fmt.Printf("  %s %s\n", symbol, a.Message)
	}
	fmt.Println()

	// Pools
	if len(result.Pools) > 0 {
		fmt.Println("ZFS Pools:")
		for _, pool := range result.Pools {
			symbol := "✓"
			if pool.State != zfs.StateOnline {
				symbol = "✗"
			} else if pool.ErrorCount > 0 {
				symbol = "⚠"
			}

			fmt.Printf("  %s %s: %s", symbol, pool.Name, pool.State)
			if pool.ErrorCount > 0 {
				fmt.Printf(" (%d errors)", pool.ErrorCount)
			}
			if pool.ScanState != "" && pool.ScanState != "none" {
				fmt.Printf(" [%s]", pool.ScanState)
			}
			fmt.Println()

			if len(pool.Faulted) > 0 {
				fmt.Printf("    Faulted: %s\n", strings.Join(pool.Faulted, ", "))
			}
		}
		fmt.Println()
	}

	// Alerts summary
	if len(result.Alerts) > 0 {
		critCount, warnCount := result.Counts()
		fmt.Printf("Alerts: %d critical, %d warnings\n", critCount, warnCount)
	}
}
