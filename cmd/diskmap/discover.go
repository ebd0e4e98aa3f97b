package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sigreer/diskmap/internal/identify"
	"github.com/sigreer/diskmap/internal/inventory"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover controllers, enclosures and drives",
	Long: `Run sas2ircu LIST, sas2ircu <n> DISPLAY for every controller and
prtconf -v, then print the resulting inventory.

Serials reported by prtconf that sas2ircu does not know about are logged
as warnings; the drive was most likely pulled between the two runs.`,
	Args: cobra.NoArgs,
	Run:  runDiscover,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved inventory",
	Args:  cobra.NoArgs,
	Run:   runShow,
}

func init() {
	discoverCmd.Flags().Bool("save", false, "Save the inventory to the snapshot store")
	discoverCmd.Flags().Bool("json", false, "Output as JSON")

	showCmd.Flags().Bool("json", false, "Output as JSON")
}

func runDiscover(cmd *cobra.Command, args []string) {
	save, _ := cmd.Flags().GetBool("save")
	jsonOut, _ := cmd.Flags().GetBool("json")

	cfg := loadConfig()
	logger := newLogger(cfg)
	d := newDiscoverer(cfg, logger)

	inv, _, err := d.Discover()
	if err != nil {
		fatal("%v", err)
	}

	if save {
		store := openStore(cfg)
		defer store.Close()
		if err := store.Save(inv); err != nil {
			fatal("saving snapshot: %v", err)
		}
		logger.Info("snapshot saved", "path", cfg.Snapshot.Path, "format", cfg.Snapshot.Format)
	}

	printInventory(inv, jsonOut)
}

func runShow(cmd *cobra.Command, args []string) {
	jsonOut, _ := cmd.Flags().GetBool("json")

	cfg := loadConfig()
	newLogger(cfg)

	store := openStore(cfg)
	defer store.Close()

	printInventory(loadSnapshot(store), jsonOut)
}

func printInventory(inv *inventory.Inventory, jsonOut bool) {
	var err error
	if jsonOut {
		err = identify.PrintInventoryJSON(os.Stdout, inv)
	} else {
		err = identify.PrintInventory(os.Stdout, inv)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
}
