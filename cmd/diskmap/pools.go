package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sigreer/diskmap/internal/zfs"
)

var poolsCmd = &cobra.Command{
	Use:   "pools",
	Short: "Show the enclosure slot of every ZFS pool disk",
	Long: `Run zpool status and match each pool disk to the drive mapped to its
device, to find the slot of a faulted disk before pulling it.

Disks are matched against the saved inventory unless --live is given.`,
	Args: cobra.NoArgs,
	Run:  runPools,
}

func init() {
	poolsCmd.Flags().Bool("json", false, "Output as JSON")
	poolsCmd.Flags().Bool("live", false, "Run discovery instead of reading the snapshot")
	poolsCmd.Flags().Bool("faulted", false, "Only show disks that are not ONLINE")
}

func runPools(cmd *cobra.Command, args []string) {
	jsonOut, _ := cmd.Flags().GetBool("json")
	live, _ := cmd.Flags().GetBool("live")
	faultedOnly, _ := cmd.Flags().GetBool("faulted")

	cfg := loadConfig()
	logger := newLogger(cfg)
	inv := currentInventory(cfg, logger, live)

	members, err := newDiscoverer(cfg, logger).DiscoverPools(inv)
	if err != nil {
		fatal("%v", err)
	}

	if faultedOnly {
		var filtered []zfs.Member
		for _, m := range members {
			if m.State != zfs.StateOnline && m.State != "AVAIL" {
				filtered = append(filtered, m)
			}
		}
		members = filtered
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(members); err != nil {
			fatal("encoding output: %v", err)
		}
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "POOL\tVDEV\tDEVICE\tSTATE\tERRORS\tLOCATION\tSERIAL")
	for _, m := range members {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			m.Pool, m.Vdev, m.Device, m.State, m.Errors, dash(m.Location), dash(m.Serial))
	}
	w.Flush()
}
