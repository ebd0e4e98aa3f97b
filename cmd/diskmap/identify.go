package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sigreer/diskmap/internal/identify"
)

var identifyCmd = &cobra.Command{
	Use:   "identify <query>",
	Short: "Look up a drive by serial, device or slot",
	Long: `Find a drive in the saved inventory and print everything known about it.

Supports: serial numbers (WD- prefix and case are ignored), device paths,
bare device names, and enclosure slots.

Examples:
  diskmap identify WD-WCAY01234567
  diskmap identify /dev/rdsk/c1t50014EE2B1234567d0
  diskmap identify c1t50014EE2B1234567d0
  diskmap identify 1:4                          # Enclosure 1, slot 4
  diskmap identify 0:1:4                        # Controller 0, enclosure 1, slot 4`,
	Args: cobra.ExactArgs(1),
	Run:  runIdentify,
}

func init() {
	identifyCmd.Flags().StringP("output", "o", "json", "Output format: json, table")
	identifyCmd.Flags().BoolP("quiet", "q", false, "Only output device path")
	identifyCmd.Flags().Bool("live", false, "Run discovery instead of reading the snapshot")
}

func runIdentify(cmd *cobra.Command, args []string) {
	query := args[0]
	outputFmt, _ := cmd.Flags().GetString("output")
	quiet, _ := cmd.Flags().GetBool("quiet")
	live, _ := cmd.Flags().GetBool("live")

	cfg := loadConfig()
	logger := newLogger(cfg)

	inv := currentInventory(cfg, logger, live)

	result, err := identify.Lookup(inv, query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Not found: %s\n", query)
		os.Exit(1)
	}

	if quiet {
		identify.PrintQuiet(os.Stdout, result)
		return
	}

	switch outputFmt {
	case "table":
		identify.PrintTable(os.Stdout, result)
	default:
		if err := identify.PrintJSON(os.Stdout, result); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
			os.Exit(1)
		}
	}
}
