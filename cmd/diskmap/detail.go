package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sigreer/diskmap/internal/identify"
	"github.com/sigreer/diskmap/internal/inventory"
)

var detailCmd = &cobra.Command{
	Use:   "detail <item> [query]",
	Short: "Query details about controllers, enclosures, and drives",
	Long: `Query specific details about SAS controllers, their enclosures, and drives.

Controller queries:
  detail c0                - Show all controller info
  detail c0 drives         - List attached drives
  detail c0 enclosures     - List attached enclosures

Drive queries:
  detail 2:5               - Show drive at enclosure 2, slot 5
  detail 0:2:5             - Same, on controller 0
  detail serial:ZA1DKJT7   - Look up drive by serial number
  detail 2:5 model         - Print one field

Examples:
  diskmap detail c0
  diskmap detail c0 drives --json
  diskmap detail 2:5 device --raw`,
	Args: cobra.RangeArgs(1, 2),
	Run:  runDetail,
}

func init() {
	detailCmd.Flags().Bool("raw", false, "Output raw value only (no formatting)")
	detailCmd.Flags().Bool("json", false, "Output as JSON")
	detailCmd.Flags().Bool("live", false, "Run discovery instead of reading the snapshot")
}

func runDetail(cmd *cobra.Command, args []string) {
	item := args[0]
	query := ""
	if len(args) > 1 {
		query = strings.ToLower(args[1])
	}

	raw, _ := cmd.Flags().GetBool("raw")
	jsonOut, _ := cmd.Flags().GetBool("json")
	live, _ := cmd.Flags().GetBool("live")

	cfg := loadConfig()
	logger := newLogger(cfg)
	inv := currentInventory(cfg, logger, live)

	lower := strings.ToLower(item)
	switch {
	case strings.HasPrefix(lower, "c") && !strings.Contains(lower, ":"):
		handleControllerQuery(inv, item, query, jsonOut)
	case strings.HasPrefix(lower, "serial:"):
		d, ok := inv.Lookup(item[len("serial:"):])
		if !ok {
			fatal("no drive found with serial '%s'", item[len("serial:"):])
		}
		printDrive(inv, d, query, raw, jsonOut)
	case strings.Contains(item, ":"):
		result, err := identify.Lookup(inv, strings.TrimPrefix(lower, "e"))
		if err != nil {
			fatal("no drive found at %s", item)
		}
		printDrive(inv, result.Drive, query, raw, jsonOut)
	default:
		fmt.Fprintf(os.Stderr, "Unknown item type '%s'\n", item)
		fmt.Fprintln(os.Stderr, "Supported formats:")
		fmt.Fprintln(os.Stderr, "  c0, c1, ...     - Controllers")
		fmt.Fprintln(os.Stderr, "  2:5, 0:2:5      - Drive by [controller:]enclosure:slot")
		fmt.Fprintln(os.Stderr, "  serial:ABC123   - Drive by serial number")
		os.Exit(1)
	}
}

func handleControllerQuery(inv *inventory.Inventory, item, query string, jsonOut bool) {
	id, err := identify.ParseControllerRef(item)
	if err != nil {
		fatal("%v", err)
	}
	ctrl, ok := inv.Controllers[id]
	if !ok {
		fatal("controller %d not found", id)
	}

	switch query {
	case "":
		showControllerInfo(inv, ctrl, jsonOut)
	case "devices", "disks", "drives":
		showControllerDrives(inv, id, jsonOut)
	case "enclosures", "enc":
		showControllerEnclosures(inv, id, jsonOut)
	default:
		fmt.Fprintf(os.Stderr, "Unknown query '%s' for controller\n", query)
		fmt.Fprintln(os.Stderr, "Supported queries: drives, enclosures (or none for all info)")
		os.Exit(1)
	}
}

func encodeJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

func showControllerInfo(inv *inventory.Inventory, ctrl *inventory.Controller, jsonOut bool) {
	enclosures := identify.ControllerEnclosures(inv, ctrl.ID)
	drives := identify.ControllerDrives(inv, ctrl.ID)

	if jsonOut {
		encodeJSON(map[string]any{
			"controller":  ctrl,
			"enclosures":  enclosures,
			"drive_count": len(drives),
		})
		return
	}

	fmt.Printf("Controller c%d\n", ctrl.ID)
	fmt.Println(strings.Repeat("=", 50))

	fmt.Println("\nIdentification:")
	fmt.Printf("  Adapter Type:   %s\n", ctrl.AdapterType)

	fmt.Println("\nPCI:")
	fmt.Printf("  Address:        %s\n", ctrl.PCIAddress)
	fmt.Printf("  Vendor/Device:  %s / %s\n", ctrl.VendorID, ctrl.DeviceID)
	if ctrl.SubsysVendorID != "" {
		fmt.Printf("  Subsystem:      %s / %s\n", ctrl.SubsysVendorID, ctrl.SubsysDeviceID)
	}

	mapped := 0
	for _, d := range drives {
		if d.Mapped() {
			mapped++
		}
	}
	fmt.Printf("\nAttached: %d enclosure(s), %d drive(s), %d mapped\n", len(enclosures), len(drives), mapped)
}

func showControllerDrives(inv *inventory.Inventory, id int, jsonOut bool) {
	drives := identify.ControllerDrives(inv, id)

	if jsonOut {
		encodeJSON(drives)
		return
	}

	fmt.Printf("Drives attached to c%d\n", id)
	fmt.Println(strings.Repeat("=", 100))
	fmt.Printf("%-6s %-6s %-20s %-18s %-10s %-14s %s\n",
		"ENC", "SLOT", "SERIAL", "MODEL", "SIZE", "STATE", "DEVICE")
	fmt.Println(strings.Repeat("-", 100))

	for _, d := range drives {
		fmt.Printf("%-6d %-6d %-20s %-18s %-10s %-14s %s\n",
			d.EnclosureIndex, d.Slot, d.Serial, d.Model, identify.FormatSize(d.SizeMB), d.State, dash(d.DevicePath))
	}
	fmt.Printf("\nTotal: %d drives\n", len(drives))
}

func showControllerEnclosures(inv *inventory.Inventory, id int, jsonOut bool) {
	enclosures := identify.ControllerEnclosures(inv, id)

	if jsonOut {
		encodeJSON(enclosures)
		return
	}

	fmt.Printf("Enclosures attached to c%d\n", id)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("%-6s %-20s %-8s %s\n", "INDEX", "LOGICAL ID", "SLOTS", "DRIVES")
	fmt.Println(strings.Repeat("-", 60))

	for _, e := range enclosures {
		occupied := 0
		for _, d := range inv.DriveList() {
			if d.Enclosure == e.ID {
				occupied++
			}
		}
		fmt.Printf("%-6d %-20s %-8d %d\n", e.Index, e.ID, e.NumSlots, occupied)
	}
}

func printDrive(inv *inventory.Inventory, d *inventory.Drive, query string, raw, jsonOut bool) {
	if query != "" {
		val, ok := identify.DriveField(d, query)
		if !ok {
			fatal("unknown field '%s'", query)
		}
		if jsonOut {
			json.NewEncoder(os.Stdout).Encode(map[string]string{query: val})
		} else if raw {
			fmt.Println(val)
		} else {
			fmt.Printf("%s: %s\n", query, val)
		}
		return
	}

	if jsonOut {
		encodeJSON(d)
		return
	}

	fmt.Printf("Drive at Controller %d, Enclosure %d, Slot %d\n", d.Controller, d.EnclosureIndex, d.Slot)
	fmt.Println(strings.Repeat("=", 50))

	fmt.Println("\nIdentification:")
	fmt.Printf("  Serial:         %s\n", d.Serial)
	fmt.Printf("  Manufacturer:   %s\n", d.Manufacturer)
	fmt.Printf("  Model:          %s\n", d.Model)
	fmt.Printf("  Firmware:       %s\n", d.Firmware)

	fmt.Println("\nConnectivity:")
	fmt.Printf("  Protocol:       %s\n", d.Protocol)
	fmt.Printf("  Drive Type:     %s\n", d.DriveType)
	if e, ok := inv.Enclosures[d.Enclosure]; ok {
		fmt.Printf("  Enclosure:      %s (%d slots)\n", e.ID, e.NumSlots)
	}
	fmt.Printf("  Device:         %s\n", dash(d.DevicePath))

	fmt.Println("\nCapacity:")
	fmt.Printf("  Size:           %s\n", identify.FormatSize(d.SizeMB))
	fmt.Printf("  Sectors:        %d\n", d.SizeSectors)

	fmt.Println("\nStatus:")
	fmt.Printf("  State:          %s\n", d.State)
}
