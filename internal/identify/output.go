package identify

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/sigreer/diskmap/internal/inventory"
)

// PrintJSON outputs the lookup result as JSON
func PrintJSON(w io.Writer, result *LookupResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// PrintTable outputs the lookup result as a formatted table
func PrintTable(w io.Writer, result *LookupResult) {
	fmt.Fprintf(w, "Query:      %s\n", result.Query)
	fmt.Fprintf(w, "Matched As: %s\n", result.MatchedAs)
	if result.Drive.DevicePath != "" {
		fmt.Fprintf(w, "Device:     %s\n", result.Drive.DevicePath)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%-20s %s\n", "IDENTIFIER", "VALUE")
	fmt.Fprintln(w, strings.Repeat("-", 60))

	d := result.Drive

	// Identification
	printField(w, "Serial", d.Serial)
	printField(w, "Manufacturer", d.Manufacturer)
	printField(w, "Model", d.Model)
	printField(w, "Firmware", d.Firmware)

	// Characteristics
	printField(w, "State", d.State)
	printField(w, "Size", FormatSize(d.SizeMB))
	if d.SizeSectors > 0 {
		printField(w, "Sectors", humanize.Comma(d.SizeSectors))
	}
	printField(w, "Protocol", d.Protocol)
	printField(w, "Drive Type", d.DriveType)

	// Location
	printField(w, "Location", d.Location())
	printField(w, "Slot", fmt.Sprintf("%d", d.Slot))
	if e := result.Enclosure; e != nil {
		printField(w, "Enclosure", fmt.Sprintf("%d (%s, %d slots)", e.Index, e.ID, e.NumSlots))
	} else {
		printField(w, "Enclosure", d.Enclosure)
	}
	if c := result.Controller; c != nil {
		printField(w, "Controller", fmt.Sprintf("%d (%s at %s)", c.ID, c.AdapterType, c.PCIAddress))
	}
	printField(w, "Device Path", d.DevicePath)
}

// printField prints a field if value is non-empty
func printField(w io.Writer, label, value string) {
	if value != "" {
		fmt.Fprintf(w, "%-20s %s\n", label, value)
	}
}

// PrintQuiet outputs only the device path
func PrintQuiet(w io.Writer, result *LookupResult) {
	if result.Drive.DevicePath != "" {
		fmt.Fprintln(w, result.Drive.DevicePath)
	} else {
		// Unmapped drives are identified by serial
		fmt.Fprintln(w, result.Drive.Serial)
	}
}

// FormatSize renders a sas2ircu size in MB (2^20 bytes) in SI units, the
// way drive capacities are labelled.
func FormatSize(sizeMB int64) string {
	if sizeMB <= 0 {
		return ""
	}
	return humanize.Bytes(uint64(sizeMB) << 20)
}

// inventoryView is the JSON form of a whole inventory
type inventoryView struct {
	RunID       string                 `json:"run_id,omitempty"`
	Controllers []*inventory.Controller `json:"controllers"`
	Enclosures  []*inventory.Enclosure  `json:"enclosures"`
	Drives      []*inventory.Drive      `json:"drives"`
}

// PrintInventoryJSON outputs controllers, enclosures and unique drives as JSON
func PrintInventoryJSON(w io.Writer, inv *inventory.Inventory) error {
	view := inventoryView{
		RunID:       inv.RunID,
		Controllers: inv.ControllerList(),
		Enclosures:  inv.EnclosureList(),
		Drives:      inv.DriveList(),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}

// PrintInventory outputs the inventory as three tables
func PrintInventory(w io.Writer, inv *inventory.Inventory) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "CTRL\tADAPTER\tPCI ADDRESS\tVENDOR\tDEVICE")
	for _, c := range inv.ControllerList() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", c.ID, c.AdapterType, c.PCIAddress, c.VendorID, c.DeviceID)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "CTRL\tENCL\tLOGICAL ID\tSLOTS")
	for _, e := range inv.EnclosureList() {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%d\n", e.Controller, e.Index, e.ID, e.NumSlots)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "LOCATION\tSERIAL\tMODEL\tSIZE\tSTATE\tTYPE\tDEVICE")
	for _, d := range inv.DriveList() {
		dev := d.DevicePath
		if dev == "" {
			dev = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Location(), d.Serial, strings.TrimSpace(d.Manufacturer+" "+d.Model),
			FormatSize(d.SizeMB), d.State, d.DriveType, dev)
	}
	return tw.Flush()
}
