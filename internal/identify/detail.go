package identify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sigreer/diskmap/internal/inventory"
)

// ParseControllerRef parses a controller reference such as "c0"
func ParseControllerRef(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "c") {
		return 0, fmt.Errorf("invalid controller %q, use c0, c1, ...", s)
	}
	id, err := strconv.Atoi(s[1:])
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid controller %q, use c0, c1, ...", s)
	}
	return id, nil
}

// ControllerDrives returns the drives attached to one controller in slot order
func ControllerDrives(inv *inventory.Inventory, controller int) []*inventory.Drive {
	var drives []*inventory.Drive
	for _, d := range inv.DriveList() {
		if d.Controller == controller {
			drives = append(drives, d)
		}
	}
	return drives
}

// ControllerEnclosures returns the enclosures attached to one controller
func ControllerEnclosures(inv *inventory.Inventory, controller int) []*inventory.Enclosure {
	var encs []*inventory.Enclosure
	for _, e := range inv.EnclosureList() {
		if e.Controller == controller {
			encs = append(encs, e)
		}
	}
	return encs
}

// DriveField returns a single attribute of a drive by name.
// ok is false for an unknown field name.
func DriveField(d *inventory.Drive, field string) (value string, ok bool) {
	switch strings.ToLower(field) {
	case "serial":
		return d.Serial, true
	case "model":
		return d.Model, true
	case "manufacturer", "mfg":
		return d.Manufacturer, true
	case "firmware", "fw":
		return d.Firmware, true
	case "protocol":
		return d.Protocol, true
	case "type", "drive_type":
		return d.DriveType, true
	case "state":
		return d.State, true
	case "slot":
		return strconv.Itoa(d.Slot), true
	case "enclosure", "enc":
		return strconv.Itoa(d.EnclosureIndex), true
	case "controller", "ctrl":
		return strconv.Itoa(d.Controller), true
	case "location", "loc":
		return d.Location(), true
	case "size":
		return fmt.Sprintf("%d MB", d.SizeMB), true
	case "device", "device_path", "dev":
		return d.DevicePath, true
	}
	return "", false
}
