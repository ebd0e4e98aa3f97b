package devtree

import (
	"fmt"
	"log/slog"

	"github.com/sigreer/diskmap/internal/inventory"
)

// DefaultTemplate turns a client GUID into the raw disk path on Solaris
// derived systems with a single mpt_sas controller.
const DefaultTemplate = "/dev/rdsk/c1t%sd0"

// Warning is a device tree serial with no matching drive in the inventory.
// The drive was probably removed between the sas2ircu and prtconf runs.
type Warning struct {
	Serial     string
	DevicePath string
}

func (w Warning) String() string {
	return fmt.Sprintf("serial %s (%s) reported by prtconf but not found in sas2ircu drives (disk removed?)",
		w.Serial, w.DevicePath)
}

// DevicePath substitutes guid into template
func DevicePath(template, guid string) string {
	if template == "" {
		template = DefaultTemplate
	}
	return fmt.Sprintf(template, guid)
}

// Reconcile attaches device paths to the drives of inv. Every matched drive
// becomes reachable under its device path too. Unmatched serials are logged
// and returned as warnings; they never create drives.
func Reconcile(inv *inventory.Inventory, mappings []Mapping, template string, logger *slog.Logger) []Warning {
	if logger == nil {
		logger = slog.Default()
	}

	var warnings []Warning
	mapped := 0
	for _, m := range mappings {
		path := DevicePath(template, m.GUID)
		if inv.AttachDevice(m.Serial, path) {
			mapped++
			continue
		}
		w := Warning{Serial: m.Serial, DevicePath: path}
		logger.Warn("serial from prtconf not found in sas2ircu drives (disk removed?)",
			"serial", m.Serial, "device", path)
		warnings = append(warnings, w)
	}

	logger.Debug("device mapping reconciled", "mapped", mapped, "unmatched", len(warnings))
	return warnings
}
