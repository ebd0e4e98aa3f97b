// Package identify resolves a drive from any of its identifiers and prints
// drives and inventories for humans or scripts.
package identify

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sigreer/diskmap/internal/inventory"
)

// Lookup finds the drive matching query in inv. Queries are tried in order
// as a serial or full device path, a bare device name, then a slot location.
func Lookup(inv *inventory.Inventory, query string) (*LookupResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query: %w", ErrNotFound)
	}

	// 1. Serial or device path key
	if d, ok := inv.Lookup(query); ok {
		idType := IDSerial
		if d.Serial != query && d.Serial != inventory.NormalizeSerial(query) {
			idType = IDDevicePath
		}
		return newResult(inv, query, idType, d), nil
	}

	// 2. Device name without its directory
	for _, d := range inv.DriveList() {
		if d.Mapped() && filepath.Base(d.DevicePath) == query {
			return newResult(inv, query, IDDeviceName, d), nil
		}
	}

	// 3. enc:slot or ctrl:enc:slot
	if strings.Contains(query, ":") {
		ctrl, enc, slot, err := inventory.ParseLocation(query)
		if err == nil {
			var d *inventory.Drive
			var ok bool
			if ctrl < 0 {
				d, ok = inv.DriveInSlot(enc, slot)
			} else {
				d, ok = inv.DriveAt(ctrl, enc, slot)
			}
			if ok {
				return newResult(inv, query, IDLocation, d), nil
			}
		}
	}

	return nil, fmt.Errorf("%q: %w", query, ErrNotFound)
}

func newResult(inv *inventory.Inventory, query string, idType IdentifierType, d *inventory.Drive) *LookupResult {
	return &LookupResult{
		Query:      query,
		MatchedAs:  idType,
		Drive:      d,
		Enclosure:  inv.Enclosures[d.Enclosure],
		Controller: inv.Controllers[d.Controller],
	}
}
