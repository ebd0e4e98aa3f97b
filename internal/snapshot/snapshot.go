// Package snapshot serializes an inventory to bytes and back, and keeps
// the serialized form in a file.
package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/sigreer/diskmap/internal/inventory"
)

// FormatVersion is the current version of the snapshot format
const FormatVersion = 1

// Codec selects the serialization of a snapshot
type Codec string

const (
	CodecCBOR Codec = "cbor"
	CodecJSON Codec = "json"
)

// encMode is configured for deterministic output so identical inventories
// produce identical snapshot files.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create snapshot CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthAllowed,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create snapshot CBOR decoder mode: %v", err))
	}
}

// document is the serialized form of an inventory. Drives are stored once;
// the device path reverse lookups are kept as an alias table so restoring
// rebuilds the shared entries.
type document struct {
	Version     int                    `json:"version" cbor:"version"`
	RunID       string                 `json:"run_id,omitempty" cbor:"run_id,omitempty"`
	Controllers []inventory.Controller `json:"controllers" cbor:"controllers"`
	Enclosures  []inventory.Enclosure  `json:"enclosures" cbor:"enclosures"`
	Drives      []inventory.Drive      `json:"drives" cbor:"drives"`
	Aliases     map[string]string      `json:"aliases,omitempty" cbor:"aliases,omitempty"` // device path -> serial
}

// Snapshot serializes inv with the given codec
func Snapshot(inv *inventory.Inventory, codec Codec) ([]byte, error) {
	doc := document{
		Version: FormatVersion,
		RunID:   inv.RunID,
	}
	for _, c := range inv.ControllerList() {
		doc.Controllers = append(doc.Controllers, *c)
	}
	for _, e := range inv.EnclosureList() {
		doc.Enclosures = append(doc.Enclosures, *e)
	}
	for _, d := range inv.DriveList() {
		doc.Drives = append(doc.Drives, *d)
	}
	for _, path := range inv.Aliases() {
		if doc.Aliases == nil {
			doc.Aliases = make(map[string]string)
		}
		doc.Aliases[path] = inv.Drives[path].Serial
	}

	switch codec {
	case CodecCBOR, "":
		return encMode.Marshal(doc)
	case CodecJSON:
		return json.MarshalIndent(doc, "", "  ")
	}
	return nil, fmt.Errorf("unknown snapshot codec %q", codec)
}

// Restore rebuilds an inventory from a snapshot produced by Snapshot
func Restore(data []byte, codec Codec) (*inventory.Inventory, error) {
	var doc document
	var err error
	switch codec {
	case CodecCBOR, "":
		err = decMode.Unmarshal(data, &doc)
	case CodecJSON:
		err = json.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("unknown snapshot codec %q", codec)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", doc.Version)
	}

	inv := inventory.New()
	inv.RunID = doc.RunID
	for _, c := range doc.Controllers {
		inv.PutController(c)
	}
	for _, e := range doc.Enclosures {
		inv.PutEnclosure(e)
	}
	for _, d := range doc.Drives {
		inv.PutDrive(d)
	}
	for path, serial := range doc.Aliases {
		d, ok := inv.Drives[serial]
		if !ok {
			return nil, fmt.Errorf("snapshot alias %s references unknown drive %s", path, serial)
		}
		inv.Drives[path] = d
	}

	if err := inv.Validate(); err != nil {
		return nil, fmt.Errorf("invalid snapshot: %w", err)
	}
	return inv, nil
}
