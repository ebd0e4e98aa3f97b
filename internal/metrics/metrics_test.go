package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/diskmap/internal/inventory"
)

func testInventory() *inventory.Inventory {
	inv := inventory.New()
	inv.PutController(inventory.Controller{ID: 0, AdapterType: "SAS2008"})
	inv.PutEnclosure(inventory.Enclosure{ID: "5000ABC", Index: 1, NumSlots: 8, Controller: 0})
	inv.PutDrive(inventory.Drive{
		Serial: "SN1", Model: "MODEL", Firmware: "FW01", State: "Ready (RDY)", DriveType: "SATA_HDD",
		EnclosureIndex: 1, Slot: 2, Enclosure: "5000ABC", Controller: 0, SizeMB: 100,
	})
	inv.PutDrive(inventory.Drive{
		Serial: "SN2", EnclosureIndex: 1, Slot: 3, Enclosure: "5000ABC", Controller: 0,
	})
	inv.AttachDevice("SN1", "/dev/rdsk/c1t5000CCA01234ABCDd0")
	return inv
}

func TestExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diskmap.prom")
	require.NoError(t, Export(testInventory(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "diskmap_controllers 1\n")
	assert.Contains(t, out, `diskmap_enclosure_slots{controller="0",enclosure="1",logical_id="5000ABC"} 8`)
	assert.Contains(t, out, `diskmap_enclosure_drives{controller="0",enclosure="1",logical_id="5000ABC"} 2`)
	assert.Contains(t, out, `diskmap_drive_mapped{serial="SN1"} 1`)
	assert.Contains(t, out, `diskmap_drive_mapped{serial="SN2"} 0`)
	assert.Contains(t, out, `diskmap_drive_size_bytes{serial="SN1"} 1.048576e+08`)
	assert.Contains(t, out, `device="/dev/rdsk/c1t5000CCA01234ABCDd0"`)
	assert.Contains(t, out, `location="0:1:2"`)
}

func TestUpdateReplacesPreviousValues(t *testing.T) {
	m := New()
	m.Update(testInventory())

	inv := testInventory()
	delete(inv.Drives, "/dev/rdsk/c1t5000CCA01234ABCDd0")
	delete(inv.Drives, "SN1")
	m.Update(inv)

	path := filepath.Join(t.TempDir(), "diskmap.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.NotContains(t, string(data), `serial="SN1"`)
	assert.Contains(t, string(data), `serial="SN2"`)
}

func TestWriteTextfileBadPath(t *testing.T) {
	m := New()
	err := m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "diskmap.prom"))
	assert.ErrorContains(t, err, "failed to write metrics")
}
