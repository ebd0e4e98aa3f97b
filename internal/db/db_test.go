package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/diskmap/internal/inventory"
	"github.com/sigreer/diskmap/internal/snapshot"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := New(filepath.Join(t.TempDir(), "inventory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func sample() *inventory.Inventory {
	inv := inventory.NewRun()
	inv.PutController(inventory.Controller{ID: 0, AdapterType: "SAS2008", VendorID: "1000h", DeviceID: "72h",
		PCIAddress: "00h:03h:00h:00h", SubsysVendorID: "1000h", SubsysDeviceID: "3020h"})
	inv.PutEnclosure(inventory.Enclosure{ID: "5000ABC", Index: 0, NumSlots: 8, Controller: 0})
	inv.PutDrive(inventory.Drive{Serial: "SN1", EnclosureIndex: 0, Slot: 2, Enclosure: "5000ABC",
		State: "Ready (RDY)", SizeMB: 1907729, SizeSectors: 3907029167, Manufacturer: "ATA",
		Model: "WDC WD2002FAEX-0", Firmware: "1D05", Protocol: "SATA", DriveType: "SATA_HDD"})
	inv.PutDrive(inventory.Drive{Serial: "SN2", EnclosureIndex: 0, Slot: 3, Enclosure: "5000ABC"})
	inv.AttachDevice("SN1", "/dev/rdsk/c1t7d0")
	return inv
}

func TestLoadEmpty(t *testing.T) {
	database := openTestDB(t)
	_, err := database.Load()
	assert.ErrorIs(t, err, snapshot.ErrNoSnapshot)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	database := openTestDB(t)
	inv := sample()

	require.NoError(t, database.Save(inv))
	got, err := database.Load()
	require.NoError(t, err)

	assert.True(t, inv.Equal(got))
	assert.Same(t, got.Drives["SN1"], got.Drives["/dev/rdsk/c1t7d0"])
}

func TestSaveReplaces(t *testing.T) {
	database := openTestDB(t)
	require.NoError(t, database.Save(sample()))

	next := inventory.NewRun()
	next.PutController(inventory.Controller{ID: 1, AdapterType: "SAS2308"})
	require.NoError(t, database.Save(next))

	got, err := database.Load()
	require.NoError(t, err)
	assert.True(t, next.Equal(got))
}

func TestSaveRejectsInvalid(t *testing.T) {
	database := openTestDB(t)
	inv := sample()
	inv.PutDrive(inventory.Drive{Serial: "ORPHAN", Enclosure: "NOPE"})
	assert.ErrorIs(t, database.Save(inv), inventory.ErrInconsistent)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.db")
	database, err := New(path)
	require.NoError(t, err)
	require.NoError(t, database.Save(sample()))
	require.NoError(t, database.Close())

	database, err = New(path)
	require.NoError(t, err)
	defer database.Close()
	got, err := database.Load()
	require.NoError(t, err)
	assert.Len(t, got.DriveList(), 2)
	assert.Equal(t, path, database.Path())
}

func TestEvents(t *testing.T) {
	database := openTestDB(t)
	first := sample()
	require.NoError(t, database.Save(first))

	events, err := database.DriveEvents("SN1", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventDiscovered, events[0].EventType)
	assert.Equal(t, "0:0:2", events[0].NewLocation)
	assert.Equal(t, first.RunID, events[0].RunID)

	// SN1 moves, SN2 disappears, SN2's mapping goes with it
	second := inventory.NewRun()
	second.PutController(inventory.Controller{ID: 0, AdapterType: "SAS2008"})
	second.PutEnclosure(inventory.Enclosure{ID: "5000ABC", Index: 0, NumSlots: 8})
	second.PutDrive(inventory.Drive{Serial: "SN1", Slot: 5, Enclosure: "5000ABC"})
	second.AttachDevice("SN1", "/dev/rdsk/c1t9d0")
	require.NoError(t, database.Save(second))

	events, err = database.DriveEvents("sn1", 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, EventMapped, events[0].EventType)
	assert.Equal(t, "/dev/rdsk/c1t9d0", events[0].DevicePath)
	assert.Equal(t, EventMoved, events[1].EventType)
	assert.Equal(t, "0:0:2", events[1].OldLocation)
	assert.Equal(t, "0:0:5", events[1].NewLocation)

	events, err = database.DriveEvents("SN2", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventRemoved, events[0].EventType)

	recent, err := database.RecentEvents(2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}
