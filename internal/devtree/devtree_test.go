package devtree

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/diskmap/internal/inventory"
)

func TestParseDeviceTree(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "prtconf.txt"))
	require.NoError(t, err)

	mappings := ParseDeviceTree(string(data))
	assert.Equal(t, []Mapping{
		{Serial: "WDWCAY01234567", GUID: "50014EE2B1234567"},
		{Serial: "YHJZ1ABC", GUID: "5000CCA01234ABCD"},
		{Serial: "GONE1234", GUID: "5000C50099998888"},
	}, mappings)
}

func TestParseDeviceTreeSingleLine(t *testing.T) {
	out := "disk, instance #0 name='inquiry-serial-no' type=string items=1 dev=none value='abc123' " +
		"name='client-guid' type=string items=1 value='5'\n"
	assert.Equal(t, []Mapping{{Serial: "ABC123", GUID: "5"}}, ParseDeviceTree(out))

	out = "disk, instance #0\n" +
		"name='inquiry-serial-no' type=string items=1 dev=none value='abc123'\n" +
		"name='client-guid' type=string items=1 value='5'\n"
	assert.Equal(t, []Mapping{{Serial: "ABC123", GUID: "5"}}, ParseDeviceTree(out))
}

func TestParseDeviceTreeDuplicateSerial(t *testing.T) {
	out := "disk, instance #0\n" +
		"name='inquiry-serial-no' type=string items=1 dev=none\n value='S1'\n" +
		"name='client-guid' type=string items=1\n value='a'\n" +
		"disk, instance #1\n" +
		"name='inquiry-serial-no' type=string items=1 dev=none\n value='S1'\n" +
		"name='client-guid' type=string items=1\n value='b'\n"
	assert.Equal(t, []Mapping{{Serial: "S1", GUID: "B"}}, ParseDeviceTree(out))
}

func TestDevicePath(t *testing.T) {
	assert.Equal(t, "/dev/rdsk/c1t5d0", DevicePath(DefaultTemplate, "5"))
	assert.Equal(t, "/dev/rdsk/c1t5d0", DevicePath("", "5"))
	assert.Equal(t, "/dev/dsk/c2t5000CCAd0s0", DevicePath("/dev/dsk/c2t%sd0s0", "5000CCA"))
}

func newInventory(serials ...string) *inventory.Inventory {
	inv := inventory.New()
	inv.PutController(inventory.Controller{ID: 0})
	inv.PutEnclosure(inventory.Enclosure{ID: "5000ABC", Controller: 0, NumSlots: 8})
	for i, s := range serials {
		inv.PutDrive(inventory.Drive{Serial: s, Slot: i, Enclosure: "5000ABC"})
	}
	return inv
}

func TestReconcile(t *testing.T) {
	inv := newInventory("ABC123")

	warnings := Reconcile(inv, []Mapping{{Serial: "ABC123", GUID: "5"}}, DefaultTemplate, nil)
	assert.Empty(t, warnings)

	d := inv.Drives["ABC123"]
	assert.Equal(t, "/dev/rdsk/c1t5d0", d.DevicePath)
	assert.Same(t, d, inv.Drives["/dev/rdsk/c1t5d0"])
	assert.Len(t, inv.Drives, 2)
	assert.NoError(t, inv.Validate())
}

func TestReconcileUnmatched(t *testing.T) {
	inv := newInventory("ABC123")
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	warnings := Reconcile(inv, []Mapping{{Serial: "GONE", GUID: "9"}}, DefaultTemplate, logger)

	require.Len(t, warnings, 1)
	assert.Equal(t, Warning{Serial: "GONE", DevicePath: "/dev/rdsk/c1t9d0"}, warnings[0])
	assert.Contains(t, warnings[0].String(), "GONE")
	assert.Len(t, inv.Drives, 1)
	assert.Empty(t, inv.Drives["ABC123"].DevicePath)
	assert.Contains(t, buf.String(), "serial=GONE")
}

func TestReconcileWDSerial(t *testing.T) {
	inv := newInventory(inventory.NormalizeSerial("WDWCC4E1234567"))
	out := "disk, instance #0\n" +
		"name='inquiry-serial-no' type=string items=1 dev=none\n value='WD-WCC4E1234567'\n" +
		"name='client-guid' type=string items=1\n value='50014ee2b1234567'\n"

	warnings := Reconcile(inv, ParseDeviceTree(out), DefaultTemplate, nil)
	assert.Empty(t, warnings)
	assert.Equal(t, "/dev/rdsk/c1t50014EE2B1234567d0", inv.Drives["WDWCC4E1234567"].DevicePath)
}
