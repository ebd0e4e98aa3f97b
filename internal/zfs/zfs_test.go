package zfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/diskmap/internal/inventory"
)

func readStatus(t *testing.T) []*Pool {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "status.txt"))
	require.NoError(t, err)
	return ParseStatus(string(data))
}

func TestParseStatus(t *testing.T) {
	pools := readStatus(t)
	require.Len(t, pools, 2)

	rpool := pools[0]
	assert.Equal(t, "rpool", rpool.Name)
	assert.Equal(t, StateOnline, rpool.State)
	assert.Equal(t, "none", rpool.ScanState)
	assert.False(t, rpool.IsDegraded())

	tank := pools[1]
	assert.Equal(t, "tank", tank.Name)
	assert.True(t, tank.IsDegraded())
	assert.Equal(t, "scrub", tank.ScanState)
	assert.InDelta(t, 30.39, tank.ScanPercent, 0.001)
	assert.Equal(t, "No known data errors", tank.Errors)
	assert.Equal(t, int64(1212), tank.TotalErrors)

	require.Len(t, tank.Vdevs, 3)
	assert.Equal(t, TypePool, tank.Vdevs[0].Type)
	assert.Equal(t, TypeLog, tank.Vdevs[1].Type)
	assert.Equal(t, TypeSpare, tank.Vdevs[2].Type)

	raidz := tank.Vdevs[0].Children[0]
	assert.Equal(t, "raidz2-0", raidz.Name)
	assert.Equal(t, TypeRaidz, raidz.Type)
	require.Len(t, raidz.Children, 3)
	faulted := raidz.Children[1]
	assert.Equal(t, StateFaulted, faulted.State)
	assert.Equal(t, int64(12), faulted.ReadErrs)
	assert.Equal(t, int64(1200), faulted.CksumErrs)
}

func TestPoolDisks(t *testing.T) {
	tank := readStatus(t)[1]

	var got []string
	for _, leaf := range tank.Disks() {
		got = append(got, leaf.Parent+"/"+leaf.Disk.Name)
	}
	assert.Equal(t, []string{
		"raidz2-0/c1t50014EE2B1234567d0",
		"raidz2-0/c1t5000CCA01234ABCDd0",
		"raidz2-0/c1t5000C50099998888d0",
		"logs/c1t55CD2E404B7A1234d0",
		"spares/c1t5000C500AAAABBBBd0",
	}, got)
}

func TestVdevType(t *testing.T) {
	tests := []struct {
		name  string
		depth int
		want  string
	}{
		{"tank", 0, TypePool},
		{"cache", 0, TypeCache},
		{"special", 0, TypeSpecial},
		{"mirror-1", 1, TypeMirror},
		{"replacing-0", 2, TypeMirror},
		{"spare-3", 2, TypeSpare},
		{"c0t0d0s0", 1, TypeDisk},
		{"c2d0p1", 1, TypeDisk},
		{"/dev/dsk/c1t0d0", 1, TypeDisk},
		{"16512928361781374623", 2, TypeDisk},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, vdevType(tc.name, tc.depth), tc.name)
	}
}

func TestParseCount(t *testing.T) {
	assert.Equal(t, int64(0), parseCount("0"))
	assert.Equal(t, int64(42), parseCount("42"))
	assert.Equal(t, int64(1200), parseCount("1.2K"))
	assert.Equal(t, int64(3000000), parseCount("3M"))
	assert.Equal(t, int64(0), parseCount("-"))
}

func TestDeviceKey(t *testing.T) {
	assert.Equal(t, "C1T5000CCA01234ABCDD0", deviceKey("/dev/rdsk/c1t5000CCA01234ABCDd0"))
	assert.Equal(t, "C1T5000CCA01234ABCDD0", deviceKey("c1t5000cca01234abcdd0s0"))
	assert.Equal(t, "C2D0", deviceKey("c2d0p1"))
}

func TestMembers(t *testing.T) {
	inv := inventory.New()
	inv.PutController(inventory.Controller{ID: 0})
	inv.PutEnclosure(inventory.Enclosure{ID: "5000ABC", Index: 1, NumSlots: 8})
	inv.PutDrive(inventory.Drive{Serial: "WDWCAY01234567", EnclosureIndex: 1, Slot: 0, Enclosure: "5000ABC"})
	inv.PutDrive(inventory.Drive{Serial: "YHJZ1ABC", EnclosureIndex: 1, Slot: 4, Enclosure: "5000ABC"})
	inv.PutDrive(inventory.Drive{Serial: "ROOT1", EnclosureIndex: 1, Slot: 7, Enclosure: "5000ABC"})
	inv.AttachDevice("WDWCAY01234567", "/dev/rdsk/c1t50014EE2B1234567d0")
	inv.AttachDevice("YHJZ1ABC", "/dev/rdsk/c1t5000CCA01234ABCDd0")
	inv.AttachDevice("ROOT1", "/dev/rdsk/c1t5000C50011112222d0")

	members := Members(inv, readStatus(t))
	require.Len(t, members, 6)

	assert.Equal(t, Member{
		Pool: "rpool", Vdev: "rpool", Device: "c1t5000C50011112222d0s0", State: StateOnline,
		Serial: "ROOT1", Location: "0:1:7",
	}, members[0])

	faulted := members[2]
	assert.Equal(t, "tank", faulted.Pool)
	assert.Equal(t, "raidz2-0", faulted.Vdev)
	assert.Equal(t, StateFaulted, faulted.State)
	assert.Equal(t, int64(1212), faulted.Errors)
	assert.Equal(t, "YHJZ1ABC", faulted.Serial)
	assert.Equal(t, "0:1:4", faulted.Location)
	assert.True(t, faulted.Located())

	spare := members[5]
	assert.Equal(t, "spares", spare.Vdev)
	assert.Equal(t, "AVAIL", spare.State)
	assert.False(t, spare.Located())
}
