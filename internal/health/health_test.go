package health

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/diskmap/internal/devtree"
	"github.com/sigreer/diskmap/internal/inventory"
	"github.com/sigreer/diskmap/internal/zfs"
)

func newInventory() *inventory.Inventory {
	inv := inventory.New()
	inv.PutController(inventory.Controller{ID: 0})
	inv.PutEnclosure(inventory.Enclosure{ID: "5000ABC", Index: 1, NumSlots: 8})
	return inv
}

func putDrive(inv *inventory.Inventory, serial string, slot int, state, device string) {
	inv.PutDrive(inventory.Drive{
		Serial: serial, EnclosureIndex: 1, Slot: slot, Enclosure: "5000ABC", State: state,
	})
	if device != "" {
		inv.AttachDevice(serial, device)
	}
}

func TestCheckHealthy(t *testing.T) {
	inv := newInventory()
	putDrive(inv, "SN1", 0, "Ready (RDY)", "/dev/rdsk/c1tAd0")
	putDrive(inv, "SN2", 1, "Optimal (OPT)", "/dev/rdsk/c1tBd0")

	r := Check(Input{Baseline: inv, Current: inv})
	assert.Equal(t, StatusHealthy, r.Status)
	assert.Empty(t, r.Alerts)
	assert.Equal(t, 2, r.Drives.Expected)
	assert.Equal(t, 2, r.Drives.Present)
	assert.Equal(t, 2, r.Drives.Mapped)
}

func TestCheckAgainstBaseline(t *testing.T) {
	baseline := newInventory()
	putDrive(baseline, "SN1", 0, "Ready (RDY)", "/dev/rdsk/c1tAd0")
	putDrive(baseline, "SN2", 1, "Ready (RDY)", "/dev/rdsk/c1tBd0")
	putDrive(baseline, "SN3", 2, "Ready (RDY)", "/dev/rdsk/c1tCd0")

	current := newInventory()
	putDrive(current, "SN1", 0, "Ready (RDY)", "/dev/rdsk/c1tAd0")
	putDrive(current, "SN2", 5, "Ready (RDY)", "/dev/rdsk/c1tBd0")
	putDrive(current, "SN4", 2, "Ready (RDY)", "")

	r := Check(Input{
		Baseline: baseline,
		Current:  current,
		Warnings: []devtree.Warning{{Serial: "GONE1", DevicePath: "/dev/rdsk/c1tDd0"}},
	})

	assert.Equal(t, StatusCritical, r.Status)
	assert.Equal(t, []string{"SN3"}, r.Drives.Missing)
	assert.Equal(t, []string{"SN2"}, r.Drives.Moved)
	assert.Equal(t, []string{"SN4"}, r.Drives.New)
	assert.Equal(t, []string{"SN4"}, r.Drives.Unmapped)
	assert.Equal(t, []string{"GONE1"}, r.Drives.Unmatched)

	critical, warning := r.Counts()
	assert.Equal(t, 1, critical)
	assert.Equal(t, 2, warning)

	var missing *Alert
	for i := range r.Alerts {
		if r.Alerts[i].Category == "drive_missing" {
			missing = &r.Alerts[i]
		}
	}
	require.NotNil(t, missing)
	assert.Contains(t, missing.Message, "last seen in slot 0:1:2")
}

func TestCheckWithoutBaseline(t *testing.T) {
	inv := newInventory()
	putDrive(inv, "SN1", 0, "Degraded (DGD)", "/dev/rdsk/c1tAd0")

	r := Check(Input{Current: inv})
	assert.Equal(t, StatusWarning, r.Status)
	assert.Equal(t, 0, r.Drives.Expected)
	assert.Empty(t, r.Drives.New)
	assert.Equal(t, []string{"SN1"}, r.Drives.Degraded)
}

func TestStateSeverity(t *testing.T) {
	tests := map[string]string{
		"Ready (RDY)":       "",
		"Optimal (OPT)":     "",
		"Hot Spare (HSP)":   "",
		"Standby (SBY)":     "",
		"":                  "",
		"Failed (FLD)":      SeverityCritical,
		"Missing (MIS)":     SeverityCritical,
		"Degraded (DGD)":    SeverityWarning,
		"Rebuilding (RBLD)": SeverityWarning,
		"Something new":     SeverityWarning,
	}
	for state, want := range tests {
		assert.Equal(t, want, stateSeverity(state), state)
	}
}

func TestCheckPools(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("..", "zfs", "testdata", "status.txt"))
	require.NoError(t, err)
	pools := zfs.ParseStatus(string(data))

	inv := newInventory()
	putDrive(inv, "YHJZ1ABC", 4, "Ready (RDY)", "/dev/rdsk/c1t5000CCA01234ABCDd0")

	r := Check(Input{Current: inv, Pools: pools})
	assert.Equal(t, StatusCritical, r.Status)
	require.Len(t, r.Pools, 2)

	assert.Equal(t, "rpool", r.Pools[0].Name)
	assert.Empty(t, r.Pools[0].Faulted)

	tank := r.Pools[1]
	assert.Equal(t, zfs.StateDegraded, tank.State)
	assert.Equal(t, "scrub", tank.ScanState)
	assert.Equal(t, []string{"c1t5000CCA01234ABCDd0@0:1:4"}, tank.Faulted)
}
