package discovery

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/diskmap/internal/db"
	"github.com/sigreer/diskmap/internal/extract"
	"github.com/sigreer/diskmap/internal/hba"
	"github.com/sigreer/diskmap/internal/inventory"
	"github.com/sigreer/diskmap/internal/snapshot"
)

// fakeRunner answers command lines from a table
type fakeRunner struct {
	outputs map[string]string
	calls   []string
}

func (f *fakeRunner) Run(name string, args ...string) (string, error) {
	cmdline := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, cmdline)
	out, ok := f.outputs[cmdline]
	if !ok {
		return "", &extract.ExecutionError{Command: name, Args: args, Err: errors.New("unexpected command")}
	}
	return out, nil
}

func fixture(t *testing.T, path ...string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(path...))
	require.NoError(t, err)
	return string(data)
}

// executable creates a stub tool so CheckExecutable passes
func executable(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))
	return path
}

func newTestDiscoverer(t *testing.T) (*Discoverer, *fakeRunner) {
	sas2ircu := executable(t, "sas2ircu")
	prtconf := executable(t, "prtconf")
	zpool := executable(t, "zpool")
	runner := &fakeRunner{outputs: map[string]string{
		zpool + " status":       fixture(t, "..", "zfs", "testdata", "status.txt"),
		sas2ircu + " LIST":      fixture(t, "..", "hba", "testdata", "list.txt"),
		sas2ircu + " 0 DISPLAY": fixture(t, "..", "hba", "testdata", "display0.txt"),
		sas2ircu + " 1 DISPLAY": "SAS2IRCU: Utility Completed Successfully.\n",
		prtconf + " -v":         fixture(t, "..", "devtree", "testdata", "prtconf.txt"),
	}}
	d := New(runner, sas2ircu, prtconf, "", nil)
	d.Zpool = zpool
	return d, runner
}

func TestDiscover(t *testing.T) {
	d, runner := newTestDiscoverer(t)
	require.NoError(t, d.Preflight())

	inv, warnings, err := d.Discover()
	require.NoError(t, err)
	require.NoError(t, inv.Validate())
	assert.NotEmpty(t, inv.RunID)

	assert.Equal(t, []string{
		d.Sas2ircu + " LIST",
		d.Sas2ircu + " 0 DISPLAY",
		d.Sas2ircu + " 1 DISPLAY",
		d.Prtconf + " -v",
	}, runner.calls)

	assert.Equal(t, []int{0, 1}, inv.ControllerIDs())
	assert.Len(t, inv.Enclosures, 2)
	assert.Len(t, inv.DriveList(), 3)

	wd, ok := inv.Lookup("/dev/rdsk/c1t50014EE2B1234567d0")
	require.True(t, ok)
	assert.Equal(t, "WDWCAY01234567", wd.Serial)
	assert.Same(t, inv.Drives["WDWCAY01234567"], wd)

	hitachi := inv.Drives["YHJZ1ABC"]
	require.NotNil(t, hitachi)
	assert.Equal(t, "/dev/rdsk/c1t5000CCA01234ABCDd0", hitachi.DevicePath)

	intel := inv.Drives["BTWL3456789A240NGN"]
	require.NotNil(t, intel)
	assert.False(t, intel.Mapped())

	require.Len(t, warnings, 1)
	assert.Equal(t, "GONE1234", warnings[0].Serial)
	_, ok = inv.Lookup("GONE1234")
	assert.False(t, ok)
}

func TestDiscoverDualPathEnclosure(t *testing.T) {
	d, runner := newTestDiscoverer(t)
	runner.outputs[d.Sas2ircu+" 1 DISPLAY"] = fixture(t, "..", "hba", "testdata", "display1.txt")

	inv, _, err := d.Discover()
	require.NoError(t, err)
	require.NoError(t, inv.Validate())

	// the shared enclosure is stored once, owned by the last controller reporting it
	assert.Len(t, inv.Enclosures, 2)
	assert.Equal(t, 1, inv.Enclosures["5003048:001a2b3c"].Controller)
	assert.Len(t, inv.DriveList(), 3)

	wd := inv.Drives["WDWCAY01234567"]
	require.NotNil(t, wd)
	assert.Equal(t, 1, wd.Controller)
	assert.Equal(t, "/dev/rdsk/c1t50014EE2B1234567d0", wd.DevicePath)

	hitachi := inv.Drives["YHJZ1ABC"]
	require.NotNil(t, hitachi)
	assert.Equal(t, 0, hitachi.Controller)
	assert.Equal(t, "5003048:001a2b3c", hitachi.Enclosure)

	t.Run("snapshot store", func(t *testing.T) {
		for _, codec := range []snapshot.Codec{snapshot.CodecCBOR, snapshot.CodecJSON} {
			store := snapshot.NewStore(filepath.Join(t.TempDir(), "snapshot."+string(codec)), codec)
			require.NoError(t, store.Save(inv))
			got, err := store.Load()
			require.NoError(t, err, codec)
			assert.True(t, inv.Equal(got), codec)
		}
	})

	t.Run("database", func(t *testing.T) {
		database, err := db.New(filepath.Join(t.TempDir(), "inventory.db"))
		require.NoError(t, err)
		defer database.Close()

		require.NoError(t, database.Save(inv))
		got, err := database.Load()
		require.NoError(t, err)
		assert.True(t, inv.Equal(got))
	})
}

func TestDiscoverCustomTemplate(t *testing.T) {
	d, _ := newTestDiscoverer(t)
	d.DeviceTemplate = "/dev/dsk/c2t%sd0s0"

	inv, _, err := d.Discover()
	require.NoError(t, err)
	assert.Equal(t, "/dev/dsk/c2t50014EE2B1234567d0s0", inv.Drives["WDWCAY01234567"].DevicePath)
}

func TestDiscoverEnclosuresSelectedController(t *testing.T) {
	d, runner := newTestDiscoverer(t)
	inv := inventory.New()
	require.NoError(t, d.DiscoverControllers(inv))
	runner.calls = nil

	require.NoError(t, d.DiscoverEnclosures(inv, 1))
	assert.Equal(t, []string{d.Sas2ircu + " 1 DISPLAY"}, runner.calls)
	assert.Empty(t, inv.Drives)
}

func TestDiscoverEnclosuresParseError(t *testing.T) {
	d, runner := newTestDiscoverer(t)
	runner.outputs[d.Sas2ircu+" 0 DISPLAY"] = `
Device is a Hard disk
  Enclosure #                             : 7
  Slot #                                  : 2
  State                                   : Ready (RDY)
  Size (in MB)/(in sectors)               : 100/204800
  Manufacturer                            : ATA
  Model Number                            : MODEL
  Firmware Revision                       : FW01
  Serial No                               : SN1
  Protocol                                : SATA
  Drive Type                              : SATA_HDD
`
	inv := inventory.New()
	require.NoError(t, d.DiscoverControllers(inv))

	err := d.DiscoverEnclosures(inv)
	require.ErrorIs(t, err, hba.ErrUnknownEnclosure)
	assert.Contains(t, err.Error(), "controller 0")
	assert.Empty(t, inv.Drives)
	// controller 1 is never reached
	assert.NotContains(t, runner.calls, d.Sas2ircu+" 1 DISPLAY")
}

func TestDiscoverCommandFailure(t *testing.T) {
	d, runner := newTestDiscoverer(t)
	delete(runner.outputs, d.Sas2ircu+" LIST")

	_, _, err := d.Discover()
	var execErr *extract.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, err.Error(), "failed to discover controllers")
}

func TestDiscoverMissingPrtconf(t *testing.T) {
	d, _ := newTestDiscoverer(t)
	d.Prtconf = filepath.Join(t.TempDir(), "prtconf")

	_, _, err := d.Discover()
	var execErr *extract.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Contains(t, err.Error(), "failed to discover device mapping")
}

func TestPreflightMissingTool(t *testing.T) {
	d := New(&fakeRunner{}, filepath.Join(t.TempDir(), "sas2ircu"), "/usr/sbin/prtconf", "", nil)
	var execErr *extract.ExecutionError
	assert.ErrorAs(t, d.Preflight(), &execErr)
}

func TestDiscoverPools(t *testing.T) {
	d, _ := newTestDiscoverer(t)
	inv, _, err := d.Discover()
	require.NoError(t, err)

	members, err := d.DiscoverPools(inv)
	require.NoError(t, err)
	require.Len(t, members, 6)

	located := map[string]string{}
	for _, m := range members {
		if m.Located() {
			located[m.Device] = m.Serial
		}
	}
	assert.Equal(t, map[string]string{
		"c1t50014EE2B1234567d0": "WDWCAY01234567",
		"c1t5000CCA01234ABCDd0": "YHJZ1ABC",
	}, located)
}

func TestDiscoverPoolsWithoutZpool(t *testing.T) {
	d, _ := newTestDiscoverer(t)
	d.Zpool = ""

	_, err := d.DiscoverPools(inventory.New())
	var execErr *extract.ExecutionError
	assert.ErrorAs(t, err, &execErr)
}
