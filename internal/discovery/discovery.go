// Package discovery runs sas2ircu and prtconf and assembles their reports
// into an inventory.
package discovery

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/sigreer/diskmap/internal/devtree"
	"github.com/sigreer/diskmap/internal/extract"
	"github.com/sigreer/diskmap/internal/hba"
	"github.com/sigreer/diskmap/internal/inventory"
	"github.com/sigreer/diskmap/internal/zfs"
)

// Discoverer drives one or more discovery passes
type Discoverer struct {
	Runner         extract.Runner
	Sas2ircu       string
	Prtconf        string
	Zpool          string // optional, only used by DiscoverPools
	DeviceTemplate string
	Logger         *slog.Logger
}

// New creates a discoverer. A nil runner runs the tools with os/exec.
func New(runner extract.Runner, sas2ircu, prtconf, template string, logger *slog.Logger) *Discoverer {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = extract.NewExecRunner(false, logger)
	}
	if template == "" {
		template = devtree.DefaultTemplate
	}
	return &Discoverer{
		Runner:         runner,
		Sas2ircu:       sas2ircu,
		Prtconf:        prtconf,
		DeviceTemplate: template,
		Logger:         logger,
	}
}

// Preflight checks that sas2ircu can be run. Nothing useful can be
// discovered without it.
func (d *Discoverer) Preflight() error {
	return extract.CheckExecutable(d.Sas2ircu)
}

// DiscoverControllers runs 'sas2ircu LIST' and merges the controllers into inv
func (d *Discoverer) DiscoverControllers(inv *inventory.Inventory) error {
	out, err := d.Runner.Run(d.Sas2ircu, "LIST")
	if err != nil {
		return err
	}
	n := hba.LoadControllers(inv, out)
	d.logger().Info("controllers discovered", "count", n)
	return nil
}

// DiscoverEnclosures runs 'sas2ircu <id> DISPLAY' for each controller ID,
// or for every known controller in ascending order when none are given.
// The first failing controller aborts the pass; controllers processed
// before it stay merged.
func (d *Discoverer) DiscoverEnclosures(inv *inventory.Inventory, ids ...int) error {
	if len(ids) == 0 {
		ids = inv.ControllerIDs()
	}
	for _, id := range ids {
		out, err := d.Runner.Run(d.Sas2ircu, strconv.Itoa(id), "DISPLAY")
		if err != nil {
			return err
		}
		display, err := hba.LoadDisplay(inv, out, id, d.logger())
		if err != nil {
			return fmt.Errorf("controller %d: %w", id, err)
		}
		d.logger().Info("controller scanned", "controller", id,
			"enclosures", len(display.Enclosures), "drives", len(display.Drives))
	}
	return nil
}

// DiscoverMapping runs 'prtconf -v' and attaches OS device paths to the
// drives already in inv. Serials reported by prtconf that match no drive
// are returned as warnings.
func (d *Discoverer) DiscoverMapping(inv *inventory.Inventory) ([]devtree.Warning, error) {
	if err := extract.CheckExecutable(d.Prtconf); err != nil {
		return nil, err
	}
	out, err := d.Runner.Run(d.Prtconf, "-v")
	if err != nil {
		return nil, err
	}
	mappings := devtree.ParseDeviceTree(out)
	return devtree.Reconcile(inv, mappings, d.DeviceTemplate, d.logger()), nil
}

// Pools runs 'zpool status' and returns the parsed pools
func (d *Discoverer) Pools() ([]*zfs.Pool, error) {
	if err := extract.CheckExecutable(d.Zpool); err != nil {
		return nil, err
	}
	out, err := d.Runner.Run(d.Zpool, "status")
	if err != nil {
		return nil, err
	}
	return zfs.ParseStatus(out), nil
}

// DiscoverPools runs 'zpool status' and places each pool disk in the slot
// of the drive mapped to its device. Run it after DiscoverMapping.
func (d *Discoverer) DiscoverPools(inv *inventory.Inventory) ([]zfs.Member, error) {
	pools, err := d.Pools()
	if err != nil {
		return nil, err
	}
	members := zfs.Members(inv, pools)

	unlocated := 0
	for _, m := range members {
		if !m.Located() {
			unlocated++
			d.logger().Debug("pool disk not found in any enclosure slot", "pool", m.Pool, "device", m.Device)
		}
	}
	d.logger().Info("pools scanned", "pools", len(pools), "disks", len(members), "unlocated", unlocated)
	return members, nil
}

// Discover performs a full run into a fresh inventory
func (d *Discoverer) Discover() (*inventory.Inventory, []devtree.Warning, error) {
	inv := inventory.NewRun()
	log := d.logger().With("run", inv.RunID)
	log.Debug("starting discovery")

	if err := d.DiscoverControllers(inv); err != nil {
		return nil, nil, fmt.Errorf("failed to discover controllers: %w", err)
	}
	if err := d.DiscoverEnclosures(inv); err != nil {
		return nil, nil, fmt.Errorf("failed to discover enclosures: %w", err)
	}
	warnings, err := d.DiscoverMapping(inv)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to discover device mapping: %w", err)
	}

	log.Info("discovery complete",
		"controllers", len(inv.Controllers),
		"enclosures", len(inv.Enclosures),
		"drives", len(inv.DriveList()),
		"unmatched", len(warnings))
	return inv, warnings, nil
}

// SetLogger redirects the log output of the discoverer and its runner
func (d *Discoverer) SetLogger(logger *slog.Logger) {
	d.Logger = logger
	if r, ok := d.Runner.(*extract.ExecRunner); ok {
		r.Logger = logger
	}
}

func (d *Discoverer) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}
