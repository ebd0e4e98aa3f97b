// Package health compares a fresh discovery against the last saved
// inventory and the state of the ZFS pools built on its drives.
package health

import (
	"fmt"
	"strings"
	"time"

	"github.com/sigreer/diskmap/internal/devtree"
	"github.com/sigreer/diskmap/internal/inventory"
	"github.com/sigreer/diskmap/internal/zfs"
)

// Status values, in increasing severity
const (
	StatusHealthy  = "healthy"
	StatusWarning  = "warning"
	StatusCritical = "critical"
)

// Alert severities
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Result contains the complete health check output
type Result struct {
	Timestamp time.Time     `json:"timestamp"`
	Status    string        `json:"status"` // healthy, warning, critical
	Drives    DriveSummary  `json:"drives"`
	Pools     []PoolSummary `json:"pools,omitempty"`
	Alerts    []Alert       `json:"alerts"`
}

// DriveSummary contains drive statistics
type DriveSummary struct {
	Expected  int      `json:"expected"` // drives in the saved inventory
	Present   int      `json:"present"`
	Mapped    int      `json:"mapped"`
	Missing   []string `json:"missing,omitempty"`
	New       []string `json:"new,omitempty"`
	Moved     []string `json:"moved,omitempty"`
	Failed    []string `json:"failed,omitempty"`
	Degraded  []string `json:"degraded,omitempty"`
	Unmapped  []string `json:"unmapped,omitempty"`
	Unmatched []string `json:"unmatched,omitempty"` // prtconf serials without a drive
}

// PoolSummary contains ZFS pool health
type PoolSummary struct {
	Name       string   `json:"name"`
	State      string   `json:"state"`
	ScanState  string   `json:"scan_state,omitempty"`
	Faulted    []string `json:"faulted,omitempty"` // device@location
	ErrorCount int64    `json:"error_count"`
}

// Alert represents a health check alert
type Alert struct {
	Severity string `json:"severity"` // info, warning, critical
	Category string `json:"category"`
	Message  string `json:"message"`
	Details  any    `json:"details,omitempty"`
}

// Input collects what one check looks at. Baseline and Pools may be nil.
type Input struct {
	Baseline *inventory.Inventory
	Current  *inventory.Inventory
	Warnings []devtree.Warning
	Pools    []*zfs.Pool
}

// Check evaluates in and returns the result with the worst alert severity
// as its status
func Check(in Input) *Result {
	r := &Result{Timestamp: time.Now(), Status: StatusHealthy}

	r.checkDrives(in.Baseline, in.Current)
	for _, w := range in.Warnings {
		r.Drives.Unmatched = append(r.Drives.Unmatched, w.Serial)
		r.alert(SeverityWarning, "serial_unmatched",
			fmt.Sprintf("Serial %s reported by prtconf (%s) but not by sas2ircu", w.Serial, w.DevicePath),
			map[string]any{"serial": w.Serial, "device": w.DevicePath})
	}
	if in.Pools != nil {
		r.checkPools(in.Current, in.Pools)
	}
	return r
}

func (r *Result) checkDrives(baseline, current *inventory.Inventory) {
	drives := current.DriveList()
	r.Drives.Present = len(drives)

	for _, d := range drives {
		if d.Mapped() {
			r.Drives.Mapped++
		} else {
			r.Drives.Unmapped = append(r.Drives.Unmapped, d.Serial)
			r.alert(SeverityWarning, "drive_unmapped",
				fmt.Sprintf("Drive %s in slot %s has no OS device", d.Serial, d.Location()),
				map[string]any{"serial": d.Serial, "location": d.Location()})
		}

		switch stateSeverity(d.State) {
		case SeverityCritical:
			r.Drives.Failed = append(r.Drives.Failed, d.Serial)
			r.alert(SeverityCritical, "drive_failed",
				fmt.Sprintf("Drive %s in slot %s is %s", d.Serial, d.Location(), d.State),
				map[string]any{"serial": d.Serial, "location": d.Location(), "state": d.State})
		case SeverityWarning:
			r.Drives.Degraded = append(r.Drives.Degraded, d.Serial)
			r.alert(SeverityWarning, "drive_degraded",
				fmt.Sprintf("Drive %s in slot %s is %s", d.Serial, d.Location(), d.State),
				map[string]any{"serial": d.Serial, "location": d.Location(), "state": d.State})
		}
	}

	if baseline == nil {
		return
	}

	known := baseline.DriveList()
	r.Drives.Expected = len(known)
	for _, old := range known {
		d, ok := current.Drives[old.Serial]
		if !ok {
			r.Drives.Missing = append(r.Drives.Missing, old.Serial)
			r.alert(SeverityCritical, "drive_missing",
				fmt.Sprintf("Drive %s is missing (last seen in slot %s)", old.Serial, old.Location()),
				map[string]any{"serial": old.Serial, "location": old.Location(), "device": old.DevicePath})
			continue
		}
		if d.Location() != old.Location() {
			r.Drives.Moved = append(r.Drives.Moved, d.Serial)
			r.alert(SeverityInfo, "drive_moved",
				fmt.Sprintf("Drive %s moved from slot %s to %s", d.Serial, old.Location(), d.Location()),
				map[string]any{"serial": d.Serial, "from": old.Location(), "to": d.Location()})
		}
	}
	for _, d := range drives {
		if _, ok := baseline.Drives[d.Serial]; !ok {
			r.Drives.New = append(r.Drives.New, d.Serial)
			r.alert(SeverityInfo, "drive_new",
				fmt.Sprintf("New drive detected: %s in slot %s", d.Serial, d.Location()),
				map[string]any{"serial": d.Serial, "location": d.Location()})
		}
	}
}

func (r *Result) checkPools(current *inventory.Inventory, pools []*zfs.Pool) {
	members := zfs.Members(current, pools)

	for _, pool := range pools {
		summary := PoolSummary{
			Name:       pool.Name,
			State:      pool.State,
			ScanState:  pool.ScanState,
			ErrorCount: pool.TotalErrors,
		}
		for _, m := range members {
			if m.Pool != pool.Name || !diskFaulted(m.State) {
				continue
			}
			where := m.Location
			if where == "" {
				where = "unknown slot"
			}
			summary.Faulted = append(summary.Faulted, m.Device+"@"+where)
		}
		r.Pools = append(r.Pools, summary)

		// Generate alerts for pool issues
		if pool.IsDegraded() {
			r.alert(SeverityCritical, "pool_degraded",
				fmt.Sprintf("ZFS pool %s is %s", pool.Name, pool.State),
				map[string]any{"pool": pool.Name, "state": pool.State, "faulted": summary.Faulted})
		} else if pool.TotalErrors > 0 {
			r.alert(SeverityWarning, "pool_errors",
				fmt.Sprintf("ZFS pool %s has %d errors", pool.Name, pool.TotalErrors),
				map[string]any{"pool": pool.Name, "errors": pool.TotalErrors})
		}
	}
}

func (r *Result) alert(severity, category, message string, details any) {
	r.Alerts = append(r.Alerts, Alert{Severity: severity, Category: category, Message: message, Details: details})
	switch {
	case severity == SeverityCritical:
		r.Status = StatusCritical
	case severity == SeverityWarning && r.Status == StatusHealthy:
		r.Status = StatusWarning
	}
}

// Counts returns the number of critical and warning alerts
func (r *Result) Counts() (critical, warning int) {
	for _, a := range r.Alerts {
		switch a.Severity {
		case SeverityCritical:
			critical++
		case SeverityWarning:
			warning++
		}
	}
	return critical, warning
}

// stateSeverity grades a sas2ircu drive state such as "Ready (RDY)" by
// its abbreviation. Unknown states are warnings.
func stateSeverity(state string) string {
	code := state
	if i := strings.LastIndex(state, "("); i >= 0 {
		code = strings.TrimSuffix(state[i+1:], ")")
	}
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "OPT", "RDY", "HSP", "AVL", "SBY", "":
		return ""
	case "FLD", "MIS":
		return SeverityCritical
	}
	return SeverityWarning
}

func diskFaulted(state string) bool {
	switch state {
	case zfs.StateOnline, "AVAIL", "INUSE":
		return false
	}
	return true
}
