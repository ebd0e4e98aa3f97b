// Package zfs parses 'zpool status' and places pool member disks in their
// enclosure slots.
package zfs

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// Pool represents the health status of a ZFS pool
type Pool struct {
	Name        string  `json:"name"`
	State       string  `json:"state"`                  // ONLINE, DEGRADED, FAULTED, OFFLINE, REMOVED, UNAVAIL
	Status      string  `json:"status,omitempty"`       // Status message if any
	Action      string  `json:"action,omitempty"`       // Recommended action
	ScanState   string  `json:"scan_state,omitempty"`   // scrub, resilver, none
	ScanPercent float64 `json:"scan_percent,omitempty"` // Progress percentage
	ScanMessage string  `json:"scan_message,omitempty"` // Full scan line
	Errors      string  `json:"errors,omitempty"`       // Error summary
	Vdevs       []*Vdev `json:"vdevs"`
	TotalErrors int64   `json:"total_errors"` // Sum of all error counts
}

// Vdev is a node of the pool configuration tree
type Vdev struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`  // pool, raidz, mirror, disk, spare, log, cache
	State     string  `json:"state"` // ONLINE, ..., AVAIL and INUSE for spares
	ReadErrs  int64   `json:"read_errors"`
	WriteErrs int64   `json:"write_errors"`
	CksumErrs int64   `json:"cksum_errors"`
	Children  []*Vdev `json:"children,omitempty"`
}

// Pool states
const (
	StateOnline   = "ONLINE"
	StateDegraded = "DEGRADED"
	StateFaulted  = "FAULTED"
	StateOffline  = "OFFLINE"
	StateRemoved  = "REMOVED"
	StateUnavail  = "UNAVAIL"
)

// Vdev types
const (
	TypePool    = "pool"
	TypeRaidz   = "raidz"
	TypeMirror  = "mirror"
	TypeDisk    = "disk"
	TypeSpare   = "spare"
	TypeLog     = "log"
	TypeCache   = "cache"
	TypeSpecial = "special"
)

// diskName matches illumos disk names such as c1t5000CCA01234ABCDd0s0
var diskName = regexp.MustCompile(`^c\d+(t[0-9A-Fa-f]+)?d\d+([sp]\d+)?$`)

var scanPercent = regexp.MustCompile(`(\d+\.?\d*)%`)

// IsDegraded returns true if pool is not fully healthy
func (p *Pool) IsDegraded() bool {
	return p.State != StateOnline
}

// Disks returns the leaf disks of the pool together with the vdev that
// holds each one (the pool itself for striped disks).
func (p *Pool) Disks() []Leaf {
	var leaves []Leaf
	for _, v := range p.Vdevs {
		leaves = append(leaves, collectLeaves(v, p.Name)...)
	}
	return leaves
}

// Leaf is a disk in a pool configuration
type Leaf struct {
	Disk   *Vdev
	Parent string
}

func collectLeaves(v *Vdev, parent string) []Leaf {
	if v.Type == TypeDisk {
		return []Leaf{{Disk: v, Parent: parent}}
	}
	var leaves []Leaf
	for _, child := range v.Children {
		leaves = append(leaves, collectLeaves(child, v.Name)...)
	}
	return leaves
}

// ParseStatus parses the output of 'zpool status'
func ParseStatus(output string) []*Pool {
	var pools []*Pool
	var current *Pool
	var inConfig, inScan bool
	var stack []*Vdev // stack[i] is the last vdev seen at depth i

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		// New pool starts with "  pool:"
		if strings.HasPrefix(trimmed, "pool:") {
			current = &Pool{Name: strings.TrimSpace(strings.TrimPrefix(trimmed, "pool:"))}
			pools = append(pools, current)
			inConfig = false
			stack = nil
			continue
		}

		if current == nil {
			continue
		}

		wasScan := inScan
		inScan = false

		switch {
		case strings.HasPrefix(trimmed, "state:"):
			current.State = strings.TrimSpace(strings.TrimPrefix(trimmed, "state:"))
		case strings.HasPrefix(trimmed, "status:"):
			current.Status = strings.TrimSpace(strings.TrimPrefix(trimmed, "status:"))
		case strings.HasPrefix(trimmed, "action:"):
			current.Action = strings.TrimSpace(strings.TrimPrefix(trimmed, "action:"))
		case strings.HasPrefix(trimmed, "scan:"):
			current.ScanMessage = strings.TrimSpace(strings.TrimPrefix(trimmed, "scan:"))
			parseScanState(current)
			inScan = true
		case wasScan && trimmed != "" && line != trimmed:
			// Progress lines of a running scrub or resilver
			current.ScanMessage += "; " + trimmed
			parseScanState(current)
			inScan = true
		case strings.HasPrefix(trimmed, "errors:"):
			current.Errors = strings.TrimSpace(strings.TrimPrefix(trimmed, "errors:"))
			inConfig = false
		case strings.HasPrefix(trimmed, "config:"):
			inConfig = true
		case inConfig:
			// Skip blank lines and the NAME STATE READ WRITE CKSUM header
			if trimmed == "" || strings.HasPrefix(trimmed, "NAME ") {
				continue
			}
			stack = addVdev(current, stack, line)
		}
	}

	return pools
}

// configDepth returns the nesting level of a config line. zpool indents
// the tree with a tab followed by two spaces per level.
func configDepth(line string) int {
	rest := strings.TrimLeft(line, "\t")
	spaces := len(rest) - len(strings.TrimLeft(rest, " "))
	return spaces / 2
}

func addVdev(p *Pool, stack []*Vdev, line string) []*Vdev {
	fields := strings.Fields(line)
	depth := configDepth(line)

	v := &Vdev{Name: fields[0], Type: vdevType(fields[0], depth)}
	if len(fields) > 1 {
		v.State = fields[1]
	}
	if len(fields) >= 5 {
		v.ReadErrs = parseCount(fields[2])
		v.WriteErrs = parseCount(fields[3])
		v.CksumErrs = parseCount(fields[4])
	}
	p.TotalErrors += v.ReadErrs + v.WriteErrs + v.CksumErrs

	if depth > len(stack) {
		depth = len(stack)
	}
	stack = append(stack[:depth], v)
	if depth == 0 {
		p.Vdevs = append(p.Vdevs, v)
	} else {
		parent := stack[depth-1]
		parent.Children = append(parent.Children, v)
	}
	return stack
}

// parseCount reads an error counter, which zpool abbreviates above 999 (1.2K)
func parseCount(s string) int64 {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "K"):
		mult = 1e3
	case strings.HasSuffix(s, "M"):
		mult = 1e6
	default:
		return 0
	}
	f, err := strconv.ParseFloat(strings.TrimRight(s, "KM"), 64)
	if err != nil {
		return 0
	}
	return int64(f * mult)
}

func parseScanState(p *Pool) {
	msg := p.ScanMessage
	switch {
	case strings.Contains(msg, "scrub in progress"):
		p.ScanState = "scrub"
	case strings.Contains(msg, "resilver in progress"):
		p.ScanState = "resilver"
	default:
		p.ScanState = "none"
		return
	}
	if matches := scanPercent.FindStringSubmatch(msg); len(matches) > 1 {
		p.ScanPercent, _ = strconv.ParseFloat(matches[1], 64)
	}
}

func vdevType(name string, depth int) string {
	switch {
	case depth == 0:
		// Pool root or a "logs", "cache", "spares" group
		switch name {
		case "logs":
			return TypeLog
		case "cache":
			return TypeCache
		case "spares":
			return TypeSpare
		case "special", "dedup":
			return TypeSpecial
		}
		return TypePool
	case strings.HasPrefix(name, "raidz"):
		return TypeRaidz
	case strings.HasPrefix(name, "mirror"):
		return TypeMirror
	case strings.HasPrefix(name, "spare"):
		return TypeSpare
	case strings.HasPrefix(name, "replacing"):
		return TypeMirror
	case diskName.MatchString(name), strings.HasPrefix(name, "/dev/"):
		return TypeDisk
	}
	// Vdevs named by GUID after the disk disappeared
	if _, err := strconv.ParseUint(name, 10, 64); err == nil {
		return TypeDisk
	}
	return TypePool
}
