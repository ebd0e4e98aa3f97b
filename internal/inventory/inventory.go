// Package inventory holds the discovered controllers, enclosures and drives
// of a host together with the serial and device path lookups over them.
package inventory

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ErrInconsistent is wrapped by Validate when a reference does not resolve
var ErrInconsistent = errors.New("inventory inconsistent")

// Inventory is the aggregate of one discovery run.
//
// Drives holds every drive under its serial. Once a drive has been mapped to
// an OS device it is also reachable under its device path; both keys point to
// the same *Drive.
type Inventory struct {
	RunID       string
	Controllers map[int]*Controller
	Enclosures  map[string]*Enclosure
	Drives      map[string]*Drive
}

// New creates an empty inventory
func New() *Inventory {
	return &Inventory{
		Controllers: make(map[int]*Controller),
		Enclosures:  make(map[string]*Enclosure),
		Drives:      make(map[string]*Drive),
	}
}

// NewRun creates an empty inventory stamped with a fresh run ID
func NewRun() *Inventory {
	inv := New()
	inv.RunID = uuid.NewString()
	return inv
}

// PutController stores a controller, replacing any previous one with the same ID
func (inv *Inventory) PutController(c Controller) {
	inv.Controllers[c.ID] = &c
}

// PutEnclosure stores an enclosure, replacing any previous one with the same logical ID
func (inv *Inventory) PutEnclosure(e Enclosure) {
	inv.Enclosures[e.ID] = &e
}

// PutDrive stores a drive under its serial. A drive previously stored under
// the same serial is replaced and its device path alias dropped.
func (inv *Inventory) PutDrive(d Drive) *Drive {
	if old, ok := inv.Drives[d.Serial]; ok && old.DevicePath != "" {
		if inv.Drives[old.DevicePath] == old {
			delete(inv.Drives, old.DevicePath)
		}
	}
	inv.Drives[d.Serial] = &d
	return &d
}

// AttachDevice sets the device path of the drive with the given serial and
// registers the reverse lookup. Returns false if no such drive exists.
func (inv *Inventory) AttachDevice(serial, devicePath string) bool {
	d, ok := inv.Drives[serial]
	if !ok || d.Serial != serial {
		return false
	}
	if d.DevicePath != "" && d.DevicePath != devicePath && inv.Drives[d.DevicePath] == d {
		delete(inv.Drives, d.DevicePath)
	}
	d.DevicePath = devicePath
	inv.Drives[devicePath] = d
	return true
}

// Lookup finds a drive by serial or device path. Serials are normalized
// before the lookup so "wd-wcc4e1234567" finds "WDWCC4E1234567".
func (inv *Inventory) Lookup(key string) (*Drive, bool) {
	if d, ok := inv.Drives[key]; ok {
		return d, true
	}
	if d, ok := inv.Drives[NormalizeSerial(key)]; ok {
		return d, true
	}
	return nil, false
}

// DriveAt returns the drive at controller/enclosure index/slot
func (inv *Inventory) DriveAt(controller, enclosureIndex, slot int) (*Drive, bool) {
	for _, d := range inv.DriveList() {
		if d.Controller == controller && d.EnclosureIndex == enclosureIndex && d.Slot == slot {
			return d, true
		}
	}
	return nil, false
}

// DriveInSlot returns the drive at enclosure index/slot on any controller.
// The lowest controller ID wins when several controllers use the same index.
func (inv *Inventory) DriveInSlot(enclosureIndex, slot int) (*Drive, bool) {
	for _, d := range inv.DriveList() {
		if d.EnclosureIndex == enclosureIndex && d.Slot == slot {
			return d, true
		}
	}
	return nil, false
}

// DriveList returns each drive once, ordered by controller, enclosure and slot
func (inv *Inventory) DriveList() []*Drive {
	drives := make([]*Drive, 0, len(inv.Drives))
	for key, d := range inv.Drives {
		if key != d.Serial {
			continue
		}
		drives = append(drives, d)
	}
	sort.Slice(drives, func(i, j int) bool {
		a, b := drives[i], drives[j]
		if a.Controller != b.Controller {
			return a.Controller < b.Controller
		}
		if a.EnclosureIndex != b.EnclosureIndex {
			return a.EnclosureIndex < b.EnclosureIndex
		}
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return a.Serial < b.Serial
	})
	return drives
}

// Aliases returns the device path keys of the drive map, sorted
func (inv *Inventory) Aliases() []string {
	var paths []string
	for key, d := range inv.Drives {
		if key != d.Serial {
			paths = append(paths, key)
		}
	}
	sort.Strings(paths)
	return paths
}

// ControllerList returns controllers ordered by ID
func (inv *Inventory) ControllerList() []*Controller {
	ctrls := make([]*Controller, 0, len(inv.Controllers))
	for _, c := range inv.Controllers {
		ctrls = append(ctrls, c)
	}
	sort.Slice(ctrls, func(i, j int) bool { return ctrls[i].ID < ctrls[j].ID })
	return ctrls
}

// ControllerIDs returns the known controller IDs in ascending order
func (inv *Inventory) ControllerIDs() []int {
	ids := make([]int, 0, len(inv.Controllers))
	for id := range inv.Controllers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// EnclosureList returns enclosures ordered by controller and index
func (inv *Inventory) EnclosureList() []*Enclosure {
	encs := make([]*Enclosure, 0, len(inv.Enclosures))
	for _, e := range inv.Enclosures {
		encs = append(encs, e)
	}
	sort.Slice(encs, func(i, j int) bool {
		if encs[i].Controller != encs[j].Controller {
			return encs[i].Controller < encs[j].Controller
		}
		if encs[i].Index != encs[j].Index {
			return encs[i].Index < encs[j].Index
		}
		return encs[i].ID < encs[j].ID
	})
	return encs
}

// Validate checks that every drive references a known enclosure and
// controller, and that every device path key aliases a drive that is also
// stored under its serial.
func (inv *Inventory) Validate() error {
	for id, c := range inv.Controllers {
		if c.ID != id {
			return fmt.Errorf("%w: controller key %d holds controller %d", ErrInconsistent, id, c.ID)
		}
	}
	for id, e := range inv.Enclosures {
		if e.ID != id {
			return fmt.Errorf("%w: enclosure key %q holds enclosure %q", ErrInconsistent, id, e.ID)
		}
		if _, ok := inv.Controllers[e.Controller]; !ok {
			return fmt.Errorf("%w: enclosure %s references unknown controller %d", ErrInconsistent, e.ID, e.Controller)
		}
	}
	for key, d := range inv.Drives {
		if key != d.Serial {
			if key != d.DevicePath {
				return fmt.Errorf("%w: device key %s aliases drive %s mapped to %q", ErrInconsistent, key, d.Serial, d.DevicePath)
			}
			if inv.Drives[d.Serial] != d {
				return fmt.Errorf("%w: device key %s aliases drive %s not stored under its serial", ErrInconsistent, key, d.Serial)
			}
			continue
		}
		// A dual-path enclosure is reported by both controllers, so the
		// drive and its enclosure may name different ones.
		if _, ok := inv.Enclosures[d.Enclosure]; !ok {
			return fmt.Errorf("%w: drive %s references unknown enclosure %q", ErrInconsistent, d.Serial, d.Enclosure)
		}
		if _, ok := inv.Controllers[d.Controller]; !ok {
			return fmt.Errorf("%w: drive %s references unknown controller %d", ErrInconsistent, d.Serial, d.Controller)
		}
		if d.DevicePath != "" && inv.Drives[d.DevicePath] != d {
			return fmt.Errorf("%w: drive %s mapped to %s without reverse lookup", ErrInconsistent, d.Serial, d.DevicePath)
		}
	}
	return nil
}

// Equal compares two inventories field for field, including the device
// path keys and the requirement that they alias the serial entry.
func (inv *Inventory) Equal(other *Inventory) bool {
	if inv == nil || other == nil {
		return inv == other
	}
	if !reflect.DeepEqual(inv, other) {
		return false
	}
	return inv.aliasesShared() && other.aliasesShared()
}

func (inv *Inventory) aliasesShared() bool {
	for _, path := range inv.Aliases() {
		d := inv.Drives[path]
		if inv.Drives[d.Serial] != d {
			return false
		}
	}
	return true
}

// FormatLocation renders a drive location as "controller:enclosure:slot"
func FormatLocation(controller, enclosureIndex, slot int) string {
	return strconv.Itoa(controller) + ":" + strconv.Itoa(enclosureIndex) + ":" + strconv.Itoa(slot)
}

// ParseLocation accepts "enclosure:slot" or "controller:enclosure:slot".
// controller is -1 when only two parts are given.
func ParseLocation(s string) (controller, enclosureIndex, slot int, err error) {
	parts := strings.Split(s, ":")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return 0, 0, 0, fmt.Errorf("invalid location %q", s)
		}
		nums[i] = n
	}
	switch len(nums) {
	case 2:
		return -1, nums[0], nums[1], nil
	case 3:
		return nums[0], nums[1], nums[2], nil
	}
	return 0, 0, 0, fmt.Errorf("invalid location %q", s)
}
