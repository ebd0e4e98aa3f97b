package zfs

import (
	"path"
	"strings"

	"github.com/sigreer/diskmap/internal/inventory"
)

// Member places one pool disk in the inventory
type Member struct {
	Pool     string `json:"pool"`
	Vdev     string `json:"vdev"`
	Device   string `json:"device"`
	State    string `json:"state"`
	Errors   int64  `json:"errors"`
	Serial   string `json:"serial,omitempty"`   // empty when no drive has this device
	Location string `json:"location,omitempty"` // controller:enclosure:slot
}

// Located reports whether the disk was found in an enclosure slot
func (m Member) Located() bool {
	return m.Serial != ""
}

// deviceKey strips the directory and slice or partition suffix so
// /dev/rdsk/c1t5000CCA01234ABCDd0 and c1t5000CCA01234ABCDd0s0 compare equal.
func deviceKey(name string) string {
	name = path.Base(name)
	if m := diskName.FindStringSubmatchIndex(name); m != nil && m[4] >= 0 {
		name = name[:m[4]]
	}
	return strings.ToUpper(name)
}

// Members lists every disk of pools, in zpool status order, with the drive
// that holds it.
func Members(inv *inventory.Inventory, pools []*Pool) []Member {
	byDevice := make(map[string]*inventory.Drive)
	for _, d := range inv.DriveList() {
		if d.Mapped() {
			byDevice[deviceKey(d.DevicePath)] = d
		}
	}

	var members []Member
	for _, p := range pools {
		for _, leaf := range p.Disks() {
			m := Member{
				Pool:   p.Name,
				Vdev:   leaf.Parent,
				Device: leaf.Disk.Name,
				State:  leaf.Disk.State,
				Errors: leaf.Disk.ReadErrs + leaf.Disk.WriteErrs + leaf.Disk.CksumErrs,
			}
			if d, ok := byDevice[deviceKey(leaf.Disk.Name)]; ok {
				m.Serial = d.Serial
				m.Location = d.Location()
			}
			members = append(members, m)
		}
	}
	return members
}
