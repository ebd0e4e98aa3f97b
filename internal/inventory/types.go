package inventory

// Controller is a SAS HBA as reported by 'sas2ircu LIST'
type Controller struct {
	ID             int    `json:"id" cbor:"id"`                         // Controller index
	AdapterType    string `json:"adapter_type" cbor:"adapter_type"`     // SAS2008, etc.
	VendorID       string `json:"vendor_id" cbor:"vendor_id"`           // 1000h
	DeviceID       string `json:"device_id" cbor:"device_id"`           // 72h
	PCIAddress     string `json:"pci_address" cbor:"pci_address"`       // 00h:03h:00h:00h
	SubsysVendorID string `json:"subsys_vendor_id" cbor:"subsys_vendor_id"`
	SubsysDeviceID string `json:"subsys_device_id" cbor:"subsys_device_id"`
}

// Enclosure is a drive chassis attached to one controller
type Enclosure struct {
	ID         string `json:"id" cbor:"id"`                 // Logical ID, globally unique
	Index      int    `json:"index" cbor:"index"`           // Enclosure# within the controller
	NumSlots   int    `json:"num_slots" cbor:"num_slots"`   // Total slots
	Controller int    `json:"controller" cbor:"controller"` // Owning controller ID
}

// Drive is a physical disk occupying one enclosure slot
type Drive struct {
	// Identification
	Serial       string `json:"serial" cbor:"serial"` // Normalized, primary key
	Manufacturer string `json:"manufacturer" cbor:"manufacturer"`
	Model        string `json:"model" cbor:"model"`
	Firmware     string `json:"firmware" cbor:"firmware"`

	// Location
	EnclosureIndex int    `json:"enclosure_index" cbor:"enclosure_index"`
	Slot           int    `json:"slot" cbor:"slot"`
	Enclosure      string `json:"enclosure" cbor:"enclosure"`   // Enclosure logical ID
	Controller     int    `json:"controller" cbor:"controller"` // Controller ID

	// Characteristics
	State       string `json:"state" cbor:"state"`           // Ready (RDY), Optimal (OPT), ...
	SizeMB      int64  `json:"size_mb" cbor:"size_mb"`
	SizeSectors int64  `json:"size_sectors" cbor:"size_sectors"`
	Protocol    string `json:"protocol" cbor:"protocol"`     // SAS, SATA
	DriveType   string `json:"drive_type" cbor:"drive_type"` // SAS_HDD, SATA_SSD, ...

	// OS device path, empty until reconciled
	DevicePath string `json:"device_path,omitempty" cbor:"device_path,omitempty"`
}

// Location returns the "controller:enclosure:slot" form used in listings
func (d *Drive) Location() string {
	return FormatLocation(d.Controller, d.EnclosureIndex, d.Slot)
}

// Mapped reports whether the drive has been matched to an OS device
func (d *Drive) Mapped() bool {
	return d.DevicePath != ""
}
