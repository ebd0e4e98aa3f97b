package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sigreer/diskmap/internal/inventory"
	"github.com/sigreer/diskmap/internal/snapshot"
)

// Save replaces the stored inventory with inv and records placement events
// against the previously saved one.
func (d *DB) Save(inv *inventory.Inventory) error {
	if err := inv.Validate(); err != nil {
		return fmt.Errorf("refusing to save: %w", err)
	}

	prev, err := d.Load()
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		prev = inventory.New()
	} else if err != nil {
		return err
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin save: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"drive_aliases", "drives", "enclosures", "controllers", "snapshot_meta"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if _, err := tx.Exec(`INSERT INTO snapshot_meta (id, run_id) VALUES (1, ?)`, inv.RunID); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	for _, c := range inv.ControllerList() {
		_, err := tx.Exec(`
			INSERT INTO controllers (id, adapter_type, vendor_id, device_id, pci_address, subsys_vendor_id, subsys_device_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, c.ID, c.AdapterType, c.VendorID, c.DeviceID, c.PCIAddress, c.SubsysVendorID, c.SubsysDeviceID)
		if err != nil {
			return fmt.Errorf("failed to save controller %d: %w", c.ID, err)
		}
	}

	for _, e := range inv.EnclosureList() {
		_, err := tx.Exec(`
			INSERT INTO enclosures (logical_id, enclosure_index, num_slots, controller_id)
			VALUES (?, ?, ?, ?)
		`, e.ID, e.Index, e.NumSlots, e.Controller)
		if err != nil {
			return fmt.Errorf("failed to save enclosure %s: %w", e.ID, err)
		}
	}

	for _, dr := range inv.DriveList() {
		_, err := tx.Exec(`
			INSERT INTO drives (
				serial, manufacturer, model, firmware, enclosure_index, slot, enclosure_id,
				controller_id, state, size_mb, size_sectors, protocol, drive_type, device_path
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, dr.Serial, dr.Manufacturer, dr.Model, dr.Firmware, dr.EnclosureIndex, dr.Slot, dr.Enclosure,
			dr.Controller, dr.State, dr.SizeMB, dr.SizeSectors, dr.Protocol, dr.DriveType,
			nullString(dr.DevicePath))
		if err != nil {
			return fmt.Errorf("failed to save drive %s: %w", dr.Serial, err)
		}
	}

	for _, path := range inv.Aliases() {
		_, err := tx.Exec(`INSERT INTO drive_aliases (device_path, serial) VALUES (?, ?)`,
			path, inv.Drives[path].Serial)
		if err != nil {
			return fmt.Errorf("failed to save alias %s: %w", path, err)
		}
	}

	for _, ev := range diffInventories(prev, inv) {
		if err := recordEvent(tx, ev); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit save: %w", err)
	}
	return nil
}

// Load rebuilds the last saved inventory. Returns snapshot.ErrNoSnapshot
// if nothing was saved yet.
func (d *DB) Load() (*inventory.Inventory, error) {
	inv := inventory.New()

	var runID sql.NullString
	err := d.conn.QueryRow(`SELECT run_id FROM snapshot_meta WHERE id = 1`).Scan(&runID)
	if err == sql.ErrNoRows {
		return nil, snapshot.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata: %w", err)
	}
	inv.RunID = runID.String

	if err := d.loadControllers(inv); err != nil {
		return nil, err
	}
	if err := d.loadEnclosures(inv); err != nil {
		return nil, err
	}
	if err := d.loadDrives(inv); err != nil {
		return nil, err
	}
	if err := d.loadAliases(inv); err != nil {
		return nil, err
	}

	if err := inv.Validate(); err != nil {
		return nil, fmt.Errorf("stored inventory invalid: %w", err)
	}
	return inv, nil
}

func (d *DB) loadControllers(inv *inventory.Inventory) error {
	rows, err := d.conn.Query(`
		SELECT id, adapter_type, vendor_id, device_id, pci_address, subsys_vendor_id, subsys_device_id
		FROM controllers ORDER BY id
	`)
	if err != nil {
		return fmt.Errorf("failed to query controllers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c inventory.Controller
		var vendorID, deviceID, pciAddress, subsysVendorID, subsysDeviceID sql.NullString
		if err := rows.Scan(&c.ID, &c.AdapterType, &vendorID, &deviceID, &pciAddress,
			&subsysVendorID, &subsysDeviceID); err != nil {
			return fmt.Errorf("failed to scan controller: %w", err)
		}
		c.VendorID = vendorID.String
		c.DeviceID = deviceID.String
		c.PCIAddress = pciAddress.String
		c.SubsysVendorID = subsysVendorID.String
		c.SubsysDeviceID = subsysDeviceID.String
		inv.PutController(c)
	}
	return rows.Err()
}

func (d *DB) loadEnclosures(inv *inventory.Inventory) error {
	rows, err := d.conn.Query(`
		SELECT logical_id, enclosure_index, num_slots, controller_id FROM enclosures
	`)
	if err != nil {
		return fmt.Errorf("failed to query enclosures: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e inventory.Enclosure
		if err := rows.Scan(&e.ID, &e.Index, &e.NumSlots, &e.Controller); err != nil {
			return fmt.Errorf("failed to scan enclosure: %w", err)
		}
		inv.PutEnclosure(e)
	}
	return rows.Err()
}

func (d *DB) loadDrives(inv *inventory.Inventory) error {
	rows, err := d.conn.Query(`
		SELECT serial, manufacturer, model, firmware, enclosure_index, slot, enclosure_id,
			controller_id, state, size_mb, size_sectors, protocol, drive_type, device_path
		FROM drives
	`)
	if err != nil {
		return fmt.Errorf("failed to query drives: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dr inventory.Drive
		var manufacturer, model, firmware, state, protocol, driveType, devicePath sql.NullString
		var sizeMB, sizeSectors sql.NullInt64

		err := rows.Scan(&dr.Serial, &manufacturer, &model, &firmware, &dr.EnclosureIndex, &dr.Slot,
			&dr.Enclosure, &dr.Controller, &state, &sizeMB, &sizeSectors, &protocol, &driveType, &devicePath)
		if err != nil {
			return fmt.Errorf("failed to scan drive row: %w", err)
		}

		dr.Manufacturer = manufacturer.String
		dr.Model = model.String
		dr.Firmware = firmware.String
		dr.State = state.String
		dr.SizeMB = sizeMB.Int64
		dr.SizeSectors = sizeSectors.Int64
		dr.Protocol = protocol.String
		dr.DriveType = driveType.String
		dr.DevicePath = devicePath.String
		inv.PutDrive(dr)
	}
	return rows.Err()
}

func (d *DB) loadAliases(inv *inventory.Inventory) error {
	rows, err := d.conn.Query(`SELECT device_path, serial FROM drive_aliases`)
	if err != nil {
		return fmt.Errorf("failed to query aliases: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var path, serial string
		if err := rows.Scan(&path, &serial); err != nil {
			return fmt.Errorf("failed to scan alias: %w", err)
		}
		dr, ok := inv.Drives[serial]
		if !ok {
			return fmt.Errorf("alias %s references unknown drive %s", path, serial)
		}
		inv.Drives[path] = dr
	}
	return rows.Err()
}
