package db

import (
	"database/sql"
	"fmt"

	"github.com/sigreer/diskmap/internal/inventory"
)

// diffInventories lists what changed for each drive between two saves
func diffInventories(prev, next *inventory.Inventory) []DriveEvent {
	var events []DriveEvent

	for _, dr := range next.DriveList() {
		old, ok := prev.Drives[dr.Serial]
		if !ok || old.Serial != dr.Serial {
			events = append(events, DriveEvent{
				Serial:      dr.Serial,
				EventType:   EventDiscovered,
				RunID:       next.RunID,
				NewLocation: dr.Location(),
				DevicePath:  dr.DevicePath,
			})
			continue
		}
		if old.Location() != dr.Location() || old.Enclosure != dr.Enclosure {
			events = append(events, DriveEvent{
				Serial:      dr.Serial,
				EventType:   EventMoved,
				RunID:       next.RunID,
				OldLocation: old.Location(),
				NewLocation: dr.Location(),
				DevicePath:  dr.DevicePath,
			})
		}
		if dr.DevicePath != "" && dr.DevicePath != old.DevicePath {
			events = append(events, DriveEvent{
				Serial:      dr.Serial,
				EventType:   EventMapped,
				RunID:       next.RunID,
				NewLocation: dr.Location(),
				DevicePath:  dr.DevicePath,
			})
		}
	}

	for _, old := range prev.DriveList() {
		if _, ok := next.Drives[old.Serial]; !ok {
			events = append(events, DriveEvent{
				Serial:      old.Serial,
				EventType:   EventRemoved,
				RunID:       next.RunID,
				OldLocation: old.Location(),
				DevicePath:  old.DevicePath,
			})
		}
	}

	return events
}

// recordEvent logs a drive placement event
func recordEvent(tx *sql.Tx, ev DriveEvent) error {
	_, err := tx.Exec(`
		INSERT INTO drive_events (serial, event_type, run_id, old_location, new_location, device_path)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ev.Serial, ev.EventType, nullString(ev.RunID), nullString(ev.OldLocation),
		nullString(ev.NewLocation), nullString(ev.DevicePath))
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// DriveEvents returns events for a drive serial, newest first
func (d *DB) DriveEvents(serial string, limit int) ([]*DriveEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := d.conn.Query(`
		SELECT id, serial, event_type, run_id, old_location, new_location, device_path, timestamp
		FROM drive_events
		WHERE serial = ?
		ORDER BY id DESC
		LIMIT ?
	`, inventory.NormalizeSerial(serial), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query drive events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// RecentEvents returns the most recent events across all drives
func (d *DB) RecentEvents(limit int) ([]*DriveEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := d.conn.Query(`
		SELECT id, serial, event_type, run_id, old_location, new_location, device_path, timestamp
		FROM drive_events
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]*DriveEvent, error) {
	var events []*DriveEvent
	for rows.Next() {
		var e DriveEvent
		var runID, oldLocation, newLocation, devicePath sql.NullString

		err := rows.Scan(&e.ID, &e.Serial, &e.EventType, &runID, &oldLocation, &newLocation,
			&devicePath, &e.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		e.RunID = runID.String
		e.OldLocation = oldLocation.String
		e.NewLocation = newLocation.String
		e.DevicePath = devicePath.String
		events = append(events, &e)
	}
	return events, rows.Err()
}
