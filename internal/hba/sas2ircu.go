// Package hba parses the reports of the LSI sas2ircu utility into
// controller, enclosure and drive records.
package hba

import (
	"bufio"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sigreer/diskmap/internal/inventory"
)

// Keys of a "Device is a Hard disk" block, in the order sas2ircu prints them.
// Other keys (SAS Address, GUID, Unit Serial No(VPD)) may sit between them.
const (
	keyDriveEnclosure = "Enclosure #"
	keySlot           = "Slot #"
	keyState          = "State"
	keySize           = "Size (in MB)/(in sectors)"
	keyManufacturer   = "Manufacturer"
	keyModel          = "Model Number"
	keyFirmware       = "Firmware Revision"
	keySerial         = "Serial No"
	keyProtocol       = "Protocol"
	keyDriveType      = "Drive Type"
)

var driveKeys = []string{
	keyDriveEnclosure, keySlot, keyState, keySize, keyManufacturer,
	keyModel, keyFirmware, keySerial, keyProtocol, keyDriveType,
}

// Keys of an enclosure block
const (
	keyEnclosure = "Enclosure#"
	keyLogicalID = "Logical ID"
	keyNumSlots  = "Numslots"
)

// Display holds the enclosures and drives of one 'sas2ircu <n> DISPLAY' report
type Display struct {
	Controller int
	Enclosures []inventory.Enclosure
	Drives     []inventory.Drive
}

// ParseControllers parses output from 'sas2ircu LIST'.
//
// Only index lines are used:
//
//	0     SAS2008     1000h    72h   00h:03h:00h:00h      1000h   3020h
//
// Everything else (banner, headers, trailer) is ignored.
func ParseControllers(output string) []inventory.Controller {
	var controllers []inventory.Controller
	for _, line := range strings.Split(output, "\n") {
		if ctrl, ok := parseControllerLine(line); ok {
			controllers = append(controllers, ctrl)
		}
	}
	return controllers
}

func parseControllerLine(line string) (inventory.Controller, bool) {
	fields := strings.Fields(line)
	// index, adapter type (one or more words), then five fixed columns
	if len(fields) < 7 {
		return inventory.Controller{}, false
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil || id < 0 {
		return inventory.Controller{}, false
	}
	n := len(fields)
	if !strings.Contains(fields[n-3], ":") {
		return inventory.Controller{}, false
	}
	return inventory.Controller{
		ID:             id,
		AdapterType:    strings.Join(fields[1:n-5], " "),
		VendorID:       fields[n-5],
		DeviceID:       fields[n-4],
		PCIAddress:     fields[n-3],
		SubsysVendorID: fields[n-2],
		SubsysDeviceID: fields[n-1],
	}, true
}

// LoadControllers parses a LIST report into inv. Controllers already in
// inv with other IDs are kept. Returns the number of controllers found.
func LoadControllers(inv *inventory.Inventory, output string) int {
	controllers := ParseControllers(output)
	for _, c := range controllers {
		inv.PutController(c)
	}
	return len(controllers)
}

// enclosureBuilder tracks an enclosure block until Numslots is seen
type enclosureBuilder struct {
	enc  inventory.Enclosure
	next string
}

// driveBuilder tracks a hard disk block until Drive Type is seen
type driveBuilder struct {
	drive inventory.Drive
	line  int
	next  int // index into driveKeys
}

type displayParser struct {
	controller int
	logger     *slog.Logger

	display   *Display
	enclosure *enclosureBuilder
	drive     *driveBuilder
}

// ParseDisplay parses output from 'sas2ircu <n> DISPLAY'.
//
// Enclosures are collected from the whole report before drives are
// resolved, since sas2ircu prints physical devices first. A drive whose
// enclosure index is not declared in the same report is a ParseError.
func ParseDisplay(output string, controllerID int, logger *slog.Logger) (*Display, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &displayParser{
		controller: controllerID,
		logger:     logger,
		display:    &Display{Controller: controllerID},
	}

	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := p.parseLine(lineNo, scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read controller %d report: %w", controllerID, err)
	}
	p.abandonDrive("end of report")

	if err := p.resolveDrives(); err != nil {
		return nil, err
	}
	return p.display, nil
}

func (p *displayParser) parseLine(lineNo int, raw string) error {
	line := strings.TrimSpace(raw)

	if strings.HasPrefix(line, "Device is a") {
		p.abandonDrive("new device block")
		if strings.Contains(line, "Hard disk") {
			p.drive = &driveBuilder{line: lineNo}
		}
		return nil
	}
	if strings.HasPrefix(line, "---") {
		p.abandonDrive("section separator")
		p.enclosure = nil
		return nil
	}

	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return nil
	}
	key := strings.Join(strings.Fields(parts[0]), " ")
	val := strings.TrimSpace(parts[1])

	switch key {
	case keyEnclosure, keyLogicalID, keyNumSlots:
		return p.parseEnclosureField(lineNo, key, val)
	}
	if p.drive != nil {
		return p.parseDriveField(lineNo, key, val)
	}
	return nil
}

func (p *displayParser) parseEnclosureField(lineNo int, key, val string) error {
	switch key {
	case keyEnclosure:
		idx, err := p.atoi(lineNo, key, val)
		if err != nil {
			return err
		}
		p.enclosure = &enclosureBuilder{
			enc:  inventory.Enclosure{Index: idx, Controller: p.controller},
			next: keyLogicalID,
		}
	case keyLogicalID:
		if p.enclosure == nil || p.enclosure.next != key {
			p.enclosure = nil
			return nil
		}
		p.enclosure.enc.ID = val
		p.enclosure.next = keyNumSlots
	case keyNumSlots:
		if p.enclosure == nil || p.enclosure.next != key {
			p.enclosure = nil
			return nil
		}
		slots, err := p.atoi(lineNo, key, val)
		if err != nil {
			return err
		}
		p.enclosure.enc.NumSlots = slots
		p.display.Enclosures = append(p.display.Enclosures, p.enclosure.enc)
		p.enclosure = nil
	}
	return nil
}

func (p *displayParser) parseDriveField(lineNo int, key, val string) error {
	pos := -1
	for i, k := range driveKeys {
		if k == key {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil
	}
	if pos != p.drive.next {
		p.abandonDrive(fmt.Sprintf("field %q out of order", key))
		return nil
	}

	d := &p.drive.drive
	var err error
	switch key {
	case keyDriveEnclosure:
		d.EnclosureIndex, err = p.atoi(lineNo, key, val)
	case keySlot:
		d.Slot, err = p.atoi(lineNo, key, val)
	case keyState:
		d.State = val
	case keySize:
		d.SizeMB, d.SizeSectors, err = p.parseSize(lineNo, val)
	case keyManufacturer:
		d.Manufacturer = val
	case keyModel:
		d.Model = val
	case keyFirmware:
		d.Firmware = val
	case keySerial:
		d.Serial = inventory.NormalizeSerial(val)
	case keyProtocol:
		d.Protocol = val
	case keyDriveType:
		d.DriveType = val
	}
	if err != nil {
		return err
	}

	p.drive.next++
	if p.drive.next == len(driveKeys) {
		if d.Serial == "" {
			p.abandonDrive("empty serial")
			return nil
		}
		p.display.Drives = append(p.display.Drives, *d)
		p.drive = nil
	}
	return nil
}

// parseSize parses "1907729/3907029167"
func (p *displayParser) parseSize(lineNo int, val string) (int64, int64, error) {
	parts := strings.Split(val, "/")
	if len(parts) != 2 {
		return 0, 0, &ParseError{Controller: p.controller, Line: lineNo, Field: keySize, Value: val,
			Err: fmt.Errorf("expected <MB>/<sectors>")}
	}
	mb, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return 0, 0, &ParseError{Controller: p.controller, Line: lineNo, Field: keySize, Value: val, Err: err}
	}
	sectors, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
	if err != nil {
		return 0, 0, &ParseError{Controller: p.controller, Line: lineNo, Field: keySize, Value: val, Err: err}
	}
	return mb, sectors, nil
}

func (p *displayParser) atoi(lineNo int, key, val string) (int, error) {
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, &ParseError{Controller: p.controller, Line: lineNo, Field: key, Value: val, Err: err}
	}
	return n, nil
}

func (p *displayParser) abandonDrive(reason string) {
	if p.drive == nil {
		return
	}
	if p.drive.next > 0 {
		p.logger.Debug("skipping incomplete hard disk block",
			"controller", p.controller, "line", p.drive.line, "reason", reason,
			"missing", driveKeys[p.drive.next])
	}
	p.drive = nil
}

// resolveDrives links each drive to the enclosure declared with its index
func (p *displayParser) resolveDrives() error {
	byIndex := make(map[int]inventory.Enclosure, len(p.display.Enclosures))
	for _, e := range p.display.Enclosures {
		byIndex[e.Index] = e
	}
	for i := range p.display.Drives {
		d := &p.display.Drives[i]
		enc, ok := byIndex[d.EnclosureIndex]
		if !ok {
			return &ParseError{
				Controller: p.controller,
				Field:      keyDriveEnclosure,
				Value:      strconv.Itoa(d.EnclosureIndex),
				Err:        fmt.Errorf("drive %s: %w", d.Serial, ErrUnknownEnclosure),
			}
		}
		d.Enclosure = enc.ID
		d.Controller = p.controller
	}
	return nil
}

// LoadDisplay parses a DISPLAY report and merges its enclosures and drives
// into inv, overwriting entries with the same logical ID or serial. Nothing
// is merged when the report fails to parse.
func LoadDisplay(inv *inventory.Inventory, output string, controllerID int, logger *slog.Logger) (*Display, error) {
	display, err := ParseDisplay(output, controllerID, logger)
	if err != nil {
		return nil, err
	}
	for _, e := range display.Enclosures {
		inv.PutEnclosure(e)
	}
	for _, d := range display.Drives {
		inv.PutDrive(d)
	}
	return display, nil
}
