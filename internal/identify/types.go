package identify

import (
	"errors"

	"github.com/sigreer/diskmap/internal/inventory"
)

// ErrNotFound is returned when a query doesn't match any drive
var ErrNotFound = errors.New("drive not found")

// IdentifierType describes what type of identifier was matched
type IdentifierType string

const (
	IDSerial     IdentifierType = "serial"
	IDDevicePath IdentifierType = "device_path"
	IDDeviceName IdentifierType = "device_name" // c1t5000CCA01234ABCDd0
	IDLocation   IdentifierType = "location"    // enc:slot or ctrl:enc:slot
)

// LookupResult contains the matched drive, where it sits, and how it matched
type LookupResult struct {
	Query      string                `json:"query"`
	MatchedAs  IdentifierType        `json:"matched_as"`
	Drive      *inventory.Drive      `json:"drive"`
	Enclosure  *inventory.Enclosure  `json:"enclosure,omitempty"`
	Controller *inventory.Controller `json:"controller,omitempty"`
}
