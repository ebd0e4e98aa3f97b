// Package devtree maps drive serials to OS device paths using the device
// tree dump of 'prtconf -v'.
package devtree

import (
	"strings"

	"github.com/sigreer/diskmap/internal/inventory"
)

const (
	// diskNodeMarker starts the section of one disk device node
	diskNodeMarker = "disk, instance"

	propSerial = "inquiry-serial-no"
	propGUID   = "client-guid"
)

// Mapping pairs a drive serial with the client GUID of its device node
type Mapping struct {
	Serial string // normalized
	GUID   string // upper case
}

// ParseDeviceTree extracts serial/GUID pairs from 'prtconf -v' output.
//
// The text is cut into one chunk per disk node. Within a chunk the
// inquiry-serial-no property must come before client-guid:
//
//	name='inquiry-serial-no' type=string items=1 dev=none
//	    value='WD-WCC4E1234567'
//	...
//	name='client-guid' type=string items=1
//	    value='50014ee2b1234567'
//
// Chunks lacking either property yield nothing. When a serial shows up more
// than once the last GUID wins.
func ParseDeviceTree(output string) []Mapping {
	var chunks [][]string
	for _, line := range strings.Split(output, "\n") {
		if idx := strings.Index(line, diskNodeMarker); idx >= 0 {
			chunks = append(chunks, []string{line[idx+len(diskNodeMarker):]})
			continue
		}
		if len(chunks) > 0 {
			chunks[len(chunks)-1] = append(chunks[len(chunks)-1], line)
		}
	}

	var mappings []Mapping
	index := make(map[string]int)
	for _, chunk := range chunks {
		for _, m := range parseChunk(chunk) {
			if i, ok := index[m.Serial]; ok {
				mappings[i] = m
				continue
			}
			index[m.Serial] = len(mappings)
			mappings = append(mappings, m)
		}
	}
	return mappings
}

func parseChunk(lines []string) []Mapping {
	var mappings []Mapping
	var pending, serial string

	for _, line := range lines {
		for {
			key, quoted, rest, ok := nextQuoted(line)
			if !ok {
				break
			}
			line = rest

			if key == "name=" {
				pending = quoted
				continue
			}
			switch pending {
			case propSerial:
				serial = inventory.NormalizeSerial(quoted)
			case propGUID:
				if guid := strings.ToUpper(strings.TrimSpace(quoted)); serial != "" && guid != "" {
					mappings = append(mappings, Mapping{Serial: serial, GUID: guid})
					serial = ""
				}
			}
			pending = ""
		}
	}
	return mappings
}

// nextQuoted finds the first name='...' or value='...' in line and returns
// which key it was, the quoted text and the remainder of the line
func nextQuoted(line string) (key, quoted, rest string, ok bool) {
	nameIdx := strings.Index(line, "name='")
	valueIdx := strings.Index(line, "value='")

	idx := nameIdx
	key = "name="
	if idx < 0 || (valueIdx >= 0 && valueIdx < idx) {
		idx = valueIdx
		key = "value="
	}
	if idx < 0 {
		return "", "", "", false
	}

	after := line[idx+len(key)+1:]
	end := strings.IndexByte(after, '\'')
	if end < 0 {
		return "", "", "", false
	}
	return key, after[:end], after[end+1:], true
}
