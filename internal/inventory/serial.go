package inventory

import "strings"

// wdVendorPrefix is how prtconf reports Western Digital serials. sas2ircu
// reports the same drives without the hyphen, e.g. WD-WCC4E1234567 vs
// WDWCC4E1234567.
//
// This is the only known serial mangling between the two tools. Review
// before adding other vendors here.
const wdVendorPrefix = "WD-"

// NormalizeSerial trims and uppercases a drive serial and rejoins the
// Western Digital "WD-" prefix. All other serials pass through unchanged.
func NormalizeSerial(serial string) string {
	serial = strings.ToUpper(strings.TrimSpace(serial))
	if strings.HasPrefix(serial, wdVendorPrefix) {
		serial = "WD" + strings.TrimPrefix(serial, wdVendorPrefix)
	}
	return serial
}
