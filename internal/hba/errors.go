package hba

import (
	"errors"
	"fmt"
)

// ErrUnknownEnclosure is wrapped by ParseError when a drive references an
// enclosure index the same report never declared
var ErrUnknownEnclosure = errors.New("enclosure not declared in report")

// ParseError reports a record in a sas2ircu report that cannot be used.
// It aborts the discovery pass for that controller.
type ParseError struct {
	Controller int
	Line       int // 1-based line in the report, 0 if not tied to a line
	Field      string
	Value      string
	Err        error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("controller %d report line %d: field %q value %q: %v",
			e.Controller, e.Line, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("controller %d report: field %q value %q: %v",
		e.Controller, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
