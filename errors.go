package sierramarc

import (
	"errors"
	"fmt"
)

// Framing errors returned by the Reader. Iteration stops on the step after
// one of these is reported since the stream position can no longer be
// trusted.
var (
	ErrTruncatedRecord     = errors.New("truncated record")
	ErrRecordLengthInvalid = errors.New("invalid record length")
	ErrEndOfRecordNotFound = errors.New("record terminator not found")
)

// Parse errors returned by Parse. They are isolated to a single record.
var (
	ErrLeaderInvalid      = errors.New("invalid record leader")
	ErrBaseAddressInvalid = errors.New("invalid base address")
	ErrDirectoryInvalid   = errors.New("invalid record directory")
	ErrFieldInvalid       = errors.New("invalid field")
)

// Validation errors returned by constructors.
var (
	ErrInvalidLibrary        = errors.New("invalid library, must be 'bpl' or 'nypl'")
	ErrInvalidOclcNumber     = errors.New("invalid OCLC number")
	ErrNonRepeatableSubfield = errors.New("non-repeatable subfield repeated")
	ErrMissingOrderNumber    = errors.New("order field must contain an order number (960$z)")
	ErrInvalidOrderNumber    = errors.New("invalid order number")
	ErrNilRecord             = errors.New("record is nil")
)

// Usage errors.
var (
	ErrInvalidSortMode  = errors.New("invalid sort mode, must be 'ascending' or 'descending'")
	ErrMissingMainEntry = errors.New("incomplete MARC record: missing the main entry")
)

// ReadError describes a failure at a given step of a Reader. Position is the
// zero based index of the record in the stream and Offset the byte offset at
// which the record started.
type ReadError struct {
	Position int
	Offset   int64
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("record %d at byte %d: %v", e.Position, e.Offset, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// IsFraming reports whether err is one of the framing errors.
func IsFraming(err error) bool {
	return errors.Is(err, ErrTruncatedRecord) ||
		errors.Is(err, ErrRecordLengthInvalid) ||
		errors.Is(err, ErrEndOfRecordNotFound)
}
