package ipfix

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrVersion is returned when a message header does not carry version 10
	ErrVersion = errors.New("incompatible protocol version, only v10 is supported")

	// ErrReservedSetID is returned for set IDs 0, 1 and 4-255
	ErrReservedSetID = errors.New("set IDs 0-1 and 4-255 are reserved")

	// ErrReservedTemplateID is returned for template IDs 0-255
	ErrReservedTemplateID = errors.New("template IDs 0-255 are reserved")

	// ErrSetLength is returned when a set header announces a length of 4 bytes or less
	ErrSetLength = errors.New("invalid set length")

	// ErrRecordOverrun is returned when a record does not fit into the remaining bytes of its set
	ErrRecordOverrun = errors.New("record exceeds set boundary")

	// ErrValueOverflow is returned when a value does not fit into its wire representation
	ErrValueOverflow = errors.New("value too large for field")

	// ErrInvalidString is returned when a string field does not hold valid UTF-8
	ErrInvalidString = errors.New("invalid UTF-8 in string field")

	// ErrFieldValueType is returned when the value of a data record does not match the template field
	ErrFieldValueType = errors.New("value does not match field type")
)

// Error is the error type returned by all decode and encode operations. Pos is the byte
// offset at which the problem was detected, relative to the start of the message.
type Error struct {
	Pos int64
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("IPFIX: %v (at offset %d)", e.Err, e.Pos)
}

// Cause returns the underlying error
func (e *Error) Cause() error {
	return e.Err
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(pos int64, err error) error {
	if _, ok := err.(*Error); ok {
		return err
	}

	return &Error{
		Pos: pos,
		Err: err,
	}
}

// MissingTemplateError reports a data set or lookup referencing an unknown template
type MissingTemplateError struct {
	TemplateID uint16
}

func (e *MissingTemplateError) Error() string {
	return fmt.Sprintf("missing template %d", e.TemplateID)
}

// MissingDataError reports a data record lacking a value required by its template
type MissingDataError struct {
	Key DataRecordKey
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("missing data for %s", e.Key)
}

// InvalidFieldSpecLengthError reports a (type, length) pair without a wire representation
type InvalidFieldSpecLengthError struct {
	Type   DataRecordType
	Length uint16
}

func (e *InvalidFieldSpecLengthError) Error() string {
	return fmt.Sprintf("invalid length for field spec: %s, %d", e.Type, e.Length)
}
