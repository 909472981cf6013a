package xblk

import (
	"errors"
	"fmt"
)

var (
	// ErrOffsetOutOfRange is returned by the field readers when the requested
	// field extends past the end of the buffer.
	ErrOffsetOutOfRange = errors.New("field offset out of range")

	// ErrMalformedRecord is returned when a record is too short for its
	// declared channel count or for the layout its type requires.
	ErrMalformedRecord = errors.New("malformed XBLK record")

	// ErrUnsupportedType marks records whose type is neither 0 nor 3. The
	// decoder does not return it; callers may use it to classify.
	ErrUnsupportedType = errors.New("unsupported XBLK type")

	// ErrConversion is returned when the sample interval is not a positive number.
	ErrConversion = errors.New("invalid sample interval")
)

// OffsetError describes a field read that did not fit in the buffer.
type OffsetError struct {
	Offset int
	Width  int
	Len    int
}

func (e *OffsetError) Error() string {
	return fmt.Sprintf("read of %d bytes at offset %d exceeds buffer of %d bytes", e.Width, e.Offset, e.Len)
}

func (e *OffsetError) Unwrap() error { return ErrOffsetOutOfRange }

// MalformedRecordError reports why a record could not be decoded.
type MalformedRecordError struct {
	Sequence uint16
	Type     uint8
	Channels int
	Need     int // bytes (or channels, see Reason) required
	Have     int
	Reason   string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed XBLK record seq=%d type=%d channels=%d: %s (need %d, have %d)",
		e.Sequence, e.Type, e.Channels, e.Reason, e.Need, e.Have)
}

func (e *MalformedRecordError) Unwrap() error { return ErrMalformedRecord }
