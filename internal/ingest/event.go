package ingest

import (
	"errors"
	"fmt"
)

// Markers that classify a block of the input.
const (
	MarkerXBLK = "XBLK"
	MarkerNAVD = "NAVD"
)

// EventKind distinguishes what a source produced.
type EventKind int

const (
	// EventRecord carries the bytes of one XBLK record.
	EventRecord EventKind = iota
	// EventUnparsed marks a block that held no XBLK record.
	EventUnparsed
)

// Unparsed reasons.
const (
	ReasonNAVD    = "NAVD"
	ReasonUnknown = "unknown"
)

// Event is one item produced by a record source.
type Event struct {
	Kind EventKind
	// Line is the 1-based input line that completed the event; for capture
	// sources it is the 1-based packet index.
	Line int
	// Data holds the record bytes following the XBLK marker (EventRecord).
	Data []byte
	// Reason is ReasonNAVD or ReasonUnknown (EventUnparsed).
	Reason string
}

// Handler receives events in input order. Returning an error stops the source.
type Handler func(Event) error

// ErrBadHexLine is returned when a line inside a record cannot be tokenized.
var ErrBadHexLine = errors.New("bad hex dump line")

// LineError locates a tokenizing failure in the input.
type LineError struct {
	Line  int
	Text  string
	Cause string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Cause, e.Text)
}

func (e *LineError) Unwrap() error { return ErrBadHexLine }
