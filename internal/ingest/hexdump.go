package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// maxLineSize bounds a single hex dump line.
const maxLineSize = 1 << 20

// Assembler rebuilds XBLK records from a Wireshark "packet bytes" text
// export. One Assembler is one assembly session: lines are fed in order and
// each blank line closes the current block.
//
// A block whose first marker line contains "XBLK" becomes a record made of
// the hex bytes on the lines after the marker line. Each data line is
// "<address>  <hex byte> <hex byte> ...   <ascii>". Blocks with "NAVD", or
// with no marker, are reported as unparsed when their blank line arrives.
type Assembler struct {
	line     int
	inRecord bool
	navd     bool
	buf      []byte
}

// NewAssembler starts a new session.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Line returns the number of lines fed so far.
func (a *Assembler) Line() int {
	return a.line
}

// Feed consumes one input line (with or without its terminator). It
// returns an event when the line closed a block.
func (a *Assembler) Feed(text string) (Event, bool, error) {
	a.line++
	text = strings.TrimRight(text, "\r\n")

	if text == "" {
		return a.closeBlock(), true, nil
	}

	if !a.inRecord {
		switch {
		case strings.Contains(text, MarkerXBLK):
			a.inRecord = true
			a.buf = a.buf[:0]
		case strings.Contains(text, MarkerNAVD):
			a.navd = true
		}
		return Event{}, false, nil
	}

	if err := a.appendHexLine(text); err != nil {
		return Event{}, false, err
	}
	return Event{}, false, nil
}

// Flush ends the session, returning the record still being assembled when
// the input ended without a trailing blank line.
func (a *Assembler) Flush() (Event, bool) {
	if !a.inRecord {
		return Event{}, false
	}
	return a.closeBlock(), true
}

func (a *Assembler) closeBlock() Event {
	switch {
	case a.inRecord:
		data := make([]byte, len(a.buf))
		copy(data, a.buf)
		a.inRecord = false
		a.buf = a.buf[:0]
		return Event{Kind: EventRecord, Line: a.line, Data: data}
	case a.navd:
		a.navd = false
		return Event{Kind: EventUnparsed, Line: a.line, Reason: ReasonNAVD}
	default:
		return Event{Kind: EventUnparsed, Line: a.line, Reason: ReasonUnknown}
	}
}

func (a *Assembler) appendHexLine(text string) error {
	fields := strings.Split(text, "  ")
	if len(fields) < 2 {
		return &LineError{Line: a.line, Text: text, Cause: "missing hex byte column"}
	}
	for _, tok := range strings.Split(fields[1], " ") {
		if tok == "" {
			continue
		}
		if len(tok) > 2 {
			return &LineError{Line: a.line, Text: text, Cause: fmt.Sprintf("token %q is not one byte", tok)}
		}
		b, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return &LineError{Line: a.line, Text: text, Cause: fmt.Sprintf("token %q is not hex", tok)}
		}
		a.buf = append(a.buf, byte(b))
	}
	return nil
}

// ReadHexDump runs one assembly session over r, calling fn for every event.
func ReadHexDump(r io.Reader, fn Handler) error {
	a := NewAssembler()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for sc.Scan() {
		ev, ok, err := a.Feed(sc.Text())
		if err != nil {
			return err
		}
		if ok {
			if err := fn(ev); err != nil {
				return err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read hex dump at line %d: %w", a.Line(), err)
	}
	if ev, ok := a.Flush(); ok {
		return fn(ev)
	}
	return nil
}
