package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/banshee-data/xblk-report/internal/xblk"
)

// Writer is the report sink: the header row once, then one line per record
// or diagnostic. Output is buffered; call Flush when done.
type Writer struct {
	bw     *bufio.Writer
	header bool
	lines  int
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// WriteHeader writes the column header row. Later calls are no-ops.
func (w *Writer) WriteHeader() error {
	if w.header {
		return nil
	}
	w.header = true
	return w.writeLine(xblk.ReportHeader)
}

// WriteRecord writes one decoded record line.
func (w *Writer) WriteRecord(line string) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}
	return w.writeLine(line)
}

// WriteUnparsed writes the diagnostic for a block that held no record.
func (w *Writer) WriteUnparsed(inputLine int, reason string) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}
	return w.writeLine(fmt.Sprintf("input line %d not parsed, %s", inputLine, reason))
}

// Lines returns the number of lines written, header included.
func (w *Writer) Lines() int {
	return w.lines
}

// Flush writes any buffered output.
func (w *Writer) Flush() error {
	return w.bw.Flush()
}

func (w *Writer) writeLine(s string) error {
	if _, err := w.bw.WriteString(s); err != nil {
		return err
	}
	if err := w.bw.WriteByte('\n'); err != nil {
		return err
	}
	w.lines++
	return nil
}
