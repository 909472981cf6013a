package main

import (
	"errors"
	"fmt"
	"log"

	"github.com/banshee-data/xblk-report/internal/config"
	"github.com/banshee-data/xblk-report/internal/ingest"
	"github.com/banshee-data/xblk-report/internal/report"
	"github.com/banshee-data/xblk-report/internal/xblk"
)

// processor decodes each ingested record and feeds the report sink.
type processor struct {
	decoder *xblk.Decoder
	sir     float64
	policy  string
	out     *report.Writer
	summary *report.Summary
	logger  *log.Logger
}

// decodeError is a malformed record under the fail policy.
type decodeError struct {
	line int
	err  error
}

func (e *decodeError) Error() string {
	return fmt.Sprintf("record ending at input line %d: %v", e.line, e.err)
}

func (e *decodeError) Unwrap() error { return e.err }

// outputError is a failure writing the report to stdout.
type outputError struct {
	err error
}

func (e *outputError) Error() string { return fmt.Sprintf("failed to write report: %v", e.err) }

func (e *outputError) Unwrap() error { return e.err }

func (p *processor) handle(ev ingest.Event) error {
	switch ev.Kind {
	case ingest.EventUnparsed:
		p.summary.AddUnparsed()
		if err := p.out.WriteUnparsed(ev.Line, ev.Reason); err != nil {
			return &outputError{err: err}
		}
		return nil

	case ingest.EventRecord:
		rec, err := p.decoder.Decode(ev.Data)
		if err != nil {
			if errors.Is(err, xblk.ErrMalformedRecord) && p.policy == config.PolicySkip {
				p.logger.Printf("Skipping record ending at input line %d: %v", ev.Line, err)
				p.summary.AddSkipped()
				return nil
			}
			return &decodeError{line: ev.Line, err: err}
		}
		if u, ok := rec.(*xblk.UnknownRecord); ok {
			p.logger.Printf("Record ending at input line %d: %v %d", ev.Line, xblk.ErrUnsupportedType, u.Type)
		}
		p.summary.AddRecord(rec, p.sir)
		if err := p.out.WriteRecord(p.decoder.Format(rec, p.sir)); err != nil {
			return &outputError{err: err}
		}
		return nil

	default:
		return fmt.Errorf("unknown event kind %d", ev.Kind)
	}
}

// exitCode maps a failure during ingest to the process exit code.
func exitCode(err error) int {
	var de *decodeError
	if errors.As(err, &de) || errors.Is(err, ingest.ErrBadHexLine) {
		return exitDecode
	}
	return exitIO
}
