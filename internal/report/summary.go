package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/xblk-report/internal/timeutil"
	"github.com/banshee-data/xblk-report/internal/version"
	"github.com/banshee-data/xblk-report/internal/xblk"
)

// Series holds the difference columns of every tracking record, aligned
// with the elapsed time of the record. Carrier and Code follow the report
// line: Carrier is the first difference block, whichever NCO group the
// decoder emits first.
type Series struct {
	Elapsed []float64
	Carrier [4][]float64
	Code    [4][]float64
}

// Len returns the number of samples.
func (s *Series) Len() int {
	return len(s.Elapsed)
}

// Columns returns the eight difference columns with their names, carrier
// columns first.
func (s *Series) Columns() ([]string, [][]float64) {
	names := make([]string, 0, 8)
	cols := make([][]float64, 0, 8)
	for i, p := range xblk.DiffPairs {
		names = append(names, columnName("carrier", p))
		cols = append(cols, s.Carrier[i])
	}
	for i, p := range xblk.DiffPairs {
		names = append(names, columnName("code", p))
		cols = append(cols, s.Code[i])
	}
	return names, cols
}

func columnName(kind string, p [2]int) string {
	return fmt.Sprintf("%s chan %d - chan %d", kind, p[0]+1, p[1]+1)
}

// ColumnStats summarises one difference column.
type ColumnStats struct {
	Name   string  `json:"name"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summary accumulates per-run counts and the tracking difference series.
type Summary struct {
	RunID     string
	Input     string
	Format    string
	StartedAt time.Time
	// FinishedAt is zero until Finish is called.
	FinishedAt time.Time

	Tracking    int
	Fader       int
	Unsupported int
	Skipped     int
	Unparsed    int

	decoder *xblk.Decoder
	clock   timeutil.Clock
	series  Series
}

// NewSummary starts a summary for the given input file. d is the decoder
// that formats the report, so the summary columns match its order.
func NewSummary(input string, d *xblk.Decoder) *Summary {
	return NewSummaryWithClock(input, d, timeutil.RealClock{})
}

// NewSummaryWithClock starts a summary timed by clock.
func NewSummaryWithClock(input string, d *xblk.Decoder, clock timeutil.Clock) *Summary {
	return &Summary{
		RunID:     uuid.NewString(),
		Input:     input,
		StartedAt: clock.Now(),
		decoder:   d,
		clock:     clock,
	}
}

// Finish stamps the end of the run.
func (s *Summary) Finish() {
	s.FinishedAt = s.clock.Now()
}

// Duration returns the run time so far, or the total once finished.
func (s *Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return s.clock.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// AddRecord counts rec and, for tracking records, appends its differences.
func (s *Summary) AddRecord(rec xblk.Record, sampleIntervalMs float64) {
	switch r := rec.(type) {
	case *xblk.TrackingRecord:
		s.Tracking++
		s.series.Elapsed = append(s.series.Elapsed, xblk.ElapsedSeconds(r.Sequence, sampleIntervalMs))
		carrier, code := s.decoder.DiffColumns(r)
		for i := range xblk.DiffPairs {
			s.series.Carrier[i] = append(s.series.Carrier[i], float64(carrier[i]))
			s.series.Code[i] = append(s.series.Code[i], float64(code[i]))
		}
	case *xblk.FaderRecord:
		s.Fader++
	case *xblk.UnknownRecord:
		s.Unsupported++
	}
}

// AddSkipped counts a malformed record that was skipped.
func (s *Summary) AddSkipped() { s.Skipped++ }

// AddUnparsed counts a block without a record.
func (s *Summary) AddUnparsed() { s.Unparsed++ }

// Records returns the number of decoded records.
func (s *Summary) Records() int {
	return s.Tracking + s.Fader + s.Unsupported
}

// Series returns the collected difference series.
func (s *Summary) Series() *Series {
	return &s.series
}

// Stats computes the column statistics. Columns with fewer than two
// samples report a zero standard deviation.
func (s *Summary) Stats() []ColumnStats {
	names, cols := s.series.Columns()
	out := make([]ColumnStats, len(cols))
	for i, col := range cols {
		cs := ColumnStats{Name: names[i], Count: len(col)}
		if len(col) > 0 {
			cs.Mean = stat.Mean(col, nil)
			cs.Min = floats.Min(col)
			cs.Max = floats.Max(col)
		}
		if len(col) > 1 {
			cs.StdDev = stat.StdDev(col, nil)
		}
		out[i] = cs
	}
	return out
}

type summaryJSON struct {
	RunID       string        `json:"run_id"`
	Version     string        `json:"version"`
	Input       string        `json:"input"`
	Format      string        `json:"format,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  *time.Time    `json:"finished_at,omitempty"`
	DurationMs  float64       `json:"duration_ms"`
	Records     int           `json:"records"`
	Tracking    int           `json:"tracking_records"`
	Fader       int           `json:"fader_records"`
	Unsupported int           `json:"unsupported_records"`
	Skipped     int           `json:"skipped_records"`
	Unparsed    int           `json:"unparsed_blocks"`
	CarrierNCO  int           `json:"carrier_nco_offset"`
	Columns     []ColumnStats `json:"difference_columns"`
}

// WriteJSON writes the summary as indented JSON.
func (s *Summary) WriteJSON(w io.Writer) error {
	var finished *time.Time
	if !s.FinishedAt.IsZero() {
		finished = &s.FinishedAt
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaryJSON{
		RunID:       s.RunID,
		Version:     version.String(),
		Input:       s.Input,
		Format:      s.Format,
		StartedAt:   s.StartedAt,
		FinishedAt:  finished,
		DurationMs:  float64(s.Duration()) / float64(time.Millisecond),
		Records:     s.Records(),
		Tracking:    s.Tracking,
		Fader:       s.Fader,
		Unsupported: s.Unsupported,
		Skipped:     s.Skipped,
		Unparsed:    s.Unparsed,
		CarrierNCO:  s.decoder.CarrierOffset(),
		Columns:     s.Stats(),
	})
}
