package xblk

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ReportHeader is the column header row of the legacy report. Fader and
// unsupported records do not follow these columns.
const ReportHeader = "sequence number, sequence number, XBLK type, " +
	"chan 1, chan 2, chan 3, chan 4, chan 5, chan 6, chan 7, chan 8, " +
	"chan 1, chan 2, chan 3, chan 4, chan 5, chan 6, chan 7, chan 8, " +
	"chan 1 - chan 4, chan 2 - chan 5, chan 3 - chan 6, chan 7 - chan 8, "

const fieldSep = ", "

// ElapsedSeconds converts a sequence number to elapsed time.
func ElapsedSeconds(seq uint16, sampleIntervalMs float64) float64 {
	return float64(seq) * sampleIntervalMs / 1e3
}

// Format renders a decoded record as one report line. Every numeric field
// is followed by ", ".
func (d *Decoder) Format(rec Record, sampleIntervalMs float64) string {
	var sb strings.Builder
	h := rec.RecordHeader()

	sb.WriteString(strconv.FormatUint(uint64(h.Sequence), 10))
	sb.WriteString(fieldSep)
	fmt.Fprintf(&sb, "0x%04x", h.Sequence)
	sb.WriteString(fieldSep)
	sb.WriteString(FormatFloat(ElapsedSeconds(h.Sequence, sampleIntervalMs)))
	sb.WriteString(fieldSep)

	switch r := rec.(type) {
	case *TrackingRecord:
		d.formatTracking(&sb, r)
	case *FaderRecord:
		formatFader(&sb, r)
	case *UnknownRecord:
		fmt.Fprintf(&sb, "unsupported XBLK type %d", r.Type)
	}
	return sb.String()
}

// ncoGroups returns the two NCO groups in report order. The report calls
// the first one carrier; in legacy mode that is the group read at 12+4*i.
func (d *Decoder) ncoGroups(r *TrackingRecord) (carrier, code []uint32) {
	if d.opts.StrictLegacy {
		return r.CodeNCOs(), r.CarrierNCOs()
	}
	return r.CarrierNCOs(), r.CodeNCOs()
}

// CarrierOffset is the base offset of the NCO group the report labels
// carrier: 12 in legacy mode, 16 otherwise.
func (d *Decoder) CarrierOffset() int {
	if d.opts.StrictLegacy {
		return trackingCodeOffset
	}
	return trackingCarrierOffset
}

// DiffColumns returns the difference columns of r exactly as the report
// line carries them: the carrier block, then the code block.
func (d *Decoder) DiffColumns(r *TrackingRecord) (carrier, code [4]int64) {
	c, k := d.ncoGroups(r)
	return pairDiffs(c), pairDiffs(k)
}

func (d *Decoder) formatTracking(sb *strings.Builder, r *TrackingRecord) {
	first, second := d.ncoGroups(r)
	for _, v := range first {
		sb.WriteString(strconv.FormatUint(uint64(v), 10))
		sb.WriteString(fieldSep)
	}
	for _, v := range second {
		sb.WriteString(strconv.FormatUint(uint64(v), 10))
		sb.WriteString(fieldSep)
	}
	for _, v := range [][4]int64{pairDiffs(first), pairDiffs(second)} {
		for _, diff := range v {
			sb.WriteString(strconv.FormatInt(diff, 10))
			sb.WriteString(fieldSep)
		}
	}
}

func formatFader(sb *strings.Builder, r *FaderRecord) {
	fmt.Fprintf(sb, "(chan_count %d), ", r.ChannelCount)
	for _, ch := range r.Channels {
		fmt.Fprintf(sb, "chan %d ", ch.ID)
		if ch.Scale == 0 {
			fmt.Fprintf(sb, "offset %sm, ", FormatFloat(ch.Offset))
		} else {
			fmt.Fprintf(sb, "data %d: scale %02b offset %d(raw), ", ch.Data, ch.Scale, ch.Raw)
		}
	}
}

// FormatFloat renders v the way the legacy report does: shortest
// round-trip digits, always with a fractional part, switching to exponent
// form below 1e-4 and from 1e16.
func FormatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	if a := math.Abs(v); a != 0 && (a < 1e-4 || a >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
