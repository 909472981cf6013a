package xblk

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Options select between the legacy report behaviour and the corrected
// field layout. DefaultOptions reproduces the legacy report byte for byte.
type Options struct {
	// StrictLegacy reads the type-0 level from the fixed offset 10 for every
	// channel and emits the NCO group read at 12+4*i first. When false the
	// level offset scales with the channel and the carrier group leads.
	StrictLegacy bool

	// LegacyScaleMask computes the type-3 scale as (data&0x0c)>>6, which is
	// always zero. When false the upper two bits (data&0xc0)>>6 are used.
	LegacyScaleMask bool
}

// DefaultOptions returns the legacy-compatible options.
func DefaultOptions() Options {
	return Options{StrictLegacy: true, LegacyScaleMask: true}
}

// Decoder turns raw XBLK record bytes into records and report lines. It
// holds no per-record state and is safe for concurrent use.
type Decoder struct {
	opts Options
}

// NewDecoder creates a decoder with the given options.
func NewDecoder(opts Options) *Decoder {
	return &Decoder{opts: opts}
}

// ParseSampleInterval converts the textual sample interval (milliseconds)
// into a number. Non-numeric and non-positive values wrap ErrConversion.
func ParseSampleInterval(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrConversion, s, err)
	}
	if err := validateSampleInterval(v); err != nil {
		return 0, err
	}
	return v, nil
}

func validateSampleInterval(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("%w: %v must be a positive number", ErrConversion, v)
	}
	return nil
}

// DecodeRecord decodes one record and formats it as a report line.
// Unsupported record types are not an error: the line carries a diagnostic.
func (d *Decoder) DecodeRecord(data []byte, sampleIntervalMs float64) (string, error) {
	if err := validateSampleInterval(sampleIntervalMs); err != nil {
		return "", err
	}
	rec, err := d.Decode(data)
	if err != nil {
		return "", err
	}
	return d.Format(rec, sampleIntervalMs), nil
}

// Decode parses the header and dispatches on the record type.
func (d *Decoder) Decode(data []byte) (Record, error) {
	if len(data) < MinRecordSize {
		return nil, &MalformedRecordError{
			Need:   MinRecordSize,
			Have:   len(data),
			Reason: "record shorter than header",
		}
	}

	seq, _ := ReadU16LE(data, 0)
	length, _ := ReadU16LE(data, 2)
	h := Header{
		Sequence:     seq,
		Length:       length,
		ChannelCount: data[4],
		Type:         data[5],
	}

	switch h.Type {
	case TypeTracking:
		return d.decodeTracking(h, data)
	case TypeFader:
		return d.decodeFader(h, data)
	default:
		return &UnknownRecord{Header: h}, nil
	}
}

func (d *Decoder) decodeTracking(h Header, data []byte) (*TrackingRecord, error) {
	n := int(h.ChannelCount)
	need := trackingCarrierOffset + trackingChannelStride*n
	if len(data) < need {
		return nil, &MalformedRecordError{
			Sequence: h.Sequence,
			Type:     h.Type,
			Channels: n,
			Need:     need,
			Have:     len(data),
			Reason:   "buffer too short for declared channel count",
		}
	}
	if n < TrackingMinChannels {
		return nil, &MalformedRecordError{
			Sequence: h.Sequence,
			Type:     h.Type,
			Channels: n,
			Need:     TrackingMinChannels,
			Have:     n,
			Reason:   "too few channels for difference columns",
		}
	}

	rec := &TrackingRecord{Header: h, Channels: make([]TrackingChannel, n)}
	for i := 0; i < n; i++ {
		base := HeaderSize + trackingChannelStride*i
		levelOffset := trackingLevelOffset + trackingChannelStride*i
		if d.opts.StrictLegacy {
			levelOffset = trackingLevelOffset
		}

		ch := &rec.Channels[i]
		var err error
		if ch.ID, err = ReadU8(data, base); err != nil {
			return nil, err
		}
		if ch.Control, err = ReadU8(data, base+1); err != nil {
			return nil, err
		}
		if ch.Level, err = ReadU16LE(data, levelOffset); err != nil {
			return nil, err
		}
		if ch.CodeNCO, err = ReadU32LE(data, trackingCodeOffset+trackingChannelStride*i); err != nil {
			return nil, err
		}
		if ch.CarrierNCO, err = ReadU32LE(data, trackingCarrierOffset+trackingChannelStride*i); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

func (d *Decoder) decodeFader(h Header, data []byte) (*FaderRecord, error) {
	n := int(h.ChannelCount)
	need := faderIDOffset + faderChannelStride*n
	if n > 0 && len(data) < need {
		return nil, &MalformedRecordError{
			Sequence: h.Sequence,
			Type:     h.Type,
			Channels: n,
			Need:     need,
			Have:     len(data),
			Reason:   "buffer too short for declared channel count",
		}
	}

	rec := &FaderRecord{Header: h, Channels: make([]FaderChannel, n)}
	for i := 0; i < n; i++ {
		id, err := ReadU8(data, faderIDOffset+faderChannelStride*i)
		if err != nil {
			return nil, err
		}
		b, err := ReadU8(data, faderDataOffset+faderChannelStride*i)
		if err != nil {
			return nil, err
		}
		rec.Channels[i] = d.decodeFaderData(id, b)
	}
	return rec, nil
}

func (d *Decoder) decodeFaderData(id, data uint8) FaderChannel {
	mask := uint8(faderScaleMask)
	if d.opts.LegacyScaleMask {
		mask = faderScaleMaskLegacy
	}
	ch := FaderChannel{ID: id, Data: data, Scale: (data & mask) >> faderScaleShift}
	if ch.Scale != 0 {
		ch.Raw = data & faderRawMask
		return ch
	}
	ch.Offset = float64(data&faderRangeMask) * faderRangeResolution
	if data&faderSignBit != 0 {
		ch.Offset *= -1
	}
	return ch
}
