package xblk

// XBLK record layout (DGP01144). Offsets are relative to the first byte
// after the "XBLK" marker.
//
//	|seq LSB |seq MSB |len LSB |len MSB |   0-3  sequence number, length
//	|# of Blk|Blk Type|spare   |spare   |   4-7  channel count, type, spare
//
// Type 0 (tracking), per channel i:
//
//	|chan i  |ctl     |level L |level M |   8 + 4*i
//	|cd NCO 1|cd NCO 2|cd NCO 3|cd NCO 4|  12 + 4*i
//	|cr NCO 1|cr NCO 2|cr NCO 3|cr NCO 4|  16 + 4*i
//
// Type 3 (fader), per channel i:
//
//	|chan i  |data    |                     8 + 2*i
const (
	MinRecordSize = 6 // sequence, length, channel count, type
	HeaderSize    = 8

	TypeTracking uint8 = 0
	TypeFader    uint8 = 3

	// TrackingMinChannels is the channel count the difference columns index into.
	TrackingMinChannels = 8

	trackingChannelStride = 4
	trackingLevelOffset   = 10
	trackingCodeOffset    = 12
	trackingCarrierOffset = 16
	faderChannelStride    = 2
	faderIDOffset         = 8
	faderDataOffset       = 9

	// Fader data byte fields.
	faderScaleMaskLegacy = 0x0c
	faderScaleMask       = 0xc0
	faderScaleShift      = 6
	faderRangeMask       = 0x1f
	faderSignBit         = 0x20
	faderRawMask         = 0x3f
	faderRangeResolution = 0.01 // metres per LSB
)

// DiffPairs are the channel index pairs subtracted for the difference
// columns: channel groups (0,1,2) vs (3,4,5), and 6 vs 7.
var DiffPairs = [4][2]int{
	{0, 3},
	{1, 4},
	{2, 5},
	{6, 7},
}

// Header holds the fields common to every record type.
type Header struct {
	Sequence     uint16
	Length       uint16 // not used by the decoder
	ChannelCount uint8
	Type         uint8
}

// Record is one decoded XBLK record: *TrackingRecord, *FaderRecord or
// *UnknownRecord.
type Record interface {
	RecordHeader() Header
	isRecord()
}

// TrackingChannel is one type-0 channel.
type TrackingChannel struct {
	ID         uint8
	Control    uint8
	Level      uint16
	CodeNCO    uint32 // read at 12 + 4*i
	CarrierNCO uint32 // read at 16 + 4*i
}

// TrackingRecord is a type-0 record of signal tracking channels.
type TrackingRecord struct {
	Header
	Channels []TrackingChannel
}

// FaderChannel is one type-3 channel. When Scale is zero Offset holds the
// signed offset in metres, otherwise Raw holds the unscaled offset bits.
type FaderChannel struct {
	ID     uint8
	Data   uint8
	Scale  uint8
	Offset float64
	Raw    uint8
}

// FaderRecord is a type-3 record of per-channel positional offsets.
type FaderRecord struct {
	Header
	Channels []FaderChannel
}

// UnknownRecord is any record whose type the decoder does not understand.
type UnknownRecord struct {
	Header
}

func (h Header) RecordHeader() Header { return h }

func (*TrackingRecord) isRecord() {}
func (*FaderRecord) isRecord()    {}
func (*UnknownRecord) isRecord()  {}

// CodeNCOs returns the code NCO of every channel in channel order.
func (r *TrackingRecord) CodeNCOs() []uint32 {
	out := make([]uint32, len(r.Channels))
	for i, ch := range r.Channels {
		out[i] = ch.CodeNCO
	}
	return out
}

// CarrierNCOs returns the carrier NCO of every channel in channel order.
func (r *TrackingRecord) CarrierNCOs() []uint32 {
	out := make([]uint32, len(r.Channels))
	for i, ch := range r.Channels {
		out[i] = ch.CarrierNCO
	}
	return out
}

// CodeDiffs returns CodeNCO[a]-CodeNCO[b] for each of DiffPairs.
func (r *TrackingRecord) CodeDiffs() [4]int64 {
	return pairDiffs(r.CodeNCOs())
}

// CarrierDiffs returns CarrierNCO[a]-CarrierNCO[b] for each of DiffPairs.
func (r *TrackingRecord) CarrierDiffs() [4]int64 {
	return pairDiffs(r.CarrierNCOs())
}

// pairDiffs assumes len(v) >= TrackingMinChannels; Decode guarantees it.
func pairDiffs(v []uint32) [4]int64 {
	var out [4]int64
	for i, p := range DiffPairs {
		out[i] = int64(v[p[0]]) - int64(v[p[1]])
	}
	return out
}
