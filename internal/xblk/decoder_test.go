package xblk

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/xblk-report/internal/testutil"
)

// words 1000..9000 give code NCOs 1000..8000 and carrier NCOs 2000..9000.
func sampleWords() []uint32 {
	w := make([]uint32, 9)
	for k := range w {
		w[k] = uint32(1000 * (k + 1))
	}
	return w
}

func TestDecodeRecord_TrackingLegacy(t *testing.T) {
	d := NewDecoder(DefaultOptions())
	rec := testutil.TrackingRecord(0x1234, 1, 2000, sampleWords()...)

	line, err := d.DecodeRecord(rec, 20)
	require.NoError(t, err)

	want := "4660, 0x1234, 93.2, " +
		"1000, 2000, 3000, 4000, 5000, 6000, 7000, 8000, " +
		"2000, 3000, 4000, 5000, 6000, 7000, 8000, 9000, " +
		"-3000, -3000, -3000, -1000, " +
		"-3000, -3000, -3000, -1000, "
	assert.Equal(t, want, line)
}

func TestDecodeRecord_TrackingCorrected(t *testing.T) {
	d := NewDecoder(Options{StrictLegacy: false, LegacyScaleMask: true})
	rec := testutil.TrackingRecord(100, 1, 2000, sampleWords()...)

	line, err := d.DecodeRecord(rec, 20)
	require.NoError(t, err)

	want := "100, 0x0064, 2.0, " +
		"2000, 3000, 4000, 5000, 6000, 7000, 8000, 9000, " +
		"1000, 2000, 3000, 4000, 5000, 6000, 7000, 8000, " +
		"-3000, -3000, -3000, -1000, " +
		"-3000, -3000, -3000, -1000, "
	assert.Equal(t, want, line)
}

func TestDecodeRecord_TrackingColumnCount(t *testing.T) {
	d := NewDecoder(DefaultOptions())
	line, err := d.DecodeRecord(testutil.TrackingRecord(7, 1, 0, sampleWords()...), 10)
	require.NoError(t, err)

	fields := strings.Split(strings.TrimSuffix(line, ", "), ", ")
	// 3 leading fields, 8 + 8 NCOs, 4 + 4 differences.
	assert.Len(t, fields, 3+8+8+4+4)
}

func TestDecode_TrackingFields(t *testing.T) {
	words := sampleWords()
	words[0] = 0x00070001 // channel 1 level (bytes 14-15) = 7 when not legacy
	words[8] = 0xFFFFFFFF
	data := testutil.TrackingRecord(42, 9, 2000, words...)

	t.Run("legacy level offset", func(t *testing.T) {
		rec, err := NewDecoder(DefaultOptions()).Decode(data)
		require.NoError(t, err)
		tr, ok := rec.(*TrackingRecord)
		require.True(t, ok, "expected *TrackingRecord, got %T", rec)

		for i, ch := range tr.Channels {
			assert.Equal(t, uint16(2000), ch.Level, "channel %d level", i)
		}
		assert.Equal(t, words[:8], tr.CodeNCOs())
		assert.Equal(t, words[1:], tr.CarrierNCOs())
		assert.Equal(t, uint8(9), tr.Channels[0].ID)
		assert.Equal(t, [4]int64{2000 - 5000, 3000 - 6000, 4000 - 7000, 8000 - 4294967295}, tr.CarrierDiffs())
		assert.Equal(t, [4]int64{0x00070001 - 4000, 2000 - 5000, 3000 - 6000, 7000 - 8000}, tr.CodeDiffs())
	})

	t.Run("scaled level offset", func(t *testing.T) {
		rec, err := NewDecoder(Options{}).Decode(data)
		require.NoError(t, err)
		tr := rec.(*TrackingRecord)
		assert.Equal(t, uint16(2000), tr.Channels[0].Level)
		assert.Equal(t, uint16(7), tr.Channels[1].Level)
	})
}

func TestDecode_Header(t *testing.T) {
	rec, err := NewDecoder(DefaultOptions()).Decode(testutil.Record(0x1234, 0, 7))
	require.NoError(t, err)

	want := &UnknownRecord{Header: Header{Sequence: 0x1234, Length: 8, ChannelCount: 0, Type: 7}}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("Decode mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRecord_Fader(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		pairs [][2]uint8
		want  string
	}{
		{
			name:  "positive offset",
			opts:  DefaultOptions(),
			pairs: [][2]uint8{{1, 0x05}},
			want:  "(chan_count 1), chan 1 offset 0.05m, ",
		},
		{
			name:  "sign bit set",
			opts:  DefaultOptions(),
			pairs: [][2]uint8{{1, 0x25}},
			want:  "(chan_count 1), chan 1 offset -0.05m, ",
		},
		{
			name:  "zero offset with sign",
			opts:  DefaultOptions(),
			pairs: [][2]uint8{{2, 0x20}},
			want:  "(chan_count 1), chan 2 offset -0.0m, ",
		},
		{
			name:  "legacy mask ignores upper bits",
			opts:  DefaultOptions(),
			pairs: [][2]uint8{{3, 0xc5}, {4, 0x00}},
			want:  "(chan_count 2), chan 3 offset 0.05m, chan 4 offset 0.0m, ",
		},
		{
			name:  "corrected mask reports raw",
			opts:  Options{StrictLegacy: true},
			pairs: [][2]uint8{{3, 0xc5}, {4, 0x05}},
			want:  "(chan_count 2), chan 3 data 197: scale 11 offset 5(raw), chan 4 offset 0.05m, ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, err := NewDecoder(tt.opts).DecodeRecord(testutil.FaderRecord(1, tt.pairs...), 20)
			require.NoError(t, err)
			assert.Equal(t, "1, 0x0001, 0.02, "+tt.want, line)
		})
	}
}

func TestDecode_FaderFields(t *testing.T) {
	rec, err := NewDecoder(DefaultOptions()).Decode(testutil.FaderRecord(5, [2]uint8{1, 0x05}, [2]uint8{2, 0x25}))
	require.NoError(t, err)
	fr, ok := rec.(*FaderRecord)
	require.True(t, ok)
	require.Len(t, fr.Channels, 2)

	assert.Equal(t, uint8(0), fr.Channels[0].Scale)
	assert.InDelta(t, 0.05, fr.Channels[0].Offset, 1e-12)
	assert.InDelta(t, -0.05, fr.Channels[1].Offset, 1e-12)
}

func TestDecodeRecord_UnsupportedType(t *testing.T) {
	line, err := NewDecoder(DefaultOptions()).DecodeRecord(testutil.Record(1, 4, 7), 20)
	require.NoError(t, err)
	assert.Equal(t, "1, 0x0001, 0.02, unsupported XBLK type 7", line)
	assert.Equal(t, 1, strings.Count(line, "7"))
}

func TestDecodeRecord_Malformed(t *testing.T) {
	d := NewDecoder(DefaultOptions())

	t.Run("shorter than header", func(t *testing.T) {
		_, err := d.DecodeRecord([]byte{1, 2, 3}, 20)
		assert.ErrorIs(t, err, ErrMalformedRecord)
	})

	t.Run("too few tracking channels", func(t *testing.T) {
		_, err := d.DecodeRecord(testutil.TrackingRecord(3, 1, 0, 1, 2, 3, 4, 5, 6, 7, 8), 20)
		require.ErrorIs(t, err, ErrMalformedRecord)
		var me *MalformedRecordError
		require.True(t, errors.As(err, &me))
		assert.Equal(t, 7, me.Channels)
		assert.Equal(t, uint16(3), me.Sequence)
	})

	t.Run("tracking buffer truncated", func(t *testing.T) {
		data := testutil.TrackingRecord(3, 1, 0, sampleWords()...)
		_, err := d.DecodeRecord(data[:len(data)-1], 20)
		var me *MalformedRecordError
		require.True(t, errors.As(err, &me))
		assert.Equal(t, len(data), me.Need)
		assert.Equal(t, len(data)-1, me.Have)
	})

	t.Run("fader buffer truncated", func(t *testing.T) {
		data := testutil.FaderRecord(3, [2]uint8{1, 1}, [2]uint8{2, 2})
		_, err := d.DecodeRecord(data[:len(data)-1], 20)
		assert.ErrorIs(t, err, ErrMalformedRecord)
	})
}

func TestDecodeRecord_SampleInterval(t *testing.T) {
	d := NewDecoder(DefaultOptions())
	for _, sir := range []float64{0, -20} {
		_, err := d.DecodeRecord(testutil.Record(1, 0, 7), sir)
		assert.ErrorIs(t, err, ErrConversion, "sir=%v", sir)
	}
}

func TestDecodeRecord_Idempotent(t *testing.T) {
	d := NewDecoder(DefaultOptions())
	rec := testutil.TrackingRecord(0x1234, 1, 2000, sampleWords()...)

	first, err := d.DecodeRecord(rec, 20)
	require.NoError(t, err)
	second, err := d.DecodeRecord(rec, 20)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseSampleInterval(t *testing.T) {
	v, err := ParseSampleInterval("20")
	require.NoError(t, err)
	assert.Equal(t, 20.0, v)

	v, err = ParseSampleInterval(" 12.5 ")
	require.NoError(t, err)
	assert.Equal(t, 12.5, v)

	for _, bad := range []string{"", "abc", "0", "-1", "NaN", "Inf"} {
		_, err := ParseSampleInterval(bad)
		assert.ErrorIs(t, err, ErrConversion, "input %q", bad)
	}
}

func TestElapsedSeconds(t *testing.T) {
	assert.Equal(t, 2.0, ElapsedSeconds(100, 20))
	assert.Equal(t, "2.0", FormatFloat(ElapsedSeconds(100, 20)))
}

func TestFormatFloat(t *testing.T) {
	tests := map[float64]string{
		2:       "2.0",
		0:       "0.0",
		93.2:    "93.2",
		0.05:    "0.05",
		-0.05:   "-0.05",
		1e-05:   "1e-05",
		0.0001:  "0.0001",
		1310.7:  "1310.7",
		1e16:    "1e+16",
		65535.0: "65535.0",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatFloat(in), "FormatFloat(%v)", in)
	}
}

func TestDecodeRecord_FaderHeaderOnly(t *testing.T) {
	line, err := NewDecoder(DefaultOptions()).DecodeRecord([]byte{1, 0, 0, 0, 0, 3}, 20)
	require.NoError(t, err)
	assert.Equal(t, "1, 0x0001, 0.02, (chan_count 0), ", line)

	// A declared channel still needs its two body bytes.
	_, err = NewDecoder(DefaultOptions()).Decode([]byte{1, 0, 0, 0, 1, 3, 0, 0, 7})
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestDiffColumns(t *testing.T) {
	rec, err := NewDecoder(DefaultOptions()).Decode(testutil.TrackingRecord(1, 1, 0, sampleWords()...))
	require.NoError(t, err)
	tr := rec.(*TrackingRecord)

	carrier, code := NewDecoder(DefaultOptions()).DiffColumns(tr)
	assert.Equal(t, tr.CodeDiffs(), carrier)
	assert.Equal(t, tr.CarrierDiffs(), code)
	assert.Equal(t, 12, NewDecoder(DefaultOptions()).CarrierOffset())

	corrected := NewDecoder(Options{LegacyScaleMask: true})
	carrier, code = corrected.DiffColumns(tr)
	assert.Equal(t, tr.CarrierDiffs(), carrier)
	assert.Equal(t, tr.CodeDiffs(), code)
	assert.Equal(t, 16, corrected.CarrierOffset())
}
