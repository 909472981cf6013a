package ingest

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/xblk-report/internal/testutil"
)

func collect(t *testing.T, input string) []Event {
	t.Helper()
	var events []Event
	err := ReadHexDump(strings.NewReader(input), func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)
	return events
}

func TestReadHexDump_Record(t *testing.T) {
	rec := testutil.FaderRecord(0x1234, [2]uint8{1, 0x05}, [2]uint8{2, 0x25})
	events := collect(t, testutil.HexDump(testutil.HexDumpLines(MarkerXBLK, rec)))

	require.Len(t, events, 1)
	assert.Equal(t, EventRecord, events[0].Kind)
	assert.Equal(t, rec, events[0].Data)
	assert.Equal(t, 3, events[0].Line) // marker, one data line, blank
}

func TestReadHexDump_MultiLineRecord(t *testing.T) {
	words := make([]uint32, 9)
	for i := range words {
		words[i] = 0x01020304 * uint32(i+1)
	}
	rec := testutil.TrackingRecord(9, 1, 2000, words...)
	require.Greater(t, len(rec), 32)

	events := collect(t, testutil.HexDump(testutil.HexDumpLines(MarkerXBLK, rec)))
	require.Len(t, events, 1)
	assert.Equal(t, rec, events[0].Data)
}

func TestReadHexDump_Unparsed(t *testing.T) {
	input := testutil.HexDump(
		[]string{"0000  4e 41 56 44   NAVD", "0010  01 02 03   ..."},
		[]string{"0000  00 11 22   ..."},
	)
	events := collect(t, input)

	require.Len(t, events, 2)
	assert.Equal(t, Event{Kind: EventUnparsed, Line: 3, Reason: ReasonNAVD}, events[0])
	assert.Equal(t, Event{Kind: EventUnparsed, Line: 5, Reason: ReasonUnknown}, events[1])
}

func TestReadHexDump_Sequence(t *testing.T) {
	first := testutil.Record(1, 0, 7)
	second := testutil.FaderRecord(2, [2]uint8{3, 4})
	input := testutil.HexDump(
		testutil.HexDumpLines(MarkerXBLK, first),
		[]string{"0000  4e 41 56 44   NAVD"},
		testutil.HexDumpLines(MarkerXBLK, second),
	)
	events := collect(t, input)

	require.Len(t, events, 3)
	assert.Equal(t, first, events[0].Data)
	assert.Equal(t, ReasonNAVD, events[1].Reason)
	assert.Equal(t, second, events[2].Data)
}

func TestReadHexDump_FlushAtEOF(t *testing.T) {
	rec := testutil.Record(5, 0, 7)
	lines := testutil.HexDumpLines(MarkerXBLK, rec)
	input := strings.Join(lines, "\r\n") // no trailing blank line

	events := collect(t, input)
	require.Len(t, events, 1)
	assert.Equal(t, EventRecord, events[0].Kind)
	assert.Equal(t, rec, events[0].Data)
}

func TestReadHexDump_BadLines(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"no byte column", "0010 01 02 03"},
		{"non hex token", "0010  01 zz 03   ..."},
		{"wide token", "0010  0102 03   ..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := testutil.HexDump([]string{"0000  58 42 4c 4b   XBLK", tt.line})
			err := ReadHexDump(strings.NewReader(input), func(Event) error { return nil })
			require.ErrorIs(t, err, ErrBadHexLine)

			var le *LineError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, 2, le.Line)
		})
	}
}

func TestReadHexDump_HandlerError(t *testing.T) {
	stop := errors.New("stop")
	input := testutil.HexDump(testutil.HexDumpLines(MarkerXBLK, testutil.Record(1, 0, 7)))
	err := ReadHexDump(strings.NewReader(input), func(Event) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestAssembler_IgnoresLinesOutsideRecord(t *testing.T) {
	a := NewAssembler()
	for _, l := range []string{"Frame 1: 84 bytes", "0000  00 11 22   ..XBLK"} {
		_, ok, err := a.Feed(l)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	_, ok, err := a.Feed("0010  aa bb   ..")
	require.NoError(t, err)
	assert.False(t, ok)

	ev, ok, err := a.Feed("")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{0xaa, 0xbb}, ev.Data)
	assert.Equal(t, 4, a.Line())

	_, ok = a.Flush()
	assert.False(t, ok)
}
