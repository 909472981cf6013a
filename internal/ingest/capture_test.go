package ingest

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/xblk-report/internal/testutil"
)

func TestReadCapture(t *testing.T) {
	// Large enough that the frame needs no Ethernet padding.
	rec := testutil.FaderRecord(7, [2]uint8{1, 0x05}, [2]uint8{2, 0x25}, [2]uint8{3, 0x01}, [2]uint8{4, 0x02})
	xblk := append([]byte("hdr:XBLK"), rec...)
	navd := []byte("NAVD....")
	other := []byte("nothing to see")

	data := testutil.PCAP(t, xblk, navd, other)

	var events []Event
	stats, err := ReadCapture(bytes.NewReader(data), func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, CaptureStats{Packets: 3, Records: 1, NAVD: 1, Ignored: 1}, stats)
	require.Len(t, events, 2)
	assert.Equal(t, Event{Kind: EventRecord, Line: 1, Data: rec}, events[0])
	assert.Equal(t, Event{Kind: EventUnparsed, Line: 2, Reason: ReasonNAVD}, events[1])
}

func TestReadCapture_PCAPNG(t *testing.T) {
	rec := testutil.TrackingRecord(0x0102, 1, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9)
	data := testutil.PCAPNG(t, []byte("status NAVD ok....."), append([]byte("XBLK"), rec...))

	var events []Event
	format, err := Read(bytes.NewReader(data), FormatAuto, func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, FormatPCAPNG, format)

	require.Len(t, events, 2)
	assert.Equal(t, Event{Kind: EventUnparsed, Line: 1, Reason: ReasonNAVD}, events[0])
	assert.Equal(t, Event{Kind: EventRecord, Line: 2, Data: rec}, events[1])
}

func TestReadCapture_NotCapture(t *testing.T) {
	_, err := ReadCapture(strings.NewReader("0000  58 42 4c 4b\n"), func(Event) error { return nil })
	assert.Error(t, err)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  Format
	}{
		{"pcap le", []byte{0xd4, 0xc3, 0xb2, 0xa1, 0x02, 0x00}, FormatPCAP},
		{"pcap be nano", []byte{0xa1, 0xb2, 0x3c, 0x4d}, FormatPCAP},
		{"pcapng", []byte{0x0a, 0x0d, 0x0d, 0x0a, 0x1c}, FormatPCAPNG},
		{"text", []byte("0000  58 42 4c 4b"), FormatText},
		{"short", []byte("ab"), FormatText},
		{"empty", nil, FormatText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			br := bufio.NewReader(bytes.NewReader(tt.input))
			got, err := DetectFormat(br)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			// Detection must not consume input.
			rest := make([]byte, len(tt.input))
			n, _ := br.Read(rest)
			assert.Equal(t, len(tt.input), n)
		})
	}
}

func TestRead_Dispatch(t *testing.T) {
	rec := testutil.FaderRecord(3, [2]uint8{1, 1}, [2]uint8{2, 2}, [2]uint8{3, 3}, [2]uint8{4, 4}, [2]uint8{5, 5})
	handler := func(got *[]Event) Handler {
		return func(ev Event) error {
			*got = append(*got, ev)
			return nil
		}
	}

	t.Run("auto text", func(t *testing.T) {
		var got []Event
		format, err := Read(strings.NewReader(testutil.HexDump(testutil.HexDumpLines(MarkerXBLK, rec))), FormatAuto, handler(&got))
		require.NoError(t, err)
		assert.Equal(t, FormatText, format)
		require.Len(t, got, 1)
		assert.Equal(t, rec, got[0].Data)
	})

	t.Run("auto pcap", func(t *testing.T) {
		var got []Event
		format, err := Read(bytes.NewReader(testutil.PCAP(t, append([]byte("XBLK"), rec...))), FormatAuto, handler(&got))
		require.NoError(t, err)
		assert.Equal(t, FormatPCAP, format)
		require.Len(t, got, 1)
		assert.Equal(t, rec, got[0].Data)
	})

	t.Run("forced pcap on text", func(t *testing.T) {
		var got []Event
		_, err := Read(strings.NewReader("hello\n"), FormatPCAP, handler(&got))
		assert.Error(t, err)
	})
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatAuto, "auto": FormatAuto, "text": FormatText, "pcap": FormatPCAP, "pcapng": FormatPCAP} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, "ParseFormat(%q)", in)
	}
	_, err := ParseFormat("csv")
	assert.Error(t, err)
	assert.Equal(t, "pcapng", FormatPCAPNG.String())
}
