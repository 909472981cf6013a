package ingest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Format identifies the kind of input file.
type Format int

const (
	FormatAuto Format = iota
	FormatText
	FormatPCAP
	FormatPCAPNG
)

func (f Format) String() string {
	switch f {
	case FormatAuto:
		return "auto"
	case FormatText:
		return "text"
	case FormatPCAP:
		return "pcap"
	case FormatPCAPNG:
		return "pcapng"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat maps a -format flag value to a Format. "pcap" covers both
// capture file formats; the magic number picks between them.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "auto":
		return FormatAuto, nil
	case "text":
		return FormatText, nil
	case "pcap", "pcapng":
		return FormatPCAP, nil
	default:
		return FormatAuto, fmt.Errorf("unknown input format %q (want auto, text or pcap)", s)
	}
}

// File magic numbers as they appear on disk.
var (
	pcapMagics = [][]byte{
		{0xd4, 0xc3, 0xb2, 0xa1}, // little-endian, microseconds
		{0xa1, 0xb2, 0xc3, 0xd4}, // big-endian, microseconds
		{0x4d, 0x3c, 0xb2, 0xa1}, // little-endian, nanoseconds
		{0xa1, 0xb2, 0x3c, 0x4d}, // big-endian, nanoseconds
	}
	pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}
)

// DetectFormat peeks at the first bytes of br without consuming them.
// Anything that is not a capture file is treated as a text hex dump.
func DetectFormat(br *bufio.Reader) (Format, error) {
	head, err := br.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return FormatAuto, fmt.Errorf("failed to read input header: %w", err)
	}
	if len(head) < 4 {
		return FormatText, nil
	}
	if bytes.Equal(head, pcapngMagic) {
		return FormatPCAPNG, nil
	}
	for _, m := range pcapMagics {
		if bytes.Equal(head, m) {
			return FormatPCAP, nil
		}
	}
	return FormatText, nil
}

// Read dispatches r to the hex dump assembler or the capture reader and
// returns the format that was used.
func Read(r io.Reader, format Format, fn Handler) (Format, error) {
	br := bufio.NewReader(r)
	if format == FormatAuto || format == FormatPCAP || format == FormatPCAPNG {
		detected, err := DetectFormat(br)
		if err != nil {
			return format, err
		}
		if format == FormatAuto || detected != FormatText {
			format = detected
		}
	}

	switch format {
	case FormatText:
		return format, ReadHexDump(br, fn)
	case FormatPCAP, FormatPCAPNG:
		_, err := ReadCapture(br, fn)
		return format, err
	default:
		return format, fmt.Errorf("unsupported input format %v", format)
	}
}

// CaptureStats counts what a capture file contained.
type CaptureStats struct {
	Packets int
	Records int
	NAVD    int
	Ignored int
}

type packetDataSource interface {
	ReadPacketData() ([]byte, gopacket.CaptureInfo, error)
}

// ReadCapture reads a PCAP or PCAPNG stream, decodes each frame and emits
// the bytes after the first "XBLK" marker of each UDP payload as a record.
// Payloads carrying "NAVD" are reported as unparsed; other packets are
// counted and skipped.
func ReadCapture(r io.Reader, fn Handler) (CaptureStats, error) {
	var stats CaptureStats

	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	format, err := DetectFormat(br)
	if err != nil {
		return stats, err
	}

	var (
		src      packetDataSource
		linkType layers.LinkType
	)
	switch format {
	case FormatPCAPNG:
		ng, err := pcapgo.NewNgReader(br, pcapgo.DefaultNgReaderOptions)
		if err != nil {
			return stats, fmt.Errorf("failed to open pcapng stream: %w", err)
		}
		src, linkType = ng, ng.LinkType()
	case FormatPCAP:
		pr, err := pcapgo.NewReader(br)
		if err != nil {
			return stats, fmt.Errorf("failed to open pcap stream: %w", err)
		}
		src, linkType = pr, pr.LinkType()
	default:
		return stats, errors.New("input is not a pcap or pcapng capture")
	}

	marker := []byte(MarkerXBLK)
	navd := []byte(MarkerNAVD)
	for {
		data, _, err := src.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read packet %d: %w", stats.Packets+1, err)
		}
		stats.Packets++

		payload := packetPayload(gopacket.NewPacket(data, linkType, gopacket.DecodeOptions{Lazy: true, NoCopy: true}))
		if len(payload) == 0 {
			stats.Ignored++
			continue
		}

		var ev Event
		if idx := bytes.Index(payload, marker); idx >= 0 {
			rec := make([]byte, len(payload)-idx-len(marker))
			copy(rec, payload[idx+len(marker):])
			ev = Event{Kind: EventRecord, Line: stats.Packets, Data: rec}
			stats.Records++
		} else if bytes.Contains(payload, navd) {
			ev = Event{Kind: EventUnparsed, Line: stats.Packets, Reason: ReasonNAVD}
			stats.NAVD++
		} else {
			stats.Ignored++
			continue
		}
		if err := fn(ev); err != nil {
			return stats, err
		}
	}
}

func packetPayload(pkt gopacket.Packet) []byte {
	if l := pkt.Layer(layers.LayerTypeUDP); l != nil {
		if udp, ok := l.(*layers.UDP); ok {
			return udp.Payload
		}
	}
	if app := pkt.ApplicationLayer(); app != nil {
		return app.Payload()
	}
	return nil
}
