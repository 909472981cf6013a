// Package testutil provides shared test utilities and fixtures.
//
// The builders produce raw XBLK record bytes (the bytes that follow the
// "XBLK" marker) and Wireshark-style hex dumps of them, so decoder, ingest
// and CLI tests share one definition of the wire layout.
package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/require"
)

// TrackingRecord builds a type-0 record from the NCO words it carries.
// Type-0 channels overlap on the wire with a 4-byte stride: word k sits at
// 12+4*k, so channel i reads its code NCO from words[i] and its carrier NCO
// from words[i+1]. A record with n channels takes n+1 words. Channel 0's id
// and level occupy bytes 8-11.
//
// With 8 channels and words w0..w8 the code diffs are w0-w3, w1-w4, w2-w5,
// w6-w7 and the carrier diffs w1-w4, w2-w5, w3-w6, w7-w8.
func TrackingRecord(seq uint16, chanID uint8, level uint16, words ...uint32) []byte {
	n := len(words) - 1
	if n < 0 {
		n = 0
	}
	buf := make([]byte, 12+4*len(words))
	writeHeader(buf, seq, uint8(n), 0)
	buf[8] = chanID
	binary.LittleEndian.PutUint16(buf[10:], level)
	for k, w := range words {
		binary.LittleEndian.PutUint32(buf[12+4*k:], w)
	}
	return buf
}

// FaderRecord builds a type-3 record from (id, data) pairs.
func FaderRecord(seq uint16, pairs ...[2]uint8) []byte {
	buf := make([]byte, 8+2*len(pairs))
	writeHeader(buf, seq, uint8(len(pairs)), 3)
	for i, p := range pairs {
		buf[8+2*i] = p[0]
		buf[9+2*i] = p[1]
	}
	return buf
}

// Record builds a header-only record of an arbitrary type.
func Record(seq uint16, channels, recordType uint8) []byte {
	buf := make([]byte, 8)
	writeHeader(buf, seq, channels, recordType)
	return buf
}

func writeHeader(buf []byte, seq uint16, channels, recordType uint8) {
	binary.LittleEndian.PutUint16(buf[0:], seq)
	binary.LittleEndian.PutUint16(buf[2:], uint16(len(buf)))
	buf[4] = channels
	buf[5] = recordType
}

// HexDumpLines renders data as Wireshark "packet bytes" lines, 16 bytes per
// line: a 4-digit address, two spaces, space separated hex pairs, three
// spaces and an ASCII column. The first line of the dump is the marker line
// so the assembler starts collecting at the next one.
func HexDumpLines(marker string, data []byte) []string {
	lines := []string{fmt.Sprintf("0000  00 00 00 00   %s", marker)}
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		hex := make([]string, 0, 16)
		for _, b := range data[off:end] {
			hex = append(hex, fmt.Sprintf("%02x", b))
		}
		lines = append(lines, fmt.Sprintf("%04x  %s   %s", off+16, strings.Join(hex, " "), strings.Repeat(".", end-off)))
	}
	return lines
}

// HexDump joins blocks of lines, each block terminated by a blank line.
func HexDump(blocks ...[]string) string {
	var sb strings.Builder
	for _, b := range blocks {
		for _, l := range b {
			sb.WriteString(l)
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// PCAP returns a little-endian libpcap capture holding one Ethernet/IPv4/UDP
// frame per payload, 20ms apart. Payloads shorter than 18 bytes are padded
// on the wire to the Ethernet minimum, so keep fixtures above that.
func PCAP(t *testing.T, payloads ...[]byte) []byte {
	t.Helper()
	var out bytes.Buffer
	w := pcapgo.NewWriter(&out)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))
	for i, p := range payloads {
		ci, frame := udpPacket(t, i, p)
		require.NoError(t, w.WritePacket(ci, frame))
	}
	return out.Bytes()
}

// PCAPNG is PCAP in the pcapng container format.
func PCAPNG(t *testing.T, payloads ...[]byte) []byte {
	t.Helper()
	var out bytes.Buffer
	w, err := pcapgo.NewNgWriter(&out, layers.LinkTypeEthernet)
	require.NoError(t, err)
	for i, p := range payloads {
		ci, frame := udpPacket(t, i, p)
		require.NoError(t, w.WritePacket(ci, frame))
	}
	require.NoError(t, w.Flush())
	return out.Bytes()
}

func udpPacket(t *testing.T, i int, payload []byte) (gopacket.CaptureInfo, []byte) {
	t.Helper()
	frame := udpFrame(t, payload)
	ts := time.Date(2022, 12, 5, 12, 0, 0, 0, time.UTC)
	return gopacket.CaptureInfo{
		Timestamp:     ts.Add(time.Duration(i) * 20 * time.Millisecond),
		CaptureLength: len(frame),
		Length:        len(frame),
	}, frame
}

func udpFrame(t *testing.T, payload []byte) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		DstMAC:       net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP{192, 168, 1, 10},
		DstIP:    net.IP{192, 168, 1, 20},
	}
	udp := &layers.UDP{SrcPort: 5000, DstPort: 5001}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)))
	return buf.Bytes()
}
