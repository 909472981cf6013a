// Package ingest turns input files into XBLK record events.
//
// Two sources are supported: the text hex dump Wireshark writes for
// "Export Packet Dissections > As Plain Text" with packet bytes selected,
// and PCAP/PCAPNG capture files, which are decoded with gopacket. Both
// deliver the bytes following the "XBLK" marker to a Handler, one record
// at a time and in input order.
//
// In a text dump the whole line holding the marker is skipped and the
// record starts on the next line, while a capture record starts at the
// byte after "XBLK"; the two agree when the marker ends its dump line.
package ingest
