// Package xblk decodes XBLK telemetry records.
//
// An XBLK record is the binary block that follows the "XBLK" marker in a
// captured packet. Its 8-byte header carries the sequence number, channel
// count and record type; the body is a run of per-channel sub-records whose
// layout depends on the type:
//
//   - type 0: tracking channels, code and carrier NCO counts per channel
//   - type 3: fader channels, a signed positional offset per channel
//
// Records of any other type decode to *UnknownRecord and are reported with
// a diagnostic line rather than an error.
//
// Decoder.DecodeRecord turns one record into one line of the legacy
// comma-separated report. The legacy report carries two known layout
// defects (a fixed level offset and a type-3 scale mask that is always
// zero); Options keeps both switchable.
package xblk
