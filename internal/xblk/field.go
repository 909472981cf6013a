package xblk

import "encoding/binary"

// ReadU32LE returns the little-endian uint32 stored at buf[offset:offset+4].
// Byte offset is the least significant. A read that does not fit in buf
// returns an *OffsetError.
func ReadU32LE(buf []byte, offset int) (uint32, error) {
	if err := checkRange(buf, offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[offset : offset+4]), nil
}

// ReadU16LE returns the little-endian uint16 stored at buf[offset:offset+2].
func ReadU16LE(buf []byte, offset int) (uint16, error) {
	if err := checkRange(buf, offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[offset : offset+2]), nil
}

// ReadU8 returns buf[offset].
func ReadU8(buf []byte, offset int) (uint8, error) {
	if err := checkRange(buf, offset, 1); err != nil {
		return 0, err
	}
	return buf[offset], nil
}

func checkRange(buf []byte, offset, width int) error {
	if offset < 0 || offset+width > len(buf) {
		return &OffsetError{Offset: offset, Width: width, Len: len(buf)}
	}
	return nil
}
