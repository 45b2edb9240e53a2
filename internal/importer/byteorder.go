package importer

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// SwapLanes reverses the byte order of every bpp-wide lane of buf in place.
// A trailing partial lane is left untouched.
func SwapLanes(buf []byte, bpp int) error {
	n := len(buf) - len(buf)%max(bpp, 1)
	switch bpp {
	case 2:
		for i := 0; i < n; i += 2 {
			binary.LittleEndian.PutUint16(buf[i:], bits.ReverseBytes16(binary.LittleEndian.Uint16(buf[i:])))
		}
	case 4:
		for i := 0; i < n; i += 4 {
			binary.LittleEndian.PutUint32(buf[i:], bits.ReverseBytes32(binary.LittleEndian.Uint32(buf[i:])))
		}
	case 8:
		for i := 0; i < n; i += 8 {
			binary.LittleEndian.PutUint64(buf[i:], bits.ReverseBytes64(binary.LittleEndian.Uint64(buf[i:])))
		}
	default:
		return fmt.Errorf("%w: %d bytes", ErrUnsupportedSampleWidth, bpp)
	}
	return nil
}

// CorrectByteOrder converts plane data to big-endian in place.
// Single-byte samples and big-endian sources pass through unchanged.
func CorrectByteOrder(buf []byte, bpp int, littleEndian bool) error {
	if bpp == 1 || !littleEndian {
		return nil
	}
	return SwapLanes(buf, bpp)
}
