package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPixelType indicates a pixel type code outside the supported set.
var ErrUnknownPixelType = errors.New("unknown pixel type")

// PixelType is the sample type code reported by readers.
type PixelType int

const (
	PixelInt8 PixelType = iota
	PixelUint8
	PixelInt16
	PixelUint16
	PixelInt32
	PixelUint32
	PixelFloat
	PixelDouble
)

var pixelTypeNames = [...]string{"int8", "uint8", "int16", "uint16", "int32", "uint32", "float", "double"}

func (p PixelType) String() string {
	if p < 0 || int(p) >= len(pixelTypeNames) {
		return fmt.Sprintf("PixelType(%d)", int(p))
	}
	return pixelTypeNames[p]
}

// ParsePixelType maps a type name such as "uint16" to its code.
func ParsePixelType(name string) (PixelType, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for i, n := range pixelTypeNames {
		if n == lower {
			return PixelType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPixelType, name)
}

// BytesPerPixel returns the sample width for a pixel type code.
func BytesPerPixel(p PixelType) (int, error) {
	switch p {
	case PixelInt8, PixelUint8:
		return 1, nil
	case PixelInt16, PixelUint16:
		return 2, nil
	case PixelInt32, PixelUint32, PixelFloat:
		return 4, nil
	case PixelDouble:
		return 8, nil
	}
	return 0, fmt.Errorf("%w: code %d", ErrUnknownPixelType, int(p))
}

// Signed reports whether the integer type carries a sign bit.
func (p PixelType) Signed() bool {
	return p == PixelInt8 || p == PixelInt16 || p == PixelInt32
}

// Floating reports whether samples are IEEE floats.
func (p PixelType) Floating() bool {
	return p == PixelFloat || p == PixelDouble
}
