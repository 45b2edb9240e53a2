// Package dims derives plane counts and per-axis strides for a 5-D pixel set.
package dims

import (
	"errors"
	"fmt"
)

var (
	// ErrBadDimensionOrder indicates an order string outside the six XY-prefixed permutations.
	ErrBadDimensionOrder = errors.New("unsupported dimension order")

	// ErrNegativeSize indicates a declared axis size below zero.
	ErrNegativeSize = errors.New("negative axis size")
)

// Orders lists every dimension order Calculate accepts.
var Orders = []string{"XYZCT", "XYZTC", "XYCZT", "XYCTZ", "XYTZC", "XYTCZ"}

// SeriesSize is the geometry of one series.
// ZStride, CStride and TStride give the distance between consecutive planes
// along each axis when planes are laid out in Order.
type SeriesSize struct {
	SizeX      int    `json:"size_x"`
	SizeY      int    `json:"size_y"`
	SizeZ      int    `json:"size_z"`
	SizeC      int    `json:"size_c"`
	SizeT      int    `json:"size_t"`
	ImageCount int    `json:"image_count"`
	ZStride    int    `json:"z_stride"`
	CStride    int    `json:"c_stride"`
	TStride    int    `json:"t_stride"`
	Order      string `json:"order"`
}

// Calculate builds a SeriesSize from declared axis sizes and a 5-letter order.
// The third letter of order is the fastest-varying axis and gets stride 1;
// each slower axis gets the stride times size of the axis before it.
func Calculate(sizeX, sizeY, sizeZ, sizeC, sizeT int, order string) (SeriesSize, error) {
	if sizeX < 0 || sizeY < 0 || sizeZ < 0 || sizeC < 0 || sizeT < 0 {
		return SeriesSize{}, fmt.Errorf("%w: %dx%dx%dx%dx%d", ErrNegativeSize, sizeX, sizeY, sizeZ, sizeC, sizeT)
	}

	s := SeriesSize{
		SizeX:      sizeX,
		SizeY:      sizeY,
		SizeZ:      sizeZ,
		SizeC:      sizeC,
		SizeT:      sizeT,
		ImageCount: sizeZ * sizeC * sizeT,
		Order:      order,
	}

	switch order {
	case "XYZCT":
		s.ZStride = 1
		s.CStride = s.ZStride * sizeZ
		s.TStride = s.CStride * sizeC
	case "XYZTC":
		s.ZStride = 1
		s.TStride = s.ZStride * sizeZ
		s.CStride = s.TStride * sizeT
	case "XYCZT":
		s.CStride = 1
		s.ZStride = s.CStride * sizeC
		s.TStride = s.ZStride * sizeZ
	case "XYCTZ":
		s.CStride = 1
		s.TStride = s.CStride * sizeC
		s.ZStride = s.TStride * sizeT
	case "XYTZC":
		s.TStride = 1
		s.ZStride = s.TStride * sizeT
		s.CStride = s.ZStride * sizeZ
	case "XYTCZ":
		s.TStride = 1
		s.CStride = s.TStride * sizeT
		s.ZStride = s.CStride * sizeC
	default:
		return SeriesSize{}, fmt.Errorf("%w: %q", ErrBadDimensionOrder, order)
	}

	return s, nil
}

// Index returns the linear plane ordinal of (z, c, t) under s.Order.
func (s SeriesSize) Index(z, c, t int) (int, error) {
	if z < 0 || z >= s.SizeZ || c < 0 || c >= s.SizeC || t < 0 || t >= s.SizeT {
		return 0, fmt.Errorf("plane (z=%d, c=%d, t=%d) outside %dx%dx%d", z, c, t, s.SizeZ, s.SizeC, s.SizeT)
	}
	return z*s.ZStride + c*s.CStride + t*s.TStride, nil
}

// PlaneBytes is the byte length of one plane at the given sample width.
func (s SeriesSize) PlaneBytes(bytesPerPixel int) int {
	return s.SizeX * s.SizeY * bytesPerPixel
}
