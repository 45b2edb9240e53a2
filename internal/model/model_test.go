package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesPerPixel(t *testing.T) {
	expected := map[PixelType]int{
		PixelInt8: 1, PixelUint8: 1,
		PixelInt16: 2, PixelUint16: 2,
		PixelInt32: 4, PixelUint32: 4, PixelFloat: 4,
		PixelDouble: 8,
	}
	for pt, want := range expected {
		got, err := BytesPerPixel(pt)
		require.NoError(t, err, pt.String())
		assert.Equal(t, want, got, pt.String())
	}
}

func TestBytesPerPixel_Unknown(t *testing.T) {
	for _, pt := range []PixelType{-1, 8, 42} {
		_, err := BytesPerPixel(pt)
		assert.ErrorIs(t, err, ErrUnknownPixelType)
	}
	assert.Equal(t, "PixelType(42)", PixelType(42).String())
}

func TestParsePixelType(t *testing.T) {
	pt, err := ParsePixelType(" UInt16 ")
	require.NoError(t, err)
	assert.Equal(t, PixelUint16, pt)

	pt, err = ParsePixelType("double")
	require.NoError(t, err)
	assert.True(t, pt.Floating())
	assert.False(t, pt.Signed())

	_, err = ParsePixelType("bit")
	assert.ErrorIs(t, err, ErrUnknownPixelType)
}

func TestPixelsRecord_PlateID(t *testing.T) {
	p := &PixelsRecord{}
	_, ok := p.PlateID()
	assert.False(t, ok)

	p.Image = &Image{WellSamples: []*WellSample{{Plate: &Plate{ID: 7}}}}
	id, ok := p.PlateID()
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
}

func TestPixelsRecord_SizeBytes(t *testing.T) {
	p := &PixelsRecord{SizeX: 4, SizeY: 2, SizeZ: 3, SizeC: 2, SizeT: 1, PixelType: PixelUint16}
	assert.Equal(t, int64(96), p.SizeBytes())

	p.PixelType = 99
	assert.Zero(t, p.SizeBytes())
}

func TestTarget_IsZero(t *testing.T) {
	assert.True(t, Target{}.IsZero())
	assert.False(t, Target{Kind: TargetDataset, Name: "x"}.IsZero())
}
