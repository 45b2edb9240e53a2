package importer

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwapLanes(t *testing.T) {
	tests := []struct {
		name string
		bpp  int
		in   []byte
		want []byte
	}{
		{"16-bit", 2, []byte{1, 2, 3, 4}, []byte{2, 1, 4, 3}},
		{"32-bit", 4, []byte{1, 2, 3, 4, 5, 6, 7, 8}, []byte{4, 3, 2, 1, 8, 7, 6, 5}},
		{"64-bit", 8, []byte{1, 2, 3, 4, 5, 6, 7, 8}, []byte{8, 7, 6, 5, 4, 3, 2, 1}},
		{"trailing partial lane untouched", 2, []byte{1, 2, 3}, []byte{2, 1, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := bytes.Clone(tt.in)
			require.NoError(t, SwapLanes(buf, tt.bpp))
			assert.Equal(t, tt.want, buf)
		})
	}
}

func TestSwapLanes_SelfInverse(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, bpp := range []int{2, 4, 8} {
		orig := make([]byte, 64*bpp)
		for i := range orig {
			orig[i] = byte(rng.UintN(256))
		}
		buf := bytes.Clone(orig)

		require.NoError(t, SwapLanes(buf, bpp))
		assert.NotEqual(t, orig, buf, "bpp %d", bpp)
		require.NoError(t, SwapLanes(buf, bpp))
		assert.Equal(t, orig, buf, "bpp %d", bpp)
	}
}

func TestSwapLanes_UnsupportedWidth(t *testing.T) {
	for _, bpp := range []int{0, 3, 5, 16} {
		err := SwapLanes(make([]byte, 48), bpp)
		assert.ErrorIs(t, err, ErrUnsupportedSampleWidth, "bpp %d", bpp)
	}
}

func TestCorrectByteOrder(t *testing.T) {
	t.Run("single byte is a no-op either way", func(t *testing.T) {
		for _, little := range []bool{true, false} {
			buf := []byte{1, 2, 3}
			require.NoError(t, CorrectByteOrder(buf, 1, little))
			assert.Equal(t, []byte{1, 2, 3}, buf)
		}
	})

	t.Run("big-endian source untouched", func(t *testing.T) {
		buf := []byte{1, 2, 3, 4}
		require.NoError(t, CorrectByteOrder(buf, 2, false))
		assert.Equal(t, []byte{1, 2, 3, 4}, buf)
	})

	t.Run("little-endian source swapped", func(t *testing.T) {
		buf := []byte{1, 2, 3, 4}
		require.NoError(t, CorrectByteOrder(buf, 4, true))
		assert.Equal(t, []byte{4, 3, 2, 1}, buf)
	})

	t.Run("unsupported width only matters for little-endian", func(t *testing.T) {
		assert.NoError(t, CorrectByteOrder(make([]byte, 6), 3, false))
		assert.ErrorIs(t, CorrectByteOrder(make([]byte, 6), 3, true), ErrUnsupportedSampleWidth)
	})
}
