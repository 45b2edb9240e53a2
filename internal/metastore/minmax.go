package metastore

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/vmunix/pixport/internal/model"
)

// sample decodes the i-th big-endian sample of a plane.
func sample(plane []byte, i int, pt model.PixelType) float64 {
	switch pt {
	case model.PixelInt8:
		return float64(int8(plane[i]))
	case model.PixelUint8:
		return float64(plane[i])
	case model.PixelInt16:
		return float64(int16(binary.BigEndian.Uint16(plane[i*2:])))
	case model.PixelUint16:
		return float64(binary.BigEndian.Uint16(plane[i*2:]))
	case model.PixelInt32:
		return float64(int32(binary.BigEndian.Uint32(plane[i*4:])))
	case model.PixelUint32:
		return float64(binary.BigEndian.Uint32(plane[i*4:]))
	case model.PixelFloat:
		return float64(math.Float32frombits(binary.BigEndian.Uint32(plane[i*4:])))
	case model.PixelDouble:
		return math.Float64frombits(binary.BigEndian.Uint64(plane[i*8:]))
	}
	return 0
}

// typeRange is the representable range of an integer pixel type. Floating
// types report [0, 1].
func typeRange(pt model.PixelType) (float64, float64) {
	switch pt {
	case model.PixelInt8:
		return math.MinInt8, math.MaxInt8
	case model.PixelUint8:
		return 0, math.MaxUint8
	case model.PixelInt16:
		return math.MinInt16, math.MaxInt16
	case model.PixelUint16:
		return 0, math.MaxUint16
	case model.PixelInt32:
		return math.MinInt32, math.MaxInt32
	case model.PixelUint32:
		return 0, math.MaxUint32
	}
	return 0, 1
}

// planeMinMax returns the extremes of a plane, skipping NaN samples.
// ok is false when the plane holds no comparable sample.
func planeMinMax(plane []byte, pt model.PixelType) (lo, hi float64, ok bool) {
	bpp, err := model.BytesPerPixel(pt)
	if err != nil {
		return 0, 0, false
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := 0; i < len(plane)/bpp; i++ {
		v := sample(plane, i, pt)
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi, lo <= hi
}

func upsertChannelStats(ctx context.Context, q querier, pixelsID int64, channel int, lo, hi float64) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO channel_stats (pixels_id, channel, min_value, max_value) VALUES (?, ?, ?, ?)
		ON CONFLICT (pixels_id, channel) DO UPDATE SET min_value = excluded.min_value, max_value = excluded.max_value`,
		pixelsID, channel, lo, hi)
	if err != nil {
		return fmt.Errorf("store channel stats for pixels %d: %w", pixelsID, mapSQLiteError(err))
	}
	return nil
}

// ChannelStats returns channel -> [min, max] for a pixel set.
func (s *Store) ChannelStats(ctx context.Context, pixelsID int64) (map[int][2]float64, error) {
	return channelStats(ctx, s.db, pixelsID)
}

func channelStats(ctx context.Context, q querier, pixelsID int64) (map[int][2]float64, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT channel, min_value, max_value FROM channel_stats WHERE pixels_id = ? ORDER BY channel`, pixelsID)
	if err != nil {
		return nil, fmt.Errorf("list channel stats: %w", err)
	}
	defer rows.Close()

	out := make(map[int][2]float64)
	for rows.Next() {
		var c int
		var lo, hi float64
		if err := rows.Scan(&c, &lo, &hi); err != nil {
			return nil, fmt.Errorf("scan channel stats: %w", err)
		}
		out[c] = [2]float64{lo, hi}
	}
	return out, rows.Err()
}

// PopulateMinMax computes per-channel extremes from the stored planes of
// every pixel set saved for the current file. Repeated calls overwrite the
// previous values.
func (s *Store) PopulateMinMax(ctx context.Context) error {
	for _, p := range s.state.pixels {
		for c := 0; c < p.SizeC; c++ {
			lo, hi := math.Inf(1), math.Inf(-1)
			for t := 0; t < p.SizeT; t++ {
				for z := 0; z < p.SizeZ; z++ {
					if err := ctx.Err(); err != nil {
						return err
					}
					plane, err := s.planes.GetPlane(ctx, p.ID, z, c, t)
					if err != nil {
						return fmt.Errorf("read plane z=%d c=%d t=%d of pixels %d: %w", z, c, t, p.ID, err)
					}
					if pl, ph, ok := planeMinMax(plane, p.PixelType); ok {
						lo, hi = math.Min(lo, pl), math.Max(hi, ph)
					}
				}
			}
			if lo > hi {
				continue
			}
			if err := upsertChannelStats(ctx, s.db, p.ID, c, lo, hi); err != nil {
				return err
			}
		}
		s.log.Debug("computed channel min/max", "pixels_id", p.ID, "channels", p.SizeC)
	}
	return nil
}
