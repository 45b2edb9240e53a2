package metastore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/vmunix/pixport/internal/model"
)

// Rendering models.
const (
	ModelGreyscale = "greyscale"
	ModelRGB       = "rgb"
)

// ChannelWindow is the display range of one channel.
type ChannelWindow struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// RenderingDefaults are the initial display settings of a pixel set.
type RenderingDefaults struct {
	PixelsID int64
	DefaultZ int
	DefaultT int
	Model    string
	Channels []ChannelWindow
}

// ThumbnailKey is the bucket key of a pixel set's thumbnail.
func ThumbnailKey(pixelsID int64) string {
	return fmt.Sprintf("thumbnails/%d.png", pixelsID)
}

// ResetDefaultsAndGenerateThumbnails recomputes rendering defaults and
// thumbnails for the given pixel sets and for every pixel set on the given
// plates.
func (s *Store) ResetDefaultsAndGenerateThumbnails(ctx context.Context, plateIDs, pixelsIDs []int64) error {
	ids := append([]int64(nil), pixelsIDs...)
	for _, plateID := range plateIDs {
		onPlate, err := s.platePixels(ctx, plateID)
		if err != nil {
			return err
		}
		ids = append(ids, onPlate...)
	}

	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.resetDefaults(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) platePixels(ctx context.Context, plateID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id FROM pixels p
		JOIN well_samples ws ON ws.image_id = p.image_id
		WHERE ws.plate_id = ? ORDER BY p.id`, plateID)
	if err != nil {
		return nil, fmt.Errorf("list pixels of plate %d: %w", plateID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pixels id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) resetDefaults(ctx context.Context, pixelsID int64) error {
	p, err := getPixels(ctx, s.db, pixelsID)
	if err != nil {
		return err
	}
	stats, err := channelStats(ctx, s.db, pixelsID)
	if err != nil {
		return err
	}

	rd := RenderingDefaults{
		PixelsID: pixelsID,
		DefaultZ: p.SizeZ / 2,
		Model:    ModelGreyscale,
		Channels: make([]ChannelWindow, p.SizeC),
	}
	if p.SizeC == 3 && p.PixelType == model.PixelUint8 {
		rd.Model = ModelRGB
	}
	for c := range rd.Channels {
		lo, hi := typeRange(p.PixelType)
		if mm, ok := stats[c]; ok {
			lo, hi = mm[0], mm[1]
		}
		rd.Channels[c] = ChannelWindow{Start: lo, End: hi}
	}

	channels, err := json.Marshal(rd.Channels)
	if err != nil {
		return fmt.Errorf("marshal channel windows: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO rendering_defaults (pixels_id, default_z, default_t, model, channels, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (pixels_id) DO UPDATE SET default_z = excluded.default_z, default_t = excluded.default_t,
			model = excluded.model, channels = excluded.channels, updated_at = excluded.updated_at`,
		pixelsID, rd.DefaultZ, rd.DefaultT, rd.Model, string(channels)); err != nil {
		return fmt.Errorf("store rendering defaults for pixels %d: %w", pixelsID, mapSQLiteError(err))
	}

	return s.writeThumbnail(ctx, p, rd)
}

func (s *Store) writeThumbnail(ctx context.Context, p *model.PixelsRecord, rd RenderingDefaults) error {
	if p.SizeC == 0 {
		return nil
	}
	plane, err := s.planes.GetPlane(ctx, p.ID, rd.DefaultZ, 0, rd.DefaultT)
	if err != nil {
		return fmt.Errorf("read thumbnail plane of pixels %d: %w", p.ID, err)
	}
	img := thumbnail(plane, p.SizeX, p.SizeY, p.PixelType, rd.Channels[0], s.opts.ThumbnailSize)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode thumbnail: %w", err)
	}
	key := ThumbnailKey(p.ID)
	if err := s.bucket.WriteAll(ctx, key, buf.Bytes(), nil); err != nil {
		return fmt.Errorf("write thumbnail %s: %w", key, err)
	}

	b := img.Bounds()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO thumbnails (pixels_id, stored_key, width, height, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (pixels_id) DO UPDATE SET stored_key = excluded.stored_key,
			width = excluded.width, height = excluded.height, updated_at = excluded.updated_at`,
		p.ID, key, b.Dx(), b.Dy()); err != nil {
		return fmt.Errorf("store thumbnail for pixels %d: %w", p.ID, mapSQLiteError(err))
	}
	return nil
}

// thumbnail downsamples a plane by nearest neighbour so its longest edge is
// at most size, mapping the window onto 0-255.
func thumbnail(plane []byte, w, h int, pt model.PixelType, win ChannelWindow, size int) *image.Gray {
	tw, th := w, h
	if longest := max(w, h); longest > size {
		tw = max(1, w*size/longest)
		th = max(1, h*size/longest)
	}
	img := image.NewGray(image.Rect(0, 0, tw, th))
	span := win.End - win.Start
	for y := 0; y < th; y++ {
		sy := y * h / th
		for x := 0; x < tw; x++ {
			sx := x * w / tw
			v := sample(plane, sy*w+sx, pt)
			var g float64
			if span > 0 {
				g = (v - win.Start) / span * 255
			}
			img.SetGray(x, y, color.Gray{Y: uint8(math.Max(0, math.Min(255, g)))})
		}
	}
	return img
}

// Defaults loads the rendering defaults of a pixel set.
func (s *Store) Defaults(ctx context.Context, pixelsID int64) (*RenderingDefaults, error) {
	rd := &RenderingDefaults{PixelsID: pixelsID}
	var channels string
	err := s.db.QueryRowContext(ctx,
		`SELECT default_z, default_t, model, channels FROM rendering_defaults WHERE pixels_id = ?`, pixelsID,
	).Scan(&rd.DefaultZ, &rd.DefaultT, &rd.Model, &channels)
	if err != nil {
		return nil, fmt.Errorf("get rendering defaults %d: %w", pixelsID, mapSQLiteError(err))
	}
	if err := json.Unmarshal([]byte(channels), &rd.Channels); err != nil {
		return nil, fmt.Errorf("unmarshal channel windows: %w", err)
	}
	return rd, nil
}
