package metastore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vmunix/pixport/internal/model"
)

type overlaySink struct {
	store    *Store
	pixels   map[int]int64 // series -> pixels id
	plateID  sql.NullInt64
	overlays []model.Overlay
}

// NewOverlaySink returns a sink that collects overlays for the given pixel
// sets and persists them on Complete.
func (s *Store) NewOverlaySink(_ context.Context, pixels []*model.PixelsRecord, plateIDs []int64) (model.OverlaySink, error) {
	if len(pixels) == 0 {
		return nil, fmt.Errorf("overlay sink: %w", ErrNoSeries)
	}
	o := &overlaySink{store: s, pixels: make(map[int]int64, len(pixels))}
	for _, p := range pixels {
		o.pixels[p.Series] = p.ID
	}
	if len(plateIDs) > 0 {
		o.plateID = sql.NullInt64{Int64: plateIDs[0], Valid: true}
	}
	return o, nil
}

func (o *overlaySink) SetSourceFiles(string, []string)             {}
func (o *overlaySink) SetSeries(model.SeriesMetadata)              {}
func (o *overlaySink) SetChannelMinMax(int, int, float64, float64) {}

func (o *overlaySink) AddOverlay(ov model.Overlay) {
	o.overlays = append(o.overlays, ov)
}

func (o *overlaySink) Complete(ctx context.Context) error {
	tx, err := o.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, ov := range o.overlays {
		id, ok := o.pixels[ov.Series]
		if !ok {
			return fmt.Errorf("overlay on unknown series %d: %w", ov.Series, ErrConstraint)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO overlays (pixels_id, plate_id, series, z, c, t, kind, x, y, width, height)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, o.plateID, ov.Series, ov.Z, ov.C, ov.T, ov.Kind, ov.X, ov.Y, ov.Width, ov.Height); err != nil {
			return fmt.Errorf("insert overlay: %w", mapSQLiteError(err))
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	o.store.log.Debug("stored overlays", "count", len(o.overlays))
	return nil
}

// Overlays lists the overlays stored for a pixel set.
func (s *Store) Overlays(ctx context.Context, pixelsID int64) ([]model.Overlay, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT series, z, c, t, kind, x, y, width, height
		FROM overlays WHERE pixels_id = ? ORDER BY id`, pixelsID)
	if err != nil {
		return nil, fmt.Errorf("list overlays: %w", err)
	}
	defer rows.Close()

	var out []model.Overlay
	for rows.Next() {
		var ov model.Overlay
		if err := rows.Scan(&ov.Series, &ov.Z, &ov.C, &ov.T, &ov.Kind, &ov.X, &ov.Y, &ov.Width, &ov.Height); err != nil {
			return nil, fmt.Errorf("scan overlay: %w", err)
		}
		out = append(out, ov)
	}
	return out, rows.Err()
}
