package metastore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmunix/pixport/internal/model"
)

// PostProcess applies the user-specified overrides to the collected series.
func (s *Store) PostProcess(_ context.Context) error {
	series := s.seriesInOrder()
	if len(series) == 0 {
		return ErrNoSeries
	}
	base := filepath.Base(s.state.primary)
	multi := len(series) > 1

	for _, m := range series {
		name := cleanName(m.Name)
		switch {
		case s.state.name != "" && multi:
			if name == "" {
				name = fmt.Sprintf("%d", m.Series)
			}
			name = fmt.Sprintf("%s [%s]", cleanName(s.state.name), name)
		case s.state.name != "":
			name = cleanName(s.state.name)
		case name == "" && multi:
			name = fmt.Sprintf("%s [%d]", base, m.Series)
		case name == "":
			name = base
		}
		m.Name = name
		if s.state.sizes != nil {
			sizes := *s.state.sizes
			m.PhysicalSizes = &sizes
		}
		s.state.series[m.Series] = m
	}
	return nil
}

// SaveToDB writes images, pixel sets, plates and original files for the
// current file in one transaction and returns one record per series.
func (s *Store) SaveToDB(ctx context.Context) ([]*model.PixelsRecord, error) {
	series := s.seriesInOrder()
	if len(series) == 0 {
		return nil, ErrNoSeries
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	target := s.state.target
	plates := make(map[string]*model.Plate)
	var plateOrder []*model.Plate
	var images []*model.Image
	records := make([]*model.PixelsRecord, 0, len(series))

	for _, m := range series {
		var plate *model.Plate
		if m.Plate != "" {
			plate = plates[m.Plate]
			if plate == nil {
				plate = &model.Plate{Name: cleanName(m.Plate)}
				var screenID sql.NullInt64
				if target.Kind == model.TargetScreen {
					screenID = sql.NullInt64{Int64: target.ID, Valid: true}
				}
				if plate.ID, err = insert(ctx, tx,
					`INSERT INTO plates (name, screen_id) VALUES (?, ?)`, plate.Name, screenID); err != nil {
					return nil, fmt.Errorf("insert plate: %w", err)
				}
				plates[m.Plate] = plate
				plateOrder = append(plateOrder, plate)
			}
		}

		img := &model.Image{Name: m.Name, Description: s.state.description}
		var containerID sql.NullInt64
		if target.Kind == model.TargetDataset && plate == nil {
			containerID = sql.NullInt64{Int64: target.ID, Valid: true}
		}
		if img.ID, err = insert(ctx, tx,
			`INSERT INTO images (name, description, container_id) VALUES (?, ?, ?)`,
			img.Name, img.Description, containerID); err != nil {
			return nil, fmt.Errorf("insert image: %w", err)
		}

		if plate != nil {
			ws := &model.WellSample{Row: m.WellRow, Column: m.WellColumn, Plate: plate}
			if ws.ID, err = insert(ctx, tx,
				`INSERT INTO well_samples (image_id, plate_id, well_row, well_column) VALUES (?, ?, ?, ?)`,
				img.ID, plate.ID, ws.Row, ws.Column); err != nil {
				return nil, fmt.Errorf("insert well sample: %w", err)
			}
			img.WellSamples = append(img.WellSamples, ws)
		}

		p := &model.PixelsRecord{
			ImageID:        img.ID,
			Series:         m.Series,
			SizeX:          m.SizeX,
			SizeY:          m.SizeY,
			SizeZ:          m.SizeZ,
			SizeC:          m.SizeC,
			SizeT:          m.SizeT,
			PixelType:      m.PixelType,
			DimensionOrder: m.DimensionOrder,
			PhysicalSizes:  m.PhysicalSizes,
			Image:          img,
		}
		var px, py, pz sql.NullFloat64
		if p.PhysicalSizes != nil {
			px = sql.NullFloat64{Float64: p.PhysicalSizes.X, Valid: p.PhysicalSizes.X > 0}
			py = sql.NullFloat64{Float64: p.PhysicalSizes.Y, Valid: p.PhysicalSizes.Y > 0}
			pz = sql.NullFloat64{Float64: p.PhysicalSizes.Z, Valid: p.PhysicalSizes.Z > 0}
		}
		if p.ID, err = insert(ctx, tx, `
			INSERT INTO pixels (image_id, series, size_x, size_y, size_z, size_c, size_t,
				pixel_type, dimension_order, physical_size_x, physical_size_y, physical_size_z)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ImageID, p.Series, p.SizeX, p.SizeY, p.SizeZ, p.SizeC, p.SizeT,
			int(p.PixelType), p.DimensionOrder, px, py, pz); err != nil {
			return nil, fmt.Errorf("insert pixels: %w", err)
		}

		for c := 0; c < m.SizeC; c++ {
			mm, ok := s.state.minMax[[2]int{m.Series, c}]
			if !ok {
				continue
			}
			if err := upsertChannelStats(ctx, tx, p.ID, c, mm[0], mm[1]); err != nil {
				return nil, err
			}
		}

		images = append(images, img)
		records = append(records, p)
	}

	if s.state.archive {
		for _, path := range s.state.used {
			f, err := insertOriginalFile(ctx, tx, path)
			if err != nil {
				return nil, err
			}
			for _, p := range records {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO pixels_original_files (pixels_id, original_file_id) VALUES (?, ?)`,
					p.ID, f.ID); err != nil {
					return nil, fmt.Errorf("link original file: %w", mapSQLiteError(err))
				}
				p.OriginalFiles = append(p.OriginalFiles, f)
			}
		}
	} else {
		for _, path := range s.FilteredCompanionFiles() {
			if err := s.annotate(ctx, tx, NamespaceCompanion, path, images, plateOrder); err != nil {
				return nil, err
			}
		}
	}
	for _, path := range s.state.metadataFiles {
		if err := s.annotate(ctx, tx, NamespaceMetadata, path, images, plateOrder); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	s.state.pixels = records
	s.log.Debug("saved metadata", "file", s.state.primary, "images", len(images), "plates", len(plateOrder))
	return records, nil
}

// annotate attaches path to the plates when there are any, otherwise to every image.
func (s *Store) annotate(ctx context.Context, q querier, ns, path string, images []*model.Image, plates []*model.Plate) error {
	f, err := insertOriginalFile(ctx, q, path)
	if err != nil {
		return err
	}
	if len(plates) > 0 {
		for _, pl := range plates {
			a := &model.Annotation{Namespace: ns, File: f}
			if a.ID, err = insert(ctx, q,
				`INSERT INTO file_annotations (namespace, original_file_id, plate_id) VALUES (?, ?, ?)`,
				ns, f.ID, pl.ID); err != nil {
				return fmt.Errorf("annotate plate: %w", err)
			}
			pl.Annotations = append(pl.Annotations, a)
		}
		return nil
	}
	for _, img := range images {
		a := &model.Annotation{Namespace: ns, File: f}
		if a.ID, err = insert(ctx, q,
			`INSERT INTO file_annotations (namespace, original_file_id, image_id) VALUES (?, ?, ?)`,
			ns, f.ID, img.ID); err != nil {
			return fmt.Errorf("annotate image: %w", err)
		}
		img.Annotations = append(img.Annotations, a)
	}
	return nil
}

func insertOriginalFile(ctx context.Context, q querier, path string) (*model.OriginalFile, error) {
	f := &model.OriginalFile{Path: path, Name: filepath.Base(path), CreatedAt: time.Now()}
	if info, err := os.Stat(path); err == nil {
		f.Size = info.Size()
	}
	var err error
	if f.ID, err = insert(ctx, q,
		`INSERT INTO original_files (path, name, size, created_at) VALUES (?, ?, ?, ?)`,
		f.Path, f.Name, f.Size, f.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert original file: %w", err)
	}
	return f, nil
}

func insert(ctx context.Context, q querier, query string, args ...any) (int64, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapSQLiteError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}
	return id, nil
}

// UpdatePixels stores the digests of fully streamed pixel sets.
func (s *Store) UpdatePixels(ctx context.Context, pixels []*model.PixelsRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range pixels {
		res, err := tx.ExecContext(ctx, `UPDATE pixels SET digest = ? WHERE id = ?`, p.Digest, p.ID)
		if err != nil {
			return fmt.Errorf("update pixels %d: %w", p.ID, mapSQLiteError(err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("update pixels %d: %w", p.ID, ErrNotFound)
		}
	}
	return tx.Commit()
}

// Pixels loads one pixel set without its image graph.
func (s *Store) Pixels(ctx context.Context, id int64) (*model.PixelsRecord, error) {
	return getPixels(ctx, s.db, id)
}

func getPixels(ctx context.Context, q querier, id int64) (*model.PixelsRecord, error) {
	p := &model.PixelsRecord{}
	var pt int
	var px, py, pz sql.NullFloat64
	err := q.QueryRowContext(ctx, `
		SELECT id, image_id, series, size_x, size_y, size_z, size_c, size_t,
			pixel_type, dimension_order, physical_size_x, physical_size_y, physical_size_z, digest
		FROM pixels WHERE id = ?`, id,
	).Scan(&p.ID, &p.ImageID, &p.Series, &p.SizeX, &p.SizeY, &p.SizeZ, &p.SizeC, &p.SizeT,
		&pt, &p.DimensionOrder, &px, &py, &pz, &p.Digest)
	if err != nil {
		return nil, fmt.Errorf("get pixels %d: %w", id, mapSQLiteError(err))
	}
	p.PixelType = model.PixelType(pt)
	if px.Valid || py.Valid || pz.Valid {
		p.PhysicalSizes = &model.PhysicalSizes{X: px.Float64, Y: py.Float64, Z: pz.Float64}
	}
	return p, nil
}
