// Package metastore persists imported image metadata in SQLite and keeps the
// archived original files and thumbnails in a blob bucket.
package metastore

import (
	"context"
	"crypto"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"gocloud.dev/blob"

	"github.com/vmunix/pixport/internal/model"
)

// Annotation namespaces.
const (
	NamespaceCompanion = "pixport/import/companion"
	NamespaceMetadata  = "pixport/import/metadata"
)

// querier abstracts *sql.DB and *sql.Tx for shared query logic.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PlaneSource reads stored planes back in canonical big-endian order.
type PlaneSource interface {
	GetPlane(ctx context.Context, id int64, z, c, t int) ([]byte, error)
}

// Options tune a Store. Zero values select defaults.
type Options struct {
	// ThumbnailSize is the longest edge of generated thumbnails.
	ThumbnailSize int
	// Workers bounds concurrent post-import processing jobs.
	Workers int
	// MetadataDir receives the flat metadata files written by SetArchive.
	MetadataDir string
	// Digest verifies stored planes after import.
	Digest crypto.Hash
	// CompanionExts lists extensions of used files kept when not archiving.
	CompanionExts []string
	// SkipProcessing turns LaunchProcessing into a no-op.
	SkipProcessing bool
}

func (o Options) withDefaults() Options {
	if o.ThumbnailSize <= 0 {
		o.ThumbnailSize = 96
	}
	if o.Workers <= 0 {
		o.Workers = 2
	}
	if o.MetadataDir == "" {
		o.MetadataDir = os.TempDir()
	}
	if o.Digest == 0 {
		o.Digest = crypto.SHA1
	}
	if len(o.CompanionExts) == 0 {
		o.CompanionExts = []string{".txt", ".xml", ".csv", ".log", ".ini", ".json"}
	}
	return o
}

// fileState is everything collected for the file currently being imported.
type fileState struct {
	primary string
	used    []string
	series  map[int]model.SeriesMetadata
	minMax  map[[2]int][2]float64

	name        string
	description string
	sizes       *model.PhysicalSizes
	target      model.Target

	archive         bool
	useMetadataFile bool
	metadataFiles   []string

	pixels []*model.PixelsRecord
}

func newFileState() fileState {
	return fileState{
		series: make(map[int]model.SeriesMetadata),
		minMax: make(map[[2]int][2]float64),
	}
}

// Store implements the importer's metadata store.
type Store struct {
	db     *sql.DB
	bucket *blob.Bucket
	planes PlaneSource
	opts   Options
	log    *slog.Logger
	proc   *Processor

	state fileState
}

// New creates a store. bucket receives archived files and thumbnails;
// planes is read by min/max, thumbnail and processing steps.
func New(db *sql.DB, bucket *blob.Bucket, planes PlaneSource, opts Options, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	opts = opts.withDefaults()
	s := &Store{
		db:     db,
		bucket: bucket,
		planes: planes,
		opts:   opts,
		log:    log,
		state:  newFileState(),
	}
	s.proc = NewProcessor(db, planes, opts.Digest, opts.Workers, log)
	return s
}

// Processor returns the background processor fed by LaunchProcessing.
func (s *Store) Processor() *Processor { return s.proc }

// SetSourceFiles records the opened file and its dependencies.
func (s *Store) SetSourceFiles(primary string, used []string) {
	s.state.primary = primary
	s.state.used = append([]string(nil), used...)
}

// SetSeries records one series.
func (s *Store) SetSeries(meta model.SeriesMetadata) {
	s.state.series[meta.Series] = meta
}

// SetChannelMinMax records reader-computed channel statistics.
func (s *Store) SetChannelMinMax(series, channel int, min, max float64) {
	s.state.minMax[[2]int{series, channel}] = [2]float64{min, max}
}

// AddOverlay ignores overlays reported outside the overlay pass.
func (s *Store) AddOverlay(o model.Overlay) {
	s.log.Debug("overlay ignored outside overlay pass", "series", o.Series, "kind", o.Kind)
}

func (s *Store) SetUserSpecifiedName(name string)               { s.state.name = name }
func (s *Store) SetUserSpecifiedDescription(description string) { s.state.description = description }
func (s *Store) SetUserSpecifiedTarget(target model.Target)     { s.state.target = target }

func (s *Store) SetUserSpecifiedPhysicalPixelSizes(sizes *model.PhysicalSizes) {
	s.state.sizes = sizes
}

// CreateRoot discards the state collected for the current file.
func (s *Store) CreateRoot() {
	s.removeMetadataFiles()
	s.state = newFileState()
}

// seriesInOrder returns the reported series sorted by index.
func (s *Store) seriesInOrder() []model.SeriesMetadata {
	out := make([]model.SeriesMetadata, 0, len(s.state.series))
	for _, m := range s.state.series {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Series < out[j].Series })
	return out
}

// ResolveTarget returns target with its ID filled in. A target given by ID
// must exist with the same kind; a target given by name is found or created.
func (s *Store) ResolveTarget(ctx context.Context, target model.Target) (model.Target, error) {
	switch target.Kind {
	case model.TargetNone:
		if target.ID != 0 || target.Name != "" {
			return target, fmt.Errorf("%w: container without kind", ErrBadTarget)
		}
		return target, nil
	case model.TargetDataset, model.TargetScreen:
	default:
		return target, fmt.Errorf("%w: unknown kind %q", ErrBadTarget, target.Kind)
	}

	if target.ID != 0 {
		var name string
		err := s.db.QueryRowContext(ctx,
			`SELECT name FROM containers WHERE id = ? AND kind = ?`, target.ID, target.Kind,
		).Scan(&name)
		if err != nil {
			return target, fmt.Errorf("resolve %s %d: %w", target.Kind, target.ID, mapSQLiteError(err))
		}
		target.Name = name
		return target, nil
	}

	name := cleanName(target.Name)
	if name == "" {
		return target, fmt.Errorf("%w: %s needs an id or a name", ErrBadTarget, target.Kind)
	}
	target.Name = name

	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM containers WHERE kind = ? AND name = ?`, target.Kind, name,
	).Scan(&target.ID)
	if err == nil {
		return target, nil
	}
	if mapSQLiteError(err) != ErrNotFound {
		return target, fmt.Errorf("find %s %q: %w", target.Kind, name, err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO containers (kind, name) VALUES (?, ?)`, target.Kind, name)
	if err != nil {
		return target, fmt.Errorf("create %s %q: %w", target.Kind, name, mapSQLiteError(err))
	}
	if target.ID, err = res.LastInsertId(); err != nil {
		return target, fmt.Errorf("get last insert id: %w", err)
	}
	s.log.Info("created container", "kind", target.Kind, "name", name, "id", target.ID)
	return target, nil
}

// hasExt reports whether path ends in one of exts, ignoring case.
func hasExt(path string, exts []string) bool {
	lower := strings.ToLower(path)
	for _, e := range exts {
		if strings.HasSuffix(lower, strings.ToLower(e)) {
			return true
		}
	}
	return false
}
