// Package pixelstore keeps plane data in a blob bucket, one zstd-compressed
// object per plane.
package pixelstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/klauspost/compress/zstd"
	"gocloud.dev/blob"

	"github.com/vmunix/pixport/internal/importer"
)

// Store implements importer.PixelStore.
type Store struct {
	bucket *blob.Bucket
	enc    *zstd.Encoder
	dec    *zstd.Decoder
	log    *slog.Logger

	mu       sync.Mutex
	prepared map[int64]struct{}
}

var _ importer.PixelStore = (*Store)(nil)

// New creates a store over bucket. The caller keeps ownership of the bucket.
func New(bucket *blob.Bucket, level zstd.EncoderLevel, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Store{
		bucket:   bucket,
		enc:      enc,
		dec:      dec,
		log:      log,
		prepared: make(map[int64]struct{}),
	}, nil
}

// PlaneKey returns the object key of one plane.
func PlaneKey(id int64, z, c, t int) string {
	return fmt.Sprintf("pixels/%d/z%d-c%d-t%d.zst", id, z, c, t)
}

// PreparePixelsStore opens the given pixel sets for writing.
func (s *Store) PreparePixelsStore(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.prepared[id] = struct{}{}
	}
	s.log.Debug("pixel sets prepared", "ids", ids)
	return nil
}

// SetPlane stores one big-endian plane. Writes to pixel sets that were never
// prepared are rejected.
func (s *Store) SetPlane(ctx context.Context, id int64, plane []byte, z, c, t int) error {
	s.mu.Lock()
	_, ok := s.prepared[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: pixels %d not prepared", importer.ErrServiceRejected, id)
	}

	key := PlaneKey(id, z, c, t)
	data := s.enc.EncodeAll(plane, make([]byte, 0, len(plane)/2))
	if err := s.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{ContentType: "application/zstd"}); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// GetPlane reads one plane back in big-endian order.
func (s *Store) GetPlane(ctx context.Context, id int64, z, c, t int) ([]byte, error) {
	key := PlaneKey(id, z, c, t)
	r, err := s.bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	plane, err := s.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", key, err)
	}
	return plane, nil
}

// Close releases the codec resources.
func (s *Store) Close() error {
	s.dec.Close()
	return s.enc.Close()
}
