package metastore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"

	"github.com/vmunix/pixport/internal/migrations"
	"github.com/vmunix/pixport/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := migrations.Open(context.Background(), ":memory:")
	require.NoError(t, err, "open db")
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memPlanes is an in-memory PlaneSource.
type memPlanes struct {
	mu     sync.Mutex
	planes map[string][]byte
}

func newMemPlanes() *memPlanes {
	return &memPlanes{planes: make(map[string][]byte)}
}

func planeKey(id int64, z, c, t int) string {
	return fmt.Sprintf("%d/%d/%d/%d", id, z, c, t)
}

func (m *memPlanes) put(id int64, z, c, t int, plane []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.planes[planeKey(id, z, c, t)] = plane
}

func (m *memPlanes) GetPlane(_ context.Context, id int64, z, c, t int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.planes[planeKey(id, z, c, t)]
	if !ok {
		return nil, fmt.Errorf("plane %s: %w", planeKey(id, z, c, t), ErrNotFound)
	}
	return p, nil
}

// uint16Plane encodes values big-endian.
func uint16Plane(values ...uint16) []byte {
	out := make([]byte, 2*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint16(out[i*2:], v)
	}
	return out
}

type harness struct {
	db     *sql.DB
	bucket *blob.Bucket
	planes *memPlanes
	store  *Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := setupTestDB(t)
	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { _ = bucket.Close() })
	planes := newMemPlanes()
	s := New(db, bucket, planes, Options{MetadataDir: t.TempDir(), ThumbnailSize: 2}, testLogger())
	return &harness{db: db, bucket: bucket, planes: planes, store: s}
}

// twoByTwo reports one 2x2 uint16 series with one z, one c and two t.
func (h *harness) twoByTwo(primary string, used ...string) {
	h.store.SetSourceFiles(primary, append([]string{primary}, used...))
	h.store.SetSeries(model.SeriesMetadata{
		Series: 0, SizeX: 2, SizeY: 2, SizeZ: 1, SizeC: 1, SizeT: 2,
		PixelType: model.PixelUint16, DimensionOrder: "XYZCT",
	})
}

func (h *harness) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, h.db.QueryRow(query, args...).Scan(&n))
	return n
}
