package pixelstore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"

	"github.com/vmunix/pixport/internal/importer"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	bucket := memblob.OpenBucket(nil)
	t.Cleanup(func() { _ = bucket.Close() })
	s, err := New(bucket, zstd.SpeedFastest, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.PreparePixelsStore(ctx, []int64{1, 2}))

	plane := bytes.Repeat([]byte{0, 1, 2, 3}, 256)
	require.NoError(t, s.SetPlane(ctx, 1, plane, 2, 1, 0))

	got, err := s.GetPlane(ctx, 1, 2, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, plane, got)

	attrs, err := s.bucket.Attributes(ctx, PlaneKey(1, 2, 1, 0))
	require.NoError(t, err)
	assert.Less(t, attrs.Size, int64(len(plane)), "planes are compressed")
}

func TestStore_UnpreparedRejected(t *testing.T) {
	s := newTestStore(t)

	err := s.SetPlane(context.Background(), 9, []byte{1}, 0, 0, 0)
	assert.ErrorIs(t, err, importer.ErrServiceRejected)
}

func TestStore_MissingPlane(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetPlane(context.Background(), 1, 0, 0, 0)
	require.Error(t, err)
	assert.Equal(t, gcerrors.NotFound, gcerrors.Code(err))
}

func TestPlaneKey(t *testing.T) {
	assert.Equal(t, "pixels/12/z3-c1-t0.zst", PlaneKey(12, 3, 1, 0))
}

func TestOpenBucket_LocalDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	ctx := context.Background()

	bucket, err := OpenBucket(ctx, dir, "pix")
	require.NoError(t, err)
	defer bucket.Close()

	require.NoError(t, bucket.WriteAll(ctx, "k", []byte("v"), nil))
	_, err = os.Stat(filepath.Join(dir, "pix", "k"))
	assert.NoError(t, err)
}

func TestOpenBucket_Memory(t *testing.T) {
	bucket, err := OpenBucket(context.Background(), "mem://", "")
	require.NoError(t, err)
	assert.NoError(t, bucket.Close())
}

func TestOpenBucket_RelativeDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	ctx := context.Background()

	bucket, err := OpenBucket(ctx, "./data/store", "")
	require.NoError(t, err)
	defer bucket.Close()

	require.NoError(t, bucket.WriteAll(ctx, "k", []byte("v"), nil))
	_, err = os.Stat(filepath.Join(dir, "data", "store", "k"))
	assert.NoError(t, err)
}
