package pixelstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob" // gs:// driver
	_ "gocloud.dev/blob/memblob" // mem:// driver
	_ "gocloud.dev/blob/s3blob"  // s3:// driver
)

// OpenBucket opens a bucket URL such as "file:///var/lib/pixport",
// "gs://bucket", "s3://bucket?region=eu-west-1" or "mem://". A bare path is
// treated as a local directory and created if missing. A non-empty prefix
// scopes every key under it.
func OpenBucket(ctx context.Context, url, prefix string) (*blob.Bucket, error) {
	var (
		bucket *blob.Bucket
		err    error
	)
	if strings.Contains(url, "://") {
		bucket, err = blob.OpenBucket(ctx, url)
	} else {
		bucket, err = openDir(url)
	}
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", url, err)
	}
	if prefix != "" {
		if !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		bucket = blob.PrefixedBucket(bucket, prefix)
	}
	return bucket, nil
}

func openDir(dir string) (*blob.Bucket, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, err
	}
	return fileblob.OpenBucket(abs, nil)
}
