package metastore

import (
	"bufio"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/vmunix/pixport/internal/model"
)

// SetArchive records the archive mode of the current file. When
// useMetadataFile is set a flat key/value dump of the collected metadata is
// written and its path returned.
func (s *Store) SetArchive(archive, useMetadataFile bool) ([]string, error) {
	s.state.archive = archive
	s.state.useMetadataFile = useMetadataFile
	s.removeMetadataFiles()
	if !useMetadataFile {
		return nil, nil
	}

	path, err := s.writeMetadataFile()
	if err != nil {
		return nil, err
	}
	s.state.metadataFiles = []string{path}
	return []string{path}, nil
}

func (s *Store) writeMetadataFile() (path string, err error) {
	base := filepath.Base(s.state.primary)
	f, err := os.CreateTemp(s.opts.MetadataDir, base+"-*.metadata.txt")
	if err != nil {
		return "", fmt.Errorf("create metadata file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close metadata file: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "[file]\n")
	fmt.Fprintf(w, "path = %s\n", s.state.primary)
	fmt.Fprintf(w, "used_files = %d\n", len(s.state.used))
	for _, m := range s.seriesInOrder() {
		fmt.Fprintf(w, "\n[series %d]\n", m.Series)
		fmt.Fprintf(w, "name = %s\n", m.Name)
		fmt.Fprintf(w, "size_x = %d\nsize_y = %d\nsize_z = %d\nsize_c = %d\nsize_t = %d\n",
			m.SizeX, m.SizeY, m.SizeZ, m.SizeC, m.SizeT)
		fmt.Fprintf(w, "pixel_type = %s\n", m.PixelType)
		fmt.Fprintf(w, "dimension_order = %s\n", m.DimensionOrder)
		if m.PhysicalSizes != nil {
			fmt.Fprintf(w, "physical_size = %g %g %g\n", m.PhysicalSizes.X, m.PhysicalSizes.Y, m.PhysicalSizes.Z)
		}
		for c := 0; c < m.SizeC; c++ {
			if mm, ok := s.state.minMax[[2]int{m.Series, c}]; ok {
				fmt.Fprintf(w, "channel_%d = %g %g\n", c, mm[0], mm[1])
			}
		}
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("write metadata file: %w", err)
	}
	return f.Name(), nil
}

// removeMetadataFiles deletes the metadata files written for the current
// file. They are local scratch copies; the store keeps the uploaded ones.
func (s *Store) removeMetadataFiles() {
	for _, path := range s.state.metadataFiles {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("remove metadata file", "path", path, "error", err)
		}
	}
	s.state.metadataFiles = nil
}

// FilteredCompanionFiles returns the used files, other than the primary
// file, that are kept alongside a non-archived import.
func (s *Store) FilteredCompanionFiles() []string {
	var out []string
	for _, path := range s.state.used {
		if path == s.state.primary || !hasExt(path, s.opts.CompanionExts) {
			continue
		}
		out = append(out, path)
	}
	return out
}

// OriginalKey is the bucket key of an archived original file.
func OriginalKey(f *model.OriginalFile) string {
	return fmt.Sprintf("originals/%d/%s", f.ID, f.Name)
}

// WriteFilesToFileStore uploads each file to the bucket and records its
// size and SHA-1 on the matching original file. Files without a record
// are skipped with a warning.
func (s *Store) WriteFilesToFileStore(ctx context.Context, files []string, originals map[string]*model.OriginalFile) error {
	seen := make(map[string]bool, len(files))
	for _, path := range files {
		if seen[path] {
			continue
		}
		seen[path] = true

		f := originals[path]
		if f == nil {
			s.log.Warn("no original file record, skipping upload", "file", path)
			continue
		}
		if err := s.upload(ctx, path, f); err != nil {
			return err
		}
	}
	for path := range originals {
		if !slices.Contains(files, path) {
			s.log.Warn("original file record without upload", "file", path)
		}
	}
	return nil
}

func (s *Store) upload(ctx context.Context, path string, f *model.OriginalFile) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("upload original: %w", err)
	}
	defer src.Close()

	key := OriginalKey(f)
	w, err := s.bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("create writer for %s: %w", key, err)
	}
	h := sha1.New()
	n, err := io.Copy(w, io.TeeReader(src, h))
	if err != nil {
		w.Close()
		return fmt.Errorf("write data to %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", key, err)
	}

	sum := hex.EncodeToString(h.Sum(nil))
	if _, err := s.db.ExecContext(ctx,
		`UPDATE original_files SET size = ?, sha1 = ?, stored_key = ? WHERE id = ?`,
		n, sum, key, f.ID); err != nil {
		return fmt.Errorf("update original file %d: %w", f.ID, mapSQLiteError(err))
	}
	f.Size, f.SHA1, f.StoredKey = n, sum, key
	s.log.Debug("uploaded original file", "file", path, "key", key, "size", n)
	return nil
}
