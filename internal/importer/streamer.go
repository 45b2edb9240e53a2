package importer

import (
	"context"
	"crypto"
	_ "crypto/sha1" // default digest
	_ "crypto/sha256"
	"fmt"

	"github.com/vmunix/pixport/internal/dims"
	"github.com/vmunix/pixport/internal/events"
	"github.com/vmunix/pixport/internal/model"
)

// DefaultDigest is the pixel-set digest used when none is configured.
const DefaultDigest = crypto.SHA1

// PlaneStreamer copies every plane of a series from the reader to the pixel
// store, normalising byte order and hashing the canonical bytes on the way.
// It keeps one plane buffer between calls and is not safe for concurrent use.
type PlaneStreamer struct {
	reader Reader
	pixels PixelStore
	bus    *events.Bus
	source any
	digest crypto.Hash
	buf    []byte
}

// NewPlaneStreamer creates a streamer. source is passed to observers as the
// publisher of ImportStep events.
func NewPlaneStreamer(reader Reader, pixels PixelStore, bus *events.Bus, source any, digest crypto.Hash) *PlaneStreamer {
	if digest == 0 {
		digest = DefaultDigest
	}
	return &PlaneStreamer{
		reader: reader,
		pixels: pixels,
		bus:    bus,
		source: source,
		digest: digest,
	}
}

// Stream writes all planes of series to pixelsID and returns the digest of
// the concatenated big-endian plane bytes. Planes are visited with t outermost
// and z innermost, independent of the file's dimension order.
func (s *PlaneStreamer) Stream(ctx context.Context, pixelsID int64, series int, size dims.SeriesSize) ([]byte, error) {
	if !s.digest.Available() {
		return nil, fmt.Errorf("%w: %v", ErrDigestUnavailable, s.digest)
	}
	if err := s.reader.SetSeries(series); err != nil {
		return nil, fmt.Errorf("set series %d: %w", series, err)
	}

	bpp, err := model.BytesPerPixel(s.reader.PixelType())
	if err != nil {
		return nil, fmt.Errorf("series %d: %w", series, err)
	}
	if n := size.PlaneBytes(bpp); len(s.buf) != n {
		s.buf = make([]byte, n)
	}

	little := s.reader.IsLittleEndian()
	seriesCount := s.reader.SeriesCount()
	h := s.digest.New()

	step := 1
	for t := 0; t < size.SizeT; t++ {
		for c := 0; c < size.SizeC; c++ {
			for z := 0; z < size.SizeZ; z++ {
				ordinal, err := s.reader.Index(z, c, t)
				if err != nil {
					return nil, fmt.Errorf("plane index z=%d c=%d t=%d: %w", z, c, t, err)
				}
				plane, err := s.reader.OpenPlane(ordinal, s.buf)
				if err != nil {
					return nil, fmt.Errorf("open plane %d: %w", ordinal, err)
				}
				if err := CorrectByteOrder(plane, bpp, little); err != nil {
					return nil, err
				}
				h.Write(plane)
				if err := s.pixels.SetPlane(ctx, pixelsID, plane, z, c, t); err != nil {
					return nil, fmt.Errorf("store plane z=%d c=%d t=%d of pixels %d: %w", z, c, t, pixelsID, err)
				}
				s.bus.Publish(s.source, &events.ImportStep{
					BaseEvent:   events.NewBaseEvent(events.EventImportStep, ""),
					Step:        step,
					Series:      series,
					SeriesCount: seriesCount,
				})
				step++
			}
		}
	}

	return h.Sum(nil), nil
}
