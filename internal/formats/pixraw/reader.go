// Package pixraw reads the pixraw container: a TOML header naming one or more
// series, each backed by raw or zstd-compressed plane data.
package pixraw

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/klauspost/compress/zstd"

	"github.com/vmunix/pixport/internal/dims"
	"github.com/vmunix/pixport/internal/importer"
	"github.com/vmunix/pixport/internal/model"
)

// Name is the format name reported by the reader.
const Name = "pixraw"

// Suffix is the file name suffix of pixraw headers.
const Suffix = ".pix.toml"

// Overlay kinds.
const (
	KindRect = "rect"
	KindMask = "mask"
)

const domainLightMicroscopy = "Light Microscopy"

type series struct {
	decl      Series
	pixelType model.PixelType
	size      dims.SeriesSize
	dataPath  string
}

// Reader implements importer.OverlayReader and importer.StatusReporter.
type Reader struct {
	log           *slog.Logger
	sink          model.MetadataSink
	parseOverlays bool
	status        func(string)

	path    string
	header  Header
	series  []series
	cur     int
	used    []string
	files   map[string]*os.File
	decoded map[string][]byte
}

// New creates a reader. It holds no file open until Open.
func New(log *slog.Logger) *Reader {
	if log == nil {
		log = slog.Default()
	}
	return &Reader{log: log}
}

// Accepts reports whether path looks like a pixraw header.
func Accepts(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), Suffix)
}

func (r *Reader) FormatName() string { return Name }

func (r *Reader) Accepts(path string) bool { return Accepts(path) }

func (r *Reader) SetMetadataSink(sink model.MetadataSink) { r.sink = sink }

func (r *Reader) SetParseOverlays(enabled bool) { r.parseOverlays = enabled }

func (r *Reader) SetStatusListener(fn func(string)) { r.status = fn }

func (r *Reader) notify(msg string) {
	if r.status != nil {
		r.status(msg)
	}
}

// Open parses the header at path, checks every series and pushes the
// metadata into the current sink.
func (r *Reader) Open(_ context.Context, path string) error {
	if err := r.Close(); err != nil {
		return err
	}
	r.notify("reading header")

	var h Header
	if _, err := toml.DecodeFile(path, &h); err != nil {
		var perr toml.ParseError
		if errors.As(err, &perr) {
			return fmt.Errorf("%w: %s: %s", importer.ErrFormat, filepath.Base(path), perr.Message)
		}
		return fmt.Errorf("read header: %w", err)
	}

	switch h.Pixraw.Compression {
	case "", "none", "zstd":
	default:
		return fmt.Errorf("%w: compression %q", importer.ErrMissingLibrary, h.Pixraw.Compression)
	}
	if len(h.Series) == 0 {
		return fmt.Errorf("%w: %s declares no series", importer.ErrFormat, filepath.Base(path))
	}

	dir := filepath.Dir(path)
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	parsed := make([]series, len(h.Series))
	used := []string{path}
	for i, decl := range h.Series {
		pt, err := model.ParsePixelType(decl.PixelType)
		if err != nil {
			return fmt.Errorf("%w: series %d: %w", importer.ErrFormat, i, err)
		}
		size, err := dims.Calculate(decl.SizeX, decl.SizeY, decl.SizeZ, decl.SizeC, decl.SizeT, decl.DimensionOrder)
		if err != nil {
			return fmt.Errorf("%w: series %d: %w", importer.ErrFormat, i, err)
		}
		if decl.Data == "" {
			return fmt.Errorf("%w: series %d has no data file", importer.ErrFormat, i)
		}
		dataPath := resolve(decl.Data)
		if _, err := os.Stat(dataPath); err != nil {
			return fmt.Errorf("series %d data: %w", i, err)
		}
		if !slices.Contains(used, dataPath) {
			used = append(used, dataPath)
		}
		parsed[i] = series{decl: decl, pixelType: pt, size: size, dataPath: dataPath}
	}
	for _, c := range h.Companions {
		if p := resolve(c); !slices.Contains(used, p) {
			used = append(used, p)
		}
	}

	r.path = path
	r.header = h
	r.series = parsed
	r.used = used
	r.cur = 0
	r.files = make(map[string]*os.File)
	r.decoded = make(map[string][]byte)

	r.populate()
	r.notify(fmt.Sprintf("opened %d series", len(parsed)))
	r.log.Debug("pixraw opened", "file", path, "series", len(parsed), "compression", h.Pixraw.Compression)
	return nil
}

func (r *Reader) populate() {
	if r.sink == nil {
		return
	}
	r.sink.SetSourceFiles(r.path, slices.Clone(r.used))
	for i, s := range r.series {
		d := s.decl
		meta := model.SeriesMetadata{
			Series:         i,
			Name:           d.Name,
			SizeX:          d.SizeX,
			SizeY:          d.SizeY,
			SizeZ:          d.SizeZ,
			SizeC:          d.SizeC,
			SizeT:          d.SizeT,
			PixelType:      s.pixelType,
			DimensionOrder: d.DimensionOrder,
			Plate:          d.Plate,
			WellRow:        d.WellRow,
			WellColumn:     d.WellColumn,
		}
		if meta.Name == "" {
			meta.Name = strings.TrimSuffix(filepath.Base(r.path), Suffix)
			if len(r.series) > 1 {
				meta.Name = fmt.Sprintf("%s [%d]", meta.Name, i)
			}
		}
		if d.PhysicalSize != nil {
			meta.PhysicalSizes = &model.PhysicalSizes{X: d.PhysicalSize.X, Y: d.PhysicalSize.Y, Z: d.PhysicalSize.Z}
		}
		r.sink.SetSeries(meta)

		for ch, c := range d.Channels {
			if c.Min != nil && c.Max != nil {
				r.sink.SetChannelMinMax(i, ch, *c.Min, *c.Max)
			}
		}
		if r.parseOverlays {
			for _, o := range d.Overlays {
				r.sink.AddOverlay(model.Overlay{
					Series: i, Z: o.Z, C: o.C, T: o.T, Kind: o.Kind,
					X: o.X, Y: o.Y, Width: o.Width, Height: o.Height,
				})
			}
		}
	}
}

// Close releases the data files. The reader can be reopened afterwards.
func (r *Reader) Close() error {
	var errs []error
	for _, f := range r.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.files = nil
	r.decoded = nil
	r.series = nil
	r.used = nil
	r.path = ""
	return errors.Join(errs...)
}

func (r *Reader) SetSeries(s int) error {
	if s < 0 || s >= len(r.series) {
		return fmt.Errorf("series %d out of range [0,%d)", s, len(r.series))
	}
	r.cur = s
	return nil
}

func (r *Reader) SeriesCount() int { return len(r.series) }

// Index maps (z,c,t) to the plane ordinal under the series' dimension order.
func (r *Reader) Index(z, c, t int) (int, error) {
	if len(r.series) == 0 {
		return 0, errNotOpen
	}
	return r.series[r.cur].size.Index(z, c, t)
}

var errNotOpen = errors.New("pixraw: no file open")

// OpenPlane reads plane ordinal of the current series into buf.
func (r *Reader) OpenPlane(ordinal int, buf []byte) ([]byte, error) {
	if len(r.series) == 0 {
		return nil, errNotOpen
	}
	s := r.series[r.cur]
	if ordinal < 0 || ordinal >= s.size.ImageCount {
		return nil, fmt.Errorf("plane %d out of range [0,%d)", ordinal, s.size.ImageCount)
	}
	bpp, err := model.BytesPerPixel(s.pixelType)
	if err != nil {
		return nil, err
	}
	n := s.size.PlaneBytes(bpp)
	if cap(buf) < n {
		buf = make([]byte, n)
	}
	buf = buf[:n]
	off := s.decl.Offset + int64(ordinal)*int64(n)

	if r.header.Pixraw.Compression == "zstd" {
		payload, err := r.payload(s.dataPath)
		if err != nil {
			return nil, err
		}
		if off < 0 || off+int64(n) > int64(len(payload)) {
			return nil, fmt.Errorf("%w: plane %d of %s: %w", importer.ErrIO, ordinal, filepath.Base(s.dataPath), io.ErrUnexpectedEOF)
		}
		copy(buf, payload[off:off+int64(n)])
		return buf, nil
	}

	f, err := r.file(s.dataPath)
	if err != nil {
		return nil, err
	}
	if _, err := f.ReadAt(buf, off); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("%w: plane %d of %s: %w", importer.ErrIO, ordinal, filepath.Base(s.dataPath), err)
	}
	return buf, nil
}

func (r *Reader) file(path string) (*os.File, error) {
	if f, ok := r.files[path]; ok {
		return f, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r.files[path] = f
	return f, nil
}

// payload returns the decompressed contents of a zstd data file, decoding
// it on first use.
func (r *Reader) payload(path string) ([]byte, error) {
	if b, ok := r.decoded[path]; ok {
		return b, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()
	b, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress %s: %w", importer.ErrFormat, filepath.Base(path), err)
	}
	r.decoded[path] = b
	return b, nil
}

func (r *Reader) PixelType() model.PixelType {
	if len(r.series) == 0 {
		return 0
	}
	return r.series[r.cur].pixelType
}

func (r *Reader) IsLittleEndian() bool {
	return len(r.series) > 0 && r.series[r.cur].decl.LittleEndian
}

func (r *Reader) DimensionOrder() string {
	if len(r.series) == 0 {
		return ""
	}
	return r.series[r.cur].decl.DimensionOrder
}

func (r *Reader) UsedFiles() []string { return slices.Clone(r.used) }

func (r *Reader) Format() string { return Name }

// Domains reports screening when any series sits in a plate.
func (r *Reader) Domains() []string {
	for _, s := range r.series {
		if s.decl.Plate != "" {
			return []string{importer.DomainHCS}
		}
	}
	return []string{domainLightMicroscopy}
}

// IsMinMaxSet reports whether every channel of every series carries statistics.
func (r *Reader) IsMinMaxSet() bool {
	if len(r.series) == 0 {
		return false
	}
	for _, s := range r.series {
		if len(s.decl.Channels) < s.decl.SizeC {
			return false
		}
		for _, c := range s.decl.Channels[:s.decl.SizeC] {
			if c.Min == nil || c.Max == nil {
				return false
			}
		}
	}
	return true
}
