package formats

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vmunix/pixport/internal/importer"
	"github.com/vmunix/pixport/internal/model"
)

var errNoFile = errors.New("no file open")

// ImageReader detects the format of each opened file and delegates to a
// reader for it. Sink, overlay and status settings are carried over to each
// delegate.
type ImageReader struct {
	registry *Registry
	forced   Factory
	log      *slog.Logger

	sink          model.MetadataSink
	parseOverlays bool
	status        func(string)

	current FormatReader
}

var (
	_ importer.OverlayReader  = (*ImageReader)(nil)
	_ importer.StatusReporter = (*ImageReader)(nil)
)

// NewImageReader creates a reader over registry. A non-empty format pins
// every file to that format instead of detecting it.
func NewImageReader(registry *Registry, format string, log *slog.Logger) (*ImageReader, error) {
	if log == nil {
		log = slog.Default()
	}
	r := &ImageReader{registry: registry, log: log}
	if format != "" {
		f, err := registry.Lookup(format)
		if err != nil {
			return nil, err
		}
		r.forced = f
	}
	return r, nil
}

func (r *ImageReader) SetMetadataSink(sink model.MetadataSink) {
	r.sink = sink
	if r.current != nil {
		r.current.SetMetadataSink(sink)
	}
}

func (r *ImageReader) SetParseOverlays(enabled bool) {
	r.parseOverlays = enabled
	if or, ok := r.current.(importer.OverlayReader); ok {
		or.SetParseOverlays(enabled)
	}
}

func (r *ImageReader) SetStatusListener(fn func(string)) { r.status = fn }

func (r *ImageReader) Open(ctx context.Context, path string) error {
	if err := r.Close(); err != nil {
		r.log.Debug("close previous reader", "error", err)
	}

	var fr FormatReader
	if r.forced != nil {
		fr = r.forced(r.log)
	} else {
		var err error
		if fr, err = r.registry.Detect(path, r.log); err != nil {
			return err
		}
	}

	fr.SetMetadataSink(r.sink)
	if or, ok := fr.(importer.OverlayReader); ok {
		or.SetParseOverlays(r.parseOverlays)
	}
	if sr, ok := fr.(importer.StatusReporter); ok && r.status != nil {
		sr.SetStatusListener(r.status)
	}
	if err := fr.Open(ctx, path); err != nil {
		_ = fr.Close()
		return err
	}
	r.current = fr
	return nil
}

func (r *ImageReader) Close() error {
	if r.current == nil {
		return nil
	}
	err := r.current.Close()
	r.current = nil
	return err
}

func (r *ImageReader) SetSeries(series int) error {
	if r.current == nil {
		return errNoFile
	}
	return r.current.SetSeries(series)
}

func (r *ImageReader) SeriesCount() int {
	if r.current == nil {
		return 0
	}
	return r.current.SeriesCount()
}

func (r *ImageReader) Index(z, c, t int) (int, error) {
	if r.current == nil {
		return 0, errNoFile
	}
	return r.current.Index(z, c, t)
}

func (r *ImageReader) OpenPlane(ordinal int, buf []byte) ([]byte, error) {
	if r.current == nil {
		return nil, errNoFile
	}
	return r.current.OpenPlane(ordinal, buf)
}

func (r *ImageReader) PixelType() model.PixelType {
	if r.current == nil {
		return 0
	}
	return r.current.PixelType()
}

func (r *ImageReader) IsLittleEndian() bool {
	return r.current != nil && r.current.IsLittleEndian()
}

func (r *ImageReader) DimensionOrder() string {
	if r.current == nil {
		return ""
	}
	return r.current.DimensionOrder()
}

func (r *ImageReader) UsedFiles() []string {
	if r.current == nil {
		return nil
	}
	return r.current.UsedFiles()
}

func (r *ImageReader) Format() string {
	if r.current == nil {
		return ""
	}
	return r.current.FormatName()
}

func (r *ImageReader) Domains() []string {
	if r.current == nil {
		return nil
	}
	return r.current.Domains()
}

func (r *ImageReader) IsMinMaxSet() bool {
	return r.current != nil && r.current.IsMinMaxSet()
}
