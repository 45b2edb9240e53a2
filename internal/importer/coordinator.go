// Package importer turns image files into pixel sets: it drives a format
// reader, a metadata store and a pixel store through one import per file and
// reports progress and failures on an event bus.
package importer

import (
	"context"
	"crypto"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/vmunix/pixport/internal/dims"
	"github.com/vmunix/pixport/internal/events"
	"github.com/vmunix/pixport/internal/model"
)

// Config for the coordinator.
type Config struct {
	Digest   crypto.Hash // zero means DefaultDigest
	Reporter Reporter    // nil logs the batch summary
}

// Coordinator imports files one at a time.
type Coordinator struct {
	reader   Reader
	store    MetadataStore
	pixels   PixelStore
	bus      *events.Bus
	streamer *PlaneStreamer
	reporter Reporter
	log      *slog.Logger

	// file currently being imported; read by the reader status listener
	current importState
}

type importState struct {
	file      string
	usedFiles []string
	format    string
}

// New creates a coordinator. bus may be nil to discard events.
func New(reader Reader, store MetadataStore, pixels PixelStore, bus *events.Bus, cfg Config, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	c := &Coordinator{
		reader:   reader,
		store:    store,
		pixels:   pixels,
		bus:      bus,
		reporter: cfg.Reporter,
		log:      log,
	}
	if c.reporter == nil {
		c.reporter = NewLogReporter(log)
	}
	c.streamer = NewPlaneStreamer(reader, pixels, bus, c, cfg.Digest)

	if sr, ok := reader.(StatusReporter); ok {
		sr.SetStatusListener(func(message string) {
			c.bus.Publish(c, &events.ReaderStatus{
				BaseEvent: events.NewBaseEvent(events.EventReaderStatus, c.current.file),
				Message:   message,
			})
		})
	}
	return c
}

// ImageRequest describes one file to import.
type ImageRequest struct {
	File            string
	Index           int // position in the batch
	NumDone         int
	Total           int
	Name            string
	Description     string
	Archive         bool
	UseMetadataFile bool
	PixelSizes      *model.PhysicalSizes
	Target          model.Target
}

// ImportImage imports every series of one file and returns the created pixel
// sets with their digests set. Any failure is published as an error event
// and returned unchanged. Store state is reset and the reader closed on every
// exit path, including panics, which are re-raised after being published.
func (c *Coordinator) ImportImage(ctx context.Context, req ImageRequest) (pixels []*model.PixelsRecord, err error) {
	c.current = importState{file: req.File, usedFiles: []string{req.File}}

	defer func() {
		if r := recover(); r != nil {
			c.publishFailure(fmt.Errorf("panic during import: %v", r))
			c.finish()
			panic(r)
		}
		c.finish()
	}()

	pixels, err = c.importImage(ctx, req)
	if err != nil {
		c.publishFailure(err)
		return nil, err
	}
	return pixels, nil
}

func (c *Coordinator) finish() {
	c.store.CreateRoot()
	if err := c.reader.Close(); err != nil {
		c.log.Debug("close reader", "file", c.current.file, "error", err)
	}
}

func (c *Coordinator) publishFailure(err error) {
	st := c.current
	c.bus.Publish(c, failureEvent(st.file, st.usedFiles, st.format, err))
}

func (c *Coordinator) importImage(ctx context.Context, req ImageRequest) ([]*model.PixelsRecord, error) {
	file := req.File
	shortName := filepath.Base(file)

	c.bus.Publish(c, &events.LoadingImage{
		BaseEvent: events.NewBaseEvent(events.EventLoadingImage, file),
		ShortName: shortName,
		Index:     req.Index,
		NumDone:   req.NumDone,
		Total:     req.Total,
	})

	if err := c.reader.Close(); err != nil {
		c.log.Debug("close previous file", "error", err)
	}
	c.reader.SetMetadataSink(c.store)
	if err := c.reader.Open(ctx, file); err != nil {
		return nil, fmt.Errorf("open %s: %w", shortName, err)
	}

	c.current.format = c.reader.Format()
	if used := c.reader.UsedFiles(); len(used) > 0 {
		c.current.usedFiles = slices.Clone(used)
	}
	usedFiles := c.current.usedFiles
	screening := slices.Contains(c.reader.Domains(), DomainHCS)

	c.bus.Publish(c, &events.LoadedImage{
		BaseEvent: events.NewBaseEvent(events.EventLoadedImage, file),
		ShortName: shortName,
		Index:     req.Index,
		NumDone:   req.NumDone,
		Total:     req.Total,
	})

	// Screening data is always archived; the flat metadata file is never
	// written for it because the plate carries the metadata instead.
	archive := req.Archive
	useMetadataFile := req.UseMetadataFile
	if screening {
		archive, useMetadataFile = true, false
	}
	metadataFiles, err := c.store.SetArchive(archive, useMetadataFile)
	if err != nil {
		return nil, fmt.Errorf("configure archive: %w", err)
	}

	c.bus.Publish(c, &events.BeginPostProcess{
		BaseEvent: events.NewBaseEvent(events.EventBeginPostProcess, file),
		Index:     req.Index,
		Target:    req.Target,
	})
	c.store.SetUserSpecifiedName(req.Name)
	c.store.SetUserSpecifiedDescription(req.Description)
	c.store.SetUserSpecifiedPhysicalPixelSizes(req.PixelSizes)
	c.store.SetUserSpecifiedTarget(req.Target)
	if err := c.store.PostProcess(ctx); err != nil {
		return nil, fmt.Errorf("post-process metadata: %w", err)
	}
	c.bus.Publish(c, &events.EndPostProcess{
		BaseEvent: events.NewBaseEvent(events.EventEndPostProcess, file),
		Index:     req.Index,
		Target:    req.Target,
	})

	c.bus.Publish(c, &events.BeginSaveToDB{
		BaseEvent: events.NewBaseEvent(events.EventBeginSaveToDB, file),
		Index:     req.Index,
		Target:    req.Target,
	})
	pixels, err := c.store.SaveToDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("save metadata: %w", err)
	}
	if len(pixels) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPixels, shortName)
	}
	c.bus.Publish(c, &events.EndSaveToDB{
		BaseEvent: events.NewBaseEvent(events.EventEndSaveToDB, file),
		Index:     req.Index,
		Target:    req.Target,
	})

	var plateIDs []int64
	if id, ok := pixels[0].PlateID(); ok {
		plateIDs = append(plateIDs, id)
	}

	pixelsIDs := make([]int64, len(pixels))
	for i, p := range pixels {
		pixelsIDs[i] = p.ID
	}
	if err := c.pixels.PreparePixelsStore(ctx, pixelsIDs); err != nil {
		return nil, fmt.Errorf("prepare pixel store: %w", err)
	}

	digestStaged := false
	for series, p := range pixels {
		if err := c.reader.SetSeries(series); err != nil {
			return nil, fmt.Errorf("set series %d: %w", series, err)
		}
		size, err := dims.Calculate(p.SizeX, p.SizeY, p.SizeZ, p.SizeC, p.SizeT, c.reader.DimensionOrder())
		if err != nil {
			return nil, fmt.Errorf("series %d: %w", series, err)
		}

		c.bus.Publish(c, &events.DatasetStored{
			BaseEvent: events.NewBaseEvent(events.EventDatasetStored, file),
			Index:     req.Index,
			Target:    req.Target,
			PixelsID:  p.ID,
			Series:    series,
			SizeZ:     size.SizeZ,
			SizeC:     size.SizeC,
			SizeT:     size.SizeT,
			NumDone:   req.NumDone,
			Total:     req.Total,
		})

		sum, err := c.streamer.Stream(ctx, p.ID, series, size)
		if err != nil {
			return nil, err
		}
		p.Digest = hex.EncodeToString(sum)
		digestStaged = true

		c.bus.Publish(c, &events.DataStored{
			BaseEvent: events.NewBaseEvent(events.EventDataStored, file),
			PixelsID:  p.ID,
			Series:    series,
		})
	}

	originals := originalFileMap(pixels)
	var uploads []string
	if archive {
		uploads = slices.Clone(usedFiles)
	} else {
		uploads = c.store.FilteredCompanionFiles()
	}
	uploads = append(uploads, metadataFiles...)
	if len(uploads) != len(originals) {
		c.log.Warn("original file count mismatch",
			"file", file, "uploads", len(uploads), "originals", len(originals))
	}

	if archive {
		c.bus.Publish(c, &events.ImportArchiving{BaseEvent: events.NewBaseEvent(events.EventImportArchiving, file)})
	}
	if err := c.store.WriteFilesToFileStore(ctx, uploads, originals); err != nil {
		return nil, fmt.Errorf("write original files: %w", err)
	}

	if digestStaged {
		if err := c.store.UpdatePixels(ctx, pixels); err != nil {
			return nil, fmt.Errorf("update pixels: %w", err)
		}
	}

	if !c.reader.IsMinMaxSet() {
		if err := c.store.PopulateMinMax(ctx); err != nil {
			return nil, fmt.Errorf("populate min/max: %w", err)
		}
	}

	c.bus.Publish(c, &events.ImportOverlays{BaseEvent: events.NewBaseEvent(events.EventImportOverlays, file)})
	if screening {
		if or, ok := c.reader.(OverlayReader); ok {
			c.importOverlays(ctx, or, file, pixels, plateIDs)
		}
	}

	c.bus.Publish(c, &events.ImportThumbnailing{BaseEvent: events.NewBaseEvent(events.EventImportThumbnailing, file)})
	if err := c.store.ResetDefaultsAndGenerateThumbnails(ctx, plateIDs, pixelsIDs); err != nil {
		return nil, fmt.Errorf("generate thumbnails: %w", err)
	}
	c.store.LaunchProcessing(ctx)

	c.bus.Publish(c, &events.ImportDone{
		BaseEvent: events.NewBaseEvent(events.EventImportDone, file),
		Pixels:    pixels,
	})
	return pixels, nil
}

// importOverlays re-reads file with overlay parsing enabled into a dedicated
// sink. Failures are logged and otherwise ignored. The primary sink is
// reattached before returning.
func (c *Coordinator) importOverlays(ctx context.Context, r OverlayReader, file string, pixels []*model.PixelsRecord, plateIDs []int64) {
	err := func() error {
		sink, err := c.store.NewOverlaySink(ctx, pixels, plateIDs)
		if err != nil {
			return fmt.Errorf("create overlay sink: %w", err)
		}
		defer func() {
			r.SetParseOverlays(false)
			r.SetMetadataSink(c.store)
		}()

		if err := r.Close(); err != nil {
			return fmt.Errorf("close before overlay pass: %w", err)
		}
		r.SetMetadataSink(sink)
		r.SetParseOverlays(true)
		if err := r.Open(ctx, file); err != nil {
			return fmt.Errorf("reopen for overlays: %w", err)
		}
		return sink.Complete(ctx)
	}()
	if err != nil {
		c.log.Warn("overlay import failed", "file", file, "error", err)
	}
}

// originalFileMap indexes the original files linked from the created records
// by path: file annotations on images, files attached to pixel sets, then
// file annotations on plates.
func originalFileMap(pixels []*model.PixelsRecord) map[string]*model.OriginalFile {
	m := make(map[string]*model.OriginalFile)
	add := func(anns []*model.Annotation) {
		for _, a := range anns {
			if a != nil && a.File != nil {
				m[a.File.Path] = a.File
			}
		}
	}
	for _, p := range pixels {
		if p.Image != nil {
			add(p.Image.Annotations)
		}
		for _, f := range p.OriginalFiles {
			m[f.Path] = f
		}
		if p.Image != nil {
			for _, ws := range p.Image.WellSamples {
				if ws != nil && ws.Plate != nil {
					add(ws.Plate.Annotations)
				}
			}
		}
	}
	return m
}
