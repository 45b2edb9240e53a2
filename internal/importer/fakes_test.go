package importer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/vmunix/pixport/internal/dims"
	"github.com/vmunix/pixport/internal/events"
	"github.com/vmunix/pixport/internal/model"
)

type fakeSeries struct {
	sizeX, sizeY, sizeZ, sizeC, sizeT int
	pixelType                         model.PixelType
	order                             string
	little                            bool
	plate                             string
}

// planeBytes fills a plane with a pattern unique to (series, ordinal).
func (s fakeSeries) planeBytes(series, ordinal int) []byte {
	bpp, _ := model.BytesPerPixel(s.pixelType)
	buf := make([]byte, s.sizeX*s.sizeY*bpp)
	for i := 0; i < s.sizeX*s.sizeY; i++ {
		v := uint64(series*1000 + ordinal*10 + i)
		lane := buf[i*bpp : (i+1)*bpp]
		switch bpp {
		case 1:
			lane[0] = byte(v)
		case 2:
			if s.little {
				binary.LittleEndian.PutUint16(lane, uint16(v))
			} else {
				binary.BigEndian.PutUint16(lane, uint16(v))
			}
		case 4:
			if s.little {
				binary.LittleEndian.PutUint32(lane, uint32(v))
			} else {
				binary.BigEndian.PutUint32(lane, uint32(v))
			}
		case 8:
			if s.little {
				binary.LittleEndian.PutUint64(lane, v)
			} else {
				binary.BigEndian.PutUint64(lane, v)
			}
		}
	}
	return buf
}

type fakeReader struct {
	mu sync.Mutex

	series    []fakeSeries
	used      []string
	format    string
	domains   []string
	minMaxSet bool

	openErr     map[string]error // by path
	reopenErr   error            // returned on every Open after the first for one file
	panicOnOpen bool
	panicPath   string // Open panics for this path only
	planeErr    error

	sink          model.MetadataSink
	sinks         []model.MetadataSink
	parseOverlays bool
	overlays      []model.Overlay
	status        func(string)

	cur        int
	open       string
	opens      []string
	closes     int
	openPlanes []int
	bufPtrs    []*byte
}

func newFakeReader(series ...fakeSeries) *fakeReader {
	return &fakeReader{series: series, format: "fake", minMaxSet: true}
}

func (r *fakeReader) SetMetadataSink(sink model.MetadataSink) {
	r.sink = sink
	r.sinks = append(r.sinks, sink)
}

func (r *fakeReader) SetStatusListener(fn func(string)) { r.status = fn }

func (r *fakeReader) SetParseOverlays(enabled bool) { r.parseOverlays = enabled }

func (r *fakeReader) Open(_ context.Context, path string) error {
	if r.panicOnOpen || (r.panicPath != "" && path == r.panicPath) {
		panic("reader exploded")
	}
	if err := r.openErr[path]; err != nil {
		return err
	}
	reopen := len(r.opens) > 0 && r.opens[len(r.opens)-1] == path
	r.opens = append(r.opens, path)
	if reopen && r.reopenErr != nil {
		return r.reopenErr
	}
	r.open = path
	if r.status != nil {
		r.status("opened " + path)
	}

	if r.sink != nil {
		used := r.used
		if len(used) == 0 {
			used = []string{path}
		}
		r.sink.SetSourceFiles(path, used)
		for i, s := range r.series {
			r.sink.SetSeries(model.SeriesMetadata{
				Series: i, Name: fmt.Sprintf("series %d", i),
				SizeX: s.sizeX, SizeY: s.sizeY, SizeZ: s.sizeZ, SizeC: s.sizeC, SizeT: s.sizeT,
				PixelType: s.pixelType, DimensionOrder: s.order, Plate: s.plate,
			})
		}
		if r.parseOverlays {
			for _, o := range r.overlays {
				r.sink.AddOverlay(o)
			}
		}
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closes++
	r.open = ""
	return nil
}

func (r *fakeReader) SetSeries(series int) error {
	if series < 0 || series >= len(r.series) {
		return fmt.Errorf("series %d out of range", series)
	}
	r.cur = series
	return nil
}

func (r *fakeReader) SeriesCount() int { return len(r.series) }

func (r *fakeReader) size() dims.SeriesSize {
	s := r.series[r.cur]
	size, err := dims.Calculate(s.sizeX, s.sizeY, s.sizeZ, s.sizeC, s.sizeT, s.order)
	if err != nil {
		panic(err)
	}
	return size
}

func (r *fakeReader) Index(z, c, t int) (int, error) { return r.size().Index(z, c, t) }

func (r *fakeReader) OpenPlane(ordinal int, buf []byte) ([]byte, error) {
	if r.planeErr != nil {
		return nil, r.planeErr
	}
	r.openPlanes = append(r.openPlanes, ordinal)
	if len(buf) > 0 {
		r.bufPtrs = append(r.bufPtrs, &buf[0])
	}
	data := r.series[r.cur].planeBytes(r.cur, ordinal)
	if len(buf) < len(data) {
		buf = make([]byte, len(data))
	}
	n := copy(buf, data)
	return buf[:n], nil
}

func (r *fakeReader) PixelType() model.PixelType { return r.series[r.cur].pixelType }
func (r *fakeReader) IsLittleEndian() bool        { return r.series[r.cur].little }
func (r *fakeReader) DimensionOrder() string      { return r.series[r.cur].order }
func (r *fakeReader) UsedFiles() []string         { return r.used }
func (r *fakeReader) Format() string              { return r.format }
func (r *fakeReader) Domains() []string           { return r.domains }
func (r *fakeReader) IsMinMaxSet() bool           { return r.minMaxSet }

// plainReader hides the optional interfaces of fakeReader.
type plainReader struct{ Reader }

type fakeOverlaySink struct {
	fakeSink
	completeErr error
	completed   bool
}

func (s *fakeOverlaySink) Complete(context.Context) error {
	s.completed = true
	return s.completeErr
}

type fakeSink struct {
	primary  string
	used     []string
	series   []model.SeriesMetadata
	minMax   map[[2]int][2]float64
	overlays []model.Overlay
}

func (s *fakeSink) SetSourceFiles(primary string, used []string) {
	s.primary, s.used = primary, used
}
func (s *fakeSink) SetSeries(meta model.SeriesMetadata) { s.series = append(s.series, meta) }
func (s *fakeSink) SetChannelMinMax(series, ch int, lo, hi float64) {
	if s.minMax == nil {
		s.minMax = make(map[[2]int][2]float64)
	}
	s.minMax[[2]int{series, ch}] = [2]float64{lo, hi}
}
func (s *fakeSink) AddOverlay(o model.Overlay) { s.overlays = append(s.overlays, o) }

type fakeStore struct {
	fakeSink

	nextID int64
	calls  []string

	name        string
	description string
	sizes       *model.PhysicalSizes
	target      model.Target

	archive         bool
	useMetadataFile bool
	metadataFiles   []string
	companions      []string

	resolveErr error
	saveErr    error
	noPixels   bool
	updateErr  error

	written     []string
	originals   map[string]*model.OriginalFile
	updated     []*model.PixelsRecord
	digests     []string
	minMaxCalls int
	thumbPlates []int64
	thumbPixels []int64
	launched    int
	createRoots int

	overlaySink    *fakeOverlaySink
	overlaySinkErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 100}
}

func (s *fakeStore) record(call string) { s.calls = append(s.calls, call) }

func (s *fakeStore) ResolveTarget(_ context.Context, t model.Target) (model.Target, error) {
	s.record("ResolveTarget")
	if s.resolveErr != nil {
		return model.Target{}, s.resolveErr
	}
	if t.Kind != model.TargetNone && t.ID == 0 {
		t.ID = 42
	}
	return t, nil
}

func (s *fakeStore) SetUserSpecifiedName(name string)        { s.name = name }
func (s *fakeStore) SetUserSpecifiedDescription(desc string) { s.description = desc }
func (s *fakeStore) SetUserSpecifiedTarget(t model.Target)   { s.target = t }

func (s *fakeStore) SetUserSpecifiedPhysicalPixelSizes(p *model.PhysicalSizes) {
	s.sizes = p
}

func (s *fakeStore) PostProcess(context.Context) error {
	s.record("PostProcess")
	return nil
}

func (s *fakeStore) SaveToDB(context.Context) ([]*model.PixelsRecord, error) {
	s.record("SaveToDB")
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	if s.noPixels {
		return nil, nil
	}
	var out []*model.PixelsRecord
	var plate *model.Plate
	for _, m := range s.series {
		s.nextID++
		img := &model.Image{ID: s.nextID + 1000, Name: m.Name}
		if m.Plate != "" {
			if plate == nil {
				plate = &model.Plate{ID: 7, Name: m.Plate}
			}
			img.WellSamples = []*model.WellSample{{ID: s.nextID, Plate: plate}}
		}
		p := &model.PixelsRecord{
			ID: s.nextID, ImageID: img.ID, Series: m.Series,
			SizeX: m.SizeX, SizeY: m.SizeY, SizeZ: m.SizeZ, SizeC: m.SizeC, SizeT: m.SizeT,
			PixelType: m.PixelType, DimensionOrder: m.DimensionOrder, Image: img,
		}
		if s.archive {
			for _, u := range s.used {
				p.OriginalFiles = append(p.OriginalFiles, &model.OriginalFile{Path: u})
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *fakeStore) SetArchive(archive, useMetadataFile bool) ([]string, error) {
	s.record("SetArchive")
	s.archive, s.useMetadataFile = archive, useMetadataFile
	return s.metadataFiles, nil
}

func (s *fakeStore) FilteredCompanionFiles() []string { return s.companions }

func (s *fakeStore) WriteFilesToFileStore(_ context.Context, files []string, originals map[string]*model.OriginalFile) error {
	s.record("WriteFilesToFileStore")
	s.written = files
	s.originals = originals
	return nil
}

func (s *fakeStore) UpdatePixels(_ context.Context, pixels []*model.PixelsRecord) error {
	s.record("UpdatePixels")
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = pixels
	for _, p := range pixels {
		s.digests = append(s.digests, p.Digest)
	}
	return nil
}

func (s *fakeStore) PopulateMinMax(context.Context) error {
	s.record("PopulateMinMax")
	s.minMaxCalls++
	return nil
}

func (s *fakeStore) ResetDefaultsAndGenerateThumbnails(_ context.Context, plateIDs, pixelsIDs []int64) error {
	s.record("ResetDefaultsAndGenerateThumbnails")
	s.thumbPlates, s.thumbPixels = plateIDs, pixelsIDs
	return nil
}

func (s *fakeStore) LaunchProcessing(context.Context) {
	s.record("LaunchProcessing")
	s.launched++
}

func (s *fakeStore) NewOverlaySink(context.Context, []*model.PixelsRecord, []int64) (model.OverlaySink, error) {
	s.record("NewOverlaySink")
	if s.overlaySinkErr != nil {
		return nil, s.overlaySinkErr
	}
	s.overlaySink = &fakeOverlaySink{}
	return s.overlaySink, nil
}

func (s *fakeStore) CreateRoot() {
	s.record("CreateRoot")
	s.createRoots++
	s.fakeSink = fakeSink{}
}

type planeKey struct {
	id      int64
	z, c, t int
}

type fakePixels struct {
	prepared []int64
	planes   map[planeKey][]byte
	order    []planeKey
	setErr   error
}

func newFakePixels() *fakePixels {
	return &fakePixels{planes: make(map[planeKey][]byte)}
}

func (p *fakePixels) PreparePixelsStore(_ context.Context, ids []int64) error {
	p.prepared = append(p.prepared, ids...)
	return nil
}

func (p *fakePixels) SetPlane(_ context.Context, id int64, plane []byte, z, c, t int) error {
	if p.setErr != nil {
		return p.setErr
	}
	k := planeKey{id, z, c, t}
	p.planes[k] = append([]byte(nil), plane...)
	p.order = append(p.order, k)
	return nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func recordEvents(bus *events.Bus) *eventRecorder {
	r := &eventRecorder{}
	bus.Subscribe(events.ObserverFunc(func(_ any, e events.Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
	}))
	return r
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

func (r *eventRecorder) ofType(eventType string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (r *eventRecorder) forFile(file string) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Subject() == file {
			out = append(out, e)
		}
	}
	return out
}

var errBoom = errors.New("boom")
