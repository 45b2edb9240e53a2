package importer

import (
	"context"

	"github.com/vmunix/pixport/internal/model"
)

//go:generate mockgen -destination=mocks/mock_collaborators.go -package=mocks github.com/vmunix/pixport/internal/importer PixelStore,Reporter

// DomainHCS is the domain reported by readers for screening (plate-based) data.
const DomainHCS = "High-Content Screening (HCS)"

// Reader decodes one image file at a time.
type Reader interface {
	// SetMetadataSink selects where metadata goes during the next Open.
	SetMetadataSink(sink model.MetadataSink)
	Open(ctx context.Context, path string) error
	Close() error

	SetSeries(series int) error
	SeriesCount() int

	// Index maps a plane coordinate of the current series to the ordinal OpenPlane takes.
	Index(z, c, t int) (int, error)

	// OpenPlane reads one plane into buf and returns the filled slice.
	// Implementations reuse buf when it is large enough.
	OpenPlane(ordinal int, buf []byte) ([]byte, error)

	PixelType() model.PixelType
	IsLittleEndian() bool
	DimensionOrder() string
	UsedFiles() []string
	Format() string
	Domains() []string
	IsMinMaxSet() bool
}

// OverlayReader is a Reader that can parse regions of interest on a second pass.
type OverlayReader interface {
	Reader
	SetParseOverlays(enabled bool)
}

// StatusReporter is implemented by readers that publish progress messages.
type StatusReporter interface {
	SetStatusListener(fn func(message string))
}

// MetadataStore collects metadata for the file being imported and persists it.
// State accumulated through the MetadataSink methods lives until CreateRoot.
type MetadataStore interface {
	model.MetadataSink

	ResolveTarget(ctx context.Context, target model.Target) (model.Target, error)

	SetUserSpecifiedName(name string)
	SetUserSpecifiedDescription(description string)
	SetUserSpecifiedPhysicalPixelSizes(sizes *model.PhysicalSizes)
	SetUserSpecifiedTarget(target model.Target)

	PostProcess(ctx context.Context) error
	SaveToDB(ctx context.Context) ([]*model.PixelsRecord, error)

	// SetArchive configures archiving for the current file and returns the
	// paths of any metadata files written as a side effect.
	SetArchive(archive, useMetadataFile bool) ([]string, error)
	FilteredCompanionFiles() []string
	WriteFilesToFileStore(ctx context.Context, files []string, originals map[string]*model.OriginalFile) error

	UpdatePixels(ctx context.Context, pixels []*model.PixelsRecord) error
	PopulateMinMax(ctx context.Context) error
	ResetDefaultsAndGenerateThumbnails(ctx context.Context, plateIDs, pixelsIDs []int64) error
	LaunchProcessing(ctx context.Context)

	NewOverlaySink(ctx context.Context, pixels []*model.PixelsRecord, plateIDs []int64) (model.OverlaySink, error)

	// CreateRoot discards all state collected for the current file.
	CreateRoot()
}

// PixelStore receives plane data in canonical big-endian order.
type PixelStore interface {
	PreparePixelsStore(ctx context.Context, ids []int64) error
	SetPlane(ctx context.Context, id int64, plane []byte, z, c, t int) error
}
