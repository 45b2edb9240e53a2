// Package model holds the image, pixel-set and file records exchanged between
// the importer and its collaborators.
package model

import "time"

// TargetKind names the kind of container an import lands in.
type TargetKind string

const (
	TargetNone    TargetKind = ""
	TargetDataset TargetKind = "dataset"
	TargetScreen  TargetKind = "screen"
)

// Target is the container imported images are linked to.
// The zero value means no container.
type Target struct {
	Kind TargetKind `json:"kind,omitempty" toml:"kind"`
	ID   int64      `json:"id,omitempty" toml:"id"`
	Name string     `json:"name,omitempty" toml:"name"`
}

// IsZero reports whether t names no container.
func (t Target) IsZero() bool {
	return t.Kind == TargetNone && t.ID == 0 && t.Name == ""
}

// PhysicalSizes are per-axis pixel sizes in micrometres.
type PhysicalSizes struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// ImportTarget is one candidate file handed to the batch driver.
type ImportTarget struct {
	Path        string
	Name        string
	Description string
	PixelSizes  *PhysicalSizes
	Archive     bool
	Target      Target
}

// OriginalFile is a source file known to the metadata store.
type OriginalFile struct {
	ID        int64     `json:"id"`
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	SHA1      string    `json:"sha1,omitempty"`
	StoredKey string    `json:"stored_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Annotation links an image or plate to extra data.
// File is nil for annotations that do not reference an original file.
type Annotation struct {
	ID        int64         `json:"id"`
	Namespace string        `json:"namespace"`
	File      *OriginalFile `json:"file,omitempty"`
}

// Plate is a screening plate.
type Plate struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Annotations []*Annotation `json:"annotations,omitempty"`
}

// WellSample places an image in a plate well.
type WellSample struct {
	ID     int64  `json:"id"`
	Row    int    `json:"row"`
	Column int    `json:"column"`
	Plate  *Plate `json:"plate"`
}

// Image is one imaged series.
type Image struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Annotations []*Annotation `json:"annotations,omitempty"`
	WellSamples []*WellSample `json:"well_samples,omitempty"`
}

// PixelsRecord identifies one created pixel set.
// Digest stays empty until every plane of the import has been streamed.
type PixelsRecord struct {
	ID             int64           `json:"id"`
	ImageID        int64           `json:"image_id"`
	Series         int             `json:"series"`
	SizeX          int             `json:"size_x"`
	SizeY          int             `json:"size_y"`
	SizeZ          int             `json:"size_z"`
	SizeC          int             `json:"size_c"`
	SizeT          int             `json:"size_t"`
	PixelType      PixelType       `json:"pixel_type"`
	DimensionOrder string          `json:"dimension_order"`
	PhysicalSizes  *PhysicalSizes  `json:"physical_sizes,omitempty"`
	Digest         string          `json:"digest,omitempty"`
	Image          *Image          `json:"image,omitempty"`
	OriginalFiles  []*OriginalFile `json:"original_files,omitempty"`
}

// PlateID returns the plate of the record's first well sample, if any.
func (p *PixelsRecord) PlateID() (int64, bool) {
	if p.Image == nil || len(p.Image.WellSamples) == 0 || p.Image.WellSamples[0].Plate == nil {
		return 0, false
	}
	return p.Image.WellSamples[0].Plate.ID, true
}

// SizeBytes is the total uncompressed size of the pixel set.
func (p *PixelsRecord) SizeBytes() int64 {
	bpp, err := BytesPerPixel(p.PixelType)
	if err != nil {
		return 0
	}
	return int64(p.SizeX) * int64(p.SizeY) * int64(p.SizeZ) * int64(p.SizeC) * int64(p.SizeT) * int64(bpp)
}

// SeriesMetadata is what a reader reports about one series while opening a file.
type SeriesMetadata struct {
	Series         int
	Name           string
	SizeX          int
	SizeY          int
	SizeZ          int
	SizeC          int
	SizeT          int
	PixelType      PixelType
	DimensionOrder string
	PhysicalSizes  *PhysicalSizes
	Plate          string // empty outside screening data
	WellRow        int
	WellColumn     int
}

// Overlay is a region of interest parsed from a screening file.
type Overlay struct {
	Series int    `json:"series"`
	Z      int    `json:"z"`
	C      int    `json:"c"`
	T      int    `json:"t"`
	Kind   string `json:"kind"` // "rect" | "mask"
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}
