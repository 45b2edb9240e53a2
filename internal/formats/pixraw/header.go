package pixraw

// Header is the TOML document describing a pixraw file set.
type Header struct {
	Pixraw     Meta     `toml:"pixraw"`
	Companions []string `toml:"companions,omitempty"`
	Series     []Series `toml:"series"`
}

// Meta holds file-level settings.
type Meta struct {
	Version     int    `toml:"version"`
	Compression string `toml:"compression,omitempty"` // "", "none" or "zstd"
}

// Series describes one pixel set stored in a data file.
type Series struct {
	Name           string        `toml:"name,omitempty"`
	Data           string        `toml:"data"`
	Offset         int64         `toml:"offset,omitempty"`
	SizeX          int           `toml:"size_x"`
	SizeY          int           `toml:"size_y"`
	SizeZ          int           `toml:"size_z"`
	SizeC          int           `toml:"size_c"`
	SizeT          int           `toml:"size_t"`
	PixelType      string        `toml:"pixel_type"`
	DimensionOrder string        `toml:"dimension_order"`
	LittleEndian   bool          `toml:"little_endian"`
	PhysicalSize   *Physical     `toml:"physical_size,omitempty"`
	Plate          string        `toml:"plate,omitempty"`
	WellRow        int           `toml:"well_row,omitempty"`
	WellColumn     int           `toml:"well_column,omitempty"`
	Channels       []Channel     `toml:"channels,omitempty"`
	Overlays       []OverlayDecl `toml:"overlays,omitempty"`
}

type Physical struct {
	X float64 `toml:"x"`
	Y float64 `toml:"y"`
	Z float64 `toml:"z"`
}

// Channel carries precomputed statistics. Both bounds must be set for the
// channel to count as having min/max.
type Channel struct {
	Min *float64 `toml:"min,omitempty"`
	Max *float64 `toml:"max,omitempty"`
}

type OverlayDecl struct {
	Z      int    `toml:"z"`
	C      int    `toml:"c"`
	T      int    `toml:"t"`
	Kind   string `toml:"kind"`
	X      int    `toml:"x"`
	Y      int    `toml:"y"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}
