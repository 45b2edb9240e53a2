package model

import "context"

// MetadataSink receives metadata from a reader while it opens a file.
type MetadataSink interface {
	// SetSourceFiles reports the file that was opened and every file it depends on.
	SetSourceFiles(primary string, used []string)

	// SetSeries reports the geometry and naming of one series.
	SetSeries(meta SeriesMetadata)

	// SetChannelMinMax reports inline-computed statistics for one channel.
	SetChannelMinMax(series, channel int, min, max float64)

	// AddOverlay reports a region of interest.
	AddOverlay(o Overlay)
}

// OverlaySink is a MetadataSink dedicated to the overlay pass.
type OverlaySink interface {
	MetadataSink

	// Complete persists the overlays collected since the sink was created.
	Complete(ctx context.Context) error
}
