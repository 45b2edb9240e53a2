package events

import "github.com/vmunix/pixport/internal/model"

// Lifecycle event types.
const (
	EventLoadingImage       = "import.loading"
	EventLoadedImage        = "import.loaded"
	EventBeginPostProcess   = "import.postprocess.begin"
	EventEndPostProcess     = "import.postprocess.end"
	EventBeginSaveToDB      = "import.save.begin"
	EventEndSaveToDB        = "import.save.end"
	EventDatasetStored      = "import.dataset_stored"
	EventImportStep         = "import.step"
	EventDataStored         = "import.data_stored"
	EventImportArchiving    = "import.archiving"
	EventImportOverlays     = "import.overlays"
	EventImportThumbnailing = "import.thumbnailing"
	EventImportDone         = "import.done"
	EventReaderStatus       = "reader.status"
	EventErrorsComplete     = "errors.complete"
)

// LoadingImage is emitted before a file is opened.
type LoadingImage struct {
	BaseEvent
	ShortName string `json:"short_name"`
	Index     int    `json:"index"`
	NumDone   int    `json:"num_done"`
	Total     int    `json:"total"`
}

// LoadedImage is emitted once the reader has opened a file.
type LoadedImage struct {
	BaseEvent
	ShortName string `json:"short_name"`
	Index     int    `json:"index"`
	NumDone   int    `json:"num_done"`
	Total     int    `json:"total"`
}

// BeginPostProcess brackets metadata post-processing.
type BeginPostProcess struct {
	BaseEvent
	Index  int          `json:"index"`
	Target model.Target `json:"target"`
}

type EndPostProcess struct {
	BaseEvent
	Index  int          `json:"index"`
	Target model.Target `json:"target"`
}

// BeginSaveToDB brackets creation of the image and pixels records.
type BeginSaveToDB struct {
	BaseEvent
	Index  int          `json:"index"`
	Target model.Target `json:"target"`
}

type EndSaveToDB struct {
	BaseEvent
	Index  int          `json:"index"`
	Target model.Target `json:"target"`
}

// DatasetStored is emitted before the planes of one series are streamed.
type DatasetStored struct {
	BaseEvent
	Index    int          `json:"index"`
	Target   model.Target `json:"target"`
	PixelsID int64        `json:"pixels_id"`
	Series   int          `json:"series"`
	SizeZ    int          `json:"size_z"`
	SizeC    int          `json:"size_c"`
	SizeT    int          `json:"size_t"`
	NumDone  int          `json:"num_done"`
	Total    int          `json:"total"`
}

// ImportStep is emitted after each plane has been written.
// Step counts from 1 within every series.
type ImportStep struct {
	BaseEvent
	Step        int `json:"step"`
	Series      int `json:"series"`
	SeriesCount int `json:"series_count"`
}

// DataStored is emitted after all planes of one series were written.
type DataStored struct {
	BaseEvent
	PixelsID int64 `json:"pixels_id"`
	Series   int   `json:"series"`
}

type ImportArchiving struct {
	BaseEvent
}

type ImportOverlays struct {
	BaseEvent
}

type ImportThumbnailing struct {
	BaseEvent
}

// ImportDone carries the pixel sets created for one file.
type ImportDone struct {
	BaseEvent
	Pixels []*model.PixelsRecord `json:"pixels"`
}

// PixelsIDs returns the ids of the created pixel sets in series order.
func (e *ImportDone) PixelsIDs() []int64 {
	ids := make([]int64, 0, len(e.Pixels))
	for _, p := range e.Pixels {
		ids = append(ids, p.ID)
	}
	return ids
}

// ReaderStatus relays a progress message from a format reader.
type ReaderStatus struct {
	BaseEvent
	Message string `json:"message"`
}

// ErrorsComplete is emitted after pending error reports were sent.
type ErrorsComplete struct {
	BaseEvent
	Sent   int `json:"sent"`
	Unsent int `json:"unsent"`
}
