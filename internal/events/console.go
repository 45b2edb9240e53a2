package events

import (
	"context"
	"log/slog"
)

// LogObserver writes every event to a structured logger.
// Plane steps go to debug, missing codecs to warn, other failures to error.
type LogObserver struct {
	logger *slog.Logger
}

func NewLogObserver(logger *slog.Logger) *LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) Update(_ any, e Event) {
	ctx := context.Background()
	switch ev := e.(type) {
	case *ImportStep:
		o.logger.Debug("plane stored", "step", ev.Step, "series", ev.Series, "series_count", ev.SeriesCount)
	case *LoadingImage:
		o.logger.Info("loading image", "file", ev.Subject(), "index", ev.Index, "done", ev.NumDone, "total", ev.Total)
	case *LoadedImage:
		o.logger.Info("loaded image", "file", ev.Subject(), "name", ev.ShortName)
	case *DatasetStored:
		o.logger.Info("storing pixels", "file", ev.Subject(), "pixels_id", ev.PixelsID, "series", ev.Series,
			"z", ev.SizeZ, "c", ev.SizeC, "t", ev.SizeT)
	case *DataStored:
		o.logger.Debug("pixels stored", "pixels_id", ev.PixelsID, "series", ev.Series)
	case *ImportDone:
		o.logger.Info("import done", "file", ev.Subject(), "pixels", ev.PixelsIDs())
	case *ReaderStatus:
		o.logger.Debug("reader status", "file", ev.Subject(), "message", ev.Message)
	case *ErrorsComplete:
		o.logger.Info("error reports sent", "sent", ev.Sent, "unsent", ev.Unsent)
	case *MissingLibrary:
		o.logger.Warn("missing library", "file", ev.Subject(), "format", ev.Format, "error", ev.Message)
	case ErrorEvent:
		f := ev.Failed()
		o.logger.Error("import failed", "type", ev.EventType(), "file", ev.Subject(), "format", f.Format, "error", f.Message)
	default:
		o.logger.Log(ctx, slog.LevelDebug, "import event", "type", e.EventType(), "file", e.Subject())
	}
}
