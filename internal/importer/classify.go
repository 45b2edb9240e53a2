package importer

import (
	"errors"
	"io"
	"io/fs"

	"github.com/vmunix/pixport/internal/events"
)

// failureEvent wraps err in the error event matching its class.
// Checks run in a fixed order: a missing codec wins over an I/O error, which
// wins over format problems; anything unrecognised is internal.
func failureEvent(file string, usedFiles []string, format string, err error) events.ErrorEvent {
	f := events.NewFailure(usedFiles, format, err)

	var pathErr *fs.PathError
	switch {
	case errors.Is(err, ErrMissingLibrary):
		return &events.MissingLibrary{BaseEvent: events.NewBaseEvent(events.EventMissingLibrary, file), Failure: f}
	case errors.Is(err, ErrIO),
		errors.As(err, &pathErr),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, fs.ErrPermission),
		errors.Is(err, io.ErrUnexpectedEOF):
		return &events.FileException{BaseEvent: events.NewBaseEvent(events.EventFileException, file), Failure: f}
	case errors.Is(err, ErrUnknownFormat):
		return &events.UnknownFormat{BaseEvent: events.NewBaseEvent(events.EventUnknownFormat, file), Failure: f}
	case errors.Is(err, ErrFormat):
		return &events.FileException{BaseEvent: events.NewBaseEvent(events.EventFileException, file), Failure: f}
	default:
		return &events.InternalException{BaseEvent: events.NewBaseEvent(events.EventInternalException, file), Failure: f}
	}
}
