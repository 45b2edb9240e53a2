package events

import (
	"fmt"
	"slices"
)

// Error event types.
const (
	EventUnknownFormat     = "error.unknown_format"
	EventFileException     = "error.file"
	EventMissingLibrary    = "error.missing_library"
	EventInternalException = "error.internal"
)

// Failure describes why a file could not be imported.
type Failure struct {
	UsedFiles []string `json:"used_files,omitempty"`
	Format    string   `json:"format,omitempty"`
	Message   string   `json:"message"`
	Err       error    `json:"-"`
}

// NewFailure captures err for the given file set.
func NewFailure(usedFiles []string, format string, err error) Failure {
	f := Failure{UsedFiles: slices.Clone(usedFiles), Format: format, Err: err}
	if err != nil {
		f.Message = err.Error()
	}
	return f
}

func (f Failure) Error() string {
	if f.Format != "" {
		return fmt.Sprintf("%s (format %s)", f.Message, f.Format)
	}
	return f.Message
}

// ErrorEvent is implemented by the four failure variants.
type ErrorEvent interface {
	Event
	Failed() Failure
}

// UnknownFormat is emitted when no reader recognises a file.
type UnknownFormat struct {
	BaseEvent
	Failure
}

// FileException is emitted for I/O and format-parse failures.
type FileException struct {
	BaseEvent
	Failure
}

// MissingLibrary is emitted when a file needs a codec that is not available.
type MissingLibrary struct {
	BaseEvent
	Failure
}

// InternalException is emitted for every other failure, including panics
// and rejections by the metadata or pixel service.
type InternalException struct {
	BaseEvent
	Failure
}

func (e *UnknownFormat) Failed() Failure     { return e.Failure }
func (e *FileException) Failed() Failure     { return e.Failure }
func (e *MissingLibrary) Failed() Failure    { return e.Failure }
func (e *InternalException) Failed() Failure { return e.Failure }
