package importer

import "errors"

var (
	// ErrUnknownFormat indicates no reader recognised the file.
	ErrUnknownFormat = errors.New("unknown format")

	// ErrFormat indicates the file was recognised but is malformed.
	ErrFormat = errors.New("malformed file")

	// ErrMissingLibrary indicates the file needs a codec that is not available.
	ErrMissingLibrary = errors.New("missing library")

	// ErrIO indicates a read or write failure on a source file.
	ErrIO = errors.New("i/o failure")

	// ErrServiceRejected indicates the metadata or pixel service refused a request.
	ErrServiceRejected = errors.New("rejected by service")

	// ErrUnsupportedSampleWidth indicates a byte swap was requested for a width other than 2, 4 or 8.
	ErrUnsupportedSampleWidth = errors.New("unsupported sample bit width")

	// ErrDigestUnavailable indicates the configured digest algorithm is not linked in.
	ErrDigestUnavailable = errors.New("digest algorithm unavailable")

	// ErrNoPixels indicates the metadata store created no pixel sets for a file.
	ErrNoPixels = errors.New("no pixels created")
)
