package mzml

import (
	"errors"

	"github.com/524D/mzread/internal/codec"
	"github.com/524D/mzread/internal/offsetindex"
)

var (
	// ErrNotFound means the source file doesn't exist
	ErrNotFound = errors.New("MzML: file not found")
	// ErrMalformedDocument means a required element or attribute is
	// missing, or the XML is not well formed
	ErrMalformedDocument = errors.New("MzML: malformed document")
	// ErrInvalidOperation means the reader can't do what was asked in its
	// current state, e.g. a second pass over a consume-once reader
	ErrInvalidOperation = errors.New("MzML: invalid operation")
	// ErrInvalidScanIndex means an invalid scan index is supplied
	ErrInvalidScanIndex = errors.New("MzML: invalid scan index")
	// ErrInvalidScanID means an invalid scan id is supplied
	ErrInvalidScanID = errors.New("MzML: invalid scan id")
	// ErrUnsupportedCompression means a binary array uses a compression
	// the reader can't decode (MS-Numpress)
	ErrUnsupportedCompression = errors.New("MzML: compression type not supported")

	// ErrCorruptPayload means a binary array can't be inflated to its
	// declared size
	ErrCorruptPayload = codec.ErrCorruptPayload
	// ErrLengthMismatch means a binary array holds more or fewer values
	// than declared
	ErrLengthMismatch = codec.ErrLengthMismatch
	// ErrInvalidIndex means the offset index doesn't match the file. An
	// embedded or cached index that turns out wrong is replaced by
	// scanning the file; this is only returned when a record is not where
	// the scanned index says it is.
	ErrInvalidIndex = offsetindex.ErrInvalidIndex
	// ErrDuplicateID means several spectra share the requested native id
	ErrDuplicateID = offsetindex.ErrDuplicateID
)

var errClosed = errors.New("MzML: reader is closed")
