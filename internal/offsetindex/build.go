package offsetindex

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Options for Build
type Options struct {
	// Indexed is set when the document is wrapped in <indexedmzML>
	Indexed bool
	// Legacy selects the nativeID attribute of mzML 1.0 documents
	Legacy bool
	Log    logrus.FieldLogger
}

// Build returns the offset index of the plain (uncompressed) document in
// ra. The embedded index is used when present and valid; otherwise the
// whole document is scanned. An invalid embedded index is not an error.
func Build(ra io.ReaderAt, size int64, opts Options) (*Index, error) {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.Indexed {
		ix, err := embedded(ra, size, opts.Legacy)
		if err == nil {
			return ix, nil
		}
		log.WithFields(logrus.Fields{
			"reason": err,
		}).Warn("embedded index not usable, scanning file")
	}

	s := Scanner{Legacy: opts.Legacy, Log: log}
	spectra, chromatograms, err := s.Scan(io.NewSectionReader(ra, 0, size))
	if err != nil {
		return nil, err
	}
	return New(spectra, chromatograms, Scanned), nil
}

func embedded(ra io.ReaderAt, size int64, legacy bool) (*Index, error) {
	spectra, chromatograms, err := ReadEmbedded(ra, size, legacy)
	if err != nil {
		return nil, err
	}
	ix := New(spectra, chromatograms, Embedded)
	if err := ix.Validate(); err != nil {
		return nil, err
	}
	if err := probe(ra, size, ix); err != nil {
		return nil, err
	}
	return ix, nil
}
