package mzml

import (
	"github.com/sirupsen/logrus"

	"github.com/524D/mzread/cv"
)

// Options control how a file is opened. The zero value reads the file
// sequentially and keeps all records in memory.
type Options struct {
	// RandomAccess builds the offset index at open, so records can be
	// read in any order. Compressed files are first decompressed to a
	// temporary file.
	RandomAccess bool
	// ReduceMemory hands out records one at a time while parsing instead
	// of keeping them all. Each record list can then be read only once.
	ReduceMemory bool
	// Registry resolves CV terms. Nil means cv.Default().
	Registry *cv.Registry
	// Logger receives warnings (index recovery, cleanup failures) and
	// debug events. Nil means a logger at warning level on stderr.
	Logger logrus.FieldLogger
	// IndexCacheDir, when set, stores offset indexes on disk and reuses
	// them for files that didn't change.
	IndexCacheDir string
	// TempDir holds decompressed copies of compressed inputs. Empty means
	// os.TempDir().
	TempDir string
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger != nil {
		return o.Logger
	}
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}

func (o Options) registry() *cv.Registry {
	if o.Registry != nil {
		return o.Registry
	}
	return cv.Default()
}
