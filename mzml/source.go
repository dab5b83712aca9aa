package mzml

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"
	"github.com/ulikunitz/xz"
)

// compression of the whole file
type compression int

const (
	plain compression = iota
	gzipped
	xzipped
)

func (c compression) String() string {
	switch c {
	case gzipped:
		return "gzip"
	case xzipped:
		return "xz"
	}
	return "none"
}

// detectCompression looks at the file name suffix
func detectCompression(path string) compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return gzipped
	case ".xz":
		return xzipped
	}
	return plain
}

// stream is a decompressing reader that closes its whole chain
type stream struct {
	io.Reader
	closers []io.Closer
}

func (s *stream) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	return errors.Join(errs...)
}

// openStream opens path for sequential reading, decompressing on the fly
func openStream(path string, c compression) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s := &stream{Reader: f, closers: []io.Closer{f}}
	switch c {
	case gzipped:
		z, err := gzip.NewReader(bufio.NewReader(f))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		s.Reader = z
		s.closers = append(s.closers, z)
	case xzipped:
		z, err := xz.NewReader(bufio.NewReader(f))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		s.Reader = z
	}
	return s, nil
}

// materialize decompresses path into a new file in dir, so that it can
// be read at arbitrary offsets. The caller removes the file.
func materialize(path string, c compression, dir string, log logrus.FieldLogger) (*os.File, error) {
	src, err := openStream(path, c)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	if dir == "" {
		dir = os.TempDir()
	}
	name := filepath.Join(dir, "mzread-"+uuid.NewString()+".mzML")
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, err
	}
	n, err := io.Copy(f, src)
	if err != nil {
		f.Close()
		removeTemp(name, log)
		return nil, fmt.Errorf("decompress %s: %w", path, err)
	}
	log.WithFields(logrus.Fields{
		"file":        path,
		"compression": c,
		"temp":        name,
		"size":        n,
	}).Debug("decompressed for random access")
	return f, nil
}

// removeTemp deletes a temporary file. Failures are logged only.
func removeTemp(name string, log logrus.FieldLogger) {
	if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithFields(logrus.Fields{
			"temp":  name,
			"error": err,
		}).Warn("can't remove temporary file")
	}
}
