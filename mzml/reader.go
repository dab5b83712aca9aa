// Package mzml reads mass spectrometry data in the mzML format. Records
// can be streamed in file order or, with an offset index, read in any
// order from files too large to keep in memory. Gzip and xz compressed
// files are supported.
package mzml

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/524D/mzread/cv"
	"github.com/524D/mzread/internal/indexcache"
	"github.com/524D/mzread/internal/offsetindex"
)

// Reader reads one mzML file. A Reader is not safe for concurrent use.
//
// Records are read in one of three ways, chosen when the file is opened:
// with random access, all record lists can be read any number of times
// and single records can be read by position, scan number or native id.
// Without random access the lists are read sequentially; by default all
// records are then kept in memory on the first read, with ReduceMemory
// each list is handed out while parsing and can be read only once.
// EnableRandomAccess switches a sequential reader to random access.
type Reader struct {
	path string
	opts Options
	log  logrus.FieldLogger
	comp compression

	hdr  *header
	dec  *decoder
	meta *metadata

	// Sequential reading
	stream   io.ReadCloser
	cur      *cursor
	consumed [2]bool
	cache    *recordCache
	cacheErr error

	// Random access
	ix       *offsetindex.Index
	seek     *seeker
	file     *os.File
	tempPath string

	closed bool
}

// recordCache holds all records of an eagerly read file. A record whose
// binary arrays can't be decoded is kept without peaks, together with
// the decoding error by position.
type recordCache struct {
	spectra          []*Spectrum
	chromatograms    []*Chromatogram
	spectrumErrs     map[int]error
	chromatogramErrs map[int]error
}

// Open opens an mzML file. Files ending in .gz or .xz are decompressed.
func Open(path string, opts Options) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, err
	}
	r := &Reader{
		path: path,
		opts: opts,
		log:  opts.logger().WithField("file", path),
		comp: detectCompression(path),
	}
	var err error
	if opts.RandomAccess {
		err = r.EnableRandomAccess()
	} else {
		err = r.openStream()
	}
	if err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) openStream() error {
	s, err := openStream(r.path, r.comp)
	if err != nil {
		return err
	}
	r.stream = s
	r.cur = newCursor(s)
	return r.readHeader(r.cur)
}

func (r *Reader) readHeader(c *cursor) error {
	h, err := c.header()
	if err != nil {
		return fmt.Errorf("%s: %w", r.path, err)
	}
	r.hdr = h
	r.dec = newDecoder(r.opts.registry(), h)
	return nil
}

// EnableRandomAccess builds the offset index, after which records can be
// read in any order. Compressed files are decompressed to a temporary
// file first. Calling it again has no effect.
func (r *Reader) EnableRandomAccess() error {
	if r.closed {
		return errClosed
	}
	if r.seek != nil {
		return nil
	}
	f := r.file
	if f == nil {
		var err error
		if r.comp == plain {
			f, err = os.Open(r.path)
		} else {
			f, err = materialize(r.path, r.comp, r.opts.TempDir, r.log)
			if err == nil {
				r.tempPath = f.Name()
			}
		}
		if err != nil {
			return err
		}
		r.file = f
	}
	st, err := f.Stat()
	if err != nil {
		return err
	}
	size := st.Size()
	if r.hdr == nil {
		if err := r.readHeader(newCursor(io.NewSectionReader(f, 0, size))); err != nil {
			return err
		}
	}
	if r.ix == nil {
		if r.ix, err = r.loadIndex(f, size); err != nil {
			return err
		}
	}
	r.seek = &seeker{ra: f, size: size, ix: r.ix, dec: r.dec}
	return nil
}

// loadIndex gets the offset index of the plain document in ra, from the
// index cache when possible
func (r *Reader) loadIndex(ra io.ReaderAt, size int64) (*offsetindex.Index, error) {
	cache, key := r.indexCache()
	if cache != nil {
		defer cache.Close()
		ix, ok, err := cache.Get(key)
		if err != nil {
			r.log.WithError(err).Warn("can't read index cache")
		}
		if ok {
			return ix, nil
		}
	}

	start := time.Now()
	ix, err := offsetindex.Build(ra, size, offsetindex.Options{
		Indexed: r.hdr.indexed,
		Legacy:  r.hdr.legacy,
		Log:     r.log,
	})
	if err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{
		"origin":        ix.Origin,
		"spectra":       ix.Len(offsetindex.Spectrum),
		"chromatograms": ix.Len(offsetindex.Chromatogram),
		"duration":      time.Since(start),
	}).Debug("offset index built")
	if cache != nil {
		if err := cache.Put(key, ix); err != nil {
			r.log.WithError(err).Warn("can't write index cache")
		}
	}
	return ix, nil
}

// indexCache opens the index cache and returns the key of the file. The
// cache is nil when not configured or not available.
func (r *Reader) indexCache() (*indexcache.Cache, []byte) {
	if r.opts.IndexCacheDir == "" {
		return nil, nil
	}
	st, err := os.Stat(r.path)
	if err != nil {
		r.log.WithError(err).Warn("index cache not available")
		return nil, nil
	}
	cache, err := indexcache.Open(r.opts.IndexCacheDir, r.log)
	if err != nil {
		r.log.WithError(err).Warn("index cache not available")
		return nil, nil
	}
	return cache, indexcache.Key(r.path, st.Size(), st.ModTime())
}

// index returns the offset index, building it when needed without
// switching to random access. Compressed files are scanned as a stream.
func (r *Reader) index() (*offsetindex.Index, error) {
	if r.ix != nil {
		return r.ix, nil
	}
	if r.comp == plain {
		f, err := os.Open(r.path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		st, err := f.Stat()
		if err != nil {
			return nil, err
		}
		ix, err := r.loadIndex(f, st.Size())
		if err != nil {
			return nil, err
		}
		r.ix = ix
		return ix, nil
	}
	s, err := openStream(r.path, r.comp)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	sc := offsetindex.Scanner{Legacy: r.hdr.legacy, Log: r.log}
	spectra, chromatograms, err := sc.Scan(s)
	if err != nil {
		return nil, err
	}
	r.ix = offsetindex.New(spectra, chromatograms, offsetindex.Scanned)
	return r.ix, nil
}

func (r *Reader) count(k offsetindex.Kind) (int, error) {
	if r.closed {
		return 0, errClosed
	}
	switch {
	case r.ix != nil:
		return r.ix.Len(k), nil
	case r.cache != nil && k == offsetindex.Spectrum:
		return len(r.cache.spectra), nil
	case r.cache != nil:
		return len(r.cache.chromatograms), nil
	case r.cur != nil && r.cur.counts[k] >= 0:
		return r.cur.counts[k], nil
	}
	ix, err := r.index()
	if err != nil {
		return 0, err
	}
	return ix.Len(k), nil
}

// NumSpectra returns the number of spectra. It may need to read the file
// when the document doesn't state the count.
func (r *Reader) NumSpectra() (int, error) {
	return r.count(offsetindex.Spectrum)
}

// NumChromatograms returns the number of chromatograms. It may need to
// read the file.
func (r *Reader) NumChromatograms() (int, error) {
	return r.count(offsetindex.Chromatogram)
}

// ReadAllSpectra returns the spectra in file order. Without random access
// and with ReduceMemory, the spectra can be read only once; a second call
// returns ErrInvalidOperation.
func (r *Reader) ReadAllSpectra(includePeaks bool) (*Iterator[*Spectrum], error) {
	if r.closed {
		return nil, errClosed
	}
	switch {
	case r.seek != nil:
		return seqIterator(func() int { return r.ix.Len(offsetindex.Spectrum) }, func(seq int) (*Spectrum, error) {
			return r.ReadSpectrum(seq, includePeaks)
		}), nil
	case r.opts.ReduceMemory:
		if r.consumed[offsetindex.Spectrum] {
			return nil, fmt.Errorf("%w: reader already consumed", ErrInvalidOperation)
		}
		if r.consumed[offsetindex.Chromatogram] && r.cur.counts[offsetindex.Spectrum] != 0 {
			return nil, fmt.Errorf("%w: spectra were skipped to read chromatograms", ErrInvalidOperation)
		}
		r.consumed[offsetindex.Spectrum] = true
		return r.streamSpectra(includePeaks), nil
	}
	if err := r.readAll(); err != nil {
		return nil, err
	}
	return cachedIterator(r.cache.spectra, r.cache.spectrumErrs, includePeaks,
		func(s *Spectrum) *Spectrum { return s.clone(includePeaks) }), nil
}

// ReadAllChromatograms returns the chromatograms in file order. Without
// random access and with ReduceMemory, the chromatograms can be read only
// once, and spectra that were not read yet are skipped.
func (r *Reader) ReadAllChromatograms(includePeaks bool) (*Iterator[*Chromatogram], error) {
	if r.closed {
		return nil, errClosed
	}
	switch {
	case r.seek != nil:
		return seqIterator(func() int { return r.ix.Len(offsetindex.Chromatogram) }, func(seq int) (*Chromatogram, error) {
			return r.ReadChromatogram(seq, includePeaks)
		}), nil
	case r.opts.ReduceMemory:
		if r.consumed[offsetindex.Chromatogram] {
			return nil, fmt.Errorf("%w: reader already consumed", ErrInvalidOperation)
		}
		r.consumed[offsetindex.Chromatogram] = true
		return r.streamChromatograms(includePeaks), nil
	}
	if err := r.readAll(); err != nil {
		return nil, err
	}
	return cachedIterator(r.cache.chromatograms, r.cache.chromatogramErrs, includePeaks,
		func(c *Chromatogram) *Chromatogram { return c.clone(includePeaks) }), nil
}

func (r *Reader) streamSpectra(peaks bool) *Iterator[*Spectrum] {
	return newIterator(func() (*Spectrum, bool, error) {
		if r.closed {
			return nil, false, errClosed
		}
		start, ok, err := r.cur.next(offsetindex.Spectrum)
		if err != nil || !ok {
			return nil, false, err
		}
		var x xmlSpectrum
		if err := r.cur.decode(&x, &start); err != nil {
			return nil, false, err
		}
		s, err := r.dec.spectrum(&x, r.cur.seq[offsetindex.Spectrum], peaks)
		return s, err == nil, err
	})
}

func (r *Reader) streamChromatograms(peaks bool) *Iterator[*Chromatogram] {
	return newIterator(func() (*Chromatogram, bool, error) {
		if r.closed {
			return nil, false, errClosed
		}
		start, ok, err := r.cur.next(offsetindex.Chromatogram)
		if err != nil || !ok {
			return nil, false, err
		}
		var x xmlChromatogram
		if err := r.cur.decode(&x, &start); err != nil {
			return nil, false, err
		}
		c, err := r.dec.chromatogram(&x, r.cur.seq[offsetindex.Chromatogram], peaks)
		return c, err == nil, err
	})
}

// readAll parses all records into memory, once. Errors in binary arrays
// are kept per record; other errors end reading for good.
func (r *Reader) readAll() error {
	if r.cache != nil || r.cacheErr != nil {
		return r.cacheErr
	}
	c := &recordCache{}
	var err error
	c.spectra, c.spectrumErrs, err = collectRecords(r, offsetindex.Spectrum, r.dec.spectrum)
	if err == nil {
		c.chromatograms, c.chromatogramErrs, err = collectRecords(r, offsetindex.Chromatogram, r.dec.chromatogram)
	}
	if err != nil {
		r.cacheErr = err
		return err
	}
	r.cache = c
	return nil
}

// collectRecords decodes the remaining records of kind k from the cursor.
// A record with a payload error is decoded again without peaks.
func collectRecords[X any, T any](r *Reader, k offsetindex.Kind,
	decode func(x *X, seq int, peaks bool) (T, error)) ([]T, map[int]error, error) {
	var (
		records []T
		errs    map[int]error
	)
	for {
		start, ok, err := r.cur.next(k)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return records, errs, nil
		}
		var x X
		if err := r.cur.decode(&x, &start); err != nil {
			return nil, nil, err
		}
		seq := r.cur.seq[k]
		v, err := decode(&x, seq, true)
		if isPayloadError(err) {
			if errs == nil {
				errs = make(map[int]error)
			}
			errs[len(records)] = err
			v, err = decode(&x, seq, false)
		}
		if err != nil {
			return nil, nil, err
		}
		records = append(records, v)
	}
}

func isPayloadError(err error) bool {
	return errors.Is(err, ErrCorruptPayload) || errors.Is(err, ErrLengthMismatch) ||
		errors.Is(err, ErrUnsupportedCompression)
}

func (r *Reader) requireRandomAccess() error {
	if r.closed {
		return errClosed
	}
	if r.seek == nil {
		return fmt.Errorf("%w: random access is not enabled", ErrInvalidOperation)
	}
	return nil
}

// reindex replaces an index that doesn't match the file by scanning the
// file. It fails with cause when the index was already scanned.
func (r *Reader) reindex(cause error) error {
	if r.ix.Origin == offsetindex.Scanned {
		return cause
	}
	r.log.WithFields(logrus.Fields{
		"origin": r.ix.Origin,
		"reason": cause,
	}).Warn("offset index doesn't match the file, scanning file")
	sc := offsetindex.Scanner{Legacy: r.hdr.legacy, Log: r.log}
	spectra, chromatograms, err := sc.Scan(io.NewSectionReader(r.seek.ra, 0, r.seek.size))
	if err != nil {
		return err
	}
	r.ix = offsetindex.New(spectra, chromatograms, offsetindex.Scanned)
	r.seek.ix = r.ix
	if cache, key := r.indexCache(); cache != nil {
		defer cache.Close()
		if err := cache.Put(key, r.ix); err != nil {
			r.log.WithError(err).Warn("can't write index cache")
		}
	}
	return nil
}

// withIndex runs read, and once more after rebuilding the index when the
// index turns out not to match the file
func withIndex[T any](r *Reader, read func() (T, error)) (T, error) {
	v, err := read()
	if !errors.Is(err, ErrInvalidIndex) {
		return v, err
	}
	if err := r.reindex(err); err != nil {
		var zero T
		return zero, err
	}
	return read()
}

// ReadSpectrum reads the spectrum at 1-based position seq
func (r *Reader) ReadSpectrum(seq int, includePeaks bool) (*Spectrum, error) {
	if err := r.requireRandomAccess(); err != nil {
		return nil, err
	}
	return withIndex(r, func() (*Spectrum, error) {
		e, ok := r.ix.Entry(offsetindex.Spectrum, seq)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrInvalidScanIndex, seq)
		}
		return r.seek.spectrum(e, includePeaks)
	})
}

// SpectrumForScan reads the spectrum with the given vendor scan number.
// It returns nil without error when there is no such spectrum; not every
// file has scan numbers.
func (r *Reader) SpectrumForScan(scan int, includePeaks bool) (*Spectrum, error) {
	if err := r.requireRandomAccess(); err != nil {
		return nil, err
	}
	seq, ok := r.ix.SeqForScan(scan)
	if !ok {
		return nil, nil
	}
	return r.ReadSpectrum(seq, includePeaks)
}

// SpectrumByID reads the spectrum with the given native id
func (r *Reader) SpectrumByID(nativeID string, includePeaks bool) (*Spectrum, error) {
	if err := r.requireRandomAccess(); err != nil {
		return nil, err
	}
	return withIndex(r, func() (*Spectrum, error) {
		e, err := r.ix.Lookup(offsetindex.Spectrum, nativeID)
		if err != nil {
			if errors.Is(err, offsetindex.ErrUnknownID) {
				return nil, fmt.Errorf("%w: %q", ErrInvalidScanID, nativeID)
			}
			return nil, err
		}
		return r.seek.spectrum(e, includePeaks)
	})
}

// ReadChromatogram reads the chromatogram at 1-based position seq
func (r *Reader) ReadChromatogram(seq int, includePeaks bool) (*Chromatogram, error) {
	if err := r.requireRandomAccess(); err != nil {
		return nil, err
	}
	return withIndex(r, func() (*Chromatogram, error) {
		e, ok := r.ix.Entry(offsetindex.Chromatogram, seq)
		if !ok {
			return nil, fmt.Errorf("%w: chromatogram %d", ErrInvalidScanIndex, seq)
		}
		return r.seek.chromatogram(e, includePeaks)
	})
}

// ChromatogramByID reads the chromatogram with the given id. When ids
// repeat, the first one is returned.
func (r *Reader) ChromatogramByID(id string, includePeaks bool) (*Chromatogram, error) {
	if err := r.requireRandomAccess(); err != nil {
		return nil, err
	}
	return withIndex(r, func() (*Chromatogram, error) {
		e, err := r.ix.Lookup(offsetindex.Chromatogram, id)
		if err != nil {
			return nil, fmt.Errorf("%w: chromatogram %q", ErrInvalidScanID, id)
		}
		return r.seek.chromatogram(e, includePeaks)
	})
}

// ScanIndex converts a native id into the 1-based position of its
// spectrum
func (r *Reader) ScanIndex(nativeID string) (int, error) {
	if _, err := r.index(); err != nil {
		return 0, err
	}
	e, err := r.ix.Lookup(offsetindex.Spectrum, nativeID)
	if errors.Is(err, offsetindex.ErrUnknownID) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidScanID, nativeID)
	}
	return e.Seq, err
}

// ScanID converts the 1-based position of a spectrum into its native id
func (r *Reader) ScanID(seq int) (string, error) {
	if _, err := r.index(); err != nil {
		return "", err
	}
	id, ok := r.ix.NativeID(offsetindex.Spectrum, seq)
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrInvalidScanIndex, seq)
	}
	return id, nil
}

func (r *Reader) metadata() *metadata {
	if r.meta == nil {
		r.meta = r.dec.metadata(r.hdr)
	}
	return r.meta
}

// Version returns the mzML version of the document
func (r *Reader) Version() string {
	return r.hdr.version
}

// Indexed reports whether the document is wrapped in <indexedmzML>
func (r *Reader) Indexed() bool {
	return r.hdr.indexed
}

// RunID returns the id of the <run>
func (r *Reader) RunID() string {
	return r.hdr.runID
}

// CVRefs returns the translation between the CV labels of the document
// and those of the registry
func (r *Reader) CVRefs() *cv.RefMap {
	return r.dec.refs
}

// FileContent returns the params describing the content of the file
func (r *Reader) FileContent() ParamSet {
	return r.metadata().fileContent
}

// SourceFiles returns the files the document was converted from
func (r *Reader) SourceFiles() []SourceFile {
	return r.metadata().sourceFiles
}

// Software returns the software list
func (r *Reader) Software() []Software {
	return r.metadata().software
}

// Instruments returns the instrument configurations
func (r *Reader) Instruments() []InstrumentConfiguration {
	return r.metadata().instruments
}

// DataProcessing returns the data processing list
func (r *Reader) DataProcessing() []DataProcessing {
	return r.metadata().dataProcessing
}

// StartTimeStamp returns the start of the run. ok is false when the
// document doesn't give it or it can't be parsed.
func (r *Reader) StartTimeStamp() (t time.Time, ok bool) {
	m := r.metadata()
	return m.startTimeStamp, m.hasStartTime
}

// Close releases the file handles and removes temporary files. Calling it
// again has no effect.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	var errs []error
	if r.stream != nil {
		errs = append(errs, r.stream.Close())
	}
	if r.file != nil {
		errs = append(errs, r.file.Close())
	}
	if r.tempPath != "" {
		removeTemp(r.tempPath, r.log)
	}
	r.cache = nil
	return errors.Join(errs...)
}
