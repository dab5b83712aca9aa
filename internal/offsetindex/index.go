// Package offsetindex maps spectrum and chromatogram identifiers to byte
// offsets in an mzML document, so single records can be read without
// parsing the whole file.
package offsetindex

import (
	"errors"
	"fmt"
)

// Kind selects the spectrum or chromatogram table
type Kind int

const (
	Spectrum Kind = iota
	Chromatogram
)

func (k Kind) String() string {
	if k == Chromatogram {
		return "chromatogram"
	}
	return "spectrum"
}

// Origin tells how an index was obtained
type Origin int

const (
	Embedded Origin = iota + 1 // read from the <indexList> of an indexed mzML file
	Scanned                    // recovered by scanning the file
	Cached                     // loaded from a persistent cache
)

func (o Origin) String() string {
	switch o {
	case Embedded:
		return "embedded"
	case Scanned:
		return "scanned"
	case Cached:
		return "cached"
	}
	return "unknown"
}

var (
	// ErrInvalidIndex means the index can't be trusted, e.g. two records
	// share a byte offset
	ErrInvalidIndex = errors.New("MzML: invalid offset index")
	// ErrNoIndex means the document has no (findable) embedded index
	ErrNoIndex = errors.New("MzML: no embedded index")
	// ErrUnknownID means no record has the requested native id
	ErrUnknownID = errors.New("MzML: unknown native id")
	// ErrDuplicateID means several spectra share the requested native id
	ErrDuplicateID = errors.New("MzML: duplicate native id")
)

// Ref is a native id and the offset of its element, in file order
type Ref struct {
	NativeID string
	Offset   int64
}

// Entry is one indexed record
type Entry struct {
	NativeID string
	Offset   int64
	Seq      int // 1-based position in file order
	Scan     int // vendor scan number, 0 when not derivable
}

type table struct {
	entries   []Entry
	byID      map[string]int // native id -> seq
	dupIDs    map[string]struct{}
	seqByScan map[int]int
}

// Index holds the spectrum and chromatogram tables of one document
type Index struct {
	Origin        Origin
	spectra       table
	chromatograms table
}

// New builds an index from the element references of both record kinds.
// Sequential ids are assigned in the given order. Spectra with a repeated
// native id are all indexed but can't be looked up by that id; for
// chromatograms the first occurrence wins.
func New(spectra, chromatograms []Ref, origin Origin) *Index {
	ix := &Index{Origin: origin}
	ix.spectra = newTable(spectra, true)
	ix.chromatograms = newTable(chromatograms, false)
	return ix
}

func newTable(refs []Ref, strict bool) table {
	t := table{
		entries:   make([]Entry, 0, len(refs)),
		byID:      make(map[string]int, len(refs)),
		seqByScan: make(map[int]int),
	}
	for _, r := range refs {
		e := Entry{NativeID: r.NativeID, Offset: r.Offset, Seq: len(t.entries) + 1}
		if scan, ok := ScanNumber(r.NativeID); ok {
			e.Scan = scan
			if _, seen := t.seqByScan[scan]; !seen {
				t.seqByScan[scan] = e.Seq
			}
		}
		t.entries = append(t.entries, e)
		if _, seen := t.byID[r.NativeID]; seen {
			if strict {
				if t.dupIDs == nil {
					t.dupIDs = make(map[string]struct{})
				}
				t.dupIDs[r.NativeID] = struct{}{}
			}
			continue
		}
		t.byID[r.NativeID] = e.Seq
	}
	return t
}

func (ix *Index) table(k Kind) *table {
	if k == Chromatogram {
		return &ix.chromatograms
	}
	return &ix.spectra
}

// Len returns the number of records of kind k
func (ix *Index) Len(k Kind) int {
	return len(ix.table(k).entries)
}

// Entries returns the records of kind k in file order. The slice must not
// be modified.
func (ix *Index) Entries(k Kind) []Entry {
	return ix.table(k).entries
}

// Entry returns the record with sequential id seq
func (ix *Index) Entry(k Kind, seq int) (Entry, bool) {
	t := ix.table(k)
	if seq < 1 || seq > len(t.entries) {
		return Entry{}, false
	}
	return t.entries[seq-1], true
}

// Offset returns the byte offset of the record with sequential id seq
func (ix *Index) Offset(k Kind, seq int) (int64, bool) {
	e, ok := ix.Entry(k, seq)
	return e.Offset, ok
}

// NativeID returns the native id of the record with sequential id seq
func (ix *Index) NativeID(k Kind, seq int) (string, bool) {
	e, ok := ix.Entry(k, seq)
	return e.NativeID, ok
}

// Lookup finds a record by native id
func (ix *Index) Lookup(k Kind, nativeID string) (Entry, error) {
	t := ix.table(k)
	if _, dup := t.dupIDs[nativeID]; dup {
		return Entry{}, fmt.Errorf("%w: %s %q", ErrDuplicateID, k, nativeID)
	}
	seq, ok := t.byID[nativeID]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s %q", ErrUnknownID, k, nativeID)
	}
	return t.entries[seq-1], nil
}

// SeqForScan returns the sequential id of the spectrum with the given
// vendor scan number. Not every file yields scan numbers.
func (ix *Index) SeqForScan(scan int) (int, bool) {
	seq, ok := ix.spectra.seqByScan[scan]
	return seq, ok
}

// Validate checks that no two records share a byte offset. Duplicates are
// the symptom of a truncated or corrupted embedded index.
func (ix *Index) Validate() error {
	seen := make(map[int64]struct{}, ix.Len(Spectrum)+ix.Len(Chromatogram))
	for _, k := range []Kind{Spectrum, Chromatogram} {
		for _, e := range ix.table(k).entries {
			if _, dup := seen[e.Offset]; dup {
				return fmt.Errorf("%w: offset %d used twice (%s %q)",
					ErrInvalidIndex, e.Offset, k, e.NativeID)
			}
			seen[e.Offset] = struct{}{}
		}
	}
	return nil
}
