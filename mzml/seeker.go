package mzml

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"

	"github.com/524D/mzread/internal/offsetindex"
)

// seeker reads single records at the offsets of an index. Each read uses
// a fresh decoder on a section of the file, so reads are independent.
type seeker struct {
	ra   io.ReaderAt
	size int64
	ix   *offsetindex.Index
	dec  *decoder
}

// element decodes the record element of kind k that starts at e.Offset
// into v
func (s *seeker) element(k offsetindex.Kind, e offsetindex.Entry, v any) error {
	if e.Offset < 0 || e.Offset >= s.size {
		return fmt.Errorf("%w: offset %d of %s %q", ErrInvalidIndex, e.Offset, k, e.NativeID)
	}
	d := xml.NewDecoder(bufio.NewReader(io.NewSectionReader(s.ra, e.Offset, s.size-e.Offset)))
	d.CharsetReader = charset.NewReaderLabel
	tok, err := d.Token()
	if err != nil {
		return fmt.Errorf("%w: offset %d (%q): %v", ErrInvalidIndex, e.Offset, e.NativeID, err)
	}
	start, ok := tok.(xml.StartElement)
	if !ok || start.Name.Local != k.String() {
		return fmt.Errorf("%w: no <%s> at offset %d (%q)", ErrInvalidIndex, k, e.Offset, e.NativeID)
	}
	return xmlError(d.DecodeElement(v, &start))
}

func (s *seeker) spectrum(e offsetindex.Entry, peaks bool) (*Spectrum, error) {
	var x xmlSpectrum
	if err := s.element(offsetindex.Spectrum, e, &x); err != nil {
		return nil, err
	}
	sp, err := s.dec.spectrum(&x, e.Seq, peaks)
	if err != nil {
		return nil, err
	}
	if sp.NativeID != e.NativeID {
		return nil, fmt.Errorf("%w: spectrum at offset %d is %q, not %q",
			ErrInvalidIndex, e.Offset, sp.NativeID, e.NativeID)
	}
	return sp, nil
}

func (s *seeker) chromatogram(e offsetindex.Entry, peaks bool) (*Chromatogram, error) {
	var x xmlChromatogram
	if err := s.element(offsetindex.Chromatogram, e, &x); err != nil {
		return nil, err
	}
	c, err := s.dec.chromatogram(&x, e.Seq, peaks)
	if err != nil {
		return nil, err
	}
	if c.ID != e.NativeID {
		return nil, fmt.Errorf("%w: chromatogram at offset %d is %q, not %q",
			ErrInvalidIndex, e.Offset, c.ID, e.NativeID)
	}
	return c, nil
}
