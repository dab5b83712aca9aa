package mzml

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/net/html/charset"

	"github.com/524D/mzread/internal/offsetindex"
)

type phase int

const (
	phaseHeader phase = iota
	phaseSpectra
	phaseAfterSpectra
	phaseChromatograms
	phaseDone
)

// cursor is a forward-only parse position in a document. It stops at the
// start of the spectrum list and then hands out record elements one at a
// time; after the spectra it continues into the chromatogram list.
// Every element returned by next must be consumed with decode or skip
// before next is called again.
type cursor struct {
	d      *xml.Decoder
	phase  phase
	counts [2]int // count attributes of the record lists, -1 if unknown
	seq    [2]int // records handed out per kind
}

func newCursor(r io.Reader) *cursor {
	d := xml.NewDecoder(bufio.NewReaderSize(r, 1<<16))
	d.CharsetReader = charset.NewReaderLabel
	return &cursor{d: d, counts: [2]int{-1, -1}}
}

// header reads the document up to the first record list
func (c *cursor) header() (*header, error) {
	h := &header{groups: make(map[string]xmlParams)}
	for c.phase == phaseHeader {
		tok, err := c.d.Token()
		if err == io.EOF {
			if !h.sawMzML {
				return nil, fmt.Errorf("%w: no <mzML> element", ErrMalformedDocument)
			}
			c.finish()
			break
		}
		if err != nil {
			return nil, xmlError(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			handle, ok := headerElements[t.Name.Local]
			if !ok {
				if err := c.skip(); err != nil {
					return nil, err
				}
				continue
			}
			if err := handle(c, h, &t); err != nil {
				return nil, err
			}
		case xml.EndElement:
			if t.Name.Local == "run" || t.Name.Local == "mzML" {
				c.finish()
			}
		}
	}
	return h, nil
}

// finish marks the end of the record lists
func (c *cursor) finish() {
	for k, n := range c.counts {
		if n < 0 {
			c.counts[k] = c.seq[k]
		}
	}
	c.phase = phaseDone
}

// next advances to the next record element of kind k. ok is false when
// there are no more records of that kind. Asking for a chromatogram skips
// the remaining spectra.
func (c *cursor) next(k offsetindex.Kind) (start xml.StartElement, ok bool, err error) {
	want := phaseSpectra
	if k == offsetindex.Chromatogram {
		if err := c.toChromatograms(); err != nil {
			return start, false, err
		}
		want = phaseChromatograms
	}
	if c.phase != want {
		return start, false, nil
	}
	for {
		tok, err := c.d.Token()
		if err != nil {
			if err == io.EOF {
				return start, false, fmt.Errorf("%w: %w", ErrMalformedDocument, io.ErrUnexpectedEOF)
			}
			return start, false, xmlError(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == k.String() {
				c.seq[k]++
				return t, true, nil
			}
			if err := c.skip(); err != nil {
				return start, false, err
			}
		case xml.EndElement:
			// End of the record list
			if c.counts[k] < 0 {
				c.counts[k] = c.seq[k]
			}
			if k == offsetindex.Spectrum {
				c.phase = phaseAfterSpectra
			} else {
				c.finish()
			}
			return start, false, nil
		}
	}
}

// toChromatograms moves the cursor to the start of the chromatogram list
func (c *cursor) toChromatograms() error {
	for c.phase == phaseSpectra {
		_, ok, err := c.next(offsetindex.Spectrum)
		if err != nil {
			return err
		}
		if ok {
			if err := c.skip(); err != nil {
				return err
			}
		}
	}
	for c.phase == phaseAfterSpectra {
		tok, err := c.d.Token()
		if err == io.EOF {
			c.finish()
			break
		}
		if err != nil {
			return xmlError(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "chromatogramList" {
				c.startList(offsetindex.Chromatogram, &t)
				continue
			}
			if err := c.skip(); err != nil {
				return err
			}
		case xml.EndElement:
			if t.Name.Local == "run" {
				c.finish()
			}
		}
	}
	return nil
}

func (c *cursor) startList(k offsetindex.Kind, start *xml.StartElement) {
	if n, err := strconv.Atoi(attr(start, "count")); err == nil && n >= 0 {
		c.counts[k] = n
	}
	if k == offsetindex.Spectrum {
		c.phase = phaseSpectra
	} else {
		c.phase = phaseChromatograms
	}
}

func (c *cursor) decode(v any, start *xml.StartElement) error {
	return xmlError(c.d.DecodeElement(v, start))
}

func (c *cursor) skip() error {
	return xmlError(c.d.Skip())
}

// xmlError marks XML syntax errors as malformed documents. Other errors,
// such as I/O errors, are returned as is.
func xmlError(err error) error {
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		return fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}
	return err
}

func attr(start *xml.StartElement, name string) string {
	for _, a := range start.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
