package offsetindex

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

const (
	backWindow  = 4096
	backOverlap = 128
	// <indexListOffset> is written right before the file checksum, so it
	// must be found near the end of the file
	offsetTagLimit = 64 * 1024
)

var (
	indexListOffsetTag = []byte("<indexListOffset>")
	indexListTag       = []byte("<indexList")
)

// ReadEmbedded reads the <indexList> of an indexed mzML document. The
// position of the list is taken from <indexListOffset>; when that is
// missing or implausible the file is searched backwards for the list.
//
// In mzML 1.0 (legacy) documents idRef names the id attribute of a
// record, not its native id. The native id is then taken from the
// nativeID attribute of the offset or else from the record's start tag.
func ReadEmbedded(ra io.ReaderAt, size int64, legacy bool) (spectra, chromatograms []Ref, err error) {
	off, ok, err := indexListOffset(ra, size)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		pos, found, err := searchBackward(ra, size, indexListTag, size, func(tail []byte) bool {
			return len(tail) > 0 && (isSpace(tail[0]) || tail[0] == '>')
		})
		if err != nil {
			return nil, nil, err
		}
		if !found {
			return nil, nil, ErrNoIndex
		}
		off = pos
	}
	offsets, err := parseIndexList(ra, size, off)
	if err != nil {
		return nil, nil, err
	}
	refs := [2][]Ref{}
	for k, list := range offsets {
		refs[k] = make([]Ref, len(list))
		for i, o := range list {
			id := o.nativeID
			switch {
			case id != "":
			case legacy:
				if id, err = legacyNativeID(ra, size, Kind(k), o); err != nil {
					return nil, nil, err
				}
			default:
				id = o.idRef
			}
			refs[k][i] = Ref{NativeID: id, Offset: o.offset}
		}
	}
	return refs[Spectrum], refs[Chromatogram], nil
}

type indexOffset struct {
	idRef    string
	nativeID string
	offset   int64
}

// legacyNativeID reads the native id from the start tag at o.offset,
// which must carry the id that o refers to
func legacyNativeID(ra io.ReaderAt, size int64, k Kind, o indexOffset) (string, error) {
	tag, err := startTag(ra, size, o.offset)
	if err != nil {
		return "", err
	}
	if !isElementStart(tag, "<"+k.String()) {
		return "", fmt.Errorf("%w: offset %d of %s %q is not a <%s> element",
			ErrInvalidIndex, o.offset, k, o.idRef, k)
	}
	if id, _ := attrValue(idAttr, tag); id != o.idRef {
		return "", fmt.Errorf("%w: %s at offset %d has id %q, not %q",
			ErrInvalidIndex, k, o.offset, id, o.idRef)
	}
	if id, ok := attrValue(nativeIDAttr, tag); ok {
		return id, nil
	}
	return o.idRef, nil
}

// startTag returns the tag that starts at off, including its closing '>'
func startTag(ra io.ReaderAt, size, off int64) ([]byte, error) {
	for n := int64(512); ; n *= 8 {
		buf := make([]byte, min(n, size-off))
		m, err := ra.ReadAt(buf, off)
		if m < len(buf) {
			return nil, err
		}
		if end := tagEnd(buf); end >= 0 {
			return buf[:end+1], nil
		}
		if int64(len(buf)) == size-off || n >= maxTagLen {
			return nil, fmt.Errorf("%w: no complete tag at offset %d", ErrInvalidIndex, off)
		}
	}
}

// indexListOffset returns the value of <indexListOffset> if it is present
// and points into the second half of the file.
func indexListOffset(ra io.ReaderAt, size int64) (int64, bool, error) {
	pos, found, err := searchBackward(ra, size, indexListOffsetTag, offsetTagLimit, nil)
	if err != nil || !found {
		return 0, false, err
	}
	start := pos + int64(len(indexListOffsetTag))
	buf := make([]byte, min(int64(64), size-start))
	n, err := ra.ReadAt(buf, start)
	if n < len(buf) {
		return 0, false, err
	}
	text, _, found := bytes.Cut(buf, []byte("<"))
	if !found {
		return 0, false, nil
	}
	off, err := strconv.ParseInt(strings.TrimSpace(string(text)), 10, 64)
	if err != nil || off < size/2 || off >= size {
		return 0, false, nil
	}
	return off, true, nil
}

// searchBackward returns the offset of the last occurrence of pat that
// starts within limit bytes from the end of the file and for which match
// (if given) accepts the bytes following it. Windows overlap so that a
// pattern crossing a window boundary is still found.
func searchBackward(ra io.ReaderAt, size int64, pat []byte, limit int64,
	match func(tail []byte) bool) (int64, bool, error) {
	buf := make([]byte, backWindow+backOverlap)
	end := size
	for end > 0 && size-end < limit {
		start := max(end-backWindow, 0)
		stop := min(end+backOverlap, size)
		b := buf[:stop-start]
		n, err := ra.ReadAt(b, start)
		if n < len(b) {
			return 0, false, err
		}
		for i := bytes.LastIndex(b, pat); i >= 0; i = bytes.LastIndex(b[:i], pat) {
			if start+int64(i) >= end {
				// Examined with the previous window
				continue
			}
			if match == nil || match(b[i+len(pat):]) {
				return start + int64(i), true, nil
			}
		}
		end = start
	}
	return 0, false, nil
}

type xmlOffset struct {
	IDRef    string `xml:"idRef,attr"`
	NativeID string `xml:"nativeID,attr"`
	Value    string `xml:",chardata"`
}

// parseIndexList decodes the <indexList> element starting at off into
// spectrum and chromatogram offsets
func parseIndexList(ra io.ReaderAt, size, off int64) (offsets [2][]indexOffset, err error) {
	d := xml.NewDecoder(bufio.NewReader(io.NewSectionReader(ra, off, size-off)))
	d.CharsetReader = charset.NewReaderLabel

	var current *[]indexOffset
	inList := false
	for {
		tok, err := d.Token()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return offsets, fmt.Errorf("%w: %v", ErrInvalidIndex, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "indexList":
				inList = true
			case !inList:
				return offsets, fmt.Errorf("%w: no <indexList> at offset %d", ErrInvalidIndex, off)
			case t.Name.Local == "index":
				current = nil
				switch attr(t, "name") {
				case "spectrum":
					current = &offsets[Spectrum]
				case "chromatogram":
					current = &offsets[Chromatogram]
				default:
					if err := d.Skip(); err != nil {
						return offsets, fmt.Errorf("%w: %v", ErrInvalidIndex, err)
					}
				}
			case t.Name.Local == "offset" && current != nil:
				var o xmlOffset
				if err := d.DecodeElement(&o, &t); err != nil {
					return offsets, fmt.Errorf("%w: %v", ErrInvalidIndex, err)
				}
				v, err := strconv.ParseInt(strings.TrimSpace(o.Value), 10, 64)
				if err != nil || v < 0 || v >= size {
					return offsets, fmt.Errorf("%w: bad offset %q", ErrInvalidIndex, o.Value)
				}
				*current = append(*current, indexOffset{idRef: o.IDRef, nativeID: o.NativeID, offset: v})
			default:
				if err := d.Skip(); err != nil {
					return offsets, fmt.Errorf("%w: %v", ErrInvalidIndex, err)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "indexList" {
				return offsets, nil
			}
		}
	}
}

// probe checks that the first and last offsets of each kind point at an
// element of that kind.
func probe(ra io.ReaderAt, size int64, ix *Index) error {
	for _, k := range []Kind{Spectrum, Chromatogram} {
		entries := ix.Entries(k)
		if len(entries) == 0 {
			continue
		}
		tag := "<" + k.String()
		for _, e := range []Entry{entries[0], entries[len(entries)-1]} {
			if e.Offset < 0 || e.Offset >= size {
				return fmt.Errorf("%w: offset %d of %s %q outside file",
					ErrInvalidIndex, e.Offset, k, e.NativeID)
			}
			buf := make([]byte, min(int64(len(tag)+1), size-e.Offset))
			n, err := ra.ReadAt(buf, e.Offset)
			if n < len(buf) {
				return err
			}
			if !isElementStart(buf, tag) {
				return fmt.Errorf("%w: offset %d of %s %q is not a <%s> element",
					ErrInvalidIndex, e.Offset, k, e.NativeID, k)
			}
		}
	}
	return nil
}

func isElementStart(b []byte, tag string) bool {
	return len(b) > len(tag) && string(b[:len(tag)]) == tag && isSpace(b[len(tag)])
}

func attr(t xml.StartElement, name string) string {
	for _, a := range t.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
