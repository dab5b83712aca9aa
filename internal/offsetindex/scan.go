package offsetindex

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	scanWindow = 1 << 20
	// maxTagLen bounds the start tag of a record; a longer one is broken
	maxTagLen = 64 * 1024
)

// ErrMalformedElement means a record element without an identifier was
// found while scanning
var ErrMalformedElement = errors.New("MzML: record element without id")

var (
	spectrumTag     = []byte("<spectrum")
	chromatogramTag = []byte("<chromatogram")

	idAttr       = regexp.MustCompile(`\sid\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	nativeIDAttr = regexp.MustCompile(`\snativeID\s*=\s*(?:"([^"]*)"|'([^']*)')`)

	// Markup that can't hold records
	sections = []struct{ open, close []byte }{
		{[]byte("<!--"), []byte("-->")},
		{[]byte("<![CDATA["), []byte("]]>")},
	}

	entities = map[string]string{"lt": "<", "gt": ">", "quot": `"`, "apos": "'", "amp": "&"}
)

// Scanner recovers element offsets by reading a document front to back.
type Scanner struct {
	// Legacy selects the nativeID attribute of mzML 1.0 documents
	Legacy bool
	Log    logrus.FieldLogger

	spectra       []Ref
	chromatograms []Ref
}

// Scan reads r to the end and returns the offsets of all <spectrum> and
// <chromatogram> start tags. Offsets are relative to the start of r. A
// record without an id stops the scan; what was found until then is
// returned.
func (s *Scanner) Scan(r io.Reader) (spectra, chromatograms []Ref, err error) {
	buf := make([]byte, 0, 2*scanWindow)
	chunk := make([]byte, scanWindow)
	var base int64 // file offset of buf[0]
	for eof := false; !eof; {
		n, err := io.ReadFull(r, chunk)
		switch {
		case err == io.EOF || err == io.ErrUnexpectedEOF:
			eof = true
		case err != nil:
			return nil, nil, err
		}
		buf = append(buf, chunk[:n]...)

		consumed, err := s.window(buf, base, eof)
		if err != nil {
			s.log().WithFields(logrus.Fields{
				"offset": base + int64(consumed),
				"error":  err,
			}).Warn("stopped scanning for records")
			break
		}
		// Keep the incomplete tag for the next round
		rest := copy(buf, buf[consumed:])
		buf = buf[:rest]
		base += int64(consumed)
	}
	return s.spectra, s.chromatograms, nil
}

// window registers all complete record start tags in buf and returns the
// number of bytes that don't need to be seen again.
func (s *Scanner) window(buf []byte, base int64, eof bool) (int, error) {
	i := 0
next:
	for {
		j := bytes.IndexByte(buf[i:], '<')
		if j < 0 {
			return len(buf), nil
		}
		p := i + j
		if !eof && len(buf)-p <= len(chromatogramTag) {
			return p, nil
		}
		for _, sec := range sections {
			if !bytes.HasPrefix(buf[p:], sec.open) {
				continue
			}
			k := bytes.Index(buf[p+len(sec.open):], sec.close)
			if k < 0 {
				if eof {
					return len(buf), nil
				}
				return p, nil
			}
			i = p + len(sec.open) + k + len(sec.close)
			continue next
		}
		var kind Kind
		switch {
		case isElementStart(buf[p:], string(spectrumTag)):
			kind = Spectrum
		case isElementStart(buf[p:], string(chromatogramTag)):
			kind = Chromatogram
		default:
			i = p + 1
			continue
		}
		end := tagEnd(buf[p:])
		if end < 0 {
			if eof || len(buf)-p > maxTagLen {
				return p, fmt.Errorf("%w: unterminated <%s> tag", ErrMalformedElement, kind)
			}
			return p, nil
		}
		id, ok := s.id(buf[p : p+end])
		if !ok {
			return p, fmt.Errorf("%w: <%s> at offset %d", ErrMalformedElement, kind, base+int64(p))
		}
		ref := Ref{NativeID: id, Offset: base + int64(p)}
		if kind == Spectrum {
			s.spectra = append(s.spectra, ref)
		} else {
			s.chromatograms = append(s.chromatograms, ref)
		}
		i = p + end + 1
	}
}

// tagEnd returns the position of the '>' that closes the tag at the start
// of b, or -1. Attribute values may contain '>'.
func tagEnd(b []byte) int {
	var quote byte
	for i, c := range b {
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return i
		}
	}
	return -1
}

func (s *Scanner) id(tag []byte) (string, bool) {
	if s.Legacy {
		if v, ok := attrValue(nativeIDAttr, tag); ok {
			return v, true
		}
	}
	return attrValue(idAttr, tag)
}

func attrValue(re *regexp.Regexp, tag []byte) (string, bool) {
	m := re.FindSubmatch(tag)
	if m == nil {
		return "", false
	}
	v := m[1]
	if v == nil {
		v = m[2]
	}
	return unescape(string(v)), true
}

// unescape resolves the predefined entities and character references of
// an attribute value. Unknown references are kept as they are.
func unescape(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	var b strings.Builder
	for {
		i := strings.IndexByte(s, '&')
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		s = s[i:]
		end := strings.IndexByte(s, ';')
		if end < 0 {
			b.WriteString(s)
			return b.String()
		}
		ref := s[1:end]
		if r, ok := entities[ref]; ok {
			b.WriteString(r)
		} else if c, ok := charRef(ref); ok {
			b.WriteRune(c)
		} else {
			b.WriteString(s[:end+1])
		}
		s = s[end+1:]
	}
}

func charRef(ref string) (rune, bool) {
	if !strings.HasPrefix(ref, "#") {
		return 0, false
	}
	base := 10
	num := ref[1:]
	if strings.HasPrefix(num, "x") {
		base = 16
		num = num[1:]
	}
	n, err := strconv.ParseUint(num, base, 32)
	if err != nil {
		return 0, false
	}
	return rune(n), true
}

func (s *Scanner) log() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}
