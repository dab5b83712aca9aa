package offsetindex

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDoc writes small mzML documents with known record offsets
type testDoc struct {
	spectra       []string
	chromatograms []string
	indexed       bool
	legacy        bool
	// indexNativeID adds the nativeID attribute to the offsets of a
	// legacy index
	indexNativeID bool
	pad           int

	// index damage
	dropIndex      bool
	duplicateIndex bool
	shiftIndex     bool
	listOffset     string
}

func (d testDoc) build() (doc []byte, spectra, chromatograms []Ref) {
	var b bytes.Buffer
	esc := func(s string) string {
		var e bytes.Buffer
		xml.EscapeText(&e, []byte(s))
		return e.String()
	}
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	if d.indexed {
		b.WriteString(`<indexedmzML xmlns="http://psi.hupo.org/ms/mzml">` + "\n")
	}
	version := "1.1.0"
	if d.legacy {
		version = "1.0.0"
	}
	fmt.Fprintf(&b, `<mzML xmlns="http://psi.hupo.org/ms/mzml" version="%s">`+"\n", version)
	b.WriteString(`<run id="run1">` + "\n")
	pad := strings.Repeat("x", d.pad)
	fmt.Fprintf(&b, `<spectrumList count="%d">`+"\n", len(d.spectra))
	for i, id := range d.spectra {
		spectra = append(spectra, Ref{NativeID: id, Offset: int64(b.Len())})
		if d.legacy {
			fmt.Fprintf(&b, `<spectrum index="%d" id="S%d" nativeID="%s" defaultArrayLength="0">`, i, i, esc(id))
		} else {
			fmt.Fprintf(&b, `<spectrum index="%d" id="%s" defaultArrayLength="0">`, i, esc(id))
		}
		fmt.Fprintf(&b, "\n"+`<cvParam cvRef="MS" accession="MS:1000511" name="ms level" value="1"/>`+
			"\n"+`<userParam name="pad" value="%s"/>`+"\n</spectrum>\n", pad)
	}
	b.WriteString("</spectrumList>\n")
	fmt.Fprintf(&b, `<chromatogramList count="%d">`+"\n", len(d.chromatograms))
	for i, id := range d.chromatograms {
		chromatograms = append(chromatograms, Ref{NativeID: id, Offset: int64(b.Len())})
		fmt.Fprintf(&b, `<chromatogram index="%d" id="%s" defaultArrayLength="0">`+"\n</chromatogram>\n", i, esc(id))
	}
	b.WriteString("</chromatogramList>\n</run>\n</mzML>\n")
	if d.indexed {
		if !d.dropIndex {
			listOffset := b.Len()
			b.WriteString(`<indexList count="2">` + "\n")
			writeIndex := func(name string, refs []Ref) {
				fmt.Fprintf(&b, `<index name="%s">`+"\n", name)
				for i, r := range refs {
					off := r.Offset
					switch {
					case d.duplicateIndex:
						off = spectra[0].Offset
					case d.shiftIndex:
						off++
					}
					switch {
					case d.legacy && name == "spectrum" && d.indexNativeID:
						fmt.Fprintf(&b, `<offset idRef="S%d" nativeID="%s">%d</offset>`+"\n", i, esc(r.NativeID), off)
					case d.legacy && name == "spectrum":
						fmt.Fprintf(&b, `<offset idRef="S%d">%d</offset>`+"\n", i, off)
					default:
						fmt.Fprintf(&b, `<offset idRef="%s">%d</offset>`+"\n", esc(r.NativeID), off)
					}
				}
				b.WriteString("</index>\n")
			}
			writeIndex("spectrum", spectra)
			writeIndex("chromatogram", chromatograms)
			b.WriteString("</indexList>\n")
			lo := d.listOffset
			if lo == "" {
				lo = fmt.Sprint(listOffset)
			}
			fmt.Fprintf(&b, "<indexListOffset>%s</indexListOffset>\n", lo)
		}
		b.WriteString("<fileChecksum>0</fileChecksum>\n</indexedmzML>\n")
	}
	return b.Bytes(), spectra, chromatograms
}

func quietLog() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return l
}

func ids(n int) []string {
	s := make([]string, n)
	for i := range s {
		s[i] = fmt.Sprintf("controllerType=0 controllerNumber=1 scan=%d", i+1)
	}
	return s
}

func requireEntries(t *testing.T, ix *Index, k Kind, want []Ref) {
	t.Helper()
	require.Equal(t, len(want), ix.Len(k), "%s count", k)
	for i, e := range ix.Entries(k) {
		assert.Equal(t, want[i].NativeID, e.NativeID)
		assert.Equal(t, want[i].Offset, e.Offset)
		assert.Equal(t, i+1, e.Seq)
	}
}

func TestBuildEmbedded(t *testing.T) {
	d := testDoc{spectra: ids(5), chromatograms: []string{"TIC", "BPC"}, indexed: true, pad: 200}
	doc, spectra, chromatograms := d.build()
	ix, err := Build(bytes.NewReader(doc), int64(len(doc)), Options{Indexed: true, Log: quietLog()})
	require.NoError(t, err)
	assert.Equal(t, Embedded, ix.Origin)
	requireEntries(t, ix, Spectrum, spectra)
	requireEntries(t, ix, Chromatogram, chromatograms)

	seq, ok := ix.SeqForScan(3)
	require.True(t, ok)
	assert.Equal(t, 3, seq)
	e, err := ix.Lookup(Chromatogram, "BPC")
	require.NoError(t, err)
	assert.Equal(t, 2, e.Seq)
	_, err = ix.Lookup(Spectrum, "nope")
	assert.ErrorIs(t, err, ErrUnknownID)
	off, ok := ix.Offset(Spectrum, 1)
	assert.True(t, ok)
	assert.Equal(t, spectra[0].Offset, off)
	_, ok = ix.Offset(Spectrum, 6)
	assert.False(t, ok)
	_, ok = ix.NativeID(Spectrum, 0)
	assert.False(t, ok)
}

func TestBuildFallback(t *testing.T) {
	tests := []struct {
		name   string
		doc    testDoc
		origin Origin
	}{
		{"not indexed", testDoc{}, Scanned},
		{"index dropped", testDoc{indexed: true, dropIndex: true}, Scanned},
		{"duplicate offsets", testDoc{indexed: true, duplicateIndex: true}, Scanned},
		{"shifted offsets", testDoc{indexed: true, shiftIndex: true}, Scanned},
		{"implausible list offset", testDoc{indexed: true, listOffset: "3"}, Embedded},
		{"garbage list offset", testDoc{indexed: true, listOffset: "abc"}, Embedded},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := tc.doc
			d.spectra = ids(4)
			d.chromatograms = []string{"TIC"}
			d.pad = 100
			doc, spectra, chromatograms := d.build()
			ix, err := Build(bytes.NewReader(doc), int64(len(doc)),
				Options{Indexed: d.indexed, Log: quietLog()})
			require.NoError(t, err)
			assert.Equal(t, tc.origin, ix.Origin)
			requireEntries(t, ix, Spectrum, spectra)
			requireEntries(t, ix, Chromatogram, chromatograms)
		})
	}
}

func TestBuildEmbeddedLegacy(t *testing.T) {
	for _, nativeID := range []bool{true, false} {
		t.Run(fmt.Sprintf("nativeID=%v", nativeID), func(t *testing.T) {
			d := testDoc{spectra: ids(4), chromatograms: []string{"TIC"}, indexed: true,
				legacy: true, indexNativeID: nativeID}
			doc, spectra, chromatograms := d.build()
			ix, err := Build(bytes.NewReader(doc), int64(len(doc)),
				Options{Indexed: true, Legacy: true, Log: quietLog()})
			require.NoError(t, err)
			assert.Equal(t, Embedded, ix.Origin)
			requireEntries(t, ix, Spectrum, spectra)
			requireEntries(t, ix, Chromatogram, chromatograms)
			seq, ok := ix.SeqForScan(3)
			require.True(t, ok)
			assert.Equal(t, 3, seq)
		})
	}
}

func TestBuildEmbeddedLegacyWrongOffset(t *testing.T) {
	d := testDoc{spectra: ids(4), indexed: true, legacy: true}
	doc, spectra, _ := d.build()
	// Point the index entry of S1 at S2
	broken := bytes.Replace(doc,
		[]byte(fmt.Sprintf(`idRef="S1">%d<`, spectra[1].Offset)),
		[]byte(fmt.Sprintf(`idRef="S1">%d<`, spectra[2].Offset)), 1)
	require.NotEqual(t, doc, broken)
	_, _, err := ReadEmbedded(bytes.NewReader(broken), int64(len(broken)), true)
	assert.ErrorIs(t, err, ErrInvalidIndex)

	ix, err := Build(bytes.NewReader(broken), int64(len(broken)),
		Options{Indexed: true, Legacy: true, Log: quietLog()})
	require.NoError(t, err)
	assert.Equal(t, Scanned, ix.Origin)
	requireEntries(t, ix, Spectrum, spectra)
}

func TestReadEmbeddedMissing(t *testing.T) {
	doc, _, _ := testDoc{spectra: ids(2), indexed: true, dropIndex: true}.build()
	_, _, err := ReadEmbedded(bytes.NewReader(doc), int64(len(doc)), false)
	assert.ErrorIs(t, err, ErrNoIndex)
}

func TestScanAcrossWindows(t *testing.T) {
	// Larger than several scan windows, so tags cross window boundaries
	d := testDoc{spectra: ids(6000), chromatograms: []string{"TIC"}, pad: 500}
	doc, spectra, chromatograms := d.build()
	require.Greater(t, len(doc), 2*scanWindow)

	s := Scanner{Log: quietLog()}
	gotS, gotC, err := s.Scan(bytes.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, spectra, gotS)
	assert.Equal(t, chromatograms, gotC)
}

func TestScanLegacyAndEntities(t *testing.T) {
	d := testDoc{spectra: []string{"a&b", `q"1`, "scan=7"}, legacy: true}
	doc, spectra, _ := d.build()
	s := Scanner{Legacy: true, Log: quietLog()}
	got, _, err := s.Scan(bytes.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, spectra, got)

	// Without legacy mode the XML id is used
	s = Scanner{Log: quietLog()}
	got, _, err = s.Scan(bytes.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "S0", got[0].NativeID)
}

func TestScanQuotedGreaterThan(t *testing.T) {
	doc, spectra, _ := testDoc{spectra: []string{"scan=1", "a>b", "scan=3"}}.build()
	// A '>' needs no escaping in attribute values
	raw := bytes.Replace(doc, []byte("a&gt;b"), []byte("a>b"), 1)
	shift := int64(len(doc) - len(raw))
	spectra[2].Offset -= shift
	s := Scanner{Log: quietLog()}
	got, _, err := s.Scan(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, spectra, got)
}

func TestScanSkipsCommentsAndCDATA(t *testing.T) {
	doc, spectra, chromatograms := testDoc{spectra: ids(3), chromatograms: []string{"TIC"}}.build()
	hidden := "<!-- <spectrum id=\"c1\"> <chromatogram id=\"c2\"> -->\n" +
		"<![CDATA[<spectrum id=\"d1\">]]>\n<!---->\n"
	doc = bytes.Replace(doc, []byte("</spectrumList>\n"), []byte("</spectrumList>\n"+hidden), 1)
	chromatograms[0].Offset += int64(len(hidden))

	s := Scanner{Log: quietLog()}
	gotS, gotC, err := s.Scan(bytes.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, spectra, gotS)
	assert.Equal(t, chromatograms, gotC)
}

func TestScanStopsAtMalformedRecord(t *testing.T) {
	doc, spectra, _ := testDoc{spectra: ids(3)}.build()
	broken := bytes.Replace(doc, []byte(`id="`+spectra[2].NativeID+`"`), []byte(`name="x"`), 1)
	s := Scanner{Log: quietLog()}
	got, _, err := s.Scan(bytes.NewReader(broken))
	require.NoError(t, err)
	assert.Equal(t, spectra[:2], got)
}

func TestDuplicateNativeIDs(t *testing.T) {
	ix := New(
		[]Ref{{"s1", 10}, {"s2", 20}, {"s1", 30}},
		[]Ref{{"c1", 40}, {"c1", 50}},
		Scanned)
	require.Equal(t, 3, ix.Len(Spectrum))
	for i, e := range ix.Entries(Spectrum) {
		assert.Equal(t, i+1, e.Seq)
	}
	_, err := ix.Lookup(Spectrum, "s1")
	assert.True(t, errors.Is(err, ErrDuplicateID))
	e, err := ix.Lookup(Spectrum, "s2")
	require.NoError(t, err)
	assert.Equal(t, int64(20), e.Offset)

	// First chromatogram wins
	e, err = ix.Lookup(Chromatogram, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(40), e.Offset)
	assert.NoError(t, ix.Validate())
}

func TestValidate(t *testing.T) {
	ix := New([]Ref{{"s1", 10}}, []Ref{{"c1", 10}}, Embedded)
	assert.ErrorIs(t, ix.Validate(), ErrInvalidIndex)
}

func TestScanNumber(t *testing.T) {
	tests := []struct {
		id   string
		scan int
		ok   bool
	}{
		{"controllerType=0 controllerNumber=1 scan=43", 43, true},
		{"function=2 process=0 scan=15", 15, true},
		{"scanId=3001", 3001, true},
		{"spectrum=12", 12, true},
		{"1234", 1234, true},
		{"sample=1 period=1 cycle=10 experiment=1", 0, false},
		{"index=5", 0, false},
		{"file=sourceFile", 0, false},
		{"scan=0", 0, false},
		{"", 0, false},
	}
	for _, tc := range tests {
		scan, ok := ScanNumber(tc.id)
		assert.Equal(t, tc.ok, ok, tc.id)
		assert.Equal(t, tc.scan, scan, tc.id)
	}
}
