package mzml

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/524D/mzread/internal/codec"
)

// fixture writes synthetic mzML documents with predictable content.
// Spectrum i (0-based) has 1+i%5 peaks; every fourth spectrum is MS1,
// the others are MS2 of the preceding MS1.
type fixture struct {
	spectra       int
	chromatograms int
	indexed       bool
	legacy        bool
	zlib          bool
	float32       bool
	// msLabel is the document label of PSI-MS, "MS" if empty
	msLabel string
	// privateCV declares a vocabulary the registry doesn't know and uses it
	privateCV bool
	// groups moves the m/z array params into a referenceable param group
	groups bool

	// bareIDRef leaves the nativeID attribute out of a legacy index, so
	// only idRef names the record
	bareIDRef bool

	// index damage
	corruptIndex bool
	dropIndex    bool
	// swapIndex exchanges the offsets of the second and third spectrum
	swapIndex bool
}

const (
	msURI = "https://raw.githubusercontent.com/HUPO-PSI/psi-ms-CV/master/psi-ms.obo"
	uoURI = "https://raw.githubusercontent.com/bio-ontology-research-group/unit-ontology/master/unit.obo"
)

func (f fixture) nativeID(i int) string {
	return fmt.Sprintf("controllerType=0 controllerNumber=1 scan=%d", i+1)
}

func (f fixture) msLevel(i int) int {
	if i%4 == 0 {
		return 1
	}
	return 2
}

// rt is the scan start time in seconds
func (f fixture) rt(i int) float64 {
	return float64(i) * 1.5
}

func (f fixture) peaks(i int) (mz, intensity []float64) {
	n := 1 + i%5
	for j := 0; j < n; j++ {
		mz = append(mz, 100+float64(i%1000)+10*float64(j)+0.25)
		intensity = append(intensity, float64(1000*(j+1)+i))
	}
	return mz, intensity
}

func (f fixture) precursorMz(i int) float64 {
	return 400 + float64(i%500) + 0.5
}

func (f fixture) chromatogramID(i int) string {
	if i == 0 {
		return "TIC"
	}
	return fmt.Sprintf("SRM SIC Q1=%d.5 Q3=%d.25", 500+i, 300+i)
}

func (f fixture) label() string {
	if f.msLabel == "" {
		return "MS"
	}
	return f.msLabel
}

type fixtureWriter struct {
	bytes.Buffer
	f   fixture
	err error
}

func (w *fixtureWriter) printf(format string, args ...any) {
	fmt.Fprintf(&w.Buffer, format, args...)
}

// cvParam writes an MS cvParam, with an optional unit ("UO:0000010 second")
func (w *fixtureWriter) cvParam(accession, name, value, unit string) {
	w.printf(`<cvParam cvRef="%s" accession="%s" name="%s" value="%s"`, w.f.label(), accession, name, value)
	if unit != "" {
		acc, unitName, _ := strings.Cut(unit, " ")
		ref, _, _ := strings.Cut(acc, ":")
		if ref == "MS" {
			ref = w.f.label()
		}
		w.printf(` unitCvRef="%s" unitAccession="%s" unitName="%s"`, ref, acc, unitName)
	}
	w.printf("/>\n")
}

func (w *fixtureWriter) arrayParams(role, roleName, unit string) {
	w.cvParam(role, roleName, "", unit)
	if w.f.float32 {
		w.cvParam("MS:1000521", "32-bit float", "", "")
	} else {
		w.cvParam("MS:1000523", "64-bit float", "", "")
	}
	if w.f.zlib {
		w.cvParam("MS:1000574", "zlib compression", "", "")
	} else {
		w.cvParam("MS:1000576", "no compression", "", "")
	}
}

func (w *fixtureWriter) binaryArray(values []float64, role, roleName, unit string, group bool) {
	t, c := codec.Float64, codec.None
	if w.f.float32 {
		t = codec.Float32
	}
	if w.f.zlib {
		c = codec.Zlib
	}
	enc, err := codec.EncodeString(values, t, c)
	if err != nil && w.err == nil {
		w.err = err
	}
	w.printf(`<binaryDataArray encodedLength="%d">`+"\n", len(enc))
	if group {
		w.printf(`<referenceableParamGroupRef ref="mzArrayParams"/>` + "\n")
	} else {
		w.arrayParams(role, roleName, unit)
	}
	w.printf("<binary>%s</binary>\n</binaryDataArray>\n", enc)
}

func (f fixture) bytes() ([]byte, error) {
	w := &fixtureWriter{f: f}
	w.printf(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	if f.indexed {
		w.printf(`<indexedmzML xmlns="http://psi.hupo.org/ms/mzml" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">` + "\n")
	}
	version := "1.1.0"
	if f.legacy {
		version = "1.0.0"
	}
	w.printf(`<mzML xmlns="http://psi.hupo.org/ms/mzml" id="fixture" version="%s">`+"\n", version)
	cvs := 2
	if f.privateCV {
		cvs++
	}
	w.printf(`<cvList count="%d">`+"\n", cvs)
	w.printf(`<cv id="%s" fullName="Proteomics Standards Initiative Mass Spectrometry Ontology" version="4.1.30" URI="%s"/>`+"\n", f.label(), msURI)
	w.printf(`<cv id="UO" fullName="Unit Ontology" version="09:04:2014" URI="%s"/>`+"\n", uoURI)
	if f.privateCV {
		w.printf(`<cv id="PRIV" fullName="Vendor private terms" version="1" URI="http://vendor.example.com/cv/private.obo"/>` + "\n")
	}
	w.printf("</cvList>\n<fileDescription>\n<fileContent>\n")
	w.cvParam("MS:1000579", "MS1 spectrum", "", "")
	w.cvParam("MS:1000580", "MSn spectrum", "", "")
	w.printf("</fileContent>\n" + `<sourceFileList count="1">` + "\n" +
		`<sourceFile id="RAW1" name="run1.raw" location="file:///data">` + "\n")
	w.cvParam("MS:1000768", "Thermo nativeID format", "", "")
	w.cvParam("MS:1000563", "Thermo RAW format", "", "")
	w.printf("</sourceFile>\n</sourceFileList>\n</fileDescription>\n")
	if f.groups {
		w.printf(`<referenceableParamGroupList count="1">` + "\n" + `<referenceableParamGroup id="mzArrayParams">` + "\n")
		w.arrayParams("MS:1000514", "m/z array", "MS:1000040 m/z")
		w.printf("</referenceableParamGroup>\n</referenceableParamGroupList>\n")
	}
	w.printf(`<softwareList count="1">` + "\n" + `<software id="pwiz" version="3.0.1">` + "\n")
	w.cvParam("MS:1000615", "ProteoWizard software", "", "")
	w.printf("</software>\n</softwareList>\n")
	w.printf(`<instrumentConfigurationList count="1">` + "\n" + `<instrumentConfiguration id="IC1">` + "\n")
	w.cvParam("MS:1001911", "Q Exactive", "", "")
	w.printf(`<componentList count="3">` + "\n" + `<source order="1">` + "\n")
	w.cvParam("MS:1000073", "electrospray ionization", "", "")
	w.printf("</source>\n" + `<analyzer order="2">` + "\n")
	w.cvParam("MS:1000484", "orbitrap", "", "")
	w.printf("</analyzer>\n" + `<detector order="3">` + "\n")
	w.cvParam("MS:1000624", "inductive detector", "", "")
	w.printf("</detector>\n</componentList>\n" + `<softwareRef ref="pwiz"/>` + "\n")
	w.printf("</instrumentConfiguration>\n</instrumentConfigurationList>\n")
	w.printf(`<dataProcessingList count="1">` + "\n" + `<dataProcessing id="pwiz_conversion">` + "\n" +
		`<processingMethod order="0" softwareRef="pwiz">` + "\n")
	w.cvParam("MS:1000544", "Conversion to mzML", "", "")
	w.printf("</processingMethod>\n</dataProcessing>\n</dataProcessingList>\n")
	w.printf(`<run id="run1" defaultInstrumentConfigurationRef="IC1" startTimeStamp="2024-03-05T10:20:30Z" defaultSourceFileRef="RAW1">` + "\n")

	var spectrumOffsets, chromatogramOffsets []int
	var tic []float64
	if f.spectra > 0 {
		w.printf(`<spectrumList count="%d" defaultDataProcessingRef="pwiz_conversion">`+"\n", f.spectra)
	}
	for i := 0; i < f.spectra; i++ {
		spectrumOffsets = append(spectrumOffsets, w.Len())
		mz, intensity := f.peaks(i)
		var sum float64
		for _, v := range intensity {
			sum += v
		}
		tic = append(tic, sum)
		if f.legacy {
			w.printf(`<spectrum index="%d" id="S%d" nativeID="%s" defaultArrayLength="%d">`+"\n", i, i, f.nativeID(i), len(mz))
		} else {
			w.printf(`<spectrum index="%d" id="%s" defaultArrayLength="%d">`+"\n", i, f.nativeID(i), len(mz))
		}
		level := f.msLevel(i)
		w.cvParam("MS:1000511", "ms level", fmt.Sprint(level), "")
		if level == 1 {
			w.cvParam("MS:1000579", "MS1 spectrum", "", "")
		} else {
			w.cvParam("MS:1000580", "MSn spectrum", "", "")
		}
		w.cvParam("MS:1000127", "centroid spectrum", "", "")
		w.cvParam("MS:1000130", "positive scan", "", "")
		w.cvParam("MS:1000285", "total ion current", fmt.Sprint(sum), "")
		if f.privateCV {
			w.printf(`<cvParam cvRef="PRIV" accession="PRIV:0000001" name="lamp voltage" value="%d"/>`+"\n", i)
		}
		w.printf(`<userParam name="fixture spectrum" value="%d" type="xsd:int"/>`+"\n", i)
		w.printf(`<scanList count="1">` + "\n")
		w.cvParam("MS:1000795", "no combination", "", "")
		w.printf(`<scan instrumentConfigurationRef="IC1">` + "\n")
		w.cvParam("MS:1000016", "scan start time", fmt.Sprint(f.rt(i)), "UO:0000010 second")
		w.cvParam("MS:1000512", "filter string", "FTMS + p NSI Full ms", "")
		w.cvParam("MS:1000927", "ion injection time", "12.5", "UO:0000028 millisecond")
		w.printf(`<scanWindowList count="1">` + "\n" + "<scanWindow>\n")
		w.cvParam("MS:1000501", "scan window lower limit", "100", "MS:1000040 m/z")
		w.cvParam("MS:1000500", "scan window upper limit", "2000", "MS:1000040 m/z")
		w.printf("</scanWindow>\n</scanWindowList>\n</scan>\n</scanList>\n")
		if level == 2 {
			w.printf(`<precursorList count="1">`+"\n"+`<precursor spectrumRef="%s">`+"\n<isolationWindow>\n", f.nativeID(i-i%4))
			w.cvParam("MS:1000827", "isolation window target m/z", fmt.Sprint(f.precursorMz(i)), "MS:1000040 m/z")
			w.cvParam("MS:1000828", "isolation window lower offset", "0.75", "MS:1000040 m/z")
			w.cvParam("MS:1000829", "isolation window upper offset", "0.75", "MS:1000040 m/z")
			w.printf("</isolationWindow>\n" + `<selectedIonList count="1">` + "\n<selectedIon>\n")
			w.cvParam("MS:1000744", "selected ion m/z", fmt.Sprint(f.precursorMz(i)), "MS:1000040 m/z")
			w.cvParam("MS:1000041", "charge state", "2", "")
			w.cvParam("MS:1000042", "peak intensity", "5000", "MS:1000131 number of detector counts")
			w.printf("</selectedIon>\n</selectedIonList>\n<activation>\n")
			w.cvParam("MS:1000422", "beam-type collision-induced dissociation", "", "")
			w.cvParam("MS:1000045", "collision energy", "27", "UO:0000266 electronvolt")
			w.printf("</activation>\n</precursor>\n</precursorList>\n")
		}
		w.printf(`<binaryDataArrayList count="2">` + "\n")
		w.binaryArray(mz, "MS:1000514", "m/z array", "MS:1000040 m/z", f.groups)
		w.binaryArray(intensity, "MS:1000515", "intensity array", "MS:1000131 number of detector counts", false)
		w.printf("</binaryDataArrayList>\n</spectrum>\n")
	}
	if f.spectra > 0 {
		w.printf("</spectrumList>\n")
	}
	if f.chromatograms > 0 {
		w.printf(`<chromatogramList count="%d" defaultDataProcessingRef="pwiz_conversion">`+"\n", f.chromatograms)
	}
	for i := 0; i < f.chromatograms; i++ {
		chromatogramOffsets = append(chromatogramOffsets, w.Len())
		var times, values []float64
		if i == 0 {
			for j := 0; j < f.spectra; j++ {
				times = append(times, f.rt(j)/60)
			}
			values = tic
		} else {
			times = []float64{0.5, 1, 1.5}
			values = []float64{10, float64(20 * i), 30}
		}
		w.printf(`<chromatogram index="%d" id="%s" defaultArrayLength="%d">`+"\n", i, f.chromatogramID(i), len(times))
		if i == 0 {
			w.cvParam("MS:1000235", "total ion current chromatogram", "", "")
		} else {
			w.cvParam("MS:1001473", "selected reaction monitoring chromatogram", "", "")
			w.printf("<precursor>\n<isolationWindow>\n")
			w.cvParam("MS:1000827", "isolation window target m/z", fmt.Sprintf("%d.5", 500+i), "MS:1000040 m/z")
			w.printf("</isolationWindow>\n<activation>\n")
			w.cvParam("MS:1000133", "collision-induced dissociation", "", "")
			w.printf("</activation>\n</precursor>\n<product>\n<isolationWindow>\n")
			w.cvParam("MS:1000827", "isolation window target m/z", fmt.Sprintf("%d.25", 300+i), "MS:1000040 m/z")
			w.printf("</isolationWindow>\n</product>\n")
		}
		w.printf(`<binaryDataArrayList count="2">` + "\n")
		w.binaryArray(times, "MS:1000595", "time array", "UO:0000031 minute", false)
		w.binaryArray(values, "MS:1000515", "intensity array", "MS:1000131 number of detector counts", false)
		w.printf("</binaryDataArrayList>\n</chromatogram>\n")
	}
	if f.chromatograms > 0 {
		w.printf("</chromatogramList>\n")
	}
	w.printf("</run>\n</mzML>\n")
	if f.indexed {
		if !f.dropIndex {
			listOffset := w.Len()
			w.printf(`<indexList count="2">` + "\n")
			index := func(name string, offsets []int, id func(int) string) {
				w.printf(`<index name="%s">`+"\n", name)
				for i, off := range offsets {
					switch {
					case f.corruptIndex:
						off = offsets[0]
					case f.swapIndex && name == "spectrum" && (i == 1 || i == 2):
						off = offsets[3-i]
					}
					switch {
					case f.legacy && name == "spectrum" && f.bareIDRef:
						w.printf(`<offset idRef="S%d">%d</offset>`+"\n", i, off)
					case f.legacy && name == "spectrum":
						w.printf(`<offset idRef="S%d" nativeID="%s">%d</offset>`+"\n", i, id(i), off)
					default:
						w.printf(`<offset idRef="%s">%d</offset>`+"\n", id(i), off)
					}
				}
				w.printf("</index>\n")
			}
			index("spectrum", spectrumOffsets, f.nativeID)
			index("chromatogram", chromatogramOffsets, f.chromatogramID)
			w.printf("</indexList>\n<indexListOffset>%d</indexListOffset>\n", listOffset)
		}
		w.printf("<fileChecksum>0000000000000000000000000000000000000000</fileChecksum>\n</indexedmzML>\n")
	}
	return w.Bytes(), w.err
}

// write stores the document in a new directory under name. The suffix of
// name selects gzip or xz compression.
func (f fixture) write(t testing.TB, name string) string {
	t.Helper()
	doc, err := f.bytes()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), name)
	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz":
		z := gzip.NewWriter(out)
		_, err = z.Write(doc)
		require.NoError(t, err)
		require.NoError(t, z.Close())
	case ".xz":
		z, err := xz.NewWriter(out)
		require.NoError(t, err)
		_, err = z.Write(doc)
		require.NoError(t, err)
		require.NoError(t, z.Close())
	default:
		_, err = out.Write(doc)
		require.NoError(t, err)
	}
	require.NoError(t, out.Close())
	return path
}

func quietLog() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return l
}

func open(t testing.TB, path string, opts Options) *Reader {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLog()
	}
	r, err := Open(path, opts)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}
