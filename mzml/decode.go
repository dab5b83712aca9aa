package mzml

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/524D/mzread/cv"
	"github.com/524D/mzread/internal/codec"
	"github.com/524D/mzread/internal/offsetindex"
)

// decoder turns record elements into records. It holds the per-document
// state needed for that: the CV label translation and the param groups.
type decoder struct {
	reg    *cv.Registry
	refs   *cv.RefMap
	groups map[string]xmlParams
	legacy bool
}

func newDecoder(reg *cv.Registry, h *header) *decoder {
	return &decoder{
		reg:    reg,
		refs:   cv.NewRefMap(reg, h.cvs),
		groups: h.groups,
		legacy: h.legacy,
	}
}

func (d *decoder) term(cvRef, accession string) cv.Term {
	if accession == "" {
		return cv.Unknown
	}
	return d.refs.Resolve(d.reg, cvRef, accession)
}

// params resolves the params of an element. Params of referenced groups
// come first; unknown group references are ignored.
func (d *decoder) params(x *xmlParams) ParamSet {
	var p ParamSet
	for _, r := range x.Refs {
		if g, ok := d.groups[r.Ref]; ok {
			d.appendParams(&p, &g)
		}
	}
	d.appendParams(&p, x)
	return p
}

func (d *decoder) appendParams(p *ParamSet, x *xmlParams) {
	for _, c := range x.CvPar {
		ref := c.CvRef
		if ref == "" {
			ref = c.CvLabel
		}
		p.CV = append(p.CV, CVParam{
			Term:      d.term(ref, c.Accession),
			Accession: c.Accession,
			Name:      c.Name,
			Value:     c.Value,
			Unit:      d.term(c.UnitCvRef, c.UnitAccession),
			UnitName:  c.UnitName,
		})
	}
	for _, u := range x.UserPar {
		p.User = append(p.User, UserParam{
			Name:     u.Name,
			Value:    u.Value,
			Type:     u.Type,
			Unit:     d.term(u.UnitCvRef, u.UnitAccession),
			UnitName: u.UnitName,
		})
	}
}

// find returns the first param whose term is ancestor or one of its
// descendants
func (d *decoder) find(p ParamSet, ancestor string) (CVParam, bool) {
	for _, c := range p.CV {
		if d.reg.IsA(c.Term, ancestor) {
			return c, true
		}
	}
	return CVParam{}, false
}

func (d *decoder) nativeID(id, legacyID string) string {
	if d.legacy && legacyID != "" {
		return legacyID
	}
	return id
}

func (d *decoder) spectrum(x *xmlSpectrum, seq int, peaks bool) (*Spectrum, error) {
	id := d.nativeID(x.ID, x.NativeID)
	if id == "" {
		return nil, fmt.Errorf("%w: spectrum %d has no id", ErrMalformedDocument, seq)
	}
	s := &Spectrum{
		Index:              seq,
		NativeID:           id,
		DefaultArrayLength: x.DefaultArrayLength,
		TotalIonCurrent:    math.NaN(),
		RetentionTime:      math.NaN(),
		IonInjectionTime:   math.NaN(),
		Params:             d.params(&x.xmlParams),
	}
	s.VendorScan, _ = offsetindex.ScanNumber(id)

	precursors := x.PrecursorList
	var scan *xmlScan
	if x.ScanList != nil && len(x.ScanList.Scan) > 0 {
		// Combined acquisitions are reduced to the first scan
		scan = &x.ScanList.Scan[0]
	}
	if x.Description != nil {
		desc := d.params(&x.Description.xmlParams)
		s.Params.CV = append(s.Params.CV, desc.CV...)
		s.Params.User = append(s.Params.User, desc.User...)
		if scan == nil {
			scan = x.Description.Scan
		}
		if len(precursors) == 0 {
			precursors = x.Description.PrecursorList
		}
	}

	s.MSLevel = 1 // If nothing else, guess it's MS1
	if v, ok := s.Params.Get(cv.MSLevel); ok {
		if l, err := strconv.Atoi(strings.TrimSpace(v.Value)); err == nil {
			s.MSLevel = l
		}
	}
	s.Centroid = s.Params.Has(cv.CentroidSpectrum)
	if v, ok := s.Params.Float(cv.TotalIonCurrent); ok {
		s.TotalIonCurrent = v
	}
	s.Polarity = d.polarity(s.Params)

	if scan != nil {
		s.ScanParams = d.params(&scan.xmlParams)
		d.fillScan(s, scan)
	}
	for i := range precursors {
		s.Precursors = append(s.Precursors, d.precursor(&precursors[i]))
	}
	if !peaks {
		return s, nil
	}

	arrays, err := d.arrays(x.BinaryDataArrayList, x.DefaultArrayLength)
	if err != nil {
		return nil, fmt.Errorf("spectrum %q: %w", id, err)
	}
	for _, a := range arrays {
		switch a.role.ID {
		case cv.MzArray:
			s.Mz = a.values
		case cv.IntensityArray:
			s.Intensity = a.values
		default:
			if s.Arrays == nil {
				s.Arrays = make(map[string][]float64)
			}
			s.Arrays[a.name] = a.values
		}
	}
	return s, nil
}

func (d *decoder) polarity(p ParamSet) Polarity {
	switch {
	case p.Has(cv.PositiveScan):
		return Positive
	case p.Has(cv.NegativeScan):
		return Negative
	}
	return UnknownPolarity
}

// fillScan copies the scan attributes of the first scan into s
func (d *decoder) fillScan(s *Spectrum, scan *xmlScan) {
	p := s.ScanParams
	if c, ok := p.Get(cv.ScanStartTime); ok {
		t, err := strconv.ParseFloat(c.Value, 64)
		f, known := minutesPerUnit(c.Unit.ID)
		if err == nil && known {
			s.RetentionTime = t * f
		}
	}
	if c, ok := p.Get(cv.IonInjectionTime); ok {
		if t, err := strconv.ParseFloat(c.Value, 64); err == nil {
			// Always milliseconds in practice
			if c.Unit.ID == cv.UnitSecond {
				t *= 1000
			}
			s.IonInjectionTime = t
		}
	}
	if c, ok := p.Get(cv.FilterString); ok {
		s.FilterString = c.Value
	}
	if s.Polarity == UnknownPolarity {
		s.Polarity = d.polarity(p)
	}
	windows := scan.ScanWindows
	if len(windows) == 0 {
		windows = scan.SelectionWindows
	}
	for i := range windows {
		wp := d.params(&windows[i].xmlParams)
		w := ScanWindow{Lower: math.NaN(), Upper: math.NaN()}
		if v, ok := wp.Float(cv.ScanWindowLowerLimit); ok {
			w.Lower = v
		}
		if v, ok := wp.Float(cv.ScanWindowUpperLimit); ok {
			w.Upper = v
		}
		s.ScanWindows = append(s.ScanWindows, w)
	}
}

func (d *decoder) precursor(x *xmlPrecursor) Precursor {
	p := Precursor{
		SpectrumRef: x.SpectrumRef,
		Activation:  Activation{CollisionEnergy: math.NaN()},
	}
	if x.IsolationWindow != nil {
		w := d.isolationWindow(x.IsolationWindow)
		p.IsolationWindow = &w
	}
	for i := range x.SelectedIons {
		ip := d.params(&x.SelectedIons[i].xmlParams)
		ion := SelectedIon{Mz: math.NaN(), Intensity: math.NaN(), Params: ip}
		if v, ok := ip.Float(cv.SelectedIonMz); ok {
			ion.Mz = v
		}
		if c, ok := ip.Get(cv.ChargeState); ok {
			ion.Charge, _ = strconv.Atoi(strings.TrimSpace(c.Value))
		}
		if v, ok := ip.Float(cv.PeakIntensity); ok {
			ion.Intensity = v
		}
		p.SelectedIons = append(p.SelectedIons, ion)
	}
	if x.Activation != nil {
		ap := d.params(&x.Activation.xmlParams)
		p.Activation.Params = ap
		for _, c := range ap.CV {
			if d.reg.IsDescendantOf(c.Term, d.reg.Term(cv.DissociationMethod)) {
				p.Activation.Methods = append(p.Activation.Methods, c.Term)
			}
		}
		if v, ok := ap.Float(cv.CollisionEnergy); ok {
			p.Activation.CollisionEnergy = v
		}
	}
	return p
}

func (d *decoder) isolationWindow(x *xmlParamElement) IsolationWindow {
	p := d.params(&x.xmlParams)
	w := IsolationWindow{Target: math.NaN(), LowerOffset: math.NaN(), UpperOffset: math.NaN(), Params: p}
	if v, ok := p.Float(cv.IsolationWindowTarget); ok {
		w.Target = v
	}
	if v, ok := p.Float(cv.IsolationWindowLower); ok {
		w.LowerOffset = v
	}
	if v, ok := p.Float(cv.IsolationWindowUpper); ok {
		w.UpperOffset = v
	}
	return w
}

func (d *decoder) chromatogram(x *xmlChromatogram, seq int, peaks bool) (*Chromatogram, error) {
	id := d.nativeID(x.ID, x.NativeID)
	if id == "" {
		return nil, fmt.Errorf("%w: chromatogram %d has no id", ErrMalformedDocument, seq)
	}
	c := &Chromatogram{
		Index:              seq,
		ID:                 id,
		DefaultArrayLength: x.DefaultArrayLength,
		Params:             d.params(&x.xmlParams),
	}
	if x.Precursor != nil {
		p := d.precursor(x.Precursor)
		c.Precursor = &p
	}
	if x.Product != nil && x.Product.IsolationWindow != nil {
		w := d.isolationWindow(x.Product.IsolationWindow)
		c.Product = &w
	}
	// The time unit is needed without peaks too
	for i := range x.BinaryDataArrayList {
		a := &x.BinaryDataArrayList[i]
		if t, ok := d.find(d.params(&a.xmlParams), cv.TimeArray); ok {
			c.TimeUnit = t.Unit
			break
		}
	}
	if !peaks {
		return c, nil
	}

	arrays, err := d.arrays(x.BinaryDataArrayList, x.DefaultArrayLength)
	if err != nil {
		return nil, fmt.Errorf("chromatogram %q: %w", id, err)
	}
	for _, a := range arrays {
		switch a.role.ID {
		case cv.TimeArray:
			c.Time = a.values
		case cv.IntensityArray:
			c.Intensity = a.values
		default:
			if c.Arrays == nil {
				c.Arrays = make(map[string][]float64)
			}
			c.Arrays[a.name] = a.values
		}
	}
	return c, nil
}

// binaryArray is a decoded <binaryDataArray>
type binaryArray struct {
	role   cv.Term
	name   string
	values []float64
}

// arrays decodes the binary data arrays of a record. Arrays without a
// known role or with a non-numeric type are left out.
func (d *decoder) arrays(list []xmlBinaryDataArray, defaultLength int) ([]binaryArray, error) {
	var out []binaryArray
	for i := range list {
		x := &list[i]
		a, t, c, ok, err := d.binaryDataPars(x)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		n := defaultLength
		if x.ArrayLength != "" {
			if n, err = strconv.Atoi(strings.TrimSpace(x.ArrayLength)); err != nil {
				return nil, fmt.Errorf("%w: arrayLength %q", ErrMalformedDocument, x.ArrayLength)
			}
		}
		a.values, err = codec.DecodeString(x.Binary, t, n, c)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", a.name, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// binaryDataPars classifies the CV params of a binary data array by
// their place in the ontology: array role, binary data type and
// compression. Without a type param the data is 64-bit float; without a
// compression param it is uncompressed.
func (d *decoder) binaryDataPars(x *xmlBinaryDataArray) (a binaryArray, t codec.DataType, c codec.Compression, ok bool, err error) {
	t, c = codec.Float64, codec.None
	numeric := true
	for _, p := range d.params(&x.xmlParams).CV {
		switch {
		case d.reg.IsA(p.Term, cv.BinaryDataArray):
			a.role = p.Term
			a.name = p.Term.Name
			if p.Term.ID == cv.NonStandardDataArray && p.Value != "" {
				a.name = p.Value
			}
		case d.reg.IsA(p.Term, cv.BinaryDataType):
			switch p.Term.ID {
			case cv.Float32:
				t = codec.Float32
			case cv.Float64:
				t = codec.Float64
			case cv.Int32:
				t = codec.Int32
			case cv.Int64:
				t = codec.Int64
			default:
				numeric = false
			}
		case d.reg.IsA(p.Term, cv.CompressionType):
			switch p.Term.ID {
			case cv.ZlibCompression:
				c = codec.Zlib
			case cv.NoCompression:
				c = codec.None
			default:
				return a, t, c, false, fmt.Errorf("%w: %s", ErrUnsupportedCompression, p.Term)
			}
		}
	}
	return a, t, c, a.role.Known() && numeric, nil
}
