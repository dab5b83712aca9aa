package mzml

import (
	"math"
	"slices"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"github.com/524D/mzread/cv"
)

// CVParam is a controlled vocabulary annotation. Term is cv.Unknown when
// the accession can't be resolved; Accession and Name keep what the file
// says.
type CVParam struct {
	Term      cv.Term
	Accession string
	Name      string
	Value     string
	Unit      cv.Term
	UnitName  string
}

// UserParam is a free text annotation
type UserParam struct {
	Name     string
	Value    string
	Type     string
	Unit     cv.Term
	UnitName string
}

// ParamSet holds the params of one element in file order, including those
// of referenced param groups (which come first).
type ParamSet struct {
	CV   []CVParam
	User []UserParam
}

// Get returns the first CV param with the given accession
func (p ParamSet) Get(accession string) (CVParam, bool) {
	for _, c := range p.CV {
		if c.Term.ID == accession || c.Accession == accession {
			return c, true
		}
	}
	return CVParam{}, false
}

// Has reports whether a CV param with the given accession is present
func (p ParamSet) Has(accession string) bool {
	_, ok := p.Get(accession)
	return ok
}

// Float returns the value of a CV param as a number
func (p ParamSet) Float(accession string) (float64, bool) {
	c, ok := p.Get(accession)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(c.Value, 64)
	return v, err == nil
}

// UserParam returns the first user param with the given name
func (p ParamSet) UserParam(name string) (UserParam, bool) {
	for _, u := range p.User {
		if u.Name == name {
			return u, true
		}
	}
	return UserParam{}, false
}

func (p ParamSet) clone() ParamSet {
	return ParamSet{CV: slices.Clone(p.CV), User: slices.Clone(p.User)}
}

// Peak contains the actual ms peak info
type Peak struct {
	Mz     float64
	Intens float64
}

// Polarity of a scan
type Polarity int

const (
	UnknownPolarity Polarity = iota
	Positive
	Negative
)

func (p Polarity) String() string {
	switch p {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	}
	return "unknown"
}

// Spectrum is one <spectrum> element. Values that the file doesn't
// provide are NaN (floats) or zero.
type Spectrum struct {
	// Index is the 1-based position of the spectrum in the file
	Index      int
	NativeID   string
	VendorScan int // scan number derived from NativeID, 0 if there is none
	MSLevel    int
	Centroid   bool
	Polarity   Polarity

	TotalIonCurrent float64
	// RetentionTime is the scan start time in minutes
	RetentionTime float64
	// IonInjectionTime is in milliseconds
	IonInjectionTime float64
	FilterString     string

	// DefaultArrayLength is the number of peaks, also when the peaks are
	// not read
	DefaultArrayLength int
	Mz                 []float64
	Intensity          []float64
	// Arrays holds other binary arrays by their term name, e.g. "charge array"
	Arrays map[string][]float64

	Precursors  []Precursor
	ScanWindows []ScanWindow
	Params      ParamSet
	// ScanParams are the params of the first <scan>
	ScanParams ParamSet
}

// Peaks returns the m/z and intensity arrays as peaks
func (s *Spectrum) Peaks() []Peak {
	n := min(len(s.Mz), len(s.Intensity))
	p := make([]Peak, n)
	for i := range p {
		p[i] = Peak{Mz: s.Mz[i], Intens: s.Intensity[i]}
	}
	return p
}

// BasePeak returns the most intense peak. ok is false for an empty
// spectrum or one read without peaks.
func (s *Spectrum) BasePeak() (p Peak, ok bool) {
	if len(s.Intensity) == 0 || len(s.Mz) != len(s.Intensity) {
		return Peak{}, false
	}
	i := floats.MaxIdx(s.Intensity)
	return Peak{Mz: s.Mz[i], Intens: s.Intensity[i]}, true
}

// SummedIntensity returns the sum of the intensity array, which is the
// total ion current computed from the peaks
func (s *Spectrum) SummedIntensity() float64 {
	return floats.Sum(s.Intensity)
}

// clone returns a deep copy, without the binary arrays when peaks is false
func (s *Spectrum) clone(peaks bool) *Spectrum {
	c := *s
	c.Params = s.Params.clone()
	c.ScanParams = s.ScanParams.clone()
	c.ScanWindows = slices.Clone(s.ScanWindows)
	c.Precursors = make([]Precursor, len(s.Precursors))
	for i := range s.Precursors {
		c.Precursors[i] = s.Precursors[i].clone()
	}
	c.Mz, c.Intensity, c.Arrays = nil, nil, nil
	if peaks {
		c.Mz = slices.Clone(s.Mz)
		c.Intensity = slices.Clone(s.Intensity)
		c.Arrays = cloneArrays(s.Arrays)
	}
	return &c
}

// ScanWindow is an m/z range of a scan
type ScanWindow struct {
	Lower float64
	Upper float64
}

// Precursor describes the ions selected for fragmentation
type Precursor struct {
	// SpectrumRef is the native id of the precursor spectrum, if given
	SpectrumRef     string
	IsolationWindow *IsolationWindow
	SelectedIons    []SelectedIon
	Activation      Activation
	Params          ParamSet
}

func (p Precursor) clone() Precursor {
	c := p
	if p.IsolationWindow != nil {
		w := p.IsolationWindow.clone()
		c.IsolationWindow = &w
	}
	c.SelectedIons = make([]SelectedIon, len(p.SelectedIons))
	for i, ion := range p.SelectedIons {
		ion.Params = ion.Params.clone()
		c.SelectedIons[i] = ion
	}
	c.Activation.Methods = slices.Clone(p.Activation.Methods)
	c.Activation.Params = p.Activation.Params.clone()
	c.Params = p.Params.clone()
	return c
}

// IsolationWindow is the m/z range isolated around Target. Missing
// values are NaN.
type IsolationWindow struct {
	Target      float64
	LowerOffset float64
	UpperOffset float64
	Params      ParamSet
}

// Bounds returns the isolated m/z range
func (w *IsolationWindow) Bounds() (lower, upper float64) {
	return w.Target - w.LowerOffset, w.Target + w.UpperOffset
}

func (w IsolationWindow) clone() IsolationWindow {
	w.Params = w.Params.clone()
	return w
}

// SelectedIon is a precursor ion. Charge is 0 when unknown, Intensity
// is NaN when unknown.
type SelectedIon struct {
	Mz        float64
	Charge    int
	Intensity float64
	Params    ParamSet
}

// Activation describes how a precursor was fragmented
type Activation struct {
	// Methods are the dissociation method terms
	Methods         []cv.Term
	CollisionEnergy float64 // NaN when not given
	Params          ParamSet
}

// Chromatogram is one <chromatogram> element
type Chromatogram struct {
	// Index is the 1-based position of the chromatogram in the file
	Index              int
	ID                 string
	DefaultArrayLength int
	// Time holds the values of the time array in TimeUnit
	Time      []float64
	TimeUnit  cv.Term
	Intensity []float64
	Arrays    map[string][]float64
	Precursor *Precursor
	Product   *IsolationWindow
	Params    ParamSet
}

func (c *Chromatogram) clone(peaks bool) *Chromatogram {
	n := *c
	n.Params = c.Params.clone()
	if c.Precursor != nil {
		p := c.Precursor.clone()
		n.Precursor = &p
	}
	if c.Product != nil {
		w := c.Product.clone()
		n.Product = &w
	}
	n.Time, n.Intensity, n.Arrays = nil, nil, nil
	if peaks {
		n.Time = slices.Clone(c.Time)
		n.Intensity = slices.Clone(c.Intensity)
		n.Arrays = cloneArrays(c.Arrays)
	}
	return &n
}

// TimeMinutes returns the time array converted to minutes. ok is false
// when the time unit is not known.
func (c *Chromatogram) TimeMinutes() (t []float64, ok bool) {
	f, ok := minutesPerUnit(c.TimeUnit.ID)
	if !ok {
		return nil, false
	}
	t = slices.Clone(c.Time)
	floats.Scale(f, t)
	return t, true
}

func cloneArrays(a map[string][]float64) map[string][]float64 {
	if a == nil {
		return nil
	}
	c := make(map[string][]float64, len(a))
	for k, v := range a {
		c[k] = slices.Clone(v)
	}
	return c
}

// minutesPerUnit returns the factor that converts a time in unit to
// minutes. No unit means seconds.
func minutesPerUnit(unit string) (float64, bool) {
	switch unit {
	case "", cv.UnitSecond:
		return 1.0 / 60, true
	case cv.UnitMinute, cv.UnitMinuteObsolete:
		return 1, true
	case cv.UnitMillisecond:
		return 1.0 / 60000, true
	}
	return math.NaN(), false
}
