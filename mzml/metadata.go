package mzml

import (
	"slices"
	"time"

	"github.com/524D/mzread/cv"
)

// SourceFile is a file the document was converted from
type SourceFile struct {
	ID       string
	Name     string
	Location string
	Params   ParamSet
}

// Software used to produce or process the document
type Software struct {
	ID      string
	Version string
	// Term is the software term, cv.Unknown if none is given
	Term   cv.Term
	Params ParamSet
}

// ComponentKind is the role of an instrument component
type ComponentKind int

const (
	Source ComponentKind = iota
	Analyzer
	Detector
)

func (k ComponentKind) String() string {
	switch k {
	case Analyzer:
		return "analyzer"
	case Detector:
		return "detector"
	}
	return "source"
}

// Component is a source, analyzer or detector of an instrument
type Component struct {
	Kind   ComponentKind
	Order  int
	Params ParamSet
}

// InstrumentConfiguration describes one instrument setup
type InstrumentConfiguration struct {
	ID string
	// Model is the instrument model term, cv.Unknown if none is given
	Model       cv.Term
	Components  []Component
	SoftwareRef string
	Params      ParamSet
}

// Analyzers returns the mass analyzer terms, in component order
func (ic *InstrumentConfiguration) Analyzers() []cv.Term {
	var t []cv.Term
	for _, c := range ic.Components {
		if c.Kind != Analyzer {
			continue
		}
		for _, p := range c.Params.CV {
			if p.Term.Known() {
				t = append(t, p.Term)
			}
		}
	}
	return t
}

// ProcessingMethod is one step of a DataProcessing
type ProcessingMethod struct {
	Order       int
	SoftwareRef string
	Params      ParamSet
}

// DataProcessing lists the processing applied to the data
type DataProcessing struct {
	ID      string
	Methods []ProcessingMethod
}

// metadata is the file level information, built from the header on first
// use
type metadata struct {
	fileContent    ParamSet
	sourceFiles    []SourceFile
	software       []Software
	instruments    []InstrumentConfiguration
	dataProcessing []DataProcessing
	startTimeStamp time.Time
	hasStartTime   bool
}

var timeStampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05Z0700",
}

func (d *decoder) metadata(h *header) *metadata {
	m := &metadata{fileContent: d.params(&h.fileDescription.FileContent.xmlParams)}
	for i := range h.fileDescription.SourceFiles {
		x := &h.fileDescription.SourceFiles[i]
		m.sourceFiles = append(m.sourceFiles, SourceFile{
			ID:       x.ID,
			Name:     x.Name,
			Location: x.Location,
			Params:   d.params(&x.xmlParams),
		})
	}
	for i := range h.software {
		m.software = append(m.software, d.software(&h.software[i]))
	}
	for i := range h.instruments {
		m.instruments = append(m.instruments, d.instrument(&h.instruments[i]))
	}
	for _, x := range h.dataProcessing {
		dp := DataProcessing{ID: x.ID}
		for i := range x.Methods {
			pm := &x.Methods[i]
			ref := pm.SoftwareRef
			if ref == "" {
				ref = x.SoftwareRef
			}
			dp.Methods = append(dp.Methods, ProcessingMethod{
				Order:       pm.Order,
				SoftwareRef: ref,
				Params:      d.params(&pm.xmlParams),
			})
		}
		m.dataProcessing = append(m.dataProcessing, dp)
	}
	if h.startTimeStamp != "" {
		for _, layout := range timeStampLayouts {
			if t, err := time.Parse(layout, h.startTimeStamp); err == nil {
				m.startTimeStamp, m.hasStartTime = t, true
				break
			}
		}
	}
	return m
}

func (d *decoder) software(x *xmlSoftware) Software {
	s := Software{ID: x.ID, Version: x.Version, Params: d.params(&x.xmlParams)}
	for _, sp := range x.SoftwareParam {
		ref := sp.CvRef
		if ref == "" {
			ref = sp.CvLabel
		}
		s.Params.CV = append(s.Params.CV, CVParam{
			Term:      d.term(ref, sp.Accession),
			Accession: sp.Accession,
			Name:      sp.Name,
			Value:     sp.Value,
		})
		if s.Version == "" {
			s.Version = sp.Version
		}
	}
	if p, ok := d.find(s.Params, cv.Software); ok {
		s.Term = p.Term
	}
	return s
}

func (d *decoder) instrument(x *xmlInstrumentConfiguration) InstrumentConfiguration {
	ic := InstrumentConfiguration{
		ID:          x.ID,
		SoftwareRef: x.SoftwareRef.Ref,
		Params:      d.params(&x.xmlParams),
	}
	if p, ok := d.find(ic.Params, cv.InstrumentModel); ok {
		ic.Model = p.Term
	}
	for _, l := range []struct {
		kind       ComponentKind
		components []xmlComponent
	}{{Source, x.Sources}, {Analyzer, x.Analyzers}, {Detector, x.Detectors}} {
		for i := range l.components {
			ic.Components = append(ic.Components, Component{
				Kind:   l.kind,
				Order:  l.components[i].Order,
				Params: d.params(&l.components[i].xmlParams),
			})
		}
	}
	slices.SortStableFunc(ic.Components, func(a, b Component) int {
		return a.Order - b.Order
	})
	return ic
}
