package mzml

import (
	"encoding/xml"
	"strings"

	"github.com/524D/mzread/cv"
	"github.com/524D/mzread/internal/offsetindex"
)

// header is everything in a document before the first record list
type header struct {
	sawMzML bool
	indexed bool
	version string
	// legacy is set for mzML 1.0 documents, where records carry their
	// native id in a nativeID attribute
	legacy bool

	cvs             []cv.Declaration
	groups          map[string]xmlParams
	fileDescription xmlFileDescription
	software        []xmlSoftware
	instruments     []xmlInstrumentConfiguration
	dataProcessing  []xmlDataProcessing

	runID                 string
	startTimeStamp        string
	defaultInstrumentConf string
	defaultSourceFile     string
}

type headerHandler func(c *cursor, h *header, start *xml.StartElement) error

// headerElements dispatches the elements of the document head. Elements
// not listed are skipped; container elements return without consuming
// their content so the cursor descends into them.
var headerElements = map[string]headerHandler{
	"indexedmzML": func(c *cursor, h *header, start *xml.StartElement) error {
		h.indexed = true
		return nil
	},
	"mzML": func(c *cursor, h *header, start *xml.StartElement) error {
		h.sawMzML = true
		h.version = attr(start, "version")
		h.legacy = strings.HasPrefix(h.version, "1.0")
		return nil
	},
	"cvList": func(c *cursor, h *header, start *xml.StartElement) error {
		var l xmlCVList
		if err := c.decode(&l, start); err != nil {
			return err
		}
		for _, x := range l.CV {
			id := x.ID
			if id == "" {
				id = x.CvLabel
			}
			h.cvs = append(h.cvs, cv.Declaration{ID: id, FullName: x.FullName, Version: x.Version, URI: x.URI})
		}
		return nil
	},
	"fileDescription": func(c *cursor, h *header, start *xml.StartElement) error {
		return c.decode(&h.fileDescription, start)
	},
	"referenceableParamGroupList": func(c *cursor, h *header, start *xml.StartElement) error {
		var l xmlParamGroupList
		if err := c.decode(&l, start); err != nil {
			return err
		}
		for _, g := range l.Groups {
			h.groups[g.ID] = g.xmlParams
		}
		return nil
	},
	"softwareList": func(c *cursor, h *header, start *xml.StartElement) error {
		var l xmlSoftwareList
		if err := c.decode(&l, start); err != nil {
			return err
		}
		h.software = l.Software
		return nil
	},
	"instrumentConfigurationList": func(c *cursor, h *header, start *xml.StartElement) error {
		var l xmlInstrumentConfigurationList
		if err := c.decode(&l, start); err != nil {
			return err
		}
		h.instruments = l.Configurations
		return nil
	},
	"dataProcessingList": func(c *cursor, h *header, start *xml.StartElement) error {
		var l xmlDataProcessingList
		if err := c.decode(&l, start); err != nil {
			return err
		}
		h.dataProcessing = l.DataProcessing
		return nil
	},
	"run": func(c *cursor, h *header, start *xml.StartElement) error {
		h.runID = attr(start, "id")
		h.startTimeStamp = attr(start, "startTimeStamp")
		h.defaultInstrumentConf = attr(start, "defaultInstrumentConfigurationRef")
		h.defaultSourceFile = attr(start, "defaultSourceFileRef")
		return nil
	},
	"spectrumList": func(c *cursor, h *header, start *xml.StartElement) error {
		c.startList(offsetindex.Spectrum, start)
		return nil
	},
	"chromatogramList": func(c *cursor, h *header, start *xml.StartElement) error {
		// No spectra in this document
		c.counts[offsetindex.Spectrum] = 0
		c.startList(offsetindex.Chromatogram, start)
		return nil
	},
}
