package mzml

// The parts of an mzML document that are decoded with DecodeElement.
// Elements the reader doesn't use are not mapped and are skipped by the
// XML decoder.

type xmlCVParam struct {
	CvRef         string `xml:"cvRef,attr"`
	CvLabel       string `xml:"cvLabel,attr"` // mzML 1.0
	Accession     string `xml:"accession,attr"`
	Name          string `xml:"name,attr"`
	Value         string `xml:"value,attr"`
	UnitCvRef     string `xml:"unitCvRef,attr"`
	UnitAccession string `xml:"unitAccession,attr"`
	UnitName      string `xml:"unitName,attr"`
}

type xmlUserParam struct {
	Name          string `xml:"name,attr"`
	Value         string `xml:"value,attr"`
	Type          string `xml:"type,attr"`
	UnitCvRef     string `xml:"unitCvRef,attr"`
	UnitAccession string `xml:"unitAccession,attr"`
	UnitName      string `xml:"unitName,attr"`
}

type xmlRef struct {
	Ref string `xml:"ref,attr"`
}

// xmlParams is embedded in every element that can carry params
type xmlParams struct {
	Refs    []xmlRef       `xml:"referenceableParamGroupRef"`
	CvPar   []xmlCVParam   `xml:"cvParam"`
	UserPar []xmlUserParam `xml:"userParam"`
}

// xmlParamElement is an element that only holds params
type xmlParamElement struct {
	xmlParams
}

type xmlCV struct {
	ID       string `xml:"id,attr"`
	CvLabel  string `xml:"cvLabel,attr"` // mzML 1.0
	FullName string `xml:"fullName,attr"`
	Version  string `xml:"version,attr"`
	URI      string `xml:"URI,attr"`
}

type xmlCVList struct {
	CV []xmlCV `xml:"cv"`
}

type xmlFileDescription struct {
	FileContent xmlParamElement   `xml:"fileContent"`
	SourceFiles []xmlSourceFile   `xml:"sourceFileList>sourceFile"`
	Contacts    []xmlParamElement `xml:"contact"`
}

type xmlSourceFile struct {
	ID       string `xml:"id,attr"`
	Name     string `xml:"name,attr"`
	Location string `xml:"location,attr"`
	xmlParams
}

type xmlParamGroup struct {
	ID string `xml:"id,attr"`
	xmlParams
}

type xmlParamGroupList struct {
	Groups []xmlParamGroup `xml:"referenceableParamGroup"`
}

type xmlSoftware struct {
	ID      string `xml:"id,attr"`
	Version string `xml:"version,attr"`
	xmlParams
	// mzML 1.0 keeps the software term in <softwareParam>
	SoftwareParam []struct {
		xmlCVParam
		Version string `xml:"version,attr"`
	} `xml:"softwareParam"`
}

type xmlSoftwareList struct {
	Software []xmlSoftware `xml:"software"`
}

type xmlComponent struct {
	Order int `xml:"order,attr"`
	xmlParams
}

type xmlInstrumentConfiguration struct {
	ID string `xml:"id,attr"`
	xmlParams
	Sources     []xmlComponent `xml:"componentList>source"`
	Analyzers   []xmlComponent `xml:"componentList>analyzer"`
	Detectors   []xmlComponent `xml:"componentList>detector"`
	SoftwareRef xmlRef         `xml:"softwareRef"`
}

type xmlInstrumentConfigurationList struct {
	Configurations []xmlInstrumentConfiguration `xml:"instrumentConfiguration"`
}

type xmlProcessingMethod struct {
	Order       int    `xml:"order,attr"`
	SoftwareRef string `xml:"softwareRef,attr"`
	xmlParams
}

type xmlDataProcessing struct {
	ID          string                `xml:"id,attr"`
	SoftwareRef string                `xml:"softwareRef,attr"` // mzML 1.0
	Methods     []xmlProcessingMethod `xml:"processingMethod"`
}

type xmlDataProcessingList struct {
	DataProcessing []xmlDataProcessing `xml:"dataProcessing"`
}

type xmlSpectrum struct {
	Index              int    `xml:"index,attr"`
	ID                 string `xml:"id,attr"`
	NativeID           string `xml:"nativeID,attr"` // mzML 1.0
	DefaultArrayLength int    `xml:"defaultArrayLength,attr"`
	xmlParams
	ScanList            *xmlScanList            `xml:"scanList"`
	PrecursorList       []xmlPrecursor          `xml:"precursorList>precursor"`
	Description         *xmlSpectrumDescription `xml:"spectrumDescription"`
	BinaryDataArrayList []xmlBinaryDataArray    `xml:"binaryDataArrayList>binaryDataArray"`
}

// xmlSpectrumDescription is the mzML 1.0 wrapper of scan and precursor
// information
type xmlSpectrumDescription struct {
	xmlParams
	Scan          *xmlScan       `xml:"scan"`
	PrecursorList []xmlPrecursor `xml:"precursorList>precursor"`
}

type xmlScanList struct {
	xmlParams
	Scan []xmlScan `xml:"scan"`
}

type xmlScan struct {
	InstrConfRef string `xml:"instrumentConfigurationRef,attr"`
	xmlParams
	ScanWindows []xmlParamElement `xml:"scanWindowList>scanWindow"`
	// mzML 1.0
	SelectionWindows []xmlParamElement `xml:"selectionWindowList>selectionWindow"`
}

type xmlPrecursor struct {
	SpectrumRef     string            `xml:"spectrumRef,attr"`
	IsolationWindow *xmlParamElement  `xml:"isolationWindow"`
	SelectedIons    []xmlParamElement `xml:"selectedIonList>selectedIon"`
	Activation      *xmlParamElement  `xml:"activation"`
}

type xmlProduct struct {
	IsolationWindow *xmlParamElement `xml:"isolationWindow"`
}

type xmlBinaryDataArray struct {
	ArrayLength   string `xml:"arrayLength,attr"`
	EncodedLength int    `xml:"encodedLength,attr"`
	xmlParams
	Binary string `xml:"binary"`
}

type xmlChromatogram struct {
	Index              int    `xml:"index,attr"`
	ID                 string `xml:"id,attr"`
	NativeID           string `xml:"nativeID,attr"` // mzML 1.0
	DefaultArrayLength int    `xml:"defaultArrayLength,attr"`
	xmlParams
	Precursor           *xmlPrecursor        `xml:"precursor"`
	Product             *xmlProduct          `xml:"product"`
	BinaryDataArrayList []xmlBinaryDataArray `xml:"binaryDataArrayList>binaryDataArray"`
}
