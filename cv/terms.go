package cv

import (
	"sync"
)

// Accessions used when interpreting mzML records
const (
	BinaryDataArray        = "MS:1000513"
	MzArray                = "MS:1000514"
	IntensityArray         = "MS:1000515"
	ChargeArray            = "MS:1000516"
	SignalToNoiseArray     = "MS:1000517"
	TimeArray              = "MS:1000595"
	NonStandardDataArray   = "MS:1000786"
	BinaryDataType         = "MS:1000518"
	Int32                  = "MS:1000519"
	Float32                = "MS:1000521"
	Int64                  = "MS:1000522"
	Float64                = "MS:1000523"
	CompressionType        = "MS:1000572"
	ZlibCompression        = "MS:1000574"
	NoCompression          = "MS:1000576"
	NumpressLinear         = "MS:1002312"
	NumpressPic            = "MS:1002313"
	NumpressSlof           = "MS:1002314"
	NumpressLinearZlib     = "MS:1002746"
	NumpressPicZlib        = "MS:1002747"
	NumpressSlofZlib       = "MS:1002748"
	MSLevel                = "MS:1000511"
	CentroidSpectrum       = "MS:1000127"
	ProfileSpectrum        = "MS:1000128"
	TotalIonCurrent        = "MS:1000285"
	BasePeakMz             = "MS:1000504"
	BasePeakIntensity      = "MS:1000505"
	ScanStartTime          = "MS:1000016"
	IonInjectionTime       = "MS:1000927"
	FilterString           = "MS:1000512"
	ScanWindowLowerLimit   = "MS:1000501"
	ScanWindowUpperLimit   = "MS:1000500"
	IsolationWindowTarget  = "MS:1000827"
	IsolationWindowLower   = "MS:1000828"
	IsolationWindowUpper   = "MS:1000829"
	SelectedIonMz          = "MS:1000744"
	ChargeState            = "MS:1000041"
	PeakIntensity          = "MS:1000042"
	DissociationMethod     = "MS:1000044"
	CollisionEnergy        = "MS:1000045"
	MassAnalyzerType       = "MS:1000443"
	InstrumentModel        = "MS:1000031"
	IonizationType         = "MS:1000008"
	DetectorType           = "MS:1000026"
	Software               = "MS:1000531"
	ChromatogramType       = "MS:1000626"
	SpectrumType           = "MS:1000559"
	NativeIDFormat         = "MS:1000767"
	ScanPolarity           = "MS:1000465"
	PositiveScan           = "MS:1000130"
	NegativeScan           = "MS:1000129"
	UnitSecond             = "UO:0000010"
	UnitMinute             = "UO:0000031"
	UnitMillisecond        = "UO:0000028"
	UnitMinuteObsolete     = "MS:1000038"
	UnitMz                 = "MS:1000040"
	UnitNumberOfDetections = "MS:1000131"
)

// Source URIs of the vocabularies in the default registry
var defaultVocabularies = []Vocabulary{
	{
		Label:    "MS",
		FullName: "Proteomics Standards Initiative Mass Spectrometry Ontology",
		URIs: []string{
			"https://raw.githubusercontent.com/HUPO-PSI/psi-ms-CV/master/psi-ms.obo",
			"http://psidev.cvs.sourceforge.net/*checkout*/psidev/psi/psi-ms/mzML/controlledVocabulary/psi-ms.obo",
		},
	},
	{
		Label:    "UO",
		FullName: "Unit Ontology",
		URIs: []string{
			"https://raw.githubusercontent.com/bio-ontology-research-group/unit-ontology/master/unit.obo",
			"http://ontologies.berkeleybop.org/uo.obo",
			"http://obo.cvs.sourceforge.net/*checkout*/obo/obo/ontology/phenotype/unit.obo",
		},
	},
	{
		Label:    "UNIMOD",
		FullName: "UNIMOD",
		URIs:     []string{"http://www.unimod.org/obo/unimod.obo"},
	},
	{
		Label:    "PEFF",
		FullName: "PSI Extended FASTA Format",
		URIs:     []string{"https://raw.githubusercontent.com/HUPO-PSI/psi-peff/master/psi-peff.obo"},
	},
}

// The subset of PSI-MS and UO needed to read spectra and chromatograms
var defaultDefinitions = []Definition{
	{ID: "MS:1000513", Name: "binary data array"},
	{ID: "MS:1000514", Name: "m/z array", IsA: []string{"MS:1000513"}},
	{ID: "MS:1000515", Name: "intensity array", IsA: []string{"MS:1000513"}},
	{ID: "MS:1000516", Name: "charge array", IsA: []string{"MS:1000513"}},
	{ID: "MS:1000517", Name: "signal to noise array", IsA: []string{"MS:1000513"}},
	{ID: "MS:1000595", Name: "time array", IsA: []string{"MS:1000513"}},
	{ID: "MS:1000617", Name: "wavelength array", IsA: []string{"MS:1000513"}},
	{ID: "MS:1000786", Name: "non-standard data array", IsA: []string{"MS:1000513"}},
	{ID: "MS:1000820", Name: "flow rate array", IsA: []string{"MS:1000513"}},
	{ID: "MS:1000821", Name: "pressure array", IsA: []string{"MS:1000513"}},
	{ID: "MS:1000822", Name: "temperature array", IsA: []string{"MS:1000513"}},
	{ID: "MS:1002477", Name: "mean ion mobility array", IsA: []string{"MS:1000513"}},
	{ID: "MS:1002893", Name: "ion mobility array", IsA: []string{"MS:1000513"}},
	{ID: "MS:1000518", Name: "binary data type"},
	{ID: "MS:1000519", Name: "32-bit integer", IsA: []string{"MS:1000518"}},
	{ID: "MS:1000521", Name: "32-bit float", IsA: []string{"MS:1000518"}},
	{ID: "MS:1000522", Name: "64-bit integer", IsA: []string{"MS:1000518"}},
	{ID: "MS:1000523", Name: "64-bit float", IsA: []string{"MS:1000518"}},
	{ID: "MS:1001479", Name: "null-terminated ASCII string", IsA: []string{"MS:1000518"}},
	{ID: "MS:1000572", Name: "binary data compression type"},
	{ID: "MS:1000574", Name: "zlib compression", IsA: []string{"MS:1000572"}},
	{ID: "MS:1000576", Name: "no compression", IsA: []string{"MS:1000572"}},
	{ID: "MS:1002312", Name: "MS-Numpress linear prediction compression", IsA: []string{"MS:1000572"}},
	{ID: "MS:1002313", Name: "MS-Numpress positive integer compression", IsA: []string{"MS:1000572"}},
	{ID: "MS:1002314", Name: "MS-Numpress short logged float compression", IsA: []string{"MS:1000572"}},
	{ID: "MS:1002746", Name: "MS-Numpress linear prediction compression followed by zlib compression", IsA: []string{"MS:1000572"}},
	{ID: "MS:1002747", Name: "MS-Numpress positive integer compression followed by zlib compression", IsA: []string{"MS:1000572"}},
	{ID: "MS:1002748", Name: "MS-Numpress short logged float compression followed by zlib compression", IsA: []string{"MS:1000572"}},

	{ID: "MS:1000559", Name: "spectrum type"},
	{ID: "MS:1000579", Name: "MS1 spectrum", IsA: []string{"MS:1000559"}},
	{ID: "MS:1000580", Name: "MSn spectrum", IsA: []string{"MS:1000559"}},
	{ID: "MS:1000525", Name: "spectrum representation"},
	{ID: "MS:1000127", Name: "centroid spectrum", IsA: []string{"MS:1000525"}},
	{ID: "MS:1000128", Name: "profile spectrum", IsA: []string{"MS:1000525"}},
	{ID: "MS:1000499", Name: "spectrum attribute"},
	{ID: "MS:1000511", Name: "ms level", IsA: []string{"MS:1000499"}},
	{ID: "MS:1000285", Name: "total ion current", IsA: []string{"MS:1000499"}},
	{ID: "MS:1000504", Name: "base peak m/z", IsA: []string{"MS:1000499"}},
	{ID: "MS:1000505", Name: "base peak intensity", IsA: []string{"MS:1000499"}},
	{ID: "MS:1000527", Name: "highest observed m/z", IsA: []string{"MS:1000499"}},
	{ID: "MS:1000528", Name: "lowest observed m/z", IsA: []string{"MS:1000499"}},
	{ID: "MS:1000503", Name: "scan attribute"},
	{ID: "MS:1000016", Name: "scan start time", IsA: []string{"MS:1000503"}},
	{ID: "MS:1000927", Name: "ion injection time", IsA: []string{"MS:1000503"}},
	{ID: "MS:1000512", Name: "filter string", IsA: []string{"MS:1000503"}},
	{ID: "MS:1000549", Name: "selection window attribute"},
	{ID: "MS:1000500", Name: "scan window upper limit", IsA: []string{"MS:1000549"}},
	{ID: "MS:1000501", Name: "scan window lower limit", IsA: []string{"MS:1000549"}},
	{ID: "MS:1000570", Name: "spectra combination"},
	{ID: "MS:1000795", Name: "no combination", IsA: []string{"MS:1000570"}},
	{ID: "MS:1000571", Name: "sum of spectra", IsA: []string{"MS:1000570"}},
	{ID: "MS:1000465", Name: "scan polarity"},
	{ID: "MS:1000129", Name: "negative scan", IsA: []string{"MS:1000465"}},
	{ID: "MS:1000130", Name: "positive scan", IsA: []string{"MS:1000465"}},

	{ID: "MS:1000792", Name: "isolation window attribute"},
	{ID: "MS:1000827", Name: "isolation window target m/z", IsA: []string{"MS:1000792"}},
	{ID: "MS:1000828", Name: "isolation window lower offset", IsA: []string{"MS:1000792"}},
	{ID: "MS:1000829", Name: "isolation window upper offset", IsA: []string{"MS:1000792"}},
	{ID: "MS:1000455", Name: "ion selection attribute"},
	{ID: "MS:1000744", Name: "selected ion m/z", IsA: []string{"MS:1000455"}},
	{ID: "MS:1000041", Name: "charge state", IsA: []string{"MS:1000455"}},
	{ID: "MS:1000042", Name: "peak intensity", IsA: []string{"MS:1000455"}},
	{ID: "MS:1000633", Name: "possible charge state", IsA: []string{"MS:1000455"}},
	{ID: "MS:1000510", Name: "precursor activation attribute"},
	{ID: "MS:1000045", Name: "collision energy", IsA: []string{"MS:1000510"}},
	{ID: "MS:1000044", Name: "dissociation method"},
	{ID: "MS:1000133", Name: "collision-induced dissociation", IsA: []string{"MS:1000044"}},
	{ID: "MS:1000422", Name: "beam-type collision-induced dissociation", IsA: []string{"MS:1000133"}},
	{ID: "MS:1002481", Name: "higher energy beam-type collision-induced dissociation", IsA: []string{"MS:1000422"}},
	{ID: "MS:1000250", Name: "electron capture dissociation", IsA: []string{"MS:1000044"}},
	{ID: "MS:1000598", Name: "electron transfer dissociation", IsA: []string{"MS:1000044"}},
	{ID: "MS:1000435", Name: "photodissociation", IsA: []string{"MS:1000044"}},
	{ID: "MS:1002631", Name: "Electron-Transfer/Higher-Energy Collision Dissociation (EThcD)", IsA: []string{"MS:1000044"}},

	{ID: "MS:1000626", Name: "chromatogram type"},
	{ID: "MS:1000235", Name: "total ion current chromatogram", IsA: []string{"MS:1000626"}},
	{ID: "MS:1000627", Name: "selected ion current chromatogram", IsA: []string{"MS:1000626"}},
	{ID: "MS:1000628", Name: "basepeak chromatogram", IsA: []string{"MS:1000626"}},
	{ID: "MS:1001473", Name: "selected reaction monitoring chromatogram", IsA: []string{"MS:1000626"}},

	{ID: "MS:1000031", Name: "instrument model"},
	{ID: "MS:1000483", Name: "Thermo Fisher Scientific instrument model", IsA: []string{"MS:1000031"}},
	{ID: "MS:1000494", Name: "Thermo Scientific instrument model", IsA: []string{"MS:1000483"}},
	{ID: "MS:1001742", Name: "LTQ Orbitrap Velos", IsA: []string{"MS:1000494"}},
	{ID: "MS:1001911", Name: "Q Exactive", IsA: []string{"MS:1000494"}},
	{ID: "MS:1002416", Name: "Orbitrap Fusion", IsA: []string{"MS:1000494"}},
	{ID: "MS:1000121", Name: "SCIEX instrument model", IsA: []string{"MS:1000031"}},
	{ID: "MS:1000126", Name: "Waters instrument model", IsA: []string{"MS:1000031"}},
	{ID: "MS:1000122", Name: "Bruker Daltonics instrument model", IsA: []string{"MS:1000031"}},
	{ID: "MS:1000463", Name: "instrument"},
	{ID: "MS:1000443", Name: "mass analyzer type"},
	{ID: "MS:1000079", Name: "fourier transform ion cyclotron resonance mass spectrometer", IsA: []string{"MS:1000443"}},
	{ID: "MS:1000081", Name: "quadrupole", IsA: []string{"MS:1000443"}},
	{ID: "MS:1000084", Name: "time-of-flight", IsA: []string{"MS:1000443"}},
	{ID: "MS:1000264", Name: "ion trap", IsA: []string{"MS:1000443"}},
	{ID: "MS:1000083", Name: "radial ejection linear ion trap", IsA: []string{"MS:1000264"}},
	{ID: "MS:1000484", Name: "orbitrap", IsA: []string{"MS:1000443"}},
	{ID: "MS:1000008", Name: "ionization type"},
	{ID: "MS:1000073", Name: "electrospray ionization", IsA: []string{"MS:1000008"}},
	{ID: "MS:1000398", Name: "nanoelectrospray", IsA: []string{"MS:1000073"}},
	{ID: "MS:1000075", Name: "matrix-assisted laser desorption ionization", IsA: []string{"MS:1000008"}},
	{ID: "MS:1000026", Name: "detector type"},
	{ID: "MS:1000253", Name: "electron multiplier", IsA: []string{"MS:1000026"}},
	{ID: "MS:1000624", Name: "inductive detector", IsA: []string{"MS:1000026"}},

	{ID: "MS:1000767", Name: "native spectrum identifier format"},
	{ID: "MS:1000768", Name: "Thermo nativeID format", IsA: []string{"MS:1000767"}},
	{ID: "MS:1000769", Name: "Waters nativeID format", IsA: []string{"MS:1000767"}},
	{ID: "MS:1000770", Name: "WIFF nativeID format", IsA: []string{"MS:1000767"}},
	{ID: "MS:1000771", Name: "Bruker/Agilent YEP nativeID format", IsA: []string{"MS:1000767"}},
	{ID: "MS:1000774", Name: "multiple peak list nativeID format", IsA: []string{"MS:1000767"}},
	{ID: "MS:1000776", Name: "scan number only nativeID format", IsA: []string{"MS:1000767"}},
	{ID: "MS:1000777", Name: "spectrum identifier nativeID format", IsA: []string{"MS:1000767"}},
	{ID: "MS:1000561", Name: "data file checksum type"},
	{ID: "MS:1000568", Name: "MD5", IsA: []string{"MS:1000561"}},
	{ID: "MS:1000569", Name: "SHA-1", IsA: []string{"MS:1000561"}},
	{ID: "MS:1000560", Name: "mass spectrometer file format"},
	{ID: "MS:1000563", Name: "Thermo RAW format", IsA: []string{"MS:1000560"}},
	{ID: "MS:1000584", Name: "mzML format", IsA: []string{"MS:1000560"}},

	{ID: "MS:1000531", Name: "software"},
	{ID: "MS:1000615", Name: "ProteoWizard software", IsA: []string{"MS:1000531"}},
	{ID: "MS:1000532", Name: "Xcalibur", IsA: []string{"MS:1000531"}},
	{ID: "MS:1000452", Name: "data transformation"},
	{ID: "MS:1000544", Name: "Conversion to mzML", IsA: []string{"MS:1000452"}},
	{ID: "MS:1000035", Name: "peak picking", IsA: []string{"MS:1000452"}},
	{ID: "MS:1001485", Name: "m/z calibration", IsA: []string{"MS:1000452"}},

	{ID: "MS:1000040", Name: "m/z"},
	{ID: "MS:1000131", Name: "number of detector counts"},
	{ID: "MS:1000038", Name: "minute", Obsolete: true},

	{ID: "UO:0000000", Name: "unit"},
	{ID: "UO:0000003", Name: "time unit", IsA: []string{"UO:0000000"}},
	{ID: "UO:0000010", Name: "second", IsA: []string{"UO:0000003"}},
	{ID: "UO:0000028", Name: "millisecond", IsA: []string{"UO:0000003"}},
	{ID: "UO:0000031", Name: "minute", IsA: []string{"UO:0000003"}},
	{ID: "UO:0000266", Name: "electronvolt", IsA: []string{"UO:0000000"}},
	{ID: "UO:0000187", Name: "percent", IsA: []string{"UO:0000000"}},

	{ID: "UNIMOD:4", Name: "Carbamidomethyl"},
	{ID: "UNIMOD:35", Name: "Oxidation"},
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the built-in registry. It is constructed on first use
// and shared; registries are immutable.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(defaultVocabularies, defaultDefinitions)
	})
	return defaultRegistry
}
