// Copyright 2018 Rob Marissen.
// SPDX-License-Identifier: MIT

package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/524D/mzread/internal/config"
	"github.com/524D/mzread/mzml"
)

// Program name and version
const progName = "mzread"

var progVersion = `Unknown`

// Format of output, if it ever changes we should still be able to parse
// output from old versions
const outputFormatVersion = "1.0"

var ErrRangeSpec = errors.New("invalid range specification")

// Command line parameters
type params struct {
	configFile    string
	scan          int     // vendor scan number of spectrum to dump
	index         int     // 1-based position of spectrum to dump
	id            string  // native id of spectrum to dump
	peaks         bool    // include peaks in dumps
	chromatograms bool    // list chromatograms
	rtWindow      string  // retention time window (minutes)
	lowRT         float64 // lower rt window boundary
	upRT          float64 // upper rt window boundary
	logLevel      string
	args          []string // Additional values passed on the command line
}

// summary is the output without a spectrum selection
type summary struct {
	MzReadVersion string
	File          string
	Version       string
	Indexed       bool
	Spectra       int
	Chromatograms int
	RunID         string   `json:",omitempty"`
	StartTime     string   `json:",omitempty"`
	Software      []string `json:",omitempty"`
	Instruments   []string `json:",omitempty"`
	// Spectra and summed TIC inside the RT window, per MS level
	MSLevels map[int]int
	TIC      float64
	RTMin    *float64 `json:",omitempty"`
	RTMax    *float64 `json:",omitempty"`
}

type ionDump struct {
	Mz        *float64 `json:",omitempty"`
	Charge    int      `json:",omitempty"`
	Intensity *float64 `json:",omitempty"`
}

type precursorDump struct {
	SpectrumRef     string    `json:",omitempty"`
	TargetMz        *float64  `json:",omitempty"`
	LowerMz         *float64  `json:",omitempty"`
	UpperMz         *float64  `json:",omitempty"`
	SelectedIons    []ionDump `json:",omitempty"`
	Activation      []string  `json:",omitempty"`
	CollisionEnergy *float64  `json:",omitempty"`
}

type spectrumDump struct {
	Index    int
	NativeID string
	MSLevel  int
	Centroid bool
	Polarity string
	NumPeaks int

	VendorScan       int             `json:",omitempty"`
	RetentionTime    *float64        `json:",omitempty"`
	TotalIonCurrent  *float64        `json:",omitempty"`
	IonInjectionTime *float64        `json:",omitempty"`
	FilterString     string          `json:",omitempty"`
	BasePeak         *mzml.Peak      `json:",omitempty"`
	Precursors       []precursorDump `json:",omitempty"`
	Peaks            []mzml.Peak     `json:",omitempty"`
}

type chromatogramDump struct {
	Index     int
	ID        string
	NumPoints int
	TimeUnit  string    `json:",omitempty"`
	Total     float64   `json:",omitempty"`
	Time      []float64 `json:",omitempty"`
	Intensity []float64 `json:",omitempty"`
}

// Parse string like "-12.01e1:+6" into 2 values, -120.1 and 6.0
// Parameters min and max are the "default" min/max values,
// when a value is not specified (e.g. "-12.01e1:"), the default is assigned
func parseFloat64Range(r string, min float64, max float64) (
	float64, float64, error) {
	re := regexp.MustCompile(`\s*([-+]?[0-9]*\.?[0-9]*([eE][-+]?[0-9]+)?):([-+]?[0-9]*\.?[0-9]*([eE][-+]?[0-9]+)?)`)
	m := re.FindStringSubmatch(r)
	minOut := min
	maxOut := max
	if len(m) >= 2 && m[1] != "" {
		minOut, _ = strconv.ParseFloat(m[1], 64)
		if minOut < min {
			minOut = min
		}
	}
	if len(m) >= 4 && m[3] != "" {
		maxOut, _ = strconv.ParseFloat(m[3], 64)
		if maxOut > max {
			maxOut = max
		}
	}
	var err error
	if minOut > maxOut {
		err = ErrRangeSpec
		minOut = maxOut
	}
	return minOut, maxOut, err
}

// finite returns nil for NaN, which JSON can't represent
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func dumpSpectrum(s *mzml.Spectrum) spectrumDump {
	d := spectrumDump{
		Index:            s.Index,
		NativeID:         s.NativeID,
		VendorScan:       s.VendorScan,
		MSLevel:          s.MSLevel,
		Centroid:         s.Centroid,
		Polarity:         s.Polarity.String(),
		RetentionTime:    finite(s.RetentionTime),
		TotalIonCurrent:  finite(s.TotalIonCurrent),
		IonInjectionTime: finite(s.IonInjectionTime),
		FilterString:     s.FilterString,
		NumPeaks:         s.DefaultArrayLength,
		Peaks:            s.Peaks(),
	}
	if len(d.Peaks) == 0 {
		d.Peaks = nil
	}
	if bp, ok := s.BasePeak(); ok {
		d.BasePeak = &bp
	}
	for _, p := range s.Precursors {
		pd := precursorDump{
			SpectrumRef:     p.SpectrumRef,
			CollisionEnergy: finite(p.Activation.CollisionEnergy),
		}
		if w := p.IsolationWindow; w != nil {
			lower, upper := w.Bounds()
			pd.TargetMz, pd.LowerMz, pd.UpperMz = finite(w.Target), finite(lower), finite(upper)
		}
		for _, ion := range p.SelectedIons {
			pd.SelectedIons = append(pd.SelectedIons, ionDump{
				Mz:        finite(ion.Mz),
				Charge:    ion.Charge,
				Intensity: finite(ion.Intensity),
			})
		}
		for _, m := range p.Activation.Methods {
			pd.Activation = append(pd.Activation, m.Name)
		}
		d.Precursors = append(d.Precursors, pd)
	}
	return d
}

func dumpChromatogram(c *mzml.Chromatogram) chromatogramDump {
	return chromatogramDump{
		Index:     c.Index,
		ID:        c.ID,
		NumPoints: c.DefaultArrayLength,
		TimeUnit:  c.TimeUnit.Name,
		Total:     floats.Sum(c.Intensity),
		Time:      c.Time,
		Intensity: c.Intensity,
	}
}

func writeJSON(out io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n", b)
	return err
}

// readerOptions turns the configuration into reader options for the
// file at path
func readerOptions(cfg config.Config, path string, log logrus.FieldLogger) mzml.Options {
	opts := mzml.Options{
		RandomAccess:  cfg.RandomAccess,
		IndexCacheDir: cfg.IndexCache,
		TempDir:       cfg.TempDir,
		Logger:        log,
	}
	if !cfg.RandomAccess {
		var size int64
		if st, err := os.Stat(path); err == nil {
			size = st.Size()
		}
		opts.ReduceMemory = cfg.ReduceMemoryFor(size, log)
	}
	return opts
}

// selectSpectrum reads the spectrum chosen by -scan, -index or -id
func selectSpectrum(r *mzml.Reader, par params, peaks bool) (*mzml.Spectrum, error) {
	if err := r.EnableRandomAccess(); err != nil {
		return nil, err
	}
	switch {
	case par.id != "":
		return r.SpectrumByID(par.id, peaks)
	case par.index > 0:
		return r.ReadSpectrum(par.index, peaks)
	}
	s, err := r.SpectrumForScan(par.scan, peaks)
	if err == nil && s == nil {
		err = fmt.Errorf("no spectrum with scan number %d", par.scan)
	}
	return s, err
}

func makeSummary(r *mzml.Reader, par params) (summary, error) {
	s := summary{
		MzReadVersion: outputFormatVersion,
		File:          filepath.Base(par.args[0]),
		Version:       r.Version(),
		Indexed:       r.Indexed(),
		RunID:         r.RunID(),
		MSLevels:      make(map[int]int),
	}
	if t, ok := r.StartTimeStamp(); ok {
		s.StartTime = t.Format(time.RFC3339)
	}
	for _, sw := range r.Software() {
		name := sw.ID
		if sw.Term.Known() {
			name = sw.Term.Name
		}
		s.Software = append(s.Software, name+" "+sw.Version)
	}
	for _, ic := range r.Instruments() {
		name := ic.ID
		if ic.Model.Known() {
			name = ic.Model.Name
		}
		s.Instruments = append(s.Instruments, name)
	}

	it, err := r.ReadAllSpectra(false)
	if err != nil {
		return s, err
	}
	var rts, tics []float64
	for it.Next() {
		sp := it.Record()
		s.Spectra++
		if math.IsNaN(sp.RetentionTime) {
			continue
		}
		rts = append(rts, sp.RetentionTime)
		if sp.RetentionTime < par.lowRT || sp.RetentionTime > par.upRT {
			continue
		}
		s.MSLevels[sp.MSLevel]++
		if !math.IsNaN(sp.TotalIonCurrent) {
			tics = append(tics, sp.TotalIonCurrent)
		}
	}
	if err := it.Err(); err != nil {
		return s, err
	}
	if len(rts) > 0 {
		s.RTMin, s.RTMax = finite(floats.Min(rts)), finite(floats.Max(rts))
	}
	s.TIC = floats.Sum(tics)
	s.Chromatograms, err = r.NumChromatograms()
	return s, err
}

// run performs the work selected by the parameters, writing JSON to out
func run(par params, cfg config.Config, out io.Writer, log logrus.FieldLogger) error {
	path := par.args[0]
	r, err := mzml.Open(path, readerOptions(cfg, path, log))
	if err != nil {
		return err
	}
	defer r.Close()

	switch {
	case par.scan > 0 || par.index > 0 || par.id != "":
		s, err := selectSpectrum(r, par, cfg.IncludePeaks)
		if err != nil {
			return err
		}
		return writeJSON(out, dumpSpectrum(s))
	case par.chromatograms:
		it, err := r.ReadAllChromatograms(cfg.IncludePeaks)
		if err != nil {
			return err
		}
		var list []chromatogramDump
		for it.Next() {
			list = append(list, dumpChromatogram(it.Record()))
		}
		if err := it.Err(); err != nil {
			return err
		}
		return writeJSON(out, list)
	}
	start := time.Now()
	s, err := makeSummary(r, par)
	if err != nil {
		return err
	}
	log.WithField("duration", time.Since(start)).Info("summary done")
	return writeJSON(out, s)
}

// sanatizeParams does some checks on parameters
func sanatizeParams(par *params) {
	exeName := filepath.Base(os.Args[0])

	if len(par.args) != 1 {
		fmt.Fprintf(os.Stderr, `Last argument must be name of mzML file.
Type %s --help for usage
`, exeName)
		os.Exit(2)
	}
	var err error
	par.lowRT, par.upRT, err = parseFloat64Range(par.rtWindow,
		-math.MaxFloat64, math.MaxFloat64)
	if err != nil {
		fmt.Fprintf(os.Stderr, `Invalid rt window.
Type %s --help for usage
`, exeName)
		os.Exit(2)
	}
}

// applyFlags lets flags given on the command line override the
// configuration file
func applyFlags(fs *flag.FlagSet, par params, cfg *config.Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "peaks":
			cfg.IncludePeaks = par.peaks
		case "loglevel":
			cfg.LogLevel = par.logLevel
		}
	})
}

func usage() {
	exeName := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr,
		`USAGE:
  %s [options] <mzMLfile>

  This program prints information about an mzML file as JSON. Files
  ending in .gz or .xz are decompressed.

OPTIONS:
`, exeName)
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr,
		`
CONFIGURATION:
  Options not given on the command line are read from a YAML file (-config):
    random_access: true        # build an offset index when opening
    reduce_memory: auto        # true, false or auto; only without random access
    include_peaks: true
    index_cache: ""            # directory of the persistent index cache
    temp_dir: ""               # where compressed files are decompressed
    log_level: warning

USAGE EXAMPLES:
  %s yeast.mzML
    Print counts, software, instruments and retention time range.

  %s -rt 10:20 yeast.mzML.gz
    Idem, but count spectra per MS level between 10 and 20 minutes only.

  %s -scan 2345 -peaks yeast.mzML
    Print spectrum with scan number 2345 including its peaks.
`, exeName, exeName, exeName)
}

func main() {
	var par params

	flag.StringVar(&par.configFile, "config", "",
		"YAML configuration `file`")
	flag.IntVar(&par.scan, "scan", 0,
		"print the spectrum with vendor scan `number`")
	flag.IntVar(&par.index, "index", 0,
		"print the spectrum at 1-based `position`")
	flag.StringVar(&par.id, "id", "",
		"print the spectrum with native `id`")
	flag.BoolVar(&par.peaks, "peaks", true,
		"include peaks and chromatogram data")
	flag.BoolVar(&par.chromatograms, "chromatograms", false,
		"list the chromatograms")
	flag.StringVar(&par.rtWindow, "rt", ":",
		"retention time `range` in minutes for the summary")
	flag.StringVar(&par.logLevel, "loglevel", "",
		"log `level` (panic, fatal, error, warning, info, debug, trace)")
	version := flag.Bool("version", false,
		`Show software version`)
	flag.Usage = usage
	flag.Parse()
	if *version {
		if progVersion == `Unknown` {
			progVersion = `Unknown
Please build this program with script 'build.sh' so that the git version is shown here.`
		}
		fmt.Fprintf(os.Stderr, "%s version %s\n", progName, progVersion)
		return
	}
	par.args = flag.Args()
	sanatizeParams(&par)

	log := logrus.New()
	cfg := config.Default()
	if par.configFile != "" {
		var err error
		if cfg, err = config.Load(par.configFile); err != nil {
			log.Fatal(err)
		}
	}
	applyFlags(flag.CommandLine, par, &cfg)
	level, err := cfg.Level()
	if err != nil {
		log.Fatal(err)
	}
	log.SetLevel(level)

	if err := run(par, cfg, os.Stdout, log.WithField("prog", progName)); err != nil {
		log.Fatal(err)
	}
}
