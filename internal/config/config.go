// Package config reads the optional YAML configuration of the mzread
// command.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shirou/gopsutil/mem"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// Reduce memory settings
const (
	ReduceMemoryOff  = "false"
	ReduceMemoryOn   = "true"
	ReduceMemoryAuto = "auto"
)

// Files larger than this share of the available memory are read in
// reduced memory mode when ReduceMemory is "auto"
const autoMemoryShare = 4

type Config struct {
	RandomAccess bool   `yaml:"random_access"`
	ReduceMemory string `yaml:"reduce_memory"`
	IncludePeaks bool   `yaml:"include_peaks"`
	IndexCache   string `yaml:"index_cache"`
	TempDir      string `yaml:"temp_dir"`
	LogLevel     string `yaml:"log_level"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		RandomAccess: true,
		ReduceMemory: ReduceMemoryAuto,
		IncludePeaks: true,
		LogLevel:     "warning",
	}
}

// Load reads the configuration file at path. Unset keys keep their
// default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	c, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a YAML configuration
func Parse(data []byte) (Config, error) {
	c := Default()
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return Config{}, err
	}
	c.ReduceMemory = strings.ToLower(strings.TrimSpace(c.ReduceMemory))
	switch c.ReduceMemory {
	case "":
		c.ReduceMemory = ReduceMemoryAuto
	case ReduceMemoryOff, ReduceMemoryOn, ReduceMemoryAuto:
	default:
		return Config{}, fmt.Errorf("reduce_memory: want true, false or auto, got %q", c.ReduceMemory)
	}
	if _, err := c.Level(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Level returns the configured log level
func (c Config) Level() (logrus.Level, error) {
	if c.LogLevel == "" {
		return logrus.WarnLevel, nil
	}
	l, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

// ReduceMemoryFor decides whether a file of the given size is read in
// reduced memory mode. In auto mode a file that would take more than a
// quarter of the available memory is streamed.
func (c Config) ReduceMemoryFor(size int64, log logrus.FieldLogger) bool {
	switch c.ReduceMemory {
	case ReduceMemoryOn:
		return true
	case ReduceMemoryOff:
		return false
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		log.WithError(err).Warn("can't determine available memory, reducing memory use")
		return true
	}
	reduce := uint64(size) > vm.Available/autoMemoryShare
	log.WithFields(logrus.Fields{
		"size":      size,
		"available": vm.Available,
		"reduce":    reduce,
	}).Debug("reduce memory decision")
	return reduce
}
