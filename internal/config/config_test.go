package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	c, err := Parse([]byte(`
random_access: false
reduce_memory: "true"
index_cache: /var/cache/mzread
log_level: debug
`))
	require.NoError(t, err)
	assert.False(t, c.RandomAccess)
	assert.Equal(t, ReduceMemoryOn, c.ReduceMemory)
	assert.True(t, c.IncludePeaks)
	assert.Equal(t, "/var/cache/mzread", c.IndexCache)
	l, err := c.Level()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, l)
}

func TestParseDefaults(t *testing.T) {
	c, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{
		`reduce_memory: sometimes`,
		`log_level: loud`,
		`no_such_key: 1`,
	} {
		_, err := Parse([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mzread.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reduce_memory: \"false\"\n"), 0o644))
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ReduceMemoryOff, c.ReduceMemory)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReduceMemoryFor(t *testing.T) {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	c := Default()
	c.ReduceMemory = ReduceMemoryOn
	assert.True(t, c.ReduceMemoryFor(1, log))
	c.ReduceMemory = ReduceMemoryOff
	assert.False(t, c.ReduceMemoryFor(1<<62, log))
	c.ReduceMemory = ReduceMemoryAuto
	assert.False(t, c.ReduceMemoryFor(1, log))
	assert.True(t, c.ReduceMemoryFor(1<<62, log))
}
