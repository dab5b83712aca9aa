// Package indexcache keeps offset indexes of mzML files on disk, so that
// reopening a large file for random access doesn't read or rebuild its
// index.
package indexcache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dchest/siphash"
	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/524D/mzread/internal/offsetindex"
)

const formatVersion = 1

// Fixed siphash keys; the hash identifies files, it is not a secret
const (
	k0 = 0x6d7a726561643031
	k1 = 0x696e646578636163
)

var keyPrefix = []byte("ix/")

// ErrFormat means a cached value can't be decoded
var ErrFormat = errors.New("indexcache: bad cache entry")

// Cache is an offset index store backed by badger
type Cache struct {
	db  *badger.DB
	log logrus.FieldLogger
}

// Open opens (or creates) the cache in dir
func Open(dir string, log logrus.FieldLogger) (*Cache, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	opts.SyncWrites = false
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open index cache %s: %w", dir, err)
	}
	return &Cache{db: db, log: log}, nil
}

// Close releases the cache
func (c *Cache) Close() error {
	return c.db.Close()
}

// Key identifies a file by absolute path, size and modification time.
// A rewritten file gets a new key.
func Key(path string, size int64, modTime time.Time) []byte {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	buf := make([]byte, 0, len(path)+16)
	buf = append(buf, path...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(size))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(modTime.UnixNano()))
	key := append([]byte(nil), keyPrefix...)
	return binary.BigEndian.AppendUint64(key, siphash.Hash(k0, k1, buf))
}

// Get returns the index stored under key. ok is false when there is none.
func (c *Cache) Get(key []byte) (ix *offsetindex.Index, ok bool, err error) {
	var val []byte
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		c.log.WithField("key", fmt.Sprintf("%x", key)).Debug("index cache miss")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	ix, err = Unmarshal(val)
	if err != nil {
		return nil, false, err
	}
	c.log.WithField("key", fmt.Sprintf("%x", key)).Debug("index cache hit")
	return ix, true, nil
}

// Put stores ix under key
func (c *Cache) Put(key []byte, ix *offsetindex.Index) error {
	val := Marshal(ix)
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

// Wire format (protobuf encoding, no schema file):
//
//	1: version (varint)
//	2: spectrum entry (bytes), repeated
//	3: chromatogram entry (bytes), repeated
//
// An entry is 1: native id (bytes), 2: offset (varint).
const (
	fieldVersion      protowire.Number = 1
	fieldSpectrum     protowire.Number = 2
	fieldChromatogram protowire.Number = 3
	fieldNativeID     protowire.Number = 1
	fieldOffset       protowire.Number = 2
)

// Marshal encodes the entries of an index
func Marshal(ix *offsetindex.Index) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, formatVersion)
	var entry []byte
	for _, f := range []struct {
		num  protowire.Number
		kind offsetindex.Kind
	}{{fieldSpectrum, offsetindex.Spectrum}, {fieldChromatogram, offsetindex.Chromatogram}} {
		for _, e := range ix.Entries(f.kind) {
			entry = entry[:0]
			entry = protowire.AppendTag(entry, fieldNativeID, protowire.BytesType)
			entry = protowire.AppendString(entry, e.NativeID)
			entry = protowire.AppendTag(entry, fieldOffset, protowire.VarintType)
			entry = protowire.AppendVarint(entry, uint64(e.Offset))
			b = protowire.AppendTag(b, f.num, protowire.BytesType)
			b = protowire.AppendBytes(b, entry)
		}
	}
	return b
}

// Unmarshal decodes an index written by Marshal. Sequential ids and scan
// numbers are derived again from the entry order.
func Unmarshal(b []byte) (*offsetindex.Index, error) {
	var spectra, chromatograms []offsetindex.Ref
	version := uint64(0)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrFormat, protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == fieldVersion && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrFormat, protowire.ParseError(n))
			}
			version = v
			b = b[n:]
		case (num == fieldSpectrum || num == fieldChromatogram) && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrFormat, protowire.ParseError(n))
			}
			ref, err := unmarshalRef(v)
			if err != nil {
				return nil, err
			}
			if num == fieldSpectrum {
				spectra = append(spectra, ref)
			} else {
				chromatograms = append(chromatograms, ref)
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: %v", ErrFormat, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	if version != formatVersion {
		return nil, fmt.Errorf("%w: version %d", ErrFormat, version)
	}
	return offsetindex.New(spectra, chromatograms, offsetindex.Cached), nil
}

func unmarshalRef(b []byte) (offsetindex.Ref, error) {
	var ref offsetindex.Ref
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return ref, fmt.Errorf("%w: %v", ErrFormat, protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == fieldNativeID && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return ref, fmt.Errorf("%w: %v", ErrFormat, protowire.ParseError(n))
			}
			ref.NativeID = string(v)
			b = b[n:]
		case num == fieldOffset && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return ref, fmt.Errorf("%w: %v", ErrFormat, protowire.ParseError(n))
			}
			ref.Offset = int64(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return ref, fmt.Errorf("%w: %v", ErrFormat, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return ref, nil
}
