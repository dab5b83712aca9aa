// Package codec converts the payload of mzML binary data arrays to and
// from float64 slices. Payloads are little-endian, optionally zlib
// compressed, and base64 encoded inside the XML.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode"

	"github.com/klauspost/compress/zlib"
)

// DataType is the numeric type of the array elements
type DataType int

const (
	Float64 DataType = iota // Default when a file doesn't specify the type
	Float32
	Int32
	Int64
)

// Width returns the size of one element in bytes
func (t DataType) Width() int {
	switch t {
	case Float32, Int32:
		return 4
	default:
		return 8
	}
}

func (t DataType) String() string {
	switch t {
	case Float32:
		return "32-bit float"
	case Int32:
		return "32-bit integer"
	case Int64:
		return "64-bit integer"
	default:
		return "64-bit float"
	}
}

// Compression of the raw bytes before base64 encoding
type Compression int

const (
	None Compression = iota
	Zlib
)

var (
	// ErrCorruptPayload means the compressed data can't be inflated to the
	// expected number of bytes
	ErrCorruptPayload = errors.New("MzML: corrupt binary payload")
	// ErrLengthMismatch means the decoded byte count doesn't match the
	// declared array length
	ErrLengthMismatch = errors.New("MzML: binary array length mismatch")
)

// Decode reinterprets data as count little-endian values of type t.
// A partial array is never returned.
func Decode(data []byte, t DataType, count int, c Compression) ([]float64, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: negative array length %d", ErrLengthMismatch, count)
	}
	if count > math.MaxInt/t.Width() {
		return nil, fmt.Errorf("%w: array length %d too large", ErrLengthMismatch, count)
	}
	size := count * t.Width()
	if c == Zlib {
		if len(data) == 0 && count == 0 {
			return []float64{}, nil
		}
		raw, err := inflate(data, size)
		if err != nil {
			return nil, err
		}
		data = raw
	}
	if len(data) != size {
		return nil, fmt.Errorf("%w: %d bytes for %d values of %d bytes",
			ErrLengthMismatch, len(data), count, t.Width())
	}

	values := make([]float64, count)
	switch t {
	case Float64:
		for i := range values {
			bits := binary.LittleEndian.Uint64(data[i*8:])
			values[i] = math.Float64frombits(bits)
		}
	case Float32:
		for i := range values {
			bits := binary.LittleEndian.Uint32(data[i*4:])
			values[i] = float64(math.Float32frombits(bits))
		}
	case Int32:
		for i := range values {
			values[i] = float64(int32(binary.LittleEndian.Uint32(data[i*4:])))
		}
	case Int64:
		for i := range values {
			values[i] = float64(int64(binary.LittleEndian.Uint64(data[i*8:])))
		}
	}
	return values, nil
}

// inflate decompresses exactly size bytes. Trailing decompressed data is a
// length mismatch, missing data a corrupt payload. The buffer grows with
// the inflated data rather than being allocated from size.
func inflate(data []byte, size int) ([]byte, error) {
	z, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	defer z.Close()
	var raw bytes.Buffer
	raw.Grow(min(size, 4*len(data)))
	n, err := raw.ReadFrom(io.LimitReader(z, int64(size)+1))
	switch {
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	case n > int64(size):
		return nil, fmt.Errorf("%w: inflated more than %d bytes", ErrLengthMismatch, size)
	case n < int64(size):
		return nil, fmt.Errorf("%w: inflated %d of %d bytes", ErrCorruptPayload, n, size)
	}
	return raw.Bytes(), nil
}

// Encode is the inverse of Decode. Values are narrowed to t.
func Encode(values []float64, t DataType, c Compression) ([]byte, error) {
	raw := make([]byte, len(values)*t.Width())
	switch t {
	case Float64:
		for i, v := range values {
			binary.LittleEndian.PutUint64(raw[8*i:], math.Float64bits(v))
		}
	case Float32:
		for i, v := range values {
			binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(float32(v)))
		}
	case Int32:
		for i, v := range values {
			binary.LittleEndian.PutUint32(raw[4*i:], uint32(int32(v)))
		}
	case Int64:
		for i, v := range values {
			binary.LittleEndian.PutUint64(raw[8*i:], uint64(int64(v)))
		}
	}
	if c != Zlib {
		return raw, nil
	}
	var b bytes.Buffer
	z := zlib.NewWriter(&b)
	if _, err := z.Write(raw); err != nil {
		z.Close()
		return nil, err
	}
	// zlib writer must be closed before the buffer holds a valid stream
	if err := z.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// DecodeString decodes the base64 text of a <binary> element
func DecodeString(s string, t DataType, count int, c Compression) ([]float64, error) {
	data, err := base64.StdEncoding.DecodeString(stripSpace(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	return Decode(data, t, count, c)
}

// EncodeString returns the base64 text for a <binary> element
func EncodeString(values []float64, t DataType, c Compression) (string, error) {
	data, err := Encode(values, t, c)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Some writers wrap the base64 text over multiple lines
func stripSpace(s string) string {
	if strings.IndexFunc(s, unicode.IsSpace) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
