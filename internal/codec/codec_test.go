package codec

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testValues = []float64{0, 1, -1, 445.120025, 1e-7, 12345.6789, math.MaxFloat32 / 2}

func TestRoundTrip(t *testing.T) {
	for _, dt := range []DataType{Float64, Float32} {
		for _, c := range []Compression{None, Zlib} {
			data, err := Encode(testValues, dt, c)
			require.NoError(t, err)
			got, err := Decode(data, dt, len(testValues), c)
			require.NoError(t, err, "%v compression %d", dt, c)

			want := testValues
			if dt == Float32 {
				want = make([]float64, len(testValues))
				for i, v := range testValues {
					want[i] = float64(float32(v))
				}
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("%v compression %d: mismatch (-want +got):\n%s", dt, c, diff)
			}
		}
	}
}

func TestRoundTripIntegers(t *testing.T) {
	in := []float64{0, 1, -2, 3000, -40000}
	for _, dt := range []DataType{Int32, Int64} {
		s, err := EncodeString(in, dt, Zlib)
		require.NoError(t, err)
		got, err := DecodeString(s, dt, len(in), Zlib)
		require.NoError(t, err)
		assert.Equal(t, in, got)
	}
}

func TestDecodeShortInflate(t *testing.T) {
	const n = 10
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i) * 1.5
	}
	data, err := Encode(values, Float64, Zlib)
	require.NoError(t, err)

	got, err := Decode(data, Float64, n, Zlib)
	require.NoError(t, err)
	assert.Len(t, got, n)

	// One element more than present
	_, err = Decode(data, Float64, n+1, Zlib)
	assert.True(t, errors.Is(err, ErrCorruptPayload), "got %v", err)

	// One element less than present
	_, err = Decode(data, Float64, n-1, Zlib)
	assert.True(t, errors.Is(err, ErrLengthMismatch), "got %v", err)
}

func TestDecodeHugeLength(t *testing.T) {
	data, err := Encode([]float64{1, 2, 3}, Float64, Zlib)
	require.NoError(t, err)
	_, err = Decode(data, Float64, 1<<45, Zlib)
	assert.ErrorIs(t, err, ErrCorruptPayload)

	_, err = Decode(data, Float64, math.MaxInt/4, Zlib)
	assert.ErrorIs(t, err, ErrLengthMismatch)

	raw, err := Encode([]float64{1, 2, 3}, Float64, None)
	require.NoError(t, err)
	_, err = Decode(raw, Float64, 1<<45, None)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestDecodeLengthMismatch(t *testing.T) {
	data, err := Encode([]float64{1, 2, 3}, Float32, None)
	require.NoError(t, err)
	_, err = Decode(data, Float32, 4, None)
	assert.ErrorIs(t, err, ErrLengthMismatch)
	_, err = Decode(data, Float64, 3, None)
	assert.ErrorIs(t, err, ErrLengthMismatch)
	_, err = Decode(data, Float32, -1, None)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte("not zlib at all"), Float64, 1, Zlib)
	assert.ErrorIs(t, err, ErrCorruptPayload)
	_, err = DecodeString("!!!", Float64, 0, None)
	assert.ErrorIs(t, err, ErrCorruptPayload)
}

func TestDecodeEmpty(t *testing.T) {
	got, err := DecodeString("", Float64, 0, Zlib)
	require.NoError(t, err)
	assert.Empty(t, got)
	got, err = DecodeString("", Float32, 0, None)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeWrappedBase64(t *testing.T) {
	s, err := EncodeString(testValues, Float64, None)
	require.NoError(t, err)
	wrapped := s[:10] + "\n  " + s[10:] + "\n"
	got, err := DecodeString(wrapped, Float64, len(testValues), None)
	require.NoError(t, err)
	assert.Equal(t, testValues, got)
}
