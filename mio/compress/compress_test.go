package compress

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"

	"github.com/sahib/sniffcap/util/testutil"
	"github.com/stretchr/testify/require"
)

const (
	C64K = 64 * 1024
	C32K = 32 * 1024
)

var TestSizes = []int64{0, 1, 2, 3, 17, 255, 4097, C32K - 1, C32K, C64K - 1, C64K}

func TestDecompressLiterals(t *testing.T) {
	out, err := Decompress([]byte{0x00, 0x00, 'A', 'B'}, MaxBlobSize)
	require.Nil(t, err)
	require.Equal(t, []byte("AB"), out)
}

func TestDecompressEmpty(t *testing.T) {
	// A zero length blob is an empty blob, not a truncated one.
	out, err := Decompress(nil, MaxBlobSize)
	require.Nil(t, err)
	require.Len(t, out, 0)

	encoded, err := Encode(nil)
	require.Nil(t, err)
	require.Len(t, encoded, 0)

	// A lone control word without any item after it is not.
	_, err = Decompress([]byte{0x00, 0x00}, MaxBlobSize)
	require.True(t, IsCorruptStream(err))
}

func TestDecompressItems(t *testing.T) {
	tcs := []struct {
		name string
		in   []byte
		out  []byte
	}{
		{
			name: "short-run",
			in:   []byte{0x00, 0x80, 0x02, 'x'},
			out:  bytes.Repeat([]byte("x"), 5),
		}, {
			name: "long-run",
			in:   []byte{0x00, 0x80, 0x11, 0x01, 'y'},
			out:  bytes.Repeat([]byte("y"), 36),
		}, {
			name: "short-string",
			in:   []byte{0x00, 0x10, 'a', 'b', 'c', 0x30, 0x00},
			out:  []byte("abcabc"),
		}, {
			name: "long-string",
			in: append(
				append([]byte{0x00, 0x00}, []byte("0123456789abcdef")...),
				0x00, 0x80, 0x2d, 0x00, 0x00,
			),
			out: []byte("0123456789abcdef0123456789abcdef"),
		}, {
			name: "empty",
			in:   []byte{},
			out:  []byte{},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Decompress(tc.in, MaxBlobSize)
			require.Nil(t, err)
			require.Equal(t, tc.out, out)
		})
	}
}

func TestDecompressCorrupt(t *testing.T) {
	tcs := []struct {
		name  string
		in    []byte
		limit int
	}{
		{"offset-before-start", []byte{0x00, 0x40, 'a', 0x30, 0x00}, MaxBlobSize},
		{"overlapping-copy", []byte{0x00, 0x10, 'a', 'b', 'c', 0x40, 0x00}, MaxBlobSize},
		{"short-control-word", []byte{0x00, 0x00}, MaxBlobSize},
		{"single-byte", []byte{0x00}, MaxBlobSize},
		{"truncated-offset", []byte{0x00, 0x80, 0x30}, MaxBlobSize},
		{"truncated-run", []byte{0x00, 0x80, 0x11}, MaxBlobSize},
		{"output-overflow", []byte{0x00, 0x80, 0x0f, 'z'}, 10},
		{"input-too-large", make([]byte, 1<<16), MaxBlobSize},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decompress(tc.in, tc.limit)
			require.NotNil(t, err)
			require.True(t, IsCorruptStream(err), "got %v", err)
		})
	}
}

func TestDecompressGarbage(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	for i := 0; i < 2000; i++ {
		buf := make([]byte, rng.Intn(512))
		rng.Read(buf)

		// Random input may or may not decode, but never panics and
		// never exceeds the limit.
		out, err := Decompress(buf, 1024)
		if err != nil {
			require.True(t, IsCorruptStream(err))
			continue
		}

		require.True(t, len(out) <= 1024)
	}
}

func TestEncodeDecode(t *testing.T) {
	inputs := map[string]func(size int64) []byte{
		"dummy":  testutil.CreateDummyBuf,
		"random": func(size int64) []byte { return testutil.CreateRandomBuf(42, size) },
		"mixed":  func(size int64) []byte { return testutil.CreateMixedBuf(42, size) },
		"zeros":  func(size int64) []byte { return make([]byte, size) },
	}

	for name, gen := range inputs {
		for _, size := range TestSizes {
			t.Run(fmt.Sprintf("%s-%d", name, size), func(t *testing.T) {
				data := gen(size)

				encoded, err := Encode(data)
				require.Nil(t, err)

				decoded, err := Decompress(encoded, MaxBlobSize)
				require.Nil(t, err)
				require.Equal(t, data, decoded)
			})
		}
	}
}

func TestEncodeShrinksRedundantData(t *testing.T) {
	data := testutil.CreateMixedBuf(7, C32K)
	encoded, err := Encode(data)
	require.Nil(t, err)
	require.True(t, len(encoded) < len(data)/2, "only got %d bytes", len(encoded))

	encoded, err = Encode(make([]byte, C64K))
	require.Nil(t, err)
	require.True(t, len(encoded) < 100)
}

func TestEncodeTooLarge(t *testing.T) {
	_, err := Encode(make([]byte, C64K+1))
	require.Equal(t, ErrBlobTooLarge, err)
}

func TestAlgorithms(t *testing.T) {
	data := testutil.CreateMixedBuf(3, C32K)
	for _, algoType := range []AlgorithmType{AlgoStored, AlgoLZ77} {
		t.Run(algoType.String(), func(t *testing.T) {
			algo, err := AlgorithmFromType(algoType)
			require.Nil(t, err)

			encoded, err := algo.Encode(data)
			require.Nil(t, err)

			decoded, err := algo.Decode(encoded)
			require.Nil(t, err)
			require.Equal(t, data, decoded)
		})
	}

	_, err := AlgorithmFromType(AlgorithmType(17))
	require.Equal(t, ErrBadAlgo, err)
}

func TestLengthPrefix(t *testing.T) {
	prefix, err := MakeLength(AlgoStored, C32K)
	require.Nil(t, err)
	require.Equal(t, int16(-C32K), prefix)

	algo, size := ParseLength(prefix)
	require.Equal(t, AlgoStored, algo)
	require.Equal(t, C32K, size)

	algo, size = ParseLength(1234)
	require.Equal(t, AlgoLZ77, algo)
	require.Equal(t, 1234, size)

	_, err = MakeLength(AlgoLZ77, C32K)
	require.Equal(t, ErrBlobTooLarge, err)

	_, err = MakeLength(AlgoStored, C32K+1)
	require.Equal(t, ErrBlobTooLarge, err)
}
