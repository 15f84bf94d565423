package compress

import (
	"errors"
	"math"
)

var (
	// ErrBadAlgo is returned on a unsupported/unknown algorithm.
	ErrBadAlgo = errors.New("invalid algorithm type")
)

// AlgorithmType says how the payload of a single blob is stored.
type AlgorithmType int

const (
	// AlgoStored means the blob payload is the literal data.
	AlgoStored = AlgorithmType(iota)

	// AlgoLZ77 means the blob payload went through the Sniffer LZ77 coder.
	AlgoLZ77
)

const (
	// MaxBlobSize is the largest amount of data a single blob may expand to.
	MaxBlobSize = 64 * 1024

	// MaxStoredSize is the largest payload a stored blob can carry,
	// since its length prefix is a negative 16 bit number.
	MaxStoredSize = -math.MinInt16

	// MaxEncodedSize is the largest payload a compressed blob can carry.
	MaxEncodedSize = math.MaxInt16
)

// Algorithm is the common interface for all supported algorithms.
type Algorithm interface {
	Encode([]byte) ([]byte, error)
	Decode([]byte) ([]byte, error)
}

type storedAlgo struct{}
type lz77Algo struct{}

var (
	// AlgoMap is a map of available algorithms.
	AlgoMap = map[AlgorithmType]Algorithm{
		AlgoStored: storedAlgo{},
		AlgoLZ77:   lz77Algo{},
	}

	algoToString = map[AlgorithmType]string{
		AlgoStored: "stored",
		AlgoLZ77:   "lz77",
	}
)

// AlgoStored
func (a storedAlgo) Encode(src []byte) ([]byte, error) {
	if len(src) > MaxStoredSize {
		return nil, ErrBlobTooLarge
	}

	return src, nil
}

func (a storedAlgo) Decode(src []byte) ([]byte, error) {
	return src, nil
}

// AlgoLZ77
func (a lz77Algo) Encode(src []byte) ([]byte, error) {
	return Encode(src)
}

func (a lz77Algo) Decode(src []byte) ([]byte, error) {
	return Decompress(src, MaxBlobSize)
}

// AlgorithmFromType returns a interface to the given AlgorithmType.
func AlgorithmFromType(a AlgorithmType) (Algorithm, error) {
	if algo, ok := AlgoMap[a]; ok {
		return algo, nil
	}

	return nil, ErrBadAlgo
}

func (a AlgorithmType) String() string {
	name, ok := algoToString[a]
	if !ok {
		return "unknown"
	}

	return name
}

// ParseLength splits the signed length prefix of a blob into the
// algorithm that was used and the payload size that follows it.
func ParseLength(prefix int16) (AlgorithmType, int) {
	if prefix < 0 {
		return AlgoStored, -int(prefix)
	}

	return AlgoLZ77, int(prefix)
}

// MakeLength is the inverse of ParseLength.
func MakeLength(algo AlgorithmType, size int) (int16, error) {
	switch algo {
	case AlgoStored:
		if size > MaxStoredSize {
			return 0, ErrBlobTooLarge
		}

		return int16(-size), nil
	case AlgoLZ77:
		if size > MaxEncodedSize {
			return 0, ErrBlobTooLarge
		}

		return int16(size), nil
	default:
		return 0, ErrBadAlgo
	}
}
