package testutil

import (
	"io/ioutil"
	"math/rand"
	"os"
	"testing"

	"github.com/mattetti/filebuffer"
)

// CreateDummyBuf creates a byte slice that is `size` big.
// It's filled with the repeating numbers [0...254].
func CreateDummyBuf(size int64) []byte {
	buf := make([]byte, size)

	for i := int64(0); i < size; i++ {
		// Be evil and stripe the data:
		buf[i] = byte(i % 255)
	}

	return buf
}

// CreateRandomBuf returns `size` bytes of reproducible noise.
func CreateRandomBuf(seed, size int64) []byte {
	buf := make([]byte, size)
	rand.New(rand.NewSource(seed)).Read(buf)
	return buf
}

// CreateMixedBuf returns data that looks a bit like captured traffic:
// stretches of noise, runs of padding and repeated headers.
func CreateMixedBuf(seed, size int64) []byte {
	rng := rand.New(rand.NewSource(seed))
	buf := make([]byte, 0, size)
	header := CreateRandomBuf(seed+1, 42)

	for int64(len(buf)) < size {
		switch rng.Intn(3) {
		case 0:
			buf = append(buf, header...)
		case 1:
			pad := make([]byte, rng.Intn(300))
			buf = append(buf, pad...)
		default:
			noise := make([]byte, rng.Intn(200))
			rng.Read(noise)
			buf = append(buf, noise...)
		}
	}

	return buf[:size]
}

// Handles returns two independent in-memory handles of `data`,
// the way a capture file is opened once for streaming and once for seeking.
func Handles(data []byte) (*filebuffer.Buffer, *filebuffer.Buffer) {
	return filebuffer.New(data), filebuffer.New(data)
}

// CreateFile writes `data` to a temporary file and returns its path.
func CreateFile(data []byte) string {
	fd, err := ioutil.TempFile("", "sniffcap_test")
	if err != nil {
		panic("Cannot create temp file")
	}

	if _, err := fd.Write(data); err != nil {
		panic(err)
	}

	if err := fd.Close(); err != nil {
		return ""
	}

	return fd.Name()
}

// Remover removes all files in paths recursively and errors when it fails.
// It is no error if there's nothing to delete. It's useful in defer statements.
func Remover(t *testing.T, paths ...string) {
	for _, path := range paths {
		if err := os.RemoveAll(path); err != nil {
			t.Errorf("removing temp directory failed: %v", err)
		}
	}
}
