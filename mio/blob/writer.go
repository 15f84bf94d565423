package blob

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/sahib/sniffcap/mio/compress"
	e "github.com/pkg/errors"
)

// DefaultBlobSize is the amount of logical data the writer puts into one blob.
// Every blob must still fit when stored, so this is the stored maximum.
const DefaultBlobSize = compress.MaxStoredSize

// Writer cuts a logical stream into blobs. Each blob is compressed when
// that makes it smaller and stored otherwise.
type Writer struct {
	// Underlying file.
	rawW io.Writer

	// Buffers data into blobSize chunks.
	chunkBuf *bytes.Buffer

	// Boundaries of all written blobs.
	index *Index

	// Accumulator representing the logical offset.
	rawOff int64

	// Accumulator representing the file offset.
	zipOff int64

	algoType compress.AlgorithmType
	blobSize int
}

// NewWriter returns a blob writer whose first blob starts at `start`
// in both the file and the logical stream. `algoType` is the preferred
// algorithm; AlgoStored disables compression.
func NewWriter(w io.Writer, start int64, algoType compress.AlgorithmType, blobSize int) (*Writer, error) {
	if _, err := compress.AlgorithmFromType(algoType); err != nil {
		return nil, err
	}

	if blobSize <= 0 || blobSize > compress.MaxStoredSize {
		return nil, e.Wrapf(compress.ErrBlobTooLarge, "blob size %d", blobSize)
	}

	return &Writer{
		rawW:     w,
		chunkBuf: &bytes.Buffer{},
		index:    NewIndex(),
		rawOff:   start,
		zipOff:   start,
		algoType: algoType,
		blobSize: blobSize,
	}, nil
}

func (w *Writer) flushBuffer(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	algoType, payload := compress.AlgoStored, data
	if w.algoType == compress.AlgoLZ77 {
		encData, err := compress.Encode(data)
		if err != nil {
			return err
		}

		if len(encData) < len(data) && len(encData) <= compress.MaxEncodedSize {
			algoType, payload = compress.AlgoLZ77, encData
		}
	}

	prefix, err := compress.MakeLength(algoType, len(payload))
	if err != nil {
		return err
	}

	prefixBuf := [prefixSize]byte{}
	binary.LittleEndian.PutUint16(prefixBuf[:], uint16(prefix))
	if _, err := w.rawW.Write(prefixBuf[:]); err != nil {
		return err
	}

	if _, err := w.rawW.Write(payload); err != nil {
		return err
	}

	if err := w.index.Append(Entry{ZipOff: w.zipOff, RawOff: w.rawOff}); err != nil {
		return err
	}

	w.rawOff += int64(len(data))
	w.zipOff += prefixSize + int64(len(payload))
	w.index.extend(w.zipOff, w.rawOff)
	return nil
}

func (w *Writer) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		room := w.blobSize - w.chunkBuf.Len()
		if room > len(p) {
			room = len(p)
		}

		w.chunkBuf.Write(p[:room])
		p = p[room:]
		written += room

		if w.chunkBuf.Len() == w.blobSize {
			if err := w.flushBuffer(w.chunkBuf.Bytes()); err != nil {
				return written, err
			}

			w.chunkBuf.Reset()
		}
	}

	return written, nil
}

// Index returns the boundaries of all blobs flushed so far.
func (w *Writer) Index() *Index {
	return w.index
}

// Offset returns the logical offset of the next written byte.
func (w *Writer) Offset() int64 {
	return w.rawOff + int64(w.chunkBuf.Len())
}

// Close flushes the last, possibly short blob.
// It does not close the underlying writer.
func (w *Writer) Close() error {
	if err := w.flushBuffer(w.chunkBuf.Bytes()); err != nil {
		return err
	}

	w.chunkBuf.Reset()
	return nil
}
