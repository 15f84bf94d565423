package blob

import (
	"encoding/binary"
	"io"
	"io/ioutil"

	"github.com/sahib/sniffcap/mio/chunkbuf"
	"github.com/sahib/sniffcap/mio/compress"
	e "github.com/pkg/errors"
)

const prefixSize = 2

// Stream presents the data part of a capture file as one logical byte
// stream. Uncompressed files are passed through; compressed files are a
// sequence of length prefixed blobs that are expanded one at a time.
//
// A sequential stream records every blob it reads in the shared Index.
// A random stream only reads blobs that the sequential one already saw,
// through a read-only View of that index.
type Stream struct {
	// Underlying file handle.
	rs io.ReadSeeker

	compressed bool

	// Set for sequential streams, which own the index.
	index *Index

	// Set for random streams.
	view View

	// Expanded contents of the current blob.
	chunk *chunkbuf.ChunkBuffer

	// Logical offset of the first byte in chunk.
	chunkRaw int64

	// File offset right after the current blob.
	zipOff int64

	// Logical offset for uncompressed streams.
	rawOff int64
}

func newStream(rs io.ReadSeeker, compressed bool, start int64) *Stream {
	return &Stream{
		rs:         rs,
		compressed: compressed,
		chunk:      chunkbuf.NewChunkBuffer(nil),
		chunkRaw:   start,
		zipOff:     start,
		rawOff:     start,
	}
}

// NewSequential returns a stream that reads `rs` from `start` on.
// `rs` must already be positioned there. If `idx` is not nil,
// every blob boundary is recorded in it.
func NewSequential(rs io.ReadSeeker, compressed bool, start int64, idx *Index) *Stream {
	s := newStream(rs, compressed, start)
	s.index = idx
	return s
}

// NewRandom returns a stream for seeking reads. For compressed data
// it can only reach what a sequential stream recorded in `view`.
func NewRandom(rs io.ReadSeeker, compressed bool, start int64, view View) *Stream {
	s := newStream(rs, compressed, start)
	s.view = view
	return s
}

// Offset returns the current logical offset.
func (s *Stream) Offset() int64 {
	if !s.compressed {
		return s.rawOff
	}

	return s.chunkRaw + s.chunk.Pos()
}

// ZipOffset returns the file offset right after the current blob.
// For uncompressed streams it equals Offset().
func (s *Stream) ZipOffset() int64 {
	if !s.compressed {
		return s.rawOff
	}

	return s.zipOff
}

// IsCompressed tells if the stream expands blobs.
func (s *Stream) IsCompressed() bool {
	return s.compressed
}

func (s *Stream) readBlob() error {
	if s.view != nil && !s.view.Covers(s.zipOff) {
		return e.Wrapf(ErrCannotSeek, "blob at %d was not read sequentially yet", s.zipOff)
	}

	prefix := [prefixSize]byte{}
	if _, err := io.ReadFull(s.rs, prefix[:]); err != nil {
		return err
	}

	algoType, size := compress.ParseLength(int16(binary.LittleEndian.Uint16(prefix[:])))
	payload := make([]byte, size)
	if _, err := io.ReadFull(s.rs, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}

		return err
	}

	algo, err := compress.AlgorithmFromType(algoType)
	if err != nil {
		return err
	}

	data, err := algo.Decode(payload)
	if err != nil {
		return e.Wrapf(err, "blob at %d", s.zipOff)
	}

	zipStart := s.zipOff
	rawStart := s.chunkRaw + s.chunk.Size()

	s.zipOff += prefixSize + int64(size)
	s.chunkRaw = rawStart
	s.chunk.Reset(data)

	if s.index != nil {
		if len(data) > 0 {
			if err := s.index.Append(Entry{ZipOff: zipStart, RawOff: rawStart}); err != nil {
				return err
			}
		}

		s.index.extend(s.zipOff, rawStart+int64(len(data)))
	}

	return nil
}

// Read fills `p` from the logical stream, reading more blobs as needed.
// It returns io.EOF only if no data was left at a blob boundary;
// a blob cut short by the end of the file yields io.ErrUnexpectedEOF.
func (s *Stream) Read(p []byte) (int, error) {
	if !s.compressed {
		n, err := s.rs.Read(p)
		s.rawOff += int64(n)
		return n, err
	}

	total := 0
	for total < len(p) {
		if s.chunk.Len() == 0 {
			if err := s.readBlob(); err != nil {
				if err == io.EOF && total > 0 {
					return total, nil
				}

				return total, err
			}

			continue
		}

		n, _ := s.chunk.Read(p[total:])
		total += n
	}

	return total, nil
}

// Skip drops the next `n` bytes of the logical stream.
// Running into the end of the file yields io.ErrUnexpectedEOF,
// the same as reading the bytes would.
func (s *Stream) Skip(n int64) error {
	if n <= 0 {
		return nil
	}

	if _, err := io.CopyN(ioutil.Discard, s, n); err != nil {
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}

		return err
	}

	return nil
}

// Seek moves to a logical offset. Only io.SeekStart and io.SeekCurrent
// are supported. Inside the current blob only the cursor moves; otherwise
// the blob holding the target is looked up in the index and read again.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	target := offset
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		target += s.Offset()
	default:
		return 0, e.Wrapf(ErrCannotSeek, "unsupported whence %d", whence)
	}

	if !s.compressed {
		if _, err := s.rs.Seek(target, io.SeekStart); err != nil {
			return 0, err
		}

		s.rawOff = target
		return target, nil
	}

	if target >= s.chunkRaw && target < s.chunkRaw+s.chunk.Size() {
		if _, err := s.chunk.Seek(target-s.chunkRaw, io.SeekStart); err != nil {
			return 0, err
		}

		return target, nil
	}

	if s.view == nil {
		return 0, e.Wrapf(ErrCannotSeek, "no index to seek to %d", target)
	}

	en, err := s.view.Locate(target)
	if err != nil {
		return 0, err
	}

	if _, err := s.rs.Seek(en.ZipOff, io.SeekStart); err != nil {
		return 0, err
	}

	s.zipOff = en.ZipOff
	s.chunkRaw = en.RawOff
	s.chunk.Reset(nil)

	if err := s.readBlob(); err != nil {
		return 0, err
	}

	if target-s.chunkRaw >= s.chunk.Size() {
		return 0, e.Wrapf(ErrCannotSeek, "offset %d is not inside of %v", target, en)
	}

	if _, err := s.chunk.Seek(target-s.chunkRaw, io.SeekStart); err != nil {
		return 0, err
	}

	return target, nil
}
