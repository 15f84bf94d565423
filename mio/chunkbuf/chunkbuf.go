package chunkbuf

import (
	"io"
)

// ChunkBuffer holds the expanded contents of a single blob
// and a read cursor into it.
type ChunkBuffer struct {
	buf     []byte
	readOff int64
}

// Reset replaces the contents of the buffer and rewinds the cursor.
func (c *ChunkBuffer) Reset(data []byte) {
	c.buf = data
	c.readOff = 0
}

// Len returns the number of unread bytes.
func (c *ChunkBuffer) Len() int {
	return len(c.buf) - int(c.readOff)
}

// Size returns the full size of the current chunk.
func (c *ChunkBuffer) Size() int64 {
	return int64(len(c.buf))
}

// Pos returns the current read offset relative to the chunk start.
func (c *ChunkBuffer) Pos() int64 {
	return c.readOff
}

func (c *ChunkBuffer) Read(p []byte) (int, error) {
	n := copy(p, c.buf[c.readOff:])
	c.readOff += int64(n)
	if n == 0 && len(p) > 0 {
		return n, io.EOF
	}

	return n, nil
}

// Seek moves the cursor. Offsets outside of the chunk are clamped.
func (c *ChunkBuffer) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekCurrent:
		c.readOff += offset
	case io.SeekEnd:
		c.readOff = c.Size() + offset
	case io.SeekStart:
		c.readOff = offset
	}

	if c.readOff < 0 {
		c.readOff = 0
	}

	if c.readOff > c.Size() {
		c.readOff = c.Size()
	}

	return c.readOff, nil
}

// Close is a no-op only existing to fulfill io.Closer
func (c *ChunkBuffer) Close() error {
	return nil
}

// WriteTo writes the unread part of the chunk to `w`.
func (c *ChunkBuffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c.buf[c.readOff:])
	if err != nil {
		return 0, err
	}

	c.readOff += int64(n)
	return int64(n), nil
}

// NewChunkBuffer returns a ChunkBuffer with the given data.
func NewChunkBuffer(data []byte) *ChunkBuffer {
	return &ChunkBuffer{buf: data}
}
