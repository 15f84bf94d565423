package compress

import (
	"errors"
	"fmt"
	"math"

	e "github.com/pkg/errors"
)

var (
	// ErrCorruptStream is returned when a compressed blob cannot be decoded.
	// Use IsCorruptStream() to check for it, since it is usually wrapped.
	ErrCorruptStream = errors.New("corrupt compressed stream")

	// ErrBlobTooLarge is returned when a blob does not fit into its length prefix.
	ErrBlobTooLarge = errors.New("blob exceeds the maximum blob size")
)

// IsCorruptStream checks if `err` was caused by undecodable blob data.
func IsCorruptStream(err error) bool {
	return e.Cause(err) == ErrCorruptStream
}

func corrupt(format string, args ...interface{}) error {
	return e.Wrap(ErrCorruptStream, fmt.Sprintf(format, args...))
}

// Item kinds stored in the upper nibble of a code byte.
const (
	codeShortRun    = 0
	codeLongRun     = 1
	codeLongString  = 2
	minShortRun     = 3
	minLongRun      = 19
	minLongString   = 16
	minOffset       = 3
	maxShortString  = 15
	controlWordSize = 2
)

// inCursor hands out bytes of a blob only after need() said they exist.
type inCursor struct {
	buf []byte
	pos int
}

func (c *inCursor) remaining() int {
	return len(c.buf) - c.pos
}

func (c *inCursor) need(n int) error {
	if c.remaining() < n {
		return corrupt("item at input offset %d goes past the end of the blob", c.pos)
	}

	return nil
}

func (c *inCursor) next() byte {
	b := c.buf[c.pos]
	c.pos++
	return b
}

// outCursor is a fixed size output window.
type outCursor struct {
	buf []byte
	pos int
}

func (c *outCursor) reserve(n int) error {
	if len(c.buf)-c.pos < n {
		return corrupt("output of %d bytes would overflow the %d byte buffer", c.pos+n, len(c.buf))
	}

	return nil
}

func (c *outCursor) put(b byte) {
	c.buf[c.pos] = b
	c.pos++
}

func (c *outCursor) fill(b byte, n int) {
	for i := 0; i < n; i++ {
		c.buf[c.pos+i] = b
	}

	c.pos += n
}

// copyBack appends n bytes that were produced `offset` bytes ago.
// Overlapping copies are not part of the format.
func (c *outCursor) copyBack(offset, n int) error {
	if err := c.reserve(n); err != nil {
		return err
	}

	if offset > c.pos {
		return corrupt("back reference offset %d before start of output (at %d)", offset, c.pos)
	}

	if n > offset {
		return corrupt("back reference of %d bytes overlaps its offset %d", n, offset)
	}

	src := c.pos - offset
	copy(c.buf[c.pos:c.pos+n], c.buf[src:src+n])
	c.pos += n
	return nil
}

func (c *outCursor) bytes() []byte {
	return c.buf[:c.pos]
}

func appendRun(in *inCursor, out *outCursor, n int) error {
	if err := out.reserve(n); err != nil {
		return err
	}

	if err := in.need(1); err != nil {
		return err
	}

	out.fill(in.next(), n)
	return nil
}

func fetchOffset(in *inCursor, low int) (int, error) {
	if err := in.need(1); err != nil {
		return 0, err
	}

	return low + int(in.next())<<4 + minOffset, nil
}

// Decompress expands a single LZ77 coded blob into at most `limit` bytes.
//
// Items are grouped under a 16 bit little endian control word, most
// significant bit first. A clear bit is a literal byte, a set bit starts a
// coded item whose upper nibble selects between runs and back references.
func Decompress(src []byte, limit int) ([]byte, error) {
	if len(src) > math.MaxUint16 {
		return nil, corrupt("input of %d bytes is larger than a blob", len(src))
	}

	in := inCursor{buf: src}
	out := outCursor{buf: make([]byte, limit)}

	var mask, control uint16
	for in.remaining() > 0 {
		mask >>= 1
		if mask == 0 {
			// A control word is only valid if at least one item follows.
			if err := in.need(controlWordSize + 1); err != nil {
				return nil, err
			}

			control = uint16(in.next()) | uint16(in.next())<<8
			mask = 0x8000
		}

		if control&mask == 0 {
			if err := out.reserve(1); err != nil {
				return nil, err
			}

			out.put(in.next())
			continue
		}

		code := in.next()
		kind, low := int(code>>4), int(code&0x0f)

		switch kind {
		case codeShortRun:
			if err := appendRun(&in, &out, low+minShortRun); err != nil {
				return nil, err
			}
		case codeLongRun:
			if err := in.need(1); err != nil {
				return nil, err
			}

			n := low + int(in.next())<<4 + minLongRun
			if err := appendRun(&in, &out, n); err != nil {
				return nil, err
			}
		case codeLongString:
			offset, err := fetchOffset(&in, low)
			if err != nil {
				return nil, err
			}

			if err := in.need(1); err != nil {
				return nil, err
			}

			n := int(in.next()) + minLongString
			if err := out.copyBack(offset, n); err != nil {
				return nil, err
			}
		default:
			offset, err := fetchOffset(&in, low)
			if err != nil {
				return nil, err
			}

			if err := out.copyBack(offset, kind); err != nil {
				return nil, err
			}
		}
	}

	return out.bytes(), nil
}
