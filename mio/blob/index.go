package blob

import (
	"errors"
	"fmt"
	"sort"

	e "github.com/pkg/errors"
)

var (
	// ErrBadIndex is returned when an entry would break the ordering of the index.
	ErrBadIndex = errors.New("broken blob index")

	// ErrCannotSeek is returned when a logical offset is not covered
	// by the blobs that were streamed so far.
	ErrCannotSeek = errors.New("cannot seek to offset")
)

// IsCannotSeek checks if `err` is (or wraps) ErrCannotSeek.
func IsCannotSeek(err error) bool {
	return e.Cause(err) == ErrCannotSeek
}

// View is the read-only side of an Index, as used by random streams.
type View interface {
	Locate(rawOff int64) (Entry, error)
	Covers(zipOff int64) bool
}

// Entry maps the start of one blob to its position in both streams.
type Entry struct {
	// ZipOff is the file offset of the blob's length prefix.
	ZipOff int64

	// RawOff is the logical offset of the first byte the blob expands to.
	RawOff int64
}

func (en Entry) String() string {
	return fmt.Sprintf("blob(zip=%d raw=%d)", en.ZipOff, en.RawOff)
}

// Index is an append-only list of blob boundaries.
// It is filled by the sequential stream and consulted by the random one.
// Blobs that expand to nothing are not recorded, so both offsets
// are strictly increasing.
type Index struct {
	entries []Entry

	// High water marks of what the sequential stream has consumed.
	zipEnd int64
	rawEnd int64
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{}
}

// Append records a new blob boundary.
func (idx *Index) Append(en Entry) error {
	if n := len(idx.entries); n > 0 {
		last := idx.entries[n-1]
		if en.ZipOff <= last.ZipOff || en.RawOff <= last.RawOff {
			return e.Wrapf(ErrBadIndex, "%v does not follow %v", en, last)
		}
	}

	idx.entries = append(idx.entries, en)
	return nil
}

// extend moves the high water marks after a blob was fully decoded.
func (idx *Index) extend(zipEnd, rawEnd int64) {
	if zipEnd > idx.zipEnd {
		idx.zipEnd = zipEnd
	}

	if rawEnd > idx.rawEnd {
		idx.rawEnd = rawEnd
	}
}

// Len returns the number of recorded blobs.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// At returns the n-th entry.
func (idx *Index) At(n int) Entry {
	return idx.entries[n]
}

// End returns the compressed and logical offsets
// up to which blobs have been streamed.
func (idx *Index) End() (int64, int64) {
	return idx.zipEnd, idx.rawEnd
}

// Covers tells if the blob starting at `zipOff` was already streamed.
func (idx *Index) Covers(zipOff int64) bool {
	return zipOff < idx.zipEnd
}

// Locate returns the entry of the blob that holds the logical offset `rawOff`.
func (idx *Index) Locate(rawOff int64) (Entry, error) {
	if len(idx.entries) == 0 || rawOff < idx.entries[0].RawOff || rawOff >= idx.rawEnd {
		return Entry{}, e.Wrapf(ErrCannotSeek, "offset %d is not indexed", rawOff)
	}

	// Get the first entry that starts after rawOff; we need the one before.
	i := sort.Search(len(idx.entries), func(i int) bool {
		return idx.entries[i].RawOff > rawOff
	})

	return idx.entries[i-1], nil
}
