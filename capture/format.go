package capture

import (
	"io"
	"os"

	"github.com/sahib/config"
	e "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Reader yields the records of one capture file.
type Reader interface {
	// Next returns the next record and the offset to pass to SeekRead
	// for reading it again. The end of the capture is reported as io.EOF.
	Next() (*Record, int64, error)

	// SeekRead reads the record at an offset returned by Next.
	SeekRead(offset int64) (*Record, error)

	// Encapsulation returns the file level encapsulation.
	Encapsulation() Encapsulation

	Close() error
}

// Writer produces a capture file.
type Writer interface {
	Write(rec *Record) error

	// Close finishes the file. It does not close the underlying writer.
	Close() error
}

// OpenFunc opens a capture on two independent handles of the same file.
// `random` may be nil if no seeking reads are needed.
type OpenFunc func(seq, random io.ReadSeeker, cfg *config.Config) (Reader, error)

// CreateFunc starts a new capture of the given encapsulation on `w`.
type CreateFunc func(w io.Writer, encap Encapsulation, cfg *config.Config) (Writer, error)

// Format describes one file format.
type Format struct {
	Name        string
	Description string
	Extensions  []string
	Open        OpenFunc

	// Create may be nil for read-only formats.
	Create CreateFunc
}

// Registry is the fixed list of formats a program knows about.
type Registry struct {
	formats []*Format
}

// NewRegistry returns a registry that probes `formats` in the given order.
func NewRegistry(formats ...*Format) *Registry {
	return &Registry{formats: formats}
}

// Formats returns all formats in probing order.
func (reg *Registry) Formats() []*Format {
	return reg.formats
}

// Lookup finds a format by its name.
func (reg *Registry) Lookup(name string) (*Format, bool) {
	for _, format := range reg.formats {
		if format.Name == name {
			return format, true
		}
	}

	return nil, false
}

func rewind(handles ...io.ReadSeeker) error {
	for _, handle := range handles {
		if handle == nil {
			continue
		}

		if _, err := handle.Seek(0, io.SeekStart); err != nil {
			return err
		}
	}

	return nil
}

// Open probes every format until one accepts the file.
// Both handles are rewound before every attempt.
func (reg *Registry) Open(seq, random io.ReadSeeker, cfg *config.Config) (Reader, *Format, error) {
	for _, format := range reg.formats {
		if err := rewind(seq, random); err != nil {
			return nil, nil, err
		}

		rd, err := format.Open(seq, random, cfg)
		if err == nil {
			return rd, format, nil
		}

		if !IsNotThisFormat(err) {
			return nil, format, err
		}

		log.Debugf("file is not a %s capture", format.Name)
	}

	return nil, nil, e.Wrap(ErrNotThisFormat, "no known format matches")
}

// fileReader closes the file handles with the reader.
type fileReader struct {
	Reader
	handles []*os.File
}

func (fr *fileReader) Close() error {
	err := fr.Reader.Close()
	for _, fd := range fr.handles {
		if closeErr := fd.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}

	return err
}

// OpenFile opens the capture at `path`. A second handle for seeking reads
// is opened if `randomAccess` is true.
func (reg *Registry) OpenFile(path string, randomAccess bool, cfg *config.Config) (Reader, *Format, error) {
	seq, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	handles := []*os.File{seq}

	var random io.ReadSeeker
	if randomAccess {
		randomFd, err := os.Open(path)
		if err != nil {
			seq.Close()
			return nil, nil, err
		}

		handles = append(handles, randomFd)
		random = randomFd
	}

	rd, format, err := reg.Open(seq, random, cfg)
	if err != nil {
		for _, fd := range handles {
			fd.Close()
		}

		return nil, nil, e.Wrapf(err, "open %s", path)
	}

	return &fileReader{Reader: rd, handles: handles}, format, nil
}

// Unwrap returns the reader behind one returned by OpenFile,
// so format specific methods can be reached by a type assertion.
func Unwrap(rd Reader) Reader {
	if fr, ok := rd.(*fileReader); ok {
		return fr.Reader
	}

	return rd
}
