package capture

import (
	"errors"
	"fmt"
	"io"

	e "github.com/pkg/errors"
)

var (
	// ErrNotThisFormat is returned by an open function that does not
	// recognize the file. The registry then tries the next format.
	ErrNotThisFormat = errors.New("file is not in this format")

	// ErrShortRead is returned when the file ends in the middle of a record.
	ErrShortRead = errors.New("short read")

	// ErrNoRandomAccess is returned by seeking reads on readers
	// that were opened without a second handle.
	ErrNoRandomAccess = errors.New("reader was opened without random access")
)

// IsNotThisFormat checks if `err` means "try another format".
func IsNotThisFormat(err error) bool {
	return e.Cause(err) == ErrNotThisFormat
}

// IsShortRead checks if the file was truncated.
func IsShortRead(err error) bool {
	return e.Cause(err) == ErrShortRead
}

// ShortRead maps the io package's notion of a truncated read to ErrShortRead.
// Other errors, including a clean io.EOF, pass through unchanged.
func ShortRead(err error, what string) error {
	if e.Cause(err) == io.ErrUnexpectedEOF {
		return e.Wrapf(ErrShortRead, "truncated %s", what)
	}

	return err
}

//////////////

type errBadFile struct {
	detail string
}

func (err *errBadFile) Error() string {
	return "bad file: " + err.detail
}

// BadFile returns an error for structurally invalid input.
func BadFile(format string, args ...interface{}) error {
	return &errBadFile{detail: fmt.Sprintf(format, args...)}
}

// IsBadFile asserts that `err` was created by BadFile.
func IsBadFile(err error) bool {
	_, ok := e.Cause(err).(*errBadFile)
	return ok
}

//////////////

type errUnsupported struct {
	detail string
}

func (err *errUnsupported) Error() string {
	return "unsupported: " + err.detail
}

// Unsupported returns an error for valid input using a feature we cannot handle.
func Unsupported(format string, args ...interface{}) error {
	return &errUnsupported{detail: fmt.Sprintf(format, args...)}
}

// IsUnsupported asserts that `err` was created by Unsupported.
func IsUnsupported(err error) bool {
	_, ok := e.Cause(err).(*errUnsupported)
	return ok
}
