package ngsniffer

import (
	"io"

	"github.com/sahib/config"
	"github.com/sahib/sniffcap/capture"
)

// ReaderOptions tune how captures are decoded.
type ReaderOptions struct {
	// InferEncap guesses the encapsulation of every frame
	// in captures that do not declare one.
	InferEncap bool
}

// DefaultReaderOptions is what you get without a config.
func DefaultReaderOptions() ReaderOptions {
	return ReaderOptions{InferEncap: true}
}

// ReaderOptionsFromConfig reads the "reader" section of `cfg`.
func ReaderOptionsFromConfig(cfg *config.Config) ReaderOptions {
	if cfg == nil {
		return DefaultReaderOptions()
	}

	return ReaderOptions{
		InferEncap: cfg.Bool("reader.infer_encap"),
	}
}

// WriterOptions tune how captures are encoded.
type WriterOptions struct {
	// Compress puts records into compressed blobs.
	Compress bool

	// BlobSize is the logical size of one blob. 0 means the maximum.
	BlobSize int

	// TimeUnit indexes the tick length table; 1 is .838096 usecs.
	TimeUnit uint8

	// MajorVersion is written into the version record.
	MajorVersion int16

	// WANHeader adds a header record that says which WAN protocol is used.
	WANHeader bool
}

// DefaultWriterOptions is what you get without a config.
func DefaultWriterOptions() WriterOptions {
	return WriterOptions{
		TimeUnit:     1,
		MajorVersion: 4,
		WANHeader:    true,
	}
}

// WriterOptionsFromConfig reads the "writer" section of `cfg`.
func WriterOptionsFromConfig(cfg *config.Config) WriterOptions {
	if cfg == nil {
		return DefaultWriterOptions()
	}

	return WriterOptions{
		Compress:     cfg.Bool("writer.compress"),
		BlobSize:     int(cfg.Int("writer.blob_size")),
		TimeUnit:     uint8(cfg.Int("writer.time_unit")),
		MajorVersion: int16(cfg.Int("writer.major_version")),
		WANHeader:    cfg.Bool("writer.wan_header"),
	}
}

// Format registers this package with a capture.Registry.
var Format = &capture.Format{
	Name:        "ngsniffer",
	Description: "Sniffer (DOS) capture, compressed or uncompressed",
	Extensions:  []string{"cap", "enc", "trc", "fdc", "syc"},
	Open: func(seq, random io.ReadSeeker, cfg *config.Config) (capture.Reader, error) {
		rd, err := Open(seq, random, ReaderOptionsFromConfig(cfg))
		if err != nil {
			return nil, err
		}

		return rd, nil
	},
	Create: func(w io.Writer, encap capture.Encapsulation, cfg *config.Config) (capture.Writer, error) {
		wr, err := NewWriter(w, encap, WriterOptionsFromConfig(cfg))
		if err != nil {
			return nil, err
		}

		return wr, nil
	},
}
