package ngsniffer

import (
	"bytes"
	"io"
	"time"

	"github.com/sahib/sniffcap/capture"
	"github.com/sahib/sniffcap/mio/blob"
	"github.com/sahib/sniffcap/mio/compress"
	e "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Largest packet whose record length still fits into 16 bits.
const maxPacketSize = 0xffff - frame2Size

// Network codes used when writing a given encapsulation.
var encapNetworks = map[capture.Encapsulation]uint8{
	capture.EncapEthernet:       netEthernet,
	capture.EncapTokenRing:      netTokenRing,
	capture.EncapARCNET:         netARCNET,
	capture.EncapFDDIBitswapped: netFDDI,
	capture.EncapPerPacket:      netSynchro,
	capture.EncapLAPB:           netSynchro,
	capture.EncapSDLC:           netSynchro,
	capture.EncapFrameRelay:     netSynchro,
	capture.EncapPPP:            netSynchro,
	capture.EncapISDN:           netSynchro,
}

// CanWrite tells if captures of `encap` can be written.
func CanWrite(encap capture.Encapsulation) bool {
	_, ok := encapNetworks[encap]
	return ok
}

// Writer produces a Sniffer capture with one frame2 record per packet.
type Writer struct {
	w       io.Writer
	opts    WriterOptions
	encap   capture.Encapsulation
	network uint8
	unit    uint64
	start   time.Time

	// Where records go: either w itself or a blob writer on top of it.
	data     io.Writer
	blobs    *blob.Writer
	preamble bool
	closed   bool
}

// NewWriter returns a writer for packets of `encap`.
// Nothing is written before the first packet or Close.
func NewWriter(w io.Writer, encap capture.Encapsulation, opts WriterOptions) (*Writer, error) {
	network, ok := encapNetworks[encap]
	if !ok {
		return nil, capture.Unsupported("cannot write %s captures", encap)
	}

	if err := checkTimeUnit(opts.TimeUnit); err != nil {
		return nil, err
	}

	return &Writer{
		w:       w,
		opts:    opts,
		encap:   encap,
		network: network,
		unit:    timeUnits[opts.TimeUnit],
		data:    w,
	}, nil
}

// wanHeader returns the payload of a type 7 header record that makes
// the reader restore our encapsulation, or nil if none is needed or possible.
func (w *Writer) wanHeader() []byte {
	if !w.opts.WANHeader || !isWANNetwork(w.network) {
		return nil
	}

	switch w.opts.MajorVersion {
	case 7:
		if w.encap == capture.EncapLAPB {
			return append([]byte{}, x25Marker...)
		}
	case 1, 4, 5:
		payload := make([]byte, wanHeaderSize)
		switch w.encap {
		case capture.EncapSDLC:
			payload[wanSubtypeOffset] = wanSubtypeSDLC
		case capture.EncapPerPacket:
			payload[wanSubtypeOffset] = wanSubtypeHDLC
		case capture.EncapFrameRelay:
			payload[wanSubtypeOffset] = wanSubtypeFR
		case capture.EncapISDN:
			payload[wanSubtypeOffset] = wanSubtypeRouter
			payload[wanISDNOffset] = 1
		case capture.EncapPPP:
			payload[wanSubtypeOffset] = wanSubtypePPP
		default:
			return nil
		}

		return payload
	}

	return nil
}

func writeRecord(w io.Writer, typ recordType, payload ...interface{}) error {
	body := &bytes.Buffer{}
	for _, part := range payload {
		var err error
		switch v := part.(type) {
		case []byte:
			_, err = body.Write(v)
		default:
			err = pack(body, v)
		}

		if err != nil {
			return err
		}
	}

	hdr := recordHeader{Type: uint16(typ), Length: uint16(body.Len())}
	if err := pack(w, &hdr); err != nil {
		return err
	}

	_, err := body.WriteTo(w)
	return err
}

// writePreamble writes everything before the first data record.
// The capture start is midnight (UTC) of the first packet's day.
func (w *Writer) writePreamble(first time.Time) error {
	if w.preamble {
		return nil
	}

	version := versionRecord{
		MajorVersion: w.opts.MajorVersion,
		Type:         4,
		Network:      w.network,
		Format:       formatUncompressed,
		TimeUnit:     w.opts.TimeUnit,
	}

	if w.opts.Compress {
		version.Format = 0
		version.CompressVersion = 1
	}

	if !first.IsZero() {
		date, err := encodeDate(first)
		if err != nil {
			return err
		}

		version.Date = date
		w.start = decodeDate(date)
	}

	pre := &bytes.Buffer{}
	pre.Write(Magic)

	if err := writeRecord(pre, recVersion, &version); err != nil {
		return err
	}

	if payload := w.wanHeader(); payload != nil {
		if err := writeRecord(pre, recHeader2, payload); err != nil {
			return err
		}
	}

	dataOffset := int64(pre.Len())
	if _, err := pre.WriteTo(w.w); err != nil {
		return err
	}

	if w.opts.Compress {
		blobSize := w.opts.BlobSize
		if blobSize == 0 {
			blobSize = blob.DefaultBlobSize
		}

		blobs, err := blob.NewWriter(w.w, dataOffset, compress.AlgoLZ77, blobSize)
		if err != nil {
			return err
		}

		w.blobs = blobs
		w.data = blobs
	}

	log.WithFields(log.Fields{
		"encap":    w.encap,
		"compress": w.opts.Compress,
		"start":    w.start.Format("2006-01-02"),
	}).Debug("started sniffer capture")

	w.preamble = true
	return nil
}

// Write adds a packet. Its encapsulation must match the writer's.
func (w *Writer) Write(rec *capture.Record) error {
	if w.closed {
		return e.New("writer is closed")
	}

	if rec.CaptureLength != len(rec.Data) {
		return e.Errorf("captured length %d does not match %d data bytes", rec.CaptureLength, len(rec.Data))
	}

	if rec.CaptureLength > maxPacketSize {
		return capture.Unsupported("packet of %d bytes is too big for this format", rec.CaptureLength)
	}

	if w.encap != capture.EncapPerPacket && rec.Encap != w.encap {
		return capture.Unsupported("cannot write a %s packet into a %s capture", rec.Encap, w.encap)
	}

	if err := w.writePreamble(rec.Timestamp); err != nil {
		return err
	}

	frame := frameCommon{
		Size:   uint16(rec.CaptureLength),
		Status: statusFromPseudo(rec.Pseudo),
	}

	if rec.Length != rec.CaptureLength {
		if rec.Length > 0xffff {
			return capture.Unsupported("original length %d is too big for this format", rec.Length)
		}

		frame.TrueSize = uint16(rec.Length)
	}

	if err := encodeTimestamp(w.start, w.unit, rec.Timestamp, &frame); err != nil {
		return err
	}

	return writeRecord(w.data, recFrame2, &frame, &frame2Tail{}, rec.Data)
}

// Close writes the end marker and flushes pending blobs.
// It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}

	w.closed = true
	if err := w.writePreamble(time.Time{}); err != nil {
		return err
	}

	if err := writeRecord(w.data, recEOF); err != nil {
		return err
	}

	if w.blobs != nil {
		return w.blobs.Close()
	}

	return nil
}
