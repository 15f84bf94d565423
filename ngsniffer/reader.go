package ngsniffer

import (
	"bytes"
	"io"
	"time"

	"github.com/sahib/sniffcap/capture"
	"github.com/sahib/sniffcap/mio/blob"
	e "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Info describes an opened capture.
type Info struct {
	MajorVersion int16
	MinorVersion int16
	Network      uint8
	Encap        capture.Encapsulation
	Compressed   bool
	TimeUnit     uint8
	Start        time.Time

	// DataOffset is where the first blob or data record starts.
	DataOffset int64
}

// Reader decodes a Sniffer capture. The sequential handle is used by Next,
// the optional random handle by SeekRead.
type Reader struct {
	opts    ReaderOptions
	version versionRecord
	encap   capture.Encapsulation
	start   time.Time
	unit    uint64

	dataOffset int64
	compressed bool

	// Filled by seq, used by random. nil without random access.
	index  *blob.Index
	seq    *blob.Stream
	random *blob.Stream

	// Once set, Next keeps returning it. io.EOF counts as well.
	err error
}

func readVersion(rs io.ReadSeeker) (*versionRecord, error) {
	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(rs, magic); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, capture.ErrNotThisFormat
		}

		return nil, err
	}

	if !bytes.Equal(magic, Magic) {
		return nil, capture.ErrNotThisFormat
	}

	hdrBuf := make([]byte, recordHeaderSize)
	if _, err := io.ReadFull(rs, hdrBuf); err != nil {
		return nil, capture.ShortRead(unexpected(err), "version record header")
	}

	hdr := recordHeader{}
	if err := unpack(hdrBuf, &hdr); err != nil {
		return nil, err
	}

	if recordType(hdr.Type) != recVersion {
		return nil, capture.BadFile("file doesn't start with a version record")
	}

	verBuf := make([]byte, versionRecordSize)
	if _, err := io.ReadFull(rs, verBuf); err != nil {
		return nil, capture.ShortRead(unexpected(err), "version record")
	}

	version := &versionRecord{}
	if err := unpack(verBuf, version); err != nil {
		return nil, err
	}

	if extra := int64(hdr.Length) - versionRecordSize; extra > 0 {
		if _, err := rs.Seek(extra, io.SeekCurrent); err != nil {
			return nil, err
		}
	}

	return version, nil
}

// Open reads the preamble from `seq` and prepares reading records.
// `random` is a second handle to the same file and may be nil,
// in which case SeekRead is not available. Both handles must be
// positioned at the start of the file.
func Open(seq, random io.ReadSeeker, opts ReaderOptions) (*Reader, error) {
	version, err := readVersion(seq)
	if err != nil {
		return nil, err
	}

	if int(version.Network) >= len(networkEncaps) || networkEncaps[version.Network] == capture.EncapUnknown {
		return nil, capture.Unsupported(
			"network type %d (%s) unknown or unsupported",
			version.Network,
			NetworkName(version.Network),
		)
	}

	if err := checkTimeUnit(version.TimeUnit); err != nil {
		return nil, err
	}

	encap, err := processHeaders(seq, version, networkEncaps[version.Network])
	if err != nil {
		return nil, err
	}

	dataOffset, err := seq.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	rd := &Reader{
		opts:       opts,
		version:    *version,
		encap:      encap,
		start:      decodeDate(version.Date),
		unit:       timeUnits[version.TimeUnit],
		dataOffset: dataOffset,
		compressed: version.Format != formatUncompressed,
	}

	if random != nil {
		if _, err := random.Seek(dataOffset, io.SeekStart); err != nil {
			return nil, err
		}

		rd.index = blob.NewIndex()
		rd.random = blob.NewRandom(random, rd.compressed, dataOffset, rd.index)
	}

	rd.seq = blob.NewSequential(seq, rd.compressed, dataOffset, rd.index)

	log.WithFields(log.Fields{
		"version":    version.MajorVersion,
		"network":    NetworkName(version.Network),
		"encap":      encap,
		"compressed": rd.compressed,
	}).Debug("opened sniffer capture")

	return rd, nil
}

func (rd *Reader) checkVariant(typ recordType) error {
	isATM := rd.version.Network == netATM
	switch {
	case typ == recFrame2 && isATM:
		return capture.BadFile("frame2 record in an ATM capture")
	case typ == recFrame4 && !isATM:
		return capture.BadFile("frame4 record in a non-ATM capture")
	}

	return nil
}

// readFrame decodes a frame record whose header was already consumed.
// It returns the number of padding bytes after the packet data.
func (rd *Reader) readFrame(s *blob.Stream, typ recordType, length int) (*capture.Record, int, error) {
	if err := rd.checkVariant(typ); err != nil {
		return nil, 0, err
	}

	size := frameSize(typ)
	if length < size {
		return nil, 0, capture.BadFile("record length %d is less than record header length %d", length, size)
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(s, buf); err != nil {
		return nil, 0, capture.ShortRead(unexpected(err), "frame header")
	}

	common := frameCommon{}
	if err := unpack(buf[:frameCommonSize], &common); err != nil {
		return nil, 0, err
	}

	length -= size
	if int(common.Size) > length {
		return nil, 0, capture.BadFile("record length %d is less than packet size %d", length, common.Size)
	}

	rec := &capture.Record{Encap: rd.encap}
	rec.Timestamp = decodeTimestamp(rd.start, rd.unit, &common)
	rec.CaptureLength = int(common.Size)
	rec.Length = int(common.TrueSize)
	if rec.Length == 0 {
		rec.Length = rec.CaptureLength
	}

	switch typ {
	case recFrame2:
		rec.Pseudo = frame2Pseudo(rd.encap, common.Status)
	case recFrame4:
		tail := frame4Tail{}
		if err := unpack(buf[frameCommonSize:], &tail); err != nil {
			return nil, 0, err
		}

		rec.Pseudo = atmPseudo(&tail)
	case recFrame6:
		rec.Pseudo = frame6Pseudo(rd.encap)
		rec.Extra = append([]byte{}, buf[frameCommonSize:]...)
	}

	rec.Data = make([]byte, common.Size)
	if _, err := io.ReadFull(s, rec.Data); err != nil {
		return nil, 0, capture.ShortRead(unexpected(err), "packet data")
	}

	if hdr, ok := rec.Pseudo.(*capture.ATMHeader); ok {
		fixLANE(hdr, rec.Data)
	}

	if rd.encap == capture.EncapPerPacket && rd.opts.InferEncap {
		fixPerPacket(rec)
	}

	return rec, length - int(common.Size), nil
}

// readRecord reads one record from `s`. For frames it returns the decoded
// packet and the padding after it. For other records it returns a nil
// record and the number of bytes to skip. The end marker yields io.EOF.
func (rd *Reader) readRecord(s *blob.Stream) (*capture.Record, recordType, int, error) {
	hdrBuf := make([]byte, recordHeaderSize)
	if _, err := io.ReadFull(s, hdrBuf); err != nil {
		return nil, 0, 0, capture.ShortRead(err, "record header")
	}

	hdr := recordHeader{}
	if err := unpack(hdrBuf, &hdr); err != nil {
		return nil, 0, 0, err
	}

	typ := recordType(hdr.Type)
	switch typ {
	case recFrame2, recFrame4, recFrame6:
		rec, padding, err := rd.readFrame(s, typ, int(hdr.Length))
		return rec, typ, padding, err
	case recEOF:
		return nil, typ, 0, io.EOF
	}

	return nil, typ, int(hdr.Length), nil
}

// Next returns the next packet and its offset for SeekRead.
// The end of the capture is io.EOF; after that or any other error
// the reader stays in that state.
func (rd *Reader) Next() (*capture.Record, int64, error) {
	if rd.err != nil {
		return nil, 0, rd.err
	}

	for {
		offset := rd.seq.Offset()
		rec, typ, skip, err := rd.readRecord(rd.seq)
		if err != nil {
			if err != io.EOF {
				err = e.Wrapf(err, "record at %d", offset)
			}

			rd.err = err
			return nil, 0, err
		}

		if err := rd.seq.Skip(int64(skip)); err != nil {
			rd.err = e.Wrapf(capture.ShortRead(err, "record"), "record at %d", offset)
			return nil, 0, rd.err
		}

		if rec == nil {
			log.Debugf("skipping record of type %d at %d", typ, offset)
			continue
		}

		return rec, offset, nil
	}
}

// SeekRead reads the frame at `offset` again, as returned by Next.
// For compressed captures only offsets Next already went past can be read.
func (rd *Reader) SeekRead(offset int64) (*capture.Record, error) {
	if rd.random == nil {
		return nil, capture.ErrNoRandomAccess
	}

	if _, err := rd.random.Seek(offset, io.SeekStart); err != nil {
		return nil, e.Wrapf(err, "seek to %d", offset)
	}

	rec, typ, _, err := rd.readRecord(rd.random)
	if err == io.EOF {
		return nil, capture.BadFile("no frame record at offset %d", offset)
	}

	if err != nil {
		return nil, e.Wrapf(err, "record at %d", offset)
	}

	if rec == nil {
		return nil, capture.BadFile("record at offset %d has type %d, not a frame", offset, typ)
	}

	return rec, nil
}

// Encapsulation returns the encapsulation of the whole file.
func (rd *Reader) Encapsulation() capture.Encapsulation {
	return rd.encap
}

// Info returns what the preamble said about the capture.
func (rd *Reader) Info() Info {
	return Info{
		MajorVersion: rd.version.MajorVersion,
		MinorVersion: rd.version.MinorVersion,
		Network:      rd.version.Network,
		Encap:        rd.encap,
		Compressed:   rd.compressed,
		TimeUnit:     rd.version.TimeUnit,
		Start:        rd.start,
		DataOffset:   rd.dataOffset,
	}
}

// Offsets returns how far Next got, in logical bytes and in file bytes.
func (rd *Reader) Offsets() (int64, int64) {
	return rd.seq.Offset(), rd.seq.ZipOffset()
}

// Index returns the blob index built by Next so far.
// It is nil for readers without random access.
func (rd *Reader) Index() *blob.Index {
	return rd.index
}

// Close releases the reader. It does not close the handles passed to Open.
func (rd *Reader) Close() error {
	rd.err = e.New("reader is closed")
	return nil
}
