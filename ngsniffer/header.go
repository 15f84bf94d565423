package ngsniffer

import (
	"bytes"
	"io"

	"github.com/sahib/sniffcap/capture"
	log "github.com/sirupsen/logrus"
)

const (
	// Only this much of a header record is looked at.
	maxHeaderPeek = 256

	// Position of the network subtype in a major 1/4/5 WAN header.
	wanSubtypeOffset = 4

	// Position of the "ISDN" flag of a bridge/router WAN header.
	wanISDNOffset = 21

	wanHeaderSize = wanISDNOffset + 1
)

// Network subtypes of a major 1/4/5 WAN header.
const (
	wanSubtypeSDLC   = 0
	wanSubtypeHDLC   = 1
	wanSubtypeFR     = 2
	wanSubtypeRouter = 3
	wanSubtypePPP    = 4
)

var x25Marker = []byte("HDLC\nX.25\n")

// wanEncapV7 handles the header of major version 7 files.
func wanEncapV7(payload []byte) (capture.Encapsulation, error) {
	if bytes.HasPrefix(payload, x25Marker) {
		return capture.EncapLAPB, nil
	}

	return capture.EncapUnknown, capture.Unsupported("WAN capture has unknown protocol header %q", payload)
}

// wanEncapV145 handles the header of major version 1, 4 and 5 files.
func wanEncapV145(payload []byte) (capture.Encapsulation, error) {
	if len(payload) <= wanSubtypeOffset {
		return capture.EncapUnknown, capture.Unsupported("WAN header of %d bytes is too short", len(payload))
	}

	switch subtype := payload[wanSubtypeOffset]; subtype {
	case wanSubtypeSDLC:
		return capture.EncapSDLC, nil
	case wanSubtypeHDLC:
		return capture.EncapPerPacket, nil
	case wanSubtypeFR:
		return capture.EncapFrameRelay, nil
	case wanSubtypeRouter:
		if len(payload) < wanHeaderSize {
			return capture.EncapUnknown, capture.Unsupported("bridge/router header of %d bytes is too short", len(payload))
		}

		if payload[wanISDNOffset] == 1 {
			return capture.EncapISDN, nil
		}

		return capture.EncapPerPacket, nil
	case wanSubtypePPP:
		return capture.EncapPPP, nil
	default:
		return capture.EncapUnknown, capture.Unsupported("WAN network subtype %d is not known", subtype)
	}
}

// wanEncap maps the payload of a type 7 header record to an encapsulation.
// ok is false when the version has no such header.
func wanEncap(majorVersion int16, payload []byte) (enc capture.Encapsulation, ok bool, err error) {
	switch majorVersion {
	case 7:
		enc, err = wanEncapV7(payload)
		return enc, true, err
	case 1, 4, 5:
		enc, err = wanEncapV145(payload)
		return enc, true, err
	}

	return capture.EncapUnknown, false, nil
}

// processHeaders consumes all header records that follow the version
// record and returns the possibly refined encapsulation. `rs` is left at
// the start of the first non-header record.
func processHeaders(rs io.ReadSeeker, version *versionRecord, encap capture.Encapsulation) (capture.Encapsulation, error) {
	for {
		typeBuf := make([]byte, 2)
		if _, err := io.ReadFull(rs, typeBuf); err != nil {
			if err == io.EOF {
				// No data records at all.
				return encap, nil
			}

			return encap, capture.ShortRead(err, "header record type")
		}

		typ := recordType(uint16(typeBuf[0]) | uint16(typeBuf[1])<<8)
		if !isHeaderRecord(typ, version.MajorVersion) {
			if _, err := rs.Seek(-2, io.SeekCurrent); err != nil {
				return encap, err
			}

			return encap, nil
		}

		lengthBuf := make([]byte, 4)
		if _, err := io.ReadFull(rs, lengthBuf); err != nil {
			return encap, capture.ShortRead(unexpected(err), "header record length")
		}

		length := int(uint16(lengthBuf[0]) | uint16(lengthBuf[1])<<8)
		if typ != recHeader2 || !isWANNetwork(version.Network) {
			log.Debugf("skipping header record of type %d (%d bytes)", typ, length)
			if _, err := rs.Seek(int64(length), io.SeekCurrent); err != nil {
				return encap, err
			}

			continue
		}

		peek := length
		if peek > maxHeaderPeek {
			peek = maxHeaderPeek
		}

		payload := make([]byte, peek)
		if _, err := io.ReadFull(rs, payload); err != nil {
			return encap, capture.ShortRead(unexpected(err), "header record")
		}

		wan, ok, err := wanEncap(version.MajorVersion, payload)
		if err != nil {
			return encap, err
		}

		if ok {
			log.Debugf("WAN header says %s", wan)
			encap = wan
		}

		if _, err := rs.Seek(int64(length-peek), io.SeekCurrent); err != nil {
			return encap, err
		}
	}
}

// unexpected turns a clean EOF in the middle of something into an unclean one.
func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}

	return err
}
