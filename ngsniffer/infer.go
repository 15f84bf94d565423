package ngsniffer

import (
	"github.com/sahib/sniffcap/capture"
	log "github.com/sirupsen/logrus"
)

// inferEncap guesses the encapsulation of a WAN frame from its first bytes.
// Frames that match nothing, empty ones included, are taken as LAPB.
func inferEncap(data []byte) capture.Encapsulation {
	if len(data) == 0 {
		return capture.EncapLAPB
	}

	if data[0] == 0xff {
		// PPP in HDLC-like framing: all stations address.
		return capture.EncapPPP
	}

	if len(data) >= 2 {
		switch {
		case data[0] == 0x07 && data[1] == 0x03:
			return capture.EncapWellfleetHDLC
		case (data[0] == 0x0f || data[0] == 0x8f) && data[1] == 0x00:
			return capture.EncapCiscoHDLC
		}
	}

	// Walk the extended address to its last byte (low bit set);
	// a UI control byte after it means Frame Relay.
	i := 0
	for i < len(data) && data[i]&0x01 == 0 {
		i++
	}

	i++
	if i >= len(data) {
		return capture.EncapLAPB
	}

	if data[i] == 0x03 {
		return capture.EncapFrameRelay
	}

	return capture.EncapLAPB
}

// fixPerPacket assigns the guessed encapsulation to a record of a per-packet
// capture and converts its pseudo-header to the matching kind.
func fixPerPacket(rec *capture.Record) {
	encap := inferEncap(rec.Data)
	rec.Encap = encap

	dteDce, ok := rec.Pseudo.(*capture.DTEDCEHeader)
	if !ok {
		return
	}

	switch encap {
	case capture.EncapWellfleetHDLC, capture.EncapCiscoHDLC, capture.EncapPPP:
		rec.Pseudo = &capture.P2PHeader{Sent: !dteDce.FromDCE}
	case capture.EncapLAPB:
		log.Debugf("guessed lapb for a %d byte frame", len(rec.Data))
	}
}
