package capture

import (
	"github.com/google/gopacket/layers"
)

// Encapsulation is the link layer framing of a packet or a whole file.
type Encapsulation int

const (
	EncapUnknown Encapsulation = iota

	// EncapPerPacket is a file level encapsulation that says every record
	// carries (or must be guessed to carry) its own encapsulation.
	EncapPerPacket

	EncapEthernet
	EncapTokenRing
	EncapARCNET
	EncapFDDIBitswapped
	EncapATMPDUs
	EncapLAPB
	EncapSDLC
	EncapFrameRelay
	EncapPPP
	EncapISDN
	EncapWellfleetHDLC
	EncapCiscoHDLC
)

var encapToString = map[Encapsulation]string{
	EncapUnknown:        "unknown",
	EncapPerPacket:      "per-packet",
	EncapEthernet:       "ethernet",
	EncapTokenRing:      "token-ring",
	EncapARCNET:         "arcnet",
	EncapFDDIBitswapped: "fddi-bitswapped",
	EncapATMPDUs:        "atm-pdus",
	EncapLAPB:           "lapb",
	EncapSDLC:           "sdlc",
	EncapFrameRelay:     "frame-relay",
	EncapPPP:            "ppp",
	EncapISDN:           "isdn",
	EncapWellfleetHDLC:  "wellfleet-hdlc",
	EncapCiscoHDLC:      "cisco-hdlc",
}

func (enc Encapsulation) String() string {
	name, ok := encapToString[enc]
	if !ok {
		return "unknown"
	}

	return name
}

// EncapFromString is the inverse of Encapsulation.String().
func EncapFromString(name string) (Encapsulation, bool) {
	for enc, encName := range encapToString {
		if encName == name {
			return enc, true
		}
	}

	return EncapUnknown, false
}

// ARCNET with the libpcap link header.
const linkTypeARCNET = layers.LinkType(7)

var encapToLinkType = map[Encapsulation]layers.LinkType{
	EncapEthernet:       layers.LinkTypeEthernet,
	EncapTokenRing:      layers.LinkTypeTokenRing,
	EncapARCNET:         linkTypeARCNET,
	EncapFDDIBitswapped: layers.LinkTypeFDDI,
	EncapPPP:            layers.LinkTypePPP,
	EncapFrameRelay:     layers.LinkTypeFRelay,
	EncapCiscoHDLC:      layers.LinkTypeC_HDLC,
}

// LinkType returns the pcap link type that carries this encapsulation.
// The second return is false when pcap has no plain equivalent.
func (enc Encapsulation) LinkType() (layers.LinkType, bool) {
	lt, ok := encapToLinkType[enc]
	return lt, ok
}
