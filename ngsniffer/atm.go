package ngsniffer

import (
	"github.com/sahib/sniffcap/capture"
)

// Bits of the ATM status word.
const (
	swErrMask    = 0x0F
	swCLP        = 0x20
	swCongestion = 0x40
	swError      = 0x80
	swRawCell    = 0x100
	swOAMCell    = 0x200
)

// The lower nibble of the traffic type is the adaptation layer.
const (
	attAALMask       = 0x0F
	attAALUnknown    = 0x00
	attAAL1          = 0x01
	attAAL3_4        = 0x02
	attAAL5          = 0x03
	attAALUser       = 0x04
	attAALSignalling = 0x05
	attOAMCell       = 0x06
)

// The upper nibble is the higher layer type.
const (
	attHLMask    = 0xF0
	attHLUnknown = 0x00
	attHLLLCMX   = 0x10
	attHLVCMX    = 0x20
	attHLLANE    = 0x30
	attHLILMI    = 0x40
	attHLFRMR    = 0x50
	attHLSPANS   = 0x60
	attHLIPSILON = 0x70
)

var vcmxSubtypes = map[uint8]capture.ATMSubtype{
	0x01: capture.ATMSubtype802_3FCS,
	0x02: capture.ATMSubtype802_4FCS,
	0x03: capture.ATMSubtype802_5FCS,
	0x04: capture.ATMSubtypeFDDIFCS,
	0x05: capture.ATMSubtype802_6FCS,
	0x07: capture.ATMSubtype802_3NoFCS,
	0x08: capture.ATMSubtype802_4NoFCS,
	0x09: capture.ATMSubtype802_5NoFCS,
	0x0a: capture.ATMSubtypeFDDINoFCS,
	0x0b: capture.ATMSubtype802_6NoFCS,
	0x0c: capture.ATMSubtypeFragments,
	0x0e: capture.ATMSubtypeBPDU,
}

var laneSubtypes = map[uint8]capture.ATMSubtype{
	0x01: capture.ATMSubtypeLEControl,
	0x02: capture.ATMSubtypeLE802_3,
	0x03: capture.ATMSubtypeLE802_5,
	0x04: capture.ATMSubtypeLE802_3MC,
	0x05: capture.ATMSubtypeLE802_5MC,
}

var ipsilonSubtypes = map[uint8]capture.ATMSubtype{
	0x01: capture.ATMSubtypeIPSilonFT0,
	0x02: capture.ATMSubtypeIPSilonFT1,
	0x03: capture.ATMSubtypeIPSilonFT2,
}

// aal5Type classifies AAL5 traffic by its higher layer type.
func aal5Type(trafficType, hlType uint8) (capture.ATMType, capture.ATMSubtype) {
	switch trafficType & attHLMask {
	case attHLLLCMX:
		return capture.ATMTypeLLCMX, capture.ATMSubtypeUnknown
	case attHLVCMX:
		return capture.ATMTypeVCMX, vcmxSubtypes[hlType]
	case attHLLANE:
		return capture.ATMTypeLANE, laneSubtypes[hlType]
	case attHLILMI:
		return capture.ATMTypeILMI, capture.ATMSubtypeUnknown
	case attHLFRMR:
		return capture.ATMTypeFRMX, capture.ATMSubtypeUnknown
	case attHLSPANS:
		return capture.ATMTypeSPANS, capture.ATMSubtypeUnknown
	case attHLIPSILON:
		return capture.ATMTypeIPSILON, ipsilonSubtypes[hlType]
	}

	return capture.ATMTypeUnknown, capture.ATMSubtypeUnknown
}

// atmPseudo builds the ATM pseudo-header of a frame4 record.
func atmPseudo(tail *frame4Tail) *capture.ATMHeader {
	hdr := &capture.ATMHeader{
		VPI:          tail.VPI,
		VCI:          tail.VCI,
		Channel:      tail.Channel,
		Cells:        tail.Cells,
		AAL5U2U:      tail.AAL5U2U,
		AAL5Len:      tail.AAL5Len,
		AAL5Checksum: tail.AAL5Checksum,
	}

	if tail.StatusWord&swRawCell != 0 {
		hdr.Flags |= capture.ATMRawCell
	}

	switch tail.TrafficType & attAALMask {
	case attAAL1:
		hdr.AAL = capture.AAL1
	case attAAL3_4:
		hdr.AAL = capture.AAL3_4
	case attAAL5:
		hdr.AAL = capture.AAL5
		hdr.Type, hdr.Subtype = aal5Type(tail.TrafficType, tail.HLType)
	case attAALUser:
		hdr.AAL = capture.AALUser
	case attAALSignalling:
		hdr.AAL = capture.AALSignalling
	case attOAMCell:
		hdr.AAL = capture.AALOAMCell
	case attAALUnknown:
		// VPI 0/VCI 5 is the signalling channel.
		if tail.VPI == 0 && tail.VCI == 5 {
			hdr.AAL = capture.AALSignalling
		} else {
			hdr.AAL = capture.AALUnknown
		}
	default:
		hdr.AAL = capture.AALUnknown
	}

	return hdr
}

// fixLANE marks LANE traffic that starts with the LE control
// marker as such, whatever the subtype said.
func fixLANE(hdr *capture.ATMHeader, data []byte) {
	if hdr.Type != capture.ATMTypeLANE || len(data) < 2 {
		return
	}

	if data[0] == 0xff && data[1] == 0x00 {
		hdr.Subtype = capture.ATMSubtypeLEControl
	}
}
