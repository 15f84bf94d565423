package capture

import (
	"fmt"

	"github.com/google/gopacket"
)

// Record is a single captured packet.
// Timestamp, CaptureLength (bytes in Data) and Length (bytes on the wire)
// come from the embedded CaptureInfo.
type Record struct {
	gopacket.CaptureInfo

	// Encap is the encapsulation of this packet. It only differs from the
	// file's encapsulation if that one is EncapPerPacket.
	Encap Encapsulation

	// Pseudo holds link layer metadata that is not part of Data. May be nil.
	Pseudo PseudoHeader

	Data []byte

	// Extra carries format specific bytes that are passed on uninterpreted.
	Extra []byte
}

func (rec *Record) String() string {
	return fmt.Sprintf(
		"%s %s caplen=%d len=%d",
		rec.Timestamp.Format("2006-01-02 15:04:05.000000000"),
		rec.Encap,
		rec.CaptureLength,
		rec.Length,
	)
}

// PseudoHeader is one of the *Header types in this package.
type PseudoHeader interface {
	isPseudoHeader()
}

// EthernetErrors is a set of receive errors reported for an ethernet frame.
type EthernetErrors uint8

const (
	EthCRCError EthernetErrors = 1 << iota
	EthAlignError
	EthOutOfResources
	EthOverrun
	EthRunt
	EthCollision
)

// EthernetHeader describes an ethernet frame.
type EthernetHeader struct {
	// FCSLen is the number of checksum bytes at the end of Data,
	// or -1 if that is unknown.
	FCSLen int
	Errors EthernetErrors
}

// FDDIHeader holds the frame status indicators of an FDDI frame.
type FDDIHeader struct {
	// IndicatorsInvalid is set when the adapter could not report status.
	IndicatorsInvalid bool
	CRCError          bool
	PCICRCError       bool
	VDLError          bool
}

// P2PHeader is used for point-to-point links.
type P2PHeader struct {
	// Sent is true for traffic sent by the capturing side.
	Sent bool
}

// DTEDCEHeader is used for X.25 style links.
type DTEDCEHeader struct {
	FromDCE bool
}

// ISDNHeader says which ISDN channel a frame was seen on.
type ISDNHeader struct {
	UserToNetwork bool

	// Channel is 0 for the D channel, 1 and 2 for the B channels.
	Channel uint8
}

// ATM adaptation layer.
type ATMAAL uint8

const (
	AALUnknown ATMAAL = iota
	AAL1
	AAL2
	AAL3_4
	AAL5
	AALUser
	AALSignalling
	AALOAMCell
)

// ATM traffic type, for AAL5 and user traffic.
type ATMType uint8

const (
	ATMTypeUnknown ATMType = iota
	ATMTypeLLCMX
	ATMTypeVCMX
	ATMTypeLANE
	ATMTypeILMI
	ATMTypeFRMX
	ATMTypeSPANS
	ATMTypeIPSILON
)

// ATM subtypes of VCMX, LANE and IPSILON traffic.
type ATMSubtype uint8

const (
	ATMSubtypeUnknown ATMSubtype = iota
	ATMSubtype802_3FCS
	ATMSubtype802_4FCS
	ATMSubtype802_5FCS
	ATMSubtypeFDDIFCS
	ATMSubtype802_6FCS
	ATMSubtype802_3NoFCS
	ATMSubtype802_4NoFCS
	ATMSubtype802_5NoFCS
	ATMSubtypeFDDINoFCS
	ATMSubtype802_6NoFCS
	ATMSubtypeFragments
	ATMSubtypeBPDU
	ATMSubtypeLEControl
	ATMSubtypeLE802_3
	ATMSubtypeLE802_5
	ATMSubtypeLE802_3MC
	ATMSubtypeLE802_5MC
	ATMSubtypeIPSilonFT0
	ATMSubtypeIPSilonFT1
	ATMSubtypeIPSilonFT2
)

// ATM flags.
const (
	ATMRawCell = 1 << iota
)

// ATMHeader holds the per-PDU information of ATM captures.
type ATMHeader struct {
	Flags   uint32
	AAL     ATMAAL
	Type    ATMType
	Subtype ATMSubtype

	VPI     uint16
	VCI     uint16
	Channel uint16
	Cells   uint16

	AAL5U2U      uint16
	AAL5Len      uint16
	AAL5Checksum uint32
}

func (*EthernetHeader) isPseudoHeader() {}
func (*FDDIHeader) isPseudoHeader()     {}
func (*P2PHeader) isPseudoHeader()      {}
func (*DTEDCEHeader) isPseudoHeader()   {}
func (*ISDNHeader) isPseudoHeader()     {}
func (*ATMHeader) isPseudoHeader()      {}
