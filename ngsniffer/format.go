// Package ngsniffer reads and writes captures in the (NG) Sniffer
// "TRSNIFF" format, compressed or not.
package ngsniffer

import (
	"bytes"
	"io"

	"github.com/lunixbochs/struc"
	"github.com/sahib/sniffcap/capture"
)

// Magic is the preamble of every Sniffer capture.
var Magic = []byte("TRSNIFF data    \x1a")

type recordType uint16

const (
	recVersion recordType = 1
	recEOF     recordType = 3
	recFrame2  recordType = 4
	recHeader1 recordType = 6
	recHeader2 recordType = 7
	recFrame4  recordType = 8
	recFrame6  recordType = 12
	recHeader3 recordType = 13
	recHeader4 recordType = 14
	recHeader5 recordType = 15
	recHeader6 recordType = 16
	recHeader7 recordType = 17

	// Up to major version 2 type 8 is a description, not a frame.
	recV2Desc = recFrame4
)

// isHeaderRecord tells if a record of `typ` may appear between the
// version record and the first frame.
func isHeaderRecord(typ recordType, majorVersion int16) bool {
	switch typ {
	case recHeader1, recHeader2, recHeader3, recHeader4, recHeader5, recHeader6, recHeader7:
		return true
	case recV2Desc:
		return majorVersion <= 2
	}

	return false
}

// recordHeader precedes every record after the magic.
// Only the lower half of the length field is used.
type recordHeader struct {
	Type       uint16 `struc:"uint16,little"`
	Length     uint16 `struc:"uint16,little"`
	LengthHigh uint16 `struc:"uint16,little"`
}

const recordHeaderSize = 6

// versionRecord is the payload of the first record.
type versionRecord struct {
	MajorVersion    int16  `struc:"int16,little"`
	MinorVersion    int16  `struc:"int16,little"`
	Time            uint16 `struc:"uint16,little"`
	Date            uint16 `struc:"uint16,little"`
	Type            int8   `struc:"int8"`
	Network         uint8  `struc:"uint8"`
	Format          int8   `struc:"int8"`
	TimeUnit        uint8  `struc:"uint8"`
	CompressVersion int8   `struc:"int8"`
	CompressLevel   int8   `struc:"int8"`
	Reserved1       int16  `struc:"int16,little"`
	Reserved2       int16  `struc:"int16,little"`
}

const versionRecordSize = 18

// Format value of an uncompressed file. Anything else means compressed.
const formatUncompressed = 1

// frameCommon is the part all frame variants share.
type frameCommon struct {
	TimeLow  uint16 `struc:"uint16,little"`
	TimeMed  uint16 `struc:"uint16,little"`
	TimeHigh uint8  `struc:"uint8"`
	TimeDay  uint8  `struc:"uint8"`
	Size     uint16 `struc:"uint16,little"`
	Status   uint8  `struc:"uint8"`
	Flags    uint8  `struc:"uint8"`
	TrueSize uint16 `struc:"uint16,little"`
}

const frameCommonSize = 12

type frame2Tail struct {
	Reserved uint16 `struc:"uint16,little"`
}

// frame4Tail is used in ATM captures only.
type frame4Tail struct {
	Reserved3 uint16 `struc:"uint16,little"`
	ATMPad    uint16 `struc:"uint16,little"`

	StatusWord   uint32 `struc:"uint32,little"`
	AAL5U2U      uint16 `struc:"uint16,little"`
	AAL5Len      uint16 `struc:"uint16,little"`
	AAL5Checksum uint32 `struc:"uint32,big"`
	TrafficType  uint8  `struc:"uint8"`
	HLType       uint8  `struc:"uint8"`
	AppReserved  uint16 `struc:"uint16,little"`
	VPI          uint16 `struc:"uint16,little"`
	VCI          uint16 `struc:"uint16,little"`
	Channel      uint16 `struc:"uint16,little"`
	Cells        uint16 `struc:"uint16,little"`
	AppVal1      uint32 `struc:"uint32,little"`
	AppVal2      uint32 `struc:"uint32,little"`
}

// frame6Tail is not interpreted any further.
type frame6Tail struct {
	Opaque [22]byte `struc:"[22]byte"`
}

const (
	frame2Size = frameCommonSize + 2
	frame4Size = frameCommonSize + 36
	frame6Size = frameCommonSize + 22
)

func frameSize(typ recordType) int {
	switch typ {
	case recFrame2:
		return frame2Size
	case recFrame4:
		return frame4Size
	case recFrame6:
		return frame6Size
	}

	return 0
}

// Network types of the version record.
const (
	netTokenRing = 0
	netEthernet  = 1
	netARCNET    = 2
	netStarLAN   = 3
	netPCNW      = 4
	netLocalTalk = 5
	netZnet      = 6
	netSynchro   = 7
	netAsync     = 8
	netFDDI      = 9
	netATM       = 10
)

var networkEncaps = []capture.Encapsulation{
	netTokenRing: capture.EncapTokenRing,
	netEthernet:  capture.EncapEthernet,
	netARCNET:    capture.EncapARCNET,
	netStarLAN:   capture.EncapUnknown,
	netPCNW:      capture.EncapUnknown,
	netLocalTalk: capture.EncapUnknown,
	netZnet:      capture.EncapUnknown,
	netSynchro:   capture.EncapPerPacket,
	netAsync:     capture.EncapPerPacket,
	netFDDI:      capture.EncapFDDIBitswapped,
	netATM:       capture.EncapATMPDUs,
}

var networkNames = []string{
	"token-ring", "ethernet", "arcnet", "starlan", "pc-network", "localtalk",
	"znet", "synchronous", "asynchronous", "fddi", "atm",
}

// NetworkName returns a readable name of a version record network code.
func NetworkName(network uint8) string {
	if int(network) >= len(networkNames) {
		return "unknown"
	}

	return networkNames[network]
}

func isWANNetwork(network uint8) bool {
	return network == netSynchro || network == netAsync
}

func unpack(buf []byte, dst interface{}) error {
	return struc.Unpack(bytes.NewReader(buf), dst)
}

func pack(w io.Writer, src interface{}) error {
	return struc.Pack(w, src)
}
