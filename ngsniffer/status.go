package ngsniffer

import (
	"github.com/sahib/sniffcap/capture"
)

// Frame status bits of ethernet captures.
const (
	fsEthCRC       = 0x80
	fsEthAlign     = 0x40
	fsEthRU        = 0x20
	fsEthOverrun   = 0x10
	fsEthRunt      = 0x08
	fsEthCollision = 0x02
)

// Frame status bits of FDDI captures.
const (
	fsFDDIPCIVDL   = 0x01
	fsFDDIPCICRC   = 0x02
	fsFDDIInvalid  = 0x10
	fsFDDIErrorISA = 0x20
)

// Frame status bits of WAN captures.
const (
	fsWANDTE = 0x80

	fsISDNChannelMask = 0x18
	fsISDNChannelD    = 0x18
	fsISDNChannelB1   = 0x08
	fsISDNChannelB2   = 0x10

	// Channel we report for bits we do not know.
	isdnChannelUnknown = 30
)

var ethStatusBits = []struct {
	bit uint8
	err capture.EthernetErrors
}{
	{fsEthCRC, capture.EthCRCError},
	{fsEthAlign, capture.EthAlignError},
	{fsEthRU, capture.EthOutOfResources},
	{fsEthOverrun, capture.EthOverrun},
	{fsEthRunt, capture.EthRunt},
	{fsEthCollision, capture.EthCollision},
}

func ethErrorsFromStatus(fs uint8) capture.EthernetErrors {
	var errs capture.EthernetErrors
	for _, entry := range ethStatusBits {
		if fs&entry.bit != 0 {
			errs |= entry.err
		}
	}

	return errs
}

func ethStatusFromErrors(errs capture.EthernetErrors) uint8 {
	var fs uint8
	for _, entry := range ethStatusBits {
		if errs&entry.err != 0 {
			fs |= entry.bit
		}
	}

	return fs
}

func fddiFromStatus(fs uint8) *capture.FDDIHeader {
	hdr := &capture.FDDIHeader{
		IndicatorsInvalid: fs&fsFDDIInvalid != 0,
		PCICRCError:       fs&fsFDDIPCICRC != 0,
		VDLError:          fs&fsFDDIPCIVDL != 0,
	}

	// The error bit means nothing if the indicators are invalid.
	if !hdr.IndicatorsInvalid {
		hdr.CRCError = fs&fsFDDIErrorISA != 0
	}

	return hdr
}

func isdnChannel(fs uint8) uint8 {
	switch fs & fsISDNChannelMask {
	case fsISDNChannelD:
		return 0
	case fsISDNChannelB1:
		return 1
	case fsISDNChannelB2:
		return 2
	}

	return isdnChannelUnknown
}

// frame2Pseudo derives the pseudo-header of a frame2 record from its status
// byte. The meaning of the byte depends on the file's encapsulation.
func frame2Pseudo(encap capture.Encapsulation, fs uint8) capture.PseudoHeader {
	dte := fs&fsWANDTE != 0

	switch encap {
	case capture.EncapEthernet:
		return &capture.EthernetHeader{FCSLen: 0, Errors: ethErrorsFromStatus(fs)}
	case capture.EncapFDDIBitswapped:
		return fddiFromStatus(fs)
	case capture.EncapPPP, capture.EncapSDLC:
		return &capture.P2PHeader{Sent: dte}
	case capture.EncapLAPB, capture.EncapFrameRelay, capture.EncapPerPacket:
		return &capture.DTEDCEHeader{FromDCE: !dte}
	case capture.EncapISDN:
		return &capture.ISDNHeader{UserToNetwork: dte, Channel: isdnChannel(fs)}
	}

	return nil
}

// frame6Pseudo is the pseudo-header of a frame6 record.
// Its status layout is not known, so little can be said.
func frame6Pseudo(encap capture.Encapsulation) capture.PseudoHeader {
	if encap == capture.EncapEthernet {
		return &capture.EthernetHeader{FCSLen: -1}
	}

	return nil
}

// statusFromPseudo is the inverse of frame2Pseudo.
func statusFromPseudo(pseudo capture.PseudoHeader) uint8 {
	var fs uint8

	switch hdr := pseudo.(type) {
	case *capture.EthernetHeader:
		fs = ethStatusFromErrors(hdr.Errors)
	case *capture.FDDIHeader:
		if hdr.IndicatorsInvalid {
			fs |= fsFDDIInvalid
		} else if hdr.CRCError {
			fs |= fsFDDIErrorISA
		}

		if hdr.PCICRCError {
			fs |= fsFDDIPCICRC
		}

		if hdr.VDLError {
			fs |= fsFDDIPCIVDL
		}
	case *capture.P2PHeader:
		if hdr.Sent {
			fs |= fsWANDTE
		}
	case *capture.DTEDCEHeader:
		if !hdr.FromDCE {
			fs |= fsWANDTE
		}
	case *capture.ISDNHeader:
		if hdr.UserToNetwork {
			fs |= fsWANDTE
		}

		switch hdr.Channel {
		case 0:
			fs |= fsISDNChannelD
		case 1:
			fs |= fsISDNChannelB1
		case 2:
			fs |= fsISDNChannelB2
		}
	}

	return fs
}
