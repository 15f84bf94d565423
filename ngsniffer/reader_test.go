package ngsniffer

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/sahib/sniffcap/capture"
	"github.com/sahib/sniffcap/util/testutil"
	"github.com/stretchr/testify/require"
)

func TestEthernetCRCFrame(t *testing.T) {
	data := testutil.CreateDummyBuf(64)

	// 1000 ticks of 15 usecs, one day after the start.
	file := ethernetFile().record(recFrame2, frame2(1000, 1, fsEthCRC, 128, data)).eof()
	rd := openTestFile(t, file.Bytes())
	require.Equal(t, capture.EncapEthernet, rd.Encapsulation())

	info := rd.Info()
	require.Equal(t, int16(4), info.MajorVersion)
	require.False(t, info.Compressed)
	require.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), info.Start)

	rec, off, err := rd.Next()
	require.Nil(t, err)
	require.Equal(t, info.DataOffset, off)
	require.Equal(t, 64, rec.CaptureLength)
	require.Equal(t, 128, rec.Length)
	require.Equal(t, data, rec.Data)
	require.Equal(t, capture.EncapEthernet, rec.Encap)
	require.Equal(t, &capture.EthernetHeader{FCSLen: 0, Errors: capture.EthCRCError}, rec.Pseudo)
	require.Equal(t, time.Date(2024, 1, 16, 0, 0, 0, 15000000, time.UTC), rec.Timestamp)

	for i := 0; i < 2; i++ {
		_, _, err = rd.Next()
		require.Equal(t, io.EOF, err)
	}

	again, err := rd.SeekRead(off)
	require.Nil(t, err)
	require.Equal(t, rec, again)
	require.Nil(t, rd.Close())
}

func TestEthernetStatusBits(t *testing.T) {
	tcs := []struct {
		fs   uint8
		errs capture.EthernetErrors
	}{
		{0x00, 0},
		{fsEthAlign, capture.EthAlignError},
		{fsEthRU | fsEthOverrun, capture.EthOutOfResources | capture.EthOverrun},
		{fsEthRunt | fsEthCollision, capture.EthRunt | capture.EthCollision},
		{0xff, capture.EthCRCError | capture.EthAlignError | capture.EthOutOfResources |
			capture.EthOverrun | capture.EthRunt | capture.EthCollision},
	}

	for _, tc := range tcs {
		require.Equal(t, tc.errs, ethErrorsFromStatus(tc.fs))
		require.Equal(t, tc.fs&^0x05, ethStatusFromErrors(tc.errs))
	}
}

func TestFDDIStatus(t *testing.T) {
	hdr := frame2Pseudo(capture.EncapFDDIBitswapped, fsFDDIErrorISA|fsFDDIPCIVDL)
	require.Equal(t, &capture.FDDIHeader{CRCError: true, VDLError: true}, hdr)

	hdr = frame2Pseudo(capture.EncapFDDIBitswapped, fsFDDIErrorISA|fsFDDIInvalid|fsFDDIPCICRC)
	require.Equal(t, &capture.FDDIHeader{IndicatorsInvalid: true, PCICRCError: true}, hdr)
}

func TestWANStatus(t *testing.T) {
	require.Equal(t, &capture.P2PHeader{Sent: true}, frame2Pseudo(capture.EncapPPP, fsWANDTE))
	require.Equal(t, &capture.P2PHeader{Sent: false}, frame2Pseudo(capture.EncapSDLC, 0))
	require.Equal(t, &capture.DTEDCEHeader{FromDCE: false}, frame2Pseudo(capture.EncapLAPB, fsWANDTE))
	require.Equal(t, &capture.DTEDCEHeader{FromDCE: true}, frame2Pseudo(capture.EncapFrameRelay, 0))

	tcs := []struct {
		fs      uint8
		channel uint8
	}{
		{fsISDNChannelD, 0},
		{fsISDNChannelB1, 1},
		{fsISDNChannelB2, 2},
		{0, isdnChannelUnknown},
	}

	for _, tc := range tcs {
		hdr := frame2Pseudo(capture.EncapISDN, tc.fs|fsWANDTE)
		require.Equal(t, &capture.ISDNHeader{UserToNetwork: true, Channel: tc.channel}, hdr)
	}

	require.Nil(t, frame2Pseudo(capture.EncapTokenRing, 0xff))
}

func TestNotThisFormat(t *testing.T) {
	inputs := [][]byte{
		{},
		[]byte("TRSNIFF"),
		[]byte("TRSNIFF data    \x1b and then some"),
		testutil.CreateDummyBuf(1024),
	}

	for _, input := range inputs {
		seq, random := testutil.Handles(input)
		_, err := Open(seq, random, DefaultReaderOptions())
		require.True(t, capture.IsNotThisFormat(err), "input %q", input)
	}
}

func TestOpenErrors(t *testing.T) {
	noVersion := &testFile{}
	noVersion.Write(Magic)
	noVersion.record(recFrame2, frame2(0, 0, 0, 0, []byte("x")))

	truncated := ethernetFile().Bytes()
	truncated = truncated[:len(truncated)-5]

	tcs := []struct {
		name  string
		data  []byte
		check func(error) bool
	}{
		{"no-version", noVersion.Bytes(), capture.IsBadFile},
		{"truncated-version", truncated, capture.IsShortRead},
		{"starlan", newTestFile(versionSpec{major: 4, network: netStarLAN, format: 1}).Bytes(), capture.IsUnsupported},
		{"znet", newTestFile(versionSpec{major: 4, network: netZnet, format: 1}).Bytes(), capture.IsUnsupported},
		{"network-11", newTestFile(versionSpec{major: 4, network: 11, format: 1}).Bytes(), capture.IsUnsupported},
		{"time-unit-7", newTestFile(versionSpec{major: 4, network: netEthernet, format: 1, unit: 7}).Bytes(), capture.IsUnsupported},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			seq, random := testutil.Handles(tc.data)
			_, err := Open(seq, random, DefaultReaderOptions())
			require.NotNil(t, err)
			require.True(t, tc.check(err), "got %v", err)
		})
	}
}

func TestFrameErrors(t *testing.T) {
	atm := versionSpec{major: 4, network: netATM, format: 1, date: testDate}
	data := []byte("some packet data")

	tcs := []struct {
		name  string
		file  *testFile
		check func(error) bool
	}{
		{
			name:  "record-shorter-than-header",
			file:  ethernetFile().rawRecord(uint16(recFrame2), 10, make([]byte, 10)),
			check: capture.IsBadFile,
		}, {
			name:  "record-shorter-than-packet",
			file:  ethernetFile().rawRecord(uint16(recFrame2), frame2Size+4, frame2(0, 0, 0, 0, data)),
			check: capture.IsBadFile,
		}, {
			name:  "frame2-in-atm",
			file:  newTestFile(atm).record(recFrame2, frame2(0, 0, 0, 0, data)),
			check: capture.IsBadFile,
		}, {
			name:  "frame4-in-ethernet",
			file:  ethernetFile().record(recFrame4, frame4(atmSpec{}, data)),
			check: capture.IsBadFile,
		}, {
			name:  "truncated-data",
			file:  ethernetFile().rawRecord(uint16(recFrame2), frame2Size+len(data), frame2(0, 0, 0, 0, data)[:frame2Size+3]),
			check: capture.IsShortRead,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			rd := openTestFile(t, tc.file.Bytes())
			_, _, err := rd.Next()
			require.True(t, tc.check(err), "got %v", err)

			// The reader stays broken.
			_, _, again := rd.Next()
			require.Equal(t, err, again)
		})
	}
}

func TestTruncatedRecordHeader(t *testing.T) {
	raw := ethernetFile().record(recFrame2, frame2(0, 0, 0, 0, []byte("x"))).eof().Bytes()

	// Cut the end marker in half.
	rd := openTestFile(t, raw[:len(raw)-3])
	_, _, err := rd.Next()
	require.Nil(t, err)

	_, _, err = rd.Next()
	require.True(t, capture.IsShortRead(err), "got %v", err)
}

func TestSkipUnknownRecordsAndPadding(t *testing.T) {
	first := []byte("first packet")
	second := []byte("second")

	file := ethernetFile()
	file.record(recordType(99), []byte("junk!"))
	file.record(recFrame2, frame2(10, 0, 0, 0, first), []byte{0xde, 0xad, 0xbe})
	file.record(recordType(42))
	file.record(recFrame2, frame2(20, 0, 0, 0, second))
	// No end marker; plain EOF is fine as well.

	rd := openTestFile(t, file.Bytes())

	rec1, off1, err := rd.Next()
	require.Nil(t, err)
	require.Equal(t, first, rec1.Data)

	rec2, off2, err := rd.Next()
	require.Nil(t, err)
	require.Equal(t, second, rec2.Data)
	require.True(t, off2 > off1)

	_, _, err = rd.Next()
	require.Equal(t, io.EOF, err)

	// The unknown record right after the version record is not a frame.
	_, err = rd.SeekRead(rd.Info().DataOffset)
	require.True(t, capture.IsBadFile(err))

	rec, err := rd.SeekRead(off1)
	require.Nil(t, err)
	require.Equal(t, rec1, rec)
}

func TestTruncatedSkips(t *testing.T) {
	packet := []byte("packet")
	tcs := []struct {
		name string
		file *testFile
	}{{
		name: "unknown record",
		file: ethernetFile().
			record(recFrame2, frame2(10, 0, 0, 0, packet)).
			rawRecord(99, 100, []byte("junk")),
	}, {
		name: "frame padding",
		file: ethernetFile().
			record(recFrame2, frame2(10, 0, 0, 0, packet)).
			rawRecord(uint16(recFrame2), frame2Size+len(packet)+50, append(frame2(20, 0, 0, 0, packet), 0, 0)),
	}}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			rd := openTestFile(t, tc.file.Bytes())

			rec, _, err := rd.Next()
			require.Nil(t, err)
			require.Equal(t, packet, rec.Data)

			_, _, err = rd.Next()
			require.True(t, capture.IsShortRead(err), "got %v", err)

			_, _, err = rd.Next()
			require.True(t, capture.IsShortRead(err))
		})
	}
}

func TestSeekReadWithoutRandomHandle(t *testing.T) {
	file := ethernetFile().record(recFrame2, frame2(10, 0, 0, 0, []byte("x"))).eof()
	rd, err := Open(bytes.NewReader(file.Bytes()), nil, DefaultReaderOptions())
	require.Nil(t, err)

	_, off, err := rd.Next()
	require.Nil(t, err)

	_, err = rd.SeekRead(off)
	require.Equal(t, capture.ErrNoRandomAccess, err)
	require.Nil(t, rd.Index())
}

func TestWANHeaderRecords(t *testing.T) {
	router := func(isdn byte) []byte {
		payload := make([]byte, wanHeaderSize)
		payload[wanSubtypeOffset] = wanSubtypeRouter
		payload[wanISDNOffset] = isdn
		return payload
	}

	tcs := []struct {
		name    string
		major   int16
		network uint8
		payload []byte
		encap   capture.Encapsulation
		fails   bool
	}{
		{"v4-sdlc", 4, netSynchro, []byte{0, 0, 0, 0, wanSubtypeSDLC}, capture.EncapSDLC, false},
		{"v4-hdlc", 4, netSynchro, []byte{0, 0, 0, 0, wanSubtypeHDLC}, capture.EncapPerPacket, false},
		{"v5-fr", 5, netAsync, []byte{0, 0, 0, 0, wanSubtypeFR}, capture.EncapFrameRelay, false},
		{"v1-ppp", 1, netSynchro, []byte{0, 0, 0, 0, wanSubtypePPP}, capture.EncapPPP, false},
		{"v4-isdn", 4, netSynchro, router(1), capture.EncapISDN, false},
		{"v4-router", 4, netSynchro, router(0), capture.EncapPerPacket, false},
		{"v4-router-short", 4, netSynchro, router(1)[:10], 0, true},
		{"v4-smds", 4, netSynchro, []byte{0, 0, 0, 0, 5}, 0, true},
		{"v4-short", 4, netSynchro, []byte{0, 0, 0, 0}, 0, true},
		{"v7-x25", 7, netSynchro, []byte("HDLC\nX.25\nand more"), capture.EncapLAPB, false},
		{"v7-other", 7, netSynchro, []byte("HDLC\nSDLC\n"), 0, true},
		{"v7-short", 7, netSynchro, []byte("HDLC"), 0, true},
		{"v3-ignored", 3, netSynchro, []byte{0, 0, 0, 0, 5}, capture.EncapPerPacket, false},
		{"not-wan", 4, netEthernet, []byte{0, 0, 0, 0, 5}, capture.EncapEthernet, false},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			file := newTestFile(versionSpec{major: tc.major, network: tc.network, format: 1, date: testDate})
			file.record(recHeader1, []byte("ignored"))
			file.record(recHeader2, tc.payload)
			file.record(recHeader7)
			file.record(recFrame2, frame2(0, 0, fsWANDTE, 0, []byte{0xff, 0x03, 0x00, 0x21}))
			file.eof()

			seq, random := testutil.Handles(file.Bytes())
			rd, err := Open(seq, random, DefaultReaderOptions())
			if tc.fails {
				require.True(t, capture.IsUnsupported(err), "got %v", err)
				return
			}

			require.Nil(t, err)
			require.Equal(t, tc.encap, rd.Encapsulation())

			_, off, err := rd.Next()
			require.Nil(t, err)
			require.Equal(t, rd.Info().DataOffset, off)
		})
	}
}

func TestLongHeaderRecord(t *testing.T) {
	payload := make([]byte, 1000)
	payload[wanSubtypeOffset] = wanSubtypePPP

	file := newTestFile(versionSpec{major: 4, network: netSynchro, format: 1, date: testDate})
	file.record(recHeader2, payload)
	file.record(recFrame2, frame2(0, 0, 0, 0, []byte{1, 2, 3})).eof()

	rd := openTestFile(t, file.Bytes())
	require.Equal(t, capture.EncapPPP, rd.Encapsulation())

	rec, _, err := rd.Next()
	require.Nil(t, err)
	require.Equal(t, []byte{1, 2, 3}, rec.Data)
}

func TestV2DescriptionRecord(t *testing.T) {
	// Up to version 2, type 8 is a header record and gets skipped.
	file := newTestFile(versionSpec{major: 2, network: netEthernet, format: 1, date: testDate})
	file.record(recV2Desc, []byte("a description"))
	file.record(recFrame2, frame2(0, 0, 0, 0, []byte("x"))).eof()

	rd := openTestFile(t, file.Bytes())
	rec, _, err := rd.Next()
	require.Nil(t, err)
	require.Equal(t, []byte("x"), rec.Data)
}

func TestEmptyCapture(t *testing.T) {
	rd := openTestFile(t, ethernetFile().Bytes())
	_, _, err := rd.Next()
	require.Equal(t, io.EOF, err)
}

func TestPerPacketInference(t *testing.T) {
	tcs := []struct {
		data   []byte
		fs     uint8
		encap  capture.Encapsulation
		pseudo capture.PseudoHeader
	}{
		{[]byte{0xff, 0x03, 0x00, 0x21}, fsWANDTE, capture.EncapPPP, &capture.P2PHeader{Sent: true}},
		{[]byte{0x07, 0x03, 0x00}, 0, capture.EncapWellfleetHDLC, &capture.P2PHeader{Sent: false}},
		{[]byte{0x8f, 0x00, 0x08, 0x00}, fsWANDTE, capture.EncapCiscoHDLC, &capture.P2PHeader{Sent: true}},
		{[]byte{0x18, 0x41, 0x03, 0xcc}, 0, capture.EncapFrameRelay, &capture.DTEDCEHeader{FromDCE: true}},
		{[]byte{0x01, 0x3f}, fsWANDTE, capture.EncapLAPB, &capture.DTEDCEHeader{FromDCE: false}},
		{[]byte{}, 0, capture.EncapLAPB, &capture.DTEDCEHeader{FromDCE: true}},
	}

	file := newTestFile(versionSpec{major: 4, network: netSynchro, format: 1, date: testDate})
	for _, tc := range tcs {
		file.record(recFrame2, frame2(0, 0, tc.fs, 0, tc.data))
	}

	rd := openTestFile(t, file.eof().Bytes())
	require.Equal(t, capture.EncapPerPacket, rd.Encapsulation())

	for _, tc := range tcs {
		rec, _, err := rd.Next()
		require.Nil(t, err)
		require.Equal(t, tc.encap, rec.Encap, "data %x", tc.data)
		require.Equal(t, tc.pseudo, rec.Pseudo, "data %x", tc.data)
	}

	// Without inference the records keep the file's encapsulation.
	seq, random := testutil.Handles(file.Bytes())
	rd, err := Open(seq, random, ReaderOptions{InferEncap: false})
	require.Nil(t, err)

	rec, _, err := rd.Next()
	require.Nil(t, err)
	require.Equal(t, capture.EncapPerPacket, rec.Encap)
	require.Equal(t, &capture.DTEDCEHeader{FromDCE: false}, rec.Pseudo)
}

func TestInferEncap(t *testing.T) {
	tcs := []struct {
		data  []byte
		encap capture.Encapsulation
	}{
		{nil, capture.EncapLAPB},
		{[]byte{}, capture.EncapLAPB},
		{[]byte{0xff}, capture.EncapPPP},
		{[]byte{0x07, 0x03}, capture.EncapWellfleetHDLC},
		{[]byte{0x0f, 0x00}, capture.EncapCiscoHDLC},
		{[]byte{0x8f, 0x00}, capture.EncapCiscoHDLC},
		{[]byte{0x01, 0x03}, capture.EncapFrameRelay},
		{[]byte{0x00, 0x01, 0x03}, capture.EncapFrameRelay},
		{[]byte{0x01}, capture.EncapLAPB},
		{[]byte{0x00, 0x00, 0x00}, capture.EncapLAPB},
		{[]byte{0x03, 0x04}, capture.EncapLAPB},
	}

	for _, tc := range tcs {
		require.Equal(t, tc.encap, inferEncap(tc.data), "data %x", tc.data)
	}
}

func TestATMFrames(t *testing.T) {
	lane := atmSpec{
		status:      swRawCell,
		trafficType: attAAL5 | attHLLANE,
		hlType:      0x02,
		vpi:         1,
		vci:         42,
		checksum:    0xdeadbeef,
	}

	tcs := []struct {
		name string
		cell atmSpec
		data []byte
		want *capture.ATMHeader
	}{
		{
			name: "lane-802.3",
			cell: lane,
			data: []byte{0x00, 0x01, 0x02},
			want: &capture.ATMHeader{
				Flags: capture.ATMRawCell, AAL: capture.AAL5,
				Type: capture.ATMTypeLANE, Subtype: capture.ATMSubtypeLE802_3,
				VPI: 1, VCI: 42, Channel: 7, Cells: 3,
				AAL5U2U: 0x1234, AAL5Len: 3, AAL5Checksum: 0xdeadbeef,
			},
		}, {
			name: "lane-control",
			cell: lane,
			data: []byte{0xff, 0x00, 0x01},
			want: &capture.ATMHeader{
				Flags: capture.ATMRawCell, AAL: capture.AAL5,
				Type: capture.ATMTypeLANE, Subtype: capture.ATMSubtypeLEControl,
				VPI: 1, VCI: 42, Channel: 7, Cells: 3,
				AAL5U2U: 0x1234, AAL5Len: 3, AAL5Checksum: 0xdeadbeef,
			},
		}, {
			name: "vcmx",
			cell: atmSpec{trafficType: attAAL5 | attHLVCMX, hlType: 0x0e, vpi: 2, vci: 3},
			data: []byte{1},
			want: &capture.ATMHeader{
				AAL: capture.AAL5, Type: capture.ATMTypeVCMX, Subtype: capture.ATMSubtypeBPDU,
				VPI: 2, VCI: 3, Channel: 7, Cells: 3, AAL5U2U: 0x1234, AAL5Len: 1,
			},
		}, {
			name: "ipsilon",
			cell: atmSpec{trafficType: attAAL5 | attHLIPSILON, hlType: 0x02},
			data: []byte{1},
			want: &capture.ATMHeader{
				AAL: capture.AAL5, Type: capture.ATMTypeIPSILON, Subtype: capture.ATMSubtypeIPSilonFT1,
				Channel: 7, Cells: 3, AAL5U2U: 0x1234, AAL5Len: 1,
			},
		}, {
			name: "signalling-channel",
			cell: atmSpec{trafficType: attAALUnknown, vpi: 0, vci: 5},
			data: []byte{1},
			want: &capture.ATMHeader{
				AAL: capture.AALSignalling, VCI: 5, Channel: 7, Cells: 3, AAL5U2U: 0x1234, AAL5Len: 1,
			},
		}, {
			name: "unknown",
			cell: atmSpec{trafficType: attAALUnknown, vpi: 0, vci: 6},
			data: []byte{1},
			want: &capture.ATMHeader{
				AAL: capture.AALUnknown, VCI: 6, Channel: 7, Cells: 3, AAL5U2U: 0x1234, AAL5Len: 1,
			},
		}, {
			name: "reserved-aal-on-signalling-channel",
			cell: atmSpec{trafficType: 0x09, vpi: 0, vci: 5},
			data: []byte{1},
			want: &capture.ATMHeader{
				AAL: capture.AALUnknown, VCI: 5, Channel: 7, Cells: 3, AAL5U2U: 0x1234, AAL5Len: 1,
			},
		}, {
			name: "oam",
			cell: atmSpec{trafficType: attOAMCell | attHLLANE},
			data: []byte{0xff, 0x00},
			want: &capture.ATMHeader{
				AAL: capture.AALOAMCell, Channel: 7, Cells: 3, AAL5U2U: 0x1234, AAL5Len: 2,
			},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			file := newTestFile(versionSpec{major: 4, network: netATM, format: 1, date: testDate})
			file.record(recFrame4, frame4(tc.cell, tc.data)).eof()

			rd := openTestFile(t, file.Bytes())
			require.Equal(t, capture.EncapATMPDUs, rd.Encapsulation())

			rec, _, err := rd.Next()
			require.Nil(t, err)
			require.Equal(t, tc.data, rec.Data)
			require.Equal(t, tc.want, rec.Pseudo)
		})
	}
}

func TestFrame6(t *testing.T) {
	trailer := testutil.CreateDummyBuf(22)
	file := ethernetFile().record(recFrame6, frame6([]byte("payload"), trailer)).eof()

	rd := openTestFile(t, file.Bytes())
	rec, _, err := rd.Next()
	require.Nil(t, err)
	require.Equal(t, []byte("payload"), rec.Data)
	require.Equal(t, trailer, rec.Extra)
	require.Equal(t, &capture.EthernetHeader{FCSLen: -1}, rec.Pseudo)
}
