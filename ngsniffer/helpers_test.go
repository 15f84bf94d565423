package ngsniffer

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/sahib/sniffcap/util/testutil"
	"github.com/stretchr/testify/require"
)

// 2024-01-15 in DOS notation.
const testDate = (2024-1980)<<9 | 1<<5 | 15

func u16(v int) []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, uint16(v))
	return buf
}

func u32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return buf
}

func be32(v uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, v)
	return buf
}

// testFile assembles captures byte by byte, independent of Writer.
type testFile struct {
	bytes.Buffer
}

type versionSpec struct {
	major   int16
	network uint8
	format  int8
	unit    uint8
	date    uint16
}

func newTestFile(v versionSpec) *testFile {
	f := &testFile{}
	f.Write(Magic)
	f.record(recVersion,
		u16(int(v.major)), u16(0), u16(0), u16(int(v.date)),
		[]byte{4, v.network, byte(v.format), v.unit, 0, 0},
		u16(0), u16(0),
	)
	return f
}

func ethernetFile() *testFile {
	return newTestFile(versionSpec{major: 4, network: netEthernet, format: 1, unit: 0, date: testDate})
}

func (f *testFile) record(typ recordType, parts ...[]byte) *testFile {
	body := bytes.Join(parts, nil)
	return f.rawRecord(uint16(typ), len(body), body)
}

// rawRecord allows lying about the length.
func (f *testFile) rawRecord(typ uint16, length int, body []byte) *testFile {
	f.Write(u16(int(typ)))
	f.Write(u16(length))
	f.Write(u16(0))
	f.Write(body)
	return f
}

func (f *testFile) eof() *testFile {
	return f.record(recEOF)
}

func frameHead(ticks uint64, day, fs uint8, size, trueSize int) []byte {
	return bytes.Join([][]byte{
		u16(int(ticks & 0xffff)),
		u16(int(ticks >> 16 & 0xffff)),
		{byte(ticks >> 32), day},
		u16(size),
		{fs, 0},
		u16(trueSize),
	}, nil)
}

func frame2(ticks uint64, day, fs uint8, trueSize int, data []byte) []byte {
	return bytes.Join([][]byte{frameHead(ticks, day, fs, len(data), trueSize), u16(0), data}, nil)
}

type atmSpec struct {
	status      uint32
	trafficType uint8
	hlType      uint8
	vpi, vci    int
	checksum    uint32
}

func frame4(atm atmSpec, data []byte) []byte {
	return bytes.Join([][]byte{
		frameHead(1, 0, 0, len(data), 0),
		u16(0), u16(0), // reserved, atm pad
		u32(atm.status),
		u16(0x1234), u16(len(data)), be32(atm.checksum),
		{atm.trafficType, atm.hlType}, u16(0),
		u16(atm.vpi), u16(atm.vci), u16(7), u16(3),
		u32(0), u32(0),
		data,
	}, nil)
}

func frame6(data []byte, trailer []byte) []byte {
	return bytes.Join([][]byte{frameHead(1, 0, 0, len(data), 0), trailer, data}, nil)
}

func openTestFile(t *testing.T, data []byte) *Reader {
	seq, random := testutil.Handles(data)
	rd, err := Open(seq, random, DefaultReaderOptions())
	require.Nil(t, err)
	return rd
}
