package ngsniffer

import (
	"time"

	"github.com/sahib/sniffcap/capture"
)

// Picoseconds per tick, indexed by the version record's time unit.
var timeUnits = []uint64{
	15000000, // 15.0 usecs
	838096,   // .838096 usecs
	15000000, // 15.0 usecs
	500000,   // 0.5 usecs
	2000000,  // 2.0 usecs
	1000000,  // 1.0 usecs
	100000,   // 0.1 usecs
}

const (
	picosPerSecond = 1000000000000
	picosPerNano   = 1000
	secondsPerDay  = 86400
	maxTicks       = 1<<40 - 1
	maxDays        = 255
	dosEpochYear   = 1980
)

func checkTimeUnit(unit uint8) error {
	if int(unit) >= len(timeUnits) {
		return capture.Unsupported("time unit %d is not known", unit)
	}

	return nil
}

// decodeDate returns midnight (UTC) of a DOS encoded date.
func decodeDate(date uint16) time.Time {
	year := int(date>>9) + dosEpochYear
	month := time.Month(date >> 5 & 0x0f)
	day := int(date & 0x1f)
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// encodeDate is the inverse of decodeDate. Dates before 1980
// or after 2107 cannot be represented.
func encodeDate(t time.Time) (uint16, error) {
	t = t.UTC()
	year := t.Year() - dosEpochYear
	if year < 0 || year > 0x7f {
		return 0, capture.Unsupported("date %s is out of range", t.Format("2006-01-02"))
	}

	return uint16(year)<<9 | uint16(t.Month())<<5 | uint16(t.Day()), nil
}

// decodeTimestamp turns the 40 bit tick counter and the day counter
// of a frame into an absolute time.
func decodeTimestamp(start time.Time, unit uint64, frame *frameCommon) time.Time {
	ticks := uint64(frame.TimeHigh)<<32 | uint64(frame.TimeMed)<<16 | uint64(frame.TimeLow)
	picos := ticks * unit

	secs := int64(picos/picosPerSecond) + int64(frame.TimeDay)*secondsPerDay
	nsecs := int64(picos%picosPerSecond) / picosPerNano
	return time.Unix(start.Unix()+secs, nsecs).UTC()
}

// encodeTimestamp fills the time fields of `frame` for `ts`.
// The result is truncated to whole ticks.
func encodeTimestamp(start time.Time, unit uint64, ts time.Time, frame *frameCommon) error {
	secs := ts.Unix() - start.Unix()
	if secs < 0 {
		return capture.Unsupported("timestamp %v is before the capture start %v", ts, start)
	}

	days := secs / secondsPerDay
	if days > maxDays {
		return capture.Unsupported("timestamp %v is more than %d days after the capture start", ts, maxDays)
	}

	secs -= days * secondsPerDay
	picos := uint64(secs)*picosPerSecond + uint64(ts.Nanosecond())*picosPerNano
	ticks := picos / unit
	if ticks > maxTicks {
		return capture.Unsupported("timestamp %v does not fit into 40 bits", ts)
	}

	frame.TimeLow = uint16(ticks)
	frame.TimeMed = uint16(ticks >> 16)
	frame.TimeHigh = uint8(ticks >> 32)
	frame.TimeDay = uint8(days)
	return nil
}
