package compress

const (
	maxShortRun    = minShortRun + 0x0f
	maxLongRun     = minLongRun + 0x0f + 0xff<<4
	maxOffset      = minOffset + 0x0f + 0xff<<4
	maxLongString  = minLongString + 0xff
	minStringMatch = 3
	hashBits       = 12
)

// encoder writes items and keeps the control word of the current group
// of 16 items up to date.
type encoder struct {
	out     []byte
	ctrlPos int
	mask    uint16
}

func (enc *encoder) begin(coded bool) {
	if enc.mask == 0 {
		enc.ctrlPos = len(enc.out)
		enc.out = append(enc.out, 0, 0)
		enc.mask = 0x8000
	}

	if coded {
		ctrl := uint16(enc.out[enc.ctrlPos]) | uint16(enc.out[enc.ctrlPos+1])<<8
		ctrl |= enc.mask
		enc.out[enc.ctrlPos] = byte(ctrl)
		enc.out[enc.ctrlPos+1] = byte(ctrl >> 8)
	}

	enc.mask >>= 1
}

func (enc *encoder) literal(b byte) {
	enc.begin(false)
	enc.out = append(enc.out, b)
}

func (enc *encoder) run(b byte, n int) {
	enc.begin(true)
	if n <= maxShortRun {
		enc.out = append(enc.out, byte(codeShortRun<<4|(n-minShortRun)), b)
		return
	}

	v := n - minLongRun
	enc.out = append(enc.out, byte(codeLongRun<<4|v&0x0f), byte(v>>4), b)
}

func (enc *encoder) backref(offset, n int) {
	enc.begin(true)

	v := offset - minOffset
	if n <= maxShortString {
		enc.out = append(enc.out, byte(n<<4|v&0x0f), byte(v>>4))
		return
	}

	enc.out = append(enc.out, byte(codeLongString<<4|v&0x0f), byte(v>>4), byte(n-minLongString))
}

func hash3(b []byte) uint32 {
	v := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
	return (v * 2654435761) >> (32 - hashBits)
}

func runLength(src []byte, i, limit int) int {
	n := 1
	for i+n < len(src) && n < limit && src[i+n] == src[i] {
		n++
	}

	return n
}

func matchLength(src []byte, cand, i, limit int) int {
	n := 0
	for i+n < len(src) && n < limit && src[cand+n] == src[i+n] {
		n++
	}

	return n
}

// Encode compresses `src` into a single LZ77 coded blob.
// It only emits back references that do not overlap with their target,
// so every output is accepted by Decompress.
func Encode(src []byte) ([]byte, error) {
	if len(src) > MaxBlobSize {
		return nil, ErrBlobTooLarge
	}

	enc := &encoder{out: make([]byte, 0, len(src)+len(src)/8+controlWordSize)}

	// Holds the last position (plus one) that had a certain 3 byte prefix.
	var table [1 << hashBits]int32
	insert := func(i int) {
		if i+minStringMatch <= len(src) {
			table[hash3(src[i:])] = int32(i + 1)
		}
	}

	for i := 0; i < len(src); {
		run := runLength(src, i, maxLongRun)

		mOff, mLen := 0, 0
		if i+minStringMatch <= len(src) {
			if cand := int(table[hash3(src[i:])]) - 1; cand >= 0 {
				off := i - cand
				if off >= minOffset && off <= maxOffset {
					limit := off
					if limit > maxLongString {
						limit = maxLongString
					}

					mLen = matchLength(src, cand, i, limit)
					mOff = off
				}
			}
		}

		n := 1
		switch {
		case run >= minShortRun && run >= mLen:
			enc.run(src[i], run)
			n = run
		case mLen >= minStringMatch:
			enc.backref(mOff, mLen)
			n = mLen
		default:
			enc.literal(src[i])
		}

		for j := i; j < i+n; j++ {
			insert(j)
		}

		i += n
	}

	return enc.out, nil
}
