package hexbin

// pairDecoder accumulates two significant characters and turns them into
// one byte. Separators are skipped; anything else that is not a hex digit
// fails immediately.
type pairDecoder struct {
	pair   [2]byte
	n      int
	offset int64
	digits int64
}

func isSeparator(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', 0:
		return true
	}
	return false
}

func nibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}

// feed consumes one input character. It returns the decoded byte and true
// when c completes a pair.
func (d *pairDecoder) feed(c byte) (byte, bool, error) {
	offset := d.offset
	d.offset++

	if isSeparator(c) {
		return 0, false, nil
	}

	v, ok := nibble(c)
	if !ok {
		return 0, false, &DecodeError{Char: c, Offset: offset}
	}
	d.digits++
	d.pair[d.n] = v
	d.n++
	if d.n < len(d.pair) {
		return 0, false, nil
	}

	d.n = 0
	return d.pair[0]<<4 | d.pair[1], true, nil
}

// pending reports whether a lone digit is waiting for its partner.
func (d *pairDecoder) pending() bool {
	return d.n != 0
}
