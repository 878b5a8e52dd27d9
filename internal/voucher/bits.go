package voucher

import "errors"

var errShortRead = errors.New("bit stream exhausted")

// bitWriter packs values MSB-first.
type bitWriter struct {
	buf []byte
	n   int // bits written
}

func (w *bitWriter) write(v uint64, width int) {
	for i := width - 1; i >= 0; i-- {
		if w.n%8 == 0 {
			w.buf = append(w.buf, 0)
		}
		if v>>uint(i)&1 == 1 {
			w.buf[w.n/8] |= 0x80 >> uint(w.n%8)
		}
		w.n++
	}
}

// bytes returns the packed bits, the last byte zero-padded on the right.
func (w *bitWriter) bytes() []byte { return w.buf }

type bitReader struct {
	buf []byte
	pos int
	end int // bit length of buf that holds data
}

func newBitReader(buf []byte, bitLen int) *bitReader {
	return &bitReader{buf: buf, end: bitLen}
}

func (r *bitReader) read(width int) (uint64, error) {
	if r.pos+width > r.end {
		return 0, errShortRead
	}
	var v uint64
	for i := 0; i < width; i++ {
		bit := r.buf[r.pos/8] >> uint(7-r.pos%8) & 1
		v = v<<1 | uint64(bit)
		r.pos++
	}
	return v, nil
}

func (r *bitReader) remaining() int { return r.end - r.pos }
