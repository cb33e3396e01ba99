package ipfix

import (
	"io"

	"github.com/bio-routing/tflow2/convert"
)

// reader is a forward only cursor over a message buffer. Sub readers share the
// buffer and report positions relative to its start.
type reader struct {
	buf     []byte
	pos     int
	end     int
	limited bool
}

func newReader(buf []byte) *reader {
	return &reader{
		buf: buf,
		end: len(buf),
	}
}

func (r *reader) offset() int64 {
	return int64(r.pos)
}

func (r *reader) remaining() int {
	return r.end - r.pos
}

// next consumes n bytes. Running into the limit of a sub reader is reported as
// ErrRecordOverrun, running out of input as io.ErrUnexpectedEOF.
func (r *reader) next(n int) ([]byte, error) {
	if n > r.remaining() {
		if r.limited {
			return nil, newError(r.offset(), ErrRecordOverrun)
		}

		return nil, newError(r.offset(), io.ErrUnexpectedEOF)
	}

	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// sub returns a reader limited to the next n bytes and advances r past them
func (r *reader) sub(n int) (*reader, error) {
	if n > r.remaining() {
		return nil, newError(r.offset(), io.ErrUnexpectedEOF)
	}

	s := &reader{
		buf:     r.buf,
		pos:     r.pos,
		end:     r.pos + n,
		limited: true,
	}
	r.pos += n
	return s, nil
}

// isPadding reports whether the rest of r is shorter than min and zeroed
func (r *reader) isPadding(min int) bool {
	return r.remaining() < min && r.isZero()
}

// isZero reports whether the rest of r is zeroed
func (r *reader) isZero() bool {
	for _, b := range r.buf[r.pos:r.end] {
		if b != 0 {
			return false
		}
	}

	return true
}

func (r *reader) skip() {
	r.pos = r.end
}

func (r *reader) uint8() (uint8, error) {
	b, err := r.next(1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

func (r *reader) uint16() (uint16, error) {
	b, err := r.next(2)
	if err != nil {
		return 0, err
	}

	return convert.Uint16b(b), nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}

	return convert.Uint32b(b), nil
}

func (r *reader) uint64() (uint64, error) {
	b, err := r.next(8)
	if err != nil {
		return 0, err
	}

	return convert.Uint64b(b), nil
}
