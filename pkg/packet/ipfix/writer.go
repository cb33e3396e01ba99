package ipfix

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// writer serializes into a seekable sink. Length fields are written as placeholders
// first and patched once the content behind them has been written.
type writer struct {
	w       io.WriteSeeker
	base    int64
	off     int64
	scratch []byte
}

func newWriter(w io.WriteSeeker) (*writer, error) {
	base, err := w.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to get stream position")
	}

	return &writer{
		w:       w,
		base:    base,
		scratch: make([]byte, 0, 64),
	}, nil
}

// pos returns the current position relative to where the writer started
func (w *writer) pos() int64 {
	return w.off
}

func (w *writer) write(b []byte) error {
	pos := w.off
	n, err := w.w.Write(b)
	w.off += int64(n)
	if err != nil {
		return newError(pos, err)
	}

	if n != len(b) {
		return newError(pos, io.ErrShortWrite)
	}

	return nil
}

// seek moves to off, relative to where the writer started
func (w *writer) seek(off int64) error {
	_, err := w.w.Seek(w.base+off, io.SeekStart)
	if err != nil {
		return newError(off, err)
	}

	w.off = off
	return nil
}

func (w *writer) uint16(v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return w.write(b[:])
}

func (w *writer) uint32(v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return w.write(b[:])
}

// placeholder writes a zero uint16 and returns its position for patchLength
func (w *writer) placeholder() (int64, error) {
	at := w.pos()
	return at, w.uint16(0)
}

// patchLength seeks back to at, overwrites the placeholder with the number of bytes
// written since start and restores the position to the end of the content.
func (w *writer) patchLength(at int64, start int64) error {
	end := w.pos()
	length := end - start
	if length > 0xFFFF {
		return newError(start, errors.Wrapf(ErrValueOverflow, "length %d does not fit into length field", length))
	}

	err := w.seek(at)
	if err != nil {
		return err
	}

	err = w.uint16(uint16(length))
	if err != nil {
		return err
	}

	return w.seek(end)
}

// pad writes zero bytes until the span since start is a multiple of alignment.
// Padding of limit bytes or more is not written, limit <= 0 means no limit.
func (w *writer) pad(start int64, alignment uint8, limit int) error {
	if alignment <= 1 {
		return nil
	}

	rem := (w.pos() - start) % int64(alignment)
	if rem == 0 {
		return nil
	}

	n := int64(alignment) - rem
	if limit > 0 && n >= int64(limit) {
		return nil
	}

	return w.write(make([]byte, n))
}

// WriteBuffer is an in-memory io.WriteSeeker messages can be encoded into
type WriteBuffer struct {
	buf []byte
	pos int
}

// NewWriteBuffer creates a WriteBuffer with the given initial capacity
func NewWriteBuffer(capacity int) *WriteBuffer {
	return &WriteBuffer{
		buf: make([]byte, 0, capacity),
	}
}

// Write writes p at the current position, growing the buffer as needed
func (b *WriteBuffer) Write(p []byte) (int, error) {
	end := b.pos + len(p)
	if end > len(b.buf) {
		if end > cap(b.buf) {
			nb := make([]byte, len(b.buf), 2*cap(b.buf)+len(p))
			copy(nb, b.buf)
			b.buf = nb
		}

		b.buf = b.buf[:end]
	}

	copy(b.buf[b.pos:], p)
	b.pos = end
	return len(p), nil
}

// Seek implements io.Seeker
func (b *WriteBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(b.pos) + offset
	case io.SeekEnd:
		abs = int64(len(b.buf)) + offset
	default:
		return 0, errors.Errorf("invalid whence %d", whence)
	}

	if abs < 0 {
		return 0, errors.New("negative position")
	}

	if abs > int64(len(b.buf)) {
		b.buf = append(b.buf, make([]byte, int(abs)-len(b.buf))...)
	}

	b.pos = int(abs)
	return abs, nil
}

// Bytes returns the buffer content
func (b *WriteBuffer) Bytes() []byte {
	return b.buf
}

// Len returns the number of bytes in the buffer
func (b *WriteBuffer) Len() int {
	return len(b.buf)
}

// Reset empties the buffer keeping its capacity
func (b *WriteBuffer) Reset() {
	b.buf = b.buf[:0]
	b.pos = 0
}
