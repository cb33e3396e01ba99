package ipfix

import (
	"io"
)

// Encode writes m to w. Each set is padded with zeros to a multiple of alignment
// bytes, 0 or 1 disables padding. Data sets need their templates in store. Message
// and set lengths are patched in once their content has been written, so w is left
// partially written if encoding fails.
func Encode(w io.WriteSeeker, m *Message, store TemplateStore, alignment uint8) error {
	wr, err := newWriter(w)
	if err != nil {
		return err
	}

	return m.encode(wr, store, alignment)
}

// Marshal encodes m into a new byte slice
func Marshal(m *Message, store TemplateStore, alignment uint8) ([]byte, error) {
	buf := NewWriteBuffer(512)
	err := Encode(buf, m, store, alignment)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (m *Message) encode(w *writer, store TemplateStore, alignment uint8) error {
	start := w.pos()
	if err := w.uint16(Version); err != nil {
		return err
	}

	lengthAt, err := w.placeholder()
	if err != nil {
		return err
	}

	for _, v := range []uint32{m.ExportTime, m.SequenceNumber, m.ObservationDomainID} {
		if err := w.uint32(v); err != nil {
			return err
		}
	}

	for i := range m.Sets {
		if err := m.Sets[i].encode(w, store, alignment); err != nil {
			return err
		}
	}

	return w.patchLength(lengthAt, start)
}
