package ipfix

import (
	"github.com/pkg/errors"
)

const (
	// TemplateSetID is the set ID reserved for template sets
	TemplateSetID = 2

	// SetIDTemplateMax is the highest reserved set and template ID
	SetIDTemplateMax = 255
)

// TemplateRecord announces the layout of the data records of one template ID
type TemplateRecord struct {
	TemplateID      uint16
	FieldSpecifiers []FieldSpecifier
}

// IsWithdrawal reports whether the record withdraws its template (RFC 7011 section 8.1)
func (t *TemplateRecord) IsWithdrawal() bool {
	return len(t.FieldSpecifiers) == 0
}

func checkTemplateID(pos int64, templateID uint16) error {
	if templateID <= SetIDTemplateMax {
		return newError(pos, errors.Wrapf(ErrReservedTemplateID, "template_id: %d", templateID))
	}

	return nil
}

func decodeTemplateRecord(r *reader) (TemplateRecord, error) {
	pos := r.offset()
	templateID, err := r.uint16()
	if err != nil {
		return TemplateRecord{}, err
	}

	if err := checkTemplateID(pos, templateID); err != nil {
		return TemplateRecord{}, err
	}

	fieldCount, err := r.uint16()
	if err != nil {
		return TemplateRecord{}, err
	}

	fields, err := decodeFieldSpecifiers(r, fieldCount)
	if err != nil {
		return TemplateRecord{}, err
	}

	return TemplateRecord{
		TemplateID:      templateID,
		FieldSpecifiers: fields,
	}, nil
}

func decodeFieldSpecifiers(r *reader, count uint16) ([]FieldSpecifier, error) {
	fields := make([]FieldSpecifier, 0, count)
	for i := uint16(0); i < count; i++ {
		f, err := decodeFieldSpecifier(r)
		if err != nil {
			return nil, err
		}

		fields = append(fields, f)
	}

	return fields, nil
}

func (t *TemplateRecord) encode(w *writer) error {
	if err := checkTemplateID(w.pos(), t.TemplateID); err != nil {
		return err
	}

	if err := w.uint16(t.TemplateID); err != nil {
		return err
	}

	if err := encodeFieldCount(w, len(t.FieldSpecifiers)); err != nil {
		return err
	}

	return encodeFieldSpecifiers(w, t.FieldSpecifiers)
}

func encodeFieldCount(w *writer, n int) error {
	if n > 0xFFFF {
		return newError(w.pos(), errors.Wrapf(ErrValueOverflow, "%d field specifiers", n))
	}

	return w.uint16(uint16(n))
}

func encodeFieldSpecifiers(w *writer, fields []FieldSpecifier) error {
	for _, f := range fields {
		if err := f.encode(w); err != nil {
			return err
		}
	}

	return nil
}
