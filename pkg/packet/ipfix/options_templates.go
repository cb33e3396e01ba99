package ipfix

// OptionsTemplateSetID is the set ID reserved for options template sets
const OptionsTemplateSetID = 3

// OptionsTemplateRecord announces the layout of options data records. The first
// ScopeFieldCount field specifiers are scope fields.
type OptionsTemplateRecord struct {
	TemplateID      uint16
	ScopeFieldCount uint16
	FieldSpecifiers []FieldSpecifier
}

// IsWithdrawal reports whether the record withdraws its template (RFC 7011 section 8.1)
func (t *OptionsTemplateRecord) IsWithdrawal() bool {
	return len(t.FieldSpecifiers) == 0
}

// decodeOptionsTemplateRecord decodes one options template record. Withdrawal records
// end after the field count, they carry no scope field count.
func decodeOptionsTemplateRecord(r *reader) (OptionsTemplateRecord, error) {
	pos := r.offset()
	templateID, err := r.uint16()
	if err != nil {
		return OptionsTemplateRecord{}, err
	}

	if err := checkTemplateID(pos, templateID); err != nil {
		return OptionsTemplateRecord{}, err
	}

	fieldCount, err := r.uint16()
	if err != nil {
		return OptionsTemplateRecord{}, err
	}

	if fieldCount == 0 {
		return OptionsTemplateRecord{
			TemplateID: templateID,
		}, nil
	}

	scopeFieldCount, err := r.uint16()
	if err != nil {
		return OptionsTemplateRecord{}, err
	}

	fields, err := decodeFieldSpecifiers(r, fieldCount)
	if err != nil {
		return OptionsTemplateRecord{}, err
	}

	return OptionsTemplateRecord{
		TemplateID:      templateID,
		ScopeFieldCount: scopeFieldCount,
		FieldSpecifiers: fields,
	}, nil
}

func (t *OptionsTemplateRecord) encode(w *writer) error {
	if err := checkTemplateID(w.pos(), t.TemplateID); err != nil {
		return err
	}

	if err := w.uint16(t.TemplateID); err != nil {
		return err
	}

	if err := encodeFieldCount(w, len(t.FieldSpecifiers)); err != nil {
		return err
	}

	if t.IsWithdrawal() {
		return nil
	}

	if err := w.uint16(t.ScopeFieldCount); err != nil {
		return err
	}

	return encodeFieldSpecifiers(w, t.FieldSpecifiers)
}
