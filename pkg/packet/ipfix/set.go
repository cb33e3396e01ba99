package ipfix

import (
	"github.com/pkg/errors"
)

const sizeOfSetHeader = 4

// Records is the content of a set: TemplateRecords, OptionsTemplateRecords or DataRecords
type Records interface {
	// SetID returns the set ID the records are framed with
	SetID() uint16
	isRecords()
}

// TemplateRecords is the content of a template set
type TemplateRecords []TemplateRecord

// OptionsTemplateRecords is the content of an options template set
type OptionsTemplateRecords []OptionsTemplateRecord

// DataRecords is the content of a data set. TemplateID doubles as set ID. Kind is
// the kind of template the records were decoded with; encoding ignores it.
type DataRecords struct {
	TemplateID uint16
	Kind       TemplateKind
	Records    []DataRecord
}

func (TemplateRecords) isRecords()        {}
func (OptionsTemplateRecords) isRecords() {}
func (DataRecords) isRecords()            {}

// SetID returns TemplateSetID
func (TemplateRecords) SetID() uint16 {
	return TemplateSetID
}

// SetID returns OptionsTemplateSetID
func (OptionsTemplateRecords) SetID() uint16 {
	return OptionsTemplateSetID
}

// SetID returns the template ID
func (d DataRecords) SetID() uint16 {
	return d.TemplateID
}

// Set is a length delimited group of records of one kind
type Set struct {
	Records Records
}

func isReservedSetID(setID uint16) bool {
	return setID != TemplateSetID && setID != OptionsTemplateSetID && setID <= SetIDTemplateMax
}

// decodeSet decodes one set. Template and options template sets are installed into
// store as soon as they have been parsed.
func decodeSet(r *reader, store TemplateStore, resolver Resolver) (Set, error) {
	pos := r.offset()
	setID, err := r.uint16()
	if err != nil {
		return Set{}, err
	}

	length, err := r.uint16()
	if err != nil {
		return Set{}, err
	}

	if length <= sizeOfSetHeader {
		return Set{}, newError(pos, errors.Wrapf(ErrSetLength, "set_id: %d, length: %d", setID, length))
	}

	if isReservedSetID(setID) {
		return Set{}, newError(pos, errors.Wrapf(ErrReservedSetID, "set_id: %d", setID))
	}

	body, err := r.sub(int(length) - sizeOfSetHeader)
	if err != nil {
		return Set{}, err
	}

	switch setID {
	case TemplateSetID:
		recs, err := decodeTemplateSet(body)
		if err != nil {
			return Set{}, err
		}

		InsertTemplateRecords(store, recs, resolver)
		return Set{Records: recs}, nil
	case OptionsTemplateSetID:
		recs, err := decodeOptionsTemplateSet(body)
		if err != nil {
			return Set{}, err
		}

		InsertOptionsTemplateRecords(store, recs, resolver)
		return Set{Records: recs}, nil
	default:
		recs, err := decodeDataSet(body, setID, store)
		if err != nil {
			return Set{}, err
		}

		return Set{Records: recs}, nil
	}
}

// decodeTemplateSet stops at a zeroed remainder, template ID 0 being reserved
func decodeTemplateSet(r *reader) (TemplateRecords, error) {
	recs := make(TemplateRecords, 0, 1)
	for r.remaining() > 0 {
		if r.isZero() {
			r.skip()
			break
		}

		rec, err := decodeTemplateRecord(r)
		if err != nil {
			return nil, err
		}

		recs = append(recs, rec)
	}

	return recs, nil
}

func decodeOptionsTemplateSet(r *reader) (OptionsTemplateRecords, error) {
	recs := make(OptionsTemplateRecords, 0, 1)
	for r.remaining() > 0 {
		if r.isZero() {
			r.skip()
			break
		}

		rec, err := decodeOptionsTemplateRecord(r)
		if err != nil {
			return nil, err
		}

		recs = append(recs, rec)
	}

	return recs, nil
}

func lookupTemplate(pos int64, store TemplateStore, templateID uint16) (Template, error) {
	tmpl, ok := store.GetTemplate(templateID)
	if !ok {
		return Template{}, newError(pos, &MissingTemplateError{
			TemplateID: templateID,
		})
	}

	return tmpl, nil
}

func decodeDataSet(r *reader, templateID uint16, store TemplateStore) (DataRecords, error) {
	tmpl, err := lookupTemplate(r.offset(), store, templateID)
	if err != nil {
		return DataRecords{}, err
	}

	minLength := tmpl.MinRecordLength()
	if minLength == 0 {
		return DataRecords{}, newError(r.offset(), errors.Wrapf(ErrRecordOverrun, "template %d describes empty records", templateID))
	}

	recs := DataRecords{
		TemplateID: templateID,
		Kind:       tmpl.Kind,
		Records:    make([]DataRecord, 0, r.remaining()/minLength),
	}

	for r.remaining() > 0 {
		if r.isPadding(minLength) {
			r.skip()
			break
		}

		rec, err := decodeDataRecord(r, tmpl)
		if err != nil {
			return DataRecords{}, err
		}

		recs.Records = append(recs.Records, rec)
	}

	return recs, nil
}

// encode writes the set header, the records and padding up to alignment, then
// patches the set length. Data sets are only padded when the padding is shorter
// than the minimum record length of their template, so it can't be read as records.
func (s *Set) encode(w *writer, store TemplateStore, alignment uint8) error {
	start := w.pos()
	if s.Records == nil {
		return newError(start, errors.Wrap(ErrSetLength, "set without records"))
	}

	setID := s.Records.SetID()
	if isReservedSetID(setID) {
		return newError(start, errors.Wrapf(ErrReservedSetID, "set_id: %d", setID))
	}

	if err := w.uint16(setID); err != nil {
		return err
	}

	lengthAt, err := w.placeholder()
	if err != nil {
		return err
	}

	padLimit := 0
	switch recs := s.Records.(type) {
	case TemplateRecords:
		if len(recs) == 0 {
			return newError(start, errors.Wrap(ErrSetLength, "empty template set"))
		}

		for i := range recs {
			if err := recs[i].encode(w); err != nil {
				return err
			}
		}
	case OptionsTemplateRecords:
		if len(recs) == 0 {
			return newError(start, errors.Wrap(ErrSetLength, "empty options template set"))
		}

		for i := range recs {
			if err := recs[i].encode(w); err != nil {
				return err
			}
		}
	case DataRecords:
		minLength, err := recs.encode(w, store)
		if err != nil {
			return err
		}
		padLimit = minLength
	}

	if err := w.pad(start, alignment, padLimit); err != nil {
		return err
	}

	return w.patchLength(lengthAt, start)
}

// encode writes the records and returns the minimum record length of their template
func (d DataRecords) encode(w *writer, store TemplateStore) (int, error) {
	if len(d.Records) == 0 {
		return 0, newError(w.pos(), errors.Wrapf(ErrSetLength, "empty data set for template %d", d.TemplateID))
	}

	tmpl, err := lookupTemplate(w.pos(), store, d.TemplateID)
	if err != nil {
		return 0, err
	}

	for i := range d.Records {
		if err := d.Records[i].encode(w, tmpl); err != nil {
			return 0, err
		}
	}

	return tmpl.MinRecordLength(), nil
}
