package ipfix

import (
	"fmt"

	"github.com/pkg/errors"
)

// DataRecordKey identifies a field of a data record: Name, Unrecognized or ErrorKey
type DataRecordKey interface {
	fmt.Stringer
	isDataRecordKey()
}

// Name keys a field by its information element name
type Name string

// Unrecognized keys a field whose information element is unknown to the resolver
type Unrecognized FieldSpecifier

// ErrorKey keys a field whose element the resolver knows but could not name
type ErrorKey string

func (Name) isDataRecordKey()         {}
func (Unrecognized) isDataRecordKey() {}
func (ErrorKey) isDataRecordKey()     {}

func (n Name) String() string {
	return string(n)
}

func (u Unrecognized) String() string {
	return "unrecognized(" + FieldSpecifier(u).String() + ")"
}

func (e ErrorKey) String() string {
	return "error(" + string(e) + ")"
}

// DataRecord holds the values of one data record keyed by field
type DataRecord struct {
	Values map[DataRecordKey]DataRecordValue
}

// NewDataRecord creates an empty data record
func NewDataRecord() DataRecord {
	return DataRecord{
		Values: make(map[DataRecordKey]DataRecordValue),
	}
}

// Get returns the value of the named field
func (d DataRecord) Get(name string) (DataRecordValue, bool) {
	v, ok := d.Values[Name(name)]
	return v, ok
}

// Set sets the value of the named field
func (d DataRecord) Set(name string, v DataRecordValue) {
	d.Values[Name(name)] = v
}

// decodeDataRecord reads one value per template field, in template order
func decodeDataRecord(r *reader, tmpl Template) (DataRecord, error) {
	rec := DataRecord{
		Values: make(map[DataRecordKey]DataRecordValue, len(tmpl.Fields)),
	}

	for _, f := range tmpl.Fields {
		v, err := readValue(r, f.Type, f.FieldLength)
		if err != nil {
			return DataRecord{}, err
		}

		rec.Values[f.Name] = v
	}

	return rec, nil
}

// encode writes the values in template order. Every template field needs a value.
func (d *DataRecord) encode(w *writer, tmpl Template) error {
	for _, f := range tmpl.Fields {
		v, ok := d.Values[f.Name]
		if !ok {
			return newError(w.pos(), &MissingDataError{
				Key: f.Name,
			})
		}

		b, err := v.appendTo(w.scratch[:0], f.FieldLength)
		if err != nil {
			return newError(w.pos(), errors.Wrapf(err, "field %s", f.Name))
		}

		w.scratch = b
		if err := w.write(b); err != nil {
			return err
		}
	}

	return nil
}
