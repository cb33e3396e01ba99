package ipfix

import (
	"fmt"

	"github.com/pkg/errors"
)

// enterpriseBit flags a following enterprise number in a field specifier
const enterpriseBit = 0x8000

// Resolver looks up name and abstract data type of an information element. It is only
// consulted when templates are installed, never while data records are decoded.
type Resolver interface {
	Resolve(enterpriseNumber uint32, elementID uint16) (name string, ty DataRecordType, ok bool)
}

// FieldSpecifier describes one field of a template (RFC 7011 section 3.2). It is
// comparable and used as key for unrecognized information elements.
type FieldSpecifier struct {
	// InformationElementID holds the 15 significant bits of the element identifier
	InformationElementID uint16

	// FieldLength is the length of the field in data records or VariableLength
	FieldLength uint16

	// EnterpriseNumber is only meaningful when Enterprise is set
	EnterpriseNumber uint32
	Enterprise       bool
}

// NewFieldSpecifier creates a field specifier for an IANA information element
func NewFieldSpecifier(elementID uint16, fieldLength uint16) FieldSpecifier {
	return FieldSpecifier{
		InformationElementID: elementID,
		FieldLength:          fieldLength,
	}
}

// NewEnterpriseFieldSpecifier creates a field specifier for an enterprise specific information element
func NewEnterpriseFieldSpecifier(enterpriseNumber uint32, elementID uint16, fieldLength uint16) FieldSpecifier {
	return FieldSpecifier{
		InformationElementID: elementID,
		FieldLength:          fieldLength,
		EnterpriseNumber:     enterpriseNumber,
		Enterprise:           true,
	}
}

func (f FieldSpecifier) String() string {
	if f.Enterprise {
		return fmt.Sprintf("%d/%d[%d]", f.EnterpriseNumber, f.InformationElementID, f.FieldLength)
	}

	return fmt.Sprintf("%d[%d]", f.InformationElementID, f.FieldLength)
}

// isEnterprise checks the enterprise bit of a raw element identifier
func isEnterprise(rawID uint16) bool {
	return rawID&enterpriseBit != 0
}

// minDataLength is the least number of bytes the field occupies in a data record
func (f FieldSpecifier) minDataLength() int {
	if f.FieldLength == VariableLength {
		return 1
	}

	return int(f.FieldLength)
}

func decodeFieldSpecifier(r *reader) (FieldSpecifier, error) {
	rawID, err := r.uint16()
	if err != nil {
		return FieldSpecifier{}, err
	}

	length, err := r.uint16()
	if err != nil {
		return FieldSpecifier{}, err
	}

	f := FieldSpecifier{
		InformationElementID: rawID &^ enterpriseBit,
		FieldLength:          length,
	}

	if isEnterprise(rawID) {
		f.Enterprise = true
		f.EnterpriseNumber, err = r.uint32()
		if err != nil {
			return FieldSpecifier{}, err
		}
	}

	return f, nil
}

func (f FieldSpecifier) encode(w *writer) error {
	if f.InformationElementID&enterpriseBit != 0 {
		return newError(w.pos(), errors.Wrapf(ErrValueOverflow, "information element identifier %d exceeds 15 bits", f.InformationElementID))
	}

	rawID := f.InformationElementID
	if f.Enterprise {
		rawID |= enterpriseBit
	}

	if err := w.uint16(rawID); err != nil {
		return err
	}

	if err := w.uint16(f.FieldLength); err != nil {
		return err
	}

	if f.Enterprise {
		return w.uint32(f.EnterpriseNumber)
	}

	return nil
}

// ExpandedFieldSpecifier is a field specifier with resolved name and type
type ExpandedFieldSpecifier struct {
	FieldSpecifier
	Name DataRecordKey
	Type DataRecordType
}

// Expand resolves the field specifier. Elements unknown to r are keyed by the field
// specifier itself and typed as raw bytes. Elements r knows without a name get an
// ErrorKey.
func (f FieldSpecifier) Expand(r Resolver) ExpandedFieldSpecifier {
	var enterpriseNumber uint32
	if f.Enterprise {
		enterpriseNumber = f.EnterpriseNumber
	}

	if r != nil {
		if name, ty, ok := r.Resolve(enterpriseNumber, f.InformationElementID); ok {
			if name == "" {
				return ExpandedFieldSpecifier{
					FieldSpecifier: f,
					Name:           ErrorKey("unnamed element " + f.String()),
					Type:           ty,
				}
			}

			return ExpandedFieldSpecifier{
				FieldSpecifier: f,
				Name:           Name(name),
				Type:           ty,
			}
		}
	}

	return ExpandedFieldSpecifier{
		FieldSpecifier: f,
		Name:           Unrecognized(f),
		Type:           TypeBytes,
	}
}
