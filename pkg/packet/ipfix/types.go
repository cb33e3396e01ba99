package ipfix

import (
	"fmt"

	"github.com/pkg/errors"
)

// DataRecordType is the abstract data type of an information element (RFC 7012 section 3.1)
type DataRecordType uint8

// Supported abstract data types
const (
	TypeUnsigned DataRecordType = iota
	TypeSigned
	TypeFloat
	TypeBool
	TypeMacAddress
	TypeBytes
	TypeString
	TypeDateTimeSeconds
	TypeDateTimeMilliseconds
	TypeDateTimeMicroseconds
	TypeDateTimeNanoseconds
	TypeIPv4Address
	TypeIPv6Address
)

var dataRecordTypeNames = map[DataRecordType]string{
	TypeUnsigned:             "unsigned",
	TypeSigned:               "signed",
	TypeFloat:                "float",
	TypeBool:                 "boolean",
	TypeMacAddress:           "macAddress",
	TypeBytes:                "octetArray",
	TypeString:               "string",
	TypeDateTimeSeconds:      "dateTimeSeconds",
	TypeDateTimeMilliseconds: "dateTimeMilliseconds",
	TypeDateTimeMicroseconds: "dateTimeMicroseconds",
	TypeDateTimeNanoseconds:  "dateTimeNanoseconds",
	TypeIPv4Address:          "ipv4Address",
	TypeIPv6Address:          "ipv6Address",
}

// dataRecordTypesByIANAName maps the IANA abstract data type names onto DataRecordType.
// Width variants (unsigned8, float32, ...) collapse onto one type, the width comes from
// the template field length.
var dataRecordTypesByIANAName = map[string]DataRecordType{
	"unsigned8":            TypeUnsigned,
	"unsigned16":           TypeUnsigned,
	"unsigned32":           TypeUnsigned,
	"unsigned64":           TypeUnsigned,
	"signed8":              TypeSigned,
	"signed16":             TypeSigned,
	"signed32":             TypeSigned,
	"signed64":             TypeSigned,
	"float32":              TypeFloat,
	"float64":              TypeFloat,
	"boolean":              TypeBool,
	"macAddress":           TypeMacAddress,
	"octetArray":           TypeBytes,
	"string":               TypeString,
	"dateTimeSeconds":      TypeDateTimeSeconds,
	"dateTimeMilliseconds": TypeDateTimeMilliseconds,
	"dateTimeMicroseconds": TypeDateTimeMicroseconds,
	"dateTimeNanoseconds":  TypeDateTimeNanoseconds,
	"ipv4Address":          TypeIPv4Address,
	"ipv6Address":          TypeIPv6Address,
}

func (t DataRecordType) String() string {
	if n, ok := dataRecordTypeNames[t]; ok {
		return n
	}

	return fmt.Sprintf("DataRecordType(%d)", uint8(t))
}

// ParseDataRecordType parses an IANA abstract data type name
func ParseDataRecordType(name string) (DataRecordType, error) {
	t, ok := dataRecordTypesByIANAName[name]
	if !ok {
		return 0, errors.Errorf("unknown abstract data type %q", name)
	}

	return t, nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (t *DataRecordType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	x, err := ParseDataRecordType(s)
	if err != nil {
		return err
	}

	*t = x
	return nil
}
