package ipfix

import (
	"encoding/binary"
	"math"
	"net"
	"unicode/utf8"

	"github.com/pkg/errors"

	bnet "github.com/bio-routing/bio-rd/net"
)

const (
	// VariableLength is the field length announcing an inline length prefix (RFC 7011 section 7)
	VariableLength = 0xFFFF

	// maxU40 is the largest value representable in 5 bytes
	maxU40 = 0xFF_FFFF_FFFF

	// boolean encodings (RFC 7011 section 6.1.5)
	boolTrue  = 1
	boolFalse = 2
)

// DataRecordValue is the value of a single field of a data record. The set of
// implementations is closed: U8, U16, U32, U40, U64, I8, I16, I32, I64, F32, F64,
// Bool, MacAddress, Bytes, String, the four DateTime types, IPv4Address and IPv6Address.
type DataRecordValue interface {
	// Type returns the abstract data type of the value
	Type() DataRecordType

	// appendTo appends the wire encoding for a field of the given template length
	appendTo(dst []byte, length uint16) ([]byte, error)
}

// Unsigned, signed and floating point values
type (
	U8  uint8
	U16 uint16
	U32 uint32
	U40 uint64
	U64 uint64
	I8  int8
	I16 int16
	I32 int32
	I64 int64
	F32 float32
	F64 float64
)

// Bool is a boolean value
type Bool bool

// MacAddress is a 6 byte MAC address
type MacAddress [6]byte

// Bytes is an octet array
type Bytes []byte

// String is an UTF-8 string
type String string

// Timestamps, stored as their wire integers
type (
	DateTimeSeconds      uint32
	DateTimeMilliseconds uint64
	DateTimeMicroseconds uint64
	DateTimeNanoseconds  uint64
)

// IPv4Address is an IPv4 address
type IPv4Address bnet.IP

// IPv6Address is an IPv6 address
type IPv6Address bnet.IP

func (U8) Type() DataRecordType { return TypeUnsigned }
func (U16) Type() DataRecordType { return TypeUnsigned }
func (U32) Type() DataRecordType { return TypeUnsigned }
func (U40) Type() DataRecordType { return TypeUnsigned }
func (U64) Type() DataRecordType { return TypeUnsigned }
func (I8) Type() DataRecordType { return TypeSigned }
func (I16) Type() DataRecordType { return TypeSigned }
func (I32) Type() DataRecordType { return TypeSigned }
func (I64) Type() DataRecordType { return TypeSigned }
func (F32) Type() DataRecordType { return TypeFloat }
func (F64) Type() DataRecordType { return TypeFloat }
func (Bool) Type() DataRecordType { return TypeBool }
func (MacAddress) Type() DataRecordType { return TypeMacAddress }
func (Bytes) Type() DataRecordType { return TypeBytes }
func (String) Type() DataRecordType { return TypeString }
func (DateTimeSeconds) Type() DataRecordType { return TypeDateTimeSeconds }
func (DateTimeMilliseconds) Type() DataRecordType { return TypeDateTimeMilliseconds }
func (DateTimeMicroseconds) Type() DataRecordType { return TypeDateTimeMicroseconds }
func (DateTimeNanoseconds) Type() DataRecordType { return TypeDateTimeNanoseconds }
func (IPv4Address) Type() DataRecordType { return TypeIPv4Address }
func (IPv6Address) Type() DataRecordType { return TypeIPv6Address }

func (m MacAddress) String() string {
	return net.HardwareAddr(m[:]).String()
}

func (a IPv4Address) String() string {
	ip := bnet.IP(a)
	return ip.String()
}

func (a IPv6Address) String() string {
	ip := bnet.IP(a)
	return ip.String()
}

// checkLength verifies a fixed size value is written into a field of the same size
func checkLength(v DataRecordValue, size int, length uint16) error {
	if int(length) != size {
		return errors.Wrapf(ErrFieldValueType, "%T needs %d bytes, field has %d", v, size, length)
	}

	return nil
}

func (v U8) appendTo(dst []byte, length uint16) ([]byte, error) {
	if err := checkLength(v, 1, length); err != nil {
		return dst, err
	}

	return append(dst, uint8(v)), nil
}

func (v U16) appendTo(dst []byte, length uint16) ([]byte, error) {
	if err := checkLength(v, 2, length); err != nil {
		return dst, err
	}

	return binary.BigEndian.AppendUint16(dst, uint16(v)), nil
}

func (v U32) appendTo(dst []byte, length uint16) ([]byte, error) {
	if err := checkLength(v, 4, length); err != nil {
		return dst, err
	}

	return binary.BigEndian.AppendUint32(dst, uint32(v)), nil
}

func (v U40) appendTo(dst []byte, length uint16) ([]byte, error) {
	if err := checkLength(v, 5, length); err != nil {
		return dst, err
	}

	if v > maxU40 {
		return dst, errors.Wrapf(ErrValueOverflow, "%#x does not fit into 40 bits", uint64(v))
	}

	return append(dst, byte(v>>32), byte(v>>24), byte(v>>16), byte(v>>8), byte(v)), nil
}

func (v U64) appendTo(dst []byte, length uint16) ([]byte, error) {
	if err := checkLength(v, 8, length); err != nil {
		return dst, err
	}

	return binary.BigEndian.AppendUint64(dst, uint64(v)), nil
}

func (v I8) appendTo(dst []byte, length uint16) ([]byte, error) {
	return U8(v).appendTo(dst, length)
}

func (v I16) appendTo(dst []byte, length uint16) ([]byte, error) {
	return U16(v).appendTo(dst, length)
}

func (v I32) appendTo(dst []byte, length uint16) ([]byte, error) {
	return U32(v).appendTo(dst, length)
}

func (v I64) appendTo(dst []byte, length uint16) ([]byte, error) {
	return U64(v).appendTo(dst, length)
}

func (v F32) appendTo(dst []byte, length uint16) ([]byte, error) {
	return U32(math.Float32bits(float32(v))).appendTo(dst, length)
}

func (v F64) appendTo(dst []byte, length uint16) ([]byte, error) {
	return U64(math.Float64bits(float64(v))).appendTo(dst, length)
}

func (v Bool) appendTo(dst []byte, length uint16) ([]byte, error) {
	if v {
		return U8(boolTrue).appendTo(dst, length)
	}

	return U8(boolFalse).appendTo(dst, length)
}

func (v MacAddress) appendTo(dst []byte, length uint16) ([]byte, error) {
	if err := checkLength(v, 6, length); err != nil {
		return dst, err
	}

	return append(dst, v[:]...), nil
}

func (v Bytes) appendTo(dst []byte, length uint16) ([]byte, error) {
	return appendVariableLength(dst, v, []byte(v), length)
}

func (v String) appendTo(dst []byte, length uint16) ([]byte, error) {
	return appendVariableLength(dst, v, []byte(v), length)
}

func (v DateTimeSeconds) appendTo(dst []byte, length uint16) ([]byte, error) {
	return U32(v).appendTo(dst, length)
}

func (v DateTimeMilliseconds) appendTo(dst []byte, length uint16) ([]byte, error) {
	return U64(v).appendTo(dst, length)
}

func (v DateTimeMicroseconds) appendTo(dst []byte, length uint16) ([]byte, error) {
	return U64(v).appendTo(dst, length)
}

func (v DateTimeNanoseconds) appendTo(dst []byte, length uint16) ([]byte, error) {
	return U64(v).appendTo(dst, length)
}

func (v IPv4Address) appendTo(dst []byte, length uint16) ([]byte, error) {
	if err := checkLength(v, 4, length); err != nil {
		return dst, err
	}

	ip := bnet.IP(v)
	b := ip.ToNetIP().To4()
	if b == nil {
		return dst, errors.Wrapf(ErrFieldValueType, "%s is not an IPv4 address", ip.String())
	}

	return append(dst, b...), nil
}

func (v IPv6Address) appendTo(dst []byte, length uint16) ([]byte, error) {
	if err := checkLength(v, 16, length); err != nil {
		return dst, err
	}

	ip := bnet.IP(v)
	b := ip.ToNetIP()
	if len(b) != net.IPv6len {
		return dst, errors.Wrapf(ErrFieldValueType, "%s is not an IPv6 address", ip.String())
	}

	return append(dst, b...), nil
}

// appendVariableLength writes raw either into a fixed size field or, for VariableLength
// fields, behind a 1 byte (< 255) or 3 byte (255 + uint16) length prefix.
func appendVariableLength(dst []byte, v DataRecordValue, raw []byte, length uint16) ([]byte, error) {
	if length != VariableLength {
		if err := checkLength(v, len(raw), length); err != nil {
			return dst, err
		}

		return append(dst, raw...), nil
	}

	switch {
	case len(raw) < 255:
		dst = append(dst, uint8(len(raw)))
	case len(raw) <= 0xFFFF:
		dst = append(dst, 255)
		dst = binary.BigEndian.AppendUint16(dst, uint16(len(raw)))
	default:
		return dst, errors.Wrapf(ErrValueOverflow, "%d bytes exceed variable length limit", len(raw))
	}

	return append(dst, raw...), nil
}

// EncodeValue returns the wire encoding of v for a template field of the given length
func EncodeValue(v DataRecordValue, length uint16) ([]byte, error) {
	return v.appendTo(nil, length)
}

// DecodeValue decodes a single value of type ty from a template field of the given
// length. It returns the value and the number of bytes consumed.
func DecodeValue(raw []byte, ty DataRecordType, length uint16) (DataRecordValue, int, error) {
	r := newReader(raw)
	v, err := readValue(r, ty, length)
	if err != nil {
		return nil, 0, err
	}

	return v, int(r.offset()), nil
}

// readValue dispatches on (type, length). Any pair without a wire representation
// is an InvalidFieldSpecLengthError.
func readValue(r *reader, ty DataRecordType, length uint16) (DataRecordValue, error) {
	pos := r.offset()

	switch ty {
	case TypeUnsigned:
		switch length {
		case 1:
			v, err := r.uint8()
			return U8(v), err
		case 2:
			v, err := r.uint16()
			return U16(v), err
		case 4:
			v, err := r.uint32()
			return U32(v), err
		case 5:
			v, err := readU40(r)
			return U40(v), err
		case 8:
			v, err := r.uint64()
			return U64(v), err
		}
	case TypeSigned:
		switch length {
		case 1:
			v, err := r.uint8()
			return I8(v), err
		case 2:
			v, err := r.uint16()
			return I16(v), err
		case 4:
			v, err := r.uint32()
			return I32(v), err
		case 8:
			v, err := r.uint64()
			return I64(v), err
		}
	case TypeFloat:
		switch length {
		case 4:
			v, err := r.uint32()
			return F32(math.Float32frombits(v)), err
		case 8:
			v, err := r.uint64()
			return F64(math.Float64frombits(v)), err
		}
	case TypeBool:
		if length == 1 {
			v, err := r.uint8()
			return Bool(v == boolTrue), err
		}
	case TypeMacAddress:
		if length == 6 {
			b, err := r.next(6)
			if err != nil {
				return nil, err
			}

			var m MacAddress
			copy(m[:], b)
			return m, nil
		}
	case TypeBytes:
		b, err := readVariableLength(r, length)
		if err != nil {
			return nil, err
		}

		return Bytes(append([]byte(nil), b...)), nil
	case TypeString:
		b, err := readVariableLength(r, length)
		if err != nil {
			return nil, err
		}

		if !utf8.Valid(b) {
			return nil, newError(r.offset(), ErrInvalidString)
		}

		return String(b), nil
	case TypeDateTimeSeconds:
		if length == 4 {
			v, err := r.uint32()
			return DateTimeSeconds(v), err
		}
	case TypeDateTimeMilliseconds:
		if length == 8 {
			v, err := r.uint64()
			return DateTimeMilliseconds(v), err
		}
	case TypeDateTimeMicroseconds:
		if length == 8 {
			v, err := r.uint64()
			return DateTimeMicroseconds(v), err
		}
	case TypeDateTimeNanoseconds:
		if length == 8 {
			v, err := r.uint64()
			return DateTimeNanoseconds(v), err
		}
	case TypeIPv4Address:
		if length == 4 {
			ip, err := readIP(r, 4)
			return IPv4Address(ip), err
		}
	case TypeIPv6Address:
		if length == 16 {
			ip, err := readIP(r, 16)
			return IPv6Address(ip), err
		}
	}

	return nil, newError(pos, &InvalidFieldSpecLengthError{
		Type:   ty,
		Length: length,
	})
}

func readU40(r *reader) (uint64, error) {
	b, err := r.next(5)
	if err != nil {
		return 0, err
	}

	return uint64(b[0])<<32 | uint64(b[1])<<24 | uint64(b[2])<<16 | uint64(b[3])<<8 | uint64(b[4]), nil
}

func readIP(r *reader, n int) (bnet.IP, error) {
	pos := r.offset()
	b, err := r.next(n)
	if err != nil {
		return bnet.IP{}, err
	}

	ip, err := bnet.IPFromBytes(b)
	if err != nil {
		return bnet.IP{}, newError(pos, errors.Wrap(err, "Unable to convert address"))
	}

	return ip, nil
}

// readVariableLength returns the raw bytes of a field. For VariableLength fields the
// actual length is read from a 1 byte prefix, 255 announcing a following uint16.
func readVariableLength(r *reader, length uint16) ([]byte, error) {
	if length != VariableLength {
		return r.next(int(length))
	}

	l, err := r.uint8()
	if err != nil {
		return nil, err
	}

	n := int(l)
	if l == 255 {
		ext, err := r.uint16()
		if err != nil {
			return nil, err
		}

		n = int(ext)
	}

	return r.next(n)
}
