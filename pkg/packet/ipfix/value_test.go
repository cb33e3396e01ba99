package ipfix

import (
	"bytes"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bnet "github.com/bio-routing/bio-rd/net"
)

func ipFromBytes(t *testing.T, b []byte) bnet.IP {
	ip, err := bnet.IPFromBytes(b)
	require.NoError(t, err)
	return ip
}

func TestValueRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		value  DataRecordValue
		length uint16
	}{
		{name: "u8", value: U8(200), length: 1},
		{name: "u16", value: U16(0xBEEF), length: 2},
		{name: "u32", value: U32(0xDEADBEEF), length: 4},
		{name: "u40 zero", value: U40(0), length: 5},
		{name: "u40 max", value: U40(0xFF_FFFF_FFFF), length: 5},
		{name: "u64", value: U64(1 << 63), length: 8},
		{name: "i8", value: I8(-3), length: 1},
		{name: "i16", value: I16(-300), length: 2},
		{name: "i32", value: I32(-70000), length: 4},
		{name: "i64", value: I64(-1 << 40), length: 8},
		{name: "f32", value: F32(1.5), length: 4},
		{name: "f64", value: F64(-2.25), length: 8},
		{name: "bool true", value: Bool(true), length: 1},
		{name: "bool false", value: Bool(false), length: 1},
		{name: "mac", value: MacAddress{0x00, 0x1b, 0x21, 0xaa, 0xbb, 0xcc}, length: 6},
		{name: "bytes fixed", value: Bytes{1, 2, 3}, length: 3},
		{name: "bytes variable", value: Bytes{1, 2, 3}, length: VariableLength},
		{name: "string fixed", value: String("eth0"), length: 4},
		{name: "string variable", value: String("xe-0/0/1.0"), length: VariableLength},
		{name: "seconds", value: DateTimeSeconds(1700000000), length: 4},
		{name: "milliseconds", value: DateTimeMilliseconds(1700000000123), length: 8},
		{name: "microseconds", value: DateTimeMicroseconds(1700000000123456), length: 8},
		{name: "nanoseconds", value: DateTimeNanoseconds(1700000000123456789), length: 8},
		{name: "ipv4", value: IPv4Address(ipFromBytes(t, []byte{192, 0, 2, 1})), length: 4},
		{name: "ipv6", value: IPv6Address(ipFromBytes(t, []byte{0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1})), length: 16},
	}

	for _, test := range tests {
		raw, err := EncodeValue(test.value, test.length)
		require.NoError(t, err, test.name)

		v, n, err := DecodeValue(raw, test.value.Type(), test.length)
		require.NoError(t, err, test.name)
		assert.Equal(t, len(raw), n, test.name)
		assert.Equal(t, test.value, v, test.name)
	}
}

func TestU40(t *testing.T) {
	raw, err := EncodeValue(U40(0xFF_FFFF_FFFF), 5)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, raw)

	raw, err = EncodeValue(U40(0x01_0203_0405), 5)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0x05}, raw)

	_, err = EncodeValue(U40(0x100_0000_0000), 5)
	assert.True(t, errors.Is(err, ErrValueOverflow))

	_, err = EncodeValue(U40(1<<63), 5)
	assert.True(t, errors.Is(err, ErrValueOverflow))

	_, _, err = DecodeValue([]byte{1, 2, 3, 4}, TypeUnsigned, 5)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestVariableLength(t *testing.T) {
	raw, err := EncodeValue(String("hi"), VariableLength)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 'h', 'i'}, raw)

	payload := bytes.Repeat([]byte{0xAB}, 300)
	raw, err = EncodeValue(Bytes(payload), VariableLength)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0x01, 0x2C}, raw[:3])
	assert.Equal(t, payload, raw[3:])

	v, n, err := DecodeValue(raw, TypeBytes, VariableLength)
	require.NoError(t, err)
	assert.Equal(t, 303, n)
	assert.Equal(t, Bytes(payload), v)

	raw, err = EncodeValue(Bytes(bytes.Repeat([]byte{1}, 255)), VariableLength)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0x00, 0xFF}, raw[:3])

	_, err = EncodeValue(Bytes(make([]byte, 0x10000)), VariableLength)
	assert.True(t, errors.Is(err, ErrValueOverflow))
}

func TestDecodeValueErrors(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		ty      DataRecordType
		length  uint16
		wantErr error
	}{
		{
			name:    "invalid utf8",
			raw:     []byte{0x02, 0xC3, 0x28},
			ty:      TypeString,
			length:  VariableLength,
			wantErr: ErrInvalidString,
		},
		{
			name:    "truncated variable length",
			raw:     []byte{0x05, 'a', 'b'},
			ty:      TypeBytes,
			length:  VariableLength,
			wantErr: io.ErrUnexpectedEOF,
		},
		{
			name:    "truncated extended prefix",
			raw:     []byte{0xFF, 0x01},
			ty:      TypeBytes,
			length:  VariableLength,
			wantErr: io.ErrUnexpectedEOF,
		},
	}

	for _, test := range tests {
		_, _, err := DecodeValue(test.raw, test.ty, test.length)
		assert.True(t, errors.Is(err, test.wantErr), test.name)
	}
}

func TestInvalidFieldSpecLength(t *testing.T) {
	tests := []struct {
		name   string
		ty     DataRecordType
		length uint16
	}{
		{name: "unsigned 3", ty: TypeUnsigned, length: 3},
		{name: "signed 5", ty: TypeSigned, length: 5},
		{name: "float 2", ty: TypeFloat, length: 2},
		{name: "bool 2", ty: TypeBool, length: 2},
		{name: "mac 8", ty: TypeMacAddress, length: 8},
		{name: "ipv4 16", ty: TypeIPv4Address, length: 16},
		{name: "ipv6 4", ty: TypeIPv6Address, length: 4},
		{name: "seconds 8", ty: TypeDateTimeSeconds, length: 8},
	}

	for _, test := range tests {
		_, _, err := DecodeValue(make([]byte, 32), test.ty, test.length)
		var e *InvalidFieldSpecLengthError
		require.True(t, errors.As(err, &e), test.name)
		assert.Equal(t, test.ty, e.Type, test.name)
		assert.Equal(t, test.length, e.Length, test.name)
	}
}

func TestBoolDecoding(t *testing.T) {
	tests := []struct {
		name     string
		raw      byte
		expected Bool
	}{
		{name: "one", raw: 1, expected: true},
		{name: "two", raw: 2, expected: false},
		{name: "zero", raw: 0, expected: false},
		{name: "out of range", raw: 7, expected: false},
	}

	for _, test := range tests {
		v, _, err := DecodeValue([]byte{test.raw}, TypeBool, 1)
		require.NoError(t, err, test.name)
		assert.Equal(t, test.expected, v, test.name)
	}

	raw, err := EncodeValue(Bool(false), 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, raw)
}

func TestEncodeValueLengthMismatch(t *testing.T) {
	_, err := EncodeValue(U32(1), 2)
	assert.True(t, errors.Is(err, ErrFieldValueType))

	_, err = EncodeValue(String("abc"), 4)
	assert.True(t, errors.Is(err, ErrFieldValueType))

	_, err = EncodeValue(IPv4Address(ipFromBytes(t, make([]byte, 16))), 4)
	assert.True(t, errors.Is(err, ErrFieldValueType))
}
