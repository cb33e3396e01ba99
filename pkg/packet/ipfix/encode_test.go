package ipfix

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage(t *testing.T) *Message {
	rec := NewDataRecord()
	rec.Set("sourceIPv4Address", IPv4Address(ipFromBytes(t, []byte{10, 0, 0, 1})))
	rec.Set("packetDeltaCount", U64(42))

	return &Message{
		ExportTime:          0x6553f100,
		SequenceNumber:      7,
		ObservationDomainID: 1,
		Sets: []Set{
			{
				Records: TemplateRecords{
					{
						TemplateID: 256,
						FieldSpecifiers: []FieldSpecifier{
							NewFieldSpecifier(8, 4),
							NewFieldSpecifier(2, 8),
						},
					},
				},
			},
			{
				Records: DataRecords{
					TemplateID: 256,
					Records:    []DataRecord{rec},
				},
			},
		},
	}
}

func TestEncode(t *testing.T) {
	m := testMessage(t)
	store := NewExclusiveTemplateStore()
	InsertTemplateRecords(store, m.Sets[0].Records.(TemplateRecords), resolver)

	raw, err := Marshal(m, store, 0)
	require.NoError(t, err)
	assert.Equal(t, message(templateSet, dataSet), raw)

	decoded, err := Decode(raw, NewExclusiveTemplateStore(), resolver)
	require.NoError(t, err)
	assert.Equal(t, m, decoded)
}

func TestEncodeLengthBackpatch(t *testing.T) {
	rec := NewDataRecord()
	rec.Set("interfaceName", String("ge-0/0/0"))
	rec.Set("packetDeltaCount", U64(1000))

	tests := []struct {
		name      string
		ifName    FieldSpecifier
		alignment uint8
	}{
		{name: "variable length", ifName: NewFieldSpecifier(82, VariableLength), alignment: 0},
		{name: "align 4", ifName: NewFieldSpecifier(82, 8), alignment: 4},
		{name: "align 8", ifName: NewFieldSpecifier(82, 8), alignment: 8},
	}

	for _, test := range tests {
		m := &Message{
			Sets: []Set{
				{
					Records: TemplateRecords{
						{TemplateID: 300, FieldSpecifiers: []FieldSpecifier{test.ifName, NewFieldSpecifier(2, 8)}},
					},
				},
				{
					Records: DataRecords{TemplateID: 300, Records: []DataRecord{rec, rec, rec}},
				},
			},
		}

		store := NewExclusiveTemplateStore()
		InsertTemplateRecords(store, m.Sets[0].Records.(TemplateRecords), resolver)

		raw, err := Marshal(m, store, test.alignment)
		require.NoError(t, err, test.name)

		h, err := DecodeHeader(raw)
		require.NoError(t, err, test.name)
		assert.Equal(t, len(raw), int(h.Length), test.name)

		total := HeaderLength
		for off := HeaderLength; off < len(raw); {
			setLength := int(raw[off+2])<<8 | int(raw[off+3])
			if test.alignment > 1 {
				assert.Zero(t, setLength%int(test.alignment), test.name)
			}

			total += setLength
			off += setLength
		}
		assert.Equal(t, len(raw), total, test.name)

		decoded, err := Decode(raw, NewExclusiveTemplateStore(), resolver)
		require.NoError(t, err, test.name)
		assert.Equal(t, m.Sets, decoded.Sets, test.name)
	}
}

func TestEncodeAtOffset(t *testing.T) {
	m := testMessage(t)
	store := NewExclusiveTemplateStore()
	InsertTemplateRecords(store, m.Sets[0].Records.(TemplateRecords), resolver)

	buf := NewWriteBuffer(0)
	_, err := buf.Write([]byte{0xde, 0xad})
	require.NoError(t, err)

	require.NoError(t, Encode(buf, m, store, 0))
	require.NoError(t, Encode(buf, m, store, 0))

	msg := message(templateSet, dataSet)
	assert.Equal(t, bytes.Join([][]byte{{0xde, 0xad}, msg, msg}, nil), buf.Bytes())
}

func TestEncodeErrors(t *testing.T) {
	missing := NewDataRecord()
	missing.Set("sourceIPv4Address", IPv4Address(ipFromBytes(t, []byte{10, 0, 0, 1})))

	wrongType := NewDataRecord()
	wrongType.Set("sourceIPv4Address", IPv4Address(ipFromBytes(t, []byte{10, 0, 0, 1})))
	wrongType.Set("packetDeltaCount", U32(1))

	tests := []struct {
		name  string
		sets  []Set
		check func(t *testing.T, err error)
	}{
		{
			name: "missing template",
			sets: []Set{{Records: DataRecords{TemplateID: 999, Records: []DataRecord{missing}}}},
			check: func(t *testing.T, err error) {
				var e *MissingTemplateError
				require.True(t, errors.As(err, &e))
				assert.Equal(t, uint16(999), e.TemplateID)
			},
		},
		{
			name: "missing data",
			sets: []Set{{Records: DataRecords{TemplateID: 256, Records: []DataRecord{missing}}}},
			check: func(t *testing.T, err error) {
				var e *MissingDataError
				require.True(t, errors.As(err, &e))
				assert.Equal(t, Name("packetDeltaCount"), e.Key)
			},
		},
		{
			name: "value does not fit field",
			sets: []Set{{Records: DataRecords{TemplateID: 256, Records: []DataRecord{wrongType}}}},
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, ErrFieldValueType))
			},
		},
		{
			name: "reserved data set id",
			sets: []Set{{Records: DataRecords{TemplateID: 17, Records: []DataRecord{missing}}}},
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, ErrReservedSetID))
			},
		},
		{
			name: "reserved template id",
			sets: []Set{{Records: TemplateRecords{{TemplateID: 255, FieldSpecifiers: []FieldSpecifier{NewFieldSpecifier(8, 4)}}}}},
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, ErrReservedTemplateID))
			},
		},
		{
			name: "empty set",
			sets: []Set{{Records: TemplateRecords{}}},
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, ErrSetLength))
			},
		},
		{
			name: "element id exceeds 15 bits",
			sets: []Set{{Records: TemplateRecords{{TemplateID: 256, FieldSpecifiers: []FieldSpecifier{NewFieldSpecifier(0x8001, 4)}}}}},
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, ErrValueOverflow))
			},
		},
	}

	store := NewExclusiveTemplateStore()
	InsertTemplateRecords(store, testMessage(t).Sets[0].Records.(TemplateRecords), resolver)

	for _, test := range tests {
		_, err := Marshal(&Message{Sets: test.sets}, store, 0)
		require.Error(t, err, test.name)
		test.check(t, err)
	}
}

func TestEncodeOptionsTemplateWithdrawal(t *testing.T) {
	m := &Message{
		Sets: []Set{
			{
				Records: OptionsTemplateRecords{
					{TemplateID: 257},
				},
			},
		},
	}

	raw, err := Marshal(m, NewExclusiveTemplateStore(), 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x03, 0x00, 0x08, 0x01, 0x01, 0x00, 0x00}, raw[HeaderLength:])
}

func TestWriteBufferSeek(t *testing.T) {
	buf := NewWriteBuffer(2)
	_, err := buf.Write([]byte{1, 2, 3, 4})
	require.NoError(t, err)

	pos, err := buf.Seek(1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pos)

	_, err = buf.Write([]byte{9})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 9, 3, 4}, buf.Bytes())

	pos, err = buf.Seek(2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(6), pos)
	assert.Equal(t, 6, buf.Len())

	_, err = buf.Seek(-10, 1)
	assert.Error(t, err)

	buf.Reset()
	assert.Equal(t, 0, buf.Len())
}

func TestEncodeDataSetPadding(t *testing.T) {
	port := NewDataRecord()
	port.Set("sourceTransportPort", U16(443))

	proto := NewDataRecord()
	proto.Set("protocolIdentifier", U8(7))

	packets := NewDataRecord()
	packets.Set("packetDeltaCount", U64(7))

	tests := []struct {
		name          string
		field         FieldSpecifier
		rec           DataRecord
		records       int
		alignment     uint8
		wantSetLength int
	}{
		{
			name:          "one byte records are never padded",
			field:         NewFieldSpecifier(4, 1),
			rec:           proto,
			records:       1,
			alignment:     4,
			wantSetLength: 5,
		},
		{
			name:          "padding as long as a record is left out",
			field:         NewFieldSpecifier(7, 2),
			rec:           port,
			records:       1,
			alignment:     4,
			wantSetLength: 6,
		},
		{
			name:          "padding shorter than a record is written",
			field:         NewFieldSpecifier(2, 8),
			rec:           packets,
			records:       1,
			alignment:     8,
			wantSetLength: 16,
		},
		{
			name:          "unaligned",
			field:         NewFieldSpecifier(7, 2),
			rec:           port,
			records:       3,
			alignment:     0,
			wantSetLength: 10,
		},
	}

	for _, test := range tests {
		tmpls := TemplateRecords{{TemplateID: 300, FieldSpecifiers: []FieldSpecifier{test.field}}}
		store := NewExclusiveTemplateStore()
		InsertTemplateRecords(store, tmpls, resolver)

		recs := make([]DataRecord, test.records)
		for i := range recs {
			recs[i] = test.rec
		}

		raw, err := Marshal(&Message{
			Sets: []Set{{Records: DataRecords{TemplateID: 300, Records: recs}}},
		}, store, test.alignment)
		require.NoError(t, err, test.name)

		setLength := int(raw[HeaderLength+2])<<8 | int(raw[HeaderLength+3])
		assert.Equal(t, test.wantSetLength, setLength, test.name)

		decoded, err := Decode(raw, store, resolver)
		require.NoError(t, err, test.name)

		n := 0
		for range decoded.DataRecords() {
			n++
		}
		assert.Equal(t, test.records, n, test.name)
	}
}

func TestEncodeAlignedRoundTrip(t *testing.T) {
	values := map[uint16]DataRecordValue{1: U8(7), 2: U16(7), 4: U32(7), 8: U64(7)}

	for _, alignment := range []uint8{0, 2, 4, 8, 16} {
		for length, v := range values {
			tmpls := TemplateRecords{{TemplateID: 300, FieldSpecifiers: []FieldSpecifier{NewFieldSpecifier(2, length)}}}
			store := NewExclusiveTemplateStore()
			InsertTemplateRecords(store, tmpls, resolver)

			rec := NewDataRecord()
			rec.Set("packetDeltaCount", v)
			for records := 1; records <= 5; records++ {
				recs := make([]DataRecord, records)
				for i := range recs {
					recs[i] = rec
				}

				raw, err := Marshal(&Message{
					Sets: []Set{{Records: tmpls}, {Records: DataRecords{TemplateID: 300, Records: recs}}},
				}, store, alignment)
				require.NoError(t, err)

				decoded, err := Decode(raw, NewExclusiveTemplateStore(), resolver)
				require.NoError(t, err)

				n := 0
				for range decoded.DataRecords() {
					n++
				}
				assert.Equal(t, records, n, "alignment %d, length %d, records %d", alignment, length, records)
			}
		}
	}
}

// seekFailer fails every Seek after the first one
type seekFailer struct {
	WriteBuffer
	seeks int
}

func (s *seekFailer) Seek(offset int64, whence int) (int64, error) {
	s.seeks++
	if s.seeks > 1 {
		return 0, errors.New("not seekable")
	}

	return s.WriteBuffer.Seek(offset, whence)
}

func TestEncodeSeekFails(t *testing.T) {
	m := testMessage(t)
	store := NewExclusiveTemplateStore()
	InsertTemplateRecords(store, m.Sets[0].Records.(TemplateRecords), resolver)

	err := Encode(&seekFailer{}, m, store, 0)
	require.Error(t, err)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, int64(HeaderLength+2), e.Pos)
	assert.EqualError(t, errors.Cause(e.Err), "not seekable")
}
