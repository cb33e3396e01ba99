package ie

import (
	"strings"
	"testing"

	"github.com/bio-routing/ipfixcodec/pkg/packet/ipfix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	r := New()

	tests := []struct {
		name         string
		pen          uint32
		id           uint16
		expectedName string
		expectedType ipfix.DataRecordType
		expectedOK   bool
	}{
		{
			name:         "IANA element",
			id:           8,
			expectedName: "sourceIPv4Address",
			expectedType: ipfix.TypeIPv4Address,
			expectedOK:   true,
		},
		{
			name:         "reverse element",
			pen:          ReversePEN,
			id:           1,
			expectedName: "reverseOctetDeltaCount",
			expectedType: ipfix.TypeUnsigned,
			expectedOK:   true,
		},
		{
			name: "observationDomainId is not reversible",
			pen:  ReversePEN,
			id:   149,
		},
		{
			name: "paddingOctets is not reversible",
			pen:  ReversePEN,
			id:   210,
		},
		{
			name: "unknown element",
			id:   30000,
		},
		{
			name: "unknown enterprise",
			pen:  4242,
			id:   8,
		},
	}

	for _, test := range tests {
		name, ty, ok := r.Resolve(test.pen, test.id)
		assert.Equal(t, test.expectedOK, ok, test.name)
		assert.Equal(t, test.expectedName, name, test.name)
		assert.Equal(t, test.expectedType, ty, test.name)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{
			name: "enterprise elements",
			input: `
elements:
  - name: juniperCommonPropertiesId
    enterprise_number: 2636
    id: 137
    type: unsigned64
  - name: juniperIfName
    enterprise_number: 2636
    id: 1
    type: string
`,
		},
		{
			name: "unknown type",
			input: `
elements:
  - name: foo
    id: 1
    type: unsigned128
`,
			wantErr: true,
		},
		{
			name: "unknown key",
			input: `
elements:
  - name: foo
    id: 1
    type: string
    width: 4
`,
			wantErr: true,
		},
		{
			name: "missing name",
			input: `
elements:
  - id: 1
    type: string
`,
			wantErr: true,
		},
		{
			name: "ID exceeds 15 bits",
			input: `
elements:
  - name: foo
    id: 40000
    type: string
`,
			wantErr: true,
		},
	}

	for _, test := range tests {
		r := New()
		err := r.Load(strings.NewReader(test.input))
		if test.wantErr {
			assert.Error(t, err, test.name)
			continue
		}

		require.NoError(t, err, test.name)
		name, ty, ok := r.Resolve(2636, 1)
		assert.True(t, ok, test.name)
		assert.Equal(t, "juniperIfName", name, test.name)
		assert.Equal(t, ipfix.TypeString, ty, test.name)

		e, ok := r.ByName("juniperCommonPropertiesId")
		assert.True(t, ok, test.name)
		assert.Equal(t, uint16(137), e.ID, test.name)
	}
}

func TestAddReplaces(t *testing.T) {
	r := New()
	n := r.Len()

	r.Add(Element{Name: "srcAddr", ID: 8, Type: ipfix.TypeIPv4Address})
	assert.Equal(t, n, r.Len())

	_, ok := r.ByName("sourceIPv4Address")
	assert.False(t, ok)

	name, _, ok := r.Resolve(0, 8)
	assert.True(t, ok)
	assert.Equal(t, "srcAddr", name)
}

func TestFieldSpecifier(t *testing.T) {
	r := New()

	f, err := r.FieldSpecifier("sourceIPv6Address", 16)
	require.NoError(t, err)
	assert.Equal(t, ipfix.NewFieldSpecifier(27, 16), f)

	f, err = r.FieldSpecifier("reversePacketDeltaCount", 8)
	require.NoError(t, err)
	assert.Equal(t, ipfix.NewEnterpriseFieldSpecifier(ReversePEN, 2, 8), f)

	_, err = r.FieldSpecifier("noSuchElement", 4)
	assert.Error(t, err)
}

func TestRegistryDrivesDecoding(t *testing.T) {
	store := ipfix.NewExclusiveTemplateStore()
	ipfix.InsertTemplateRecords(store, []ipfix.TemplateRecord{
		{
			TemplateID: 256,
			FieldSpecifiers: []ipfix.FieldSpecifier{
				ipfix.NewFieldSpecifier(82, ipfix.VariableLength),
				ipfix.NewEnterpriseFieldSpecifier(ReversePEN, 2, 8),
			},
		},
	}, New())

	tmpl, ok := store.GetTemplate(256)
	require.True(t, ok)
	assert.Equal(t, ipfix.Name("interfaceName"), tmpl.Fields[0].Name)
	assert.Equal(t, ipfix.TypeString, tmpl.Fields[0].Type)
	assert.Equal(t, ipfix.Name("reversePacketDeltaCount"), tmpl.Fields[1].Name)
}
