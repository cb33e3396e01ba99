package exporter

import (
	"bytes"
	"encoding/binary"
	"testing"

	bnet "github.com/bio-routing/bio-rd/net"
	"github.com/bio-routing/ipfixcodec/pkg/models/flow"
	"github.com/bio-routing/ipfixcodec/pkg/packet/ipfix"
	"github.com/netsampler/goflow2/v2/decoders/netflow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldValues(fields []netflow.DataField) map[uint16][]byte {
	ret := make(map[uint16][]byte, len(fields))
	for _, f := range fields {
		v, ok := f.Value.([]byte)
		if !ok || f.PenProvided {
			continue
		}

		ret[f.Type] = v
	}

	return ret
}

func u64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// TestGoflow2Decodes feeds exported messages to an independent IPFIX decoder
func TestGoflow2Decodes(t *testing.T) {
	tests := []struct {
		name      string
		alignment uint8
	}{
		{name: "unpadded", alignment: 0},
		{name: "padded to 4 bytes", alignment: 4},
	}

	for _, test := range tests {
		out := &datagrams{}
		e := New(out, registry, Config{
			ObservationDomainID: 17,
			Alignment:           test.alignment,
			Registerer:          prometheus.NewRegistry(),
		})

		tmpl, err := flow.Template(300, 4)
		require.NoError(t, err, test.name)
		require.NoError(t, e.AddTemplate(tmpl), test.name)
		require.NoError(t, e.AddOptionsTemplate(ipfix.OptionsTemplateRecord{
			TemplateID:      400,
			ScopeFieldCount: 1,
			FieldSpecifiers: []ipfix.FieldSpecifier{
				ipfix.NewFieldSpecifier(144, 4),
				ipfix.NewFieldSpecifier(305, 4),
			},
		}), test.name)

		opts := ipfix.NewDataRecord()
		opts.Set("exportingProcessId", ipfix.U32(1))
		opts.Set(flow.SamplingPacketInterval, ipfix.U32(2048))
		require.NoError(t, e.Export(400, []ipfix.DataRecord{opts}), test.name)

		src, err := bnet.IPFromString("10.0.0.1")
		require.NoError(t, err)
		dst, err := bnet.IPFromString("10.0.0.2")
		require.NoError(t, err)

		fl := &flow.Flow{
			Family:    4,
			SrcAddr:   src,
			DstAddr:   dst,
			Protocol:  6,
			SrcPort:   34567,
			DstPort:   443,
			Packets:   12,
			Size:      1500,
			Timestamp: 1700000000,
		}
		rec, err := fl.DataRecord()
		require.NoError(t, err, test.name)
		require.NoError(t, e.Export(300, []ipfix.DataRecord{rec, rec}), test.name)
		require.Len(t, out.msgs, 2, test.name)

		templates := netflow.CreateTemplateSystem()

		var optsPkt netflow.IPFIXPacket
		require.NoError(t, netflow.DecodeMessageIPFIX(bytes.NewBuffer(out.msgs[0][2:]), templates, &optsPkt), test.name)
		assert.Equal(t, uint32(17), optsPkt.ObservationDomainId, test.name)

		var optsRecords []netflow.OptionsDataRecord
		for _, fs := range optsPkt.FlowSets {
			if s, ok := fs.(netflow.OptionsDataFlowSet); ok {
				optsRecords = append(optsRecords, s.Records...)
			}
		}
		require.Len(t, optsRecords, 1, test.name)
		assert.Equal(t, []byte{0, 0, 0x08, 0}, fieldValues(optsRecords[0].OptionsValues)[netflow.IPFIX_FIELD_samplingPacketInterval], test.name)

		var pkt netflow.IPFIXPacket
		require.NoError(t, netflow.DecodeMessageIPFIX(bytes.NewBuffer(out.msgs[1][2:]), templates, &pkt), test.name)
		assert.Equal(t, uint32(1), pkt.SequenceNumber, test.name)

		var records []netflow.DataRecord
		for _, fs := range pkt.FlowSets {
			if s, ok := fs.(netflow.DataFlowSet); ok {
				records = append(records, s.Records...)
			}
		}
		require.Len(t, records, 2, test.name)

		for _, r := range records {
			v := fieldValues(r.Values)
			assert.Equal(t, []byte{10, 0, 0, 1}, v[netflow.IPFIX_FIELD_sourceIPv4Address], test.name)
			assert.Equal(t, []byte{10, 0, 0, 2}, v[netflow.IPFIX_FIELD_destinationIPv4Address], test.name)
			assert.Equal(t, []byte{6}, v[netflow.IPFIX_FIELD_protocolIdentifier], test.name)
			assert.Equal(t, []byte{0x87, 0x07}, v[netflow.IPFIX_FIELD_sourceTransportPort], test.name)
			assert.Equal(t, u64(12), v[netflow.IPFIX_FIELD_packetDeltaCount], test.name)
			assert.Equal(t, u64(1500), v[netflow.IPFIX_FIELD_octetDeltaCount], test.name)
		}
	}
}
