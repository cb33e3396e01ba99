package kafkagw

import (
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	bnet "github.com/bio-routing/bio-rd/net"
	"github.com/bio-routing/ipfixcodec/pkg/ie"
	"github.com/bio-routing/ipfixcodec/pkg/models/flow"
	"github.com/bio-routing/ipfixcodec/pkg/packet/ipfix"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var registry = ie.New()

func mustIP(t *testing.T, s string) bnet.IP {
	ip, err := bnet.IPFromString(s)
	require.NoError(t, err)
	return ip
}

func testFlow(t *testing.T, agent string, domainID uint32, src string, dst string) *flow.Flow {
	fl := &flow.Flow{
		Agent:               mustIP(t, agent),
		ObservationDomainID: domainID,
		Family:              4,
		SrcAddr:             mustIP(t, src),
		DstAddr:             mustIP(t, dst),
		Protocol:            17,
		SrcPort:             53,
		DstPort:             5353,
		Packets:             1,
		Size:                100,
		Timestamp:           1700000000,
	}

	if fl.SrcAddr.IsIPv4() {
		return fl
	}

	fl.Family = 6
	return fl
}

// decodeChecker decodes a message value standalone and checks its contents
func decodeChecker(t *testing.T, domainID uint32, sequence uint32, records int) mocks.ValueChecker {
	return func(val []byte) error {
		m, err := ipfix.Decode(val, ipfix.NewExclusiveTemplateStore(), registry)
		if err != nil {
			return err
		}

		n := 0
		for range m.DataRecords() {
			n++
		}

		assert.Equal(t, domainID, m.ObservationDomainID)
		assert.Equal(t, sequence, m.SequenceNumber)
		assert.Equal(t, uint32(1700000100), m.ExportTime)
		assert.Equal(t, records, n)
		return nil
	}
}

func newTestGateway(t *testing.T) (*KafkaGateway, *mocks.SyncProducer) {
	p := mocks.NewSyncProducer(t, nil)
	kg, err := newGateway(&KafkaConfig{Topic: "flows"}, p, registry)
	require.NoError(t, err)
	kg.timeNow = func() time.Time { return time.Unix(1700000100, 0) }

	return kg, p
}

func TestInsertFlows(t *testing.T) {
	kg, p := newTestGateway(t)
	defer kg.Close()

	p.ExpectSendMessageWithCheckerFunctionAndSucceed(decodeChecker(t, 1, 0, 2))
	p.ExpectSendMessageWithCheckerFunctionAndSucceed(decodeChecker(t, 2, 0, 1))
	p.ExpectSendMessageWithCheckerFunctionAndSucceed(decodeChecker(t, 1, 0, 2))
	require.NoError(t, kg.InsertFlows([]*flow.Flow{
		testFlow(t, "192.0.2.1", 1, "10.0.0.1", "10.0.0.2"),
		testFlow(t, "192.0.2.2", 1, "2001:db8::1", "2001:db8::2"),
		testFlow(t, "192.0.2.1", 2, "10.0.0.3", "10.0.0.4"),
		testFlow(t, "192.0.2.1", 1, "10.0.0.5", "10.0.0.6"),
		testFlow(t, "192.0.2.2", 1, "10.0.0.7", "10.0.0.8"),
	}))

	p.ExpectSendMessageWithCheckerFunctionAndSucceed(decodeChecker(t, 1, 2, 1))
	require.NoError(t, kg.InsertFlows([]*flow.Flow{
		testFlow(t, "192.0.2.1", 1, "10.0.0.9", "10.0.0.10"),
	}))
}

func TestInsertFlowsSplitsLargeBatches(t *testing.T) {
	kg, p := newTestGateway(t)
	defer kg.Close()

	flows := make([]*flow.Flow, maxRecordsPerMessage+10)
	for i := range flows {
		flows[i] = testFlow(t, "192.0.2.1", 1, "10.0.0.1", "10.0.0.2")
	}

	p.ExpectSendMessageWithCheckerFunctionAndSucceed(decodeChecker(t, 1, 0, maxRecordsPerMessage))
	p.ExpectSendMessageWithCheckerFunctionAndSucceed(decodeChecker(t, 1, maxRecordsPerMessage, 10))
	require.NoError(t, kg.InsertFlows(flows))
}

func TestInsertFlowsSkipsSessionsWithoutAddresses(t *testing.T) {
	kg, p := newTestGateway(t)
	defer kg.Close()

	noAddr := &flow.Flow{
		Agent:               mustIP(t, "192.0.2.2"),
		ObservationDomainID: 1,
		Packets:             1,
	}

	p.ExpectSendMessageWithCheckerFunctionAndSucceed(decodeChecker(t, 1, 0, 1))
	require.NoError(t, kg.InsertFlows([]*flow.Flow{
		testFlow(t, "192.0.2.1", 1, "10.0.0.1", "10.0.0.2"),
		noAddr,
	}))

	require.NoError(t, kg.InsertFlows([]*flow.Flow{noAddr}))
}

func TestInsertFlowsEmpty(t *testing.T) {
	kg, _ := newTestGateway(t)
	defer kg.Close()

	assert.NoError(t, kg.InsertFlows(nil))
}

func TestInsertFlowsSendFails(t *testing.T) {
	kg, p := newTestGateway(t)
	defer kg.Close()

	p.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)
	err := kg.InsertFlows([]*flow.Flow{testFlow(t, "192.0.2.1", 1, "10.0.0.1", "10.0.0.2")})
	require.Error(t, err)
	assert.Equal(t, sarama.ErrNotLeaderForPartition, errors.Cause(err))
}

func TestSaramaConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     KafkaConfig
		version sarama.KafkaVersion
		wantErr bool
	}{
		{
			name:    "default version",
			cfg:     KafkaConfig{},
			version: sarama.V2_8_1_0,
		},
		{
			name:    "explicit version",
			cfg:     KafkaConfig{Version: "3.6.0", ClientID: "ipfixd"},
			version: sarama.V3_6_0_0,
		},
		{
			name:    "invalid version",
			cfg:     KafkaConfig{Version: "banana"},
			wantErr: true,
		},
	}

	for _, test := range tests {
		c, err := test.cfg.saramaConfig()
		if test.wantErr {
			assert.Error(t, err, test.name)
			continue
		}

		require.NoError(t, err, test.name)
		assert.Equal(t, test.version, c.Version, test.name)
		assert.True(t, c.Producer.Return.Successes, test.name)
	}
}
