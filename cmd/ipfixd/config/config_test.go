package config

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErr  bool
		validate func(t *testing.T, c *Config)
	}{
		{
			name:  "defaults",
			input: "{}",
			validate: func(t *testing.T, c *Config) {
				assert.Equal(t, ":4739", c.ListenIPFIX)
				assert.Equal(t, ":9991", c.ListenHTTP)
				assert.Equal(t, TemplatesShared, c.Templates)
				assert.Equal(t, runtime.NumCPU(), c.Readers)
				assert.False(t, c.Exclusive())
				assert.Nil(t, c.Clickhouse)
			},
		},
		{
			name: "full",
			input: `
listen_ipfix: "127.0.0.1:4739"
templates: exclusive
aggregation_window: 30s
information_elements: /etc/ipfixd/ie.yml
snmp:
  version: 3
  user: flows
  timeout: 5s
routers:
  - name: core01
    address: 192.0.2.1
  - name: core02
    address: 2001:db8::2
clickhouse:
  address: localhost:9000
  database: flows
kafka:
  brokers: [kafka01:9092, kafka02:9092]
  topic: ipfix-flows
`,
			validate: func(t *testing.T, c *Config) {
				assert.True(t, c.Exclusive())
				assert.Equal(t, 1, c.Readers)
				assert.Equal(t, 30*time.Second, c.AggregationWindow)
				assert.Equal(t, "/etc/ipfixd/ie.yml", c.InformationElems)
				assert.Equal(t, uint8(3), c.SNMP.Version)
				assert.Equal(t, 5*time.Second, c.SNMP.Timeout)
				require.Len(t, c.GetAgents(), 2)
				assert.Equal(t, "192.0.2.1", c.GetAgents()[0].String())
				assert.Equal(t, "flows", c.Clickhouse.Database)
				assert.Equal(t, []string{"kafka01:9092", "kafka02:9092"}, c.Kafka.Brokers)
				assert.Equal(t, "ipfix-flows", c.Kafka.Topic)
			},
		},
		{
			name:    "exclusive templates with many readers",
			input:   "templates: exclusive\nreaders: 4\n",
			wantErr: true,
		},
		{
			name:    "kafka without brokers",
			input:   "kafka:\n  topic: flows\n",
			wantErr: true,
		},
		{
			name:    "unknown template mode",
			input:   "templates: global\n",
			wantErr: true,
		},
		{
			name:    "invalid router address",
			input:   "routers:\n  - name: core01\n    address: core01.example.net\n",
			wantErr: true,
		},
		{
			name:    "unknown key",
			input:   "listen_sflow: \":6343\"\n",
			wantErr: true,
		},
		{
			name:    "sharded clickhouse without cluster",
			input:   "clickhouse:\n  sharded: true\n",
			wantErr: true,
		},
	}

	for _, test := range tests {
		c, err := parse([]byte(test.input))
		if test.wantErr {
			assert.Error(t, err, test.name)
			continue
		}

		require.NoError(t, err, test.name)
		test.validate(t, c)
	}
}
