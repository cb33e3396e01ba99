package config

import (
	"io/ioutil"
	"runtime"
	"time"

	"github.com/bio-routing/ipfixcodec/pkg/clickhousegw"
	"github.com/bio-routing/ipfixcodec/pkg/intfmapper"
	"github.com/bio-routing/ipfixcodec/pkg/kafkagw"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	bnet "github.com/bio-routing/bio-rd/net"
)

const (
	listenIPFIXDefault = ":4739"
	listenHTTPDefault  = ":9991"

	// TemplatesShared shares the template registries between all readers
	TemplatesShared = "shared"

	// TemplatesExclusive gives every session an unsynchronized registry, single reader only
	TemplatesExclusive = "exclusive"
)

// Config represents a config file
type Config struct {
	ListenIPFIX       string                         `yaml:"listen_ipfix"`
	ListenHTTP        string                         `yaml:"listen_http"`
	Readers           int                            `yaml:"readers"`
	Templates         string                         `yaml:"templates"`
	AggregationWindow time.Duration                  `yaml:"aggregation_window"`
	InformationElems  string                         `yaml:"information_elements"`
	SNMP              *intfmapper.SNMPConfig         `yaml:"snmp"`
	DiscoverAgents    bool                           `yaml:"discover_agents"`
	Routers           []*Router                      `yaml:"routers"`
	Clickhouse        *clickhousegw.ClickhouseConfig `yaml:"clickhouse"`
	Kafka             *kafkagw.KafkaConfig           `yaml:"kafka"`
}

// Router represents a flow exporting device
type Router struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	address bnet.IP
}

// GetAddress gets a routers address
func (r *Router) GetAddress() bnet.IP {
	return r.address
}

func (r *Router) load() error {
	a, err := bnet.IPFromString(r.Address)
	if err != nil {
		return errors.Wrapf(err, "Invalid router IP address %q", r.Address)
	}

	r.address = a
	return nil
}

// Exclusive reports whether exclusive template registries are configured
func (c *Config) Exclusive() bool {
	return c.Templates == TemplatesExclusive
}

func (c *Config) load() error {
	if c.ListenIPFIX == "" {
		c.ListenIPFIX = listenIPFIXDefault
	}

	if c.ListenHTTP == "" {
		c.ListenHTTP = listenHTTPDefault
	}

	if c.Templates == "" {
		c.Templates = TemplatesShared
	}

	switch c.Templates {
	case TemplatesShared:
		if c.Readers == 0 {
			c.Readers = runtime.NumCPU()
		}
	case TemplatesExclusive:
		if c.Readers == 0 {
			c.Readers = 1
		}

		if c.Readers != 1 {
			return errors.Errorf("%s templates require a single reader, got %d", TemplatesExclusive, c.Readers)
		}
	default:
		return errors.Errorf("Unknown template mode %q", c.Templates)
	}

	if c.Readers < 0 {
		return errors.Errorf("Invalid number of readers: %d", c.Readers)
	}

	if c.AggregationWindow < 0 {
		return errors.Errorf("Invalid aggregation window: %s", c.AggregationWindow)
	}

	for _, r := range c.Routers {
		err := r.load()
		if err != nil {
			return errors.Wrapf(err, "Unable to load config for router %q", r.Name)
		}
	}

	if c.Clickhouse != nil && c.Clickhouse.Sharded && c.Clickhouse.Cluster == "" {
		return errors.New("Sharded clickhouse setups require a cluster name")
	}

	if c.Kafka != nil && len(c.Kafka.Brokers) == 0 {
		return errors.New("Kafka requires at least one broker")
	}

	return nil
}

// GetConfig gets the configuration
func GetConfig(fp string) (*Config, error) {
	fc, err := ioutil.ReadFile(fp)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to read file")
	}

	return parse(fc)
}

func parse(fc []byte) (*Config, error) {
	c := &Config{}
	err := yaml.UnmarshalStrict(fc, c)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to unmarshal")
	}

	err = c.load()
	if err != nil {
		return nil, errors.Wrap(err, "Invalid config")
	}

	return c, nil
}

// GetAgents gets the addresses of all configured routers
func (c *Config) GetAgents() []bnet.IP {
	ret := make([]bnet.IP, 0, len(c.Routers))
	for _, rtr := range c.Routers {
		ret = append(ret, rtr.GetAddress())
	}

	return ret
}
