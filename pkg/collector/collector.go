package collector

import (
	"io"
	"net/http"
	"sync"

	"github.com/bio-routing/ipfixcodec/pkg/clickhousegw"
	"github.com/bio-routing/ipfixcodec/pkg/intfmapper"
	"github.com/bio-routing/ipfixcodec/pkg/kafkagw"
	"github.com/bio-routing/ipfixcodec/pkg/models/flow"
	"github.com/bio-routing/ipfixcodec/pkg/servers/ipfix"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	bnet "github.com/bio-routing/bio-rd/net"
	log "github.com/sirupsen/logrus"
)

// Sink stores collected flows
type Sink interface {
	InsertFlows(flows []*flow.Flow) error
}

// Collector receives IPFIX flows and hands them to a sink
type Collector struct {
	cfg      *Config
	ifMapper *intfmapper.IntfMapper
	ifxs     *ipfix.IPFIXServer
	sinks    multiSink
	flowsRX  chan []*flow.Flow
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// Config is a collector instances configuration
type Config struct {
	Server     ipfix.Config
	ChCfg      *clickhousegw.ClickhouseConfig
	KafkaCfg   *kafkagw.KafkaConfig
	SNMP       *intfmapper.SNMPConfig
	Agents     []bnet.IP
	Discover   bool
	ListenHTTP string
	Registry   *prometheus.Registry
}

// New creates a new collector instance and starts receiving flows
func New(cfg *Config) (*Collector, error) {
	c := &Collector{
		cfg:     cfg,
		flowsRX: make(chan []*flow.Flow, 1024),
		stopCh:  make(chan struct{}),
	}

	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	cfg.Server.Registerer = cfg.Registry

	if cfg.ChCfg != nil {
		chgw, err := clickhousegw.New(cfg.ChCfg)
		if err != nil {
			return nil, errors.Wrap(err, "Unable to create clickhouse wrapper")
		}
		c.sinks = append(c.sinks, chgw)
	}

	if cfg.KafkaCfg != nil {
		kg, err := kafkagw.New(cfg.KafkaCfg, cfg.Server.Resolver)
		if err != nil {
			c.close()
			return nil, errors.Wrap(err, "Unable to create kafka gateway")
		}
		c.sinks = append(c.sinks, kg)
	}

	if len(c.sinks) == 0 {
		c.sinks = append(c.sinks, logSink{})
	}

	var ifResolver ipfix.InterfaceResolver
	if cfg.SNMP != nil {
		c.ifMapper = intfmapper.New(cfg.SNMP, intfmapper.DefaultInterval, cfg.Discover)
		for _, agent := range cfg.Agents {
			c.ifMapper.AddDevice(agent)
		}
		ifResolver = c.ifMapper
	}

	ifxs, err := ipfix.New(cfg.Server, c.flowsRX, ifResolver)
	if err != nil {
		c.close()
		return nil, errors.Wrap(err, "Unable to start IPFIX server")
	}
	c.ifxs = ifxs

	return c, nil
}

// Run serves metrics and stores flows until Stop is called
func (c *Collector) Run() {
	if c.cfg.ListenHTTP != "" {
		go c.serveHTTP()
	}

	c.wg.Add(1)
	defer c.wg.Done()

	for {
		select {
		case <-c.stopCh:
			return
		case flows := <-c.flowsRX:
			c.store(flows)
		}
	}
}

func (c *Collector) store(flows []*flow.Flow) {
	err := c.sinks.InsertFlows(flows)
	if err != nil {
		log.WithError(err).Error("Insert failed")
	}
}

func (c *Collector) serveHTTP() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.cfg.Registry, promhttp.HandlerOpts{}))

	log.WithField("address", c.cfg.ListenHTTP).Info("Listening for HTTP requests")
	err := http.ListenAndServe(c.cfg.ListenHTTP, mux)
	if err != nil {
		log.WithError(err).Error("HTTP server failed")
	}
}

// Stop stops receiving and stores the flows still in flight
func (c *Collector) Stop() {
	c.ifxs.Stop()
	close(c.stopCh)
	c.wg.Wait()

	for {
		select {
		case flows := <-c.flowsRX:
			c.store(flows)
		default:
			c.close()
			return
		}
	}
}

func (c *Collector) close() {
	if c.ifMapper != nil {
		c.ifMapper.Stop()
	}

	for _, s := range c.sinks {
		cl, ok := s.(io.Closer)
		if !ok {
			continue
		}

		err := cl.Close()
		if err != nil {
			log.WithError(err).Warning("Unable to close sink")
		}
	}
}

// multiSink hands every batch to all sinks. A failing sink does not keep the others
// from receiving the batch.
type multiSink []Sink

func (m multiSink) InsertFlows(flows []*flow.Flow) error {
	var ret error
	for _, s := range m {
		err := s.InsertFlows(flows)
		if err != nil && ret == nil {
			ret = err
		}
	}

	return ret
}

// logSink logs flows when no database is configured
type logSink struct{}

func (logSink) InsertFlows(flows []*flow.Flow) error {
	for _, fl := range flows {
		log.WithFields(log.Fields{
			"agent":    fl.Agent.String(),
			"domain":   fl.ObservationDomainID,
			"src":      fl.SrcAddr.String(),
			"dst":      fl.DstAddr.String(),
			"protocol": fl.Protocol,
			"packets":  fl.Packets,
			"bytes":    fl.Size,
		}).Debug("Flow")
	}

	log.WithField("flows", len(flows)).Info("Received flows")
	return nil
}
