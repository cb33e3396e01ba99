package ipfix

import (
	"io"
	"net"
	"sync"
	"time"

	bnet "github.com/bio-routing/bio-rd/net"
	"github.com/bio-routing/ipfixcodec/pkg/models/flow"
	"github.com/bio-routing/ipfixcodec/pkg/packet/ipfix"
	"github.com/bio-routing/ipfixcodec/pkg/servers/aggregator"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	log "github.com/sirupsen/logrus"
)

const maxDatagramSize = 0xFFFF

// InterfaceResolver resolves the name of an interface of an agent
type InterfaceResolver interface {
	Resolve(agent bnet.IP, ifID uint32) string
}

// Config is the configuration of an IPFIXServer
type Config struct {
	Listen     string
	NumReaders int

	// NewTemplateStore creates the template registry of every (agent, domain) session.
	// Exclusive stores require NumReaders == 1.
	NewTemplateStore TemplateStoreFactory
	Exclusive        bool

	// Resolver names the information elements of received templates
	Resolver ipfix.Resolver

	// AggregationWindow sums up flows before emitting them. 0 emits flows per packet.
	AggregationWindow time.Duration

	Registerer prometheus.Registerer
}

type metrics struct {
	packetsReceived   *prometheus.CounterVec
	decodeErrors      *prometheus.CounterVec
	flowsDecoded      *prometheus.CounterVec
	templatesReceived *prometheus.CounterVec
	sampleRateUpdates *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)

	return &metrics{
		packetsReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ipfixcodec",
			Subsystem: "collector",
			Name:      "received_packets",
			Help:      "Number of IPFIX packets received",
		}, []string{"agent"}),
		decodeErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ipfixcodec",
			Subsystem: "collector",
			Name:      "decode_errors",
			Help:      "Number of IPFIX packets that could not be decoded",
		}, []string{"agent", "reason"}),
		flowsDecoded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ipfixcodec",
			Subsystem: "collector",
			Name:      "flows",
			Help:      "Number of flows decoded",
		}, []string{"agent"}),
		templatesReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ipfixcodec",
			Subsystem: "collector",
			Name:      "templates_received",
			Help:      "Number of template and options template records received",
		}, []string{"agent"}),
		sampleRateUpdates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ipfixcodec",
			Subsystem: "collector",
			Name:      "sample_rate_updates",
			Help:      "Number of sampling rates learned from options records",
		}, []string{"agent"}),
	}
}

// IPFIXServer collects IPFIX messages over UDP and turns their data records into flows
type IPFIXServer struct {
	// tmplCache holds the template registry of every (agent, domain) session
	tmplCache       *templateCache
	sampleRateCache *sampleRateCache
	resolver        ipfix.Resolver
	conn            *net.UDPConn
	ifResolver      InterfaceResolver
	output          chan []*flow.Flow
	wg              sync.WaitGroup
	stopCh          chan struct{}
	aggregator      *aggregator.Aggregator
	metrics         *metrics
}

// New creates and starts a new `IPFIXServer` instance
func New(cfg Config, output chan []*flow.Flow, ifResolver InterfaceResolver) (*IPFIXServer, error) {
	ipf, err := newServer(cfg, output, ifResolver)
	if err != nil {
		return nil, err
	}

	addr, err := net.ResolveUDPAddr("udp", cfg.Listen)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to resolve UDP address")
	}

	con, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "ListenUDP failed")
	}
	ipf.conn = con

	if cfg.AggregationWindow > 0 {
		ipf.aggregator = aggregator.New(output, cfg.AggregationWindow)
	}

	ipf.startService(cfg.NumReaders)
	return ipf, nil
}

func newServer(cfg Config, output chan []*flow.Flow, ifResolver InterfaceResolver) (*IPFIXServer, error) {
	if cfg.NumReaders < 1 {
		cfg.NumReaders = 1
	}

	if cfg.NewTemplateStore == nil {
		cfg.NewTemplateStore = NewSharedStore
		if cfg.Exclusive {
			cfg.NewTemplateStore = NewExclusiveStore
		}
	}

	if cfg.Exclusive && cfg.NumReaders > 1 {
		return nil, errors.Errorf("exclusive template stores require a single reader, got %d", cfg.NumReaders)
	}

	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}

	return &IPFIXServer{
		tmplCache:       newTemplateCache(cfg.NewTemplateStore),
		sampleRateCache: newSampleRateCache(),
		resolver:        cfg.Resolver,
		ifResolver:      ifResolver,
		stopCh:          make(chan struct{}),
		output:          output,
		metrics:         newMetrics(cfg.Registerer),
	}, nil
}

func (ipf *IPFIXServer) startService(numReaders int) {
	for i := 0; i < numReaders; i++ {
		ipf.wg.Add(1)
		go func() {
			defer ipf.wg.Done()
			err := ipf.packetWorker()
			if err != nil {
				log.WithError(err).Error("packetWorker failed")
			}
		}()
	}
}

// Addr returns the address the server listens on
func (ipf *IPFIXServer) Addr() net.Addr {
	return ipf.conn.LocalAddr()
}

// Stop closes the socket and stops the workers
func (ipf *IPFIXServer) Stop() {
	log.Info("Stopping IPFIX server")
	close(ipf.stopCh)
	ipf.conn.Close()
	ipf.wg.Wait()

	if ipf.aggregator != nil {
		ipf.aggregator.Stop()
	}
}

// packetWorker reads IPFIX packets from the socket and hands them off to processPacket
func (ipf *IPFIXServer) packetWorker() error {
	buffer := make([]byte, maxDatagramSize)
	for {
		if ipf.stopped() {
			return nil
		}

		length, remote, err := ipf.conn.ReadFromUDP(buffer)
		if err == io.EOF {
			return nil
		}

		if err != nil {
			if ipf.stopped() {
				return nil
			}

			return errors.Wrap(err, "ReadFromUDP failed")
		}

		remote4 := remote.IP.To4()
		if remote4 != nil {
			remote.IP = remote4
		}

		remoteAddr, err := bnet.IPFromBytes([]byte(remote.IP))
		if err != nil {
			return errors.Wrapf(err, "Unable to convert net.IP to bnet.IP: %q", remote)
		}

		ipf.processPacket(remoteAddr, buffer[:length])
	}
}

func (ipf *IPFIXServer) stopped() bool {
	select {
	case <-ipf.stopCh:
		return true
	default:
		return false
	}
}

func (ipf *IPFIXServer) processPacket(agent bnet.IP, buffer []byte) {
	agentStr := agent.String()
	ipf.metrics.packetsReceived.WithLabelValues(agentStr).Inc()

	flows, err := ipf.decodePacket(agent, buffer)
	if err != nil {
		ipf.metrics.decodeErrors.WithLabelValues(agentStr, decodeErrorReason(err)).Inc()
		log.WithError(err).WithField("agent", agentStr).Error("Unable to decode IPFIX packet")
	}

	if len(flows) == 0 {
		return
	}

	ipf.metrics.flowsDecoded.WithLabelValues(agentStr).Add(float64(len(flows)))
	ipf.emit(flows)
}

func (ipf *IPFIXServer) emit(flows []*flow.Flow) {
	if ipf.aggregator == nil {
		ipf.output <- flows
		return
	}

	for _, fl := range flows {
		ipf.aggregator.GetIngress() <- fl
	}
}

// decodePacket decodes a message using the template registry of its session. Templates
// announced before a decoding error stay installed.
func (ipf *IPFIXServer) decodePacket(agent bnet.IP, buffer []byte) ([]*flow.Flow, error) {
	hdr, err := ipfix.DecodeHeader(buffer)
	if err != nil {
		return nil, err
	}

	msg, err := ipfix.Decode(buffer, ipf.tmplCache.get(agent, hdr.ObservationDomainID), ipf.resolver)
	if err != nil {
		return nil, err
	}

	ipf.countTemplates(agent, msg)

	flows := make([]*flow.Flow, 0)
	for set := range msg.DataSets() {
		if set.Kind == ipfix.KindOptionsTemplate {
			ipf.processOptions(agent, msg.ObservationDomainID, set.Records)
			continue
		}

		for i := range set.Records {
			flows = append(flows, ipf.recordToFlow(agent, msg, &set.Records[i]))
		}
	}

	return flows, nil
}

func (ipf *IPFIXServer) countTemplates(agent bnet.IP, msg *ipfix.Message) {
	n := 0
	for range msg.TemplateRecords() {
		n++
	}

	for range msg.OptionsTemplateRecords() {
		n++
	}

	if n > 0 {
		ipf.metrics.templatesReceived.WithLabelValues(agent.String()).Add(float64(n))
	}
}

func (ipf *IPFIXServer) processOptions(agent bnet.IP, domainID uint32, records []ipfix.DataRecord) {
	for i := range records {
		rate, ok := samplingRate(&records[i])
		if !ok {
			continue
		}

		ipf.sampleRateCache.set(agent, domainID, rate)
		ipf.metrics.sampleRateUpdates.WithLabelValues(agent.String()).Inc()
	}
}

func (ipf *IPFIXServer) recordToFlow(agent bnet.IP, msg *ipfix.Message, rec *ipfix.DataRecord) *flow.Flow {
	fl := flow.FromDataRecord(agent, msg.ObservationDomainID, msg.ExportTime, rec)

	if fl.Samplerate == 0 {
		fl.Samplerate = ipf.sampleRateCache.get(agent, msg.ObservationDomainID)
	}

	if ipf.ifResolver != nil {
		fl.IntIn = ipf.ifResolver.Resolve(agent, fl.IfIndexIn)
		fl.IntOut = ipf.ifResolver.Resolve(agent, fl.IfIndexOut)
	}

	return fl
}

func decodeErrorReason(err error) string {
	var missing *ipfix.MissingTemplateError
	if errors.As(err, &missing) {
		return "missing_template"
	}

	if errors.Is(err, ipfix.ErrVersion) {
		return "version"
	}

	return "malformed"
}
