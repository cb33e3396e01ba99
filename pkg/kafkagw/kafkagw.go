package kafkagw

import (
	"sort"
	"sync"
	"time"

	"github.com/IBM/sarama"
	bnet "github.com/bio-routing/bio-rd/net"
	"github.com/bio-routing/ipfixcodec/pkg/ie"
	"github.com/bio-routing/ipfixcodec/pkg/models/flow"
	"github.com/bio-routing/ipfixcodec/pkg/packet/ipfix"
	"github.com/pkg/errors"

	log "github.com/sirupsen/logrus"
)

const (
	ipv4TemplateID = 256
	ipv6TemplateID = 257

	// maxRecordsPerMessage keeps messages below the 16 bit IPFIX length limit
	maxRecordsPerMessage = 256

	defaultTopic   = "ipfix"
	defaultVersion = "2.8.1"
)

// KafkaConfig represents a kafka producer config
type KafkaConfig struct {
	Brokers  []string `yaml:"brokers"`
	Topic    string   `yaml:"topic"`
	Version  string   `yaml:"version"`
	ClientID string   `yaml:"client_id"`
}

func (cfg *KafkaConfig) saramaConfig() (*sarama.Config, error) {
	version := cfg.Version
	if version == "" {
		version = defaultVersion
	}

	v, err := sarama.ParseKafkaVersion(version)
	if err != nil {
		return nil, errors.Wrapf(err, "Invalid kafka version %q", version)
	}

	c := sarama.NewConfig()
	c.Version = v
	c.Producer.Return.Successes = true
	c.Producer.RequiredAcks = sarama.WaitForLocal
	if cfg.ClientID != "" {
		c.ClientID = cfg.ClientID
	}

	return c, nil
}

type sessionKey struct {
	agent    bnet.IP
	domainID uint32
}

// KafkaGateway publishes flows as IPFIX messages. Every message carries the templates
// it uses so consumers can decode it without any preceding state.
type KafkaGateway struct {
	topic     string
	producer  sarama.SyncProducer
	store     *ipfix.ExclusiveTemplateStore
	templates map[uint8]ipfix.TemplateRecord
	timeNow   func() time.Time

	mu       sync.Mutex
	sequence map[sessionKey]uint32
	buf      *ipfix.WriteBuffer
}

// New connects to the brokers. A nil resolver falls back to the builtin registry.
func New(cfg *KafkaConfig, resolver ipfix.Resolver) (*KafkaGateway, error) {
	sc, err := cfg.saramaConfig()
	if err != nil {
		return nil, err
	}

	p, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to create kafka producer")
	}

	return newGateway(cfg, p, resolver)
}

func newGateway(cfg *KafkaConfig, p sarama.SyncProducer, resolver ipfix.Resolver) (*KafkaGateway, error) {
	if resolver == nil {
		resolver = ie.New()
	}

	topic := cfg.Topic
	if topic == "" {
		topic = defaultTopic
	}

	kg := &KafkaGateway{
		topic:     topic,
		producer:  p,
		store:     ipfix.NewExclusiveTemplateStore(),
		templates: make(map[uint8]ipfix.TemplateRecord),
		timeNow:   time.Now,
		sequence:  make(map[sessionKey]uint32),
		buf:       ipfix.NewWriteBuffer(4096),
	}

	for family, id := range map[uint8]uint16{4: ipv4TemplateID, 6: ipv6TemplateID} {
		tmpl, err := flow.Template(id, family)
		if err != nil {
			return nil, err
		}

		kg.templates[family] = tmpl
		ipfix.InsertTemplateRecords(kg.store, []ipfix.TemplateRecord{tmpl}, resolver)
	}

	return kg, nil
}

// InsertFlows publishes flows, one message per exporting session and up to
// maxRecordsPerMessage records
func (kg *KafkaGateway) InsertFlows(flows []*flow.Flow) error {
	kg.mu.Lock()
	defer kg.mu.Unlock()

	msgs := make([]*sarama.ProducerMessage, 0)
	for _, s := range groupBySession(flows) {
		for start := 0; start < len(s.flows); start += maxRecordsPerMessage {
			end := start + maxRecordsPerMessage
			if end > len(s.flows) {
				end = len(s.flows)
			}

			value, err := kg.encode(s.key, s.flows[start:end])
			if err != nil {
				return err
			}

			if value == nil {
				continue
			}

			msgs = append(msgs, &sarama.ProducerMessage{
				Topic: kg.topic,
				Key:   sarama.StringEncoder(s.key.agent.String()),
				Value: sarama.ByteEncoder(value),
			})
		}
	}

	if len(msgs) == 0 {
		return nil
	}

	err := kg.producer.SendMessages(msgs)
	if err != nil {
		return errors.Wrap(err, "Unable to send messages")
	}

	log.WithFields(log.Fields{
		"topic":    kg.topic,
		"messages": len(msgs),
	}).Debug("Published flows")

	return nil
}

// encode builds one IPFIX message, nil if none of the flows can be exported. kg.mu
// must be held.
func (kg *KafkaGateway) encode(key sessionKey, flows []*flow.Flow) ([]byte, error) {
	byFamily := make(map[uint8][]ipfix.DataRecord)
	for _, fl := range flows {
		rec, err := fl.DataRecord()
		if err != nil {
			log.WithError(err).WithField("agent", key.agent.String()).Debug("Skipping flow")
			continue
		}

		byFamily[fl.Family] = append(byFamily[fl.Family], rec)
	}

	m := &ipfix.Message{
		ExportTime:          uint32(kg.timeNow().Unix()),
		SequenceNumber:      kg.sequence[key],
		ObservationDomainID: key.domainID,
	}

	tmpls := make(ipfix.TemplateRecords, 0, 2)
	data := make([]ipfix.Set, 0, 2)
	n := 0
	for _, family := range []uint8{4, 6} {
		recs := byFamily[family]
		if len(recs) == 0 {
			continue
		}

		tmpl := kg.templates[family]
		tmpls = append(tmpls, tmpl)
		data = append(data, ipfix.Set{Records: ipfix.DataRecords{TemplateID: tmpl.TemplateID, Records: recs}})
		n += len(recs)
	}

	if n == 0 {
		log.WithFields(log.Fields{
			"agent":  key.agent.String(),
			"domain": key.domainID,
			"flows":  len(flows),
		}).Warning("No exportable flows")
		return nil, nil
	}

	m.Sets = append([]ipfix.Set{{Records: tmpls}}, data...)

	kg.buf.Reset()
	err := ipfix.Encode(kg.buf, m, kg.store, 4)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to encode IPFIX message")
	}

	kg.sequence[key] += uint32(n)
	return append([]byte(nil), kg.buf.Bytes()...), nil
}

// Close closes the producer
func (kg *KafkaGateway) Close() error {
	return kg.producer.Close()
}

type session struct {
	key   sessionKey
	flows []*flow.Flow
}

func groupBySession(flows []*flow.Flow) []*session {
	sessions := make(map[sessionKey]*session)
	for _, fl := range flows {
		k := sessionKey{agent: fl.Agent, domainID: fl.ObservationDomainID}
		if _, exists := sessions[k]; !exists {
			sessions[k] = &session{key: k}
		}

		sessions[k].flows = append(sessions[k].flows, fl)
	}

	ret := make([]*session, 0, len(sessions))
	for _, s := range sessions {
		ret = append(ret, s)
	}

	sort.Slice(ret, func(i, j int) bool {
		a, b := ret[i].key, ret[j].key
		if a.agent != b.agent {
			return a.agent.String() < b.agent.String()
		}

		return a.domainID < b.domainID
	})

	return ret
}
