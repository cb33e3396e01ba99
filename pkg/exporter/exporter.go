package exporter

import (
	"io"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/bio-routing/ipfixcodec/pkg/packet/ipfix"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	log "github.com/sirupsen/logrus"
)

// Config is the configuration of an Exporter
type Config struct {
	ObservationDomainID uint32

	// Alignment pads sets to a multiple of Alignment bytes. 0 and 1 disable padding.
	Alignment uint8

	// TemplateRefresh re-announces all templates once it has passed since the last
	// announcement. 0 announces templates only once.
	TemplateRefresh time.Duration

	Registerer prometheus.Registerer
	Clock      clock.Clock
}

type metrics struct {
	messagesSent  prometheus.Counter
	recordsSent   prometheus.Counter
	templatesSent prometheus.Counter
	exportErrors  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)

	return &metrics{
		messagesSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ipfixcodec",
			Subsystem: "exporter",
			Name:      "messages_sent",
			Help:      "Number of IPFIX messages written",
		}),
		recordsSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ipfixcodec",
			Subsystem: "exporter",
			Name:      "data_records_sent",
			Help:      "Number of data records written",
		}),
		templatesSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ipfixcodec",
			Subsystem: "exporter",
			Name:      "templates_sent",
			Help:      "Number of template and options template records written",
		}),
		exportErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ipfixcodec",
			Subsystem: "exporter",
			Name:      "errors",
			Help:      "Number of messages that could not be encoded or written",
		}),
	}
}

// Exporter writes IPFIX messages of a single observation domain to w. Every message
// is encoded into a buffer first and handed to w in one Write call, so w may be a
// datagram socket.
type Exporter struct {
	w        io.Writer
	resolver ipfix.Resolver
	cfg      Config
	metrics  *metrics
	clock    clock.Clock

	mu               sync.Mutex
	store            *ipfix.ExclusiveTemplateStore
	templates        map[uint16]ipfix.TemplateRecord
	optionsTemplates map[uint16]ipfix.OptionsTemplateRecord
	announcePending  bool
	lastAnnounce     time.Time
	sequence         uint32
	buf              *ipfix.WriteBuffer
}

// New creates a new exporter
func New(w io.Writer, resolver ipfix.Resolver, cfg Config) *Exporter {
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}

	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	return &Exporter{
		w:                w,
		resolver:         resolver,
		cfg:              cfg,
		metrics:          newMetrics(cfg.Registerer),
		clock:            cfg.Clock,
		store:            ipfix.NewExclusiveTemplateStore(),
		templates:        make(map[uint16]ipfix.TemplateRecord),
		optionsTemplates: make(map[uint16]ipfix.OptionsTemplateRecord),
		buf:              ipfix.NewWriteBuffer(1500),
	}
}

// AddTemplate registers a template. It is announced with the next exported message.
func (e *Exporter) AddTemplate(rec ipfix.TemplateRecord) error {
	if rec.IsWithdrawal() {
		return errors.Errorf("template %d has no fields", rec.TemplateID)
	}

	if rec.TemplateID <= ipfix.SetIDTemplateMax {
		return errors.Wrapf(ipfix.ErrReservedTemplateID, "template %d", rec.TemplateID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.optionsTemplates, rec.TemplateID)
	e.templates[rec.TemplateID] = rec
	ipfix.InsertTemplateRecords(e.store, []ipfix.TemplateRecord{rec}, e.resolver)
	e.announcePending = true

	return nil
}

// AddOptionsTemplate registers an options template. It is announced with the next exported message.
func (e *Exporter) AddOptionsTemplate(rec ipfix.OptionsTemplateRecord) error {
	if len(rec.FieldSpecifiers) == 0 {
		return errors.Errorf("options template %d has no fields", rec.TemplateID)
	}

	if rec.TemplateID <= ipfix.SetIDTemplateMax {
		return errors.Wrapf(ipfix.ErrReservedTemplateID, "options template %d", rec.TemplateID)
	}

	if int(rec.ScopeFieldCount) > len(rec.FieldSpecifiers) || rec.ScopeFieldCount == 0 {
		return errors.Errorf("options template %d: invalid scope field count %d", rec.TemplateID, rec.ScopeFieldCount)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.templates, rec.TemplateID)
	e.optionsTemplates[rec.TemplateID] = rec
	ipfix.InsertOptionsTemplateRecords(e.store, []ipfix.OptionsTemplateRecord{rec}, e.resolver)
	e.announcePending = true

	return nil
}

// WithdrawTemplate removes a template and sends its withdrawal right away
func (e *Exporter) WithdrawTemplate(templateID uint16) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var set ipfix.Set
	if _, ok := e.templates[templateID]; ok {
		set.Records = ipfix.TemplateRecords{{TemplateID: templateID}}
	} else if _, ok := e.optionsTemplates[templateID]; ok {
		set.Records = ipfix.OptionsTemplateRecords{{TemplateID: templateID}}
	} else {
		return &ipfix.MissingTemplateError{TemplateID: templateID}
	}

	err := e.send(&ipfix.Message{Sets: []ipfix.Set{set}})
	if err != nil {
		return err
	}

	delete(e.templates, templateID)
	delete(e.optionsTemplates, templateID)
	e.store.RemoveTemplate(templateID)

	return nil
}

// Export writes records as one data set of templateID. All templates are sent ahead of
// the data set when they changed or the refresh interval has passed.
func (e *Exporter) Export(templateID uint16, records []ipfix.DataRecord) error {
	if len(records) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, found := e.store.GetTemplate(templateID); !found {
		return &ipfix.MissingTemplateError{TemplateID: templateID}
	}

	now := e.clock.Now()
	announce := e.announceDue(now)

	m := &ipfix.Message{}
	if announce {
		m.Sets = e.templateSets()
	}

	m.Sets = append(m.Sets, ipfix.Set{
		Records: ipfix.DataRecords{
			TemplateID: templateID,
			Records:    records,
		},
	})

	err := e.send(m)
	if err != nil {
		return err
	}

	e.sequence += uint32(len(records))
	e.metrics.recordsSent.Add(float64(len(records)))

	if announce {
		e.announcePending = false
		e.lastAnnounce = now
		e.metrics.templatesSent.Add(float64(len(e.templates) + len(e.optionsTemplates)))
		log.WithFields(log.Fields{
			"domain":    e.cfg.ObservationDomainID,
			"templates": e.store.TemplateIDs(),
		}).Debug("Announced templates")
	}

	return nil
}

// SequenceNumber returns the number of data records exported so far, modulo 2^32
func (e *Exporter) SequenceNumber() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.sequence
}

func (e *Exporter) announceDue(now time.Time) bool {
	if e.announcePending {
		return true
	}

	if e.cfg.TemplateRefresh <= 0 {
		return false
	}

	return now.Sub(e.lastAnnounce) >= e.cfg.TemplateRefresh
}

func (e *Exporter) templateSets() []ipfix.Set {
	sets := make([]ipfix.Set, 0, 2)

	if len(e.templates) > 0 {
		recs := make(ipfix.TemplateRecords, 0, len(e.templates))
		for _, id := range sortedKeys(e.templates) {
			recs = append(recs, e.templates[id])
		}
		sets = append(sets, ipfix.Set{Records: recs})
	}

	if len(e.optionsTemplates) > 0 {
		recs := make(ipfix.OptionsTemplateRecords, 0, len(e.optionsTemplates))
		for _, id := range sortedKeys(e.optionsTemplates) {
			recs = append(recs, e.optionsTemplates[id])
		}
		sets = append(sets, ipfix.Set{Records: recs})
	}

	return sets
}

// send encodes m with the current header fields and writes it. e.mu must be held.
func (e *Exporter) send(m *ipfix.Message) error {
	m.ExportTime = uint32(e.clock.Now().Unix())
	m.SequenceNumber = e.sequence
	m.ObservationDomainID = e.cfg.ObservationDomainID

	e.buf.Reset()
	err := ipfix.Encode(e.buf, m, e.store, e.cfg.Alignment)
	if err != nil {
		e.metrics.exportErrors.Inc()
		return errors.Wrap(err, "Unable to encode IPFIX message")
	}

	_, err = e.w.Write(e.buf.Bytes())
	if err != nil {
		e.metrics.exportErrors.Inc()
		return errors.Wrap(err, "Unable to write IPFIX message")
	}

	e.metrics.messagesSent.Inc()
	return nil
}

func sortedKeys[T any](m map[uint16]T) []uint16 {
	keys := make([]uint16, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		return keys[i] < keys[j]
	})

	return keys
}
