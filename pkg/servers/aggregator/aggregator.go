package aggregator

import (
	"time"

	bnet "github.com/bio-routing/bio-rd/net"
	"github.com/bio-routing/ipfixcodec/pkg/models/flow"
)

// DefaultWindow is the aggregation window used when none is configured
const DefaultWindow = 10 * time.Second

// Key identifies flows that are summed up within a window
type Key struct {
	Agent               bnet.IP
	ObservationDomainID uint32
	Src                 bnet.IP
	Dst                 bnet.IP
	Sport               uint16
	Dport               uint16
	Protocol            uint8
	IfIndexIn           uint32
	IfIndexOut          uint32
}

// Aggregator sums up flows per Key and emits them once per window
type Aggregator struct {
	window    time.Duration
	data      map[Key]*flow.Flow
	stopCh    chan struct{}
	doneCh    chan struct{}
	ingress   chan *flow.Flow
	output    chan []*flow.Flow
	lastFlush time.Time
	timeNow   func() time.Time
}

// New creates an Aggregator and starts its service routine
func New(output chan []*flow.Flow, window time.Duration) *Aggregator {
	a := newAggregator(output, window)
	go a.service()
	return a
}

func newAggregator(output chan []*flow.Flow, window time.Duration) *Aggregator {
	if window <= 0 {
		window = DefaultWindow
	}

	return &Aggregator{
		window:  window,
		data:    make(map[Key]*flow.Flow),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		ingress: make(chan *flow.Flow, 1024),
		output:  output,
		timeNow: time.Now,
	}
}

// Stop flushes pending flows and stops the service routine
func (a *Aggregator) Stop() {
	close(a.stopCh)
	<-a.doneCh
}

// FlowToKey gets the aggregation key of a flow
func FlowToKey(fl *flow.Flow) Key {
	return Key{
		Agent:               fl.Agent,
		ObservationDomainID: fl.ObservationDomainID,
		Src:                 fl.SrcAddr,
		Dst:                 fl.DstAddr,
		Sport:               fl.SrcPort,
		Dport:               fl.DstPort,
		Protocol:            fl.Protocol,
		IfIndexIn:           fl.IfIndexIn,
		IfIndexOut:          fl.IfIndexOut,
	}
}

func (a *Aggregator) service() {
	defer close(a.doneCh)

	for {
		select {
		case <-a.stopCh:
			a.drain()
			if len(a.data) > 0 {
				a.flush()
			}
			return
		case fl := <-a.ingress:
			a.Ingest(fl)
		}
	}
}

func (a *Aggregator) drain() {
	for {
		select {
		case fl := <-a.ingress:
			a.Ingest(fl)
		default:
			return
		}
	}
}

// Ingest adds a flow to the current window, flushing the previous window first if it
// has passed. It must only be called from one goroutine.
func (a *Aggregator) Ingest(fl *flow.Flow) {
	normalizedIngestTime := a.timeNow().Truncate(a.window)

	if normalizedIngestTime.Sub(a.lastFlush) >= a.window {
		a.flush()
		a.lastFlush = normalizedIngestTime
	}

	fl.Timestamp = normalizedIngestTime.Unix()
	a.add(fl)
}

func (a *Aggregator) add(fl *flow.Flow) {
	k := FlowToKey(fl)

	if _, exists := a.data[k]; !exists {
		a.data[k] = fl
		return
	}

	a.data[k].Add(fl)
}

// GetIngress gets the channel flows are fed into
func (a *Aggregator) GetIngress() chan<- *flow.Flow {
	return a.ingress
}

func (a *Aggregator) flush() {
	s := make([]*flow.Flow, 0, len(a.data))
	for _, fl := range a.data {
		s = append(s, fl)
	}

	a.output <- s
	a.data = make(map[Key]*flow.Flow)
}
