package main

import (
	"context"
	"flag"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bio-routing/ipfixcodec/pkg/exporter"
	"github.com/bio-routing/ipfixcodec/pkg/ie"
	"github.com/bio-routing/ipfixcodec/pkg/models/flow"
	"github.com/bio-routing/ipfixcodec/pkg/packet/ipfix"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	bnet "github.com/bio-routing/bio-rd/net"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	ipv4TemplateID    = 256
	ipv6TemplateID    = 257
	samplingOptionsID = 258
)

var (
	target          = flag.String("target", "127.0.0.1:4739", "Collector address")
	domainID        = flag.Uint("domain", 1, "Observation domain ID")
	msgRate         = flag.Float64("rate", 1, "Rounds of messages sent per second")
	burst           = flag.Int("burst", 1, "Rounds that may be sent back to back")
	recordsPerMsg   = flag.Int("records", 10, "Data records per message")
	count           = flag.Int("count", 0, "Number of messages to send, 0 sends forever")
	templateRefresh = flag.Duration("template-refresh", time.Minute, "Template re-announcement interval")
	alignment       = flag.Uint("alignment", 4, "Set alignment in bytes")
	sampleRate      = flag.Uint("samplerate", 1000, "Announced packet sampling interval, 0 disables the options record")
	dump            = flag.Bool("dump", false, "Print every generated flow")
)

func main() {
	flag.Parse()

	conn, err := net.Dial("udp", *target)
	if err != nil {
		log.WithError(err).Fatal("Unable to connect")
	}
	defer conn.Close()

	exp := exporter.New(conn, ie.New(), exporter.Config{
		ObservationDomainID: uint32(*domainID),
		Alignment:           uint8(*alignment),
		TemplateRefresh:     *templateRefresh,
		Registerer:          prometheus.NewRegistry(),
	})

	err = addTemplates(exp)
	if err != nil {
		log.WithError(err).Fatal("Unable to add templates")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g := newGenerator(rand.New(rand.NewSource(time.Now().UnixNano())))
	limiter := rate.NewLimiter(rate.Limit(*msgRate), *burst)

	for i := 0; *count == 0 || i < *count; i++ {
		err := limiter.Wait(ctx)
		if err != nil {
			log.WithError(err).Info("Stopping")
			break
		}

		err = send(exp, g)
		if err != nil {
			log.WithError(err).Error("Export failed")
		}
	}

	log.WithField("records", exp.SequenceNumber()).Info("Done")
}

func addTemplates(exp *exporter.Exporter) error {
	for _, x := range []struct {
		id     uint16
		family uint8
	}{
		{ipv4TemplateID, 4},
		{ipv6TemplateID, 6},
	} {
		tmpl, err := flow.Template(x.id, x.family)
		if err != nil {
			return err
		}

		err = exp.AddTemplate(tmpl)
		if err != nil {
			return errors.Wrapf(err, "template %d", x.id)
		}
	}

	if *sampleRate == 0 {
		return nil
	}

	return exp.AddOptionsTemplate(ipfix.OptionsTemplateRecord{
		TemplateID:      samplingOptionsID,
		ScopeFieldCount: 1,
		FieldSpecifiers: []ipfix.FieldSpecifier{
			ipfix.NewFieldSpecifier(144, 4),
			ipfix.NewFieldSpecifier(305, 4),
		},
	})
}

func send(exp *exporter.Exporter, g *generator) error {
	if *sampleRate > 0 {
		rec := ipfix.NewDataRecord()
		rec.Set("exportingProcessId", ipfix.U32(1))
		rec.Set(flow.SamplingPacketInterval, ipfix.U32(*sampleRate))

		err := exp.Export(samplingOptionsID, []ipfix.DataRecord{rec})
		if err != nil {
			return errors.Wrap(err, "Unable to export sampling options")
		}
	}

	byTemplate := map[uint16][]ipfix.DataRecord{}
	for i := 0; i < *recordsPerMsg; i++ {
		fl := g.flow()
		if *dump {
			fl.Dump()
		}

		rec, err := fl.DataRecord()
		if err != nil {
			return err
		}

		id := uint16(ipv4TemplateID)
		if fl.Family == 6 {
			id = ipv6TemplateID
		}
		byTemplate[id] = append(byTemplate[id], rec)
	}

	for id, recs := range byTemplate {
		err := exp.Export(id, recs)
		if err != nil {
			return err
		}
	}

	return nil
}

type generator struct {
	rnd *rand.Rand
}

func newGenerator(rnd *rand.Rand) *generator {
	return &generator{
		rnd: rnd,
	}
}

func (g *generator) flow() *flow.Flow {
	fl := &flow.Flow{
		Protocol:   []uint8{6, 17, 1}[g.rnd.Intn(3)],
		SrcPort:    uint16(1024 + g.rnd.Intn(60000)),
		DstPort:    []uint16{53, 80, 443}[g.rnd.Intn(3)],
		IfIndexIn:  uint32(1 + g.rnd.Intn(8)),
		IfIndexOut: uint32(1 + g.rnd.Intn(8)),
		SrcAs:      64496 + uint32(g.rnd.Intn(16)),
		DstAs:      64496 + uint32(g.rnd.Intn(16)),
		Packets:    uint64(1 + g.rnd.Intn(100)),
		Timestamp:  time.Now().Unix(),
	}
	fl.Size = fl.Packets * uint64(64+g.rnd.Intn(1400))

	if g.rnd.Intn(4) == 0 {
		fl.Family = 6
		fl.SrcAddr = bnet.IPv6(0x20010db8_00000000, g.rnd.Uint64())
		fl.DstAddr = bnet.IPv6(0x20010db8_00010000, g.rnd.Uint64())
		fl.NextHop = bnet.IPv6(0x20010db8_0000ffff, 1)
		fl.SrcPfx = bnet.NewPfx(fl.SrcAddr, 48)
		fl.DstPfx = bnet.NewPfx(fl.DstAddr, 48)
		return fl
	}

	fl.Family = 4
	fl.SrcAddr = bnet.IPv4(0xc6336400 | uint32(g.rnd.Intn(256)))
	fl.DstAddr = bnet.IPv4(0xcb007100 | uint32(g.rnd.Intn(256)))
	fl.NextHop = bnet.IPv4(0xc00002fe)
	fl.SrcPfx = bnet.NewPfx(fl.SrcAddr, 24)
	fl.DstPfx = bnet.NewPfx(fl.DstAddr, 24)
	return fl
}
