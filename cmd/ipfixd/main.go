package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/bio-routing/ipfixcodec/cmd/ipfixd/config"
	"github.com/bio-routing/ipfixcodec/pkg/collector"
	"github.com/bio-routing/ipfixcodec/pkg/ie"
	"github.com/bio-routing/ipfixcodec/pkg/servers/ipfix"
	"github.com/prometheus/client_golang/prometheus"

	log "github.com/sirupsen/logrus"
)

var (
	configFilePath = flag.String("config.file", "config.yaml", "Config file path (YAML)")
	debug          = flag.Bool("debug", false, "Enable debug logging")
)

func main() {
	flag.Parse()

	if *debug {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.GetConfig(*configFilePath)
	if err != nil {
		log.WithError(err).Fatal("Unable to get config")
	}

	registry := ie.New()
	if cfg.InformationElems != "" {
		err := registry.LoadFile(cfg.InformationElems)
		if err != nil {
			log.WithError(err).Fatal("Unable to load information elements")
		}
	}
	log.WithField("elements", registry.Len()).Info("Information element registry ready")

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	c, err := collector.New(&collector.Config{
		Server: ipfix.Config{
			Listen:            cfg.ListenIPFIX,
			NumReaders:        cfg.Readers,
			Exclusive:         cfg.Exclusive(),
			Resolver:          registry,
			AggregationWindow: cfg.AggregationWindow,
		},
		ChCfg:      cfg.Clickhouse,
		KafkaCfg:   cfg.Kafka,
		SNMP:       cfg.SNMP,
		Agents:     cfg.GetAgents(),
		Discover:   cfg.DiscoverAgents,
		ListenHTTP: cfg.ListenHTTP,
		Registry:   reg,
	})
	if err != nil {
		log.WithError(err).Fatal("Unable to start collector")
	}

	log.WithFields(log.Fields{
		"address":   cfg.ListenIPFIX,
		"readers":   cfg.Readers,
		"templates": cfg.Templates,
	}).Info("Listening for IPFIX messages")

	go c.Run()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	c.Stop()
	log.Info("Collector stopped")
}
