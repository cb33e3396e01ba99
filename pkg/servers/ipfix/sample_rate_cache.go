package ipfix

import (
	"sync"

	bnet "github.com/bio-routing/bio-rd/net"
	"github.com/bio-routing/ipfixcodec/pkg/models/flow"
	"github.com/bio-routing/ipfixcodec/pkg/packet/ipfix"
)

// samplingElements are the options record fields announcing the sampling rate, by precedence
var samplingElements = []string{
	flow.SamplingPacketInterval,
	"samplerRandomInterval",
	flow.SamplingInterval,
}

type sampleRateCacheKey struct {
	agent               bnet.IP
	observationDomainID uint32
}

func newSampleRateCacheKey(agent bnet.IP, observationDomainID uint32) sampleRateCacheKey {
	return sampleRateCacheKey{
		agent:               agent,
		observationDomainID: observationDomainID,
	}
}

type sampleRateCache struct {
	data   map[sampleRateCacheKey]uint64
	dataMu sync.RWMutex
}

func newSampleRateCache() *sampleRateCache {
	return &sampleRateCache{
		data: make(map[sampleRateCacheKey]uint64),
	}
}

func (src *sampleRateCache) get(agent bnet.IP, observationDomainID uint32) uint64 {
	src.dataMu.RLock()
	defer src.dataMu.RUnlock()

	return src.data[newSampleRateCacheKey(agent, observationDomainID)]
}

func (src *sampleRateCache) set(agent bnet.IP, observationDomainID uint32, rate uint64) {
	src.dataMu.Lock()
	defer src.dataMu.Unlock()

	src.data[newSampleRateCacheKey(agent, observationDomainID)] = rate
}

// samplingRate extracts the sampling rate from an options data record
func samplingRate(rec *ipfix.DataRecord) (uint64, bool) {
	for _, name := range samplingElements {
		v, ok := rec.Get(name)
		if !ok {
			continue
		}

		rate, ok := flow.Unsigned(v)
		if ok && rate > 0 {
			return rate, true
		}
	}

	return 0, false
}
