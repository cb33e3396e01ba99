package ipfix

import (
	"sync"

	bnet "github.com/bio-routing/bio-rd/net"
	"github.com/bio-routing/ipfixcodec/pkg/packet/ipfix"
)

// TemplateStoreFactory creates the template registry of a new IPFIX session
type TemplateStoreFactory func() ipfix.TemplateStore

// NewSharedStore creates shared template stores. They are safe for any number of readers.
func NewSharedStore() ipfix.TemplateStore {
	return ipfix.NewSharedTemplateStore()
}

// NewExclusiveStore creates exclusive template stores. They are only safe with a single reader.
func NewExclusiveStore() ipfix.TemplateStore {
	return ipfix.NewExclusiveTemplateStore()
}

// templateCacheKey identifies an IPFIX session. Template IDs are scoped to the
// observation domain of an exporter (RFC 7011 section 8).
type templateCacheKey struct {
	agent             bnet.IP
	observationDomain uint32
}

func newTemplateCacheKey(agent bnet.IP, observationDomain uint32) templateCacheKey {
	return templateCacheKey{
		agent:             agent,
		observationDomain: observationDomain,
	}
}

type templateCache struct {
	newStore TemplateStoreFactory
	cache    map[templateCacheKey]ipfix.TemplateStore
	lock     sync.RWMutex
}

// newTemplateCache creates and initializes a new `templateCache` instance
func newTemplateCache(newStore TemplateStoreFactory) *templateCache {
	return &templateCache{
		newStore: newStore,
		cache:    make(map[templateCacheKey]ipfix.TemplateStore),
	}
}

// get returns the template store of a session, creating it on first use
func (c *templateCache) get(agent bnet.IP, domainID uint32) ipfix.TemplateStore {
	k := newTemplateCacheKey(agent, domainID)

	c.lock.RLock()
	s, found := c.cache[k]
	c.lock.RUnlock()
	if found {
		return s
	}

	c.lock.Lock()
	defer c.lock.Unlock()

	s, found = c.cache[k]
	if !found {
		s = c.newStore()
		c.cache[k] = s
	}

	return s
}

// sessions returns the number of known sessions
func (c *templateCache) sessions() int {
	c.lock.RLock()
	defer c.lock.RUnlock()

	return len(c.cache)
}
