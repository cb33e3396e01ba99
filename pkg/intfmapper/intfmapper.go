package intfmapper

import (
	"sync"
	"time"

	bnet "github.com/bio-routing/bio-rd/net"
)

// DefaultInterval is the interval interface tables are refreshed in
const DefaultInterval = time.Minute * 2

// SNMPConfig holds the credentials used to query devices
type SNMPConfig struct {
	Version           uint8         `yaml:"version"`
	Community         string        `yaml:"community"`
	User              string        `yaml:"user"`
	AuthPassphrase    string        `yaml:"auth_passphrase"`
	PrivacyPassphrase string        `yaml:"privacy_passphrase"`
	Port              uint16        `yaml:"port"`
	Timeout           time.Duration `yaml:"timeout"`
}

func (c *SNMPConfig) withDefaults() *SNMPConfig {
	x := *c
	if x.Port == 0 {
		x.Port = snmpPort
	}

	if x.Timeout == 0 {
		x.Timeout = defaultTimeout
	}

	return &x
}

// IntfMapper maps interface indices of flow exporters to interface names
type IntfMapper struct {
	snmpCfg   *SNMPConfig
	interval  time.Duration
	walk      walkFunc
	devices   map[bnet.IP]*device
	devicesMu sync.RWMutex

	// discover adds unknown agents on first resolution
	discover bool
}

// New creates a new IntfMapper. With discover set, every agent passed to Resolve is
// queried, otherwise only devices added by AddDevice are.
func New(snmpCfg *SNMPConfig, interval time.Duration, discover bool) *IntfMapper {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &IntfMapper{
		snmpCfg:  snmpCfg.withDefaults(),
		interval: interval,
		walk:     snmpWalk,
		devices:  make(map[bnet.IP]*device),
		discover: discover,
	}
}

// AddDevice starts polling the interface table of a device
func (im *IntfMapper) AddDevice(addr bnet.IP) {
	im.devicesMu.Lock()
	defer im.devicesMu.Unlock()

	im.addDevice(addr)
}

func (im *IntfMapper) addDevice(addr bnet.IP) *device {
	if d, exists := im.devices[addr]; exists {
		return d
	}

	d := newDevice(addr, im.snmpCfg, im.walk, im.interval)
	im.devices[addr] = d
	d.startCollector()

	return d
}

func (im *IntfMapper) getDevice(addr bnet.IP) *device {
	im.devicesMu.RLock()
	d, exists := im.devices[addr]
	im.devicesMu.RUnlock()
	if exists || !im.discover {
		return d
	}

	im.devicesMu.Lock()
	defer im.devicesMu.Unlock()

	return im.addDevice(addr)
}

// Resolve gets the name of an interface. Unknown interfaces resolve to "".
func (im *IntfMapper) Resolve(agent bnet.IP, ifID uint32) string {
	d := im.getDevice(agent)
	if d == nil {
		return ""
	}

	return d.resolve(ifID)
}

// GetIDByName gets an interfaces ID by its name
func (im *IntfMapper) GetIDByName(agent bnet.IP, ifName string) uint32 {
	im.devicesMu.RLock()
	d, exists := im.devices[agent]
	im.devicesMu.RUnlock()
	if !exists {
		return 0
	}

	id, _ := d.id(ifName)
	return id
}

// Stop stops polling all devices
func (im *IntfMapper) Stop() {
	im.devicesMu.Lock()
	defer im.devicesMu.Unlock()

	for addr, d := range im.devices {
		d.stop()
		delete(im.devices, addr)
	}
}
