package intfmapper

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"
	"github.com/pkg/errors"

	bnet "github.com/bio-routing/bio-rd/net"
	log "github.com/sirupsen/logrus"
)

const (
	ifNameOID      = "1.3.6.1.2.1.31.1.1.1.1"
	snmpPort       = 161
	defaultTimeout = time.Second * 30
)

// walkFunc fetches the interface table of a device
type walkFunc func(addr bnet.IP, cfg *SNMPConfig) ([]*netIf, error)

type device struct {
	addr             bnet.IP
	snmpCfg          *SNMPConfig
	walk             walkFunc
	interval         time.Duration
	interfacesByID   map[uint32]*netIf
	interfacesByName map[string]*netIf
	interfacesMu     sync.RWMutex
	stopCh           chan struct{}
	wg               sync.WaitGroup
}

func newDevice(addr bnet.IP, snmpCfg *SNMPConfig, walk walkFunc, interval time.Duration) *device {
	return &device{
		addr:             addr,
		snmpCfg:          snmpCfg,
		walk:             walk,
		interval:         interval,
		interfacesByID:   make(map[uint32]*netIf),
		interfacesByName: make(map[string]*netIf),
		stopCh:           make(chan struct{}),
	}
}

func (d *device) update(interfaces []*netIf) {
	interfacesByID := make(map[uint32]*netIf)
	interfacesByName := make(map[string]*netIf)
	for _, ifa := range interfaces {
		interfacesByID[ifa.id] = ifa
		interfacesByName[ifa.name] = ifa
	}

	d.interfacesMu.Lock()
	defer d.interfacesMu.Unlock()

	d.interfacesByID = interfacesByID
	d.interfacesByName = interfacesByName
}

type netIf struct {
	id   uint32
	name string
}

func (d *device) startCollector() {
	d.wg.Add(1)
	go d.collector()
}

func (d *device) stop() {
	close(d.stopCh)
	d.wg.Wait()
}

func (d *device) collector() {
	defer d.wg.Done()

	t := time.NewTicker(d.interval)
	defer t.Stop()

	for {
		err := d.collect()
		if err != nil {
			log.WithError(err).WithField("device", d.addr.String()).Warning("Collecting failed")
		}

		select {
		case <-d.stopCh:
			return
		case <-t.C:
		}
	}
}

func (d *device) collect() error {
	interfaces, err := d.walk(d.addr, d.snmpCfg)
	if err != nil {
		return err
	}

	d.update(interfaces)
	return nil
}

func (d *device) resolve(ifID uint32) string {
	d.interfacesMu.RLock()
	defer d.interfacesMu.RUnlock()

	if _, exists := d.interfacesByID[ifID]; !exists {
		return ""
	}

	return d.interfacesByID[ifID].name
}

func (d *device) id(name string) (uint32, bool) {
	d.interfacesMu.RLock()
	defer d.interfacesMu.RUnlock()

	ifa, exists := d.interfacesByName[name]
	if !exists {
		return 0, false
	}

	return ifa.id, true
}

func newSNMPClient(addr bnet.IP, cfg *SNMPConfig) *gosnmp.GoSNMP {
	s := &gosnmp.GoSNMP{
		Target:                  addr.String(),
		Port:                    cfg.Port,
		Community:               cfg.Community,
		Version:                 gosnmp.Version2c,
		Timeout:                 cfg.Timeout,
		Retries:                 0,
		ExponentialTimeout:      false,
		UseUnconnectedUDPSocket: true,
	}

	if cfg.Version == 3 {
		s.Community = ""
		s.Version = gosnmp.Version3
		s.SecurityModel = gosnmp.UserSecurityModel
		s.MsgFlags = gosnmp.AuthPriv
		s.SecurityParameters = &gosnmp.UsmSecurityParameters{
			UserName:                 cfg.User,
			AuthenticationProtocol:   gosnmp.SHA,
			AuthenticationPassphrase: cfg.AuthPassphrase,
			PrivacyProtocol:          gosnmp.AES,
			PrivacyPassphrase:        cfg.PrivacyPassphrase,
		}
	}

	return s
}

// snmpWalk walks the ifName column of IF-MIB
func snmpWalk(addr bnet.IP, cfg *SNMPConfig) ([]*netIf, error) {
	s := newSNMPClient(addr, cfg)

	err := s.Connect()
	if err != nil {
		return nil, errors.Wrap(err, "Unable to connect")
	}

	defer s.Conn.Close()

	interfaces := make([]*netIf, 0)
	err = s.BulkWalk(ifNameOID, func(pdu gosnmp.SnmpPDU) error {
		ifa, err := pduToInterface(pdu)
		if err != nil {
			return err
		}

		interfaces = append(interfaces, ifa)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "BulkWalk failed for "+addr.String())
	}

	return interfaces, nil
}

func pduToInterface(pdu gosnmp.SnmpPDU) (*netIf, error) {
	oid := strings.Split(pdu.Name, ".")
	id, err := strconv.ParseUint(oid[len(oid)-1], 10, 32)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to convert interface id")
	}

	if pdu.Type != gosnmp.OctetString {
		return nil, errors.Errorf("Unexpected PDU type: %d", pdu.Type)
	}

	name, ok := pdu.Value.([]byte)
	if !ok {
		return nil, errors.Errorf("Unexpected value type %T", pdu.Value)
	}

	return &netIf{
		id:   uint32(id),
		name: string(name),
	}, nil
}
