package flow

import (
	bnet "github.com/bio-routing/bio-rd/net"
	"github.com/bio-routing/ipfixcodec/pkg/packet/ipfix"
	"github.com/pkg/errors"
)

// Information element names used for the mapping between flows and data records
const (
	OctetDeltaCount             = "octetDeltaCount"
	PacketDeltaCount            = "packetDeltaCount"
	ProtocolIdentifier          = "protocolIdentifier"
	IPClassOfService            = "ipClassOfService"
	SourceTransportPort         = "sourceTransportPort"
	DestinationTransportPort    = "destinationTransportPort"
	SourceIPv4Address           = "sourceIPv4Address"
	DestinationIPv4Address      = "destinationIPv4Address"
	SourceIPv4PrefixLength      = "sourceIPv4PrefixLength"
	DestinationIPv4PrefixLength = "destinationIPv4PrefixLength"
	IPNextHopIPv4Address        = "ipNextHopIPv4Address"
	SourceIPv6Address           = "sourceIPv6Address"
	DestinationIPv6Address      = "destinationIPv6Address"
	SourceIPv6PrefixLength      = "sourceIPv6PrefixLength"
	DestinationIPv6PrefixLength = "destinationIPv6PrefixLength"
	IPNextHopIPv6Address        = "ipNextHopIPv6Address"
	IngressInterface            = "ingressInterface"
	EgressInterface             = "egressInterface"
	BGPSourceAsNumber           = "bgpSourceAsNumber"
	BGPDestinationAsNumber      = "bgpDestinationAsNumber"
	IngressVRFID                = "ingressVRFID"
	EgressVRFID                 = "egressVRFID"
	FlowEndSeconds              = "flowEndSeconds"
	FlowEndMilliseconds         = "flowEndMilliseconds"
	SamplingInterval            = "samplingInterval"
	SamplingPacketInterval      = "samplingPacketInterval"
)

type templateField struct {
	id     uint16
	length uint16
	name   string
}

var ipv4Fields = []templateField{
	{8, 4, SourceIPv4Address},
	{12, 4, DestinationIPv4Address},
	{15, 4, IPNextHopIPv4Address},
	{9, 1, SourceIPv4PrefixLength},
	{13, 1, DestinationIPv4PrefixLength},
}

var ipv6Fields = []templateField{
	{27, 16, SourceIPv6Address},
	{28, 16, DestinationIPv6Address},
	{62, 16, IPNextHopIPv6Address},
	{29, 1, SourceIPv6PrefixLength},
	{30, 1, DestinationIPv6PrefixLength},
}

var commonFields = []templateField{
	{4, 1, ProtocolIdentifier},
	{5, 1, IPClassOfService},
	{7, 2, SourceTransportPort},
	{11, 2, DestinationTransportPort},
	{10, 4, IngressInterface},
	{14, 4, EgressInterface},
	{16, 4, BGPSourceAsNumber},
	{17, 4, BGPDestinationAsNumber},
	{234, 4, IngressVRFID},
	{235, 4, EgressVRFID},
	{2, 8, PacketDeltaCount},
	{1, 8, OctetDeltaCount},
	{151, 4, FlowEndSeconds},
}

func fields(family uint8) ([]templateField, error) {
	switch family {
	case 4:
		return append(append([]templateField{}, ipv4Fields...), commonFields...), nil
	case 6:
		return append(append([]templateField{}, ipv6Fields...), commonFields...), nil
	}

	return nil, errors.Errorf("unsupported address family %d", family)
}

// Template returns the template record flows of the given address family are exported with
func Template(templateID uint16, family uint8) (ipfix.TemplateRecord, error) {
	f, err := fields(family)
	if err != nil {
		return ipfix.TemplateRecord{}, err
	}

	specs := make([]ipfix.FieldSpecifier, len(f))
	for i := range f {
		specs[i] = ipfix.NewFieldSpecifier(f[i].id, f[i].length)
	}

	return ipfix.TemplateRecord{
		TemplateID:      templateID,
		FieldSpecifiers: specs,
	}, nil
}

// DataRecord converts the flow into a data record matching Template(_, fl.Family)
func (fl *Flow) DataRecord() (ipfix.DataRecord, error) {
	rec := ipfix.NewDataRecord()

	switch fl.Family {
	case 4:
		rec.Set(SourceIPv4Address, ipv4Address(fl.SrcAddr))
		rec.Set(DestinationIPv4Address, ipv4Address(fl.DstAddr))
		rec.Set(IPNextHopIPv4Address, ipv4Address(fl.NextHop))
		rec.Set(SourceIPv4PrefixLength, ipfix.U8(fl.SrcPfx.Pfxlen()))
		rec.Set(DestinationIPv4PrefixLength, ipfix.U8(fl.DstPfx.Pfxlen()))
	case 6:
		rec.Set(SourceIPv6Address, ipfix.IPv6Address(fl.SrcAddr))
		rec.Set(DestinationIPv6Address, ipfix.IPv6Address(fl.DstAddr))
		rec.Set(IPNextHopIPv6Address, ipfix.IPv6Address(fl.NextHop))
		rec.Set(SourceIPv6PrefixLength, ipfix.U8(fl.SrcPfx.Pfxlen()))
		rec.Set(DestinationIPv6PrefixLength, ipfix.U8(fl.DstPfx.Pfxlen()))
	default:
		return ipfix.DataRecord{}, errors.Errorf("unsupported address family %d", fl.Family)
	}

	rec.Set(ProtocolIdentifier, ipfix.U8(fl.Protocol))
	rec.Set(IPClassOfService, ipfix.U8(fl.TOS))
	rec.Set(SourceTransportPort, ipfix.U16(fl.SrcPort))
	rec.Set(DestinationTransportPort, ipfix.U16(fl.DstPort))
	rec.Set(IngressInterface, ipfix.U32(fl.IfIndexIn))
	rec.Set(EgressInterface, ipfix.U32(fl.IfIndexOut))
	rec.Set(BGPSourceAsNumber, ipfix.U32(fl.SrcAs))
	rec.Set(BGPDestinationAsNumber, ipfix.U32(fl.DstAs))
	rec.Set(IngressVRFID, ipfix.U32(fl.VRFIn))
	rec.Set(EgressVRFID, ipfix.U32(fl.VRFOut))
	rec.Set(PacketDeltaCount, ipfix.U64(fl.Packets))
	rec.Set(OctetDeltaCount, ipfix.U64(fl.Size))
	rec.Set(FlowEndSeconds, ipfix.DateTimeSeconds(fl.Timestamp))

	return rec, nil
}

// FromDataRecord creates a flow from a data record. Fields missing in the record are
// left zero, the timestamp defaults to the export time of the message.
func FromDataRecord(agent bnet.IP, observationDomainID uint32, exportTime uint32, rec *ipfix.DataRecord) *Flow {
	fl := &Flow{
		Agent:               agent,
		ObservationDomainID: observationDomainID,
		Timestamp:           int64(exportTime),
	}

	r := record{rec}
	if addr, ok := r.address(SourceIPv4Address); ok {
		fl.Family = 4
		fl.SrcAddr = addr
		fl.DstAddr, _ = r.address(DestinationIPv4Address)
		fl.NextHop, _ = r.address(IPNextHopIPv4Address)
		fl.SrcPfx = prefix(fl.SrcAddr, r, SourceIPv4PrefixLength)
		fl.DstPfx = prefix(fl.DstAddr, r, DestinationIPv4PrefixLength)
	} else if addr, ok := r.address(SourceIPv6Address); ok {
		fl.Family = 6
		fl.SrcAddr = addr
		fl.DstAddr, _ = r.address(DestinationIPv6Address)
		fl.NextHop, _ = r.address(IPNextHopIPv6Address)
		fl.SrcPfx = prefix(fl.SrcAddr, r, SourceIPv6PrefixLength)
		fl.DstPfx = prefix(fl.DstAddr, r, DestinationIPv6PrefixLength)
	}

	fl.Protocol = uint8(r.uint(ProtocolIdentifier))
	fl.TOS = uint8(r.uint(IPClassOfService))
	fl.SrcPort = uint16(r.uint(SourceTransportPort))
	fl.DstPort = uint16(r.uint(DestinationTransportPort))
	fl.IfIndexIn = uint32(r.uint(IngressInterface))
	fl.IfIndexOut = uint32(r.uint(EgressInterface))
	fl.SrcAs = uint32(r.uint(BGPSourceAsNumber))
	fl.DstAs = uint32(r.uint(BGPDestinationAsNumber))
	fl.VRFIn = uint32(r.uint(IngressVRFID))
	fl.VRFOut = uint32(r.uint(EgressVRFID))
	fl.Packets = r.uint(PacketDeltaCount)
	fl.Size = r.uint(OctetDeltaCount)
	fl.Samplerate = r.uint(SamplingPacketInterval)
	if fl.Samplerate == 0 {
		fl.Samplerate = r.uint(SamplingInterval)
	}

	if v, ok := rec.Get(FlowEndSeconds); ok {
		if ts, ok := v.(ipfix.DateTimeSeconds); ok {
			fl.Timestamp = int64(ts)
		}
	} else if v, ok := rec.Get(FlowEndMilliseconds); ok {
		if ts, ok := v.(ipfix.DateTimeMilliseconds); ok {
			fl.Timestamp = int64(ts / 1000)
		}
	}

	return fl
}

// ipv4Address maps the unset address onto 0.0.0.0
func ipv4Address(ip bnet.IP) ipfix.IPv4Address {
	if ip == (bnet.IP{}) {
		return ipfix.IPv4Address(bnet.IPv4(0))
	}

	return ipfix.IPv4Address(ip)
}

type record struct {
	*ipfix.DataRecord
}

// uint returns the value of an unsigned field of any width, 0 if absent
func (r record) uint(name string) uint64 {
	v, ok := r.Get(name)
	if !ok {
		return 0
	}

	x, _ := Unsigned(v)
	return x
}

func (r record) address(name string) (bnet.IP, bool) {
	v, ok := r.Get(name)
	if !ok {
		return bnet.IP{}, false
	}

	switch x := v.(type) {
	case ipfix.IPv4Address:
		return bnet.IP(x), true
	case ipfix.IPv6Address:
		return bnet.IP(x), true
	}

	return bnet.IP{}, false
}

func prefix(addr bnet.IP, r record, lengthField string) bnet.Prefix {
	v, ok := r.Get(lengthField)
	if !ok {
		return bnet.Prefix{}
	}

	l, _ := Unsigned(v)
	p := bnet.NewPfx(addr, uint8(l))
	return bnet.NewPfx(*p.BaseAddr(), uint8(l))
}

// Unsigned returns the value of unsigned integers of any width
func Unsigned(v ipfix.DataRecordValue) (uint64, bool) {
	switch x := v.(type) {
	case ipfix.U8:
		return uint64(x), true
	case ipfix.U16:
		return uint64(x), true
	case ipfix.U32:
		return uint64(x), true
	case ipfix.U40:
		return uint64(x), true
	case ipfix.U64:
		return uint64(x), true
	}

	return 0, false
}
