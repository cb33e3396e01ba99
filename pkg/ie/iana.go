package ie

import "github.com/bio-routing/ipfixcodec/pkg/packet/ipfix"

// ianaElements is the subset of the IANA IPFIX registry known without definition files
var ianaElements = []Element{
	{ID: 1, Name: "octetDeltaCount", Type: ipfix.TypeUnsigned},
	{ID: 2, Name: "packetDeltaCount", Type: ipfix.TypeUnsigned},
	{ID: 3, Name: "deltaFlowCount", Type: ipfix.TypeUnsigned},
	{ID: 4, Name: "protocolIdentifier", Type: ipfix.TypeUnsigned},
	{ID: 5, Name: "ipClassOfService", Type: ipfix.TypeUnsigned},
	{ID: 6, Name: "tcpControlBits", Type: ipfix.TypeUnsigned},
	{ID: 7, Name: "sourceTransportPort", Type: ipfix.TypeUnsigned},
	{ID: 8, Name: "sourceIPv4Address", Type: ipfix.TypeIPv4Address},
	{ID: 9, Name: "sourceIPv4PrefixLength", Type: ipfix.TypeUnsigned},
	{ID: 10, Name: "ingressInterface", Type: ipfix.TypeUnsigned},
	{ID: 11, Name: "destinationTransportPort", Type: ipfix.TypeUnsigned},
	{ID: 12, Name: "destinationIPv4Address", Type: ipfix.TypeIPv4Address},
	{ID: 13, Name: "destinationIPv4PrefixLength", Type: ipfix.TypeUnsigned},
	{ID: 14, Name: "egressInterface", Type: ipfix.TypeUnsigned},
	{ID: 15, Name: "ipNextHopIPv4Address", Type: ipfix.TypeIPv4Address},
	{ID: 16, Name: "bgpSourceAsNumber", Type: ipfix.TypeUnsigned},
	{ID: 17, Name: "bgpDestinationAsNumber", Type: ipfix.TypeUnsigned},
	{ID: 18, Name: "bgpNextHopIPv4Address", Type: ipfix.TypeIPv4Address},
	{ID: 19, Name: "postMCastPacketDeltaCount", Type: ipfix.TypeUnsigned},
	{ID: 20, Name: "postMCastOctetDeltaCount", Type: ipfix.TypeUnsigned},
	{ID: 21, Name: "flowEndSysUpTime", Type: ipfix.TypeUnsigned},
	{ID: 22, Name: "flowStartSysUpTime", Type: ipfix.TypeUnsigned},
	{ID: 23, Name: "postOctetDeltaCount", Type: ipfix.TypeUnsigned},
	{ID: 24, Name: "postPacketDeltaCount", Type: ipfix.TypeUnsigned},
	{ID: 25, Name: "minimumIpTotalLength", Type: ipfix.TypeUnsigned},
	{ID: 26, Name: "maximumIpTotalLength", Type: ipfix.TypeUnsigned},
	{ID: 27, Name: "sourceIPv6Address", Type: ipfix.TypeIPv6Address},
	{ID: 28, Name: "destinationIPv6Address", Type: ipfix.TypeIPv6Address},
	{ID: 29, Name: "sourceIPv6PrefixLength", Type: ipfix.TypeUnsigned},
	{ID: 30, Name: "destinationIPv6PrefixLength", Type: ipfix.TypeUnsigned},
	{ID: 31, Name: "flowLabelIPv6", Type: ipfix.TypeUnsigned},
	{ID: 32, Name: "icmpTypeCodeIPv4", Type: ipfix.TypeUnsigned},
	{ID: 33, Name: "igmpType", Type: ipfix.TypeUnsigned},
	{ID: 34, Name: "samplingInterval", Type: ipfix.TypeUnsigned},
	{ID: 35, Name: "samplingAlgorithm", Type: ipfix.TypeUnsigned},
	{ID: 36, Name: "flowActiveTimeout", Type: ipfix.TypeUnsigned},
	{ID: 37, Name: "flowIdleTimeout", Type: ipfix.TypeUnsigned},
	{ID: 38, Name: "engineType", Type: ipfix.TypeUnsigned},
	{ID: 39, Name: "engineId", Type: ipfix.TypeUnsigned},
	{ID: 40, Name: "exportedOctetTotalCount", Type: ipfix.TypeUnsigned},
	{ID: 41, Name: "exportedMessageTotalCount", Type: ipfix.TypeUnsigned},
	{ID: 42, Name: "exportedFlowRecordTotalCount", Type: ipfix.TypeUnsigned},
	{ID: 44, Name: "sourceIPv4Prefix", Type: ipfix.TypeIPv4Address},
	{ID: 45, Name: "destinationIPv4Prefix", Type: ipfix.TypeIPv4Address},
	{ID: 46, Name: "mplsTopLabelType", Type: ipfix.TypeUnsigned},
	{ID: 47, Name: "mplsTopLabelIPv4Address", Type: ipfix.TypeIPv4Address},
	{ID: 48, Name: "samplerId", Type: ipfix.TypeUnsigned},
	{ID: 49, Name: "samplerMode", Type: ipfix.TypeUnsigned},
	{ID: 50, Name: "samplerRandomInterval", Type: ipfix.TypeUnsigned},
	{ID: 52, Name: "minimumTTL", Type: ipfix.TypeUnsigned},
	{ID: 53, Name: "maximumTTL", Type: ipfix.TypeUnsigned},
	{ID: 54, Name: "fragmentIdentification", Type: ipfix.TypeUnsigned},
	{ID: 55, Name: "postIpClassOfService", Type: ipfix.TypeUnsigned},
	{ID: 56, Name: "sourceMacAddress", Type: ipfix.TypeMacAddress},
	{ID: 57, Name: "postDestinationMacAddress", Type: ipfix.TypeMacAddress},
	{ID: 58, Name: "vlanId", Type: ipfix.TypeUnsigned},
	{ID: 59, Name: "postVlanId", Type: ipfix.TypeUnsigned},
	{ID: 60, Name: "ipVersion", Type: ipfix.TypeUnsigned},
	{ID: 61, Name: "flowDirection", Type: ipfix.TypeUnsigned},
	{ID: 62, Name: "ipNextHopIPv6Address", Type: ipfix.TypeIPv6Address},
	{ID: 63, Name: "bgpNextHopIPv6Address", Type: ipfix.TypeIPv6Address},
	{ID: 64, Name: "ipv6ExtensionHeaders", Type: ipfix.TypeUnsigned},
	{ID: 70, Name: "mplsTopLabelStackSection", Type: ipfix.TypeBytes},
	{ID: 80, Name: "destinationMacAddress", Type: ipfix.TypeMacAddress},
	{ID: 81, Name: "postSourceMacAddress", Type: ipfix.TypeMacAddress},
	{ID: 82, Name: "interfaceName", Type: ipfix.TypeString},
	{ID: 83, Name: "interfaceDescription", Type: ipfix.TypeString},
	{ID: 85, Name: "octetTotalCount", Type: ipfix.TypeUnsigned},
	{ID: 86, Name: "packetTotalCount", Type: ipfix.TypeUnsigned},
	{ID: 88, Name: "fragmentOffset", Type: ipfix.TypeUnsigned},
	{ID: 89, Name: "forwardingStatus", Type: ipfix.TypeUnsigned},
	{ID: 94, Name: "applicationDescription", Type: ipfix.TypeString},
	{ID: 95, Name: "applicationId", Type: ipfix.TypeBytes},
	{ID: 96, Name: "applicationName", Type: ipfix.TypeString},
	{ID: 130, Name: "exporterIPv4Address", Type: ipfix.TypeIPv4Address},
	{ID: 131, Name: "exporterIPv6Address", Type: ipfix.TypeIPv6Address},
	{ID: 136, Name: "flowEndReason", Type: ipfix.TypeUnsigned},
	{ID: 137, Name: "commonPropertiesId", Type: ipfix.TypeUnsigned},
	{ID: 138, Name: "observationPointId", Type: ipfix.TypeUnsigned},
	{ID: 139, Name: "icmpTypeCodeIPv6", Type: ipfix.TypeUnsigned},
	{ID: 144, Name: "exportingProcessId", Type: ipfix.TypeUnsigned},
	{ID: 145, Name: "templateId", Type: ipfix.TypeUnsigned},
	{ID: 148, Name: "flowId", Type: ipfix.TypeUnsigned},
	{ID: 149, Name: "observationDomainId", Type: ipfix.TypeUnsigned},
	{ID: 150, Name: "flowStartSeconds", Type: ipfix.TypeDateTimeSeconds},
	{ID: 151, Name: "flowEndSeconds", Type: ipfix.TypeDateTimeSeconds},
	{ID: 152, Name: "flowStartMilliseconds", Type: ipfix.TypeDateTimeMilliseconds},
	{ID: 153, Name: "flowEndMilliseconds", Type: ipfix.TypeDateTimeMilliseconds},
	{ID: 154, Name: "flowStartMicroseconds", Type: ipfix.TypeDateTimeMicroseconds},
	{ID: 155, Name: "flowEndMicroseconds", Type: ipfix.TypeDateTimeMicroseconds},
	{ID: 156, Name: "flowStartNanoseconds", Type: ipfix.TypeDateTimeNanoseconds},
	{ID: 157, Name: "flowEndNanoseconds", Type: ipfix.TypeDateTimeNanoseconds},
	{ID: 160, Name: "systemInitTimeMilliseconds", Type: ipfix.TypeDateTimeMilliseconds},
	{ID: 161, Name: "flowDurationMilliseconds", Type: ipfix.TypeUnsigned},
	{ID: 163, Name: "observedFlowTotalCount", Type: ipfix.TypeUnsigned},
	{ID: 164, Name: "ignoredPacketTotalCount", Type: ipfix.TypeUnsigned},
	{ID: 165, Name: "ignoredOctetTotalCount", Type: ipfix.TypeUnsigned},
	{ID: 166, Name: "notSentFlowTotalCount", Type: ipfix.TypeUnsigned},
	{ID: 167, Name: "notSentPacketTotalCount", Type: ipfix.TypeUnsigned},
	{ID: 168, Name: "notSentOctetTotalCount", Type: ipfix.TypeUnsigned},
	{ID: 173, Name: "flowKeyIndicator", Type: ipfix.TypeUnsigned},
	{ID: 176, Name: "icmpTypeIPv4", Type: ipfix.TypeUnsigned},
	{ID: 177, Name: "icmpCodeIPv4", Type: ipfix.TypeUnsigned},
	{ID: 178, Name: "icmpTypeIPv6", Type: ipfix.TypeUnsigned},
	{ID: 179, Name: "icmpCodeIPv6", Type: ipfix.TypeUnsigned},
	{ID: 192, Name: "ipTTL", Type: ipfix.TypeUnsigned},
	{ID: 210, Name: "paddingOctets", Type: ipfix.TypeBytes},
	{ID: 211, Name: "collectorIPv4Address", Type: ipfix.TypeIPv4Address},
	{ID: 212, Name: "collectorIPv6Address", Type: ipfix.TypeIPv6Address},
	{ID: 213, Name: "exportInterface", Type: ipfix.TypeUnsigned},
	{ID: 214, Name: "exportProtocolVersion", Type: ipfix.TypeUnsigned},
	{ID: 215, Name: "exportTransportProtocol", Type: ipfix.TypeUnsigned},
	{ID: 216, Name: "collectorTransportPort", Type: ipfix.TypeUnsigned},
	{ID: 217, Name: "exporterTransportPort", Type: ipfix.TypeUnsigned},
	{ID: 225, Name: "postNATSourceIPv4Address", Type: ipfix.TypeIPv4Address},
	{ID: 226, Name: "postNATDestinationIPv4Address", Type: ipfix.TypeIPv4Address},
	{ID: 227, Name: "postNAPTSourceTransportPort", Type: ipfix.TypeUnsigned},
	{ID: 228, Name: "postNAPTDestinationTransportPort", Type: ipfix.TypeUnsigned},
	{ID: 234, Name: "ingressVRFID", Type: ipfix.TypeUnsigned},
	{ID: 235, Name: "egressVRFID", Type: ipfix.TypeUnsigned},
	{ID: 239, Name: "biflowDirection", Type: ipfix.TypeUnsigned},
	{ID: 243, Name: "dot1qVlanId", Type: ipfix.TypeUnsigned},
	{ID: 252, Name: "ingressPhysicalInterface", Type: ipfix.TypeUnsigned},
	{ID: 253, Name: "egressPhysicalInterface", Type: ipfix.TypeUnsigned},
	{ID: 302, Name: "selectorId", Type: ipfix.TypeUnsigned},
	{ID: 304, Name: "selectorAlgorithm", Type: ipfix.TypeUnsigned},
	{ID: 305, Name: "samplingPacketInterval", Type: ipfix.TypeUnsigned},
	{ID: 306, Name: "samplingPacketSpace", Type: ipfix.TypeUnsigned},
	{ID: 322, Name: "observationTimeSeconds", Type: ipfix.TypeDateTimeSeconds},
	{ID: 323, Name: "observationTimeMilliseconds", Type: ipfix.TypeDateTimeMilliseconds},
	{ID: 324, Name: "observationTimeMicroseconds", Type: ipfix.TypeDateTimeMicroseconds},
	{ID: 325, Name: "observationTimeNanoseconds", Type: ipfix.TypeDateTimeNanoseconds},
	{ID: 352, Name: "layer2OctetDeltaCount", Type: ipfix.TypeUnsigned},
}
