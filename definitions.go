// Package vrouter provides the wire-level primitives shared by the protocol
// codecs in its subpackages (ethernet, arp, ipv4, ipv4/icmpv4): the Internet
// checksum accumulator and a structural-validation error accumulator, plus
// the IP protocol-number enumeration used to dispatch on IPv4's protocol
// field.
package vrouter

//go:generate stringer -type=IPProto -linecomment -output stringers.go .

// IPProto represents the IP protocol number carried in the IPv4 header's
// Protocol field.
type IPProto uint8

// IP protocol numbers relevant to this router; unknown values are passed
// through untouched so callers can still log/compare them.
const (
	IPProtoICMP IPProto = 1  // ICMP
	IPProtoTCP  IPProto = 6  // TCP
	IPProtoUDP  IPProto = 17 // UDP
)

func (p IPProto) String() string {
	switch p {
	case IPProtoICMP:
		return "ICMP"
	case IPProtoTCP:
		return "TCP"
	case IPProtoUDP:
		return "UDP"
	default:
		return "unknown"
	}
}
