package router

import "errors"

// Sentinel errors returned by Receive for logging and test introspection.
// Receive returns nil once a frame has been handled to completion (a reply
// sent, a packet forwarded or queued awaiting ARP resolution); the transport
// calling Receive has no decision to make off these, they exist for
// errors.Is-based logging and tests.
var (
	ErrShortFrame        = errors.New("router: frame shorter than an ethernet header")
	ErrBadChecksum       = errors.New("router: IPv4 header or ICMP checksum mismatch")
	ErrUnknownEtherType  = errors.New("router: unrecognized ethernet type")
	ErrUnknownIPProtocol = errors.New("router: unsupported IP protocol")
	ErrUnknownARPOpcode  = errors.New("router: unrecognized ARP opcode")
	ErrNoRoute           = errors.New("router: no matching route")
	ErrTTLExpired        = errors.New("router: TTL expired in transit")
	ErrUnknownInterface  = errors.New("router: unknown inbound interface")
)
