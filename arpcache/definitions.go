package arpcache

import (
	"errors"
	"time"
)

const (
	// defaultEntryLifetime is how long a resolved ARP entry is trusted
	// before the sweeper evicts it.
	defaultEntryLifetime = 15 * time.Second
	// defaultRetryInterval is the cadence at which a pending request's ARP
	// Request is retransmitted.
	defaultRetryInterval = 1 * time.Second
	// defaultRetryCap is the number of retransmissions attempted before a
	// pending request is abandoned and its queued packets bounced with an
	// ICMP Host Unreachable.
	defaultRetryCap = 5

	hwTypeEthernet uint16 = 1
)

var (
	errNoTransport  = errors.New("arpcache: config has no transport")
	errNoIfaces     = errors.New("arpcache: config has no interface table")
	errUnknownIface = errors.New("arpcache: unknown outbound interface")
)

// Transport is the collaborator that actually puts a fully-built frame on
// the wire out of a named interface.
type Transport interface {
	Send(frame []byte, outIface string) error
}

// Metrics receives population and activity counters from a Cache.
// Config.Metrics may be left nil; the Cache treats a nil Metrics as
// "don't report."
type Metrics interface {
	SetResolvedCount(n int)
	SetPendingCount(n int)
	IncARPRequestSent()
	IncHostUnreachable()
}

// PendingPacket is a single outbound frame blocked on ARP resolution of its
// next hop. Frame is fully built except for the Ethernet destination
// address, which is filled in once the next hop resolves.
type PendingPacket struct {
	Frame    []byte
	OutIface string
	InIface  string
}

// PendingRequest tracks the retry state for ARP resolution of a single next
// hop IPv4 address, plus every packet queued awaiting that resolution.
type PendingRequest struct {
	IPv4      [4]byte
	OutIface  string
	SendCount int
	LastSent  time.Time
	Queue     []PendingPacket
}

type resolvedEntry struct {
	mac        [6]byte
	insertedAt time.Time
}
