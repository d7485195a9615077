package arpcache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nikita-sh/vrouter/arp"
	"github.com/nikita-sh/vrouter/ethernet"
	"github.com/nikita-sh/vrouter/iface"
)

// Config configures a Cache.
type Config struct {
	Ifaces        iface.Table
	Transport     Transport
	Metrics       Metrics
	Logger        *slog.Logger
	EntryLifetime time.Duration // default 15s
	RetryCap      int           // default 5
	RetryInterval time.Duration // default 1s
}

// Cache holds ARP resolution state for the router: a table of resolved
// IPv4→MAC entries and a table of pending requests awaiting resolution,
// each with its own queue of blocked outbound frames. A single mutex
// guards both tables; it is never held while calling out to Transport.Send,
// so a slow or blocking transport cannot stall lookups from the receive
// path.
type Cache struct {
	mu       sync.Mutex
	resolved map[[4]byte]resolvedEntry
	pending  map[[4]byte]*PendingRequest

	ifaces        iface.Table
	transport     Transport
	metrics       Metrics
	entryLifetime time.Duration
	retryCap      int
	retryBackoff  backoff.BackOff
	logger
}

// NewCache constructs a Cache from cfg, applying defaults for zero-valued
// tuning fields.
func NewCache(cfg Config) (*Cache, error) {
	if cfg.Transport == nil {
		return nil, errNoTransport
	}
	if len(cfg.Ifaces.All()) == 0 {
		return nil, errNoIfaces
	}
	entryLifetime := cfg.EntryLifetime
	if entryLifetime <= 0 {
		entryLifetime = defaultEntryLifetime
	}
	retryCap := cfg.RetryCap
	if retryCap <= 0 {
		retryCap = defaultRetryCap
	}
	retryInterval := cfg.RetryInterval
	if retryInterval <= 0 {
		retryInterval = defaultRetryInterval
	}
	return &Cache{
		resolved:      make(map[[4]byte]resolvedEntry),
		pending:       make(map[[4]byte]*PendingRequest),
		ifaces:        cfg.Ifaces,
		transport:     cfg.Transport,
		metrics:       cfg.Metrics,
		entryLifetime: entryLifetime,
		retryCap:      retryCap,
		retryBackoff:  backoff.NewConstantBackOff(retryInterval),
		logger:        logger{log: cfg.Logger},
	}, nil
}

// Lookup returns the resolved MAC for ipv4, if an unexpired entry exists.
// An expired entry found during lookup is evicted opportunistically.
func (c *Cache) Lookup(ipv4 [4]byte) (mac [6]byte, ok bool) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	e, found := c.resolved[ipv4]
	if !found {
		return mac, false
	}
	if now.Sub(e.insertedAt) >= c.entryLifetime {
		delete(c.resolved, ipv4)
		return mac, false
	}
	return e.mac, true
}

// Insert refreshes or adds the resolved entry for ipv4. If a pending
// request existed for ipv4, it is detached from the pending table and its
// queued packets are transmitted immediately, now that the MAC is known.
func (c *Cache) Insert(ipv4 [4]byte, mac [6]byte) {
	c.mu.Lock()
	c.resolved[ipv4] = resolvedEntry{mac: mac, insertedAt: time.Now()}
	req := c.pending[ipv4]
	delete(c.pending, ipv4)
	resolvedCount, pendingCount := len(c.resolved), len(c.pending)
	c.mu.Unlock()

	c.reportPopulation(resolvedCount, pendingCount)
	if req == nil {
		return
	}
	for _, pkt := range req.Queue {
		if err := c.deliver(pkt, mac); err != nil {
			c.warn("arpcache: failed to deliver queued packet", slog.String("err", err.Error()))
		}
	}
}

// Queue appends frame to the pending request for ipv4, creating the
// request if absent, and returns it so the caller can drive the first ARP
// Request immediately via HandleRequest.
func (c *Cache) Queue(ipv4 [4]byte, frame []byte, outIface, inIface string) *PendingRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	req, ok := c.pending[ipv4]
	if !ok {
		req = &PendingRequest{IPv4: ipv4, OutIface: outIface}
		c.pending[ipv4] = req
	}
	req.Queue = append(req.Queue, PendingPacket{Frame: frame, OutIface: outIface, InIface: inIface})
	c.reportPopulationLocked()
	return req
}

// Destroy removes req from the pending table, dropping any packets still
// queued against it.
func (c *Cache) Destroy(req *PendingRequest) {
	c.mu.Lock()
	delete(c.pending, req.IPv4)
	resolvedCount, pendingCount := len(c.resolved), len(c.pending)
	c.mu.Unlock()
	c.reportPopulation(resolvedCount, pendingCount)
}

// SendOrQueue implements the shared forwarding tail: it consults the cache
// for nextHop and either fills in the Ethernet destination and sends
// immediately, or queues frame against a pending ARP request and drives
// the first retry inline so the request doesn't wait for the sweeper.
func (c *Cache) SendOrQueue(frame []byte, outIface, inIface string, nextHop [4]byte) error {
	if mac, ok := c.Lookup(nextHop); ok {
		return c.deliver(PendingPacket{Frame: frame, OutIface: outIface, InIface: inIface}, mac)
	}
	req := c.Queue(nextHop, frame, outIface, inIface)
	return c.HandleRequest(req)
}

func (c *Cache) deliver(pkt PendingPacket, mac [6]byte) error {
	efrm, err := ethernet.NewFrame(pkt.Frame)
	if err != nil {
		return err
	}
	*efrm.DestinationHardwareAddr() = mac
	return c.transport.Send(pkt.Frame, pkt.OutIface)
}

// HandleRequest drives the pending-request state machine for req: it is a
// no-op if less than the retry interval has elapsed since the last
// transmission; it bounces every queued packet with an ICMP Host
// Unreachable and destroys req once the retry cap is reached; otherwise it
// (re)transmits an ARP Request and advances the retry counters.
func (c *Cache) HandleRequest(req *PendingRequest) error {
	now := time.Now()
	c.mu.Lock()
	if !req.LastSent.IsZero() && now.Sub(req.LastSent) < c.retryBackoff.NextBackOff() {
		c.mu.Unlock()
		return nil
	}
	exhausted := req.SendCount >= c.retryCap
	queue := req.Queue
	outIface := req.OutIface
	target := req.IPv4
	if !exhausted {
		req.LastSent = now
		req.SendCount++
	}
	c.mu.Unlock()

	if exhausted {
		c.Destroy(req)
		for _, pkt := range queue {
			c.bounceHostUnreachable(pkt)
		}
		c.reportHostUnreachable(len(queue))
		return nil
	}
	return c.broadcastRequest(outIface, target)
}

func (c *Cache) broadcastRequest(outIface string, target [4]byte) error {
	self, ok := c.ifaces.GetByName(outIface)
	if !ok {
		return errUnknownIface
	}
	var buf [14 + 28]byte
	efrm, _ := ethernet.NewFrame(buf[:])
	*efrm.DestinationHardwareAddr() = ethernet.BroadcastAddr()
	*efrm.SourceHardwareAddr() = self.MAC
	efrm.SetEtherType(ethernet.TypeARP)

	afrm, _ := arp.NewFrame(efrm.Payload())
	afrm.SetHardware(hwTypeEthernet)
	afrm.SetProtocol(ethernet.TypeIPv4)
	afrm.SetOperation(arp.OpRequest)
	senderHW, senderProto := afrm.Sender()
	*senderHW = self.MAC
	*senderProto = self.Addr
	_, targetProto := afrm.Target()
	*targetProto = target

	c.info("arpcache: broadcasting ARP request", slog.Any("target", target), slog.String("iface", outIface))
	c.reportARPRequestSent()
	return c.transport.Send(buf[:], outIface)
}

func (c *Cache) bounceHostUnreachable(pkt PendingPacket) {
	reply, nextHop, err := buildHostUnreachable(pkt, c.ifaces)
	if err != nil {
		c.warn("arpcache: failed to build host unreachable", slog.String("err", err.Error()))
		return
	}
	if err := c.SendOrQueue(reply, pkt.InIface, pkt.InIface, nextHop); err != nil {
		c.warn("arpcache: failed to send host unreachable", slog.String("err", err.Error()))
	}
}

func (c *Cache) reportPopulation(resolvedCount, pendingCount int) {
	if c.metrics == nil {
		return
	}
	c.metrics.SetResolvedCount(resolvedCount)
	c.metrics.SetPendingCount(pendingCount)
}

func (c *Cache) reportPopulationLocked() {
	if c.metrics == nil {
		return
	}
	c.metrics.SetResolvedCount(len(c.resolved))
	c.metrics.SetPendingCount(len(c.pending))
}

func (c *Cache) reportARPRequestSent() {
	if c.metrics != nil {
		c.metrics.IncARPRequestSent()
	}
}

func (c *Cache) reportHostUnreachable(n int) {
	if c.metrics == nil {
		return
	}
	for i := 0; i < n; i++ {
		c.metrics.IncHostUnreachable()
	}
}

// Sweep evicts expired resolved entries and drives the pending-request
// state machine for every request still awaiting resolution. Called once a
// second by Run, and safe to call concurrently with Lookup/Insert/Queue.
func (c *Cache) Sweep(now time.Time) {
	c.mu.Lock()
	for ip, e := range c.resolved {
		if now.Sub(e.insertedAt) >= c.entryLifetime {
			delete(c.resolved, ip)
		}
	}
	pending := make([]*PendingRequest, 0, len(c.pending))
	for _, req := range c.pending {
		pending = append(pending, req)
	}
	resolvedCount, pendingCount := len(c.resolved), len(c.pending)
	c.mu.Unlock()
	c.reportPopulation(resolvedCount, pendingCount)

	for _, req := range pending {
		c.HandleRequest(req)
	}
}

// Run drives the sweeper on its own goroutine until ctx is cancelled.
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(defaultRetryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.Sweep(now)
		}
	}
}
