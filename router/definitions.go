// Package router dispatches inbound Ethernet frames for a software IPv4
// router: ARP request/reply handling, locally-destined ICMP/port-unreachable
// replies, and longest-prefix-match forwarding with ARP resolution of the
// next hop.
package router

import (
	"log/slog"
	"time"

	"github.com/nikita-sh/vrouter/arpcache"
	"github.com/nikita-sh/vrouter/iface"
	"github.com/nikita-sh/vrouter/route"
)

// generatedTTL is the TTL the router sets on any IPv4 packet it originates
// itself (echo replies, ICMP errors).
const generatedTTL = 64

// Transport is the collaborator that puts a fully-built frame on the wire
// out of a named interface. It is the same shape as arpcache.Transport so a
// single implementation serves both.
type Transport = arpcache.Transport

// Config configures a Router.
type Config struct {
	Ifaces    iface.Table
	Routes    route.Table
	Transport Transport
	// Metrics is optional; a nil Metrics disables Prometheus reporting.
	Metrics *Metrics
	Logger  *slog.Logger

	// ARP cache tuning, forwarded to arpcache.Config. Zero values take
	// arpcache's own defaults.
	ARPEntryLifetime time.Duration
	ARPRetryCap      int
	ARPRetryInterval time.Duration
}

// Router dispatches inbound frames according to the interface table, routing
// table and ARP cache it was built with.
type Router struct {
	ifaces    iface.Table
	routes    route.Table
	transport Transport
	cache     *arpcache.Cache
	metrics   *Metrics
	logger
}

// NewRouter constructs a Router from cfg. It also constructs and owns the
// ARP cache; callers must run Cache().Run(ctx) on their own goroutine to
// drive its background sweeper.
func NewRouter(cfg Config) (*Router, error) {
	var arpMetrics arpcache.Metrics
	if cfg.Metrics != nil {
		arpMetrics = cfg.Metrics
	}
	cache, err := arpcache.NewCache(arpcache.Config{
		Ifaces:        cfg.Ifaces,
		Transport:     cfg.Transport,
		Metrics:       arpMetrics,
		Logger:        cfg.Logger,
		EntryLifetime: cfg.ARPEntryLifetime,
		RetryCap:      cfg.ARPRetryCap,
		RetryInterval: cfg.ARPRetryInterval,
	})
	if err != nil {
		return nil, err
	}
	return &Router{
		ifaces:    cfg.Ifaces,
		routes:    cfg.Routes,
		transport: cfg.Transport,
		cache:     cache,
		metrics:   cfg.Metrics,
		logger:    logger{log: cfg.Logger},
	}, nil
}

// Cache returns the ARP cache backing this router, so the caller can run its
// background sweeper (Cache().Run(ctx)) alongside Receive.
func (r *Router) Cache() *arpcache.Cache { return r.cache }

func (r *Router) incDropped(reason string) {
	if r.metrics != nil {
		r.metrics.incDropped(reason)
	}
}

func (r *Router) incICMPGenerated(kind string) {
	if r.metrics != nil {
		r.metrics.incICMPGenerated(kind)
	}
}

func (r *Router) incForwarded() {
	if r.metrics != nil {
		r.metrics.Forwarded.Inc()
	}
}
