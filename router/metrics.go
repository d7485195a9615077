package router

import "github.com/prometheus/client_golang/prometheus"

const (
	metricNameARPResolved     = "vrouter_arp_resolved_entries"
	metricNameARPPending      = "vrouter_arp_pending_requests"
	metricNameARPRequestsSent = "vrouter_arp_requests_sent_total"
	metricNameHostUnreachable = "vrouter_icmp_host_unreachable_total"
	metricNameForwarded       = "vrouter_forwarded_total"
	metricNameDropped         = "vrouter_dropped_total"
	metricNameICMPGenerated   = "vrouter_icmp_generated_total"

	metricLabelReason = "reason"
	metricLabelType   = "type"
)

// Metrics groups the Prometheus collectors a Router reports through, and
// also satisfies arpcache.Metrics so a single set of collectors covers both
// the cache and the dispatch path.
type Metrics struct {
	ARPResolved     prometheus.Gauge
	ARPPending      prometheus.Gauge
	ARPRequestsSent prometheus.Counter
	HostUnreachable prometheus.Counter
	Forwarded       prometheus.Counter
	Dropped         *prometheus.CounterVec
	ICMPGenerated   *prometheus.CounterVec
}

// NewMetrics constructs collectors but does not register them.
func NewMetrics() *Metrics {
	return &Metrics{
		ARPResolved: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricNameARPResolved, Help: "Current number of resolved entries in the ARP cache.",
		}),
		ARPPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricNameARPPending, Help: "Current number of pending ARP requests.",
		}),
		ARPRequestsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricNameARPRequestsSent, Help: "Total ARP request broadcasts sent.",
		}),
		HostUnreachable: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricNameHostUnreachable, Help: "Total ICMP Host Unreachable messages sent after ARP retry exhaustion.",
		}),
		Forwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricNameForwarded, Help: "Total IPv4 packets forwarded.",
		}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricNameDropped, Help: "Total frames dropped, by reason.",
		}, []string{metricLabelReason}),
		ICMPGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricNameICMPGenerated, Help: "Total ICMP messages originated by the router, by type.",
		}, []string{metricLabelType}),
	}
}

// Register registers every collector with r.
func (m *Metrics) Register(r prometheus.Registerer) {
	r.MustRegister(m.ARPResolved, m.ARPPending, m.ARPRequestsSent, m.HostUnreachable,
		m.Forwarded, m.Dropped, m.ICMPGenerated)
}

// The methods below satisfy arpcache.Metrics.

func (m *Metrics) SetResolvedCount(n int) { m.ARPResolved.Set(float64(n)) }
func (m *Metrics) SetPendingCount(n int)  { m.ARPPending.Set(float64(n)) }
func (m *Metrics) IncARPRequestSent()     { m.ARPRequestsSent.Inc() }
func (m *Metrics) IncHostUnreachable()    { m.HostUnreachable.Inc() }

func (m *Metrics) incDropped(reason string)     { m.Dropped.WithLabelValues(reason).Inc() }
func (m *Metrics) incICMPGenerated(kind string) { m.ICMPGenerated.WithLabelValues(kind).Inc() }
