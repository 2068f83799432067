// Package metrics exposes Prometheus collectors for the receiver.
//
// All methods are safe to call on a nil *Metrics, so components can take an
// optional *Metrics without guarding every call site.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace is the metric namespace used when none is configured.
const DefaultNamespace = "airplay"

// Config configures the collectors.
type Config struct {
	// Registerer receives the collectors. If nil, prometheus.DefaultRegisterer
	// is used.
	Registerer prometheus.Registerer

	// Namespace prefixes every metric name (default: "airplay").
	Namespace string
}

// Metrics holds the receiver's collectors.
type Metrics struct {
	sessionUpserts  *prometheus.CounterVec
	sessions        prometheus.Gauge
	listenersActive *prometheus.GaugeVec
	listenerCloses  *prometheus.CounterVec
	dacpServices    prometheus.Gauge
	dacpShutdowns   prometheus.Counter
	dacpCommands    *prometheus.CounterVec
	rtpPackets      *prometheus.CounterVec
}

// New creates and registers the collectors.
func New(config Config) *Metrics {
	reg := config.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := config.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	f := promauto.With(reg)

	return &Metrics{
		sessionUpserts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "session",
			Name:      "upserts_total",
			Help:      "Total number of session upserts by result",
		}, []string{"result"}),
		sessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "session",
			Name:      "stored",
			Help:      "Number of sessions currently stored",
		}),
		listenersActive: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "transport",
			Name:      "listeners_active",
			Help:      "Number of running media listeners by role",
		}, []string{"role"}),
		listenerCloses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "transport",
			Name:      "listener_closes_total",
			Help:      "Total number of media listeners whose sockets were closed",
		}, []string{"role"}),
		dacpServices: f.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: "dacp",
			Name:      "services",
			Help:      "Number of resolved DACP services",
		}),
		dacpShutdowns: f.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "dacp",
			Name:      "service_shutdowns_total",
			Help:      "Total number of DACP services that left the network",
		}),
		dacpCommands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "dacp",
			Name:      "commands_total",
			Help:      "Total number of DACP commands sent by result",
		}, []string{"result"}),
		rtpPackets: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "transport",
			Name:      "rtp_packets_total",
			Help:      "Total number of RTP packets received by result",
		}, []string{"result"}),
	}
}

// SessionUpserted counts one upsert.
func (m *Metrics) SessionUpserted(inserted bool) {
	if m == nil {
		return
	}
	if inserted {
		m.sessionUpserts.WithLabelValues("inserted").Inc()
		return
	}
	m.sessionUpserts.WithLabelValues("merged").Inc()
}

// SessionStored counts one session added to the store.
func (m *Metrics) SessionStored() {
	if m == nil {
		return
	}
	m.sessions.Inc()
}

// SessionRemoved counts one session removed from the store.
func (m *Metrics) SessionRemoved() {
	if m == nil {
		return
	}
	m.sessions.Dec()
}

// ListenerStarted marks a listener of the given role as running.
func (m *Metrics) ListenerStarted(role string) {
	if m == nil {
		return
	}
	m.listenersActive.WithLabelValues(role).Inc()
}

// ListenerStopped marks a running listener of the given role as stopped.
func (m *Metrics) ListenerStopped(role string) {
	if m == nil {
		return
	}
	m.listenersActive.WithLabelValues(role).Dec()
}

// ListenerClosed counts one listener whose sockets were closed.
func (m *Metrics) ListenerClosed(role string) {
	if m == nil {
		return
	}
	m.listenerCloses.WithLabelValues(role).Inc()
}

// DacpServiceResolved counts one newly resolved DACP service.
func (m *Metrics) DacpServiceResolved() {
	if m == nil {
		return
	}
	m.dacpServices.Inc()
}

// DacpServiceRemoved counts one resolved DACP service going away.
func (m *Metrics) DacpServiceRemoved() {
	if m == nil {
		return
	}
	m.dacpServices.Dec()
}

// DacpServiceShutdown counts one DACP service shutdown.
func (m *Metrics) DacpServiceShutdown() {
	if m == nil {
		return
	}
	m.dacpShutdowns.Inc()
}

// DacpCommand counts one DACP command by result ("ok", "no_endpoint", "error").
func (m *Metrics) DacpCommand(result string) {
	if m == nil {
		return
	}
	m.dacpCommands.WithLabelValues(result).Inc()
}

// RTPPacket counts one datagram on an RTP data socket ("ok" or "malformed").
func (m *Metrics) RTPPacket(result string) {
	if m == nil {
		return
	}
	m.rtpPackets.WithLabelValues(result).Inc()
}
