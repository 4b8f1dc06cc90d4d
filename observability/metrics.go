// Package observability exposes the Prometheus collectors of the websocket gateway.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the gateway collectors. A nil *Metrics is a valid no-op recorder.
type Metrics struct {
	connections  prometheus.Gauge
	inbound      *prometheus.CounterVec
	decodeErrors prometheus.Counter
	dropped      *prometheus.CounterVec
	deliveries   *prometheus.CounterVec
	deliveryTime prometheus.Histogram
	processRSS   prometheus.Gauge
	processCPU   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wschat",
			Name:      "connections_active",
			Help:      "Number of registered websocket connections.",
		}),
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wschat",
			Name:      "inbound_events_total",
			Help:      "Decoded inbound events per kind.",
		}, []string{"kind"}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wschat",
			Name:      "inbound_decode_errors_total",
			Help:      "Inbound frames rejected by the codec.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wschat",
			Name:      "dropped_events_total",
			Help:      "Inbound events dropped by the dispatcher per reason.",
		}, []string{"reason"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wschat",
			Name:      "deliveries_total",
			Help:      "Outbound sends per kind and result.",
		}, []string{"kind", "result"}),
		deliveryTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wschat",
			Name:      "delivery_duration_seconds",
			Help:      "Time spent fanning out one outbound event.",
			Buckets:   prometheus.DefBuckets,
		}),
		processRSS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wschat",
			Name:      "process_rss_bytes",
			Help:      "Resident memory reported by the reporter worker.",
		}),
		processCPU: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wschat",
			Name:      "process_cpu_percent",
			Help:      "CPU usage reported by the reporter worker.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.connections, m.inbound, m.decodeErrors, m.dropped, m.deliveries, m.deliveryTime, m.processRSS, m.processCPU)
	}
	return m
}

func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

func (m *Metrics) InboundEvent(kind string) {
	if m == nil {
		return
	}
	m.inbound.WithLabelValues(kind).Inc()
}

func (m *Metrics) DecodeError() {
	if m == nil {
		return
	}
	m.decodeErrors.Inc()
}

func (m *Metrics) Dropped(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}

// Delivery records one per-connection send outcome.
func (m *Metrics) Delivery(kind string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.deliveries.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) DeliveryDuration(seconds float64) {
	if m == nil {
		return
	}
	m.deliveryTime.Observe(seconds)
}

func (m *Metrics) ProcessStats(rss uint64, cpu float64) {
	if m == nil {
		return
	}
	m.processRSS.Set(float64(rss))
	m.processCPU.Set(cpu)
}
