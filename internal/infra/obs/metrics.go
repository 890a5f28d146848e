package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	reservations  *prometheus.CounterVec
	promotions    *prometheus.CounterVec
	persistFailed prometheus.Counter
	notifyFailed  prometheus.Counter
	messages      *prometheus.HistogramVec
	outbox        *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_stored_total",
			Help:      "Reservations stored, by origin.",
		}, []string{"origin"}),
		promotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_promoted_total",
			Help:      "Fallback reservations moved to the remote store, by source.",
		}, []string{"source"}),
		persistFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_persistence_failed_total",
			Help:      "Bookings lost because both stores failed.",
		}),
		notifyFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Confirmation emails the relay did not accept.",
		}),
		messages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bus_message_duration_seconds",
			Help:      "Command and query handling time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "key", "outcome"}),
		outbox: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_relayed_total",
			Help:      "Outbox relay attempts, by topic and outcome.",
		}, []string{"topic", "outcome"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	m.registry.MustRegister(
		m.reservations, m.promotions, m.persistFailed, m.notifyFailed,
		m.messages, m.outbox, m.httpDuration,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ReservationStored(origin string)   { m.reservations.WithLabelValues(origin).Inc() }
func (m *Metrics) ReservationPromoted(source string) { m.promotions.WithLabelValues(source).Inc() }
func (m *Metrics) PersistenceFailed()                { m.persistFailed.Inc() }
func (m *Metrics) NotificationFailed()               { m.notifyFailed.Inc() }

func (m *Metrics) ObserveMessage(kind, key string, elapsed time.Duration, err error) {
	m.messages.WithLabelValues(kind, key, outcome(err)).Observe(elapsed.Seconds())
}

func (m *Metrics) OutboxRelayed(topic string, err error) {
	m.outbox.WithLabelValues(topic, outcome(err)).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
