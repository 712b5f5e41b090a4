package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics набор prometheus-метрик сервиса.
// Все методы безопасны для nil-получателя: при выключенных метриках
// компоненты получают nil и просто ничего не пишут.
type Metrics struct {
	service  string
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	DBOpenConns     *prometheus.GaugeVec

	RealtimeEvents       *prometheus.CounterVec
	RealtimeOpenChannels *prometheus.GaugeVec

	Cancellations *prometheus.CounterVec
}

// New создает и регистрирует метрики в собственном registry
func New(service string) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		service:  service,
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"service", "method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "method", "route"}),
		DBQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"service", "operation"}),
		DBQueryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "db_query_errors_total",
			Help: "Database query errors",
		}, []string{"service", "operation"}),
		DBOpenConns: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "db_open_connections",
			Help: "Open database connections",
		}, []string{"service", "state"}),
		RealtimeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realtime_events_total",
			Help: "Realtime events by target kind and outcome",
		}, []string{"service", "kind", "outcome"}),
		RealtimeOpenChannels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "realtime_open_channels",
			Help: "Currently open realtime channels",
		}, []string{"service"}),
		Cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_cancellations_total",
			Help: "Confirmed booking cancellations by refund eligibility",
		}, []string{"service", "refund_eligible"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBQueryDuration,
		m.DBQueryErrors,
		m.DBOpenConns,
		m.RealtimeEvents,
		m.RealtimeOpenChannels,
		m.Cancellations,
	)

	return m
}

// Handler HTTP-обработчик для /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(m.service, method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.service, method, route).Observe(d.Seconds())
}

func (m *Metrics) ObserveQuery(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(m.service, operation).Observe(d.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(m.service, operation).Inc()
	}
}

func (m *Metrics) SetDBConns(inUse, idle int) {
	if m == nil {
		return
	}
	m.DBOpenConns.WithLabelValues(m.service, "in_use").Set(float64(inUse))
	m.DBOpenConns.WithLabelValues(m.service, "idle").Set(float64(idle))
}

func (m *Metrics) RealtimeEvent(kind, outcome string) {
	if m == nil {
		return
	}
	m.RealtimeEvents.WithLabelValues(m.service, kind, outcome).Inc()
}

func (m *Metrics) ChannelOpened() {
	if m == nil {
		return
	}
	m.RealtimeOpenChannels.WithLabelValues(m.service).Inc()
}

func (m *Metrics) ChannelClosed() {
	if m == nil {
		return
	}
	m.RealtimeOpenChannels.WithLabelValues(m.service).Dec()
}

func (m *Metrics) Cancellation(refundEligible bool) {
	if m == nil {
		return
	}
	m.Cancellations.WithLabelValues(m.service, strconv.FormatBool(refundEligible)).Inc()
}
