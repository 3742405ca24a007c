package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shrtnr"

// Metrics holds the registry's collectors. It satisfies service.Metrics and
// middleware.RequestObserver.
type Metrics struct {
	linksCreated   *prometheus.CounterVec
	codeConflicts  prometheus.Counter
	codeCollisions prometheus.Counter
	linksDeleted   prometheus.Counter
	clicks         *prometheus.CounterVec
	totalLinks     prometheus.Gauge
	totalClicks    prometheus.Gauge
	httpDuration   *prometheus.HistogramVec
}

// NewRegistry returns a registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		linksCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_created_total",
			Help:      "Links created, by whether the code was user supplied.",
		}, []string{"custom"}),
		codeConflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "code_conflicts_total",
			Help:      "Custom code claims rejected because the code was taken.",
		}),
		codeCollisions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "code_collisions_total",
			Help:      "Generated codes that collided and were retried.",
		}),
		linksDeleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_deleted_total",
			Help:      "Links deleted together with their clicks.",
		}),
		clicks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clicks_total",
			Help:      "Click events by outcome: queued, stored, dropped or failed.",
		}, []string{"outcome"}),
		totalLinks: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "links",
			Help:      "Links currently registered.",
		}),
		totalClicks: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clicks",
			Help:      "Clicks currently stored.",
		}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route template.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) LinkCreated(custom bool) {
	m.linksCreated.WithLabelValues(strconv.FormatBool(custom)).Inc()
}

func (m *Metrics) CodeConflict()  { m.codeConflicts.Inc() }
func (m *Metrics) CodeCollision() { m.codeCollisions.Inc() }
func (m *Metrics) LinkDeleted()   { m.linksDeleted.Inc() }

func (m *Metrics) ClickRecorded(outcome string) {
	m.clicks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Totals(links, clicks int64) {
	m.totalLinks.Set(float64(links))
	m.totalClicks.Set(float64(clicks))
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
