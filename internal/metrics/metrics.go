package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atikulmunna/dlcount/internal/aggregator"
	"github.com/atikulmunna/dlcount/internal/model"
)

// Metrics exposes the persisted download counts as prometheus gauges.
type Metrics struct {
	registry     *prometheus.Registry
	Downloads    *prometheus.GaugeVec
	Total        prometheus.Gauge
	Reloads      prometheus.Counter
	ReloadErrors prometheus.Counter
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Downloads: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dlcount_downloads",
			Help: "Downloads per artifact as of the last aggregation.",
		}, []string{"artifact"}),
		Total: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dlcount_downloads_all",
			Help: "Downloads across all artifacts, excluding version probes.",
		}),
		Reloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dlcount_reloads_total",
			Help: "Count table reloads.",
		}),
		ReloadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dlcount_reload_errors_total",
			Help: "Count table reloads that failed.",
		}),
	}
	m.registry.MustRegister(m.Downloads, m.Total, m.Reloads, m.ReloadErrors)
	return m
}

// Observe replaces the gauges with the values of counts.
func (m *Metrics) Observe(counts *model.CountTable) {
	m.Downloads.Reset()
	for _, rc := range counts.Entries() {
		m.Downloads.WithLabelValues(rc.Name).Set(float64(rc.Count))
	}
	m.Total.Set(float64(aggregator.Total(counts)))
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
