package promsink

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"mlops-monitoring-service/internal/core/ports/output"
)

const namespace = "mlops_monitoring"

// Sink exposes published metrics as Prometheus gauges. Each metric name is
// backed by one GaugeVec whose label set is fixed by the first publish.
type Sink struct {
	registry *prometheus.Registry

	mu     sync.Mutex
	gauges map[string]*gauge
}

type gauge struct {
	vec    *prometheus.GaugeVec
	labels []string
}

func New() *Sink {
	return &Sink{
		registry: prometheus.NewRegistry(),
		gauges:   make(map[string]*gauge),
	}
}

var _ ports.MetricsSink = (*Sink)(nil)

func (s *Sink) Publish(name string, value float64, _ time.Time, tags map[string]string) {
	labels := make([]string, 0, len(tags))
	for k := range tags {
		labels = append(labels, k)
	}
	sort.Strings(labels)

	s.mu.Lock()
	g, ok := s.gauges[name]
	if !ok {
		g = &gauge{
			vec: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      name,
			}, labels),
			labels: labels,
		}
		if err := s.registry.Register(g.vec); err != nil {
			s.mu.Unlock()
			log.WithError(err).WithField("metric", name).Warn("metric registration failed")
			return
		}
		s.gauges[name] = g
	}
	s.mu.Unlock()

	if !sameLabels(g.labels, labels) {
		log.WithField("metric", name).Warn("metric published with inconsistent tag keys, dropping sample")
		return
	}

	values := make([]string, len(labels))
	for i, k := range labels {
		values[i] = tags[k]
	}
	g.vec.WithLabelValues(values...).Set(value)
}

// Handler serves the sink's registry for scraping.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

func sameLabels(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
