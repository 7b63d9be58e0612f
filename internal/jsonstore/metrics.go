package jsonstore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelCollection = "collection"
	labelResult     = "result"
)

type Metrics struct {
	Writes       *prometheus.CounterVec
	WriteLatency *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Writes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_store_writes_total",
				Help: "Whole-collection writes by outcome",
			},
			[]string{labelCollection, labelResult},
		),
		WriteLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storefront_store_write_duration_seconds",
				Help:    "Time spent persisting a collection, retries included",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
			[]string{labelCollection},
		),
	}

	reg.MustRegister(m.Writes, m.WriteLatency)
	return m
}

func (m *Metrics) observe(collection string, took time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Writes.WithLabelValues(collection, result).Inc()
	m.WriteLatency.WithLabelValues(collection).Observe(took.Seconds())
}
