// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package metrics records extraction outcomes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder observes one finished extraction.
type Recorder interface {
	ObserveExtraction(engine, kind, source, outcome string, d time.Duration)
}

// Nop discards observations.
type Nop struct{}

func (Nop) ObserveExtraction(string, string, string, string, time.Duration) {}

// Prometheus exports extraction counters and latencies.
type Prometheus struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ Recorder = (*Prometheus)(nil)

// NewPrometheus creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	p := &Prometheus{
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "xtract",
			Name:      "extractions_total",
			Help:      "Document extractions by engine, output kind, source kind and outcome.",
		}, []string{"engine", "kind", "source", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "xtract",
			Name:      "extraction_duration_seconds",
			Help:      "Wall time of engine invocations.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"engine", "kind"}),
	}
	for _, c := range []prometheus.Collector{p.total, p.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *Prometheus) ObserveExtraction(engine, kind, source, outcome string, d time.Duration) {
	p.total.WithLabelValues(engine, kind, source, outcome).Inc()
	p.duration.WithLabelValues(engine, kind).Observe(d.Seconds())
}
