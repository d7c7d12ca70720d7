package metrics

import (
	"net/http"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics binds the registry as well as the metrics collection.
type Metrics struct {
	l hclog.Logger
	s *http.Server

	r *prometheus.Registry

	linkState      *prometheus.GaugeVec
	linkFailures   *prometheus.CounterVec
	cycles         *prometheus.CounterVec
	position       *prometheus.GaugeVec
	setpoint       *prometheus.GaugeVec
	positionStale  prometheus.Gauge
	commands       *prometheus.CounterVec
	samples        *prometheus.CounterVec
	lastSampleTime prometheus.Gauge
}

// Option provides a configuration framework to setup the metrics
// package.
type Option func(m *Metrics)
