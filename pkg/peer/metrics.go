package peer

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "b2b_peer"

// Collector is a prometheus.Collector of receiver metrics
type Collector struct {
	filesReceived *prometheus.CounterVec
	bytesReceived prometheus.Counter
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		filesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "files_received_total",
				Help:      "The number of file transfers received, by result.",
			}, []string{"result"},
		),
		bytesReceived: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "bytes_received_total",
				Help:      "The number of bytes of files stored.",
			},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.filesReceived.Describe(ch)
	c.bytesReceived.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.filesReceived.Collect(ch)
	c.bytesReceived.Collect(ch)
}
