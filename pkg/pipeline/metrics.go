package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "b2b_pipeline"

// Collector is a prometheus.Collector of backup run metrics
type Collector struct {
	filesCollected prometheus.Counter
	filesSkipped   prometheus.Counter
	filesSent      prometheus.Counter
	bytesSent      prometheus.Counter
	sendFailures   prometheus.Counter
	runs           *prometheus.CounterVec
	runDuration    prometheus.Histogram
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		filesCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "files_collected_total",
			Help:      "The number of regular files found walking sources.",
		}),
		filesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "files_unchanged_total",
			Help:      "The number of files skipped as unchanged since their last backup.",
		}),
		filesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "files_sent_total",
			Help:      "The number of files acknowledged by a peer.",
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bytes_sent_total",
			Help:      "The number of bytes acknowledged by a peer.",
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "send_failures_total",
			Help:      "The number of failed file transfers.",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "The number of finished runs by final status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "How long runs take.",
			Buckets:   []float64{1, 10, 60, 300, 900, 3600, 4 * 3600},
		}),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.filesCollected.Describe(ch)
	c.filesSkipped.Describe(ch)
	c.filesSent.Describe(ch)
	c.bytesSent.Describe(ch)
	c.sendFailures.Describe(ch)
	c.runs.Describe(ch)
	c.runDuration.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.filesCollected.Collect(ch)
	c.filesSkipped.Collect(ch)
	c.filesSent.Collect(ch)
	c.bytesSent.Collect(ch)
	c.sendFailures.Collect(ch)
	c.runs.Collect(ch)
	c.runDuration.Collect(ch)
}
