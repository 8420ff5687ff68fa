package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "minotaur"

// Gather is the daemon's metrics registry, served by the ops endpoint.
var Gather = prometheus.NewRegistry()

var (
	JobRunCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Counter of scheduled job runs by outcome.",
		}, []string{"job", "status"})

	JobRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_run_seconds",
			Help:      "Histogram of scheduled job run durations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"job"})

	JobOverlapSkips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_overlap_skips_total",
			Help:      "Counter of job runs skipped because the previous run was still in flight.",
		}, []string{"job"})

	ReaderMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "messages_total",
			Help:      "Counter of messages produced by readers.",
		}, []string{"reader"})

	ReaderErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "errors_total",
			Help:      "Counter of reader failures.",
		}, []string{"reader"})

	ReaderBatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reader",
			Name:      "batch_seconds",
			Help:      "Histogram of reader batch fetch durations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"reader"})

	PipelineMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "messages_total",
			Help:      "Counter of messages handed to pipelines by outcome.",
		}, []string{"pipeline", "status"})

	PipelineErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "errors_total",
			Help:      "Counter of pipeline failures.",
		}, []string{"pipeline"})

	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "process_seconds",
			Help:      "Histogram of pipeline batch processing durations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"pipeline"})

	PanicCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "panics_recovered_total",
			Help:      "Counter of panics recovered by scope.",
		}, []string{"scope"})
)

func init() {
	Gather.MustRegister(
		JobRunCounter,
		JobRunDuration,
		JobOverlapSkips,
		ReaderMessages,
		ReaderErrors,
		ReaderBatchDuration,
		PipelineMessages,
		PipelineErrors,
		PipelineDuration,
		PanicCounter,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}
