package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	taskTotal       *prometheus.CounterVec
	taskDuration    *prometheus.HistogramVec
	taskInFlight    prometheus.Gauge
	taskRetries     *prometheus.CounterVec
	credentialTotal *prometheus.CounterVec
	mailSweeps      *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	taskTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperflow",
			Subsystem: "worker",
			Name:      "task_total",
			Help:      "Total executed pipeline tasks by type and status.",
		},
		[]string{"type", "status"},
	)
	taskDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paperflow",
			Subsystem: "worker",
			Name:      "task_duration_seconds",
			Help:      "Pipeline task duration in seconds by type and status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"type", "status"},
	)
	taskInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "paperflow",
			Subsystem: "worker",
			Name:      "task_in_flight",
			Help:      "Number of in-flight pipeline tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	taskRetries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperflow",
			Subsystem: "worker",
			Name:      "task_retries_total",
			Help:      "Total queue-level task retries by type.",
		},
		[]string{"type"},
	)
	credentialTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperflow",
			Subsystem: "worker",
			Name:      "credential_checks_total",
			Help:      "Total credential connectivity checks by service and outcome.",
		},
		[]string{"credential_service", "outcome"},
	)
	mailSweeps := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperflow",
			Subsystem: "worker",
			Name:      "mail_sweeps_total",
			Help:      "Total mailbox poll sweeps by outcome.",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(taskTotal, taskDuration, taskInFlight, taskRetries, credentialTotal, mailSweeps)

	return &WorkerMetrics{
		registry:        registry,
		taskTotal:       taskTotal,
		taskDuration:    taskDuration,
		taskInFlight:    taskInFlight,
		taskRetries:     taskRetries,
		credentialTotal: credentialTotal,
		mailSweeps:      mailSweeps,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartTask() {
	m.taskInFlight.Inc()
}

func (m *WorkerMetrics) FinishTask(taskType string, duration time.Duration, err error) {
	m.taskInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.taskTotal.WithLabelValues(taskType, status).Inc()
	m.taskDuration.WithLabelValues(taskType, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) CountRetry(taskType string) {
	m.taskRetries.WithLabelValues(taskType).Inc()
}

func (m *WorkerMetrics) CountCredentialCheck(service, outcome string) {
	m.credentialTotal.WithLabelValues(service, outcome).Inc()
}

func (m *WorkerMetrics) CountMailSweep(outcome string) {
	m.mailSweeps.WithLabelValues(outcome).Inc()
}
