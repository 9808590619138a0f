package metrics

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	/* step metrics */
	StepLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "hpcsim_step_latency_seconds",
		Help:    "Wall-clock time of one job step in seconds",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 16),
	})
	StepsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hpcsim_steps_completed_total",
		Help: "Number of job steps that exited with status zero",
	})
	StepsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hpcsim_steps_failed_total",
		Help: "Number of job steps that failed to start or exited non-zero",
	})
	StepsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hpcsim_steps_in_flight",
		Help: "Number of job steps currently running",
	})

	/* pipeline metrics */
	PipelineDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hpcsim_pipeline_duration_seconds",
		Help: "Wall-clock time of the last completed pipeline in seconds",
	})

	metricsList = []prometheus.Collector{
		StepLatency,
		StepsCompleted,
		StepsFailed,
		StepsInFlight,

		PipelineDuration,
	}
)

var registerMetrics sync.Once

func Register() {
	registerMetrics.Do(func() {
		prometheus.MustRegister(metricsList...)
	})
}

func Router() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return r
}

// Serve exposes the metrics endpoint on addr. It only returns on error.
func Serve(addr string) error {
	Register()

	log.WithFields(log.Fields{
		"addr":     addr,
		"endpoint": "/metrics",
	}).Info("Starting metrics server")

	return http.ListenAndServe(addr, Router())
}
