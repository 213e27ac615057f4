package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values.
const (
	SpawnOK     = "ok"
	SpawnFailed = "failed"

	DiscoveryFound    = "found"
	DiscoveryChosen   = "chosen"
	DiscoveryTimeout  = "timeout"
	DiscoveryCanceled = "canceled"

	KillKilled  = "killed"
	KillMissing = "missing"
	KillFailed  = "failed"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	taskSpawns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "graphdev",
			Subsystem: "task",
			Name:      "spawns_total",
			Help:      "Number of spawn attempts by result.",
		}, []string{"result"},
	)
	taskKills = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "graphdev",
			Subsystem: "task",
			Name:      "kills_total",
			Help:      "Number of teardown attempts by result.",
		}, []string{"result"},
	)
	trackedTasks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "graphdev",
			Subsystem: "task",
			Name:      "tracked",
			Help:      "Background tasks currently tracked by the runner.",
		},
	)
	discoveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "graphdev",
			Subsystem: "discovery",
			Name:      "total",
			Help:      "Endpoint discovery outcomes.",
		}, []string{"outcome"},
	)
	discoveryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "graphdev",
			Subsystem: "discovery",
			Name:      "duration_seconds",
			Help:      "Time spent polling for a new endpoint.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 3, 4, 5, 6},
		},
	)
	notifyFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "graphdev",
			Subsystem: "notify",
			Name:      "failures_total",
			Help:      "Removal notices the session did not accept.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{taskSpawns, taskKills, trackedTasks, discoveries, discoveryDuration, notifyFailures}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncSpawn(result string) {
	if regOK.Load() {
		taskSpawns.WithLabelValues(result).Inc()
	}
}

func IncKill(result string) {
	if regOK.Load() {
		taskKills.WithLabelValues(result).Inc()
	}
}

func SetTrackedTasks(n int) {
	if regOK.Load() {
		trackedTasks.Set(float64(n))
	}
}

func ObserveDiscovery(outcome string, seconds float64) {
	if regOK.Load() {
		discoveries.WithLabelValues(outcome).Inc()
		discoveryDuration.Observe(seconds)
	}
}

func IncNotifyFailure() {
	if regOK.Load() {
		notifyFailures.Inc()
	}
}

// NewServer returns an HTTP server exposing /metrics on addr.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
