package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uyplayer/tech-analysis/internal/series"
)

// Metrics holds the Prometheus collectors for indicator computation. Collectors are
// registered on a private registry so several Metrics can coexist (tests, one-shot
// CLI runs).
type Metrics struct {
	registry *prometheus.Registry

	ComputeDur    *prometheus.HistogramVec // labels: type
	SeriesTotal   *prometheus.CounterVec   // labels: type
	ErrorsTotal   *prometheus.CounterVec   // labels: type, kind
	BarsTotal     prometheus.Counter
	ParityMaxErr  *prometheus.GaugeVec // labels: indicator
	LastRunUnixTS prometheus.Gauge
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		ComputeDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kernelctl_indicator_compute_duration_seconds",
			Help:    "Indicator compute latency per series",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"type"}),
		SeriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kernelctl_indicator_series_total",
			Help: "Indicator series computed successfully",
		}, []string{"type"}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kernelctl_indicator_errors_total",
			Help: "Indicator computations that failed (kind=domain|numeric|other)",
		}, []string{"type", "kind"}),
		BarsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kernelctl_bars_loaded_total",
			Help: "Bars loaded from the data source",
		}),
		ParityMaxErr: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kernelctl_parity_max_relative_error",
			Help: "Largest relative error between batch and reference kernel strategies",
		}, []string{"indicator"}),
		LastRunUnixTS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kernelctl_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}

	m.registry.MustRegister(
		m.ComputeDur,
		m.SeriesTotal,
		m.ErrorsTotal,
		m.BarsTotal,
		m.ParityMaxErr,
		m.LastRunUnixTS,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveCompute records one indicator computation.
func (m *Metrics) ObserveCompute(indicatorType string, d time.Duration, err error) {
	m.ComputeDur.WithLabelValues(indicatorType).Observe(d.Seconds())
	if err != nil {
		m.ErrorsTotal.WithLabelValues(indicatorType, ErrorKind(err)).Inc()
		return
	}
	m.SeriesTotal.WithLabelValues(indicatorType).Inc()
}

// ObserveBars counts bars loaded from the data source.
func (m *Metrics) ObserveBars(n int) { m.BarsTotal.Add(float64(n)) }

// ObserveParity records the batch/reference disagreement of one kernel indicator.
func (m *Metrics) ObserveParity(indicator string, maxRelErr float64) {
	m.ParityMaxErr.WithLabelValues(indicator).Set(maxRelErr)
}

// ErrorKind classifies err for the "kind" label.
func ErrorKind(err error) string {
	var domainErr *series.DomainError
	var numErr *series.NumericError
	switch {
	case errors.As(err, &domainErr):
		return "domain"
	case errors.As(err, &numErr):
		return "numeric"
	}
	return "other"
}

// WriteTextfile writes every collector to path in the text exposition format, for
// the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	m.LastRunUnixTS.SetToCurrentTime()
	return prometheus.WriteToTextfile(path, m.registry)
}

// HealthStatus reports the state of the last run.
type HealthStatus struct {
	mu sync.RWMutex

	LastRunAt  time.Time `json:"last_run_at"`
	LastError  string    `json:"last_error"`
	Indicators int       `json:"indicators"`
	StartedAt  time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

// RecordRun stores the outcome of a run.
func (h *HealthStatus) RecordRun(indicators int, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.LastRunAt = time.Now()
	h.Indicators = indicators
	h.LastError = ""
	if err != nil {
		h.LastError = err.Error()
	}
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	switch {
	case h.LastRunAt.IsZero():
		overallStatus = "starting"
		httpCode = http.StatusServiceUnavailable
	case h.LastError != "":
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}

	status := struct {
		Status     string `json:"status"`
		Uptime     string `json:"uptime"`
		LastRunAt  string `json:"last_run_at"`
		LastError  string `json:"last_error,omitempty"`
		Indicators int    `json:"indicators"`
	}{
		Status:     overallStatus,
		Uptime:     time.Since(h.StartedAt).Round(time.Second).String(),
		LastRunAt:  h.LastRunAt.Format(time.RFC3339),
		LastError:  h.LastError,
		Indicators: h.Indicators,
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, m *Metrics, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		slog.Info("metrics server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
