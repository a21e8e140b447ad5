// Package metrics records gateway activity as Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spicewise"

// Recorder implements llm.Recorder.
type Recorder struct {
	attempts *prometheus.CounterVec
	retries  *prometheus.CounterVec
	results  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	backoff  prometheus.Histogram
}

// NewRecorder registers the gateway collectors with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		attempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_attempts_total",
				Help:      "Total number of model requests sent, by outcome",
			},
			[]string{"outcome"},
		),
		retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_retries_total",
				Help:      "Total number of scheduled retries, by the outcome that caused them",
			},
			[]string{"outcome"},
		),
		results: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_requests_total",
				Help:      "Total number of gateway calls, by final outcome",
			},
			[]string{"outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_attempt_duration_seconds",
				Help:      "Duration of individual model requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		backoff: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_backoff_seconds",
				Help:      "Backoff delays scheduled between attempts in seconds",
				Buckets:   []float64{1, 2, 4, 8},
			},
		),
	}
}

// ObserveAttempt records one send.
func (r *Recorder) ObserveAttempt(outcome string, duration time.Duration) {
	r.attempts.WithLabelValues(outcome).Inc()
	r.duration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveRetry records one scheduled retry.
func (r *Recorder) ObserveRetry(outcome string, delay time.Duration) {
	r.retries.WithLabelValues(outcome).Inc()
	r.backoff.Observe(delay.Seconds())
}

// ObserveResult records the final outcome of a gateway call.
func (r *Recorder) ObserveResult(outcome string) {
	r.results.WithLabelValues(outcome).Inc()
}

// Serve exposes gatherer on addr at /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	slog.Info("serving metrics", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
