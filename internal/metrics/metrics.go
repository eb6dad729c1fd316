// Package metrics exports simulation and supervisor counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/solsim/pkg/domain"
)

// Collector holds the solsim collectors.
type Collector struct {
	steps        prometheus.Counter
	runs         *prometheus.CounterVec
	stepDuration prometheus.Histogram
	terminations *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "solsim_steps_total",
			Help: "Total number of simulation steps recorded",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solsim_runs_total",
			Help: "Total number of finished runs by outcome",
		}, []string{"outcome"}),
		stepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "solsim_step_duration_seconds",
			Help:    "Duration of single simulation steps",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		terminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solsim_process_terminations_total",
			Help: "Process tree terminations by the phase that ended them",
		}, []string{"phase"}),
	}
	for _, col := range []prometheus.Collector{c.steps, c.runs, c.stepDuration, c.terminations} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Hooks returns engine hooks feeding the collectors.
func (c *Collector) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStep: func(_ context.Context, e *domain.StepEvent) {
			c.steps.Inc()
			c.stepDuration.Observe(e.Duration.Seconds())
		},
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			outcome := "success"
			if e.Err != nil {
				outcome = "failure"
			}
			c.runs.WithLabelValues(outcome).Inc()
		},
	}
}

// ObserveTermination counts a finished process tree termination.
func (c *Collector) ObserveTermination(phase string) {
	c.terminations.WithLabelValues(phase).Inc()
}

// Handler serves /metrics for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return r
}

// Serve exposes handler on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting metrics server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
