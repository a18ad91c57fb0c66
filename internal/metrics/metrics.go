// Package metrics exposes operation counts and latencies for the FUSE
// adapter as Prometheus metrics. It is purely diagnostic: internal/fs calls
// Track from its callbacks, but no filesystem behavior depends on the
// result, and the HTTP endpoint may be left disabled (the default) with no
// change in filesystem behavior.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	opsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "joplinfs_ops_total",
		Help: "Total number of filesystem operations, by op and outcome.",
	}, []string{"op", "outcome"})

	opsLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "joplinfs_ops_latency_seconds",
		Help:    "Latency of filesystem operations, by op.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

// Track records one operation's outcome and latency. Call it with defer at
// the top of a fuseutil.FileSystem method:
//
//	defer metrics.Track("ReadFile", time.Now())(&err)
func Track(op string, start time.Time) func(err *error) {
	return func(err *error) {
		outcome := "ok"
		if err != nil && *err != nil {
			outcome = "error"
		}
		opsTotal.WithLabelValues(op, outcome).Inc()
		opsLatencySeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

// Serve starts a minimal HTTP server exposing /metrics on addr and blocks
// until ctx is done or the server fails. Callers run it in its own
// goroutine.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
