// Package metrics exposes the book reconstructor's running counters as
// Prometheus metrics: the externally-observable form of the "Statistics &
// finalize" component, additive to the stdout summary and log line.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every counter/gauge this process exports. The zero value is
// not usable; construct one with New.
type Metrics struct {
	registry *prometheus.Registry

	MessagesByType  *prometheus.CounterVec
	RowsEmitted     prometheus.Counter
	SymbolDropped   prometheus.Counter
	MissingRef      prometheus.Counter
	TradePrintPrice prometheus.Histogram
	Throughput      prometheus.Gauge
}

// New creates a Metrics bound to a fresh registry, labeled with symbol so
// multiple runs scraped by the same Prometheus instance stay distinguishable.
func New(symbol string) *Metrics {
	reg := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"symbol": symbol}

	m := &Metrics{
		registry: reg,
		MessagesByType: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "itchbook",
			Name:        "messages_total",
			Help:        "ITCH messages dispatched by the feed walker, by message type tag.",
			ConstLabels: constLabels,
		}, []string{"type"}),
		RowsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "itchbook",
			Name:        "snapshot_rows_total",
			Help:        "Depth-10 snapshot rows written to the CSV sink.",
			ConstLabels: constLabels,
		}),
		SymbolDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "itchbook",
			Name:        "symbol_dropped_total",
			Help:        "In-scope messages dropped because they named a different symbol.",
			ConstLabels: constLabels,
		}),
		MissingRef: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "itchbook",
			Name:        "missing_reference_total",
			Help:        "Execute/cancel/delete/replace events naming an order reference the book never saw.",
			ConstLabels: constLabels,
		}),
		TradePrintPrice: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "itchbook",
			Name:        "trade_print_price",
			Help:        "Execution price (scaled price, /10000 for dollars) observed on OrderExecutedWithPrice prints. Never written back to the resting order.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(1000, 2, 16),
		}),
		Throughput: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "itchbook",
			Name:        "throughput_messages_per_second",
			Help:        "Messages processed per second, sampled every 5s.",
			ConstLabels: constLabels,
		}),
	}

	reg.MustRegister(m.MessagesByType, m.RowsEmitted, m.SymbolDropped, m.MissingRef, m.TradePrintPrice, m.Throughput)
	return m
}

// Serve starts an HTTP server exposing /metrics on addr. The caller owns
// the returned server's lifetime via Shutdown.
func (m *Metrics) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return &http.Server{Addr: addr, Handler: mux}
}

// SampleThroughput starts a background goroutine that recomputes the
// throughput gauge from count every 5 seconds until ctx is cancelled.
func (m *Metrics) SampleThroughput(ctx context.Context, count func() uint64) {
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		last := count()
		lastAt := time.Now()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				current := count()
				elapsed := now.Sub(lastAt).Seconds()
				if elapsed > 0 {
					m.Throughput.Set(float64(current-last) / elapsed)
				}
				last = current
				lastAt = now
			}
		}
	}()
}
