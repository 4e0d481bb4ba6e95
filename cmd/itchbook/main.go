// Command itchbook reconstructs a single symbol's limit order book from a
// recorded NASDAQ TotalView-ITCH 5.0 feed and writes a depth-10 snapshot,
// as CSV, after every state-changing event.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/exp/mmap"

	"github.com/ashgrove-systems/itchbook/book"
	"github.com/ashgrove-systems/itchbook/internal/broadcast"
	"github.com/ashgrove-systems/itchbook/internal/metrics"
	"github.com/ashgrove-systems/itchbook/itch"
	"github.com/ashgrove-systems/itchbook/persistence"
)

type config struct {
	input           string
	symbol          string
	output          string
	checkpointDir   string
	checkpointEvery uint64
	broadcastAddr   string
	metricsAddr     string
	verbose         bool
}

func main() {
	cfg := &config{}

	root := &cobra.Command{
		Use:   "itchbook",
		Short: "Reconstruct a single-symbol limit order book from an ITCH 5.0 feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfg.input, "input", "", "path to the ITCH 5.0 feed file (required)")
	flags.StringVar(&cfg.symbol, "symbol", "", "1-8 ASCII character symbol to track (required)")
	flags.StringVar(&cfg.output, "output", "", "CSV output path, truncated on open (required)")
	flags.StringVar(&cfg.checkpointDir, "checkpoint-dir", "", "directory for periodic book checkpoints (optional)")
	flags.Uint64Var(&cfg.checkpointEvery, "checkpoint-every", 5_000_000, "messages between checkpoints")
	flags.StringVar(&cfg.broadcastAddr, "broadcast-addr", "", "if set, serve the snapshot CSV as WebSocket JSON on this address")
	flags.StringVar(&cfg.metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address")
	flags.BoolVar(&cfg.verbose, "verbose", false, "enable debug-level logging")
	_ = root.MarkFlagRequired("input")
	_ = root.MarkFlagRequired("symbol")
	_ = root.MarkFlagRequired("output")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("itchbook failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config) error {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
	if cfg.verbose {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader, err := mmap.Open(cfg.input)
	if err != nil {
		return fmt.Errorf("itchbook: mapping input file: %w", err)
	}
	defer reader.Close()

	// The mmap.ReaderAt API only exposes a random-access reader, not a raw
	// slice; the walker needs a contiguous []byte to decode frames without
	// copying per message, so the mapped pages are bulk-copied into one
	// buffer here. See DESIGN.md for why this library was kept anyway.
	data := make([]byte, reader.Len())
	if _, err := reader.ReadAt(data, 0); err != nil {
		return fmt.Errorf("itchbook: reading mapped input: %w", err)
	}

	outFile, err := os.Create(cfg.output)
	if err != nil {
		return fmt.Errorf("itchbook: creating output file: %w", err)
	}
	defer outFile.Close()

	writer, err := book.NewWriter(outFile)
	if err != nil {
		return fmt.Errorf("itchbook: writing CSV header: %w", err)
	}

	engine := book.NewEngine(cfg.symbol, writer)

	var metricsReg *metrics.Metrics
	var messagesWalked atomic.Uint64
	if cfg.metricsAddr != "" {
		metricsReg = metrics.New(cfg.symbol)
		srv := metricsReg.Serve(cfg.metricsAddr)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		defer srv.Shutdown(context.Background())
		metricsReg.SampleThroughput(ctx, messagesWalked.Load)
	}

	var handler itch.Handler = engine
	if metricsReg != nil {
		handler = &instrumentedHandler{Engine: engine, metrics: metricsReg}
	}
	msgStats := &itch.StatsHandler{}
	handler = &combinedHandler{book: handler, stats: msgStats}

	var checkpointer *persistence.Snapshotter
	var startOffset int
	if cfg.checkpointDir != "" {
		checkpointer, err = persistence.NewSnapshotter(cfg.checkpointDir)
		if err != nil {
			return fmt.Errorf("itchbook: opening checkpoint dir: %w", err)
		}
		startOffset, err = resumeFromCheckpoint(checkpointer, engine, cfg.symbol, logger)
		if err != nil {
			return fmt.Errorf("itchbook: resuming from checkpoint: %w", err)
		}
	}

	if cfg.broadcastAddr != "" {
		bserver := broadcast.NewServer(cfg.output, logger)
		mux := http.NewServeMux()
		mux.HandleFunc("/stream", bserver.ServeHTTP)
		srv := &http.Server{Addr: cfg.broadcastAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("broadcast server stopped")
			}
		}()
		go bserver.Run(ctx)
		defer srv.Shutdown(context.Background())
	}

	start := time.Now()
	var lastCount uint64
	var syncer statSyncer

	progress := func(offset int, count uint64) {
		total := count
		messagesWalked.Store(total)
		if total%10_000_000 == 0 {
			elapsed := time.Since(start)
			logger.Info().
				Uint64("messages", total).
				Dur("elapsed", elapsed).
				Float64("msgs_per_sec", float64(total)/elapsed.Seconds()).
				Msg("throughput")
		}
		if checkpointer != nil && total-lastCount >= cfg.checkpointEvery {
			lastCount = total
			if err := saveCheckpoint(checkpointer, engine, cfg.symbol, offset, total); err != nil {
				logger.Error().Err(err).Msg("checkpoint save failed")
			}
		}
		if metricsReg != nil {
			syncer.sync(metricsReg, engine)
		}
	}

	if err := itch.WalkFrom(data, startOffset, handler, progress); err != nil {
		return fmt.Errorf("itchbook: walking feed: %w", err)
	}

	if err := writer.Finalize(); err != nil {
		return fmt.Errorf("itchbook: flushing output: %w", err)
	}

	if metricsReg != nil {
		syncer.sync(metricsReg, engine)
	}

	stats := engine.Stats()
	logger.Info().
		Int("rows_emitted", stats.RowsEmitted).
		Int("symbol_dropped", stats.SymbolDropped).
		Int("missing_ref", stats.MissingRef).
		Dur("elapsed", time.Since(start)).
		Msg("done")

	msgTotals := msgStats.Stats
	logger.Info().
		Int("add_orders", msgTotals.AddOrders).
		Int("add_orders_mpid", msgTotals.AddOrderMPID).
		Int("executed", msgTotals.OrderExecuted).
		Int("executed_with_price", msgTotals.OrderExecutedWithPrice).
		Int("cancels", msgTotals.OrderCancels).
		Int("deletes", msgTotals.OrderDeletes).
		Int("replaces", msgTotals.OrderReplaces).
		Int("trades", msgTotals.Trades).
		Int("unknown", msgTotals.UnknownMessages).
		Int("total", msgTotals.Total()).
		Msg("message breakdown")

	return nil
}

// statSyncer copies an Engine's running counters onto the Prometheus
// counters that mirror them; the engine itself has no Prometheus
// dependency. Prometheus counters only support monotonic Add, so the
// syncer tracks the last value it pushed.
type statSyncer struct {
	rowsEmitted   int
	symbolDropped int
	missingRef    int
}

func (s *statSyncer) sync(m *metrics.Metrics, engine *book.Engine) {
	stats := engine.Stats()
	m.RowsEmitted.Add(float64(stats.RowsEmitted - s.rowsEmitted))
	s.rowsEmitted = stats.RowsEmitted
	m.SymbolDropped.Add(float64(stats.SymbolDropped - s.symbolDropped))
	s.symbolDropped = stats.SymbolDropped
	m.MissingRef.Add(float64(stats.MissingRef - s.missingRef))
	s.missingRef = stats.MissingRef
}

// resumeFromCheckpoint loads the most recent checkpoint matching symbol (if
// any), restores engine from it, and returns the byte offset to resume the
// walk from.
func resumeFromCheckpoint(sp *persistence.Snapshotter, engine *book.Engine, symbol string, logger zerolog.Logger) (int, error) {
	snap, err := sp.LoadLatest()
	if err != nil {
		return 0, err
	}
	if snap == nil {
		return 0, nil
	}
	if paddedSymbol(snap.Symbol[:]) != paddedSymbol([]byte(symbol)) {
		logger.Warn().Msg("checkpoint is for a different symbol, ignoring it")
		return 0, nil
	}

	bids := make([]book.Order, 0, len(snap.Bids))
	for _, r := range snap.Bids {
		bids = append(bids, book.Order{RefNumber: r.RefNumber, Timestamp: r.Timestamp, Price: r.Price, Shares: r.Shares, Side: book.Buy})
	}
	asks := make([]book.Order, 0, len(snap.Asks))
	for _, r := range snap.Asks {
		asks = append(asks, book.Order{RefNumber: r.RefNumber, Timestamp: r.Timestamp, Price: r.Price, Shares: r.Shares, Side: book.Sell})
	}
	engine.Restore(bids, asks)

	logger.Info().Int64("offset", snap.Offset).Uint64("messages", snap.Messages).Msg("resumed from checkpoint")
	return int(snap.Offset), nil
}

func saveCheckpoint(sp *persistence.Snapshotter, engine *book.Engine, symbol string, offset int, messages uint64) error {
	bids, asks := engine.Orders()

	toRecords := func(orders []book.Order) []persistence.OrderRecord {
		records := make([]persistence.OrderRecord, len(orders))
		for i, o := range orders {
			records[i] = persistence.OrderRecord{RefNumber: o.RefNumber, Timestamp: o.Timestamp, Price: o.Price, Shares: o.Shares}
		}
		return records
	}

	var sym [8]byte
	copy(sym[:], paddedSymbol([]byte(symbol)))

	return sp.Save(persistence.BookSnapshot{
		Timestamp: time.Now().UnixNano(),
		Symbol:    sym,
		Offset:    int64(offset),
		Messages:  messages,
		Bids:      toRecords(bids),
		Asks:      toRecords(asks),
	})
}

func paddedSymbol(b []byte) string {
	var padded [8]byte
	for i := range padded {
		padded[i] = ' '
	}
	copy(padded[:], b)
	return string(padded[:])
}
