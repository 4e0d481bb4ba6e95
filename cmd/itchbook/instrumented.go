package main

import (
	"github.com/ashgrove-systems/itchbook/book"
	"github.com/ashgrove-systems/itchbook/internal/metrics"
	"github.com/ashgrove-systems/itchbook/itch"
)

// instrumentedHandler wraps an Engine so every dispatched message is
// tallied by type on the Prometheus counters, in addition to driving the
// book. It is only used when --metrics-addr is set; otherwise the bare
// Engine is handed to combinedHandler in its place.
type instrumentedHandler struct {
	*book.Engine
	metrics *metrics.Metrics
}

var _ itch.Handler = (*instrumentedHandler)(nil)

func (h *instrumentedHandler) OnAddOrder(msg itch.AddOrderMessage) error {
	h.metrics.MessagesByType.WithLabelValues("A").Inc()
	return h.Engine.OnAddOrder(msg)
}

func (h *instrumentedHandler) OnAddOrderMPID(msg itch.AddOrderMPIDMessage) error {
	h.metrics.MessagesByType.WithLabelValues("F").Inc()
	return h.Engine.OnAddOrderMPID(msg)
}

func (h *instrumentedHandler) OnOrderExecuted(msg itch.OrderExecutedMessage) error {
	h.metrics.MessagesByType.WithLabelValues("E").Inc()
	return h.Engine.OnOrderExecuted(msg)
}

func (h *instrumentedHandler) OnOrderExecutedWithPrice(msg itch.OrderExecutedWithPriceMessage) error {
	h.metrics.MessagesByType.WithLabelValues("C").Inc()
	h.metrics.TradePrintPrice.Observe(float64(msg.ExecutionPrice))
	return h.Engine.OnOrderExecutedWithPrice(msg)
}

func (h *instrumentedHandler) OnOrderCancel(msg itch.OrderCancelMessage) error {
	h.metrics.MessagesByType.WithLabelValues("X").Inc()
	return h.Engine.OnOrderCancel(msg)
}

func (h *instrumentedHandler) OnOrderDelete(msg itch.OrderDeleteMessage) error {
	h.metrics.MessagesByType.WithLabelValues("D").Inc()
	return h.Engine.OnOrderDelete(msg)
}

func (h *instrumentedHandler) OnOrderReplace(msg itch.OrderReplaceMessage) error {
	h.metrics.MessagesByType.WithLabelValues("U").Inc()
	return h.Engine.OnOrderReplace(msg)
}

func (h *instrumentedHandler) OnTrade(msg itch.TradeMessage) error {
	h.metrics.MessagesByType.WithLabelValues("P").Inc()
	return h.Engine.OnTrade(msg)
}

func (h *instrumentedHandler) OnUnknownMessage(msgType byte, payload []byte) error {
	h.metrics.MessagesByType.WithLabelValues(string(rune(msgType))).Inc()
	return h.Engine.OnUnknownMessage(msgType, payload)
}
