package main

import "github.com/ashgrove-systems/itchbook/itch"

// combinedHandler drives both the book-mutating handler (either the bare
// Engine or its metrics-instrumented wrapper) and an itch.StatsHandler, so
// the run's final summary can report per-message-type counts alongside the
// book engine's own rows-emitted/symbol-dropped/missing-ref counters.
type combinedHandler struct {
	book  itch.Handler
	stats *itch.StatsHandler
}

var _ itch.Handler = (*combinedHandler)(nil)

func (h *combinedHandler) OnAddOrder(msg itch.AddOrderMessage) error {
	_ = h.stats.OnAddOrder(msg)
	return h.book.OnAddOrder(msg)
}

func (h *combinedHandler) OnAddOrderMPID(msg itch.AddOrderMPIDMessage) error {
	_ = h.stats.OnAddOrderMPID(msg)
	return h.book.OnAddOrderMPID(msg)
}

func (h *combinedHandler) OnOrderExecuted(msg itch.OrderExecutedMessage) error {
	_ = h.stats.OnOrderExecuted(msg)
	return h.book.OnOrderExecuted(msg)
}

func (h *combinedHandler) OnOrderExecutedWithPrice(msg itch.OrderExecutedWithPriceMessage) error {
	_ = h.stats.OnOrderExecutedWithPrice(msg)
	return h.book.OnOrderExecutedWithPrice(msg)
}

func (h *combinedHandler) OnOrderCancel(msg itch.OrderCancelMessage) error {
	_ = h.stats.OnOrderCancel(msg)
	return h.book.OnOrderCancel(msg)
}

func (h *combinedHandler) OnOrderDelete(msg itch.OrderDeleteMessage) error {
	_ = h.stats.OnOrderDelete(msg)
	return h.book.OnOrderDelete(msg)
}

func (h *combinedHandler) OnOrderReplace(msg itch.OrderReplaceMessage) error {
	_ = h.stats.OnOrderReplace(msg)
	return h.book.OnOrderReplace(msg)
}

func (h *combinedHandler) OnTrade(msg itch.TradeMessage) error {
	_ = h.stats.OnTrade(msg)
	return h.book.OnTrade(msg)
}

func (h *combinedHandler) OnUnknownMessage(msgType byte, payload []byte) error {
	_ = h.stats.OnUnknownMessage(msgType, payload)
	return h.book.OnUnknownMessage(msgType, payload)
}
