package itch

// Stats tallies messages seen by type, independent of any book engine.
type Stats struct {
	AddOrders              int
	AddOrderMPID           int
	OrderExecuted          int
	OrderExecutedWithPrice int
	OrderCancels           int
	OrderDeletes           int
	OrderReplaces          int
	Trades                 int
	UnknownMessages        int
}

// Total returns the sum of every counter.
func (s Stats) Total() int {
	return s.AddOrders + s.AddOrderMPID + s.OrderExecuted + s.OrderExecutedWithPrice +
		s.OrderCancels + s.OrderDeletes + s.OrderReplaces + s.Trades + s.UnknownMessages
}

// StatsHandler is a Handler that only counts messages; embed it to collect
// statistics alongside another Handler's side effects.
type StatsHandler struct {
	DefaultHandler
	Stats Stats
}

func (h *StatsHandler) OnAddOrder(msg AddOrderMessage) error {
	h.Stats.AddOrders++
	return nil
}

func (h *StatsHandler) OnAddOrderMPID(msg AddOrderMPIDMessage) error {
	h.Stats.AddOrderMPID++
	return nil
}

func (h *StatsHandler) OnOrderExecuted(msg OrderExecutedMessage) error {
	h.Stats.OrderExecuted++
	return nil
}

func (h *StatsHandler) OnOrderExecutedWithPrice(msg OrderExecutedWithPriceMessage) error {
	h.Stats.OrderExecutedWithPrice++
	return nil
}

func (h *StatsHandler) OnOrderCancel(msg OrderCancelMessage) error {
	h.Stats.OrderCancels++
	return nil
}

func (h *StatsHandler) OnOrderDelete(msg OrderDeleteMessage) error {
	h.Stats.OrderDeletes++
	return nil
}

func (h *StatsHandler) OnOrderReplace(msg OrderReplaceMessage) error {
	h.Stats.OrderReplaces++
	return nil
}

func (h *StatsHandler) OnTrade(msg TradeMessage) error {
	h.Stats.Trades++
	return nil
}

func (h *StatsHandler) OnUnknownMessage(msgType byte, payload []byte) error {
	h.Stats.UnknownMessages++
	return nil
}
