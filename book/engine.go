package book

import "github.com/ashgrove-systems/itchbook/itch"

// DepthLevel is one price/volume pair in a depth snapshot. A zero Price
// marks a padding entry when a side has fewer than Depth live levels.
type DepthLevel struct {
	Price  uint32
	Volume uint64
}

// Depth is the number of levels carried per side in a snapshot row, fixed
// by the 47-column CSV layout.
const Depth = 10

// Sink receives one depth snapshot per book mutation. Writer is
// the production implementation; tests substitute a slice-recording fake.
type Sink interface {
	Write(timestamp uint64, bids, asks [Depth]DepthLevel) error
}

// Stats tallies engine-level counters beyond the raw message counts itch.Stats
// already tracks: how many in-scope messages were dropped by the symbol
// gate, how many snapshot rows were actually emitted, and how many
// execute/cancel/delete/replace events named a reference number the engine
// never saw (another symbol's order, or one already removed).
type Stats struct {
	SymbolDropped int
	RowsEmitted   int
	MissingRef    int
}

// Engine reconstructs a single symbol's order book from a stream of
// decoded ITCH messages and drives a Sink after every mutating event. It
// implements itch.Handler so it can be passed directly to itch.Walk.
type Engine struct {
	symbol [8]byte
	sink   Sink

	bids *priceTree // descending: highest price first
	asks *priceTree // ascending: lowest price first

	buyOrders  map[uint64]*Order
	sellOrders map[uint64]*Order

	stats Stats
}

var _ itch.Handler = (*Engine)(nil)

// NewEngine creates an Engine tracking symbol (space-padded/truncated to 8
// bytes) and writing every emitted snapshot to sink.
func NewEngine(symbol string, sink Sink) *Engine {
	var padded [8]byte
	for i := range padded {
		padded[i] = ' '
	}
	copy(padded[:], symbol)

	return &Engine{
		symbol:     padded,
		sink:       sink,
		bids:       newPriceTree(true),
		asks:       newPriceTree(false),
		buyOrders:  make(map[uint64]*Order),
		sellOrders: make(map[uint64]*Order),
	}
}

// Stats returns a snapshot of the engine's running counters.
func (e *Engine) Stats() Stats {
	return e.stats
}

// Orders returns a copy of every live order, grouped by side. Callers use
// this to capture a checkpoint; mutating the returned orders has no effect
// on the engine.
func (e *Engine) Orders() (bids, asks []Order) {
	bids = make([]Order, 0, len(e.buyOrders))
	for _, o := range e.buyOrders {
		bids = append(bids, *o)
	}
	asks = make([]Order, 0, len(e.sellOrders))
	for _, o := range e.sellOrders {
		asks = append(asks, *o)
	}
	return bids, asks
}

// Restore repopulates a freshly constructed Engine from a prior
// checkpoint's orders without emitting snapshot rows. It must be called
// before any message reaches the engine.
func (e *Engine) Restore(bids, asks []Order) {
	for _, o := range bids {
		order := o
		e.buyOrders[order.RefNumber] = &order
		addVolume(e.bids, order.Price, uint64(order.Shares))
	}
	for _, o := range asks {
		order := o
		e.sellOrders[order.RefNumber] = &order
		addVolume(e.asks, order.Price, uint64(order.Shares))
	}
}

func (e *Engine) treeFor(side Side) *priceTree {
	if side == Buy {
		return e.bids
	}
	return e.asks
}

func (e *Engine) ordersFor(side Side) map[uint64]*Order {
	if side == Buy {
		return e.buyOrders
	}
	return e.sellOrders
}

// lookup finds an order by reference number, checking the Buy map before
// Sell, matching the source's lookup order (see the open question on id
// lookup across sides).
func (e *Engine) lookup(ref uint64) (*Order, Side) {
	if o, ok := e.buyOrders[ref]; ok {
		return o, Buy
	}
	if o, ok := e.sellOrders[ref]; ok {
		return o, Sell
	}
	return nil, Buy
}

func addVolume(tree *priceTree, price uint32, amount uint64) {
	level := tree.Find(price)
	if level == nil {
		level = &levelNode{Price: price}
		tree.Insert(level)
	}
	level.Volume += amount
}

// removeVolume saturates at zero and prunes the level once its volume
// reaches zero, matching the saturating-decrement requirement on every
// level/order quantity.
func removeVolume(tree *priceTree, price uint32, amount uint64) {
	level := tree.Find(price)
	if level == nil {
		return
	}
	if amount >= level.Volume {
		tree.Remove(price)
		return
	}
	level.Volume -= amount
}

func saturatingSubU32(a, b uint32) uint32 {
	if b >= a {
		return 0
	}
	return a - b
}

// add inserts a new order and emits one snapshot row.
func (e *Engine) add(ref uint64, side Side, shares uint32, price uint32, timestamp uint64) error {
	order := &Order{RefNumber: ref, Timestamp: timestamp, Price: price, Shares: shares, Side: side}
	e.ordersFor(side)[ref] = order
	addVolume(e.treeFor(side), price, uint64(shares))
	return e.emitSnapshot(timestamp)
}

// decrementOrder applies a saturating reduction of amount shares to the
// order identified by ref (execute, execute-with-price, and cancel all
// share this procedure) and emits one snapshot row. A missing reference is
// not an error: it means the order belongs to another symbol or was
// already removed.
func (e *Engine) decrementOrder(ref uint64, amount uint32, timestamp uint64) error {
	order, side := e.lookup(ref)
	if order == nil {
		e.stats.MissingRef++
		return nil
	}

	remaining := saturatingSubU32(order.Shares, amount)
	removed := uint64(order.Shares - remaining)
	order.Shares = remaining

	removeVolume(e.treeFor(side), order.Price, removed)

	if order.Shares == 0 {
		delete(e.ordersFor(side), ref)
	}

	return e.emitSnapshot(timestamp)
}

// deleteOrder removes ref entirely and emits one snapshot row.
func (e *Engine) deleteOrder(ref uint64, timestamp uint64) error {
	order, side := e.lookup(ref)
	if order == nil {
		e.stats.MissingRef++
		return nil
	}

	removeVolume(e.treeFor(side), order.Price, uint64(order.Shares))
	delete(e.ordersFor(side), ref)

	return e.emitSnapshot(timestamp)
}

// replaceOrder removes originalRef (if present) and re-adds under newRef
// with the replacement's price/shares, emitting exactly one row (the
// re-add's, never two).
func (e *Engine) replaceOrder(originalRef, newRef uint64, shares, price uint32, timestamp uint64) error {
	order, side := e.lookup(originalRef)
	if order == nil {
		e.stats.MissingRef++
		return nil
	}

	removeVolume(e.treeFor(side), order.Price, uint64(order.Shares))
	delete(e.ordersFor(side), originalRef)

	return e.add(newRef, side, shares, price, timestamp)
}

func (e *Engine) symbolMatches(stock [8]byte) bool {
	return stock == e.symbol
}

func (e *Engine) emitSnapshot(timestamp uint64) error {
	var bids, asks [Depth]DepthLevel

	extracted := e.bids.Top(Depth, make([]levelNode, 0, Depth))
	for i, lvl := range extracted {
		bids[i] = DepthLevel{Price: lvl.Price, Volume: lvl.Volume}
	}
	extracted = e.asks.Top(Depth, make([]levelNode, 0, Depth))
	for i, lvl := range extracted {
		asks[i] = DepthLevel{Price: lvl.Price, Volume: lvl.Volume}
	}

	e.stats.RowsEmitted++
	return e.sink.Write(timestamp, bids, asks)
}

// OnAddOrder implements itch.Handler.
func (e *Engine) OnAddOrder(msg itch.AddOrderMessage) error {
	if !e.symbolMatches(msg.Stock) {
		e.stats.SymbolDropped++
		return nil
	}
	return e.add(msg.OrderReferenceNumber, sideFromIndicator(msg.BuySellIndicator), msg.Shares, msg.Price, msg.Timestamp)
}

// OnAddOrderMPID implements itch.Handler. The attribution field is decoded
// by the walker but never consulted here.
func (e *Engine) OnAddOrderMPID(msg itch.AddOrderMPIDMessage) error {
	if !e.symbolMatches(msg.Stock) {
		e.stats.SymbolDropped++
		return nil
	}
	return e.add(msg.OrderReferenceNumber, sideFromIndicator(msg.BuySellIndicator), msg.Shares, msg.Price, msg.Timestamp)
}

// OnOrderExecuted implements itch.Handler.
func (e *Engine) OnOrderExecuted(msg itch.OrderExecutedMessage) error {
	return e.decrementOrder(msg.OrderReferenceNumber, msg.ExecutedShares, msg.Timestamp)
}

// OnOrderExecutedWithPrice implements itch.Handler. The print price never
// writes back to the resting order's price, matching ITCH semantics: it is
// a trade print, not a re-price.
func (e *Engine) OnOrderExecutedWithPrice(msg itch.OrderExecutedWithPriceMessage) error {
	return e.decrementOrder(msg.OrderReferenceNumber, msg.ExecutedShares, msg.Timestamp)
}

// OnOrderCancel implements itch.Handler.
func (e *Engine) OnOrderCancel(msg itch.OrderCancelMessage) error {
	return e.decrementOrder(msg.OrderReferenceNumber, msg.CanceledShares, msg.Timestamp)
}

// OnOrderDelete implements itch.Handler.
func (e *Engine) OnOrderDelete(msg itch.OrderDeleteMessage) error {
	return e.deleteOrder(msg.OrderReferenceNumber, msg.Timestamp)
}

// OnOrderReplace implements itch.Handler.
func (e *Engine) OnOrderReplace(msg itch.OrderReplaceMessage) error {
	return e.replaceOrder(msg.OriginalOrderReferenceNumber, msg.NewOrderReferenceNumber, msg.Shares, msg.Price, msg.Timestamp)
}

// OnTrade implements itch.Handler. Trades never mutate the book: the feed
// already supplies the matching execute events.
func (e *Engine) OnTrade(msg itch.TradeMessage) error {
	if !e.symbolMatches(msg.Stock) {
		e.stats.SymbolDropped++
	}
	return nil
}

// OnUnknownMessage implements itch.Handler; administrative message classes
// never reach the book.
func (e *Engine) OnUnknownMessage(msgType byte, payload []byte) error {
	return nil
}
