package book

import (
	"testing"

	"github.com/ashgrove-systems/itchbook/itch"
)

type recordedRow struct {
	timestamp uint64
	bids      [Depth]DepthLevel
	asks      [Depth]DepthLevel
}

type recordingSink struct {
	rows []recordedRow
}

func (s *recordingSink) Write(timestamp uint64, bids, asks [Depth]DepthLevel) error {
	s.rows = append(s.rows, recordedRow{timestamp: timestamp, bids: bids, asks: asks})
	return nil
}

func stock(symbol string) [8]byte {
	var s [8]byte
	for i := range s {
		s[i] = ' '
	}
	copy(s[:], symbol)
	return s
}

// Scenario 1: single add.
func TestEngine_SingleAdd(t *testing.T) {
	sink := &recordingSink{}
	e := NewEngine("INTC", sink)

	err := e.OnAddOrder(itch.AddOrderMessage{
		Timestamp: 1, OrderReferenceNumber: 1, BuySellIndicator: 'B', Shares: 100,
		Stock: stock("INTC"), Price: 500000,
	})
	if err != nil {
		t.Fatalf("OnAddOrder: %v", err)
	}
	if len(sink.rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(sink.rows))
	}
	row := sink.rows[0]
	if row.bids[0].Price != 500000 || row.bids[0].Volume != 100 {
		t.Errorf("unexpected bid level: %+v", row.bids[0])
	}
	if row.asks[0].Price != 0 {
		t.Errorf("expected empty ask side, got %+v", row.asks[0])
	}
}

// Scenario 2: add then partial cancel.
func TestEngine_AddThenCancelPartial(t *testing.T) {
	sink := &recordingSink{}
	e := NewEngine("INTC", sink)

	mustOK(t, e.OnAddOrder(itch.AddOrderMessage{
		OrderReferenceNumber: 1, BuySellIndicator: 'B', Shares: 100, Stock: stock("INTC"), Price: 500000,
	}))
	mustOK(t, e.OnOrderCancel(itch.OrderCancelMessage{OrderReferenceNumber: 1, CanceledShares: 30}))

	if len(sink.rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(sink.rows))
	}
	if got := sink.rows[1].bids[0].Volume; got != 70 {
		t.Errorf("expected remaining volume 70, got %d", got)
	}
}

// Scenario 3: add then full execute.
func TestEngine_AddThenFullExecute(t *testing.T) {
	sink := &recordingSink{}
	e := NewEngine("INTC", sink)

	mustOK(t, e.OnAddOrder(itch.AddOrderMessage{
		OrderReferenceNumber: 1, BuySellIndicator: 'B', Shares: 100, Stock: stock("INTC"), Price: 500000,
	}))
	mustOK(t, e.OnOrderExecuted(itch.OrderExecutedMessage{OrderReferenceNumber: 1, ExecutedShares: 100}))

	row := sink.rows[1]
	for i := 0; i < Depth; i++ {
		if row.bids[i] != (DepthLevel{}) || row.asks[i] != (DepthLevel{}) {
			t.Fatalf("expected all-zero depth after full execute, got bids=%+v asks=%+v", row.bids, row.asks)
		}
	}
	if _, ok := e.buyOrders[1]; ok {
		t.Error("expected order removed after shares reached zero")
	}
}

// Scenario 4: two-level bid.
func TestEngine_TwoLevelBid(t *testing.T) {
	sink := &recordingSink{}
	e := NewEngine("INTC", sink)

	mustOK(t, e.OnAddOrder(itch.AddOrderMessage{
		OrderReferenceNumber: 1, BuySellIndicator: 'B', Shares: 50, Stock: stock("INTC"), Price: 500000,
	}))
	mustOK(t, e.OnAddOrder(itch.AddOrderMessage{
		OrderReferenceNumber: 2, BuySellIndicator: 'B', Shares: 70, Stock: stock("INTC"), Price: 499900,
	}))

	row := sink.rows[1]
	if row.bids[0] != (DepthLevel{Price: 500000, Volume: 50}) {
		t.Errorf("unexpected top bid: %+v", row.bids[0])
	}
	if row.bids[1] != (DepthLevel{Price: 499900, Volume: 70}) {
		t.Errorf("unexpected second bid: %+v", row.bids[1])
	}
}

// Scenario 5: replace emits exactly one row.
func TestEngine_Replace(t *testing.T) {
	sink := &recordingSink{}
	e := NewEngine("INTC", sink)

	mustOK(t, e.OnAddOrder(itch.AddOrderMessage{
		OrderReferenceNumber: 1, BuySellIndicator: 'B', Shares: 100, Stock: stock("INTC"), Price: 500000,
	}))
	mustOK(t, e.OnOrderReplace(itch.OrderReplaceMessage{
		OriginalOrderReferenceNumber: 1, NewOrderReferenceNumber: 2, Shares: 80, Price: 499800,
	}))

	if len(sink.rows) != 2 {
		t.Fatalf("expected exactly 2 rows total (1 add + 1 replace), got %d", len(sink.rows))
	}
	row := sink.rows[1]
	if row.bids[0] != (DepthLevel{Price: 499800, Volume: 80}) {
		t.Errorf("unexpected post-replace top bid: %+v", row.bids[0])
	}
	if _, ok := e.buyOrders[1]; ok {
		t.Error("expected original ref removed after replace")
	}
	if o, ok := e.buyOrders[2]; !ok || o.Price != 499800 {
		t.Error("expected new ref live with replacement price")
	}
}

// Scenario 6: out-of-symbol add is dropped before any mutation.
func TestEngine_OutOfSymbolDropped(t *testing.T) {
	sink := &recordingSink{}
	e := NewEngine("INTC", sink)

	mustOK(t, e.OnAddOrder(itch.AddOrderMessage{
		OrderReferenceNumber: 1, BuySellIndicator: 'B', Shares: 100, Stock: stock("AAPL"), Price: 500000,
	}))

	if len(sink.rows) != 0 {
		t.Fatalf("expected no rows emitted for out-of-symbol order, got %d", len(sink.rows))
	}
	if e.Stats().SymbolDropped != 1 {
		t.Errorf("expected 1 symbol-dropped counted, got %d", e.Stats().SymbolDropped)
	}
}

func TestEngine_DeleteIsIdempotentOnAbsentRef(t *testing.T) {
	sink := &recordingSink{}
	e := NewEngine("INTC", sink)

	if err := e.OnOrderDelete(itch.OrderDeleteMessage{OrderReferenceNumber: 999}); err != nil {
		t.Fatalf("OnOrderDelete on absent ref: %v", err)
	}
	if len(sink.rows) != 0 {
		t.Errorf("expected no row emitted for a delete of a never-seen ref, got %d", len(sink.rows))
	}
	if e.Stats().MissingRef != 1 {
		t.Errorf("expected 1 missing-reference drop counted, got %d", e.Stats().MissingRef)
	}
}

func TestEngine_SaturatingExecuteBeyondRemainingShares(t *testing.T) {
	sink := &recordingSink{}
	e := NewEngine("INTC", sink)

	mustOK(t, e.OnAddOrder(itch.AddOrderMessage{
		OrderReferenceNumber: 1, BuySellIndicator: 'B', Shares: 100, Stock: stock("INTC"), Price: 500000,
	}))
	mustOK(t, e.OnOrderExecuted(itch.OrderExecutedMessage{OrderReferenceNumber: 1, ExecutedShares: 500}))

	if sink.rows[1].bids[0].Volume != 0 {
		t.Errorf("expected saturated volume 0, got %d", sink.rows[1].bids[0].Volume)
	}
	if _, ok := e.buyOrders[1]; ok {
		t.Error("expected order removed after saturating to zero")
	}
}

func TestEngine_TradeNeverMutatesBook(t *testing.T) {
	sink := &recordingSink{}
	e := NewEngine("INTC", sink)

	mustOK(t, e.OnAddOrder(itch.AddOrderMessage{
		OrderReferenceNumber: 1, BuySellIndicator: 'B', Shares: 100, Stock: stock("INTC"), Price: 500000,
	}))
	mustOK(t, e.OnTrade(itch.TradeMessage{Stock: stock("INTC"), Price: 500000, Shares: 10}))

	if len(sink.rows) != 1 {
		t.Errorf("expected trade to emit no additional row, got %d total rows", len(sink.rows))
	}
}

func mustOK(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
