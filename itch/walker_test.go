package itch

import "testing"

// recordingHandler tracks every message it receives.
type recordingHandler struct {
	DefaultHandler
	addOrders []AddOrderMessage
	executed  []OrderExecutedMessage
	deletes   []OrderDeleteMessage
	replaces  []OrderReplaceMessage
	trades    []TradeMessage
	unknown   int
}

func (h *recordingHandler) OnAddOrder(msg AddOrderMessage) error {
	h.addOrders = append(h.addOrders, msg)
	return nil
}

func (h *recordingHandler) OnOrderExecuted(msg OrderExecutedMessage) error {
	h.executed = append(h.executed, msg)
	return nil
}

func (h *recordingHandler) OnOrderDelete(msg OrderDeleteMessage) error {
	h.deletes = append(h.deletes, msg)
	return nil
}

func (h *recordingHandler) OnOrderReplace(msg OrderReplaceMessage) error {
	h.replaces = append(h.replaces, msg)
	return nil
}

func (h *recordingHandler) OnTrade(msg TradeMessage) error {
	h.trades = append(h.trades, msg)
	return nil
}

func (h *recordingHandler) OnUnknownMessage(msgType byte, payload []byte) error {
	h.unknown++
	return nil
}

// frame builds a length-prefixed ITCH frame: 2-byte length + type + payload.
func frame(msgType byte, payload []byte) []byte {
	out := make([]byte, 2, 3+len(payload))
	msgLen := uint16(1 + len(payload))
	out[0] = byte(msgLen >> 8)
	out[1] = byte(msgLen)
	out = append(out, msgType)
	out = append(out, payload...)
	return out
}

func addOrderPayload(ref uint64, side byte, shares uint32, stock string, price uint32) []byte {
	p := make([]byte, minPayloadAddOrder)
	// p[0:4] stock_locate + tracking_number, unused
	putTimestamp(p[4:10], 123456789)
	putUint64(p[10:18], ref)
	p[18] = side
	putUint32(p[19:23], shares)
	copy(p[23:31], []byte(stock))
	putUint32(p[31:35], price)
	return p
}

func putUint64(dst []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		dst[i] = byte(v)
		v >>= 8
	}
}

func putUint32(dst []byte, v uint32) {
	for i := 3; i >= 0; i-- {
		dst[i] = byte(v)
		v >>= 8
	}
}

func putTimestamp(dst []byte, v uint64) {
	for i := 5; i >= 0; i-- {
		dst[i] = byte(v)
		v >>= 8
	}
}

func TestWalk_AddOrder(t *testing.T) {
	data := frame(MessageTypeAddOrder, addOrderPayload(1, 'B', 100, "INTC    ", 500000))

	h := &recordingHandler{}
	if err := Walk(data, h); err != nil {
		t.Fatalf("Walk error: %v", err)
	}
	if len(h.addOrders) != 1 {
		t.Fatalf("expected 1 add order, got %d", len(h.addOrders))
	}
	msg := h.addOrders[0]
	if msg.OrderReferenceNumber != 1 || msg.BuySellIndicator != 'B' || msg.Shares != 100 || msg.Price != 500000 {
		t.Errorf("unexpected decoded AddOrder: %+v", msg)
	}
	if string(msg.Stock[:]) != "INTC    " {
		t.Errorf("expected symbol %q, got %q", "INTC    ", msg.Stock[:])
	}
}

func TestWalk_MultipleFrames(t *testing.T) {
	var data []byte
	data = append(data, frame(MessageTypeAddOrder, addOrderPayload(1, 'B', 100, "INTC    ", 500000))...)

	delPayload := make([]byte, minPayloadOrderDelete)
	putTimestamp(delPayload[4:10], 1)
	putUint64(delPayload[10:18], 1)
	data = append(data, frame(MessageTypeOrderDelete, delPayload)...)

	h := &recordingHandler{}
	if err := Walk(data, h); err != nil {
		t.Fatalf("Walk error: %v", err)
	}
	if len(h.addOrders) != 1 || len(h.deletes) != 1 {
		t.Fatalf("expected 1 add + 1 delete, got %d add, %d delete", len(h.addOrders), len(h.deletes))
	}
}

func TestWalk_UnknownMessageSkippedByLength(t *testing.T) {
	data := frame(MessageTypeSystemEvent, []byte{'O'})
	data = append(data, frame(MessageTypeOrderDelete, func() []byte {
		p := make([]byte, minPayloadOrderDelete)
		putUint64(p[10:18], 42)
		return p
	}())...)

	h := &recordingHandler{}
	if err := Walk(data, h); err != nil {
		t.Fatalf("Walk error: %v", err)
	}
	if h.unknown != 1 {
		t.Errorf("expected 1 unknown message, got %d", h.unknown)
	}
	if len(h.deletes) != 1 || h.deletes[0].OrderReferenceNumber != 42 {
		t.Errorf("expected the delete after the unknown frame to still be parsed, got %+v", h.deletes)
	}
}

func TestWalk_TruncatedHeaderStopsSilently(t *testing.T) {
	h := &recordingHandler{}
	if err := Walk([]byte{0, 1}, h); err != nil {
		t.Fatalf("expected nil error on truncated header, got %v", err)
	}
}

func TestWalk_TruncatedFinalFrameStopsSilently(t *testing.T) {
	full := frame(MessageTypeAddOrder, addOrderPayload(1, 'B', 100, "INTC    ", 500000))
	truncated := full[:len(full)-5]

	h := &recordingHandler{}
	if err := Walk(truncated, h); err != nil {
		t.Fatalf("expected nil error on truncated final frame, got %v", err)
	}
	if len(h.addOrders) != 0 {
		t.Errorf("expected no messages decoded from a truncated frame, got %d", len(h.addOrders))
	}
}

func TestWalk_ReplaceAndExecuteAndTrade(t *testing.T) {
	var data []byte

	execPayload := make([]byte, minPayloadOrderExecuted)
	putUint64(execPayload[10:18], 7)
	putUint32(execPayload[18:22], 50)
	data = append(data, frame(MessageTypeOrderExecuted, execPayload)...)

	replacePayload := make([]byte, minPayloadOrderReplace)
	putUint64(replacePayload[10:18], 1)
	putUint64(replacePayload[18:26], 2)
	putUint32(replacePayload[26:30], 80)
	putUint32(replacePayload[30:34], 499800)
	data = append(data, frame(MessageTypeOrderReplace, replacePayload)...)

	tradePayload := make([]byte, minPayloadTrade)
	copy(tradePayload[23:31], []byte("INTC    "))
	data = append(data, frame(MessageTypeTrade, tradePayload)...)

	h := &recordingHandler{}
	if err := Walk(data, h); err != nil {
		t.Fatalf("Walk error: %v", err)
	}
	if len(h.executed) != 1 || h.executed[0].ExecutedShares != 50 {
		t.Errorf("unexpected executed messages: %+v", h.executed)
	}
	if len(h.replaces) != 1 || h.replaces[0].NewOrderReferenceNumber != 2 || h.replaces[0].Price != 499800 {
		t.Errorf("unexpected replace messages: %+v", h.replaces)
	}
	if len(h.trades) != 1 || string(h.trades[0].Stock[:]) != "INTC    " {
		t.Errorf("unexpected trade messages: %+v", h.trades)
	}
}

func TestReadTimestampBE(t *testing.T) {
	data := []byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x64}
	if got := ReadTimestampBE(data); got != 16777216+0x64 {
		t.Errorf("expected %d, got %d", 16777216+0x64, got)
	}
}
