package itch

// Handler receives decoded in-scope ITCH messages from Walk. Administrative
// message classes (system event, stock directory, trading actions, auction
// messages, cross/broken trades, NOII, RPII) are never decoded into structs;
// they surface only as OnUnknownMessage so a caller can count them without
// paying for their field layouts.
type Handler interface {
	OnAddOrder(msg AddOrderMessage) error
	OnAddOrderMPID(msg AddOrderMPIDMessage) error
	OnOrderExecuted(msg OrderExecutedMessage) error
	OnOrderExecutedWithPrice(msg OrderExecutedWithPriceMessage) error
	OnOrderCancel(msg OrderCancelMessage) error
	OnOrderDelete(msg OrderDeleteMessage) error
	OnOrderReplace(msg OrderReplaceMessage) error
	OnTrade(msg TradeMessage) error
	OnUnknownMessage(msgType byte, payload []byte) error
}

// DefaultHandler is a no-op Handler embeddable by callers that only care
// about a subset of messages.
type DefaultHandler struct{}

func (DefaultHandler) OnAddOrder(AddOrderMessage) error                            { return nil }
func (DefaultHandler) OnAddOrderMPID(AddOrderMPIDMessage) error                    { return nil }
func (DefaultHandler) OnOrderExecuted(OrderExecutedMessage) error                  { return nil }
func (DefaultHandler) OnOrderExecutedWithPrice(OrderExecutedWithPriceMessage) error { return nil }
func (DefaultHandler) OnOrderCancel(OrderCancelMessage) error                      { return nil }
func (DefaultHandler) OnOrderDelete(OrderDeleteMessage) error                      { return nil }
func (DefaultHandler) OnOrderReplace(OrderReplaceMessage) error                    { return nil }
func (DefaultHandler) OnTrade(TradeMessage) error                                  { return nil }
func (DefaultHandler) OnUnknownMessage(byte, []byte) error                        { return nil }

// Minimum payload lengths (payload excludes the 2-byte length prefix and
// the 1-byte type tag) for each in-scope variant. A frame classified as one
// of these types but shorter than its minimum is not dispatched to the
// handler; the walk skips it by its frame length and continues.
const (
	minPayloadAddOrder               = 35
	minPayloadAddOrderMPID           = 39
	minPayloadOrderExecuted          = 30
	minPayloadOrderExecutedWithPrice = 35
	minPayloadOrderCancel            = 22
	minPayloadOrderDelete            = 18
	minPayloadOrderReplace           = 34
	minPayloadTrade                  = 43
)

// Walk iterates the length-prefixed ITCH frames in data, dispatching each
// in-scope message to handler. It never allocates beyond the per-message
// structs it passes by value, and never copies payload bytes except into
// the small fixed-size fields (symbol, order reference) that Handler
// methods receive.
//
// Walk returns only errors surfaced by handler; framing and length
// problems in the input are not reported; they silently end the walk, per
// the source's end-of-buffer convention.
func Walk(data []byte, handler Handler) error {
	return WalkFrom(data, 0, handler, nil)
}

// ProgressFunc is called after every frame WalkFrom consumes (in-scope or
// not), with the cursor offset immediately following that frame and the
// running count of frames consumed since the call that owns this
// callback. A caller uses it for the throughput milestone in §4.3 and for
// recording a resumable checkpoint; it is never required for correctness.
type ProgressFunc func(offset int, count uint64)

// WalkFrom behaves like Walk but starts at offset instead of the
// beginning of data, so a caller that checkpointed a prior run's cursor
// (via progress) can resume without re-decoding everything before it. If
// progress is non-nil it is invoked after each frame is consumed.
func WalkFrom(data []byte, offset int, handler Handler, progress ProgressFunc) error {
	var count uint64
	for offset+3 <= len(data) {
		msgLen := int(ReadUint16BE(data[offset : offset+2]))
		if msgLen == 0 || offset+2+msgLen > len(data) {
			break
		}
		msgType := data[offset+2]
		payload := data[offset+3 : offset+2+msgLen]

		if err := dispatch(msgType, payload, handler); err != nil {
			return err
		}

		offset += 2 + msgLen
		count++
		if progress != nil {
			progress(offset, count)
		}
	}
	return nil
}

func dispatch(msgType byte, payload []byte, handler Handler) error {
	switch msgType {
	case MessageTypeAddOrder:
		if len(payload) < minPayloadAddOrder {
			return nil
		}
		return handler.OnAddOrder(AddOrderMessage{
			Timestamp:            ReadTimestampBE(payload[4:10]),
			OrderReferenceNumber: ReadUint64BE(payload[10:18]),
			BuySellIndicator:     payload[18],
			Shares:               ReadUint32BE(payload[19:23]),
			Stock:                ReadStock(payload[23:31]),
			Price:                ReadUint32BE(payload[31:35]),
		})
	case MessageTypeAddOrderMPID:
		if len(payload) < minPayloadAddOrderMPID {
			return nil
		}
		msg := AddOrderMPIDMessage{
			Timestamp:            ReadTimestampBE(payload[4:10]),
			OrderReferenceNumber: ReadUint64BE(payload[10:18]),
			BuySellIndicator:     payload[18],
			Shares:               ReadUint32BE(payload[19:23]),
			Stock:                ReadStock(payload[23:31]),
			Price:                ReadUint32BE(payload[31:35]),
		}
		copy(msg.Attribution[:], payload[35:39])
		return handler.OnAddOrderMPID(msg)
	case MessageTypeOrderExecuted:
		if len(payload) < minPayloadOrderExecuted {
			return nil
		}
		return handler.OnOrderExecuted(OrderExecutedMessage{
			Timestamp:            ReadTimestampBE(payload[4:10]),
			OrderReferenceNumber: ReadUint64BE(payload[10:18]),
			ExecutedShares:       ReadUint32BE(payload[18:22]),
			MatchNumber:          ReadUint64BE(payload[22:30]),
		})
	case MessageTypeOrderExecutedWithPrice:
		if len(payload) < minPayloadOrderExecutedWithPrice {
			return nil
		}
		return handler.OnOrderExecutedWithPrice(OrderExecutedWithPriceMessage{
			Timestamp:            ReadTimestampBE(payload[4:10]),
			OrderReferenceNumber: ReadUint64BE(payload[10:18]),
			ExecutedShares:       ReadUint32BE(payload[18:22]),
			MatchNumber:          ReadUint64BE(payload[22:30]),
			Printable:            payload[30],
			ExecutionPrice:       ReadUint32BE(payload[31:35]),
		})
	case MessageTypeOrderCancel:
		if len(payload) < minPayloadOrderCancel {
			return nil
		}
		return handler.OnOrderCancel(OrderCancelMessage{
			Timestamp:            ReadTimestampBE(payload[4:10]),
			OrderReferenceNumber: ReadUint64BE(payload[10:18]),
			CanceledShares:       ReadUint32BE(payload[18:22]),
		})
	case MessageTypeOrderDelete:
		if len(payload) < minPayloadOrderDelete {
			return nil
		}
		return handler.OnOrderDelete(OrderDeleteMessage{
			Timestamp:            ReadTimestampBE(payload[4:10]),
			OrderReferenceNumber: ReadUint64BE(payload[10:18]),
		})
	case MessageTypeOrderReplace:
		if len(payload) < minPayloadOrderReplace {
			return nil
		}
		return handler.OnOrderReplace(OrderReplaceMessage{
			Timestamp:                    ReadTimestampBE(payload[4:10]),
			OriginalOrderReferenceNumber: ReadUint64BE(payload[10:18]),
			NewOrderReferenceNumber:      ReadUint64BE(payload[18:26]),
			Shares:                       ReadUint32BE(payload[26:30]),
			Price:                        ReadUint32BE(payload[30:34]),
		})
	case MessageTypeTrade:
		if len(payload) < minPayloadTrade {
			return nil
		}
		return handler.OnTrade(TradeMessage{
			Timestamp:            ReadTimestampBE(payload[4:10]),
			OrderReferenceNumber: ReadUint64BE(payload[10:18]),
			BuySellIndicator:     payload[18],
			Shares:               ReadUint32BE(payload[19:23]),
			Stock:                ReadStock(payload[23:31]),
			Price:                ReadUint32BE(payload[31:35]),
			MatchNumber:          ReadUint64BE(payload[35:43]),
		})
	default:
		return handler.OnUnknownMessage(msgType, payload)
	}
}
