// Package itch decodes NASDAQ TotalView-ITCH 5.0 feed messages from a
// length-prefixed, big-endian binary stream without copying the payload.
package itch

// Message type tags, per the ITCH 5.0 spec. Only the eight in-scope tags
// carry a dedicated struct and dispatch method; the rest classify as
// Unknown and are skipped by frame length.
const (
	MessageTypeSystemEvent          = 'S'
	MessageTypeStockDirectory       = 'R'
	MessageTypeStockTradingAction   = 'H'
	MessageTypeRegSHO               = 'Y'
	MessageTypeMarketParticipantPos = 'L'
	MessageTypeMWCBDecline          = 'V'
	MessageTypeMWCBStatus           = 'W'
	MessageTypeIPOQuoting           = 'K'
	MessageTypeLULDAuctionCollar    = 'J'
	MessageTypeOperationalHalt      = 'h'

	MessageTypeAddOrder               = 'A'
	MessageTypeAddOrderMPID           = 'F'
	MessageTypeOrderExecuted          = 'E'
	MessageTypeOrderExecutedWithPrice = 'C'
	MessageTypeOrderCancel            = 'X'
	MessageTypeOrderDelete            = 'D'
	MessageTypeOrderReplace           = 'U'
	MessageTypeTrade                  = 'P'

	MessageTypeCrossTrade  = 'Q'
	MessageTypeBrokenTrade = 'B'
	MessageTypeNOII        = 'I'
	MessageTypeRPII        = 'N'
)

// AddOrderMessage is an 'A' message: a new resting order with no MPID
// attribution.
type AddOrderMessage struct {
	Timestamp            uint64
	OrderReferenceNumber uint64
	BuySellIndicator     byte
	Shares               uint32
	Stock                [8]byte
	Price                uint32
}

// AddOrderMPIDMessage is an 'F' message: identical to AddOrder except for
// a trailing 4-byte attribution the book engine never reads.
type AddOrderMPIDMessage struct {
	Timestamp            uint64
	OrderReferenceNumber uint64
	BuySellIndicator     byte
	Shares               uint32
	Stock                [8]byte
	Price                uint32
	Attribution          [4]byte
}

// OrderExecutedMessage is an 'E' message.
type OrderExecutedMessage struct {
	Timestamp            uint64
	OrderReferenceNumber uint64
	ExecutedShares       uint32
	MatchNumber          uint64
}

// OrderExecutedWithPriceMessage is a 'C' message. ExecutionPrice is decoded
// for completeness but the book engine does not write it back to the
// resting order (see the source's treatment of this as a trade print).
type OrderExecutedWithPriceMessage struct {
	Timestamp            uint64
	OrderReferenceNumber uint64
	ExecutedShares       uint32
	MatchNumber          uint64
	Printable            byte
	ExecutionPrice       uint32
}

// OrderCancelMessage is an 'X' message.
type OrderCancelMessage struct {
	Timestamp            uint64
	OrderReferenceNumber uint64
	CanceledShares       uint32
}

// OrderDeleteMessage is a 'D' message.
type OrderDeleteMessage struct {
	Timestamp            uint64
	OrderReferenceNumber uint64
}

// OrderReplaceMessage is a 'U' message.
type OrderReplaceMessage struct {
	Timestamp                    uint64
	OriginalOrderReferenceNumber uint64
	NewOrderReferenceNumber      uint64
	Shares                       uint32
	Price                        uint32
}

// TradeMessage is a 'P' message. It never mutates the book; only the
// symbol gate is relevant.
type TradeMessage struct {
	Timestamp            uint64
	OrderReferenceNumber uint64
	BuySellIndicator     byte
	Shares               uint32
	Stock                [8]byte
	Price                uint32
	MatchNumber          uint64
}
