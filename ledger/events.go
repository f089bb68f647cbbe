package ledger

import (
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
)

// Event is one entry in the ledger's append-only observable stream. The
// ledger only writes events; it never reads them back.
type Event interface {
	// Kind returns the event's wire name.
	Kind() string
}

// StageEvent records a stage transition.
type StageEvent struct {
	Stage Stage
}

func (StageEvent) Kind() string { return "stage" }

// BuyEvent records a funding purchase.
type BuyEvent struct {
	Buyer  Address
	Amount *uint256.Int
}

func (BuyEvent) Kind() string { return "buy" }

// SellEvent records an exit request.
type SellEvent struct {
	Seller Address
	Amount *uint256.Int
}

func (SellEvent) Kind() string { return "sell" }

// PayoutEvent records a dividend deposit.
type PayoutEvent struct {
	Value *uint256.Int
}

func (PayoutEvent) Kind() string { return "payout" }

// TransferEvent records a balance transfer.
type TransferEvent struct {
	From  Address
	To    Address
	Value *uint256.Int
}

func (TransferEvent) Kind() string { return "transfer" }

// Sink consumes the ledger's event stream.
type Sink interface {
	Emit(Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Emit(Event) {}

// LogSink writes events to a zerolog logger at info level.
type LogSink struct {
	Logger zerolog.Logger
}

func (s LogSink) Emit(ev Event) {
	e := s.Logger.Info().Str("event", ev.Kind())
	switch ev := ev.(type) {
	case StageEvent:
		e = e.Str("stage", ev.Stage.String())
	case BuyEvent:
		e = e.Str("buyer", ev.Buyer.String()).Str("amount", ev.Amount.Dec())
	case SellEvent:
		e = e.Str("seller", ev.Seller.String()).Str("amount", ev.Amount.Dec())
	case PayoutEvent:
		e = e.Str("value", ev.Value.Dec())
	case TransferEvent:
		e = e.Str("from", ev.From.String()).Str("to", ev.To.String()).Str("value", ev.Value.Dec())
	}
	e.Msg("ledger event")
}

func (l *Ledger) emit(ev Event) {
	l.sink.Emit(ev)
}
