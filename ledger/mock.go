package ledger

import "github.com/holiman/uint256"

// Payment is one recorded outbound transfer.
type Payment struct {
	To     Address
	Amount *uint256.Int
}

// MemoryBank is a test double for Bank. It records successful payments in
// order. If PayFn is set it runs first; a returned error fails the payment
// and nothing is recorded.
type MemoryBank struct {
	PayFn    func(to Address, amount *uint256.Int) error
	Payments []Payment
}

func (b *MemoryBank) Pay(to Address, amount *uint256.Int) error {
	if b.PayFn != nil {
		if err := b.PayFn(to, amount); err != nil {
			return err
		}
	}
	b.Payments = append(b.Payments, Payment{To: to, Amount: amount.Clone()})
	return nil
}

// MemorySink records emitted events in order.
type MemorySink struct {
	Events []Event
}

func (s *MemorySink) Emit(ev Event) {
	s.Events = append(s.Events, ev)
}
