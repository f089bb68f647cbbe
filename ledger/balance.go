package ledger

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Buy purchases claim units from the owner's unsold pool at the fixed 1:1
// rate: the paid-in value must equal the unit amount. Buying the last
// unsold unit atomically advances the stage to Pending.
func (l *Ledger) Buy(call Call, amount *uint256.Int) error {
	if amount == nil {
		return fmt.Errorf("%w: amount", ErrNilParam)
	}
	if err := l.guard(OpBuy, call.Now); err != nil {
		return err
	}
	if amount.IsZero() {
		return ErrZeroValue
	}
	if !call.value().Eq(amount) {
		return fmt.Errorf("%w: paid %s for %s units", ErrValueMismatch, call.value().Dec(), amount.Dec())
	}

	ownerAcct := l.account(l.owner)
	if ownerAcct.balance.Lt(amount) {
		return fmt.Errorf("%w: %s units unsold, want %s", ErrInsufficientBalance, ownerAcct.balance.Dec(), amount.Dec())
	}
	buyer := l.account(call.Caller)

	prevOwner := ownerAcct.balance.Clone()
	prevBuyer := buyer.balance.Clone()

	// Debit then credit, so an owner self-purchase nets to zero units.
	ownerAcct.balance.Sub(&ownerAcct.balance, amount)
	newBal, overflow := new(uint256.Int).AddOverflow(&buyer.balance, amount)
	if overflow {
		ownerAcct.balance.Set(prevOwner)
		return fmt.Errorf("%w: crediting %s", ErrAmountOverflow, call.Caller)
	}
	buyer.balance.Set(newBal)

	newHeld, overflow := new(uint256.Int).AddOverflow(&l.held, call.value())
	if overflow {
		ownerAcct.balance.Set(prevOwner)
		buyer.balance.Set(prevBuyer)
		return fmt.Errorf("%w: held value", ErrAmountOverflow)
	}
	l.held.Set(newHeld)

	l.emit(BuyEvent{Buyer: call.Caller, Amount: amount.Clone()})

	// Full subscription closes the round in the same operation.
	if ownerAcct.balance.IsZero() {
		l.setStage(StagePending)
	}
	return nil
}

// Transfer moves claim units from the caller to another holder. It is the
// one mutating operation legal in every stage. Any dividend pending for
// the caller is flushed and paid out immediately; afterwards both parties'
// payout watermarks are set to the current ratio, so the receiving side
// inherits no historical entitlement for the moved units.
func (l *Ledger) Transfer(call Call, to Address, value *uint256.Int) error {
	if value == nil {
		return fmt.Errorf("%w: value", ErrNilParam)
	}
	l.tick(call.Now)

	from := l.account(call.Caller)
	if from.balance.Lt(value) {
		return fmt.Errorf("%w: have %s, want %s", ErrInsufficientBalance, from.balance.Dec(), value.Dec())
	}
	owed, overflow := l.pendingPayout(from)
	if overflow {
		return fmt.Errorf("%w: pending payout", ErrAmountOverflow)
	}

	toAcct := l.account(to)

	prevFromBal := from.balance.Clone()
	prevToBal := toAcct.balance.Clone()
	prevFromMark := from.claimedPayout.Clone()
	prevToMark := toAcct.claimedPayout.Clone()
	prevHeld := l.held.Clone()
	restore := func() {
		from.balance.Set(prevFromBal)
		toAcct.balance.Set(prevToBal)
		from.claimedPayout.Set(prevFromMark)
		toAcct.claimedPayout.Set(prevToMark)
		l.held.Set(prevHeld)
	}

	// Debit then credit, so a self-transfer nets to zero.
	from.balance.Sub(&from.balance, value)
	newBal, overflow := new(uint256.Int).AddOverflow(&toAcct.balance, value)
	if overflow {
		from.balance.Set(prevFromBal)
		return fmt.Errorf("%w: crediting %s", ErrAmountOverflow, to)
	}
	toAcct.balance.Set(newBal)

	// Full settlement on both sides.
	from.claimedPayout.Set(&l.totalPayout)
	toAcct.claimedPayout.Set(&l.totalPayout)

	if !owed.IsZero() {
		newHeld, underflow := new(uint256.Int).SubOverflow(&l.held, owed)
		if underflow {
			restore()
			return fmt.Errorf("%w: held value", ErrAmountOverflow)
		}
		l.held.Set(newHeld)
		if err := l.bank.Pay(call.Caller, owed); err != nil {
			restore()
			return fmt.Errorf("%w: %w", ErrTransferFailed, err)
		}
	}

	l.emit(TransferEvent{From: call.Caller, To: to, Value: value.Clone()})
	return nil
}

// Reclaim refunds the caller's claim units at the 1:1 funding rate after a
// failed round. The units return to the owner's unsold pool so supply
// conservation holds. The first call pays exactly once; later calls find a
// zero balance and pay nothing. The owner cannot reclaim: its unsold units
// were never paid for.
func (l *Ledger) Reclaim(call Call) error {
	if err := l.guard(OpReclaim, call.Now); err != nil {
		return err
	}
	if call.Caller == l.owner {
		return fmt.Errorf("%w: owner cannot reclaim unsold units", ErrUnauthorized)
	}

	acct := l.account(call.Caller)
	if acct.balance.IsZero() {
		return nil
	}
	amount := acct.balance.Clone()

	ownerAcct := l.account(l.owner)
	prevOwner := ownerAcct.balance.Clone()
	prevHeld := l.held.Clone()

	// Zero before the outbound pay: a reentrant call sees an empty balance.
	acct.balance.Clear()
	newOwner, overflow := new(uint256.Int).AddOverflow(&ownerAcct.balance, amount)
	if overflow {
		acct.balance.Set(amount)
		return fmt.Errorf("%w: returning units to owner", ErrAmountOverflow)
	}
	ownerAcct.balance.Set(newOwner)

	newHeld, underflow := new(uint256.Int).SubOverflow(&l.held, amount)
	if underflow {
		acct.balance.Set(amount)
		ownerAcct.balance.Set(prevOwner)
		return fmt.Errorf("%w: held value", ErrAmountOverflow)
	}
	l.held.Set(newHeld)

	if err := l.bank.Pay(call.Caller, amount); err != nil {
		acct.balance.Set(amount)
		ownerAcct.balance.Set(prevOwner)
		l.held.Set(prevHeld)
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return nil
}
