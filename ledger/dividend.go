package ledger

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Payout deposits a dividend. The paid-in value raises the global ratio by
// value * 10^19 / totalSupply; the oversized scale factor keeps per-unit
// dividends representable that plain integer division would truncate to
// zero. Floor division leaves a dust remainder that is never distributed.
func (l *Ledger) Payout(call Call) error {
	if err := l.guard(OpPayout, call.Now); err != nil {
		return err
	}
	v := call.value()
	if v.IsZero() {
		return ErrZeroValue
	}
	if l.totalSupply.IsZero() {
		return ErrNoSupply
	}

	inc, overflow := new(uint256.Int).MulDivOverflow(v, payoutScale, &l.totalSupply)
	if overflow {
		return fmt.Errorf("%w: payout ratio increment", ErrAmountOverflow)
	}
	newTotal, overflow := new(uint256.Int).AddOverflow(&l.totalPayout, inc)
	if overflow {
		return fmt.Errorf("%w: payout ratio", ErrAmountOverflow)
	}
	newHeld, overflow := new(uint256.Int).AddOverflow(&l.held, v)
	if overflow {
		return fmt.Errorf("%w: held value", ErrAmountOverflow)
	}

	l.totalPayout.Set(newTotal)
	l.held.Set(newHeld)
	l.emit(PayoutEvent{Value: v.Clone()})
	return nil
}

// CurrentPayout returns addr's unclaimed dividend share, in value units:
// balance * (totalPayout - claimedPayout) / 10^19, floored.
func (l *Ledger) CurrentPayout(addr Address) *uint256.Int {
	acct, ok := l.accounts[addr]
	if !ok {
		return new(uint256.Int)
	}
	owed, _ := l.pendingPayout(acct)
	return owed
}

// Claim settles the caller's unclaimed dividend in full. The watermark is
// advanced before the outbound pay, so a reentrant claim finds nothing.
func (l *Ledger) Claim(call Call) error {
	if err := l.guard(OpClaim, call.Now); err != nil {
		return err
	}
	acct := l.account(call.Caller)
	owed, overflow := l.pendingPayout(acct)
	if overflow {
		return fmt.Errorf("%w: pending payout", ErrAmountOverflow)
	}
	if owed.IsZero() {
		return ErrNothingToClaim
	}

	prevMark := acct.claimedPayout.Clone()
	prevHeld := l.held.Clone()

	// Full settlement, not partial.
	acct.claimedPayout.Set(&l.totalPayout)
	newHeld, underflow := new(uint256.Int).SubOverflow(&l.held, owed)
	if underflow {
		acct.claimedPayout.Set(prevMark)
		return fmt.Errorf("%w: held value", ErrAmountOverflow)
	}
	l.held.Set(newHeld)

	if err := l.bank.Pay(call.Caller, owed); err != nil {
		acct.claimedPayout.Set(prevMark)
		l.held.Set(prevHeld)
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return nil
}

// pendingPayout computes a holder's unclaimed share. The overflow flag is
// unreachable while the ledger's own invariants hold (a share never
// exceeds the sum of deposited payouts) but is surfaced to callers on
// mutating paths anyway.
func (l *Ledger) pendingPayout(acct *account) (*uint256.Int, bool) {
	delta := new(uint256.Int).Sub(&l.totalPayout, &acct.claimedPayout)
	return new(uint256.Int).MulDivOverflow(&acct.balance, delta, payoutScale)
}
