package ledger

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/claimledger/libclaim-go/attest"
)

// ActivationOutcome is the explicit result of an Activate call. A rejected
// attestation is not an error: the call completes without state change and
// the custodian must resubmit.
type ActivationOutcome uint8

const (
	ActivationRejected ActivationOutcome = iota
	ActivationAccepted
)

func (o ActivationOutcome) String() string {
	if o == ActivationAccepted {
		return "accepted"
	}
	return "rejected"
}

// Activate verifies the custodian's attestation that the off-chain asset
// purchase matching this ledger's symbol and total supply was executed.
// On a matching signature the entire held value balance is forwarded to
// the broker and the stage advances to Active. On a signature that does
// not recover to the custodian the call returns ActivationRejected with a
// nil error and no state change.
func (l *Ledger) Activate(call Call, signature []byte) (ActivationOutcome, error) {
	if err := l.guard(OpActivate, call.Now); err != nil {
		return ActivationRejected, err
	}

	digest := attest.Digest(l.symbol, &l.totalSupply)
	signer, err := attest.RecoverSigner(digest, signature)
	if err != nil || Address(signer) != l.custodian {
		return ActivationRejected, nil
	}

	proceeds := l.held.Clone()
	l.held.Clear()
	l.stage = StageActive

	if !proceeds.IsZero() {
		if err := l.bank.Pay(l.broker, proceeds); err != nil {
			l.stage = StagePending
			l.held.Set(proceeds)
			return ActivationRejected, fmt.Errorf("%w: forwarding proceeds: %w", ErrTransferFailed, err)
		}
	}

	l.emit(StageEvent{Stage: StageActive})
	return ActivationAccepted, nil
}

// Sell records an exit request: the amount moves from the caller's balance
// to its unliquidated pool. No value moves until the broker settles the
// request with Liquidated.
func (l *Ledger) Sell(call Call, amount *uint256.Int) error {
	if amount == nil {
		return fmt.Errorf("%w: amount", ErrNilParam)
	}
	if err := l.guard(OpSell, call.Now); err != nil {
		return err
	}
	if amount.IsZero() {
		return ErrZeroValue
	}

	acct := l.account(call.Caller)
	if acct.balance.Lt(amount) {
		return fmt.Errorf("%w: have %s, want %s", ErrInsufficientBalance, acct.balance.Dec(), amount.Dec())
	}

	u, ok := l.unliquidated[call.Caller]
	if !ok {
		u = new(uint256.Int)
		l.unliquidated[call.Caller] = u
	}
	newU, overflow := new(uint256.Int).AddOverflow(u, amount)
	if overflow {
		return fmt.Errorf("%w: unliquidated amount", ErrAmountOverflow)
	}

	acct.balance.Sub(&acct.balance, amount)
	u.Set(newU)

	l.emit(SellEvent{Seller: call.Caller, Amount: amount.Clone()})
	return nil
}

// Liquidated settles a pending exit: the broker pays in the value obtained
// from selling the corresponding asset share off-chain, the matching
// claim units are burned, and the value is forwarded to the exiting
// holder. Broker only; the paid value may cover a request partially.
func (l *Ledger) Liquidated(call Call, holder Address) error {
	if err := l.guard(OpLiquidated, call.Now); err != nil {
		return err
	}
	if call.Caller != l.broker {
		return fmt.Errorf("%w: liquidated is broker-only", ErrUnauthorized)
	}
	v := call.value()
	if v.IsZero() {
		return ErrZeroValue
	}

	u, ok := l.unliquidated[holder]
	if !ok || u.Lt(v) {
		return fmt.Errorf("%w: paid %s", ErrInsufficientUnliquidated, v.Dec())
	}

	prevU := u.Clone()
	prevSupply := l.totalSupply.Clone()

	// Burn before the outbound pay.
	u.Sub(u, v)
	l.totalSupply.Sub(&l.totalSupply, v)

	if err := l.bank.Pay(holder, v); err != nil {
		u.Set(prevU)
		l.totalSupply.Set(prevSupply)
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	return nil
}
