// Package ledger implements a tokenized claim on a foreign asset.
//
// Investors buy fungible claim units during a funding window at a fixed
// 1:1 rate against paid-in value. Once the round is fully subscribed, a
// custodian attests with a recoverable signature that the off-chain asset
// purchase occurred; the funding proceeds are then forwarded to the broker
// and the claim becomes tradeable and entitled to pull-based dividends.
// Holders exit through a two-phase sell/liquidate protocol settled by the
// broker against off-chain liquidity.
//
// The ledger is a single aggregate: balances, the payout ratio, and the
// stage must always agree. Every operation runs to completion against
// exclusive state; the environment supplies caller identity, a clock
// reading, and paid-in value per call (Call), plus an outbound
// value-transfer primitive (Bank). All invariant-relevant state writes
// happen before any outbound Bank.Pay in the same operation, so a
// reentrant call observes post-mutation state.
package ledger

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/holiman/uint256"
)

// payoutScale is the fixed-point factor for the cumulative payout ratio.
// It must never change: it determines rounding and dust behavior.
var payoutScale = uint256.NewInt(10_000_000_000_000_000_000) // 10^19

// Address identifies a holder, HASH160 of a compressed public key.
type Address [20]byte

func (a Address) String() string { return hex.EncodeToString(a[:]) }

// AddressFromHex parses a 40-character hex address.
func AddressFromHex(s string) (Address, error) {
	var a Address
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	if len(b) != len(a) {
		return a, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidAddress, len(b), len(a))
	}
	copy(a[:], b)
	return a, nil
}

// Call carries the environment-supplied context of one inbound operation:
// the authenticated caller, the clock reading, and the value paid in with
// the call. A nil Value means zero.
type Call struct {
	Caller Address
	Now    time.Time
	Value  *uint256.Int
}

func (c Call) value() *uint256.Int {
	if c.Value == nil {
		return new(uint256.Int)
	}
	return c.Value
}

// Bank is the environment's value-transfer primitive. Pay either moves the
// full amount or fails with an error; there is no partial-failure mode.
type Bank interface {
	Pay(to Address, amount *uint256.Int) error
}

// account is a holder record: claim units plus the value of the global
// payout ratio at the holder's last settlement.
type account struct {
	balance       uint256.Int
	claimedPayout uint256.Int
}

// Ledger is the claim ledger aggregate.
type Ledger struct {
	name         string
	symbol       string
	owner        Address
	broker       Address
	custodian    Address
	creationTime time.Time
	timeout      time.Duration

	stage        Stage
	totalSupply  uint256.Int
	totalPayout  uint256.Int
	held         uint256.Int
	accounts     map[Address]*account
	unliquidated map[Address]*uint256.Int

	bank Bank
	sink Sink
}

// Params configures a new ledger.
type Params struct {
	Name         string
	Symbol       string
	TotalSupply  *uint256.Int
	Owner        Address
	Broker       Address
	Custodian    Address
	CreationTime time.Time
	Timeout      time.Duration
	Bank         Bank
	Sink         Sink // optional; nil discards events
}

// New creates a ledger in the Funding stage with the owner credited the
// entire supply.
func New(p Params) (*Ledger, error) {
	if p.Bank == nil {
		return nil, fmt.Errorf("%w: bank", ErrNilParam)
	}
	if p.TotalSupply == nil {
		return nil, fmt.Errorf("%w: total supply", ErrNilParam)
	}
	if p.TotalSupply.IsZero() {
		return nil, ErrNoSupply
	}
	if p.Timeout <= 0 {
		return nil, fmt.Errorf("ledger: timeout must be positive, got %v", p.Timeout)
	}
	sink := p.Sink
	if sink == nil {
		sink = NopSink{}
	}

	l := &Ledger{
		name:         p.Name,
		symbol:       p.Symbol,
		owner:        p.Owner,
		broker:       p.Broker,
		custodian:    p.Custodian,
		creationTime: p.CreationTime,
		timeout:      p.Timeout,
		stage:        StageFunding,
		accounts:     make(map[Address]*account),
		unliquidated: make(map[Address]*uint256.Int),
		bank:         p.Bank,
		sink:         sink,
	}
	l.totalSupply.Set(p.TotalSupply)
	l.account(p.Owner).balance.Set(p.TotalSupply)
	return l, nil
}

// account returns the holder record for addr, creating it lazily.
func (l *Ledger) account(addr Address) *account {
	acct, ok := l.accounts[addr]
	if !ok {
		acct = &account{}
		l.accounts[addr] = acct
	}
	return acct
}

// Name returns the claim name.
func (l *Ledger) Name() string { return l.name }

// Symbol returns the claim symbol.
func (l *Ledger) Symbol() string { return l.symbol }

// Owner returns the issuer address.
func (l *Ledger) Owner() Address { return l.owner }

// Broker returns the settlement broker address.
func (l *Ledger) Broker() Address { return l.broker }

// Custodian returns the attesting custodian address.
func (l *Ledger) Custodian() Address { return l.custodian }

// Stage returns the current lifecycle stage. Pure read: an expired but
// not yet ticked funding round still reports Funding.
func (l *Ledger) Stage() Stage { return l.stage }

// TotalSupply returns the outstanding supply.
func (l *Ledger) TotalSupply() *uint256.Int { return l.totalSupply.Clone() }

// TotalPayout returns the cumulative payout ratio, scaled by 10^19.
func (l *Ledger) TotalPayout() *uint256.Int { return l.totalPayout.Clone() }

// Held returns the value balance currently held by the ledger.
func (l *Ledger) Held() *uint256.Int { return l.held.Clone() }

// BalanceOf returns addr's claim unit balance. Never fails, never mutates.
func (l *Ledger) BalanceOf(addr Address) *uint256.Int {
	if acct, ok := l.accounts[addr]; ok {
		return acct.balance.Clone()
	}
	return new(uint256.Int)
}

// ClaimedPayoutOf returns addr's payout watermark.
func (l *Ledger) ClaimedPayoutOf(addr Address) *uint256.Int {
	if acct, ok := l.accounts[addr]; ok {
		return acct.claimedPayout.Clone()
	}
	return new(uint256.Int)
}

// UnliquidatedOf returns addr's pending exit amount.
func (l *Ledger) UnliquidatedOf(addr Address) *uint256.Int {
	if u, ok := l.unliquidated[addr]; ok {
		return u.Clone()
	}
	return new(uint256.Int)
}
