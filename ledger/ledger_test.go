package ledger

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimledger/libclaim-go/attest"
)

func makeAddr(seed byte) Address {
	var a Address
	for i := range a {
		a[i] = seed
	}
	return a
}

func amt(n uint64) *uint256.Int { return uint256.NewInt(n) }

// fixture wires a funding-stage ledger with in-memory collaborators and a
// real custodian key.
type fixture struct {
	l      *Ledger
	bank   *MemoryBank
	sink   *MemorySink
	supply uint64

	owner    Address
	broker   Address
	investor Address

	custodianKey *btcec.PrivateKey
	custodian    Address

	start time.Time
}

func newFixture(t *testing.T, supply uint64) *fixture {
	t.Helper()

	priv, err := attest.GenerateKey()
	require.NoError(t, err)

	f := &fixture{
		bank:         &MemoryBank{},
		sink:         &MemorySink{},
		supply:       supply,
		owner:        makeAddr(0x01),
		broker:       makeAddr(0x02),
		investor:     makeAddr(0xAA),
		custodianKey: priv,
		custodian:    Address(attest.AddressFromPubKey(priv.PubKey())),
		start:        time.Unix(1700000000, 0).UTC(),
	}

	l, err := New(Params{
		Name:         "Foreign Asset Claim",
		Symbol:       "XAB",
		TotalSupply:  amt(supply),
		Owner:        f.owner,
		Broker:       f.broker,
		Custodian:    f.custodian,
		CreationTime: f.start,
		Timeout:      time.Hour,
		Bank:         f.bank,
		Sink:         f.sink,
	})
	require.NoError(t, err)
	f.l = l
	return f
}

func (f *fixture) at(d time.Duration) time.Time { return f.start.Add(d) }

// call builds a Call with the fixture's clock a minute into the round.
func (f *fixture) call(caller Address, value uint64) Call {
	return Call{Caller: caller, Now: f.at(time.Minute), Value: amt(value)}
}

// fund has the investor buy out the entire round, closing it to Pending.
func (f *fixture) fund(t *testing.T) {
	t.Helper()
	require.NoError(t, f.l.Buy(f.call(f.investor, f.supply), amt(f.supply)))
	require.Equal(t, StagePending, f.l.Stage())
}

// attestSig produces a valid custodian attestation for the ledger.
func (f *fixture) attestSig(t *testing.T) []byte {
	t.Helper()
	sig, err := attest.Sign(f.custodianKey, attest.Digest(f.l.Symbol(), f.l.TotalSupply()))
	require.NoError(t, err)
	return sig
}

// activate funds the round and runs a successful custodian attestation.
func (f *fixture) activate(t *testing.T) {
	t.Helper()
	f.fund(t)
	out, err := f.l.Activate(f.call(f.broker, 0), f.attestSig(t))
	require.NoError(t, err)
	require.Equal(t, ActivationAccepted, out)
}

func TestNew(t *testing.T) {
	f := newFixture(t, 1000)

	assert.Equal(t, StageFunding, f.l.Stage())
	assert.Equal(t, "Foreign Asset Claim", f.l.Name())
	assert.Equal(t, "XAB", f.l.Symbol())
	assert.Equal(t, amt(1000), f.l.TotalSupply())
	assert.Equal(t, amt(1000), f.l.BalanceOf(f.owner), "owner is credited the entire supply")
	assert.True(t, f.l.TotalPayout().IsZero())
	assert.True(t, f.l.Held().IsZero())
}

func TestNew_Invalid(t *testing.T) {
	base := Params{
		TotalSupply: amt(1000),
		Timeout:     time.Hour,
		Bank:        &MemoryBank{},
	}

	t.Run("nil bank", func(t *testing.T) {
		p := base
		p.Bank = nil
		_, err := New(p)
		assert.ErrorIs(t, err, ErrNilParam)
	})
	t.Run("nil supply", func(t *testing.T) {
		p := base
		p.TotalSupply = nil
		_, err := New(p)
		assert.ErrorIs(t, err, ErrNilParam)
	})
	t.Run("zero supply", func(t *testing.T) {
		p := base
		p.TotalSupply = amt(0)
		_, err := New(p)
		assert.ErrorIs(t, err, ErrNoSupply)
	})
	t.Run("zero timeout", func(t *testing.T) {
		p := base
		p.Timeout = 0
		_, err := New(p)
		assert.Error(t, err)
	})
}

func TestBuy(t *testing.T) {
	f := newFixture(t, 1000)

	err := f.l.Buy(f.call(f.investor, 400), amt(400))
	require.NoError(t, err)

	assert.Equal(t, amt(400), f.l.BalanceOf(f.investor))
	assert.Equal(t, amt(600), f.l.BalanceOf(f.owner))
	assert.Equal(t, amt(400), f.l.Held())
	assert.Equal(t, StageFunding, f.l.Stage(), "partial subscription keeps the round open")

	require.Len(t, f.sink.Events, 1)
	buy, ok := f.sink.Events[0].(BuyEvent)
	require.True(t, ok)
	assert.Equal(t, f.investor, buy.Buyer)
	assert.Equal(t, amt(400), buy.Amount)
}

func TestBuy_FullSubscriptionClosesRound(t *testing.T) {
	f := newFixture(t, 1000)
	other := makeAddr(0xBB)

	require.NoError(t, f.l.Buy(f.call(f.investor, 600), amt(600)))
	require.NoError(t, f.l.Buy(f.call(other, 400), amt(400)))

	assert.Equal(t, StagePending, f.l.Stage(), "buying the last unit advances the stage in the same operation")
	require.Len(t, f.sink.Events, 3)
	stage, ok := f.sink.Events[2].(StageEvent)
	require.True(t, ok)
	assert.Equal(t, StagePending, stage.Stage)
}

func TestBuy_Errors(t *testing.T) {
	f := newFixture(t, 1000)

	t.Run("value mismatch", func(t *testing.T) {
		err := f.l.Buy(f.call(f.investor, 300), amt(400))
		assert.ErrorIs(t, err, ErrValueMismatch)
	})
	t.Run("exceeds unsold supply", func(t *testing.T) {
		err := f.l.Buy(f.call(f.investor, 1001), amt(1001))
		assert.ErrorIs(t, err, ErrInsufficientBalance)
	})
	t.Run("zero amount", func(t *testing.T) {
		err := f.l.Buy(f.call(f.investor, 0), amt(0))
		assert.ErrorIs(t, err, ErrZeroValue)
	})
	t.Run("nil amount", func(t *testing.T) {
		err := f.l.Buy(f.call(f.investor, 0), nil)
		assert.ErrorIs(t, err, ErrNilParam)
	})
	t.Run("no mutation on failure", func(t *testing.T) {
		assert.Equal(t, amt(1000), f.l.BalanceOf(f.owner))
		assert.True(t, f.l.BalanceOf(f.investor).IsZero())
		assert.True(t, f.l.Held().IsZero())
	})
}

func TestBuy_WrongStage(t *testing.T) {
	f := newFixture(t, 1000)
	f.fund(t)

	err := f.l.Buy(f.call(f.investor, 10), amt(10))
	assert.ErrorIs(t, err, ErrWrongStage)
}

func TestTransfer(t *testing.T) {
	f := newFixture(t, 1000)
	other := makeAddr(0xBB)

	require.NoError(t, f.l.Buy(f.call(f.investor, 500), amt(500)))
	require.NoError(t, f.l.Transfer(f.call(f.investor, 0), other, amt(200)))

	assert.Equal(t, amt(300), f.l.BalanceOf(f.investor))
	assert.Equal(t, amt(200), f.l.BalanceOf(other))
	assert.Empty(t, f.bank.Payments, "no dividend to flush before activation")
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	f := newFixture(t, 1000)

	err := f.l.Transfer(f.call(f.investor, 0), makeAddr(0xBB), amt(1))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestTransfer_SelfTransfer(t *testing.T) {
	f := newFixture(t, 1000)
	require.NoError(t, f.l.Buy(f.call(f.investor, 500), amt(500)))

	require.NoError(t, f.l.Transfer(f.call(f.investor, 0), f.investor, amt(500)))
	assert.Equal(t, amt(500), f.l.BalanceOf(f.investor))
}

func TestTransfer_AnyStage(t *testing.T) {
	f := newFixture(t, 1000)
	other := makeAddr(0xBB)
	f.activate(t)

	// Active stage.
	require.NoError(t, f.l.Transfer(f.call(f.investor, 0), other, amt(100)))
	assert.Equal(t, amt(100), f.l.BalanceOf(other))
}

func TestReclaim(t *testing.T) {
	f := newFixture(t, 1000)
	require.NoError(t, f.l.Buy(f.call(f.investor, 600), amt(600)))

	// Expire the round.
	expired := Call{Caller: f.investor, Now: f.at(2 * time.Hour)}
	require.NoError(t, f.l.Reclaim(expired))
	assert.Equal(t, StageFailed, f.l.Stage())

	require.Len(t, f.bank.Payments, 1)
	assert.Equal(t, f.investor, f.bank.Payments[0].To)
	assert.Equal(t, amt(600), f.bank.Payments[0].Amount)

	assert.True(t, f.l.BalanceOf(f.investor).IsZero())
	assert.Equal(t, amt(1000), f.l.BalanceOf(f.owner), "reclaimed units return to the unsold pool")
	assert.True(t, f.l.Held().IsZero())
}

func TestReclaim_PaysExactlyOnce(t *testing.T) {
	f := newFixture(t, 1000)
	require.NoError(t, f.l.Buy(f.call(f.investor, 600), amt(600)))

	expired := Call{Caller: f.investor, Now: f.at(2 * time.Hour)}
	require.NoError(t, f.l.Reclaim(expired))
	require.NoError(t, f.l.Reclaim(expired), "second reclaim succeeds paying nothing")
	require.NoError(t, f.l.Reclaim(expired))

	assert.Len(t, f.bank.Payments, 1)
}

func TestReclaim_OwnerBarred(t *testing.T) {
	f := newFixture(t, 1000)
	require.NoError(t, f.l.Buy(f.call(f.investor, 600), amt(600)))

	err := f.l.Reclaim(Call{Caller: f.owner, Now: f.at(2 * time.Hour)})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestReclaim_WrongStage(t *testing.T) {
	f := newFixture(t, 1000)

	err := f.l.Reclaim(f.call(f.investor, 0))
	assert.ErrorIs(t, err, ErrWrongStage)
}

func TestBankFailureRollsBack(t *testing.T) {
	f := newFixture(t, 1000)
	require.NoError(t, f.l.Buy(f.call(f.investor, 600), amt(600)))

	f.bank.PayFn = func(Address, *uint256.Int) error {
		return assert.AnError
	}
	err := f.l.Reclaim(Call{Caller: f.investor, Now: f.at(2 * time.Hour)})
	require.ErrorIs(t, err, ErrTransferFailed)

	assert.Equal(t, amt(600), f.l.BalanceOf(f.investor), "failed reclaim leaves state unchanged")
	assert.Equal(t, amt(400), f.l.BalanceOf(f.owner))
	assert.Equal(t, amt(600), f.l.Held())
	assert.Empty(t, f.bank.Payments)
}

func TestAddressFromHex(t *testing.T) {
	addr := makeAddr(0xAB)

	parsed, err := AddressFromHex(addr.String())
	require.NoError(t, err)
	assert.Equal(t, addr, parsed)

	_, err = AddressFromHex("zz")
	assert.ErrorIs(t, err, ErrInvalidAddress)
	_, err = AddressFromHex("abcd")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}
