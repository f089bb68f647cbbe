package ledger

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/holiman/uint256"
)

// Snapshot binary format, version 1. All integers big-endian, amounts as
// 32-byte words, account lists sorted by address so the encoding is
// deterministic.
//
//	version(1) stage(1)
//	name_len(2) name symbol_len(2) symbol
//	owner(20) broker(20) custodian(20)
//	creation_unix(8) timeout_seconds(8)
//	total_supply(32) total_payout(32) held(32)
//	num_accounts(4) [addr(20) balance(32) claimed_payout(32)]...
//	num_unliquidated(4) [addr(20) amount(32)]...
const snapshotVersion = 1

// Serialize encodes the full ledger state. Restore reverses it.
func (l *Ledger) Serialize() ([]byte, error) {
	if len(l.name) > math.MaxUint16 || len(l.symbol) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: name or symbol too long", ErrInvalidSnapshot)
	}
	if len(l.accounts) > math.MaxUint32 || len(l.unliquidated) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: too many accounts", ErrInvalidSnapshot)
	}

	buf := make([]byte, 0, 256+len(l.accounts)*84+len(l.unliquidated)*52)
	buf = append(buf, snapshotVersion, byte(l.stage))
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(l.name)))
	buf = append(buf, l.name...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(l.symbol)))
	buf = append(buf, l.symbol...)
	buf = append(buf, l.owner[:]...)
	buf = append(buf, l.broker[:]...)
	buf = append(buf, l.custodian[:]...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(l.creationTime.Unix()))
	buf = binary.BigEndian.AppendUint64(buf, uint64(l.timeout/time.Second))
	buf = appendWord(buf, &l.totalSupply)
	buf = appendWord(buf, &l.totalPayout)
	buf = appendWord(buf, &l.held)

	accountAddrs := make([]Address, 0, len(l.accounts))
	for addr := range l.accounts {
		accountAddrs = append(accountAddrs, addr)
	}
	sortAddresses(accountAddrs)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(accountAddrs)))
	for _, addr := range accountAddrs {
		acct := l.accounts[addr]
		buf = append(buf, addr[:]...)
		buf = appendWord(buf, &acct.balance)
		buf = appendWord(buf, &acct.claimedPayout)
	}

	unliqAddrs := make([]Address, 0, len(l.unliquidated))
	for addr := range l.unliquidated {
		unliqAddrs = append(unliqAddrs, addr)
	}
	sortAddresses(unliqAddrs)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(unliqAddrs)))
	for _, addr := range unliqAddrs {
		buf = append(buf, addr[:]...)
		buf = appendWord(buf, l.unliquidated[addr])
	}

	return buf, nil
}

// Restore decodes a snapshot produced by Serialize and reattaches the
// environment collaborators. A nil sink discards events.
func Restore(data []byte, bank Bank, sink Sink) (*Ledger, error) {
	if bank == nil {
		return nil, fmt.Errorf("%w: bank", ErrNilParam)
	}
	if sink == nil {
		sink = NopSink{}
	}

	r := &reader{data: data}
	version := r.byte()
	if version != snapshotVersion {
		return nil, fmt.Errorf("%w: unknown version %d", ErrInvalidSnapshot, version)
	}
	stage := Stage(r.byte())
	if stage > StageActive {
		return nil, fmt.Errorf("%w: unknown stage %d", ErrInvalidSnapshot, stage)
	}

	l := &Ledger{
		stage:        stage,
		accounts:     make(map[Address]*account),
		unliquidated: make(map[Address]*uint256.Int),
		bank:         bank,
		sink:         sink,
	}
	l.name = string(r.bytes(int(r.uint16())))
	l.symbol = string(r.bytes(int(r.uint16())))
	l.owner = r.address()
	l.broker = r.address()
	l.custodian = r.address()
	l.creationTime = time.Unix(int64(r.uint64()), 0).UTC()
	l.timeout = time.Duration(r.uint64()) * time.Second
	l.totalSupply.Set(r.word())
	l.totalPayout.Set(r.word())
	l.held.Set(r.word())

	numAccounts := r.uint32()
	for i := uint32(0); i < numAccounts && r.err == nil; i++ {
		addr := r.address()
		acct := &account{}
		acct.balance.Set(r.word())
		acct.claimedPayout.Set(r.word())
		l.accounts[addr] = acct
	}
	numUnliq := r.uint32()
	for i := uint32(0); i < numUnliq && r.err == nil; i++ {
		addr := r.address()
		l.unliquidated[addr] = r.word().Clone()
	}

	if r.err != nil {
		return nil, r.err
	}
	if r.off != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidSnapshot, len(data)-r.off)
	}
	return l, nil
}

func appendWord(buf []byte, v *uint256.Int) []byte {
	w := v.Bytes32()
	return append(buf, w[:]...)
}

func sortAddresses(addrs []Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
}

// reader is a cursor over snapshot bytes. The first short read sets err
// and every later read returns zero values.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.data) {
		r.err = fmt.Errorf("%w: truncated at offset %d", ErrInvalidSnapshot, r.off)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) byte() byte {
	b := r.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) uint16() uint16 {
	b := r.bytes(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) uint32() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) uint64() uint64 {
	b := r.bytes(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (r *reader) address() Address {
	var a Address
	copy(a[:], r.bytes(20))
	return a
}

func (r *reader) word() *uint256.Int {
	return new(uint256.Int).SetBytes(r.bytes(32))
}
