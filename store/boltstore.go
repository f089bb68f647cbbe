// Package store persists claim ledger state and its event stream in a
// bbolt database: the latest binary snapshot under one bucket, and an
// append-only event journal keyed by sequence number under another.
package store

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/holiman/uint256"
	"go.etcd.io/bbolt"

	"github.com/claimledger/libclaim-go/ledger"
)

var (
	bucketState  = []byte("state")
	bucketEvents = []byte("events")

	keyCurrent = []byte("current")
)

// BoltStore wraps a bbolt database for ledger snapshots and event journaling.
type BoltStore struct {
	db *bbolt.DB
}

// Open opens or creates the bbolt database at dbPath. The parent directory
// is created if it does not exist.
func Open(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketState, bucketEvents} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("store: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// SaveState stores a ledger snapshot, replacing any previous one.
func (s *BoltStore) SaveState(snapshot []byte) error {
	if len(snapshot) == 0 {
		return fmt.Errorf("%w: snapshot", ErrNilParam)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketState).Put(keyCurrent, snapshot); err != nil {
			return fmt.Errorf("store: put state: %w", err)
		}
		return nil
	})
}

// LoadState returns the most recently saved ledger snapshot.
func (s *BoltStore) LoadState() ([]byte, error) {
	var snapshot []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketState).Get(keyCurrent)
		if data == nil {
			return ErrStateNotFound
		}
		snapshot = make([]byte, len(data))
		copy(snapshot, data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Sink returns a ledger.Sink that journals every event in this database.
func (s *BoltStore) Sink() *BoltSink { return &BoltSink{db: s.db} }

// seqKey encodes a journal sequence number as an 8-byte big-endian key so
// a cursor replays events in emission order.
func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

// journalRecord is the gob wire form of one event. Amounts travel as
// minimal big-endian bytes.
type journalRecord struct {
	Kind   string
	Stage  uint8
	From   [20]byte
	To     [20]byte
	Amount []byte
}

func encodeRecord(rec *journalRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (*journalRecord, error) {
	var rec journalRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func recordFromEvent(ev ledger.Event) *journalRecord {
	rec := &journalRecord{Kind: ev.Kind()}
	switch ev := ev.(type) {
	case ledger.StageEvent:
		rec.Stage = uint8(ev.Stage)
	case ledger.BuyEvent:
		rec.From = ev.Buyer
		rec.Amount = ev.Amount.Bytes()
	case ledger.SellEvent:
		rec.From = ev.Seller
		rec.Amount = ev.Amount.Bytes()
	case ledger.PayoutEvent:
		rec.Amount = ev.Value.Bytes()
	case ledger.TransferEvent:
		rec.From = ev.From
		rec.To = ev.To
		rec.Amount = ev.Value.Bytes()
	}
	return rec
}

func eventFromRecord(rec *journalRecord) (ledger.Event, error) {
	amount := new(uint256.Int).SetBytes(rec.Amount)
	switch rec.Kind {
	case "stage":
		return ledger.StageEvent{Stage: ledger.Stage(rec.Stage)}, nil
	case "buy":
		return ledger.BuyEvent{Buyer: rec.From, Amount: amount}, nil
	case "sell":
		return ledger.SellEvent{Seller: rec.From, Amount: amount}, nil
	case "payout":
		return ledger.PayoutEvent{Value: amount}, nil
	case "transfer":
		return ledger.TransferEvent{From: rec.From, To: rec.To, Value: amount}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, rec.Kind)
	}
}

// BoltSink implements ledger.Sink by appending events to the journal.
// Emit cannot return an error through the Sink interface; the first append
// failure is retained and exposed via Err.
type BoltSink struct {
	db  *bbolt.DB
	err error
}

// Compile-time interface check.
var _ ledger.Sink = (*BoltSink)(nil)

func (s *BoltSink) Emit(ev ledger.Event) {
	if err := s.append(ev); err != nil && s.err == nil {
		s.err = err
	}
}

// Err returns the first journaling failure, if any.
func (s *BoltSink) Err() error { return s.err }

func (s *BoltSink) append(ev ledger.Event) error {
	data, err := encodeRecord(recordFromEvent(ev))
	if err != nil {
		return fmt.Errorf("store: encode event: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("store: journal sequence: %w", err)
		}
		if err := b.Put(seqKey(seq), data); err != nil {
			return fmt.Errorf("store: put event: %w", err)
		}
		return nil
	})
}

// Events replays the full journal in emission order.
func (s *BoltStore) Events() ([]ledger.Event, error) {
	var events []ledger.Event
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketEvents).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			rec, err := decodeRecord(v)
			if err != nil {
				return fmt.Errorf("store: decode event: %w", err)
			}
			ev, err := eventFromRecord(rec)
			if err != nil {
				return err
			}
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}
