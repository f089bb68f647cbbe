package ledger

import (
	"fmt"
	"time"
)

// Stage is the phase of the funding lifecycle state machine.
//
// Legal transitions: Funding → Pending (full subscription),
// Funding → Failed (timeout), Pending → Active (custodian attestation),
// Pending → Failed (abort). Active and Failed are terminal.
type Stage uint8

const (
	StageFunding Stage = iota
	StagePending
	StageFailed
	StageActive
)

func (s Stage) String() string {
	switch s {
	case StageFunding:
		return "funding"
	case StagePending:
		return "pending"
	case StageFailed:
		return "failed"
	case StageActive:
		return "active"
	default:
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
}

// ValidTransition reports whether moving from one stage to another is legal.
func ValidTransition(from, to Stage) bool {
	switch from {
	case StageFunding:
		return to == StagePending || to == StageFailed
	case StagePending:
		return to == StageActive || to == StageFailed
	default:
		return false
	}
}

// Op identifies a ledger operation for stage dispatch.
type Op uint8

const (
	OpBuy Op = iota
	OpActivate
	OpReclaim
	OpSell
	OpLiquidated
	OpPayout
	OpClaim
	OpTransfer
)

func (op Op) String() string {
	switch op {
	case OpBuy:
		return "buy"
	case OpActivate:
		return "activate"
	case OpReclaim:
		return "reclaim"
	case OpSell:
		return "sell"
	case OpLiquidated:
		return "liquidated"
	case OpPayout:
		return "payout"
	case OpClaim:
		return "claim"
	case OpTransfer:
		return "transfer"
	default:
		return fmt.Sprintf("op(%d)", uint8(op))
	}
}

// requiredStage returns the stage an operation demands. guarded is false
// for operations that run in any stage (transfer only).
func requiredStage(op Op) (want Stage, guarded bool) {
	switch op {
	case OpBuy:
		return StageFunding, true
	case OpActivate:
		return StagePending, true
	case OpReclaim:
		return StageFailed, true
	case OpSell, OpLiquidated, OpPayout, OpClaim:
		return StageActive, true
	default:
		return 0, false
	}
}

// guard is the single dispatch point for stage preconditions: it applies
// the lazy funding timeout, then checks the operation's required stage.
func (l *Ledger) guard(op Op, now time.Time) error {
	l.tick(now)
	want, guarded := requiredStage(op)
	if !guarded {
		return nil
	}
	if l.stage != want {
		return fmt.Errorf("%w: %s requires %s, ledger is %s", ErrWrongStage, op, want, l.stage)
	}
	return nil
}

// tick force-fails an expired funding round. The check is lazy: it runs at
// the head of every incoming mutating call, never from a timer, so an
// expired round flips to Failed on the next call of any kind.
func (l *Ledger) tick(now time.Time) {
	if l.stage == StageFunding && !now.Before(l.creationTime.Add(l.timeout)) {
		l.setStage(StageFailed)
	}
}

// setStage commits a stage transition and emits the Stage event.
func (l *Ledger) setStage(s Stage) {
	l.stage = s
	l.emit(StageEvent{Stage: s})
}
