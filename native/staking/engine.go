package staking

import (
	"fmt"
	"time"

	"tierstake/core/events"
)

type engineState interface {
	ProgramState() (*ProgramState, bool, error)
	PutProgramState(*ProgramState) error
	RewardEscrow() (*RewardEscrow, bool, error)
	PutRewardEscrow(*RewardEscrow) error
	UserStake(owner [20]byte) (*UserStake, bool, error)
	PutUserStake(*UserStake) error
	Transfer(mint, from, to [20]byte, amount uint64) error
}

// Engine applies staking operations to the configured state. One engine is
// bound to one state transaction; it holds no records between calls.
type Engine struct {
	state   engineState
	emitter events.Emitter
	nowFn   func() int64
}

// NewEngine creates a staking engine with a no-op emitter and the wall clock.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets to a no-op emitter.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) now() int64 {
	if e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) emit(evt events.Event) {
	if e.emitter == nil {
		return
	}
	e.emitter.Emit(evt)
}

func (e *Engine) loadProgram() (*ProgramState, error) {
	if e.state == nil {
		return nil, errNilState
	}
	program, ok, err := e.state.ProgramState()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return program, nil
}

func (e *Engine) loadEscrow() (*RewardEscrow, error) {
	escrow, ok, err := e.state.RewardEscrow()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotInitialized
	}
	return escrow, nil
}

// loadStake returns the caller's record, or a fresh uninitialized one when no
// deposit exists yet.
func (e *Engine) loadStake(owner [20]byte) (*UserStake, error) {
	stake, ok, err := e.state.UserStake(owner)
	if err != nil {
		return nil, err
	}
	if !ok || stake == nil {
		return &UserStake{Status: StatusUninitialized}, nil
	}
	if stake.Active() && stake.Owner != owner {
		return nil, ErrInvalidOwner
	}
	return stake, nil
}

func (e *Engine) loadActiveStake(owner [20]byte) (*UserStake, error) {
	stake, err := e.loadStake(owner)
	if err != nil {
		return nil, err
	}
	if !stake.Active() {
		return nil, ErrStakeNotFound
	}
	return stake, nil
}

// requireUserIdentity rejects program-derived identities. They hold pooled
// tokens and never act on their own behalf.
func requireUserIdentity(id [20]byte, reject error) error {
	accts, err := ProgramAccounts()
	if err != nil {
		return err
	}
	if accts.Contains(id) {
		return reject
	}
	return nil
}

// pausedError keeps both the ledger sentinel and the guard error matchable.
func pausedError(guardErr error) error {
	return fmt.Errorf("%w: %w", ErrProgramPaused, guardErr)
}

func requireMint(program *ProgramState, mint [20]byte) error {
	if program.Mint != mint {
		return ErrInvalidMint
	}
	return nil
}

func requireAuthority(program *ProgramState, caller [20]byte) error {
	if program.Authority != caller {
		return ErrInvalidAuthority
	}
	return nil
}

// pendingRewards returns the accrual since the last settlement. Positions
// below the Gold minimum earn nothing.
func pendingRewards(stake *UserStake, now int64) (uint64, error) {
	rate, err := TierRate(stake.StakedAmount)
	if err != nil {
		return 0, nil
	}
	return CalculateRewards(stake.StakedAmount, rate, stake.LastClaimTimestamp, now)
}

// settle folds pending accrual into RewardsEarned and advances the settlement
// clock. The clock never moves backwards.
func settle(stake *UserStake, now int64) error {
	pending, err := pendingRewards(stake, now)
	if err != nil {
		return err
	}
	earned, err := addU64(stake.RewardsEarned, pending)
	if err != nil {
		return err
	}
	stake.RewardsEarned = earned
	if now > stake.LastClaimTimestamp {
		stake.LastClaimTimestamp = now
	}
	return nil
}
