package staking

import "tierstake/core/events"

// ProposeAuthorityChange records newAuthority as the pending authority. The
// handover becomes acceptable AuthorityTimelock seconds from now. A new
// proposal replaces any earlier one and restarts the timelock.
func (e *Engine) ProposeAuthorityChange(caller, newAuthority [20]byte) (*ProgramState, error) {
	program, err := e.loadProgram()
	if err != nil {
		return nil, err
	}
	if err := requireAuthority(program, caller); err != nil {
		return nil, err
	}
	if err := requireUserIdentity(newAuthority, ErrInvalidAuthority); err != nil {
		return nil, err
	}
	now := e.now()
	unlock, err := addTime(now, AuthorityTimelock)
	if err != nil {
		return nil, err
	}
	pending := newAuthority
	program.PendingAuthority = &pending
	program.AuthorityChangeTimestamp = unlock
	if err := e.state.PutProgramState(program); err != nil {
		return nil, err
	}
	e.emit(events.StakeAuthorityUpdated{
		OldAuthority: program.Authority,
		NewAuthority: newAuthority,
		Timestamp:    now,
		Pending:      true,
	})
	return program.Clone(), nil
}

// AcceptAuthorityChange completes a proposed handover once the timelock has
// elapsed. Only the proposed authority may accept.
func (e *Engine) AcceptAuthorityChange(caller [20]byte) (*ProgramState, error) {
	program, err := e.loadProgram()
	if err != nil {
		return nil, err
	}
	if !program.HasPendingAuthority() {
		return nil, ErrNoPendingAuthorityChange
	}
	now := e.now()
	if now < program.AuthorityChangeTimestamp {
		return nil, ErrTimelockNotExpired
	}
	if *program.PendingAuthority != caller {
		return nil, ErrInvalidAuthority
	}
	old := program.Authority
	program.Authority = *program.PendingAuthority
	program.PendingAuthority = nil
	program.AuthorityChangeTimestamp = 0
	if err := e.state.PutProgramState(program); err != nil {
		return nil, err
	}
	e.emit(events.StakeAuthorityUpdated{
		OldAuthority: old,
		NewAuthority: program.Authority,
		Timestamp:    now,
	})
	return program.Clone(), nil
}

// SetPaused toggles the pause flag. Only the authority may call it and it is
// allowed while paused.
func (e *Engine) SetPaused(caller [20]byte, paused bool) (*ProgramState, error) {
	program, err := e.loadProgram()
	if err != nil {
		return nil, err
	}
	if err := requireAuthority(program, caller); err != nil {
		return nil, err
	}
	program.Paused = paused
	if err := e.state.PutProgramState(program); err != nil {
		return nil, err
	}
	e.emit(events.StakePausedChanged{Authority: caller, Paused: paused, Timestamp: e.now()})
	return program.Clone(), nil
}
