package staking

import (
	"tierstake/core/events"
	"tierstake/native/common"
)

// Stake locks amount from caller into the stake vault. A first deposit creates
// the caller's record; later deposits settle accrual at the pre-deposit
// principal, then extend the lock and reset the penalty clock for the whole
// position.
func (e *Engine) Stake(caller, mint [20]byte, amount uint64) (*UserStake, error) {
	if err := requireUserIdentity(caller, ErrInvalidOwner); err != nil {
		return nil, err
	}
	program, err := e.loadProgram()
	if err != nil {
		return nil, err
	}
	if err := common.Guard(program, ModuleName); err != nil {
		return nil, pausedError(err)
	}
	if amount < GoldMin {
		return nil, ErrAmountTooLow
	}
	if err := requireMint(program, mint); err != nil {
		return nil, err
	}
	stake, err := e.loadStake(caller)
	if err != nil {
		return nil, err
	}

	now := e.now()
	lockedUntil, err := addTime(now, LockDuration)
	if err != nil {
		return nil, err
	}
	totalStaked, err := addU64(program.TotalStaked, amount)
	if err != nil {
		return nil, err
	}

	if !stake.Active() {
		users, err := addU64(program.TotalUsers, 1)
		if err != nil {
			return nil, err
		}
		stake = &UserStake{
			Owner:              caller,
			Status:             StatusActive,
			StakedAmount:       amount,
			StakeTimestamp:     now,
			LastStakeTimestamp: now,
			LastClaimTimestamp: now,
			LockedUntil:        lockedUntil,
		}
		program.TotalUsers = users
	} else {
		if err := settle(stake, now); err != nil {
			return nil, err
		}
		principal, err := addU64(stake.StakedAmount, amount)
		if err != nil {
			return nil, err
		}
		stake.StakedAmount = principal
		stake.LastClaimTimestamp = now
		stake.LastStakeTimestamp = now
		stake.LockedUntil = lockedUntil
	}
	stake.Tier = ClassifyTier(stake.StakedAmount)
	program.TotalStaked = totalStaked

	accts, err := ProgramAccounts()
	if err != nil {
		return nil, err
	}
	if err := e.state.Transfer(program.Mint, caller, accts.StakeVault, amount); err != nil {
		return nil, err
	}
	if err := e.state.PutUserStake(stake); err != nil {
		return nil, err
	}
	if err := e.state.PutProgramState(program); err != nil {
		return nil, err
	}
	e.emit(events.StakeCompleted{
		User:        caller,
		Amount:      amount,
		Tier:        uint8(stake.Tier),
		TotalStaked: stake.StakedAmount,
	})
	return stake.Clone(), nil
}

// UnstakeResult reports what a withdrawal paid out.
type UnstakeResult struct {
	Stake    *UserStake
	Amount   uint64
	Penalty  uint64
	Received uint64
}

// Unstake withdraws amount of caller's principal once the lock has elapsed.
// The early-withdrawal penalty is withheld from the payout and credited to the
// reward escrow.
func (e *Engine) Unstake(caller, mint [20]byte, amount uint64) (*UnstakeResult, error) {
	if err := requireUserIdentity(caller, ErrInvalidOwner); err != nil {
		return nil, err
	}
	program, err := e.loadProgram()
	if err != nil {
		return nil, err
	}
	if err := common.Guard(program, ModuleName); err != nil {
		return nil, pausedError(err)
	}
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if err := requireMint(program, mint); err != nil {
		return nil, err
	}
	stake, err := e.loadActiveStake(caller)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if now < stake.LockedUntil {
		return nil, ErrTokensLocked
	}
	if amount > stake.StakedAmount {
		return nil, ErrInsufficientStake
	}
	if err := settle(stake, now); err != nil {
		return nil, err
	}

	penalty := CalculatePenalty(stake.LastStakeTimestamp, now, amount)
	received, err := subU64(amount, penalty)
	if err != nil {
		return nil, err
	}
	principal, err := subU64(stake.StakedAmount, amount)
	if err != nil {
		return nil, err
	}
	totalStaked, err := subU64(program.TotalStaked, amount)
	if err != nil {
		return nil, err
	}

	accts, err := ProgramAccounts()
	if err != nil {
		return nil, err
	}
	if err := e.state.Transfer(program.Mint, accts.StakeVault, caller, received); err != nil {
		return nil, err
	}
	if penalty > 0 {
		escrow, err := e.loadEscrow()
		if err != nil {
			return nil, err
		}
		balance, err := addU64(escrow.TotalBalance, penalty)
		if err != nil {
			return nil, err
		}
		if err := e.state.Transfer(program.Mint, accts.StakeVault, accts.EscrowVault, penalty); err != nil {
			return nil, err
		}
		escrow.TotalBalance = balance
		if err := e.state.PutRewardEscrow(escrow); err != nil {
			return nil, err
		}
	}

	stake.StakedAmount = principal
	stake.Tier = ClassifyTier(principal)
	program.TotalStaked = totalStaked
	if err := e.state.PutUserStake(stake); err != nil {
		return nil, err
	}
	if err := e.state.PutProgramState(program); err != nil {
		return nil, err
	}
	e.emit(events.StakeUnstaked{
		User:           caller,
		Amount:         amount,
		Penalty:        penalty,
		RemainingStake: principal,
		NewTier:        uint8(stake.Tier),
	})
	return &UnstakeResult{Stake: stake.Clone(), Amount: amount, Penalty: penalty, Received: received}, nil
}
