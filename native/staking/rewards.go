package staking

import (
	"tierstake/core/events"
	"tierstake/native/common"
)

// ClaimResult reports a reward payout.
type ClaimResult struct {
	Stake  *UserStake
	Escrow *RewardEscrow
	Amount uint64
}

// ClaimRewards settles caller's accrual and pays every unclaimed reward out of
// the escrow vault. Nothing is paid when the escrow cannot cover the full
// amount.
func (e *Engine) ClaimRewards(caller, mint [20]byte) (*ClaimResult, error) {
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
	if err := requireMint(program, mint); err != nil {
		return nil, err
	}
	stake, err := e.loadActiveStake(caller)
	if err != nil {
		return nil, err
	}
	escrow, err := e.loadEscrow()
	if err != nil {
		return nil, err
	}
	now := e.now()
	if err := settle(stake, now); err != nil {
		return nil, err
	}
	claimable := stake.Unclaimed()
	if claimable == 0 {
		return nil, ErrNoRewards
	}
	if escrow.TotalBalance < claimable {
		return nil, ErrInsufficientEscrowBalance
	}
	claimed, err := addU64(stake.RewardsClaimed, claimable)
	if err != nil {
		return nil, err
	}
	distributed, err := addU64(escrow.TotalDistributed, claimable)
	if err != nil {
		return nil, err
	}

	accts, err := ProgramAccounts()
	if err != nil {
		return nil, err
	}
	if err := e.state.Transfer(program.Mint, accts.EscrowVault, caller, claimable); err != nil {
		return nil, err
	}
	stake.RewardsClaimed = claimed
	escrow.TotalBalance -= claimable
	escrow.TotalDistributed = distributed
	if err := e.state.PutUserStake(stake); err != nil {
		return nil, err
	}
	if err := e.state.PutRewardEscrow(escrow); err != nil {
		return nil, err
	}
	e.emit(events.StakeRewardsClaimed{User: caller, Amount: claimable, TotalDistributed: distributed})
	return &ClaimResult{Stake: stake.Clone(), Escrow: escrow.Clone(), Amount: claimable}, nil
}

// CompoundResult reports rewards folded into principal.
type CompoundResult struct {
	Stake   *UserStake
	Amount  uint64
	OldTier Tier
	NewTier Tier
}

// CompoundRewards settles caller's accrual and re-labels every unclaimed
// reward as principal. Tokens stay where they are; only the escrow's liquid
// balance is reduced.
func (e *Engine) CompoundRewards(caller [20]byte) (*CompoundResult, error) {
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
	stake, err := e.loadActiveStake(caller)
	if err != nil {
		return nil, err
	}
	escrow, err := e.loadEscrow()
	if err != nil {
		return nil, err
	}
	now := e.now()
	if err := settle(stake, now); err != nil {
		return nil, err
	}
	unclaimed := stake.Unclaimed()
	if unclaimed == 0 {
		return nil, ErrNoRewards
	}
	if escrow.TotalBalance < unclaimed {
		return nil, ErrInsufficientEscrowBalance
	}
	principal, err := addU64(stake.StakedAmount, unclaimed)
	if err != nil {
		return nil, err
	}
	distributed, err := addU64(escrow.TotalDistributed, unclaimed)
	if err != nil {
		return nil, err
	}
	totalStaked, err := addU64(program.TotalStaked, unclaimed)
	if err != nil {
		return nil, err
	}

	oldTier := stake.Tier
	stake.StakedAmount = principal
	stake.Tier = ClassifyTier(principal)
	stake.RewardsClaimed = stake.RewardsEarned
	escrow.TotalBalance -= unclaimed
	escrow.TotalDistributed = distributed
	program.TotalStaked = totalStaked
	if err := e.state.PutUserStake(stake); err != nil {
		return nil, err
	}
	if err := e.state.PutRewardEscrow(escrow); err != nil {
		return nil, err
	}
	if err := e.state.PutProgramState(program); err != nil {
		return nil, err
	}
	e.emit(events.StakeRewardsCompounded{
		User:             caller,
		AmountCompounded: unclaimed,
		NewStakeAmount:   principal,
		OldTier:          uint8(oldTier),
		NewTier:          uint8(stake.Tier),
		Timestamp:        now,
	})
	return &CompoundResult{Stake: stake.Clone(), Amount: unclaimed, OldTier: oldTier, NewTier: stake.Tier}, nil
}

// PendingRewards previews the rewards caller could claim at the engine's
// current time without mutating state.
func (e *Engine) PendingRewards(owner [20]byte) (uint64, error) {
	if _, err := e.loadProgram(); err != nil {
		return 0, err
	}
	stake, err := e.loadActiveStake(owner)
	if err != nil {
		return 0, err
	}
	preview := stake.Clone()
	if err := settle(preview, e.now()); err != nil {
		return 0, err
	}
	return preview.Unclaimed(), nil
}
