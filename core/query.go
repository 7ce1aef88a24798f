package core

import (
	ledgerstate "tierstake/core/state"
	"tierstake/native/staking"
)

// ProgramState returns the committed program singleton.
func (n *Node) ProgramState() (*staking.ProgramState, error) {
	mgr := ledgerstate.NewManager(n.db)
	defer mgr.Discard()
	program, ok, err := mgr.ProgramState()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, staking.ErrNotInitialized
	}
	return program, nil
}

// Escrow returns the committed reward escrow singleton.
func (n *Node) Escrow() (*staking.RewardEscrow, error) {
	mgr := ledgerstate.NewManager(n.db)
	defer mgr.Discard()
	escrow, ok, err := mgr.RewardEscrow()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, staking.ErrNotInitialized
	}
	return escrow, nil
}

// UserStake returns owner's committed stake record.
func (n *Node) UserStake(owner [20]byte) (*staking.UserStake, error) {
	mgr := ledgerstate.NewManager(n.db)
	defer mgr.Discard()
	stake, ok, err := mgr.UserStake(owner)
	if err != nil {
		return nil, err
	}
	if !ok || !stake.Active() {
		return nil, staking.ErrStakeNotFound
	}
	return stake, nil
}

// PendingRewards previews owner's claimable rewards at the current time.
func (n *Node) PendingRewards(owner [20]byte) (uint64, error) {
	mgr := ledgerstate.NewManager(n.db)
	defer mgr.Discard()
	engine := staking.NewEngine()
	engine.SetState(mgr)
	engine.SetNowFunc(n.now)
	return engine.PendingRewards(owner)
}

// Balance returns owner's committed token balance of mint.
func (n *Node) Balance(mint, owner [20]byte) (uint64, error) {
	mgr := ledgerstate.NewManager(n.db)
	defer mgr.Discard()
	return mgr.Balance(mint, owner)
}

// Audit checks every ledger invariant against the committed state.
func (n *Node) Audit() ([]staking.Violation, error) {
	snap, err := ledgerstate.LoadSnapshot(n.db)
	if err != nil {
		return nil, err
	}
	return snap.Violations(), nil
}
