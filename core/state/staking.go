package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"tierstake/native/staking"
	"tierstake/storage"
)

// ProgramState loads the staking program singleton.
func (m *Manager) ProgramState() (*staking.ProgramState, bool, error) {
	key, err := ProgramStateKey()
	if err != nil {
		return nil, false, err
	}
	stored := new(storedProgramState)
	ok, err := m.KVGet(key, stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return stored.toProgramState(), true, nil
}

// PutProgramState persists the staking program singleton.
func (m *Manager) PutProgramState(p *staking.ProgramState) error {
	if p == nil {
		return errors.New("state: nil program state")
	}
	key, err := ProgramStateKey()
	if err != nil {
		return err
	}
	return m.KVPut(key, newStoredProgramState(p))
}

// RewardEscrow loads the reward escrow singleton.
func (m *Manager) RewardEscrow() (*staking.RewardEscrow, bool, error) {
	key, err := RewardEscrowKey()
	if err != nil {
		return nil, false, err
	}
	stored := new(storedRewardEscrow)
	ok, err := m.KVGet(key, stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return stored.toRewardEscrow(), true, nil
}

// PutRewardEscrow persists the reward escrow singleton.
func (m *Manager) PutRewardEscrow(e *staking.RewardEscrow) error {
	if e == nil {
		return errors.New("state: nil reward escrow")
	}
	key, err := RewardEscrowKey()
	if err != nil {
		return err
	}
	return m.KVPut(key, newStoredRewardEscrow(e))
}

// UserStake loads owner's stake record.
func (m *Manager) UserStake(owner [20]byte) (*staking.UserStake, bool, error) {
	key, err := UserStakeKey(owner)
	if err != nil {
		return nil, false, err
	}
	stored := new(storedUserStake)
	ok, err := m.KVGet(key, stored)
	if err != nil || !ok {
		return nil, ok, err
	}
	return stored.toUserStake(), true, nil
}

// PutUserStake persists a stake record under its owner's derived key.
func (m *Manager) PutUserStake(s *staking.UserStake) error {
	if s == nil {
		return errors.New("state: nil user stake")
	}
	key, err := UserStakeKey(s.Owner)
	if err != nil {
		return err
	}
	return m.KVPut(key, newStoredUserStake(s))
}

// Snapshot is a read-only view of every staking record, used for audits.
type Snapshot struct {
	Program     *staking.ProgramState
	Escrow      *staking.RewardEscrow
	Stakes      []*staking.UserStake
	StakeVault  uint64
	EscrowVault uint64
}

// LoadSnapshot reads the full staking ledger straight from db. It is not
// transactional; run it against a quiescent store for exact results.
func LoadSnapshot(db storage.Database) (*Snapshot, error) {
	mgr := NewManager(db)
	defer mgr.Discard()

	snap := &Snapshot{}
	program, ok, err := mgr.ProgramState()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, staking.ErrNotInitialized
	}
	snap.Program = program
	if escrow, ok, err := mgr.RewardEscrow(); err != nil {
		return nil, err
	} else if ok {
		snap.Escrow = escrow
	}
	accts, err := staking.ProgramAccounts()
	if err != nil {
		return nil, err
	}
	if snap.StakeVault, err = mgr.Balance(program.Mint, accts.StakeVault); err != nil {
		return nil, err
	}
	if snap.EscrowVault, err = mgr.Balance(program.Mint, accts.EscrowVault); err != nil {
		return nil, err
	}
	err = db.Iterate(UserStakePrefix(), func(key []byte, entry storage.Entry) error {
		stored := new(storedUserStake)
		if err := rlp.DecodeBytes(entry.Value, stored); err != nil {
			return fmt.Errorf("decode stake %x: %w", key, err)
		}
		snap.Stakes = append(snap.Stakes, stored.toUserStake())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Violations runs every ledger invariant against the snapshot.
func (s *Snapshot) Violations() []staking.Violation {
	out := staking.CheckInvariants(s.Program, s.Escrow, s.Stakes)
	return append(out, staking.CheckVaults(s.Program, s.Escrow, s.StakeVault, s.EscrowVault)...)
}
