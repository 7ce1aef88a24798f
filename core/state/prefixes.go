package state

import (
	"fmt"

	"tierstake/native/staking"
)

var (
	programStatePrefix = []byte("staking/program/")
	rewardEscrowPrefix = []byte("staking/escrow/")
	userStakePrefix    = []byte("staking/user/")
	balancePrefix      = []byte("ledger/balance/")
	genesisMarkerKey   = []byte("ledger/genesis")
)

func concatKey(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, p := range parts {
		size += len(p)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return buf
}

// ProgramStateKey is the store key of the program state, addressed by its
// derived identity.
func ProgramStateKey() ([]byte, error) {
	accts, err := staking.ProgramAccounts()
	if err != nil {
		return nil, err
	}
	return concatKey(programStatePrefix, accts.ProgramState[:]), nil
}

// RewardEscrowKey is the store key of the reward escrow.
func RewardEscrowKey() ([]byte, error) {
	accts, err := staking.ProgramAccounts()
	if err != nil {
		return nil, err
	}
	return concatKey(rewardEscrowPrefix, accts.RewardEscrow[:]), nil
}

// UserStakeKey is the store key of owner's stake record.
func UserStakeKey(owner [20]byte) ([]byte, error) {
	addr, _, err := staking.UserStakeAddress(owner)
	if err != nil {
		return nil, fmt.Errorf("derive user stake: %w", err)
	}
	return concatKey(userStakePrefix, addr[:]), nil
}

// UserStakePrefix is the common prefix of every stake record key.
func UserStakePrefix() []byte { return append([]byte(nil), userStakePrefix...) }

// BalanceKey is the store key of owner's balance of mint.
func BalanceKey(mint, owner [20]byte) []byte {
	return concatKey(balancePrefix, mint[:], owner[:])
}

// GenesisKey marks that the configured allocations were credited.
func GenesisKey() []byte { return append([]byte(nil), genesisMarkerKey...) }
