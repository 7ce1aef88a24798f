package staking

import (
	"fmt"
	"sync"

	"tierstake/crypto"
)

// Accounts lists the derived identities owned by the program together with
// the bump seeds that produced them.
type Accounts struct {
	ProgramState     [20]byte
	ProgramStateBump uint8
	StakeVault       [20]byte
	VaultBump        uint8
	RewardEscrow     [20]byte
	RewardEscrowBump uint8
	EscrowVault      [20]byte
	EscrowVaultBump  uint8
}

// Contains reports whether id is one of the program's derived identities.
func (a Accounts) Contains(id [20]byte) bool {
	return id == a.ProgramState || id == a.StakeVault || id == a.RewardEscrow || id == a.EscrowVault
}

var (
	accountsOnce sync.Once
	accounts     Accounts
	accountsErr  error
)

// ProgramAccounts derives (once) the program's identities. Derivation is
// deterministic so every process agrees on the same addresses.
func ProgramAccounts() (Accounts, error) {
	accountsOnce.Do(func() {
		accounts, accountsErr = deriveAccounts()
	})
	return accounts, accountsErr
}

func deriveAccounts() (Accounts, error) {
	var out Accounts
	var err error
	out.ProgramState, out.ProgramStateBump, err = crypto.FindDerivedAddress(SeedProgramState)
	if err != nil {
		return Accounts{}, fmt.Errorf("derive program state: %w", err)
	}
	program := out.ProgramState[:]
	out.StakeVault, out.VaultBump, err = crypto.FindDerivedAddress(SeedStakeVault, program)
	if err != nil {
		return Accounts{}, fmt.Errorf("derive stake vault: %w", err)
	}
	out.RewardEscrow, out.RewardEscrowBump, err = crypto.FindDerivedAddress(SeedRewardEscrow, program)
	if err != nil {
		return Accounts{}, fmt.Errorf("derive reward escrow: %w", err)
	}
	out.EscrowVault, out.EscrowVaultBump, err = crypto.FindDerivedAddress(SeedEscrowVault, program)
	if err != nil {
		return Accounts{}, fmt.Errorf("derive escrow vault: %w", err)
	}
	return out, nil
}

// UserStakeAddress derives the identity of owner's stake record.
func UserStakeAddress(owner [20]byte) ([20]byte, uint8, error) {
	return crypto.FindDerivedAddress(SeedUserStake, owner[:])
}
