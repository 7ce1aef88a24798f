package staking

import (
	"tierstake/core/events"
	"tierstake/native/common"
)

// InitializeProgram creates the program state with caller as the authority
// and mint as the only accepted token.
func (e *Engine) InitializeProgram(caller, mint [20]byte) (*ProgramState, error) {
	if e.state == nil {
		return nil, errNilState
	}
	if _, ok, err := e.state.ProgramState(); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAlreadyInitialized
	}
	if mint == ([20]byte{}) {
		return nil, ErrInvalidMint
	}
	if err := requireUserIdentity(caller, ErrInvalidAuthority); err != nil {
		return nil, err
	}
	accts, err := ProgramAccounts()
	if err != nil {
		return nil, err
	}
	program := &ProgramState{
		Authority: caller,
		Mint:      mint,
		VaultBump: accts.VaultBump,
	}
	if err := e.state.PutProgramState(program); err != nil {
		return nil, err
	}
	return program.Clone(), nil
}

// InitializeEscrow creates the reward escrow. Only the authority may call it.
func (e *Engine) InitializeEscrow(caller [20]byte) (*RewardEscrow, error) {
	program, err := e.loadProgram()
	if err != nil {
		return nil, err
	}
	if err := requireAuthority(program, caller); err != nil {
		return nil, err
	}
	if _, ok, err := e.state.RewardEscrow(); err != nil {
		return nil, err
	} else if ok {
		return nil, ErrAlreadyInitialized
	}
	accts, err := ProgramAccounts()
	if err != nil {
		return nil, err
	}
	program.RewardEscrowBump = accts.RewardEscrowBump
	program.EscrowVaultBump = accts.EscrowVaultBump
	escrow := &RewardEscrow{
		Authority: accts.ProgramState,
		Bump:      accts.RewardEscrowBump,
	}
	if err := e.state.PutProgramState(program); err != nil {
		return nil, err
	}
	if err := e.state.PutRewardEscrow(escrow); err != nil {
		return nil, err
	}
	return escrow.Clone(), nil
}

// FundEscrow moves amount from funder into the escrow vault and credits the
// escrow's liquid balance. Anyone holding the mint may fund.
func (e *Engine) FundEscrow(funder, mint [20]byte, amount uint64) (*RewardEscrow, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if err := requireUserIdentity(funder, ErrInvalidOwner); err != nil {
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
	escrow, err := e.loadEscrow()
	if err != nil {
		return nil, err
	}
	balance, err := addU64(escrow.TotalBalance, amount)
	if err != nil {
		return nil, err
	}
	accts, err := ProgramAccounts()
	if err != nil {
		return nil, err
	}
	if err := e.state.Transfer(program.Mint, funder, accts.EscrowVault, amount); err != nil {
		return nil, err
	}
	escrow.TotalBalance = balance
	if err := e.state.PutRewardEscrow(escrow); err != nil {
		return nil, err
	}
	e.emit(events.StakeEscrowFunded{Funder: funder, Amount: amount, NewBalance: balance})
	return escrow.Clone(), nil
}
