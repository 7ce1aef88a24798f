package state

import (
	"fmt"
	"math"

	"tierstake/native/staking"
)

// Balance returns owner's holdings of mint. Unknown accounts hold zero.
func (m *Manager) Balance(mint, owner [20]byte) (uint64, error) {
	var amount uint64
	if _, err := m.KVGet(BalanceKey(mint, owner), &amount); err != nil {
		return 0, fmt.Errorf("load balance: %w", err)
	}
	return amount, nil
}

// SetBalance overwrites owner's holdings of mint.
func (m *Manager) SetBalance(mint, owner [20]byte, amount uint64) error {
	return m.KVPut(BalanceKey(mint, owner), amount)
}

// Mint credits amount of mint to owner out of thin air. It backs genesis
// allocations and test funding; staking operations only ever Transfer.
func (m *Manager) Mint(mint, owner [20]byte, amount uint64) error {
	current, err := m.Balance(mint, owner)
	if err != nil {
		return err
	}
	if current > math.MaxUint64-amount {
		return staking.ErrMathOverflow
	}
	return m.SetBalance(mint, owner, current+amount)
}

// Transfer moves amount of mint from one holder to another. It fails with
// staking.ErrInsufficientFunds when the source cannot cover the amount, even
// when source and destination are the same holder.
func (m *Manager) Transfer(mint, from, to [20]byte, amount uint64) error {
	if amount == 0 {
		return nil
	}
	src, err := m.Balance(mint, from)
	if err != nil {
		return err
	}
	if src < amount {
		return fmt.Errorf("transfer %d from %x: %w", amount, from, staking.ErrInsufficientFunds)
	}
	if from == to {
		return nil
	}
	dst, err := m.Balance(mint, to)
	if err != nil {
		return err
	}
	if dst > math.MaxUint64-amount {
		return staking.ErrMathOverflow
	}
	if err := m.SetBalance(mint, from, src-amount); err != nil {
		return err
	}
	return m.SetBalance(mint, to, dst+amount)
}
