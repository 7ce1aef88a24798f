package staking

import (
	"fmt"
	"math/big"

	"tierstake/crypto"
)

// Violation describes a broken ledger invariant.
type Violation struct {
	Owner  [20]byte
	Reason string
}

func (v Violation) String() string {
	if v.Owner == ([20]byte{}) {
		return v.Reason
	}
	return fmt.Sprintf("%s: %s", crypto.FromRaw(v.Owner), v.Reason)
}

// CheckInvariants verifies the program totals against every stake record and
// the per-record bookkeeping rules. It returns every violation found.
func CheckInvariants(program *ProgramState, escrow *RewardEscrow, stakes []*UserStake) []Violation {
	var out []Violation
	if program == nil {
		return append(out, Violation{Reason: "program state missing"})
	}
	sum := new(big.Int)
	active := uint64(0)
	for _, stake := range stakes {
		if stake == nil || !stake.Active() {
			continue
		}
		active++
		sum.Add(sum, new(big.Int).SetUint64(stake.StakedAmount))
		if stake.RewardsClaimed > stake.RewardsEarned {
			out = append(out, Violation{Owner: stake.Owner, Reason: fmt.Sprintf("claimed %d exceeds earned %d", stake.RewardsClaimed, stake.RewardsEarned)})
		}
		if !stake.Tier.Valid() {
			out = append(out, Violation{Owner: stake.Owner, Reason: fmt.Sprintf("unknown tier %d", uint8(stake.Tier))})
		} else if want := ClassifyTier(stake.StakedAmount); stake.Tier != want {
			out = append(out, Violation{Owner: stake.Owner, Reason: fmt.Sprintf("tier %s does not match principal (want %s)", stake.Tier, want)})
		}
		if stake.LastStakeTimestamp < stake.StakeTimestamp {
			out = append(out, Violation{Owner: stake.Owner, Reason: "last stake precedes first stake"})
		}
	}
	if sum.Cmp(new(big.Int).SetUint64(program.TotalStaked)) != 0 {
		out = append(out, Violation{Reason: fmt.Sprintf("total staked %d does not match sum of principals %s", program.TotalStaked, sum)})
	}
	if program.TotalUsers != active {
		out = append(out, Violation{Reason: fmt.Sprintf("total users %d does not match %d stake records", program.TotalUsers, active)})
	}
	if program.PendingAuthority == nil && program.AuthorityChangeTimestamp != 0 {
		out = append(out, Violation{Reason: "authority change timestamp set without pending authority"})
	}
	if escrow != nil {
		accts, err := ProgramAccounts()
		if err == nil && escrow.Authority != accts.ProgramState {
			out = append(out, Violation{Reason: "escrow authority is not the program state identity"})
		}
	}
	return out
}

// CheckVaults verifies that the tokens held by the two vaults cover exactly
// the principal and the escrow liquidity the ledger tracks. Compounding moves
// value between the two without moving tokens, so only the sum is conserved.
func CheckVaults(program *ProgramState, escrow *RewardEscrow, stakeVault, escrowVault uint64) []Violation {
	if program == nil || escrow == nil {
		return nil
	}
	held := new(big.Int).Add(new(big.Int).SetUint64(stakeVault), new(big.Int).SetUint64(escrowVault))
	tracked := new(big.Int).Add(new(big.Int).SetUint64(program.TotalStaked), new(big.Int).SetUint64(escrow.TotalBalance))
	if held.Cmp(tracked) != 0 {
		return []Violation{{Reason: fmt.Sprintf("vaults hold %s but ledger tracks %s", held, tracked)}}
	}
	return nil
}
