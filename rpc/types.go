package rpc

import (
	"strconv"

	"tierstake/crypto"
	"tierstake/native/staking"
)

// Amounts are rendered as decimal strings so 64-bit values survive clients
// that parse JSON numbers as doubles.

type ProgramStateResult struct {
	Authority                string `json:"authority"`
	Mint                     string `json:"mint"`
	TotalStaked              string `json:"totalStaked"`
	TotalUsers               string `json:"totalUsers"`
	Paused                   bool   `json:"paused"`
	VaultBump                uint8  `json:"vaultBump"`
	RewardEscrowBump         uint8  `json:"rewardEscrowBump"`
	EscrowVaultBump          uint8  `json:"escrowVaultBump"`
	PendingAuthority         string `json:"pendingAuthority,omitempty"`
	AuthorityChangeTimestamp int64  `json:"authorityChangeTimestamp,omitempty"`
}

type EscrowResult struct {
	Authority        string `json:"authority"`
	TotalBalance     string `json:"totalBalance"`
	TotalDistributed string `json:"totalDistributed"`
	Bump             uint8  `json:"bump"`
}

type StakeResult struct {
	Owner              string `json:"owner"`
	StakedAmount       string `json:"stakedAmount"`
	RewardsEarned      string `json:"rewardsEarned"`
	RewardsClaimed     string `json:"rewardsClaimed"`
	Tier               uint8  `json:"tier"`
	TierName           string `json:"tierName"`
	StakeTimestamp     int64  `json:"stakeTimestamp"`
	LastStakeTimestamp int64  `json:"lastStakeTimestamp"`
	LastClaimTimestamp int64  `json:"lastClaimTimestamp"`
	LockedUntil        int64  `json:"lockedUntil"`
}

type UnstakeResult struct {
	Stake    StakeResult `json:"stake"`
	Amount   string      `json:"amount"`
	Penalty  string      `json:"penalty"`
	Received string      `json:"received"`
}

type ClaimResult struct {
	Stake  StakeResult  `json:"stake"`
	Escrow EscrowResult `json:"escrow"`
	Amount string       `json:"amount"`
}

type CompoundResult struct {
	Stake   StakeResult `json:"stake"`
	Amount  string      `json:"amount"`
	OldTier uint8       `json:"oldTier"`
	NewTier uint8       `json:"newTier"`
}

type AmountResult struct {
	Owner  string `json:"owner"`
	Amount string `json:"amount"`
}

func formatUint(v uint64) string { return strconv.FormatUint(v, 10) }

func formatAddr(addr [20]byte) string {
	if addr == ([20]byte{}) {
		return ""
	}
	return crypto.FromRaw(addr).String()
}

func programResult(p *staking.ProgramState) ProgramStateResult {
	out := ProgramStateResult{
		Authority:        formatAddr(p.Authority),
		Mint:             formatAddr(p.Mint),
		TotalStaked:      formatUint(p.TotalStaked),
		TotalUsers:       formatUint(p.TotalUsers),
		Paused:           p.Paused,
		VaultBump:        p.VaultBump,
		RewardEscrowBump: p.RewardEscrowBump,
		EscrowVaultBump:  p.EscrowVaultBump,
	}
	if p.PendingAuthority != nil {
		out.PendingAuthority = formatAddr(*p.PendingAuthority)
		out.AuthorityChangeTimestamp = p.AuthorityChangeTimestamp
	}
	return out
}

func escrowResult(e *staking.RewardEscrow) EscrowResult {
	return EscrowResult{
		Authority:        formatAddr(e.Authority),
		TotalBalance:     formatUint(e.TotalBalance),
		TotalDistributed: formatUint(e.TotalDistributed),
		Bump:             e.Bump,
	}
}

func stakeResult(s *staking.UserStake) StakeResult {
	return StakeResult{
		Owner:              formatAddr(s.Owner),
		StakedAmount:       formatUint(s.StakedAmount),
		RewardsEarned:      formatUint(s.RewardsEarned),
		RewardsClaimed:     formatUint(s.RewardsClaimed),
		Tier:               uint8(s.Tier),
		TierName:           s.Tier.String(),
		StakeTimestamp:     s.StakeTimestamp,
		LastStakeTimestamp: s.LastStakeTimestamp,
		LastClaimTimestamp: s.LastClaimTimestamp,
		LockedUntil:        s.LockedUntil,
	}
}
