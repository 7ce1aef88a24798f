package state

import "tierstake/native/staking"

// Stored forms keep timestamps unsigned since RLP has no signed integers.
// Negative timestamps clamp to zero.

type storedProgramState struct {
	Authority                [20]byte
	Mint                     [20]byte
	TotalStaked              uint64
	TotalUsers               uint64
	Paused                   bool
	VaultBump                uint8
	RewardEscrowBump         uint8
	EscrowVaultBump          uint8
	PendingAuthority         []byte
	AuthorityChangeTimestamp uint64
}

func clampUnix(ts int64) uint64 {
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func newStoredProgramState(p *staking.ProgramState) *storedProgramState {
	if p == nil {
		p = &staking.ProgramState{}
	}
	stored := &storedProgramState{
		Authority:                p.Authority,
		Mint:                     p.Mint,
		TotalStaked:              p.TotalStaked,
		TotalUsers:               p.TotalUsers,
		Paused:                   p.Paused,
		VaultBump:                p.VaultBump,
		RewardEscrowBump:         p.RewardEscrowBump,
		EscrowVaultBump:          p.EscrowVaultBump,
		AuthorityChangeTimestamp: clampUnix(p.AuthorityChangeTimestamp),
	}
	if p.PendingAuthority != nil {
		stored.PendingAuthority = append([]byte(nil), p.PendingAuthority[:]...)
	}
	return stored
}

func (s *storedProgramState) toProgramState() *staking.ProgramState {
	if s == nil {
		return &staking.ProgramState{}
	}
	p := &staking.ProgramState{
		Authority:                s.Authority,
		Mint:                     s.Mint,
		TotalStaked:              s.TotalStaked,
		TotalUsers:               s.TotalUsers,
		Paused:                   s.Paused,
		VaultBump:                s.VaultBump,
		RewardEscrowBump:         s.RewardEscrowBump,
		EscrowVaultBump:          s.EscrowVaultBump,
		AuthorityChangeTimestamp: int64(s.AuthorityChangeTimestamp),
	}
	if len(s.PendingAuthority) == 20 {
		var pending [20]byte
		copy(pending[:], s.PendingAuthority)
		p.PendingAuthority = &pending
	}
	return p
}

type storedRewardEscrow struct {
	Authority        [20]byte
	TotalBalance     uint64
	TotalDistributed uint64
	Bump             uint8
}

func newStoredRewardEscrow(e *staking.RewardEscrow) *storedRewardEscrow {
	if e == nil {
		e = &staking.RewardEscrow{}
	}
	return &storedRewardEscrow{
		Authority:        e.Authority,
		TotalBalance:     e.TotalBalance,
		TotalDistributed: e.TotalDistributed,
		Bump:             e.Bump,
	}
}

func (s *storedRewardEscrow) toRewardEscrow() *staking.RewardEscrow {
	if s == nil {
		return &staking.RewardEscrow{}
	}
	return &staking.RewardEscrow{
		Authority:        s.Authority,
		TotalBalance:     s.TotalBalance,
		TotalDistributed: s.TotalDistributed,
		Bump:             s.Bump,
	}
}

type storedUserStake struct {
	Owner              [20]byte
	Status             uint8
	StakedAmount       uint64
	RewardsEarned      uint64
	RewardsClaimed     uint64
	Tier               uint8
	StakeTimestamp     uint64
	LastStakeTimestamp uint64
	LastClaimTimestamp uint64
	LockedUntil        uint64
}

func newStoredUserStake(u *staking.UserStake) *storedUserStake {
	if u == nil {
		u = &staking.UserStake{}
	}
	return &storedUserStake{
		Owner:              u.Owner,
		Status:             uint8(u.Status),
		StakedAmount:       u.StakedAmount,
		RewardsEarned:      u.RewardsEarned,
		RewardsClaimed:     u.RewardsClaimed,
		Tier:               uint8(u.Tier),
		StakeTimestamp:     clampUnix(u.StakeTimestamp),
		LastStakeTimestamp: clampUnix(u.LastStakeTimestamp),
		LastClaimTimestamp: clampUnix(u.LastClaimTimestamp),
		LockedUntil:        clampUnix(u.LockedUntil),
	}
}

func (s *storedUserStake) toUserStake() *staking.UserStake {
	if s == nil {
		return &staking.UserStake{}
	}
	return &staking.UserStake{
		Owner:              s.Owner,
		Status:             staking.Status(s.Status),
		StakedAmount:       s.StakedAmount,
		RewardsEarned:      s.RewardsEarned,
		RewardsClaimed:     s.RewardsClaimed,
		Tier:               staking.Tier(s.Tier),
		StakeTimestamp:     int64(s.StakeTimestamp),
		LastStakeTimestamp: int64(s.LastStakeTimestamp),
		LastClaimTimestamp: int64(s.LastClaimTimestamp),
		LockedUntil:        int64(s.LockedUntil),
	}
}
