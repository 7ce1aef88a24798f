package staking

// Status distinguishes a stake record that has never been written from one
// that belongs to a depositor.
type Status uint8

const (
	StatusUninitialized Status = iota
	StatusActive
)

func (s Status) String() string {
	if s == StatusActive {
		return "active"
	}
	return "uninitialized"
}

// ProgramState is the singleton holding the authority, totals and pause flag.
type ProgramState struct {
	Authority                [20]byte
	Mint                     [20]byte
	TotalStaked              uint64
	TotalUsers               uint64
	Paused                   bool
	VaultBump                uint8
	RewardEscrowBump         uint8
	EscrowVaultBump          uint8
	PendingAuthority         *[20]byte
	AuthorityChangeTimestamp int64
}

// Clone returns a deep copy of the program state.
func (p *ProgramState) Clone() *ProgramState {
	if p == nil {
		return nil
	}
	clone := *p
	if p.PendingAuthority != nil {
		pending := *p.PendingAuthority
		clone.PendingAuthority = &pending
	}
	return &clone
}

// HasPendingAuthority reports whether an authority handover was proposed.
func (p *ProgramState) HasPendingAuthority() bool {
	return p != nil && p.PendingAuthority != nil
}

// IsPaused satisfies common.PauseView for the staking module.
func (p *ProgramState) IsPaused(module string) bool {
	return p != nil && module == ModuleName && p.Paused
}

// RewardEscrow tracks reward liquidity held in the escrow vault.
type RewardEscrow struct {
	Authority        [20]byte
	TotalBalance     uint64
	TotalDistributed uint64
	Bump             uint8
}

// Clone returns a copy of the escrow.
func (e *RewardEscrow) Clone() *RewardEscrow {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}

// UserStake is the per-depositor position.
type UserStake struct {
	Owner              [20]byte
	Status             Status
	StakedAmount       uint64
	RewardsEarned      uint64
	RewardsClaimed     uint64
	Tier               Tier
	StakeTimestamp     int64
	LastStakeTimestamp int64
	LastClaimTimestamp int64
	LockedUntil        int64
}

// Clone returns a copy of the stake record.
func (s *UserStake) Clone() *UserStake {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

// Active reports whether the record has been created by a deposit.
func (s *UserStake) Active() bool {
	return s != nil && s.Status == StatusActive
}

// Unclaimed returns the settled rewards that have not been paid out.
func (s *UserStake) Unclaimed() uint64 {
	if s == nil || s.RewardsClaimed >= s.RewardsEarned {
		return 0
	}
	return s.RewardsEarned - s.RewardsClaimed
}
