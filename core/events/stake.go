package events

import (
	"strconv"

	"tierstake/core/types"
)

const (
	// TypeStakeCompleted is emitted after a deposit into the stake vault.
	TypeStakeCompleted = "stake.completed"
	// TypeStakeUnstaked is emitted after a withdrawal, with the penalty withheld.
	TypeStakeUnstaked = "stake.unstaked"
	// TypeStakeRewardsClaimed is emitted when accrued rewards are paid out of escrow.
	TypeStakeRewardsClaimed = "stake.rewardsClaimed"
	// TypeStakeRewardsCompounded is emitted when accrued rewards are folded into principal.
	TypeStakeRewardsCompounded = "stake.rewardsCompounded"
	// TypeStakeEscrowFunded is emitted when reward liquidity is added.
	TypeStakeEscrowFunded = "stake.escrowFunded"
	// TypeStakeAuthorityUpdated is emitted on both proposal and acceptance of
	// an authority handover.
	TypeStakeAuthorityUpdated = "stake.authorityUpdated"
	// TypeStakePausedChanged is emitted when the authority toggles the pause flag.
	TypeStakePausedChanged = "stake.pausedChanged"
)

// StakeCompleted captures a deposit and the resulting position.
type StakeCompleted struct {
	User        [20]byte
	Amount      uint64
	Tier        uint8
	TotalStaked uint64
}

// EventType satisfies the Event interface.
func (StakeCompleted) EventType() string { return TypeStakeCompleted }

// Event converts the structured payload into a broadcastable event.
func (e StakeCompleted) Event() *types.Event {
	return &types.Event{Type: TypeStakeCompleted, Attributes: map[string]string{
		"user":        formatAddress(e.User),
		"amount":      formatUint(e.Amount),
		"tier":        strconv.Itoa(int(e.Tier)),
		"totalStaked": formatUint(e.TotalStaked),
	}}
}

// StakeUnstaked captures a withdrawal from the stake vault.
type StakeUnstaked struct {
	User           [20]byte
	Amount         uint64
	Penalty        uint64
	RemainingStake uint64
	NewTier        uint8
}

// EventType satisfies the Event interface.
func (StakeUnstaked) EventType() string { return TypeStakeUnstaked }

// Event converts the structured payload into a broadcastable event.
func (e StakeUnstaked) Event() *types.Event {
	return &types.Event{Type: TypeStakeUnstaked, Attributes: map[string]string{
		"user":           formatAddress(e.User),
		"amount":         formatUint(e.Amount),
		"penalty":        formatUint(e.Penalty),
		"remainingStake": formatUint(e.RemainingStake),
		"newTier":        strconv.Itoa(int(e.NewTier)),
	}}
}

// StakeRewardsClaimed captures a reward payout.
type StakeRewardsClaimed struct {
	User             [20]byte
	Amount           uint64
	TotalDistributed uint64
}

// EventType satisfies the Event interface.
func (StakeRewardsClaimed) EventType() string { return TypeStakeRewardsClaimed }

// Event converts the structured payload into a broadcastable event.
func (e StakeRewardsClaimed) Event() *types.Event {
	return &types.Event{Type: TypeStakeRewardsClaimed, Attributes: map[string]string{
		"user":             formatAddress(e.User),
		"amount":           formatUint(e.Amount),
		"totalDistributed": formatUint(e.TotalDistributed),
	}}
}

// StakeRewardsCompounded captures rewards re-labelled as principal.
type StakeRewardsCompounded struct {
	User             [20]byte
	AmountCompounded uint64
	NewStakeAmount   uint64
	OldTier          uint8
	NewTier          uint8
	Timestamp        int64
}

// EventType satisfies the Event interface.
func (StakeRewardsCompounded) EventType() string { return TypeStakeRewardsCompounded }

// Event converts the structured payload into a broadcastable event.
func (e StakeRewardsCompounded) Event() *types.Event {
	return &types.Event{Type: TypeStakeRewardsCompounded, Attributes: map[string]string{
		"user":             formatAddress(e.User),
		"amountCompounded": formatUint(e.AmountCompounded),
		"newStakeAmount":   formatUint(e.NewStakeAmount),
		"oldTier":          strconv.Itoa(int(e.OldTier)),
		"newTier":          strconv.Itoa(int(e.NewTier)),
		"timestamp":        strconv.FormatInt(e.Timestamp, 10),
	}}
}

// StakeEscrowFunded captures reward liquidity entering the escrow vault.
type StakeEscrowFunded struct {
	Funder     [20]byte
	Amount     uint64
	NewBalance uint64
}

// EventType satisfies the Event interface.
func (StakeEscrowFunded) EventType() string { return TypeStakeEscrowFunded }

// Event converts the structured payload into a broadcastable event.
func (e StakeEscrowFunded) Event() *types.Event {
	return &types.Event{Type: TypeStakeEscrowFunded, Attributes: map[string]string{
		"funder":     formatAddress(e.Funder),
		"amount":     formatUint(e.Amount),
		"newBalance": formatUint(e.NewBalance),
	}}
}

// StakeAuthorityUpdated captures a proposed or completed authority handover.
type StakeAuthorityUpdated struct {
	OldAuthority [20]byte
	NewAuthority [20]byte
	Timestamp    int64
	// Pending is true when the handover was only proposed.
	Pending bool
}

// EventType satisfies the Event interface.
func (StakeAuthorityUpdated) EventType() string { return TypeStakeAuthorityUpdated }

// Event converts the structured payload into a broadcastable event.
func (e StakeAuthorityUpdated) Event() *types.Event {
	return &types.Event{Type: TypeStakeAuthorityUpdated, Attributes: map[string]string{
		"oldAuthority": formatAddress(e.OldAuthority),
		"newAuthority": formatAddress(e.NewAuthority),
		"timestamp":    strconv.FormatInt(e.Timestamp, 10),
		"pending":      strconv.FormatBool(e.Pending),
	}}
}

// StakePausedChanged captures a pause toggle.
type StakePausedChanged struct {
	Authority [20]byte
	Paused    bool
	Timestamp int64
}

// EventType satisfies the Event interface.
func (StakePausedChanged) EventType() string { return TypeStakePausedChanged }

// Event converts the structured payload into a broadcastable event.
func (e StakePausedChanged) Event() *types.Event {
	return &types.Event{Type: TypeStakePausedChanged, Attributes: map[string]string{
		"authority": formatAddress(e.Authority),
		"paused":    strconv.FormatBool(e.Paused),
		"timestamp": strconv.FormatInt(e.Timestamp, 10),
	}}
}
