package staking

// ModuleName identifies the staking module in pause views and logs.
const ModuleName = "staking"

const (
	// TokenDecimals is the precision of the staked token. Every amount in this
	// package is expressed in base units.
	TokenDecimals = 6

	tokenUnit uint64 = 1_000_000

	// GoldMin is the smallest principal accepted by Stake and the lower bound
	// of the Gold tier.
	GoldMin uint64 = 10_000_000 * tokenUnit
	// TitaniumMin is the lower bound of the Titanium tier.
	TitaniumMin uint64 = 100_000_000 * tokenUnit
	// InfiniteMin is the lower bound of the Infinite tier.
	InfiniteMin uint64 = 1_000_000_000 * tokenUnit

	GoldRateBps     uint64 = 50
	TitaniumRateBps uint64 = 75
	InfiniteRateBps uint64 = 100

	SecondsPerYear uint64 = 31_536_000
	BasisPoints    uint64 = 10_000

	secondsPerDay int64 = 86_400

	// LockDuration is applied to the whole position on every deposit.
	LockDuration int64 = 7 * secondsPerDay
	// AuthorityTimelock is the delay between proposing and accepting a new
	// authority.
	AuthorityTimelock int64 = 48 * 60 * 60

	earlyPenaltyDays int64  = 30
	earlyPenaltyBps  uint64 = 200
	midPenaltyDays   int64  = 90
	midPenaltyBps    uint64 = 100
)

// Seed tags for the derived identities owned by the program.
var (
	SeedProgramState = []byte("program-state")
	SeedStakeVault   = []byte("stake-vault")
	SeedRewardEscrow = []byte("reward-escrow")
	SeedEscrowVault  = []byte("escrow-vault")
	SeedUserStake    = []byte("user-stake")
)
