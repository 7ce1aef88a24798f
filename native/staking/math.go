package staking

import (
	"math"

	"github.com/holiman/uint256"
)

var yearBasisPoints = new(uint256.Int).Mul(uint256.NewInt(SecondsPerYear), uint256.NewInt(BasisPoints))

// CalculateRewards returns floor(staked * rateBps * elapsed / (year * 10_000))
// where elapsed is now - lastSettled. A clock that moved backwards accrues
// nothing.
func CalculateRewards(staked, rateBps uint64, lastSettled, now int64) (uint64, error) {
	if staked == 0 || rateBps == 0 || now <= lastSettled {
		return 0, nil
	}
	elapsed := uint64(now - lastSettled)
	product := new(uint256.Int).Mul(uint256.NewInt(staked), uint256.NewInt(rateBps))
	product.Mul(product, uint256.NewInt(elapsed))
	product.Div(product, yearBasisPoints)
	if !product.IsUint64() {
		return 0, ErrMathOverflow
	}
	return product.Uint64(), nil
}

// PenaltyRateBps returns the early-withdrawal rate for a position whose most
// recent deposit happened at lastStake.
func PenaltyRateBps(lastStake, now int64) uint64 {
	days := int64(0)
	if now > lastStake {
		days = (now - lastStake) / secondsPerDay
	}
	switch {
	case days < earlyPenaltyDays:
		return earlyPenaltyBps
	case days < midPenaltyDays:
		return midPenaltyBps
	default:
		return 0
	}
}

// CalculatePenalty returns the share of amount withheld when withdrawing at
// now, floor(amount * bps / 10_000).
func CalculatePenalty(lastStake, now int64, amount uint64) uint64 {
	bps := PenaltyRateBps(lastStake, now)
	if bps == 0 || amount == 0 {
		return 0
	}
	penalty := new(uint256.Int).Mul(uint256.NewInt(amount), uint256.NewInt(bps))
	penalty.Div(penalty, uint256.NewInt(BasisPoints))
	// bps < BasisPoints so the result never exceeds amount.
	return penalty.Uint64()
}

func addU64(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrMathOverflow
	}
	return a + b, nil
}

func subU64(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrMathOverflow
	}
	return a - b, nil
}

func addTime(ts, delta int64) (int64, error) {
	if delta > 0 && ts > math.MaxInt64-delta {
		return 0, ErrMathOverflow
	}
	return ts + delta, nil
}
