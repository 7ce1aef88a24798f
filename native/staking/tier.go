package staking

import "fmt"

// Tier is the yield class derived from a principal amount.
type Tier uint8

const (
	TierNone Tier = iota
	TierGold
	TierTitanium
	TierInfinite
)

func (t Tier) String() string {
	switch t {
	case TierNone:
		return "none"
	case TierGold:
		return "gold"
	case TierTitanium:
		return "titanium"
	case TierInfinite:
		return "infinite"
	default:
		return fmt.Sprintf("tier(%d)", uint8(t))
	}
}

// Valid reports whether the tier is one of the known classes.
func (t Tier) Valid() bool { return t <= TierInfinite }

// ClassifyTier maps a principal onto its tier. Amounts below GoldMin are
// untiered.
func ClassifyTier(amount uint64) Tier {
	switch {
	case amount >= InfiniteMin:
		return TierInfinite
	case amount >= TitaniumMin:
		return TierTitanium
	case amount >= GoldMin:
		return TierGold
	default:
		return TierNone
	}
}

// TierRate returns the annual yield in basis points for the principal. It
// fails with ErrAmountTooLow below the Gold minimum.
func TierRate(amount uint64) (uint64, error) {
	switch ClassifyTier(amount) {
	case TierInfinite:
		return InfiniteRateBps, nil
	case TierTitanium:
		return TitaniumRateBps, nil
	case TierGold:
		return GoldRateBps, nil
	default:
		return 0, ErrAmountTooLow
	}
}
