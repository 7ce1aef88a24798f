package staking

import (
	"errors"

	"tierstake/storage"
)

var (
	ErrAmountTooLow      = errors.New("staking: amount below gold tier minimum")
	ErrInvalidAmount     = errors.New("staking: amount must be positive")
	ErrInsufficientStake = errors.New("staking: insufficient staked amount")
	ErrNoRewards         = errors.New("staking: no rewards to claim")
	ErrInsufficientFunds = errors.New("staking: insufficient token balance")

	ErrProgramPaused            = errors.New("staking: program is paused")
	ErrTokensLocked             = errors.New("staking: tokens are still locked")
	ErrNoPendingAuthorityChange = errors.New("staking: no pending authority change")
	ErrTimelockNotExpired       = errors.New("staking: authority timelock not expired")
	ErrAlreadyInitialized       = errors.New("staking: already initialized")
	ErrNotInitialized           = errors.New("staking: not initialized")
	ErrStakeNotFound            = errors.New("staking: stake record not found")

	ErrInvalidOwner     = errors.New("staking: caller does not own the stake record")
	ErrInvalidAuthority = errors.New("staking: caller is not the authority")
	ErrInvalidMint      = errors.New("staking: mint does not match program mint")

	ErrInsufficientEscrowBalance = errors.New("staking: insufficient escrow balance")

	ErrMathOverflow = errors.New("staking: arithmetic overflow")

	errNilState = errors.New("staking engine: state not configured")
)

// Kind groups errors by how a caller is expected to react to them.
type Kind string

const (
	KindNone          Kind = ""
	KindValidation    Kind = "validation"
	KindPrecondition  Kind = "precondition"
	KindAuthorization Kind = "authorization"
	KindSolvency      Kind = "solvency"
	KindArithmetic    Kind = "arithmetic"
	KindConflict      Kind = "conflict"
	KindInternal      Kind = "internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrAmountTooLow, KindValidation},
	{ErrInvalidAmount, KindValidation},
	{ErrInsufficientStake, KindValidation},
	{ErrNoRewards, KindValidation},
	{ErrInsufficientFunds, KindValidation},
	{ErrProgramPaused, KindPrecondition},
	{ErrTokensLocked, KindPrecondition},
	{ErrNoPendingAuthorityChange, KindPrecondition},
	{ErrTimelockNotExpired, KindPrecondition},
	{ErrAlreadyInitialized, KindPrecondition},
	{ErrNotInitialized, KindPrecondition},
	{ErrStakeNotFound, KindPrecondition},
	{ErrInvalidOwner, KindAuthorization},
	{ErrInvalidAuthority, KindAuthorization},
	{ErrInvalidMint, KindAuthorization},
	{ErrInsufficientEscrowBalance, KindSolvency},
	{ErrMathOverflow, KindArithmetic},
	{storage.ErrConflict, KindConflict},
}

// KindOf classifies err. Unknown non-nil errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// Retryable reports whether the operation may succeed when resubmitted against
// fresh state.
func Retryable(err error) bool { return KindOf(err) == KindConflict }
