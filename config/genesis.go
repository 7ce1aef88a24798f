package config

import (
	"fmt"
	"strings"

	"tierstake/crypto"
)

// ParsedAllocation is a genesis credit with a decoded recipient.
type ParsedAllocation struct {
	Owner  [20]byte
	Amount uint64
}

// ParsedGenesis carries genesis values in their runtime form.
type ParsedGenesis struct {
	Mint        [20]byte
	HasMint     bool
	Allocations []ParsedAllocation
}

// Parse decodes the bech32 addresses in the genesis section.
func (g Genesis) Parse() (ParsedGenesis, error) {
	var out ParsedGenesis
	if mint := strings.TrimSpace(g.Mint); mint != "" {
		addr, err := crypto.DecodeAddress(mint)
		if err != nil {
			return out, fmt.Errorf("invalid genesis.Mint: %w", err)
		}
		out.Mint = addr.Raw()
		out.HasMint = true
	}
	if len(g.Allocations) > 0 && !out.HasMint {
		return out, fmt.Errorf("genesis.Allocations require genesis.Mint")
	}
	for i, alloc := range g.Allocations {
		addr, err := crypto.DecodeUserAddress(strings.TrimSpace(alloc.Address))
		if err != nil {
			return out, fmt.Errorf("invalid genesis.Allocations[%d].Address: %w", i, err)
		}
		if alloc.Amount == 0 {
			return out, fmt.Errorf("genesis.Allocations[%d].Amount must be positive", i)
		}
		out.Allocations = append(out.Allocations, ParsedAllocation{Owner: addr.Raw(), Amount: alloc.Amount})
	}
	return out, nil
}
