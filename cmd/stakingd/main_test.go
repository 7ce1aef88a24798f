package main

import (
	"testing"
	"time"

	"tierstake/config"
	"tierstake/core"
	"tierstake/crypto"
	"tierstake/storage"
)

func TestServerConfigConvertsSeconds(t *testing.T) {
	cfg := &config.Config{
		RPCReadTimeout: 15,
		Auth:           config.Auth{Enabled: true, HMACSecret: "s", ClockSkewSecs: 30},
		RateLimit:      config.RateLimit{RequestsPerMinute: 60, Burst: 5},
	}
	out := serverConfig(cfg)
	if out.ReadTimeout != 15*time.Second || out.Auth.ClockSkew != 30*time.Second {
		t.Fatalf("unexpected durations: %+v", out)
	}
	if out.RateLimit.Burst != 5 || !out.Auth.Enabled {
		t.Fatalf("unexpected server config: %+v", out)
	}
}

func TestApplyGenesisCreditsAllocations(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	node, err := core.NewNode(db, nil)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	mint := crypto.FromRaw([20]byte{0xEE})
	owner := crypto.FromRaw([20]byte{0x11})
	genesis := config.Genesis{
		Mint:        mint.String(),
		Allocations: []config.Allocation{{Address: owner.String(), Amount: 500}},
	}
	for i := 0; i < 2; i++ {
		if err := applyGenesis(node, genesis); err != nil {
			t.Fatalf("apply genesis: %v", err)
		}
	}
	balance, err := node.Balance(mint.Raw(), owner.Raw())
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 500 {
		t.Fatalf("expected 500, got %d", balance)
	}
}
