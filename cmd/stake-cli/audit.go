package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"tierstake/cmd/internal/ledgerdb"
	"tierstake/config"
	ledgerstate "tierstake/core/state"
	"tierstake/crypto"
	"tierstake/native/staking"
	"tierstake/storage"
)

// runAudit exits 0 when the ledger is consistent and 2 when any invariant is
// violated.
func runAudit(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("audit", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "./config.toml", "daemon configuration file")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if _, err := os.Stat(*configPath); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(stderr, "Error: config %s not found\n", *configPath)
		return 1
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: load config: %v\n", err)
		return 1
	}
	if cfg.Backend == config.BackendMemory {
		fmt.Fprintln(stderr, "Error: the memory backend has nothing to audit")
		return 1
	}
	db, err := ledgerdb.Open(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: open database: %v\n", err)
		return 1
	}
	defer db.Close()
	return auditDatabase(db, stdout, stderr)
}

func auditDatabase(db storage.Database, stdout, stderr io.Writer) int {
	snap, err := ledgerstate.LoadSnapshot(db)
	if err != nil {
		fmt.Fprintf(stderr, "Error: load ledger: %v\n", err)
		return 1
	}
	accts, err := staking.ProgramAccounts()
	if err != nil {
		fmt.Fprintf(stderr, "Error: derive accounts: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Program authority: %s\n", crypto.FromRaw(snap.Program.Authority).String())
	fmt.Fprintf(stdout, "Stake vault id:    %s\n", crypto.FromDerived(accts.StakeVault).String())
	fmt.Fprintf(stdout, "Escrow vault id:   %s\n", crypto.FromDerived(accts.EscrowVault).String())
	fmt.Fprintf(stdout, "Total staked:      %d\n", snap.Program.TotalStaked)
	fmt.Fprintf(stdout, "Total users:       %d\n", snap.Program.TotalUsers)
	fmt.Fprintf(stdout, "Stake vault:       %d\n", snap.StakeVault)
	if snap.Escrow != nil {
		fmt.Fprintf(stdout, "Escrow balance:    %d\n", snap.Escrow.TotalBalance)
	}
	fmt.Fprintf(stdout, "Escrow vault:      %d\n", snap.EscrowVault)
	fmt.Fprintf(stdout, "Stake records:     %d\n", len(snap.Stakes))

	violations := snap.Violations()
	if len(violations) == 0 {
		fmt.Fprintln(stdout, "OK: all invariants hold")
		return 0
	}
	fmt.Fprintf(stdout, "FAIL: %d violation(s)\n", len(violations))
	for _, v := range violations {
		fmt.Fprintf(stdout, "  - %s\n", v.String())
	}
	return 2
}
