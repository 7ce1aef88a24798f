package core

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"tierstake/core/events"
	ledgerstate "tierstake/core/state"
	"tierstake/crypto"
	"tierstake/native/staking"
	"tierstake/observability"
	"tierstake/storage"
)

// Node is the ledger service. Every mutating call runs one staking engine
// against a fresh state transaction and commits it atomically; events leave
// the node only after that commit succeeds.
type Node struct {
	db      storage.Database
	logger  *slog.Logger
	nowFn   func() int64
	metrics *observability.StakingMetrics

	// commitMu orders commits with their event publication, so stream
	// sequence numbers follow commit order.
	commitMu sync.Mutex

	streamMu      sync.Mutex
	streamSeq     uint64
	streamNextID  uint64
	streamHistory []EventUpdate
	streamSubs    map[uint64]*eventSubscriber
}

// NewNode wires a ledger service on top of db. A nil logger falls back to the
// process default.
func NewNode(db storage.Database, logger *slog.Logger) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("node: database required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := staking.ProgramAccounts(); err != nil {
		return nil, fmt.Errorf("node: derive program accounts: %w", err)
	}
	return &Node{
		db:         db,
		logger:     logger.With(slog.String("component", "staking")),
		nowFn:      func() int64 { return time.Now().Unix() },
		metrics:    observability.Staking(),
		streamSubs: make(map[uint64]*eventSubscriber),
	}, nil
}

// SetNowFunc overrides the clock used for every operation. Intended for tests.
func (n *Node) SetNowFunc(now func() int64) {
	if now == nil {
		n.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	n.nowFn = now
}

// Database exposes the backing store for offline tooling.
func (n *Node) Database() storage.Database { return n.db }

func (n *Node) now() int64 {
	if n.nowFn == nil {
		return time.Now().Unix()
	}
	return n.nowFn()
}

// execute runs fn inside one transaction pinned to a single timestamp.
func execute[T any](n *Node, op string, caller [20]byte, fn func(*staking.Engine) (T, error)) (T, error) {
	start := time.Now()
	ts := n.now()

	mgr := ledgerstate.NewManager(n.db)
	buffer := &events.Buffer{}
	engine := staking.NewEngine()
	engine.SetState(mgr)
	engine.SetEmitter(buffer)
	engine.SetNowFunc(func() int64 { return ts })

	result, err := fn(engine)
	if err != nil {
		mgr.Discard()
	} else {
		err = n.commitAndPublish(mgr, ts, buffer)
		if errors.Is(err, storage.ErrConflict) {
			n.metrics.RecordConflict(op)
		}
	}
	n.observe(op, caller, start, err)
	if err != nil {
		var zero T
		return zero, err
	}
	n.refreshTotals()
	return result, nil
}

func (n *Node) commitAndPublish(mgr *ledgerstate.Manager, ts int64, buffer *events.Buffer) error {
	n.commitMu.Lock()
	defer n.commitMu.Unlock()
	if err := mgr.Commit(); err != nil {
		return err
	}
	n.publishEvents(ts, buffer.Drain())
	return nil
}

func (n *Node) observe(op string, caller [20]byte, start time.Time, err error) {
	kind := staking.KindOf(err)
	outcome := "ok"
	if err != nil {
		outcome = string(kind)
	}
	n.metrics.Observe(op, outcome, time.Since(start))

	attrs := []any{
		slog.String("op", op),
		slog.String("caller", formatCaller(caller)),
	}
	if err == nil {
		n.logger.Info("staking operation committed", attrs...)
		return
	}
	attrs = append(attrs, slog.String("error", err.Error()), slog.String("kind", string(kind)))
	switch kind {
	case staking.KindArithmetic, staking.KindInternal:
		n.logger.Error("staking operation aborted", attrs...)
	default:
		n.logger.Warn("staking operation rejected", attrs...)
	}
}

func (n *Node) refreshTotals() {
	mgr := ledgerstate.NewManager(n.db)
	defer mgr.Discard()
	program, ok, err := mgr.ProgramState()
	if err != nil || !ok {
		return
	}
	var escrowBalance uint64
	if escrow, ok, err := mgr.RewardEscrow(); err == nil && ok {
		escrowBalance = escrow.TotalBalance
	}
	n.metrics.SetTotals(program.TotalStaked, escrowBalance, program.TotalUsers)
}

func formatCaller(addr [20]byte) string {
	return crypto.FromRaw(addr).String()
}

// InitializeProgram creates the program singleton with caller as authority.
func (n *Node) InitializeProgram(caller, mint [20]byte) (*staking.ProgramState, error) {
	program, err := execute(n, "initialize_program", caller, func(e *staking.Engine) (*staking.ProgramState, error) {
		return e.InitializeProgram(caller, mint)
	})
	if err == nil {
		n.logger.Info("staking program initialized",
			slog.String("authority", formatCaller(caller)),
			slog.String("mint", formatCaller(mint)))
	}
	return program, err
}

// InitializeEscrow creates the reward escrow singleton.
func (n *Node) InitializeEscrow(caller [20]byte) (*staking.RewardEscrow, error) {
	return execute(n, "initialize_escrow", caller, func(e *staking.Engine) (*staking.RewardEscrow, error) {
		return e.InitializeEscrow(caller)
	})
}

// FundEscrow moves amount from funder into the reward escrow vault.
func (n *Node) FundEscrow(funder, mint [20]byte, amount uint64) (*staking.RewardEscrow, error) {
	return execute(n, "fund_escrow", funder, func(e *staking.Engine) (*staking.RewardEscrow, error) {
		return e.FundEscrow(funder, mint, amount)
	})
}

// Stake deposits amount of caller's tokens into the stake vault.
func (n *Node) Stake(caller, mint [20]byte, amount uint64) (*staking.UserStake, error) {
	return execute(n, "stake", caller, func(e *staking.Engine) (*staking.UserStake, error) {
		return e.Stake(caller, mint, amount)
	})
}

// Unstake withdraws amount of caller's principal, net of any early penalty.
func (n *Node) Unstake(caller, mint [20]byte, amount uint64) (*staking.UnstakeResult, error) {
	return execute(n, "unstake", caller, func(e *staking.Engine) (*staking.UnstakeResult, error) {
		return e.Unstake(caller, mint, amount)
	})
}

// ClaimRewards pays caller's unclaimed rewards out of the escrow vault.
func (n *Node) ClaimRewards(caller, mint [20]byte) (*staking.ClaimResult, error) {
	return execute(n, "claim_rewards", caller, func(e *staking.Engine) (*staking.ClaimResult, error) {
		return e.ClaimRewards(caller, mint)
	})
}

// CompoundRewards folds caller's unclaimed rewards into principal.
func (n *Node) CompoundRewards(caller [20]byte) (*staking.CompoundResult, error) {
	return execute(n, "compound_rewards", caller, func(e *staking.Engine) (*staking.CompoundResult, error) {
		return e.CompoundRewards(caller)
	})
}

// ProposeAuthorityChange starts the timelocked authority handover.
func (n *Node) ProposeAuthorityChange(caller, newAuthority [20]byte) (*staking.ProgramState, error) {
	return execute(n, "propose_authority", caller, func(e *staking.Engine) (*staking.ProgramState, error) {
		return e.ProposeAuthorityChange(caller, newAuthority)
	})
}

// AcceptAuthorityChange completes a handover whose timelock has elapsed.
func (n *Node) AcceptAuthorityChange(caller [20]byte) (*staking.ProgramState, error) {
	return execute(n, "accept_authority", caller, func(e *staking.Engine) (*staking.ProgramState, error) {
		return e.AcceptAuthorityChange(caller)
	})
}

// SetPaused toggles the program-wide pause flag.
func (n *Node) SetPaused(caller [20]byte, paused bool) (*staking.ProgramState, error) {
	return execute(n, "set_paused", caller, func(e *staking.Engine) (*staking.ProgramState, error) {
		return e.SetPaused(caller, paused)
	})
}

// Mint credits tokens to owner. It backs genesis allocations and local
// faucets; it is not reachable through the staking operations.
func (n *Node) Mint(mint, owner [20]byte, amount uint64) error {
	accts, err := staking.ProgramAccounts()
	if err != nil {
		return err
	}
	if accts.Contains(owner) {
		return fmt.Errorf("mint to %s: %w", formatCaller(owner), staking.ErrInvalidOwner)
	}
	mgr := ledgerstate.NewManager(n.db)
	if err := mgr.Mint(mint, owner, amount); err != nil {
		mgr.Discard()
		return err
	}
	if err := mgr.Commit(); err != nil {
		return err
	}
	n.logger.Info("tokens minted",
		slog.String("owner", formatCaller(owner)),
		slog.Uint64("amount", amount))
	return nil
}

// GenesisAllocation credits Amount of the genesis mint to Owner.
type GenesisAllocation struct {
	Owner  [20]byte
	Amount uint64
}

// ApplyGenesis credits allocations once. The marker is written in the same
// commit, so restarts do not mint twice. It reports whether anything was
// applied.
func (n *Node) ApplyGenesis(mint [20]byte, allocations []GenesisAllocation) (bool, error) {
	if len(allocations) == 0 {
		return false, nil
	}
	mgr := ledgerstate.NewManager(n.db)
	applied, err := mgr.KVGet(ledgerstate.GenesisKey(), nil)
	if err != nil {
		mgr.Discard()
		return false, err
	}
	if applied {
		mgr.Discard()
		return false, nil
	}
	accts, err := staking.ProgramAccounts()
	if err != nil {
		mgr.Discard()
		return false, err
	}
	var total uint64
	for _, alloc := range allocations {
		if accts.Contains(alloc.Owner) {
			mgr.Discard()
			return false, fmt.Errorf("genesis: %s is a program account: %w", formatCaller(alloc.Owner), staking.ErrInvalidOwner)
		}
		if total > math.MaxUint64-alloc.Amount {
			mgr.Discard()
			return false, fmt.Errorf("genesis: allocation total: %w", staking.ErrMathOverflow)
		}
		total += alloc.Amount
		if err := mgr.Mint(mint, alloc.Owner, alloc.Amount); err != nil {
			mgr.Discard()
			return false, err
		}
	}
	if err := mgr.KVPut(ledgerstate.GenesisKey(), uint64(len(allocations))); err != nil {
		mgr.Discard()
		return false, err
	}
	if err := mgr.Commit(); err != nil {
		return false, err
	}
	n.logger.Info("genesis allocations applied",
		slog.String("mint", formatCaller(mint)),
		slog.Int("accounts", len(allocations)),
		slog.Uint64("total", total))
	return true, nil
}
