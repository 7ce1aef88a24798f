package state

import (
	"errors"
	"testing"

	"tierstake/storage"
)

func TestManagerBuffersUntilCommit(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()

	mgr := NewManager(db)
	if err := mgr.KVPut([]byte("counter"), uint64(7)); err != nil {
		t.Fatalf("put: %v", err)
	}
	var got uint64
	if ok, err := mgr.KVGet([]byte("counter"), &got); err != nil || !ok || got != 7 {
		t.Fatalf("read-your-writes failed: ok=%v got=%d err=%v", ok, got, err)
	}
	if _, err := db.Get([]byte("counter")); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("write leaked before commit: %v", err)
	}
	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := mgr.KVPut([]byte("counter"), uint64(8)); err == nil {
		t.Fatalf("expected closed manager to reject writes")
	}

	reader := NewManager(db)
	if ok, err := reader.KVGet([]byte("counter"), &got); err != nil || !ok || got != 7 {
		t.Fatalf("committed value missing: ok=%v got=%d err=%v", ok, got, err)
	}
}

func TestManagerDetectsConflicts(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()

	seed := NewManager(db)
	if err := seed.KVPut([]byte("escrow"), uint64(100)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := seed.Commit(); err != nil {
		t.Fatalf("seed commit: %v", err)
	}

	first := NewManager(db)
	second := NewManager(db)
	var balance uint64
	if _, err := first.KVGet([]byte("escrow"), &balance); err != nil {
		t.Fatalf("first read: %v", err)
	}
	if _, err := second.KVGet([]byte("escrow"), &balance); err != nil {
		t.Fatalf("second read: %v", err)
	}
	if err := first.KVPut([]byte("escrow"), uint64(90)); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := second.KVPut([]byte("escrow"), uint64(80)); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if err := first.Commit(); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if err := second.Commit(); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	check := NewManager(db)
	if _, err := check.KVGet([]byte("escrow"), &balance); err != nil || balance != 90 {
		t.Fatalf("unexpected final balance %d err %v", balance, err)
	}
}

func TestManagerReadSetProtectsUnwrittenKeys(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()

	txn := NewManager(db)
	var paused bool
	if ok, err := txn.KVGet([]byte("paused"), &paused); err != nil || ok {
		t.Fatalf("expected absent key, ok=%v err=%v", ok, err)
	}
	if err := txn.KVPut([]byte("stake"), uint64(1)); err != nil {
		t.Fatalf("put: %v", err)
	}

	other := NewManager(db)
	if err := other.KVPut([]byte("paused"), true); err != nil {
		t.Fatalf("other put: %v", err)
	}
	if err := other.Commit(); err != nil {
		t.Fatalf("other commit: %v", err)
	}

	if err := txn.Commit(); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected conflict on read key, got %v", err)
	}
	if _, err := db.Get([]byte("stake")); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("conflicting transaction must not persist writes")
	}
}
