package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tierstake/core"
	"tierstake/crypto"
	"tierstake/rpc"
	"tierstake/storage"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func stubPassphrase(t *testing.T, value string) {
	t.Helper()
	prev := newPassSource
	newPassSource = func(bool) func() (string, error) {
		return func() (string, error) { return value, nil }
	}
	t.Cleanup(func() { newPassSource = prev })
}

func TestRunUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"bogus"}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stderr.String(), "Usage: stake-cli") {
		t.Fatalf("expected usage, got %q", stderr.String())
	}
}

func TestKeygenThenAddress(t *testing.T) {
	stubPassphrase(t, "test-pass")
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	if code := run([]string{"keygen", "-dir", dir}, &stdout, &stderr); code != 0 {
		t.Fatalf("keygen failed: %s", stderr.String())
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one keystore file, got %v err=%v", entries, err)
	}
	path := filepath.Join(dir, entries[0].Name())

	stdout.Reset()
	if code := run([]string{"address", "-keystore", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("address failed: %s", stderr.String())
	}
	addr := strings.TrimSpace(stdout.String())
	if !strings.HasPrefix(entries[0].Name(), addr) {
		t.Fatalf("address %s does not match keystore %s", addr, entries[0].Name())
	}
}

func TestTokenVerifiesAgainstServerAuth(t *testing.T) {
	caller := crypto.FromRaw([20]byte{0x42})
	var stdout, stderr bytes.Buffer
	code := run([]string{"token", "-address", caller.String(), "-secret", testSecret}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("token failed: %s", stderr.String())
	}
	auth := rpc.NewAuthenticator(rpc.AuthConfig{
		Enabled:    true,
		HMACSecret: testSecret,
		Issuer:     "tierstake",
		Audience:   "stakingd",
	}, nil)
	got, err := auth.Verify(strings.TrimSpace(stdout.String()))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != caller.Raw() {
		t.Fatalf("unexpected subject %x", got)
	}
}

func TestTokenRequiresIdentity(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"token", "-secret", testSecret}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected failure, got %d", code)
	}
}

func newRPCServer(t *testing.T) (*httptest.Server, *core.Node) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	node, err := core.NewNode(db, nil)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	server, err := rpc.NewServer(node, rpc.ServerConfig{}, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return srv, node
}

func TestCallPrintsResultAndErrors(t *testing.T) {
	srv, _ := newRPCServer(t)
	authority := crypto.FromRaw([20]byte{0xA1})
	mint := crypto.FromRaw([20]byte{0xEE})
	endpoint := srv.URL + "/rpc"

	var stdout, stderr bytes.Buffer
	params := `{"caller":"` + authority.String() + `","mint":"` + mint.String() + `"}`
	if code := run([]string{"call", "-rpc", endpoint, rpc.MethodInitializeProgram, params}, &stdout, &stderr); code != 0 {
		t.Fatalf("call failed: %s", stderr.String())
	}
	if !strings.Contains(stdout.String(), authority.String()) {
		t.Fatalf("expected authority in output, got %s", stdout.String())
	}

	stdout.Reset()
	stderr.Reset()
	if code := run([]string{"call", "-rpc", endpoint, rpc.MethodInitializeProgram, params}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected failure on re-init")
	}
	if !strings.Contains(stderr.String(), "kind: precondition") {
		t.Fatalf("expected error kind, got %q", stderr.String())
	}
}

func TestAuditDatabase(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	node, err := core.NewNode(db, nil)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	var stdout, stderr bytes.Buffer
	if code := auditDatabase(db, &stdout, &stderr); code != 1 {
		t.Fatalf("expected failure on empty ledger, got %d", code)
	}

	authority := [20]byte{0xA1}
	if _, err := node.InitializeProgram(authority, [20]byte{0xEE}); err != nil {
		t.Fatalf("init: %v", err)
	}
	stdout.Reset()
	if code := auditDatabase(db, &stdout, &stderr); code != 0 {
		t.Fatalf("expected clean audit, got %d: %s", code, stdout.String())
	}
	if !strings.Contains(stdout.String(), "OK: all invariants hold") {
		t.Fatalf("unexpected audit output: %s", stdout.String())
	}
}
