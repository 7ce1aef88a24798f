package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"tierstake/core"
	"tierstake/core/events"
	"tierstake/crypto"
	"tierstake/native/staking"
	"tierstake/storage"
)

const (
	testSecret   = "0123456789abcdef0123456789abcdef"
	testIssuer   = "tierstake"
	testAudience = "stakingd"
	testStart    = int64(1_700_000_000)
)

type testEnv struct {
	server    *Server
	node      *core.Node
	handler   http.Handler
	authority crypto.Address
	user      crypto.Address
	mint      crypto.Address
	now       int64
}

func testAddress(t *testing.T) crypto.Address {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key.PubKey().Address()
}

func newTestEnv(t *testing.T, cfg ServerConfig) *testEnv {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	node, err := core.NewNode(db, nil)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	env := &testEnv{
		node:      node,
		authority: testAddress(t),
		user:      testAddress(t),
		mint:      testAddress(t),
		now:       testStart,
	}
	node.SetNowFunc(func() int64 { return env.now })
	for _, owner := range []crypto.Address{env.authority, env.user} {
		if err := node.Mint(env.mint.Raw(), owner.Raw(), 10*staking.InfiniteMin); err != nil {
			t.Fatalf("mint: %v", err)
		}
	}
	server, err := NewServer(node, cfg, nil)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	env.server = server
	env.handler = server.Handler()
	return env
}

func authConfig() ServerConfig {
	return ServerConfig{Auth: AuthConfig{
		Enabled:    true,
		HMACSecret: testSecret,
		Issuer:     testIssuer,
		Audience:   testAudience,
	}}
}

func (e *testEnv) token(t *testing.T, caller crypto.Address) string {
	t.Helper()
	token, err := IssueToken(testSecret, caller, testIssuer, testAudience, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (e *testEnv) call(t *testing.T, token, method string, params interface{}) (int, RPCResponse) {
	t.Helper()
	payload := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": method}
	if params != nil {
		payload["params"] = []interface{}{params}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(body))
	req.RemoteAddr = "192.0.2.10:4000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	var resp RPCResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, resp
}

func decodeResult(t *testing.T, resp RPCResponse, out interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected rpc error: %+v", resp.Error)
	}
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

func errorKind(t *testing.T, resp RPCResponse) string {
	t.Helper()
	if resp.Error == nil {
		t.Fatalf("expected rpc error")
	}
	data, ok := resp.Error.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("expected error data object, got %#v", resp.Error.Data)
	}
	kind, _ := data["kind"].(string)
	return kind
}

func (e *testEnv) bootstrap(t *testing.T) {
	t.Helper()
	token := e.token(t, e.authority)
	if status, resp := e.call(t, token, MethodInitializeProgram, map[string]string{"mint": e.mint.String()}); status != http.StatusOK {
		t.Fatalf("init program: status %d error %+v", status, resp.Error)
	}
	if status, resp := e.call(t, token, MethodInitializeEscrow, nil); status != http.StatusOK {
		t.Fatalf("init escrow: status %d error %+v", status, resp.Error)
	}
	if status, resp := e.call(t, token, MethodFundEscrow, map[string]string{
		"mint":   e.mint.String(),
		"amount": "1000000000000",
	}); status != http.StatusOK {
		t.Fatalf("fund escrow: status %d error %+v", status, resp.Error)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected healthz response: %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestNewServerRequiresSecretWhenAuthEnabled(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	node, err := core.NewNode(db, nil)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	if _, err := NewServer(node, ServerConfig{Auth: AuthConfig{Enabled: true}}, nil); err == nil {
		t.Fatalf("expected missing secret error")
	}
}

func TestStakeLifecycleOverRPC(t *testing.T) {
	env := newTestEnv(t, authConfig())
	env.bootstrap(t)
	token := env.token(t, env.user)

	status, resp := env.call(t, token, MethodStake, map[string]string{
		"mint":   env.mint.String(),
		"amount": fmt.Sprintf("%d", staking.GoldMin),
	})
	if status != http.StatusOK {
		t.Fatalf("stake: status %d error %+v", status, resp.Error)
	}
	var stake StakeResult
	decodeResult(t, resp, &stake)
	if stake.Owner != env.user.String() || stake.TierName != staking.TierGold.String() {
		t.Fatalf("unexpected stake result: %+v", stake)
	}
	if stake.LockedUntil != testStart+staking.LockDuration {
		t.Fatalf("unexpected lock: %d", stake.LockedUntil)
	}

	env.now += int64(staking.SecondsPerYear)
	_, resp = env.call(t, token, MethodPendingRewards, nil)
	var pending AmountResult
	decodeResult(t, resp, &pending)
	if pending.Amount != "50000000000" || pending.Owner != env.user.String() {
		t.Fatalf("unexpected pending rewards: %+v", pending)
	}

	_, resp = env.call(t, token, MethodClaimRewards, map[string]string{"mint": env.mint.String()})
	var claim ClaimResult
	decodeResult(t, resp, &claim)
	if claim.Amount != pending.Amount {
		t.Fatalf("claimed %s, expected %s", claim.Amount, pending.Amount)
	}
	if claim.Escrow.TotalDistributed != pending.Amount {
		t.Fatalf("unexpected escrow after claim: %+v", claim.Escrow)
	}

	_, resp = env.call(t, "", MethodGetProgram, nil)
	var program ProgramStateResult
	decodeResult(t, resp, &program)
	if program.TotalUsers != "1" || program.Authority != env.authority.String() {
		t.Fatalf("unexpected program: %+v", program)
	}

	_, resp = env.call(t, "", MethodGetPosition, map[string]string{"owner": env.user.String()})
	var position StakeResult
	decodeResult(t, resp, &position)
	if position.RewardsClaimed != pending.Amount {
		t.Fatalf("unexpected position: %+v", position)
	}
}

func TestMutationsRequireAuthenticatedCaller(t *testing.T) {
	env := newTestEnv(t, authConfig())
	params := map[string]string{"mint": env.mint.String()}

	status, resp := env.call(t, "", MethodInitializeProgram, params)
	if status != http.StatusUnauthorized || resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized, got %d %+v", status, resp.Error)
	}

	status, resp = env.call(t, "not-a-token", MethodInitializeProgram, params)
	if status != http.StatusUnauthorized || resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected invalid token rejection, got %d %+v", status, resp.Error)
	}

	mismatched := map[string]string{"mint": env.mint.String(), "caller": env.user.String()}
	status, resp = env.call(t, env.token(t, env.authority), MethodInitializeProgram, mismatched)
	if status != http.StatusForbidden || resp.Error == nil {
		t.Fatalf("expected caller mismatch rejection, got %d %+v", status, resp.Error)
	}

	if _, err := env.node.ProgramState(); err == nil {
		t.Fatalf("rejected calls must not initialize the program")
	}
}

func TestForeignIssuerTokenRejected(t *testing.T) {
	env := newTestEnv(t, authConfig())
	token, err := IssueToken(testSecret, env.authority, "someone-else", testAudience, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	status, _ := env.call(t, token, MethodInitializeEscrow, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
}

func TestDevModeUsesCallerParam(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	status, resp := env.call(t, "", MethodInitializeProgram, map[string]string{
		"caller": env.authority.String(),
		"mint":   env.mint.String(),
	})
	if status != http.StatusOK {
		t.Fatalf("init program: %d %+v", status, resp.Error)
	}
	status, resp = env.call(t, "", MethodInitializeEscrow, nil)
	if status != http.StatusBadRequest || resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected missing caller rejection, got %d %+v", status, resp.Error)
	}
}

func TestLedgerErrorMapping(t *testing.T) {
	env := newTestEnv(t, authConfig())
	env.bootstrap(t)
	userToken := env.token(t, env.user)

	cases := []struct {
		name   string
		token  string
		method string
		params interface{}
		status int
		code   int
		kind   staking.Kind
	}{
		{
			name:   "below minimum",
			token:  userToken,
			method: MethodStake,
			params: map[string]string{"mint": env.mint.String(), "amount": "1"},
			status: http.StatusBadRequest,
			code:   codeValidation,
			kind:   staking.KindValidation,
		},
		{
			name:   "zero amount",
			token:  userToken,
			method: MethodFundEscrow,
			params: map[string]string{"mint": env.mint.String(), "amount": "0"},
			status: http.StatusBadRequest,
			code:   codeValidation,
			kind:   staking.KindValidation,
		},
		{
			name:   "not authority",
			token:  userToken,
			method: MethodSetPaused,
			params: map[string]bool{"paused": true},
			status: http.StatusForbidden,
			code:   codeUnauthorized,
			kind:   staking.KindAuthorization,
		},
		{
			name:   "no stake",
			token:  userToken,
			method: MethodCompoundRewards,
			status: http.StatusConflict,
			code:   codePrecondition,
			kind:   staking.KindPrecondition,
		},
		{
			name:   "already initialized",
			token:  env.token(t, env.authority),
			method: MethodInitializeEscrow,
			status: http.StatusConflict,
			code:   codePrecondition,
			kind:   staking.KindPrecondition,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, resp := env.call(t, tc.token, tc.method, tc.params)
			if status != tc.status {
				t.Fatalf("expected status %d, got %d (%+v)", tc.status, status, resp.Error)
			}
			if resp.Error.Code != tc.code {
				t.Fatalf("expected code %d, got %d", tc.code, resp.Error.Code)
			}
			if kind := errorKind(t, resp); kind != string(tc.kind) {
				t.Fatalf("expected kind %s, got %s", tc.kind, kind)
			}
		})
	}
}

func TestInvalidRequests(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	status, resp := env.call(t, "", "stake_doesNotExist", nil)
	if status != http.StatusNotFound || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method not found, got %d %+v", status, resp.Error)
	}

	status, resp = env.call(t, "", MethodStake, map[string]string{
		"caller": env.user.String(),
		"mint":   env.mint.String(),
		"amount": "-5",
	})
	if status != http.StatusBadRequest || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid amount, got %d %+v", status, resp.Error)
	}

	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), fmt.Sprintf("%d", codeParseError)) {
		t.Fatalf("expected parse error, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRateLimitRejectsBurst(t *testing.T) {
	env := newTestEnv(t, ServerConfig{RateLimit: RateLimit{RequestsPerMinute: 1, Burst: 1}})
	if status, _ := env.call(t, "", MethodGetProgram, nil); status == http.StatusTooManyRequests {
		t.Fatalf("first request must not be throttled")
	}
	status, resp := env.call(t, "", MethodGetProgram, nil)
	if status != http.StatusTooManyRequests || resp.Error == nil || resp.Error.Code != codeRateLimited {
		t.Fatalf("expected rate limit, got %d %+v", status, resp.Error)
	}
}

func TestRateLimiterEvictsIdleVisitors(t *testing.T) {
	limiter := NewRateLimiter(RateLimit{RequestsPerMinute: 1, Burst: 1})
	now := time.Unix(testStart, 0)
	limiter.clockNow = func() time.Time { return now }
	if !limiter.Allow("ip:a") {
		t.Fatalf("first request denied")
	}
	if limiter.Allow("ip:a") {
		t.Fatalf("second request allowed")
	}
	now = now.Add(limiterIdleTTL + time.Second)
	limiter.Allow("ip:b")
	if _, ok := limiter.visitors["ip:a"]; ok {
		t.Fatalf("idle visitor not evicted")
	}
}

func TestEventsWebsocketReplaysCommittedEvents(t *testing.T) {
	env := newTestEnv(t, authConfig())
	env.bootstrap(t)
	if status, resp := env.call(t, env.token(t, env.user), MethodStake, map[string]string{
		"mint":   env.mint.String(),
		"amount": fmt.Sprintf("%d", staking.GoldMin),
	}); status != http.StatusOK {
		t.Fatalf("stake: %d %+v", status, resp.Error)
	}

	srv := httptest.NewServer(env.handler)
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/events?cursor=0", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	var types []string
	for len(types) < 2 {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var update core.EventUpdate
		if err := json.Unmarshal(data, &update); err != nil {
			t.Fatalf("decode update: %v", err)
		}
		types = append(types, update.Type)
	}
	if types[0] != events.TypeStakeEscrowFunded || types[1] != events.TypeStakeCompleted {
		t.Fatalf("unexpected event order: %v", types)
	}
}

func TestEventsWebsocketFiltersTypes(t *testing.T) {
	env := newTestEnv(t, authConfig())
	env.bootstrap(t)
	if status, resp := env.call(t, env.token(t, env.user), MethodStake, map[string]string{
		"mint":   env.mint.String(),
		"amount": fmt.Sprintf("%d", staking.GoldMin),
	}); status != http.StatusOK {
		t.Fatalf("stake: %d %+v", status, resp.Error)
	}

	srv := httptest.NewServer(env.handler)
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events?types=" + events.TypeStakeCompleted
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var update core.EventUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if update.Type != events.TypeStakeCompleted || update.Sequence != 2 {
		t.Fatalf("unexpected update %+v", update)
	}
}

func TestEventsRejectsMalformedCursor(t *testing.T) {
	env := newTestEnv(t, authConfig())
	req := httptest.NewRequest(http.MethodGet, "/events?cursor=abc", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDerivedIdentitiesCannotCall(t *testing.T) {
	accts, err := staking.ProgramAccounts()
	if err != nil {
		t.Fatalf("program accounts: %v", err)
	}
	vault := crypto.FromDerived(accts.StakeVault)
	stakeParams := func(env *testEnv) map[string]string {
		return map[string]string{"mint": env.mint.String(), "amount": fmt.Sprintf("%d", staking.GoldMin)}
	}

	env := newTestEnv(t, authConfig())
	env.bootstrap(t)
	if status, _ := env.call(t, env.token(t, vault), MethodStake, stakeParams(env)); status != http.StatusUnauthorized {
		t.Fatalf("expected derived token subject to be rejected, got %d", status)
	}
	// The same identity rendered with the user prefix reaches the ledger,
	// which refuses it.
	status, resp := env.call(t, env.token(t, crypto.FromRaw(accts.StakeVault)), MethodStake, stakeParams(env))
	if status != http.StatusForbidden || errorKind(t, resp) != string(staking.KindAuthorization) {
		t.Fatalf("expected ledger to refuse vault caller, got %d %+v", status, resp.Error)
	}

	dev := newTestEnv(t, ServerConfig{})
	params := stakeParams(dev)
	params["caller"] = vault.String()
	status, resp = dev.call(t, "", MethodStake, params)
	if status != http.StatusBadRequest || resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected derived caller param to be rejected, got %d %+v", status, resp.Error)
	}

	program, err := env.node.ProgramState()
	if err != nil {
		t.Fatalf("program: %v", err)
	}
	if program.TotalStaked != 0 {
		t.Fatalf("rejected calls staked %d", program.TotalStaked)
	}
}
