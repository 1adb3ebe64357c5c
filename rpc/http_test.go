package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"justfriends/core"
	"justfriends/native/creator"
	"justfriends/storage"
)

func rpcAddr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

var (
	authorAddr = rpcAddr(0xC0)
	fanAddr    = rpcAddr(0xB1)
)

func newTestServer(t *testing.T, cfg ServerConfig) *httptest.Server {
	t.Helper()
	node := newTestNode(t)
	srv := httptest.NewServer(NewServer(node, nil, cfg).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func newTestNode(t *testing.T) *core.Node {
	t.Helper()
	params := creator.DefaultParams()
	params.Fees.Destination = rpcAddr(0xF0)
	params.Reserve = rpcAddr(0xF1)
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	node, err := core.NewNode(db, params)
	if err != nil {
		t.Fatalf("node: %v", err)
	}
	funds := new(uint256.Int).Mul(uint256.NewInt(1_000_000), uint256.NewInt(1_000_000_000_000))
	if _, err := node.ApplyGenesis(context.Background(), map[[20]byte]*uint256.Int{fanAddr: funds}); err != nil {
		t.Fatalf("genesis: %v", err)
	}
	return node
}

func call(t *testing.T, srv *httptest.Server, method string, params interface{}) (int, RPCResponse) {
	t.Helper()
	return callWithToken(t, srv, "", method, params)
}

func callWithToken(t *testing.T, srv *httptest.Server, token, method string, params interface{}) (int, RPCResponse) {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": jsonRPCVersion,
		"id":      1,
		"method":  method,
		"params":  []json.RawMessage{raw},
	})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	httpReq, err := http.NewRequest(http.MethodPost, srv.URL+"/", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var out RPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, out
}

func decodeResult(t *testing.T, resp RPCResponse, out interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("remarshal: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

func TestMarketRoundTrip(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})
	author := formatAddress(authorAddr)
	fan := formatAddress(fanAddr)

	_, resp := call(t, srv, "jf_post", map[string]interface{}{
		"caller":    author,
		"data":      "my first post",
		"basePrice": "10000000000000000",
		"isPaid":    true,
		"height":    5,
	})
	var content ContentResult
	decodeResult(t, resp, &content)
	if content.Hash != formatHash(contentHash("my first post")) {
		t.Fatalf("content hash not derived from data: %s", content.Hash)
	}
	if content.Creator != author || content.AccessUnitID != 1 {
		t.Fatalf("unexpected content %+v", content)
	}

	_, resp = call(t, srv, "jf_getBuyPrice", map[string]interface{}{"hash": content.Hash, "amount": 10})
	var price string
	decodeResult(t, resp, &price)
	if price != "423500000000000" {
		t.Fatalf("unexpected buy price %s", price)
	}

	_, resp = call(t, srv, "jf_buyContentAccess", map[string]interface{}{
		"caller":  fan,
		"hash":    content.Hash,
		"amount":  10,
		"payment": "500000000000000",
		"height":  6,
	})
	var receipt ReceiptResult
	decodeResult(t, resp, &receipt)
	if receipt.Gross != "385000000000000" || receipt.Refund != "76500000000000" || receipt.Balance != 10 {
		t.Fatalf("unexpected receipt %+v", receipt)
	}

	_, resp = call(t, srv, "jf_balanceOf", map[string]interface{}{"accessUnitId": 1, "holder": fan})
	var units uint64
	decodeResult(t, resp, &units)
	if units != 10 {
		t.Fatalf("expected 10 units, got %d", units)
	}

	_, resp = call(t, srv, "jf_vote", map[string]interface{}{"caller": fan, "hash": content.Hash, "reaction": "upvote", "height": 7})
	var vote VoteResult
	decodeResult(t, resp, &vote)
	if vote.Reaction != "upvote" || vote.Previous != "none" {
		t.Fatalf("unexpected vote %+v", vote)
	}

	_, resp = call(t, srv, "jf_getLeaders", map[string]interface{}{"creator": author, "epoch": 0})
	var leaders []string
	decodeResult(t, resp, &leaders)
	if len(leaders) != 1 || leaders[0] != fan {
		t.Fatalf("unexpected leaders %v", leaders)
	}

	_, resp = call(t, srv, "jf_getEpochLedger", map[string]interface{}{"creator": author, "epoch": 0})
	var ledger EpochLedgerResult
	decodeResult(t, resp, &ledger)
	if ledger.Revenue != "385000000000000" || ledger.IsClosed || len(ledger.Leaders) != 1 {
		t.Fatalf("unexpected ledger %+v", ledger)
	}

	_, resp = call(t, srv, "jf_sellContentAccess", map[string]interface{}{"caller": fan, "hash": content.Hash, "amount": 10, "height": 8})
	decodeResult(t, resp, &receipt)
	if receipt.Balance != 0 {
		t.Fatalf("expected all units sold, got %+v", receipt)
	}
}

func TestMarketErrorsCarryCodes(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})
	author := formatAddress(authorAddr)
	fan := formatAddress(fanAddr)
	missing := formatHash([32]byte{1})

	status, resp := call(t, srv, "jf_getContent", map[string]interface{}{"hash": missing})
	if status != http.StatusNotFound || resp.Error == nil || resp.Error.Code != codeNotFound {
		t.Fatalf("expected not found, got %d %+v", status, resp.Error)
	}

	_, resp = call(t, srv, "jf_post", map[string]interface{}{"caller": author, "hash": missing, "basePrice": "1", "isPaid": true, "height": 1})
	if resp.Error != nil {
		t.Fatalf("post: %+v", resp.Error)
	}
	_, resp = call(t, srv, "jf_post", map[string]interface{}{"caller": author, "hash": missing, "basePrice": "1", "isPaid": true, "height": 1})
	if resp.Error == nil || resp.Error.Code != codeInvalidContent {
		t.Fatalf("expected invalid content on repost, got %+v", resp.Error)
	}

	_, resp = call(t, srv, "jf_vote", map[string]interface{}{"caller": fan, "hash": missing, "reaction": "sideways", "height": 2})
	if resp.Error == nil || resp.Error.Code != codeInvalidReaction {
		t.Fatalf("expected invalid reaction, got %+v", resp.Error)
	}

	_, resp = call(t, srv, "jf_buyContentAccess", map[string]interface{}{"caller": fan, "hash": missing, "amount": 1, "payment": "0", "height": 2})
	if resp.Error == nil || resp.Error.Code != codeInsufficientPayment {
		t.Fatalf("expected insufficient payment, got %+v", resp.Error)
	}

	_, resp = call(t, srv, "jf_sellContentAccess", map[string]interface{}{"caller": fan, "hash": missing, "amount": 1, "height": 2})
	if resp.Error == nil || resp.Error.Code != codeInsufficientAccess {
		t.Fatalf("expected insufficient access, got %+v", resp.Error)
	}

	_, resp = call(t, srv, "jf_getContent", map[string]interface{}{"hash": "0x1234"})
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected invalid params for short hash, got %+v", resp.Error)
	}

	_, resp = call(t, srv, "jf_getBalance", map[string]interface{}{"address": fan, "extra": true})
	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Fatalf("expected unknown field rejection, got %+v", resp.Error)
	}

	status, resp = call(t, srv, "jf_unknown", map[string]interface{}{})
	if status != http.StatusNotFound || resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("expected method not found, got %d %+v", status, resp.Error)
	}
}

func TestRejectsMalformedEnvelope(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})
	resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var out RPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest || out.Error == nil || out.Error.Code != codeParseError {
		t.Fatalf("expected parse error, got %d %+v", resp.StatusCode, out.Error)
	}
	if resp.Header.Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestRateLimitPerClient(t *testing.T) {
	srv := newTestServer(t, ServerConfig{RatePerSecond: 0.001, Burst: 2})
	fan := formatAddress(fanAddr)
	for i := 0; i < 2; i++ {
		if _, resp := call(t, srv, "jf_getBalance", map[string]interface{}{"address": fan}); resp.Error != nil {
			t.Fatalf("request %d: %+v", i, resp.Error)
		}
	}
	status, resp := call(t, srv, "jf_getBalance", map[string]interface{}{"address": fan})
	if status != http.StatusTooManyRequests || resp.Error == nil || resp.Error.Code != codeRateLimited {
		t.Fatalf("expected rate limit, got %d %+v", status, resp.Error)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, ServerConfig{})
	for _, path := range []string{"/healthz", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s returned %d", path, resp.StatusCode)
		}
	}
}

func TestRateLimiterPrunesIdleClients(t *testing.T) {
	limiter := newRateLimiter(1, 1)
	now := time.Unix(1_700_000_000, 0)
	limiter.now = func() time.Time { return now }
	if !limiter.allow("a") {
		t.Fatalf("first request should pass")
	}
	if limiter.allow("a") {
		t.Fatalf("second immediate request should be limited")
	}
	now = now.Add(visitorTTL + pruneCheckPeriod)
	limiter.allow("b")
	if _, ok := limiter.visitors["a"]; ok {
		t.Fatalf("idle client should be pruned")
	}
	if newRateLimiter(0, 5) != nil {
		t.Fatalf("zero rate disables the limiter")
	}
}
