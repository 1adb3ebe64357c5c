package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/holiman/uint256"

	"justfriends/core"
	"justfriends/crypto"
	"justfriends/native/creator"
	"justfriends/rpc"
	"justfriends/storage"
)

const cliSecret = "cli-test-secret"

func identity(b byte) (raw [20]byte, text string) {
	raw[19] = b
	return raw, crypto.MustNewAddress(crypto.JFPrefix, raw[:]).String()
}

func startNode(t *testing.T) (string, string, string) {
	t.Helper()
	params := creator.DefaultParams()
	params.Fees.Destination, _ = identity(0xF0)
	params.Reserve, _ = identity(0xF1)
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	node, err := core.NewNode(db, params)
	if err != nil {
		t.Fatalf("node: %v", err)
	}
	fanRaw, fan := identity(0xB1)
	_, author := identity(0xC0)
	if _, err := node.ApplyGenesis(context.Background(), map[[20]byte]*uint256.Int{fanRaw: uint256.NewInt(1_000_000_000)}); err != nil {
		t.Fatalf("genesis: %v", err)
	}
	server := rpc.NewServer(node, nil, rpc.ServerConfig{Auth: rpc.AuthConfig{HMACSecret: cliSecret}})
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)
	return srv.URL, author, fan
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func mintToken(t *testing.T, subject string) string {
	t.Helper()
	code, out, errOut := runCLI(t, "token", "--secret", cliSecret, "--subject", subject)
	if code != 0 {
		t.Fatalf("token: %s", errOut)
	}
	return strings.TrimSpace(out)
}

func TestPostBuyAndInspect(t *testing.T) {
	url, author, fan := startNode(t)

	code, out, errOut := runCLI(t, "--rpc", url, "--token", mintToken(t, author),
		"content", "post", "--caller", author, "--data", "hello fans", "--base-price", "10000", "--paid", "--height", "3")
	if code != 0 {
		t.Fatalf("post failed: %s", errOut)
	}
	var content rpc.ContentResult
	if err := json.Unmarshal([]byte(out), &content); err != nil {
		t.Fatalf("decode post output %q: %v", out, err)
	}
	if content.Creator != author || content.AccessUnitID != 1 {
		t.Fatalf("unexpected content %+v", content)
	}

	code, out, _ = runCLI(t, "--rpc="+url, "trade", "price", "--hash", content.Hash, "--amount", "2")
	if code != 0 || !strings.Contains(out, `"`) {
		t.Fatalf("price failed: %d %s", code, out)
	}

	code, _, errOut = runCLI(t, "--rpc", url, "--token", mintToken(t, fan),
		"trade", "buy", "--caller", fan, "--hash", content.Hash, "--amount", "2", "--payment", "1000000", "--height", "4")
	if code != 0 {
		t.Fatalf("buy failed: %s", errOut)
	}

	code, out, _ = runCLI(t, "--rpc", url, "trade", "balance", "--unit", "1", "--holder", fan)
	if code != 0 || strings.TrimSpace(out) != "2" {
		t.Fatalf("unexpected balance %d %q", code, out)
	}

	code, out, _ = runCLI(t, "--rpc", url, "loyalty", "leaders", "--creator", author, "--epoch", "0")
	if code != 0 || !strings.Contains(out, fan) {
		t.Fatalf("unexpected leaders %d %q", code, out)
	}
}

func TestMutationWithoutTokenFails(t *testing.T) {
	url, author, _ := startNode(t)
	code, _, errOut := runCLI(t, "--rpc", url, "content", "post", "--caller", author, "--data", "x", "--base-price", "1", "--height", "1")
	if code == 0 || !strings.Contains(errOut, "unauthorized") {
		t.Fatalf("expected unauthorized, got %d %q", code, errOut)
	}
}

func TestUsageErrors(t *testing.T) {
	if code, _, errOut := runCLI(t); code != 1 || !strings.Contains(errOut, "Usage: jf-cli") {
		t.Fatalf("expected usage, got %d %q", code, errOut)
	}
	if code, _, errOut := runCLI(t, "trade", "swap"); code != 1 || !strings.Contains(errOut, "Unknown trade subcommand") {
		t.Fatalf("expected unknown subcommand, got %d %q", code, errOut)
	}
	if code, _, errOut := runCLI(t, "trade", "price", "--hash", "0x01", "--side", "hold"); code != 1 || !strings.Contains(errOut, "--side") {
		t.Fatalf("expected side validation, got %d %q", code, errOut)
	}
	if code, _, errOut := runCLI(t, "--rpc"); code != 1 || !strings.Contains(errOut, "missing value") {
		t.Fatalf("expected missing flag value, got %d %q", code, errOut)
	}
	if code, _, _ := runCLI(t, "token", "--subject", "jf1abc"); code != 1 {
		t.Fatalf("token without secret should fail")
	}
}
