package rpc

import (
	"net/http"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "market-test-secret"

func signToken(t *testing.T, subject string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"iss": "justfriends-test",
		"exp": expires.Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestMutationsRequireMatchingSubject(t *testing.T) {
	srv := newTestServer(t, ServerConfig{Auth: AuthConfig{HMACSecret: testSecret, Issuer: "justfriends-test"}})
	author := formatAddress(authorAddr)
	fan := formatAddress(fanAddr)
	post := map[string]interface{}{"caller": author, "data": "gated", "basePrice": "1", "isPaid": true, "height": 1}

	status, resp := call(t, srv, "jf_post", post)
	if status != http.StatusUnauthorized || resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected missing token rejection, got %d %+v", status, resp.Error)
	}

	status, resp = callWithToken(t, srv, signToken(t, fan, time.Now().Add(time.Hour)), "jf_post", post)
	if status != http.StatusForbidden || resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("expected subject mismatch, got %d %+v", status, resp.Error)
	}

	status, resp = callWithToken(t, srv, signToken(t, author, time.Now().Add(-time.Hour)), "jf_post", post)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected expired token rejection, got %d %+v", status, resp.Error)
	}

	_, resp = callWithToken(t, srv, signToken(t, author, time.Now().Add(time.Hour)), "jf_post", post)
	var content ContentResult
	decodeResult(t, resp, &content)
	if content.Creator != author {
		t.Fatalf("unexpected creator %s", content.Creator)
	}

	// Reads stay open.
	_, resp = call(t, srv, "jf_getContent", map[string]interface{}{"hash": content.Hash})
	decodeResult(t, resp, &content)
}

func TestExtractBearer(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":  "abc",
		"bearer  xyz": "xyz",
		"Basic abc":   "",
		"":            "",
	}
	for header, want := range cases {
		if got := extractBearer(header); got != want {
			t.Fatalf("extractBearer(%q) = %q, want %q", header, got, want)
		}
	}
	if newAuthenticator(AuthConfig{HMACSecret: "  "}) != nil {
		t.Fatalf("blank secret should disable auth")
	}
}
