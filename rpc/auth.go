package rpc

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"justfriends/crypto"
)

const codeUnauthorized = -32001

// AuthConfig binds mutating calls to a bearer token whose subject is the
// caller identity. An empty secret disables the check.
type AuthConfig struct {
	HMACSecret string
	Issuer     string
	Audience   string
	ClockSkew  time.Duration
}

type authenticator struct {
	secret []byte
	opts   []jwt.ParserOption
}

func newAuthenticator(cfg AuthConfig) *authenticator {
	secret := strings.TrimSpace(cfg.HMACSecret)
	if secret == "" {
		return nil
	}
	skew := cfg.ClockSkew
	if skew <= 0 {
		skew = 2 * time.Minute
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg(), jwt.SigningMethodHS384.Alg(), jwt.SigningMethodHS512.Alg()}),
		jwt.WithLeeway(skew),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &authenticator{secret: []byte(secret), opts: opts}
}

func extractBearer(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// subject validates the request token and returns the identity it names.
func (a *authenticator) subject(r *http.Request) ([20]byte, error) {
	raw := extractBearer(r.Header.Get("Authorization"))
	if raw == "" {
		return [20]byte{}, errors.New("missing bearer token")
	}
	token, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, a.opts...)
	if err != nil {
		return [20]byte{}, err
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return [20]byte{}, errors.New("token subject required")
	}
	addr, err := crypto.ParseIdentity(sub)
	if err != nil {
		return [20]byte{}, fmt.Errorf("token subject: %w", err)
	}
	return addr, nil
}

// authorize checks that the request may act as caller. It writes the error
// response itself and reports whether the handler may proceed.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, req *RPCRequest, caller [20]byte) bool {
	if s.auth == nil {
		return true
	}
	subject, err := s.auth.subject(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, req.ID, codeUnauthorized, "unauthorized", err.Error())
		return false
	}
	if subject != caller {
		writeError(w, http.StatusForbidden, req.ID, codeUnauthorized, "token subject does not match caller", nil)
		return false
	}
	return true
}
