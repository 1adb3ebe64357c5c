package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Auth binds mutating RPC calls to HMAC-signed bearer tokens. Leaving both
// the secret and SecretEnv empty disables authentication.
type Auth struct {
	HMACSecret string `toml:"HMACSecret" yaml:"hmacSecret"`
	// SecretEnv names an environment variable holding the secret. It wins
	// over HMACSecret when set.
	SecretEnv        string `toml:"SecretEnv" yaml:"secretEnv"`
	Issuer           string `toml:"Issuer" yaml:"issuer"`
	Audience         string `toml:"Audience" yaml:"audience"`
	ClockSkewSeconds int    `toml:"ClockSkewSeconds" yaml:"clockSkewSeconds"`
}

// Secret resolves the configured HMAC secret.
func (a Auth) Secret() (string, error) {
	if name := strings.TrimSpace(a.SecretEnv); name != "" {
		value := strings.TrimSpace(os.Getenv(name))
		if value == "" {
			return "", fmt.Errorf("config: auth secret env %s is empty", name)
		}
		return value, nil
	}
	return strings.TrimSpace(a.HMACSecret), nil
}

// ClockSkew returns the tolerated token clock skew.
func (a Auth) ClockSkew() time.Duration {
	if a.ClockSkewSeconds <= 0 {
		return 0
	}
	return time.Duration(a.ClockSkewSeconds) * time.Second
}
