package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

func accountUsage() string {
	buf := &bytes.Buffer{}
	fmt.Fprintln(buf, "Usage: jf-cli account <subcommand>")
	fmt.Fprintln(buf, "Subcommands:")
	fmt.Fprintln(buf, "  balance  --address ID   Native wallet balance in wei")
	fmt.Fprintln(buf, "  fees     --address ID   Fees routed to the wallet")
	return buf.String()
}

func runAccountCommand(c *client, args []string, stdout, stderr io.Writer) int {
	addressQuery := func(name, method string) func([]string) int {
		return func(args []string) int {
			fs := flag.NewFlagSet(name, flag.ContinueOnError)
			fs.SetOutput(stderr)
			address := fs.String("address", "", "Wallet identity")
			if err := fs.Parse(args); err != nil {
				return 1
			}
			if err := requireFlag("address", *address); err != nil {
				fmt.Fprintln(stderr, err)
				return 1
			}
			return invoke(c, method, map[string]interface{}{"address": *address}, stdout, stderr)
		}
	}
	return subcommand("account", map[string]func([]string) int{
		"balance": addressQuery("account balance", "jf_getBalance"),
		"fees":    addressQuery("account fees", "jf_getFeeTotals"),
	}, accountUsage(), args, stderr)
}

func runEventsCommand(c *client, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	fs.SetOutput(stderr)
	eventType := fs.String("type", "", "Only events of this type")
	hash := fs.String("hash", "", "Only events for this content hash")
	author := fs.String("creator", "", "Only events naming this creator")
	after := fs.Uint64("after", 0, "Resume after this event id")
	limit := fs.Int("limit", 0, "Maximum number of events")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	return invoke(c, "jf_getEvents", map[string]interface{}{
		"type":    *eventType,
		"hash":    *hash,
		"creator": *author,
		"afterId": *after,
		"limit":   *limit,
	}, stdout, stderr)
}

// runTokenCommand mints an HS256 caller token for nodes that run with an
// [auth] secret.
func runTokenCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	secret := fs.String("secret", "", "Shared HMAC secret")
	subject := fs.String("subject", "", "Caller identity the token acts as")
	issuer := fs.String("issuer", "", "Issuer claim")
	audience := fs.String("audience", "", "Audience claim")
	ttl := fs.Duration("ttl", time.Hour, "Token lifetime")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	for name, value := range map[string]string{"secret": *secret, "subject": *subject} {
		if err := requireFlag(name, value); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}
	if *ttl <= 0 {
		fmt.Fprintln(stderr, "--ttl must be positive")
		return 1
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strings.TrimSpace(*subject),
		Issuer:    strings.TrimSpace(*issuer),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
	}
	if aud := strings.TrimSpace(*audience); aud != "" {
		claims.Audience = jwt.ClaimStrings{aud}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(strings.TrimSpace(*secret)))
	if err != nil {
		fmt.Fprintf(stderr, "Error signing token: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, signed)
	return 0
}
