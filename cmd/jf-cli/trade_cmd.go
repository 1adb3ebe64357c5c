package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"strings"
)

func tradeUsage() string {
	buf := &bytes.Buffer{}
	fmt.Fprintln(buf, "Usage: jf-cli trade <subcommand>")
	fmt.Fprintln(buf, "Subcommands:")
	fmt.Fprintln(buf, "  price    --side buy|sell --hash H --amount N   Total buy cost or net sell proceeds")
	fmt.Fprintln(buf, "  quote    --side buy|sell --hash H --amount N   Curve value and fee breakdown")
	fmt.Fprintln(buf, "  buy      --caller ID --hash H --amount N --payment WEI --height N")
	fmt.Fprintln(buf, "  sell     --caller ID --hash H --amount N --height N")
	fmt.Fprintln(buf, "  balance  --unit ID --holder ID")
	return buf.String()
}

func runTradeCommand(c *client, args []string, stdout, stderr io.Writer) int {
	return subcommand("trade", map[string]func([]string) int{
		"price": func(args []string) int {
			return runTradeQuote(c, "trade price", "jf_getBuyPrice", "jf_getSellPrice", args, stdout, stderr)
		},
		"quote": func(args []string) int {
			return runTradeQuote(c, "trade quote", "jf_quoteBuy", "jf_quoteSell", args, stdout, stderr)
		},
		"buy":     func(args []string) int { return runTradeBuy(c, args, stdout, stderr) },
		"sell":    func(args []string) int { return runTradeSell(c, args, stdout, stderr) },
		"balance": func(args []string) int { return runTradeBalance(c, args, stdout, stderr) },
	}, tradeUsage(), args, stderr)
}

func runTradeQuote(c *client, name, buyMethod, sellMethod string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	side := fs.String("side", "buy", "buy or sell")
	hash := fs.String("hash", "", "Content hash")
	amount := fs.Uint64("amount", 0, "Number of access units")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := requireFlag("hash", *hash); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	method := buyMethod
	switch strings.ToLower(strings.TrimSpace(*side)) {
	case "buy":
	case "sell":
		method = sellMethod
	default:
		fmt.Fprintf(stderr, "--side must be buy or sell, got %q\n", *side)
		return 1
	}
	return invoke(c, method, map[string]interface{}{"hash": *hash, "amount": *amount}, stdout, stderr)
}

func runTradeBuy(c *client, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("trade buy", flag.ContinueOnError)
	fs.SetOutput(stderr)
	caller := fs.String("caller", "", "Buyer identity")
	hash := fs.String("hash", "", "Content hash")
	amount := fs.Uint64("amount", 0, "Number of access units")
	payment := fs.String("payment", "", "Attached payment in wei")
	height := fs.Uint64("height", 0, "Block height of the request")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	for name, value := range map[string]string{"caller": *caller, "hash": *hash, "payment": *payment} {
		if err := requireFlag(name, value); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}
	return invoke(c, "jf_buyContentAccess", map[string]interface{}{
		"caller":  *caller,
		"hash":    *hash,
		"amount":  *amount,
		"payment": *payment,
		"height":  *height,
	}, stdout, stderr)
}

func runTradeSell(c *client, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("trade sell", flag.ContinueOnError)
	fs.SetOutput(stderr)
	caller := fs.String("caller", "", "Seller identity")
	hash := fs.String("hash", "", "Content hash")
	amount := fs.Uint64("amount", 0, "Number of access units")
	height := fs.Uint64("height", 0, "Block height of the request")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	for name, value := range map[string]string{"caller": *caller, "hash": *hash} {
		if err := requireFlag(name, value); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}
	return invoke(c, "jf_sellContentAccess", map[string]interface{}{
		"caller": *caller,
		"hash":   *hash,
		"amount": *amount,
		"height": *height,
	}, stdout, stderr)
}

func runTradeBalance(c *client, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("trade balance", flag.ContinueOnError)
	fs.SetOutput(stderr)
	unit := fs.Uint64("unit", 0, "Access unit id")
	holder := fs.String("holder", "", "Holder identity")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := requireFlag("holder", *holder); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return invoke(c, "jf_balanceOf", map[string]interface{}{"accessUnitId": *unit, "holder": *holder}, stdout, stderr)
}
