package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
)

func contentUsage() string {
	buf := &bytes.Buffer{}
	fmt.Fprintln(buf, "Usage: jf-cli content <subcommand>")
	fmt.Fprintln(buf, "Subcommands:")
	fmt.Fprintln(buf, "  post    --caller ID (--hash H | --data TEXT) --base-price N [--paid] --height N")
	fmt.Fprintln(buf, "  get     --hash H")
	fmt.Fprintln(buf, "  list    --creator ID")
	fmt.Fprintln(buf, "  hash    --data TEXT")
	return buf.String()
}

func runContentCommand(c *client, args []string, stdout, stderr io.Writer) int {
	return subcommand("content", map[string]func([]string) int{
		"post": func(args []string) int { return runContentPost(c, args, stdout, stderr) },
		"get": func(args []string) int {
			return runHashQuery(c, "content get", "jf_getContent", args, stdout, stderr)
		},
		"list": func(args []string) int { return runContentList(c, args, stdout, stderr) },
		"hash": func(args []string) int { return runContentHash(c, args, stdout, stderr) },
	}, contentUsage(), args, stderr)
}

func runContentPost(c *client, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("content post", flag.ContinueOnError)
	fs.SetOutput(stderr)
	caller := fs.String("caller", "", "Creator identity")
	hash := fs.String("hash", "", "Content hash (0x-prefixed, 32 bytes)")
	data := fs.String("data", "", "Content body to hash when --hash is omitted")
	basePrice := fs.String("base-price", "", "Base price in wei")
	paid := fs.Bool("paid", false, "Gate the content behind access units")
	height := fs.Uint64("height", 0, "Block height of the request")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := requireFlag("caller", *caller); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if *hash == "" && *data == "" {
		fmt.Fprintln(stderr, "one of --hash or --data is required")
		return 1
	}
	return invoke(c, "jf_post", map[string]interface{}{
		"caller":    *caller,
		"hash":      *hash,
		"data":      *data,
		"basePrice": *basePrice,
		"isPaid":    *paid,
		"height":    *height,
	}, stdout, stderr)
}

func runContentList(c *client, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("content list", flag.ContinueOnError)
	fs.SetOutput(stderr)
	author := fs.String("creator", "", "Creator identity")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := requireFlag("creator", *author); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return invoke(c, "jf_listContent", map[string]interface{}{"creator": *author}, stdout, stderr)
}

func runContentHash(c *client, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("content hash", flag.ContinueOnError)
	fs.SetOutput(stderr)
	data := fs.String("data", "", "Content body")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	return invoke(c, "jf_contentHash", map[string]interface{}{"data": *data}, stdout, stderr)
}

// runHashQuery serves read calls keyed by a content hash alone.
func runHashQuery(c *client, name, method string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	hash := fs.String("hash", "", "Content hash")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if err := requireFlag("hash", *hash); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return invoke(c, method, map[string]interface{}{"hash": *hash}, stdout, stderr)
}
