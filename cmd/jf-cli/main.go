package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	rpcURLEnv   = "JF_RPC_URL"
	rpcTokenEnv = "JF_RPC_TOKEN"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// client speaks JSON-RPC 2.0 to a justfriendsd node.
type client struct {
	endpoint string
	token    string
	http     *http.Client
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *rpcError) Error() string {
	if len(e.Data) > 0 && string(e.Data) != "null" {
		return fmt.Sprintf("%s (code %d): %s", e.Message, e.Code, e.Data)
	}
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

func newClient() *client {
	endpoint := strings.TrimSpace(os.Getenv(rpcURLEnv))
	if endpoint == "" {
		endpoint = "http://localhost:8545"
	}
	return &client{
		endpoint: endpoint,
		token:    strings.TrimSpace(os.Getenv(rpcTokenEnv)),
		http:     &http.Client{Timeout: 30 * time.Second},
	}
}

// call invokes method with a single parameter object and returns the raw
// result.
func (c *client) call(method string, params interface{}) (json.RawMessage, error) {
	if params == nil {
		params = map[string]interface{}{}
	}
	payload, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  []interface{}{params},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	var out struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response (HTTP %d): %w", resp.StatusCode, err)
	}
	if out.Error != nil {
		return nil, out.Error
	}
	return out.Result, nil
}

// applyGlobalFlags strips --rpc and --token from args.
func applyGlobalFlags(c *client, args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--rpc" || arg == "--token":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for %s", arg)
			}
			if arg == "--rpc" {
				c.endpoint = args[i+1]
			} else {
				c.token = args[i+1]
			}
			i++
		case strings.HasPrefix(arg, "--rpc="):
			c.endpoint = strings.TrimPrefix(arg, "--rpc=")
		case strings.HasPrefix(arg, "--token="):
			c.token = strings.TrimPrefix(arg, "--token=")
		default:
			out = append(out, arg)
		}
	}
	return out, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	c := newClient()
	args, err := applyGlobalFlags(c, args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if len(args) < 1 {
		fmt.Fprint(stderr, usage())
		return 1
	}
	switch args[0] {
	case "content":
		return runContentCommand(c, args[1:], stdout, stderr)
	case "trade":
		return runTradeCommand(c, args[1:], stdout, stderr)
	case "vote":
		return runVoteCommand(c, args[1:], stdout, stderr)
	case "loyalty":
		return runLoyaltyCommand(c, args[1:], stdout, stderr)
	case "account":
		return runAccountCommand(c, args[1:], stdout, stderr)
	case "events":
		return runEventsCommand(c, args[1:], stdout, stderr)
	case "token":
		return runTokenCommand(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		fmt.Fprint(stderr, usage())
		return 1
	}
}

func usage() string {
	buf := &bytes.Buffer{}
	fmt.Fprintln(buf, "Usage: jf-cli [--rpc URL] [--token JWT] <command> <subcommand> [flags]")
	fmt.Fprintln(buf, "Commands:")
	fmt.Fprintln(buf, "  content   post, get, list and hash content")
	fmt.Fprintln(buf, "  trade     price, quote, buy and sell access units")
	fmt.Fprintln(buf, "  vote      cast or read reactions")
	fmt.Fprintln(buf, "  loyalty   read loyalty records, leaders and epoch ledgers")
	fmt.Fprintln(buf, "  account   read wallet balances and fee totals")
	fmt.Fprintln(buf, "  events    page through indexed market events")
	fmt.Fprintln(buf, "  token     mint a caller token for a node with auth enabled")
	fmt.Fprintf(buf, "Environment: %s sets the endpoint, %s the bearer token.\n", rpcURLEnv, rpcTokenEnv)
	return buf.String()
}

// subcommand dispatches args[0] to the matching handler.
func subcommand(name string, handlers map[string]func([]string) int, help string, args []string, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, help)
		return 1
	}
	handler, ok := handlers[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "Unknown %s subcommand: %s\n", name, args[0])
		fmt.Fprint(stderr, help)
		return 1
	}
	return handler(args[1:])
}

// invoke calls method and pretty-prints the result.
func invoke(c *client, method string, params interface{}, stdout, stderr io.Writer) int {
	result, err := c.call(method, params)
	if err != nil {
		fmt.Fprintf(stderr, "RPC error: %v\n", err)
		return 1
	}
	printJSONResult(stdout, result)
	return 0
}

func printJSONResult(w io.Writer, result json.RawMessage) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, result, "", "  "); err != nil {
		fmt.Fprintln(w, string(result))
		return
	}
	fmt.Fprintln(w, pretty.String())
}

func requireFlag(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New("--" + name + " is required")
	}
	return nil
}
