package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
)

func voteUsage() string {
	buf := &bytes.Buffer{}
	fmt.Fprintln(buf, "Usage: jf-cli vote <subcommand>")
	fmt.Fprintln(buf, "Subcommands:")
	fmt.Fprintln(buf, "  cast  --caller ID --hash H --reaction upvote|downvote --height N")
	fmt.Fprintln(buf, "  get   --voter ID --hash H")
	return buf.String()
}

func runVoteCommand(c *client, args []string, stdout, stderr io.Writer) int {
	return subcommand("vote", map[string]func([]string) int{
		"cast": func(args []string) int { return runVoteCast(c, args, stdout, stderr) },
		"get":  func(args []string) int { return runVoteGet(c, args, stdout, stderr) },
	}, voteUsage(), args, stderr)
}

func runVoteCast(c *client, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("vote cast", flag.ContinueOnError)
	fs.SetOutput(stderr)
	caller := fs.String("caller", "", "Voter identity")
	hash := fs.String("hash", "", "Content hash")
	reaction := fs.String("reaction", "", "upvote or downvote")
	height := fs.Uint64("height", 0, "Block height of the request")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	for name, value := range map[string]string{"caller": *caller, "hash": *hash, "reaction": *reaction} {
		if err := requireFlag(name, value); err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
	}
	return invoke(c, "jf_vote", map[string]interface{}{
		"caller":   *caller,
		"hash":     *hash,
		"reaction": *reaction,
		"height":   *height,
	}, stdout, stderr)
}

func runVoteGet(c *client, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("vote get", flag.ContinueOnError)
	fs.SetOutput(stderr)
	voter := fs.String("voter", "", "Voter identity")
	hash := fs.String("hash", "", "Content hash")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	return invoke(c, "jf_getReaction", map[string]interface{}{"voter": *voter, "hash": *hash}, stdout, stderr)
}

func loyaltyUsage() string {
	buf := &bytes.Buffer{}
	fmt.Fprintln(buf, "Usage: jf-cli loyalty <subcommand>")
	fmt.Fprintln(buf, "Subcommands:")
	fmt.Fprintln(buf, "  record   --fan ID --creator ID --epoch N")
	fmt.Fprintln(buf, "  leaders  --creator ID --epoch N")
	fmt.Fprintln(buf, "  ledger   --creator ID --epoch N")
	fmt.Fprintln(buf, "  epoch    --creator ID")
	return buf.String()
}

func runLoyaltyCommand(c *client, args []string, stdout, stderr io.Writer) int {
	epochQuery := func(name, method string) func([]string) int {
		return func(args []string) int {
			fs := flag.NewFlagSet(name, flag.ContinueOnError)
			fs.SetOutput(stderr)
			author := fs.String("creator", "", "Creator identity")
			epoch := fs.Uint64("epoch", 0, "Epoch number")
			if err := fs.Parse(args); err != nil {
				return 1
			}
			return invoke(c, method, map[string]interface{}{"creator": *author, "epoch": *epoch}, stdout, stderr)
		}
	}
	return subcommand("loyalty", map[string]func([]string) int{
		"record":  func(args []string) int { return runLoyaltyRecord(c, args, stdout, stderr) },
		"leaders": epochQuery("loyalty leaders", "jf_getLeaders"),
		"ledger":  epochQuery("loyalty ledger", "jf_getEpochLedger"),
		"epoch": func(args []string) int {
			fs := flag.NewFlagSet("loyalty epoch", flag.ContinueOnError)
			fs.SetOutput(stderr)
			author := fs.String("creator", "", "Creator identity")
			if err := fs.Parse(args); err != nil {
				return 1
			}
			return invoke(c, "jf_currentEpoch", map[string]interface{}{"creator": *author}, stdout, stderr)
		},
	}, loyaltyUsage(), args, stderr)
}

func runLoyaltyRecord(c *client, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("loyalty record", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fan := fs.String("fan", "", "Fan identity")
	author := fs.String("creator", "", "Creator identity")
	epoch := fs.Uint64("epoch", 0, "Epoch number")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	return invoke(c, "jf_getLoyaltyRecord", map[string]interface{}{"fan": *fan, "creator": *author, "epoch": *epoch}, stdout, stderr)
}
