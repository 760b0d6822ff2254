// Copyright 2026 © The Skillgate Authors
// SPDX-License-Identifier: Apache-2.0

// Command skillgate runs the skill-gated LLM gateway and its admin helpers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/skillgate/skillgate/pkg/config"
)

const version = "0.1.0"

type globalFlags struct {
	ConfigPath string
	JSON       bool
	Help       bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	global, args, err := parseGlobalFlags(os.Args[1:])
	if err != nil {
		fatal(err)
	}
	if global.Help || len(args) == 0 {
		printUsage()
		return
	}

	cfg, err := config.Load(global.ConfigPath)
	if err != nil {
		fatal(err)
	}

	switch args[0] {
	case "serve":
		if err := runServe(ctx, global, cfg); err != nil {
			fatal(err)
		}
	case "skills":
		if err := runSkills(global, cfg, args[1:]); err != nil {
			fatal(err)
		}
	case "plan":
		if err := runPlan(ctx, global, cfg, args[1:]); err != nil {
			fatal(err)
		}
	case "mcp":
		if err := runMCPServe(cfg); err != nil {
			fatal(err)
		}
	case "version":
		fmt.Printf("skillgate %s\n", version)
	case "help":
		printUsage()
	default:
		fatal(fmt.Errorf("unknown command %q", args[0]))
	}
}

func parseGlobalFlags(args []string) (globalFlags, []string, error) {
	var flags globalFlags
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			return flags, args[i:], nil
		}
		switch {
		case arg == "-h" || arg == "--help":
			flags.Help = true
			return flags, nil, nil
		case arg == "--json":
			flags.JSON = true
		case arg == "--config":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for --config")
			}
			flags.ConfigPath = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			flags.ConfigPath = strings.TrimPrefix(arg, "--config=")
		default:
			return flags, nil, fmt.Errorf("unknown global flag %q", arg)
		}
	}
	return flags, nil, nil
}

func printUsage() {
	fmt.Print(`skillgate - skill-gated LLM gateway

Usage:
  skillgate [global flags] <command>

Commands:
  serve             Run the HTTP gateway
  skills list       List loaded skills
  skills validate   Load the skill directory and report rejections
  plan <goal>       Build an execution plan for a goal without running it
  mcp               Serve the skill registry as an MCP server on stdio
  version           Print the version
  help              Show this help

Global flags:
  --config <path>   Configuration file (YAML)
  --json            Emit machine-readable output
`)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "skillgate: %v\n", err)
	os.Exit(1)
}
