// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

// Command braid is the Braid command line: run one-shot agents, execute
// workflow files, validate configuration, and inspect MCP tooling.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/braidhq/braid/pkg/config"
	"github.com/braidhq/braid/pkg/discovery"
	"github.com/braidhq/braid/pkg/runtime"
	"github.com/braidhq/braid/pkg/telemetry"
	"github.com/braidhq/braid/pkg/tool"
	"github.com/braidhq/braid/pkg/workflow"
)

const version = "dev"

type globalFlags struct {
	ConfigPath string
	Timeout    time.Duration
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

	switch args[0] {
	case "run":
		runAgent(ctx, global, args[1:])
	case "workflow":
		runWorkflow(ctx, global, args[1:])
	case "config":
		runConfig(global, args[1:])
	case "mcp":
		runMCP(ctx, global, args[1:])
	case "version":
		fmt.Printf("braid %s\n", version)
	case "help":
		printUsage()
	default:
		fatal(fmt.Errorf("unknown command %q", args[0]))
	}
}

func parseGlobalFlags(args []string) (globalFlags, []string, error) {
	flags := globalFlags{
		ConfigPath: os.Getenv("BRAID_CONFIG"),
		Timeout:    2 * time.Minute,
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return flags, args[i+1:], nil
		}
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
		case arg == "--timeout":
			if i+1 >= len(args) {
				return flags, nil, fmt.Errorf("missing value for --timeout")
			}
			value, err := time.ParseDuration(args[i+1])
			if err != nil {
				return flags, nil, fmt.Errorf("invalid --timeout: %w", err)
			}
			flags.Timeout = value
			i++
		case strings.HasPrefix(arg, "--timeout="):
			value, err := time.ParseDuration(strings.TrimPrefix(arg, "--timeout="))
			if err != nil {
				return flags, nil, fmt.Errorf("invalid --timeout: %w", err)
			}
			flags.Timeout = value
		default:
			return flags, nil, fmt.Errorf("unknown global flag %q", arg)
		}
	}
	return flags, nil, nil
}

// runAgent answers a single prompt with a configured agent. The prompt
// comes from the arguments, or stdin when none are given.
func runAgent(ctx context.Context, flags globalFlags, args []string) {
	rt, cfg := buildRuntime(flags)
	if err := rt.Start(ctx); err != nil {
		fatal(err)
	}
	defer rt.Stop(context.Background())

	input := strings.TrimSpace(strings.Join(args, " "))
	if input == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fatal(err)
		}
		input = strings.TrimSpace(string(data))
	}
	if input == "" {
		fatal(fmt.Errorf("usage: braid run <prompt> (or pipe the prompt on stdin)"))
	}

	a, err := rt.NewAgent("assistant")
	if err != nil {
		fatal(err)
	}

	ctx, cancel := context.WithTimeout(ctx, flags.Timeout)
	defer cancel()
	output, err := rt.Run(ctx, a, input)
	if err != nil {
		fatal(err)
	}
	if flags.JSON {
		printJSON(map[string]string{"model": cfg.LLM.Model, "output": output})
		return
	}
	fmt.Println(output)
}

// runWorkflow executes a workflow definition file. One agent per
// distinct member is created from the runtime configuration.
func runWorkflow(ctx context.Context, flags globalFlags, args []string) {
	if len(args) == 0 || args[0] != "run" {
		fatal(fmt.Errorf("usage: braid workflow run <file>"))
	}
	rt, cfg := buildRuntime(flags)

	path := cfg.Workflow.Path
	if len(args) > 1 {
		path = args[1]
	}
	if path == "" {
		fatal(fmt.Errorf("usage: braid workflow run <file>"))
	}
	wf, err := workflow.Load(path)
	if err != nil {
		fatal(err)
	}

	if err := rt.Start(ctx); err != nil {
		fatal(err)
	}
	defer rt.Stop(context.Background())

	tm := rt.NewTeam(wf.Name)
	for _, member := range workflowMembers(wf) {
		a, err := rt.NewAgent(member)
		if err != nil {
			fatal(err)
		}
		tm.AddAgent(member, a)
	}

	ctx, cancel := context.WithTimeout(ctx, flags.Timeout)
	defer cancel()
	snap, err := rt.NewEngine(tm).Run(ctx, wf)
	if err != nil {
		fatal(err)
	}

	if flags.JSON {
		printJSON(map[string]any{"state": snap.State, "history": snap.History})
		return
	}
	for _, line := range snap.History {
		fmt.Println(line)
	}
	keys := make([]string, 0, len(snap.State))
	for key := range snap.State {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Printf("%s = %v\n", key, snap.State[key])
	}
}

// runConfig validates the effective configuration and reports it.
func runConfig(flags globalFlags, args []string) {
	if len(args) == 0 || args[0] != "validate" {
		fatal(fmt.Errorf("usage: braid config validate"))
	}
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		fatal(err)
	}
	if flags.JSON {
		printJSON(cfg)
		return
	}
	fmt.Printf("llm: %s %s\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Printf("memory: %s\n", cfg.Memory.Backend)
	fmt.Printf("telemetry: %s\n", cfg.Telemetry.Exporter)
	fmt.Printf("mcp servers: %d\n", len(cfg.MCP.Servers))
	fmt.Println("config ok")
}

// runMCP connects the configured MCP servers and lists their tools.
func runMCP(ctx context.Context, flags globalFlags, args []string) {
	if len(args) == 0 || args[0] != "tools" {
		fatal(fmt.Errorf("usage: braid mcp tools"))
	}
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		fatal(err)
	}
	logger := telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	resolver, err := discovery.FromConfig(cfg)
	if err != nil {
		fatal(err)
	}

	ctx, cancel := context.WithTimeout(ctx, flags.Timeout)
	defer cancel()
	registry := tool.NewRegistry()
	conns, err := discovery.Connect(ctx, resolver, registry, logger)
	if err != nil {
		fatal(err)
	}
	defer discovery.CloseAll(conns)

	descriptions := registry.Describe()
	if flags.JSON {
		printJSON(descriptions)
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TOOL\tDESCRIPTION")
	for _, desc := range descriptions {
		fmt.Fprintf(w, "%s\t%s\n", desc.Name, desc.Description)
	}
	w.Flush()
}

func buildRuntime(flags globalFlags) (*runtime.Local, *config.Config) {
	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		fatal(err)
	}
	logger := telemetry.ConfigureSlog(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	rt, err := runtime.New(cfg, runtime.WithLogger(logger))
	if err != nil {
		fatal(err)
	}
	return rt, cfg
}

// workflowMembers collects the distinct agent members a workflow drives,
// in first-appearance order.
func workflowMembers(wf *workflow.Workflow) []string {
	var members []string
	seen := map[string]struct{}{}
	var walk func(node workflow.Node)
	walk = func(node workflow.Node) {
		switch n := node.(type) {
		case workflow.AgentStep:
			if _, ok := seen[n.Member]; !ok {
				seen[n.Member] = struct{}{}
				members = append(members, n.Member)
			}
		case workflow.Sequence:
			for _, sub := range n.Nodes {
				walk(sub)
			}
		case workflow.Parallel:
			for _, sub := range n.Nodes {
				walk(sub)
			}
		case workflow.Conditional:
			if n.Then != nil {
				walk(n.Then)
			}
			if n.Else != nil {
				walk(n.Else)
			}
		case workflow.Loop:
			if n.Body != nil {
				walk(n.Body)
			}
		}
	}
	for _, node := range wf.Nodes {
		walk(node)
	}
	return members
}

func printJSON(value any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		fatal(err)
	}
}

func printUsage() {
	fmt.Print(`braid - agent orchestration toolkit

Usage:
  braid [global flags] <command> [args]

Commands:
  run <prompt>         answer one prompt with the configured agent
  workflow run <file>  execute a workflow definition
  config validate      load and report the effective configuration
  mcp tools            list tools exposed by configured MCP servers
  version              print the CLI version
  help                 print this help

Global flags:
  --config <path>      configuration file (default $BRAID_CONFIG)
  --timeout <dur>      command timeout (default 2m)
  --json               machine-readable output
`)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "braid: %v\n", err)
	os.Exit(1)
}
