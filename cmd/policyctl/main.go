// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// policyctl replays an ad playback scenario against the policy engine.
//
// Usage:
//
//	policyctl -scenario session.yaml
//	policyctl -config adpolicy.yaml -scenario session.yaml -out report.json
//	policyctl -config adpolicy.yaml -scenario session.yaml -watch
//
// Exit codes:
//   - 0: Every expectation held
//   - 1: Expectation mismatch, configuration or scenario error
//   - 2: Usage error (missing required flag)
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/renameio/v2"

	"github.com/ManuGH/adpolicy/internal/config"
	xglog "github.com/ManuGH/adpolicy/internal/log"
	"github.com/ManuGH/adpolicy/internal/policy"
	"github.com/ManuGH/adpolicy/internal/scenario"
	"github.com/ManuGH/adpolicy/internal/telemetry"
	"github.com/ManuGH/adpolicy/internal/version"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	configPath   string
	scenarioPath string
	outPath      string
	watch        bool
	showVersion  bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("policyctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", os.Getenv(config.EnvConfigPath), "path to YAML configuration file")
	fs.StringVar(&opts.scenarioPath, "scenario", "", "path to YAML scenario file")
	fs.StringVar(&opts.outPath, "out", "", "write the JSON report to this file")
	fs.BoolVar(&opts.watch, "watch", false, "rerun the scenario whenever the config file changes")
	fs.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.showVersion {
		return opts, nil
	}
	if opts.scenarioPath == "" {
		return opts, errors.New("-scenario is required")
	}
	if opts.watch && opts.configPath == "" {
		return opts, errors.New("-watch needs -config")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "Error: %v\n\n", err)
			fmt.Fprintln(stderr, "Usage:")
			fmt.Fprintln(stderr, "  policyctl [-config adpolicy.yaml] -scenario session.yaml [-out report.json] [-watch]")
		}
		return exitUsage
	}
	if opts.showVersion {
		fmt.Fprintln(stdout, version.String())
		return exitOK
	}

	loader := config.NewLoader(opts.configPath)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", displayPath(opts.configPath), err)
		return exitFail
	}

	xglog.Configure(xglog.Config{Level: cfg.Log.Level, Output: stderr, Service: "policyctl"})
	logger := xglog.WithComponent("cli")

	provider, err := telemetry.NewProvider(ctx, cfg.TracingConfig(version.Version))
	if err != nil {
		fmt.Fprintf(stderr, "Telemetry error:\n  %v\n", err)
		return exitFail
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "telemetry.shutdown_failed").Msg("tracer shutdown failed")
		}
	}()

	sc, err := scenario.Load(opts.scenarioPath)
	if err != nil {
		fmt.Fprintf(stderr, "Scenario error:\n  %v\n", err)
		return exitFail
	}

	code := replay(ctx, cfg, sc, opts, stdout, stderr)
	if !opts.watch {
		return code
	}

	holder := config.NewHolder(cfg, loader)
	reloads := make(chan config.Config, 1)
	holder.RegisterListener(reloads)
	if err := holder.StartWatcher(ctx); err != nil {
		fmt.Fprintf(stderr, "Watch error:\n  %v\n", err)
		return exitFail
	}
	defer holder.Stop()

	for {
		select {
		case <-ctx.Done():
			return code
		case next := <-reloads:
			logger.Info().
				Str(xglog.FieldEvent, "cli.config_reloaded").
				Str(xglog.FieldPath, opts.configPath).
				Msg("configuration changed, replaying scenario")
			code = replay(ctx, next, sc, opts, stdout, stderr)
		}
	}
}

// replay runs the scenario against a fresh engine built from cfg.
func replay(ctx context.Context, cfg config.Config, sc scenario.Scenario, opts options, stdout, stderr io.Writer) int {
	e := policy.New(cfg.EngineOptions()...)
	report, err := scenario.Run(ctx, e, sc)
	if err != nil {
		fmt.Fprintf(stderr, "Run error:\n  %v\n", err)
		return exitFail
	}

	if opts.outPath != "" {
		if err := writeReport(opts.outPath, report); err != nil {
			fmt.Fprintf(stderr, "Report error:\n  %v\n", err)
			return exitFail
		}
	}

	printSummary(stdout, report)
	if !report.OK() {
		return exitFail
	}
	return exitOK
}

func printSummary(w io.Writer, r scenario.Report) {
	if r.OK() {
		fmt.Fprintf(w, "✓ %s: %d steps passed\n", displayName(r.Name), len(r.Steps))
		return
	}
	fmt.Fprintf(w, "✗ %s: %d of %d steps failed\n", displayName(r.Name), r.Mismatches, len(r.Steps))
	for _, st := range r.Failed() {
		fmt.Fprintf(w, "  step %d %s at %gs: got %s, want %s\n", st.Index, st.Action, st.At, st.Got, st.Expected)
	}
}

// writeReport writes the JSON report with full durability guarantees using renameio
func writeReport(path string, r scenario.Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending report file: %w", err)
	}
	defer func() {
		_ = pendingFile.Cleanup()
	}()

	if _, err := pendingFile.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace report file: %w", err)
	}
	return nil
}

func displayPath(p string) string {
	if p == "" {
		return "environment"
	}
	return p
}

func displayName(name string) string {
	if name == "" {
		return "scenario"
	}
	return name
}
