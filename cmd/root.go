// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package cmd wires the replication CLI surface onto the
// catalog/match/planner/walker/pipeline packages: a single
// positional-argument replication command plus a version subcommand.
package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/stratastor/logger"

	"github.com/chithi/chithi/cmd/version"
	"github.com/chithi/chithi/internal/catalog"
	"github.com/chithi/chithi/internal/dataset"
	"github.com/chithi/chithi/internal/errs"
	"github.com/chithi/chithi/internal/hostcmd"
	"github.com/chithi/chithi/internal/pipeline"
	"github.com/chithi/chithi/internal/planner"
	"github.com/chithi/chithi/internal/toolinventory"
	"github.com/chithi/chithi/internal/validation"
	"github.com/chithi/chithi/internal/walker"
)

// syncFlags mirrors the CLI surface, one field per flag.
type syncFlags struct {
	recursive            bool
	skipParent           bool
	noCloneHandling      bool
	noRecvCheckStart     bool
	noStream             bool
	noSyncSnap           bool
	keepSyncSnap         bool
	pruneFormat          string
	noResume             bool
	noRollback           bool
	excludeDatasets      []string
	includeSnaps         []string
	excludeSnaps         []string
	identifier           string
	sshCipher            string
	sshPort              int
	sshConfig            string
	sshIdentity          string
	sshOptions           []string
	compress             string
	sourceBwlimit        string
	targetBwlimit        string
	mbufferSize          string
	pvOptions            []string
	direct               bool
	forceDelete          bool
	dryRun               bool
	noCommandChecks      bool
	noPrivilegeElevation bool
	sendOptions          string
	recvOptions          string
	skipOptionalCmds     string
	maxDelaySeconds      int
	debug                bool
	quiet                bool
	dumpSnaps            bool
}

// NewRootCmd builds the chithi root command: `chithi <source> <target>`
// replicates one dataset (or, with --recursive, a subtree) from source
// to target, plus a `version` subcommand.
func NewRootCmd() *cobra.Command {
	var f syncFlags

	rootCmd := &cobra.Command{
		Use:   "chithi <source> <target>",
		Short: "Replicate ZFS datasets between hosts via snapshots and bookmarks",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd.Context(), args[0], args[1], f)
		},
	}

	rootCmd.Flags().BoolVar(&f.recursive, "recursive", false, "recurse into child datasets")
	rootCmd.Flags().BoolVar(&f.skipParent, "skip-parent", false, "with --recursive, assume the target parent already exists")
	rootCmd.Flags().BoolVar(&f.noCloneHandling, "no-clone-handling", false, "never attempt a clone-origin incremental send")
	rootCmd.Flags().BoolVar(&f.noRecvCheckStart, "no-recv-check-start", false, "skip the target busy-check before sending")
	rootCmd.Flags().BoolVar(&f.noStream, "no-stream", false, "send only the newest snapshot instead of the full incremental chain")
	rootCmd.Flags().BoolVar(&f.noSyncSnap, "no-sync-snap", false, "do not create a sync snapshot before sending")
	rootCmd.Flags().BoolVar(&f.keepSyncSnap, "keep-sync-snap", false, "do not prune sync snapshots after a successful run")
	rootCmd.Flags().StringVar(&f.pruneFormat, "prune-format", "chithi", "prefix used to recognize this tool's own sync snapshots when pruning")
	rootCmd.Flags().BoolVar(&f.noResume, "no-resume", false, "ignore any receive_resume_token on the target")
	rootCmd.Flags().BoolVar(&f.noRollback, "no-rollback", false, "do not pass -F to zfs receive")
	rootCmd.Flags().StringSliceVar(&f.excludeDatasets, "exclude-datasets", nil, "regexes excluding child datasets from a recursive run")
	rootCmd.Flags().StringSliceVar(&f.includeSnaps, "include-snaps", nil, "regexes a snapshot/bookmark name must match to be considered")
	rootCmd.Flags().StringSliceVar(&f.excludeSnaps, "exclude-snaps", nil, "regexes excluding snapshot/bookmark names; wins over --include-snaps")
	rootCmd.Flags().StringVar(&f.identifier, "identifier", "", "tag embedded in generated sync snapshot names, [A-Za-z0-9._:-] only")
	rootCmd.Flags().StringVar(&f.sshCipher, "ssh-cipher", "", "ssh -c cipher")
	rootCmd.Flags().IntVar(&f.sshPort, "ssh-port", 0, "ssh -p port")
	rootCmd.Flags().StringVar(&f.sshConfig, "ssh-config", "", "ssh -F config file")
	rootCmd.Flags().StringVar(&f.sshIdentity, "ssh-identity", "", "ssh -i identity file")
	rootCmd.Flags().StringSliceVarP(&f.sshOptions, "ssh-option", "o", nil, "ssh -o Key=Value, from an allow-list")
	rootCmd.Flags().StringVar(&f.compress, "compress", "lzo", "compressor: gzip, pigz-fast, pigz-slow, zstd-fast, zstd-slow, zstdmt-fast, zstdmt-slow, xz, lzo, lz4, none")
	rootCmd.Flags().StringVar(&f.sourceBwlimit, "source-bwlimit", "", "mbuffer -r bandwidth limit on the source-side hop")
	rootCmd.Flags().StringVar(&f.targetBwlimit, "target-bwlimit", "", "mbuffer -R bandwidth limit on the target-side hop")
	rootCmd.Flags().StringVar(&f.mbufferSize, "mbuffer-size", "", "mbuffer -s buffer size")
	rootCmd.Flags().StringSliceVar(&f.pvOptions, "pv-options", nil, "override pv's default -p -t -e -r -b options")
	rootCmd.Flags().BoolVar(&f.direct, "direct", false, "for remote-to-remote transfers, pipe directly without a local hop")
	rootCmd.Flags().BoolVar(&f.forceDelete, "force-delete", false, "destroy the target and resend from scratch when no common snapshot is found")
	rootCmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "print what would run without executing any send/receive")
	rootCmd.Flags().BoolVar(&f.noCommandChecks, "no-command-checks", false, "assume every optional tool is present instead of probing")
	rootCmd.Flags().BoolVar(&f.noPrivilegeElevation, "no-privilege-elevation", false, "do not prefix zfs invocations with sudo")
	rootCmd.Flags().StringVar(&f.sendOptions, "send-options", "", "raw flag letters appended to zfs send, e.g. \"Lcv\"")
	rootCmd.Flags().StringVar(&f.recvOptions, "recv-options", "", "raw flag letters appended to zfs receive, e.g. \"ux\"")
	rootCmd.Flags().StringVar(&f.skipOptionalCmds, "skip-optional-commands", "", "comma-separated: pv, mbuffer, compress")
	rootCmd.Flags().IntVar(&f.maxDelaySeconds, "max-delay-seconds", 0, "sleep a random duration in [0, n) before starting")
	rootCmd.Flags().BoolVar(&f.debug, "debug", false, "verbose logging")
	rootCmd.Flags().BoolVar(&f.quiet, "quiet", false, "suppress pv progress output")
	rootCmd.Flags().BoolVar(&f.dumpSnaps, "dump-snaps", false, "log the full source/target catalog before planning")

	rootCmd.AddCommand(version.NewVersionCmd())

	return rootCmd
}

func buildLogger(f syncFlags) logger.Logger {
	level := "info"
	if f.debug {
		level = "debug"
	}
	if f.quiet {
		level = "error"
	}
	l, err := logger.NewTag(logger.Config{LogLevel: level}, "chithi")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return l
}

func runSync(ctx context.Context, sourceArg, targetArg string, f syncFlags) error {
	log := buildLogger(f)

	if err := validation.Identifier(f.identifier); err != nil {
		return err
	}

	if f.maxDelaySeconds > 0 {
		delay := time.Duration(rand.Intn(f.maxDelaySeconds)) * time.Second
		log.Info(fmt.Sprintf("waiting %s before starting", delay))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	srcRef := dataset.ParseRef(sourceArg, "", dataset.Source)
	dstRef := dataset.ParseRef(targetArg, "", dataset.Target)

	mux := hostcmd.NewMultiplexer()
	defer mux.Close()

	sourceTarget, err := resolveTarget(ctx, mux, srcRef.Host, f)
	if err != nil {
		return err
	}
	targetTarget, err := resolveTarget(ctx, mux, dstRef.Host, f)
	if err != nil {
		return err
	}

	excludeDatasets, err := compileRegexes(f.excludeDatasets)
	if err != nil {
		return errs.New(errs.CommandInvalidInput, err.Error())
	}
	filters, err := catalog.CompileFilters(f.includeSnaps, f.excludeSnaps)
	if err != nil {
		return err
	}

	inv := toolinventory.New(parseSkipOptional(f.skipOptionalCmds), f.noCommandChecks, log)
	isTerminal := isatty.IsTerminal(os.Stderr.Fd())

	hostname, herr := os.Hostname()
	if herr != nil {
		hostname = ""
	}

	cfg := planner.Config{
		SourceTarget:   sourceTarget,
		TargetTarget:   targetTarget,
		LocalTarget:    hostcmd.Local,
		Identifier:     f.identifier,
		Hostname:       hostname,
		NoSyncSnapshot: f.noSyncSnap || f.dryRun,
		KeepSyncSnap:   f.keepSyncSnap,
		PruneFormat:    f.pruneFormat,
		NoStream:        f.noStream,
		ResumeEnabled:   !f.noResume,
		RollbackEnabled: !f.noRollback,
		ForceDelete:     f.forceDelete,
		CloneHandling:   !f.noCloneHandling,
		Filters:        filters,
		SendFlags:      splitFlagLetters(f.sendOptions),
		RecvFlags:      splitFlagLetters(f.recvOptions),
		PipelineOptions: pipeline.Options{
			PVOptions:        f.pvOptions,
			Compress:         f.compress,
			MbufferSize:      f.mbufferSize,
			SourceBwlimit:    f.sourceBwlimit,
			TargetBwlimit:    f.targetBwlimit,
			SkipOptional:     parseSkipOptional(f.skipOptionalCmds),
			NoCommandChecks:  f.noCommandChecks,
			Quiet:            f.quiet,
			DirectConnection: f.direct,
		},
		Elevate:    !f.noPrivilegeElevation,
		IsTerminal: isTerminal,
		Log:        log,
	}

	if f.dryRun {
		log.Info(fmt.Sprintf("dry-run: would replicate %s -> %s (recursive=%v)", srcRef.Name, dstRef.Name, f.recursive))
		return nil
	}

	if !f.recursive {
		if f.dumpSnaps {
			dumpCatalog(ctx, log, cfg, sourceTarget, targetTarget, srcRef.Name, dstRef.Name)
		}
		p := planner.New(cfg, inv)
		outcome, err := p.Plan(ctx, srcRef.Name, dstRef.Name)
		return reportOutcome(log, srcRef.Name, dstRef.Name, outcome, err)
	}

	return runRecursive(ctx, cfg, inv, sourceTarget, targetTarget, srcRef.Name, dstRef.Name, excludeDatasets, f)
}

func runRecursive(ctx context.Context, cfg planner.Config, inv *toolinventory.Inventory, sourceTarget, targetTarget hostcmd.Target, sourceName, targetName string, excludeDatasets []*regexp.Regexp, f syncFlags) error {
	if f.skipParent {
		exists, err := walker.ParentExists(ctx, targetTarget, targetName, cfg.Elevate)
		if err != nil {
			return err
		}
		if !exists {
			return errs.New(errs.PlannerRefused, "--skip-parent set but target parent does not exist: "+targetName)
		}
	}

	nodes, busy, err := walker.Walk(ctx, sourceTarget, targetTarget, walker.Options{
		Source:        sourceName,
		Target:        targetName,
		Exclude:       excludeDatasets,
		SkipParent:    f.skipParent,
		CloneHandling: cfg.CloneHandling,
		Elevate:       cfg.Elevate,
	})
	if err != nil {
		return err
	}

	first, second := walker.Ordered(nodes)
	for _, batch := range [][]walker.Node{first, second} {
		for _, n := range batch {
			if !f.noRecvCheckStart && busy[n.TargetName] {
				return errs.New(errs.PlannerBusy, n.TargetName)
			}
			p := planner.New(cfg, inv)
			outcome, err := p.Plan(ctx, n.SourceName, n.TargetName)
			if err := reportOutcome(cfg.Log, n.SourceName, n.TargetName, outcome, err); err != nil {
				return err
			}
		}
	}
	return nil
}

// dumpCatalog logs the unfiltered source/target snapshot catalogs ahead
// of planning, for --dump-snaps.
func dumpCatalog(ctx context.Context, log logger.Logger, cfg planner.Config, sourceTarget, targetTarget hostcmd.Target, sourceName, targetName string) {
	reader := catalog.New(cfg.Elevate, log)
	if snaps, err := reader.Snapshots(ctx, sourceTarget, sourceName, catalog.Filters{}); err == nil {
		for _, s := range snaps {
			log.Debug(fmt.Sprintf("source snapshot: %s@%s guid=%s creation=%d", sourceName, s.Name, s.GUID, s.Creation.Epoch))
		}
	}
	if snaps, err := reader.Snapshots(ctx, targetTarget, targetName, catalog.Filters{}); err == nil {
		for _, s := range snaps {
			log.Debug(fmt.Sprintf("target snapshot: %s@%s guid=%s creation=%d", targetName, s.Name, s.GUID, s.Creation.Epoch))
		}
	}
}

func reportOutcome(log logger.Logger, sourceName, targetName string, outcome planner.Outcome, err error) error {
	if err != nil {
		return err
	}
	switch outcome.Status {
	case planner.StatusSkipped:
		log.Info(fmt.Sprintf("%s -> %s: skipped (%s)", sourceName, targetName, outcome.Reason))
	case planner.StatusDone:
		log.Info(fmt.Sprintf("%s -> %s: done", sourceName, targetName))
	case planner.StatusFailed:
		return errs.New(errs.PlannerRefused, "failed: "+sourceName+" -> "+targetName)
	}
	return nil
}

func resolveTarget(ctx context.Context, mux *hostcmd.Multiplexer, host string, f syncFlags) (hostcmd.Target, error) {
	if host == "" {
		return hostcmd.Local, nil
	}
	for _, opt := range f.sshOptions {
		if err := validation.SSHOption(opt); err != nil {
			return hostcmd.Target{}, err
		}
	}
	h := &hostcmd.RemoteHost{
		Host:         host,
		Cipher:       f.sshCipher,
		ConfigFile:   f.sshConfig,
		IdentityFile: f.sshIdentity,
		Port:         f.sshPort,
		ExtraOptions: f.sshOptions,
	}
	if err := mux.Ensure(ctx, h); err != nil {
		return hostcmd.Target{}, err
	}
	return hostcmd.NewRemote(h), nil
}

func compileRegexes(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

func parseSkipOptional(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitFlagLetters(raw string) []string {
	if raw == "" {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		out = append(out, string(c))
	}
	return out
}
