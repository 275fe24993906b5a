// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline is the pipeline composer: given a send command, a
// receive command, and the optional tools a run degrades in or out, it
// assembles 1-3 per-hop command chains and executes them, piping one
// hop's stdout into the next hop's stdin.
package pipeline

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/chithi/chithi/internal/errs"
	"github.com/chithi/chithi/internal/hostcmd"
	"github.com/chithi/chithi/internal/procrun"
)

// guardTimeout bounds how long a Guard waits after SIGTERM before
// escalating to SIGKILL when a hop is torn down early.
const guardTimeout = 5 * time.Second

// Stage is a single command within one hop's chain.
type Stage = hostcmd.Command

// Pipeline is an ordered, non-empty chain of Stages all targeting the
// same hop, plus whether the remote SSH invocation (if any) needs a TTY
// allocated (required when `pv` writes its progress bar through SSH).
type Pipeline struct {
	Target      hostcmd.Target
	Stages      []Stage
	AllocateTTY bool
}

// NewPipeline builds a Pipeline from stages as given; it does no
// filtering of its own. With zero stages it returns nil, which the
// caller must skip (mirrors Pipeline::from(...).expect("contains some")
// for the mandatory source/target hop, and the Option<Pipeline> return for
// the optional local hop).
func NewPipeline(target hostcmd.Target, stages ...Stage) *Pipeline {
	if len(stages) == 0 {
		return nil
	}
	return &Pipeline{Target: target, Stages: stages}
}

// Render produces the argv to execute for this pipeline:
// a single local stage runs directly; multiple local stages are joined
// with `sh -c -- '... | ...'`; any remote pipeline (regardless of stage
// count) is sent through one `ssh ... 'stage | stage | ...'` invocation.
// Each stage's arguments are escaped once, for the remote shell; the
// joined string is passed unchanged as ssh's trailing argv element.
func (p *Pipeline) Render() []string {
	fragments := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		fragments[i] = s.ShellFragment()
	}
	joined := strings.Join(fragments, " | ")

	if p.Target.IsLocal() {
		if len(p.Stages) == 1 {
			return p.Stages[0].Argv()
		}
		return []string{"sh", "-c", "--", joined}
	}

	sshArgs := sshBaseArgsFor(p.Target, p.AllocateTTY)
	return append(sshArgs, joined)
}

// sshBaseArgsFor renders the leading ssh argv for a remote pipeline; it
// reuses hostcmd.Command's own remote rendering by building a throwaway
// Command whose single "stage" is the shell's own placeholder, then
// dropping the trailing fragment the caller supplies separately. This
// keeps ssh's flag handling in one place (hostcmd) instead of
// duplicating it here.
func sshBaseArgsFor(target hostcmd.Target, allocateTTY bool) []string {
	probe := hostcmd.New("true").WithTarget(target)
	full := probe.Argv()
	// full is ["ssh", ...opts..., host, "true"]; drop the trailing
	// fragment, it gets replaced by the real joined pipeline.
	base := full[:len(full)-1]
	if allocateTTY {
		base = insertTTYFlag(base)
	}
	return base
}

func insertTTYFlag(args []string) []string {
	out := make([]string, 0, len(args)+1)
	out = append(out, args[0], "-t")
	out = append(out, args[1:]...)
	return out
}

// Display renders p the way a log line would show it, unescaped.
func (p *Pipeline) Display() string {
	parts := make([]string, len(p.Stages))
	for i, s := range p.Stages {
		parts[i] = s.Display()
	}
	return strings.Join(parts, " | ")
}

// Plan is the 1-3 pipelines produced for one replication transfer.
type Plan struct {
	Topology Topology
	Source   *Pipeline // always present
	Local    *Pipeline // present only for TopologyRemoteIndirect, and only if any stage survived
	Target   *Pipeline // present for every topology except TopologyLocal
}

// Run executes p's pipelines, piping Source's stdout into Local's (or
// Target's, if there is no local hop) stdin, and so on. stderr of
// every hop is tee-captured: copied to our own stderr and also kept, so
// a failing hop's error carries it (the planner's stale-token check reads
// it); stdin of the first hop is inherited (ssh dislikes a non-terminal
// stdin). Returns the first hop's failure, if any.
func Run(ctx context.Context, p *Plan) error {
	hops := []*Pipeline{p.Source}
	if p.Local != nil {
		hops = append(hops, p.Local)
	}
	if p.Target != nil {
		hops = append(hops, p.Target)
	}

	handles := make([]*procrun.Handle, 0, len(hops))
	guards := make([]*procrun.Guard, 0, len(hops))
	defer func() {
		for i := len(guards) - 1; i >= 0; i-- {
			guards[i].Release()
		}
	}()

	// prevReader is the read end of the pipe connecting the previous
	// hop's stdout to this hop's stdin; the parent hands both ends'
	// *os.File to exec.Cmd (which dup2's the fd into the child directly,
	// without itself taking ownership), so the parent must close its own
	// copy right after each Start or the downstream reader never sees EOF.
	var prevReader *os.File
	for i, hop := range hops {
		argv := hop.Render()

		spec := procrun.Spec{
			Argv:        argv,
			AllocateTTY: hop.AllocateTTY,
			Stdin:       procrun.StdioClosed,
			Stderr:      procrun.StdioCapture,
		}
		if i == 0 {
			spec.Stdin = procrun.StdioInherit
		} else {
			spec.StdinReader = prevReader
		}

		last := i == len(hops)-1
		var nextReader, myWriter *os.File
		if last {
			spec.Stdout = procrun.StdioInherit
		} else {
			r, w, err := os.Pipe()
			if err != nil {
				return errs.Wrap(err, errs.CommandExecution)
			}
			spec.StdoutWriter = w
			nextReader, myWriter = r, w
		}

		h, err := procrun.Start(ctx, spec)
		if prevReader != nil {
			prevReader.Close()
		}
		if myWriter != nil {
			myWriter.Close()
		}
		if err != nil {
			if nextReader != nil {
				nextReader.Close()
			}
			return errs.Wrap(err, errs.CommandExecution)
		}
		handles = append(handles, h)
		guards = append(guards, procrun.NewGuard(h, guardTimeout))
		prevReader = nextReader
	}

	var firstErr error
	for _, h := range handles {
		if err := h.Wait(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// quoteStage renders argv as one shell-escaped fragment; used by tests
// that need to assert on a single stage's quoting without constructing
// a full hostcmd.Command.
func quoteStage(argv []string) string {
	return shellquote.Join(argv...)
}
