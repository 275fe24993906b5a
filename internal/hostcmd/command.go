// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package hostcmd

import (
	"strings"

	"github.com/kballard/go-shellquote"
)

// Command is a single program invocation against a Target. It is plain
// data: it can be rendered as a local argv, a quoted shell fragment for
// embedding in a pipeline, or a human-readable display string.
type Command struct {
	Target  Target
	Elevate bool // prefix "sudo"
	Program string
	Args    []string
}

// New builds a local Command.
func New(program string, args ...string) Command {
	return Command{Target: Local, Program: program, Args: args}
}

// WithTarget returns a copy of c bound to target.
func (c Command) WithTarget(target Target) Command {
	c.Target = target
	return c
}

// WithElevate returns a copy of c with Elevate set.
func (c Command) WithElevate(elevate bool) Command {
	c.Elevate = elevate
	return c
}

// localArgv returns the program+args argv with sudo prefixed if Elevate,
// unescaped (suitable for exec.Command, which does its own argv passing).
func (c Command) localArgv() []string {
	argv := make([]string, 0, len(c.Args)+2)
	if c.Elevate {
		argv = append(argv, "sudo")
	}
	argv = append(argv, c.Program)
	argv = append(argv, c.Args...)
	return argv
}

// Argv renders c as a local exec.Command-style argv. For a remote
// Target, the first elements are "ssh [opts] host", followed by the
// remote program and its arguments already shell-escaped into a single
// trailing argument (ssh itself invokes them through the remote shell).
func (c Command) Argv() []string {
	if c.Target.IsLocal() {
		return c.localArgv()
	}
	sshArgs := c.Target.Remote.sshBaseArgs(false)
	return append(sshArgs, c.ShellFragment())
}

// ShellFragment renders c's program+args (with sudo if Elevate) as one
// shell-escaped fragment safe to embed in a larger `sh -c` or `ssh host
// '...'` command line.
func (c Command) ShellFragment() string {
	return shellquote.Join(c.localArgv()...)
}

// Display renders c the way an operator would read it in a log line:
// unescaped where unambiguous, quoted only where an argument contains
// shell metacharacters.
func (c Command) Display() string {
	var b strings.Builder
	if !c.Target.IsLocal() {
		b.WriteString(strings.Join(c.Target.Remote.sshBaseArgs(false), " "))
		b.WriteString(" ")
	}
	parts := c.localArgv()
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = EscapeArg(p)
	}
	b.WriteString(strings.Join(escaped, " "))
	return b.String()
}

// shellMeta is the set of characters whose presence in an
// argument requires quoting for a faithful display/round-trip through sh.
const shellMeta = "# '\"\t\n|&;<>()$*?[]^!~%{}"

// EscapeArg quotes arg with single quotes (escaping embedded single
// quotes as '\'') iff it contains whitespace or one of the
// metacharacters, or is empty; otherwise it is returned unchanged.
func EscapeArg(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, shellMeta) {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
