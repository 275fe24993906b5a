// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package validation guards every string that chithi hands to a shell or
// to zfs(8) itself: dataset names, the sync-snapshot identifier, and
// user-supplied SSH options.
package validation

import (
	"regexp"
	"strings"

	"github.com/chithi/chithi/internal/errs"
)

const maxDatasetNameLen = 256

func isValidNameChar(c rune) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == ':' || c == ' '
}

// DatasetName validates a bare pool[/path] dataset name (no @ or # component).
func DatasetName(name string) error {
	if len(name) == 0 {
		return errs.New(errs.CommandInvalidInput, "dataset name is empty")
	}
	if len(name) >= maxDatasetNameLen {
		return errs.New(errs.CommandInvalidInput, "dataset name too long: "+name)
	}
	if name[0] == '/' || name[len(name)-1] == '/' {
		return errs.New(errs.CommandInvalidInput, "dataset name has leading/trailing slash: "+name)
	}
	for _, component := range strings.Split(name, "/") {
		if component == "" {
			return errs.New(errs.CommandInvalidInput, "empty path component: "+name)
		}
		if component == "." || component == ".." {
			return errs.New(errs.CommandInvalidInput, "path traversal component: "+name)
		}
		for _, c := range component {
			if !isValidNameChar(c) {
				return errs.New(errs.CommandInvalidInput, "invalid character in dataset name: "+name)
			}
		}
	}
	return nil
}

var identifierRe = regexp.MustCompile(`^[A-Za-z0-9._:-]*$`)

// Identifier validates the --identifier flag used in generated sync
// snapshot names; it may only contain [A-Za-z0-9._:-].
func Identifier(id string) error {
	if !identifierRe.MatchString(id) {
		return errs.New(errs.CommandInvalidInput, "identifier contains characters outside [A-Za-z0-9._:-]: "+id)
	}
	return nil
}

// dangerous characters that must never appear in an argument destined
// for a remote shell fragment we didn't fully escape ourselves.
const dangerousChars = "&|;<>()$`\\\"'"

// ShellSafe reports whether s contains no shell metacharacters that would
// change meaning if interpolated unescaped.
func ShellSafe(s string) bool {
	return !strings.ContainsAny(s, dangerousChars)
}

// allowedSSHOptions is the allow-list for user-supplied `-o
// Option=Value` SSH options: a narrow, known-safe set rather than
// accepting arbitrary ssh_config directives from the command line.
var allowedSSHOptions = map[string]bool{
	"AddressFamily":            true,
	"Compression":              true,
	"ConnectionAttempts":       true,
	"ConnectTimeout":           true,
	"TCPKeepAlive":             true,
	"ServerAliveInterval":      true,
	"ServerAliveCountMax":      true,
	"Ciphers":                  true,
	"MACs":                     true,
	"KexAlgorithms":            true,
	"PreferredAuthentications": true,
	"StrictHostKeyChecking":    true,
	"UserKnownHostsFile":       true,
	"BatchMode":                true,
	"ControlPersist":           true,
	"ControlMaster":            true,
	"ControlPath":              true,
}

// SSHOption validates a single "Key=Value" ssh -o option.
func SSHOption(option string) error {
	parts := strings.SplitN(option, "=", 2)
	if len(parts) != 2 {
		return errs.New(errs.CommandInvalidInput, "ssh option must be Key=Value: "+option)
	}
	key := strings.TrimSpace(parts[0])
	value := strings.TrimSpace(parts[1])
	if !allowedSSHOptions[key] {
		return errs.New(errs.CommandInvalidInput, "ssh option not allowed: "+key)
	}
	if !ShellSafe(value) {
		return errs.New(errs.CommandInvalidInput, "invalid ssh option value for "+key)
	}
	return nil
}
