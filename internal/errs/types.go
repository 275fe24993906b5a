// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package errs defines chithi's typed error domain: every error that
// crosses a package boundary is a *ChithiError carrying a stable
// (Domain, Code) pair plus metadata (failing argv, captured stderr) so a
// caller can switch on error kind instead of matching strings.
package errs

// Domain identifies the subsystem an error originated in.
type Domain string

const (
	DomainCommand  Domain = "CMD"
	DomainCatalog  Domain = "CATALOG"
	DomainMatch    Domain = "MATCH"
	DomainPlanner  Domain = "PLANNER"
	DomainWalker   Domain = "WALKER"
	DomainPipeline Domain = "PIPELINE"
	DomainTool     Domain = "TOOL"
	DomainTransport Domain = "TRANSPORT"
	DomainConfig   Domain = "CONFIG"
	DomainMisc     Domain = "MISC"
)

// ErrorCode is a unique identifier within a Domain.
type ErrorCode int

// Error code ranges group by subsystem in blocks of 100.
const (
	// Command execution (1300-1399)
	CommandNotFound ErrorCode = 1300 + iota
	CommandExecution
	CommandTimeout
	CommandInvalidInput
	CommandOutputParse
	CommandPipe
)

const (
	// Catalog / protocol errors (2000-2099)
	CatalogParseError ErrorCode = 2000 + iota
	CatalogIncomplete
	CatalogUnsupported
)

const (
	// Matching engine (2100-2199)
	MatchNoCommonSnapshot ErrorCode = 2100 + iota
)

const (
	// Planner errors (2200-2299)
	PlannerBusy ErrorCode = 2200 + iota
	PlannerRefused
	PlannerSkipped
	PlannerDatasetNotFound
	PlannerResumeFailed
)

const (
	// Walker errors (2300-2399)
	WalkerListFailed ErrorCode = 2300 + iota
	WalkerCycle
)

const (
	// Pipeline / tool-inventory errors (2400-2499)
	PipelineBuildFailed ErrorCode = 2400 + iota
	ToolUnavailable
)

const (
	// Transport / SSH errors (2500-2599)
	TransportSSHMasterFailed ErrorCode = 2500 + iota
	TransportSSHUnreachable
)

const (
	// Configuration / CLI errors (1000-1099)
	ConfigInvalid ErrorCode = 1000 + iota
)

var errorDomain = map[ErrorCode]Domain{
	CommandNotFound:     DomainCommand,
	CommandExecution:    DomainCommand,
	CommandTimeout:      DomainCommand,
	CommandInvalidInput: DomainCommand,
	CommandOutputParse:  DomainCommand,
	CommandPipe:         DomainCommand,

	CatalogParseError:   DomainCatalog,
	CatalogIncomplete:   DomainCatalog,
	CatalogUnsupported:  DomainCatalog,

	MatchNoCommonSnapshot: DomainMatch,

	PlannerBusy:            DomainPlanner,
	PlannerRefused:         DomainPlanner,
	PlannerSkipped:         DomainPlanner,
	PlannerDatasetNotFound: DomainPlanner,
	PlannerResumeFailed:    DomainPlanner,

	WalkerListFailed: DomainWalker,
	WalkerCycle:      DomainWalker,

	PipelineBuildFailed: DomainPipeline,
	ToolUnavailable:     DomainTool,

	TransportSSHMasterFailed: DomainTransport,
	TransportSSHUnreachable:  DomainTransport,

	ConfigInvalid: DomainConfig,
}

var errorMessage = map[ErrorCode]string{
	CommandNotFound:     "command not found",
	CommandExecution:    "command execution failed",
	CommandTimeout:      "command execution timed out",
	CommandInvalidInput: "invalid command input",
	CommandOutputParse:  "failed to parse command output",
	CommandPipe:         "command pipe error",

	CatalogParseError:  "failed to parse zfs get output",
	CatalogIncomplete:  "snapshot or bookmark entry missing guid or creation",
	CatalogUnsupported: "bookmark listing not supported on this pool",

	MatchNoCommonSnapshot: "no common snapshot or bookmark found",

	PlannerBusy:            "target is busy receiving",
	PlannerRefused:         "cowardly refusing to replicate without a common snapshot",
	PlannerSkipped:         "dataset skipped",
	PlannerDatasetNotFound: "source dataset not found",
	PlannerResumeFailed:    "resume failed",

	WalkerListFailed: "failed to list child datasets",
	WalkerCycle:      "clone dependency cycle detected among children",

	PipelineBuildFailed: "failed to build transfer pipeline",
	ToolUnavailable:     "optional tool unavailable",

	TransportSSHMasterFailed: "failed to establish ssh control master",
	TransportSSHUnreachable:  "ssh control master unreachable",

	ConfigInvalid: "invalid configuration",
}
