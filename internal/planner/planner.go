// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package planner

import (
	"context"
	"strings"
	"time"

	"github.com/stratastor/logger"

	"github.com/chithi/chithi/internal/catalog"
	"github.com/chithi/chithi/internal/dataset"
	"github.com/chithi/chithi/internal/errs"
	"github.com/chithi/chithi/internal/hostcmd"
	"github.com/chithi/chithi/internal/match"
	"github.com/chithi/chithi/internal/naming"
	"github.com/chithi/chithi/internal/pipeline"
	"github.com/chithi/chithi/internal/toolinventory"
)

// syncPropertyName is the custom ZFS property this tool reads on ENTRY
// to decide whether a dataset participates in replication at all.
const syncPropertyName = "syncoid:sync"

// targetNearEmptyFloor is the "used" byte threshold below which a
// missing common snapshot refuses to force a full resend without
// --force-delete.
const targetNearEmptyFloor = 64 * 1024 * 1024

// Status is the terminal classification of one dataset's planOnce run.
type Status int

const (
	StatusDone Status = iota
	StatusSkipped
	StatusFailed
)

// Outcome reports what happened to one source/target dataset pair.
type Outcome struct {
	Status  Status
	Reason  string
	Resumed bool
}

// Config carries everything one Planner needs to drive the state
// machine for a single source/target dataset pair; callers (the
// walker, or the root command for a non-recursive run) construct one
// per pair, varying SourceName/TargetName per call to Plan.
type Config struct {
	SourceTarget hostcmd.Target
	TargetTarget hostcmd.Target
	LocalTarget  hostcmd.Target

	Identifier string
	Hostname   string

	NoSyncSnapshot bool
	KeepSyncSnap   bool
	PruneFormat    string
	NoStream        bool
	ResumeEnabled   bool
	RollbackEnabled bool
	ForceDelete     bool
	CloneHandling   bool

	Filters catalog.Filters

	SendFlags []string
	RecvFlags []string

	PipelineOptions pipeline.Options
	Elevate         bool
	IsTerminal      bool

	Log logger.Logger
}

// Planner drives the per-dataset replication state machine for
// one source/target pair.
type Planner struct {
	cfg    Config
	z      *zfsOps
	reader *catalog.Reader
	inv    *toolinventory.Inventory
}

// New builds a Planner. inv is shared across every dataset pair in a
// run so optional-tool availability is probed at most once per hop.
func New(cfg Config, inv *toolinventory.Inventory) *Planner {
	return &Planner{
		cfg:    cfg,
		z:      &zfsOps{elevate: cfg.Elevate, log: cfg.Log},
		reader: catalog.New(cfg.Elevate, cfg.Log),
		inv:    inv,
	}
}

// Plan runs the full state machine for one sourceName/targetName pair.
func (p *Planner) Plan(ctx context.Context, sourceName, targetName string) (Outcome, error) {
	return p.planOnce(ctx, sourceName, targetName, false)
}

func (p *Planner) planOnce(ctx context.Context, sourceName, targetName string, skipSyncSnapshot bool) (Outcome, error) {
	syncVal, err := p.z.GetProperty(ctx, p.cfg.SourceTarget, sourceName, syncPropertyName)
	if err != nil {
		return Outcome{Status: StatusSkipped, Reason: "source dataset not found: " + sourceName}, nil
	}
	if skip, reason := evaluateSyncProperty(syncVal, p.cfg.Hostname); skip {
		return Outcome{Status: StatusSkipped, Reason: reason}, nil
	}

	busy, err := p.z.IsBusy(ctx, p.cfg.TargetTarget, targetName)
	if err != nil {
		return Outcome{Status: StatusFailed}, err
	}
	if busy {
		return Outcome{Status: StatusFailed}, errs.New(errs.PlannerBusy, targetName)
	}

	targetExists := p.z.DatasetExists(ctx, p.cfg.TargetTarget, targetName)

	resumed := false
	if targetExists && p.cfg.ResumeEnabled {
		r, err := p.tryResume(ctx, targetName)
		if err != nil {
			return Outcome{Status: StatusFailed}, err
		}
		resumed = r
	}

	sourceSnaps, err := p.reader.Snapshots(ctx, p.cfg.SourceTarget, sourceName, p.cfg.Filters)
	if err != nil {
		return Outcome{Status: StatusFailed}, err
	}
	sourceBookmarks, err := p.reader.Bookmarks(ctx, p.cfg.SourceTarget, sourceName, p.cfg.Filters)
	if err != nil {
		return Outcome{Status: StatusFailed}, err
	}

	createdSyncSnap := ""
	if !p.cfg.NoSyncSnapshot && !skipSyncSnapshot {
		candidate := naming.SyncSnapshotName(p.cfg.Identifier, p.cfg.Hostname, time.Now())
		if p.cfg.Filters.Allowed(candidate) {
			if err := p.z.CreateSnapshot(ctx, p.cfg.SourceTarget, sourceName, candidate); err != nil {
				return Outcome{Status: StatusFailed}, errs.Wrap(err, errs.PlannerRefused)
			}
			createdSyncSnap = candidate
			sourceSnaps = append(sourceSnaps, dataset.FakeNewest(candidate))
		}
	}

	if !targetExists {
		return p.createPath(ctx, sourceName, targetName, sourceSnaps, skipSyncSnapshot, createdSyncSnap)
	}

	targetSnaps, err := p.reader.Snapshots(ctx, p.cfg.TargetTarget, targetName, catalog.Filters{})
	if err != nil {
		return Outcome{Status: StatusFailed}, err
	}
	targetByName := match.ByName(targetSnaps)
	result := match.Find(sourceSnaps, targetByName, sourceBookmarks)

	if !result.Found() {
		return p.handleNoMatch(ctx, sourceName, targetName, sourceSnaps, createdSyncSnap)
	}

	return p.streamPath(ctx, sourceName, targetName, sourceSnaps, result.Anchor, resumed, createdSyncSnap)
}

// tryResume attempts a resume send against targetName's
// receive_resume_token, if one is set. It returns (true, nil) on a
// successful resume, (false, nil) if there was no token to resume, and
// an error only once a stale-token reset has also failed or the resume
// failed for an unrelated reason.
func (p *Planner) tryResume(ctx context.Context, targetName string) (bool, error) {
	token, err := p.z.ResumeToken(ctx, p.cfg.TargetTarget, targetName)
	if err != nil {
		return false, err
	}
	if token == "" {
		return false, nil
	}

	sendCmd := hostcmd.New("zfs", "send", "-t", token).WithElevate(p.cfg.Elevate)
	recvArgv := append([]string{"receive"}, FilterRecvFlags(p.cfg.RecvFlags, true, p.cfg.RollbackEnabled)...)
	recvArgv = append(recvArgv, targetName)
	recvCmd := hostcmd.New("zfs", recvArgv...).WithElevate(p.cfg.Elevate)

	opts := p.cfg.PipelineOptions
	if opts.UsePV(p.cfg.IsTerminal) {
		opts.SizeHint = EstimateSize(ctx, p.cfg.Elevate, p.cfg.SourceTarget, []string{"-t", token})
	}

	plan := pipeline.Build(ctx, pipeline.Hosts{Source: p.cfg.SourceTarget, Target: p.cfg.TargetTarget, Local: p.cfg.LocalTarget},
		sendCmd, recvCmd, opts, p.inv, p.cfg.IsTerminal)
	runErr := pipeline.Run(ctx, plan)
	if runErr == nil {
		return true, nil
	}

	if isStaleTokenError(chithiStderr(runErr)) {
		if resetErr := p.z.ResetReceiveState(ctx, p.cfg.TargetTarget, targetName); resetErr != nil {
			return false, errs.Wrap(resetErr, errs.PlannerResumeFailed)
		}
		return false, nil
	}
	return false, errs.Wrap(runErr, errs.PlannerResumeFailed)
}

// chithiStderr extracts captured stderr from a pipeline error, if any.
func chithiStderr(err error) string {
	ce, ok := err.(*errs.ChithiError)
	if !ok {
		return err.Error()
	}
	return ce.Metadata["stderr"]
}

func (p *Planner) createPath(ctx context.Context, sourceName, targetName string, sourceSnaps []dataset.Entry, skipSyncSnapshot bool, createdSyncSnap string) (Outcome, error) {
	if len(sourceSnaps) == 0 {
		return Outcome{Status: StatusFailed}, errs.New(errs.PlannerRefused, "no snapshots to send from "+sourceName)
	}

	var entry dataset.Entry
	if p.cfg.NoStream {
		entry, _ = dataset.Newest(sourceSnaps)
	} else {
		entry = sourceSnaps[0]
	}

	origin, err := p.z.Origin(ctx, p.cfg.SourceTarget, sourceName)
	if err != nil {
		return Outcome{Status: StatusFailed}, err
	}

	flags := FilterSendFlags(p.cfg.SendFlags, false, false)
	toSpec := sourceName + "@" + entry.Name

	sent := false
	if origin != "" && p.cfg.CloneHandling {
		originDataset := dataset.OriginDataset(origin)
		if originDataset != "" {
			cloneArgv := append([]string{"send"}, flags...)
			cloneArgv = append(cloneArgv, "-i", origin, toSpec)
			if err := p.send(ctx, targetName, cloneArgv); err == nil {
				sent = true
			}
		}
	}
	if !sent {
		fullArgv := append([]string{"send"}, flags...)
		fullArgv = append(fullArgv, toSpec)
		if err := p.send(ctx, targetName, fullArgv); err != nil {
			return Outcome{Status: StatusFailed}, err
		}
		// The full send ran (no clone-origin send was made, or it
		// failed); the source's sync snapshot already exists from this
		// call, so the follow-up pass must not recreate it.
		skipSyncSnapshot = true
	}

	if !p.cfg.NoStream {
		return p.planOnce(ctx, sourceName, targetName, skipSyncSnapshot)
	}

	if err := p.post(ctx, sourceName, targetName, sourceSnaps, createdSyncSnap); err != nil {
		return Outcome{Status: StatusFailed}, err
	}
	return Outcome{Status: StatusDone}, nil
}

func (p *Planner) handleNoMatch(ctx context.Context, sourceName, targetName string, sourceSnaps []dataset.Entry, createdSyncSnap string) (Outcome, error) {
	used, err := p.z.UsedBytes(ctx, p.cfg.TargetTarget, targetName)
	if err != nil {
		return Outcome{Status: StatusFailed}, err
	}

	if used < targetNearEmptyFloor && !p.cfg.ForceDelete {
		return Outcome{Status: StatusFailed}, errs.New(errs.PlannerRefused,
			"no common snapshot between "+sourceName+" and "+targetName+
				"; target is nearly empty, re-run with --force-delete if this is expected")
	}
	if !p.cfg.ForceDelete {
		return Outcome{Status: StatusFailed}, errs.New(errs.PlannerRefused,
			"cowardly refusing: no common snapshot between "+sourceName+" and "+targetName)
	}
	if !strings.Contains(targetName, "/") {
		return Outcome{Status: StatusFailed}, errs.New(errs.PlannerRefused,
			"refusing to force-delete a pool root: "+targetName)
	}
	if err := p.z.DestroyRecursive(ctx, p.cfg.TargetTarget, targetName); err != nil {
		return Outcome{Status: StatusFailed}, err
	}
	return p.createPath(ctx, sourceName, targetName, sourceSnaps, true, createdSyncSnap)
}

func (p *Planner) streamPath(ctx context.Context, sourceName, targetName string, sourceSnaps []dataset.Entry, anchor *match.Anchor, resumed bool, createdSyncSnap string) (Outcome, error) {
	tail := anchor.Tail
	if len(tail) == 0 {
		return Outcome{Status: StatusDone, Resumed: resumed}, nil
	}

	fromBookmark := anchor.Entry.Kind == dataset.KindBookmark
	fromSep := "@"
	if fromBookmark {
		fromSep = "#"
	}
	fromSpec := sourceName + fromSep + anchor.Entry.Name
	newest := tail[len(tail)-1]
	flags := FilterSendFlags(p.cfg.SendFlags, false, fromBookmark)

	switch {
	case p.cfg.NoStream:
		toSpec := sourceName + "@" + newest.Name
		argv := append([]string{"send"}, flags...)
		argv = append(argv, "-i", fromSpec, toSpec)
		if err := p.send(ctx, targetName, argv); err != nil {
			return Outcome{Status: StatusFailed}, err
		}

	case p.filtersActive():
		prev := fromSpec
		for _, e := range tail {
			toSpec := sourceName + "@" + e.Name
			argv := append([]string{"send"}, flags...)
			argv = append(argv, "-i", prev, toSpec)
			if err := p.send(ctx, targetName, argv); err != nil {
				return Outcome{Status: StatusFailed}, err
			}
			prev = toSpec
		}

	case !fromBookmark:
		toSpec := sourceName + "@" + newest.Name
		argv := append([]string{"send"}, flags...)
		argv = append(argv, "-I", fromSpec, toSpec)
		if err := p.send(ctx, targetName, argv); err != nil {
			return Outcome{Status: StatusFailed}, err
		}

	default:
		first := tail[0]
		firstSpec := sourceName + "@" + first.Name
		argv := append([]string{"send"}, flags...)
		argv = append(argv, "-i", fromSpec, firstSpec)
		if err := p.send(ctx, targetName, argv); err != nil {
			return Outcome{Status: StatusFailed}, err
		}
		if len(tail) > 1 {
			toSpec := sourceName + "@" + newest.Name
			argv2 := append([]string{"send"}, flags...)
			argv2 = append(argv2, "-I", firstSpec, toSpec)
			if err := p.send(ctx, targetName, argv2); err != nil {
				return Outcome{Status: StatusFailed}, err
			}
		}
	}

	if err := p.post(ctx, sourceName, targetName, sourceSnaps, createdSyncSnap); err != nil {
		return Outcome{Status: StatusFailed}, err
	}
	return Outcome{Status: StatusDone, Resumed: resumed}, nil
}

func (p *Planner) filtersActive() bool {
	return len(p.cfg.Filters.Include) > 0 || len(p.cfg.Filters.Exclude) > 0
}

// send runs one zfs send/receive pipeline for argv (a full "send"
// argv, flags and snapshot spec already included) against targetName.
func (p *Planner) send(ctx context.Context, targetName string, sendArgv []string) error {
	sendCmd := hostcmd.New("zfs", sendArgv...).WithElevate(p.cfg.Elevate)
	recvArgv := append([]string{"receive"}, FilterRecvFlags(p.cfg.RecvFlags, p.cfg.ResumeEnabled, p.cfg.RollbackEnabled)...)
	recvArgv = append(recvArgv, targetName)
	recvCmd := hostcmd.New("zfs", recvArgv...).WithElevate(p.cfg.Elevate)

	opts := p.cfg.PipelineOptions
	if opts.UsePV(p.cfg.IsTerminal) {
		opts.SizeHint = EstimateSize(ctx, p.cfg.Elevate, p.cfg.SourceTarget, sendArgv[1:])
	}

	plan := pipeline.Build(ctx, pipeline.Hosts{Source: p.cfg.SourceTarget, Target: p.cfg.TargetTarget, Local: p.cfg.LocalTarget},
		sendCmd, recvCmd, opts, p.inv, p.cfg.IsTerminal)
	return pipeline.Run(ctx, plan)
}

// post prunes this tool's own sync snapshots
// on both source and target once a new one has been created and
// keep-sync-snap was not requested.
func (p *Planner) post(ctx context.Context, sourceName, targetName string, sourceSnaps []dataset.Entry, createdSyncSnap string) error {
	if createdSyncSnap == "" || p.cfg.KeepSyncSnap {
		return nil
	}
	if err := p.z.PruneSyncSnapshots(ctx, p.cfg.SourceTarget, sourceName, sourceSnaps, p.cfg.PruneFormat, p.cfg.Identifier, p.cfg.Hostname, createdSyncSnap); err != nil {
		return err
	}
	targetSnaps, err := p.reader.Snapshots(ctx, p.cfg.TargetTarget, targetName, catalog.Filters{})
	if err != nil {
		return err
	}
	return p.z.PruneSyncSnapshots(ctx, p.cfg.TargetTarget, targetName, targetSnaps, p.cfg.PruneFormat, p.cfg.Identifier, p.cfg.Hostname, createdSyncSnap)
}

// evaluateSyncProperty interprets the syncoid:sync property at
// ENTRY: "true"/"-"/"" enable
// replication; "false" disables it; anything else is read as a
// whitespace/comma-separated hostname list, and replication is skipped
// unless localHostname appears in it.
func evaluateSyncProperty(value, localHostname string) (skip bool, reason string) {
	switch value {
	case "true", "-", "":
		return false, ""
	case "false":
		return true, "syncoid:sync=false"
	}
	hosts := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' })
	for _, h := range hosts {
		if h == localHostname {
			return false, ""
		}
	}
	return true, "syncoid:sync host list does not include " + localHostname
}
