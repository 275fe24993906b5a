// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package planner is the replication planner: the per-dataset state
// machine that inspects source and target, decides between a full,
// clone, or incremental transfer, and drives the pipeline composer to
// execute it. The only durable state across runs is ZFS's own
// receive_resume_token; nothing is persisted by this tool itself.
package planner

import (
	"context"
	"strconv"
	"strings"

	"github.com/stratastor/logger"

	"github.com/chithi/chithi/internal/busycheck"
	"github.com/chithi/chithi/internal/errs"
	"github.com/chithi/chithi/internal/hostcmd"
	"github.com/chithi/chithi/internal/procrun"
)

// zfsOps wraps the small set of direct zfs(8)/ps(1) invocations the
// planner issues outside of the pipeline composer: existence and
// property checks, snapshot create/destroy, and the busy-check preflight.
type zfsOps struct {
	elevate bool
	log     logger.Logger
}

func (z *zfsOps) run(ctx context.Context, target hostcmd.Target, argv ...string) (string, error) {
	cmd := hostcmd.New(argv[0], argv[1:]...).WithTarget(target).WithElevate(z.elevate)
	h, err := procrun.Start(ctx, procrun.Spec{
		Argv:   cmd.Argv(),
		Stdout: procrun.StdioCapture,
		Stderr: procrun.StdioCapture,
		Log:    z.log,
	})
	if err != nil {
		return "", errs.Wrap(err, errs.CommandExecution)
	}
	err = h.Wait()
	return h.Stdout(), err
}

// DatasetExists reports whether name exists on target.
func (z *zfsOps) DatasetExists(ctx context.Context, target hostcmd.Target, name string) bool {
	_, err := z.run(ctx, target, "zfs", "list", "-H", "-o", "name", name)
	return err == nil
}

// GetProperty returns a single zfs property's raw value, or "" with an
// error if the dataset or property lookup failed outright (note: zfs
// get always exits 0 for an unset property, reporting "-").
func (z *zfsOps) GetProperty(ctx context.Context, target hostcmd.Target, name, prop string) (string, error) {
	out, err := z.run(ctx, target, "zfs", "get", "-H", "-o", "value", prop, name)
	if err != nil {
		return "", errs.Wrap(err, errs.CommandExecution)
	}
	return strings.TrimSpace(out), nil
}

// Origin returns name's origin property, "" if it is not a clone.
func (z *zfsOps) Origin(ctx context.Context, target hostcmd.Target, name string) (string, error) {
	v, err := z.GetProperty(ctx, target, name, "origin")
	if err != nil {
		return "", err
	}
	if v == "-" {
		return "", nil
	}
	return v, nil
}

// UsedBytes returns name's "used" property in bytes.
func (z *zfsOps) UsedBytes(ctx context.Context, target hostcmd.Target, name string) (int64, error) {
	v, err := z.GetProperty(ctx, target, name, "used")
	if err != nil {
		return 0, err
	}
	n, perr := strconv.ParseInt(v, 10, 64)
	if perr != nil {
		return 0, errs.New(errs.CommandOutputParse, "non-numeric used property: "+v)
	}
	return n, nil
}

// CreateSnapshot runs `zfs snapshot <fs>@<name>`.
func (z *zfsOps) CreateSnapshot(ctx context.Context, target hostcmd.Target, fs, name string) error {
	_, err := z.run(ctx, target, "zfs", "snapshot", fs+"@"+name)
	return err
}

// DestroyRecursive runs `zfs destroy -r <name>`.
func (z *zfsOps) DestroyRecursive(ctx context.Context, target hostcmd.Target, name string) error {
	_, err := z.run(ctx, target, "zfs", "destroy", "-r", name)
	return err
}

// DestroySnapshots runs `zfs destroy fs@snap1,snap2,...` for one batch
// (the caller splits into batches of at most 10).
func (z *zfsOps) DestroySnapshots(ctx context.Context, target hostcmd.Target, fs string, names []string) error {
	if len(names) == 0 {
		return nil
	}
	_, err := z.run(ctx, target, "zfs", "destroy", fs+"@"+strings.Join(names, ","))
	return err
}

// IsBusy runs one `ps` on target and reports whether any line matches a
// `zfs receive ... <datasetName>` command.
func (z *zfsOps) IsBusy(ctx context.Context, target hostcmd.Target, datasetName string) (bool, error) {
	out, err := z.run(ctx, target, "ps", "-eo", "args")
	if err != nil {
		return false, errs.Wrap(err, errs.CommandExecution)
	}
	return busycheck.ScanBusyTargets(out, []string{datasetName})[datasetName], nil
}
