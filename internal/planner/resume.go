// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package planner

import (
	"context"
	"strings"

	"github.com/chithi/chithi/internal/errs"
	"github.com/chithi/chithi/internal/hostcmd"
)

// isStaleTokenError reports whether stderr matches one of the two
// documented zfs send stderr patterns meaning the resume token's
// origin was destroyed and must be reset before a fresh send can
// proceed. A failed reset simply propagates as a failure; there is no
// persisted transfer record to retry against.
func isStaleTokenError(stderr string) bool {
	if strings.Contains(stderr, "used in the initial send no longer exists") {
		return true
	}
	return strings.Contains(stderr, "incremental source") && strings.Contains(stderr, "no longer exists")
}

// ResumeToken retrieves target's receive_resume_token, returning ("",
// nil) if none is set (zfs reports a bare "-" for an unset property).
func (z *zfsOps) ResumeToken(ctx context.Context, target hostcmd.Target, name string) (string, error) {
	v, err := z.GetProperty(ctx, target, name, "receive_resume_token")
	if err != nil {
		return "", errs.Wrap(err, errs.PlannerResumeFailed)
	}
	if v == "-" || v == "" {
		return "", nil
	}
	return v, nil
}

// ResetReceiveState runs `zfs receive -A <target>`, abandoning a
// partial receive whose resume token can no longer be satisfied.
func (z *zfsOps) ResetReceiveState(ctx context.Context, target hostcmd.Target, name string) error {
	_, err := z.run(ctx, target, "zfs", "receive", "-A", name)
	return err
}
