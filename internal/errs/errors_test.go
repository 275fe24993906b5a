// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package errs

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSetsDomainAndMessage(t *testing.T) {
	err := New(PlannerBusy, "tank/fs is busy")

	assert.Equal(t, PlannerBusy, err.Code)
	assert.Equal(t, DomainPlanner, err.Domain)
	assert.Equal(t, "target is busy receiving", err.Message)
	assert.Contains(t, err.Error(), "tank/fs is busy")
}

func TestNewUnknownCodeFallsBackToMisc(t *testing.T) {
	err := New(ErrorCode(999999), "mystery")
	assert.Equal(t, DomainMisc, err.Domain)
}

func TestErrorStringIncludesStderrMetadata(t *testing.T) {
	err := New(CommandExecution, "boom").WithMetadata("stderr", "cannot open 'tank/fs'")
	assert.Contains(t, err.Error(), "cannot open 'tank/fs'")
}

func TestWrapPreservesOriginalAsMetadata(t *testing.T) {
	inner := New(CatalogParseError, "bad guid field")
	wrapped := Wrap(inner, WalkerListFailed)

	assert.Equal(t, WalkerListFailed, wrapped.Code)
	assert.Equal(t, DomainWalker, wrapped.Domain)
	assert.Equal(t, "bad guid field", wrapped.Details)
	assert.Equal(t, "2000", wrapped.Metadata["wrapped_code"])
	assert.Equal(t, string(DomainCatalog), wrapped.Metadata["wrapped_domain"])
}

func TestWrapNonChithiError(t *testing.T) {
	wrapped := Wrap(stderrors.New("plain failure"), CommandExecution)
	assert.Equal(t, CommandExecution, wrapped.Code)
	assert.Equal(t, "plain failure", wrapped.Details)
}

func TestNewCommandErrorCarriesArgvAndStderr(t *testing.T) {
	err := NewCommandError("zfs receive tank/fs", 1, "cannot receive: destination exists")

	assert.Equal(t, CommandExecution, err.Code)
	assert.Equal(t, "zfs receive tank/fs", err.Metadata["command"])
	assert.Equal(t, "1", err.Metadata["exit_code"])
	assert.Contains(t, err.Error(), "cannot receive: destination exists")
}

func TestIsComparesCodeAndDomain(t *testing.T) {
	a := New(PlannerBusy, "first")
	b := New(PlannerBusy, "second")
	c := New(PlannerRefused, "third")

	assert.True(t, Is(a, b))
	assert.False(t, Is(a, c))
}

func TestChithiErrorIsSupportsErrorsIs(t *testing.T) {
	sentinel := New(PlannerBusy, "")
	var wrapped error = New(PlannerBusy, "tank/fs busy")

	assert.True(t, stderrors.Is(wrapped, sentinel))
}

func TestCode(t *testing.T) {
	code, ok := Code(New(PlannerBusy, "busy"))
	require.True(t, ok)
	assert.Equal(t, PlannerBusy, code)

	_, ok = Code(stderrors.New("plain"))
	assert.False(t, ok)
}
