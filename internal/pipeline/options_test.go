// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceMbufferArgs(t *testing.T) {
	o := Options{MbufferSize: "16M", SourceBwlimit: "10M"}
	assert.Equal(t, []string{"-s", "16M", "-r", "10M"}, o.sourceMbufferArgs())

	assert.Empty(t, Options{}.sourceMbufferArgs())
}

func TestTargetMbufferArgs(t *testing.T) {
	o := Options{MbufferSize: "16M", TargetBwlimit: "20M"}
	assert.Equal(t, []string{"-s", "16M", "-R", "20M"}, o.targetMbufferArgs())
}

func TestPVArgsDefaultsWhenUnset(t *testing.T) {
	o := Options{}
	assert.Equal(t, []string{"-p", "-t", "-e", "-r", "-b"}, o.pvArgs())
}

func TestPVArgsUsesCustomOptions(t *testing.T) {
	o := Options{PVOptions: []string{"-L", "10M"}}
	assert.Equal(t, []string{"-L", "10M"}, o.pvArgs())
}

func TestPVArgsPrependsSizeHint(t *testing.T) {
	o := Options{SizeHint: 123456}
	assert.Equal(t, []string{"-s", "123456", "-p", "-t", "-e", "-r", "-b"}, o.pvArgs())

	o = Options{PVOptions: []string{"-L", "10M"}, SizeHint: 42}
	assert.Equal(t, []string{"-s", "42", "-L", "10M"}, o.pvArgs())
}

func TestUsePVExported(t *testing.T) {
	assert.True(t, Options{}.UsePV(true))
	assert.False(t, Options{Quiet: true}.UsePV(true))
}

func TestCompressEnabled(t *testing.T) {
	assert.True(t, Options{Compress: "lz4"}.compressEnabled())
	assert.False(t, Options{Compress: "none"}.compressEnabled())
	assert.False(t, Options{}.compressEnabled())
	assert.False(t, Options{Compress: "made-up"}.compressEnabled())
}

func TestUsePV(t *testing.T) {
	assert.True(t, Options{}.usePV(true))
	assert.False(t, Options{}.usePV(false))
	assert.False(t, Options{Quiet: true}.usePV(true))
}

func TestParseSkipOptional(t *testing.T) {
	assert.Nil(t, parseSkipOptional(""))
	assert.Equal(t, []string{"pv", "mbuffer"}, parseSkipOptional("pv, mbuffer"))
	assert.Equal(t, []string{"pv"}, parseSkipOptional(" pv , , "))
}
