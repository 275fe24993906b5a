// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatasetName(t *testing.T) {
	tests := []struct {
		name    string
		dataset string
		wantErr bool
	}{
		{name: "simple pool", dataset: "tank", wantErr: false},
		{name: "pool with path", dataset: "tank/fs/child", wantErr: false},
		{name: "empty", dataset: "", wantErr: true},
		{name: "leading slash", dataset: "/tank/fs", wantErr: true},
		{name: "trailing slash", dataset: "tank/fs/", wantErr: true},
		{name: "empty component", dataset: "tank//fs", wantErr: true},
		{name: "dot component", dataset: "tank/./fs", wantErr: true},
		{name: "dot dot component", dataset: "tank/../fs", wantErr: true},
		{name: "shell metacharacter", dataset: "tank/fs;rm -rf /", wantErr: true},
		{name: "too long", dataset: "tank/" + strings.Repeat("a", 256), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DatasetName(tt.dataset)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIdentifier(t *testing.T) {
	assert.NoError(t, Identifier(""))
	assert.NoError(t, Identifier("backup-01"))
	assert.NoError(t, Identifier("my.id_2025:03"))
	assert.Error(t, Identifier("has space"))
	assert.Error(t, Identifier("has/slash"))
	assert.Error(t, Identifier("has;semicolon"))
}

func TestShellSafe(t *testing.T) {
	assert.True(t, ShellSafe("plain-value"))
	assert.True(t, ShellSafe("value.with.dots:and-dashes"))
	assert.False(t, ShellSafe("value; rm -rf /"))
	assert.False(t, ShellSafe("value`whoami`"))
	assert.False(t, ShellSafe("value$(whoami)"))
	assert.False(t, ShellSafe(`value"quoted"`))
}

func TestSSHOption(t *testing.T) {
	tests := []struct {
		name    string
		option  string
		wantErr bool
	}{
		{name: "allowed option", option: "ConnectTimeout=10", wantErr: false},
		{name: "allowed option with spaces", option: " StrictHostKeyChecking = no ", wantErr: false},
		{name: "missing equals", option: "ConnectTimeout", wantErr: true},
		{name: "not on the allow list", option: "ProxyCommand=nc %h %p", wantErr: true},
		{name: "unsafe value", option: "ConnectTimeout=10; rm -rf /", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SSHOption(tt.option)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
