// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package hostcmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExistsLocal(t *testing.T) {
	assert.True(t, Exists(context.Background(), Local, "sh"))
	assert.False(t, Exists(context.Background(), Local, "chithi-definitely-not-a-real-binary"))
}
