// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupCompressorNoneDisables(t *testing.T) {
	_, ok := LookupCompressor("")
	assert.False(t, ok)

	_, ok = LookupCompressor("none")
	assert.False(t, ok)
}

func TestLookupCompressorKnownValues(t *testing.T) {
	for name := range Compressors {
		t.Run(name, func(t *testing.T) {
			spec, ok := LookupCompressor(name)
			require.True(t, ok)
			assert.Equal(t, name, spec.Name)
			assert.NotEmpty(t, spec.CompressBin)
			assert.NotEmpty(t, spec.DecompressBin)
		})
	}
}

func TestLookupCompressorUnknown(t *testing.T) {
	_, ok := LookupCompressor("made-up-codec")
	assert.False(t, ok)
}

func TestDefaultCompressorIsValid(t *testing.T) {
	_, ok := LookupCompressor(DefaultCompressor)
	assert.True(t, ok)
}
