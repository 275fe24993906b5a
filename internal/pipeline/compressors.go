// Copyright 2024-2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2024-2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package pipeline

// CompressorSpec names the compress/decompress binary pair and their
// fixed arguments for one --compress choice.
type CompressorSpec struct {
	Name             string
	CompressBin      string
	CompressArgs     []string
	DecompressBin    string
	DecompressArgs   []string
}

// Compressors is the fixed table of supported --compress values. "none"
// is intentionally absent: callers treat an unrecognized or empty name,
// or the literal "none", as "no compression stage".
var Compressors = map[string]CompressorSpec{
	"gzip": {
		Name: "gzip", CompressBin: "gzip", CompressArgs: []string{"-3"},
		DecompressBin: "zcat",
	},
	"pigz-fast": {
		Name: "pigz-fast", CompressBin: "pigz", CompressArgs: []string{"-3"},
		DecompressBin: "pigz", DecompressArgs: []string{"-dc"},
	},
	"pigz-slow": {
		Name: "pigz-slow", CompressBin: "pigz", CompressArgs: []string{"-9"},
		DecompressBin: "pigz", DecompressArgs: []string{"-dc"},
	},
	"zstd-fast": {
		Name: "zstd-fast", CompressBin: "zstd", CompressArgs: []string{"-3"},
		DecompressBin: "zstd", DecompressArgs: []string{"-dc"},
	},
	"zstd-slow": {
		Name: "zstd-slow", CompressBin: "zstd", CompressArgs: []string{"-19"},
		DecompressBin: "zstd", DecompressArgs: []string{"-dc"},
	},
	"zstdmt-fast": {
		Name: "zstdmt-fast", CompressBin: "zstdmt", CompressArgs: []string{"-3"},
		DecompressBin: "zstdmt", DecompressArgs: []string{"-dc"},
	},
	"zstdmt-slow": {
		Name: "zstdmt-slow", CompressBin: "zstdmt", CompressArgs: []string{"-19"},
		DecompressBin: "zstdmt", DecompressArgs: []string{"-dc"},
	},
	"xz": {
		Name: "xz", CompressBin: "xz",
		DecompressBin: "xz", DecompressArgs: []string{"-d"},
	},
	"lzo": {
		Name: "lzo", CompressBin: "lzop",
		DecompressBin: "lzop", DecompressArgs: []string{"-dfc"},
	},
	"lz4": {
		Name: "lz4", CompressBin: "lz4",
		DecompressBin: "lz4", DecompressArgs: []string{"-dc"},
	},
}

// DefaultCompressor is "lzo".
const DefaultCompressor = "lzo"

// LookupCompressor returns the spec for name, or ok=false for "" or "none".
func LookupCompressor(name string) (CompressorSpec, bool) {
	if name == "" || name == "none" {
		return CompressorSpec{}, false
	}
	spec, ok := Compressors[name]
	return spec, ok
}
