package comphist

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// CompressionID identifies the compression algorithm recorded in a block pointer.
type CompressionID int

// Compression ids in on-disk order. The order is also the reporting order.
const (
	CompressInherit CompressionID = iota
	CompressOn
	CompressOff
	CompressLZJB
	CompressEmpty
	CompressGzip1
	CompressGzip2
	CompressGzip3
	CompressGzip4
	CompressGzip5
	CompressGzip6
	CompressGzip7
	CompressGzip8
	CompressGzip9
	CompressZLE
	CompressLZ4
	CompressZstd

	// NumCompressions is the number of valid compression ids.
	NumCompressions = int(CompressZstd) + 1
)

//nolint:gochecknoglobals // Lookup table
var compressionNames = [NumCompressions]string{
	"inherit", "on", "off", "lzjb", "empty",
	"gzip-1", "gzip-2", "gzip-3", "gzip-4", "gzip-5", "gzip-6", "gzip-7", "gzip-8", "gzip-9",
	"zle", "lz4", "zstd",
}

// Valid reports whether c is inside the closed set of known ids.
func (c CompressionID) Valid() bool {
	return c >= 0 && int(c) < NumCompressions
}

// Normalize folds out-of-range ids into CompressInherit.
func (c CompressionID) Normalize() CompressionID {
	if !c.Valid() {
		return CompressInherit
	}

	return c
}

// String returns the algorithm name, or "unknown" for out-of-range ids.
func (c CompressionID) String() string {
	if !c.Valid() {
		return "unknown"
	}

	return compressionNames[c]
}

// ParseCompression resolves an algorithm name or a raw numeric id.
// Numeric ids are accepted even when out of range so damaged block
// pointers can be described.
func ParseCompression(s string) (CompressionID, error) {
	s = strings.ToLower(strings.TrimSpace(s))

	for i, name := range compressionNames {
		if name == s {
			return CompressionID(i), nil
		}
	}

	// "gzip" alone means the default gzip level.
	if s == "gzip" {
		return CompressGzip6, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("unknown compression %q", s)
	}

	return CompressionID(n), nil
}

// UnmarshalYAML accepts either a name or an integer id.
func (c *CompressionID) UnmarshalYAML(value *yaml.Node) error {
	id, err := ParseCompression(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}

	*c = id

	return nil
}
