package poolimage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"gopkg.in/yaml.v3"

	"github.com/idelchi/comphist/internal/comphist"
)

// ManifestNames lists the accepted manifest file names in lookup order.
//
//nolint:gochecknoglobals // Config constant
var ManifestNames = []string{
	"dataset.yaml",
	"dataset.yml",
	"dataset.yaml.zst",
	"dataset.yaml.lz4",
	"dataset.yaml.sz",
}

// Manifest describes one dataset and its snapshots.
type Manifest struct {
	// Denied makes every hold on the dataset fail.
	Denied bool `yaml:"denied"`
	// Blocks is the live block tree in pre-order.
	Blocks []Block `yaml:"blocks"`
	// Snapshots maps snapshot names to their block trees.
	Snapshots map[string]Snapshot `yaml:"snapshots"`
}

// Snapshot is the block tree of one snapshot.
type Snapshot struct {
	Blocks []Block `yaml:"blocks"`
}

// Block is one block pointer, or a run of identical ones.
type Block struct {
	Level    int64                  `yaml:"level"`
	Compress comphist.CompressionID `yaml:"compress"`
	LSize    uint64                 `yaml:"lsize"`
	PSize    uint64                 `yaml:"psize"`
	// ASize defaults to PSize.
	ASize    *uint64 `yaml:"asize"`
	Hole     bool    `yaml:"hole"`
	Redacted bool    `yaml:"redacted"`
	Embedded bool    `yaml:"embedded"`
	// Fault marks an unreadable node: io, checksum, device or other.
	Fault string `yaml:"fault"`
	// Repeat expands the entry into that many consecutive positions.
	Repeat uint64 `yaml:"repeat"`
}

// count is the number of positions the entry occupies.
func (b Block) count() uint64 {
	if b.Repeat == 0 {
		return 1
	}

	return b.Repeat
}

// record converts the entry into a visited block.
func (b Block) record() comphist.BlockRecord {
	asize := b.PSize
	if b.ASize != nil {
		asize = *b.ASize
	}

	return comphist.BlockRecord{
		Level:         b.Level,
		Compression:   b.Compress,
		LogicalSize:   b.LSize,
		PhysicalSize:  b.PSize,
		AllocatedSize: asize,
		Hole:          b.Hole,
		Redacted:      b.Redacted,
		Embedded:      b.Embedded,
	}
}

// parseFault maps a fault name onto the error taxonomy. An empty name is
// no fault.
func parseFault(name string) (fault error, ok bool) {
	switch name {
	case "":
		return nil, true
	case "io":
		return comphist.ErrIO, true
	case "checksum":
		return comphist.ErrChecksum, true
	case "device":
		return comphist.ErrDevice, true
	case "other":
		return comphist.ErrOther, true
	default:
		return nil, false
	}
}

// validate checks fault names up front so traversal never hits a bad one.
func (m *Manifest) validate() error {
	check := func(blocks []Block) error {
		for i, b := range blocks {
			if _, ok := parseFault(b.Fault); !ok {
				return fmt.Errorf("block %d: unknown fault %q", i, b.Fault)
			}
		}

		return nil
	}

	if err := check(m.Blocks); err != nil {
		return err
	}

	for name, snap := range m.Snapshots {
		if err := check(snap.Blocks); err != nil {
			return fmt.Errorf("snapshot %q: %w", name, err)
		}
	}

	return nil
}

// findManifest returns the manifest path inside dir.
func findManifest(dir string) (string, error) {
	for _, name := range ManifestNames {
		path := filepath.Join(dir, name)

		info, err := os.Stat(path)
		switch {
		case err == nil && info.Mode().IsRegular():
			return path, nil
		case err == nil, errors.Is(err, fs.ErrNotExist):
			continue
		default:
			return "", mapFSError(err)
		}
	}

	return "", comphist.ErrNotFound
}

// isManifest reports whether base is one of ManifestNames.
func isManifest(base string) bool {
	for _, name := range ManifestNames {
		if base == name {
			return true
		}
	}

	return false
}

// decompressor wraps r according to the manifest file extension.
func decompressor(path string, r io.Reader) (io.ReadCloser, error) {
	switch filepath.Ext(path) {
	case ".zst":
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("creating zstd reader: %w", err)
		}

		return dec.IOReadCloser(), nil
	case ".lz4":
		return io.NopCloser(lz4.NewReader(r)), nil
	case ".sz":
		return io.NopCloser(snappy.NewReader(r)), nil
	default:
		return io.NopCloser(r), nil
	}
}

// LoadManifest reads and decodes the manifest at path.
func LoadManifest(path string) (*Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, mapFSError(err)
	}
	defer file.Close()

	r, err := decompressor(path, file)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %q: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest %q: %w", path, err)
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("manifest %q: %w", path, err)
	}

	return &m, nil
}

// mapFSError translates filesystem errors into the error taxonomy.
func mapFSError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %w", comphist.ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %w", comphist.ErrPermissionDenied, err)
	default:
		return err
	}
}
