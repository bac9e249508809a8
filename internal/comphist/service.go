package comphist

import (
	"context"
	"iter"
	"math"
)

// DnodeLevel is the level of object-metadata block pointers. The walker
// skips it so dnode blocks are not counted twice.
const DnodeLevel = -3

// BlockRecord describes one visited block pointer.
type BlockRecord struct {
	// Level is the indirection level; DnodeLevel for object metadata.
	Level int64
	// Compression is the raw compression id, possibly out of range.
	Compression CompressionID
	// LogicalSize is the uncompressed size in bytes.
	LogicalSize uint64
	// PhysicalSize is the compressed size in bytes.
	PhysicalSize uint64
	// AllocatedSize is the on-disk allocation including overhead.
	AllocatedSize uint64
	// Hole marks a region without physical allocation.
	Hole bool
	// Redacted marks a withheld block.
	Redacted bool
	// Embedded marks a block stored inline in its pointer.
	Embedded bool
}

// MaxPosition is the last position a Checkpoint can hold.
const MaxPosition = math.MaxUint64

// Checkpoint is a resumable position inside one dataset traversal.
// The traversal service records where it failed; the walker advances it.
type Checkpoint struct {
	// Position is the block position traversal resumes from.
	Position uint64
}

// Exhausted reports whether the checkpoint cannot be advanced further.
func (c *Checkpoint) Exhausted() bool {
	return c.Position == MaxPosition
}

// Advance moves the checkpoint one unit forward.
func (c *Checkpoint) Advance() {
	if !c.Exhausted() {
		c.Position++
	}
}

// TraverseFlags select traversal behavior.
type TraverseFlags uint32

const (
	// TraversePre visits parents before children.
	TraversePre TraverseFlags = 1 << iota
	// TraversePrefetchMetadata prefetches indirect blocks.
	TraversePrefetchMetadata
	// TraverseNoDecrypt visits encrypted blocks without keys.
	TraverseNoDecrypt
	// TraverseHard keeps going below unreadable indirect blocks.
	TraverseHard
)

// SessionMode is the access mode a session is opened with.
type SessionMode int

const (
	// SessionRead opens the pool read-only.
	SessionRead SessionMode = iota
)

// Service opens traversal sessions.
type Service interface {
	OpenSession(ctx context.Context, mode SessionMode) (Session, error)
}

// Session is a process-wide handle on the storage engine. It must be closed
// exactly once.
type Session interface {
	// ListDescendants yields name and all its child datasets, snapshots excluded.
	ListDescendants(ctx context.Context, name string) iter.Seq2[string, error]
	// AcquireDataset places a hold on a dataset.
	AcquireDataset(ctx context.Context, name string) (Dataset, error)
	// Close tears the session down.
	Close() error
}

// Dataset is a held dataset. Release must be called once per acquisition.
type Dataset interface {
	Name() string
	// Traverse visits block pointers in pre-order. When cp is not nil the
	// walk starts at cp.Position and, on failure, cp holds the failing
	// position.
	Traverse(ctx context.Context, cp *Checkpoint, flags TraverseFlags, visit func(BlockRecord) error) error
	Release()
}
