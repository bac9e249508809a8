package comphist

import (
	"fmt"
	"strings"
)

// TargetKind is the shape of a target name.
type TargetKind int

const (
	// TargetPool has no dataset, snapshot or bookmark delimiter.
	TargetPool TargetKind = iota
	// TargetDataset is a filesystem or volume below a pool.
	TargetDataset
	// TargetSnapshot carries an '@' delimiter.
	TargetSnapshot
	// TargetBookmark carries a '#' delimiter.
	TargetBookmark
)

func (k TargetKind) String() string {
	switch k {
	case TargetPool:
		return "pool"
	case TargetDataset:
		return "dataset"
	case TargetSnapshot:
		return "snapshot"
	case TargetBookmark:
		return "bookmark"
	default:
		return "unknown"
	}
}

// ClassifyTarget returns the kind of target. Bookmarks win over snapshots.
func ClassifyTarget(target string) TargetKind {
	switch {
	case strings.Contains(target, "#"):
		return TargetBookmark
	case strings.Contains(target, "@"):
		return TargetSnapshot
	case strings.Contains(target, "/"):
		return TargetDataset
	default:
		return TargetPool
	}
}

// SnapshotMode reports whether target names a snapshot.
func SnapshotMode(target string) bool {
	return strings.Contains(target, "@")
}

// ModeName returns "snapshot" or "live" for target.
func ModeName(target string) string {
	if SnapshotMode(target) {
		return "snapshot"
	}

	return "live"
}

// ValidateTarget checks target against opt before any session is opened.
func ValidateTarget(target string, opt Options) error {
	if target == "" {
		return fmt.Errorf("%w: empty target", ErrInvalidTarget)
	}

	switch ClassifyTarget(target) {
	case TargetBookmark:
		return fmt.Errorf("%w: bookmarks are not supported: %s", ErrInvalidTarget, target)
	case TargetPool:
		if !opt.AllowLive {
			return fmt.Errorf("%w: pool traversal requires --allow-live", ErrInvalidTarget)
		}
	case TargetSnapshot:
		if opt.Recursive {
			return fmt.Errorf("%w: -r does not apply to dataset snapshots", ErrInvalidTarget)
		}
	case TargetDataset:
		if !opt.AllowLive {
			return fmt.Errorf("%w: dataset traversal requires @snapshot or --allow-live", ErrInvalidTarget)
		}
	}

	return nil
}
