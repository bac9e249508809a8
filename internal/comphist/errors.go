package comphist

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the core and traversal services.
var (
	// ErrInvalidTarget rejects bookmarks, recursive snapshots and live targets
	// without explicit permission.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrNotFound is returned when a dataset or pool does not exist.
	ErrNotFound = errors.New("dataset not found")
	// ErrPermissionDenied is returned when a dataset cannot be held.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrIO is a read failure below the traversal.
	ErrIO = errors.New("i/o error")
	// ErrChecksum is a checksum mismatch reported by the storage engine.
	ErrChecksum = errors.New("checksum mismatch")
	// ErrDevice means the backing device is unavailable.
	ErrDevice = errors.New("device unavailable")
	// ErrOther is any traversal failure that is never retried.
	ErrOther = errors.New("traversal failed")
	// ErrAborted is returned when a per-dataset callback stops the run.
	ErrAborted = errors.New("run aborted")
)

// IsRecoverable reports whether a best-effort walk may skip past err.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrIO) || errors.Is(err, ErrChecksum) || errors.Is(err, ErrDevice)
}

// WalkError is the final error of one dataset.
type WalkError struct {
	// Dataset is the name of the dataset that failed.
	Dataset string
	// Err is the underlying cause.
	Err error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("walking %q: %v", e.Dataset, e.Err)
}

func (e *WalkError) Unwrap() error {
	return e.Err
}
