package comphist

import "time"

// DefaultProgressInterval is the default interval for progress updates.
const DefaultProgressInterval = 500 * time.Millisecond

// Options configures a run. It is not modified once a run starts.
type Options struct {
	// Recursive includes child datasets of a dataset target.
	Recursive bool
	// AllowLive permits walking live (non-snapshot) datasets and pools.
	AllowLive bool
	// BestEffort skips past recoverable traversal errors.
	BestEffort bool
	// JSON selects the structured report.
	JSON bool
	// PerDataset produces one histogram per dataset.
	PerDataset bool
	// ProgressInterval controls progress callback cadence.
	ProgressInterval time.Duration
}

// Progress is a snapshot of a running scan.
type Progress struct {
	// Dataset is the dataset currently walked.
	Dataset string
	// Datasets is the number of datasets started so far.
	Datasets int
	// Blocks is the number of block pointers visited so far.
	Blocks uint64
	// LogicalBytes is the logical size accounted so far.
	LogicalBytes uint64
}
