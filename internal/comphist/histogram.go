package comphist

// Entry holds the counters of one compression bucket.
type Entry struct {
	// Blocks is the number of non-hole, non-redacted blocks.
	Blocks uint64
	// LogicalBytes is the sum of logical (uncompressed) sizes.
	LogicalBytes uint64
	// PhysicalBytes is the sum of physical (compressed) sizes.
	PhysicalBytes uint64
	// AllocatedBytes is the sum of allocated on-disk sizes.
	AllocatedBytes uint64
	// EmbeddedBlocks is the number of blocks stored inline in their pointer.
	EmbeddedBlocks uint64
	// EmbeddedLogicalBytes is the logical size of the embedded blocks.
	EmbeddedLogicalBytes uint64
}

// Empty reports whether no block was accounted to the entry.
func (e Entry) Empty() bool {
	return e.Blocks == 0
}

// Ratio returns logical/physical, or 0 when nothing physical was recorded.
func (e Entry) Ratio() float64 {
	if e.PhysicalBytes == 0 {
		return 0
	}

	return float64(e.LogicalBytes) / float64(e.PhysicalBytes)
}

// Histogram aggregates visited blocks per compression id.
//
// The totals always equal the sum over Entries. A Histogram is written by a
// single walker at a time and needs no locking.
type Histogram struct {
	// Entries is indexed by CompressionID; every id is present.
	Entries [NumCompressions]Entry

	Blocks               uint64
	LogicalBytes         uint64
	PhysicalBytes        uint64
	AllocatedBytes       uint64
	EmbeddedBlocks       uint64
	EmbeddedLogicalBytes uint64

	// Holes counts hole block pointers.
	Holes uint64
	// Redacted counts redacted block pointers.
	Redacted uint64
	// UnknownCompression counts blocks whose id was folded into inherit.
	UnknownCompression uint64
	// TraversalErrors counts failed traversal attempts.
	TraversalErrors uint64
}

// NewHistogram returns a zeroed histogram.
func NewHistogram() *Histogram {
	return &Histogram{}
}

// AddBlock accounts one block to its compression entry and to the totals.
// Embedded blocks also count toward the primary counters.
func (h *Histogram) AddBlock(comp CompressionID, lsize, psize, asize uint64, embedded bool) {
	id := comp.Normalize()
	entry := &h.Entries[id]

	entry.Blocks++
	entry.LogicalBytes += lsize
	entry.PhysicalBytes += psize
	entry.AllocatedBytes += asize

	h.Blocks++
	h.LogicalBytes += lsize
	h.PhysicalBytes += psize
	h.AllocatedBytes += asize

	if embedded {
		entry.EmbeddedBlocks++
		entry.EmbeddedLogicalBytes += lsize
		h.EmbeddedBlocks++
		h.EmbeddedLogicalBytes += lsize
	}

	if id != comp {
		h.UnknownCompression++
	}
}

// Add classifies a record and accounts it. Holes and redacted blocks only
// bump their own counters.
func (h *Histogram) Add(rec BlockRecord) {
	switch {
	case rec.Hole:
		h.NoteHole()
	case rec.Redacted:
		h.NoteRedacted()
	default:
		h.AddBlock(rec.Compression, rec.LogicalSize, rec.PhysicalSize, rec.AllocatedSize, rec.Embedded)
	}
}

// NoteHole counts a hole.
func (h *Histogram) NoteHole() {
	h.Holes++
}

// NoteRedacted counts a redacted block.
func (h *Histogram) NoteRedacted() {
	h.Redacted++
}

// NoteTraversalError counts one failed traversal attempt.
func (h *Histogram) NoteTraversalError() {
	h.TraversalErrors++
}

// Total returns the totals shaped as an Entry.
func (h *Histogram) Total() Entry {
	return Entry{
		Blocks:               h.Blocks,
		LogicalBytes:         h.LogicalBytes,
		PhysicalBytes:        h.PhysicalBytes,
		AllocatedBytes:       h.AllocatedBytes,
		EmbeddedBlocks:       h.EmbeddedBlocks,
		EmbeddedLogicalBytes: h.EmbeddedLogicalBytes,
	}
}

// BlockPercent returns the share of all blocks held by entry, in percent.
func (h *Histogram) BlockPercent(entry Entry) float64 {
	if h.Blocks == 0 {
		return 0
	}

	return float64(entry.Blocks) * 100 / float64(h.Blocks)
}

// Ratio returns the compression ratio of entry.
func (h *Histogram) Ratio(entry Entry) float64 {
	return entry.Ratio()
}

// TotalRatio returns the compression ratio over all blocks.
func (h *Histogram) TotalRatio() float64 {
	return h.Total().Ratio()
}

// Each calls fn for every non-empty entry in id order.
func (h *Histogram) Each(fn func(id CompressionID, entry Entry)) {
	for i := range h.Entries {
		if h.Entries[i].Empty() {
			continue
		}

		fn(CompressionID(i), h.Entries[i])
	}
}
