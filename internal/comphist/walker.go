package comphist

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// walker streams the block trees of one run into histograms.
type walker struct {
	sess     Session
	opt      Options
	log      logrus.FieldLogger
	progress func(Progress)

	state    Progress
	lastTick time.Time
}

// visit returns the per-block callback for hist.
func (w *walker) visit(hist *Histogram) func(BlockRecord) error {
	return func(rec BlockRecord) error {
		if rec.Level == DnodeLevel {
			return nil
		}

		hist.Add(rec)

		w.state.Blocks++
		if !rec.Hole && !rec.Redacted {
			w.state.LogicalBytes += rec.LogicalSize
		}

		w.tick(false)

		return nil
	}
}

// tick reports progress when the interval elapsed or force is set.
func (w *walker) tick(force bool) {
	if w.progress == nil {
		return
	}

	interval := w.opt.ProgressInterval
	if interval <= 0 {
		interval = DefaultProgressInterval
	}

	if !force && time.Since(w.lastTick) < interval {
		return
	}

	w.lastTick = time.Now()
	w.progress(w.state)
}

// walk accumulates one dataset into hist. The dataset hold is released on
// every path.
func (w *walker) walk(ctx context.Context, name string, hist *Histogram) error {
	ds, err := w.sess.AcquireDataset(ctx, name)
	if err != nil {
		return &WalkError{Dataset: name, Err: err}
	}
	defer ds.Release()

	w.state.Dataset = name
	w.state.Datasets++
	w.tick(true)

	log := w.log.WithField("dataset", name)
	log.Debug("traversing dataset")

	if err := w.traverse(ctx, ds, hist, log); err != nil {
		return &WalkError{Dataset: name, Err: err}
	}

	log.WithFields(logrus.Fields{
		"blocks":  hist.Blocks,
		"logical": humanize.IBytes(hist.LogicalBytes),
		"errors":  hist.TraversalErrors,
	}).Debug("dataset done")

	return nil
}

// traverse runs the retry loop. Every failed attempt is counted. Under best
// effort, recoverable failures resume one position past the failure.
// The checkpoint only moves forward and is bounded by MaxPosition.
func (w *walker) traverse(ctx context.Context, ds Dataset, hist *Histogram, log logrus.FieldLogger) error {
	flags := TraversePre | TraversePrefetchMetadata | TraverseNoDecrypt
	visit := w.visit(hist)

	if !w.opt.BestEffort {
		if err := ds.Traverse(ctx, nil, flags, visit); err != nil {
			hist.NoteTraversalError()

			return err
		}

		return nil
	}

	flags |= TraverseHard
	cp := &Checkpoint{}

	for {
		from := cp.Position

		err := ds.Traverse(ctx, cp, flags, visit)
		if err == nil {
			return nil
		}

		hist.NoteTraversalError()

		if !IsRecoverable(err) {
			return err
		}

		if cp.Position < from {
			cp.Position = from
		}

		if cp.Exhausted() {
			return err
		}

		log.WithFields(logrus.Fields{
			"position": cp.Position,
			"error":    err,
		}).Debug("skipping damaged block")

		cp.Advance()
	}
}
