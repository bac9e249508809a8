package comphist

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// DatasetFunc receives the histogram of one finished dataset. Returning an
// error aborts the run.
type DatasetFunc func(name string, hist *Histogram) error

// Runner executes scans against a traversal Service.
type Runner struct {
	// Service provides sessions.
	Service Service
	// Logger receives debug output. Nil discards it.
	Logger logrus.FieldLogger
	// Progress, when set, is called synchronously during walks.
	Progress func(Progress)
}

// NewRunner creates a Runner for svc.
func NewRunner(svc Service, log logrus.FieldLogger) *Runner {
	return &Runner{Service: svc, Logger: log}
}

func (r *Runner) logger() logrus.FieldLogger {
	if r.Logger != nil {
		return r.Logger
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	return discard
}

// session validates target, opens a session and runs fn inside it. The
// session is closed exactly once, also when enumeration fails.
func (r *Runner) session(ctx context.Context, target string, opt Options, fn func(*walker) error) (err error) {
	if err := ValidateTarget(target, opt); err != nil {
		return err
	}

	if r.Service == nil {
		return errors.New("no traversal service configured")
	}

	sess, err := r.Service.OpenSession(ctx, SessionRead)
	if err != nil {
		return fmt.Errorf("opening session: %w", err)
	}

	defer func() {
		if cerr := sess.Close(); cerr != nil {
			err = multierror.Append(err, fmt.Errorf("closing session: %w", cerr)).ErrorOrNil()
		}
	}()

	w := &walker{
		sess:     sess,
		opt:      opt,
		log:      r.logger().WithField("target", target),
		progress: r.Progress,
	}

	return fn(w)
}

// RunSingle walks every dataset of target into one shared histogram.
func (r *Runner) RunSingle(ctx context.Context, target string, opt Options) (*Histogram, error) {
	hist := NewHistogram()

	err := r.session(ctx, target, opt, func(w *walker) error {
		names, err := Enumerate(ctx, w.sess, target, opt.Recursive)
		if err != nil {
			return err
		}

		for name, err := range names {
			if err != nil {
				return fmt.Errorf("listing datasets of %q: %w", target, err)
			}

			if err := w.walk(ctx, name, hist); err != nil {
				return err
			}
		}

		w.tick(true)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return hist, nil
}

// RunPerDataset walks every dataset of target into its own histogram and
// hands it to fn. The first failing dataset ends the run; later datasets
// are not walked.
func (r *Runner) RunPerDataset(ctx context.Context, target string, opt Options, fn DatasetFunc) error {
	if fn == nil {
		return errors.New("per-dataset run requires a callback")
	}

	return r.session(ctx, target, opt, func(w *walker) error {
		names, err := Enumerate(ctx, w.sess, target, opt.Recursive)
		if err != nil {
			return err
		}

		for name, err := range names {
			if err != nil {
				return fmt.Errorf("listing datasets of %q: %w", target, err)
			}

			hist := NewHistogram()
			if err := w.walk(ctx, name, hist); err != nil {
				return err
			}

			if err := fn(name, hist); err != nil {
				return fmt.Errorf("%w after %q: %w", ErrAborted, name, err)
			}
		}

		w.tick(true)

		return nil
	})
}
