package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/idelchi/comphist/internal/comphist"
	"github.com/idelchi/comphist/internal/config"
	"github.com/idelchi/comphist/internal/poolimage"
)

// newLogger returns a stderr logger at the configured level.
func newLogger(level string, debug bool, stderr io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.WarnLevel
	}

	if debug {
		lvl = logrus.DebugLevel
	}

	log.SetLevel(lvl)

	return log
}

// merge applies config defaults to flags the user did not set.
func merge(s settings, cfg *config.Config, flags *pflag.FlagSet) (comphist.Options, string) {
	opt := s.options

	if !flags.Changed("allow-live") {
		opt.AllowLive = cfg.AllowLive
	}

	if !flags.Changed("best-effort") {
		opt.BestEffort = cfg.BestEffort
	}

	if !flags.Changed("json") {
		opt.JSON = strings.EqualFold(cfg.Output, "json")
	}

	root := s.root
	if root == "" {
		root = cfg.Root
	}

	return opt, root
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && isatty.IsTerminal(f.Fd())
}

func logic(ctx context.Context, target string, s settings, flags *pflag.FlagSet, stdout, stderr io.Writer) error {
	cfg, err := config.LoadFile(s.configPath)
	if err != nil {
		return err
	}

	log := newLogger(cfg.Logging.Level, s.debug, stderr)

	opt, root := merge(s, cfg, flags)
	opt.ProgressInterval = cfg.Interval(comphist.DefaultProgressInterval, log)

	log.WithFields(logrus.Fields{
		"target":      target,
		"root":        root,
		"recursive":   opt.Recursive,
		"allow_live":  opt.AllowLive,
		"best_effort": opt.BestEffort,
		"per_dataset": opt.PerDataset,
	}).Debug("starting scan")

	runner := comphist.NewRunner(poolimage.New(root, log), log)

	enableProgress := !opt.JSON && !s.debug && isTerminal(stderr)

	if enableProgress {
		// Hide cursor for in-place updates; restore on exit.
		fmt.Fprint(stderr, "\033[?25l")
		defer fmt.Fprint(stderr, "\033[?25h")

		runner.Progress = func(p comphist.Progress) {
			msg := fmt.Sprintf("Scanning… %s (%d datasets), %d blocks, %s",
				p.Dataset, p.Datasets, p.Blocks, humanize.IBytes(p.LogicalBytes))
			fmt.Fprintf(stderr, "\r\033[2K%s\r", msg)
		}

		// Clear the status line
		defer fmt.Fprint(stderr, "\r\033[2K\r")
	}

	if opt.PerDataset {
		return perDataset(ctx, runner, target, opt, stdout)
	}

	hist, err := runner.RunSingle(ctx, target, opt)
	if err != nil {
		return fmt.Errorf("failed to walk %q: %w", target, err)
	}

	if opt.JSON {
		return PrintSingleJSON(target, opt, hist, stdout)
	}

	return PrintSingleText(target, opt, hist, stdout)
}

// perDataset buffers every dataset's histogram and prints only once the
// whole run succeeded, so a failed dataset yields no partial report.
func perDataset(ctx context.Context, runner *comphist.Runner, target string, opt comphist.Options, stdout io.Writer) error {
	var results []DatasetResult

	err := runner.RunPerDataset(ctx, target, opt, func(name string, hist *comphist.Histogram) error {
		results = append(results, DatasetResult{Name: name, Hist: hist})

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk %q: %w", target, err)
	}

	if opt.JSON {
		return PrintPerDatasetJSON(target, opt, results, stdout)
	}

	return PrintPerDatasetText(target, opt, results, stdout)
}
