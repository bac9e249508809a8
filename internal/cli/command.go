package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/idelchi/comphist/internal/comphist"
)

// DefaultConfigPath is read when --config is not given.
const DefaultConfigPath = "/etc/comphist/config.yaml"

// errUsage marks command-line misuse.
var errUsage = errors.New("usage error")

// CLI represents the command-line interface.
type CLI struct {
	version string
}

// New creates a new CLI instance with the given version.
func New(version string) CLI {
	return CLI{version: version}
}

// settings are the parsed flags before config defaults are merged in.
type settings struct {
	options    comphist.Options
	root       string
	configPath string
	debug      bool
}

//nolint:gochecknoglobals // Help text
var longHelp = heredoc.Doc(`
	comphist reports how much space each compression algorithm accounts for
	in a pool, a dataset or a snapshot, by walking every block pointer.

	Targets:
	  Pool targets scan all datasets in the pool and require --allow-live.
	  Dataset targets require an @snapshot or --allow-live; -r includes children.
	  Bookmarks are not supported.

	Columns:
	  Logical_B is the uncompressed size, Physical_B the compressed size and
	  Allocated_B the on-disk allocation of each block pointer.
`)

func bindFlags(fs *pflag.FlagSet, s *settings) {
	fs.BoolVarP(&s.options.Recursive, "recursive", "r", false, "Recurse into child datasets (dataset targets only)")
	fs.BoolVarP(&s.options.PerDataset, "per-dataset", "p", false, "Print one table per dataset")
	fs.BoolVar(&s.options.AllowLive, "allow-live", false, "Allow live (non-snapshot) traversal")
	fs.BoolVar(&s.options.BestEffort, "best-effort", false, "Continue past I/O, checksum and device errors")
	fs.BoolVar(&s.options.JSON, "json", false, "Emit JSON output")
	fs.StringVar(&s.root, "root", "", "Pool image directory (overrides config)")
	fs.StringVar(&s.configPath, "config", DefaultConfigPath, "Configuration file (YAML or TOML)")
	fs.BoolVar(&s.debug, "debug", false, "Enable debug output")
	fs.SortFlags = false
}

// Command builds the root command writing to stdout and stderr.
func (c CLI) Command(stdout, stderr io.Writer) *cobra.Command {
	var s settings

	cmd := &cobra.Command{
		Use:           "comphist [flags] <pool|dataset|dataset@snapshot>",
		Short:         "Per-compression block statistics for pools and datasets",
		Long:          longHelp,
		Version:       c.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("%w: expected exactly one target, got %d", errUsage, len(args))
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return logic(cmd.Context(), args[0], s, cmd.Flags(), stdout, stderr)
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", errUsage, err)
	})

	bindFlags(cmd.Flags(), &s)

	return cmd
}

// Execute runs the CLI with the process arguments.
func (c CLI) Execute() error {
	return c.Command(os.Stdout, os.Stderr).Execute()
}

// ExitCode maps an error returned by Execute onto a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, comphist.ErrInvalidTarget):
		return 2
	default:
		return 1
	}
}
