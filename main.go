// Command comphist reports per-compression-algorithm space statistics.
package main

import (
	"fmt"
	"os"

	"github.com/idelchi/comphist/internal/cli"
)

// version is set at build time.
//
//nolint:gochecknoglobals // Set by ldflags
var version = "0.1.0-dev"

func main() {
	if err := cli.New(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "comphist: %v\n", err)
		os.Exit(cli.ExitCode(err))
	}
}
