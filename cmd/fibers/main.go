// Command fibers renders element documents through the reconciliation
// engine and serves a live demo of incremental commits.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vango-dev/fibers/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fibers",
		Short: "Incremental UI reconciliation engine",
		Long: `fibers reconciles declarative element trees against the last
committed tree and applies the difference to a host tree.

Rendering is split into units of work that run in idle slices, and
every render ends in a single uninterrupted commit.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var noColor bool
	rootCmd.PersistentPreRun = func(*cobra.Command, []string) {
		if noColor {
			errors.DisableColors()
		}
	}
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default: fibers.yaml or fibers.json in the working directory)")

	rootCmd.AddCommand(
		renderCmd(),
		serveCmd(),
		watchCmd(),
		versionCmd(),
	)
	return rootCmd
}

var checkMark = color.New(color.FgGreen)

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", checkMark.Sprint("✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "  %s\n", fmt.Sprintf(format, args...))
}
