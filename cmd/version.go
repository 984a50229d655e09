package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/kamusis/tooldeck/internal/hostctx"
	"github.com/kamusis/tooldeck/internal/registry"
)

// Set at release time with
//
//	-ldflags "-X github.com/kamusis/tooldeck/cmd.version=v1.2.0 -X github.com/kamusis/tooldeck/cmd.commit=... -X github.com/kamusis/tooldeck/cmd.buildDate=..."
var (
	version   = "dev"
	commit    = ""
	buildDate = ""
)

var flagVersionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show tooldeck version and build information",
	Long: `Print the tooldeck release, the commit and date it was built from, the
Go toolchain, the platform conditions are evaluated for, and the name of
the index file registries are saved to.

With --short, print only the release.`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

func init() {
	versionCmd.Flags().BoolVar(&flagVersionShort, "short", false, "Print only the version")
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, _ []string) error {
	printVersion(cmd.OutOrStdout(), flagVersionShort)
	return nil
}

func printVersion(w io.Writer, short bool) {
	if short {
		fmt.Fprintln(w, version)
		return
	}
	p := hostctx.Current()
	fmt.Fprintf(w, "Version:    %s\n", version)
	fmt.Fprintf(w, "Commit:     %s\n", emptyAsNA(commit))
	fmt.Fprintf(w, "Build Date: %s\n", emptyAsNA(buildDate))
	fmt.Fprintf(w, "Go Version: %s\n", runtime.Version())
	fmt.Fprintf(w, "Host:       %s/%s\n", p.OS, p.Arch)
	fmt.Fprintf(w, "Index File: %s\n", registry.IndexFileName)
}

func emptyAsNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}
