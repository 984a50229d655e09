package cmd

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kamusis/tooldeck/internal/resolve"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <id> [range]",
	Short: "Resolve everything an artifact transitively requires on this host",
	Long: `Select the artifact, then walk its requires as they apply to this host,
looking each one up across the configured registries in order.

Dependencies are listed depth first in the order they are first reached.

Example:
  tooldeck resolve compilers/gnu/gcc
  tooldeck resolve compilers/gnu/gcc ">=12" --set windows`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	host, err := hostContext(cfg)
	if err != nil {
		return err
	}
	regs, err := openRegistries(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	versionRange := ""
	if len(args) == 2 {
		versionRange = args[1]
	}
	root, _, err := findArtifact(cmd.Context(), regs, args[0], versionRange)
	if err != nil {
		return err
	}

	r := resolve.New(lookupChain(regs), host,
		resolve.WithLogger(logger),
		resolve.WithConcurrency(cfg.Concurrency))
	set, err := r.Resolve(cmd.Context(), root)
	if err != nil {
		if errors.Is(err, resolve.ErrUnresolvedDependency) {
			return fmt.Errorf("%w\nTip: check 'tooldeck host' or add the registry that provides it.", err)
		}
		return err
	}

	printSection("Resolve " + root.Key())
	if set.Len() == 0 {
		printSkip("", "no dependencies on this host")
		return nil
	}
	printResolved(set)
	return nil
}

func printResolved(set *resolve.Set) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for i, m := range set.Members() {
		install := "(nothing to install)"
		if len(m.Demand.Install) > 0 {
			install = describeInstaller(m.Demand.Install[0])
		}
		fmt.Fprintf(w, "  %d.\t%s\t%s\t%s\n", i+1, m.Artifact.ID, m.Artifact.Version, install)
	}
	_ = w.Flush()

	for _, m := range set.Members() {
		for _, e := range m.Demand.Errors {
			printErr(m.Artifact.Key(), e)
		}
		for _, wn := range m.Demand.Warnings {
			printWarn(m.Artifact.Key(), wn)
		}
	}
	fmt.Printf("\n✓  %d artifact(s) required.\n", set.Len())
}
