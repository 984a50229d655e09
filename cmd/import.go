package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kamusis/tooldeck/internal/importer"
)

var (
	flagImportExcludes []string
	flagImportNoIndex  bool
)

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Copy metadata documents from a directory into a registry",
	Long: `Copy every valid metadata document under <dir> into the registry chosen
with --registry (default: the first configured registry), keeping relative
paths.

Identical documents are skipped. A document that differs from one already
in the registry is stored next to it as <name>.conflict-<dir name> for you
to review; it is never indexed. Documents that fail validation are
reported and left out.

The registry index is rebuilt afterwards unless --no-index is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringArrayVar(&flagImportExcludes, "exclude", nil, "Glob of documents to leave out; repeatable")
	importCmd.Flags().BoolVar(&flagImportNoIndex, "no-index", false, "Do not rebuild the registry index")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rcs, err := selectedRegistries(cfg)
	if err != nil {
		return err
	}
	rc := rcs[0]

	src, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	res, err := importer.ImportDir(src, rc.Path, filepath.Base(src), flagImportExcludes)
	if err != nil {
		return fmt.Errorf("import [%s]: %w", rc.Name, err)
	}

	// ── Print grouped output ───────────────────────────────────────────────────
	printSection("Import " + src)
	printOK(rc.Name, fmt.Sprintf("%d document(s) imported, %d identical skipped, %d conflict(s)",
		res.Imported, res.Skipped, len(res.Conflicts)))

	if len(res.Rejected) > 0 {
		printBullet("Rejected (invalid):")
		for _, rj := range res.Rejected {
			for _, e := range rj.Errs {
				printErr(rj.Path, e.Error())
			}
		}
	}

	// ── Post-import conflict report ────────────────────────────────────────────
	if len(res.Conflicts) > 0 {
		fmt.Printf("\n⚠  %d conflict(s) detected during import.\n", len(res.Conflicts))
		fmt.Printf("   All versions have been preserved in %s.\n", rc.Path)
		fmt.Println("   Please review and resolve the following files manually:")
		for _, c := range res.Conflicts {
			fmt.Printf("     - %s  ← conflicts with %s\n", c.Conflict, c.Original)
		}
	}

	if flagImportNoIndex || res.Imported == 0 {
		return nil
	}
	fmt.Println()
	r, err := openRegistry(cfg, rc)
	if err != nil {
		return err
	}
	return reindex(cmd.Context(), r)
}
