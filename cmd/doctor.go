package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kamusis/tooldeck/internal/config"
	"github.com/kamusis/tooldeck/internal/importer"
	"github.com/kamusis/tooldeck/internal/registry"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run pre-flight environment checks",
	Long: `Check that tooldeck's config, host file and registries are usable and
that every registry index is present and current.
Run this command when something seems wrong, or before filing a bug report.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.AddCommand(doctorFixCmd)
	rootCmd.AddCommand(doctorCmd)
}

var doctorFixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Automatically fix detected issues",
	Long: `Fix detected issues in the tooldeck environment.

Currently fixes:
  - Missing registry directories: creates them
  - Missing, malformed or stale indexes: rebuilds them
  - Unresolved import conflicts: deletes all *.conflict-* copies

Run 'tooldeck doctor' first to see what will be fixed.`,
	RunE: runDoctorFix,
}

// indexHealth is the state of one registry's saved index.
type indexHealth struct {
	err   error    // load failure, if any
	stale []string // documents changed after the index was written
}

func (h indexHealth) ok() bool {
	return h.err == nil && len(h.stale) == 0
}

func checkIndex(r *registry.Registry) indexHealth {
	if err := r.Load(); err != nil {
		return indexHealth{err: err}
	}
	return indexHealth{stale: staleDocuments(r)}
}

// staleDocuments returns the documents modified after r's index file.
func staleDocuments(r *registry.Registry) []string {
	info, err := os.Stat(r.IndexPath())
	if err != nil {
		return nil
	}
	targets, err := registry.Discover(r.Root())
	if err != nil {
		return nil
	}
	var stale []string
	for _, t := range targets {
		di, err := os.Stat(filepath.Join(r.Root(), filepath.FromSlash(t)))
		if err == nil && di.ModTime().After(info.ModTime()) {
			stale = append(stale, t)
		}
	}
	return stale
}

func runDoctorFix(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rcs, err := selectedRegistries(cfg)
	if err != nil {
		return err
	}

	printSection("tooldeck doctor fix")

	fmt.Println("\n[ Registries ]")
	var failed, fixed int
	for _, rc := range rcs {
		if _, err := os.Stat(rc.Path); os.IsNotExist(err) {
			if err := os.MkdirAll(rc.Path, 0o755); err != nil {
				printErr(rc.Name, fmt.Sprintf("cannot create %s: %v", rc.Path, err))
				failed++
				continue
			}
			printOK(rc.Name, fmt.Sprintf("created %s", rc.Path))
			fixed++
		}
		r, err := openRegistry(cfg, rc)
		if err != nil {
			printErr(rc.Name, err.Error())
			failed++
			continue
		}
		if checkIndex(r).ok() {
			continue
		}
		if err := reindex(cmd.Context(), r); err != nil {
			printErr(rc.Name, err.Error())
			failed++
			continue
		}
		fixed++
	}

	// ── Fix: delete all .conflict-* copies ────────────────────────────────────
	fmt.Println("\n[ Unresolved conflicts ]")
	for _, rc := range rcs {
		for _, rel := range importer.FindConflicts(rc.Path) {
			full := filepath.Join(rc.Path, filepath.FromSlash(rel))
			if err := os.Remove(full); err != nil {
				printErr(rc.Name, fmt.Sprintf("cannot delete %s: %v", rel, err))
				failed++
			} else {
				printOK(rc.Name, fmt.Sprintf("deleted %s", rel))
				fixed++
			}
		}
	}

	fmt.Println()
	if failed > 0 {
		return fmt.Errorf("%d issue(s) could not be fixed", failed)
	}
	if fixed == 0 {
		printOK("", "nothing to fix")
		return nil
	}
	fmt.Printf("  ✓  %d issue(s) fixed.\n", fixed)
	return nil
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	allOK := true
	failD := func(format string, args ...any) {
		printErr("", fmt.Sprintf(format, args...))
		allOK = false
	}

	printSection("tooldeck doctor")
	fmt.Println()

	// ── Check 1: ~/.tooldeck exists ───────────────────────────────────────────
	fmt.Println("[ tooldeck directory ]")
	dir, err := config.Dir()
	if err != nil {
		failD("cannot determine home directory: %v", err)
	} else {
		cfgPath, _ := config.Path()
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			failD("~/.tooldeck/tooldeck.yaml not found — run 'tooldeck init' first")
		} else {
			printOK("", fmt.Sprintf("~/.tooldeck/ exists: %s", dir))
		}
	}
	fmt.Println()

	// ── Check 2: tooldeck.yaml is valid ───────────────────────────────────────
	fmt.Println("[ tooldeck.yaml ]")
	cfg, loadErr := config.Load()
	if loadErr != nil {
		failD("cannot parse tooldeck.yaml: %v", loadErr)
	} else {
		printOK("", fmt.Sprintf("valid YAML — %d registr(y/ies) defined", len(cfg.Registries)))
		if len(cfg.Registries) == 0 {
			failD("no registries configured")
		}
		seen := make(map[string]bool)
		for _, r := range cfg.Registries {
			if seen[r.Name] {
				printWarn(r.Name, "registry name used more than once; --registry picks the first")
			}
			seen[r.Name] = true
		}
	}
	fmt.Println()

	// ── Check 3: host overrides ───────────────────────────────────────────────
	fmt.Println("[ Host ]")
	if loadErr == nil {
		if _, err := os.Stat(cfg.HostFile); os.IsNotExist(err) {
			printSkip("", fmt.Sprintf("no host file at %s (detected features only)", cfg.HostFile))
		}
		if overrides, err := hostOverrides(cfg); err != nil {
			failD("cannot read host overrides: %v", err)
		} else {
			printOK("", fmt.Sprintf("%d override(s) applied to detected features", len(overrides)))
		}
	} else {
		printWarn("", "skipped (tooldeck.yaml not loaded)")
	}
	fmt.Println()

	// ── Check 4: registries and their indexes ─────────────────────────────────
	fmt.Println("[ Registries ]")
	if loadErr == nil {
		rcs, err := selectedRegistries(cfg)
		if err != nil {
			failD("%v", err)
		}
		for _, rc := range rcs {
			if !doctorRegistry(cmd.Context(), cfg, rc) {
				allOK = false
			}
		}
	} else {
		printWarn("", "skipped (tooldeck.yaml not loaded)")
	}
	fmt.Println()

	// ── Check 5: Unresolved import conflicts ──────────────────────────────────
	fmt.Println("[ Unresolved conflicts ]")
	if loadErr == nil {
		var conflicts []string
		for _, rc := range cfg.Registries {
			for _, c := range importer.FindConflicts(rc.Path) {
				conflicts = append(conflicts, rc.Name+": "+c)
			}
		}
		if len(conflicts) == 0 {
			printOK("", "no unresolved conflict files found")
		} else {
			for _, c := range conflicts {
				printWarn("", c)
			}
			fmt.Printf("\n  ⚠  %d unresolved conflict file(s) found in registries.\n", len(conflicts))
			fmt.Println("     Merge what you need into the original documents,")
			fmt.Println("     then run 'tooldeck doctor fix' to delete the copies.")
			allOK = false
		}
	} else {
		printWarn("", "skipped (tooldeck.yaml not loaded)")
	}
	fmt.Println()

	// ── Summary ───────────────────────────────────────────────────────────────
	fmt.Println("===================")
	if allOK {
		fmt.Println("✓  All checks passed. tooldeck is ready to use.")
	} else {
		fmt.Fprintln(os.Stderr, "✗  One or more checks failed. See details above.")
		fmt.Fprintln(os.Stderr, "   Run 'tooldeck doctor fix' to repair registries and indexes.")
		return fmt.Errorf("doctor found issues")
	}
	return nil
}

// doctorRegistry prints the checks for one registry and reports whether
// it is healthy.
func doctorRegistry(ctx context.Context, cfg *config.Config, rc config.Registry) bool {
	r, err := openRegistry(cfg, rc)
	if err != nil {
		printErr(rc.Name, err.Error())
		return false
	}

	healthy := true
	h := checkIndex(r)
	switch {
	case errors.Is(h.err, registry.ErrNoIndex):
		printWarn(rc.Name, "no index yet (run 'tooldeck index')")
		healthy = false
	case h.err != nil:
		printErr(rc.Name, h.err.Error())
		healthy = false
	case len(h.stale) > 0:
		printWarn(rc.Name, fmt.Sprintf("index is older than %d document(s), e.g. %s", len(h.stale), h.stale[0]))
		healthy = false
	default:
		printOK(rc.Name, fmt.Sprintf("index current — %d document(s)", r.Len()))
	}

	// Scan in a throwaway registry so the loaded index stays untouched.
	scan, err := openRegistry(cfg, rc)
	if err != nil {
		printErr(rc.Name, err.Error())
		return false
	}
	rep, err := scan.Regenerate(ctx)
	if err != nil {
		printErr(rc.Name, fmt.Sprintf("cannot scan: %v", err))
		return false
	}
	for _, p := range rep.Skipped {
		for _, e := range p.Errs {
			printWarn(rc.Name, fmt.Sprintf("%s: %v", p.Target, e))
		}
	}
	if len(rep.Skipped) > 0 {
		healthy = false
	}
	return healthy
}
