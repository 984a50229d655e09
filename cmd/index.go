package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kamusis/tooldeck/internal/registry"
)

var (
	flagIndexWatch    bool
	flagIndexDebounce time.Duration
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild and save the catalog index of each registry",
	Long: `Scan every metadata document in the configured registries, validate
it and write the catalog index (tooldeck-index.yaml) at the registry root.

Documents that fail to parse or validate are reported and left out.

With --watch, the index is rebuilt whenever a document changes, until
interrupted.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagIndexWatch, "watch", false, "Keep running and re-index on document changes")
	indexCmd.Flags().DurationVar(&flagIndexDebounce, "debounce", 300*time.Millisecond, "Quiet period before a change triggers re-indexing")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rcs, err := selectedRegistries(cfg)
	if err != nil {
		return err
	}

	printSection("Index")
	var regs []*registry.Registry
	failed := 0
	for _, rc := range rcs {
		r, err := openRegistry(cfg, rc)
		if err != nil {
			printErr(rc.Name, err.Error())
			failed++
			continue
		}
		if err := reindex(cmd.Context(), r); err != nil {
			printErr(rc.Name, err.Error())
			failed++
			continue
		}
		regs = append(regs, r)
	}

	if flagIndexWatch {
		return watchRegistries(cmd.Context(), regs)
	}
	if failed > 0 {
		return fmt.Errorf("%d registr(y/ies) could not be indexed", failed)
	}
	return nil
}

// reindex regenerates r's catalog, reports skipped documents and saves
// the index.
func reindex(ctx context.Context, r *registry.Registry) error {
	rep, err := r.Regenerate(ctx)
	if err != nil {
		return err
	}
	for _, p := range rep.Skipped {
		for _, e := range p.Errs {
			printWarn(r.Name(), fmt.Sprintf("%s: %v", p.Target, e))
		}
	}
	if err := r.Save(); err != nil {
		return fmt.Errorf("cannot save index: %w", err)
	}
	printOK(r.Name(), fmt.Sprintf("%d of %d document(s) indexed → %s", rep.Indexed, rep.Scanned, r.IndexPath()))
	return nil
}

func watchRegistries(ctx context.Context, regs []*registry.Registry) error {
	if len(regs) == 0 {
		return fmt.Errorf("nothing to watch")
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	type change struct {
		reg *registry.Registry
		registry.Change
	}
	merged := make(chan change)
	for _, r := range regs {
		w, err := r.NewWatcher(flagIndexDebounce)
		if err != nil {
			return err
		}
		if err := w.Start(); err != nil {
			w.Stop()
			return fmt.Errorf("cannot watch %s: %w", r.Root(), err)
		}
		defer w.Stop()
		go func(r *registry.Registry, w *registry.Watcher) {
			for c := range w.Changes {
				select {
				case merged <- change{reg: r, Change: c}:
				case <-ctx.Done():
				}
			}
		}(r, w)
	}

	printInfo("", "watching for changes (Ctrl+C to stop)")
	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			printOK("", "watch stopped")
			return nil
		case c := <-merged:
			printInfo(c.reg.Name(), fmt.Sprintf("%s %s", c.Kind, relTo(c.reg.Root(), c.File)))
			if err := reindex(ctx, c.reg); err != nil {
				printErr(c.reg.Name(), err.Error())
			}
		}
	}
}

func relTo(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
