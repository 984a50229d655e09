package cmd

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kamusis/tooldeck/internal/config"
	"github.com/kamusis/tooldeck/internal/registry"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show each registry and the state of its index",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rcs, err := selectedRegistries(cfg)
	if err != nil {
		return err
	}

	// Sort registries alphabetically by name; lookup order is unaffected.
	sorted := make([]config.Registry, len(rcs))
	copy(sorted, rcs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	fmt.Println("=== Registry Health ===")

	var indexed, needIndex, stale, missing, broken []string
	documents := 0
	for _, rc := range sorted {
		if _, err := os.Stat(rc.Path); os.IsNotExist(err) {
			missing = append(missing, fmt.Sprintf("  -  [%s] %s  (run: tooldeck doctor fix)", rc.Name, rc.Path))
			continue
		}
		r, err := openRegistry(cfg, rc)
		if err != nil {
			broken = append(broken, fmt.Sprintf("  ✗  [%s] %v", rc.Name, err))
			continue
		}

		h := checkIndex(r)
		switch {
		case errors.Is(h.err, registry.ErrNoIndex):
			needIndex = append(needIndex, fmt.Sprintf("  ○  [%s] not indexed  (run: tooldeck index --registry %s)", rc.Name, rc.Name))
		case h.err != nil:
			broken = append(broken, fmt.Sprintf("  ✗  [%s] %v", rc.Name, h.err))
		case len(h.stale) > 0:
			stale = append(stale, fmt.Sprintf("  ⚠  [%s] %d document(s) changed since last index", rc.Name, len(h.stale)))
		default:
			documents += r.Len()
			indexed = append(indexed, fmt.Sprintf("  ✓  [%s] %d document(s)  %s", rc.Name, r.Len(), rc.Path))
		}
	}

	printGroup("Indexed", indexed)
	printGroup("Stale index", stale)
	printGroup("Not indexed", needIndex)
	printGroup("Missing directory", missing)
	printGroup("Broken", broken)

	fmt.Printf("\n%d registr(y/ies), %d indexed document(s)\n", len(sorted), documents)
	return nil
}

func printGroup(title string, lines []string) {
	if len(lines) == 0 {
		return
	}
	printBullet(title + ":")
	for _, l := range lines {
		fmt.Println(l)
	}
}
