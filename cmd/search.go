package cmd

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kamusis/tooldeck/internal/catalog"
	"github.com/kamusis/tooldeck/internal/manifest"
	"github.com/kamusis/tooldeck/internal/registry"
)

var (
	flagSearchID       string
	flagSearchMin      string
	flagSearchBelow    string
	flagSearchRequires string
	flagSearchContact  string
	flagSearchRegexp   string
	flagSearchK        int
	flagSearchValues   string
)

var searchCmd = &cobra.Command{
	Use:   "search [text...]",
	Short: "Search the catalog of every registry",
	Long: `Search artifact metadata across the configured registries.

Free text matches documents where every word appears in the id, the
summary or the description. Flags narrow the result further. Results are
sorted by id.

Example:
  tooldeck search compiler
  tooldeck search --requires tools/kitware/cmake
  tooldeck search --id-regexp '^compilers/' --min-version 12
  tooldeck search --values requires`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&flagSearchID, "id-prefix", "", "Only ids starting with this prefix")
	searchCmd.Flags().StringVar(&flagSearchMin, "min-version", "", "Only versions at or above this version")
	searchCmd.Flags().StringVar(&flagSearchBelow, "below-version", "", "Only versions below this version")
	searchCmd.Flags().StringVar(&flagSearchRequires, "requires", "", "Only artifacts that require this id")
	searchCmd.Flags().StringVar(&flagSearchContact, "contact", "", "Only artifacts whose contact e-mail contains this word")
	searchCmd.Flags().StringVar(&flagSearchRegexp, "id-regexp", "", "Only ids matching this regular expression")
	searchCmd.Flags().IntVar(&flagSearchK, "k", 0, "Maximum number of results per registry (0 = all)")
	searchCmd.Flags().StringVar(&flagSearchValues, "values", "", "List the distinct values of an index key instead of searching")
	rootCmd.AddCommand(searchCmd)
}

// searchFilter is the set of constraints applied to one registry.
type searchFilter struct {
	Text     string
	IDPrefix string
	Min      string
	Below    string
	Requires string
	Contact  string
	IDRegexp *regexp.Regexp
}

func (f searchFilter) isEmpty() bool {
	return f.Text == "" && f.IDPrefix == "" && f.Min == "" && f.Below == "" &&
		f.Requires == "" && f.Contact == "" && f.IDRegexp == nil
}

// searchRegistry returns the targets of r that satisfy f, sorted by id.
func searchRegistry(r *registry.Registry, f searchFilter) []string {
	c := r.Where()
	if f.IDPrefix != "" {
		c = c.StartsWith(registry.KeyID, f.IDPrefix)
	}
	if f.IDRegexp != nil {
		c = c.MatchRegexp(registry.KeyID, f.IDRegexp)
	}
	if f.Min != "" {
		c = c.GreaterThan(registry.KeyVersion, f.Min)
	}
	if f.Below != "" {
		c = c.LessThan(registry.KeyVersion, f.Below)
	}
	if f.Requires != "" {
		c = c.Equals(registry.KeyRequires, f.Requires)
	}
	if f.Contact != "" {
		c = c.Contains(registry.KeyContactEmail, f.Contact)
	}

	targets := c.Targets()
	// Every word must appear in at least one of the free-text keys.
	for _, word := range catalog.Tokenize(f.Text) {
		hit := make(map[string]bool)
		for _, key := range []string{registry.KeyID, registry.KeySummary, registry.KeyDescription} {
			for _, t := range c.Clone().Contains(key, word).Targets() {
				hit[t] = true
			}
		}
		kept := targets[:0]
		for _, t := range targets {
			if hit[t] {
				kept = append(kept, t)
			}
		}
		targets = kept
	}
	sortByID(r, targets)
	return targets
}

// sortByID orders targets by artifact id, then by target. Unreadable
// targets sort by target alone.
func sortByID(r *registry.Registry, targets []string) {
	ids := make(map[string]string, len(targets))
	for _, t := range targets {
		if a, err := r.Artifact(t); err == nil {
			ids[t] = a.ID
		}
	}
	sort.SliceStable(targets, func(i, j int) bool {
		a, b := ids[targets[i]], ids[targets[j]]
		if a != b {
			return a < b
		}
		return targets[i] < targets[j]
	})
}

func runSearch(cmd *cobra.Command, args []string) error {
	f := searchFilter{
		Text:     strings.Join(args, " "),
		IDPrefix: flagSearchID,
		Min:      flagSearchMin,
		Below:    flagSearchBelow,
		Requires: flagSearchRequires,
		Contact:  flagSearchContact,
	}
	if flagSearchRegexp != "" {
		re, err := regexp.Compile(flagSearchRegexp)
		if err != nil {
			return fmt.Errorf("invalid --id-regexp: %w", err)
		}
		f.IDRegexp = re
	}
	if f.isEmpty() && flagSearchValues == "" {
		return cmd.Help()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	regs, err := openRegistries(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	if flagSearchValues != "" {
		printKeyValues(regs, flagSearchValues)
		return nil
	}

	fmt.Printf("\ntooldeck search %q\n", f.Text)
	total := 0
	for _, r := range regs {
		targets := searchRegistry(r, f)
		if flagSearchK > 0 && len(targets) > flagSearchK {
			targets = targets[:flagSearchK]
		}
		total += len(targets)
		printSearchResults(r, targets)
	}
	fmt.Printf("\nResults (%d found)\n", total)
	return nil
}

func printSearchResults(r *registry.Registry, targets []string) {
	if len(targets) == 0 {
		return
	}
	fmt.Printf("\n%s (%d):\n", r.Name(), len(targets))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for i, t := range targets {
		a, err := r.Artifact(t)
		if err != nil {
			fmt.Fprintf(w, "  %d.\t%s\t(unreadable: %v)\n", i+1, t, err)
			continue
		}
		fmt.Fprintf(w, "  %d.\t%s\t%s\t%s\n", i+1, a.ID, a.Version, t)
		if s := summaryOf(a.Document); s != "" {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
	_ = w.Flush()
}

// printKeyValues lists the distinct indexed values of key per registry.
func printKeyValues(regs []*registry.Registry, key string) {
	for _, r := range regs {
		values := r.Values(key)
		fmt.Printf("\n%s %s (%d):\n", r.Name(), key, len(values))
		for _, v := range values {
			fmt.Printf("  - %s\n", v)
		}
	}
}

func summaryOf(d *manifest.Document) string {
	s := d.Info.Summary
	if s == "" {
		s = d.Info.Description
	}
	return strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
}
