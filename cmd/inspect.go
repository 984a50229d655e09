package cmd

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kamusis/tooldeck/internal/demand"
	"github.com/kamusis/tooldeck/internal/manifest"
	"github.com/kamusis/tooldeck/internal/query"
	"github.com/kamusis/tooldeck/internal/registry"
	"github.com/kamusis/tooldeck/internal/resolve"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <id> [range]",
	Short: "Show an artifact and what it demands on this host",
	Long: `Display a formatted summary of an artifact: its metadata, contacts,
the conditional blocks that apply to this host and the merged demand
(requires, installers, settings, messages).

The highest version satisfying the optional range is shown.

Example:
  tooldeck inspect compilers/gnu/gcc
  tooldeck inspect compilers/gnu/gcc "<12" --set windows --set x64`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
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
	a, from, err := findArtifact(cmd.Context(), regs, args[0], versionRange)
	if err != nil {
		return err
	}
	printInspect(a, from, host)
	return nil
}

// printInspect displays the formatted inspection output for one artifact.
func printInspect(a *resolve.Artifact, from *registry.Registry, host query.Context) {
	d := a.Document
	fmt.Printf("📦 Artifact: %s\n", a.ID)
	fmt.Printf("Version:  %s\n", a.Version)
	if s := summaryOf(d); s != "" {
		fmt.Printf("Summary:  %s\n", s)
	}
	if len(d.Info.Options) > 0 {
		fmt.Printf("Options:  %s\n", strings.Join(d.Info.Options, ", "))
	}

	if len(d.Contacts) > 0 {
		fmt.Println("\nContacts:")
		for _, c := range d.Contacts {
			line := c.Name
			if len(c.Role) > 0 {
				line += " (" + strings.Join(c.Role, ", ") + ")"
			}
			if len(c.Email) > 0 {
				line += " <" + strings.Join(c.Email, ", ") + ">"
			}
			fmt.Printf("  - %s\n", line)
		}
	}

	if len(d.Entries) > 0 {
		fmt.Println("\nConditions:")
		for _, e := range d.Entries {
			l := query.Parse(e.Query)
			status := "✗ no match"
			switch {
			case l.Err != nil:
				status = "⚠ invalid: " + l.Err.Message
			case l.Match(host):
				status = "✓ applies"
			}
			fmt.Printf("  %-30s %s\n", e.Query, status)
		}
	}

	eff, err := demand.Aggregate(d, host)
	if err != nil {
		fmt.Printf("\n✗  %v\n", err)
	} else {
		printEffective(eff)
	}

	fmt.Printf("\nRegistry: %s\n", from.Name())
	fmt.Printf("Path: %s\n", filepath.Join(from.Root(), filepath.FromSlash(a.Target)))
}

func printEffective(eff *demand.Effective) {
	if eff.Requires.Len() > 0 {
		fmt.Println("\nRequires:")
		for _, id := range eff.Requires.Keys() {
			rng, _ := eff.Requires.Get(id)
			if demand.IsAnyVersion(rng) {
				rng = "*"
			}
			fmt.Printf("  - %-30s %s\n", id, rng)
		}
	}
	if eff.SeeAlso.Len() > 0 {
		fmt.Println("\nSee also:")
		for _, id := range eff.SeeAlso.Keys() {
			rng, _ := eff.SeeAlso.Get(id)
			fmt.Printf("  - %-30s %s\n", id, rng)
		}
	}
	if len(eff.Install) > 0 {
		fmt.Println("\nInstall:")
		for _, in := range eff.Install {
			fmt.Printf("  - %s\n", describeInstaller(in))
		}
	}
	if settings := describeSettings(eff.Settings); len(settings) > 0 {
		fmt.Println("\nSettings:")
		for _, s := range settings {
			fmt.Printf("  - %s\n", s)
		}
	}
	for _, m := range eff.Messages {
		fmt.Printf("\n~  %s\n", m)
	}
	for _, w := range eff.Warnings {
		fmt.Printf("\n⚠  %s\n", w)
	}
	for _, e := range eff.Errors {
		fmt.Printf("\n✗  %s\n", e)
	}
}

// describeInstaller renders an installer as "kind location [checks]".
func describeInstaller(in manifest.Installer) string {
	kind := in.Kind()
	if kind == "" {
		return "(no source)"
	}
	parts := []string{kind, in.Location()}
	switch {
	case in.SHA512 != "":
		parts = append(parts, "sha512")
	case in.SHA256 != "":
		parts = append(parts, "sha256")
	}
	if in.Commit != "" {
		parts = append(parts, "@"+in.Commit)
	}
	if in.Strip > 0 {
		parts = append(parts, fmt.Sprintf("strip=%d", in.Strip))
	}
	return strings.Join(parts, " ")
}

// describeSettings flattens the settings of every selected block into
// sorted "kind name" lines.
func describeSettings(all []manifest.Settings) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(kind string, names []string) {
		for _, n := range names {
			line := kind + " " + n
			if !seen[line] {
				seen[line] = true
				out = append(out, line)
			}
		}
	}
	for _, s := range all {
		add("path", mapKeys(s.Paths))
		add("tool", mapKeys(s.Tools))
		add("variable", mapKeys(s.Variables))
		add("property", mapKeys(s.Properties))
		add("define", mapKeys(s.Defines))
	}
	sort.Strings(out)
	return out
}

func mapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
