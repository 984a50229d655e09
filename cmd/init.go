package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kamusis/tooldeck/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap ~/.tooldeck with a config, a host file and a local registry",
	Long: `Initialize tooldeck at ~/.tooldeck/.

Writes tooldeck.yaml and a commented host.env template when they are
missing, and creates the directory of every configured registry.
Existing files are never overwritten.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(_ *cobra.Command, _ []string) error {
	// ── 1. Resolve ~/.tooldeck directory ──────────────────────────────────────
	dir, err := config.Dir()
	if err != nil {
		return err
	}
	cfgPath, err := config.Path()
	if err != nil {
		return err
	}

	// ── 2. Create ~/.tooldeck/ if it doesn't exist ───────────────────────────
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}
	printOK("", fmt.Sprintf("tooldeck directory ready: %s", dir))

	// ── 3. Write tooldeck.yaml if missing ─────────────────────────────────────
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfg, err := config.DefaultConfig()
		if err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		printOK("", fmt.Sprintf("Config written: %s", cfgPath))
	} else {
		printSkip("", fmt.Sprintf("Config already exists: %s", cfgPath))
	}

	// ── 4. Load final config ──────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// ── 5. Host overrides template ────────────────────────────────────────────
	if _, err := os.Stat(cfg.HostFile); os.IsNotExist(err) {
		if err := config.EnsureHostTemplate(cfg.HostFile); err != nil {
			return err
		}
		printOK("", fmt.Sprintf("Host file written: %s", cfg.HostFile))
	} else {
		printSkip("", fmt.Sprintf("Host file already exists: %s", cfg.HostFile))
	}

	// ── 6. Registry directories ───────────────────────────────────────────────
	for _, r := range cfg.Registries {
		if info, err := os.Stat(r.Path); err == nil && info.IsDir() {
			printSkip(r.Name, fmt.Sprintf("registry exists: %s", r.Path))
			continue
		}
		if err := os.MkdirAll(r.Path, 0o755); err != nil {
			return fmt.Errorf("cannot create registry %s: %w", r.Name, err)
		}
		printOK(r.Name, fmt.Sprintf("registry created: %s", r.Path))
	}

	fmt.Println("\n✓  tooldeck init complete. Add metadata documents to a registry, then run 'tooldeck index'.")
	return nil
}
