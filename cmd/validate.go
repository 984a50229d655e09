package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kamusis/tooldeck/internal/demand"
	"github.com/kamusis/tooldeck/internal/manifest"
	"github.com/kamusis/tooldeck/internal/query"
)

var flagValidateHost bool

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check metadata documents for errors",
	Long: `Parse each metadata document and report every problem: malformed
conditions, duplicate keys, missing id or version, and version ranges
that do not parse.

With --host, also check that the blocks applying to this host do not
supply installers more than once.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&flagValidateHost, "host", false, "Also aggregate each document for this host")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, args []string) error {
	var host query.Context
	if flagValidateHost {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if host, err = hostContext(cfg); err != nil {
			return err
		}
	}

	printSection("Validate")
	bad := 0
	for _, path := range args {
		if !validateFile(path, host) {
			bad++
		}
	}
	if bad > 0 {
		return fmt.Errorf("%d of %d document(s) have errors", bad, len(args))
	}
	return nil
}

// validateFile reports the problems of one document and whether it is clean.
func validateFile(path string, host query.Context) bool {
	doc, err := manifest.ReadFile(path)
	if err != nil {
		printErr(path, err.Error())
		return false
	}
	errs := demand.Validate(doc)
	for _, e := range errs {
		printErr(path, e.Error())
	}
	if len(errs) > 0 {
		return false
	}

	if host != nil {
		if _, err := demand.Aggregate(doc, host); err != nil {
			printErr(path, err.Error())
			return false
		}
	}
	printOK(path, fmt.Sprintf("%s %s", doc.Info.ID, doc.Info.Version))
	return true
}
