package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kamusis/tooldeck/internal/hostctx"
	"github.com/kamusis/tooldeck/internal/query"
)

var hostCmd = &cobra.Command{
	Use:   "host [condition...]",
	Short: "Show the host features conditions are evaluated against",
	Long: `Print the detected host features, then the overrides from host.env
and --set applied on top.

Given conditions, report whether each one applies to this host.

Example:
  tooldeck host
  tooldeck host "windows and x64" "linux, osx" --set windows`,
	RunE: runHost,
}

func init() {
	rootCmd.AddCommand(hostCmd)
}

func runHost(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	overrides, err := hostOverrides(cfg)
	if err != nil {
		return err
	}
	detected := hostctx.Detect()
	host := overrides.Apply(detected)

	printSection("Host")
	p := hostctx.Current()
	printInfo("", fmt.Sprintf("platform %s/%s", p.OS, p.Arch))
	for _, line := range hostctx.Describe(detected) {
		fmt.Printf("  %s\n", line)
	}

	if len(overrides) > 0 {
		printBullet("Overrides:")
		keys := make([]string, 0, len(overrides))
		for k := range overrides {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if v := overrides[k]; v == nil {
				printMiss(k, "removed")
			} else {
				printInfo(k, fmt.Sprintf("%v", v))
			}
		}
	}

	if len(args) == 0 {
		return nil
	}
	printSection("Conditions")
	bad := 0
	for _, text := range args {
		l := query.Parse(text)
		switch {
		case l.Err != nil:
			printErr(text, l.Err.Error())
			bad++
		case l.Match(host):
			printOK(text, "applies")
		default:
			printSkip(text, "does not apply")
		}
	}
	if bad > 0 {
		return fmt.Errorf("%d condition(s) did not parse", bad)
	}
	return nil
}
