package main

import (
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"hookbox/internal/rule"
	"hookbox/internal/security"
	"hookbox/pkg/cmdutil"

	"github.com/spf13/cobra"
)

var (
	checkConfigFile string
	checkStrict     bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a configuration file",
	Long: `Load and validate a configuration file, then print its rules in evaluation
order together with the rule set fingerprint reported by /health.

With --strict, warnings (weak secret, world-readable config) are errors.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkConfigFile, "config", "c", getEnvOrDefault("HOOKBOX_CONFIG_FILE", ""), "Path to hookbox.yaml configuration file")
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "Treat warnings as errors")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(checkConfigFile)
	if err != nil {
		return err
	}

	rules, err := cfg.BuildRules(slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	if err != nil {
		return err
	}
	set, err := rule.NewSet(rules...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config:      %s\n", cfg.File)
	fmt.Fprintf(out, "Path:        %s\n", cfg.Path)
	fmt.Fprintf(out, "Fingerprint: %s\n\n", set.Fingerprint())

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tEVENT\tPATTERN\tCOMMAND")
	for i, r := range set.Rules() {
		command, _ := cmdutil.ParseCommandList(cfg.Rules[i].Command)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name(), r.Event(), displayPattern(r.Pattern()), cmdutil.FormatCommand(command))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	warnings := cfg.Warnings
	if checkStrict {
		if err := security.ValidateSecret(cfg.Secret); err != nil {
			warnings = append(warnings, err.Error())
		}
	}

	if len(warnings) > 0 {
		fmt.Fprintln(out)
		for _, w := range warnings {
			fmt.Fprintf(out, "WARNING: %s\n", w)
		}
		if checkStrict {
			return fmt.Errorf("%d warning(s) in strict mode", len(warnings))
		}
	}

	return nil
}

func displayPattern(p string) string {
	if p == "" {
		return "(any)"
	}
	return p
}
