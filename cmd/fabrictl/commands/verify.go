package commands

import (
	"github.com/spf13/cobra"

	"github.com/zojovano/azuresamples-fabric-observability-sub000/cmd/fabrictl/handlers"
)

// Verify returns the command that runs the verification pipeline.
//
// Optional flags:
//
//	--config, -c:      Path to configuration YAML file (default: fabric.yaml)
//	--gate-threshold:  Passes required before gated stages run (-1 = from config)
//	--tags:            Only run stages carrying one of these tags
//	--skip-slow:       Skip gated (expensive) stages entirely
//	--report:          Report file path override
//	--format:          Report format override (json, junit, table)
func Verify() *cobra.Command {
	flags := handlers.VerifyFlags{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run the gated verification pipeline",
		Long: `Run the ordered verification pipeline against the declared topology.

Foundational control-plane stages run first. Expensive data-plane
stages only run once enough foundational stages have passed, so a
broken environment fails fast instead of waiting out long poll budgets.

Examples:
  # Full verification with the configured gate
  fabrictl verify -c fabric.yaml

  # Quick control-plane-only check
  fabrictl verify -c fabric.yaml --tags control-plane --skip-slow

  # Emit a JUnit report for CI
  fabrictl verify -c fabric.yaml --report report.xml --format junit`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Verify(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.ConfigPath, "config", "c", "fabric.yaml", "Path to configuration file")
	cmd.Flags().IntVar(&flags.GateThreshold, "gate-threshold", -1, "Passes required before gated stages run (-1 = from config)")
	cmd.Flags().StringSliceVar(&flags.Tags, "tags", nil, "Only run stages carrying one of these tags")
	cmd.Flags().BoolVar(&flags.SkipSlow, "skip-slow", false, "Skip gated (expensive) stages")
	cmd.Flags().StringVar(&flags.ReportPath, "report", "", "Report file path (overrides config)")
	cmd.Flags().StringVar(&flags.Format, "format", "", "Report format: json, junit or table (overrides config)")

	return cmd
}
