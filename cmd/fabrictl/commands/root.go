// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the fabrictl CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fabrictl",
		Short:         "Provision and verify Fabric observability resources",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(Reconcile())
	cmd.AddCommand(Verify())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
