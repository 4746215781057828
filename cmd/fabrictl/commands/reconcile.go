package commands

import (
	"github.com/spf13/cobra"

	"github.com/zojovano/azuresamples-fabric-observability-sub000/cmd/fabrictl/handlers"
)

// Reconcile returns the command that drives the declared topology to
// convergence.
//
// Optional flags:
//
//	--config, -c:     Path to configuration YAML file (default: fabric.yaml)
//	--skip-workspace: Verify the workspace instead of creating it
//	--max-parallel:   Bound on concurrent sibling operations
//
// Environment variables:
//
//	FABRIC_CLIENT_SECRET: Client secret for explicit credentials
func Reconcile() *cobra.Command {
	flags := handlers.ReconcileFlags{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Create or verify the declared workspace topology",
		Long: `Create or verify the declared workspace, database and table topology.

Resources that already exist are left untouched; missing ones are
created. Parents are fully resolved before their children, and a parent
that cannot be resolved prunes its whole subtree.

Examples:
  # Reconcile using fabric.yaml in the current directory
  fabrictl reconcile -c fabric.yaml

  # Verify a pre-provisioned workspace without creating it
  fabrictl reconcile -c fabric.yaml --skip-workspace`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Reconcile(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.ConfigPath, "config", "c", "fabric.yaml", "Path to configuration file")
	cmd.Flags().BoolVar(&flags.SkipWorkspace, "skip-workspace", false, "Verify the workspace exists instead of creating it")
	cmd.Flags().IntVar(&flags.MaxParallel, "max-parallel", 0, "Maximum concurrent sibling operations (0 = auto)")

	return cmd
}
