package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/auth"
	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/config"
	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/platform/fabric"
	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/reconcile"
	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/util/prerequisites"
)

// sessionResolver matches auth.Resolver for testing.
type sessionResolver interface {
	Resolve(ctx context.Context) (*auth.Session, error)
	WithReauth(ctx context.Context, op func(context.Context) error) error
}

// converger matches reconcile.Reconciler for testing.
type converger interface {
	Converge(ctx context.Context, roots []*reconcile.Node) *reconcile.Report
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfigFile loads config from file.
	loadConfigFile = config.LoadFile

	// loadTimeouts loads timeout configuration from the environment.
	loadTimeouts = config.LoadTimeouts

	// newControlPlane creates the control-plane client.
	newControlPlane = func(cfg *config.Config, tokens fabric.TokenSource, timeouts *config.Timeouts) fabric.ControlPlane {
		return fabric.NewClient(cfg.Fabric.APIEndpoint, cfg.Fabric.QueryEndpoint, tokens, timeouts.APICall)
	}

	// newDataPlane creates the KQL query client, nil when no query
	// endpoint is configured.
	newDataPlane = func(cfg *config.Config, tokens fabric.TokenSource, timeouts *config.Timeouts) fabric.DataPlane {
		if cfg.Fabric.QueryEndpoint == "" {
			return nil
		}
		return fabric.NewClient(cfg.Fabric.APIEndpoint, cfg.Fabric.QueryEndpoint, tokens, timeouts.APICall)
	}

	// newResolver creates the authentication resolver.
	newResolver = func(cfg config.AuthConfig, timeouts *config.Timeouts, store *auth.Store, probe auth.ProbeFunc) sessionResolver {
		return auth.NewResolver(cfg, timeouts, store, probe)
	}

	// newReconciler creates the resource reconciler.
	newReconciler = func(cp fabric.ControlPlane, opts reconcile.Options) converger {
		return reconcile.NewReconciler(cp, opts)
	}

	// checkAuthPrereqs runs prerequisite checks for CLI-based strategies.
	checkAuthPrereqs = func() *prerequisites.CheckResults {
		return prerequisites.Check(prerequisites.DelegatedAuthTools())
	}
)

// ReconcileFlags carries command-line overrides for reconciliation.
type ReconcileFlags struct {
	ConfigPath    string
	SkipWorkspace bool
	MaxParallel   int
}

// Reconcile drives the declared topology to convergence.
//
// The workflow:
//  1. Loads and validates the declarative configuration
//  2. Resolves an authenticated session through the strategy chain
//  3. Walks the workspace/database/table tree, creating what is missing
//  4. Prints a convergence summary with per-resource outcomes
//
// Exit codes: 0 when every resource resolved, 2 when no authentication
// strategy produced a working session, 1 otherwise.
func Reconcile(ctx context.Context, flags ReconcileFlags) error {
	cfg, err := loadConfigFile(flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	timeouts := loadTimeouts()

	resolver, cp, _ := buildPlatform(cfg, timeouts)
	if err := resolveSession(ctx, resolver); err != nil {
		return err
	}

	skipWorkspace := cfg.Reconcile.SkipWorkspace || flags.SkipWorkspace
	maxParallel := cfg.Reconcile.MaxParallel
	if flags.MaxParallel > 0 {
		maxParallel = flags.MaxParallel
	}

	log.Printf("Reconciling topology for workspace: %s", cfg.Topology.Workspace.Name)

	roots := reconcile.BuildTree(cfg.Topology, skipWorkspace)
	rec := newReconciler(cp, reconcile.Options{
		Reauth:      resolver,
		Observer:    reconcile.NewConsoleObserver(),
		Timeouts:    timeouts,
		MaxParallel: maxParallel,
	})

	rep := rec.Converge(ctx, roots)
	printReconcileSummary(rep)

	switch {
	case rep.Converged():
		return nil
	case rep.HasAuthFailure():
		return exitErr(ExitAuthFailure, fmt.Errorf("reconciliation failed with authentication errors"))
	default:
		return exitErr(ExitUnresolved, fmt.Errorf("%d resources did not resolve", len(rep.Issues)))
	}
}

// buildPlatform wires the session store, platform clients and resolver.
// The control-plane probe reads tokens through the store, so it
// exercises whichever candidate session the resolver just installed.
func buildPlatform(cfg *config.Config, timeouts *config.Timeouts) (sessionResolver, fabric.ControlPlane, fabric.DataPlane) {
	store := auth.NewStore()
	cp := newControlPlane(cfg, store, timeouts)
	dp := newDataPlane(cfg, store, timeouts)

	probe := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeouts.Probe)
		defer cancel()
		return cp.Probe(ctx)
	}

	if cfg.Auth.AllowDelegated || cfg.Auth.AllowInteractive {
		reportAuthPrereqs()
	}

	return newResolver(cfg.Auth, timeouts, store, probe), cp, dp
}

// resolveSession walks the authentication chain and maps exhaustion to
// the dedicated exit code.
func resolveSession(ctx context.Context, resolver sessionResolver) error {
	sess, err := resolver.Resolve(ctx)
	if err != nil {
		var authErr *auth.Error
		if errors.As(err, &authErr) {
			return exitErr(ExitAuthFailure, err)
		}
		return err
	}

	log.Printf("Authenticated as %s via %s strategy", sess.Identity, sess.Strategy)
	return nil
}

// reportAuthPrereqs logs the availability of CLI tools used by the
// delegated and interactive strategies. A missing tool is only a
// warning: earlier strategies in the chain may still succeed.
func reportAuthPrereqs() {
	results := checkAuthPrereqs()
	for _, r := range results.Results {
		if r.Found {
			log.Printf("  Found %s (%s)", r.Tool.Name, r.Path)
		}
	}
	if err := results.Error(); err != nil {
		log.Printf("Warning: CLI-based authentication strategies unavailable: %v", err)
	}
}

func printReconcileSummary(rep *reconcile.Report) {
	created, existed := 0, 0
	for _, root := range rep.Roots {
		root.Walk(func(n *reconcile.Node) {
			switch n.State {
			case reconcile.StateCreated:
				created++
			case reconcile.StateExists:
				existed++
			}
		})
	}

	fmt.Printf("\nReconciliation complete: %d created, %d already existed\n", created, existed)
	if rep.Cancelled {
		fmt.Println("Run was cancelled before completion.")
	}
	for _, issue := range rep.Issues {
		fmt.Printf("  %s %q: %s\n", issue.Kind, issue.Name, issue.Message)
	}
}
