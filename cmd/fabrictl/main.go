// Package main is the entry point for the fabrictl CLI.
//
// fabrictl provisions and verifies an observability deployment on a
// Fabric workspace: it resolves an authenticated session through a
// chain of fallback strategies, drives the declared workspace,
// database and table topology to convergence, and runs a gated
// verification pipeline over the result.
//
// Commands: reconcile, verify, version.
//
// For detailed usage information, run:
//
//	fabrictl --help
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/zojovano/azuresamples-fabric-observability-sub000/cmd/fabrictl/commands"
	"github.com/zojovano/azuresamples-fabric-observability-sub000/cmd/fabrictl/handlers"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var exitErr *handlers.ExitCodeError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
