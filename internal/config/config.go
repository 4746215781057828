// Package config loads and validates the fabrictl configuration file.
//
// A single YAML file describes the control-plane endpoints, the
// authentication hints, the declared resource topology (workspace,
// databases, tables) and the verification/report settings. Loading
// follows a strict pipeline: read, unmarshal, decode, default, validate.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration for a fabrictl run.
type Config struct {
	Fabric    FabricConfig    `yaml:"fabric"`
	Auth      AuthConfig      `yaml:"auth"`
	Topology  Topology        `yaml:"topology"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Verify    VerifyConfig    `yaml:"verify"`
	Report    ReportConfig    `yaml:"report"`
}

// FabricConfig holds the control-plane and data-plane endpoints.
type FabricConfig struct {
	// APIEndpoint is the control-plane REST base URL.
	APIEndpoint string `yaml:"apiEndpoint"`

	// QueryEndpoint is the data-plane KQL query URL.
	QueryEndpoint string `yaml:"queryEndpoint"`
}

// AuthConfig supplies credential hints for the authentication resolver.
// All fields are optional; each one enables or disables a strategy.
type AuthConfig struct {
	// TenantID, ClientID and ClientSecret enable the explicit
	// client-credential strategy. ClientSecret may also be supplied via
	// the FABRIC_CLIENT_SECRET environment variable.
	TenantID     string `yaml:"tenantId"`
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`

	// TokenURL overrides the OAuth token endpoint. When empty it is
	// derived from TenantID.
	TokenURL string `yaml:"tokenUrl"`

	// Resource is the audience requested for access tokens.
	Resource string `yaml:"resource"`

	// PreferCached enables reuse of a previously cached token.
	PreferCached bool `yaml:"preferCached"`

	// TokenCachePath is where cached tokens are read from and written to.
	TokenCachePath string `yaml:"tokenCachePath"`

	// AllowDelegated enables token exchange through the az CLI.
	AllowDelegated bool `yaml:"allowDelegated"`

	// AllowInteractive enables browser-based login as a last resort.
	AllowInteractive bool `yaml:"allowInteractive"`
}

// ReconcileConfig tunes the resource reconciler.
type ReconcileConfig struct {
	// SkipWorkspace assumes the workspace already exists and only
	// verifies it instead of creating it. Used when the workspace is
	// managed by a different team or pipeline.
	SkipWorkspace bool `yaml:"skipWorkspace"`

	// MaxParallel bounds sibling convergence concurrency per level.
	// Zero means min(8, sibling count).
	MaxParallel int `yaml:"maxParallel"`
}

// VerifyConfig tunes the gated test runner.
type VerifyConfig struct {
	// GateThreshold is the number of passed foundational stages required
	// before gated (expensive) stages execute.
	GateThreshold int `yaml:"gateThreshold"`
}

// ReportConfig controls the rendered report artifact.
type ReportConfig struct {
	// Path is the report file to write. Empty disables the artifact.
	Path string `yaml:"path"`

	// Format is one of "json", "junit" or "table".
	Format string `yaml:"format"`

	Upload UploadConfig `yaml:"upload"`
}

// UploadConfig enables publishing the report to S3-compatible storage.
type UploadConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
}

// Topology is the declared resource tree to converge: one workspace
// containing databases, each containing tables.
type Topology struct {
	Workspace WorkspaceSpec `yaml:"workspace"`
}

// WorkspaceSpec declares the top-level workspace resource.
type WorkspaceSpec struct {
	Name      string         `yaml:"name"`
	Databases []DatabaseSpec `yaml:"databases"`
}

// DatabaseSpec declares a KQL database inside the workspace.
type DatabaseSpec struct {
	Name   string      `yaml:"name"`
	Tables []TableSpec `yaml:"tables"`
}

// TableSpec declares a table with an ordered column schema.
type TableSpec struct {
	Name    string       `yaml:"name"`
	Columns []ColumnSpec `yaml:"columns"`
}

// ColumnSpec is a single (name, type) column pair.
type ColumnSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Validate checks the configuration for structural errors.
func (c *Config) Validate() error {
	var problems []string

	if c.Fabric.APIEndpoint == "" {
		problems = append(problems, "fabric.apiEndpoint is required")
	}
	if c.Topology.Workspace.Name == "" {
		problems = append(problems, "topology.workspace.name is required")
	}
	if c.Verify.GateThreshold < 0 {
		problems = append(problems, "verify.gateThreshold must not be negative")
	}
	if c.Reconcile.MaxParallel < 0 {
		problems = append(problems, "reconcile.maxParallel must not be negative")
	}

	seenDB := make(map[string]bool)
	for _, db := range c.Topology.Workspace.Databases {
		if db.Name == "" {
			problems = append(problems, "topology database name must not be empty")
			continue
		}
		if seenDB[db.Name] {
			problems = append(problems, fmt.Sprintf("duplicate database %q", db.Name))
		}
		seenDB[db.Name] = true

		seenTable := make(map[string]bool)
		for _, tbl := range db.Tables {
			if tbl.Name == "" {
				problems = append(problems, fmt.Sprintf("database %q: table name must not be empty", db.Name))
				continue
			}
			if seenTable[tbl.Name] {
				problems = append(problems, fmt.Sprintf("database %q: duplicate table %q", db.Name, tbl.Name))
			}
			seenTable[tbl.Name] = true
			for _, col := range tbl.Columns {
				if col.Name == "" || col.Type == "" {
					problems = append(problems, fmt.Sprintf("table %q: columns need both name and type", tbl.Name))
				}
			}
		}
	}

	switch c.Report.Format {
	case "", "json", "junit", "table":
	default:
		problems = append(problems, fmt.Sprintf("report.format %q is not one of json, junit, table", c.Report.Format))
	}

	if c.Report.Upload.Enabled && c.Report.Upload.Bucket == "" {
		problems = append(problems, "report.upload.bucket is required when upload is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}
