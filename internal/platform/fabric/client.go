// Package fabric provides a client boundary for the Fabric control
// plane and KQL data plane.
//
// The control plane exposes idempotency-friendly primitives: a read-only
// existence check, a create call, and a lightweight session probe. All
// errors crossing this boundary are classifiable via Classify.
package fabric

import (
	"context"
)

// Kind identifies a resource type in the workspace/database/table chain.
type Kind string

const (
	KindWorkspace Kind = "workspace"
	KindDatabase  Kind = "database"
	KindTable     Kind = "table"
)

// Column is a single (name, type) pair of a table schema.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Definition is the kind-specific creation payload. Only tables carry
// a column schema; workspaces and databases need just their name.
type Definition struct {
	Columns []Column `json:"columns,omitempty"`
}

// TokenSource supplies the bearer token for control-plane calls.
// Implemented by the auth session store.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// ControlPlane is the boundary to the Fabric control-plane REST API.
type ControlPlane interface {
	// CheckExists reports whether a resource with the given name exists
	// in the parent scope, returning its id when found. Read-only and
	// safe to repeat.
	CheckExists(ctx context.Context, kind Kind, name, parentID string) (found bool, id string, err error)

	// Create creates the resource and returns its id. A conflict with a
	// concurrently created resource surfaces as an AlreadyExists-class
	// error.
	Create(ctx context.Context, kind Kind, name, parentID string, def Definition) (id string, err error)

	// Probe performs a lightweight call confirming the current session
	// is usable.
	Probe(ctx context.Context) error
}

// Rows is a query result set, one map per row keyed by column name.
type Rows []map[string]any

// DataPlane is the KQL query boundary used by verification stages.
type DataPlane interface {
	Query(ctx context.Context, database, expression string) (Rows, error)
}
