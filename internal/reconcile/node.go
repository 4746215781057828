// Package reconcile converges a declared workspace/database/table
// topology against the control plane using idempotent check-then-create.
package reconcile

import (
	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/config"
	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/platform/fabric"
)

// State is a resource node's position in the convergence state machine.
type State string

const (
	StateUnknown  State = "Unknown"
	StateChecking State = "Checking"
	StateExists   State = "Exists"
	StateCreating State = "Creating"
	StateCreated  State = "Created"
	StateFailed   State = "Failed"
)

// Resolved reports whether the state is a successful terminal state.
// Exists and Created are behaviorally equivalent downstream.
func (s State) Resolved() bool {
	return s == StateExists || s == StateCreated
}

// Node is one declared resource in the parent/child topology.
// A node's state may only reach Creating once its parent (when present)
// is resolved; a Failed node never leaves Failed within a run.
type Node struct {
	Kind       fabric.Kind
	Name       string
	Parent     *Node
	Children   []*Node
	Definition fabric.Definition

	// VerifyOnly nodes are checked for existence but never created.
	// Used for pre-provisioned workspaces managed elsewhere.
	VerifyOnly bool

	State State
	ID    string
	Err   error
	Class fabric.Class
}

// ParentID returns the discovered id of the owning node, or "" for roots.
func (n *Node) ParentID() string {
	if n.Parent == nil {
		return ""
	}
	return n.Parent.ID
}

// Walk visits the node and its descendants in pre-order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// BuildTree converts the declared topology into a resource node tree.
// When skipWorkspace is set, the workspace node is verify-only.
func BuildTree(topo config.Topology, skipWorkspace bool) []*Node {
	ws := &Node{
		Kind:       fabric.KindWorkspace,
		Name:       topo.Workspace.Name,
		State:      StateUnknown,
		VerifyOnly: skipWorkspace,
	}

	for _, dbSpec := range topo.Workspace.Databases {
		db := &Node{
			Kind:   fabric.KindDatabase,
			Name:   dbSpec.Name,
			Parent: ws,
			State:  StateUnknown,
		}
		for _, tblSpec := range dbSpec.Tables {
			columns := make([]fabric.Column, 0, len(tblSpec.Columns))
			for _, col := range tblSpec.Columns {
				columns = append(columns, fabric.Column{Name: col.Name, Type: col.Type})
			}
			db.Children = append(db.Children, &Node{
				Kind:       fabric.KindTable,
				Name:       tblSpec.Name,
				Parent:     db,
				State:      StateUnknown,
				Definition: fabric.Definition{Columns: columns},
			})
		}
		ws.Children = append(ws.Children, db)
	}

	return []*Node{ws}
}
