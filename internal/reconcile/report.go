package reconcile

import (
	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/platform/fabric"
)

// Issue describes one node that did not resolve.
type Issue struct {
	Kind    fabric.Kind  `json:"kind"`
	Name    string       `json:"name"`
	Class   fabric.Class `json:"class,omitempty"`
	Message string       `json:"message"`
}

// Report is the convergence result: the annotated tree plus a flat list
// of every node that is not Exists/Created.
type Report struct {
	Roots     []*Node
	Issues    []Issue
	Cancelled bool
}

// BuildReport collects issues from the annotated tree.
func BuildReport(roots []*Node, cancelled bool) *Report {
	rep := &Report{Roots: roots, Cancelled: cancelled}
	for _, root := range roots {
		root.Walk(func(n *Node) {
			if n.State.Resolved() {
				return
			}
			issue := Issue{Kind: n.Kind, Name: n.Name, Class: n.Class}
			switch {
			case n.Err != nil:
				issue.Message = n.Err.Error()
			case cancelled:
				issue.Message = "not processed (run cancelled)"
			default:
				issue.Message = "not processed"
			}
			rep.Issues = append(rep.Issues, issue)
		})
	}
	return rep
}

// Converged reports whether every declared node resolved.
func (rep *Report) Converged() bool {
	return len(rep.Issues) == 0 && !rep.Cancelled
}

// HasAuthFailure reports whether any node failed with an
// authentication-class error.
func (rep *Report) HasAuthFailure() bool {
	for _, issue := range rep.Issues {
		if issue.Class == fabric.ClassAuth {
			return true
		}
	}
	return false
}
