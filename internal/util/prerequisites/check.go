// Package prerequisites checks for client tools required by optional
// authentication strategies.
package prerequisites

import (
	"fmt"
	"os/exec"
	"strings"
)

// Tool represents a client tool that may be required.
type Tool struct {
	// Name is the binary name to look for in PATH.
	Name string

	// Required indicates if this tool is mandatory.
	Required bool

	// Description explains what the tool is used for.
	Description string

	// InstallURL provides a URL for installation instructions.
	InstallURL string
}

// DelegatedAuthTools returns the tools needed for delegated and
// interactive authentication. Both strategies shell out to the az CLI.
func DelegatedAuthTools() []Tool {
	return []Tool{
		{
			Name:        "az",
			Required:    true,
			Description: "Required for delegated token exchange and interactive login",
			InstallURL:  "https://learn.microsoft.com/cli/azure/install-azure-cli",
		},
	}
}

// CheckResult contains the result of checking a single tool.
type CheckResult struct {
	Tool  Tool
	Found bool
	Path  string
}

// CheckResults contains the results of checking multiple tools.
type CheckResults struct {
	Results []CheckResult
	Missing []Tool
}

// HasErrors returns true if any required tools are missing.
func (r *CheckResults) HasErrors() bool {
	for _, tool := range r.Missing {
		if tool.Required {
			return true
		}
	}
	return false
}

// Error returns a formatted error describing the missing required tools,
// or nil if nothing required is missing.
func (r *CheckResults) Error() error {
	if !r.HasErrors() {
		return nil
	}
	var lines []string
	for _, tool := range r.Missing {
		if !tool.Required {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s (install: %s)", tool.Name, tool.Description, tool.InstallURL))
	}
	return fmt.Errorf("missing required tools:\n  %s", strings.Join(lines, "\n  "))
}

// Check looks up each tool in PATH and reports what was found.
func Check(tools []Tool) *CheckResults {
	results := &CheckResults{}
	for _, tool := range tools {
		path, err := exec.LookPath(tool.Name)
		result := CheckResult{Tool: tool, Found: err == nil, Path: path}
		results.Results = append(results.Results, result)
		if err != nil {
			results.Missing = append(results.Missing, tool)
		}
	}
	return results
}
