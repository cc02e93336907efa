// Package deps reports whether the external tools and assets a run needs are
// present before any media work starts.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Requirement defines an external binary or file the driver relies on.
type Requirement struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Target      string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Check evaluates binaries (Command) via PATH lookup and files (Path) via stat.
func Check(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{
			Name:        req.Name,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		cmd := strings.TrimSpace(req.Command)
		path := strings.TrimSpace(req.Path)
		switch {
		case cmd != "":
			status.Target = cmd
			if resolved, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Target = resolved
				status.Available = true
			}
		case path != "":
			status.Target = path
			if info, err := os.Stat(path); err != nil {
				status.Detail = fmt.Sprintf("file %q not found", path)
			} else if info.IsDir() {
				status.Detail = fmt.Sprintf("%q is a directory", path)
			} else {
				status.Available = true
			}
		default:
			status.Detail = "not configured"
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the required statuses that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}
