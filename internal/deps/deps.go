// Package deps checks the external binaries reel needs before it can
// process jobs. The daemon reports the results through its status
// endpoint so a missing ffmpeg install is visible without submitting a
// job that would fail.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"reel/internal/config"
)

// Requirement names an external binary reel invokes.
type Requirement struct {
	Name        string
	Command     string
	Description string
}

// Status reports the availability of one requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Available   bool
	Detail      string
}

// ForConfig returns the requirements implied by the configured binaries.
func ForConfig(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "ffmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "executes all processing operations",
		},
		{
			Name:        "ffprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "probes media duration before processing",
		},
	}
}

// Check resolves each requirement's command on PATH and reports the result.
func Check(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			if _, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}
