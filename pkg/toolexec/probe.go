package toolexec

import (
	"context"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// ProbeBudget bounds each version query.
var ProbeBudget = Budget{Timeout: 5 * time.Second}

// Tool names an executable to probe and the flag that prints its version.
type Tool struct {
	Name        string
	Path        string
	VersionFlag string
	Optional    bool // reported but not required by Ready
}

// DefaultTools lists the executables the converter depends on. vtracer has
// no version flag, so its help banner stands in. The legacy ImageMagick 6
// convert binary is reported for diagnosis only.
func DefaultTools(magick, potrace, vtracer string) []Tool {
	return []Tool{
		{Name: "magick", Path: magick, VersionFlag: "--version"},
		{Name: "convert", Path: "convert", VersionFlag: "--version", Optional: true},
		{Name: "potrace", Path: potrace, VersionFlag: "--version"},
		{Name: "vtracer", Path: vtracer, VersionFlag: "--help"},
	}
}

// ToolStatus is the probe outcome for one executable.
type ToolStatus struct {
	Name     string `json:"name"`
	Found    bool   `json:"found"`
	Optional bool   `json:"optional,omitempty"`
	Path     string `json:"path,omitempty"`
	Version  string `json:"version,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Report describes the host and the tools available on it.
type Report struct {
	Platform  string       `json:"platform"`
	Arch      string       `json:"arch"`
	GoVersion string       `json:"goVersion"`
	Tools     []ToolStatus `json:"tools"`
}

// Ready reports whether every required tool was found.
func (r *Report) Ready() bool {
	for _, t := range r.Tools {
		if !t.Found && !t.Optional {
			return false
		}
	}
	return true
}

// Probe resolves and queries every tool concurrently. A missing tool is
// recorded in its status, never returned as an error.
func Probe(ctx context.Context, r Runner, tools []Tool) *Report {
	rep := &Report{
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
		GoVersion: runtime.Version(),
		Tools:     make([]ToolStatus, len(tools)),
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, t := range tools {
		g.Go(func() error {
			rep.Tools[i] = probeOne(ctx, r, t)
			return nil
		})
	}
	_ = g.Wait()
	return rep
}

func probeOne(ctx context.Context, r Runner, t Tool) ToolStatus {
	st := ToolStatus{Name: t.Name, Optional: t.Optional}
	bin := t.Path
	if bin == "" {
		bin = t.Name
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		st.Error = "not found in PATH"
		return st
	}
	st.Found = true
	st.Path = path

	res, err := r.Run(ctx, Command{Name: t.Name, Path: path, Args: []string{t.VersionFlag}}, ProbeBudget)
	// Several tools print their banner and exit non-zero; any output counts.
	out := ""
	if res != nil {
		out = res.Stdout
		if strings.TrimSpace(out) == "" {
			out = res.Stderr
		}
	}
	if line := firstLine(out); line != "" {
		st.Version = line
		return st
	}
	if err != nil {
		st.Error = Diagnostic(err)
	} else {
		st.Version = "unknown"
	}
	return st
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
