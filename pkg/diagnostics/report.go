package diagnostics

import (
	"fmt"
	"strings"
	"time"
)

// Status grades a single check.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

func (s Status) icon() string {
	switch s {
	case StatusPass:
		return "✅"
	case StatusWarn:
		return "⚠️"
	default:
		return "❌"
	}
}

// Section groups related checks in the rendered report.
type Section string

const (
	SectionHost       Section = "Host"
	SectionRuntime    Section = "Runtime"
	SectionLibraries  Section = "Libraries"
	SectionScript     Section = "Worker Script"
	SectionConversion Section = "Trial Conversion"
)

var sectionOrder = []Section{SectionHost, SectionRuntime, SectionLibraries, SectionScript, SectionConversion}

// Check is one line of the report.
type Check struct {
	Section Section        `json:"section"`
	Name    string         `json:"name"`
	Status  Status         `json:"status"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Summary counts checks per status.
type Summary struct {
	Pass int `json:"pass"`
	Warn int `json:"warn"`
	Fail int `json:"fail"`
}

// HostInfo describes where the orchestrator runs.
type HostInfo struct {
	OS           string `json:"os"`
	Arch         string `json:"arch"`
	Version      string `json:"version"`
	GoVersion    string `json:"go_version"`
	WorkingDir   string `json:"working_dir,omitempty"`
	ExtensionDir string `json:"extension_dir,omitempty"`
}

// Report is the read-only outcome of Generate.
type Report struct {
	GeneratedAt time.Time `json:"generated_at"`
	CompletedAt time.Time `json:"completed_at"`
	Host        HostInfo  `json:"host"`
	Checks      []Check   `json:"checks"`
	Summary     Summary   `json:"summary"`
}

func (r *Report) add(c Check) {
	r.Checks = append(r.Checks, c)
	switch c.Status {
	case StatusPass:
		r.Summary.Pass++
	case StatusWarn:
		r.Summary.Warn++
	default:
		r.Summary.Fail++
	}
}

// Healthy reports whether no check failed.
func (r *Report) Healthy() bool {
	return r.Summary.Fail == 0
}

// Find returns the first check with the given name.
func (r *Report) Find(name string) (Check, bool) {
	for _, c := range r.Checks {
		if c.Name == name {
			return c, true
		}
	}
	return Check{}, false
}

func (r *Report) bySection() map[Section][]Check {
	grouped := make(map[Section][]Check)
	for _, c := range r.Checks {
		grouped[c.Section] = append(grouped[c.Section], c)
	}
	return grouped
}

// Text renders the report as plain text, one line per check.
func (r *Report) Text() string {
	var sb strings.Builder
	sb.WriteString("=== hanconv diagnostics ===\n")
	fmt.Fprintf(&sb, "Generated: %s\n", r.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Host: %s/%s, hanconv %s (%s)\n", r.Host.OS, r.Host.Arch, r.Host.Version, r.Host.GoVersion)

	grouped := r.bySection()
	for _, section := range sectionOrder {
		checks := grouped[section]
		if len(checks) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n=== %s ===\n", section)
		for _, c := range checks {
			fmt.Fprintf(&sb, "[%s] %s: %s\n", strings.ToUpper(string(c.Status)), c.Name, c.Message)
		}
	}

	fmt.Fprintf(&sb, "\nSummary: %d passed, %d warnings, %d failed\n", r.Summary.Pass, r.Summary.Warn, r.Summary.Fail)
	return sb.String()
}

// Markdown renders the report for terminal or editor display.
func (r *Report) Markdown() string {
	var sb strings.Builder
	sb.WriteString("# hanconv diagnostics\n\n")
	fmt.Fprintf(&sb, "Generated **%s** on `%s/%s`, hanconv `%s`\n", r.GeneratedAt.Format(time.RFC3339), r.Host.OS, r.Host.Arch, r.Host.Version)

	grouped := r.bySection()
	for _, section := range sectionOrder {
		checks := grouped[section]
		if len(checks) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n## %s\n\n", section)
		for _, c := range checks {
			fmt.Fprintf(&sb, "- %s **%s**: %s\n", c.Status.icon(), c.Name, escape(c.Message))
		}
	}

	fmt.Fprintf(&sb, "\n---\n\n%d passed, %d warnings, %d failed\n", r.Summary.Pass, r.Summary.Warn, r.Summary.Fail)
	return sb.String()
}

// escape keeps worker stderr from breaking the list layout.
func escape(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "<br>")
}
