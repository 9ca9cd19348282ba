package domain

import (
	"strings"
)

// LibrarySpec names an interpreter library the worker depends on.
type LibrarySpec struct {
	// ImportName is what the probe imports, e.g. "deep_translator".
	ImportName string `json:"import" yaml:"import" mapstructure:"import" validate:"required"`
	// PackageSpec is what the package manager installs, e.g. "deep-translator".
	PackageSpec string `json:"package" yaml:"package" mapstructure:"package" validate:"required"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
}

// DefaultLibraries is the worker's dependency set.
func DefaultLibraries() []LibrarySpec {
	return []LibrarySpec{
		{ImportName: "opencc", PackageSpec: "opencc-python-reimplemented", Description: "Simplified/Traditional conversion"},
		{ImportName: "googletrans", PackageSpec: "googletrans==4.0.0rc1", Description: "Google Translate API"},
		{ImportName: "deep_translator", PackageSpec: "deep-translator", Description: "Deep translator"},
		{ImportName: "translate", PackageSpec: "translate", Description: "Basic translation library"},
	}
}

// PackageSpecs extracts the installable specifiers in order.
func PackageSpecs(libs []LibrarySpec) []string {
	specs := make([]string, 0, len(libs))
	for _, l := range libs {
		specs = append(specs, l.PackageSpec)
	}
	return specs
}

// JoinCommandLine quotes arguments containing whitespace or quotes so the
// line can be pasted into a shell.
func JoinCommandLine(argv []string) string {
	parts := make([]string, 0, len(argv))
	for _, a := range argv {
		if a == "" || strings.ContainsAny(a, " \t\n\"'") {
			a = `"` + strings.ReplaceAll(a, `"`, `\"`) + `"`
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}
