// Package colname normalizes spreadsheet column headers.
package colname

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Strip trims leading and trailing whitespace.
func Strip(name string) string { return strings.TrimSpace(name) }

// Strict strips, lower-cases, replaces spaces with underscores and "%" with
// "percent". Applying it to its own output is a no-op.
func Strict(name string) string {
	s := cases.Lower(language.Und).String(Strip(name))
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ReplaceAll(s, "%", "percent")
}

// Renames maps source column names to replacement names.
type Renames map[string]string

// Apply returns the replacement for name, or name itself when no pair matches.
func (r Renames) Apply(name string) string {
	if to, ok := r[name]; ok && to != "" {
		return to
	}
	return name
}

// Missing lists the rename sources not present in columns, sorted.
func (r Renames) Missing(columns []string) []string {
	have := make(map[string]bool, len(columns))
	for _, c := range columns {
		have[c] = true
	}
	var out []string
	for from := range r {
		if !have[from] {
			out = append(out, from)
		}
	}
	sort.Strings(out)
	return out
}

