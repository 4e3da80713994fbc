// Package lint checks a stub corpus for consistency.
//
// Each rule inspects the merged [index.Database] (and optionally a reference
// database describing the real standard library) and emits [Finding] values:
//
//	report := lint.Run(db, lint.Options{Reference: ref, Externals: []string{"Ractor"}})
//	if report.Failed(lint.Error) {
//	    os.Exit(1)
//	}
//
// Rules are identified by name and can be disabled individually; see [Rules].
package lint

import (
	"fmt"
	"sort"

	"github.com/matzehuels/stubdex/pkg/index"
	"github.com/matzehuels/stubdex/pkg/stub"
)

// Finding is a single rule violation.
type Finding struct {
	Rule     string        `json:"rule"`
	Severity Severity      `json:"severity"`
	Location stub.Location `json:"location"`
	Key      string        `json:"key,omitempty"`
	Message  string        `json:"message"`
}

// String renders the finding as "file:line: severity: message [rule]".
func (f Finding) String() string {
	return fmt.Sprintf("%s: %s: %s [%s]", f.Location, f.Severity, f.Message, f.Rule)
}

// Options configures a lint run.
type Options struct {
	// Disable lists rule names to skip.
	Disable []string
	// MinSeverity drops findings below it.
	MinSeverity Severity
	// Externals are module names defined outside the corpus that ancestry
	// may reference (e.g. from a gem).
	Externals []string
	// Reference is the expected signature database. The signature-mismatch
	// and missing rules only run when it is set.
	Reference *index.Database
}

// Report is the outcome of a lint run.
type Report struct {
	Findings []Finding `json:"findings"`
	Rules    []string  `json:"rules"`
}

// Failed reports whether any finding is at or above threshold.
func (r *Report) Failed(threshold Severity) bool {
	for _, f := range r.Findings {
		if f.Severity >= threshold {
			return true
		}
	}
	return false
}

// Count returns the number of findings with the given severity.
func (r *Report) Count(s Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == s {
			n++
		}
	}
	return n
}

// ByRule counts findings per rule.
func (r *Report) ByRule() map[string]int {
	out := make(map[string]int)
	for _, f := range r.Findings {
		out[f.Rule]++
	}
	return out
}

// Summary renders the severity counts, e.g. "2 errors, 1 warning, 0 info".
func (r *Report) Summary() string {
	return fmt.Sprintf("%s, %s, %d info",
		plural(r.Count(Error), "error"), plural(r.Count(Warning), "warning"), r.Count(Info))
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// Run applies every enabled rule to db.
func Run(db *index.Database, opts Options) *Report {
	disabled := make(map[string]bool, len(opts.Disable))
	for _, name := range opts.Disable {
		disabled[name] = true
	}
	c := &checkContext{db: db, opts: opts, externals: make(map[string]bool)}
	for _, e := range opts.Externals {
		c.externals[e] = true
	}

	report := &Report{}
	for _, r := range rules {
		if disabled[r.Name] || (r.NeedsReference && opts.Reference == nil) {
			continue
		}
		report.Rules = append(report.Rules, r.Name)
		for _, f := range r.check(c) {
			f.Rule = r.Name
			f.Severity = r.Severity
			if f.Severity >= opts.MinSeverity {
				report.Findings = append(report.Findings, f)
			}
		}
	}

	sort.SliceStable(report.Findings, func(i, j int) bool {
		a, b := report.Findings[i], report.Findings[j]
		if a.Location.File != b.Location.File {
			return a.Location.File < b.Location.File
		}
		if a.Location.Line != b.Location.Line {
			return a.Location.Line < b.Location.Line
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Key < b.Key
	})
	return report
}
