package policy

import (
	"fmt"
	"sort"

	"go.starlark.net/syntax"
)

// RiskLevel grades the overall risk of a snippet.
type RiskLevel string

// Risk levels, lowest to highest.
const (
	RiskNone   RiskLevel = "none"
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Severity grades a single violation.
type Severity string

// Violation severities.
const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Violation records one statically detected use of a denied name.
type Violation struct {
	Kind     string // "import", "call" or "attribute"
	Detail   string
	Severity Severity
}

// Report is the immutable result of analyzing one snippet.
type Report struct {
	Safe            bool
	Violations      []Violation
	Imports         []string
	Calls           []string
	Attributes      []string
	RiskLevel       RiskLevel
	Recommendations []string

	// ParseError records a syntax failure. Parse failure is not a policy
	// violation; it surfaces later as an execution-time error.
	ParseError string
}

// Denylist configures the names the analyzer flags. Empty lists are a valid,
// fully permissive configuration under which every snippet is reported safe.
type Denylist struct {
	DeniedModules    []string
	DeniedCalls      []string
	DeniedAttributes []string
}

// Analyzer walks snippet syntax trees and classifies them against a denylist.
// Analyze is a pure function of its input; an Analyzer is safe for concurrent
// use.
type Analyzer struct {
	deniedModules    map[string]struct{}
	deniedCalls      map[string]struct{}
	deniedAttributes map[string]struct{}
}

// New creates an Analyzer for the given denylist.
func New(denylist Denylist) *Analyzer {
	return &Analyzer{
		deniedModules:    toSet(denylist.DeniedModules),
		deniedCalls:      toSet(denylist.DeniedCalls),
		deniedAttributes: toSet(denylist.DeniedAttributes),
	}
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// Analyze parses the snippet and produces a classification report. It never
// executes code and never returns an error: unparseable input yields a safe
// report with ParseError set.
func (a *Analyzer) Analyze(code string) Report {
	report := Report{
		Safe:            true,
		Violations:      []Violation{},
		Imports:         []string{},
		Calls:           []string{},
		Attributes:      []string{},
		RiskLevel:       RiskNone,
		Recommendations: []string{},
	}

	opts := &syntax.FileOptions{
		Set:             true,
		While:           true,
		TopLevelControl: true,
		GlobalReassign:  true,
		Recursion:       true,
	}
	file, err := opts.Parse("snippet.star", code, 0)
	if err != nil {
		report.ParseError = err.Error()
		return report
	}

	imports := map[string]struct{}{}
	calls := map[string]struct{}{}
	attributes := map[string]struct{}{}

	syntax.Walk(file, func(n syntax.Node) bool {
		switch node := n.(type) {
		case *syntax.LoadStmt:
			if module, ok := node.Module.Value.(string); ok {
				imports[module] = struct{}{}
			}
		case *syntax.CallExpr:
			if ident, ok := node.Fn.(*syntax.Ident); ok {
				calls[ident.Name] = struct{}{}
			}
		case *syntax.DotExpr:
			attributes[node.Name.Name] = struct{}{}
		}
		return true
	})

	report.Imports = sorted(imports)
	report.Calls = sorted(calls)
	report.Attributes = sorted(attributes)

	for _, module := range report.Imports {
		if _, denied := a.deniedModules[module]; denied {
			report.Violations = append(report.Violations, Violation{
				Kind:     "import",
				Detail:   fmt.Sprintf("load of denied module %q", module),
				Severity: SeverityCritical,
			})
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("remove the load of module %q", module))
			report.RiskLevel = escalate(report.RiskLevel, RiskHigh)
		}
	}
	for _, call := range report.Calls {
		if _, denied := a.deniedCalls[call]; denied {
			report.Violations = append(report.Violations, Violation{
				Kind:     "call",
				Detail:   fmt.Sprintf("call of denied function %q", call),
				Severity: SeverityCritical,
			})
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("remove the call to %q", call))
			report.RiskLevel = escalate(report.RiskLevel, RiskMedium)
		}
	}
	for _, attr := range report.Attributes {
		if _, denied := a.deniedAttributes[attr]; denied {
			report.Violations = append(report.Violations, Violation{
				Kind:     "attribute",
				Detail:   fmt.Sprintf("access of denied attribute %q", attr),
				Severity: SeverityWarning,
			})
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("avoid accessing attribute %q", attr))
			report.RiskLevel = escalate(report.RiskLevel, RiskMedium)
		}
	}

	report.Safe = len(report.Violations) == 0
	return report
}

func sorted(set map[string]struct{}) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var riskOrder = map[RiskLevel]int{
	RiskNone:   0,
	RiskLow:    1,
	RiskMedium: 2,
	RiskHigh:   3,
}

func escalate(current, proposed RiskLevel) RiskLevel {
	if riskOrder[proposed] > riskOrder[current] {
		return proposed
	}
	return current
}
