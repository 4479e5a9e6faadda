// Package policy provides static pre-execution analysis of analysis snippets.
//
// The policy package parses a snippet into its syntax tree and records every
// load statement, named call and attribute access, evaluating each against a
// configurable denylist. The analyzer never executes code and never fails:
// malformed input produces a report with the parse error recorded, not an
// error return.
//
// Usage:
//
//	analyzer := policy.New(policy.Denylist{DeniedModules: []string{"net"}})
//	report := analyzer.Analyze(`load("net", "fetch")`)
//	if !report.Safe {
//	    // inspect report.Violations
//	}
package policy
