// Package sandbox provides the in-process execution engine for untrusted
// analysis snippets.
//
// The sandbox package builds the isolated namespace a snippet runs against,
// executes the snippet as Starlark under resource guarding with full output
// capture, and maps every possible failure into a fixed set of error kinds
// with actionable guidance. The engine never lets a snippet destabilize the
// host: every run terminates in a well-formed Outcome.
//
// Usage:
//
//	engine := sandbox.New(logger, sandbox.DefaultOptions())
//	outcome := engine.Execute(ctx, "result = 2 + 2", nil)
//	if outcome.Success {
//	    fmt.Println(outcome.Value) // int64(4)
//	}
package sandbox
