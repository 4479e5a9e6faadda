// Package guard bounds the wall-clock time and memory of a protected
// execution region.
//
// A Guard is configured once with resource limits and hands out one Scope per
// protected run. The Scope arms a deadline timer and a memory watchdog on
// entry; both invoke the caller-supplied cancel function when a limit is
// exceeded, and both are disarmed unconditionally by Release regardless of
// how the protected region ends.
//
// Usage:
//
//	g := guard.New(logger, guard.Limits{MaxMemoryBytes: 256 << 20, MaxTimeSec: 10})
//	scope := g.Protect(thread.Cancel)
//	defer scope.Release()
package guard
