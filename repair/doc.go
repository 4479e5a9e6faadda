// Package repair is the text-repair collaborator consumed by the execution
// engine.
//
// The repair package validates snippet text before execution and attempts a
// best-effort rewrite of common string-literal damage: typographic quotes
// pasted from documents, incomplete unicode escapes, and unescaped quotes
// inside quoted assignments. The engine works identically with
// sandbox.NoopRepairer when this collaborator is not wired in.
package repair
