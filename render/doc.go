// Package render summarizes execution results for display.
//
// The render package turns the raw value a snippet produced into a compact,
// displayable summary: a type tag, shape or length, a small preview of
// elements and the element type. It performs no table or array computation
// of its own.
package render
