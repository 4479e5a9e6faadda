// Package mcpserver provides the Model Context Protocol (MCP) server
// implementation.
//
// The mcpserver package implements an MCP-compliant server that exposes the
// run_analysis_code tool for executing analysis snippets against caller
// supplied data. It uses the mark3labs/mcp-go library to handle the protocol
// details; execution itself is delegated to the sandbox engine and results
// are summarized by the render package.
package mcpserver
