// Package main is the entry point for the Starbox MCP server.
//
// The Starbox server implements a secure, configurable Model Context Protocol
// (MCP) server that executes untrusted analysis snippets in an in-process
// sandbox. The server supports both stdio and HTTP transports and provides
// layered safety features including static policy analysis, wall-clock and
// memory ceilings, and a restricted execution namespace.
//
// The application uses Uber's fx framework for dependency injection and
// lifecycle management, with zap for structured logging and viper for
// configuration.
package main
