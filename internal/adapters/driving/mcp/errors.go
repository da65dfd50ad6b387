// Package mcp provides an MCP (Model Context Protocol) server adapter for sercha-code.
// It lets AI assistants search indexed code and inspect index state.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")
