// Package memory provides in-memory implementations of driven ports for
// tests and ephemeral sessions. Nothing here survives process exit.
package memory
