// Package cmd implements the hitwire CLI commands using Cobra.
//
// Available commands:
//   - fetch: Perform a single request from the command line
//   - request: Run the requests of a description file, optionally on every change
//   - bench: Repeat a request and report latency percentiles
//   - history: List, show and prune journaled transactions
//   - version: Show hitwire version information
package cmd
