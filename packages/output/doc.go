// Package output renders transactions and run summaries.
//
// Supported output formats:
//   - Console: Human-readable colored terminal output
//   - JSON: Machine-readable JSON output
//
// JSON accumulates transactions and writes them on Flush.
package output
