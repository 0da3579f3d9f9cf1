// Package cmd implements the command-line interface for the tablekv
// embedded table store. It provides a hierarchical command structure for
// inspecting and mutating tables on disk.
//
// The package is organized into several subpackages:
//
//   - table: Commands for table operations (get, set, scan, reset, a REPL
//     shell, benchmarks and metrics)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Configuration is resolved flags-first, then TABLEKV_* environment
// variables, then .env / .env.local files in the working directory.
//
// See tablekv -help for a list of all commands.
package cmd
