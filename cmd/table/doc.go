// Package table implements the table command group of the tablekv CLI:
// one-shot point operations (set, get, del, has), iteration (scan, len),
// recovery inspection (offset), the destructive reset, an interactive
// readline shell, a benchmark harness and a Prometheus metrics dump.
//
// All subcommands operate on the table selected by --table under the root
// directory selected by --data-dir; the store is created lazily by the
// first operation that touches it.
package table
