// Package tables maps logical table names onto on-disk locations and store
// instances. The Manager owns a root directory, derives one "<name>.db"
// directory per table under it, and guarantees at most one live store per
// table name, which is what keeps two facades from contending for the same
// engine directory lock.
//
// Example usage:
//
//	m := tables.NewManager("/var/data/tables")
//	defer m.Close()
//
//	s, err := m.Get("wordcounts") // lazily created, shared on repeat calls
//
// Thread-safety: the Manager is safe for concurrent use.
package tables
