// Package checkpoints tracks recovery progress: for every changelog
// partition it records the highest offset whose effects are durably applied
// to a table store.
//
// Two implementations of the Store interface are provided. Bolt persists
// offsets in a single bbolt file and is what production recovery runs on;
// Memory keeps them in a map for tests and ephemeral runs. Table stores
// consume either one through the read-only store.OffsetSource interface to
// answer PersistedOffset queries; only the application layer writes offsets,
// after it has committed a replayed batch.
package checkpoints
