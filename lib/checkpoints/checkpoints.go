package checkpoints

import (
	"tablekv/lib/changelog"
)

// Store records the highest changelog offset whose effects are durably
// applied, per topic partition. Table stores read it (through
// store.OffsetSource) to answer PersistedOffset; the application layer
// writes it after committing replayed batches.
//
// Thread-safety: implementations are safe for concurrent use.
type Store interface {
	// GetOffset returns the recorded offset for a partition. found=false
	// means the partition has never been checkpointed.
	GetOffset(tp changelog.TopicPartition) (offset int64, found bool, err error)
	// SetOffset durably records the offset for a partition, overwriting any
	// previous value.
	SetOffset(tp changelog.TopicPartition, offset int64) (err error)
	// Offsets returns a snapshot of all recorded offsets.
	Offsets() (map[changelog.TopicPartition]int64, error)
	// Close releases the underlying resources.
	Close() (err error)
}
