// Package changelog defines the record types flowing between a partitioned
// changelog stream and the table stores that replay it: TopicPartition (the
// identity recovery progress is tracked under), Event (one key/value record,
// with nil values acting as tombstones) and Transform (an optional per-batch
// rewrite of key or value bytes).
//
// The package is purely declarative. Reading changelog topics and deciding
// which batches to replay is the job of the surrounding application; applying
// a batch is the job of a store implementation (see lib/store).
package changelog
