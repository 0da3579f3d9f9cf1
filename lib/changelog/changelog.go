package changelog

import "fmt"

// --------------------------------------------------------------------------
// Partition Identity
// --------------------------------------------------------------------------

// TopicPartition identifies one partition of a changelog topic. It is the key
// under which recovery progress is tracked: one persisted offset exists per
// TopicPartition.
type TopicPartition struct {
	Topic     string
	Partition int32
}

// TP is a convenience constructor for TopicPartition.
func TP(topic string, partition int32) TopicPartition {
	return TopicPartition{Topic: topic, Partition: partition}
}

// String returns the canonical "topic-partition" form, e.g. "orders-3".
func (tp TopicPartition) String() string {
	return fmt.Sprintf("%s-%d", tp.Topic, tp.Partition)
}

// --------------------------------------------------------------------------
// Changelog Events
// --------------------------------------------------------------------------

// Event is one record read from a changelog stream during recovery.
// Key and Value are raw bytes; the store imposes no schema on them.
// A nil Value marks a tombstone: replaying the event deletes the key.
// An empty but non-nil Value is a regular write of an empty value.
type Event struct {
	TP     TopicPartition
	Offset int64
	Key    []byte
	Value  []byte
}

// Tombstone reports whether replaying this event deletes its key.
func (e Event) Tombstone() bool {
	return e.Value == nil
}

// --------------------------------------------------------------------------
// Transforms
// --------------------------------------------------------------------------

// Transform maps raw changelog bytes to the bytes actually stored, e.g. to
// strip a serializer envelope or re-prefix keys during replay. A nil
// Transform is the identity.
type Transform func([]byte) []byte

// Apply runs the transform on b, treating a nil Transform as identity.
func (t Transform) Apply(b []byte) []byte {
	if t == nil {
		return b
	}
	return t(b)
}
