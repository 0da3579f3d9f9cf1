package changelog

import (
	"bytes"
	"testing"
)

func TestTopicPartitionString(t *testing.T) {
	tp := TP("orders", 3)
	if got := tp.String(); got != "orders-3" {
		t.Errorf("Expected orders-3, got %s", got)
	}

	tp = TopicPartition{Topic: "table-changelog", Partition: 0}
	if got := tp.String(); got != "table-changelog-0" {
		t.Errorf("Expected table-changelog-0, got %s", got)
	}
}

func TestEventTombstone(t *testing.T) {
	ev := Event{Key: []byte("k"), Value: nil}
	if !ev.Tombstone() {
		t.Errorf("Expected nil value to be a tombstone")
	}

	ev = Event{Key: []byte("k"), Value: []byte{}}
	if ev.Tombstone() {
		t.Errorf("Expected empty non-nil value not to be a tombstone")
	}

	ev = Event{Key: []byte("k"), Value: []byte("v")}
	if ev.Tombstone() {
		t.Errorf("Expected non-empty value not to be a tombstone")
	}
}

func TestTransformApply(t *testing.T) {
	var identity Transform
	in := []byte("payload")
	if got := identity.Apply(in); !bytes.Equal(got, in) {
		t.Errorf("Expected nil transform to be identity, got %s", got)
	}

	upper := Transform(func(b []byte) []byte {
		return bytes.ToUpper(b)
	})
	if got := upper.Apply([]byte("abc")); !bytes.Equal(got, []byte("ABC")) {
		t.Errorf("Expected ABC, got %s", got)
	}
}
