package checkpoints

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"tablekv/lib/changelog"
)

func tempBolt(t *testing.T) *Bolt {
	t.Helper()
	dir := t.TempDir()
	s, err := OpenBolt(filepath.Join(dir, "checkpoints.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// runStoreTests exercises the Store contract against any implementation.
func runStoreTests(t *testing.T, s Store) {
	tp := changelog.TP("orders-changelog", 0)

	// fresh partition has no offset
	offset, found, err := s.GetOffset(tp)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Errorf("Expected no offset for a fresh partition, got %d", offset)
	}

	// record and read back
	if err := s.SetOffset(tp, 42); err != nil {
		t.Fatal(err)
	}
	offset, found, err = s.GetOffset(tp)
	if err != nil {
		t.Fatal(err)
	}
	if !found || offset != 42 {
		t.Errorf("Expected offset 42, got found=%v offset=%d", found, offset)
	}

	// overwrite
	if err := s.SetOffset(tp, 43); err != nil {
		t.Fatal(err)
	}
	offset, found, err = s.GetOffset(tp)
	if err != nil {
		t.Fatal(err)
	}
	if !found || offset != 43 {
		t.Errorf("Expected offset 43 after overwrite, got found=%v offset=%d", found, offset)
	}

	// partitions are independent
	other := changelog.TP("orders-changelog", 1)
	_, found, err = s.GetOffset(other)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Errorf("Expected partition 1 to be unaffected by partition 0")
	}

	// snapshot contains exactly the recorded partitions
	if err := s.SetOffset(other, 7); err != nil {
		t.Fatal(err)
	}
	all, err := s.Offsets()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[tp] != 43 || all[other] != 7 {
		t.Errorf("Unexpected snapshot: %v", all)
	}
}

func TestBoltStore(t *testing.T) {
	runStoreTests(t, tempBolt(t))
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, NewMemory())
}

func TestBoltPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoints.db")
	tp := changelog.TP("payments-changelog", 3)

	s, err := OpenBolt(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetOffset(tp, 1001); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = OpenBolt(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	offset, found, err := s.GetOffset(tp)
	if err != nil {
		t.Fatal(err)
	}
	if !found || offset != 1001 {
		t.Errorf("Expected offset 1001 after reopen, got found=%v offset=%d", found, offset)
	}
}

func TestBoltOpenInvalidPath(t *testing.T) {
	_, err := OpenBolt(filepath.Join(t.TempDir(), "missing", "checkpoints.db"))
	if err == nil {
		t.Fatal("opening a checkpoint db in a nonexistent dir should fail")
	}
	if errors.Is(err, os.ErrExist) {
		t.Fatalf("unexpected error kind: %v", err)
	}
}

func TestPartitionKeyRoundTrip(t *testing.T) {
	cases := []changelog.TopicPartition{
		changelog.TP("orders", 0),
		changelog.TP("orders-changelog", 12),
		changelog.TP("a-1", 2),
		changelog.TP("a", 12),
	}
	for _, tp := range cases {
		got, ok := parsePartitionKey(partitionKey(tp))
		if !ok || got != tp {
			t.Errorf("Round trip failed for %v: got %v ok=%v", tp, got, ok)
		}
	}
}

func TestNegativeOffset(t *testing.T) {
	// Offsets are int64; a sentinel like -1 must survive the encoding.
	s := tempBolt(t)
	tp := changelog.TP("orders", 0)
	if err := s.SetOffset(tp, -1); err != nil {
		t.Fatal(err)
	}
	offset, found, err := s.GetOffset(tp)
	if err != nil {
		t.Fatal(err)
	}
	if !found || offset != -1 {
		t.Errorf("Expected offset -1, got found=%v offset=%d", found, offset)
	}
}
